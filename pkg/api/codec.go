package api

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"mime"
	"reflect"
	"strings"

	"github.com/PuerkitoBio/goquery"
	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/samvad-apiclient/pkg/httpclient"
)

// Codec decodes a response body into v, a non-nil pointer.
type Codec interface {
	Name() string
	Decode(data []byte, v any) error
}

// nullChecker is implemented by codecs whose format has an explicit null literal.
type nullChecker interface {
	IsNull(data []byte) bool
}

// markupCodec is implemented by codecs for human-readable documents (text,
// HTML). Untyped targets receive such bodies as a string.
type markupCodec interface {
	Markup() bool
}

type jsonCodec struct{}

func (jsonCodec) Name() string                    { return "json" }
func (jsonCodec) Decode(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) IsNull(data []byte) bool         { return bytes.Equal(data, []byte("null")) }

type xmlCodec struct{}

func (xmlCodec) Name() string                    { return "xml" }
func (xmlCodec) Decode(data []byte, v any) error { return xml.Unmarshal(data, v) }

type yamlCodec struct{}

func (yamlCodec) Name() string                    { return "yaml" }
func (yamlCodec) Decode(data []byte, v any) error { return yaml.Unmarshal(data, v) }
func (yamlCodec) IsNull(data []byte) bool {
	s := string(data)
	return s == "null" || s == "~" || s == "Null" || s == "NULL"
}

// htmlCodec parses pages into a goquery document; T must be *goquery.Document.
type htmlCodec struct{}

func (htmlCodec) Name() string { return "html" }
func (htmlCodec) Markup() bool { return true }
func (htmlCodec) Decode(data []byte, v any) error {
	dst, ok := v.(**goquery.Document)
	if !ok {
		return fmt.Errorf("html responses decode into *goquery.Document, not %T", v)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}
	*dst = doc
	return nil
}

// textCodec hands plain text over as a string.
type textCodec struct{}

func (textCodec) Name() string { return "text" }
func (textCodec) Markup() bool { return true }
func (textCodec) Decode(data []byte, v any) error {
	dst, ok := v.(*string)
	if !ok {
		return fmt.Errorf("text responses decode into string, not %T", v)
	}
	*dst = string(data)
	return nil
}

type codecSet struct {
	byType   map[string]Codec
	fallback Codec
}

func defaultCodecs() *codecSet {
	s := &codecSet{byType: make(map[string]Codec), fallback: jsonCodec{}}
	s.register("application/json", jsonCodec{})
	s.register("text/json", jsonCodec{})
	s.register("application/xml", xmlCodec{})
	s.register("text/xml", xmlCodec{})
	s.register("application/yaml", yamlCodec{})
	s.register("application/x-yaml", yamlCodec{})
	s.register("text/yaml", yamlCodec{})
	s.register("text/html", htmlCodec{})
	s.register("text/plain", textCodec{})
	return s
}

func (s *codecSet) register(mediaType string, codec Codec) {
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if mediaType == "" || codec == nil {
		return
	}
	s.byType[mediaType] = codec
}

// forResponse picks a codec from the Content-Type header, honouring
// structured syntax suffixes such as application/problem+json. matched is
// false when the fallback codec was chosen.
func (s *codecSet) forResponse(resp httpclient.Response) (codec Codec, matched bool) {
	var contentType string
	if h := resp.Header(); h != nil {
		contentType = h.Get("Content-Type")
	}
	mediaType := parseMediaType(contentType)
	if mediaType == "" {
		return s.fallback, false
	}
	if c, ok := s.byType[mediaType]; ok {
		return c, true
	}

	var suffixed Codec
	switch {
	case strings.HasSuffix(mediaType, "+json"):
		suffixed = s.byType["application/json"]
	case strings.HasSuffix(mediaType, "+xml"):
		suffixed = s.byType["application/xml"]
	case strings.HasSuffix(mediaType, "+yaml"):
		suffixed = s.byType["application/yaml"]
	}
	if suffixed != nil {
		return suffixed, true
	}
	return s.fallback, false
}

func parseMediaType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// isAbsent reports whether body carries no payload at all. An empty body is
// always absent; a whitespace-only body is absent unless codec is a markup
// codec, where whitespace is content.
func isAbsent(body []byte, codec Codec) bool {
	if len(body) == 0 {
		return true
	}
	if isMarkup(codec) {
		return false
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return true
	}
	if nc, ok := codec.(nullChecker); ok {
		return nc.IsNull(trimmed)
	}
	return false
}

func isMarkup(codec Codec) bool {
	mc, ok := codec.(markupCodec)
	return ok && mc.Markup()
}

// decodeInto copies the raw body for byte-slice targets ([]byte,
// json.RawMessage, ...) and defers to codec for everything else. Interface
// targets take markup bodies, and bodies the fallback codec cannot parse, as
// a string.
func decodeInto(codec Codec, body []byte, v any, matched bool) error {
	rv := reflect.ValueOf(v).Elem()
	switch {
	case rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8:
		rv.SetBytes(bytes.Clone(body))
		return nil
	case rv.Kind() == reflect.Interface && isMarkup(codec):
		return setString(rv, body)
	}

	err := codec.Decode(body, v)
	if err != nil && !matched && rv.Kind() == reflect.Interface {
		return setString(rv, body)
	}
	return err
}

func setString(rv reflect.Value, body []byte) error {
	s := reflect.ValueOf(string(body))
	if !s.Type().AssignableTo(rv.Type()) {
		return fmt.Errorf("cannot assign string body to %s", rv.Type())
	}
	rv.Set(s)
	return nil
}
