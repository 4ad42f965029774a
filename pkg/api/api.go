// Package api is the base for typed HTTP API clients. Embed *API in a
// resource client and build requests with Fetch, Post, Put and Delete; each
// returns a lazy result.Task whose outcome is either the transport error or an
// optional decoded payload.
//
//	type Users struct{ *api.API }
//
//	func (u Users) Find(id string) result.Task[result.Option[User]] {
//		return api.Fetch[User](u.API, "/users/"+id, nil)
//	}
package api

import (
	"context"
	"errors"

	"github.com/samvad-hq/samvad-apiclient/pkg/httpclient"
	"github.com/samvad-hq/samvad-apiclient/pkg/result"
)

// ErrNilClient is the failure of every task built on an API without a client.
var ErrNilClient = errors.New("api: http client is nil")

// API holds the injected transport. It never modifies the client.
type API struct {
	client httpclient.Client
	codecs *codecSet
}

// Option customizes an API.
type Option func(*API)

// WithCodec registers codec for mediaType (e.g. "application/vnd.api+json"),
// replacing any built-in entry.
func WithCodec(mediaType string, codec Codec) Option {
	return func(a *API) { a.codecs.register(mediaType, codec) }
}

// WithDefaultCodec sets the codec used when no media type matches.
func WithDefaultCodec(codec Codec) Option {
	return func(a *API) {
		if codec != nil {
			a.codecs.fallback = codec
		}
	}
}

// New wraps client. It does not fail; a nil client surfaces when a task runs.
func New(client httpclient.Client, opts ...Option) *API {
	a := &API{client: client, codecs: defaultCodecs()}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Fetch issues a GET. cfg is passed to the transport unchanged.
func Fetch[T any](a *API, url string, cfg *httpclient.RequestConfig) result.Task[result.Option[T]] {
	return handle[T](a, func(ctx context.Context, c httpclient.Client) (httpclient.Response, error) {
		return c.Get(ctx, url, cfg)
	})
}

// Post issues a POST with an optional body (nil sends none).
func Post[T any](a *API, url string, data any) result.Task[result.Option[T]] {
	return PostWith[T](a, url, data, nil)
}

// PostWith is Post with a transport config, for endpoints that need headers or query params.
func PostWith[T any](a *API, url string, data any, cfg *httpclient.RequestConfig) result.Task[result.Option[T]] {
	return handle[T](a, func(ctx context.Context, c httpclient.Client) (httpclient.Response, error) {
		return c.Post(ctx, url, data, cfg)
	})
}

// Put issues a PUT with an optional body and transport config.
func Put[T any](a *API, url string, data any, cfg *httpclient.RequestConfig) result.Task[result.Option[T]] {
	return handle[T](a, func(ctx context.Context, c httpclient.Client) (httpclient.Response, error) {
		return c.Put(ctx, url, data, cfg)
	})
}

// Delete issues a DELETE. Many endpoints answer without a body, which yields None.
func Delete[T any](a *API, url string, cfg *httpclient.RequestConfig) result.Task[result.Option[T]] {
	return handle[T](a, func(ctx context.Context, c httpclient.Client) (httpclient.Response, error) {
		return c.Delete(ctx, url, cfg)
	})
}

type call func(ctx context.Context, c httpclient.Client) (httpclient.Response, error)

// handle turns one transport call into the uniform Task[Option[T]] shape.
// Transport errors are returned untouched; only successes get the Option layer.
func handle[T any](a *API, do call) result.Task[result.Option[T]] {
	return func(ctx context.Context) result.Result[result.Option[T]] {
		if a == nil || a.client == nil {
			return result.Err[result.Option[T]](ErrNilClient)
		}

		resp, err := do(ctx, a.client)
		if err != nil {
			return result.Err[result.Option[T]](err)
		}
		if resp == nil {
			return result.Ok(result.None[T]())
		}

		codec, matched := a.codecs.forResponse(resp)
		body := resp.Body()
		if isAbsent(body, codec) {
			return result.Ok(result.None[T]())
		}

		var v T
		if err := decodeInto(codec, body, &v, matched); err != nil {
			return result.Err[result.Option[T]](&httpclient.Error{
				StatusCode: resp.StatusCode(),
				Message:    "decode " + codec.Name() + " response",
				Header:     resp.Header(),
				Body:       body,
				Cause:      err,
			})
		}
		return result.Ok(result.Some(v))
	}
}
