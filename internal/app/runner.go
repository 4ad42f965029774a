package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/samvad-hq/samvad-apiclient/internal/config"
	"github.com/samvad-hq/samvad-apiclient/internal/journal"
	"github.com/samvad-hq/samvad-apiclient/internal/logger"
	"github.com/samvad-hq/samvad-apiclient/pkg/api"
	"github.com/samvad-hq/samvad-apiclient/pkg/httpclient"
	"github.com/samvad-hq/samvad-apiclient/pkg/publishers"
	"github.com/samvad-hq/samvad-apiclient/pkg/result"
)

const defaultBatchConcurrency = 4

// Runner executes API calls and turns each one into an outcome event that is
// journaled and published.
type Runner struct {
	api         *api.API
	store       journal.Store
	fanout      *publishers.Fanout
	log         logger.Logger
	limit       int
	registry    *prometheus.Registry
	outcomes    *prometheus.CounterVec
	metricsFile string
}

// NewRunner builds a runner from config: a resty transport with metrics, the
// journal backend and, when a publishers file is configured, the publishers.
func NewRunner(ctx context.Context, cfg *config.Config, log logger.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	registry := prometheus.NewRegistry()
	metrics, err := httpclient.NewMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("register http metrics: %w", err)
	}

	clientOpts := httpclient.Options{
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.HTTPTimeout,
		UserAgent: cfg.UserAgent,
		Debug:     cfg.HTTPDebug,
		Metrics:   metrics,
	}
	if logger.S != nil {
		clientOpts.Logger = logger.S
	}
	client := httpclient.NewRestyClient(clientOpts)

	store, err := journal.NewStore(cfg.JournalType, cfg.JournalPath, journal.Options{
		TTL:             cfg.JournalTTL,
		CleanupInterval: cfg.JournalCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init journal: %w", err)
	}
	log.InfoObj("journal initialized", "journal_config", map[string]any{
		"type":                     cfg.JournalType,
		"path":                     cfg.JournalPath,
		"ttl_seconds":              int(cfg.JournalTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.JournalCleanupInterval.Seconds()),
	})

	fanout, err := buildFanout(ctx, cfg.PublishersFile, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	r := newRunner(client, store, fanout, log, cfg.BatchConcurrency, registry)
	r.metricsFile = strings.TrimSpace(cfg.MetricsFile)
	return r, nil
}

// buildFanout loads the publishers file. An empty path disables publishing.
func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	if strings.TrimSpace(path) == "" {
		log.InfoObj("no publishers file configured; outcomes are not published", "publishers_file", path)
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabled := publisherReg.Enabled()
	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients), nil
}

func newRunner(client httpclient.Client, store journal.Store, fanout *publishers.Fanout, log logger.Logger, limit int, registry *prometheus.Registry) *Runner {
	if store == nil {
		store, _ = journal.NewStore("none", "", journal.Options{})
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if limit <= 0 {
		limit = defaultBatchConcurrency
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "apiclient_call_outcomes_total",
		Help: "Finished calls by outcome (some, none, error).",
	}, []string{"outcome"})
	if err := registry.Register(outcomes); err != nil {
		log.WarnObj("outcome counter not registered", "error", err)
	}

	return &Runner{
		api:      api.New(client),
		store:    store,
		fanout:   fanout,
		log:      log,
		limit:    limit,
		registry: registry,
		outcomes: outcomes,
	}
}

// Do runs call and returns its outcome event. Journal and publish failures
// are logged, never returned; the event itself carries any call failure.
func (r *Runner) Do(ctx context.Context, call Call) publishers.Event {
	call = call.normalized()
	start := time.Now()

	var res result.Result[result.Option[json.RawMessage]]
	if err := call.validate(); err != nil {
		res = result.Err[result.Option[json.RawMessage]](err)
	} else {
		res = r.task(call).Run(ctx)
	}

	evt := outcomeEvent(call, res)
	evt.DurationMs = time.Since(start).Milliseconds()
	r.outcomes.WithLabelValues(string(evt.Outcome)).Inc()
	r.deliver(ctx, evt)
	return evt
}

// Batch runs calls concurrently, at most limit at a time, and returns their
// events in input order.
func (r *Runner) Batch(ctx context.Context, calls []Call) ([]publishers.Event, error) {
	events := make([]publishers.Event, len(calls))
	if len(calls) == 0 {
		return events, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.limit)
	for i, call := range calls {
		g.Go(func() error {
			events[i] = r.Do(gctx, call)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return events, err
	}

	failed := 0
	for _, evt := range events {
		if evt.Failed() {
			failed++
		}
	}
	r.log.InfoObj("batch completed", "batch_meta", map[string]any{
		"calls":  len(calls),
		"failed": failed,
	})
	return events, ctx.Err()
}

// History returns up to limit journaled events, newest first.
func (r *Runner) History(limit int) ([]publishers.Event, error) {
	return r.store.Recent(limit)
}

// Lookup returns the journaled event with id, if it is still retained.
func (r *Runner) Lookup(id string) (result.Option[publishers.Event], error) {
	return r.store.Get(id)
}

// Close releases publishers and the journal and writes the metrics textfile
// when one is configured.
func (r *Runner) Close() error {
	if r == nil {
		return nil
	}

	var errs []error
	if err := r.fanout.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publishers: %w", err))
	}
	if err := r.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close journal: %w", err))
	}
	if r.metricsFile != "" {
		if err := prometheus.WriteToTextfile(r.metricsFile, r.registry); err != nil {
			errs = append(errs, fmt.Errorf("write metrics file: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) task(call Call) result.Task[result.Option[json.RawMessage]] {
	cfg := call.requestConfig()
	switch call.Method {
	case http.MethodPost:
		if cfg == nil {
			return api.Post[json.RawMessage](r.api, call.URL, call.Body)
		}
		return api.PostWith[json.RawMessage](r.api, call.URL, call.Body, cfg)
	case http.MethodPut:
		return api.Put[json.RawMessage](r.api, call.URL, call.Body, cfg)
	case http.MethodDelete:
		return api.Delete[json.RawMessage](r.api, call.URL, cfg)
	default:
		return api.Fetch[json.RawMessage](r.api, call.URL, cfg)
	}
}

// deliver journals and publishes evt.
func (r *Runner) deliver(ctx context.Context, evt publishers.Event) {
	if err := r.store.Record(evt); err != nil {
		r.log.ErrorObj("journal record failed", "journal_error", map[string]any{
			"event_id": evt.ID,
			"error":    err.Error(),
		})
	}

	if r.fanout.Size() == 0 {
		return
	}
	published, err := r.fanout.Publish(ctx, evt)
	if err != nil {
		r.log.WarnObj("publish failed", "publish_error", map[string]any{
			"event_id":  evt.ID,
			"published": published,
			"error":     err.Error(),
		})
		return
	}
	r.log.DebugObj("event published", "event_id", evt.ID)
}

// outcomeEvent folds a call result into its event.
func outcomeEvent(call Call, res result.Result[result.Option[json.RawMessage]]) publishers.Event {
	return result.Fold(res,
		func(err error) publishers.Event {
			evt := publishers.NewEvent(call.Name, call.Method, call.URL, publishers.OutcomeError)
			evt.Error = err.Error()
			if httpErr, ok := httpclient.AsError(err); ok {
				evt.StatusCode = httpErr.StatusCode
			}
			return evt
		},
		func(opt result.Option[json.RawMessage]) publishers.Event {
			raw, ok := opt.Get()
			if !ok {
				return publishers.NewEvent(call.Name, call.Method, call.URL, publishers.OutcomeNone)
			}
			evt := publishers.NewEvent(call.Name, call.Method, call.URL, publishers.OutcomeSome)
			evt.Payload = asJSON(raw)
			return evt
		},
	)
}

// asJSON keeps valid JSON bodies as-is and quotes anything else (HTML, text).
func asJSON(raw []byte) json.RawMessage {
	if json.Valid(raw) {
		return json.RawMessage(raw)
	}
	quoted, err := json.Marshal(string(raw))
	if err != nil {
		return nil
	}
	return quoted
}
