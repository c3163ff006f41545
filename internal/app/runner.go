package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/samvad-hq/cosmos-rest/internal/config"
	"github.com/samvad-hq/cosmos-rest/internal/logger"
	"github.com/samvad-hq/cosmos-rest/internal/storage"
	"github.com/samvad-hq/cosmos-rest/pkg/queries"
	"github.com/samvad-hq/cosmos-rest/pkg/restclient"
	"google.golang.org/protobuf/proto"
)

// Runner executes the configured queries against one REST node, once or on
// a polling interval, and writes every new response to its output.
type Runner struct {
	cfg      *config.Config
	registry *queries.Registry
	client   *restclient.Client
	store    storage.Store
	interval time.Duration
	log      logger.Logger

	outMu sync.Mutex
	enc   *json.Encoder

	closeOnce sync.Once
	closeErr  error
}

// Result is the line written for each emitted response.
type Result struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Path   string          `json:"path"`
	Body   json.RawMessage `json:"body"`
}

// NewRunner builds a runner from config. clientOpts are forwarded to the REST client.
func NewRunner(cfg *config.Config, log logger.Logger, out io.Writer, clientOpts ...restclient.Option) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if out == nil {
		return nil, fmt.Errorf("output writer must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}

	registry, err := queries.Load(cfg.QueriesFile)
	if err != nil {
		return nil, fmt.Errorf("load queries: %w", err)
	}
	enabled := registry.Enabled()
	ids := make([]string, 0, len(enabled))
	for _, q := range enabled {
		ids = append(ids, q.ID)
	}
	log.InfoObj("queries loaded", "queries_meta", map[string]any{
		"count": len(ids),
		"ids":   ids,
	})

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
		TTL:             cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"ttl_seconds":              int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	opts := append([]restclient.Option{restclient.WithLogger(log)}, clientOpts...)

	return &Runner{
		cfg:      cfg,
		registry: registry,
		client:   restclient.New(cfg.RestAddress, opts...),
		store:    store,
		interval: cfg.PollInterval,
		log:      log,
		enc:      json.NewEncoder(out),
	}, nil
}

// Run executes every enabled query. With a poll interval it keeps going until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	if r == nil || r.client == nil {
		return fmt.Errorf("runner is not initialized")
	}

	qs := r.registry.Enabled()
	if len(qs) == 0 {
		return fmt.Errorf("no enabled queries in %s", r.cfg.QueriesFile)
	}

	if r.interval <= 0 {
		return r.runOnce(ctx, qs)
	}

	r.log.InfoObj("poll loop starting", "runner_state", map[string]any{
		"queries_count": len(qs),
		"rest_address":  r.client.Address(),
		"poll_interval": r.interval.String(),
	})

	if err := r.runOnce(ctx, qs); err != nil {
		r.log.ErrorObj("initial pass failed", "error", err.Error())
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.InfoObj("poll loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if err := r.runOnce(ctx, qs); err != nil {
				r.log.ErrorObj("scheduled pass failed", "error", err.Error())
			}
		}
	}
}

// Close releases the REST session and the store.
func (r *Runner) Close() error {
	if r == nil {
		return nil
	}
	r.closeOnce.Do(func() {
		r.closeErr = errors.Join(r.client.Close(), r.store.Close())
	})
	return r.closeErr
}

func (r *Runner) runOnce(ctx context.Context, qs []queries.Query) error {
	start := time.Now()
	var errs []error
	emitted := 0

	for _, q := range qs {
		if ctx.Err() != nil {
			break
		}
		ok, err := r.execute(ctx, q)
		if err != nil {
			errs = append(errs, fmt.Errorf("query %s: %w", q.ID, err))
			r.log.ErrorObj("query failed", "query_error", map[string]any{
				"query_id": q.ID,
				"error":    err.Error(),
			})
			continue
		}
		if ok {
			emitted++
		}
	}

	r.log.InfoObj("pass completed", "pass_meta", map[string]any{
		"queries_count": len(qs),
		"emitted":       emitted,
		"failed":        len(errs),
		"elapsed_ms":    time.Since(start).Milliseconds(),
	})
	return errors.Join(errs...)
}

// execute runs q and reports whether its response was emitted.
func (r *Runner) execute(ctx context.Context, q queries.Query) (bool, error) {
	msg, err := q.Message()
	if err != nil {
		return false, err
	}
	var req proto.Message
	if msg != nil {
		req = msg
	}

	var body []byte
	switch q.Method {
	case http.MethodPost:
		body, err = r.client.Post(ctx, q.Path, req)
	default:
		body, err = r.client.Get(ctx, q.Path, req, q.UsedParams)
	}
	if err != nil {
		return false, err
	}

	fp := storage.FingerprintOf(body)
	changed, err := r.store.Changed(q.ID, fp)
	if err != nil {
		return false, fmt.Errorf("check store: %w", err)
	}
	if !changed {
		r.log.DebugObj("response unchanged", "query_id", q.ID)
		return false, nil
	}

	if err := r.emit(q, body); err != nil {
		return false, err
	}
	if err := r.store.Record(q.ID, fp); err != nil {
		return true, fmt.Errorf("record response: %w", err)
	}
	return true, nil
}

func (r *Runner) emit(q queries.Query, body []byte) error {
	raw := json.RawMessage(body)
	if !json.Valid(body) {
		quoted, err := json.Marshal(string(body))
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		raw = quoted
	}

	r.outMu.Lock()
	defer r.outMu.Unlock()
	if err := r.enc.Encode(Result{ID: q.ID, Method: q.Method, Path: q.Path, Body: raw}); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}
