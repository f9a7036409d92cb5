package profiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/reqprof/internal/log"
	"github.com/nao1215/reqprof/internal/model"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Requester performs one request. *transport.Requester implements it.
type Requester interface {
	Do(ctx context.Context, u model.CanonicalURL) (*model.Response, error)
}

// ProgressFunc is called after each outcome is recorded with the number of
// completed attempts and the total. It may be called from several goroutines
// but never concurrently.
type ProgressFunc func(done, total int)

// Profiler issues requests through a Requester.
type Profiler struct {
	requester   Requester
	logger      *slog.Logger
	concurrency int
	limiter     *rate.Limiter
	failFast    bool
	progress    ProgressFunc
}

// Option configures a Profiler.
type Option func(*Profiler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Profiler) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithConcurrency sets how many requests may be in flight at once.
// The default of 1 runs requests strictly one after another.
func WithConcurrency(n int) Option {
	return func(p *Profiler) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithRateLimit caps request starts at perSecond. Zero or less disables it.
func WithRateLimit(perSecond float64) Option {
	return func(p *Profiler) {
		if perSecond > 0 {
			p.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			p.limiter = nil
		}
	}
}

// WithFailFast makes Profile stop at the first transport error and return it.
func WithFailFast(failFast bool) Option {
	return func(p *Profiler) {
		p.failFast = failFast
	}
}

// WithProgress registers a callback invoked after each recorded outcome.
func WithProgress(fn ProgressFunc) Option {
	return func(p *Profiler) {
		p.progress = fn
	}
}

// New creates a Profiler that sends requests through requester.
func New(requester Requester, opts ...Option) *Profiler {
	p := &Profiler{
		requester:   requester,
		logger:      log.Discard(),
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Single sends one request to u.
//
// The returned outcome classifies the response. A transport error is
// returned as err together with a transport-error outcome and a nil response.
func (p *Profiler) Single(ctx context.Context, u model.CanonicalURL) (*model.Response, model.Outcome, error) {
	start := time.Now()
	resp, err := p.requester.Do(ctx, u)
	if err != nil {
		return nil, model.NewTransportError(err), fmt.Errorf("request to %s failed: %w", u.URL(), err)
	}

	outcome := resp.Outcome(time.Since(start))
	p.logger.Debug("request completed",
		slog.String("url", u.URL()),
		slog.String("outcome", outcome.Kind.String()),
		slog.Int("status", int(resp.StatusCode)),
		slog.Int("bytes", len(resp.Raw)),
	)
	return resp, outcome, nil
}

// Profile sends exactly n requests to u and returns the finalized report.
//
// Every attempt contributes one outcome. The run ends early only when ctx
// is cancelled, or on the first transport error when fail-fast is set; in
// both cases the error is returned and no report.
func (p *Profiler) Profile(ctx context.Context, u model.CanonicalURL, n int) (*model.ProfileReport, error) {
	if n < 1 {
		return nil, ErrInvalidCount
	}

	p.logger.Info("starting profiling run",
		slog.String("url", u.URL()),
		slog.Int("requests", n),
		slog.Int("concurrency", p.concurrency),
	)

	report := model.NewProfileReport(u, n)

	var (
		mu   sync.Mutex
		done int
	)
	record := func(o model.Outcome) {
		mu.Lock()
		defer mu.Unlock()
		report.Add(o)
		done++
		if p.progress != nil {
			p.progress(done, n)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i := range n {
		// Go blocks while the limit is reached, so the loop stops handing
		// out work once gctx is cancelled.
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return p.attempt(gctx, u, i+1, record)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report.Finalize()
	p.logger.Info("profiling run complete",
		slog.String("url", u.URL()),
		slog.Int("succeeded", report.Succeeded()),
		slog.Int("failed", report.Failed()),
		slog.Int("transport_errors", report.TransportErrors),
		slog.Duration("elapsed", report.Duration),
	)
	return report, nil
}

// attempt performs request number seq and records its outcome.
// It returns an error only when the run must stop.
func (p *Profiler) attempt(ctx context.Context, u model.CanonicalURL, seq int, record func(model.Outcome)) error {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	resp, err := p.requester.Do(ctx, u)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return err
		}
		if p.failFast {
			return fmt.Errorf("request %d to %s failed: %w", seq, u.URL(), err)
		}
		p.logger.Warn("request failed",
			slog.Int("attempt", seq),
			slog.String("error", err.Error()),
		)
		record(model.NewTransportError(err))
		return nil
	}

	outcome := resp.Outcome(elapsed)
	p.logger.Debug("request completed",
		slog.Int("attempt", seq),
		slog.String("outcome", outcome.Kind.String()),
		slog.Int("status", int(resp.StatusCode)),
		slog.Int64("elapsed_ms", elapsed.Milliseconds()),
	)
	record(outcome)
	return nil
}
