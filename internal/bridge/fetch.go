package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pokethrow/pokethrow-desktop/internal/pokemon"
)

// Fetcher loads one record by id.
type Fetcher interface {
	Fetch(ctx context.Context, id int) (pokemon.Record, error)
}

// FetcherFunc adapts a function to Fetcher
type FetcherFunc func(ctx context.Context, id int) (pokemon.Record, error)

func (f FetcherFunc) Fetch(ctx context.Context, id int) (pokemon.Record, error) { return f(ctx, id) }

// FetchPort resolves metadata requests in the background and posts each
// result to a channel. It does not retry; the orchestrator's own timeout
// decides when to give up.
type FetchPort struct {
	ctx      context.Context
	fetcher  Fetcher
	timeout  time.Duration
	results  chan<- MetadataResult
	notifier Notifier

	wg sync.WaitGroup
}

// NewFetchPort creates a port. Lookups stop when ctx is cancelled; timeout
// bounds each one (zero means no per-request bound).
func NewFetchPort(ctx context.Context, fetcher Fetcher, results chan<- MetadataResult, timeout time.Duration, notifier Notifier) *FetchPort {
	return &FetchPort{
		ctx:      ctx,
		fetcher:  fetcher,
		timeout:  timeout,
		results:  results,
		notifier: notifier,
	}
}

// RequestMetadata starts a lookup goroutine
func (p *FetchPort) RequestMetadata(req MetadataRequest) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		res := p.resolve(req)
		select {
		case p.results <- res:
		case <-p.ctx.Done():
		}
	}()
}

func (p *FetchPort) resolve(req MetadataRequest) MetadataResult {
	ctx := p.ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	rec, err := p.fetcher.Fetch(ctx, req.TargetID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return Failed(req, err)
	}
	rec = rec.Normalize()
	if err := rec.Validate(); err != nil {
		return Failed(req, err)
	}
	if rec.ID != req.TargetID {
		return Failed(req, fmt.Errorf("bridge: fetched id %d for target %d", rec.ID, req.TargetID))
	}
	return Succeeded(req, rec)
}

// Notify forwards to the configured notifier
func (p *FetchPort) Notify(o Outcome) {
	if p.notifier != nil {
		p.notifier.Notify(o)
	}
}

// Wait blocks until every started lookup has delivered or been abandoned
func (p *FetchPort) Wait() { p.wg.Wait() }
