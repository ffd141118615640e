// Package session runs an encounter.Orchestrator on its own goroutine,
// stepping it from a ticker and feeding it input from an inbox.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pokethrow/pokethrow-desktop/internal/bridge"
	"github.com/pokethrow/pokethrow-desktop/internal/encounter"
)

// Defaults for Options.
const (
	DefaultTickHz      = 60
	DefaultBroadcastHz = 30
	DefaultMaxFrame    = 250 * time.Millisecond
)

// Sink receives what the loop produces. Calls happen on the loop goroutine.
type Sink interface {
	Effects([]encounter.Effect)
	Snapshot(encounter.Snapshot)
}

// ErrStopped is returned once the loop has exited.
var ErrStopped = errors.New("session: stopped")

// Query asks the loop for a snapshot outside the broadcast cadence.
type Query struct {
	Reply chan<- encounter.Snapshot
}

// Options tune the loop.
type Options struct {
	TickHz      int
	BroadcastHz int
	// MaxFrame bounds the time one tick may advance, so a stalled process
	// does not fast-forward the scene.
	MaxFrame time.Duration
}

// Session owns one orchestrator.
type Session struct {
	Inbox chan any

	orch           *encounter.Orchestrator
	results        <-chan bridge.MetadataResult
	sink           Sink
	tickHz         int
	broadcastEvery int
	maxFrame       time.Duration
	quit           chan struct{}
	done           chan struct{}
	stopOnce       sync.Once
}

// New wires a session. results may be nil when metadata arrives through the inbox.
func New(orch *encounter.Orchestrator, results <-chan bridge.MetadataResult, sink Sink, opts Options) *Session {
	if opts.TickHz <= 0 {
		opts.TickHz = DefaultTickHz
	}
	if opts.BroadcastHz <= 0 {
		opts.BroadcastHz = DefaultBroadcastHz
	}
	if opts.MaxFrame <= 0 {
		opts.MaxFrame = DefaultMaxFrame
	}
	broadcastEvery := opts.TickHz / opts.BroadcastHz
	if broadcastEvery <= 0 {
		broadcastEvery = 1
	}
	return &Session{
		Inbox:          make(chan any, 256),
		orch:           orch,
		results:        results,
		sink:           sink,
		tickHz:         opts.TickHz,
		broadcastEvery: broadcastEvery,
		maxFrame:       opts.MaxFrame,
		quit:           make(chan struct{}),
		done:           make(chan struct{}),
	}
}

// Run steps the orchestrator until ctx is cancelled or Stop is called.
// Inputs received between ticks are applied in arrival order on the next tick.
func (s *Session) Run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(time.Second / time.Duration(s.tickHz))
	defer ticker.Stop()

	var (
		pending []encounter.Event
		last    = time.Now()
		tick    int
	)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.quit:
			return
		case cmd := <-s.Inbox:
			switch c := cmd.(type) {
			case Query:
				c.Reply <- s.orch.Snapshot()
			case bridge.MetadataResult:
				pending = append(pending, encounter.Metadata{Result: c})
			case encounter.Event:
				pending = append(pending, c)
			}
		case res := <-s.results:
			pending = append(pending, encounter.Metadata{Result: res})
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			if dt > s.maxFrame {
				dt = s.maxFrame
			}
			effects := s.orch.Advance(dt, pending...)
			pending = pending[:0]
			if len(effects) > 0 {
				s.sink.Effects(effects)
			}
			tick++
			if tick%s.broadcastEvery == 0 {
				s.sink.Snapshot(s.orch.Snapshot())
			}
		}
	}
}

// Send queues an input for the next tick. It gives up once the loop has stopped.
func (s *Session) Send(cmd any) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.Inbox <- cmd:
		return true
	case <-s.done:
		return false
	}
}

// Snapshot asks the running loop for the current scene.
func (s *Session) Snapshot(ctx context.Context) (encounter.Snapshot, error) {
	reply := make(chan encounter.Snapshot, 1)
	if !s.Send(Query{Reply: reply}) {
		return encounter.Snapshot{}, ErrStopped
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-s.done:
		return encounter.Snapshot{}, ErrStopped
	case <-ctx.Done():
		return encounter.Snapshot{}, ctx.Err()
	}
}

// Stop ends Run and waits for it to return. Safe to call more than once.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.quit) })
	<-s.done
}

// Done is closed when Run returns.
func (s *Session) Done() <-chan struct{} { return s.done }
