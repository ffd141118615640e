package history

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/pokethrow/pokethrow-desktop/internal/bridge"
)

// Recorder saves successful captures in the background. It implements
// bridge.Notifier so it can sit behind the orchestrator's port without
// ever blocking it.
type Recorder struct {
	store   *Store
	logger  *log.Logger
	timeout time.Duration
	onSaved func(Entry)

	mu     sync.Mutex
	closed bool
	queue  chan Entry
	done   chan struct{}
}

// NewRecorder starts a recorder with room for buffer pending entries.
// onSaved, if set, runs on the recorder goroutine after each insert.
func NewRecorder(store *Store, buffer int, logger *log.Logger, onSaved func(Entry)) *Recorder {
	if buffer <= 0 {
		buffer = 16
	}
	if logger == nil {
		logger = log.Default()
	}
	r := &Recorder{
		store:   store,
		logger:  logger,
		timeout: 5 * time.Second,
		onSaved: onSaved,
		queue:   make(chan Entry, buffer),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Notify queues a CaptureSucceeded outcome; other kinds are ignored. When the
// queue is full the entry is dropped and logged.
func (r *Recorder) Notify(o bridge.Outcome) {
	if o.Kind != bridge.CaptureSucceeded || o.Record == nil {
		return
	}
	e := Entry{
		ID:         o.Record.ID,
		Name:       o.Record.Name,
		Image:      o.Record.Image,
		Types:      append([]string(nil), o.Record.Types...),
		CapturedAt: r.store.now(),
	}
	if c := o.Capture; c != nil {
		e.Force, e.Accuracy, e.Rate, e.Roll, e.Grade = c.Force, c.Accuracy, c.Rate, c.Roll, string(c.Grade)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		r.logger.Printf("history: recorder closed, dropping capture of %s", e.Name)
		return
	}
	select {
	case r.queue <- e:
	default:
		r.logger.Printf("history: recorder queue full, dropping capture of %s", e.Name)
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for e := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		saved, err := r.store.Add(ctx, e)
		cancel()
		if err != nil {
			r.logger.Printf("history: save capture: %v", err)
			continue
		}
		if r.onSaved != nil {
			r.onSaved(saved)
		}
	}
}

// Close stops accepting entries and waits for queued ones to be written.
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	<-r.done
}
