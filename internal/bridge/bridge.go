// Package bridge is the boundary between the game core and whatever surrounds
// it: a metadata source and a sink for capture outcomes.
//
// The core only sees Port. Results always come back as MetadataResult values
// that the owner of the orchestrator feeds in on its own goroutine.
package bridge

import (
	"errors"

	"github.com/pokethrow/pokethrow-desktop/internal/capture"
	"github.com/pokethrow/pokethrow-desktop/internal/pokemon"
)

// MetadataRequest asks for the record of one target.
type MetadataRequest struct {
	RequestID uint64 `json:"requestId"`
	TargetID  int    `json:"targetId"`
}

// MetadataResult answers a MetadataRequest. Exactly one of Record and Err is set.
type MetadataResult struct {
	RequestID uint64          `json:"requestId"`
	TargetID  int             `json:"targetId"`
	Record    *pokemon.Record `json:"record,omitempty"`
	Err       error           `json:"-"`
}

// OK reports whether the result carries a usable record
func (r MetadataResult) OK() bool { return r.Err == nil && r.Record != nil }

// Failed builds an error result for req
func Failed(req MetadataRequest, err error) MetadataResult {
	if err == nil {
		err = ErrNoRecord
	}
	return MetadataResult{RequestID: req.RequestID, TargetID: req.TargetID, Err: err}
}

// Succeeded builds a result carrying rec
func Succeeded(req MetadataRequest, rec pokemon.Record) MetadataResult {
	return MetadataResult{RequestID: req.RequestID, TargetID: req.TargetID, Record: &rec}
}

var (
	// ErrNoRecord is used when a source answers with neither a record nor an error.
	ErrNoRecord = errors.New("bridge: no record")
	// ErrTimeout marks a metadata wait that ran out.
	ErrTimeout = errors.New("bridge: metadata timeout")
)

// OutcomeKind names a notification sent out of the core
type OutcomeKind string

const (
	CaptureSucceeded OutcomeKind = "capture_succeeded"
	CaptureFailed    OutcomeKind = "capture_failed"
	ReturnToMenu     OutcomeKind = "return_to_menu"
)

// Outcome is a fire-and-forget notification.
type Outcome struct {
	Kind     OutcomeKind     `json:"kind"`
	TargetID int             `json:"targetId,omitempty"`
	Record   *pokemon.Record `json:"record,omitempty"`
	Capture  *capture.Result `json:"capture,omitempty"`
}

// Notifier receives outcomes. Implementations must not block.
type Notifier interface {
	Notify(Outcome)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Outcome)

func (f NotifierFunc) Notify(o Outcome) { f(o) }

// Fanout delivers each outcome to every non-nil notifier in order
type Fanout []Notifier

func (f Fanout) Notify(o Outcome) {
	for _, n := range f {
		if n != nil {
			n.Notify(o)
		}
	}
}

// Port is everything the orchestrator needs from the outside world.
type Port interface {
	// RequestMetadata starts a lookup and returns immediately.
	RequestMetadata(MetadataRequest)
	Notifier
}
