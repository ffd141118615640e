// Package encounter runs the session-level game loop: spawn a target, let the
// player throw until a capture succeeds, show the creature, start over.
//
// The Orchestrator is a plain state machine advanced by the host with
// Advance(dt, events...). It never starts goroutines or reads the clock;
// every delay is measured by accumulating dt. Side effects that leave the
// core go through the bridge.Port in Deps; everything a host should render
// or play comes back as Effect values.
package encounter

import (
	"fmt"
	"time"

	"github.com/pokethrow/pokethrow-desktop/internal/bridge"
	"github.com/pokethrow/pokethrow-desktop/internal/capture"
	"github.com/pokethrow/pokethrow-desktop/internal/fairness"
	"github.com/pokethrow/pokethrow-desktop/internal/feedback"
	"github.com/pokethrow/pokethrow-desktop/internal/physics"
	"github.com/pokethrow/pokethrow-desktop/internal/pokemon"
	"github.com/pokethrow/pokethrow-desktop/internal/throw"
	"github.com/pokethrow/pokethrow-desktop/internal/vmath"
)

// Phase of the encounter loop
type Phase string

const (
	PhaseIdle             Phase = "idle"
	PhaseSpawning         Phase = "spawning"
	PhaseAwaitingThrow    Phase = "awaiting_throw"
	PhaseAwaitingMetadata Phase = "awaiting_metadata"
	PhaseDisplaying       Phase = "displaying"
	PhaseResetting        Phase = "resetting"
)

// MissPolicy decides what follows a missed throw
type MissPolicy string

const (
	// MissRetry keeps the same target and re-arms the throw.
	MissRetry MissPolicy = "retry"
	// MissAdvance moves on to a new target.
	MissAdvance MissPolicy = "advance"
)

// Config holds the encounter timings and scene layout.
type Config struct {
	MinTargetID int `json:"minTargetId"`
	MaxTargetID int `json:"maxTargetId"`

	Spawn        vmath.Vec2 `json:"spawn"`
	TargetCenter vmath.Vec2 `json:"targetCenter"`
	TargetRadius float64    `json:"targetRadius"`

	RetryDelay      time.Duration `json:"retryDelay"`
	MetadataTimeout time.Duration `json:"metadataTimeout"`
	DisplayDwell    time.Duration `json:"displayDwell"`
	ErrorDwell      time.Duration `json:"errorDwell"`
	MissPolicy      MissPolicy    `json:"missPolicy"`

	Throw   throw.Config   `json:"throw"`
	Capture capture.Tuning `json:"capture"`
}

// DefaultConfig returns the standard scene: first-generation ids, ball at
// the bottom, target in the upper half.
func DefaultConfig() Config {
	return Config{
		MinTargetID:     1,
		MaxTargetID:     150,
		Spawn:           vmath.V(0, -3.5),
		TargetCenter:    vmath.V(0, 2.5),
		TargetRadius:    1,
		RetryDelay:      2 * time.Second,
		MetadataTimeout: 5 * time.Second,
		DisplayDwell:    3 * time.Second,
		ErrorDwell:      3 * time.Second,
		MissPolicy:      MissRetry,
		Throw:           throw.DefaultConfig(),
		Capture:         capture.DefaultTuning(),
	}
}

// Validate checks the config for values the loop cannot run with
func (c Config) Validate() error {
	switch {
	case c.MinTargetID < 1:
		return fmt.Errorf("encounter: min target id must be >= 1, got %d", c.MinTargetID)
	case c.MaxTargetID < c.MinTargetID:
		return fmt.Errorf("encounter: target id range [%d, %d] is empty", c.MinTargetID, c.MaxTargetID)
	case c.TargetRadius <= 0:
		return fmt.Errorf("encounter: target radius must be positive")
	case c.RetryDelay < 0, c.MetadataTimeout <= 0, c.DisplayDwell < 0, c.ErrorDwell < 0:
		return fmt.Errorf("encounter: negative or zero delay")
	}
	switch c.MissPolicy {
	case MissRetry, MissAdvance:
	default:
		return fmt.Errorf("encounter: unknown miss policy %q", c.MissPolicy)
	}
	return nil
}

// Deps is the context the orchestrator runs in.
type Deps struct {
	Port bridge.Port
	// Roller draws target ids and capture rolls.
	Roller  fairness.Source
	Printer *feedback.Printer
	World   physics.World
}

// Event is an input to Advance.
type Event interface{ isEvent() }

type (
	// Start begins play from Idle. Ignored while playing.
	Start struct{}
	// Stop ends play. With AfterEncounter set, a capture already being shown
	// finishes first and the loop goes idle instead of spawning again.
	Stop struct{ AfterEncounter bool }
	// ReturnToMenu stops at once and notifies the bridge.
	ReturnToMenu struct{}

	PointerDown struct{ Pos vmath.Vec2 }
	PointerMove struct{ Pos vmath.Vec2 }
	PointerUp   struct{ Pos vmath.Vec2 }

	// Metadata delivers a bridge result.
	Metadata struct{ Result bridge.MetadataResult }
)

func (Start) isEvent()        {}
func (Stop) isEvent()         {}
func (ReturnToMenu) isEvent() {}
func (PointerDown) isEvent()  {}
func (PointerMove) isEvent()  {}
func (PointerUp) isEvent()    {}
func (Metadata) isEvent()     {}

// Cue names a sound to play
type Cue string

const (
	CueThrow   Cue = "throw"
	CueHit     Cue = "hit"
	CueSuccess Cue = "success"
	CueFail    Cue = "fail"
)

// EffectKind tags an Effect for hosts that serialize them
type EffectKind string

const (
	KindPhase     EffectKind = "phase"
	KindSpawned   EffectKind = "spawned"
	KindFeedback  EffectKind = "feedback"
	KindSound     EffectKind = "sound"
	KindMeter     EffectKind = "meter"
	KindAttempt   EffectKind = "attempt"
	KindCapture   EffectKind = "capture"
	KindRecord    EffectKind = "record"
	KindMetaError EffectKind = "metadata_error"
)

// Effect is an output of Advance.
type Effect interface{ Kind() EffectKind }

// PhaseChanged is emitted on every phase transition
type PhaseChanged struct {
	From Phase `json:"from"`
	To   Phase `json:"to"`
}

// Spawned announces a new encounter
type Spawned struct {
	Serial   int          `json:"serial"`
	TargetID int          `json:"targetId"`
	Target   throw.Target `json:"target"`
}

// FeedbackShown replaces the player-facing message
type FeedbackShown struct {
	Key  feedback.Key `json:"key"`
	Text string       `json:"text"`
}

// SoundPlayed asks the host to play a cue
type SoundPlayed struct {
	Cue Cue `json:"cue"`
}

// MeterChanged updates the force meter. A zero Meter hides it.
type MeterChanged struct {
	Meter throw.Meter `json:"meter"`
}

// AttemptResolved reports a hit or miss
type AttemptResolved struct {
	Attempt throw.Attempt `json:"attempt"`
}

// CaptureRolled reports the capture evaluation of a hit
type CaptureRolled struct {
	Result capture.Result `json:"result"`
}

// RecordShown puts a captured creature on screen
type RecordShown struct {
	Record pokemon.Record `json:"record"`
}

// MetadataFailed reports that a capture's record could not be shown
type MetadataFailed struct {
	Reason string `json:"reason"`
}

func (PhaseChanged) Kind() EffectKind    { return KindPhase }
func (Spawned) Kind() EffectKind         { return KindSpawned }
func (FeedbackShown) Kind() EffectKind   { return KindFeedback }
func (SoundPlayed) Kind() EffectKind     { return KindSound }
func (MeterChanged) Kind() EffectKind    { return KindMeter }
func (AttemptResolved) Kind() EffectKind { return KindAttempt }
func (CaptureRolled) Kind() EffectKind   { return KindCapture }
func (RecordShown) Kind() EffectKind     { return KindRecord }
func (MetadataFailed) Kind() EffectKind  { return KindMetaError }

// Stats counts what happened over the orchestrator's lifetime.
type Stats struct {
	Encounters     int `json:"encounters"`
	Throws         int `json:"throws"`
	Hits           int `json:"hits"`
	Misses         int `json:"misses"`
	Captures       int `json:"captures"`
	Failures       int `json:"failures"`
	MetadataErrors int `json:"metadataErrors"`
	StaleResults   int `json:"staleResults"`
}
