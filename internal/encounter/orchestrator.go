package encounter

import (
	"errors"
	"time"

	"github.com/pokethrow/pokethrow-desktop/internal/bridge"
	"github.com/pokethrow/pokethrow-desktop/internal/capture"
	"github.com/pokethrow/pokethrow-desktop/internal/fairness"
	"github.com/pokethrow/pokethrow-desktop/internal/feedback"
	"github.com/pokethrow/pokethrow-desktop/internal/physics"
	"github.com/pokethrow/pokethrow-desktop/internal/pokemon"
	"github.com/pokethrow/pokethrow-desktop/internal/throw"
)

// slot holds the metadata answer for the live encounter. Once done it is
// never written again.
type slot struct {
	done   bool
	record *pokemon.Record
	err    error
}

type liveEncounter struct {
	serial   int
	target   throw.Target
	ctrl     *throw.Controller
	req      bridge.MetadataRequest
	meta     slot
	capture  *capture.Result
	attempts int
	shown    *pokemon.Record
}

// Orchestrator owns one encounter at a time. It is not safe for concurrent
// use; hosts call Advance from a single goroutine.
type Orchestrator struct {
	cfg  Config
	deps Deps

	phase     Phase
	clock     time.Duration
	timers    timers
	enc       *liveEncounter
	serial    int
	requestID uint64
	stopAfter bool

	lastFeedback FeedbackShown
	stats        Stats
	out          []Effect
}

// New validates cfg and returns an idle orchestrator
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Port == nil {
		return nil, errors.New("encounter: port is required")
	}
	if deps.Roller == nil {
		return nil, errors.New("encounter: roller is required")
	}
	if deps.Printer == nil {
		deps.Printer = feedback.English()
	}
	if deps.World.MaxSubstep <= 0 {
		deps.World = physics.NewWorld()
	}
	return &Orchestrator{cfg: cfg, deps: deps, phase: PhaseIdle}, nil
}

// Phase returns the current phase
func (o *Orchestrator) Phase() Phase { return o.phase }

// Stats returns the lifetime counters
func (o *Orchestrator) Stats() Stats { return o.stats }

// Config returns the configuration the orchestrator was built with
func (o *Orchestrator) Config() Config { return o.cfg }

// Advance moves time forward by dt, applies events in order, steps the
// throw in flight and fires every delay that came due. It returns the
// effects produced, in order.
func (o *Orchestrator) Advance(dt time.Duration, events ...Event) []Effect {
	o.out = nil
	if dt > 0 {
		o.clock += dt
	}
	for _, ev := range events {
		o.handle(ev)
	}
	if dt > 0 && o.phase == PhaseAwaitingThrow && o.enc != nil {
		o.tickThrow(dt)
	}
	for {
		t, ok := o.timers.popDue(o.clock)
		if !ok {
			break
		}
		t.fire()
	}
	out := o.out
	o.out = nil
	return out
}

func (o *Orchestrator) handle(ev Event) {
	switch ev := ev.(type) {
	case Start:
		if o.phase != PhaseIdle {
			return
		}
		o.stopAfter = false
		o.spawn()
	case Stop:
		if o.phase == PhaseIdle {
			return
		}
		if ev.AfterEncounter && o.enc != nil && o.enc.capture != nil {
			o.stopAfter = true
			return
		}
		o.teardown()
		o.setPhase(PhaseIdle)
	case ReturnToMenu:
		o.teardown()
		o.setPhase(PhaseIdle)
		o.deps.Port.Notify(bridge.Outcome{Kind: bridge.ReturnToMenu})
	case PointerDown:
		if ctrl := o.throwInput(); ctrl != nil && ctrl.Press(ev.Pos) {
			o.emit(MeterChanged{Meter: throw.MeterFor(0)})
		}
	case PointerMove:
		if ctrl := o.throwInput(); ctrl != nil {
			if sample, ok := ctrl.Drag(ev.Pos); ok {
				o.emit(MeterChanged{Meter: throw.MeterFor(sample)})
			}
		}
	case PointerUp:
		if ctrl := o.throwInput(); ctrl != nil {
			if _, ok := ctrl.Release(ev.Pos); ok {
				o.enc.attempts++
				o.stats.Throws++
				o.emit(SoundPlayed{Cue: CueThrow})
				o.emit(MeterChanged{})
			}
		}
	case Metadata:
		o.acceptMetadata(ev.Result)
	}
}

func (o *Orchestrator) throwInput() *throw.Controller {
	if o.phase != PhaseAwaitingThrow || o.enc == nil {
		return nil
	}
	return o.enc.ctrl
}

func (o *Orchestrator) spawn() {
	o.setPhase(PhaseSpawning)

	o.serial++
	o.requestID++
	id := fairness.IntRange(o.deps.Roller, o.cfg.MinTargetID, o.cfg.MaxTargetID)
	target := throw.NewTarget(o.cfg.TargetCenter, o.cfg.TargetRadius)
	o.enc = &liveEncounter{
		serial: o.serial,
		target: target,
		ctrl:   throw.NewController(o.cfg.Throw, o.deps.World, target, o.cfg.Spawn),
		req:    bridge.MetadataRequest{RequestID: o.requestID, TargetID: id},
	}
	o.stats.Encounters++
	o.emit(Spawned{Serial: o.serial, TargetID: id, Target: target})

	// request before the throw becomes available
	o.deps.Port.RequestMetadata(o.enc.req)

	o.say(feedback.KeyDragAndRelease)
	o.setPhase(PhaseAwaitingThrow)
}

func (o *Orchestrator) tickThrow(dt time.Duration) {
	a, done := o.enc.ctrl.Tick(dt)
	if !done {
		return
	}
	o.emit(AttemptResolved{Attempt: a})
	if a.Outcome == throw.OutcomeMissed {
		o.onMiss()
		return
	}
	o.onHit(a)
}

func (o *Orchestrator) onMiss() {
	o.stats.Misses++
	o.say(feedback.KeyMissed)
	if o.cfg.MissPolicy == MissAdvance {
		o.after(timerRetry, o.cfg.RetryDelay, o.beginReset)
		return
	}
	o.after(timerRetry, o.cfg.RetryDelay, o.rearm)
}

func (o *Orchestrator) onHit(a throw.Attempt) {
	o.stats.Hits++
	o.emit(SoundPlayed{Cue: CueHit})

	res := o.cfg.Capture.Evaluate(a.Force, a.Accuracy, o.deps.Roller.Float64())
	o.emit(CaptureRolled{Result: res})

	if !res.Success {
		o.stats.Failures++
		o.emit(SoundPlayed{Cue: CueFail})
		o.say(feedback.KeyCaptureFailed)
		o.deps.Port.Notify(bridge.Outcome{
			Kind:     bridge.CaptureFailed,
			TargetID: o.enc.req.TargetID,
			Capture:  &res,
		})
		o.after(timerRetry, o.cfg.RetryDelay, o.rearm)
		return
	}

	o.stats.Captures++
	o.enc.capture = &res
	o.emit(SoundPlayed{Cue: CueSuccess})
	o.say(feedback.KeyCapturedLoading)
	o.setPhase(PhaseAwaitingMetadata)

	if o.enc.meta.done {
		o.resolveMetadata()
		return
	}
	enc := o.enc
	o.after(timerMetadata, o.cfg.MetadataTimeout, func() {
		enc.meta = slot{done: true, err: bridge.ErrTimeout}
		o.resolveMetadata()
	})
}

// rearm puts the ball back for another attempt at the same target
func (o *Orchestrator) rearm() {
	if o.enc == nil {
		return
	}
	o.enc.ctrl.Reset(o.cfg.Spawn)
	o.say(feedback.KeyTryAgain)
}

func (o *Orchestrator) acceptMetadata(r bridge.MetadataResult) {
	enc := o.enc
	if enc == nil || r.RequestID != enc.req.RequestID || r.TargetID != enc.req.TargetID {
		o.stats.StaleResults++
		return
	}
	if enc.meta.done {
		return
	}

	switch {
	case r.Err != nil:
		enc.meta = slot{done: true, err: r.Err}
	case r.Record == nil:
		enc.meta = slot{done: true, err: bridge.ErrNoRecord}
	default:
		rec := *r.Record
		if err := rec.Validate(); err != nil {
			enc.meta = slot{done: true, err: err}
		} else {
			enc.meta = slot{done: true, record: &rec}
		}
	}

	if o.phase == PhaseAwaitingMetadata {
		o.resolveMetadata()
	}
}

// resolveMetadata joins a successful capture with the metadata slot.
func (o *Orchestrator) resolveMetadata() {
	o.timers.cancel(timerMetadata)
	enc := o.enc

	if rec := enc.meta.record; rec != nil {
		enc.shown = rec
		o.setPhase(PhaseDisplaying)
		o.emit(RecordShown{Record: *rec})
		o.say(feedback.KeyCapturedName, rec.DisplayName())
		o.deps.Port.Notify(bridge.Outcome{
			Kind:     bridge.CaptureSucceeded,
			TargetID: enc.req.TargetID,
			Record:   rec,
			Capture:  enc.capture,
		})
		o.after(timerDwell, o.cfg.DisplayDwell, o.beginReset)
		return
	}

	o.stats.MetadataErrors++
	reason := "unknown"
	if enc.meta.err != nil {
		reason = enc.meta.err.Error()
	}
	o.emit(MetadataFailed{Reason: reason})
	o.say(feedback.KeyMetadataError)
	o.setPhase(PhaseResetting)
	o.after(timerDwell, o.cfg.ErrorDwell, o.finishReset)
}

func (o *Orchestrator) beginReset() {
	o.setPhase(PhaseResetting)
	o.finishReset()
}

func (o *Orchestrator) finishReset() {
	o.teardown()
	if o.stopAfter {
		o.stopAfter = false
		o.setPhase(PhaseIdle)
		o.say(feedback.KeyPlayAgain)
		return
	}
	o.spawn()
}

// teardown drops the live encounter. Pending delays die with it and any
// metadata still in flight for it becomes stale.
func (o *Orchestrator) teardown() {
	o.timers.clear()
	o.enc = nil
}

func (o *Orchestrator) after(name timerName, d time.Duration, fire func()) {
	o.timers.schedule(name, o.clock+d, fire)
}

func (o *Orchestrator) setPhase(p Phase) {
	if p == o.phase {
		return
	}
	from := o.phase
	o.phase = p
	o.emit(PhaseChanged{From: from, To: p})
}

func (o *Orchestrator) say(key feedback.Key, args ...any) {
	fb := FeedbackShown{Key: key, Text: o.deps.Printer.Text(key, args...)}
	o.lastFeedback = fb
	o.emit(fb)
}

func (o *Orchestrator) emit(e Effect) { o.out = append(o.out, e) }

// Snapshot is a render-ready view of the whole scene.
type Snapshot struct {
	Phase    Phase           `json:"phase"`
	Serial   int             `json:"serial"`
	TargetID int             `json:"targetId,omitempty"`
	Attempts int             `json:"attempts"`
	Throw    *throw.Snapshot `json:"throw,omitempty"`
	Record   *pokemon.Record `json:"record,omitempty"`
	Capture  *capture.Result `json:"capture,omitempty"`
	Feedback FeedbackShown   `json:"feedback"`
	Timers   []TimerView     `json:"timers,omitempty"`
	Clock    time.Duration   `json:"clock"`
	Stats    Stats           `json:"stats"`
}

// Snapshot captures the orchestrator for rendering
func (o *Orchestrator) Snapshot() Snapshot {
	s := Snapshot{
		Phase:    o.phase,
		Feedback: o.lastFeedback,
		Timers:   o.timers.view(o.clock),
		Clock:    o.clock,
		Stats:    o.stats,
	}
	if enc := o.enc; enc != nil {
		ts := enc.ctrl.Snapshot()
		s.Serial = enc.serial
		s.TargetID = enc.req.TargetID
		s.Attempts = enc.attempts
		s.Throw = &ts
		s.Record = enc.shown
		s.Capture = enc.capture
	}
	return s
}

// LiveRequest returns the metadata request of the current encounter
func (o *Orchestrator) LiveRequest() (bridge.MetadataRequest, bool) {
	if o.enc == nil {
		return bridge.MetadataRequest{}, false
	}
	return o.enc.req, true
}
