package autoplay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pokethrow/pokethrow-desktop/internal/bridge"
	"github.com/pokethrow/pokethrow-desktop/internal/capture"
	"github.com/pokethrow/pokethrow-desktop/internal/encounter"
	"github.com/pokethrow/pokethrow-desktop/internal/fairness"
	"github.com/pokethrow/pokethrow-desktop/internal/physics"
	"github.com/pokethrow/pokethrow-desktop/internal/pokemon"
	"github.com/pokethrow/pokethrow-desktop/internal/throw"
	"github.com/pokethrow/pokethrow-desktop/internal/vmath"
)

const (
	DefaultEncounters = 10
	DefaultMaxThrows  = 10
	DefaultFrame      = time.Second / 60

	// frames an encounter may take before the run is considered stuck
	framesPerEncounter = 20_000
)

// Options configure a run.
type Options struct {
	Encounters int `json:"encounters"`
	// MaxThrows abandons an encounter after this many throws at one target.
	MaxThrows   int           `json:"maxThrows"`
	Frame       time.Duration `json:"frame"`
	CallTimeout time.Duration `json:"callTimeout"`

	ServerSeed string `json:"-"`
	ClientSeed string `json:"clientSeed"`

	Config encounter.Config `json:"-"`
	// Fetcher resolves metadata; nil fills in a placeholder record.
	Fetcher bridge.Fetcher `json:"-"`
	// Notifier receives capture outcomes, e.g. a history recorder.
	Notifier bridge.Notifier `json:"-"`
}

func (o Options) withDefaults() Options {
	if o.Encounters <= 0 {
		o.Encounters = DefaultEncounters
	}
	if o.MaxThrows <= 0 {
		o.MaxThrows = DefaultMaxThrows
	}
	if o.Frame <= 0 {
		o.Frame = DefaultFrame
	}
	if o.Config.MaxTargetID == 0 {
		o.Config = encounter.DefaultConfig()
	}
	return o
}

// AimContext is what aim(ctx) sees.
type AimContext struct {
	Encounter int
	TargetID  int
	Attempt   int
	Ball      vmath.Vec2
	Target    throw.Target
	Gravity   vmath.Vec2
	Throw     throw.Config
	Last      *ThrowRecord
	Stats     encounter.Stats
}

func vec(v vmath.Vec2) map[string]any { return map[string]any{"x": v.X, "y": v.Y} }

func (c AimContext) object() map[string]any {
	obj := map[string]any{
		"encounter":       c.Encounter,
		"targetId":        c.TargetID,
		"attempt":         c.Attempt,
		"ball":            vec(c.Ball),
		"target":          map[string]any{"x": c.Target.Center.X, "y": c.Target.Center.Y, "radius": c.Target.Radius},
		"gravity":         vec(c.Gravity),
		"maxDrag":         c.Throw.MaxDragDistance,
		"forceMultiplier": c.Throw.ForceMultiplier,
		"maxForce":        c.Throw.MaxForce,
		"stats": map[string]any{
			"throws":   c.Stats.Throws,
			"hits":     c.Stats.Hits,
			"misses":   c.Stats.Misses,
			"captures": c.Stats.Captures,
			"failures": c.Stats.Failures,
		},
		"last": nil,
	}
	if l := c.Last; l != nil {
		obj["last"] = map[string]any{
			"outcome":    string(l.Outcome),
			"missReason": string(l.MissReason),
			"force":      l.Force,
			"accuracy":   l.Accuracy,
			"captured":   l.Captured,
			"grade":      string(l.Grade),
			"rate":       l.Rate,
			"pull":       vec(l.Pull),
		}
	}
	return obj
}

// ThrowRecord is one scripted throw and what came of it.
type ThrowRecord struct {
	Encounter  int              `json:"encounter"`
	TargetID   int              `json:"targetId"`
	Pull       vmath.Vec2       `json:"pull"`
	Outcome    throw.Outcome    `json:"outcome"`
	MissReason throw.MissReason `json:"missReason,omitempty"`
	Force      float64          `json:"force"`
	Accuracy   float64          `json:"accuracy"`
	Captured   bool             `json:"captured"`
	Grade      capture.Grade    `json:"grade,omitempty"`
	Rate       float64          `json:"rate,omitempty"`
}

// Report summarizes a run.
type Report struct {
	Encounters      int                 `json:"encounters"`
	Abandoned       int                 `json:"abandoned"`
	Throws          int                 `json:"throws"`
	Hits            int                 `json:"hits"`
	Misses          int                 `json:"misses"`
	Captures        int                 `json:"captures"`
	Failures        int                 `json:"failures"`
	MetadataErrors  int                 `json:"metadataErrors"`
	CaptureRate     float64             `json:"captureRate"`
	StoppedByScript bool                `json:"stoppedByScript,omitempty"`
	SimTime         time.Duration       `json:"simTimeNs"`
	Seeds           fairness.Commitment `json:"seeds"`
	History         []ThrowRecord       `json:"history"`
	Logs            []LogEntry          `json:"logs"`
}

// instantPort answers metadata on the next frame and forwards outcomes.
type instantPort struct {
	pending  []bridge.MetadataRequest
	notifier bridge.Notifier
}

func (p *instantPort) RequestMetadata(r bridge.MetadataRequest) { p.pending = append(p.pending, r) }

func (p *instantPort) Notify(o bridge.Outcome) {
	if p.notifier != nil {
		p.notifier.Notify(o)
	}
}

func placeholder(id int) pokemon.Record {
	return pokemon.Record{
		ID:    id,
		Name:  fmt.Sprintf("pokemon-%d", id),
		Image: fmt.Sprintf("placeholder://pokemon/%d.png", id),
		Types: []string{"unknown"},
	}
}

// Runner plays encounters with a loaded strategy.
type Runner struct {
	vm   *VM
	opts Options
}

// NewRunner loads source and checks that it defines aim
func NewRunner(ctx context.Context, source string, opts Options) (*Runner, error) {
	opts = opts.withDefaults()
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("autoplay: %w", err)
	}
	if strings.TrimSpace(opts.ServerSeed) == "" {
		seed, err := fairness.NewServerSeed()
		if err != nil {
			return nil, fmt.Errorf("autoplay: %w", err)
		}
		opts.ServerSeed = seed
	}
	vm := NewVM(opts.CallTimeout)
	if err := vm.Load(ctx, source); err != nil {
		return nil, err
	}
	return &Runner{vm: vm, opts: opts}, nil
}

// Logs returns what the script has logged so far
func (r *Runner) Logs() []LogEntry { return r.vm.Logs() }

// Run plays until Encounters encounters have finished, the script calls
// stop(), or ctx ends. A script error ends the run and is returned with the
// report so far.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	opts := r.opts
	roller, err := fairness.NewRoller(opts.ServerSeed, opts.ClientSeed, 0)
	if err != nil {
		return nil, fmt.Errorf("autoplay: %w", err)
	}
	// Math.random gets its own stream so scripts replay with the seeds
	scriptRand := fairness.NewByteGenerator(opts.ServerSeed, roller.Commitment().ClientSeed+":script", 0, 0)
	r.vm.SetRandSource(scriptRand.NextFloat)

	port := &instantPort{notifier: opts.Notifier}
	world := physics.NewWorld()
	orch, err := encounter.New(opts.Config, encounter.Deps{Port: port, Roller: roller, World: world})
	if err != nil {
		return nil, fmt.Errorf("autoplay: %w", err)
	}

	p := &play{
		report:    &Report{Seeds: roller.Commitment()},
		maxFrames: opts.Encounters * framesPerEncounter,
	}
	p.observe(orch.Advance(0, encounter.Start{}))

	var runErr error
	for frames := 0; ; frames++ {
		if err := ctx.Err(); err != nil {
			runErr = fmt.Errorf("autoplay: run: %w", err)
			break
		}
		if frames >= p.maxFrames {
			runErr = fmt.Errorf("autoplay: run: no progress after %d frames", frames)
			break
		}
		if r.vm.StopRequested() {
			p.report.StoppedByScript = true
			break
		}
		snap := orch.Snapshot()
		if snap.Phase == encounter.PhaseIdle || snap.Serial > opts.Encounters {
			break
		}

		var events []encounter.Event
		for _, req := range port.pending {
			events = append(events, encounter.Metadata{Result: r.resolve(ctx, req)})
		}
		port.pending = port.pending[:0]

		if snap.Phase == encounter.PhaseAwaitingThrow && snap.Throw != nil && snap.Throw.State == throw.StateIdle {
			if snap.Attempts >= opts.MaxThrows {
				p.report.Abandoned++
				events = append(events, encounter.ReturnToMenu{}, encounter.Start{})
			} else {
				pull, err := r.vm.Aim(ctx, AimContext{
					Encounter: snap.Serial,
					TargetID:  snap.TargetID,
					Attempt:   snap.Attempts,
					Ball:      snap.Throw.Ball,
					Target:    snap.Throw.Target,
					Gravity:   world.Gravity,
					Throw:     opts.Config.Throw,
					Last:      p.last(),
					Stats:     orch.Stats(),
				})
				if err != nil {
					runErr = err
					break
				}
				p.aim(snap, pull)
				release := snap.Throw.Ball.Sub(pull)
				events = append(events,
					encounter.PointerDown{Pos: snap.Throw.Ball},
					encounter.PointerMove{Pos: release},
					encounter.PointerUp{Pos: release},
				)
			}
		}

		p.observe(orch.Advance(opts.Frame, events...))
		p.report.SimTime += opts.Frame
	}
	orch.Advance(0, encounter.Stop{})

	rep := p.report
	if rep.Encounters > 0 {
		rep.CaptureRate = float64(rep.Captures) / float64(rep.Encounters)
	}
	rep.Logs = r.vm.Logs()
	return rep, runErr
}

func (r *Runner) resolve(ctx context.Context, req bridge.MetadataRequest) bridge.MetadataResult {
	if r.opts.Fetcher == nil {
		return bridge.Succeeded(req, placeholder(req.TargetID))
	}
	rec, err := r.opts.Fetcher.Fetch(ctx, req.TargetID)
	if err != nil {
		return bridge.Failed(req, err)
	}
	return bridge.Succeeded(req, rec)
}

// play accumulates the report from the effects stream.
type play struct {
	report    *Report
	maxFrames int
	pending   *ThrowRecord
}

func (p *play) last() *ThrowRecord {
	h := p.report.History
	if len(h) == 0 {
		return nil
	}
	l := h[len(h)-1]
	return &l
}

func (p *play) aim(snap encounter.Snapshot, pull vmath.Vec2) {
	p.pending = &ThrowRecord{Encounter: snap.Serial, TargetID: snap.TargetID, Pull: pull}
}

func (p *play) observe(effects []encounter.Effect) {
	rep := p.report
	for _, e := range effects {
		switch e := e.(type) {
		case encounter.Spawned:
			if e.Serial > 1 {
				rep.Encounters++
			}
		case encounter.AttemptResolved:
			rep.Throws++
			rec := ThrowRecord{}
			if p.pending != nil {
				rec = *p.pending
				p.pending = nil
			}
			rec.Outcome = e.Attempt.Outcome
			rec.MissReason = e.Attempt.MissReason
			rec.Force = e.Attempt.Force
			rec.Accuracy = e.Attempt.Accuracy
			if rec.Outcome == throw.OutcomeHit {
				rep.Hits++
			} else {
				rep.Misses++
			}
			rep.History = append(rep.History, rec)
		case encounter.CaptureRolled:
			if n := len(rep.History); n > 0 {
				last := &rep.History[n-1]
				last.Captured = e.Result.Success
				last.Grade = e.Result.Grade
				last.Rate = e.Result.Rate
			}
			if e.Result.Success {
				rep.Captures++
			} else {
				rep.Failures++
			}
		case encounter.MetadataFailed:
			rep.MetadataErrors++
		}
	}
}
