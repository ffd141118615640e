// Package throw implements the drag-and-release interaction for one throw.
//
// A Controller owns the ball for a single attempt. It walks
// Idle -> Aiming -> Released -> InFlight -> Hit|Missed and stays inert in a
// terminal state until Reset re-arms it. The caller feeds pointer samples
// and frame ticks; the controller never schedules anything on its own.
package throw

import (
	"time"

	"github.com/pokethrow/pokethrow-desktop/internal/physics"
	"github.com/pokethrow/pokethrow-desktop/internal/vmath"
)

// State of the interaction
type State string

const (
	StateIdle     State = "idle"
	StateAiming   State = "aiming"
	StateReleased State = "released"
	StateInFlight State = "in_flight"
	StateHit      State = "hit"
	StateMissed   State = "missed"
)

// Terminal reports whether the attempt has resolved
func (s State) Terminal() bool { return s == StateHit || s == StateMissed }

// Outcome of an attempt
type Outcome string

const (
	OutcomePending Outcome = "pending"
	OutcomeHit     Outcome = "hit"
	OutcomeMissed  Outcome = "missed"
)

// HitPoint selects where on the flight path accuracy is measured
type HitPoint string

const (
	// HitAtContact resolves on the first overlap and measures where the
	// ball entered the trigger. This is the default.
	HitAtContact HitPoint = "contact"
	// HitAtClosestApproach keeps the ball flying while the trigger volumes
	// overlap and measures at the point of the path nearest the center.
	HitAtClosestApproach HitPoint = "closest_approach"
)

// MissReason explains a Missed outcome
type MissReason string

const (
	MissTimeout     MissReason = "timeout"
	MissFloor       MissReason = "floor"
	MissOutOfBounds MissReason = "out_of_bounds"
)

// Config holds the interaction and flight limits.
type Config struct {
	MaxDragDistance float64 `json:"maxDragDistance"`
	ForceMultiplier float64 `json:"forceMultiplier"`
	MaxForce        float64 `json:"maxForce"`

	// HitRadius is how close a press must land to the ball to grab it.
	HitRadius  float64 `json:"hitRadius"`
	BallRadius float64 `json:"ballRadius"`
	BallMass   float64 `json:"ballMass"`
	// Spin is the visual angular velocity applied at launch, degrees per second.
	Spin float64 `json:"spin"`

	HitPoint      HitPoint      `json:"hitPoint"`
	FlightTimeout time.Duration `json:"flightTimeout"`
	FloorY        float64       `json:"floorY"`
	Viewport      vmath.Rect    `json:"viewport"`

	TrajectoryPoints int     `json:"trajectoryPoints"`
	TrajectoryStep   float64 `json:"trajectoryStep"`
}

// DefaultConfig returns the standard throw feel
func DefaultConfig() Config {
	return Config{
		MaxDragDistance:  3,
		ForceMultiplier:  10,
		MaxForce:         50,
		HitRadius:        0.6,
		BallRadius:       0.35,
		BallMass:         1,
		Spin:             360,
		HitPoint:         HitAtContact,
		FlightTimeout:    3 * time.Second,
		FloorY:           -6,
		Viewport:         vmath.Rect{Min: vmath.V(-9, -5.5), Max: vmath.V(9, 5.5)},
		TrajectoryPoints: 20,
		TrajectoryStep:   0.1,
	}
}

// Target is the creature's trigger volume.
type Target struct {
	Center vmath.Vec2 `json:"center"`
	Radius float64    `json:"radius"`
	// Extents are the half-size of the target bounds; accuracy normalizes by their length.
	Extents vmath.Vec2 `json:"extents"`
}

// NewTarget returns a circular target whose bounds are the enclosing square
func NewTarget(center vmath.Vec2, radius float64) Target {
	return Target{Center: center, Radius: radius, Extents: vmath.V(radius, radius)}
}

// Attempt is the record of one launch.
type Attempt struct {
	Force      float64    `json:"force"`
	Accuracy   float64    `json:"accuracy"`
	Outcome    Outcome    `json:"outcome"`
	MissReason MissReason `json:"missReason,omitempty"`
	Launch     vmath.Vec2 `json:"launch"`
	HitPoint   vmath.Vec2 `json:"hitPoint"`
	FlightTime float64    `json:"flightTime"`
}

// Accuracy is 1 at the center of the target and 0 at or beyond distance extent
func Accuracy(hit, center vmath.Vec2, extent float64) float64 {
	d := hit.Dist(center)
	if extent <= 0 {
		if d == 0 {
			return 1
		}
		return 0
	}
	return 1 - vmath.Clamp01(d/extent)
}

// Controller drives the ball for one attempt at a time.
type Controller struct {
	cfg    Config
	world  physics.World
	target Target
	spawn  vmath.Vec2
	ball   *physics.Body

	state      State
	pressPoint vmath.Vec2
	drag       vmath.Vec2
	force      float64
	flightTime time.Duration
	attempt    *Attempt

	contact bool
	closest vmath.Vec2
}

// NewController places a fresh ball at spawn aimed at target
func NewController(cfg Config, world physics.World, target Target, spawn vmath.Vec2) *Controller {
	c := &Controller{
		cfg:    cfg,
		world:  world,
		target: target,
		ball:   physics.NewBody(spawn, cfg.BallRadius, cfg.BallMass),
	}
	c.Reset(spawn)
	return c
}

// State returns the current interaction state
func (c *Controller) State() State { return c.state }

// Target returns the target this controller aims at
func (c *Controller) Target() Target { return c.target }

// Ball returns a copy of the projectile body
func (c *Controller) Ball() physics.Body { return *c.ball }

// Attempt returns the current attempt, or nil before a press is accepted
func (c *Controller) Attempt() *Attempt {
	if c.attempt == nil {
		return nil
	}
	a := *c.attempt
	return &a
}

// ForceSample returns the last normalized drag sample in [0, 1]
func (c *Controller) ForceSample() float64 { return c.force }

// Press grabs the ball if p is within the hit radius. Only accepted while Idle.
func (c *Controller) Press(p vmath.Vec2) bool {
	if c.state != StateIdle {
		return false
	}
	if p.Dist(c.ball.Position) > c.cfg.HitRadius {
		return false
	}
	c.state = StateAiming
	c.pressPoint = p
	c.drag = vmath.Vec2{}
	c.force = 0
	c.attempt = &Attempt{Outcome: OutcomePending}
	return true
}

// Drag updates the aim and returns the normalized force sample.
// ok is false outside Aiming.
func (c *Controller) Drag(p vmath.Vec2) (sample float64, ok bool) {
	if c.state != StateAiming {
		return 0, false
	}
	c.drag = c.pressPoint.Sub(p).ClampMagnitude(c.cfg.MaxDragDistance)
	c.ball.Place(c.spawn.Sub(c.drag))
	c.force = 0
	if c.cfg.MaxDragDistance > 0 {
		c.force = vmath.Clamp01(c.drag.Len() / c.cfg.MaxDragDistance)
	}
	return c.force, true
}

// Release launches the ball. The force uses the unclamped pull distance.
// Every release while Aiming is a throw, including a zero-length pull.
func (c *Controller) Release(p vmath.Vec2) (Attempt, bool) {
	if c.state != StateAiming {
		return Attempt{}, false
	}
	c.state = StateReleased

	pull := c.pressPoint.Sub(p)
	force := pull.Len() * c.cfg.ForceMultiplier
	if force > c.cfg.MaxForce {
		force = c.cfg.MaxForce
	}
	impulse := pull.Normalize().Scale(force)

	c.attempt.Force = force
	c.attempt.Launch = impulse
	c.ball.Launch(impulse, c.cfg.Spin)
	c.force = 0
	c.flightTime = 0
	c.contact = false
	c.state = StateInFlight
	return *c.attempt, true
}

// Tick advances the flight by dt and reports a resolved attempt once.
func (c *Controller) Tick(dt time.Duration) (Attempt, bool) {
	if c.state != StateInFlight {
		return Attempt{}, false
	}

	resolved := false
	used := c.world.Step(c.ball, dt.Seconds(), func(prev, cur vmath.Vec2) bool {
		if c.cfg.HitPoint == HitAtClosestApproach {
			resolved = c.visitClosest(prev, cur)
		} else {
			resolved = c.visitContact(prev, cur)
		}
		return resolved
	})
	if resolved {
		c.flightTime += time.Duration(used * float64(time.Second))
	} else {
		c.flightTime += dt
	}

	var miss MissReason
	switch {
	case c.flightTime > c.cfg.FlightTimeout:
		miss = MissTimeout
	case c.ball.Position.Y < c.cfg.FloorY:
		miss = MissFloor
	case !c.ball.Position.Finite() || !c.cfg.Viewport.Expand(c.cfg.BallRadius).Contains(c.ball.Position):
		miss = MissOutOfBounds
	}

	switch {
	case resolved, c.contact && miss != "":
		c.resolveHit(c.closest)
	case miss != "":
		c.resolveMiss(miss)
	default:
		return Attempt{}, false
	}
	return *c.attempt, true
}

func (c *Controller) reach() float64 { return c.cfg.BallRadius + c.target.Radius }

// visitContact resolves on the substep where the ball first touches the
// target, measured where the segment enters the trigger.
func (c *Controller) visitContact(prev, cur vmath.Vec2) bool {
	p, _, hit := physics.SegmentCircleEntry(prev, cur, c.target.Center, c.reach())
	if hit {
		c.contact = true
		c.closest = p
	}
	return hit
}

// visitClosest keeps flying through the trigger and resolves once the ball
// stops approaching the center or leaves the trigger.
func (c *Controller) visitClosest(prev, cur vmath.Vec2) bool {
	center := c.target.Center
	p, t, overlap := physics.SegmentCircleHit(prev, cur, center, c.reach())
	if !overlap {
		// left the trigger after touching it
		return c.contact
	}
	if !c.contact || p.Dist(center) < c.closest.Dist(center) {
		c.closest = p
	}
	c.contact = true
	// closest point behind cur means the ball is moving away from the center
	return t < 1
}

func (c *Controller) resolveHit(p vmath.Vec2) {
	c.attempt.Accuracy = Accuracy(p, c.target.Center, c.target.Extents.Len())
	c.attempt.HitPoint = p
	c.attempt.Outcome = OutcomeHit
	c.attempt.FlightTime = c.flightTime.Seconds()
	c.ball.Freeze()
	c.ball.Position = c.target.Center
	c.state = StateHit
}

func (c *Controller) resolveMiss(reason MissReason) {
	c.attempt.Accuracy = 0
	c.attempt.Outcome = OutcomeMissed
	c.attempt.MissReason = reason
	c.attempt.FlightTime = c.flightTime.Seconds()
	c.ball.Freeze()
	c.state = StateMissed
}

// Reset returns the ball to spawn and re-arms the controller. Safe from any
// state; calling it repeatedly has the same effect as calling it once.
func (c *Controller) Reset(spawn vmath.Vec2) {
	c.spawn = spawn
	c.ball.Freeze()
	c.ball.Place(spawn)
	c.state = StateIdle
	c.pressPoint = vmath.Vec2{}
	c.drag = vmath.Vec2{}
	c.force = 0
	c.flightTime = 0
	c.attempt = nil
	c.contact = false
	c.closest = vmath.Vec2{}
}
