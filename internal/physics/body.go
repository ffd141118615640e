// Package physics integrates the projectile in flight.
//
// It is a fixed-substep semi-implicit Euler integrator with a single gravity
// vector, enough for a thrown ball and a trajectory preview that agree.
package physics

import (
	"math"

	"github.com/pokethrow/pokethrow-desktop/internal/vmath"
)

// DefaultGravity matches a 1g world in meters per second squared
var DefaultGravity = vmath.V(0, -9.81)

// Body is a point mass with a collision radius.
type Body struct {
	Position        vmath.Vec2 `json:"position"`
	Velocity        vmath.Vec2 `json:"velocity"`
	Mass            float64    `json:"mass"`
	Radius          float64    `json:"radius"`
	GravityScale    float64    `json:"gravityScale"`
	Angle           float64    `json:"angle"`
	AngularVelocity float64    `json:"angularVelocity"`

	// Kinematic bodies ignore gravity and velocity until launched.
	Kinematic bool `json:"kinematic"`
}

// NewBody creates a kinematic body at rest
func NewBody(pos vmath.Vec2, radius, mass float64) *Body {
	if mass <= 0 {
		mass = 1
	}
	return &Body{Position: pos, Radius: radius, Mass: mass, Kinematic: true}
}

// Place teleports the body and clears its motion
func (b *Body) Place(p vmath.Vec2) {
	b.Position = p
	b.Velocity = vmath.Vec2{}
	b.AngularVelocity = 0
	b.Angle = 0
}

// Launch switches the body to dynamic and applies an instantaneous impulse
func (b *Body) Launch(impulse vmath.Vec2, spin float64) {
	b.Kinematic = false
	b.GravityScale = 1
	b.Velocity = b.Velocity.Add(impulse.Scale(1 / b.Mass))
	b.AngularVelocity = spin
}

// Freeze stops all motion and makes the body kinematic again
func (b *Body) Freeze() {
	b.Velocity = vmath.Vec2{}
	b.AngularVelocity = 0
	b.Kinematic = true
	b.GravityScale = 0
}

// World holds global simulation parameters.
type World struct {
	Gravity vmath.Vec2
	// MaxSubstep bounds the integration step in seconds.
	MaxSubstep float64
}

// NewWorld returns a world with standard gravity and 240Hz substeps
func NewWorld() World {
	return World{Gravity: DefaultGravity, MaxSubstep: 1.0 / 240}
}

// Step advances b by dt seconds. visit is called after every substep with the
// previous and current positions; returning true stops integration early and
// Step returns the simulated time actually consumed.
func (w World) Step(b *Body, dt float64, visit func(prev, cur vmath.Vec2) bool) float64 {
	if b.Kinematic || dt <= 0 {
		return 0
	}
	sub := w.MaxSubstep
	if sub <= 0 {
		sub = dt
	}
	n := int(math.Ceil(dt / sub))
	if n < 1 {
		n = 1
	}
	h := dt / float64(n)
	for i := 0; i < n; i++ {
		prev := b.Position
		b.Velocity = b.Velocity.Add(w.Gravity.Scale(b.GravityScale * h))
		b.Position = b.Position.Add(b.Velocity.Scale(h))
		b.Angle += b.AngularVelocity * h
		if visit != nil && visit(prev, b.Position) {
			return h * float64(i+1)
		}
	}
	return dt
}

// Trajectory predicts n positions starting at start with the given launch
// velocity, sampled every step seconds.
func Trajectory(start, velocity, gravity vmath.Vec2, n int, step float64) []vmath.Vec2 {
	if n <= 0 {
		return nil
	}
	points := make([]vmath.Vec2, n)
	pos, vel := start, velocity
	for i := 0; i < n; i++ {
		points[i] = pos
		vel = vel.Add(gravity.Scale(step))
		pos = pos.Add(vel.Scale(step))
	}
	return points
}

// SegmentCircleHit reports whether the segment a->b passes within r of c.
// It returns the closest point on the segment and its parameter t in [0, 1].
func SegmentCircleHit(a, b, c vmath.Vec2, r float64) (p vmath.Vec2, t float64, hit bool) {
	ab := b.Sub(a)
	if l := ab.LenSq(); l > 0 {
		t = vmath.Clamp01(c.Sub(a).Dot(ab) / l)
	}
	if t == 1 {
		p = b
	} else {
		p = a.Add(ab.Scale(t))
	}
	return p, t, p.Dist(c) <= r
}

// SegmentCircleEntry reports where the segment a->b first comes within r of
// c. A segment starting inside the circle enters at a.
func SegmentCircleEntry(a, b, c vmath.Vec2, r float64) (p vmath.Vec2, t float64, hit bool) {
	f := a.Sub(c)
	k := f.LenSq() - r*r
	if k <= 0 {
		return a, 0, true
	}
	d := b.Sub(a)
	qa := d.LenSq()
	if qa == 0 {
		return vmath.Vec2{}, 0, false
	}
	qb := 2 * f.Dot(d)
	disc := qb*qb - 4*qa*k
	if disc < 0 {
		return vmath.Vec2{}, 0, false
	}
	t = (-qb - math.Sqrt(disc)) / (2 * qa)
	if t < 0 || t > 1 {
		return vmath.Vec2{}, 0, false
	}
	return a.Add(d.Scale(t)), t, true
}
