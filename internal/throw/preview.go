package throw

import (
	"math"

	"github.com/pokethrow/pokethrow-desktop/internal/physics"
	"github.com/pokethrow/pokethrow-desktop/internal/vmath"
)

// ForceTier buckets the force meter for display
type ForceTier string

const (
	TierWeak   ForceTier = "weak"
	TierMedium ForceTier = "medium"
	TierStrong ForceTier = "strong"
)

// Meter is what a force bar shows for one sample.
type Meter struct {
	Sample  float64   `json:"sample"`
	Percent int       `json:"percent"`
	Tier    ForceTier `json:"tier"`
	Visible bool      `json:"visible"`
}

// MeterFor converts a normalized force sample into a meter reading
func MeterFor(sample float64) Meter {
	sample = vmath.Clamp01(sample)
	tier := TierStrong
	switch {
	case sample < 0.33:
		tier = TierWeak
	case sample < 0.67:
		tier = TierMedium
	}
	return Meter{
		Sample:  sample,
		Percent: int(math.Round(sample * 100)),
		Tier:    tier,
		Visible: true,
	}
}

// Preview returns the predicted flight path for the current aim, or nil
// when not aiming.
func (c *Controller) Preview() []vmath.Vec2 {
	if c.state != StateAiming {
		return nil
	}
	force := c.drag.Len() * c.cfg.ForceMultiplier
	if force > c.cfg.MaxForce {
		force = c.cfg.MaxForce
	}
	mass := c.cfg.BallMass
	if mass <= 0 {
		mass = 1
	}
	velocity := c.drag.Normalize().Scale(force / mass)
	return physics.Trajectory(c.ball.Position, velocity, c.world.Gravity, c.cfg.TrajectoryPoints, c.cfg.TrajectoryStep)
}

// Snapshot is a render-ready view of the controller.
type Snapshot struct {
	State      State        `json:"state"`
	Ball       vmath.Vec2   `json:"ball"`
	BallAngle  float64      `json:"ballAngle"`
	BallRadius float64      `json:"ballRadius"`
	Target     Target       `json:"target"`
	Meter      Meter        `json:"meter"`
	Trajectory []vmath.Vec2 `json:"trajectory,omitempty"`
	Attempt    *Attempt     `json:"attempt,omitempty"`
}

// Snapshot captures the controller for rendering
func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{
		State:      c.state,
		Ball:       c.ball.Position,
		BallAngle:  c.ball.Angle,
		BallRadius: c.cfg.BallRadius,
		Target:     c.target,
		Trajectory: c.Preview(),
		Attempt:    c.Attempt(),
	}
	if c.state == StateAiming {
		s.Meter = MeterFor(c.force)
	}
	return s
}
