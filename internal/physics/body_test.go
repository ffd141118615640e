package physics

import (
	"math"
	"testing"

	"github.com/pokethrow/pokethrow-desktop/internal/vmath"
)

func TestKinematicBodyDoesNotMove(t *testing.T) {
	b := NewBody(vmath.V(1, 2), 0.3, 1)
	w := NewWorld()
	if used := w.Step(b, 1, nil); used != 0 {
		t.Errorf("kinematic step consumed %v", used)
	}
	if b.Position != vmath.V(1, 2) {
		t.Errorf("kinematic body moved to %+v", b.Position)
	}
}

func TestLaunchImpulseDividesByMass(t *testing.T) {
	b := NewBody(vmath.V(0, 0), 0.3, 2)
	b.Launch(vmath.V(4, 10), 0)
	if b.Velocity != vmath.V(2, 5) {
		t.Errorf("Velocity = %+v, want (2, 5)", b.Velocity)
	}
	if b.Kinematic {
		t.Error("launched body should be dynamic")
	}
}

func TestStepMatchesTrajectory(t *testing.T) {
	w := World{Gravity: DefaultGravity, MaxSubstep: 0.1}
	b := NewBody(vmath.V(0, -3), 0.3, 1)
	b.Launch(vmath.V(2, 12), 0)

	predicted := Trajectory(vmath.V(0, -3), vmath.V(2, 12), DefaultGravity, 6, 0.1)
	for i := 1; i < len(predicted); i++ {
		w.Step(b, 0.1, nil)
		if d := b.Position.Dist(predicted[i]); d > 1e-9 {
			t.Fatalf("step %d: body at %+v, preview at %+v", i, b.Position, predicted[i])
		}
	}
}

func TestStepVisitorStopsEarly(t *testing.T) {
	w := World{Gravity: vmath.V(0, 0), MaxSubstep: 0.01}
	b := NewBody(vmath.V(0, 0), 0.1, 1)
	b.Launch(vmath.V(10, 0), 0)

	calls := 0
	used := w.Step(b, 1, func(prev, cur vmath.Vec2) bool {
		calls++
		return cur.X >= 0.45
	})
	if calls != 5 {
		t.Errorf("visitor called %d times, want 5", calls)
	}
	if math.Abs(used-0.05) > 1e-9 {
		t.Errorf("used = %v, want 0.05", used)
	}
}

func TestFreezeStopsMotion(t *testing.T) {
	b := NewBody(vmath.V(0, 0), 0.1, 1)
	b.Launch(vmath.V(1, 1), 360)
	b.Freeze()
	if !b.Velocity.IsZero() || b.AngularVelocity != 0 || !b.Kinematic {
		t.Errorf("freeze left motion: %+v", b)
	}
}

func TestSegmentCircleHit(t *testing.T) {
	// segment passes through the circle although both endpoints are outside
	p, u, hit := SegmentCircleHit(vmath.V(-3, 0), vmath.V(3, 0), vmath.V(0, 0.5), 1)
	if !hit {
		t.Fatal("expected tunnelling segment to hit")
	}
	if p != vmath.V(0, 0) || u != 0.5 {
		t.Errorf("closest point = %+v at t=%v, want origin at 0.5", p, u)
	}
	if _, _, hit := SegmentCircleHit(vmath.V(-3, 2), vmath.V(3, 2), vmath.V(0, 0), 1); hit {
		t.Error("segment above circle should miss")
	}
	if _, _, hit := SegmentCircleHit(vmath.V(0, 0), vmath.V(0, 0), vmath.V(0, 0.5), 1); !hit {
		t.Error("degenerate segment inside circle should hit")
	}
	// approaching the center: closest point is the segment end
	p, u, _ = SegmentCircleHit(vmath.V(0, -0.9), vmath.V(0, -0.3), vmath.V(0, 0), 1)
	if u != 1 || p != vmath.V(0, -0.3) {
		t.Errorf("approach: closest = %+v at t=%v, want end point", p, u)
	}
}

func TestSegmentCircleEntry(t *testing.T) {
	// enters the unit circle at (-1, 0), not at the closest point
	p, u, hit := SegmentCircleEntry(vmath.V(-3, 0), vmath.V(3, 0), vmath.V(0, 0), 1)
	if !hit {
		t.Fatal("expected crossing segment to enter")
	}
	if p.Dist(vmath.V(-1, 0)) > 1e-12 || math.Abs(u-1.0/3) > 1e-12 {
		t.Errorf("entry = %+v at t=%v, want (-1, 0) at 1/3", p, u)
	}

	p, u, hit = SegmentCircleEntry(vmath.V(0, 0.5), vmath.V(3, 0.5), vmath.V(0, 0), 1)
	if !hit || u != 0 || p != vmath.V(0, 0.5) {
		t.Errorf("start inside: entry = %+v at t=%v hit=%v, want start point", p, u, hit)
	}

	tests := []struct {
		name string
		a, b vmath.Vec2
	}{
		{"passes above", vmath.V(-3, 2), vmath.V(3, 2)},
		{"stops short", vmath.V(-3, 0), vmath.V(-1.5, 0)},
		{"moving away", vmath.V(1.5, 0), vmath.V(3, 0)},
		{"degenerate outside", vmath.V(2, 2), vmath.V(2, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, hit := SegmentCircleEntry(tt.a, tt.b, vmath.V(0, 0), 1); hit {
				t.Errorf("%v->%v should not enter", tt.a, tt.b)
			}
		})
	}
}
