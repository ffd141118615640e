package capture

import (
	"math"
	"testing"
)

const eps = 1e-9

func TestEvaluateScenarios(t *testing.T) {
	tests := []struct {
		name        string
		force       float64
		accuracy    float64
		roll        float64
		wantRate    float64
		wantForce   float64
		wantAcc     float64
		wantSuccess bool
		wantGrade   Grade
	}{
		{
			name:  "weak throw keeps base odds",
			force: 5, accuracy: 0.9, roll: 0.49,
			wantRate: 0.50, wantForce: 0, wantAcc: 0,
			wantSuccess: true, wantGrade: GradeCaptured,
		},
		{
			name:  "maximum effort",
			force: 50, accuracy: 1.0, roll: 0.99,
			wantRate: 1.0, wantForce: 0.30, wantAcc: 0.20,
			wantSuccess: true, wantGrade: GradePerfect,
		},
		{
			name:  "accuracy at threshold earns nothing",
			force: 30, accuracy: 0.3, roll: 0.80,
			wantRate: 0.5 + math.Pow(0.5, 1.5)*0.30, wantForce: math.Pow(0.5, 1.5) * 0.30, wantAcc: 0,
			wantSuccess: false, wantGrade: GradeNearMiss,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.force, tt.accuracy, tt.roll)
			if math.Abs(got.Rate-tt.wantRate) > eps {
				t.Errorf("Rate = %.12f, want %.12f", got.Rate, tt.wantRate)
			}
			if math.Abs(got.ForceBonus-tt.wantForce) > eps {
				t.Errorf("ForceBonus = %.12f, want %.12f", got.ForceBonus, tt.wantForce)
			}
			if math.Abs(got.AccuracyBonus-tt.wantAcc) > eps {
				t.Errorf("AccuracyBonus = %.12f, want %.12f", got.AccuracyBonus, tt.wantAcc)
			}
			if got.Success != tt.wantSuccess {
				t.Errorf("Success = %v, want %v", got.Success, tt.wantSuccess)
			}
			if got.Grade != tt.wantGrade {
				t.Errorf("Grade = %q, want %q", got.Grade, tt.wantGrade)
			}
			if got.Description == "" {
				t.Error("expected description")
			}
		})
	}
}

func TestScenarioCRate(t *testing.T) {
	got := Evaluate(30, 0.3, 0.8)
	if math.Abs(got.Rate-0.606) > 0.001 {
		t.Errorf("Rate = %f, want ~0.606", got.Rate)
	}
}

func TestForceBonusZeroBelowThreshold(t *testing.T) {
	tun := DefaultTuning()
	for f := 0.0; f < 10; f += 0.25 {
		for _, a := range []float64{0, 0.3, 0.65, 1} {
			res := tun.Evaluate(f, a, 0.5)
			if res.ForceBonus != 0 {
				t.Fatalf("force=%v accuracy=%v: ForceBonus = %v, want 0", f, a, res.ForceBonus)
			}
		}
	}
}

func TestAccuracyBonusZeroBelowThreshold(t *testing.T) {
	tun := DefaultTuning()
	for a := 0.0; a < 0.3; a += 0.01 {
		for _, f := range []float64{0, 10, 25, 50, 80} {
			res := tun.Evaluate(f, a, 0.5)
			if res.AccuracyBonus != 0 {
				t.Fatalf("force=%v accuracy=%v: AccuracyBonus = %v, want 0", f, a, res.AccuracyBonus)
			}
		}
	}
}

func TestRateMonotonicAndBounded(t *testing.T) {
	tun := DefaultTuning()

	for _, a := range []float64{0, 0.3, 0.5, 0.8, 1} {
		prev := -1.0
		for f := 0.0; f <= 70; f += 0.5 {
			r := tun.Rate(f, a)
			if r < 0 || r > 1 {
				t.Fatalf("Rate(%v, %v) = %v out of [0,1]", f, a, r)
			}
			if r < prev {
				t.Fatalf("Rate decreased in force at f=%v a=%v: %v < %v", f, a, r, prev)
			}
			prev = r
		}
	}

	for _, f := range []float64{0, 10, 30, 50} {
		prev := -1.0
		for a := 0.0; a <= 1.0; a += 0.02 {
			r := tun.Rate(f, a)
			if r < 0 || r > 1 {
				t.Fatalf("Rate(%v, %v) = %v out of [0,1]", f, a, r)
			}
			if r < prev {
				t.Fatalf("Rate decreased in accuracy at f=%v a=%v: %v < %v", f, a, r, prev)
			}
			prev = r
		}
	}
}

func TestRateClampedWithGenerousTuning(t *testing.T) {
	tun := DefaultTuning()
	tun.BaseRate = 0.9
	if r := tun.Rate(50, 1); r != 1 {
		t.Errorf("Rate = %v, want clamp to 1", r)
	}
	tun.BaseRate = -0.5
	if r := tun.Rate(0, 0); r != 0 {
		t.Errorf("Rate = %v, want clamp to 0", r)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	for i := 0; i < 50; i++ {
		f := float64(i)
		a := float64(i%11) / 10
		roll := float64(i%7) / 7
		first := Evaluate(f, a, roll)
		for j := 0; j < 3; j++ {
			if again := Evaluate(f, a, roll); again != first {
				t.Fatalf("Evaluate(%v,%v,%v) not deterministic: %+v vs %+v", f, a, roll, first, again)
			}
		}
	}
}

func TestRollBoundaryInclusive(t *testing.T) {
	res := Evaluate(0, 0, 0.5)
	if !res.Success {
		t.Error("roll equal to rate should capture")
	}
	res = Evaluate(0, 0, math.Nextafter(0.5, 1))
	if res.Success {
		t.Error("roll just above rate should fail")
	}
}

func TestFailureGrades(t *testing.T) {
	tests := []struct {
		force, accuracy float64
		want            Grade
	}{
		{5, 0.9, GradeTooWeak},
		{5, 0.1, GradeTooWeak},
		{30, 0.1, GradeOffTarget},
		{30, 0.6, GradeNearMiss},
	}
	for _, tt := range tests {
		res := Evaluate(tt.force, tt.accuracy, 0.999999)
		if res.Success {
			t.Fatalf("expected failure for force=%v accuracy=%v", tt.force, tt.accuracy)
		}
		if res.Grade != tt.want {
			t.Errorf("force=%v accuracy=%v: Grade = %q, want %q", tt.force, tt.accuracy, res.Grade, tt.want)
		}
		if res.Grade.Success() {
			t.Errorf("grade %q should not be a success grade", res.Grade)
		}
	}
}

func TestSuccessTiers(t *testing.T) {
	tests := []struct {
		force, accuracy float64
		want            Grade
	}{
		{50, 1, GradePerfect},     // 0.50
		{50, 0.3, GradeExcellent}, // 0.30
		{40, 0.3, GradeGood},      // ~0.195
		{20, 0.5, GradeCaptured},  // ~0.053
	}
	for _, tt := range tests {
		res := Evaluate(tt.force, tt.accuracy, 0)
		if res.Grade != tt.want {
			t.Errorf("force=%v accuracy=%v: Grade = %q (bonus %.3f), want %q",
				tt.force, tt.accuracy, res.Grade, res.ForceBonus+res.AccuracyBonus, tt.want)
		}
	}
}

func TestNaNInputsCountAsZero(t *testing.T) {
	res := Evaluate(math.NaN(), math.NaN(), 0.4)
	if res.Rate != 0.5 {
		t.Errorf("Rate = %v, want 0.5", res.Rate)
	}
	if !res.Success {
		t.Error("expected capture with roll under base rate")
	}
}
