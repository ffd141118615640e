// Package capture computes whether a thrown ball captures its target.
//
// Evaluation is a pure function of the throw force, the hit accuracy and an
// injected random roll. All thresholds and exponents live in Tuning so the
// odds can be reproduced exactly and adjusted without touching the algorithm.
package capture

import (
	"math"

	"github.com/pokethrow/pokethrow-desktop/internal/vmath"
)

// Grade classifies a capture result for user-facing text
type Grade string

const (
	GradeTooWeak   Grade = "too_weak"
	GradeOffTarget Grade = "off_target"
	GradeNearMiss  Grade = "near_miss"
	GradePerfect   Grade = "perfect"
	GradeExcellent Grade = "excellent"
	GradeGood      Grade = "good"
	GradeCaptured  Grade = "captured"
)

// Success reports whether the grade belongs to a successful capture
func (g Grade) Success() bool {
	switch g {
	case GradePerfect, GradeExcellent, GradeGood, GradeCaptured:
		return true
	}
	return false
}

var gradeText = map[Grade]string{
	GradeTooWeak:   "The throw was too weak!",
	GradeOffTarget: "The throw was too far off target!",
	GradeNearMiss:  "So close! It broke free!",
	GradePerfect:   "Perfect throw! Captured!",
	GradeExcellent: "Excellent throw! Captured!",
	GradeGood:      "Good throw! Captured!",
	GradeCaptured:  "Captured!",
}

// Description returns the default English text for the grade
func (g Grade) Description() string {
	if s, ok := gradeText[g]; ok {
		return s
	}
	return string(g)
}

// Tuning holds the capture curve constants.
type Tuning struct {
	BaseRate float64 `json:"baseRate"`

	// Force bonus: zero below MinForce, then ((f-MinForce)/(MaxForce-MinForce))^ForceExponent * MaxForceBonus.
	MinForce      float64 `json:"minForce"`
	MaxForce      float64 `json:"maxForce"`
	ForceExponent float64 `json:"forceExponent"`
	MaxForceBonus float64 `json:"maxForceBonus"`

	// Accuracy bonus: zero below MinAccuracy, then ((a-MinAccuracy)/(1-MinAccuracy))^AccuracyExponent * MaxAccuracyBonus.
	MinAccuracy      float64 `json:"minAccuracy"`
	AccuracyExponent float64 `json:"accuracyExponent"`
	MaxAccuracyBonus float64 `json:"maxAccuracyBonus"`

	// Success text tiers on forceBonus+accuracyBonus.
	PerfectBonus   float64 `json:"perfectBonus"`
	ExcellentBonus float64 `json:"excellentBonus"`
	GoodBonus      float64 `json:"goodBonus"`
}

// DefaultTuning returns the standard capture curve
func DefaultTuning() Tuning {
	return Tuning{
		BaseRate:         0.50,
		MinForce:         10,
		MaxForce:         50,
		ForceExponent:    1.5,
		MaxForceBonus:    0.30,
		MinAccuracy:      0.3,
		AccuracyExponent: 2.0,
		MaxAccuracyBonus: 0.20,
		PerfectBonus:     0.45,
		ExcellentBonus:   0.30,
		GoodBonus:        0.15,
	}
}

// Result is the outcome of one capture evaluation.
type Result struct {
	Success       bool    `json:"success"`
	Rate          float64 `json:"rate"`
	ForceBonus    float64 `json:"forceBonus"`
	AccuracyBonus float64 `json:"accuracyBonus"`
	Roll          float64 `json:"roll"`
	Force         float64 `json:"force"`
	Accuracy      float64 `json:"accuracy"`
	Grade         Grade   `json:"grade"`
	Description   string  `json:"description"`
}

// ForceBonus returns the bonus contributed by throw force
func (t Tuning) ForceBonus(force float64) float64 {
	force = sanitize(force)
	if force < t.MinForce {
		return 0
	}
	u := vmath.InverseLerp(t.MinForce, t.MaxForce, force)
	return math.Pow(u, t.ForceExponent) * t.MaxForceBonus
}

// AccuracyBonus returns the bonus contributed by hit accuracy
func (t Tuning) AccuracyBonus(accuracy float64) float64 {
	accuracy = sanitize(accuracy)
	if accuracy < t.MinAccuracy {
		return 0
	}
	u := vmath.InverseLerp(t.MinAccuracy, 1, accuracy)
	return math.Pow(u, t.AccuracyExponent) * t.MaxAccuracyBonus
}

// Rate returns the capture probability in [0, 1]
func (t Tuning) Rate(force, accuracy float64) float64 {
	return vmath.Clamp01(t.BaseRate + t.ForceBonus(force) + t.AccuracyBonus(accuracy))
}

// Evaluate decides the capture for the given throw. roll is expected in [0, 1);
// the capture succeeds when roll <= rate.
func (t Tuning) Evaluate(force, accuracy, roll float64) Result {
	fb := t.ForceBonus(force)
	ab := t.AccuracyBonus(accuracy)
	rate := vmath.Clamp01(t.BaseRate + fb + ab)

	res := Result{
		Success:       roll <= rate,
		Rate:          rate,
		ForceBonus:    fb,
		AccuracyBonus: ab,
		Roll:          roll,
		Force:         force,
		Accuracy:      accuracy,
	}
	res.Grade = t.grade(res)
	res.Description = res.Grade.Description()
	return res
}

func (t Tuning) grade(r Result) Grade {
	if !r.Success {
		switch {
		case sanitize(r.Force) < t.MinForce:
			return GradeTooWeak
		case sanitize(r.Accuracy) < t.MinAccuracy:
			return GradeOffTarget
		default:
			return GradeNearMiss
		}
	}
	total := r.ForceBonus + r.AccuracyBonus
	switch {
	case total >= t.PerfectBonus:
		return GradePerfect
	case total >= t.ExcellentBonus:
		return GradeExcellent
	case total >= t.GoodBonus:
		return GradeGood
	default:
		return GradeCaptured
	}
}

// Evaluate runs the default tuning
func Evaluate(force, accuracy, roll float64) Result {
	return DefaultTuning().Evaluate(force, accuracy, roll)
}

// NaN inputs count as zero effort.
func sanitize(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return x
}
