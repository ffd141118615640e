package vmath

// Clamp01 clamps x to [0, 1]
func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// Clamp clamps x to [lo, hi]
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// InverseLerp maps x from [a, b] into [0, 1], clamped.
// Degenerate range returns 0.
func InverseLerp(a, b, x float64) float64 {
	if a == b {
		return 0
	}
	return Clamp01((x - a) / (b - a))
}

// Lerp interpolates between a and b by t (unclamped)
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Rect is an axis-aligned rectangle given by its min and max corners
type Rect struct {
	Min Vec2 `json:"min"`
	Max Vec2 `json:"max"`
}

// Contains reports whether p lies inside r (edges inclusive)
func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Size returns the rectangle extent along each axis
func (r Rect) Size() Vec2 { return r.Max.Sub(r.Min) }

// Expand grows r by margin on every side
func (r Rect) Expand(margin float64) Rect {
	return Rect{
		Min: Vec2{r.Min.X - margin, r.Min.Y - margin},
		Max: Vec2{r.Max.X + margin, r.Max.Y + margin},
	}
}
