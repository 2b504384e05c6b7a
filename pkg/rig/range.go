package rig

import "github.com/gwillem/dxlservo/pkg/profile"

// Range is the usable angle span of a joint in degrees.
type Range struct {
	Min float64
	Max float64
}

// RangeOf returns the configured angle limits, falling back to the
// family's angle window.
func RangeOf(sc ServoConfig) Range {
	caps := profile.MustFor(sc.Family).Caps
	r := Range{Min: caps.AngleMin, Max: caps.AngleMax}
	if sc.Limits.MinAngle != nil {
		r.Min = *sc.Limits.MinAngle
	}
	if sc.Limits.MaxAngle != nil {
		r.Max = *sc.Limits.MaxAngle
	}
	return r
}

// Normalize converts an angle to a normalized value in the range [-100, 100].
func (r Range) Normalize(deg float64) float64 {
	size := r.Max - r.Min
	if size == 0 {
		return 0
	}
	return (deg-r.Min)/size*200 - 100
}

// Denormalize converts a normalized value [-100, 100] to an angle.
func (r Range) Denormalize(norm float64) float64 {
	return (norm+100)/200*(r.Max-r.Min) + r.Min
}

// Contains reports whether deg lies within the range.
func (r Range) Contains(deg float64) bool {
	return deg >= r.Min && deg <= r.Max
}
