// Package convert translates between physical units and register codes.
package convert

import (
	"errors"
	"fmt"
	"math"

	"github.com/gwillem/dxlservo/pkg/profile"
)

var (
	// ErrLimitNotConfigured is returned when a conversion needs a limit the
	// session has not established yet.
	ErrLimitNotConfigured = errors.New("limit not configured")

	// ErrNegative is returned for negative current, velocity or acceleration.
	ErrNegative = errors.New("value must not be negative")

	// ErrNotFinite is returned for NaN and infinite inputs.
	ErrNotFinite = errors.New("value must be finite")
)

// Quantity is a physical quantity with a linear code scale.
type Quantity int

const (
	Position Quantity = iota + 1
	Current
	Velocity
	Acceleration
)

func (q Quantity) String() string {
	switch q {
	case Position:
		return "position"
	case Current:
		return "current"
	case Velocity:
		return "velocity"
	case Acceleration:
		return "acceleration"
	default:
		return fmt.Sprintf("quantity(%d)", int(q))
	}
}

// Unit returns the physical unit of q.
func (q Quantity) Unit() string {
	switch q {
	case Position:
		return "deg"
	case Current:
		return "A"
	case Velocity:
		return "rpm"
	case Acceleration:
		return "rev/min^2"
	default:
		return ""
	}
}

// Limit is a configured upper bound in codes. The zero value is unset.
type Limit struct {
	Code int32
	Set  bool
}

// LimitOf returns a set limit.
func LimitOf(code int32) Limit {
	return Limit{Code: code, Set: true}
}

func (l Limit) String() string {
	if !l.Set {
		return "unset"
	}
	return fmt.Sprintf("%d", l.Code)
}

// Result is the outcome of a physical-to-code conversion.
type Result struct {
	Code    int32
	Clamped bool
	// Requested is the code before saturation.
	Requested int64
}

// Round rounds half away from zero.
func Round(x float64) int64 {
	return int64(math.Round(x))
}

// Converter converts values for one servo family.
type Converter struct {
	scales profile.Scales
}

// New returns a converter for p.
func New(p *profile.Profile) Converter {
	return Converter{scales: p.Scales}
}

// Scale returns the physical size of one code of q.
func (c Converter) Scale(q Quantity) float64 {
	switch q {
	case Position:
		return c.scales.Position
	case Current:
		return c.scales.Current
	case Velocity:
		return c.scales.Velocity
	case Acceleration:
		return c.scales.Acceleration
	}
	return 0
}

// ToPhysical converts a register code to its physical value.
func (c Converter) ToPhysical(q Quantity, code int32) float64 {
	return float64(code) * c.Scale(q)
}

// ToCode converts a current, velocity or acceleration to a register code,
// saturating at limit.
func (c Converter) ToCode(q Quantity, value float64, limit Limit) (Result, error) {
	if q == Position {
		return Result{}, fmt.Errorf("convert %s: use AngleToCode", q)
	}
	scale := c.Scale(q)
	if scale == 0 {
		return Result{}, fmt.Errorf("convert %s: unknown quantity", q)
	}
	if !limit.Set {
		return Result{}, fmt.Errorf("convert %s: %w", q, ErrLimitNotConfigured)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Result{}, fmt.Errorf("convert %s %g: %w", q, value, ErrNotFinite)
	}
	if value < 0 {
		return Result{}, fmt.Errorf("convert %s %g %s: %w", q, value, q.Unit(), ErrNegative)
	}

	// Compare before narrowing: float to int conversion of an
	// out-of-range value is implementation defined.
	f := math.Round(value / scale)
	if f > float64(limit.Code) {
		requested := int64(math.MaxInt64)
		if f < math.MaxInt64 {
			requested = int64(f)
		}
		return Result{Code: limit.Code, Clamped: true, Requested: requested}, nil
	}
	return Result{Code: int32(f), Requested: int64(f)}, nil
}

// AngleToCode converts degrees to a goal position code. The homing offset
// is subtracted so that the device reports the same angle back.
func (c Converter) AngleToCode(deg float64, homingOffset int32) int32 {
	return int32(Round(deg/c.scales.Position)) - homingOffset
}

// CodeToAngle converts a position code to degrees.
func (c Converter) CodeToAngle(code, homingOffset int32) float64 {
	return float64(code+homingOffset) * c.scales.Position
}
