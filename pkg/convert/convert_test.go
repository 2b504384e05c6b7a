package convert

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/dxlservo/pkg/profile"
)

func TestRound(t *testing.T) {
	tests := []struct {
		in   float64
		want int64
	}{
		{0.4, 0},
		{0.5, 1},
		{1.5, 2},
		{2.5, 3},
		{-0.5, -1},
		{-2.5, -3},
		{-2.4, -2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Round(tt.in), "Round(%v)", tt.in)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, family := range []profile.Family{profile.Compact, profile.Pro} {
		p := profile.MustFor(family)
		c := New(p)
		limits := map[Quantity]int32{
			Current:      p.Caps.CurrentCode,
			Velocity:     p.Caps.VelocityCode,
			Acceleration: p.Caps.AccelerationCode,
		}

		for q, max := range limits {
			for code := int32(0); code <= max; code++ {
				phys := c.ToPhysical(q, code)
				res, err := c.ToCode(q, phys, LimitOf(max))
				require.NoError(t, err)
				if res.Code != code {
					t.Fatalf("%s %s: %d -> %f -> %d", family, q, code, phys, res.Code)
				}
			}

			// Physical values survive within one unit of the scale.
			for _, x := range []float64{0.1, 0.77, 1.3} {
				x *= c.ToPhysical(q, max) / 2
				res, err := c.ToCode(q, x, LimitOf(max))
				require.NoError(t, err)
				back := c.ToPhysical(q, res.Code)
				assert.LessOrEqual(t, math.Abs(back-x), c.Scale(q), "%s %s %f", family, q, x)
			}
		}
	}
}

func TestAngleRoundTrip(t *testing.T) {
	tests := []struct {
		family profile.Family
		offset int32
	}{
		{profile.Compact, 0},
		{profile.Compact, 120},
		{profile.Pro, 0},
		{profile.Pro, -5000},
	}

	for _, tt := range tests {
		p := profile.MustFor(tt.family)
		c := New(p)
		step := (p.Caps.PositionMax - p.Caps.PositionMin) / 97
		for code := p.Caps.PositionMin; code <= p.Caps.PositionMax; code += step {
			deg := c.CodeToAngle(code, tt.offset)
			assert.Equal(t, code, c.AngleToCode(deg, tt.offset), "%s offset %d", tt.family, tt.offset)
		}
	}
}

func TestAngleToCode(t *testing.T) {
	compact := New(profile.MustFor(profile.Compact))
	assert.Equal(t, int32(4095), compact.AngleToCode(360, 0))
	assert.Equal(t, int32(1024), compact.AngleToCode(90, 0))
	assert.Equal(t, int32(924), compact.AngleToCode(90, 100))
	assert.InDelta(t, 90.0, compact.CodeToAngle(924, 100), 0.05)

	pro := New(profile.MustFor(profile.Pro))
	assert.Equal(t, int32(131593), pro.AngleToCode(180, 0))
	assert.Equal(t, int32(-131593), pro.AngleToCode(-180, 0))
	assert.Equal(t, int32(0), pro.AngleToCode(0, 0))
}

func TestToCode_Saturates(t *testing.T) {
	c := New(profile.MustFor(profile.Compact))

	res, err := c.ToCode(Velocity, 100, LimitOf(200))
	require.NoError(t, err)
	assert.True(t, res.Clamped)
	assert.Equal(t, int32(200), res.Code)
	assert.Equal(t, int64(437), res.Requested)

	res, err = c.ToCode(Velocity, 10, LimitOf(200))
	require.NoError(t, err)
	assert.False(t, res.Clamped)
	assert.Equal(t, int32(44), res.Code)
}

func TestToCode_SaturatesHugeValues(t *testing.T) {
	c := New(profile.MustFor(profile.Pro))

	for _, v := range []float64{1e20, math.MaxFloat64} {
		res, err := c.ToCode(Current, v, LimitOf(1941))
		require.NoError(t, err, "value %g", v)
		assert.True(t, res.Clamped, "value %g", v)
		assert.Equal(t, int32(1941), res.Code, "value %g", v)
		assert.Equal(t, int64(math.MaxInt64), res.Requested, "value %g", v)
	}

	res, err := c.ToCode(Velocity, 1e9, LimitOf(math.MaxInt32))
	require.NoError(t, err)
	assert.True(t, res.Clamped)
	assert.Equal(t, int32(math.MaxInt32), res.Code)
}

func TestToCode_Errors(t *testing.T) {
	c := New(profile.MustFor(profile.Pro))

	_, err := c.ToCode(Current, 1.0, Limit{})
	assert.ErrorIs(t, err, ErrLimitNotConfigured)

	_, err = c.ToCode(Acceleration, -1, LimitOf(100))
	assert.ErrorIs(t, err, ErrNegative)

	_, err = c.ToCode(Position, 10, LimitOf(100))
	assert.Error(t, err)

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err = c.ToCode(Current, v, LimitOf(1941))
		assert.ErrorIs(t, err, ErrNotFinite, "value %g", v)
	}
}

func TestProCurrentScale(t *testing.T) {
	c := New(profile.MustFor(profile.Pro))
	assert.InDelta(t, 0.004028, c.Scale(Current), 1e-6)
	assert.InDelta(t, 2.1, c.ToPhysical(Current, 521), 0.01)
}
