package servo

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/dxlservo/pkg/convert"
	"github.com/gwillem/dxlservo/pkg/profile"
	"github.com/gwillem/dxlservo/pkg/transport"
)

func TestZeroMotionRejected(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		call func(*Session) error
	}{
		{"velocity limit", func(s *Session) error { return s.SetVelocityLimit(ctx, 0) }},
		{"acceleration limit", func(s *Session) error { return s.SetAccelerationLimit(ctx, 0) }},
		{"velocity limit rpm", func(s *Session) error { return s.SetVelocityLimitRPM(ctx, 0) }},
		{"acceleration limit rpm2", func(s *Session) error { return s.SetAccelerationLimitRPM2(ctx, 0) }},
		{"profile velocity", func(s *Session) error { return s.SetProfileVelocity(ctx, 0) }},
		{"profile acceleration", func(s *Session) error { return s.SetProfileAcceleration(ctx, 0) }},
		{"profile velocity rpm", func(s *Session) error { return s.SetProfileVelocityRPM(ctx, 0) }},
	}

	for _, family := range []profile.Family{profile.Compact, profile.Pro} {
		for _, tt := range tests {
			t.Run(family.String()+"/"+tt.name, func(t *testing.T) {
				f := newFixture(t, family)
				err := tt.call(f.s)
				assert.ErrorIs(t, err, ErrZeroMotion)
				assert.Equal(t, ClassValidation, ClassOf(err))
				assert.Empty(t, f.dev.Writes())
			})
		}
	}
}

func TestCurrentAmpsBeforeLimitConfigured(t *testing.T) {
	f := newFixture(t, profile.Compact)

	err := f.s.SetCurrentLimitAmps(context.Background(), 1.5)
	assert.ErrorIs(t, err, ErrLimitNotConfigured)
	assert.Equal(t, ClassValidation, ClassOf(err))
	assert.Empty(t, f.dev.Writes())
	assert.False(t, f.s.Limits().Current.Set)
}

func TestSetLimit_Raw(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, profile.Compact)

	require.NoError(t, f.s.SetCurrentLimit(ctx, 1500))
	require.NoError(t, f.s.SetVelocityLimit(ctx, 600))
	require.NoError(t, f.s.SetAccelerationLimit(ctx, 80))

	assert.Equal(t, convert.LimitOf(1500), f.s.Limits().Current)
	assert.Equal(t, int32(1500), f.dev.Get(profile.CurrentLimit))
	assert.Equal(t, int32(600), f.dev.Get(profile.VelocityLimit))
	assert.Equal(t, int32(80), f.dev.Get(profile.AccelerationLimit))
	assert.Empty(t, f.notices)
}

func TestSetLimit_AboveCeiling(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, profile.Pro)

	assert.ErrorIs(t, f.s.SetCurrentLimit(ctx, 522), ErrOutOfRange)
	assert.ErrorIs(t, f.s.SetVelocityLimit(ctx, 25711), ErrOutOfRange)
	assert.ErrorIs(t, f.s.SetAccelerationLimit(ctx, -3), ErrOutOfRange)
	assert.ErrorIs(t, f.s.SetCurrentLimitAmps(ctx, 2.2), ErrOutOfRange)
	assert.ErrorIs(t, f.s.SetVelocityLimitRPM(ctx, 236), ErrOutOfRange)
	assert.Empty(t, f.dev.Writes())
}

func TestSetLimit_UnderPowered(t *testing.T) {
	f := newFixture(t, profile.Compact)

	require.NoError(t, f.s.SetVelocityLimit(context.Background(), 100))
	assert.Equal(t, []NoticeKind{NoticeUnderPowered}, f.kinds())
	assert.Equal(t, convert.LimitOf(100), f.s.Limits().Velocity)
}

func TestSetLimit_PhysicalClampsToConfigured(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, profile.Compact)

	require.NoError(t, f.s.SetVelocityLimit(ctx, 400))
	require.NoError(t, f.s.SetVelocityLimitRPM(ctx, 200)) // 873 codes
	assert.Equal(t, int32(400), f.dev.Get(profile.VelocityLimit))
	assert.Equal(t, 1, f.count(NoticeClamped))

	require.NoError(t, f.s.SetVelocityLimitRPM(ctx, 50))
	assert.Equal(t, int32(218), f.dev.Get(profile.VelocityLimit))
	assert.Equal(t, convert.LimitOf(218), f.s.Limits().Velocity)
}

func TestSetLimit_HugePhysicalValuesClamp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, profile.Compact)
	require.NoError(t, f.s.SetVelocityLimit(ctx, 400))
	require.NoError(t, f.s.SetAccelerationLimit(ctx, 80))

	require.NoError(t, f.s.SetAccelerationLimitRPM2(ctx, 1e25))
	assert.Equal(t, int32(80), f.dev.Get(profile.AccelerationLimit))

	require.NoError(t, f.s.SetProfileVelocityRPM(ctx, 1e25))
	assert.Equal(t, int32(400), f.dev.Get(profile.ProfileVelocity))

	require.NoError(t, f.s.SetProfileAccelerationRPM2(ctx, 1e20))
	assert.Equal(t, int32(80), f.dev.Get(profile.ProfileAcceleration))

	assert.Equal(t, 3, f.count(NoticeClamped))
}

func TestSetLimit_NonFiniteRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, profile.Compact)
	require.NoError(t, f.s.SetVelocityLimit(ctx, 400))
	require.NoError(t, f.s.SetAccelerationLimit(ctx, 80))
	writes := len(f.dev.Writes())

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		for name, call := range map[string]func(float64) error{
			"acceleration limit":   func(v float64) error { return f.s.SetAccelerationLimitRPM2(ctx, v) },
			"velocity limit":       func(v float64) error { return f.s.SetVelocityLimitRPM(ctx, v) },
			"profile velocity":     func(v float64) error { return f.s.SetProfileVelocityRPM(ctx, v) },
			"profile acceleration": func(v float64) error { return f.s.SetProfileAccelerationRPM2(ctx, v) },
		} {
			err := call(v)
			assert.ErrorIs(t, err, ErrOutOfRange, "%s %g", name, v)
			assert.Equal(t, ClassValidation, ClassOf(err), "%s %g", name, v)
		}
	}
	assert.Len(t, f.dev.Writes(), writes)
	assert.Equal(t, 0, f.count(NoticeClamped))
}

func TestSetLimit_Presets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, profile.Pro)

	require.NoError(t, f.s.SetMaxCurrentLimit(ctx))
	require.NoError(t, f.s.SetVelocityLimit80RPM(ctx))
	require.NoError(t, f.s.SetLowAccelerationLimit(ctx))

	assert.Equal(t, int32(521), f.dev.Get(profile.CurrentLimit))
	assert.Equal(t, int32(20562), f.dev.Get(profile.VelocityLimit))
	assert.Equal(t, int32(26), f.dev.Get(profile.AccelerationLimit))
	assert.InDelta(t, 80, convert.New(f.s.Profile()).ToPhysical(convert.Velocity, 20562), 0.1)
}

func TestSetLimit_WriteFailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, profile.Compact)
	require.NoError(t, f.s.SetVelocityLimit(ctx, 500))

	f.dev.FailNext(profile.VelocityLimit, &transport.CommError{Result: transport.CommRxTimeout})
	err := f.s.SetVelocityLimit(ctx, 700)
	assert.Equal(t, ClassComm, ClassOf(err))
	assert.Equal(t, convert.LimitOf(500), f.s.Limits().Velocity)
}

func TestProfileVelocity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, profile.Compact)

	err := f.s.SetProfileVelocity(ctx, 10)
	assert.ErrorIs(t, err, ErrLimitNotConfigured)

	require.NoError(t, f.s.SetVelocityLimit(ctx, 300))
	assert.ErrorIs(t, f.s.SetProfileVelocity(ctx, 301), ErrOutOfRange)

	require.NoError(t, f.s.SetProfileVelocity(ctx, 10))
	assert.Equal(t, int32(10), f.dev.Get(profile.ProfileVelocity))

	require.NoError(t, f.s.SetProfileVelocityRPM(ctx, 500))
	assert.Equal(t, int32(300), f.s.State().ProfileVelocity)
	assert.Equal(t, 1, f.count(NoticeClamped))

	v, err := f.s.ReadProfileVelocity(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(300), v)
}

func TestProfileAcceleration_Pro(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, profile.Pro)

	require.NoError(t, f.s.SetAccelerationLimit(ctx, 100))
	require.NoError(t, f.s.SetProfileAccelerationRPM2(ctx, 1005.2)) // 5 codes
	assert.Equal(t, int32(5), f.dev.Get(profile.ProfileAcceleration))

	a, err := f.s.ReadProfileAcceleration(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(5), a)
}

func TestPositionLimits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, profile.Pro)

	require.NoError(t, f.s.SetPositionLimit(ctx, Min, -50000))
	require.NoError(t, f.s.SetPositionLimitAngle(ctx, Max, 45))
	assert.Equal(t, int32(-50000), f.dev.Get(profile.MinPositionLimit))
	assert.Equal(t, int32(32898), f.dev.Get(profile.MaxPositionLimit))

	err := f.s.SetPositionLimit(ctx, Min, 40000)
	assert.ErrorIs(t, err, ErrOutOfRange)

	err = f.s.SetPositionLimitAngle(ctx, Min, -181)
	assert.ErrorIs(t, err, ErrOutOfRange)

	compact := newFixture(t, profile.Compact)
	assert.ErrorIs(t, compact.s.SetPositionLimit(ctx, Max, 4096), ErrOutOfRange)
}

func TestSyncLimits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, profile.Compact)
	f.dev.Set(profile.HomingOffset, -12)

	l, err := f.s.SyncLimits(ctx)
	require.NoError(t, err)
	assert.Equal(t, convert.LimitOf(1941), l.Current)
	assert.Equal(t, convert.LimitOf(1023), l.Velocity)
	assert.Equal(t, convert.LimitOf(100), l.Acceleration)
	assert.Equal(t, convert.LimitOf(0), l.PositionMin)
	assert.Equal(t, convert.LimitOf(4095), l.PositionMax)
	assert.Equal(t, int32(-12), f.s.State().HomingOffset)

	// Physical setters now work against the read-back limits.
	require.NoError(t, f.s.SetCurrentLimitAmps(ctx, 1.5))
	assert.Equal(t, int32(446), f.dev.Get(profile.CurrentLimit))
}

func TestReadLimit_FailureKeepsCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, profile.Compact)

	f.dev.FailNext(profile.CurrentLimit, &transport.DeviceError{Code: transport.DeviceAccess})
	_, err := f.s.ReadCurrentLimit(ctx)
	assert.Equal(t, ClassDevice, ClassOf(err))
	assert.False(t, f.s.Limits().Current.Set)
}
