package servo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/dxlservo/pkg/profile"
	"github.com/gwillem/dxlservo/pkg/transport"
	"github.com/gwillem/dxlservo/pkg/transport/sim"
)

func TestNew_RequiresProfileAndTransport(t *testing.T) {
	_, err := New(Config{ID: 1, Transport: sim.NewBus(transport.Protocol2)})
	assert.Error(t, err)

	_, err = New(Config{ID: 1, Profile: profile.MustFor(profile.Pro)})
	assert.Error(t, err)
}

func TestSetID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, profile.Compact)
	f.bus.AddDevice(7, profile.Compact)
	require.NoError(t, f.s.SetVelocityLimit(ctx, 500))

	f.s.SetID(7)
	assert.Equal(t, uint8(7), f.s.ID())
	assert.False(t, f.s.Limits().Velocity.Set)

	require.NoError(t, f.s.EnableTorque(ctx))
	assert.Equal(t, int32(1), f.bus.Device(7).Get(profile.TorqueEnable))
	assert.Equal(t, int32(0), f.dev.Get(profile.TorqueEnable))
}

func TestTorque(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, profile.Pro)

	require.NoError(t, f.s.EnableTorque(ctx))
	on, err := f.s.ReadTorqueEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, on)

	require.NoError(t, f.s.DisableTorque(ctx))
	assert.Equal(t, []uint32{1, 0}, f.dev.WritesTo(profile.TorqueEnable))
}

func TestOperatingMode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, profile.Pro)

	err := f.s.SetOperatingMode(ctx, profile.ModePWM)
	assert.ErrorIs(t, err, ErrUnsupported)
	assert.Equal(t, ClassValidation, ClassOf(err))

	ok, err := f.s.CheckPositionMode(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, f.s.SetOperatingMode(ctx, profile.ModeVelocity))
	m, err := f.s.ReadOperatingMode(ctx)
	require.NoError(t, err)
	assert.Equal(t, profile.ModeVelocity, m)

	ok, err = f.s.CheckPositionMode(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []NoticeKind{NoticeModeMismatch}, f.kinds())

	f.dev.Set(profile.OperatingMode, 9)
	_, err = f.s.ReadOperatingMode(ctx)
	assert.Error(t, err)
}

func TestTelemetry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, profile.Pro)
	f.dev.Set(profile.PresentPosition, -65797)
	f.dev.Set(profile.PresentCurrent, -248)
	f.dev.Set(profile.PresentVelocity, 2570)
	f.dev.Set(profile.PresentTemperature, 41)

	snap, err := f.s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(-65797), snap.Position)
	assert.InDelta(t, -90, snap.Angle, 0.01)
	assert.InDelta(t, -0.999, snap.Current, 0.001)
	assert.InDelta(t, 10, snap.Velocity, 0.01)
	assert.Equal(t, int32(41), snap.Temperature)
	assert.False(t, snap.Moving)
	assert.Zero(t, snap.Status)
	assert.Equal(t, f.now, snap.Time)
	assert.Equal(t, int32(41), f.s.State().Temperature)
}

func TestTelemetry_ReadFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, profile.Compact)

	_, err := f.s.ReadTemperature(ctx)
	require.NoError(t, err)

	f.dev.Set(profile.PresentTemperature, 50)
	f.dev.FailNext(profile.PresentTemperature, &transport.CommError{Result: transport.CommRxCorrupt})
	_, err = f.s.ReadTemperature(ctx)
	assert.Equal(t, ClassComm, ClassOf(err))
	assert.Equal(t, int32(35), f.s.State().Temperature)
}

func TestHomingOffsetRange(t *testing.T) {
	f := newFixture(t, profile.Compact)
	assert.ErrorIs(t, f.s.SetHomingOffset(context.Background(), 5000), ErrOutOfRange)
}

func TestClassOf(t *testing.T) {
	tests := []struct {
		err  error
		want Class
	}{
		{nil, ClassNone},
		{invalid("op", 1, ErrOutOfRange), ClassValidation},
		{fmt.Errorf("wrapped: %w", &transport.CommError{Result: transport.CommTxFail}), ClassComm},
		{&transport.DeviceError{Code: transport.DeviceCRC}, ClassDevice},
		{&SettleError{Polls: 3, Err: context.Canceled}, ClassSettling},
		{context.DeadlineExceeded, ClassComm},
		{errors.New("boom"), ClassUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassOf(tt.err), "%v", tt.err)
	}
}

func TestLogNotices(t *testing.T) {
	var got []Notice
	fn := Notices(nil, func(n Notice) { got = append(got, n) })
	fn(Notice{Kind: NoticeRebooted})
	assert.Len(t, got, 1)
	assert.Equal(t, "rebooted", got[0].Kind.String())
}
