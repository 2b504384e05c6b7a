package rig

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/dxlservo/pkg/profile"
	"github.com/gwillem/dxlservo/pkg/servo"
	"github.com/gwillem/dxlservo/pkg/transport/sim"
)

func ptr[T any](v T) *T { return &v }

func testConfig() *Config {
	return &Config{
		Transport: TransportConfig{Backend: "sim", Protocol: "2.0"},
		Servos: []ServoConfig{
			{
				Name:   "pan",
				ID:     1,
				Family: profile.Pro,
				Mode:   "position",
				Limits: LimitsConfig{
					CurrentAmps:      1.0,
					VelocityRPM:      80,
					AccelerationRPM2: 2000,
					MinAngle:         ptr(-45.0),
					MaxAngle:         ptr(45.0),
				},
				Motion: MotionConfig{VelocityRPM: 20, AccelerationRPM2: 1000},
			},
			{
				Name:         "tilt",
				ID:           2,
				Family:       profile.Compact,
				HomingOffset: ptr(int32(-20)),
				Limits: LimitsConfig{
					VelocityRPM: 100,
					MinAngle:    ptr(96.0),
					MaxAngle:    ptr(264.0),
				},
			},
		},
	}
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	r, err := Open(cfg, Options{})
	require.NoError(t, err)
	require.NoError(t, r.Apply(ctx))

	bus := r.Transport().(*sim.Bus)
	pan := bus.Device(1)
	assert.Equal(t, int32(248), pan.Get(profile.CurrentLimit))
	assert.Equal(t, int32(20562), pan.Get(profile.VelocityLimit))
	assert.Equal(t, int32(10), pan.Get(profile.AccelerationLimit))
	assert.Equal(t, int32(-32898), pan.Get(profile.MinPositionLimit))
	assert.Equal(t, int32(32898), pan.Get(profile.MaxPositionLimit))
	assert.Equal(t, int32(5140), pan.Get(profile.ProfileVelocity))
	assert.Equal(t, int32(5), pan.Get(profile.ProfileAcceleration))

	tilt := bus.Device(2)
	assert.Equal(t, int32(-20), tilt.Get(profile.HomingOffset))
	assert.Equal(t, int32(437), tilt.Get(profile.VelocityLimit))
	assert.Equal(t, int32(1112), tilt.Get(profile.MinPositionLimit))
	assert.Equal(t, int32(3023), tilt.Get(profile.MaxPositionLimit))

	j, ok := r.Joint("tilt")
	require.True(t, ok)
	assert.Equal(t, Range{Min: 96, Max: 264}, j.Range)
}

func TestApply_ReportsEveryJoint(t *testing.T) {
	cfg := testConfig()
	cfg.Servos[0].Limits.MinAngle = ptr(-200.0)
	cfg.Servos[1].HomingOffset = ptr(int32(5000))

	r, err := Open(cfg, Options{})
	require.NoError(t, err)

	err = r.Apply(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "joint pan")
	assert.Contains(t, err.Error(), "joint tilt")
	assert.ErrorIs(t, err, servo.ErrOutOfRange)
}

func TestEnableDisableReadAngles(t *testing.T) {
	ctx := context.Background()
	r, err := Open(testConfig(), Options{})
	require.NoError(t, err)

	require.NoError(t, r.EnableAll(ctx))
	bus := r.Transport().(*sim.Bus)
	assert.Equal(t, int32(1), bus.Device(2).Get(profile.TorqueEnable))

	j, _ := r.Joint("pan")
	_, err = j.Session.CommandAngle(ctx, 45)
	require.NoError(t, err)

	angles, err := r.ReadAngles(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 45, angles["pan"], 0.01)

	require.NoError(t, r.Close(ctx))
	assert.Equal(t, int32(0), bus.Device(1).Get(profile.TorqueEnable))
	assert.Equal(t, int32(0), bus.Device(2).Get(profile.TorqueEnable))
}

func TestOpenTransport_UnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.Transport.Backend = "can"
	_, err := Open(cfg, Options{})
	assert.Error(t, err)
}
