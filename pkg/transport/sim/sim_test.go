package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/dxlservo/pkg/profile"
	"github.com/gwillem/dxlservo/pkg/transport"
)

func TestBus_GoalSettles(t *testing.T) {
	ctx := context.Background()
	bus := NewBus(transport.Protocol2)
	dev := bus.AddDevice(1, profile.Compact)
	dev.SettlePolls = 2

	require.NoError(t, bus.Write(ctx, 1, 116, profile.DWord, 2000))

	for _, want := range []uint32{1, 1, 0} {
		v, err := bus.Read(ctx, 1, 122, profile.Byte)
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}

	pos, err := bus.Read(ctx, 1, 132, profile.DWord)
	require.NoError(t, err)
	assert.Equal(t, uint32(2000), pos)
	assert.Equal(t, 3, dev.Reads(profile.Moving))
}

func TestBus_GoalOutsideLimits(t *testing.T) {
	ctx := context.Background()
	bus := NewBus(transport.Protocol2)
	dev := bus.AddDevice(1, profile.Pro)
	dev.Set(profile.MaxPositionLimit, 1000)

	err := bus.Write(ctx, 1, 596, profile.DWord, 2000)
	var de *transport.DeviceError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, transport.DeviceDataLimit, de.Code)
	assert.Empty(t, dev.Writes())
}

func TestBus_MissingDevice(t *testing.T) {
	bus := NewBus(transport.Protocol2)
	_, err := bus.Read(context.Background(), 9, 122, profile.Byte)
	assert.True(t, transport.IsComm(err))
}

func TestBus_HardwareAlert(t *testing.T) {
	ctx := context.Background()
	bus := NewBus(transport.Protocol2)
	dev := bus.AddDevice(1, profile.Compact)
	dev.SetHardwareError(0x20)

	err := bus.Write(ctx, 1, 64, profile.Byte, 1)
	assert.True(t, transport.IsDevice(err))

	status, err := bus.Read(ctx, 1, 70, profile.Byte)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x20), status)

	require.NoError(t, bus.Reboot(ctx, 1))
	assert.Equal(t, int32(0), dev.Get(profile.HardwareErrorStatus))
	assert.Equal(t, 1, dev.Reboots())
}

func TestBus_RebootProtocol1(t *testing.T) {
	bus := NewBus(transport.Protocol1)
	bus.AddDevice(1, profile.Compact)
	err := bus.Reboot(context.Background(), 1)
	var ce *transport.CommError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, transport.CommNotAvailable, ce.Result)
}

func TestBus_FailNext(t *testing.T) {
	ctx := context.Background()
	bus := NewBus(transport.Protocol2)
	dev := bus.AddDevice(1, profile.Compact)
	dev.FailNext(profile.PresentTemperature, &transport.CommError{Result: transport.CommRxCorrupt})

	_, err := bus.Read(ctx, 1, 146, profile.Byte)
	assert.True(t, transport.IsComm(err))

	v, err := bus.Read(ctx, 1, 146, profile.Byte)
	require.NoError(t, err)
	assert.Equal(t, uint32(35), v)
}

func TestBus_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus := NewBus(transport.Protocol2)
	bus.AddDevice(1, profile.Compact)
	err := bus.Write(ctx, 1, 64, profile.Byte, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
