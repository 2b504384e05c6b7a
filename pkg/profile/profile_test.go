package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFor(t *testing.T) {
	c, err := For(Compact)
	require.NoError(t, err)
	assert.Equal(t, Compact, c.Family)
	assert.Equal(t, "MX-64", c.Model)

	p, err := For(Pro)
	require.NoError(t, err)
	assert.Equal(t, Pro, p.Family)

	_, err = For(Family(42))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestRegister(t *testing.T) {
	tests := []struct {
		family Family
		op     Operation
		want   Register
	}{
		{Compact, GoalPosition, Register{116, DWord}},
		{Compact, Moving, Register{122, Byte}},
		{Compact, CurrentLimit, Register{38, Word}},
		{Compact, PresentTemperature, Register{146, Byte}},
		{Pro, GoalPosition, Register{596, DWord}},
		{Pro, TorqueEnable, Register{562, Byte}},
		{Pro, HardwareErrorStatus, Register{892, Byte}},
		{Pro, ProfileVelocity, Register{600, DWord}},
		{Pro, ProfileAcceleration, Register{606, DWord}},
	}

	for _, tt := range tests {
		t.Run(tt.family.String()+"/"+tt.op.String(), func(t *testing.T) {
			got, err := MustFor(tt.family).Register(tt.op)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegister_Unsupported(t *testing.T) {
	tests := []struct {
		family Family
		op     Operation
	}{
		{Compact, LEDRed},
		{Compact, ExternalPortData1},
		{Pro, LED},
		{Pro, PositionIGain},
		{Pro, FeedForward2Gain},
	}

	for _, tt := range tests {
		_, err := MustFor(tt.family).Register(tt.op)
		assert.ErrorIs(t, err, ErrUnsupported, "%s %s", tt.family, tt.op)
	}
}

func TestModes(t *testing.T) {
	c := MustFor(Compact)
	p := MustFor(Pro)

	assert.True(t, c.SupportsMode(ModePWM))
	assert.True(t, c.SupportsMode(ModeCurrentBasedPosition))
	assert.False(t, p.SupportsMode(ModePWM))
	assert.False(t, p.SupportsMode(ModeCurrentBasedPosition))

	code, err := c.ModeCode(ModeExtendedPosition)
	require.NoError(t, err)
	assert.Equal(t, uint8(4), code)

	_, err = p.ModeCode(ModePWM)
	assert.ErrorIs(t, err, ErrUnsupported)

	m, ok := p.ModeOf(3)
	assert.True(t, ok)
	assert.Equal(t, ModePosition, m)

	assert.Equal(t, []Mode{ModeCurrent, ModeVelocity, ModePosition, ModeExtendedPosition}, p.Modes())
}

func TestExternalPort(t *testing.T) {
	mode, data, err := MustFor(Pro).ExternalPort(3)
	require.NoError(t, err)
	assert.Equal(t, uint16(46), mode.Address)
	assert.Equal(t, uint16(630), data.Address)

	_, _, err = MustFor(Pro).ExternalPort(5)
	assert.ErrorIs(t, err, ErrUnsupported)
	_, _, err = MustFor(Compact).ExternalPort(1)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestGainsAndLEDs(t *testing.T) {
	assert.Len(t, MustFor(Compact).PositionGains(), 5)
	assert.Equal(t, []Operation{PositionPGain}, MustFor(Pro).PositionGains())
	assert.Equal(t, []Operation{LED}, MustFor(Compact).LEDs())
	assert.Equal(t, []Operation{LEDRed, LEDGreen, LEDBlue}, MustFor(Pro).LEDs())
}

func TestParseFamily(t *testing.T) {
	for in, want := range map[string]Family{
		"compact": Compact,
		"MX-64":   Compact,
		"pro":     Pro,
		" M42 ":   Pro,
	} {
		got, err := ParseFamily(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFamily("ax-12")
	assert.Error(t, err)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("extended-position")
	require.NoError(t, err)
	assert.Equal(t, ModeExtendedPosition, m)

	_, err = ParseMode("servo")
	assert.Error(t, err)
}
