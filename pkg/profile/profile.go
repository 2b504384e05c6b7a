// Package profile holds the per-family register layout, unit scales and
// hardware ceilings for the supported servo families.
//
// A Profile is selected once when a servo session is created and is never
// mutated afterwards. Callers look up registers by Operation instead of
// branching on the family.
package profile

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupported is returned when a family has no register for an operation.
var ErrUnsupported = errors.New("operation not supported by servo family")

// Family identifies a servo product family.
type Family int

const (
	// Compact is the MX-64 class: 4096 codes per turn, 0..360 degrees.
	Compact Family = iota + 1
	// Pro is the Pro M42 class: signed codes over -180..180 degrees.
	Pro
)

func (f Family) String() string {
	switch f {
	case Compact:
		return "compact"
	case Pro:
		return "pro"
	default:
		return fmt.Sprintf("family(%d)", int(f))
	}
}

// ParseFamily accepts a family name or a model alias.
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "compact", "mx", "mx64", "mx-64":
		return Compact, nil
	case "pro", "m42", "pro-m42", "prom42":
		return Pro, nil
	}
	return 0, fmt.Errorf("unknown servo family %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (f Family) MarshalText() ([]byte, error) {
	if f != Compact && f != Pro {
		return nil, fmt.Errorf("unknown servo family %d", int(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Family) UnmarshalText(b []byte) error {
	parsed, err := ParseFamily(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Width is the size of a register in bytes.
type Width uint8

const (
	Byte  Width = 1
	Word  Width = 2
	DWord Width = 4
)

// Register is a control-table location.
type Register struct {
	Address uint16
	Width   Width
}

func (r Register) String() string {
	return fmt.Sprintf("%d/%d", r.Address, r.Width)
}

// Scales are the physical units represented by one register code.
type Scales struct {
	Position     float64 // degrees
	Current      float64 // amperes
	Velocity     float64 // rpm
	Acceleration float64 // rev/min^2
}

// Caps are the hardware ceilings and safe windows of a family.
type Caps struct {
	CurrentCode int32
	CurrentAmps float64

	VelocityCode int32
	VelocityRPM  float64

	AccelerationCode int32

	// Goal position window in codes and in degrees.
	PositionMin int32
	PositionMax int32
	AngleMin    float64
	AngleMax    float64

	// Range accepted by the min/max position limit registers.
	PositionLimitMin int64
	PositionLimitMax int64

	LEDMax        int32
	ExternalPorts int
}

// Presets are the named limit values offered as one-call helpers.
type Presets struct {
	Velocity80RPM   int32
	LowAcceleration int32
}

// Profile describes one servo family.
type Profile struct {
	Family  Family
	Model   string
	Scales  Scales
	Caps    Caps
	Presets Presets

	registers map[Operation]Register
	modes     map[Mode]uint8
}

// For returns the profile of a family.
func For(f Family) (*Profile, error) {
	switch f {
	case Compact:
		return &compact, nil
	case Pro:
		return &pro, nil
	}
	return nil, fmt.Errorf("profile for %v: %w", f, ErrUnsupported)
}

// MustFor is like For but panics on an unknown family.
func MustFor(f Family) *Profile {
	p, err := For(f)
	if err != nil {
		panic(err)
	}
	return p
}

// Register resolves the control-table location of an operation.
func (p *Profile) Register(op Operation) (Register, error) {
	r, ok := p.registers[op]
	if !ok {
		return Register{}, fmt.Errorf("%s on %s: %w", op, p.Family, ErrUnsupported)
	}
	return r, nil
}

// Supports reports whether the family has a register for op.
func (p *Profile) Supports(op Operation) bool {
	_, ok := p.registers[op]
	return ok
}

// ExternalPort returns the mode and data registers of port n (1-based).
func (p *Profile) ExternalPort(n int) (mode, data Register, err error) {
	if n < 1 || n > p.Caps.ExternalPorts {
		return Register{}, Register{}, fmt.Errorf("external port %d on %s: %w", n, p.Family, ErrUnsupported)
	}
	mode, err = p.Register(ExternalPortMode1 + Operation(n-1))
	if err != nil {
		return Register{}, Register{}, err
	}
	data, err = p.Register(ExternalPortData1 + Operation(n-1))
	if err != nil {
		return Register{}, Register{}, err
	}
	return mode, data, nil
}

// Modes returns the operating modes the family supports, in code order.
func (p *Profile) Modes() []Mode {
	var out []Mode
	for _, m := range allModes {
		if _, ok := p.modes[m]; ok {
			out = append(out, m)
		}
	}
	return out
}

// SupportsMode reports whether m is a valid operating mode for the family.
func (p *Profile) SupportsMode(m Mode) bool {
	_, ok := p.modes[m]
	return ok
}

// ModeCode returns the register value selecting m.
func (p *Profile) ModeCode(m Mode) (uint8, error) {
	code, ok := p.modes[m]
	if !ok {
		return 0, fmt.Errorf("%s mode on %s: %w", m, p.Family, ErrUnsupported)
	}
	return code, nil
}

// ModeOf maps a register value back to a mode.
func (p *Profile) ModeOf(code uint8) (Mode, bool) {
	for m, c := range p.modes {
		if c == code {
			return m, true
		}
	}
	return 0, false
}

// PositionGains lists the position-loop gain registers of the family.
func (p *Profile) PositionGains() []Operation {
	var out []Operation
	for _, op := range []Operation{PositionPGain, PositionIGain, PositionDGain, FeedForward1Gain, FeedForward2Gain} {
		if p.Supports(op) {
			out = append(out, op)
		}
	}
	return out
}

// LEDs lists the LED channel registers of the family.
func (p *Profile) LEDs() []Operation {
	var out []Operation
	for _, op := range []Operation{LED, LEDRed, LEDGreen, LEDBlue} {
		if p.Supports(op) {
			out = append(out, op)
		}
	}
	return out
}
