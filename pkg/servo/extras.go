package servo

import (
	"context"
	"fmt"

	"github.com/gwillem/dxlservo/pkg/profile"
)

// SetLED sets every LED channel to value, clamped to the channel maximum.
// The compact family has a single on/off LED.
func (s *Session) SetLED(ctx context.Context, value int32) error {
	for _, op := range s.prof.LEDs() {
		if err := s.setLEDChannel(ctx, op, value); err != nil {
			return err
		}
	}
	return nil
}

// SetLEDColor sets the red, green and blue channels.
func (s *Session) SetLEDColor(ctx context.Context, r, g, b int32) error {
	for _, ch := range []struct {
		op profile.Operation
		v  int32
	}{{profile.LEDRed, r}, {profile.LEDGreen, g}, {profile.LEDBlue, b}} {
		if err := s.setLEDChannel(ctx, ch.op, ch.v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) setLEDChannel(ctx context.Context, op profile.Operation, value int32) error {
	if value < 0 {
		return invalid("set "+op.String(), value, ErrOutOfRange)
	}
	r, err := s.reg(op)
	if err != nil {
		return err
	}
	if ceiling := s.prof.Caps.LEDMax; value > ceiling {
		s.notice(NoticeClamped, "%s %d clamped to %d", op, value, ceiling)
		value = ceiling
	}
	return s.io.Write(ctx, r, uint32(value))
}

// PortMode is the function of an external port.
type PortMode uint8

const (
	PortAnalogInput PortMode = iota
	PortOutput
	PortPullUpInput
	PortPullUpOutput
)

func (m PortMode) String() string {
	switch m {
	case PortAnalogInput:
		return "analog input"
	case PortOutput:
		return "output"
	case PortPullUpInput:
		return "pull-up input"
	case PortPullUpOutput:
		return "pull-up output"
	default:
		return fmt.Sprintf("port mode %d", uint8(m))
	}
}

// IsInput reports whether the port only reads.
func (m PortMode) IsInput() bool {
	return m == PortAnalogInput || m == PortPullUpInput
}

// SetExternalPortMode selects the function of port (1-based).
func (s *Session) SetExternalPortMode(ctx context.Context, port int, mode PortMode) error {
	if mode > PortPullUpOutput {
		return invalid("set external port mode", mode, ErrOutOfRange)
	}
	modeReg, _, err := s.prof.ExternalPort(port)
	if err != nil {
		return invalid("set external port mode", port, err)
	}
	if err := s.io.Write(ctx, modeReg, uint32(mode)); err != nil {
		return err
	}
	s.state.PortModes[port-1] = mode
	return nil
}

// SetExternalPortData drives an output port low (0) or high (1). Ports in
// an input mode are refused.
func (s *Session) SetExternalPortData(ctx context.Context, port int, level int32) error {
	_, dataReg, err := s.prof.ExternalPort(port)
	if err != nil {
		return invalid("set external port data", port, err)
	}
	if m := s.state.PortModes[port-1]; m.IsInput() {
		return invalid("set external port data", port, fmt.Errorf("%w (%s)", ErrInputPort, m))
	}
	if level != 0 && level != 1 {
		return invalid("set external port data", level, ErrOutOfRange)
	}
	return s.io.Write(ctx, dataReg, uint32(level))
}

// ReadExternalPortData reads the data register of port.
func (s *Session) ReadExternalPortData(ctx context.Context, port int) (int32, error) {
	_, dataReg, err := s.prof.ExternalPort(port)
	if err != nil {
		return 0, invalid("read external port data", port, err)
	}
	v, err := s.io.Read(ctx, dataReg)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

// Gains are position-loop gains. The pro family only has P; other fields
// are ignored there.
type Gains struct {
	P, I, D  uint16
	FF1, FF2 uint16
}

func (g *Gains) field(op profile.Operation) *uint16 {
	switch op {
	case profile.PositionPGain:
		return &g.P
	case profile.PositionIGain:
		return &g.I
	case profile.PositionDGain:
		return &g.D
	case profile.FeedForward1Gain:
		return &g.FF1
	case profile.FeedForward2Gain:
		return &g.FF2
	}
	return nil
}

// SetPositionGains writes the gains the family supports.
func (s *Session) SetPositionGains(ctx context.Context, g Gains) error {
	for _, op := range s.prof.PositionGains() {
		r, err := s.reg(op)
		if err != nil {
			return err
		}
		if err := s.io.Write(ctx, r, uint32(*g.field(op))); err != nil {
			return err
		}
	}
	return nil
}

// ReadPositionGains reads the gains the family supports.
func (s *Session) ReadPositionGains(ctx context.Context) (Gains, error) {
	var g Gains
	for _, op := range s.prof.PositionGains() {
		r, err := s.reg(op)
		if err != nil {
			return Gains{}, err
		}
		v, err := s.io.Read(ctx, r)
		if err != nil {
			return Gains{}, err
		}
		*g.field(op) = uint16(v)
	}
	return g, nil
}
