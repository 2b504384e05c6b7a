package servo

import (
	"context"
	"fmt"

	"github.com/gwillem/dxlservo/pkg/profile"
)

// EnableTorque energizes the motor. Refused while the servo is cooling
// down after an overheat.
func (s *Session) EnableTorque(ctx context.Context) error {
	if err := s.checkLockout("enable torque"); err != nil {
		return err
	}
	if err := s.writeByte(ctx, profile.TorqueEnable, 1); err != nil {
		return err
	}
	s.state.TorqueEnabled = true
	return nil
}

// DisableTorque releases the motor.
func (s *Session) DisableTorque(ctx context.Context) error {
	if err := s.writeByte(ctx, profile.TorqueEnable, 0); err != nil {
		return err
	}
	s.state.TorqueEnabled = false
	return nil
}

// ReadTorqueEnabled reads the torque enable register.
func (s *Session) ReadTorqueEnabled(ctx context.Context) (bool, error) {
	r, err := s.reg(profile.TorqueEnable)
	if err != nil {
		return false, err
	}
	v, err := s.io.Read(ctx, r)
	if err != nil {
		return false, err
	}
	s.state.TorqueEnabled = v != 0
	return s.state.TorqueEnabled, nil
}

// SetOperatingMode writes the operating mode. Torque must be disabled for
// the device to accept it.
func (s *Session) SetOperatingMode(ctx context.Context, m profile.Mode) error {
	code, err := s.prof.ModeCode(m)
	if err != nil {
		return invalid("set operating mode", m, err)
	}
	if err := s.writeByte(ctx, profile.OperatingMode, uint32(code)); err != nil {
		return err
	}
	s.state.Mode = m
	return nil
}

// ReadOperatingMode reads the operating mode register.
func (s *Session) ReadOperatingMode(ctx context.Context) (profile.Mode, error) {
	r, err := s.reg(profile.OperatingMode)
	if err != nil {
		return 0, err
	}
	v, err := s.io.Read(ctx, r)
	if err != nil {
		return 0, err
	}
	m, ok := s.prof.ModeOf(uint8(v))
	if !ok {
		return 0, fmt.Errorf("servo %d: unknown operating mode code %d", s.ID(), v)
	}
	s.state.Mode = m
	return m, nil
}

// CheckPositionMode reports whether the servo is in a position-controlled
// mode and raises a notice when it is not.
func (s *Session) CheckPositionMode(ctx context.Context) (bool, error) {
	m, err := s.ReadOperatingMode(ctx)
	if err != nil {
		return false, err
	}
	switch m {
	case profile.ModePosition, profile.ModeExtendedPosition, profile.ModeCurrentBasedPosition:
		return true, nil
	}
	s.notice(NoticeModeMismatch, "servo is in %s mode, goal positions will be ignored", m)
	return false, nil
}

func (s *Session) writeByte(ctx context.Context, op profile.Operation, v uint32) error {
	r, err := s.reg(op)
	if err != nil {
		return err
	}
	return s.io.Write(ctx, r, v)
}
