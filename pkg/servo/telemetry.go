package servo

import (
	"context"
	"time"

	"github.com/gwillem/dxlservo/pkg/convert"
	"github.com/gwillem/dxlservo/pkg/profile"
)

// ReadPosition reads the present position code.
func (s *Session) ReadPosition(ctx context.Context) (int32, error) {
	v, err := s.readSigned(ctx, profile.PresentPosition)
	if err != nil {
		return 0, err
	}
	s.state.Position = v
	return v, nil
}

// ReadAngle reads the present position in degrees, homing offset applied.
func (s *Session) ReadAngle(ctx context.Context) (float64, error) {
	pos, err := s.ReadPosition(ctx)
	if err != nil {
		return 0, err
	}
	return s.conv.CodeToAngle(pos, s.state.HomingOffset), nil
}

// ReadTemperature reads the present temperature in degrees Celsius.
// On the compact family the sensor sits on the PCB, not in the motor.
func (s *Session) ReadTemperature(ctx context.Context) (int32, error) {
	v, err := s.readSigned(ctx, profile.PresentTemperature)
	if err != nil {
		return 0, err
	}
	s.state.Temperature = v
	return v, nil
}

// ReadCurrentCode reads the signed present current code.
func (s *Session) ReadCurrentCode(ctx context.Context) (int32, error) {
	v, err := s.readSigned(ctx, profile.PresentCurrent)
	if err != nil {
		return 0, err
	}
	s.state.Current = v
	return v, nil
}

// ReadCurrent reads the present current in amperes.
func (s *Session) ReadCurrent(ctx context.Context) (float64, error) {
	v, err := s.ReadCurrentCode(ctx)
	if err != nil {
		return 0, err
	}
	return s.conv.ToPhysical(convert.Current, v), nil
}

// ReadVelocity reads the present velocity in rpm.
func (s *Session) ReadVelocity(ctx context.Context) (float64, error) {
	v, err := s.readSigned(ctx, profile.PresentVelocity)
	if err != nil {
		return 0, err
	}
	s.state.Velocity = v
	return s.conv.ToPhysical(convert.Velocity, v), nil
}

// ReadHomingOffset reads the homing offset and caches it for angle
// conversions.
func (s *Session) ReadHomingOffset(ctx context.Context) (int32, error) {
	v, err := s.readSigned(ctx, profile.HomingOffset)
	if err != nil {
		return 0, err
	}
	s.state.HomingOffset = v
	return v, nil
}

// SetHomingOffset writes the homing offset.
func (s *Session) SetHomingOffset(ctx context.Context, code int32) error {
	span := s.prof.Caps.PositionMax - s.prof.Caps.PositionMin
	if code < -span || code > span {
		return invalid("set homing offset", code, ErrOutOfRange)
	}
	r, err := s.reg(profile.HomingOffset)
	if err != nil {
		return err
	}
	if err := s.io.WriteSigned(ctx, r, code); err != nil {
		return err
	}
	s.state.HomingOffset = code
	return nil
}

// IsMoving reads the motion status flag.
func (s *Session) IsMoving(ctx context.Context) (bool, error) {
	r, err := s.reg(profile.Moving)
	if err != nil {
		return false, err
	}
	v, err := s.io.Read(ctx, r)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// Snapshot is a point-in-time reading of a servo.
type Snapshot struct {
	Time        time.Time
	ServoID     uint8
	Position    int32
	Angle       float64
	Temperature int32
	Current     float64
	Velocity    float64
	Moving      bool
	Status      uint8
}

// Snapshot reads position, temperature, current, velocity, motion and
// hardware status in one pass. It stops at the first failure.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{Time: s.now(), ServoID: s.ID()}
	var err error
	if snap.Angle, err = s.ReadAngle(ctx); err != nil {
		return snap, err
	}
	snap.Position = s.state.Position
	if snap.Temperature, err = s.ReadTemperature(ctx); err != nil {
		return snap, err
	}
	if snap.Current, err = s.ReadCurrent(ctx); err != nil {
		return snap, err
	}
	if snap.Velocity, err = s.ReadVelocity(ctx); err != nil {
		return snap, err
	}
	if snap.Moving, err = s.IsMoving(ctx); err != nil {
		return snap, err
	}
	if snap.Status, err = s.ReadHardwareStatus(ctx); err != nil {
		return snap, err
	}
	return snap, nil
}

func (s *Session) readSigned(ctx context.Context, op profile.Operation) (int32, error) {
	r, err := s.reg(op)
	if err != nil {
		return 0, err
	}
	return s.io.ReadSigned(ctx, r)
}
