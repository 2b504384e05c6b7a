package servo

import (
	"context"
	"math"

	"github.com/gwillem/dxlservo/pkg/convert"
	"github.com/gwillem/dxlservo/pkg/profile"
)

// Limits below this share of the family ceiling raise NoticeUnderPowered.
const underPoweredRatio = 0.2

// Bound selects the lower or upper position limit.
type Bound int

const (
	Min Bound = iota
	Max
)

func (b Bound) String() string {
	if b == Min {
		return "min"
	}
	return "max"
}

type limitKind struct {
	name     string
	op       profile.Operation
	quantity convert.Quantity
	ceiling  func(profile.Caps) int32
	motion   bool // zero is rejected
	slot     func(*Limits) *convert.Limit
}

var (
	currentLimit = limitKind{
		name:     "current limit",
		op:       profile.CurrentLimit,
		quantity: convert.Current,
		ceiling:  func(c profile.Caps) int32 { return c.CurrentCode },
		slot:     func(l *Limits) *convert.Limit { return &l.Current },
	}
	velocityLimit = limitKind{
		name:     "velocity limit",
		op:       profile.VelocityLimit,
		quantity: convert.Velocity,
		ceiling:  func(c profile.Caps) int32 { return c.VelocityCode },
		motion:   true,
		slot:     func(l *Limits) *convert.Limit { return &l.Velocity },
	}
	accelerationLimit = limitKind{
		name:     "acceleration limit",
		op:       profile.AccelerationLimit,
		quantity: convert.Acceleration,
		ceiling:  func(c profile.Caps) int32 { return c.AccelerationCode },
		motion:   true,
		slot:     func(l *Limits) *convert.Limit { return &l.Acceleration },
	}
)

// SetCurrentLimit writes the current limit in codes.
func (s *Session) SetCurrentLimit(ctx context.Context, code int32) error {
	return s.setLimit(ctx, currentLimit, code)
}

// SetVelocityLimit writes the velocity limit in codes.
func (s *Session) SetVelocityLimit(ctx context.Context, code int32) error {
	return s.setLimit(ctx, velocityLimit, code)
}

// SetAccelerationLimit writes the acceleration limit in codes.
func (s *Session) SetAccelerationLimit(ctx context.Context, code int32) error {
	return s.setLimit(ctx, accelerationLimit, code)
}

// SetCurrentLimitAmps writes the current limit in amperes. The value is
// converted against the limit already configured, so this can lower the
// limit but never raise it past what the session knows.
func (s *Session) SetCurrentLimitAmps(ctx context.Context, amps float64) error {
	if amps > s.prof.Caps.CurrentAmps {
		return invalid("set current limit", amps, ErrOutOfRange)
	}
	return s.setLimitPhysical(ctx, currentLimit, amps)
}

// SetVelocityLimitRPM writes the velocity limit in rpm. See
// SetCurrentLimitAmps for how the value is bounded.
func (s *Session) SetVelocityLimitRPM(ctx context.Context, rpm float64) error {
	if rpm > s.prof.Caps.VelocityRPM {
		return invalid("set velocity limit", rpm, ErrOutOfRange)
	}
	return s.setLimitPhysical(ctx, velocityLimit, rpm)
}

// SetAccelerationLimitRPM2 writes the acceleration limit in rev/min^2.
func (s *Session) SetAccelerationLimitRPM2(ctx context.Context, accel float64) error {
	return s.setLimitPhysical(ctx, accelerationLimit, accel)
}

// SetMaxCurrentLimit sets the current limit to the family ceiling.
func (s *Session) SetMaxCurrentLimit(ctx context.Context) error {
	return s.setLimit(ctx, currentLimit, s.prof.Caps.CurrentCode)
}

// SetVelocityLimit80RPM sets the velocity limit to roughly 80 rpm.
func (s *Session) SetVelocityLimit80RPM(ctx context.Context) error {
	return s.setLimit(ctx, velocityLimit, s.prof.Presets.Velocity80RPM)
}

// SetLowAccelerationLimit sets a gentle acceleration limit.
func (s *Session) SetLowAccelerationLimit(ctx context.Context) error {
	return s.setLimit(ctx, accelerationLimit, s.prof.Presets.LowAcceleration)
}

func (s *Session) setLimitPhysical(ctx context.Context, k limitKind, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return invalid("set "+k.name, value, ErrOutOfRange)
	}
	if k.motion && value == 0 {
		return invalid("set "+k.name, value, ErrZeroMotion)
	}
	res, err := s.conv.ToCode(k.quantity, value, *k.slot(&s.state.Limits))
	if err != nil {
		return invalid("set "+k.name, value, err)
	}
	if res.Clamped {
		s.notice(NoticeClamped, "%s %.4g %s exceeds configured limit, clamped to code %d",
			k.name, value, k.quantity.Unit(), res.Code)
	}
	return s.setLimit(ctx, k, res.Code)
}

func (s *Session) setLimit(ctx context.Context, k limitKind, code int32) error {
	ceiling := k.ceiling(s.prof.Caps)
	switch {
	case k.motion && code == 0:
		return invalid("set "+k.name, code, ErrZeroMotion)
	case code < 0 || code > ceiling:
		return invalid("set "+k.name, code, ErrOutOfRange)
	}
	r, err := s.reg(k.op)
	if err != nil {
		return err
	}
	if err := s.io.Write(ctx, r, uint32(code)); err != nil {
		return err
	}
	*k.slot(&s.state.Limits) = convert.LimitOf(code)

	if float64(code) < underPoweredRatio*float64(ceiling) {
		s.notice(NoticeUnderPowered, "%s %d is below %.0f%% of the %s ceiling %d",
			k.name, code, underPoweredRatio*100, s.prof.Family, ceiling)
	}
	return nil
}

// SetPositionLimit writes the lower or upper position limit in codes.
func (s *Session) SetPositionLimit(ctx context.Context, b Bound, code int32) error {
	op := "set " + b.String() + " position limit"
	caps := s.prof.Caps
	if int64(code) < caps.PositionLimitMin || int64(code) > caps.PositionLimitMax {
		return invalid(op, code, ErrOutOfRange)
	}
	l := s.state.Limits
	if b == Min && l.PositionMax.Set && code > l.PositionMax.Code ||
		b == Max && l.PositionMin.Set && code < l.PositionMin.Code {
		return invalid(op, code, ErrOutOfRange)
	}

	target := profile.MinPositionLimit
	if b == Max {
		target = profile.MaxPositionLimit
	}
	r, err := s.reg(target)
	if err != nil {
		return err
	}
	if err := s.io.WriteSigned(ctx, r, code); err != nil {
		return err
	}
	if b == Min {
		s.state.Limits.PositionMin = convert.LimitOf(code)
	} else {
		s.state.Limits.PositionMax = convert.LimitOf(code)
	}
	return nil
}

// SetPositionLimitAngle writes a position limit given in degrees.
func (s *Session) SetPositionLimitAngle(ctx context.Context, b Bound, deg float64) error {
	caps := s.prof.Caps
	if math.IsNaN(deg) || deg < caps.AngleMin || deg > caps.AngleMax {
		return invalid("set "+b.String()+" position limit", deg, ErrOutOfRange)
	}
	return s.SetPositionLimit(ctx, b, s.conv.AngleToCode(deg, s.state.HomingOffset))
}

// SetProfileVelocity writes the trajectory velocity in codes. It must not
// exceed the configured velocity limit.
func (s *Session) SetProfileVelocity(ctx context.Context, code int32) error {
	if err := s.checkProfile("set profile velocity", code, s.state.Limits.Velocity); err != nil {
		return err
	}
	if err := s.writeUnsigned(ctx, profile.ProfileVelocity, code); err != nil {
		return err
	}
	s.state.ProfileVelocity = code
	return nil
}

// SetProfileVelocityRPM writes the trajectory velocity in rpm.
func (s *Session) SetProfileVelocityRPM(ctx context.Context, rpm float64) error {
	code, err := s.profileCode("profile velocity", convert.Velocity, rpm, s.state.Limits.Velocity)
	if err != nil {
		return err
	}
	return s.SetProfileVelocity(ctx, code)
}

// SetProfileAcceleration writes the trajectory acceleration in codes. It
// must not exceed the configured acceleration limit.
func (s *Session) SetProfileAcceleration(ctx context.Context, code int32) error {
	if err := s.checkProfile("set profile acceleration", code, s.state.Limits.Acceleration); err != nil {
		return err
	}
	if err := s.writeUnsigned(ctx, profile.ProfileAcceleration, code); err != nil {
		return err
	}
	s.state.ProfileAcceleration = code
	return nil
}

// SetProfileAccelerationRPM2 writes the trajectory acceleration in rev/min^2.
func (s *Session) SetProfileAccelerationRPM2(ctx context.Context, accel float64) error {
	code, err := s.profileCode("profile acceleration", convert.Acceleration, accel, s.state.Limits.Acceleration)
	if err != nil {
		return err
	}
	return s.SetProfileAcceleration(ctx, code)
}

func (s *Session) checkProfile(op string, code int32, limit convert.Limit) error {
	switch {
	case code == 0:
		return invalid(op, code, ErrZeroMotion)
	case !limit.Set:
		return invalid(op, code, ErrLimitNotConfigured)
	case code < 0 || code > limit.Code:
		return invalid(op, code, ErrOutOfRange)
	}
	return nil
}

func (s *Session) profileCode(name string, q convert.Quantity, value float64, limit convert.Limit) (int32, error) {
	op := "set " + name
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, invalid(op, value, ErrOutOfRange)
	}
	if value == 0 {
		return 0, invalid(op, value, ErrZeroMotion)
	}
	res, err := s.conv.ToCode(q, value, limit)
	if err != nil {
		return 0, invalid(op, value, err)
	}
	if res.Clamped {
		s.notice(NoticeClamped, "%s %.4g %s exceeds the %s limit, clamped to code %d", name, value, q.Unit(), q, res.Code)
	}
	return res.Code, nil
}

func (s *Session) writeUnsigned(ctx context.Context, op profile.Operation, code int32) error {
	r, err := s.reg(op)
	if err != nil {
		return err
	}
	return s.io.Write(ctx, r, uint32(code))
}

// ReadCurrentLimit reads the current limit and caches it.
func (s *Session) ReadCurrentLimit(ctx context.Context) (int32, error) {
	return s.readLimit(ctx, currentLimit)
}

// ReadVelocityLimit reads the velocity limit and caches it.
func (s *Session) ReadVelocityLimit(ctx context.Context) (int32, error) {
	return s.readLimit(ctx, velocityLimit)
}

// ReadAccelerationLimit reads the acceleration limit and caches it.
func (s *Session) ReadAccelerationLimit(ctx context.Context) (int32, error) {
	return s.readLimit(ctx, accelerationLimit)
}

func (s *Session) readLimit(ctx context.Context, k limitKind) (int32, error) {
	r, err := s.reg(k.op)
	if err != nil {
		return 0, err
	}
	v, err := s.io.Read(ctx, r)
	if err != nil {
		return 0, err
	}
	*k.slot(&s.state.Limits) = convert.LimitOf(int32(v))
	return int32(v), nil
}

// ReadPositionLimits reads both position limits and caches them.
func (s *Session) ReadPositionLimits(ctx context.Context) (lo, hi int32, err error) {
	if lo, err = s.readSigned(ctx, profile.MinPositionLimit); err != nil {
		return 0, 0, err
	}
	if hi, err = s.readSigned(ctx, profile.MaxPositionLimit); err != nil {
		return 0, 0, err
	}
	s.state.Limits.PositionMin = convert.LimitOf(lo)
	s.state.Limits.PositionMax = convert.LimitOf(hi)
	return lo, hi, nil
}

// ReadProfileVelocity reads the trajectory velocity register.
func (s *Session) ReadProfileVelocity(ctx context.Context) (int32, error) {
	v, err := s.readSigned(ctx, profile.ProfileVelocity)
	if err != nil {
		return 0, err
	}
	s.state.ProfileVelocity = v
	return v, nil
}

// ReadProfileAcceleration reads the trajectory acceleration register.
func (s *Session) ReadProfileAcceleration(ctx context.Context) (int32, error) {
	v, err := s.readSigned(ctx, profile.ProfileAcceleration)
	if err != nil {
		return 0, err
	}
	s.state.ProfileAcceleration = v
	return v, nil
}

// SyncLimits reads every limit and the homing offset from the device.
func (s *Session) SyncLimits(ctx context.Context) (Limits, error) {
	for _, k := range []limitKind{currentLimit, velocityLimit, accelerationLimit} {
		if _, err := s.readLimit(ctx, k); err != nil {
			return s.state.Limits, err
		}
	}
	if _, _, err := s.ReadPositionLimits(ctx); err != nil {
		return s.state.Limits, err
	}
	if _, err := s.ReadHomingOffset(ctx); err != nil {
		return s.state.Limits, err
	}
	return s.state.Limits, nil
}
