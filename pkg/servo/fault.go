package servo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gwillem/dxlservo/pkg/profile"
)

// OverheatCooldown is how long a servo must stay unpowered after an
// overheat shutdown.
const OverheatCooldown = 30 * time.Minute

const warningRatio = 0.9

// Level grades a reading against its limit.
type Level int

const (
	LevelNominal Level = iota
	LevelWarning
	LevelExceeded
)

func (l Level) String() string {
	switch l {
	case LevelNominal:
		return "nominal"
	case LevelWarning:
		return "warning"
	case LevelExceeded:
		return "exceeded"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Classify grades value against limit: below 90% is nominal, from 90% up
// to the limit a warning, at or above the limit exceeded.
func Classify(value, limit float64) Level {
	switch {
	case value >= limit:
		return LevelExceeded
	case value >= warningRatio*limit:
		return LevelWarning
	default:
		return LevelNominal
	}
}

// Reading is a graded temperature or current measurement.
type Reading struct {
	Value float64
	Limit float64
	Unit  string
	Level Level
	// Diagnosis is set when an exceeded reading triggered a shutdown check.
	Diagnosis *Diagnosis
}

// CheckTemperature compares the present temperature with the device's
// temperature limit. An exceeded reading runs CheckShutdown.
func (s *Session) CheckTemperature(ctx context.Context) (Reading, error) {
	limit, err := s.readSigned(ctx, profile.TemperatureLimit)
	if err != nil {
		return Reading{}, err
	}
	present, err := s.ReadTemperature(ctx)
	if err != nil {
		return Reading{}, err
	}

	r := Reading{Value: float64(present), Limit: float64(limit), Unit: "°C"}
	r.Level = Classify(r.Value, r.Limit)
	switch r.Level {
	case LevelWarning:
		s.notice(NoticeTemperatureWarning, "temperature %d°C is close to the limit %d°C", present, limit)
	case LevelExceeded:
		s.notice(NoticeTemperatureExceeded, "temperature %d°C exceeds the limit %d°C", present, limit)
		d, err := s.CheckShutdown(ctx)
		r.Diagnosis = &d
		if err != nil {
			return r, err
		}
	}
	return r, nil
}

// CheckCurrent compares the present current with the configured current
// limit. Without a configured limit it fails with ErrLimitNotConfigured.
func (s *Session) CheckCurrent(ctx context.Context) (Reading, error) {
	lim := s.state.Limits.Current
	if !lim.Set {
		return Reading{}, invalid("check current", nil, ErrLimitNotConfigured)
	}
	code, err := s.ReadCurrentCode(ctx)
	if err != nil {
		return Reading{}, err
	}
	if code < 0 {
		code = -code
	}

	scale := s.prof.Scales.Current
	r := Reading{
		Value: float64(code) * scale,
		Limit: float64(lim.Code) * scale,
		Unit:  "A",
		Level: Classify(float64(code), float64(lim.Code)),
	}
	switch r.Level {
	case LevelWarning:
		s.notice(NoticeCurrentWarning, "current %.3f A is close to the limit %.3f A", r.Value, r.Limit)
	case LevelExceeded:
		s.notice(NoticeCurrentExceeded, "current %.3f A exceeds the limit %.3f A", r.Value, r.Limit)
	}
	return r, nil
}

// HardwareFault is one bit of the hardware error status register.
type HardwareFault uint8

const (
	FaultInputVoltage    HardwareFault = 1 << 0
	FaultOverheat        HardwareFault = 1 << 2
	FaultEncoder         HardwareFault = 1 << 3
	FaultElectricalShock HardwareFault = 1 << 4
	FaultOverload        HardwareFault = 1 << 5
)

var allFaults = []HardwareFault{FaultInputVoltage, FaultOverheat, FaultEncoder, FaultElectricalShock, FaultOverload}

func (f HardwareFault) String() string {
	switch f {
	case FaultInputVoltage:
		return "input voltage"
	case FaultOverheat:
		return "overheating"
	case FaultEncoder:
		return "motor encoder"
	case FaultElectricalShock:
		return "electrical shock"
	case FaultOverload:
		return "overload"
	default:
		return fmt.Sprintf("fault(0x%02x)", uint8(f))
	}
}

// HardwareFaults decodes a status byte. Unknown bits are reported as-is.
func HardwareFaults(status uint8) []HardwareFault {
	var out []HardwareFault
	rest := status
	for _, f := range allFaults {
		if status&uint8(f) != 0 {
			out = append(out, f)
			rest &^= uint8(f)
		}
	}
	for bit := uint8(1); rest != 0; bit <<= 1 {
		if rest&bit != 0 {
			out = append(out, HardwareFault(bit))
			rest &^= bit
		}
	}
	return out
}

// Action is the recovery step taken or required after a shutdown.
type Action int

const (
	ActionNone Action = iota
	ActionRebooted
	// ActionPowerDown: disconnect power and let the servo cool down.
	ActionPowerDown
	// ActionPowerCycle: the bus cannot reboot the servo; cycle power.
	ActionPowerCycle
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionRebooted:
		return "rebooted"
	case ActionPowerDown:
		return "power down"
	case ActionPowerCycle:
		return "power cycle"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Diagnosis is the outcome of CheckShutdown.
type Diagnosis struct {
	Status        uint8
	Faults        []HardwareFault
	Action        Action
	CooldownUntil time.Time
}

func (d Diagnosis) String() string {
	if d.Status == 0 {
		return "no hardware error"
	}
	names := make([]string, len(d.Faults))
	for i, f := range d.Faults {
		names[i] = f.String()
	}
	return fmt.Sprintf("%s (0x%02x): %s", strings.Join(names, ", "), d.Status, d.Action)
}

// ReadHardwareStatus reads the hardware error status register.
func (s *Session) ReadHardwareStatus(ctx context.Context) (uint8, error) {
	r, err := s.reg(profile.HardwareErrorStatus)
	if err != nil {
		return 0, err
	}
	v, err := s.io.Read(ctx, r)
	if err != nil {
		return 0, err
	}
	return uint8(v), nil
}

// CheckShutdown reads the hardware error status and recovers where it is
// safe to. Overheating is never rebooted: the session refuses motion until
// the cooldown has passed. Any other fault triggers a reboot.
func (s *Session) CheckShutdown(ctx context.Context) (Diagnosis, error) {
	status, err := s.ReadHardwareStatus(ctx)
	if err != nil {
		return Diagnosis{}, err
	}
	d := Diagnosis{Status: status, Faults: HardwareFaults(status)}
	if status == 0 {
		return d, nil
	}
	s.logger.Warn("hardware error", "status", fmt.Sprintf("0x%02x", status), "faults", d.Faults)

	if status&uint8(FaultOverheat) != 0 {
		s.cooldownUntil = s.now().Add(OverheatCooldown)
		d.Action = ActionPowerDown
		d.CooldownUntil = s.cooldownUntil
		msg := "overheating detected: do not reboot, disconnect power and leave the servo for at least 30 minutes"
		if s.prof.Family == profile.Compact {
			msg += "; the motor may have burnt out and need replacement"
		}
		s.notice(NoticeOverheat, "%s", msg)
		return d, nil
	}

	if err := s.Reboot(ctx); err != nil {
		if errors.Is(err, ErrRebootUnsupported) {
			d.Action = ActionPowerCycle
			return d, nil
		}
		return d, err
	}
	d.Action = ActionRebooted
	return d, nil
}

// Reboot restarts the servo, clearing its hardware error status and
// disabling torque. Only protocol 2.0 supports it.
func (s *Session) Reboot(ctx context.Context) error {
	if err := s.checkLockout("reboot"); err != nil {
		return err
	}
	if !s.io.Protocol().SupportsReboot() {
		s.notice(NoticePowerCycleRequired, "reboot needs protocol 2.0, power cycle the servo instead")
		return invalid("reboot", nil, ErrRebootUnsupported)
	}
	if err := s.io.Reboot(ctx); err != nil {
		return err
	}
	s.state.TorqueEnabled = false
	s.phase = PhaseIdle
	s.notice(NoticeRebooted, "servo rebooted")
	return nil
}

// ClearHardwareError reboots the servo if it reports a hardware error and
// returns the status read afterwards.
func (s *Session) ClearHardwareError(ctx context.Context) (uint8, error) {
	status, err := s.ReadHardwareStatus(ctx)
	if err != nil || status == 0 {
		return status, err
	}
	if status&uint8(FaultOverheat) != 0 {
		if _, err := s.CheckShutdown(ctx); err != nil {
			return status, err
		}
		return status, s.checkLockout("clear hardware error")
	}
	if err := s.Reboot(ctx); err != nil {
		return status, err
	}
	return s.ReadHardwareStatus(ctx)
}

// LockedOut reports whether an overheat cooldown is in effect.
func (s *Session) LockedOut() (bool, time.Time) {
	if s.now().Before(s.cooldownUntil) {
		return true, s.cooldownUntil
	}
	return false, time.Time{}
}

func (s *Session) checkLockout(op string) error {
	if locked, until := s.LockedOut(); locked {
		return invalid(op, nil, fmt.Errorf("%w until %s", ErrLockedOut, until.Format(time.TimeOnly)))
	}
	return nil
}
