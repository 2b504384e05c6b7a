package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gwillem/dxlservo/pkg/profile"
)

// Adapter performs typed register access for one device ID and turns every
// failure into a *CommError or *DeviceError.
type Adapter struct {
	t      Transport
	id     uint8
	logger *slog.Logger
}

// NewAdapter returns an adapter bound to id. A nil logger discards output.
func NewAdapter(t Transport, id uint8, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{t: t, id: id, logger: logger}
}

// ID returns the device ID requests are addressed to.
func (a *Adapter) ID() uint8 { return a.id }

// SetID changes the device ID requests are addressed to.
func (a *Adapter) SetID(id uint8) { a.id = id }

// Protocol returns the bus generation.
func (a *Adapter) Protocol() Protocol { return a.t.Protocol() }

// Read returns the unsigned register value.
func (a *Adapter) Read(ctx context.Context, reg profile.Register) (uint32, error) {
	v, err := a.t.Read(ctx, a.id, reg.Address, reg.Width)
	if err != nil {
		return 0, a.fail("read", reg, err)
	}
	return v & mask(reg.Width), nil
}

// ReadSigned returns the register value sign-extended from its width.
func (a *Adapter) ReadSigned(ctx context.Context, reg profile.Register) (int32, error) {
	v, err := a.Read(ctx, reg)
	if err != nil {
		return 0, err
	}
	switch reg.Width {
	case profile.Byte:
		return int32(int8(v)), nil
	case profile.Word:
		return int32(int16(v)), nil
	default:
		return int32(v), nil
	}
}

// Write stores an unsigned value.
func (a *Adapter) Write(ctx context.Context, reg profile.Register, value uint32) error {
	if value&^mask(reg.Width) != 0 {
		return fmt.Errorf("write %d to register %s: value exceeds register width", value, reg)
	}
	if err := a.t.Write(ctx, a.id, reg.Address, reg.Width, value); err != nil {
		return a.fail("write", reg, err)
	}
	a.logger.Debug("register write", "servo_id", a.id, "addr", reg.Address, "value", value)
	return nil
}

// WriteSigned stores a two's complement value truncated to the register width.
func (a *Adapter) WriteSigned(ctx context.Context, reg profile.Register, value int32) error {
	switch reg.Width {
	case profile.Byte:
		if value < -1<<7 || value > 1<<8-1 {
			return fmt.Errorf("write %d to register %s: value exceeds register width", value, reg)
		}
	case profile.Word:
		if value < -1<<15 || value > 1<<16-1 {
			return fmt.Errorf("write %d to register %s: value exceeds register width", value, reg)
		}
	}
	return a.Write(ctx, reg, uint32(value)&mask(reg.Width))
}

// Reboot asks the device to restart.
func (a *Adapter) Reboot(ctx context.Context) error {
	if err := a.t.Reboot(ctx, a.id); err != nil {
		return a.fail("reboot", profile.Register{}, err)
	}
	return nil
}

func (a *Adapter) fail(op string, reg profile.Register, err error) error {
	var (
		ce *CommError
		de *DeviceError
	)
	switch {
	case errors.As(err, &ce), errors.As(err, &de):
	default:
		err = &CommError{Result: CommRxFail, Err: err}
	}

	a.logger.Warn("register "+op+" failed", "servo_id", a.id, "addr", reg.Address, "width", reg.Width, "error", err)
	if reg.Width == 0 {
		return fmt.Errorf("servo %d %s: %w", a.id, op, err)
	}
	return fmt.Errorf("servo %d %s @%d: %w", a.id, op, reg.Address, err)
}

func mask(w profile.Width) uint32 {
	switch w {
	case profile.Byte:
		return 0xff
	case profile.Word:
		return 0xffff
	default:
		return 0xffffffff
	}
}
