package sim

import (
	"github.com/gwillem/dxlservo/pkg/profile"
)

// The helpers below are meant for tests and demos. They must not be called
// concurrently with bus traffic on the same device.

// Set stores a raw register value without recording a write.
func (d *Device) Set(op profile.Operation, value int32) {
	d.poke(op, uint32(value))
}

// Get returns a register value sign-extended from its width.
func (d *Device) Get(op profile.Operation) int32 {
	r, err := d.Profile.Register(op)
	if err != nil {
		return 0
	}
	v := d.raw(r.Address, r.Width)
	switch r.Width {
	case profile.Byte:
		return int32(int8(v))
	case profile.Word:
		return int32(int16(v))
	default:
		return int32(v)
	}
}

// SetHardwareError sets the hardware error status register.
func (d *Device) SetHardwareError(bits uint8) {
	d.poke(profile.HardwareErrorStatus, uint32(bits))
}

// FailNext makes the next access to op fail with err.
func (d *Device) FailNext(op profile.Operation, err error) {
	if r, e := d.Profile.Register(op); e == nil {
		d.failures[r.Address] = err
	}
}

// FailReboot makes every reboot fail with err. Pass nil to clear.
func (d *Device) FailReboot(err error) {
	d.rebootErr = err
}

// Writes returns the register writes seen so far.
func (d *Device) Writes() []Write {
	return append([]Write(nil), d.writes...)
}

// WritesTo returns the values written to op.
func (d *Device) WritesTo(op profile.Operation) []uint32 {
	r, err := d.Profile.Register(op)
	if err != nil {
		return nil
	}
	var out []uint32
	for _, w := range d.writes {
		if w.Addr == r.Address {
			out = append(out, w.Value)
		}
	}
	return out
}

// ResetWrites forgets recorded writes.
func (d *Device) ResetWrites() {
	d.writes = nil
}

// Reads returns how many times op was read.
func (d *Device) Reads(op profile.Operation) int {
	r, err := d.Profile.Register(op)
	if err != nil {
		return 0
	}
	return d.reads[r.Address]
}

// Reboots returns how many reboots the device accepted.
func (d *Device) Reboots() int {
	return d.reboots
}

// Moving reports whether a goal is still being approached.
func (d *Device) Moving() bool {
	return d.movingLeft > 0
}
