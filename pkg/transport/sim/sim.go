// Package sim provides an in-memory servo bus. Devices keep a byte control
// table laid out like the real family and report motion for a configurable
// number of polls after each goal position write.
//
// While the hardware error status register is non-zero every write is
// answered with the alert flag. Reads always return data.
package sim

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/gwillem/dxlservo/pkg/profile"
	"github.com/gwillem/dxlservo/pkg/transport"
)

const tableSize = 1024

// DefaultSettlePolls is the number of Moving reads that report motion after
// a goal position write.
const DefaultSettlePolls = 3

// Write records a register write seen by a device.
type Write struct {
	Addr  uint16
	Width profile.Width
	Value uint32
}

// Bus is a simulated multi-drop bus. It is safe for concurrent use.
type Bus struct {
	protocol transport.Protocol

	mu      sync.Mutex
	devices map[uint8]*Device
}

// NewBus returns an empty bus speaking protocol.
func NewBus(protocol transport.Protocol) *Bus {
	return &Bus{protocol: protocol, devices: make(map[uint8]*Device)}
}

// Device is one simulated servo.
type Device struct {
	ID      uint8
	Profile *profile.Profile

	// SettlePolls is how many Moving reads report motion after a goal write.
	SettlePolls int

	table       [tableSize]byte
	movingLeft  int
	pendingGoal int32
	writes      []Write
	reads       map[uint16]int
	reboots     int
	failures    map[uint16]error
	rebootErr   error
}

// AddDevice attaches a device of the given family with factory defaults.
func (b *Bus) AddDevice(id uint8, family profile.Family) *Device {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := profile.MustFor(family)
	d := &Device{
		ID:          id,
		Profile:     p,
		SettlePolls: DefaultSettlePolls,
		reads:       make(map[uint16]int),
		failures:    make(map[uint16]error),
	}
	d.reset()
	b.devices[id] = d
	return d
}

func (d *Device) reset() {
	p := d.Profile
	mode, _ := p.ModeCode(profile.ModePosition)
	d.poke(profile.OperatingMode, uint32(mode))
	d.poke(profile.TemperatureLimit, 80)
	d.poke(profile.CurrentLimit, uint32(p.Caps.CurrentCode))
	d.poke(profile.VelocityLimit, uint32(p.Caps.VelocityCode))
	d.poke(profile.AccelerationLimit, uint32(p.Caps.AccelerationCode))
	d.poke(profile.MinPositionLimit, uint32(p.Caps.PositionMin))
	d.poke(profile.MaxPositionLimit, uint32(p.Caps.PositionMax))
	d.poke(profile.PresentTemperature, 35)
	d.poke(profile.TorqueEnable, 0)
	d.poke(profile.HardwareErrorStatus, 0)
	d.poke(profile.PositionPGain, 800)
	d.movingLeft = 0
}

// Protocol implements transport.Transport.
func (b *Bus) Protocol() transport.Protocol { return b.protocol }

// Device returns the device with id, or nil.
func (b *Bus) Device(id uint8) *Device {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.devices[id]
}

// Read implements transport.Transport.
func (b *Bus) Read(ctx context.Context, id uint8, addr uint16, width profile.Width) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, &transport.CommError{Result: transport.CommTxFail, Err: err}
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	d, err := b.lookup(id, addr, width)
	if err != nil {
		return 0, err
	}
	d.reads[addr]++

	if r, err := d.Profile.Register(profile.Moving); err == nil && r.Address == addr {
		if d.movingLeft > 0 {
			d.movingLeft--
			d.setRaw(r, 1)
			if d.movingLeft == 0 {
				d.finishMove()
			}
		} else {
			d.setRaw(r, 0)
		}
	}

	return d.raw(addr, width), nil
}

// Write implements transport.Transport.
func (b *Bus) Write(ctx context.Context, id uint8, addr uint16, width profile.Width, value uint32) error {
	if err := ctx.Err(); err != nil {
		return &transport.CommError{Result: transport.CommTxFail, Err: err}
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	d, err := b.lookup(id, addr, width)
	if err != nil {
		return err
	}

	if goal, _ := d.Profile.Register(profile.GoalPosition); goal.Address == addr {
		pos := int32(value)
		lo := int32(d.peek(profile.MinPositionLimit))
		hi := int32(d.peek(profile.MaxPositionLimit))
		if pos < lo || pos > hi {
			return &transport.DeviceError{Code: transport.DeviceDataLimit}
		}
		d.pendingGoal = pos
		d.movingLeft = d.SettlePolls
		if d.movingLeft == 0 {
			d.finishMove()
		}
	}

	d.writes = append(d.writes, Write{Addr: addr, Width: width, Value: value})
	d.putRaw(addr, width, value)
	if d.alert() {
		return &transport.DeviceError{Code: transport.DeviceAlert}
	}
	return nil
}

// Reboot implements transport.Transport.
func (b *Bus) Reboot(ctx context.Context, id uint8) error {
	if err := ctx.Err(); err != nil {
		return &transport.CommError{Result: transport.CommTxFail, Err: err}
	}
	if !b.protocol.SupportsReboot() {
		return &transport.CommError{Result: transport.CommNotAvailable}
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	d, ok := b.devices[id]
	if !ok {
		return &transport.CommError{Result: transport.CommRxTimeout}
	}
	if d.rebootErr != nil {
		return d.rebootErr
	}
	d.reboots++
	d.poke(profile.HardwareErrorStatus, 0)
	d.poke(profile.TorqueEnable, 0)
	d.movingLeft = 0
	return nil
}

func (b *Bus) lookup(id uint8, addr uint16, width profile.Width) (*Device, error) {
	d, ok := b.devices[id]
	if !ok {
		return nil, &transport.CommError{Result: transport.CommRxTimeout}
	}
	if err, ok := d.failures[addr]; ok {
		delete(d.failures, addr)
		return nil, err
	}
	if int(addr)+int(width) > tableSize {
		return nil, &transport.DeviceError{Code: transport.DeviceDataRange}
	}
	return d, nil
}

func (d *Device) finishMove() {
	if r, err := d.Profile.Register(profile.PresentPosition); err == nil {
		d.setRaw(r, uint32(d.pendingGoal))
	}
}

func (d *Device) alert() bool {
	return d.peek(profile.HardwareErrorStatus) != 0
}

func (d *Device) raw(addr uint16, width profile.Width) uint32 {
	b := d.table[addr : int(addr)+int(width)]
	switch width {
	case profile.Byte:
		return uint32(b[0])
	case profile.Word:
		return uint32(binary.LittleEndian.Uint16(b))
	default:
		return binary.LittleEndian.Uint32(b)
	}
}

func (d *Device) putRaw(addr uint16, width profile.Width, v uint32) {
	b := d.table[addr : int(addr)+int(width)]
	switch width {
	case profile.Byte:
		b[0] = byte(v)
	case profile.Word:
		binary.LittleEndian.PutUint16(b, uint16(v))
	default:
		binary.LittleEndian.PutUint32(b, v)
	}
}

func (d *Device) setRaw(r profile.Register, v uint32) { d.putRaw(r.Address, r.Width, v) }

func (d *Device) poke(op profile.Operation, v uint32) {
	if r, err := d.Profile.Register(op); err == nil {
		d.setRaw(r, v)
	}
}

func (d *Device) peek(op profile.Operation) uint32 {
	r, err := d.Profile.Register(op)
	if err != nil {
		return 0
	}
	return d.raw(r.Address, r.Width)
}
