// Package transport defines the register transport a servo session talks
// through and the adapter that classifies its failures.
//
// Packet framing, checksums and port handling live behind Transport.
package transport

import (
	"context"
	"fmt"

	"github.com/gwillem/dxlservo/pkg/profile"
)

// Protocol is the communication generation spoken on the bus.
type Protocol int

const (
	Protocol1 Protocol = 1
	Protocol2 Protocol = 2
)

func (p Protocol) String() string {
	switch p {
	case Protocol1:
		return "1.0"
	case Protocol2:
		return "2.0"
	default:
		return fmt.Sprintf("protocol(%d)", int(p))
	}
}

// SupportsReboot reports whether the reboot instruction exists.
func (p Protocol) SupportsReboot() bool {
	return p == Protocol2
}

// ParseProtocol parses "1", "1.0", "2" or "2.0".
func ParseProtocol(s string) (Protocol, error) {
	switch s {
	case "1", "1.0":
		return Protocol1, nil
	case "2", "2.0", "":
		return Protocol2, nil
	}
	return 0, fmt.Errorf("unknown protocol %q", s)
}

// Transport is a request/response register bus. Failures are returned as
// *CommError or *DeviceError.
type Transport interface {
	Read(ctx context.Context, id uint8, addr uint16, width profile.Width) (uint32, error)
	Write(ctx context.Context, id uint8, addr uint16, width profile.Width, value uint32) error
	Reboot(ctx context.Context, id uint8) error
	Protocol() Protocol
}
