package transport

import (
	"errors"
	"fmt"
	"strings"
)

// CommResult is a transport-level failure code.
type CommResult int

const (
	CommPortBusy     CommResult = -1000
	CommTxFail       CommResult = -1001
	CommRxFail       CommResult = -1002
	CommTxError      CommResult = -2000
	CommRxWaiting    CommResult = -3000
	CommRxTimeout    CommResult = -3001
	CommRxCorrupt    CommResult = -3002
	CommNotAvailable CommResult = -9000
)

func (r CommResult) String() string {
	switch r {
	case CommPortBusy:
		return "port busy"
	case CommTxFail:
		return "tx failed"
	case CommRxFail:
		return "rx failed"
	case CommTxError:
		return "incorrect instruction packet"
	case CommRxWaiting:
		return "rx waiting"
	case CommRxTimeout:
		return "rx timeout"
	case CommRxCorrupt:
		return "rx corrupt"
	case CommNotAvailable:
		return "not available"
	default:
		return fmt.Sprintf("comm result %d", int(r))
	}
}

// CommError is a failure to exchange a packet with the device.
type CommError struct {
	Result CommResult
	Err    error
}

func (e *CommError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("comm: %s: %v", e.Result, e.Err)
	}
	return "comm: " + e.Result.String()
}

func (e *CommError) Unwrap() error { return e.Err }

// Device status packet error codes.
const (
	DeviceResultFail  uint8 = 0x01
	DeviceInstruction uint8 = 0x02
	DeviceCRC         uint8 = 0x03
	DeviceDataRange   uint8 = 0x04
	DeviceDataLength  uint8 = 0x05
	DeviceDataLimit   uint8 = 0x06
	DeviceAccess      uint8 = 0x07

	// DeviceAlert is set when the hardware error status register is non-zero.
	DeviceAlert uint8 = 0x80
)

// DeviceError is an error reported by the device in its status packet.
type DeviceError struct {
	Code uint8
}

// Alert reports whether the device flagged a hardware error.
func (e *DeviceError) Alert() bool {
	return e.Code&DeviceAlert != 0
}

func (e *DeviceError) Error() string {
	var parts []string
	switch e.Code &^ DeviceAlert {
	case 0:
	case DeviceResultFail:
		parts = append(parts, "result fail")
	case DeviceInstruction:
		parts = append(parts, "instruction error")
	case DeviceCRC:
		parts = append(parts, "crc error")
	case DeviceDataRange:
		parts = append(parts, "data range error")
	case DeviceDataLength:
		parts = append(parts, "data length error")
	case DeviceDataLimit:
		parts = append(parts, "data limit error")
	case DeviceAccess:
		parts = append(parts, "access error")
	default:
		parts = append(parts, fmt.Sprintf("error 0x%02x", e.Code&^DeviceAlert))
	}
	if e.Alert() {
		parts = append(parts, "hardware alert")
	}
	return "device: " + strings.Join(parts, ", ")
}

// IsComm reports whether err is a transport-level failure.
func IsComm(err error) bool {
	var ce *CommError
	return errors.As(err, &ce)
}

// IsDevice reports whether err was reported by the device.
func IsDevice(err error) bool {
	var de *DeviceError
	return errors.As(err, &de)
}
