// Package dxlservo controls compact (MX-64) and pro (M42) servos over a
// register bus.
//
// A servo is driven through a session bound to one device profile. The
// session converts between physical units and register codes, enforces
// limits before anything is sent, sequences position goals and waits for
// them to settle, and watches temperature, current and the hardware error
// status.
//
// # Installation
//
//	go install github.com/gwillem/dxlservo/cmd/dxlservo@latest
//
// # Usage
//
// Describe the servos on the bus:
//
//	dxlservo setup
//
// Then inspect, move or watch them:
//
//	dxlservo info
//	dxlservo move --joint pan 45
//	dxlservo monitor --record run.cbor
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/dxlservo: CLI with setup, scan, info, move, monitor, replay, shell and metrics commands
//   - pkg/profile: Control tables, scales and capabilities per family
//   - pkg/convert: Unit conversion between physical values and codes
//   - pkg/transport: Register transport interface, errors and the width-checked adapter
//   - pkg/transport/sim: In-memory bus used by tests and the sim backend
//   - pkg/servo: Servo sessions: limits, goals, settling and fault monitoring
//   - pkg/rig: YAML configuration and multi-servo rigs
//   - pkg/monitor: Polling controller
//   - pkg/telemetry: CBOR recordings and Prometheus metrics
package dxlservo
