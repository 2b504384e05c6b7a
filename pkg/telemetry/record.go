// Package telemetry records servo readings to CBOR files and exports them
// as Prometheus metrics.
package telemetry

import (
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/gwillem/dxlservo/pkg/servo"
)

// Kind tells which payload a Record carries.
type Kind uint8

const (
	KindSample Kind = 0
	KindNotice Kind = 1
	KindError  Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindSample:
		return "sample"
	case KindNotice:
		return "notice"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Record is one entry in a recording. Integer keys keep files compact.
type Record struct {
	// Recording is the UUID of the recorder that wrote the entry.
	Recording string    `cbor:"1,keyasint"`
	Seq       uint64    `cbor:"2,keyasint"`
	Time      time.Time `cbor:"3,keyasint"`
	Kind      Kind      `cbor:"4,keyasint"`
	Joint     string    `cbor:"5,keyasint,omitempty"`
	ServoID   uint8     `cbor:"6,keyasint"`

	// One of these is set, matching Kind.
	Sample *Sample     `cbor:"7,keyasint,omitempty"`
	Notice *NoticeData `cbor:"8,keyasint,omitempty"`
	Error  *ErrorData  `cbor:"9,keyasint,omitempty"`
}

// Sample is a decoded servo.Snapshot.
type Sample struct {
	Position    int32   `cbor:"1,keyasint"`
	Angle       float64 `cbor:"2,keyasint"`
	Temperature int32   `cbor:"3,keyasint"`
	Current     float64 `cbor:"4,keyasint"`
	Velocity    float64 `cbor:"5,keyasint"`
	Moving      bool    `cbor:"6,keyasint"`
	Status      uint8   `cbor:"7,keyasint"`
}

// NoticeData is a recorded operator notice.
type NoticeData struct {
	Kind    string `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`
}

// ErrorData is a recorded poll failure.
type ErrorData struct {
	Class   string `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`
}

// SampleOf converts a snapshot.
func SampleOf(snap servo.Snapshot) *Sample {
	return &Sample{
		Position:    snap.Position,
		Angle:       snap.Angle,
		Temperature: snap.Temperature,
		Current:     snap.Current,
		Velocity:    snap.Velocity,
		Moving:      snap.Moving,
		Status:      snap.Status,
	}
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	if encMode, err = encOpts.EncMode(); err != nil {
		panic(fmt.Sprintf("telemetry: cbor encoder mode: %v", err))
	}
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	if decMode, err = decOpts.DecMode(); err != nil {
		panic(fmt.Sprintf("telemetry: cbor decoder mode: %v", err))
	}
}

// Marshal encodes a single record.
func Marshal(r Record) ([]byte, error) {
	return encMode.Marshal(r)
}

// Unmarshal decodes a single record.
func Unmarshal(data []byte) (Record, error) {
	var r Record
	if err := decMode.Unmarshal(data, &r); err != nil {
		return Record{}, err
	}
	return r, nil
}

func newEncoder(w io.Writer) *cbor.Encoder { return encMode.NewEncoder(w) }

func newDecoder(r io.Reader) *cbor.Decoder { return decMode.NewDecoder(r) }
