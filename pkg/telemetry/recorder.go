package telemetry

import (
	"errors"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/gwillem/dxlservo/pkg/servo"
)

// ErrClosed is returned when writing to a closed Recorder.
var ErrClosed = errors.New("telemetry: recorder closed")

// Recorder appends records to a CBOR file. Each recorder stamps its
// entries with a fresh recording UUID so several runs can share one file.
// It is safe for concurrent use.
type Recorder struct {
	id      uuid.UUID
	file    *os.File
	encoder *cbor.Encoder
	now     func() time.Time

	mu     sync.Mutex
	seq    uint64
	closed bool
}

// NewRecorder opens path for appending, creating it with mode 0644.
func NewRecorder(path string) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &Recorder{
		id:      uuid.New(),
		file:    f,
		encoder: newEncoder(f),
		now:     time.Now,
	}, nil
}

// ID returns the recording UUID.
func (r *Recorder) ID() uuid.UUID {
	return r.id
}

// Sample records a snapshot of the named joint.
func (r *Recorder) Sample(joint string, snap servo.Snapshot) error {
	return r.write(Record{
		Time:    snap.Time,
		Kind:    KindSample,
		Joint:   joint,
		ServoID: snap.ServoID,
		Sample:  SampleOf(snap),
	})
}

// Notice records an operator notice.
func (r *Recorder) Notice(joint string, n servo.Notice) error {
	return r.write(Record{
		Time:    n.Time,
		Kind:    KindNotice,
		Joint:   joint,
		ServoID: n.ServoID,
		Notice:  &NoticeData{Kind: n.Kind.String(), Message: n.Message},
	})
}

// Error records a failed poll.
func (r *Recorder) Error(joint string, id uint8, err error) error {
	return r.write(Record{
		Kind:    KindError,
		Joint:   joint,
		ServoID: id,
		Error:   &ErrorData{Class: servo.ClassOf(err).String(), Message: err.Error()},
	})
}

func (r *Recorder) write(rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if rec.Time.IsZero() {
		rec.Time = r.now()
	}
	r.seq++
	rec.Recording = r.id.String()
	rec.Seq = r.seq
	return r.encoder.Encode(rec)
}

// Close closes the file. It is safe to call Close more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	return r.file.Close()
}
