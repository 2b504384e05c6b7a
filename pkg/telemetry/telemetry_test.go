package telemetry

import (
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/dxlservo/pkg/servo"
	"github.com/gwillem/dxlservo/pkg/transport"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func snapshot(id uint8, angle float64) servo.Snapshot {
	return servo.Snapshot{
		Time:        t0,
		ServoID:     id,
		Position:    1024,
		Angle:       angle,
		Temperature: 41,
		Current:     0.25,
		Velocity:    -3.2,
		Moving:      true,
		Status:      0x04,
	}
}

func TestRecorder_WriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.cbor")

	rec, err := NewRecorder(path)
	require.NoError(t, err)
	require.NoError(t, rec.Sample("pan", snapshot(1, 90.04)))
	require.NoError(t, rec.Notice("pan", servo.Notice{
		Kind: servo.NoticeOverheat, ServoID: 1, Message: "too hot", Time: t0.Add(time.Second),
	}))
	require.NoError(t, rec.Error("tilt", 2, &transport.CommError{Result: transport.CommRxTimeout}))
	require.NoError(t, rec.Close())
	require.NoError(t, rec.Close())
	assert.ErrorIs(t, rec.Sample("pan", snapshot(1, 0)), ErrClosed)

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	got, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, got, 3)

	for i, g := range got {
		assert.Equal(t, rec.ID().String(), g.Recording)
		assert.Equal(t, uint64(i+1), g.Seq)
	}

	assert.Equal(t, KindSample, got[0].Kind)
	assert.True(t, got[0].Time.Equal(t0))
	assert.Equal(t, "pan", got[0].Joint)
	assert.Equal(t, *SampleOf(snapshot(1, 90.04)), *got[0].Sample)

	assert.Equal(t, KindNotice, got[1].Kind)
	assert.Equal(t, "overheat", got[1].Notice.Kind)
	assert.Equal(t, "too hot", got[1].Notice.Message)

	assert.Equal(t, KindError, got[2].Kind)
	assert.Equal(t, uint8(2), got[2].ServoID)
	assert.Equal(t, "comm", got[2].Error.Class)
	assert.False(t, got[2].Time.IsZero())
}

func TestRecorder_AppendsRecordings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.cbor")

	first, err := NewRecorder(path)
	require.NoError(t, err)
	require.NoError(t, first.Sample("pan", snapshot(1, 1)))
	require.NoError(t, first.Close())

	second, err := NewRecorder(path)
	require.NoError(t, err)
	require.NoError(t, second.Sample("pan", snapshot(1, 2)))
	require.NoError(t, second.Sample("tilt", snapshot(2, 3)))
	require.NoError(t, second.Close())
	require.NotEqual(t, first.ID(), second.ID())

	r, err := NewFilteredReader(path, Filter{Recording: second.ID().String()})
	require.NoError(t, err)
	defer r.Close()

	got, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2.0, got[0].Sample.Angle)
}

func TestReader_Filter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.cbor")
	rec, err := NewRecorder(path)
	require.NoError(t, err)
	for i := range 4 {
		snap := snapshot(1, float64(i))
		snap.Time = t0.Add(time.Duration(i) * time.Second)
		require.NoError(t, rec.Sample("pan", snap))
	}
	require.NoError(t, rec.Notice("pan", servo.Notice{Kind: servo.NoticeClamped, ServoID: 1, Time: t0}))
	require.NoError(t, rec.Close())

	kind := KindSample
	start, end := t0.Add(time.Second), t0.Add(3*time.Second)
	r, err := NewFilteredReader(path, Filter{Joint: "pan", Kind: &kind, TimeStart: &start, TimeEnd: &end})
	require.NoError(t, err)
	defer r.Close()

	first, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, 1.0, first.Sample.Angle)
	second, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, 2.0, second.Sample.Angle)
	_, err = r.Next()
	assert.Equal(t, io.EOF, err)
}

func TestMarshalUnmarshal(t *testing.T) {
	in := Record{Recording: "r", Seq: 7, Time: t0, Kind: KindSample, ServoID: 3, Sample: SampleOf(snapshot(3, 12.5))}
	data, err := Marshal(in)
	require.NoError(t, err)

	out, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, in.Seq, out.Seq)
	assert.Equal(t, *in.Sample, *out.Sample)
	assert.Nil(t, out.Notice)

	_, err = Unmarshal([]byte{0xff})
	assert.Error(t, err)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	m.Observe("pan", snapshot(1, 45.5))
	assert.Equal(t, 45.5, testutil.ToFloat64(m.angle.WithLabelValues("pan")))
	assert.Equal(t, 41.0, testutil.ToFloat64(m.temperature.WithLabelValues("pan")))
	assert.Equal(t, 0.25, testutil.ToFloat64(m.current.WithLabelValues("pan")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.moving.WithLabelValues("pan")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.status.WithLabelValues("pan")))

	m.ObserveError("pan", &transport.DeviceError{Code: transport.DeviceAlert})
	m.ObserveError("pan", &transport.DeviceError{Code: transport.DeviceAlert})
	m.ObserveError("pan", errors.New("boom"))
	m.ObserveError("pan", nil)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.errors.WithLabelValues("pan", "device")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("pan", "unknown")))

	notify := servo.Notices(m.HandleNotice)
	notify(servo.Notice{Kind: servo.NoticeClamped, ServoID: 7})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notices.WithLabelValues("7", "clamped")))

	m.ObserveCycle(3 * time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(m.cycle))

	_, err = NewMetrics(reg)
	assert.Error(t, err, "duplicate registration")
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics
	m.Observe("pan", snapshot(1, 0))
	m.ObserveError("pan", errors.New("x"))
	m.ObserveCycle(time.Millisecond)
	m.HandleNotice(servo.Notice{})
}
