package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gwillem/dxlservo/pkg/servo"
)

const namespace = "dxlservo"

// Metrics exports servo readings. A nil *Metrics is valid and does nothing.
type Metrics struct {
	angle       *prometheus.GaugeVec // Present angle by joint
	temperature *prometheus.GaugeVec // Present temperature by joint
	current     *prometheus.GaugeVec // Present current by joint
	velocity    *prometheus.GaugeVec // Present velocity by joint
	moving      *prometheus.GaugeVec // 1 while a joint moves
	status      *prometheus.GaugeVec // Raw hardware error status

	notices *prometheus.CounterVec // Notices by servo id and kind
	errors  *prometheus.CounterVec // Poll errors by joint and class

	cycle prometheus.Histogram // Poll cycle duration
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		angle: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "servo",
			Name:      "angle_degrees",
			Help:      "Present angle after homing offset",
		}, []string{"joint"}),

		temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "servo",
			Name:      "temperature_celsius",
			Help:      "Present internal temperature",
		}, []string{"joint"}),

		current: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "servo",
			Name:      "current_amperes",
			Help:      "Present current draw",
		}, []string{"joint"}),

		velocity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "servo",
			Name:      "velocity_rpm",
			Help:      "Present velocity",
		}, []string{"joint"}),

		moving: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "servo",
			Name:      "moving",
			Help:      "Motion flag (1=moving, 0=idle)",
		}, []string{"joint"}),

		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "servo",
			Name:      "hardware_error_status",
			Help:      "Raw hardware error status byte",
		}, []string{"joint"}),

		notices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "servo",
			Name:      "notices_total",
			Help:      "Operator notices raised",
		}, []string{"servo_id", "kind"}),

		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "servo",
			Name:      "poll_errors_total",
			Help:      "Failed polls by error class",
		}, []string{"joint", "class"}),

		cycle: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "cycle_duration_seconds",
			Help:      "Time to poll every joint once",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25},
		}),
	}

	for _, c := range []prometheus.Collector{
		m.angle, m.temperature, m.current, m.velocity, m.moving, m.status,
		m.notices, m.errors, m.cycle,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Observe records a snapshot of the named joint.
func (m *Metrics) Observe(joint string, snap servo.Snapshot) {
	if m == nil {
		return
	}
	m.angle.WithLabelValues(joint).Set(snap.Angle)
	m.temperature.WithLabelValues(joint).Set(float64(snap.Temperature))
	m.current.WithLabelValues(joint).Set(snap.Current)
	m.velocity.WithLabelValues(joint).Set(snap.Velocity)
	moving := 0.0
	if snap.Moving {
		moving = 1
	}
	m.moving.WithLabelValues(joint).Set(moving)
	m.status.WithLabelValues(joint).Set(float64(snap.Status))
}

// ObserveError counts a failed poll.
func (m *Metrics) ObserveError(joint string, err error) {
	if m == nil || err == nil {
		return
	}
	m.errors.WithLabelValues(joint, servo.ClassOf(err).String()).Inc()
}

// ObserveCycle records the duration of one full poll.
func (m *Metrics) ObserveCycle(d time.Duration) {
	if m == nil {
		return
	}
	m.cycle.Observe(d.Seconds())
}

// HandleNotice counts n. It satisfies servo.NoticeFunc.
func (m *Metrics) HandleNotice(n servo.Notice) {
	if m == nil {
		return
	}
	m.notices.WithLabelValues(strconv.Itoa(int(n.ServoID)), n.Kind.String()).Inc()
}
