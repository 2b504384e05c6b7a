// Package rig drives a named set of servos described by a config file.
// Servos share one transport and are driven one after another.
package rig

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go.uber.org/multierr"

	"github.com/gwillem/dxlservo/pkg/profile"
	"github.com/gwillem/dxlservo/pkg/servo"
	"github.com/gwillem/dxlservo/pkg/transport"
	"github.com/gwillem/dxlservo/pkg/transport/sim"
)

// Joint is one configured servo.
type Joint struct {
	Name    string
	Config  ServoConfig
	Range   Range
	Session *servo.Session
}

// Rig is a set of joints on one bus.
type Rig struct {
	transport transport.Transport
	joints    []*Joint
	logger    *slog.Logger
}

// Options configures a Rig.
type Options struct {
	Logger   *slog.Logger
	OnNotice servo.NoticeFunc
}

// OpenTransport creates the transport named in cfg. The sim backend
// attaches one simulated device per configured servo.
func OpenTransport(cfg *Config) (transport.Transport, error) {
	proto, err := cfg.Protocol()
	if err != nil {
		return nil, err
	}
	switch cfg.Transport.Backend {
	case "", "sim":
		bus := sim.NewBus(proto)
		for _, s := range cfg.Servos {
			bus.AddDevice(s.ID, s.Family)
		}
		return bus, nil
	}
	return nil, fmt.Errorf("transport backend %q not available", cfg.Transport.Backend)
}

// Protocol returns the configured bus generation.
func (c *Config) Protocol() (transport.Protocol, error) {
	return transport.ParseProtocol(c.Transport.Protocol)
}

// New creates a session per configured servo on t.
func New(cfg *Config, t transport.Transport, opts Options) (*Rig, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := &Rig{transport: t, logger: logger}
	for _, sc := range cfg.Servos {
		s, err := servo.New(servo.Config{
			ID:        sc.ID,
			Profile:   profile.MustFor(sc.Family),
			Transport: t,
			Logger:    logger.With("joint", sc.Name),
			OnNotice:  opts.OnNotice,
			Settle:    cfg.Settle.Options(),
		})
		if err != nil {
			return nil, fmt.Errorf("joint %s: %w", sc.Name, err)
		}
		r.joints = append(r.joints, &Joint{
			Name:    sc.Name,
			Config:  sc,
			Range:   RangeOf(sc),
			Session: s,
		})
	}
	return r, nil
}

// Open loads the transport for cfg and builds the rig on it.
func Open(cfg *Config, opts Options) (*Rig, error) {
	t, err := OpenTransport(cfg)
	if err != nil {
		return nil, err
	}
	return New(cfg, t, opts)
}

// Joints returns the joints in config order.
func (r *Rig) Joints() []*Joint {
	return r.joints
}

// Joint returns the named joint.
func (r *Rig) Joint(name string) (*Joint, bool) {
	for _, j := range r.joints {
		if j.Name == name {
			return j, true
		}
	}
	return nil, false
}

// JointByID returns the joint whose servo answers to id.
func (r *Rig) JointByID(id uint8) (*Joint, bool) {
	for _, j := range r.joints {
		if j.Session.ID() == id {
			return j, true
		}
	}
	return nil, false
}

// Transport returns the shared transport.
func (r *Rig) Transport() transport.Transport {
	return r.transport
}

// Apply pushes each joint's configuration to its device.
func (r *Rig) Apply(ctx context.Context) error {
	var errs error
	for _, j := range r.joints {
		if err := j.Apply(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("joint %s: %w", j.Name, err))
		}
	}
	return errs
}

// Apply configures mode, limits, homing offset and motion profile. Torque
// is disabled first since the device ignores these registers while
// energized.
func (j *Joint) Apply(ctx context.Context) error {
	s := j.Session
	sc := j.Config
	if err := s.DisableTorque(ctx); err != nil {
		return err
	}
	if sc.Mode != "" {
		m, err := profile.ParseMode(sc.Mode)
		if err != nil {
			return err
		}
		if err := s.SetOperatingMode(ctx, m); err != nil {
			return err
		}
	}
	if _, err := s.SyncLimits(ctx); err != nil {
		return err
	}
	if sc.HomingOffset != nil {
		if err := s.SetHomingOffset(ctx, *sc.HomingOffset); err != nil {
			return err
		}
	}

	// Physical limits convert against the configured limit, so start from
	// the family ceiling and let the conversion bring it down.
	l := sc.Limits
	if l.CurrentAmps > 0 {
		if err := s.SetMaxCurrentLimit(ctx); err != nil {
			return err
		}
		if err := s.SetCurrentLimitAmps(ctx, l.CurrentAmps); err != nil {
			return err
		}
	}
	caps := s.Profile().Caps
	if l.VelocityRPM > 0 {
		if err := s.SetVelocityLimit(ctx, caps.VelocityCode); err != nil {
			return err
		}
		if err := s.SetVelocityLimitRPM(ctx, l.VelocityRPM); err != nil {
			return err
		}
	}
	if l.AccelerationRPM2 > 0 {
		if err := s.SetAccelerationLimit(ctx, caps.AccelerationCode); err != nil {
			return err
		}
		if err := s.SetAccelerationLimitRPM2(ctx, l.AccelerationRPM2); err != nil {
			return err
		}
	}
	if err := j.applyPositionLimits(ctx); err != nil {
		return err
	}

	if v := sc.Motion.VelocityRPM; v > 0 {
		if err := s.SetProfileVelocityRPM(ctx, v); err != nil {
			return err
		}
	}
	if a := sc.Motion.AccelerationRPM2; a > 0 {
		if err := s.SetProfileAccelerationRPM2(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (j *Joint) applyPositionLimits(ctx context.Context) error {
	s := j.Session
	lo, hi := j.Config.Limits.MinAngle, j.Config.Limits.MaxAngle
	set := func(b servo.Bound, deg *float64) error {
		if deg == nil {
			return nil
		}
		return s.SetPositionLimitAngle(ctx, b, *deg)
	}
	err := set(servo.Min, lo)
	if errors.Is(err, servo.ErrOutOfRange) && hi != nil {
		// The new window may lie entirely above the old one.
		if err := set(servo.Max, hi); err != nil {
			return err
		}
		return set(servo.Min, lo)
	}
	if err != nil {
		return err
	}
	return set(servo.Max, hi)
}

// EnableAll enables torque on every joint.
func (r *Rig) EnableAll(ctx context.Context) error {
	var errs error
	for _, j := range r.joints {
		errs = multierr.Append(errs, j.Session.EnableTorque(ctx))
	}
	return errs
}

// DisableAll disables torque on every joint.
func (r *Rig) DisableAll(ctx context.Context) error {
	var errs error
	for _, j := range r.joints {
		errs = multierr.Append(errs, j.Session.DisableTorque(ctx))
	}
	return errs
}

// ReadAngles reads the present angle of every joint in degrees.
func (r *Rig) ReadAngles(ctx context.Context) (map[string]float64, error) {
	angles := make(map[string]float64, len(r.joints))
	for _, j := range r.joints {
		a, err := j.Session.ReadAngle(ctx)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", j.Name, err)
		}
		angles[j.Name] = a
	}
	return angles, nil
}

// Close disables torque on every joint and closes the transport if it
// holds resources.
func (r *Rig) Close(ctx context.Context) error {
	err := r.DisableAll(ctx)
	if c, ok := r.transport.(io.Closer); ok {
		err = multierr.Append(err, c.Close())
	}
	return err
}
