// Package servo drives a single servo through family-independent
// operations: torque and mode control, limits, goal sequencing, telemetry
// and fault handling.
//
// A Session is bound to one device profile at construction. It caches the
// limits it has written or read back and refuses requests that would need
// a limit it does not know. Sessions are not safe for concurrent use.
//
// Failed reads and writes return their error and leave the cached state
// untouched.
package servo

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gwillem/dxlservo/pkg/convert"
	"github.com/gwillem/dxlservo/pkg/profile"
	"github.com/gwillem/dxlservo/pkg/transport"
)

// Config configures a Session.
type Config struct {
	ID        uint8
	Profile   *profile.Profile
	Transport transport.Transport

	// Logger receives debug and failure logs. Defaults to discarding.
	Logger *slog.Logger
	// OnNotice receives operator notices. Defaults to LogNotices(Logger).
	OnNotice NoticeFunc

	Settle SettleOptions

	// Now is used for cooldown deadlines. Defaults to time.Now.
	Now func() time.Time
}

// Limits are the limits the session knows to be configured on the device.
type Limits struct {
	Current      convert.Limit
	Velocity     convert.Limit
	Acceleration convert.Limit
	PositionMin  convert.Limit
	PositionMax  convert.Limit
}

// State is the cached view of the device.
type State struct {
	Position     int32
	Velocity     int32
	Temperature  int32
	Current      int32
	HomingOffset int32

	Limits              Limits
	ProfileVelocity     int32
	ProfileAcceleration int32

	TorqueEnabled bool
	Mode          profile.Mode
	PortModes     [4]PortMode
}

// Session is a connection to one servo.
type Session struct {
	prof     *profile.Profile
	conv     convert.Converter
	io       *transport.Adapter
	logger   *slog.Logger
	onNotice NoticeFunc
	settle   SettleOptions
	now      func() time.Time

	state State
	queue []Goal
	phase Phase

	cooldownUntil time.Time
}

// New creates a session. The profile is fixed for the session's lifetime.
func New(cfg Config) (*Session, error) {
	if cfg.Profile == nil {
		return nil, errors.New("servo: profile is required")
	}
	if cfg.Transport == nil {
		return nil, errors.New("servo: transport is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("servo_id", cfg.ID, "family", cfg.Profile.Family.String())
	onNotice := cfg.OnNotice
	if onNotice == nil {
		onNotice = LogNotices(logger)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Session{
		prof:     cfg.Profile,
		conv:     convert.New(cfg.Profile),
		io:       transport.NewAdapter(cfg.Transport, cfg.ID, logger),
		logger:   logger,
		onNotice: onNotice,
		settle:   cfg.Settle.withDefaults(),
		now:      now,
	}, nil
}

// ID returns the device ID the session addresses.
func (s *Session) ID() uint8 { return s.io.ID() }

// SetID selects another device ID. Cached state is cleared since it
// described the previous device.
func (s *Session) SetID(id uint8) {
	if id == s.io.ID() {
		return
	}
	s.io.SetID(id)
	s.state = State{}
	s.phase = PhaseIdle
	s.cooldownUntil = time.Time{}
}

// Profile returns the session's device profile.
func (s *Session) Profile() *profile.Profile { return s.prof }

// Protocol returns the bus generation.
func (s *Session) Protocol() transport.Protocol { return s.io.Protocol() }

// State returns a copy of the cached device state.
func (s *Session) State() State { return s.state }

// Limits returns the cached limits.
func (s *Session) Limits() Limits { return s.state.Limits }

func (s *Session) String() string {
	return fmt.Sprintf("%s#%d", s.prof.Model, s.io.ID())
}

func (s *Session) reg(op profile.Operation) (profile.Register, error) {
	r, err := s.prof.Register(op)
	if err != nil {
		return profile.Register{}, invalid(op.String(), nil, err)
	}
	return r, nil
}
