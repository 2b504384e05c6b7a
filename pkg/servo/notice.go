package servo

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// NoticeKind identifies an operator notification.
type NoticeKind int

const (
	NoticeClamped NoticeKind = iota + 1
	NoticeUnderPowered
	NoticeSettleProgress
	NoticeTemperatureWarning
	NoticeTemperatureExceeded
	NoticeCurrentWarning
	NoticeCurrentExceeded
	NoticeOverheat
	NoticeRebooted
	NoticePowerCycleRequired
	NoticeModeMismatch
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeClamped:
		return "clamped"
	case NoticeUnderPowered:
		return "under_powered"
	case NoticeSettleProgress:
		return "settle_progress"
	case NoticeTemperatureWarning:
		return "temperature_warning"
	case NoticeTemperatureExceeded:
		return "temperature_exceeded"
	case NoticeCurrentWarning:
		return "current_warning"
	case NoticeCurrentExceeded:
		return "current_exceeded"
	case NoticeOverheat:
		return "overheat"
	case NoticeRebooted:
		return "rebooted"
	case NoticePowerCycleRequired:
		return "power_cycle_required"
	case NoticeModeMismatch:
		return "mode_mismatch"
	default:
		return fmt.Sprintf("notice(%d)", int(k))
	}
}

// Level returns the slog level a notice is logged at.
func (k NoticeKind) Level() slog.Level {
	switch k {
	case NoticeSettleProgress, NoticeRebooted:
		return slog.LevelInfo
	case NoticeTemperatureExceeded, NoticeCurrentExceeded, NoticeOverheat, NoticePowerCycleRequired:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Notice is a warning or progress message meant for the operator.
type Notice struct {
	Kind    NoticeKind
	ServoID uint8
	Message string
	Time    time.Time
}

// NoticeFunc receives notices. It is called synchronously from the
// operation that raised the notice.
type NoticeFunc func(Notice)

// LogNotices returns a NoticeFunc writing each notice to logger.
func LogNotices(logger *slog.Logger) NoticeFunc {
	return func(n Notice) {
		logger.LogAttrs(context.Background(), n.Kind.Level(), n.Message,
			slog.String("notice", n.Kind.String()),
			slog.Int("servo_id", int(n.ServoID)),
		)
	}
}

// Notices fans a notice out to several receivers.
func Notices(fns ...NoticeFunc) NoticeFunc {
	return func(n Notice) {
		for _, fn := range fns {
			if fn != nil {
				fn(n)
			}
		}
	}
}

func (s *Session) notice(kind NoticeKind, format string, args ...any) {
	s.onNotice(Notice{
		Kind:    kind,
		ServoID: s.io.ID(),
		Message: fmt.Sprintf(format, args...),
		Time:    s.now(),
	})
}
