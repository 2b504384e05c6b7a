package servo

import (
	"context"
	"fmt"
	"math"

	"github.com/gwillem/dxlservo/pkg/profile"
)

// Goal is a queued target, either a raw position code or an angle.
type Goal struct {
	Code    int32
	Angle   float64
	IsAngle bool
}

// PositionGoal returns a raw position goal.
func PositionGoal(code int32) Goal { return Goal{Code: code} }

// AngleGoal returns an angle goal in degrees.
func AngleGoal(deg float64) Goal { return Goal{Angle: deg, IsAngle: true} }

func (g Goal) String() string {
	if g.IsAngle {
		return fmt.Sprintf("%.2f°", g.Angle)
	}
	return fmt.Sprintf("%d", g.Code)
}

// AppendPositions queues raw position goals.
func (s *Session) AppendPositions(codes ...int32) {
	for _, c := range codes {
		s.queue = append(s.queue, PositionGoal(c))
	}
}

// AppendAngles queues angle goals.
func (s *Session) AppendAngles(degrees ...float64) {
	for _, d := range degrees {
		s.queue = append(s.queue, AngleGoal(d))
	}
}

// Queue returns a copy of the queued goals.
func (s *Session) Queue() []Goal {
	return append([]Goal(nil), s.queue...)
}

// QueueLen returns the number of queued goals.
func (s *Session) QueueLen() int { return len(s.queue) }

// ClearQueue drops all queued goals.
func (s *Session) ClearQueue() { s.queue = nil }

// ValidateQueue checks every queued goal and reports the first invalid one.
func (s *Session) ValidateQueue() error {
	if len(s.queue) == 0 {
		return invalid("validate queue", nil, ErrEmptyQueue)
	}
	for i, g := range s.queue {
		if _, err := s.goalCode(fmt.Sprintf("goal %d", i), g); err != nil {
			return err
		}
	}
	return nil
}

// CommandIndex sends the queued goal at index i and waits for it to settle.
func (s *Session) CommandIndex(ctx context.Context, i int) (SettleResult, error) {
	if len(s.queue) == 0 {
		return SettleResult{Phase: s.phase}, invalid("command goal", i, ErrEmptyQueue)
	}
	if i < 0 || i >= len(s.queue) {
		return SettleResult{Phase: s.phase}, invalid("command goal", i, fmt.Errorf("%w: queue holds %d", ErrIndexOutOfRange, len(s.queue)))
	}
	return s.command(ctx, fmt.Sprintf("goal %d", i), s.queue[i])
}

// CommandPosition sends a raw position goal and waits for it to settle.
func (s *Session) CommandPosition(ctx context.Context, code int32) (SettleResult, error) {
	return s.command(ctx, "command position", PositionGoal(code))
}

// CommandAngle sends an angle goal and waits for it to settle.
func (s *Session) CommandAngle(ctx context.Context, deg float64) (SettleResult, error) {
	return s.command(ctx, "command angle", AngleGoal(deg))
}

func (s *Session) command(ctx context.Context, op string, g Goal) (SettleResult, error) {
	if err := s.checkLockout(op); err != nil {
		return SettleResult{Phase: s.phase}, err
	}
	code, err := s.goalCode(op, g)
	if err != nil {
		return SettleResult{Phase: s.phase}, err
	}
	r, err := s.reg(profile.GoalPosition)
	if err != nil {
		return SettleResult{Phase: s.phase}, err
	}
	s.phase = PhaseValidated

	if err := s.io.WriteSigned(ctx, r, code); err != nil {
		s.phase = PhaseAborted
		return SettleResult{Phase: s.phase}, fmt.Errorf("%s %s: %w", op, g, err)
	}
	s.phase = PhaseTransmitted
	s.logger.Debug("goal transmitted", "goal", g.String(), "code", code)

	return s.Settle(ctx)
}

// goalCode validates g against the family window and the configured
// position limits and returns the code to transmit.
func (s *Session) goalCode(op string, g Goal) (int32, error) {
	caps := s.prof.Caps
	var code int32
	if g.IsAngle {
		if math.IsNaN(g.Angle) || g.Angle < caps.AngleMin || g.Angle > caps.AngleMax {
			return 0, invalid(op, g, fmt.Errorf("%w: angle window %g..%g", ErrOutOfRange, caps.AngleMin, caps.AngleMax))
		}
		code = s.conv.AngleToCode(g.Angle, s.state.HomingOffset)
	} else {
		code = g.Code
	}
	if code < caps.PositionMin || code > caps.PositionMax {
		return 0, invalid(op, g, fmt.Errorf("%w: code %d outside position window %d..%d", ErrOutOfRange, code, caps.PositionMin, caps.PositionMax))
	}

	l := s.state.Limits
	if l.PositionMin.Set && code < l.PositionMin.Code || l.PositionMax.Set && code > l.PositionMax.Code {
		return 0, invalid(op, g, fmt.Errorf("%w: code %d outside position limits %s..%s", ErrOutOfRange, code, l.PositionMin, l.PositionMax))
	}
	return code, nil
}
