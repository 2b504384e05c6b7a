package servo

import (
	"context"
	"fmt"
	"time"

	"github.com/gwillem/dxlservo/pkg/profile"
)

// Phase is the progress of the most recent goal.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidated
	PhaseTransmitted
	PhaseSettling
	PhaseSettled
	PhaseAborted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseValidated:
		return "validated"
	case PhaseTransmitted:
		return "transmitted"
	case PhaseSettling:
		return "settling"
	case PhaseSettled:
		return "settled"
	case PhaseAborted:
		return "aborted"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// SettleOptions control how motion completion is awaited.
type SettleOptions struct {
	// PollInterval is the pause between Moving reads. Default 5ms.
	PollInterval time.Duration
	// ProgressEvery raises NoticeSettleProgress every N polls. Default 30.
	ProgressEvery int
	// Timeout bounds a single wait. Zero waits until ctx is done.
	Timeout time.Duration
}

func (o SettleOptions) withDefaults() SettleOptions {
	if o.PollInterval <= 0 {
		o.PollInterval = 5 * time.Millisecond
	}
	if o.ProgressEvery <= 0 {
		o.ProgressEvery = 30
	}
	return o
}

// SettleResult describes a finished or interrupted wait.
type SettleResult struct {
	Polls int
	Phase Phase
}

// MotionPhase returns the phase of the most recent goal.
func (s *Session) MotionPhase() Phase { return s.phase }

// Settle polls the Moving flag until it clears. A cancelled or timed out
// wait returns a *SettleError and leaves the phase at PhaseSettling so a
// later call can resume. Read failures abort the wait.
func (s *Session) Settle(ctx context.Context) (SettleResult, error) {
	r, err := s.reg(profile.Moving)
	if err != nil {
		return SettleResult{Phase: s.phase}, err
	}
	if s.settle.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.settle.Timeout)
		defer cancel()
	}

	s.phase = PhaseSettling
	timer := time.NewTimer(s.settle.PollInterval)
	timer.Stop()
	defer timer.Stop()

	polls := 0
	for {
		if err := ctx.Err(); err != nil {
			return SettleResult{Polls: polls, Phase: s.phase}, &SettleError{Polls: polls, Err: err}
		}
		moving, err := s.io.Read(ctx, r)
		if err != nil {
			if ctx.Err() != nil {
				return SettleResult{Polls: polls, Phase: s.phase}, &SettleError{Polls: polls, Err: ctx.Err()}
			}
			s.phase = PhaseAborted
			return SettleResult{Polls: polls, Phase: s.phase}, fmt.Errorf("settle: %w", err)
		}
		polls++
		if moving == 0 {
			s.phase = PhaseSettled
			return SettleResult{Polls: polls, Phase: s.phase}, nil
		}
		if polls%s.settle.ProgressEvery == 0 {
			s.notice(NoticeSettleProgress, "servo still moving after %d polls", polls)
		}

		timer.Reset(s.settle.PollInterval)
		select {
		case <-ctx.Done():
			return SettleResult{Polls: polls, Phase: s.phase}, &SettleError{Polls: polls, Err: ctx.Err()}
		case <-timer.C:
		}
	}
}
