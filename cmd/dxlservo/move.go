package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gwillem/dxlservo/pkg/servo"
)

type MoveCommand struct {
	Joint   string        `short:"j" long:"joint" description:"Joint name (optional with a single joint)"`
	Code    bool          `long:"code" description:"Interpret targets as raw position codes"`
	Timeout time.Duration `long:"timeout" default:"10s" description:"Give up waiting for the move after this long"`
	Keep    bool          `long:"keep-torque" description:"Leave torque enabled when done"`

	Args struct {
		Targets []float64 `positional-arg-name:"target" required:"1"`
	} `positional-args:"yes"`
}

func (c *MoveCommand) Execute(args []string) error {
	ctx := context.Background()
	r, err := openRig(ctx, nil)
	if err != nil {
		return err
	}
	j, err := findJoint(r, c.Joint)
	if err != nil {
		return err
	}
	s := j.Session
	defer func() {
		if !c.Keep {
			_ = s.DisableTorque(context.Background())
		}
	}()

	if ok, err := s.CheckPositionMode(ctx); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("joint %s is not in a position mode", j.Name)
	}

	if c.Code {
		codes := make([]int32, len(c.Args.Targets))
		for i, t := range c.Args.Targets {
			codes[i] = int32(t)
		}
		s.AppendPositions(codes...)
	} else {
		s.AppendAngles(c.Args.Targets...)
	}
	if err := s.ValidateQueue(); err != nil {
		return err
	}
	if err := s.EnableTorque(ctx); err != nil {
		return err
	}

	for i, goal := range s.Queue() {
		runCtx, cancel := context.WithTimeout(ctx, c.Timeout)
		res, err := s.CommandIndex(runCtx, i)
		cancel()

		var se *servo.SettleError
		switch {
		case errors.As(err, &se):
			fmt.Println(warnStyle.Render(fmt.Sprintf("%s: still settling after %d polls", goalLabel(goal), se.Polls)))
			return err
		case err != nil:
			return fmt.Errorf("%s: %w (%s)", goalLabel(goal), err, servo.ClassOf(err))
		}

		angle, err := s.ReadAngle(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s %s settled after %d polls at %.2f°\n",
			successStyle.Render("✓"), goalLabel(goal), res.Polls, angle)
	}
	return nil
}

func goalLabel(g servo.Goal) string {
	if g.IsAngle {
		return fmt.Sprintf("%.2f°", g.Angle)
	}
	return fmt.Sprintf("position %d", g.Code)
}
