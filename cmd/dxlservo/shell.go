package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/gwillem/dxlservo/pkg/profile"
	"github.com/gwillem/dxlservo/pkg/rig"
	"github.com/gwillem/dxlservo/pkg/servo"
)

type ShellCommand struct {
	Joint   string        `short:"j" long:"joint" description:"Joint to start on"`
	Timeout time.Duration `long:"timeout" default:"10s" description:"Per-command timeout"`
}

type shell struct {
	rig     *rig.Rig
	joint   *rig.Joint
	rl      *readline.Instance
	out     io.Writer
	timeout time.Duration
}

func (c *ShellCommand) Execute(args []string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "dxl> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	sh := &shell{rl: rl, out: rl.Stdout(), timeout: c.Timeout}
	r, err := openRig(context.Background(), sh.notice)
	if err != nil {
		return err
	}
	defer r.Close(context.Background())
	sh.rig = r

	if sh.joint, err = findJoint(r, c.Joint); err != nil {
		sh.joint = r.Joints()[0]
	}
	sh.updatePrompt()
	sh.printHelp()
	sh.run()
	return nil
}

func (sh *shell) notice(n servo.Notice) {
	fmt.Fprintln(sh.out, warnStyle.Render(fmt.Sprintf("[%s] servo %d: %s", n.Kind, n.ServoID, n.Message)))
}

func (sh *shell) updatePrompt() {
	sh.rl.SetPrompt(fmt.Sprintf("%s(%d)> ", sh.joint.Name, sh.joint.Session.ID()))
}

func (sh *shell) run() {
	for {
		line, err := sh.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(sh.out, "Exiting...")
			return
		}

		parts := strings.Fields(strings.TrimSpace(line))
		if len(parts) == 0 {
			continue
		}
		cmd := strings.ToLower(parts[0])
		if cmd == "quit" || cmd == "exit" || cmd == "q" {
			fmt.Fprintln(sh.out, "Exiting...")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), sh.timeout)
		err = sh.dispatch(ctx, cmd, parts[1:])
		cancel()
		if err != nil {
			fmt.Fprintln(sh.out, errorStyle.Render(fmt.Sprintf("%s error: %v", servo.ClassOf(err), err)))
		}
	}
}

func (sh *shell) dispatch(ctx context.Context, cmd string, args []string) error {
	s := sh.joint.Session
	switch cmd {
	case "help", "?":
		sh.printHelp()

	case "joint", "j":
		if len(args) == 0 {
			for _, j := range sh.rig.Joints() {
				fmt.Fprintf(sh.out, "  %s (id %d, %s)\n", j.Name, j.Session.ID(), j.Session.Profile().Family)
			}
			return nil
		}
		j, err := findJoint(sh.rig, args[0])
		if err != nil {
			return err
		}
		sh.joint = j
		sh.updatePrompt()

	case "enable":
		return s.EnableTorque(ctx)
	case "disable":
		return s.DisableTorque(ctx)

	case "pos", "p":
		snap, err := s.Snapshot(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "  angle %.2f° (code %d), velocity %.1f rpm, moving %v\n",
			snap.Angle, snap.Position, snap.Velocity, snap.Moving)

	case "goto", "g":
		deg, err := floatArg(args, 0)
		if err != nil {
			return err
		}
		return sh.report(s.CommandAngle(ctx, deg))

	case "code":
		code, err := floatArg(args, 0)
		if err != nil {
			return err
		}
		return sh.report(s.CommandPosition(ctx, int32(code)))

	case "queue":
		if len(args) == 0 {
			for i, g := range s.Queue() {
				fmt.Fprintf(sh.out, "  %d: %s\n", i, goalLabel(g))
			}
			return nil
		}
		for i := range args {
			deg, err := floatArg(args, i)
			if err != nil {
				return err
			}
			s.AppendAngles(deg)
		}
		return s.ValidateQueue()

	case "clear":
		s.ClearQueue()

	case "run":
		if len(args) > 0 {
			i, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}
			return sh.report(s.CommandIndex(ctx, i))
		}
		if s.QueueLen() == 0 {
			return servo.ErrEmptyQueue
		}
		for i := range s.QueueLen() {
			if err := sh.report(s.CommandIndex(ctx, i)); err != nil {
				return err
			}
		}

	case "limits":
		l, err := s.SyncLimits(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "  current %s  velocity %s  acceleration %s  position %s..%s\n",
			l.Current, l.Velocity, l.Acceleration, l.PositionMin, l.PositionMax)

	case "set":
		return sh.setLimit(ctx, args)

	case "mode":
		if len(args) == 0 {
			m, err := s.ReadOperatingMode(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(sh.out, "  %s (supported: %v)\n", m, s.Profile().Modes())
			return nil
		}
		m, err := profile.ParseMode(args[0])
		if err != nil {
			return err
		}
		return s.SetOperatingMode(ctx, m)

	case "temp":
		return sh.reading(s.CheckTemperature(ctx))
	case "current":
		return sh.reading(s.CheckCurrent(ctx))

	case "fault":
		d, err := s.CheckShutdown(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "  %s\n", d)

	case "reboot":
		return s.Reboot(ctx)

	case "led":
		switch len(args) {
		case 1:
			v, err := floatArg(args, 0)
			if err != nil {
				return err
			}
			return s.SetLED(ctx, int32(v))
		case 3:
			var rgb [3]int32
			for i := range rgb {
				v, err := floatArg(args, i)
				if err != nil {
					return err
				}
				rgb[i] = int32(v)
			}
			return s.SetLEDColor(ctx, rgb[0], rgb[1], rgb[2])
		}
		return errors.New("usage: led <value> | led <r> <g> <b>")

	case "gains":
		g, err := s.ReadPositionGains(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(sh.out, "  P %d  I %d  D %d  FF1 %d  FF2 %d\n", g.P, g.I, g.D, g.FF1, g.FF2)

	default:
		fmt.Fprintf(sh.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return nil
}

func (sh *shell) setLimit(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: set <current|velocity|accel|profile-velocity|profile-accel|min|max> <value>")
	}
	v, err := floatArg(args, 1)
	if err != nil {
		return err
	}
	s := sh.joint.Session
	switch args[0] {
	case "current":
		return s.SetCurrentLimitAmps(ctx, v)
	case "velocity":
		return s.SetVelocityLimitRPM(ctx, v)
	case "accel":
		return s.SetAccelerationLimitRPM2(ctx, v)
	case "profile-velocity":
		return s.SetProfileVelocityRPM(ctx, v)
	case "profile-accel":
		return s.SetProfileAccelerationRPM2(ctx, v)
	case "min":
		return s.SetPositionLimitAngle(ctx, servo.Min, v)
	case "max":
		return s.SetPositionLimitAngle(ctx, servo.Max, v)
	}
	return fmt.Errorf("unknown limit %q", args[0])
}

func (sh *shell) report(res servo.SettleResult, err error) error {
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "  settled after %d polls\n", res.Polls)
	return nil
}

func (sh *shell) reading(r servo.Reading, err error) error {
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "  %.3g %s of %.3g %s: %s\n", r.Value, r.Unit, r.Limit, r.Unit, r.Level)
	if r.Diagnosis != nil {
		fmt.Fprintf(sh.out, "  %s\n", r.Diagnosis)
	}
	return nil
}

func floatArg(args []string, i int) (float64, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing argument %d", i+1)
	}
	v, err := strconv.ParseFloat(args[i], 64)
	if err != nil {
		return 0, fmt.Errorf("argument %d: %w", i+1, err)
	}
	return v, nil
}

func (sh *shell) printHelp() {
	fmt.Fprintln(sh.out, `
Commands:
  Motion:
    enable | disable        - Torque on/off
    pos                     - Read position, velocity and motion
    goto <deg>              - Move to an angle and wait
    code <n>                - Move to a raw position code and wait
    queue [deg...]          - Append angles to the goal queue, or list it
    run [index]             - Command one queued goal, or all of them
    clear                   - Empty the goal queue
    mode [name]             - Show or set the operating mode

  Limits:
    limits                  - Read every limit from the device
    set <limit> <value>     - current (A), velocity (rpm), accel (rpm²),
                              profile-velocity, profile-accel, min/max (deg)

  Health:
    temp | current          - Compare with the configured limit
    fault                   - Read the hardware error status and recover
    reboot                  - Reboot the servo (protocol 2.0)

  Extras:
    led <v> | led <r g b>   - Set the LED
    gains                   - Read position PID gains

  joint [name]              - List joints or switch to another one
  quit                      - Exit`)
}
