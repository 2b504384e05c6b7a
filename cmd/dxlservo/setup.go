package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/gwillem/dxlservo/pkg/profile"
	"github.com/gwillem/dxlservo/pkg/rig"
)

type SetupCommand struct {
	Force bool `short:"f" long:"force" description:"Overwrite an existing config file"`
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("dxlservo Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━"))
	fmt.Println()

	if _, err := os.Stat(opts.Config); err == nil && !c.Force {
		return fmt.Errorf("%s already exists, use --force to overwrite", opts.Config)
	}

	cfg := &rig.Config{Transport: rig.TransportConfig{Backend: "sim"}}
	if err := askTransport(&cfg.Transport); err != nil {
		return err
	}

	for {
		fmt.Println()
		fmt.Println(subHeaderStyle.Render(fmt.Sprintf("━━━ Servo %d ━━━", len(cfg.Servos)+1)))
		sc, err := askServo(cfg)
		if err != nil {
			return err
		}
		cfg.Servos = append(cfg.Servos, sc)

		more := false
		form := huh.NewForm(huh.NewGroup(
			huh.NewConfirm().
				Title("Add another servo?").
				Value(&more),
		))
		if err := form.Run(); err != nil {
			return err
		}
		if !more {
			break
		}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.SaveTo(opts.Config); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Inspect the servos with: " + headerStyle.Render("dxlservo info"))
	return nil
}

func askTransport(tc *rig.TransportConfig) error {
	portOptions := []huh.Option[string]{huh.NewOption("None (simulated bus only)", "")}
	if ports, err := listPorts(); err == nil {
		for _, p := range ports {
			portOptions = append(portOptions, huh.NewOption(p, p))
		}
	}

	tc.Protocol = "2.0"
	baud := "1000000"
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Serial port").
				Description("Recorded for a hardware transport; the bus itself is simulated").
				Options(portOptions...).
				Value(&tc.Port),
			huh.NewInput().
				Title("Baud rate").
				Value(&baud).
				Validate(positiveInt),
			huh.NewSelect[string]().
				Title("Protocol").
				Options(
					huh.NewOption("2.0 (supports reboot)", "2.0"),
					huh.NewOption("1.0", "1.0"),
				).
				Value(&tc.Protocol),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}
	tc.Baud, _ = strconv.Atoi(baud)
	return nil
}

func askServo(cfg *rig.Config) (rig.ServoConfig, error) {
	var (
		sc     rig.ServoConfig
		id     = strconv.Itoa(len(cfg.Servos) + 1)
		family = profile.Compact
	)
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Name").
				Value(&sc.Name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("name is required")
					}
					if _, ok := cfg.Servo(s); ok {
						return fmt.Errorf("%q is taken", s)
					}
					return nil
				}),
			huh.NewInput().
				Title("Bus ID").
				Value(&id).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n < 1 || n > 252 {
						return errors.New("enter an ID between 1 and 252")
					}
					for _, other := range cfg.Servos {
						if int(other.ID) == n {
							return fmt.Errorf("ID %d is used by %s", n, other.Name)
						}
					}
					return nil
				}),
			huh.NewSelect[profile.Family]().
				Title("Family").
				Options(
					huh.NewOption("Compact (MX-64)", profile.Compact),
					huh.NewOption("Pro (M42)", profile.Pro),
				).
				Value(&family),
		),
	)
	if err := form.Run(); err != nil {
		return sc, err
	}
	n, _ := strconv.Atoi(id)
	sc.ID = uint8(n)
	sc.Family = family

	p := profile.MustFor(family)
	var modeOptions []huh.Option[string]
	for _, m := range p.Modes() {
		modeOptions = append(modeOptions, huh.NewOption(m.String(), m.String()))
	}
	sc.Mode = profile.ModePosition.String()
	var current, velocity, minAngle, maxAngle string
	form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Operating mode").
				Options(modeOptions...).
				Value(&sc.Mode),
			huh.NewInput().
				Title(fmt.Sprintf("Current limit in A (max %.2f, blank to keep)", p.Caps.CurrentAmps)).
				Value(&current).
				Validate(optionalFloat),
			huh.NewInput().
				Title(fmt.Sprintf("Velocity limit in rpm (max %.0f, blank to keep)", float64(p.Caps.VelocityCode)*p.Scales.Velocity)).
				Value(&velocity).
				Validate(optionalFloat),
			huh.NewInput().
				Title(fmt.Sprintf("Minimum angle (%.0f..%.0f, blank to keep)", p.Caps.AngleMin, p.Caps.AngleMax)).
				Value(&minAngle).
				Validate(optionalFloat),
			huh.NewInput().
				Title("Maximum angle (blank to keep)").
				Value(&maxAngle).
				Validate(optionalFloat),
		),
	)
	if err := form.Run(); err != nil {
		return sc, err
	}

	sc.Limits.CurrentAmps, _ = parseOptional(current)
	sc.Limits.VelocityRPM, _ = parseOptional(velocity)
	if v, ok := parseOptional(minAngle); ok {
		sc.Limits.MinAngle = &v
	}
	if v, ok := parseOptional(maxAngle); ok {
		sc.Limits.MaxAngle = &v
	}
	return sc, nil
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return errors.New("enter a positive number")
	}
	return nil
}

func optionalFloat(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
		return errors.New("enter a number")
	}
	return nil
}

func parseOptional(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}
