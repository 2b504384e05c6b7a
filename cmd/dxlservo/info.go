package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/dxlservo/pkg/convert"
	"github.com/gwillem/dxlservo/pkg/rig"
	"github.com/gwillem/dxlservo/pkg/servo"
)

type InfoCommand struct {
	Timeout time.Duration `long:"timeout" default:"5s" description:"Give up after this long"`
}

func (c *InfoCommand) Execute(args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	r, err := openRig(ctx, nil)
	if err != nil {
		return err
	}
	defer r.Close(context.Background())

	fmt.Println(headerStyle.Render("Servo snapshot"))
	fmt.Println(dimStyle.Render(opts.Config))
	fmt.Println()

	var rows [][]string
	var failed []bool
	for _, j := range r.Joints() {
		row, err := infoRow(ctx, j)
		if err != nil {
			row = []string{j.Name, fmt.Sprint(j.Config.ID), j.Config.Family.String(), err.Error(), "", "", "", "", ""}
		}
		rows = append(rows, row)
		failed = append(failed, err != nil)
	}

	headerCell := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	nameCell := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	badCell := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Joint", "ID", "Family", "Angle", "Temp", "Current", "Velocity", "Limits", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCell
			}
			if row >= 0 && row < len(failed) && failed[row] && col == 3 {
				return badCell
			}
			if col == 0 {
				return nameCell
			}
			return cell
		})
	fmt.Println(t.Render())
	return nil
}

func infoRow(ctx context.Context, j *rig.Joint) ([]string, error) {
	s := j.Session
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	limits, err := s.SyncLimits(ctx)
	if err != nil {
		return nil, err
	}

	status := "ok"
	if snap.Status != 0 {
		var names []string
		for _, f := range servo.HardwareFaults(snap.Status) {
			names = append(names, f.String())
		}
		status = fmt.Sprintf("0x%02x %s", snap.Status, strings.Join(names, ", "))
	}
	if locked, until := s.LockedOut(); locked {
		status = "locked out until " + until.Format(time.TimeOnly)
	}

	conv := convert.New(s.Profile())
	return []string{
		j.Name,
		fmt.Sprint(s.ID()),
		s.Profile().Family.String(),
		fmt.Sprintf("%.1f° (%d)", snap.Angle, snap.Position),
		fmt.Sprintf("%d°C", snap.Temperature),
		fmt.Sprintf("%.3f A", snap.Current),
		fmt.Sprintf("%.1f rpm", snap.Velocity),
		fmt.Sprintf("%s / %s / %s",
			physical(conv, convert.Current, limits.Current),
			physical(conv, convert.Velocity, limits.Velocity),
			physical(conv, convert.Acceleration, limits.Acceleration)),
		status,
	}, nil
}

func physical(conv convert.Converter, q convert.Quantity, l convert.Limit) string {
	if !l.Set {
		return "unset"
	}
	return fmt.Sprintf("%.3g %s", conv.ToPhysical(q, l.Code), q.Unit())
}
