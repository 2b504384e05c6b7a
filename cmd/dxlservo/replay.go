package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/dxlservo/pkg/telemetry"
)

type ReplayCommand struct {
	Joint     string `short:"j" long:"joint" description:"Only show this joint"`
	Kind      string `short:"k" long:"kind" choice:"sample" choice:"notice" choice:"error" description:"Only show this record kind"`
	Recording string `long:"recording" description:"Only show this recording UUID"`
	Limit     int    `short:"n" long:"limit" default:"0" description:"Stop after this many records (0 = all)"`

	Args struct {
		File string `positional-arg-name:"file" required:"yes"`
	} `positional-args:"yes"`
}

func (c *ReplayCommand) Execute(args []string) error {
	filter := telemetry.Filter{Joint: c.Joint, Recording: c.Recording}
	if c.Kind != "" {
		k := parseKind(c.Kind)
		filter.Kind = &k
	}

	r, err := telemetry.NewFilteredReader(c.Args.File, filter)
	if err != nil {
		return err
	}
	defer r.Close()

	var (
		rows       [][]string
		kinds      []telemetry.Kind
		recordings = make(map[string]int)
	)
	for c.Limit == 0 || len(rows) < c.Limit {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", c.Args.File, err)
		}
		recordings[rec.Recording]++
		rows = append(rows, replayRow(rec))
		kinds = append(kinds, rec.Kind)
	}

	if len(rows) == 0 {
		fmt.Println("No matching records.")
		return nil
	}

	headerCell := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	noticeCell := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	errorCell := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("#", "Time", "Joint", "Kind", "Reading").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCell
			}
			if row < 0 || row >= len(kinds) {
				return cell
			}
			switch kinds[row] {
			case telemetry.KindNotice:
				return noticeCell
			case telemetry.KindError:
				return errorCell
			}
			return cell
		})
	fmt.Println(t.Render())

	for id, n := range recordings {
		fmt.Println(dimStyle.Render(fmt.Sprintf("recording %s: %d records", id, n)))
	}
	return nil
}

func parseKind(s string) telemetry.Kind {
	switch s {
	case "notice":
		return telemetry.KindNotice
	case "error":
		return telemetry.KindError
	}
	return telemetry.KindSample
}

func replayRow(rec telemetry.Record) []string {
	var reading string
	switch {
	case rec.Sample != nil:
		s := rec.Sample
		reading = fmt.Sprintf("%.2f° (%d)  %d°C  %.3f A  %.1f rpm", s.Angle, s.Position, s.Temperature, s.Current, s.Velocity)
		if s.Moving {
			reading += "  moving"
		}
		if s.Status != 0 {
			reading += fmt.Sprintf("  status 0x%02x", s.Status)
		}
	case rec.Notice != nil:
		reading = rec.Notice.Kind + ": " + rec.Notice.Message
	case rec.Error != nil:
		reading = rec.Error.Class + ": " + rec.Error.Message
	}
	return []string{
		fmt.Sprint(rec.Seq),
		rec.Time.Local().Format(time.TimeOnly + ".000"),
		rec.Joint,
		rec.Kind.String(),
		reading,
	}
}
