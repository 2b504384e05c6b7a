package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/gwillem/dxlservo/pkg/rig"
	"github.com/gwillem/dxlservo/pkg/servo"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	switch len(opts.Verbose) {
	case 0:
	case 1:
		level = slog.LevelInfo
	default:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadConfig() (*rig.Config, error) {
	cfg, err := rig.LoadConfigFrom(opts.Config)
	if err != nil {
		return nil, fmt.Errorf("%w (run 'dxlservo setup' first)", err)
	}
	return cfg, nil
}

// openRig loads the config, opens the transport and pushes every joint's
// configuration. Notices go to onNotice, or are logged when it is nil.
func openRig(ctx context.Context, onNotice servo.NoticeFunc) (*rig.Rig, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger()
	if onNotice == nil {
		onNotice = printNotices
	}
	r, err := rig.Open(cfg, rig.Options{Logger: logger, OnNotice: onNotice})
	if err != nil {
		return nil, err
	}
	if err := r.Apply(ctx); err != nil {
		return nil, fmt.Errorf("apply config: %w", err)
	}
	return r, nil
}

func printNotices(n servo.Notice) {
	style := warnStyle
	switch n.Kind.Level() {
	case slog.LevelInfo:
		style = dimStyle
	case slog.LevelError:
		style = errorStyle
	}
	fmt.Fprintln(os.Stderr, style.Render(fmt.Sprintf("servo %d: %s", n.ServoID, n.Message)))
}

func findJoint(r *rig.Rig, name string) (*rig.Joint, error) {
	if name == "" {
		joints := r.Joints()
		if len(joints) == 1 {
			return joints[0], nil
		}
		return nil, fmt.Errorf("several joints configured, pick one with --joint")
	}
	j, ok := r.Joint(name)
	if !ok {
		return nil, fmt.Errorf("no joint named %q", name)
	}
	return j, nil
}
