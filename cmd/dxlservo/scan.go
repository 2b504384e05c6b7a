package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"
)

// ScanCommand probes serial ports for responding servo IDs. The probe
// speaks 1.0-style framing, so protocol 2.0 devices stay silent.
type ScanCommand struct {
	Port    string        `short:"p" long:"port" description:"Only probe this port"`
	Baud    int           `short:"b" long:"baud" default:"1000000" description:"Baud rate"`
	FirstID int           `long:"first-id" default:"1" description:"First ID to probe"`
	LastID  int           `long:"last-id" default:"20" description:"Last ID to probe"`
	Timeout time.Duration `long:"timeout" default:"100ms" description:"Per-ID response timeout"`
}

type portScan struct {
	port   string
	servos []feetech.FoundServo
	err    error
}

func (c *ScanCommand) Execute(args []string) error {
	if c.FirstID < 0 || c.LastID > 253 || c.FirstID > c.LastID {
		return fmt.Errorf("invalid id range %d..%d", c.FirstID, c.LastID)
	}

	ports := []string{c.Port}
	if c.Port == "" {
		var err error
		ports, err = listPorts()
		if err != nil {
			return fmt.Errorf("list ports: %w", err)
		}
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found.")
		return nil
	}

	fmt.Println(headerStyle.Render("Scanning for servos"))
	fmt.Println(dimStyle.Render(fmt.Sprintf("IDs %d-%d at %d baud", c.FirstID, c.LastID, c.Baud)))
	fmt.Println()

	var results []portScan
	for _, port := range ports {
		results = append(results, c.scanPort(port))
	}
	fmt.Println(renderScan(results))
	return nil
}

func (c *ScanCommand) scanPort(port string) portScan {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: c.Baud,
		Protocol: feetech.ProtocolSTS,
		Timeout:  c.Timeout,
	})
	if err != nil {
		return portScan{port: port, err: err}
	}
	defer bus.Close()

	budget := time.Duration(c.LastID-c.FirstID+1)*c.Timeout + time.Second
	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	servos, err := bus.Scan(ctx, c.FirstID, c.LastID)
	return portScan{port: port, servos: servos, err: err}
}

// listPorts returns the serial ports worth probing.
func listPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}
		out = append(out, port)
	}
	return out, nil
}

func renderScan(results []portScan) string {
	headerCell := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	var rows [][]string
	for _, r := range results {
		switch {
		case r.err != nil:
			rows = append(rows, []string{r.port, "-", "-", errorStyle.Render(r.err.Error())})
		case len(r.servos) == 0:
			rows = append(rows, []string{r.port, "-", "-", dimStyle.Render("no response")})
		default:
			for _, s := range r.servos {
				rows = append(rows, []string{r.port, fmt.Sprintf("%d", s.ID), fmt.Sprintf("%v", s.Model), successStyle.Render("ok")})
			}
		}
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Port", "ID", "Model", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCell
			}
			return cell
		}).
		Render()
}
