package main

import (
	"os"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Config  string `short:"c" long:"config" default:"dxlservo.yaml" description:"Rig configuration file"`
	Verbose []bool `short:"v" long:"verbose" description:"Log bus traffic (repeat for debug)"`

	Setup   SetupCommand   `command:"setup" description:"Describe the servos on a bus and write the config file"`
	Scan    ScanCommand    `command:"scan" description:"List serial ports and probe them for servos"`
	Info    InfoCommand    `command:"info" description:"Print a snapshot and the limits of every servo"`
	Move    MoveCommand    `command:"move" description:"Move a joint to an angle or raw position and wait for it to settle"`
	Monitor MonitorCommand `command:"monitor" alias:"mon" description:"Chart joint angles live"`
	Replay  ReplayCommand  `command:"replay" description:"Print a recorded CBOR telemetry file"`
	Shell   ShellCommand   `command:"shell" description:"Interactive console for one joint"`
	Metrics MetricsCommand `command:"metrics" description:"Serve Prometheus metrics while polling the rig"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "dxlservo - control and monitor compact and pro servos"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
