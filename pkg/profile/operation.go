package profile

import "fmt"

// Operation names a logical register independent of family.
type Operation int

const (
	TorqueEnable Operation = iota + 1
	OperatingMode
	HomingOffset
	TemperatureLimit
	CurrentLimit
	VelocityLimit
	AccelerationLimit
	MinPositionLimit
	MaxPositionLimit
	GoalPosition
	GoalVelocity
	GoalCurrent
	ProfileVelocity
	ProfileAcceleration
	Moving
	PresentPosition
	PresentVelocity
	PresentCurrent
	PresentTemperature
	HardwareErrorStatus
	LED
	LEDRed
	LEDGreen
	LEDBlue
	PositionPGain
	PositionIGain
	PositionDGain
	FeedForward1Gain
	FeedForward2Gain
	ExternalPortMode1
	ExternalPortMode2
	ExternalPortMode3
	ExternalPortMode4
	ExternalPortData1
	ExternalPortData2
	ExternalPortData3
	ExternalPortData4
)

var operationNames = map[Operation]string{
	TorqueEnable:        "torque_enable",
	OperatingMode:       "operating_mode",
	HomingOffset:        "homing_offset",
	TemperatureLimit:    "temperature_limit",
	CurrentLimit:        "current_limit",
	VelocityLimit:       "velocity_limit",
	AccelerationLimit:   "acceleration_limit",
	MinPositionLimit:    "min_position_limit",
	MaxPositionLimit:    "max_position_limit",
	GoalPosition:        "goal_position",
	GoalVelocity:        "goal_velocity",
	GoalCurrent:         "goal_current",
	ProfileVelocity:     "profile_velocity",
	ProfileAcceleration: "profile_acceleration",
	Moving:              "moving",
	PresentPosition:     "present_position",
	PresentVelocity:     "present_velocity",
	PresentCurrent:      "present_current",
	PresentTemperature:  "present_temperature",
	HardwareErrorStatus: "hardware_error_status",
	LED:                 "led",
	LEDRed:              "led_red",
	LEDGreen:            "led_green",
	LEDBlue:             "led_blue",
	PositionPGain:       "position_p_gain",
	PositionIGain:       "position_i_gain",
	PositionDGain:       "position_d_gain",
	FeedForward1Gain:    "feedforward_1st_gain",
	FeedForward2Gain:    "feedforward_2nd_gain",
	ExternalPortMode1:   "external_port_mode_1",
	ExternalPortMode2:   "external_port_mode_2",
	ExternalPortMode3:   "external_port_mode_3",
	ExternalPortMode4:   "external_port_mode_4",
	ExternalPortData1:   "external_port_data_1",
	ExternalPortData2:   "external_port_data_2",
	ExternalPortData3:   "external_port_data_3",
	ExternalPortData4:   "external_port_data_4",
}

func (o Operation) String() string {
	if s, ok := operationNames[o]; ok {
		return s
	}
	return fmt.Sprintf("operation(%d)", int(o))
}

// Mode is a servo operating mode.
type Mode int

const (
	ModeCurrent Mode = iota + 1
	ModeVelocity
	ModePosition
	ModeExtendedPosition
	ModeCurrentBasedPosition
	ModePWM
)

var allModes = []Mode{ModeCurrent, ModeVelocity, ModePosition, ModeExtendedPosition, ModeCurrentBasedPosition, ModePWM}

func (m Mode) String() string {
	switch m {
	case ModeCurrent:
		return "current"
	case ModeVelocity:
		return "velocity"
	case ModePosition:
		return "position"
	case ModeExtendedPosition:
		return "extended-position"
	case ModeCurrentBasedPosition:
		return "current-based-position"
	case ModePWM:
		return "pwm"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses a mode name as printed by String.
func ParseMode(s string) (Mode, error) {
	for _, m := range allModes {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown operating mode %q", s)
}
