package profile

// Control tables for firmware speaking protocol 2.0.

var compact = Profile{
	Family: Compact,
	Model:  "MX-64",
	Scales: Scales{
		Position:     360.0 / 4095.0,
		Current:      0.00336,
		Velocity:     0.229,
		Acceleration: 214.577,
	},
	Caps: Caps{
		CurrentCode:      1941,
		CurrentAmps:      4.0,
		VelocityCode:     1023,
		VelocityRPM:      235,
		AccelerationCode: 100,
		PositionMin:      0,
		PositionMax:      4095,
		AngleMin:         0,
		AngleMax:         360,
		PositionLimitMin: 0,
		PositionLimitMax: 4095,
		LEDMax:           1,
	},
	Presets: Presets{
		Velocity80RPM:   349,
		LowAcceleration: 5,
	},
	registers: map[Operation]Register{
		OperatingMode:       {11, Byte},
		HomingOffset:        {20, DWord},
		TemperatureLimit:    {31, Byte},
		CurrentLimit:        {38, Word},
		AccelerationLimit:   {40, DWord},
		VelocityLimit:       {44, DWord},
		MaxPositionLimit:    {48, DWord},
		MinPositionLimit:    {52, DWord},
		TorqueEnable:        {64, Byte},
		LED:                 {65, Byte},
		HardwareErrorStatus: {70, Byte},
		PositionDGain:       {80, Word},
		PositionIGain:       {82, Word},
		PositionPGain:       {84, Word},
		FeedForward2Gain:    {88, Word},
		FeedForward1Gain:    {90, Word},
		GoalCurrent:         {102, Word},
		GoalVelocity:        {104, DWord},
		ProfileAcceleration: {108, DWord},
		ProfileVelocity:     {112, DWord},
		GoalPosition:        {116, DWord},
		Moving:              {122, Byte},
		PresentCurrent:      {126, Word},
		PresentVelocity:     {128, DWord},
		PresentPosition:     {132, DWord},
		PresentTemperature:  {146, Byte},
	},
	modes: map[Mode]uint8{
		ModeCurrent:              0,
		ModeVelocity:             1,
		ModePosition:             3,
		ModeExtendedPosition:     4,
		ModeCurrentBasedPosition: 5,
		ModePWM:                  16,
	},
}

// The pro family has no separate profile registers; goal velocity and
// goal acceleration bound the trajectory instead.
var pro = Profile{
	Family: Pro,
	Model:  "Pro M42",
	Scales: Scales{
		Position:     180.0 / 131593.0,
		Current:      8.25 / 2048.0,
		Velocity:     0.00389076,
		Acceleration: 58000.0 / 288.5,
	},
	Caps: Caps{
		CurrentCode:      521,
		CurrentAmps:      2.1,
		VelocityCode:     25710,
		VelocityRPM:      235,
		AccelerationCode: 100,
		PositionMin:      -131593,
		PositionMax:      131593,
		AngleMin:         -180,
		AngleMax:         180,
		PositionLimitMin: -1 << 31,
		PositionLimitMax: 1<<31 - 1,
		LEDMax:           255,
		ExternalPorts:    4,
	},
	Presets: Presets{
		Velocity80RPM:   20562,
		LowAcceleration: 26,
	},
	registers: map[Operation]Register{
		OperatingMode:       {11, Byte},
		HomingOffset:        {13, DWord},
		TemperatureLimit:    {21, Byte},
		AccelerationLimit:   {26, DWord},
		CurrentLimit:        {30, Word},
		VelocityLimit:       {32, DWord},
		MaxPositionLimit:    {36, DWord},
		MinPositionLimit:    {40, DWord},
		ExternalPortMode1:   {44, Byte},
		ExternalPortMode2:   {45, Byte},
		ExternalPortMode3:   {46, Byte},
		ExternalPortMode4:   {47, Byte},
		TorqueEnable:        {562, Byte},
		LEDRed:              {563, Byte},
		LEDGreen:            {564, Byte},
		LEDBlue:             {565, Byte},
		PositionPGain:       {594, Word},
		GoalPosition:        {596, DWord},
		GoalVelocity:        {600, DWord},
		ProfileVelocity:     {600, DWord},
		GoalCurrent:         {604, Word},
		ProfileAcceleration: {606, DWord},
		Moving:              {610, Byte},
		PresentPosition:     {611, DWord},
		PresentVelocity:     {615, DWord},
		PresentCurrent:      {621, Word},
		PresentTemperature:  {625, Byte},
		ExternalPortData1:   {626, Word},
		ExternalPortData2:   {628, Word},
		ExternalPortData3:   {630, Word},
		ExternalPortData4:   {632, Word},
		HardwareErrorStatus: {892, Byte},
	},
	modes: map[Mode]uint8{
		ModeCurrent:          0,
		ModeVelocity:         1,
		ModePosition:         3,
		ModeExtendedPosition: 4,
	},
}
