package servo

// DegToMDeg converts a whole-degree (or degree/sec, degree/sec^2)
// constant to its millidegree equivalent, matching the source's
// DEG_TO_MDEG macro.
func DegToMDeg(deg int32) int32 { return deg * MDegPerDeg }

// Settings are the per-servo control settings: PID gains, trajectory
// limits, and tolerances, copied from the type table into each servo
// at setup (spec.md 3, "Control settings").
type Settings struct {
	SpeedMax         int32 // mdeg/s
	SpeedDefault     int32 // mdeg/s
	Acceleration     int32 // mdeg/s^2
	Deceleration     int32 // mdeg/s^2
	SpeedTolerance   int32 // mdeg/s
	PositionTolerance int32 // mdeg
	StallSpeedLimit  int32 // mdeg/s
	StallTimeUs      int32 // microseconds

	PIDKp int32
	PIDKi int32
	PIDKd int32

	IntegralChangeMax int32 // mdeg, per-tick clamp on integrator change
	ActuationMax      int32 // torque units, saturation ceiling
}

// baseSettings holds the fields common to every motor type, applied
// before the type-specific switch (spec.md 3, servo_settings.c's
// "Base settings for all motors").
func baseSettings() Settings {
	return Settings{
		SpeedTolerance:    DegToMDeg(50),
		PositionTolerance: DegToMDeg(10),
		StallSpeedLimit:   DegToMDeg(20),
		StallTimeUs:       200 * 1000, // see DESIGN.md: all stall_time values are microseconds
		IntegralChangeMax: DegToMDeg(15),
	}
}

// MaxVoltageMV returns the maximum allowed voltage, in millivolts, for
// a given motor type. The SPIKE S (Technic S angular) motor caps lower
// than every other supported servo.
func MaxVoltageMV(t MotorType) int32 {
	if t == MotorTypeSpikeS {
		return 6000
	}
	return 9000
}

// LoadSettings loads device-specific model parameters and control
// settings for the given motor type, matching
// pbio_servo_load_settings bit-for-bit in structure (though this
// implementation additionally covers the EV3 types inline rather than
// behind a build tag, since this module has no compile-time hub
// variant to gate on).
func LoadSettings(t MotorType) (Settings, *ObserverModel, error) {
	s := baseSettings()

	model, ok := modelForType(t)
	if !ok {
		return Settings{}, nil, ErrNotSupported
	}

	switch t {
	case MotorTypeEV3Medium:
		s.SpeedMax = DegToMDeg(2000)
		s.Acceleration = DegToMDeg(8000)
		s.PIDKp = 3000
		s.PIDKd = 30
	case MotorTypeEV3Large:
		s.SpeedMax = DegToMDeg(1600)
		s.Acceleration = DegToMDeg(3200)
		s.PIDKp = 15000
		s.PIDKd = 250
	case MotorTypeInteractive:
		s.SpeedMax = DegToMDeg(1000)
		s.Acceleration = DegToMDeg(2000)
		s.PIDKp = 13500
		s.PIDKd = 1350
	case MotorTypeMoveHub:
		s.SpeedMax = DegToMDeg(1500)
		s.Acceleration = DegToMDeg(5000)
		s.PIDKp = 15000
		s.PIDKd = 500
	case MotorTypeTechnicL:
		s.SpeedMax = DegToMDeg(1470)
		s.Acceleration = DegToMDeg(2000)
		s.PIDKp = 17500
		s.PIDKd = 2500
	case MotorTypeTechnicXL:
		s.SpeedMax = DegToMDeg(1525)
		s.Acceleration = DegToMDeg(2500)
		s.PIDKp = 17500
		s.PIDKd = 2500
	case MotorTypeTechnicSAngular, MotorTypeSpikeS:
		s.SpeedMax = DegToMDeg(620)
		s.Acceleration = DegToMDeg(2000)
		s.PIDKp = 7500
		s.PIDKd = 1000
	case MotorTypeTechnicLAngular, MotorTypeSpikeL:
		s.SpeedMax = DegToMDeg(970)
		s.Acceleration = DegToMDeg(1500)
		s.PIDKp = 35000
		s.PIDKd = 6000
	case MotorTypeTechnicMAngular, MotorTypeSpikeM:
		s.SpeedMax = DegToMDeg(1080)
		s.Acceleration = DegToMDeg(2000)
		s.PIDKp = 15000
		s.PIDKd = 1800
	default:
		return Settings{}, nil, ErrNotSupported
	}

	// The default speed is not used for servos currently (an explicit
	// speed is given for all run commands), so it initializes to the
	// maximum.
	s.SpeedDefault = s.SpeedMax

	// Deceleration defaults to the same value as acceleration.
	s.Deceleration = s.Acceleration

	// Maximum torque is the stall torque at maximum voltage.
	s.ActuationMax = model.VoltageToTorque(MaxVoltageMV(t))

	// Ki is initialized so the integral term saturates in about two
	// seconds if the motor were stuck at the position tolerance.
	s.PIDKi = s.ActuationMax / (s.PositionTolerance / 1000) / 2

	return s, model, nil
}
