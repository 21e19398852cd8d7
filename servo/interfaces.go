// Package servo implements the closed-loop motor-control core: a
// discrete state observer, a trajectory planner, PID control with
// feedforward, and the servo/scheduler façade that ties them to a DC
// motor driver and a tacho (encoder) driver. Everything below the
// interfaces in this file is a consumer, never an implementer, of the
// hardware: board bring-up, Bluetooth, the interpreter bindings, and
// the concrete drivers all live outside this package, in drivers/ and
// targets/ (see DESIGN.md).
package servo

// MotorType identifies a servo motor model. Each type indexes into the
// settings registry (settings.go) for its observer model and default
// control settings. NXT/EV3 sensor types are listed for completeness
// of the DC-driver's `id` report but never resolve to a servo model.
type MotorType uint8

const (
	MotorTypeNone MotorType = iota
	MotorTypeEV3Medium
	MotorTypeEV3Large
	MotorTypeInteractive
	MotorTypeMoveHub
	MotorTypeTechnicL
	MotorTypeTechnicXL
	MotorTypeTechnicSAngular
	MotorTypeTechnicMAngular
	MotorTypeTechnicLAngular
	MotorTypeSpikeS
	MotorTypeSpikeM
	MotorTypeSpikeL
	MotorTypeNonServoSensor
)

// ActuationKind is how a motor responds when control ends or during an
// active control tick.
type ActuationKind uint8

const (
	// ActuationCoast freewheels the motor (no braking torque).
	ActuationCoast ActuationKind = iota
	// ActuationBrake shorts the motor leads.
	ActuationBrake
	// ActuationHold restarts control in a position-pinned ANGLE mode
	// at the current count. Its control value is that count.
	ActuationHold
	// ActuationDuty applies an open-loop or closed-loop duty/voltage
	// value produced by the control law.
	ActuationDuty
)

// Port identifies a physical motor port on the hub.
type Port uint8

// GearRatio is a signed fixed-point Q16.16 gear ratio, applied between
// the tacho's raw counts and the servo's output-shaft counts.
type GearRatio int32

// GearRatioFromFloat builds a Q16.16 GearRatio from a float64 constant.
// Intended for static configuration at servo setup, never on the hot
// control-tick path.
func GearRatioFromFloat(f float64) GearRatio {
	return GearRatio(int64(f * 65536))
}

// Float returns the gear ratio as a float64. Not used on the hot path.
func (g GearRatio) Float() float64 {
	return float64(g) / 65536
}

// ScaleCount applies direction and gear ratio to a raw tacho count,
// the Q16.16 divide every TachoDriver backend uses to turn its
// hardware-native pulse count into the servo's output-shaft count.
func ScaleCount(raw int64, direction Direction, gearRatio GearRatio) int32 {
	scaled := raw * int64(direction)
	if gearRatio != 0 {
		scaled = scaled * 65536 / int64(gearRatio)
	}
	return int32(scaled)
}

// Direction selects the sign convention between user-facing positive
// rotation and the physical motor/encoder wiring.
type Direction int8

const (
	DirectionClockwise        Direction = 1
	DirectionCounterClockwise Direction = -1
)

// PinSpec carries the wire-protocol pin assignment a servo_get command
// arrives with, mirroring config_stepper's step_pin/dir_pin fields:
// the same command that creates the object also assigns its pins.
type PinSpec struct {
	PWMPin  uint8
	DirPin  uint8
	EncPinA uint8
	EncPinB uint8
}

// DCMotorDriver is the low-level DC motor driver consumed by the servo
// core. Implementations live in drivers/dcmotor and targets/*; this
// package only calls through the interface. Duty is signed per-mille
// of full scale.
type DCMotorDriver interface {
	// Coast lets the motor freewheel.
	Coast() error
	// Brake shorts the motor leads.
	Brake() error
	// SetDutyUser applies a user-originated duty cycle (from
	// set_duty), in per-mille, signed.
	SetDutyUser(dutyPermille int32) error
	// SetDutySys applies a control-loop-originated duty cycle, in
	// per-mille, signed. Kept distinct from SetDutyUser so drivers can
	// treat user and system duty differently if e.g. the teacher's
	// DriverState bookkeeping needs to tell them apart.
	SetDutySys(dutyPermille int32) error
	// GetState reports whether the motor is currently coasting,
	// braking, or driven, and the last control value applied.
	GetState() (passive bool, lastControl int32, err error)
	// ID reports which motor model is attached, e.g. from an
	// auto-detect ID resistor or a device descriptor.
	ID() (MotorType, error)
}

// TachoDriver is the low-level encoder/tacho driver consumed by the
// servo core.
type TachoDriver interface {
	// GetCount returns the raw encoder count, scaled by the gear
	// ratio applied at acquisition time.
	GetCount() (int32, error)
	// GetRate returns the raw encoder rate (counts/sec), scaled by
	// the gear ratio.
	GetRate() (int32, error)
	// GetAngle returns the absolute angle in user degrees, as tracked
	// by the underlying driver's own offset bookkeeping.
	GetAngle() (int32, error)
	// ResetAngle sets the driver's reported angle. If useAbsolute is
	// false, value is relative to the current angle.
	ResetAngle(value int32, useAbsolute bool) error
}

// Clock is the monotonic microsecond clock consumed by the core.
type Clock interface {
	NowUs() int64
}

// Logger receives one row of per-tick int32 values. Implementations
// may buffer, stream over the wire protocol, or discard.
type Logger interface {
	Update(row []int32) error
}

// NopLogger discards all rows. Used where no logger is configured.
type NopLogger struct{}

// Update implements Logger.
func (NopLogger) Update(row []int32) error { return nil }
