package servo

// Prescale constants. The state-space coefficients below are expressed
// in units scaled by these factors. Every factor here is 1 << 0, i.e.
// no scaling, so the integer divisions in the observer update
// (observer.go) and in the torque/voltage maps truncate at unit
// resolution.
const (
	PrescaleSpeed       = 1 << 0
	PrescaleCurrent     = 1 << 0
	PrescaleVoltage     = 1 << 0
	PrescaleTorque      = 1 << 0
	PrescaleAcceleration = 1 << 0
)

// MDegPerDeg is the fixed scale between user degrees and internal
// millidegrees.
const MDegPerDeg = 1000

// MDegMax bounds the observer's internal angle before it wraps and the
// angle offset absorbs the difference.
const MDegMax = 1000000 * MDegPerDeg

// ObserverModel is the immutable, static-per-motor-type bundle of
// integer coefficients describing the discrete state-space transition
// over (angle, speed, current), the input coupling for voltage and
// modeled friction torque, the inverse maps between torque/voltage and
// torque/speed (back-EMF), and the observer's feedback gain.
//
// Field names mirror pbio_observer_model_t exactly: d_X_d_Y reads "the
// divisor relating X's next-state contribution to Y". These tables
// are transcribed verbatim from pbio's motor_data.py-generated
// servo_settings.c and must match bit-for-bit to preserve closed-loop
// behavior; never regenerate them from a physical model.
type ObserverModel struct {
	DAngleDSpeed   int32
	DSpeedDSpeed   int32
	DCurrentDSpeed int32

	DAngleDCurrent   int32
	DSpeedDCurrent   int32
	DCurrentDCurrent int32

	DAngleDVoltage   int32
	DSpeedDVoltage   int32
	DCurrentDVoltage int32

	DAngleDTorque   int32
	DSpeedDTorque   int32
	DCurrentDTorque int32

	DVoltageDTorque int32
	DTorqueDVoltage int32
	DTorqueDSpeed   int32

	DTorqueDAcceleration int32

	TorqueFriction int32
	Gain           int32
}

// Motor model tables, transcribed verbatim from
// lib/pbio/src/motor/servo_settings.c.

var modelTechnicSAngular = ObserverModel{
	DAngleDSpeed: 179217, DSpeedDSpeed: 956, DCurrentDSpeed: -249247,
	DAngleDCurrent: 1950303, DSpeedDCurrent: 7666, DCurrentDCurrent: -9356019,
	DAngleDVoltage: 5654927, DSpeedDVoltage: 11702, DCurrentDVoltage: 349105,
	DAngleDTorque: -425928, DSpeedDTorque: -1085, DCurrentDTorque: 383927,
	DVoltageDTorque: 22334, DTorqueDVoltage: 17203, DTorqueDSpeed: 12282,
	DTorqueDAcceleration: 354592, TorqueFriction: 9182, Gain: 500,
}

var modelTechnicMAngular = ObserverModel{
	DAngleDSpeed: 177194, DSpeedDSpeed: 934, DCurrentDSpeed: -165023,
	DAngleDCurrent: 2407354, DSpeedDCurrent: 8311, DCurrentDCurrent: 1058029,
	DAngleDVoltage: 7431528, DSpeedDVoltage: 14444, DCurrentDVoltage: 225610,
	DAngleDTorque: -919183, DSpeedDTorque: -2332, DCurrentDTorque: 629020,
	DVoltageDTorque: 47606, DTorqueDVoltage: 8071, DTorqueDSpeed: 5903,
	DTorqueDAcceleration: 163151, TorqueFriction: 21413, Gain: 2000,
}

var modelTechnicLAngular = ObserverModel{
	DAngleDSpeed: 174943, DSpeedDSpeed: 904, DCurrentDSpeed: -58045,
	DAngleDCurrent: 8368268, DSpeedDCurrent: 26508, DCurrentDCurrent: 396164,
	DAngleDVoltage: 13442903, DSpeedDVoltage: 25105, DCurrentDVoltage: 86900,
	DAngleDTorque: -3690545, DSpeedDTorque: -9310, DCurrentDTorque: 975141,
	DVoltageDTorque: 133763, DTorqueDVoltage: 2872, DTorqueDSpeed: 1919,
	DTorqueDAcceleration: 40344, TorqueFriction: 23239, Gain: 4000,
}

var modelInteractive = ObserverModel{
	DAngleDSpeed: 179110, DSpeedDSpeed: 941, DCurrentDSpeed: -316164,
	DAngleDCurrent: 7311289, DSpeedDCurrent: 35750, DCurrentDCurrent: -12014584,
	DAngleDVoltage: 4603893, DSpeedDVoltage: 10967, DCurrentDVoltage: 355664,
	DAngleDTorque: -728461, DSpeedDTorque: -1850, DCurrentDTorque: 668004,
	DVoltageDTorque: 32225, DTorqueDVoltage: 11923, DTorqueDSpeed: 10599,
	DTorqueDAcceleration: 207820, TorqueFriction: 11227, Gain: 2000,
}

var modelTechnicL = ObserverModel{
	DAngleDSpeed: 175977, DSpeedDSpeed: 912, DCurrentDSpeed: -159828,
	DAngleDCurrent: 5728019, DSpeedDCurrent: 22787, DCurrentDCurrent: -44152415,
	DAngleDVoltage: 6164994, DSpeedDVoltage: 12888, DCurrentDVoltage: 142828,
	DAngleDTorque: -1377701, DSpeedDTorque: -3482, DCurrentDTorque: 794862,
	DVoltageDTorque: 62889, DTorqueDVoltage: 6110, DTorqueDSpeed: 6837,
	DTorqueDAcceleration: 108520, TorqueFriction: 26430, Gain: 1500,
}

var modelTechnicXL = ObserverModel{
	DAngleDSpeed: 176559, DSpeedDSpeed: 916, DCurrentDSpeed: -175173,
	DAngleDCurrent: 8098298, DSpeedDCurrent: 35736, DCurrentDCurrent: -7606150,
	DAngleDVoltage: 5471477, DSpeedDVoltage: 12148, DCurrentDVoltage: 156891,
	DAngleDTorque: -1282598, DSpeedDTorque: -3244, DCurrentDTorque: 729279,
	DVoltageDTorque: 55617, DTorqueDVoltage: 6908, DTorqueDSpeed: 7713,
	DTorqueDAcceleration: 116867, TorqueFriction: 12893, Gain: 2000,
}

var modelMoveHub = ObserverModel{
	DAngleDSpeed: 176283, DSpeedDSpeed: 913, DCurrentDSpeed: -202833,
	DAngleDCurrent: 7437051, DSpeedDCurrent: 32807, DCurrentDCurrent: -8118383,
	DAngleDVoltage: 5022928, DSpeedDVoltage: 11156, DCurrentDVoltage: 157720,
	DAngleDTorque: -966059, DSpeedDTorque: -2442, DCurrentDTorque: 636829,
	DVoltageDTorque: 45536, DTorqueDVoltage: 8438, DTorqueDSpeed: 10851,
	DTorqueDAcceleration: 155017, TorqueFriction: 24835, Gain: 2000,
}

var modelEV3Large = ObserverModel{
	DAngleDSpeed: 173282, DSpeedDSpeed: 881, DCurrentDSpeed: -69014,
	DAngleDCurrent: 15363470, DSpeedDCurrent: 49919, DCurrentDCurrent: 491835,
	DAngleDVoltage: 30444180, DSpeedDVoltage: 57613, DCurrentDVoltage: 118854,
	DAngleDTorque: -7467749, DSpeedDTorque: -18754, DCurrentDTorque: 2298785,
	DVoltageDTorque: 107106, DTorqueDVoltage: 3587, DTorqueDSpeed: 2083,
	DTorqueDAcceleration: 19838, TorqueFriction: 16476, Gain: 4000,
}

var modelEV3Medium = ObserverModel{
	DAngleDSpeed: 174833, DSpeedDSpeed: 899, DCurrentDSpeed: -179788,
	DAngleDCurrent: 5508196, DSpeedDCurrent: 20798, DCurrentDCurrent: 4313632,
	DAngleDVoltage: 10143433, DSpeedDVoltage: 20656, DCurrentDVoltage: 196531,
	DAngleDTorque: -1577148, DSpeedDTorque: -3975, DCurrentDTorque: 1082649,
	DVoltageDTorque: 47722, DTorqueDVoltage: 8051, DTorqueDSpeed: 7365,
	DTorqueDAcceleration: 94428, TorqueFriction: 18317, Gain: 2000,
}

// modelForType maps a MotorType to its observer model. Spike S/M/L
// share the Technic angular models (the physical motors are the same
// hardware, sold under different branding).
func modelForType(t MotorType) (*ObserverModel, bool) {
	switch t {
	case MotorTypeEV3Medium:
		return &modelEV3Medium, true
	case MotorTypeEV3Large:
		return &modelEV3Large, true
	case MotorTypeInteractive:
		return &modelInteractive, true
	case MotorTypeMoveHub:
		return &modelMoveHub, true
	case MotorTypeTechnicL:
		return &modelTechnicL, true
	case MotorTypeTechnicXL:
		return &modelTechnicXL, true
	case MotorTypeTechnicSAngular, MotorTypeSpikeS:
		return &modelTechnicSAngular, true
	case MotorTypeTechnicMAngular, MotorTypeSpikeM:
		return &modelTechnicMAngular, true
	case MotorTypeTechnicLAngular, MotorTypeSpikeL:
		return &modelTechnicLAngular, true
	default:
		return nil, false
	}
}

// TorqueToVoltage converts a desired torque to the voltage that would
// produce it under this model, undoing the prescale applied to
// DTorqueDVoltage.
func (m *ObserverModel) TorqueToVoltage(torque int32) int32 {
	return ScaleDiv(torque, m.DTorqueDVoltage, PrescaleVoltage)
}

// VoltageToTorque converts an applied voltage to the torque it
// represents under this model.
func (m *ObserverModel) VoltageToTorque(voltage int32) int32 {
	return int32(int64(PrescaleVoltage) * int64(voltage) / int64(m.DTorqueDVoltage))
}
