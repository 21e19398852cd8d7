package servo

// DefaultCountsPerDegree is the platform tacho resolution assumed when
// a servo doesn't override it explicitly. pybricks' own default build
// config pins this at 1 count/degree; EV3/NXT tacho counters use a
// different native resolution and pass their own value to NewObserver.
const DefaultCountsPerDegree = 1

// stallSpeedThresholdMDegPerSec is the speed bound of the stall
// predicate (spec.md 4.1): the motor must be moving slower than this
// (in forward-motion-normalized millidegrees per second) and the
// feedback voltage must oppose the applied voltage by more than half
// its magnitude; that one-half factor is written inline in the check.
const stallSpeedThresholdMDegPerSec = 50 * MDegPerDeg

// Observer is a discrete-time state estimator tracking (angle, speed,
// current) for one servo from encoder counts and applied voltage, plus
// a stall detector. It holds no reference to any driver; Update is fed
// whatever the caller last measured and last applied.
type Observer struct {
	Model           *ObserverModel
	CountsPerDegree int32

	angleOffset int32 // degrees
	angle       int32 // millidegrees, |angle| <= MDegMax
	speed       int32 // millidegrees/sec
	current     int32 // model-internal units

	stalled    bool
	stallStart int64 // microseconds
}

// NewObserver constructs an Observer bound to the given model. Call
// Reset before the first Update.
func NewObserver(model *ObserverModel, countsPerDegree int32) *Observer {
	if countsPerDegree == 0 {
		countsPerDegree = DefaultCountsPerDegree
	}
	return &Observer{Model: model, CountsPerDegree: countsPerDegree}
}

// Reset establishes angleOffset from the measured count and zeroes the
// rest of the state, per spec.md invariant: after reset,
// angle=speed=current=0, stalled=false, angle_offset=measured degrees.
func (o *Observer) Reset(measuredCount int32) {
	o.angleOffset = measuredCount / o.CountsPerDegree
	o.angle = 0
	o.speed = 0
	o.current = 0
	o.stalled = false
	o.stallStart = 0
}

// EstimatedState returns the externally reported absolute count and
// rate, undoing the millidegree scaling.
func (o *Observer) EstimatedState() (count, rate int32) {
	count = o.angleOffset*o.CountsPerDegree + o.angle/MDegPerDeg
	rate = o.speed / MDegPerDeg
	return count, rate
}

// IsStalled reports whether the stall condition has held continuously
// for more than stallTimeUs, and for how long in milliseconds.
func (o *Observer) IsStalled(nowUs int64, stallTimeUs int32) (bool, int32) {
	if o.stalled && nowUs-o.stallStart > int64(stallTimeUs) {
		return true, int32((nowUs - o.stallStart) / 1000)
	}
	return false, 0
}

// updateStallState implements the rising-edge-latched stall predicate
// of spec.md 4.1: flip to a forward-motion frame (voltage >= 0) first
// so the same inequality works for either direction of travel.
func (o *Observer) updateStallState(nowUs int64, voltage, feedbackVoltage int32) {
	speed := o.speed
	if voltage < 0 {
		speed = -speed
		voltage = -voltage
		feedbackVoltage = -feedbackVoltage
	}

	stalled := speed < stallSpeedThresholdMDegPerSec &&
		feedbackVoltage < 0 &&
		-feedbackVoltage > voltage/2

	if stalled {
		if !o.stalled {
			o.stallStart = nowUs
		}
		o.stalled = true
	} else {
		o.stalled = false
	}
}

// Update advances the observer one tick. It must be called at roughly
// constant cadence (the scheduler tick); the discrete-time model
// assumes a fixed sample interval baked into the model coefficients.
//
// actuation is accepted so callers can special-case COAST; per
// spec.md 9 ("Open questions"), the upstream source left a TODO branch
// here underspecified. We treat coast the same as any other tick
// (continue to integrate with voltage == 0, which the caller already
// arranges by passing appliedVoltage == 0 for a coasting tick) rather
// than skip the update, since skipping would let the estimate drift
// out of sync with a still-rotating, unpowered motor.
func (o *Observer) Update(nowUs int64, measuredCount int32, actuation ActuationKind, appliedVoltage int32) {
	m := o.Model

	measuredMDeg := (measuredCount/o.CountsPerDegree - o.angleOffset) * MDegPerDeg

	feedbackVoltage := m.TorqueToVoltage(ScaleDiv(m.Gain, measuredMDeg-o.angle, MDegPerDeg))

	o.updateStallState(nowUs, appliedVoltage, feedbackVoltage)

	voltageTotal := appliedVoltage + feedbackVoltage

	var torque int32
	if o.speed > 0 {
		torque = m.TorqueFriction
	} else {
		torque = -m.TorqueFriction
	}

	angleNext := o.angle +
		ScaleDiv(PrescaleSpeed, o.speed, m.DAngleDSpeed) +
		ScaleDiv(PrescaleCurrent, o.current, m.DAngleDCurrent) +
		ScaleDiv(PrescaleVoltage, voltageTotal, m.DAngleDVoltage) +
		ScaleDiv(PrescaleTorque, torque, m.DAngleDTorque)

	speedTorqueTerm := ScaleDiv(PrescaleTorque, torque, m.DSpeedDTorque)
	speedNext := ScaleDiv(PrescaleSpeed, o.speed, m.DSpeedDSpeed) +
		ScaleDiv(PrescaleCurrent, o.current, m.DSpeedDCurrent) +
		ScaleDiv(PrescaleVoltage, voltageTotal, m.DSpeedDVoltage) +
		speedTorqueTerm

	currentNext := ScaleDiv(PrescaleSpeed, o.speed, m.DCurrentDSpeed) +
		ScaleDiv(PrescaleCurrent, o.current, m.DCurrentDCurrent) +
		ScaleDiv(PrescaleVoltage, voltageTotal, m.DCurrentDVoltage) +
		ScaleDiv(PrescaleTorque, torque, m.DCurrentDTorque)

	// Friction stiction: if removing the friction torque's
	// contribution would have put speedNext on the other side of
	// zero, the only thing driving the crossing is the (unmodeled)
	// friction term, so clamp to zero rather than let it oscillate.
	if (speedNext < 0) != (speedNext-speedTorqueTerm < 0) {
		speedNext = 0
	}

	if angleNext > MDegMax {
		angleNext -= MDegMax
		o.angleOffset += MDegMax / MDegPerDeg
	} else if angleNext < -MDegMax {
		angleNext += MDegMax
		o.angleOffset -= MDegMax / MDegPerDeg
	}

	o.angle = angleNext
	o.speed = speedNext
	o.current = currentNext
}

// FeedforwardTorque computes the open-loop torque for a reference
// trajectory point: friction compensation, back-EMF compensation, and
// an inertia term for the reference acceleration. rateRef and accelRef
// are in the trajectory's native counts/sec and counts/sec^2 units;
// they are converted to millidegrees internally to match the
// observer's scale.
func FeedforwardTorque(m *ObserverModel, rateRef, accelRef int32) int32 {
	rateRefMDeg := rateRef * MDegPerDeg
	accelRefMDeg := accelRef * MDegPerDeg

	frictionComp := m.TorqueFriction * Sign(rateRefMDeg)
	backEMFComp := ScaleDiv(PrescaleSpeed, rateRefMDeg, m.DTorqueDSpeed)
	accelTorque := ScaleDiv(PrescaleAcceleration, accelRefMDeg, m.DTorqueDAcceleration)
	return frictionComp + backEMFComp + accelTorque
}
