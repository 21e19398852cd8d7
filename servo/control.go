package servo

// ControlType selects which control mode (if any) is currently
// driving a servo. HOLD is represented as ControlAngle with an
// infinite trajectory pinned at one point (spec.md 4.4), not as its
// own type.
type ControlType uint8

const (
	ControlNone ControlType = iota
	ControlAngle
	ControlTimed
)

// CompletionKind selects the on-target predicate a Control uses to
// decide when a motion command is done. Modeled as a tagged variant
// rather than an interface so the hot control-tick path never pays
// for dynamic dispatch (spec.md 9).
type CompletionKind uint8

const (
	OnTargetNever CompletionKind = iota
	OnTargetTime
	OnTargetStalled
	OnTargetPosition
	OnTargetHold
)

// Control composes a trajectory, the appropriate integrator, settings,
// and a completion predicate into the control law spec.md 4.4
// describes. One Control lives inside each Servo.
type Control struct {
	Settings Settings

	Type       ControlType
	Completion CompletionKind
	AfterStop  ActuationKind

	Trajectory *Trajectory

	countIntegrator *CountIntegrator
	rateIntegrator  *RateIntegrator

	saturated bool
}

// NewControl builds a Control for the given settings.
func NewControl(settings Settings) *Control {
	return &Control{
		Settings:        settings,
		Type:            ControlNone,
		countIntegrator: NewCountIntegrator(settings.IntegralChangeMax),
		rateIntegrator:  NewRateIntegrator(settings.IntegralChangeMax),
	}
}

// Stop cancels any in-flight command: control type resets to NONE and
// both integrators are cleared (spec.md testable property 8).
func (c *Control) Stop() {
	c.Type = ControlNone
	c.Trajectory = nil
	c.saturated = false
	c.countIntegrator.Reset()
	c.rateIntegrator.Reset()
}

// StartAngle begins an ANGLE (absolute position) maneuver. A new
// command always cancels whatever was in flight; the new trajectory's
// t0 equals t0 here, satisfying spec.md testable property 8.
func (c *Control) StartAngle(t0 int64, startCount, startRate, targetCount, targetRate, accel, decel int32, afterStop ActuationKind) {
	c.Trajectory = BuildAngle(t0, startCount, startRate, targetCount, targetRate, accel, decel)
	c.Type = ControlAngle
	c.Completion = OnTargetPosition
	c.AfterStop = afterStop
	c.saturated = false
	c.countIntegrator.Reset()
}

// StartTimed begins a TIMED (speed over a duration) maneuver.
// durationUs == DurationForever means run's "until cancelled"
// semantics; a finite duration plus OnTargetTime is
// run_time; OnTargetStalled with DurationForever is
// run_until_stalled.
func (c *Control) StartTimed(t0 int64, startCount, startRate, targetRate, accel int32, durationUs int64, completion CompletionKind, afterStop ActuationKind) {
	c.Trajectory = BuildTimed(t0, startCount, startRate, targetRate, accel, durationUs)
	c.Type = ControlTimed
	c.Completion = completion
	c.AfterStop = afterStop
	c.saturated = false
	c.rateIntegrator.Reset()
}

// StartHold begins a HOLD maneuver: an ANGLE control pinned at
// targetCount with an infinite trajectory (spec.md 4.4).
func (c *Control) StartHold(t0 int64, targetCount int32) {
	c.Trajectory = BuildHold(t0, targetCount)
	c.Type = ControlAngle
	c.Completion = OnTargetHold
	c.AfterStop = ActuationHold
	c.saturated = false
	c.countIntegrator.Reset()
}

// Update computes one tick of the control law: PID + feedforward,
// saturation, and the on-target predicate. obs must already reflect
// the current tick — Servo.ControlUpdate updates the observer with
// the previous tick's applied voltage before calling Update, so the
// stall latch and Model coefficients this reads are current. Returns
// the actuation to apply and whether the command has completed.
func (c *Control) Update(timeNow int64, countNow, rateNow int32, obs *Observer) (kind ActuationKind, value int32, done bool) {
	if c.Type == ControlNone || c.Trajectory == nil {
		return ActuationCoast, 0, false
	}

	posRef, _, rateRef, accelRef := c.Trajectory.Sample(timeNow)

	feedforward := FeedforwardTorque(obs.Model, rateRef, accelRef)

	errP := posRef - countNow
	errV := rateRef - rateNow

	var errI int32
	switch c.Type {
	case ControlAngle:
		c.countIntegrator.Update(countNow, posRef, c.saturated)
		_, errI = c.countIntegrator.Errors(countNow, posRef)
	case ControlTimed:
		c.rateIntegrator.Update(countNow, posRef, rateRef, c.saturated)
		_, errI = c.rateIntegrator.Errors(rateNow, rateRef, countNow, posRef)
	}

	s := c.Settings
	u := s.PIDKp*errP + s.PIDKi*errI + s.PIDKd*errV + feedforward

	saturatedNow := u > s.ActuationMax || u < -s.ActuationMax
	u = Clamp(u, -s.ActuationMax, s.ActuationMax)
	c.saturated = saturatedNow

	voltage := obs.Model.TorqueToVoltage(u)

	done = c.onTarget(timeNow, countNow, rateNow, posRef, rateRef, obs)

	return ActuationDuty, voltage, done
}

// onTarget evaluates the completion predicate selected for this
// Control.
func (c *Control) onTarget(timeNow int64, countNow, rateNow, posRef, rateRef int32, obs *Observer) bool {
	switch c.Completion {
	case OnTargetNever:
		return false
	case OnTargetTime:
		return timeNow >= c.Trajectory.t3
	case OnTargetStalled:
		stalled, _ := obs.IsStalled(timeNow, c.Settings.StallTimeUs)
		return stalled
	case OnTargetPosition, OnTargetHold:
		// Settings tolerances are denominated in millidegrees
		// (spec.md's DEG_TO_MDEG constants); the control law itself
		// works in the same raw-count domain as the tacho driver
		// (CountsPerDegree == 1 in the default, single-platform-config
		// build this module targets, see DESIGN.md), so convert once
		// here rather than carry a second scaled copy of every
		// setting.
		s := c.Settings
		posErr := AbsInt32(posRef - countNow)
		speedErr := AbsInt32(rateNow)
		_ = rateRef
		return posErr <= s.PositionTolerance/MDegPerDeg && speedErr <= s.SpeedTolerance/MDegPerDeg
	default:
		return false
	}
}
