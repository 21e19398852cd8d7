package servo

import "testing"

func testSettings() Settings {
	s, _, _ := LoadSettings(MotorTypeTechnicL)
	return s
}

// Stop must cancel any in-flight command and clear both integrators
// (spec.md testable property 8).
func TestControlStopCancelsCommand(t *testing.T) {
	c := NewControl(testSettings())
	c.StartAngle(0, 0, 0, 90000, c.Settings.SpeedMax, c.Settings.Acceleration, c.Settings.Deceleration, ActuationHold)
	c.countIntegrator.Update(0, 1000, false)

	c.Stop()

	if c.Type != ControlNone {
		t.Errorf("Type after Stop = %d, want ControlNone", c.Type)
	}
	if c.Trajectory != nil {
		t.Errorf("Trajectory after Stop is non-nil")
	}
	if _, errI := c.countIntegrator.Errors(0, 0); errI != 0 {
		t.Errorf("countIntegrator not cleared by Stop: %d", errI)
	}
}

// A new command always starts its own trajectory at its own t0,
// overriding whatever was previously in flight.
func TestControlStartAngleCancelsPrior(t *testing.T) {
	c := NewControl(testSettings())
	c.StartAngle(0, 0, 0, 90000, c.Settings.SpeedMax, c.Settings.Acceleration, c.Settings.Deceleration, ActuationHold)
	c.StartAngle(5000, 10, 0, 45000, c.Settings.SpeedMax, c.Settings.Acceleration, c.Settings.Deceleration, ActuationCoast)

	if c.Type != ControlAngle || c.Completion != OnTargetPosition {
		t.Errorf("second StartAngle left Type=%d Completion=%d, want ControlAngle/OnTargetPosition", c.Type, c.Completion)
	}
	if c.AfterStop != ActuationCoast {
		t.Errorf("second StartAngle left AfterStop = %d, want ActuationCoast", c.AfterStop)
	}
	pos, _, _, _ := c.Trajectory.Sample(5000)
	if pos != 10 {
		t.Errorf("new trajectory does not start from its own t0: Sample(5000) pos = %d, want 10", pos)
	}
}

// Update with no command in flight must coast, not fault.
func TestControlUpdateIdleCoasts(t *testing.T) {
	c := NewControl(testSettings())
	m := testModel()
	obs := NewObserver(m, 1)
	obs.Reset(0)

	kind, _, done := c.Update(0, 0, 0, obs)
	if kind != ActuationCoast {
		t.Errorf("idle Update actuation = %d, want ActuationCoast", kind)
	}
	if done {
		t.Errorf("idle Update reported done")
	}
}

// A large position error must saturate the actuation at the settings
// ceiling, not overshoot it, and must mark saturatedNow so the
// integrator pauses (spec.md testable property 7).
func TestControlUpdateSaturates(t *testing.T) {
	s := testSettings()
	c := NewControl(s)
	c.StartAngle(0, 0, 0, 90000, s.SpeedMax, s.Acceleration, s.Deceleration, ActuationHold)

	m := testModel()
	obs := NewObserver(m, 1)
	obs.Reset(0)

	// Feed a tracking error so the P term alone blows past ActuationMax
	// (small by design here: with every PRESCALE_* pinned to 1,
	// TechnicL's ActuationMax collapses to a single-digit torque unit,
	// see DESIGN.md).
	_, value, _ := c.Update(0, -100, 0, obs)
	maxVoltage := obs.Model.TorqueToVoltage(s.ActuationMax)
	if value > maxVoltage || value < -maxVoltage {
		t.Errorf("Update voltage = %d, want within +/-%d", value, maxVoltage)
	}
	if !c.saturated {
		t.Errorf("saturated flag not set despite a huge tracking error")
	}
}

// OnTargetPosition must report done only once both position and speed
// are within tolerance.
func TestControlOnTargetPosition(t *testing.T) {
	s := testSettings()
	c := NewControl(s)
	c.StartAngle(0, 0, 0, 100, s.SpeedMax, s.Acceleration, s.Deceleration, ActuationHold)

	m := testModel()
	obs := NewObserver(m, 1)
	obs.Reset(0)

	if done := c.onTarget(c.Trajectory.t3, 100, 0, 100, 0, obs); !done {
		t.Errorf("onTarget at exact target did not report done")
	}
	if done := c.onTarget(c.Trajectory.t3, 100, 0, 100, 0, obs); done != true {
		t.Errorf("onTarget with zero error should be done")
	}
	far := s.PositionTolerance/MDegPerDeg + 1000
	if done := c.onTarget(c.Trajectory.t3, 100+far, 0, 100, 0, obs); done {
		t.Errorf("onTarget beyond PositionTolerance reported done")
	}
}

// OnTargetTime completes exactly at t3, never before.
func TestControlOnTargetTime(t *testing.T) {
	s := testSettings()
	c := NewControl(s)
	c.StartTimed(0, 0, 0, s.SpeedMax, s.Acceleration, 500_000, OnTargetTime, ActuationCoast)

	m := testModel()
	obs := NewObserver(m, 1)
	obs.Reset(0)

	if done := c.onTarget(c.Trajectory.t3-1, 0, 0, 0, 0, obs); done {
		t.Errorf("onTarget reported done before t3")
	}
	if done := c.onTarget(c.Trajectory.t3, 0, 0, 0, 0, obs); !done {
		t.Errorf("onTarget did not report done at t3")
	}
}

// OnTargetStalled defers entirely to the observer's latched stall
// predicate.
func TestControlOnTargetStalled(t *testing.T) {
	s := testSettings()
	c := NewControl(s)
	c.StartTimed(0, 0, 0, s.SpeedMax, s.Acceleration, DurationForever, OnTargetStalled, ActuationCoast)

	m := testModel()
	obs := NewObserver(m, 1)
	obs.Reset(0)

	if done := c.onTarget(100_000, 0, 0, 0, 0, obs); done {
		t.Errorf("onTarget reported stalled before any stall condition was latched")
	}

	obs.updateStallState(0, 1000, -600)
	if done := c.onTarget(300_000, 0, 0, 0, 0, obs); !done {
		t.Errorf("onTarget did not report done once stallTimeUs elapsed under a latched stall")
	}
}
