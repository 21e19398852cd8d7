package servo

import (
	"time"
)

// Servo owns one motor's DC driver handle, tacho handle, observer,
// trajectory, and integrators, and exposes the user command surface
// (spec.md 4.5). It borrows (never owns) its driver handles and the
// static observer model; it owns its Control and Observer outright.
type Servo struct {
	Port      Port
	Direction Direction
	GearRatio GearRatio

	pins PinSpec

	connected bool
	motorType MotorType

	dc     DCMotorDriver
	tacho  TachoDriver
	clock  Clock
	logger Logger

	observer *Observer
	control  *Control

	// lastActuation/lastVoltage record what was actually applied to
	// the driver on the previous tick, so the observer can be refreshed
	// with it before the control law runs (spec.md 2's data flow:
	// tacho -> observer.update(last applied voltage) -> trajectory
	// sample -> control law -> actuate). Zero-valued (ActuationCoast,
	// 0) on a freshly acquired servo, matching a motor that hasn't
	// been actuated yet.
	lastActuation ActuationKind
	lastVoltage   int32
}

// Connected reports whether the servo currently holds live driver
// handles.
func (s *Servo) Connected() bool { return s.connected }

// MotorType reports the motor type detected at acquisition.
func (s *Servo) MotorType() MotorType { return s.motorType }

func (s *Servo) userToCounts(deg int32) int32 {
	return deg * s.observer.CountsPerDegree
}

func (s *Servo) countsToUser(counts int32) int32 {
	return counts / s.observer.CountsPerDegree
}

// getPhysicalState reads the current time, count, and rate from the
// clock and tacho driver. Mirrors servo_get_state in servo.c.
func (s *Servo) getPhysicalState() (timeNow int64, countNow, rateNow int32, err error) {
	timeNow = s.clock.NowUs()
	countNow, err = s.tacho.GetCount()
	if err != nil {
		return 0, 0, 0, err
	}
	rateNow, err = s.tacho.GetRate()
	if err != nil {
		return 0, 0, 0, err
	}
	return timeNow, countNow, rateNow, nil
}

// actuate applies one control decision to the DC driver. A driver
// error coasts the control loop unconditionally and stops Control,
// matching spec.md 7's propagation policy: "a driver error during
// actuate causes the control state to transition to NONE and a
// low-level coast call to be attempted unconditionally."
func (s *Servo) actuate(kind ActuationKind, value int32) error {
	var err error
	switch kind {
	case ActuationCoast:
		err = s.dc.Coast()
	case ActuationBrake:
		err = s.dc.Brake()
	case ActuationHold:
		s.control.StartHold(s.clock.NowUs(), value)
	case ActuationDuty:
		err = s.dc.SetDutySys(value)
	}
	if err != nil {
		s.control.Stop()
		// Best-effort: always attempt the lowest-level coast, even
		// though the driver just failed, to leave the motor in a
		// safe state rather than retry the failing call.
		_ = s.dc.Coast()
	}
	return err
}

// ControlUpdate runs one scheduler tick for this servo: read physical
// state, refresh the observer with the voltage actually applied last
// tick, run the control law (trajectory sample, then PID) if a
// command is active, actuate, and log (spec.md 2's data flow). Called
// by Controller.Tick at a fixed period; returns a non-nil error only
// for an unrecoverable I/O failure, at which point the caller should
// mark the servo disconnected (spec.md 4.6/7).
func (s *Servo) ControlUpdate() error {
	timeNow, countNow, rateNow, err := s.getPhysicalState()
	if err != nil {
		return err
	}

	if s.control.Type == ControlNone {
		// Passive: the driver, not Control, decides what's actually
		// applied (e.g. a user SetDuty call). Advance the observer
		// with that real state so estimates stay current for the next
		// command, and log it.
		passive, lastControl, err := s.dc.GetState()
		if err != nil {
			return err
		}
		actuation := ActuationCoast
		voltage := int32(0)
		if !passive {
			actuation = ActuationDuty
			voltage = lastControl
		}
		s.observer.Update(timeNow, countNow, actuation, voltage)
		s.lastActuation = actuation
		s.lastVoltage = voltage
		row := buildLogRow(timeNow, countNow, rateNow, actuation, lastControl, nil)
		return s.logger.Update(row[:])
	}

	// Refresh the observer with last tick's applied voltage before
	// sampling the trajectory or running the control law, so the
	// stall latch and feedforward the control law reads are already
	// current for this tick (spec.md 2, testable property 4).
	s.observer.Update(timeNow, countNow, s.lastActuation, s.lastVoltage)

	kind, value, done := s.control.Update(timeNow, countNow, rateNow, s.observer)

	s.lastActuation = kind
	s.lastVoltage = 0
	if kind == ActuationDuty {
		s.lastVoltage = value
	}

	if err := s.actuate(kind, value); err != nil {
		row := buildLogRow(timeNow, countNow, rateNow, kind, value, s.control)
		_ = s.logger.Update(row[:])
		return err
	}

	if done && kind != ActuationHold {
		s.transitionToAfterStop(value)
	}

	row := buildLogRow(timeNow, countNow, rateNow, kind, value, s.control)
	return s.logger.Update(row[:])
}

// transitionToAfterStop applies the after_stop actuation once the
// on-target predicate fires, per spec.md 4.4's state machine
// (ANGLE|TIMED -> NONE, or -> a fresh HOLD control).
func (s *Servo) transitionToAfterStop(lastControlCount int32) {
	afterStop := s.control.AfterStop
	switch afterStop {
	case ActuationHold:
		timeNow, countNow, _, err := s.getPhysicalState()
		if err != nil {
			s.control.Stop()
			return
		}
		_ = timeNow
		s.control.StartHold(s.clock.NowUs(), countNow)
	default:
		s.control.Stop()
		_ = s.actuate(afterStop, 0)
	}
}

// SetDuty stops control and passes the duty cycle through to the DC
// driver directly (user-originated, spec.md 4.5).
func (s *Servo) SetDuty(dutyPermille int32) error {
	if !s.connected {
		return ErrNotConnected
	}
	s.control.Stop()
	return s.dc.SetDutyUser(dutyPermille)
}

// Stop cancels any active command and applies the requested terminal
// actuation.
func (s *Servo) Stop(afterStop ActuationKind) error {
	if !s.connected {
		return ErrNotConnected
	}
	var value int32
	if afterStop == ActuationHold {
		count, err := s.tacho.GetCount()
		if err != nil {
			return err
		}
		value = count
	} else {
		s.control.Stop()
	}
	return s.actuate(afterStop, value)
}

// Run starts an unbounded TIMED maneuver at the given speed (deg/s);
// it runs until cancelled by another command.
func (s *Servo) Run(speedDeg int32) error {
	if !s.connected {
		return ErrNotConnected
	}
	targetRate := s.userToCounts(speedDeg)
	timeNow, countNow, rateNow, err := s.getPhysicalState()
	if err != nil {
		return err
	}
	s.control.StartTimed(timeNow, countNow, rateNow, targetRate, s.control.Settings.Acceleration, DurationForever, OnTargetNever, ActuationCoast)
	return nil
}

// RunTime starts a TIMED maneuver that completes after duration has
// elapsed, then applies afterStop.
func (s *Servo) RunTime(speedDeg int32, duration time.Duration, afterStop ActuationKind) error {
	if !s.connected {
		return ErrNotConnected
	}
	targetRate := s.userToCounts(speedDeg)
	timeNow, countNow, rateNow, err := s.getPhysicalState()
	if err != nil {
		return err
	}
	s.control.StartTimed(timeNow, countNow, rateNow, targetRate, s.control.Settings.Acceleration, duration.Microseconds(), OnTargetTime, afterStop)
	return nil
}

// RunUntilStalled starts an unbounded TIMED maneuver that completes
// when the observer detects a stall.
func (s *Servo) RunUntilStalled(speedDeg int32, afterStop ActuationKind) error {
	if !s.connected {
		return ErrNotConnected
	}
	targetRate := s.userToCounts(speedDeg)
	timeNow, countNow, rateNow, err := s.getPhysicalState()
	if err != nil {
		return err
	}
	s.control.StartTimed(timeNow, countNow, rateNow, targetRate, s.control.Settings.Acceleration, DurationForever, OnTargetStalled, afterStop)
	return nil
}

// RunTarget starts an ANGLE maneuver to an absolute target position
// (degrees), travelling at up to speedDeg.
func (s *Servo) RunTarget(speedDeg, targetDeg int32, afterStop ActuationKind) error {
	if !s.connected {
		return ErrNotConnected
	}
	targetRate := s.userToCounts(speedDeg)
	targetCount := s.userToCounts(targetDeg)
	timeNow, countNow, rateNow, err := s.getPhysicalState()
	if err != nil {
		return err
	}
	s.control.StartAngle(timeNow, countNow, rateNow, targetCount, targetRate, s.control.Settings.Acceleration, s.control.Settings.Deceleration, afterStop)
	return nil
}

// RunAngle starts an ANGLE maneuver to a position relative to the
// current measured position.
func (s *Servo) RunAngle(speedDeg, deltaDeg int32, afterStop ActuationKind) error {
	if !s.connected {
		return ErrNotConnected
	}
	targetRate := s.userToCounts(speedDeg)
	relativeTarget := s.userToCounts(deltaDeg)
	timeNow, countNow, rateNow, err := s.getPhysicalState()
	if err != nil {
		return err
	}
	s.control.StartAngle(timeNow, countNow, rateNow, countNow+relativeTarget, targetRate, s.control.Settings.Acceleration, s.control.Settings.Deceleration, afterStop)
	return nil
}

// TrackTarget starts (or retargets) a HOLD-style ANGLE maneuver that
// tracks an absolute target position indefinitely.
func (s *Servo) TrackTarget(targetDeg int32) error {
	if !s.connected {
		return ErrNotConnected
	}
	targetCount := s.userToCounts(targetDeg)
	s.control.StartHold(s.clock.NowUs(), targetCount)
	return nil
}

// ResetAngle changes the tacho's reported angle, with behavior that
// depends on the current control state (spec.md 4.5,
// pbio_servo_reset_angle):
//
//   - holding (ANGLE + on-target): the hold target shifts by the same
//     delta as the measured angle, so the motor doesn't jump.
//   - NONE: just reset the tacho.
//   - otherwise: coast first, then reset.
func (s *Servo) ResetAngle(newAngleDeg int32, useAbsolute bool) error {
	if !s.connected {
		return ErrNotConnected
	}

	if s.control.Type == ControlAngle && s.isOnTarget() {
		angleOld, err := s.resetAngleRetry(func() (int32, error) { return s.tacho.GetAngle() })
		if err != nil {
			return err
		}

		timeNow := s.clock.NowUs()
		refCount, _, _, _ := s.control.Trajectory.Sample(timeNow)
		targetOld := s.countsToUser(refCount)

		if err := s.resetAngleRetryErr(func() error { return s.tacho.ResetAngle(newAngleDeg, useAbsolute) }); err != nil {
			return err
		}

		newTarget := newAngleDeg + targetOld - angleOld
		return s.TrackTarget(newTarget)
	}

	if s.control.Type == ControlNone {
		return s.resetAngleRetryErr(func() error { return s.tacho.ResetAngle(newAngleDeg, useAbsolute) })
	}

	if err := s.Stop(ActuationCoast); err != nil {
		return err
	}
	return s.resetAngleRetryErr(func() error { return s.tacho.ResetAngle(newAngleDeg, useAbsolute) })
}

// isOnTarget reports whether the active ANGLE control currently
// considers itself on-target (used only by ResetAngle's holding
// check; the control loop's own on-target transition already moved
// away from ANGLE+OnTargetHold once true, except on the tick it just
// converged, so this recomputes it directly from current state).
func (s *Servo) isOnTarget() bool {
	timeNow, countNow, rateNow, err := s.getPhysicalState()
	if err != nil {
		return false
	}
	posRef, _, rateRef, _ := s.control.Trajectory.Sample(timeNow)
	return s.control.onTarget(timeNow, countNow, rateNow, posRef, rateRef, s.observer)
}

// resetAngleRetry and resetAngleRetryErr implement spec.md 5's bounded
// retry for the only core operation that may need to wait on a driver
// retry: starting at 10ms and doubling up to a 1s ceiling.
func (s *Servo) resetAngleRetry(f func() (int32, error)) (int32, error) {
	backoff := 10 * time.Millisecond
	for {
		v, err := f()
		if err == nil {
			return v, nil
		}
		if !IsTransient(err) {
			return 0, err
		}
		time.Sleep(backoff)
		backoff *= 2
		if backoff > time.Second {
			backoff = time.Second
		}
	}
}

func (s *Servo) resetAngleRetryErr(f func() error) error {
	_, err := s.resetAngleRetry(func() (int32, error) { return 0, f() })
	return err
}
