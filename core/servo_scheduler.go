package core

import "gopper-servo/servo"

// ServoScheduler arms a periodic core.Timer per port that drives a
// servo.Controller's control loop, reusing the teacher's
// sorted-linked-list scheduler (Timer/ScheduleTimer/TimerDispatch)
// instead of a dedicated goroutine per motor. It is the thing that
// would otherwise have made servo.Controller depend on core directly;
// keeping the dependency here instead means servo stays a
// hardware/scheduler-agnostic package and core (which already needs
// servo for the command surface) is the only side of the import.
type ServoScheduler struct {
	ctl             *servo.Controller
	pollPeriodTicks uint32
	timers          [servo.MaxPorts]Timer
	armed           [servo.MaxPorts]bool
}

// NewServoScheduler builds a scheduler driving ctl's servos every
// pollPeriodUs microseconds.
func NewServoScheduler(ctl *servo.Controller, pollPeriodUs uint32) *ServoScheduler {
	return &ServoScheduler{
		ctl:             ctl,
		pollPeriodTicks: TimerFromUS(pollPeriodUs),
	}
}

// Schedule arms the periodic timer for port if it isn't already
// running. Call after every successful Controller.Get, including
// reconnects; safe to call on a port whose timer is still live from an
// earlier Get, since the handler always ticks whatever servo currently
// occupies the port rather than capturing state from the call that
// armed it.
//
// The node in sc.timers[port] stays linked into core's timerList for
// as long as the handler keeps returning SF_RESCHEDULE, so re-running
// ScheduleTimer/insertTimer on it here while it's still linked would
// splice the same node into the list twice and corrupt it; the armed
// flag makes a repeat Schedule call for an already-running port a
// no-op instead.
func (sc *ServoScheduler) Schedule(port servo.Port) {
	if sc.armed[port] {
		return
	}
	sc.armed[port] = true

	t := &sc.timers[port]
	t.WakeTime = GetTime() + sc.pollPeriodTicks
	t.Handler = func(timer *Timer) uint8 {
		if err := sc.ctl.Tick(port); err != nil {
			RecordTiming(EvtServoFault, uint8(port), GetTime(), 0, 0)
		}
		if sc.ctl.Servo(port) == nil {
			// The port disconnected this tick (or was never
			// reconnected) - stop rearming an empty port forever.
			sc.armed[port] = false
			return SF_DONE
		}
		timer.WakeTime += sc.pollPeriodTicks
		return SF_RESCHEDULE
	}
	ScheduleTimer(t)
}
