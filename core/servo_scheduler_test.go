package core

import (
	"errors"
	"testing"

	"gopper-servo/servo"
)

// fakeSchedDC and fakeSchedTacho are the minimal doubles needed to
// acquire a servo.Controller entry without any real hardware; they
// mirror servo package's own test doubles but live here since core
// must not import servo's unexported test helpers.
type fakeSchedDC struct{ failWith error }

func (d *fakeSchedDC) Coast() error                  { return d.failWith }
func (d *fakeSchedDC) Brake() error                  { return d.failWith }
func (d *fakeSchedDC) SetDutyUser(int32) error       { return d.failWith }
func (d *fakeSchedDC) SetDutySys(int32) error        { return d.failWith }
func (d *fakeSchedDC) GetState() (bool, int32, error) { return true, 0, nil }
func (d *fakeSchedDC) ID() (servo.MotorType, error)  { return servo.MotorTypeTechnicL, nil }

type fakeSchedTacho struct{ failWith error }

func (ft *fakeSchedTacho) GetCount() (int32, error) { return 0, ft.failWith }
func (ft *fakeSchedTacho) GetRate() (int32, error)  { return 0, ft.failWith }
func (ft *fakeSchedTacho) GetAngle() (int32, error) { return 0, ft.failWith }
func (ft *fakeSchedTacho) ResetAngle(int32, bool) error { return ft.failWith }

type fakeSchedClock struct{}

func (fakeSchedClock) NowUs() int64 { return 0 }

func newTestServoController(dc *fakeSchedDC, tacho *fakeSchedTacho) *servo.Controller {
	return servo.NewController(
		func(port servo.Port, direction servo.Direction, pins servo.PinSpec) (servo.DCMotorDriver, error) {
			return dc, nil
		},
		func(port servo.Port, direction servo.Direction, gearRatio servo.GearRatio, pins servo.PinSpec) (servo.TachoDriver, error) {
			return tacho, nil
		},
		fakeSchedClock{},
	)
}

func TestNewServoSchedulerConvertsPollPeriod(t *testing.T) {
	sched := NewServoScheduler(newTestServoController(&fakeSchedDC{}, &fakeSchedTacho{}), 1000)
	if sched.pollPeriodTicks != TimerFromUS(1000) {
		t.Errorf("pollPeriodTicks = %d, want TimerFromUS(1000) = %d", sched.pollPeriodTicks, TimerFromUS(1000))
	}
}

// Schedule must arm the port's timer pollPeriodTicks ahead of the
// current time, and its handler must reschedule itself every time it
// runs cleanly.
func TestServoSchedulerScheduleArmsAndReschedules(t *testing.T) {
	dc := &fakeSchedDC{}
	tacho := &fakeSchedTacho{}
	ctl := newTestServoController(dc, tacho)
	if _, err := ctl.Get(0, servo.DirectionClockwise, servo.GearRatioFromFloat(1), servo.PinSpec{}); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	SetTime(5000)
	sched := NewServoScheduler(ctl, 1000)
	sched.Schedule(0)

	timer := &sched.timers[0]
	wantWake := GetTime() + sched.pollPeriodTicks
	if timer.WakeTime != wantWake {
		t.Errorf("WakeTime after Schedule = %d, want %d", timer.WakeTime, wantWake)
	}

	result := timer.Handler(timer)
	if result != SF_RESCHEDULE {
		t.Errorf("handler result = %d, want SF_RESCHEDULE", result)
	}
	if timer.WakeTime != wantWake+sched.pollPeriodTicks {
		t.Errorf("WakeTime after one handler run = %d, want %d", timer.WakeTime, wantWake+sched.pollPeriodTicks)
	}
}

// A Tick failure inside the handler disconnects the port, so the
// handler must report SF_DONE (the timer is disarmed until the port is
// acquired and scheduled again) and must record an EvtServoFault
// timing event.
func TestServoSchedulerHandlerRecordsFaultOnTickError(t *testing.T) {
	dc := &fakeSchedDC{}
	tacho := &fakeSchedTacho{}
	ctl := newTestServoController(dc, tacho)
	if _, err := ctl.Get(1, servo.DirectionClockwise, servo.GearRatioFromFloat(1), servo.PinSpec{}); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	sched := NewServoScheduler(ctl, 1000)
	sched.Schedule(1)
	timer := &sched.timers[1]

	ClearTimingRing()
	tacho.failWith = errors.New("simulated bus fault")
	if result := timer.Handler(timer); result != SF_DONE {
		t.Errorf("handler result on Tick error = %d, want SF_DONE", result)
	}

	found := false
	for _, evt := range timingRing {
		if evt.EventType == EvtServoFault && evt.OID == 1 {
			found = true
		}
	}
	if !found {
		t.Errorf("no EvtServoFault event recorded for port 1 after a Tick error")
	}
}
