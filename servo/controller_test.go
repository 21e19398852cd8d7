package servo

import (
	"errors"
	"testing"
)

// fakeDC is a minimal DCMotorDriver double: it never fails, and just
// tracks the last call for assertions.
type fakeDC struct {
	motorType MotorType
	coasted   bool
	braked    bool
	lastDuty  int32
	passive   bool
	failWith  error
}

func (d *fakeDC) Coast() error {
	if d.failWith != nil {
		return d.failWith
	}
	d.coasted = true
	d.passive = true
	return nil
}

func (d *fakeDC) Brake() error {
	if d.failWith != nil {
		return d.failWith
	}
	d.braked = true
	d.passive = true
	return nil
}

func (d *fakeDC) SetDutyUser(duty int32) error { return d.SetDutySys(duty) }

func (d *fakeDC) SetDutySys(duty int32) error {
	if d.failWith != nil {
		return d.failWith
	}
	d.lastDuty = duty
	d.passive = false
	return nil
}

func (d *fakeDC) GetState() (bool, int32, error) { return d.passive, d.lastDuty, nil }

func (d *fakeDC) ID() (MotorType, error) { return d.motorType, nil }

// fakeTacho is a minimal TachoDriver double with a fixed, settable
// count/rate, no real physics behind it.
type fakeTacho struct {
	count, rate, angle int32
	failWith           error
}

func (ft *fakeTacho) GetCount() (int32, error) { return ft.count, ft.failWith }
func (ft *fakeTacho) GetRate() (int32, error)  { return ft.rate, ft.failWith }
func (ft *fakeTacho) GetAngle() (int32, error) { return ft.angle, ft.failWith }
func (ft *fakeTacho) ResetAngle(value int32, useAbsolute bool) error {
	if useAbsolute {
		ft.angle = value
	} else {
		ft.angle += value
	}
	return ft.failWith
}

type fakeClock struct{ now int64 }

func (c *fakeClock) NowUs() int64 { return c.now }

type fakeLogger struct{ rows [][]int32 }

func (l *fakeLogger) Update(row []int32) error {
	cp := make([]int32, len(row))
	copy(cp, row)
	l.rows = append(l.rows, cp)
	return nil
}

func newTestController(dc *fakeDC, tacho *fakeTacho, clock *fakeClock) *Controller {
	return NewController(
		func(port Port, direction Direction, pins PinSpec) (DCMotorDriver, error) { return dc, nil },
		func(port Port, direction Direction, gearRatio GearRatio, pins PinSpec) (TachoDriver, error) { return tacho, nil },
		clock,
	)
}

func TestControllerGetInvalidPort(t *testing.T) {
	ctl := newTestController(&fakeDC{motorType: MotorTypeTechnicL}, &fakeTacho{}, &fakeClock{})
	_, err := ctl.Get(Port(MaxPorts), DirectionClockwise, GearRatioFromFloat(1), PinSpec{})
	if err != ErrInvalidPort {
		t.Errorf("Get(out-of-range port) error = %v, want ErrInvalidPort", err)
	}
}

func TestControllerGetWiresServo(t *testing.T) {
	dc := &fakeDC{motorType: MotorTypeTechnicL}
	tacho := &fakeTacho{count: 500}
	ctl := newTestController(dc, tacho, &fakeClock{})

	s, err := ctl.Get(0, DirectionClockwise, GearRatioFromFloat(1), PinSpec{PWMPin: 1, DirPin: 2, EncPinA: 3, EncPinB: 4})
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !s.Connected() {
		t.Errorf("servo not marked connected after Get")
	}
	if s.MotorType() != MotorTypeTechnicL {
		t.Errorf("MotorType() = %d, want MotorTypeTechnicL", s.MotorType())
	}
	if ctl.Servo(0) != s {
		t.Errorf("Servo(0) does not return the servo Get just built")
	}
}

// Ticking a port with no servo acquired must be a silent no-op, not an
// error.
func TestControllerTickEmptyPort(t *testing.T) {
	ctl := newTestController(&fakeDC{}, &fakeTacho{}, &fakeClock{})
	if err := ctl.Tick(0); err != nil {
		t.Errorf("Tick on empty port returned %v, want nil", err)
	}
}

// A driver error during Tick must disconnect the servo and surface the
// error to the caller (spec.md 4.6/7).
func TestControllerTickDisconnectsOnDriverError(t *testing.T) {
	dc := &fakeDC{motorType: MotorTypeTechnicL}
	tacho := &fakeTacho{count: 0}
	ctl := newTestController(dc, tacho, &fakeClock{})
	if _, err := ctl.Get(0, DirectionClockwise, GearRatioFromFloat(1), PinSpec{}); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	tacho.failWith = errors.New("simulated bus fault")
	err := ctl.Tick(0)
	if err == nil {
		t.Fatalf("Tick did not propagate the driver error")
	}
	if ctl.Servo(0) != nil {
		t.Errorf("servo still connected after an unrecoverable driver error")
	}
}

// Tick with no active command must still advance the observer and log
// a passive row rather than error out.
func TestControllerTickPassiveLogsState(t *testing.T) {
	dc := &fakeDC{motorType: MotorTypeTechnicL}
	tacho := &fakeTacho{count: 1000, rate: 0}
	clock := &fakeClock{}
	ctl := newTestController(dc, tacho, clock)
	ctl.Logger = func(port Port) Logger { return &fakeLogger{} }

	s, err := ctl.Get(0, DirectionClockwise, GearRatioFromFloat(1), PinSpec{})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	logger := s.logger.(*fakeLogger)

	clock.now = 10000
	if err := ctl.Tick(0); err != nil {
		t.Fatalf("Tick returned error: %v", err)
	}
	if len(logger.rows) != 1 {
		t.Fatalf("expected exactly one logged row, got %d", len(logger.rows))
	}
	if logger.rows[0][1] != 1000 {
		t.Errorf("logged countNow = %d, want 1000", logger.rows[0][1])
	}
}

// RunTarget must move the servo into an ANGLE/OnTargetPosition control
// state with the requested target baked into its trajectory.
func TestServoRunTargetStartsAngleControl(t *testing.T) {
	dc := &fakeDC{motorType: MotorTypeTechnicL}
	tacho := &fakeTacho{count: 0}
	clock := &fakeClock{}
	ctl := newTestController(dc, tacho, clock)

	s, err := ctl.Get(0, DirectionClockwise, GearRatioFromFloat(1), PinSpec{})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if err := s.RunTarget(200, 90, ActuationHold); err != nil {
		t.Fatalf("RunTarget returned error: %v", err)
	}
	if s.control.Type != ControlAngle {
		t.Errorf("control Type after RunTarget = %d, want ControlAngle", s.control.Type)
	}
	if s.control.Completion != OnTargetPosition {
		t.Errorf("control Completion after RunTarget = %d, want OnTargetPosition", s.control.Completion)
	}
}

// Command methods must reject an unconnected servo (a plain Servo
// value never handed out by Controller.Get).
func TestServoCommandsRejectWhenNotConnected(t *testing.T) {
	s := &Servo{}
	if err := s.Run(100); err != ErrNotConnected {
		t.Errorf("Run on unconnected servo = %v, want ErrNotConnected", err)
	}
	if err := s.Stop(ActuationCoast); err != ErrNotConnected {
		t.Errorf("Stop on unconnected servo = %v, want ErrNotConnected", err)
	}
	if err := s.SetDuty(100); err != ErrNotConnected {
		t.Errorf("SetDuty on unconnected servo = %v, want ErrNotConnected", err)
	}
}

// actuate must stop Control and force-coast when the requested
// actuation fails at the driver (spec.md 7's unconditional-coast
// policy).
func TestServoActuateErrorStopsControlAndCoasts(t *testing.T) {
	dc := &fakeDC{motorType: MotorTypeTechnicL}
	tacho := &fakeTacho{count: 0}
	ctl := newTestController(dc, tacho, &fakeClock{})

	s, err := ctl.Get(0, DirectionClockwise, GearRatioFromFloat(1), PinSpec{})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	s.control.Type = ControlAngle
	s.control.Trajectory = BuildAngle(0, 0, 0, 1000, 500000, 200000, 200000)

	dc.failWith = errors.New("stuck bridge")
	if err := s.actuate(ActuationDuty, 123); err == nil {
		t.Fatalf("actuate did not propagate the driver error")
	}
	if s.control.Type != ControlNone {
		t.Errorf("control Type after a failed actuate = %d, want ControlNone", s.control.Type)
	}
}
