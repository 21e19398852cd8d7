package core

import (
	"testing"

	"gopper-servo/protocol"
	"gopper-servo/servo"
)

// TestRegisterServoCommandsDictionary checks every servo command ends
// up in a fresh registry's dictionary, the same smoke test
// TestCommandRegistryDictionary runs for the generic registry.
func TestRegisterServoCommandsDictionary(t *testing.T) {
	registry := NewCommandRegistry()
	ctl := newTestServoController(&fakeSchedDC{}, &fakeSchedTacho{})
	sched := NewServoScheduler(ctl, 1000)

	prevGlobal := globalRegistry
	globalRegistry = registry
	defer func() { globalRegistry = prevGlobal }()

	RegisterServoCommands(ctl, sched)

	dict := registry.GetDictionary()
	for _, name := range []string{
		"servo_get", "servo_run", "servo_run_time", "servo_run_until_stalled",
		"servo_run_target", "servo_run_angle", "servo_track_target",
		"servo_stop", "servo_set_duty", "servo_reset_angle",
	} {
		if !contains(dict, name) {
			t.Errorf("dictionary missing command %q", name)
		}
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

// servoForOid must reject an oid with nothing connected at that port.
func TestServoForOidNotConnected(t *testing.T) {
	ctl := newTestServoController(&fakeSchedDC{}, &fakeSchedTacho{})
	output := protocol.NewScratchOutput()
	protocol.EncodeVLQUint(output, 0)
	data := output.Result()

	_, err := servoForOid(ctl, &data)
	if err != servo.ErrNotConnected {
		t.Errorf("servoForOid on an empty port = %v, want ErrNotConnected", err)
	}
}

// cmdServoGet must decode all seven fields, acquire the servo with the
// pin assignment carried in the same command, and arm the scheduler.
func TestCmdServoGetDecodesAndSchedules(t *testing.T) {
	dc := &fakeSchedDC{}
	tacho := &fakeSchedTacho{}
	ctl := newTestServoController(dc, tacho)
	sched := NewServoScheduler(ctl, 1000)

	output := protocol.NewScratchOutput()
	protocol.EncodeVLQUint(output, 2)  // oid
	protocol.EncodeVLQInt(output, 1)   // direction
	protocol.EncodeVLQInt(output, 65536) // gear_ratio (1.0 in Q16.16)
	protocol.EncodeVLQUint(output, 10) // pwm_pin
	protocol.EncodeVLQUint(output, 11) // dir_pin
	protocol.EncodeVLQUint(output, 12) // enc_pin_a
	protocol.EncodeVLQUint(output, 13) // enc_pin_b
	data := output.Result()

	if err := cmdServoGet(ctl, sched, &data); err != nil {
		t.Fatalf("cmdServoGet returned error: %v", err)
	}

	s := ctl.Servo(2)
	if s == nil || !s.Connected() {
		t.Fatalf("servo on port 2 not connected after cmdServoGet")
	}
	if s.GearRatio != servo.GearRatio(65536) {
		t.Errorf("GearRatio = %d, want 65536", s.GearRatio)
	}
	if s.Direction != servo.DirectionClockwise {
		t.Errorf("Direction = %d, want DirectionClockwise", s.Direction)
	}

	timer := &sched.timers[2]
	if timer.Handler == nil {
		t.Errorf("scheduler timer for port 2 was not armed by cmdServoGet")
	}
}

// cmdServoRun must reject an oid that was never acquired.
func TestCmdServoRunNotConnected(t *testing.T) {
	ctl := newTestServoController(&fakeSchedDC{}, &fakeSchedTacho{})

	output := protocol.NewScratchOutput()
	protocol.EncodeVLQUint(output, 3)
	protocol.EncodeVLQInt(output, 200000)
	data := output.Result()

	if err := cmdServoRun(ctl, &data); err != servo.ErrNotConnected {
		t.Errorf("cmdServoRun on unconnected oid = %v, want ErrNotConnected", err)
	}
}

// cmdServoRun must decode the signed speed and start a TIMED
// maneuver with no completion predicate (run/track-forever
// semantics).
func TestCmdServoRunStartsTimedControl(t *testing.T) {
	dc := &fakeSchedDC{}
	tacho := &fakeSchedTacho{}
	ctl := newTestServoController(dc, tacho)
	if _, err := ctl.Get(4, servo.DirectionClockwise, servo.GearRatioFromFloat(1), servo.PinSpec{}); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	output := protocol.NewScratchOutput()
	protocol.EncodeVLQUint(output, 4)
	protocol.EncodeVLQInt(output, -500)
	data := output.Result()

	if err := cmdServoRun(ctl, &data); err != nil {
		t.Fatalf("cmdServoRun returned error: %v", err)
	}
}
