package core

import (
	"gopper-servo/protocol"
	"gopper-servo/servo"
	"time"
)

// RegisterServoCommands binds the wire-protocol command surface to a
// Controller, the same oid/args-decode-then-call pattern Klipper's
// config_stepper et al. use: run, run_time, run_angle, run_target,
// track_target, run_until_stalled, stop, set_duty and reset_angle each
// decode their oid/args from the frame and call straight through to
// the servo.Controller and servo.Servo methods.
// sched arms the periodic control-update timer for every port
// servo_get successfully acquires.
func RegisterServoCommands(ctl *servo.Controller, sched *ServoScheduler) {
	RegisterCommand("servo_get",
		"oid=%c direction=%c gear_ratio=%i pwm_pin=%c dir_pin=%c enc_pin_a=%c enc_pin_b=%c",
		func(data *[]byte) error { return cmdServoGet(ctl, sched, data) })

	RegisterCommand("servo_run",
		"oid=%c speed=%i",
		func(data *[]byte) error { return cmdServoRun(ctl, data) })

	RegisterCommand("servo_run_time",
		"oid=%c speed=%i duration_ms=%u after_stop=%c",
		func(data *[]byte) error { return cmdServoRunTime(ctl, data) })

	RegisterCommand("servo_run_until_stalled",
		"oid=%c speed=%i after_stop=%c",
		func(data *[]byte) error { return cmdServoRunUntilStalled(ctl, data) })

	RegisterCommand("servo_run_target",
		"oid=%c speed=%i target=%i after_stop=%c",
		func(data *[]byte) error { return cmdServoRunTarget(ctl, data) })

	RegisterCommand("servo_run_angle",
		"oid=%c speed=%i angle=%i after_stop=%c",
		func(data *[]byte) error { return cmdServoRunAngle(ctl, data) })

	RegisterCommand("servo_track_target",
		"oid=%c target=%i",
		func(data *[]byte) error { return cmdServoTrackTarget(ctl, data) })

	RegisterCommand("servo_stop",
		"oid=%c after_stop=%c",
		func(data *[]byte) error { return cmdServoStop(ctl, data) })

	RegisterCommand("servo_set_duty",
		"oid=%c duty=%hi",
		func(data *[]byte) error { return cmdServoSetDuty(ctl, data) })

	RegisterCommand("servo_reset_angle",
		"oid=%c angle=%i use_absolute=%c",
		func(data *[]byte) error { return cmdServoResetAngle(ctl, data) })
}

func servoForOid(ctl *servo.Controller, data *[]byte) (*servo.Servo, error) {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return nil, err
	}
	s := ctl.Servo(servo.Port(oid))
	if s == nil || !s.Connected() {
		return nil, servo.ErrNotConnected
	}
	return s, nil
}

func cmdServoGet(ctl *servo.Controller, sched *ServoScheduler, data *[]byte) error {
	oid, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	direction, err := protocol.DecodeVLQInt(data)
	if err != nil {
		return err
	}
	gearRatioRaw, err := protocol.DecodeVLQInt(data)
	if err != nil {
		return err
	}
	pwmPin, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	dirPin, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	encPinA, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	encPinB, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	pins := servo.PinSpec{
		PWMPin:  uint8(pwmPin),
		DirPin:  uint8(dirPin),
		EncPinA: uint8(encPinA),
		EncPinB: uint8(encPinB),
	}

	port := servo.Port(oid)
	s, err := ctl.Get(port, servo.Direction(direction), servo.GearRatio(gearRatioRaw), pins)
	if err != nil {
		return err
	}
	sched.Schedule(port)
	RecordTiming(EvtServoConnect, uint8(port), GetTime(), uint32(s.MotorType()), 0)
	return nil
}

func cmdServoRun(ctl *servo.Controller, data *[]byte) error {
	s, err := servoForOid(ctl, data)
	if err != nil {
		return err
	}
	speed, err := protocol.DecodeVLQInt(data)
	if err != nil {
		return err
	}
	return s.Run(speed)
}

func decodeAfterStop(data *[]byte) (servo.ActuationKind, error) {
	v, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return 0, err
	}
	return servo.ActuationKind(v), nil
}

func cmdServoRunTime(ctl *servo.Controller, data *[]byte) error {
	s, err := servoForOid(ctl, data)
	if err != nil {
		return err
	}
	speed, err := protocol.DecodeVLQInt(data)
	if err != nil {
		return err
	}
	durationMs, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	afterStop, err := decodeAfterStop(data)
	if err != nil {
		return err
	}
	return s.RunTime(speed, time.Duration(durationMs)*time.Millisecond, afterStop)
}

func cmdServoRunUntilStalled(ctl *servo.Controller, data *[]byte) error {
	s, err := servoForOid(ctl, data)
	if err != nil {
		return err
	}
	speed, err := protocol.DecodeVLQInt(data)
	if err != nil {
		return err
	}
	afterStop, err := decodeAfterStop(data)
	if err != nil {
		return err
	}
	return s.RunUntilStalled(speed, afterStop)
}

func cmdServoRunTarget(ctl *servo.Controller, data *[]byte) error {
	s, err := servoForOid(ctl, data)
	if err != nil {
		return err
	}
	speed, err := protocol.DecodeVLQInt(data)
	if err != nil {
		return err
	}
	target, err := protocol.DecodeVLQInt(data)
	if err != nil {
		return err
	}
	afterStop, err := decodeAfterStop(data)
	if err != nil {
		return err
	}
	return s.RunTarget(speed, target, afterStop)
}

func cmdServoRunAngle(ctl *servo.Controller, data *[]byte) error {
	s, err := servoForOid(ctl, data)
	if err != nil {
		return err
	}
	speed, err := protocol.DecodeVLQInt(data)
	if err != nil {
		return err
	}
	angle, err := protocol.DecodeVLQInt(data)
	if err != nil {
		return err
	}
	afterStop, err := decodeAfterStop(data)
	if err != nil {
		return err
	}
	return s.RunAngle(speed, angle, afterStop)
}

func cmdServoTrackTarget(ctl *servo.Controller, data *[]byte) error {
	s, err := servoForOid(ctl, data)
	if err != nil {
		return err
	}
	target, err := protocol.DecodeVLQInt(data)
	if err != nil {
		return err
	}
	return s.TrackTarget(target)
}

func cmdServoStop(ctl *servo.Controller, data *[]byte) error {
	s, err := servoForOid(ctl, data)
	if err != nil {
		return err
	}
	afterStop, err := decodeAfterStop(data)
	if err != nil {
		return err
	}
	return s.Stop(afterStop)
}

func cmdServoSetDuty(ctl *servo.Controller, data *[]byte) error {
	s, err := servoForOid(ctl, data)
	if err != nil {
		return err
	}
	duty, err := protocol.DecodeVLQInt(data)
	if err != nil {
		return err
	}
	return s.SetDuty(duty)
}

func cmdServoResetAngle(ctl *servo.Controller, data *[]byte) error {
	s, err := servoForOid(ctl, data)
	if err != nil {
		return err
	}
	angle, err := protocol.DecodeVLQInt(data)
	if err != nil {
		return err
	}
	useAbsolute, err := protocol.DecodeVLQUint(data)
	if err != nil {
		return err
	}
	return s.ResetAngle(angle, useAbsolute != 0)
}
