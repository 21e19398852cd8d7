//go:build tinygo

// Package dcmotor implements servo.DCMotorDriver on top of the core
// package's PWM and GPIO hardware abstractions, the same way
// core/pwm.go and core/gpio.go expose Klipper's digital_out/PWM
// protocol objects to the rest of gopper-servo. One Device drives a
// single H-bridge channel: a PWM pin for magnitude and a GPIO pin for
// direction.
package dcmotor

import (
	"gopper-servo/core"
	"gopper-servo/servo"
)

// Device drives one DC motor channel through an H-bridge: PWM sets
// the magnitude, a GPIO pin sets the direction.
type Device struct {
	pwmPin   core.PWMPin
	dirPin   core.GPIOPin
	cycle    uint32
	motorType servo.MotorType

	passive      bool
	lastControl  int32
}

// NewDevice configures pwmPin for hardware PWM at the given cycle
// (timer ticks) and dirPin as a digital output, and returns a Device
// reporting motorType from ID (auto-detection via an ID-resistor ADC
// channel is a target-specific concern layered on top of this type,
// not implemented here; see DESIGN.md).
func NewDevice(pwmPin core.PWMPin, dirPin core.GPIOPin, cycleTicks uint32, motorType servo.MotorType) (*Device, error) {
	actualCycle, err := core.MustPWM().ConfigureHardwarePWM(pwmPin, cycleTicks)
	if err != nil {
		return nil, err
	}
	if err := core.MustGPIO().ConfigureOutput(dirPin); err != nil {
		return nil, err
	}
	return &Device{pwmPin: pwmPin, dirPin: dirPin, cycle: actualCycle, motorType: motorType, passive: true}, nil
}

func (d *Device) setDuty(dutyPermille int32) error {
	forward := dutyPermille >= 0
	if err := core.MustGPIO().SetPin(d.dirPin, forward); err != nil {
		return err
	}
	mag := dutyPermille
	if mag < 0 {
		mag = -mag
	}
	if mag > 1000 {
		mag = 1000
	}
	max := core.MustPWM().GetMaxValue()
	value := core.PWMValue(uint32(mag) * max / 1000)
	if err := core.MustPWM().SetDutyCycle(d.pwmPin, value); err != nil {
		return err
	}
	d.passive = false
	d.lastControl = dutyPermille
	return nil
}

// Coast implements servo.DCMotorDriver.
func (d *Device) Coast() error {
	if err := core.MustPWM().DisablePWM(d.pwmPin); err != nil {
		return err
	}
	d.passive = true
	d.lastControl = 0
	return nil
}

// Brake implements servo.DCMotorDriver by setting a zero duty cycle
// on the PWM pin while keeping PWM enabled (unlike Coast, which
// disables it). The direction pin is left unchanged, so this
// single-direction-pin wiring does not short the motor terminals.
func (d *Device) Brake() error {
	if err := core.MustPWM().SetDutyCycle(d.pwmPin, 0); err != nil {
		return err
	}
	d.passive = false
	d.lastControl = 0
	return nil
}

// SetDutyUser implements servo.DCMotorDriver.
func (d *Device) SetDutyUser(dutyPermille int32) error {
	return d.setDuty(dutyPermille)
}

// SetDutySys implements servo.DCMotorDriver.
func (d *Device) SetDutySys(dutyPermille int32) error {
	return d.setDuty(dutyPermille)
}

// GetState implements servo.DCMotorDriver.
func (d *Device) GetState() (passive bool, lastControl int32, err error) {
	return d.passive, d.lastControl, nil
}

// ID implements servo.DCMotorDriver, returning the statically
// configured motor type for this channel.
func (d *Device) ID() (servo.MotorType, error) {
	return d.motorType, nil
}
