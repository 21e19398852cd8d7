//go:build rp2040

package main

// PIO-backed quadrature tacho decode: hardware-timed pulse counting
// offloads the hot edge-detection loop from the CPU, at the cost of
// depending on the rp2040's PIO block instead of a GPIO interrupt per
// edge.
//
// The program samples both quadrature phase pins on every PIO clock,
// shifts the 2-bit sample into the ISR, and autopushes each sample to
// the RX FIFO as its own word (push threshold 2 bits); decoding the 2-bit transition sequence into
// a signed delta happens on the CPU side in Device.poll, the same
// lookup-table approach github.com/itohio/EasyRobot's x/devices/encoder
// package uses for its interrupt-driven decoder, just fed from PIO
// samples instead of a pin-change interrupt.

import (
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"

	"gopper-servo/core"
	"gopper-servo/servo"
)

var quadratureDeltaTable = [16]int32{0, -1, 1, 0, 1, 0, 0, -1, -1, 0, 0, 1, 0, 1, -1, 0}

func buildQuadratureProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.In(rp2pio.InSrcPins, 2).Encode(), // 0: in pins, 2 (sample both phases)
		// .wrap
	}
}

const quadraturePIOOrigin = 0

// Device decodes an rp2040 PIO-sampled quadrature tacho into a
// servo.TachoDriver, applying the same direction/gear-ratio/offset
// bookkeeping as drivers/tacho.Device.
type Device struct {
	pio    *rp2pio.PIO
	sm     rp2pio.StateMachine
	pinA   machine.Pin
	pinB   machine.Pin
	offset uint8

	direction servo.Direction
	gearRatio servo.GearRatio

	rawCount    int64
	lastSample  uint8
	angleOffset int32

	lastRateCount int32
	lastRateTime  int64
}

// NewDevice claims a PIO state machine and loads the quadrature
// sampling program.
func NewDevice(pioNum, smNum uint8, pinA, pinB machine.Pin, direction servo.Direction, gearRatio servo.GearRatio) (*Device, error) {
	var pioHW *rp2pio.PIO
	if pioNum == 0 {
		pioHW = rp2pio.PIO0
	} else {
		pioHW = rp2pio.PIO1
	}

	d := &Device{
		pio: pioHW, sm: pioHW.StateMachine(smNum),
		pinA: pinA, pinB: pinB,
		direction: direction, gearRatio: gearRatio,
	}

	d.sm.TryClaim()

	program := buildQuadratureProgram()
	offset, err := d.pio.AddProgram(program, quadraturePIOOrigin)
	if err != nil {
		return nil, err
	}
	d.offset = offset

	pinA.Configure(machine.PinConfig{Mode: d.pio.PinMode()})
	pinB.Configure(machine.PinConfig{Mode: d.pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetInPins(pinA)
	cfg.SetInShift(true, true, 2)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)
	cfg.SetClkDivIntFrac(125, 0) // 1MHz sample rate at a 125MHz system clock

	d.sm.Init(offset, cfg)
	d.sm.SetPindirsConsecutive(pinA, 1, false)
	d.sm.SetPindirsConsecutive(pinB, 1, false)
	d.sm.SetEnabled(true)

	return d, nil
}

// poll drains available RX FIFO samples, decoding each 2-bit phase
// reading against the previous one via quadratureDeltaTable.
func (d *Device) poll() {
	for !d.sm.IsRxFIFOEmpty() {
		sample := uint8(d.sm.RxGet() & 0x3)
		idx := (d.lastSample << 2) | sample
		d.rawCount += int64(quadratureDeltaTable[idx&0xf])
		d.lastSample = sample
	}
}

func (d *Device) rawToOutput() int32 {
	d.poll()
	return servo.ScaleCount(d.rawCount, d.direction, d.gearRatio)
}

// GetCount implements servo.TachoDriver.
func (d *Device) GetCount() (int32, error) {
	return d.rawToOutput(), nil
}

// GetRate implements servo.TachoDriver by differencing successive
// GetCount reads against wall-clock time, same as drivers/tacho.Device.
// It is noisy at low speed compared to a true velocity-mode PIO
// program; callers wanting a smoothed estimate should lean on
// servo.Observer's own state estimate instead.
func (d *Device) GetRate() (int32, error) {
	count := d.rawToOutput()
	now := int64(core.TimerToUS(core.GetTime()))

	dt := now - d.lastRateTime
	if dt <= 0 {
		return 0, nil
	}
	rate := int64(count-d.lastRateCount) * 1_000_000 / dt

	d.lastRateCount = count
	d.lastRateTime = now

	return int32(rate), nil
}

// GetAngle implements servo.TachoDriver.
func (d *Device) GetAngle() (int32, error) {
	return d.rawToOutput() + d.angleOffset, nil
}

// ResetAngle implements servo.TachoDriver.
func (d *Device) ResetAngle(value int32, useAbsolute bool) error {
	count := d.rawToOutput()
	if useAbsolute {
		d.angleOffset = value - count
	} else {
		d.angleOffset += value
	}
	return nil
}

// newQuadratureTacho builds a PIO-backed Device and returns it as a
// servo.TachoDriver, for use as a servo.TachoFactory in main.go.
func newQuadratureTacho(pioNum, smNum uint8, pinA, pinB machine.Pin, direction servo.Direction, gearRatio servo.GearRatio) (servo.TachoDriver, error) {
	return NewDevice(pioNum, smNum, pinA, pinB, direction, gearRatio)
}

// coreClock adapts the core package's tick clock to servo.Clock.
type coreClock struct{}

func (coreClock) NowUs() int64 { return int64(core.TimerToUS(core.GetTime())) }
