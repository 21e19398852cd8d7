//go:build tinygo

// Package tacho implements servo.TachoDriver on top of
// tinygo.org/x/drivers/encoders' interrupt-driven quadrature decoder,
// the same approach github.com/itohio/EasyRobot's x/devices/encoder
// package credits as its model. Unlike that package this one is a
// thin servo.TachoDriver adapter: it owns the gear-ratio scaling and
// angle-offset bookkeeping that pbio's tacho layer keeps on top of the
// raw encoder counts, and leaves edge counting itself to the
// TinyGo driver.
package tacho

import (
	"sync/atomic"
	"time"

	"tinygo.org/x/drivers/encoders"

	"gopper-servo/servo"
)

// Device adapts a tinygo.org/x/drivers/encoders.QuadratureDevice to
// servo.TachoDriver, applying direction and gear ratio at the
// boundary so the servo core always sees output-shaft counts.
type Device struct {
	quad      *encoders.QuadratureDevice
	direction servo.Direction
	gearRatio servo.GearRatio

	angleOffset int32

	lastCount int64
	lastTime  int64
	rate      int64
}

// NewDevice wraps an already-configured quadrature encoder.
func NewDevice(quad *encoders.QuadratureDevice, direction servo.Direction, gearRatio servo.GearRatio) *Device {
	return &Device{quad: quad, direction: direction, gearRatio: gearRatio, lastTime: time.Now().UnixMicro()}
}

func (d *Device) rawToOutput(raw int64) int32 {
	return servo.ScaleCount(raw, d.direction, d.gearRatio)
}

// GetCount implements servo.TachoDriver.
func (d *Device) GetCount() (int32, error) {
	return d.rawToOutput(int64(d.quad.Position())), nil
}

// GetRate implements servo.TachoDriver. Rate is derived by
// differencing successive GetCount reads against wall-clock time,
// mirroring the itohio encoder's own updateRPM pattern but expressed
// in the servo core's counts/sec units instead of RPM.
func (d *Device) GetRate() (int32, error) {
	now := time.Now().UnixMicro()
	count := int64(d.rawToOutput(int64(d.quad.Position())))

	last := atomic.LoadInt64(&d.lastTime)
	dt := now - last
	if dt <= 0 {
		return int32(atomic.LoadInt64(&d.rate)), nil
	}

	lastCount := atomic.LoadInt64(&d.lastCount)
	rate := (count - lastCount) * 1_000_000 / dt

	atomic.StoreInt64(&d.lastCount, count)
	atomic.StoreInt64(&d.lastTime, now)
	atomic.StoreInt64(&d.rate, rate)

	return int32(rate), nil
}

// GetAngle implements servo.TachoDriver.
func (d *Device) GetAngle() (int32, error) {
	count, _ := d.GetCount()
	return count + d.angleOffset, nil
}

// ResetAngle implements servo.TachoDriver. It only moves the angle
// offset, never the underlying encoder position, so GetCount stays
// monotonic with the physical shaft regardless of how many times the
// user resets the reported angle.
func (d *Device) ResetAngle(value int32, useAbsolute bool) error {
	count, _ := d.GetCount()
	if useAbsolute {
		d.angleOffset = value - count
	} else {
		d.angleOffset += value
	}
	return nil
}
