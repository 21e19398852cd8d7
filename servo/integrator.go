package servo

// CountIntegrator accumulates windowed position error for angle (ANGLE
// control) PID, with anti-windup: accumulation pauses while the
// control law reports saturation, per spec.md 4.3.
type CountIntegrator struct {
	changeMax int32
	sum       int32
}

// NewCountIntegrator builds a CountIntegrator whose per-tick
// accumulation is clamped to changeMax.
func NewCountIntegrator(changeMax int32) *CountIntegrator {
	return &CountIntegrator{changeMax: changeMax}
}

// Reset zeroes the accumulated integral, used when a new angle
// maneuver starts (spec.md testable property 8, command cancellation).
func (ci *CountIntegrator) Reset() {
	ci.sum = 0
}

// Update accumulates (countNow - countRef), clamped to changeMax per
// tick. While saturated, the accumulation pauses (anti-windup): the
// integral does not grow, matching spec.md testable property 7.
func (ci *CountIntegrator) Update(countNow, countRef int32, saturated bool) {
	if saturated {
		return
	}
	ci.sum += Clamp(countNow-countRef, -ci.changeMax, ci.changeMax)
}

// Errors returns the instantaneous position error and the current
// integral term.
func (ci *CountIntegrator) Errors(countNow, countRef int32) (err, errIntegral int32) {
	return countNow - countRef, ci.sum
}

// RateIntegrator accumulates windowed position error for timed
// (TIMED control) PID. Unlike CountIntegrator it also pauses
// accumulation whenever the reference speed is zero: while a timed
// maneuver is momentarily commanded to stand still there is no
// position reference to track, and it tracks an instantaneous *rate*
// error rather than a position error for the proportional/derivative
// terms (spec.md 4.3).
type RateIntegrator struct {
	changeMax int32
	sum       int32
}

// NewRateIntegrator builds a RateIntegrator whose per-tick
// accumulation is clamped to changeMax.
func NewRateIntegrator(changeMax int32) *RateIntegrator {
	return &RateIntegrator{changeMax: changeMax}
}

// Reset zeroes the accumulated integral.
func (ri *RateIntegrator) Reset() {
	ri.sum = 0
}

// Update accumulates (countNow - countRef), clamped to changeMax per
// tick, but only while not saturated and only while the reference
// speed is non-zero.
func (ri *RateIntegrator) Update(countNow, countRef, rateRef int32, saturated bool) {
	if saturated || rateRef == 0 {
		return
	}
	ri.sum += Clamp(countNow-countRef, -ri.changeMax, ri.changeMax)
}

// Errors returns the instantaneous rate error (rateRef - rateNow) and
// the current integral term.
func (ri *RateIntegrator) Errors(rateNow, rateRef, countNow, countRef int32) (err, errIntegral int32) {
	_ = countNow
	_ = countRef
	return rateRef - rateNow, ri.sum
}
