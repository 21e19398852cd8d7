package servo

import "math"

// DurationForever marks a trajectory with no time limit (run/
// track_target/run_until_stalled): the cruise phase never ends on its
// own, only by a new command cancelling it.
const DurationForever int64 = math.MaxInt64 / 2

// TrajectoryMode selects which commanded quantity a trajectory is
// built to satisfy: a target position (ANGLE) or a target duration at
// a given speed (TIMED).
type TrajectoryMode uint8

const (
	TrajectoryModeAngle TrajectoryMode = iota
	TrajectoryModeTimed
)

// Trajectory is a piecewise time-parameterized reference over up to
// three phases (accelerate, cruise, decelerate), built once when a
// motion command starts and sampled on every control tick thereafter.
// All positions and rates are in the servo's raw tacho counts and
// counts/sec, the same count domain Control works in; building uses
// floating point (the
// trajectory planner, unlike the observer, is not required to be
// bit-exact), sampling returns integers.
type Trajectory struct {
	T0         int64 // start time, us
	StartCount int32
	StartRate  int32

	t1, t2, t3 int64 // phase boundary times, us, t0<=t1<=t2<=t3

	posAtT1 float64
	posAtT2 float64

	accel1     float64 // counts/s^2 during [t0,t1]
	rateCruise float64 // counts/s during [t1,t2]
	accel3     float64 // counts/s^2 during [t2,t3]

	endCount int32
	endRate  int32
}

// BuildAngle builds a position-targeting trajectory: reach targetCount
// travelling at up to targetRate (sign gives direction; magnitude is
// the speed limit), respecting accel/decel limits, and come to rest
// (or to targetRate's sign-matched final speed when continuing, see
// Servo.TrackTarget) at targetCount.
func BuildAngle(t0 int64, startCount, startRate, targetCount, targetRate, accel, decel int32) *Trajectory {
	tr := &Trajectory{T0: t0, StartCount: startCount, StartRate: startRate}

	dist := float64(targetCount - startCount)
	dir := sign64(dist)
	if dist == 0 {
		dir = sign64(float64(targetRate))
	}

	maxRate := math.Abs(float64(targetRate))
	if maxRate == 0 {
		maxRate = 1 // degenerate: zero-speed target collapses to an instant hold below
	}
	a := math.Abs(float64(accel))
	d := math.Abs(float64(decel))
	if a == 0 {
		a = 1
	}
	if d == 0 {
		d = 1
	}

	absDist := math.Abs(dist)
	startRateSigned := float64(startRate)

	// Work in the direction-normalized frame: positive means "the
	// direction we travel to reach the target".
	v0 := startRateSigned * dir

	// Distance covered while bringing v0 (possibly already moving, even
	// backward) up/down to the cruise speed and back down to rest
	// mirrors a standard trapezoid: accelerate from v0 to vCruise over
	// accelDist, cruise, then decelerate from vCruise to 0 over
	// decelDist, with accelDist+decelDist <= absDist (else triangular).
	vCruise := maxRate
	accelDist := math.Abs(vCruise*vCruise-v0*v0) / (2 * a)
	decelDist := (vCruise * vCruise) / (2 * d)

	if v0 > vCruise {
		// Already faster than the cruise speed in the travel
		// direction: the first phase is a deceleration down to
		// vCruise (or directly into the final decel if there isn't
		// room), spec.md 4.2's "profile begins with a decel phase".
		accelDist = -accelDist
	}

	if accelDist+decelDist > absDist || v0 < 0 {
		// Triangular profile: either not enough room to reach
		// vCruise, or we're moving the wrong way and must first
		// decelerate through zero (spec.md 4.2's sign-mismatch
		// tie-break), then accelerate into whatever peak speed the
		// remaining distance allows.
		vCruise = triangularPeak(v0, absDist, a, d)
		if vCruise > maxRate {
			vCruise = maxRate
		}
	}

	// Phase 1: v0 -> vCruise at rate a (sign chosen by direction of change).
	a1 := a
	if vCruise < v0 {
		a1 = -a
	}
	dt1 := math.Abs(vCruise-v0) / a
	dist1 := v0*dt1 + 0.5*a1*dt1*dt1

	// Phase 3: vCruise -> 0 at rate d.
	dt3 := vCruise / d
	dist3 := 0.5 * d * dt3 * dt3

	distCruise := absDist - dist1 - dist3
	if distCruise < 0 {
		distCruise = 0
	}
	dt2 := 0.0
	if vCruise > 0 {
		dt2 = distCruise / vCruise
	}

	us := func(seconds float64) int64 { return int64(seconds * 1e6) }

	tr.t1 = t0 + us(dt1)
	tr.t2 = tr.t1 + us(dt2)
	tr.t3 = tr.t2 + us(dt3)

	tr.accel1 = a1 * dir
	tr.rateCruise = vCruise * dir
	tr.accel3 = -d * dir
	if vCruise < v0 {
		tr.accel3 = d * dir
	}

	tr.posAtT1 = float64(startCount) + (v0*dt1+0.5*a1*dt1*dt1)*dir
	tr.posAtT2 = tr.posAtT1 + tr.rateCruise*dt2

	tr.endCount = targetCount
	tr.endRate = 0

	return tr
}

// triangularPeak solves for the peak speed reached when the
// accelerate and decelerate phases together must exactly cover
// absDist, starting from v0 (same-direction frame).
func triangularPeak(v0, absDist, a, d float64) float64 {
	// v0^2/(2a) is already "spent" reaching v0 from rest on an a-slope;
	// solve v_peak from: (v_peak^2-v0^2)/(2a) + v_peak^2/(2d) = absDist.
	num := 2*a*d*absDist + d*v0*v0
	den := a + d
	if den == 0 {
		return 0
	}
	v2 := num / den
	if v2 < 0 {
		v2 = 0
	}
	return math.Sqrt(v2)
}

// BuildTimed builds a speed-over-time trajectory: accelerate to
// targetRate and hold it for durationUs (or forever if durationUs is
// DurationForever). There is no built-in decel phase; ending the
// command is the caller's job (stop/after_stop), matching spec.md
// 4.5's run/run_time semantics.
func BuildTimed(t0 int64, startCount, startRate, targetRate, accel int32, durationUs int64) *Trajectory {
	tr := &Trajectory{T0: t0, StartCount: startCount, StartRate: startRate}

	v0 := float64(startRate)
	vTarget := float64(targetRate)
	a := math.Abs(float64(accel))
	if a == 0 {
		a = 1
	}

	a1 := a
	if vTarget < v0 {
		a1 = -a
	}
	dt1 := math.Abs(vTarget-v0) / a

	us := func(seconds float64) int64 { return int64(seconds * 1e6) }

	tr.t1 = t0 + us(dt1)
	if durationUs >= DurationForever {
		tr.t2 = DurationForever
	} else {
		tr.t2 = t0 + durationUs
		if tr.t2 < tr.t1 {
			tr.t2 = tr.t1
		}
	}
	tr.t3 = tr.t2

	tr.accel1 = a1
	tr.rateCruise = vTarget
	tr.accel3 = 0

	tr.posAtT1 = float64(startCount) + v0*dt1 + 0.5*a1*dt1*dt1
	if tr.t2 >= DurationForever {
		tr.posAtT2 = tr.posAtT1
	} else {
		tr.posAtT2 = tr.posAtT1 + vTarget*float64(tr.t2-tr.t1)/1e6
	}

	tr.endRate = targetRate
	tr.endCount = int32(tr.posAtT2)

	return tr
}

// BuildHold builds a zero-length, infinite-duration trajectory pinned
// at targetCount: HOLD is represented as an ANGLE control with an
// infinite trajectory at one point (spec.md 4.4).
func BuildHold(t0 int64, targetCount int32) *Trajectory {
	return &Trajectory{
		T0: t0, StartCount: targetCount, StartRate: 0,
		t1: DurationForever, t2: DurationForever, t3: DurationForever,
		endCount: targetCount, endRate: 0,
	}
}

// Sample evaluates the trajectory at time t, clipping to the
// trajectory's window: before T0 it returns the initial state, after
// t3 it returns the final state. Sampling is a pure function of (tr,
// t): two calls at the same t always agree (spec.md testable property
// 5).
func (tr *Trajectory) Sample(t int64) (posRef, posRefExt, rateRef, accelRef int32) {
	switch {
	case t <= tr.T0:
		return tr.StartCount, tr.StartCount, tr.StartRate, 0
	case t <= tr.t1:
		dt := float64(t-tr.T0) / 1e6
		pos := float64(tr.StartCount) + float64(tr.StartRate)*dt + 0.5*tr.accel1*dt*dt
		rate := float64(tr.StartRate) + tr.accel1*dt
		return round32(pos), round32(pos), round32(rate), round32(tr.accel1)
	case t <= tr.t2:
		dt := float64(t-tr.t1) / 1e6
		pos := tr.posAtT1 + tr.rateCruise*dt
		return round32(pos), round32(pos), round32(tr.rateCruise), 0
	case t <= tr.t3:
		dt := float64(t-tr.t2) / 1e6
		pos := tr.posAtT2 + tr.rateCruise*dt + 0.5*tr.accel3*dt*dt
		rate := tr.rateCruise + tr.accel3*dt
		return round32(pos), round32(pos), round32(rate), round32(tr.accel3)
	default:
		return tr.endCount, tr.endCount, tr.endRate, 0
	}
}

func round32(f float64) int32 {
	if f >= 0 {
		return int32(f + 0.5)
	}
	return int32(f - 0.5)
}

func sign64(f float64) float64 {
	switch {
	case f > 0:
		return 1
	case f < 0:
		return -1
	default:
		return 1
	}
}
