package servo

import "testing"

// Sampling is a pure function of (trajectory, time): two calls at the
// same t must agree (spec.md testable property 5).
func TestTrajectorySampleDeterministic(t *testing.T) {
	tr := BuildAngle(0, 0, 0, 90000, 500000, 200000, 200000)
	for _, sampleT := range []int64{0, 10000, 500000, tr.t3, tr.t3 + 1000} {
		p1, _, r1, a1 := tr.Sample(sampleT)
		p2, _, r2, a2 := tr.Sample(sampleT)
		if p1 != p2 || r1 != r2 || a1 != a2 {
			t.Errorf("Sample(%d) not deterministic: (%d,%d,%d) vs (%d,%d,%d)", sampleT, p1, r1, a1, p2, r2, a2)
		}
	}
}

// Before T0 and after t3 the trajectory clips to its boundary state.
func TestTrajectoryClipsAtBoundaries(t *testing.T) {
	tr := BuildAngle(1000, 0, 0, 90000, 500000, 200000, 200000)

	pos, _, rate, _ := tr.Sample(0)
	if pos != 0 || rate != 0 {
		t.Errorf("Sample before T0 = (%d,%d), want (0,0)", pos, rate)
	}

	pos, _, rate, _ = tr.Sample(tr.t3 + 1_000_000)
	if pos != 90000 || rate != 0 {
		t.Errorf("Sample after t3 = (%d,%d), want (90000,0)", pos, rate)
	}
}

// A trajectory that starts already at its target collapses to an
// instant hold: zero distance, ending at rest.
func TestTrajectoryZeroDistance(t *testing.T) {
	tr := BuildAngle(0, 1000, 0, 1000, 500000, 200000, 200000)
	pos, _, rate, _ := tr.Sample(tr.t3)
	if pos != 1000 || rate != 0 {
		t.Errorf("zero-distance trajectory ended at (%d,%d), want (1000,0)", pos, rate)
	}
}

// BuildTimed with DurationForever never reaches a finite t2/t3; the
// cruise phase must still be sampleable arbitrarily far in.
func TestTrajectoryTimedForever(t *testing.T) {
	tr := BuildTimed(0, 0, 0, 300000, 100000, DurationForever)
	_, _, rate, _ := tr.Sample(100_000_000)
	if rate != 300000 {
		t.Errorf("forever-duration trajectory rate = %d, want 300000", rate)
	}
}

// BuildHold pins position forever with zero rate.
func TestTrajectoryHold(t *testing.T) {
	tr := BuildHold(0, 42)
	for _, sampleT := range []int64{0, 1000, 1_000_000_000} {
		pos, _, rate, _ := tr.Sample(sampleT)
		if pos != 42 || rate != 0 {
			t.Errorf("Sample(%d) on hold = (%d,%d), want (42,0)", sampleT, pos, rate)
		}
	}
}

// A move commanded in the wrong starting direction (moving away from
// the target when the command arrives) must still converge on the
// target, going through a deceleration-through-zero phase first.
func TestTrajectorySignMismatchConverges(t *testing.T) {
	tr := BuildAngle(0, 0, -500000, 90000, 500000, 200000, 200000)
	pos, _, rate, _ := tr.Sample(tr.t3)
	if pos != 90000 || rate != 0 {
		t.Errorf("sign-mismatch trajectory ended at (%d,%d), want (90000,0)", pos, rate)
	}
}

// A short move with not enough room to reach cruise speed must still
// land exactly on target (triangular profile).
func TestTrajectoryTriangularProfile(t *testing.T) {
	tr := BuildAngle(0, 0, 0, 100, 500000, 200000, 200000)
	pos, _, rate, _ := tr.Sample(tr.t3)
	if pos != 100 || rate != 0 {
		t.Errorf("triangular-profile trajectory ended at (%d,%d), want (100,0)", pos, rate)
	}
}
