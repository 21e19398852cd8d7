package servo

import "testing"

func TestCountIntegratorAccumulatesAndClamps(t *testing.T) {
	ci := NewCountIntegrator(10)
	ci.Update(100, 0, false) // error 100, clamped to changeMax=10
	_, errI := ci.Errors(100, 0)
	if errI != 10 {
		t.Errorf("integral after one clamped update = %d, want 10", errI)
	}
	ci.Update(100, 0, false)
	_, errI = ci.Errors(100, 0)
	if errI != 20 {
		t.Errorf("integral after two clamped updates = %d, want 20", errI)
	}
}

// Anti-windup: accumulation pauses while the control law reports
// saturation (spec.md testable property 7).
func TestCountIntegratorPausesWhileSaturated(t *testing.T) {
	ci := NewCountIntegrator(10)
	ci.Update(100, 0, false)
	_, before := ci.Errors(100, 0)
	ci.Update(100, 0, true)
	_, after := ci.Errors(100, 0)
	if before != after {
		t.Errorf("integral changed while saturated: before=%d after=%d", before, after)
	}
}

// Reset zeroes the integral (command cancellation, spec.md testable
// property 8).
func TestCountIntegratorReset(t *testing.T) {
	ci := NewCountIntegrator(10)
	ci.Update(100, 0, false)
	ci.Reset()
	_, errI := ci.Errors(0, 0)
	if errI != 0 {
		t.Errorf("integral after Reset = %d, want 0", errI)
	}
}

func TestRateIntegratorPausesAtZeroReferenceSpeed(t *testing.T) {
	ri := NewRateIntegrator(10)
	ri.Update(100, 0, 0, false) // rateRef == 0: must not accumulate
	_, errI := ri.Errors(0, 0, 100, 0)
	if errI != 0 {
		t.Errorf("rate integral accumulated with zero reference speed: %d", errI)
	}
	ri.Update(100, 0, 500, false)
	_, errI = ri.Errors(0, 500, 100, 0)
	if errI == 0 {
		t.Errorf("rate integral did not accumulate with non-zero reference speed")
	}
}

func TestRateIntegratorErrorSign(t *testing.T) {
	ri := NewRateIntegrator(100)
	errV, _ := ri.Errors(100, 300, 0, 0)
	if errV != 200 {
		t.Errorf("rate error = %d, want 200 (rateRef-rateNow)", errV)
	}
}
