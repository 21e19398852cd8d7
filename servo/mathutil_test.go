package servo

import "testing"

func TestSign(t *testing.T) {
	cases := []struct {
		in   int32
		want int32
	}{
		{5, 1}, {-5, -1}, {0, 0},
	}
	for _, c := range cases {
		if got := Sign(c.in); got != c.want {
			t.Errorf("Sign(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestClamp(t *testing.T) {
	cases := []struct {
		v, lo, hi, want int32
	}{
		{5, 0, 10, 5},
		{-5, 0, 10, 0},
		{50, 0, 10, 10},
		{5, 5, 5, 5},
	}
	for _, c := range cases {
		if got := Clamp(c.v, c.lo, c.hi); got != c.want {
			t.Errorf("Clamp(%d,%d,%d) = %d, want %d", c.v, c.lo, c.hi, got, c.want)
		}
	}
}

func TestScaleDivNoOverflow(t *testing.T) {
	// num*scale would overflow int32 if computed in 32 bits.
	got := ScaleDiv(1<<30, 4, 8)
	want := int32((int64(1<<30) * 4) / 8)
	if got != want {
		t.Errorf("ScaleDiv overflow case = %d, want %d", got, want)
	}
}

func TestScaleDivZeroDenominator(t *testing.T) {
	if got := ScaleDiv(10, 2, 0); got != 0 {
		t.Errorf("ScaleDiv with den=0 = %d, want 0", got)
	}
}

func TestAbsInt32(t *testing.T) {
	if got := AbsInt32(-7); got != 7 {
		t.Errorf("AbsInt32(-7) = %d, want 7", got)
	}
	if got := AbsInt32(7); got != 7 {
		t.Errorf("AbsInt32(7) = %d, want 7", got)
	}
	// MinInt32 has no positive counterpart; must saturate, not overflow.
	if got := AbsInt32(-2147483648); got != 2147483647 {
		t.Errorf("AbsInt32(MinInt32) = %d, want MaxInt32", got)
	}
}

func TestMinMaxInt32(t *testing.T) {
	if MinInt32(3, 5) != 3 {
		t.Errorf("MinInt32(3,5) != 3")
	}
	if MaxInt32(3, 5) != 5 {
		t.Errorf("MaxInt32(3,5) != 5")
	}
}
