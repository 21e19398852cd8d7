package servo

import "testing"

// Every supported motor type must load non-zero control settings and a
// matching observer model.
func TestLoadSettingsSupportedTypes(t *testing.T) {
	types := []MotorType{
		MotorTypeEV3Medium, MotorTypeEV3Large, MotorTypeInteractive,
		MotorTypeMoveHub, MotorTypeTechnicL, MotorTypeTechnicXL,
		MotorTypeTechnicSAngular, MotorTypeTechnicMAngular, MotorTypeTechnicLAngular,
		MotorTypeSpikeS, MotorTypeSpikeM, MotorTypeSpikeL,
	}
	for _, mt := range types {
		s, model, err := LoadSettings(mt)
		if err != nil {
			t.Errorf("LoadSettings(%d) returned error %v", mt, err)
			continue
		}
		if model == nil {
			t.Errorf("LoadSettings(%d) returned nil model", mt)
		}
		if s.SpeedMax <= 0 {
			t.Errorf("LoadSettings(%d).SpeedMax = %d, want > 0", mt, s.SpeedMax)
		}
		if s.Acceleration <= 0 {
			t.Errorf("LoadSettings(%d).Acceleration = %d, want > 0", mt, s.Acceleration)
		}
		if s.Deceleration != s.Acceleration {
			t.Errorf("LoadSettings(%d).Deceleration = %d, want == Acceleration (%d)", mt, s.Deceleration, s.Acceleration)
		}
		if s.SpeedDefault != s.SpeedMax {
			t.Errorf("LoadSettings(%d).SpeedDefault = %d, want == SpeedMax (%d)", mt, s.SpeedDefault, s.SpeedMax)
		}
		// With every PRESCALE_* constant pinned to 1 (see DESIGN.md),
		// VoltageToTorque's division can truncate to zero for the
		// motor types with the largest DTorqueDVoltage coefficients;
		// ActuationMax and the PIDKi derived from it are never
		// negative, but are not guaranteed strictly positive for
		// every type.
		if s.ActuationMax < 0 {
			t.Errorf("LoadSettings(%d).ActuationMax = %d, want >= 0", mt, s.ActuationMax)
		}
		if s.PIDKi < 0 {
			t.Errorf("LoadSettings(%d).PIDKi = %d, want >= 0", mt, s.PIDKi)
		}
	}

	s, _, err := LoadSettings(MotorTypeTechnicL)
	if err != nil || s.ActuationMax <= 0 || s.PIDKi <= 0 {
		t.Errorf("LoadSettings(TechnicL) = %+v, err=%v, want ActuationMax/PIDKi > 0", s, err)
	}
}

func TestLoadSettingsUnsupportedType(t *testing.T) {
	_, _, err := LoadSettings(MotorTypeNone)
	if err != ErrNotSupported {
		t.Errorf("LoadSettings(MotorTypeNone) error = %v, want ErrNotSupported", err)
	}
	_, _, err = LoadSettings(MotorTypeNonServoSensor)
	if err != ErrNotSupported {
		t.Errorf("LoadSettings(MotorTypeNonServoSensor) error = %v, want ErrNotSupported", err)
	}
}

// SPIKE S is the one type with a lower voltage ceiling than the rest.
func TestMaxVoltageMVSpikeSException(t *testing.T) {
	if got := MaxVoltageMV(MotorTypeSpikeS); got != 6000 {
		t.Errorf("MaxVoltageMV(SpikeS) = %d, want 6000", got)
	}
	for _, mt := range []MotorType{MotorTypeTechnicL, MotorTypeTechnicXL, MotorTypeSpikeL, MotorTypeSpikeM} {
		if got := MaxVoltageMV(mt); got != 9000 {
			t.Errorf("MaxVoltageMV(%d) = %d, want 9000", mt, got)
		}
	}
}

func TestDegToMDeg(t *testing.T) {
	if got := DegToMDeg(10); got != 10000 {
		t.Errorf("DegToMDeg(10) = %d, want 10000", got)
	}
	if got := DegToMDeg(0); got != 0 {
		t.Errorf("DegToMDeg(0) = %d, want 0", got)
	}
}
