package servo

// NumLogValues is the width of a per-tick log row, matching
// pbio's SERVO_LOG_NUM_VALUES = 9 + NUM_DEFAULT_LOG_VALUES (the
// default log values being the OID/time header row a generic logger
// attaches; this module's Logger.Update takes just the servo-specific
// nine and leaves header framing to the Logger implementation).
const NumLogValues = 9

// LogRow is one tick's worth of servo log data, matching
// pbio_servo_log_update's buf[0..8] assignment verbatim:
//
//	0: time since trajectory t0 (ms), 0 if control is idle
//	1: measured count
//	2: measured rate
//	3: actuation kind applied this tick
//	4: control value applied this tick
//	5: reference count (meaningful only while control is active)
//	6: reference rate
//	7: position error (ANGLE) or rate error (TIMED)
//	8: integral term
type LogRow [NumLogValues]int32

// buildLogRow assembles a LogRow for one tick. ctl may be nil or idle
// (ControlNone), in which case only the physical-state fields (1-4)
// are populated, matching the source's early-return path for a
// passively-actuated motor.
func buildLogRow(timeNow int64, countNow, rateNow int32, actuation ActuationKind, control int32, ctl *Control) LogRow {
	var row LogRow
	row[1] = countNow
	row[2] = rateNow
	row[3] = int32(actuation)
	row[4] = control

	if ctl == nil || ctl.Type == ControlNone || ctl.Trajectory == nil {
		return row
	}

	row[0] = int32((timeNow - ctl.Trajectory.T0) / 1000)

	posRef, _, rateRef, _ := ctl.Trajectory.Sample(timeNow)
	row[5] = posRef
	row[6] = rateRef

	var err, errIntegral int32
	switch ctl.Type {
	case ControlAngle:
		err, errIntegral = ctl.countIntegrator.Errors(countNow, posRef)
	case ControlTimed:
		err, errIntegral = ctl.rateIntegrator.Errors(rateNow, rateRef, countNow, posRef)
	}
	row[7] = err
	row[8] = errIntegral

	return row
}
