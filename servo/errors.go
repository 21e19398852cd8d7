package servo

import "errors"

// Sentinel errors forwarded unchanged from driver boundaries. The core
// never invents new kinds; it only forwards what the DC motor and
// tacho drivers return, per spec.md's error taxonomy of kinds rather
// than types.
var (
	// ErrAgain marks a transient condition: the driver isn't ready yet.
	// Helpers that retry (ResetAngle) treat this specially; everything
	// else forwards it unchanged.
	ErrAgain = errors.New("servo: driver not ready (again)")

	// ErrInvalidPort is returned by Get for a port outside the
	// controller's configured range.
	ErrInvalidPort = errors.New("servo: invalid port")

	// ErrInvalidArg is returned for out-of-range command arguments.
	ErrInvalidArg = errors.New("servo: invalid argument")

	// ErrNotSupported is returned when a motor type has no known
	// observer model or control settings.
	ErrNotSupported = errors.New("servo: motor type not supported")

	// ErrNotConnected is returned by command methods on a servo whose
	// driver handles have not been (re)acquired via Get.
	ErrNotConnected = errors.New("servo: not connected")
)

// IsTransient reports whether err is the kind of error a caller should
// retry rather than propagate, e.g. ResetAngle's bounded retry loop.
func IsTransient(err error) bool {
	return errors.Is(err, ErrAgain)
}
