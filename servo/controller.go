package servo

// MaxPorts bounds the fixed-size servo table a Controller owns (six
// ports); a platform with more ports configures a larger
// Controller at startup instead of reaching for a map.
const MaxPorts = 6

// DCMotorFactory acquires a DC motor driver handle for a port, wiring
// up the PWM/direction pins servo_get carried over the wire. Set on a
// Controller at startup; concrete implementations live in
// drivers/dcmotor and targets/*.
type DCMotorFactory func(port Port, direction Direction, pins PinSpec) (DCMotorDriver, error)

// TachoFactory acquires a tacho driver handle for a port, with the
// gear ratio baked into the driver's own count scaling and the
// quadrature pins wired up from the same servo_get pin assignment.
type TachoFactory func(port Port, direction Direction, gearRatio GearRatio, pins PinSpec) (TachoDriver, error)

// Controller owns the process-wide table of servos. It is a plain
// value created once at startup and threaded explicitly to whatever
// needs it (the command dispatcher, the scheduler), rather than a
// package-level singleton (spec.md 9's explicit guidance).
//
// Controller has no opinion on how its servos get ticked: it exposes
// Tick for a caller-owned scheduler to drive. core.ServoScheduler is
// that caller for the MCU build; a host-side bench harness could just
// as well call Tick from a time.Ticker instead.
type Controller struct {
	DCMotors DCMotorFactory
	Tachos   TachoFactory
	Clock    Clock
	Logger   func(port Port) Logger

	servos [MaxPorts]*Servo
}

// NewController builds a Controller with the given acquisition
// factories. A nil Logger factory falls back to NopLogger for every
// servo.
func NewController(dcFactory DCMotorFactory, tachoFactory TachoFactory, clock Clock) *Controller {
	return &Controller{
		DCMotors: dcFactory,
		Tachos:   tachoFactory,
		Clock:    clock,
	}
}

func (c *Controller) loggerFor(port Port) Logger {
	if c.Logger == nil {
		return NopLogger{}
	}
	if l := c.Logger(port); l != nil {
		return l
	}
	return NopLogger{}
}

// Get acquires the servo on port, auto-detecting its motor type and
// loading the matching settings and observer model (spec.md 4.5,
// pbio_servo_get_servo). Returns ErrInvalidPort if port is out of
// range, ErrNotSupported if the attached device isn't a known servo
// motor type.
func (c *Controller) Get(port Port, direction Direction, gearRatio GearRatio, pins PinSpec) (*Servo, error) {
	if int(port) >= MaxPorts {
		return nil, ErrInvalidPort
	}

	if old := c.servos[port]; old != nil {
		_ = old.Stop(ActuationCoast)
		c.servos[port] = nil
	}

	dc, err := c.DCMotors(port, direction, pins)
	if err != nil {
		return nil, err
	}
	motorType, err := dc.ID()
	if err != nil {
		return nil, err
	}
	settings, model, err := LoadSettings(motorType)
	if err != nil {
		return nil, err
	}

	tacho, err := c.Tachos(port, direction, gearRatio, pins)
	if err != nil {
		return nil, err
	}
	count, err := tacho.GetCount()
	if err != nil {
		return nil, err
	}

	observer := NewObserver(model, DefaultCountsPerDegree)
	observer.Reset(count)

	s := &Servo{
		Port:      port,
		Direction: direction,
		GearRatio: gearRatio,
		pins:      pins,
		connected: true,
		motorType: motorType,
		dc:        dc,
		tacho:     tacho,
		clock:     c.Clock,
		logger:    c.loggerFor(port),
		observer:  observer,
		control:   NewControl(settings),
	}

	c.servos[port] = s

	return s, nil
}

// Servo returns the previously-acquired servo for port, or nil if none
// is connected there.
func (c *Controller) Servo(port Port) *Servo {
	if int(port) >= MaxPorts {
		return nil
	}
	return c.servos[port]
}

// Tick runs one control update for the servo on port and disconnects
// it on an unrecoverable driver error (spec.md 4.6/7), returning that
// error to the caller so a scheduler can log or record it. Ticking an
// empty or already-disconnected port is a no-op.
func (c *Controller) Tick(port Port) error {
	if int(port) >= MaxPorts {
		return ErrInvalidPort
	}
	s := c.servos[port]
	if s == nil || !s.connected {
		return nil
	}
	if err := s.ControlUpdate(); err != nil {
		s.connected = false
		c.servos[port] = nil
		return err
	}
	return nil
}

// ReconnectAll drops and re-acquires every currently-connected servo,
// reloading settings and resetting each observer from the tacho's
// current reading. Supplements the distilled command surface with the
// bulk-reset operation pbio exposes as _pbio_servo_reset_all, used
// after a firmware-level reset or emergency stop to bring every port
// back to a known state without restarting the process.
func (c *Controller) ReconnectAll() []error {
	var errs []error
	for port := Port(0); int(port) < MaxPorts; port++ {
		s := c.servos[port]
		if s == nil {
			continue
		}
		direction, gearRatio, pins := s.Direction, s.GearRatio, s.pins
		c.servos[port] = nil
		if _, err := c.Get(port, direction, gearRatio, pins); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
