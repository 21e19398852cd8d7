// Command servobench drives a single servo on a connected gopper-servo
// MCU over serial, the same way host/cmd/gopper-host drives the
// generic Klipper protocol: connect, retrieve the dictionary, acquire
// the port with servo_get and send one command. It does not stream log
// rows back.
package main

import (
	"flag"
	"fmt"
	"os"

	"gopper-servo/host/mcu"
	"gopper-servo/protocol"
	"gopper-servo/servo"
)

var (
	configPath = flag.String("config", "", "path to a JSON BenchConfig file (flags below override it)")
	device     = flag.String("device", "", "serial device path")
	command    = flag.String("cmd", "", "servo_run|servo_run_time|servo_run_angle|servo_run_target|servo_track_target|servo_run_until_stalled|servo_stop|servo_set_duty|servo_reset_angle")
	port       = flag.Int("port", -1, "servo port (oid)")
	speed      = flag.Int("speed", 0, "speed, deg/s")
	target     = flag.Int("target", 0, "target/angle/duty argument, command-dependent")
	durationMs = flag.Int("duration", 0, "duration, ms (servo_run_time)")
	afterStop  = flag.Int("after-stop", 0, "0=coast 1=brake 2=hold 3=duty")
	pwmPin     = flag.Int("pwm-pin", -1, "PWM pin for servo_get")
	dirPin     = flag.Int("dir-pin", -1, "direction pin for servo_get")
	encPinA    = flag.Int("enc-pin-a", -1, "quadrature phase A pin for servo_get")
	encPinB    = flag.Int("enc-pin-b", -1, "quadrature phase B pin for servo_get")
)

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	applyFlags(cfg)

	mcuConn := mcu.NewMCU()
	fmt.Printf("Connecting to MCU on %s...\n", cfg.Device)
	if err := mcuConn.Connect(cfg.Device); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer mcuConn.Close()

	if err := mcuConn.RetrieveDictionary(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to retrieve dictionary: %v\n", err)
		os.Exit(1)
	}

	if err := acquireServo(mcuConn, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: servo_get failed: %v\n", err)
		os.Exit(1)
	}

	if err := runCommand(mcuConn, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s failed: %v\n", cfg.Command, err)
		os.Exit(1)
	}

	fmt.Printf("%s sent on port %d\n", cfg.Command, cfg.Port)
}

func loadConfig() (*BenchConfig, error) {
	if *configPath == "" {
		return LoadBenchConfig(nil)
	}
	data, err := os.ReadFile(*configPath)
	if err != nil {
		return nil, err
	}
	return LoadBenchConfig(data)
}

func applyFlags(cfg *BenchConfig) {
	if *device != "" {
		cfg.Device = *device
	}
	if *command != "" {
		cfg.Command = *command
	}
	if *port >= 0 {
		cfg.Port = *port
	}
	if *speed != 0 {
		cfg.SpeedDeg = int32(*speed)
	}
	if *target != 0 {
		cfg.TargetDeg = int32(*target)
	}
	if *durationMs != 0 {
		cfg.DurationMs = int32(*durationMs)
	}
	if *afterStop != 0 {
		cfg.AfterStop = *afterStop
	}
	if *pwmPin >= 0 {
		cfg.PWMPin = *pwmPin
	}
	if *dirPin >= 0 {
		cfg.DirPin = *dirPin
	}
	if *encPinA >= 0 {
		cfg.EncPinA = *encPinA
	}
	if *encPinB >= 0 {
		cfg.EncPinB = *encPinB
	}
}

func acquireServo(m *mcu.MCU, cfg *BenchConfig) error {
	gearRatio := servo.GearRatioFromFloat(cfg.GearRatio)
	return m.SendCommand("servo_get", func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, uint32(cfg.Port))
		protocol.EncodeVLQInt(output, int32(cfg.Direction))
		protocol.EncodeVLQInt(output, int32(gearRatio))
		protocol.EncodeVLQUint(output, uint32(cfg.PWMPin))
		protocol.EncodeVLQUint(output, uint32(cfg.DirPin))
		protocol.EncodeVLQUint(output, uint32(cfg.EncPinA))
		protocol.EncodeVLQUint(output, uint32(cfg.EncPinB))
	})
}

func runCommand(m *mcu.MCU, cfg *BenchConfig) error {
	switch cfg.Command {
	case "servo_run":
		return m.SendCommand("servo_run", func(output protocol.OutputBuffer) {
			protocol.EncodeVLQUint(output, uint32(cfg.Port))
			protocol.EncodeVLQInt(output, cfg.SpeedDeg)
		})
	case "servo_run_time":
		return m.SendCommand("servo_run_time", func(output protocol.OutputBuffer) {
			protocol.EncodeVLQUint(output, uint32(cfg.Port))
			protocol.EncodeVLQInt(output, cfg.SpeedDeg)
			protocol.EncodeVLQUint(output, uint32(cfg.DurationMs))
			protocol.EncodeVLQUint(output, uint32(cfg.AfterStop))
		})
	case "servo_run_until_stalled":
		return m.SendCommand("servo_run_until_stalled", func(output protocol.OutputBuffer) {
			protocol.EncodeVLQUint(output, uint32(cfg.Port))
			protocol.EncodeVLQInt(output, cfg.SpeedDeg)
			protocol.EncodeVLQUint(output, uint32(cfg.AfterStop))
		})
	case "servo_run_target":
		return m.SendCommand("servo_run_target", func(output protocol.OutputBuffer) {
			protocol.EncodeVLQUint(output, uint32(cfg.Port))
			protocol.EncodeVLQInt(output, cfg.SpeedDeg)
			protocol.EncodeVLQInt(output, cfg.TargetDeg)
			protocol.EncodeVLQUint(output, uint32(cfg.AfterStop))
		})
	case "servo_run_angle":
		return m.SendCommand("servo_run_angle", func(output protocol.OutputBuffer) {
			protocol.EncodeVLQUint(output, uint32(cfg.Port))
			protocol.EncodeVLQInt(output, cfg.SpeedDeg)
			protocol.EncodeVLQInt(output, cfg.TargetDeg)
			protocol.EncodeVLQUint(output, uint32(cfg.AfterStop))
		})
	case "servo_track_target":
		return m.SendCommand("servo_track_target", func(output protocol.OutputBuffer) {
			protocol.EncodeVLQUint(output, uint32(cfg.Port))
			protocol.EncodeVLQInt(output, cfg.TargetDeg)
		})
	case "servo_stop":
		return m.SendCommand("servo_stop", func(output protocol.OutputBuffer) {
			protocol.EncodeVLQUint(output, uint32(cfg.Port))
			protocol.EncodeVLQUint(output, uint32(cfg.AfterStop))
		})
	case "servo_set_duty":
		return m.SendCommand("servo_set_duty", func(output protocol.OutputBuffer) {
			protocol.EncodeVLQUint(output, uint32(cfg.Port))
			protocol.EncodeVLQInt(output, cfg.TargetDeg)
		})
	case "servo_reset_angle":
		return m.SendCommand("servo_reset_angle", func(output protocol.OutputBuffer) {
			protocol.EncodeVLQUint(output, uint32(cfg.Port))
			protocol.EncodeVLQInt(output, cfg.TargetDeg)
			protocol.EncodeVLQUint(output, 1)
		})
	default:
		return fmt.Errorf("unknown command %q", cfg.Command)
	}
}
