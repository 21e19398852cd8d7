package main

import "encoding/json"

// BenchConfig describes one servobench run: which port to exercise,
// over which command, at what speed/target/duration. Mirrors the
// standalone/config package's LoadConfig/applyDefaults pattern: parse
// into a zero-valued struct, then fill in anything the operator left
// unset.
type BenchConfig struct {
	Device  string `json:"device"`
	Baud    int    `json:"baud"`
	Port    int    `json:"port"`
	Command string `json:"command"`

	SpeedDeg   int32   `json:"speed_deg"`
	TargetDeg  int32   `json:"target_deg"`
	DurationMs int32   `json:"duration_ms"`
	AfterStop  int     `json:"after_stop"`
	GearRatio  float64 `json:"gear_ratio"`
	Direction  int     `json:"direction"`

	PWMPin  int `json:"pwm_pin"`
	DirPin  int `json:"dir_pin"`
	EncPinA int `json:"enc_pin_a"`
	EncPinB int `json:"enc_pin_b"`
}

// LoadBenchConfig parses a JSON bench configuration and fills in
// defaults for anything left unset, the same shape as
// standalone/config.LoadConfig.
func LoadBenchConfig(jsonData []byte) (*BenchConfig, error) {
	var cfg BenchConfig
	if len(jsonData) > 0 {
		if err := json.Unmarshal(jsonData, &cfg); err != nil {
			return nil, err
		}
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *BenchConfig) {
	if cfg.Device == "" {
		cfg.Device = "/dev/ttyACM0"
	}
	if cfg.Baud == 0 {
		cfg.Baud = 250000
	}
	if cfg.Command == "" {
		cfg.Command = "servo_run"
	}
	if cfg.SpeedDeg == 0 {
		cfg.SpeedDeg = 500
	}
	if cfg.GearRatio == 0 {
		cfg.GearRatio = 1.0
	}
	if cfg.Direction == 0 {
		cfg.Direction = 1
	}
}
