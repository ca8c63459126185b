package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/rigsim/internal/control"
	"github.com/san-kum/rigsim/internal/drive"
	"github.com/san-kum/rigsim/internal/geom"
	"github.com/san-kum/rigsim/internal/logging"
	"github.com/san-kum/rigsim/internal/orient"
)

const (
	DefaultDt             = 1.0 / 60
	DefaultDuration       = 10.0
	DefaultMeshResolution = 48
	DefaultStability      = 1e4
	DefaultKp             = 4.0
	DefaultKi             = 0.1
	DefaultKd             = 0.2
)

type Config struct {
	Source   string          `yaml:"source"`
	Dt       float64         `yaml:"dt"`
	Duration float64         `yaml:"duration"`
	Ports    PortsConfig     `yaml:"ports"`
	Drive    drive.Constants `yaml:"drive"`
	Orient   OrientConfig    `yaml:"orient"`
	Log      logging.Config  `yaml:"log"`
	Mesh     MeshConfig      `yaml:"mesh"`
	Hold     HoldConfig      `yaml:"hold"`
	Metrics  MetricsConfig   `yaml:"metrics"`
}

type PortsConfig struct {
	PWM int `yaml:"pwm"`
	CAN int `yaml:"can"`
}

type OrientConfig struct {
	Origin geom.Vec3 `yaml:"origin"`
}

type MeshConfig struct {
	// Resolution is the marching cubes cell count along the longest side.
	Resolution int `yaml:"resolution"`
}

// HoldConfig tunes the position-holding source.
type HoldConfig struct {
	Node   string  `yaml:"node"`
	Port   int     `yaml:"port"`
	Kp     float64 `yaml:"kp"`
	Ki     float64 `yaml:"ki"`
	Kd     float64 `yaml:"kd"`
	Target float64 `yaml:"target"`
}

type MetricsConfig struct {
	StabilityThreshold float64 `yaml:"stability_threshold"`
}

func DefaultConfig() *Config {
	return &Config{
		Source:   "none",
		Dt:       DefaultDt,
		Duration: DefaultDuration,
		Ports: PortsConfig{
			PWM: drive.DefaultPWMPorts,
			CAN: drive.DefaultCANPorts,
		},
		Drive:  drive.DefaultConstants(),
		Orient: OrientConfig{Origin: orient.DefaultOrigin},
		Log: logging.Config{
			Level:  "info",
			Format: "text",
		},
		Mesh: MeshConfig{Resolution: DefaultMeshResolution},
		Hold: HoldConfig{
			Kp: DefaultKp,
			Ki: DefaultKi,
			Kd: DefaultKd,
		},
		Metrics: MetricsConfig{StabilityThreshold: DefaultStability},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %v", c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %v", c.Duration)
	}
	if c.Ports.PWM <= 0 || c.Ports.CAN <= 0 {
		return fmt.Errorf("port counts must be positive, got pwm=%d can=%d", c.Ports.PWM, c.Ports.CAN)
	}
	if c.Hold.Port < 0 || c.Hold.Port >= c.Ports.PWM {
		return fmt.Errorf("hold port %d outside [0,%d)", c.Hold.Port, c.Ports.PWM)
	}
	if c.Mesh.Resolution < 4 {
		return fmt.Errorf("mesh resolution must be at least 4, got %d", c.Mesh.Resolution)
	}
	if !c.Orient.Origin.IsValid() {
		return fmt.Errorf("orient origin %v is not finite", c.Orient.Origin)
	}
	if err := c.Drive.Validate(); err != nil {
		return err
	}
	return nil
}

// Logger builds the configured logger. LOG_LEVEL and LOG_FORMAT override
// the file.
func (c *Config) Logger() logging.Logger {
	lc := c.Log
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		lc.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		lc.Format = v
	}
	return logging.New(lc)
}

// ControllerParams maps the hold settings onto registry values.
func (c *Config) ControllerParams(measure control.Measurement) control.Params {
	return control.Params{
		PWMPorts: c.Ports.PWM,
		CANPorts: c.Ports.CAN,
		Measure:  measure,
		Values: map[string]float64{
			"port":   float64(c.Hold.Port),
			"kp":     c.Hold.Kp,
			"ki":     c.Hold.Ki,
			"kd":     c.Hold.Kd,
			"target": c.Hold.Target,
		},
	}
}

// DriveOptions are the controller options implied by the port settings.
func (c *Config) DriveOptions() []drive.Option {
	return []drive.Option{drive.WithPorts(c.Ports.PWM, c.Ports.CAN)}
}
