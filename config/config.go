// Package config provides configuration loading and access for the particle viewer.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all viewer configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Camera    CameraConfig    `yaml:"camera"`
	Particles ParticlesConfig `yaml:"particles"`
	Render    RenderConfig    `yaml:"render"`
	Export    ExportConfig    `yaml:"export"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	TargetFPS     int     `yaml:"target_fps"`
	MaxPixelRatio float64 `yaml:"max_pixel_ratio"` // Upper bound for the device pixel scale
}

// CameraConfig holds the perspective camera setup.
type CameraConfig struct {
	FOV         float64 `yaml:"fov"` // Vertical field of view in degrees
	Near        float64 `yaml:"near"`
	Far         float64 `yaml:"far"`
	Distance    float64 `yaml:"distance"` // Distance from the origin along +Z
	MinDistance float64 `yaml:"min_distance"`
	MaxDistance float64 `yaml:"max_distance"`
	ZoomStep    float64 `yaml:"zoom_step"` // Distance multiplier per wheel notch
}

// ParticlesConfig holds the initial particle parameters and hard limits.
type ParticlesConfig struct {
	Count      int     `yaml:"count"`
	Size       float64 `yaml:"size"`
	Color      string  `yaml:"color"`
	Speed      float64 `yaml:"speed"`
	Radius     float64 `yaml:"radius"`
	Randomness float64 `yaml:"randomness"`
	MaxCount   int     `yaml:"max_count"` // Largest buffer the field will allocate
}

// RenderConfig holds point renderer parameters.
type RenderConfig struct {
	Background        string `yaml:"background"`
	GPU               bool   `yaml:"gpu"`                // Run the motion stage in a vertex shader
	SpriteSize        int    `yaml:"sprite_size"`        // Sprite texture edge in pixels
	ParallelThreshold int    `yaml:"parallel_threshold"` // Below this, evaluate on one goroutine
	Workers           int    `yaml:"workers"`            // 0 = GOMAXPROCS
}

// ExportConfig holds video and config export parameters.
type ExportConfig struct {
	Dir         string `yaml:"dir"`
	Name        string `yaml:"name"`
	ConfigFile  string `yaml:"config_file"`
	FPS         int    `yaml:"fps"`
	FrameBudget int    `yaml:"frame_budget"` // Recording stops after this many frames
	Width       int    `yaml:"width"`        // Exported frame width (0 = native)
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	PerfWindow  int     `yaml:"perf_window"`
	LogInterval float64 `yaml:"log_interval"` // Seconds between perf log lines
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	ScreenW32   float32 // Screen.Width as float32
	ScreenH32   float32 // Screen.Height as float32
	Aspect      float32 // Screen width / height
	FrameDT     float64 // Seconds per frame at the target rate
	ExportDT    float64 // Seconds per recorded frame
	ExportDelay int     // GIF frame delay in 1/100 s
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// validate rejects settings the viewer cannot run with.
func (c *Config) validate() error {
	if c.Screen.Width <= 0 || c.Screen.Height <= 0 {
		return fmt.Errorf("screen size must be positive, got %dx%d", c.Screen.Width, c.Screen.Height)
	}
	if c.Camera.Near <= 0 || c.Camera.Far <= c.Camera.Near {
		return fmt.Errorf("camera clip range invalid: near=%v far=%v", c.Camera.Near, c.Camera.Far)
	}
	if c.Particles.MaxCount <= 0 {
		return fmt.Errorf("particles.max_count must be positive, got %d", c.Particles.MaxCount)
	}
	if c.Export.FPS <= 0 {
		return fmt.Errorf("export.fps must be positive, got %d", c.Export.FPS)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.ScreenW32 = float32(c.Screen.Width)
	c.Derived.ScreenH32 = float32(c.Screen.Height)
	c.Derived.Aspect = c.Derived.ScreenW32 / c.Derived.ScreenH32

	fps := c.Screen.TargetFPS
	if fps <= 0 {
		fps = 60
	}
	c.Derived.FrameDT = 1.0 / float64(fps)
	c.Derived.ExportDT = 1.0 / float64(c.Export.FPS)

	// GIF delays are whole hundredths; 60fps rounds to 2
	delay := int(100.0/float64(c.Export.FPS) + 0.5)
	if delay < 1 {
		delay = 1
	}
	c.Derived.ExportDelay = delay

	if c.Screen.MaxPixelRatio <= 0 {
		c.Screen.MaxPixelRatio = 1
	}
	if c.Camera.ZoomStep <= 1 {
		c.Camera.ZoomStep = 1.1
	}
	if c.Export.FrameBudget <= 0 {
		c.Export.FrameBudget = 300
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
