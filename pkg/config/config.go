// Package config provides configuration loading and management for hsicube.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"hsicube/pkg/cube"
	"hsicube/pkg/vfs"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Display parameters for band and quick-look images
	Display struct {
		// Red, Green and Blue are the target wavelengths in nm for RGB composites
		Red   float64 `yaml:"red"`
		Green float64 `yaml:"green"`
		Blue  float64 `yaml:"blue"`

		// Stretch is the fraction of pixels cut at each end of the histogram
		Stretch float64 `yaml:"stretch"`

		// Format is the image format for exports: png or jpeg
		Format string `yaml:"format"`

		JPEGQuality int `yaml:"jpegQuality"`
	} `yaml:"display"`

	// Cube access parameters
	Cube struct {
		// AllowPartial opens cubes whose data file is shorter than declared
		AllowPartial bool `yaml:"allowPartial"`

		// ScanProgress shows a progress bar while scanning all bands
		ScanProgress bool `yaml:"scanProgress"`
	} `yaml:"cube"`

	// Remote file access
	Remote struct {
		TimeoutSeconds int `yaml:"timeoutSeconds"`

		// StagingDir receives local copies of remote cubes; empty uses the OS temp dir
		StagingDir string `yaml:"stagingDir"`
	} `yaml:"remote"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`

		// Workers is how many cubes are processed at once by batch commands
		Workers int `yaml:"workers"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Display.Red = cube.RedNM
	cfg.Display.Green = cube.GreenNM
	cfg.Display.Blue = cube.BlueNM
	cfg.Display.Stretch = 0
	cfg.Display.Format = "png"
	cfg.Display.JPEGQuality = 90

	cfg.Cube.AllowPartial = false
	cfg.Cube.ScanProgress = true

	cfg.Remote.TimeoutSeconds = 60

	cfg.Output.Verbose = false
	cfg.Output.Workers = runtime.NumCPU()

	return cfg
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.Display.Stretch < 0 || c.Display.Stretch >= 0.5 {
		return fmt.Errorf("display.stretch must be in [0, 0.5), got %v", c.Display.Stretch)
	}
	switch c.Display.Format {
	case "png", "jpeg":
	default:
		return fmt.Errorf("display.format must be png or jpeg, got %q", c.Display.Format)
	}
	if c.Display.JPEGQuality < 1 || c.Display.JPEGQuality > 100 {
		return fmt.Errorf("display.jpegQuality must be in [1, 100], got %d", c.Display.JPEGQuality)
	}
	if c.Output.Workers < 1 {
		return fmt.Errorf("output.workers must be positive, got %d", c.Output.Workers)
	}
	return nil
}

// Extension returns the file extension matching Display.Format.
func (c *Config) Extension() string {
	if c.Display.Format == "jpeg" {
		return ".jpg"
	}
	return ".png"
}

// VFSOptions converts the remote section for vfs.Configure.
func (c *Config) VFSOptions() vfs.Options {
	return vfs.Options{
		Timeout:    time.Duration(c.Remote.TimeoutSeconds) * time.Second,
		StagingDir: c.Remote.StagingDir,
	}
}

// CubeOptions returns the cube open options the configuration asks for.
func (c *Config) CubeOptions() []cube.Option {
	var opts []cube.Option
	if c.Cube.AllowPartial {
		opts = append(opts, cube.AllowPartial())
	}
	return opts
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
