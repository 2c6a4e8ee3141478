// Package config provides configuration loading and management for foodvolume.
// It handles loading configuration from YAML files and provides the calibrated
// default values for the estimation algorithm.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML.
//
// The camera and calibration sections hold the physical constants the
// estimator depends on. They are empirically tuned placeholders for a given
// device class; calibration work edits these fields, never the algorithm.
type Config struct {
	// Camera holds the nominal capture geometry
	Camera struct {
		// FOVDegrees is the horizontal field of view of the capturing camera
		FOVDegrees float64 `yaml:"fovDegrees" validate:"gt=0,lt=180"`

		// SubjectDistanceMm is the assumed distance from camera to food in mm.
		// A fixed device-typical value, not a per-shot measurement.
		SubjectDistanceMm float64 `yaml:"subjectDistanceMm" validate:"gt=0"`
	} `yaml:"camera"`

	// Calibration holds the empirical constants of the volume estimator
	Calibration struct {
		// MaskThreshold is the intensity above which a mask pixel counts
		// as inside the food region
		MaskThreshold uint8 `yaml:"maskThreshold"`

		// HeightSpanMm maps the full normalized depth range (0-255) to an
		// assumed real-world depth span in mm
		HeightSpanMm float64 `yaml:"heightSpanMm" validate:"gt=0"`

		// HeightDamping scales the converted height down to compensate for
		// the coarse depth field
		HeightDamping float64 `yaml:"heightDamping" validate:"gt=0,lte=1"`

		// CorrectionFactor multiplies the final volume to compensate for
		// systematic overestimation
		CorrectionFactor float64 `yaml:"correctionFactor" validate:"gt=0,lte=1"`

		// MinVolumeCm3 is the floor applied to every successful estimate
		MinVolumeCm3 float64 `yaml:"minVolumeCm3" validate:"gt=0"`

		// ReferencePercentile selects the reference-plane depth among the
		// inside pixels. 1.0 means the exact maximum (the plate behind the
		// food); lower values give a more outlier-tolerant plane.
		ReferencePercentile float64 `yaml:"referencePercentile" validate:"gt=0,lte=1"`
	} `yaml:"calibration"`

	// Sampling controls depth-map resampling
	Sampling struct {
		// Filter is the resampling filter used when the depth map resolution
		// differs from the mask: "nearest" or "linear"
		Filter string `yaml:"filter" validate:"oneof=nearest linear"`
	} `yaml:"sampling"`

	// Pipeline controls per-frame processing
	Pipeline struct {
		// NumWorkers bounds how many detections are estimated concurrently
		NumWorkers int `yaml:"numWorkers" validate:"gt=0"`
	} `yaml:"pipeline"`

	// Logging controls log output
	Logging struct {
		// Level is the minimum logrus level: debug, info, warn or error
		Level string `yaml:"level" validate:"oneof=debug info warn error"`

		// File, when set, enables rotated file logging next to stderr
		File string `yaml:"file"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with the calibrated default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	// Nominal geometry for a phone-class camera at tabletop distance
	cfg.Camera.FOVDegrees = 60.0
	cfg.Camera.SubjectDistanceMm = 300.0

	cfg.Calibration.MaskThreshold = 128
	cfg.Calibration.HeightSpanMm = 150.0
	cfg.Calibration.HeightDamping = 0.5
	cfg.Calibration.CorrectionFactor = 0.85
	cfg.Calibration.MinVolumeCm3 = 1.0
	cfg.Calibration.ReferencePercentile = 1.0

	cfg.Sampling.Filter = "nearest"

	cfg.Pipeline.NumWorkers = runtime.NumCPU()

	cfg.Logging.Level = "info"
	cfg.Logging.File = ""

	return cfg
}

// Validate checks the configuration against its field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path.
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
