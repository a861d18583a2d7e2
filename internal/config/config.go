// Package config loads analysis defaults from an optional TOML file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds the tunable analysis parameters shared by the CLI tools.
type Config struct {
	SinkThresholdNm2 float64 `toml:"sink_threshold_nm2"`
	MatchToleranceNm float64 `toml:"match_tolerance_nm"`
	CalibrationScale float64 `toml:"calibration_scale"` // nm per pixel
	FluencePerNm2    float64 `toml:"fluence_per_nm2"`
}

// Default returns the built-in analysis parameters.
func Default() Config {
	return Config{
		SinkThresholdNm2: 4.0,
		MatchToleranceNm: 3.0,
		CalibrationScale: 1.0,
	}
}

// Load reads a TOML config file, applying defaults for any key the file
// omits. A missing file is not an error: the defaults apply unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.SinkThresholdNm2 < 0 {
		return fmt.Errorf("sink_threshold_nm2 must be >= 0, got %g", c.SinkThresholdNm2)
	}
	if c.MatchToleranceNm <= 0 {
		return fmt.Errorf("match_tolerance_nm must be > 0, got %g", c.MatchToleranceNm)
	}
	if c.CalibrationScale <= 0 {
		return fmt.Errorf("calibration_scale must be > 0, got %g", c.CalibrationScale)
	}
	if c.FluencePerNm2 < 0 {
		return fmt.Errorf("fluence_per_nm2 must be >= 0, got %g", c.FluencePerNm2)
	}
	return nil
}
