// Copyright 2026 The go-cf591 Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cf591

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the file-based deployment configuration for host installations.
// Everything is optional; zero values fall back to the defaults New and
// Connect would use anyway.
type Config struct {
	// Transport is "serial" or "tcp".
	Transport string `yaml:"transport"`
	// Endpoint is a device path for serial, host:port for TCP.
	Endpoint string `yaml:"endpoint"`
	// Baud is the serial line rate. Ignored for TCP.
	Baud int `yaml:"baud"`
	// Power in dBm. Mutually exclusive with Range.
	Power *int `yaml:"power"`
	// Range is a semantic distance bucket name: proximity, near, medium,
	// far, maximum.
	Range string `yaml:"range"`
	// MaxPower caps accepted power levels for limited firmware.
	MaxPower *int `yaml:"max_power"`
	// Preset names a controller timing profile: trigger_read, conveyor,
	// inventory_sweep.
	Preset string `yaml:"preset"`
	// DebounceWindow overrides the preset's debounce window.
	DebounceWindow time.Duration `yaml:"debounce_window"`
	// PollTimeout overrides the preset's per-poll timeout.
	PollTimeout time.Duration `yaml:"poll_timeout"`
	// Retry overrides the default retry schedule.
	Retry *RetryConfigFile `yaml:"retry"`
}

// RetryConfigFile is the YAML form of RetryConfig.
type RetryConfigFile struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	BaseDelay      time.Duration `yaml:"base_delay"`
	MaxDelay       time.Duration `yaml:"max_delay"`
	Multiplier     float64       `yaml:"multiplier"`
	Jitter         float64       `yaml:"jitter"`
	OverallTimeout time.Duration `yaml:"overall_timeout"`
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field combinations that Unmarshal cannot.
func (c *Config) Validate() error {
	switch c.Transport {
	case "", "serial", "tcp":
	default:
		return fmt.Errorf("%w: unknown transport %q", ErrInvalidParameter, c.Transport)
	}
	if c.Power != nil && c.Range != "" {
		return fmt.Errorf("%w: power and range are mutually exclusive", ErrInvalidParameter)
	}
	if c.Range != "" {
		if _, err := ParseRangeBucket(c.Range); err != nil {
			return err
		}
	}
	if c.Preset != "" {
		if _, err := ParsePreset(c.Preset); err != nil {
			return err
		}
	}
	return nil
}

// Options translates the file config into Reader options.
func (c *Config) Options() ([]Option, error) {
	var opts []Option

	if c.Preset != "" {
		ctrl, err := ParsePreset(c.Preset)
		if err != nil {
			return nil, err
		}
		if c.PollTimeout > 0 {
			ctrl.PollTimeout = c.PollTimeout
		}
		if c.DebounceWindow > 0 {
			ctrl.DebounceWindow = c.DebounceWindow
		}
		opts = append(opts, WithControllerConfig(ctrl))
	} else {
		if c.PollTimeout > 0 {
			ctrl := DefaultControllerConfig()
			ctrl.PollTimeout = c.PollTimeout
			opts = append(opts, WithControllerConfig(ctrl))
		}
		if c.DebounceWindow > 0 {
			opts = append(opts, WithDebounceWindow(c.DebounceWindow))
		}
	}

	if c.MaxPower != nil {
		opts = append(opts, WithMaxPower(*c.MaxPower))
	}
	if c.Retry != nil {
		opts = append(opts, WithRetryConfig(&RetryConfig{
			MaxAttempts:    c.Retry.MaxAttempts,
			BaseDelay:      c.Retry.BaseDelay,
			MaxDelay:       c.Retry.MaxDelay,
			Multiplier:     c.Retry.Multiplier,
			Jitter:         c.Retry.Jitter,
			OverallTimeout: c.Retry.OverallTimeout,
		}))
	}
	return opts, nil
}

// ParseRangeBucket maps a config range name to its bucket.
func ParseRangeBucket(name string) (RangeBucket, error) {
	switch name {
	case "proximity":
		return RangeProximity, nil
	case "near":
		return RangeNear, nil
	case "medium":
		return RangeMedium, nil
	case "far":
		return RangeFar, nil
	case "maximum":
		return RangeMaximum, nil
	default:
		return 0, fmt.Errorf("%w: unknown range %q", ErrInvalidParameter, name)
	}
}

// ParsePreset maps a config preset name to its controller profile.
func ParsePreset(name string) (ControllerConfig, error) {
	switch name {
	case "trigger_read":
		return PresetTriggerRead(), nil
	case "conveyor":
		return PresetConveyor(), nil
	case "inventory_sweep":
		return PresetInventorySweep(), nil
	default:
		return ControllerConfig{}, fmt.Errorf("%w: unknown preset %q", ErrInvalidParameter, name)
	}
}
