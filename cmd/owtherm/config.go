// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the YAML configuration of the poller.
type Config struct {
	Bus  BusConfig  `yaml:"bus"`
	Poll PollConfig `yaml:"poll"`
	Mqtt MqttConfig `yaml:"mqtt"`
}

// BusConfig locates the ds248x bridge.
type BusConfig struct {
	// I2C is the I²C bus name or number; empty selects the first available
	// bus.
	I2C string `yaml:"i2c"`
	// Addr is the bridge's I²C address (0x18, 0x19, 0x20 or 0x21).
	Addr uint16 `yaml:"addr"`
	// Channel selects a 1-wire channel on a DS2482-800; ignored on other
	// chips.
	Channel *int `yaml:"channel"`
	// PassivePullup disables the bridge's active pull-up.
	PassivePullup bool `yaml:"passive_pullup"`
}

// PollConfig shapes the poll cycle.
type PollConfig struct {
	IntervalMs int `yaml:"interval_ms"`
	// ResolutionBits, when non-zero, is written to every DS18B20 found at
	// the start of each cycle. Valid values are 9 to 12.
	ResolutionBits int `yaml:"resolution_bits"`
}

// Interval returns the poll interval as a duration.
func (p PollConfig) Interval() time.Duration {
	return time.Duration(p.IntervalMs) * time.Millisecond
}

// MqttConfig describes an optional MQTT broker to publish readings to. An
// empty Host disables publishing.
type MqttConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"`
}

func loadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		Bus:  BusConfig{Addr: 0x18},
		Poll: PollConfig{IntervalMs: 5000},
		Mqtt: MqttConfig{Port: 1883, Topic: "owtherm"},
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.Bus.Addr {
	case 0x18, 0x19, 0x20, 0x21:
	default:
		return fmt.Errorf("bus.addr %#x is not a ds248x address", cfg.Bus.Addr)
	}
	if cfg.Poll.IntervalMs <= 0 {
		return fmt.Errorf("poll.interval_ms must be positive, got %d", cfg.Poll.IntervalMs)
	}
	if r := cfg.Poll.ResolutionBits; r != 0 && (r < 9 || r > 12) {
		return fmt.Errorf("poll.resolution_bits must be 9..12 or 0, got %d", r)
	}
	return nil
}
