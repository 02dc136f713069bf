// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the main configuration structure
type Config struct {
	Environment string         `yaml:"environment" json:"environment"`
	Chat        *ChatConfig    `yaml:"chat" json:"chat"`
	Store       *StoreConfig   `yaml:"store" json:"store"`
	Reaper      *ReaperConfig  `yaml:"reaper" json:"reaper"`
	Pending     *PendingConfig `yaml:"pending" json:"pending"`
	Logging     *LoggingConfig `yaml:"logging" json:"logging"`
	Metrics     *MetricsConfig `yaml:"metrics" json:"metrics"`
	Health      *HealthConfig  `yaml:"health" json:"health"`
}

// ChatConfig selects the AlgorithmPolicy mode and its default algorithms.
type ChatConfig struct {
	// Mode is "p2p" or "server".
	Mode string `yaml:"mode" json:"mode"`
	// KEM, Symmetric and Signature name the default AlgorithmTriple used
	// when initiating a chat (P2P) or the organization-cached triple
	// (server mode).
	KEM       string `yaml:"kem" json:"kem"`
	Symmetric string `yaml:"symmetric" json:"symmetric"`
	Signature string `yaml:"signature" json:"signature"`
}

// StoreConfig configures the file-backed ChatStore.
type StoreConfig struct {
	Directory string `yaml:"directory" json:"directory"`
}

// ReaperConfig configures the StaleReaper's cadence and thresholds.
type ReaperConfig struct {
	Interval      time.Duration `yaml:"interval" json:"interval"`
	MaxChatAge    time.Duration `yaml:"max_chat_age" json:"max_chat_age"`
	MaxPendingAge time.Duration `yaml:"max_pending_age" json:"max_pending_age"`
}

// PendingConfig is reserved for future pending-secret tuning; it exists
// today only so operators can address the section in config files even
// though PendingSecretTable currently takes no construction parameters
// beyond what ReaperConfig.MaxPendingAge already governs.
type PendingConfig struct{}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" json:"level"`
	Format   string `yaml:"format" json:"format"`
	Output   string `yaml:"output" json:"output"`
	FilePath string `yaml:"file_path" json:"file_path"`
}

// MetricsConfig represents metrics configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

// HealthConfig represents health check configuration
type HealthConfig struct {
	Enabled bool     `yaml:"enabled" json:"enabled"`
	Port    int      `yaml:"port" json:"port"`
	Path    string   `yaml:"path" json:"path"`
	Checks  []string `yaml:"checks" json:"checks"`
}

// LoadFromFile loads configuration from a file
func LoadFromFile(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}

	// Try to parse as YAML first
	if err := yaml.Unmarshal(data, cfg); err != nil {
		// Try JSON if YAML fails
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file (tried YAML and JSON): %w", err)
		}
	}

	// Set defaults
	setDefaults(cfg)

	return cfg, nil
}

// SaveToFile saves configuration to a file
func SaveToFile(cfg *Config, path string) error {
	// Determine format by extension
	var data []byte
	var err error

	if path[len(path)-5:] == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setDefaults sets default values for configuration, allocating any
// section left nil by the config file (or absent entirely) so callers
// never have to nil-check before reading a field.
func setDefaults(cfg *Config) {
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.Chat == nil {
		cfg.Chat = &ChatConfig{}
	}
	if cfg.Chat.Mode == "" {
		cfg.Chat.Mode = "p2p"
	}
	if cfg.Chat.KEM == "" {
		cfg.Chat.KEM = "Kyber768"
	}
	if cfg.Chat.Symmetric == "" {
		cfg.Chat.Symmetric = "AES-256"
	}
	if cfg.Chat.Signature == "" {
		cfg.Chat.Signature = "Dilithium3"
	}

	if cfg.Store == nil {
		cfg.Store = &StoreConfig{}
	}
	if cfg.Store.Directory == "" {
		cfg.Store.Directory = ".yumsg/chats"
	}

	if cfg.Reaper == nil {
		cfg.Reaper = &ReaperConfig{}
	}
	if cfg.Reaper.Interval == 0 {
		cfg.Reaper.Interval = 60 * time.Second
	}
	if cfg.Reaper.MaxChatAge == 0 {
		cfg.Reaper.MaxChatAge = 30 * time.Minute
	}
	if cfg.Reaper.MaxPendingAge == 0 {
		cfg.Reaper.MaxPendingAge = 5 * time.Minute
	}

	if cfg.Pending == nil {
		cfg.Pending = &PendingConfig{}
	}

	if cfg.Logging == nil {
		cfg.Logging = &LoggingConfig{}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Metrics == nil {
		cfg.Metrics = &MetricsConfig{}
	}
	if cfg.Health == nil {
		cfg.Health = &HealthConfig{}
	}
}
