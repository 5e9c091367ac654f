// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package config loads the daemon's settings from, in order of
// precedence, explicit CLI flags, environment variables, and finally
// hardcoded defaults, plus an optional tectonicdb.yaml/.json override
// file. It intentionally holds no process-wide globals: every value
// lives in a Config the caller constructs once and threads through to
// the server and workers explicitly.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"sigs.k8s.io/yaml"
)

// Config holds everything the daemon needs to run. Field names mirror
// the upstream Rust binary's settings so the env vars they're sourced
// from stay recognizable.
type Config struct {
	DTFFolder       string `json:"dtfFolder"`
	Host            string `json:"host"`
	Port            int    `json:"port"`
	Autoflush       bool   `json:"autoflush"`
	FlushIntervalMs int    `json:"flushIntervalMs"`
	HistGranularity int    `json:"histGranularity"`
	UploadInterval  int    `json:"uploadIntervalSeconds"`
	UploadMinSize   int64  `json:"uploadMinSizeBytes"`
}

// Default returns the hardcoded defaults, matching
// original_source/src/bin/server/main.rs's key_or_default calls.
func Default() Config {
	return Config{
		DTFFolder:       "db",
		Host:            "0.0.0.0",
		Port:            9001,
		Autoflush:       false,
		FlushIntervalMs: 1000,
		HistGranularity: 30,
		UploadInterval:  21600,
		UploadMinSize:   0,
	}
}

func envString(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not an integer: %w", key, v, err)
	}
	return n, nil
}

func envInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not an integer: %w", key, v, err)
	}
	return n, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s=%q is not a bool: %w", key, v, err)
	}
	return b, nil
}

// FromEnvironment reads TECTONICDB_* environment variables over top of
// Default (spec §4.7's precedence table).
func FromEnvironment() (Config, error) {
	c := Default()
	c.DTFFolder = envString("TECTONICDB_DTF_FOLDER", c.DTFFolder)
	c.Host = envString("TECTONICDB_HOST", c.Host)

	var err error
	if c.Port, err = envInt("TECTONICDB_PORT", c.Port); err != nil {
		return Config{}, err
	}
	if c.Autoflush, err = envBool("TECTONICDB_AUTOFLUSH", c.Autoflush); err != nil {
		return Config{}, err
	}
	if c.FlushIntervalMs, err = envInt("TECTONICDB_FLUSH_INTERVAL", c.FlushIntervalMs); err != nil {
		return Config{}, err
	}
	if c.HistGranularity, err = envInt("TECTONICDB_HIST_GRANULARITY", c.HistGranularity); err != nil {
		return Config{}, err
	}
	if c.UploadInterval, err = envInt("TECTONICDB_UPLOAD_INTERVAL", c.UploadInterval); err != nil {
		return Config{}, err
	}
	if c.UploadMinSize, err = envInt64("TECTONICDB_UPLOAD_MIN_SIZE", c.UploadMinSize); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadFile merges a YAML or JSON override file (sigs.k8s.io/yaml parses
// both) on top of base; fields absent from the file are left untouched.
// A missing file is not an error — the override is optional.
func LoadFile(path string, base Config) (Config, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return base, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	out := base
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return out, nil
}

// Overrides captures the CLI flags a caller may have set explicitly;
// nil fields fall through to the environment/file/default chain.
type Overrides struct {
	DTFFolder *string
	Host      *string
	Port      *int
	Autoflush *bool
}

// Load resolves a Config by layering, from lowest to highest
// precedence: hardcoded defaults, environment variables, an optional
// config file (configFile if given, else tectonicdb.yaml in the DTF
// folder that defaults and environment resolved to), then explicit CLI
// overrides.
func Load(configFile string, overrides Overrides) (Config, error) {
	c, err := FromEnvironment()
	if err != nil {
		return Config{}, err
	}
	if configFile != "" {
		c, err = LoadFile(configFile, c)
		if err != nil {
			return Config{}, err
		}
	} else {
		// spec §4.7: operators may check a config file into the DTF
		// folder instead of exporting env vars.
		c, err = LoadFile(filepath.Join(c.DTFFolder, "tectonicdb.yaml"), c)
		if err != nil {
			return Config{}, err
		}
	}

	if overrides.DTFFolder != nil {
		c.DTFFolder = *overrides.DTFFolder
	}
	if overrides.Host != nil {
		c.Host = *overrides.Host
	}
	if overrides.Port != nil {
		c.Port = *overrides.Port
	}
	if overrides.Autoflush != nil {
		c.Autoflush = *overrides.Autoflush
	}
	return c, nil
}

// Addr returns the host:port string the server should listen on.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
