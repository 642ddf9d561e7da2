// Copyright 2026 The gVisor Authors.
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

// Package config provides basic infrastructure to set configuration settings
// for threadstress. Each setting is a flag, and may also be given in a TOML
// file named by --config. Flags set on the command line take precedence over
// the file.
package config

import (
	"fmt"
	"time"

	"gvisor.dev/threading/pkg/log"
)

// Config holds configuration that is shared by all subcommands.
type Config struct {
	// LogFilename is the filename to log to, if not empty. %COMMAND% and
	// %PID% are replaced with the subcommand name and the process ID.
	LogFilename string `flag:"log" toml:"log"`

	// LogFormat is the log format.
	LogFormat string `flag:"log-format" toml:"log-format"`

	// Debug indicates that debug logging should be enabled.
	Debug bool `flag:"debug" toml:"debug"`

	// AlsoLogToStderr allows sending log messages to stderr.
	AlsoLogToStderr bool `flag:"alsologtostderr" toml:"alsologtostderr"`

	// Goroutines is the default number of goroutines each scenario races.
	Goroutines int `flag:"goroutines" toml:"goroutines"`

	// Iterations is the default number of lock/unlock cycles each goroutine
	// runs in the lazy mutex scenario.
	Iterations int `flag:"iterations" toml:"iterations"`

	// InitDelay is how long the run-once initializer sleeps, to widen the
	// window in which other goroutines must wait for it.
	InitDelay time.Duration `flag:"init-delay" toml:"init-delay"`

	// Timeout bounds each scenario.
	Timeout time.Duration `flag:"timeout" toml:"timeout"`
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.LogFormat {
	case "text", "json", "json-k8s":
	default:
		return fmt.Errorf("invalid log format %q, must be 'text', 'json', or 'json-k8s'", c.LogFormat)
	}
	if c.Goroutines <= 0 {
		return fmt.Errorf("goroutines must be positive, got %d", c.Goroutines)
	}
	if c.Iterations <= 0 {
		return fmt.Errorf("iterations must be positive, got %d", c.Iterations)
	}
	if c.InitDelay < 0 {
		return fmt.Errorf("init-delay must not be negative, got %v", c.InitDelay)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	return nil
}

// Log logs important aspects of the configuration to the given log function.
func (c *Config) Log() {
	log.Infof("Config.LogFormat: %s", c.LogFormat)
	log.Infof("Config.Debug: %t", c.Debug)
	log.Infof("Config.Goroutines: %d", c.Goroutines)
	log.Infof("Config.Iterations: %d", c.Iterations)
	log.Infof("Config.InitDelay: %v", c.InitDelay)
	log.Infof("Config.Timeout: %v", c.Timeout)
}
