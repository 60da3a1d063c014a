// Claire Driver
// Copyright (c) 2026 The Claire Driver Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Claire Driver.
//
// Claire Driver is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Claire Driver is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Claire Driver.  If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"time"

	"github.com/rs/zerolog/log"
)

type Device struct {
	Port            string `toml:"port,omitempty"`
	ExpectedVersion string `toml:"expected_version" validate:"required"`
	BaudRate        int    `toml:"baud_rate" validate:"gte=0"`
	OpenRetries     int    `toml:"open_retries" validate:"gte=0,lte=100"`
	EchoLines       bool   `toml:"echo_lines"`
}

// Timing values are Go duration strings such as "10s" or "100ms".
type Timing struct {
	CommunicationTimeout string `toml:"communication_timeout" validate:"duration"`
	PollInterval         string `toml:"poll_interval" validate:"duration"`
	WatchdogInterval     string `toml:"watchdog_interval" validate:"duration"`
	HandshakeTimeout     string `toml:"handshake_timeout" validate:"duration"`
}

type Watchdog struct {
	UnderflowThresholdMM float64 `toml:"underflow_threshold_mm" validate:"gte=0,lte=900"`
	Enabled              bool    `toml:"enabled"`
}

func (c *Instance) DevicePort() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Device.Port
}

func (c *Instance) SetDevicePort(port string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Device.Port = port
}

func (c *Instance) ExpectedVersion() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Device.ExpectedVersion
}

func (c *Instance) BaudRate() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Device.BaudRate
}

func (c *Instance) OpenRetries() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Device.OpenRetries
}

func (c *Instance) EchoLines() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Device.EchoLines
}

func (c *Instance) SetEchoLines(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Device.EchoLines = enabled
}

// parseDuration returns zero for an empty or invalid value so callers fall
// back to their own default. Invalid values are rejected on Load, this only
// guards values set in code.
func parseDuration(name, val string) time.Duration {
	if val == "" {
		return 0
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		log.Warn().Err(err).Str("key", name).Str("value", val).Msg("invalid duration, using default")
		return 0
	}
	return d
}

func (c *Instance) CommunicationTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration("communication_timeout", c.vals.Timing.CommunicationTimeout)
}

func (c *Instance) PollInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration("poll_interval", c.vals.Timing.PollInterval)
}

func (c *Instance) WatchdogInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration("watchdog_interval", c.vals.Timing.WatchdogInterval)
}

func (c *Instance) HandshakeTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration("handshake_timeout", c.vals.Timing.HandshakeTimeout)
}

func (c *Instance) WatchdogEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Watchdog.Enabled
}

func (c *Instance) UnderflowThresholdMM() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Watchdog.UnderflowThresholdMM
}
