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

type MQTT struct {
	Broker   string `toml:"broker,omitempty" validate:"required_if=Enabled true"`
	Topic    string `toml:"topic,omitempty"`
	ClientID string `toml:"client_id,omitempty"`
	Enabled  bool   `toml:"enabled"`
}

type Metrics struct {
	Listen       string `toml:"listen,omitempty" validate:"omitempty,hostname_port"`
	InstanceName string `toml:"instance_name,omitempty"`
	Advertise    bool   `toml:"advertise"`
}

// ErrorReporting sends error level log events to a Sentry project. It is
// off unless a DSN is set.
type ErrorReporting struct {
	DSN         string `toml:"dsn,omitempty" validate:"omitempty,url"`
	Environment string `toml:"environment,omitempty"`
}

func (c *Instance) MQTTEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.MQTT.Enabled
}

func (c *Instance) MQTTBroker() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.MQTT.Broker
}

// MQTTTopic is the prefix for the state and events topics.
func (c *Instance) MQTTTopic() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.MQTT.Topic
}

func (c *Instance) MQTTClientID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.MQTT.ClientID
}

func (c *Instance) SetMQTT(broker, topic string, enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.MQTT.Broker = broker
	c.vals.MQTT.Topic = topic
	c.vals.MQTT.Enabled = enabled
}

func (c *Instance) MetricsListen() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Metrics.Listen
}

func (c *Instance) SetMetricsListen(addr string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Metrics.Listen = addr
}

// MetricsAdvertise reports whether the status server is announced over
// mDNS.
func (c *Instance) MetricsAdvertise() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Metrics.Advertise
}

func (c *Instance) MetricsInstanceName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Metrics.InstanceName
}

func (c *Instance) ErrorReportingDSN() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.ErrorReporting.DSN
}

func (c *Instance) ErrorReportingEnvironment() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.ErrorReporting.Environment
}
