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

package device

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Defaults matching the rig firmware.
const (
	DefaultExpectedVersion      = "v0.1.13"
	DefaultCommunicationTimeout = 10 * time.Second
	DefaultPollInterval         = 100 * time.Millisecond
	DefaultWatchdogInterval     = 5 * time.Second
	DefaultHandshakeTimeout     = 30 * time.Second
)

// Transport is the line-oriented link to the device. ReadLines must return
// within a short read timeout even when nothing arrived.
type Transport interface {
	Write(p []byte) (int, error)
	ReadLines() ([]string, error)
	Close() error
}

// LineObserver is called by the reader task for every received line.
type LineObserver func(index int, line string)

// Options configures a Session. Zero values fall back to the defaults above.
type Options struct {
	Clock                clockwork.Clock
	Events               chan<- Event
	Metrics              *Metrics
	LineObserver         LineObserver
	ExpectedVersion      string
	CommunicationTimeout time.Duration
	PollInterval         time.Duration
	WatchdogInterval     time.Duration
	HandshakeTimeout     time.Duration
	// UnderflowThresholdMM is the level below which the watchdog stops a
	// draining tube. Zero means MaxLevel.
	UnderflowThresholdMM float64
	EchoLines            bool
	DisableWatchdog      bool
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.ExpectedVersion == "" {
		o.ExpectedVersion = DefaultExpectedVersion
	}
	if o.CommunicationTimeout <= 0 {
		o.CommunicationTimeout = DefaultCommunicationTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.WatchdogInterval <= 0 {
		o.WatchdogInterval = DefaultWatchdogInterval
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if o.UnderflowThresholdMM <= 0 {
		o.UnderflowThresholdMM = MaxLevel
	}
	return o
}
