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
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "claire"

// Metrics are the session's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	commands        *prometheus.CounterVec
	interventions   *prometheus.CounterVec
	requestDuration prometheus.Histogram
	timeouts        prometheus.Counter
	malformed       prometheus.Counter
	lines           prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg, if given.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "commands_sent_total",
			Help:      "Commands written to the device, by kind.",
		}, []string{"kind"}),
		interventions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "watchdog_interventions_total",
			Help:      "Outflow pumps stopped by the underflow watchdog, by tube.",
		}, []string{"tube"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "state_request_duration_seconds",
			Help:      "Time from writing a state request to receiving the record.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "communication_timeouts_total",
			Help:      "Requests that got no answer in time.",
		}),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "malformed_responses_total",
			Help:      "State responses that could not be decoded.",
		}),
		lines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "lines_received_total",
			Help:      "Lines received from the device.",
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{
			m.commands, m.interventions, m.requestDuration, m.timeouts, m.malformed, m.lines,
		} {
			if err := reg.Register(c); err != nil {
				return nil, fmt.Errorf("failed to register metric: %w", err)
			}
		}
	}

	return m, nil
}

func (m *Metrics) commandSent(kind string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(kind).Inc()
}

func (m *Metrics) intervention(tube int) {
	if m == nil {
		return
	}
	m.interventions.WithLabelValues(strconv.Itoa(tube)).Inc()
}

func (m *Metrics) observeRequest(d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.Observe(d.Seconds())
}

func (m *Metrics) timeout() {
	if m == nil {
		return
	}
	m.timeouts.Inc()
}

func (m *Metrics) malformedResponse() {
	if m == nil {
		return
	}
	m.malformed.Inc()
}

func (m *Metrics) lineReceived() {
	if m == nil {
		return
	}
	m.lines.Inc()
}
