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

// Package device manages a live session with a Claire water-tank rig: the
// background line reader, the serialized request/response cycle, the state
// cache and the underflow watchdog.
package device

import (
	"fmt"
	"math"
	"time"

	"github.com/claire-rig/claire-driver/pkg/protocol"
)

const (
	// MaxLevel is the sonar distance of an empty tube in mm.
	MaxLevel = 900
	// FaultDistance is what the firmware reports when a sonar reading failed.
	FaultDistance = -1
	// MaxDuty is the highest pump duty in percent.
	MaxDuty = 100
)

// ConvertDistanceToLevel turns a sonar distance into a water level.
func ConvertDistanceToLevel(distance float64) (float64, error) {
	if distance < 0 || math.IsNaN(distance) || math.IsInf(distance, 0) {
		return 0, fmt.Errorf("%w: distance %v", ErrSensorFault, distance)
	}
	return MaxLevel - distance, nil
}

// ConvertLevelToDistance turns a water level into the sonar distance the
// firmware regulates on.
func ConvertLevelToDistance(level float64) float64 {
	return MaxLevel - level
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// DeviceState is one decoded state record. Snapshots are values; the session
// replaces its cached copy on every successful poll.
type DeviceState struct {
	CapturedAt        time.Time `json:"captured_at"`
	Tube1DistanceMM   float64   `json:"tube1_distance_mm"`
	Tube2DistanceMM   float64   `json:"tube2_distance_mm"`
	Tube1InflowDuty   int       `json:"tube1_inflow_duty"`
	Tube1OutflowDuty  int       `json:"tube1_outflow_duty"`
	Tube2InflowDuty   int       `json:"tube2_inflow_duty"`
	Tube2OutflowDuty  int       `json:"tube2_outflow_duty"`
	StreamInflowDuty  int       `json:"stream_inflow_duty"`
	StreamOutflowDuty int       `json:"stream_outflow_duty"`
	Dynamic           bool      `json:"dynamic"`
}

var dutyKeys = []string{
	protocol.KeyTube1Inflow,
	protocol.KeyTube1Outflow,
	protocol.KeyTube2Inflow,
	protocol.KeyTube2Outflow,
	protocol.KeyStreamInflow,
	protocol.KeyStreamOutflow,
}

var requiredKeys = []string{
	protocol.KeyTube1Distance,
	protocol.KeyTube2Distance,
	protocol.KeyTube1Inflow,
	protocol.KeyTube1Outflow,
	protocol.KeyTube2Inflow,
	protocol.KeyTube2Outflow,
	protocol.KeyStreamInflow,
	protocol.KeyStreamOutflow,
}

// NewDeviceState builds a snapshot from a telemetry record.
func NewDeviceState(rec protocol.Record, capturedAt time.Time) (DeviceState, error) {
	for _, k := range requiredKeys {
		if _, ok := rec[k]; !ok {
			return DeviceState{}, fmt.Errorf("%w: missing field %s", ErrMalformedState, k)
		}
	}

	for _, k := range dutyKeys {
		if v := rec[k]; math.IsNaN(v) || v < 0 || v > MaxDuty {
			return DeviceState{}, fmt.Errorf("%w: %s duty %v outside 0-%d", ErrMalformedState, k, v, MaxDuty)
		}
	}
	for _, k := range []string{protocol.KeyTube1Distance, protocol.KeyTube2Distance} {
		if v := rec[k]; math.IsNaN(v) || math.IsInf(v, 0) {
			return DeviceState{}, fmt.Errorf("%w: %s is not a number", ErrMalformedState, k)
		}
	}

	duty := func(k string) int { return int(math.Round(rec[k])) }

	s := DeviceState{
		CapturedAt:        capturedAt,
		Tube1DistanceMM:   rec[protocol.KeyTube1Distance],
		Tube2DistanceMM:   rec[protocol.KeyTube2Distance],
		Tube1InflowDuty:   duty(protocol.KeyTube1Inflow),
		Tube1OutflowDuty:  duty(protocol.KeyTube1Outflow),
		Tube2InflowDuty:   duty(protocol.KeyTube2Inflow),
		Tube2OutflowDuty:  duty(protocol.KeyTube2Outflow),
		StreamInflowDuty:  duty(protocol.KeyStreamInflow),
		StreamOutflowDuty: duty(protocol.KeyStreamOutflow),
	}
	s.Dynamic = s.anyPumpRunning()
	return s, nil
}

// Record renders the snapshot back into firmware field names.
func (s DeviceState) Record() protocol.Record {
	return protocol.Record{
		protocol.KeyTube1Distance: s.Tube1DistanceMM,
		protocol.KeyTube2Distance: s.Tube2DistanceMM,
		protocol.KeyTube1Inflow:   float64(s.Tube1InflowDuty),
		protocol.KeyTube1Outflow:  float64(s.Tube1OutflowDuty),
		protocol.KeyTube2Inflow:   float64(s.Tube2InflowDuty),
		protocol.KeyTube2Outflow:  float64(s.Tube2OutflowDuty),
		protocol.KeyStreamInflow:  float64(s.StreamInflowDuty),
		protocol.KeyStreamOutflow: float64(s.StreamOutflowDuty),
	}
}

func (s DeviceState) anyPumpRunning() bool {
	return s.Tube1InflowDuty != 0 || s.Tube1OutflowDuty != 0 ||
		s.Tube2InflowDuty != 0 || s.Tube2OutflowDuty != 0 ||
		s.StreamInflowDuty != 0 || s.StreamOutflowDuty != 0
}

// Distance returns the raw sonar distance of tube.
func (s DeviceState) Distance(tube protocol.Tube) float64 {
	if tube == protocol.Tube2 {
		return s.Tube2DistanceMM
	}
	return s.Tube1DistanceMM
}

// Level returns the water level of tube rounded to 0.1 mm, or ErrSensorFault.
func (s DeviceState) Level(tube protocol.Tube) (float64, error) {
	level, err := ConvertDistanceToLevel(s.Distance(tube))
	if err != nil {
		return 0, fmt.Errorf("tube %d: %w", tube, err)
	}
	return roundTenth(level), nil
}

func (s DeviceState) InflowDuty(tube protocol.Tube) int {
	if tube == protocol.Tube2 {
		return s.Tube2InflowDuty
	}
	return s.Tube1InflowDuty
}

func (s DeviceState) OutflowDuty(tube protocol.Tube) int {
	if tube == protocol.Tube2 {
		return s.Tube2OutflowDuty
	}
	return s.Tube1OutflowDuty
}

// Age is how long ago the snapshot was captured.
func (s DeviceState) Age(now time.Time) time.Duration {
	return now.Sub(s.CapturedAt)
}

func (s DeviceState) String() string {
	level := func(tube protocol.Tube) string {
		l, err := s.Level(tube)
		if err != nil {
			return "fault"
		}
		return fmt.Sprintf("%.1fmm", l)
	}
	return fmt.Sprintf(
		"tube1=%s (in %d%% out %d%%) tube2=%s (in %d%% out %d%%) stream (in %d%% out %d%%) dynamic=%t",
		level(protocol.Tube1), s.Tube1InflowDuty, s.Tube1OutflowDuty,
		level(protocol.Tube2), s.Tube2InflowDuty, s.Tube2OutflowDuty,
		s.StreamInflowDuty, s.StreamOutflowDuty, s.Dynamic,
	)
}
