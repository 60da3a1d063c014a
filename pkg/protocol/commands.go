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

// Package protocol encodes the commands understood by the Claire firmware and
// decodes the lines it prints back. Everything here is pure; the session in
// pkg/device owns the transport.
package protocol

import (
	"strconv"
	"strings"
)

// Wire constants.
const (
	CommandTerminator = ";"
	ReadySentinel     = "CLAIRE-READY"
	RecordOpen        = "{"
	RecordClose       = "}"

	opFullState  = "1"
	opQuickState = "2"
	opSetRate    = "4"
	opSetLevel   = "5"
)

// Tube identifies one of the two water columns. TubeAll scopes a state
// request to the whole rig.
type Tube int

const (
	TubeAll Tube = 0
	Tube1   Tube = 1
	Tube2   Tube = 2
)

// Tubes lists the addressable tubes in check order.
var Tubes = []Tube{Tube1, Tube2}

// Pump is the firmware pump index: odd pumps fill a tube, even pumps drain it.
type Pump int

// InflowPump returns the pump that fills tube.
func InflowPump(tube Tube) Pump {
	return Pump(2*(int(tube)-1) + 1)
}

// OutflowPump returns the pump that drains tube.
func OutflowPump(tube Tube) Pump {
	return Pump(2 * int(tube))
}

// Command is one of the closed set of firmware commands.
type Command interface {
	// Encode returns the wire form including the terminator.
	Encode() string
	// Mutating reports whether the command changes the physical rig.
	Mutating() bool
	// Kind is a short label for logs and metrics.
	Kind() string
}

// RequestState asks for a state record, optionally for one tube only.
type RequestState struct {
	Tube  Tube
	Quick bool
}

func (c RequestState) Encode() string {
	op := opFullState
	if c.Quick {
		op = opQuickState
	}
	if c.Tube == TubeAll {
		return op + CommandTerminator
	}
	return op + " " + strconv.Itoa(int(c.Tube)) + CommandTerminator
}

func (RequestState) Mutating() bool { return false }

func (c RequestState) Kind() string {
	if c.Quick {
		return "quick_state"
	}
	return "state"
}

// SetLevel asks the firmware to regulate tube towards a target sonar distance.
type SetLevel struct {
	Tube       Tube
	DistanceMM float64
}

func (c SetLevel) Encode() string {
	return join(opSetLevel, strconv.Itoa(int(c.Tube)), strconv.FormatFloat(c.DistanceMM, 'f', -1, 64))
}

func (SetLevel) Mutating() bool { return true }

func (SetLevel) Kind() string { return "set_level" }

// SetRate sets a pump duty in percent.
type SetRate struct {
	Pump Pump
	Rate int
}

func (c SetRate) Encode() string {
	return join(opSetRate, strconv.Itoa(int(c.Pump)), strconv.Itoa(c.Rate))
}

func (SetRate) Mutating() bool { return true }

func (SetRate) Kind() string { return "set_rate" }

func join(parts ...string) string {
	return strings.Join(parts, " ") + CommandTerminator
}
