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

import "time"

// Event methods published by a session.
const (
	EventSessionOpened      = "session.opened"
	EventSessionClosed      = "session.closed"
	EventStateUpdated       = "state.updated"
	EventWatchdogIntervened = "watchdog.intervened"
)

// Event is a notification about the session, consumed by publishers.
type Event struct {
	Time      time.Time    `json:"time"`
	State     *DeviceState `json:"state,omitempty"`
	Method    string       `json:"method"`
	SessionID string       `json:"session_id"`
	Message   string       `json:"message,omitempty"`
	Tube      int          `json:"tube,omitempty"`
}
