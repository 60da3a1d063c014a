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

	"github.com/claire-rig/claire-driver/pkg/helpers/syncutil"
)

// stateCache holds the last polled snapshot. A snapshot marked dynamic is
// never served from cache because a pump command is still acting on the rig.
type stateCache struct {
	state DeviceState
	mu    syncutil.RWMutex
	valid bool
}

func (c *stateCache) Store(s DeviceState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
	c.valid = true
}

// Snapshot returns a copy of the cached state.
func (c *stateCache) Snapshot() (DeviceState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state, c.valid
}

func (c *stateCache) MarkDynamic() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Dynamic = true
}

// Fresh returns the cached state if it may be used without asking the device.
func (c *stateCache) Fresh(now time.Time, timeout time.Duration) (DeviceState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.valid || c.state.Dynamic || c.state.Age(now) >= timeout {
		return DeviceState{}, false
	}
	return c.state, true
}
