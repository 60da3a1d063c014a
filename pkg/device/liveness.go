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
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// Liveness remembers when the device last printed anything.
type Liveness struct {
	clock    clockwork.Clock
	lastNano atomic.Int64
}

func NewLiveness(clock clockwork.Clock) *Liveness {
	l := &Liveness{clock: clock}
	l.Touch()
	return l
}

// Touch records activity now.
func (l *Liveness) Touch() {
	l.lastNano.Store(l.clock.Now().UnixNano())
}

func (l *Liveness) LastSeen() time.Time {
	return time.Unix(0, l.lastNano.Load())
}

// Alive reports whether the device was heard from within timeout.
func (l *Liveness) Alive(timeout time.Duration) bool {
	return l.clock.Since(l.LastSeen()) < timeout
}
