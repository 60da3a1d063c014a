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

package syncutil

import (
	"context"
	"fmt"
)

// Gate is an exclusive lock that can be acquired with a context or without
// blocking. The zero value is not usable; create one with NewGate.
type Gate struct {
	ch chan struct{}
}

func NewGate() *Gate {
	return &Gate{ch: make(chan struct{}, 1)}
}

// Acquire blocks until the gate is held or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("gate acquire: %w", ctx.Err())
	}
}

// TryAcquire takes the gate only if it is free right now.
func (g *Gate) TryAcquire() bool {
	select {
	case g.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees the gate. Releasing a free gate panics, same as unlocking an
// unlocked mutex.
func (g *Gate) Release() {
	select {
	case <-g.ch:
	default:
		panic("syncutil: release of free gate")
	}
}

// Held reports whether someone currently holds the gate.
func (g *Gate) Held() bool {
	return len(g.ch) == 1
}
