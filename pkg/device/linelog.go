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

import "github.com/claire-rig/claire-driver/pkg/helpers/syncutil"

// LineLog is every line received during a session, in arrival order. The
// reader task is the only writer. The log is never truncated: a session lasts
// one experiment run, which keeps it to a few thousand lines.
type LineLog struct {
	lines []string
	mu    syncutil.RWMutex
}

func NewLineLog() *LineLog {
	return &LineLog{lines: make([]string, 0, 256)}
}

// Append adds line and returns its index.
func (l *LineLog) Append(line string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, line)
	return len(l.lines) - 1
}

func (l *LineLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.lines)
}

// Line returns the line at index i.
func (l *LineLog) Line(i int) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i < 0 || i >= len(l.lines) {
		return "", false
	}
	return l.lines[i], true
}

// First returns the first line ever received.
func (l *LineLog) First() (string, bool) {
	return l.Line(0)
}

// Since returns a copy of the lines from index start onwards.
func (l *LineLog) Since(start int) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if start < 0 {
		start = 0
	}
	if start >= len(l.lines) {
		return nil
	}
	out := make([]string, len(l.lines)-start)
	copy(out, l.lines[start:])
	return out
}
