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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineLog(t *testing.T) {
	t.Parallel()

	l := NewLineLog()
	_, ok := l.First()
	assert.False(t, ok)

	assert.Equal(t, 0, l.Append("a"))
	assert.Equal(t, 1, l.Append("b"))
	assert.Equal(t, 2, l.Append("c"))
	assert.Equal(t, 3, l.Len())

	first, ok := l.First()
	require.True(t, ok)
	assert.Equal(t, "a", first)

	line, ok := l.Line(1)
	require.True(t, ok)
	assert.Equal(t, "b", line)
	_, ok = l.Line(3)
	assert.False(t, ok)
	_, ok = l.Line(-1)
	assert.False(t, ok)

	assert.Equal(t, []string{"b", "c"}, l.Since(1))
	assert.Empty(t, l.Since(3))
	assert.Empty(t, l.Since(10))
}

func TestLineLog_SinceReturnsCopy(t *testing.T) {
	t.Parallel()

	l := NewLineLog()
	l.Append("a")
	got := l.Since(0)
	got[0] = "changed"

	line, _ := l.Line(0)
	assert.Equal(t, "a", line)
}

func TestLineLog_ConcurrentReaders(t *testing.T) {
	t.Parallel()

	l := NewLineLog()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 1000 {
			l.Append("x")
		}
	}()
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prev := 0
			for range 1000 {
				n := l.Len()
				assert.GreaterOrEqual(t, n, prev)
				prev = n
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1000, l.Len())
}
