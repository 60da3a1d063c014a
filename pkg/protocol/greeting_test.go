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

package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGreeting(t *testing.T) {
	t.Parallel()

	g, err := ParseGreeting("Initialising CLAIRE water management v0.1.13")
	require.NoError(t, err)
	assert.Equal(t, Greeting{Product: "CLAIRE", Subsystem: "water management", Version: "v0.1.13"}, g)
}

func TestParseGreeting_Rejects(t *testing.T) {
	t.Parallel()

	lines := []string{
		"",
		"Initialising CLAIRE water management",
		"Initialising CLAIRE water management...",
		"Booting CLAIRE water management v0.1.13",
		"Initialising CLAIRE water management v0.1.13 extra",
		"Initialising  CLAIRE water management v0.1.13",
	}
	for _, line := range lines {
		_, err := ParseGreeting(line)
		require.ErrorIs(t, err, ErrUnrecognisedGreeting, "line %q", line)
	}
}
