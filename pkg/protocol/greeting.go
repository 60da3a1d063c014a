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
	"errors"
	"fmt"
	"strings"
)

// ErrUnrecognisedGreeting is returned when the first device line is not the
// firmware banner.
var ErrUnrecognisedGreeting = errors.New("unrecognised greeting")

const (
	greetingPrefix = "Initialising"
	greetingWords  = 5
)

// Greeting is the banner the firmware prints on boot, e.g.
// "Initialising CLAIRE water management v0.1.13".
type Greeting struct {
	Product   string
	Subsystem string
	Version   string
}

func ParseGreeting(line string) (Greeting, error) {
	words := strings.Split(strings.TrimSpace(line), " ")
	if len(words) != greetingWords || words[0] != greetingPrefix {
		return Greeting{}, fmt.Errorf("%w: %q", ErrUnrecognisedGreeting, line)
	}
	return Greeting{
		Product:   words[1],
		Subsystem: words[2] + " " + words[3],
		Version:   words[4],
	}, nil
}
