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
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/claire-rig/claire-driver/pkg/protocol"
	"github.com/stretchr/testify/require"
)

const testGreeting = "Initialising CLAIRE water management v0.1.13"

// fakeDevice emulates the firmware on the other end of a Transport. Responses
// are queued on Write and handed out on the next ReadLines call.
type fakeDevice struct {
	respond  func(cmd string) []string
	readErr  error
	writeErr error
	pending  []string
	writes   []string
	state    fakeState
	mu       sync.Mutex
	closed   bool
	inFlight bool
	overlap  bool
	silent   bool
}

type fakeState struct {
	dist1, dist2         float64
	in1, out1, in2, out2 int
}

func (s fakeState) record() string {
	return fmt.Sprintf(
		"{Tube1_sonar_dist_mm: %v, Tube2_sonar_dist_mm: %v, Tube1_inflow_duty: %d, "+
			"Tube1_outflow_duty: %d, Tube2_inflow_duty: %d, Tube2_outflow_duty: %d, "+
			"Stream_inflow_duty: 0, Stream_outflow_duty: 0}",
		s.dist1, s.dist2, s.in1, s.out1, s.in2, s.out2,
	)
}

// newFakeDevice boots with the greeting and ready sentinel queued.
func newFakeDevice(state fakeState) *fakeDevice {
	d := &fakeDevice{
		state:   state,
		pending: []string{testGreeting, protocol.ReadySentinel},
	}
	d.respond = d.firmware
	return d
}

// firmware answers the way the rig does: state requests print a record,
// pump commands update the duties, and everything ends with the sentinel.
func (d *fakeDevice) firmware(cmd string) []string {
	fields := strings.Fields(strings.TrimSuffix(cmd, protocol.CommandTerminator))
	if len(fields) == 0 {
		return []string{protocol.ReadySentinel}
	}
	switch fields[0] {
	case "1", "2":
		return []string{"state requested", d.state.record(), protocol.ReadySentinel}
	case "4":
		var pump, rate int
		_, _ = fmt.Sscan(fields[1], &pump)
		_, _ = fmt.Sscan(fields[2], &rate)
		switch pump {
		case 1:
			d.state.in1 = rate
		case 2:
			d.state.out1 = rate
		case 3:
			d.state.in2 = rate
		case 4:
			d.state.out2 = rate
		}
	}
	return []string{protocol.ReadySentinel}
}

func (d *fakeDevice) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.writeErr != nil {
		return 0, d.writeErr
	}
	if d.inFlight {
		d.overlap = true
	}
	d.inFlight = true
	cmd := string(p)
	d.writes = append(d.writes, cmd)
	if !d.silent {
		d.pending = append(d.pending, d.respond(cmd)...)
	}
	return len(p), nil
}

func (d *fakeDevice) ReadLines() ([]string, error) {
	d.mu.Lock()
	if d.readErr != nil {
		err := d.readErr
		d.mu.Unlock()
		time.Sleep(time.Millisecond)
		return nil, err
	}
	lines := d.pending
	d.pending = nil
	for _, l := range lines {
		if l == protocol.ReadySentinel {
			d.inFlight = false
		}
	}
	d.mu.Unlock()

	if len(lines) == 0 {
		time.Sleep(time.Millisecond)
	}
	return lines, nil
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDevice) push(lines ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, lines...)
}

func (d *fakeDevice) setState(s fakeState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = s
}

func (d *fakeDevice) setSilent(silent bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.silent = silent
}

func (d *fakeDevice) Writes() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.writes...)
}

func (d *fakeDevice) Overlapped() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.overlap
}

func (d *fakeDevice) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func testOptions() Options {
	return Options{
		PollInterval:         time.Millisecond,
		CommunicationTimeout: 250 * time.Millisecond,
		HandshakeTimeout:     250 * time.Millisecond,
		WatchdogInterval:     10 * time.Millisecond,
		DisableWatchdog:      true,
	}
}

func openTestSession(t *testing.T, dev *fakeDevice, opts Options) *Session {
	t.Helper()
	s, err := Open(context.Background(), dev, opts)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

var errFakeWrite = errors.New("fake write failure")
