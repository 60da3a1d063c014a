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

package cli

import (
	"context"
	"testing"
	"time"

	"github.com/claire-rig/claire-driver/pkg/config"
	"github.com/claire-rig/claire-driver/pkg/device"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memConfig(t *testing.T) *config.Instance {
	t.Helper()
	cfg, err := config.NewConfigWithFs(afero.NewMemMapFs(), "/cfg", config.BaseDefaults)
	require.NoError(t, err)
	return cfg
}

func TestPost_Overrides(t *testing.T) {
	t.Parallel()

	cfg := memConfig(t)
	f := parseFlags(t, "-port", "/dev/ttyACM1", "-metrics", ":9108", "-echo")
	f.Post(cfg)

	assert.Equal(t, "/dev/ttyACM1", cfg.DevicePort())
	assert.Equal(t, ":9108", cfg.MetricsListen())
	assert.True(t, cfg.EchoLines())
}

func TestSessionOptions(t *testing.T) {
	t.Parallel()

	opts := SessionOptions(memConfig(t))
	assert.Equal(t, "v0.1.13", opts.ExpectedVersion)
	assert.Equal(t, 10*time.Second, opts.CommunicationTimeout)
	assert.Equal(t, 100*time.Millisecond, opts.PollInterval)
	assert.Equal(t, 5*time.Second, opts.WatchdogInterval)
	assert.Equal(t, 30*time.Second, opts.HandshakeTimeout)
	assert.InDelta(t, 900.0, opts.UnderflowThresholdMM, 0)
	assert.False(t, opts.DisableWatchdog)
}

func TestExecute_NoPort(t *testing.T) {
	t.Parallel()

	err := Execute(context.Background(), memConfig(t), parseFlags(t), nil)
	require.ErrorIs(t, err, ErrNoPort)
}

func TestFanOut(t *testing.T) {
	t.Parallel()

	in := make(chan device.Event)
	fast := make(chan device.Event, 4)
	full := make(chan device.Event)

	done := make(chan struct{})
	go func() {
		fanOut(in, fast, full)
		close(done)
	}()

	in <- device.Event{Method: device.EventSessionOpened}
	in <- device.Event{Method: device.EventStateUpdated}
	close(in)
	<-done

	var got []string
	for ev := range fast {
		got = append(got, ev.Method)
	}
	assert.Equal(t, []string{device.EventSessionOpened, device.EventStateUpdated}, got)

	_, ok := <-full
	assert.False(t, ok, "sink with no reader is closed without blocking")
}
