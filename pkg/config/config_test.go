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

package config

import (
	"testing"
	"time"

	"github.com/claire-rig/claire-driver/pkg/validation"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemConfig(t *testing.T, contents string) (*Instance, error) {
	t.Helper()
	fs := afero.NewMemMapFs()
	if contents != "" {
		require.NoError(t, fs.MkdirAll("/cfg", 0o750))
		require.NoError(t, afero.WriteFile(fs, "/cfg/"+CfgFile, []byte(contents), 0o600))
	}
	return NewConfigWithFs(fs, "/cfg", BaseDefaults)
}

func TestNewConfig_WritesDefaults(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	cfg, err := NewConfigWithFs(fs, "/home/user/.config/claire", BaseDefaults)
	require.NoError(t, err)

	exists, err := afero.Exists(fs, "/home/user/.config/claire/config.toml")
	require.NoError(t, err)
	assert.True(t, exists)

	assert.Equal(t, "v0.1.13", cfg.ExpectedVersion())
	assert.Equal(t, 115200, cfg.BaudRate())
	assert.Equal(t, 10*time.Second, cfg.CommunicationTimeout())
	assert.Equal(t, 100*time.Millisecond, cfg.PollInterval())
	assert.Equal(t, 5*time.Second, cfg.WatchdogInterval())
	assert.Equal(t, 30*time.Second, cfg.HandshakeTimeout())
	assert.True(t, cfg.WatchdogEnabled())
	assert.InDelta(t, 900.0, cfg.UnderflowThresholdMM(), 0)
	assert.False(t, cfg.MQTTEnabled())
	assert.Equal(t, "claire", cfg.MQTTTopic())
}

func TestLoad_MergesOverDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := newMemConfig(t, `
config_schema = 1
debug_logging = true

[device]
port = "/dev/ttyACM0"
echo_lines = true

[timing]
communication_timeout = "3s"

[watchdog]
enabled = false
underflow_threshold_mm = 120.5

[mqtt]
enabled = true
broker = "tcp://localhost:1883"
topic = "lab/claire"

[metrics]
listen = ":9108"
advertise = true
instance_name = "rig-a"

[error_reporting]
dsn = "https://key@sentry.example.org/4"
environment = "lab"
`)
	require.NoError(t, err)

	assert.True(t, cfg.DebugLogging())
	assert.Equal(t, "/dev/ttyACM0", cfg.DevicePort())
	assert.True(t, cfg.EchoLines())
	assert.Equal(t, 3*time.Second, cfg.CommunicationTimeout())
	assert.Equal(t, 5*time.Second, cfg.WatchdogInterval(), "unset keys keep defaults")
	assert.Equal(t, "v0.1.13", cfg.ExpectedVersion())
	assert.False(t, cfg.WatchdogEnabled())
	assert.InDelta(t, 120.5, cfg.UnderflowThresholdMM(), 0)
	assert.True(t, cfg.MQTTEnabled())
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTTBroker())
	assert.Equal(t, "lab/claire", cfg.MQTTTopic())
	assert.Equal(t, ":9108", cfg.MetricsListen())
	assert.True(t, cfg.MetricsAdvertise())
	assert.Equal(t, "rig-a", cfg.MetricsInstanceName())
	assert.Equal(t, "https://key@sentry.example.org/4", cfg.ErrorReportingDSN())
	assert.Equal(t, "lab", cfg.ErrorReportingEnvironment())
}

func TestLoad_SchemaMismatch(t *testing.T) {
	t.Parallel()

	_, err := newMemConfig(t, "config_schema = 7\n")
	require.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{
			name:  "bad duration",
			body:  "config_schema = 1\n[timing]\npoll_interval = \"often\"\n",
			field: "poll_interval",
		},
		{
			name:  "threshold out of range",
			body:  "config_schema = 1\n[watchdog]\nunderflow_threshold_mm = 1000.0\n",
			field: "underflow_threshold_mm",
		},
		{
			name:  "mqtt without broker",
			body:  "config_schema = 1\n[mqtt]\nenabled = true\n",
			field: "broker",
		},
		{
			name:  "bad metrics address",
			body:  "config_schema = 1\n[metrics]\nlisten = \"nowhere\"\n",
			field: "listen",
		},
		{
			name:  "bad error reporting dsn",
			body:  "config_schema = 1\n[error_reporting]\ndsn = \"not a url\"\n",
			field: "dsn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := newMemConfig(t, tt.body)
			var ve *validation.Error
			require.ErrorAs(t, err, &ve)
			require.Len(t, ve.Fields, 1)
			assert.Equal(t, tt.field, ve.Fields[0].Field)
		})
	}
}

func TestLoad_BadTOML(t *testing.T) {
	t.Parallel()

	_, err := newMemConfig(t, "config_schema = \n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal config")
}

func TestSave_RoundTrip(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	cfg, err := NewConfigWithFs(fs, "/cfg", BaseDefaults)
	require.NoError(t, err)

	cfg.SetDevicePort("/dev/ttyUSB0")
	cfg.SetMQTT("tcp://broker:1883", "rig", true)
	cfg.SetMetricsListen("localhost:9100")
	cfg.SetDebugLogging(true)
	require.NoError(t, cfg.Save())

	reloaded, err := NewConfigWithFs(fs, "/cfg", BaseDefaults)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", reloaded.DevicePort())
	assert.Equal(t, "tcp://broker:1883", reloaded.MQTTBroker())
	assert.Equal(t, "rig", reloaded.MQTTTopic())
	assert.Equal(t, "localhost:9100", reloaded.MetricsListen())
	assert.True(t, reloaded.DebugLogging())
}

func TestParseDuration(t *testing.T) {
	t.Parallel()

	assert.Equal(t, time.Duration(0), parseDuration("x", ""))
	assert.Equal(t, time.Duration(0), parseDuration("x", "bogus"))
	assert.Equal(t, time.Duration(0), parseDuration("x", "-2s"))
	assert.Equal(t, 250*time.Millisecond, parseDuration("x", "250ms"))
}
