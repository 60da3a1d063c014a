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

// Package cli implements the clairectl command line: flag handling, process
// setup and the one-shot and monitor actions run against a rig.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/claire-rig/claire-driver/pkg/config"
	"github.com/claire-rig/claire-driver/pkg/helpers"
	"github.com/claire-rig/claire-driver/pkg/transport"
	"github.com/rs/zerolog"
)

// ErrHandled is returned by Pre when a flag was fully handled and the
// process should exit without error.
var ErrHandled = errors.New("handled")

type Flags struct {
	Port      *string
	SetLevel  *string
	Inflow    *string
	Outflow   *string
	Metrics   *string
	Tube      *int
	ListPorts *bool
	State     *bool
	Quick     *bool
	Monitor   *bool
	Stop      *bool
	Echo      *bool
	Debug     *bool
	Version   *bool
}

func SetupFlags() *Flags {
	return setupFlags(flag.CommandLine)
}

func setupFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		Port: fs.String(
			"port",
			"",
			"serial port of the rig, overrides the config file",
		),
		ListPorts: fs.Bool(
			"list-ports",
			false,
			"list candidate serial ports and exit",
		),
		State: fs.Bool(
			"state",
			false,
			"request and print the current state",
		),
		Quick: fs.Bool(
			"quick",
			false,
			"use the quick state request",
		),
		Tube: fs.Int(
			"tube",
			0,
			"limit the state request to one tube (0 for all)",
		),
		SetLevel: fs.String(
			"set-level",
			"",
			"set a tube's target level, as tube:mm",
		),
		Inflow: fs.String(
			"inflow",
			"",
			"set a tube's inflow pump duty, as tube:rate",
		),
		Outflow: fs.String(
			"outflow",
			"",
			"set a tube's outflow pump duty, as tube:rate",
		),
		Stop: fs.Bool(
			"stop",
			false,
			"switch off all tube pumps",
		),
		Monitor: fs.Bool(
			"monitor",
			false,
			"keep the session open with the watchdog running until interrupted",
		),
		Metrics: fs.String(
			"metrics",
			"",
			"serve Prometheus metrics on this address, e.g. :9108",
		),
		Echo: fs.Bool(
			"echo",
			false,
			"log every line received from the rig",
		),
		Debug: fs.Bool(
			"debug",
			false,
			"enable debug logging",
		),
		Version: fs.Bool(
			"version",
			false,
			"print version and exit",
		),
	}
}

// Pre parses the command line and handles the flags that don't need a
// config or a device.
func (f *Flags) Pre(out io.Writer) error {
	flag.Parse()
	return f.pre(out, transport.GetSerialDeviceList)
}

func (f *Flags) pre(out io.Writer, listPorts func() ([]string, error)) error {
	if *f.Version {
		_, _ = fmt.Fprintf(out, "clairectl %s\n", config.AppVersion)
		return ErrHandled
	}

	if *f.ListPorts {
		ports, err := listPorts()
		if err != nil {
			return fmt.Errorf("failed to list serial ports: %w", err)
		}
		if len(ports) == 0 {
			_, _ = fmt.Fprintln(out, "no serial ports found")
		}
		for _, p := range ports {
			_, _ = fmt.Fprintln(out, p)
		}
		return ErrHandled
	}

	return nil
}

// Setup starts logging and loads the config file.
func Setup(defaults config.Values, writers []io.Writer, debug bool) (*config.Instance, error) {
	if err := helpers.InitLogging(helpers.LogDir(), debug, writers); err != nil {
		return nil, fmt.Errorf("error initializing logging: %w", err)
	}

	cfg, err := config.NewConfig(helpers.ConfigDir(), defaults)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	if debug || cfg.DebugLogging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	return cfg, nil
}

// Post applies command line overrides to the loaded config. They are not
// saved.
func (f *Flags) Post(cfg *config.Instance) {
	if *f.Port != "" {
		cfg.SetDevicePort(*f.Port)
	}
	if *f.Metrics != "" {
		cfg.SetMetricsListen(*f.Metrics)
	}
	if *f.Echo {
		cfg.SetEchoLines(true)
	}
}

// ConsoleWriter is the stderr log writer used when running interactively.
func ConsoleWriter() io.Writer {
	return zerolog.ConsoleWriter{Out: os.Stderr}
}
