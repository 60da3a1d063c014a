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
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/claire-rig/claire-driver/pkg/device"
	"github.com/claire-rig/claire-driver/pkg/protocol"
	"github.com/rs/zerolog/log"
)

// Controller is the part of a device session the actions drive.
type Controller interface {
	RequestState(ctx context.Context, tube protocol.Tube, quick bool) (device.DeviceState, error)
	GetCachedOrRefresh(ctx context.Context) (device.DeviceState, error)
	SetLevel(ctx context.Context, tube protocol.Tube, levelMM float64) error
	SetInflow(ctx context.Context, tube protocol.Tube, rate int) error
	SetOutflow(ctx context.Context, tube protocol.Tube, rate int) error
	Stop(ctx context.Context) error
}

var ErrBadTubeArg = errors.New("expected tube:value")

// parseTubeArg splits "tube:value".
func parseTubeArg(arg string) (protocol.Tube, string, error) {
	tubeStr, value, ok := strings.Cut(arg, ":")
	if !ok || value == "" {
		return 0, "", fmt.Errorf("%w, got %q", ErrBadTubeArg, arg)
	}
	tube, err := strconv.Atoi(strings.TrimSpace(tubeStr))
	if err != nil {
		return 0, "", fmt.Errorf("%w, got %q: %w", ErrBadTubeArg, arg, err)
	}
	return protocol.Tube(tube), strings.TrimSpace(value), nil
}

func parseLevelArg(arg string) (protocol.Tube, float64, error) {
	tube, value, err := parseTubeArg(arg)
	if err != nil {
		return 0, 0, err
	}
	level, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid level %q: %w", value, err)
	}
	return tube, level, nil
}

func parseRateArg(arg string) (protocol.Tube, int, error) {
	tube, value, err := parseTubeArg(arg)
	if err != nil {
		return 0, 0, err
	}
	rate, err := strconv.Atoi(value)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid rate %q: %w", value, err)
	}
	return tube, rate, nil
}

// hasCommand reports whether any action flag was given.
func (f *Flags) hasCommand() bool {
	return *f.SetLevel != "" || *f.Inflow != "" || *f.Outflow != "" || *f.Stop
}

// RunActions performs the requested commands in a fixed order: stop, level,
// inflow, outflow, then state and monitor. With no action flags it prints the
// state once.
func RunActions(ctx context.Context, c Controller, f *Flags, out io.Writer, monitorEvery time.Duration) error {
	if *f.Stop {
		if err := c.Stop(ctx); err != nil {
			return fmt.Errorf("failed to stop pumps: %w", err)
		}
		_, _ = fmt.Fprintln(out, "all tube pumps stopped")
	}

	if *f.SetLevel != "" {
		tube, level, err := parseLevelArg(*f.SetLevel)
		if err != nil {
			return fmt.Errorf("set-level: %w", err)
		}
		if err := c.SetLevel(ctx, tube, level); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "tube %d level set to %.1fmm\n", tube, level)
	}

	if *f.Inflow != "" {
		tube, rate, err := parseRateArg(*f.Inflow)
		if err != nil {
			return fmt.Errorf("inflow: %w", err)
		}
		if err := c.SetInflow(ctx, tube, rate); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "tube %d inflow set to %d%%\n", tube, rate)
	}

	if *f.Outflow != "" {
		tube, rate, err := parseRateArg(*f.Outflow)
		if err != nil {
			return fmt.Errorf("outflow: %w", err)
		}
		if err := c.SetOutflow(ctx, tube, rate); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "tube %d outflow set to %d%%\n", tube, rate)
	}

	if *f.State || (!f.hasCommand() && !*f.Monitor) {
		state, err := c.RequestState(ctx, protocol.Tube(*f.Tube), *f.Quick)
		if err != nil {
			return fmt.Errorf("failed to get state: %w", err)
		}
		_, _ = fmt.Fprintln(out, state)
	}

	if *f.Monitor {
		return monitor(ctx, c, out, monitorEvery)
	}
	return nil
}

// monitor prints the state every interval until ctx is cancelled.
func monitor(ctx context.Context, c Controller, out io.Writer, every time.Duration) error {
	log.Info().Dur("interval", every).Msg("monitoring rig, interrupt to exit")

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("monitor stopped")
			return nil
		case <-ticker.C:
		}

		state, err := c.GetCachedOrRefresh(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn().Err(err).Msg("failed to refresh state")
			continue
		}
		_, _ = fmt.Fprintf(out, "%s %s\n", time.Now().Format(time.TimeOnly), state)
	}
}
