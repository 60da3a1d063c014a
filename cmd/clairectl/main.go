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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/claire-rig/claire-driver/pkg/cli"
	"github.com/claire-rig/claire-driver/pkg/config"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := cli.SetupFlags()

	err := flags.Pre(os.Stdout)
	if errors.Is(err, cli.ErrHandled) {
		return nil
	} else if err != nil {
		return err
	}

	cfg, err := cli.Setup(
		config.BaseDefaults,
		[]io.Writer{cli.ConsoleWriter()},
		*flags.Debug,
	)
	if err != nil {
		return err
	}

	defer func() {
		if err := recover(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", err)
			log.Fatal().Msgf("panic: %v", err)
		}
	}()

	flags.Post(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", config.AppVersion).Str("config", cfg.Path()).Msg("starting clairectl")
	return cli.Execute(ctx, cfg, flags, os.Stdout)
}
