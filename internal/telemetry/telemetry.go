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

// Package telemetry forwards error level log events to a Sentry project
// chosen by the operator. Home directory names are scrubbed from events.
package telemetry

import (
	"fmt"
	"io"
	"regexp"
	"runtime"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	sentryzerolog "github.com/getsentry/sentry-go/zerolog"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const flushTimeout = 2 * time.Second

var (
	unixHomeRe    = regexp.MustCompile(`(?i)/home/[^/]+/`)
	macHomeRe     = regexp.MustCompile(`(?i)/Users/[^/]+/`)
	windowsHomeRe = regexp.MustCompile(`(?i)[a-zA-Z]:\\Users\\[^\\]+\\`)
)

type Options struct {
	DSN         string
	Environment string
	Release     string
	Port        string
}

// Reporter owns the Sentry client for the life of the process. A nil
// Reporter is valid and does nothing.
type Reporter struct {
	writer    *sentryzerolog.Writer
	closeOnce sync.Once
}

// Start initialises Sentry and tees the global logger into it. base is the
// writer the logger used before. With an empty DSN it returns a nil
// Reporter.
func Start(opts Options, base io.Writer) (*Reporter, error) {
	if opts.DSN == "" {
		log.Debug().Msg("error reporting disabled")
		return nil, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              opts.DSN,
		Release:          "claire-driver@" + opts.Release,
		Environment:      opts.Environment,
		AttachStacktrace: true,
		SendDefaultPII:   false,
		ServerName:       "",
		MaxBreadcrumbs:   0,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return scrubEvent(event)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sentry: %w", err)
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("port", opts.Port)
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
	})

	w, err := sentryzerolog.NewWithHub(sentry.CurrentHub(), sentryzerolog.Options{
		Levels:          []zerolog.Level{zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel},
		FlushTimeout:    flushTimeout,
		WithBreadcrumbs: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sentry log writer: %w", err)
	}

	log.Logger = log.Output(zerolog.MultiLevelWriter(base, w))

	log.Info().Str("environment", opts.Environment).Msg("error reporting enabled")
	return &Reporter{writer: w}, nil
}

func (r *Reporter) Enabled() bool {
	return r != nil
}

// SetSession tags subsequent events with the device session id.
func (r *Reporter) SetSession(id string) {
	if r == nil {
		return
	}
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("session", id)
	})
}

// Close flushes pending events. It may be called more than once.
func (r *Reporter) Close() {
	if r == nil {
		return
	}
	r.closeOnce.Do(func() {
		_ = r.writer.Close()
		sentry.Flush(flushTimeout)
	})
}

func scrubEvent(event *sentry.Event) *sentry.Event {
	event.ServerName = ""
	event.Message = scrubPath(event.Message)

	for i := range event.Exception {
		event.Exception[i].Value = scrubPath(event.Exception[i].Value)
		st := event.Exception[i].Stacktrace
		if st == nil {
			continue
		}
		for j := range st.Frames {
			st.Frames[j].AbsPath = scrubPath(st.Frames[j].AbsPath)
			st.Frames[j].Filename = scrubPath(st.Frames[j].Filename)
		}
	}

	for k, v := range event.Extra {
		if s, ok := v.(string); ok {
			event.Extra[k] = scrubPath(s)
		}
	}

	return event
}

// scrubPath replaces the user name in home directory paths.
func scrubPath(s string) string {
	if s == "" {
		return s
	}
	s = unixHomeRe.ReplaceAllString(s, "/home/<user>/")
	s = macHomeRe.ReplaceAllString(s, "/Users/<user>/")
	return windowsHomeRe.ReplaceAllString(s, `C:\Users\<user>\`)
}
