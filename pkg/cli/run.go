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

	"github.com/claire-rig/claire-driver/internal/telemetry"
	"github.com/claire-rig/claire-driver/pkg/api"
	"github.com/claire-rig/claire-driver/pkg/config"
	"github.com/claire-rig/claire-driver/pkg/device"
	"github.com/claire-rig/claire-driver/pkg/discovery"
	"github.com/claire-rig/claire-driver/pkg/helpers"
	"github.com/claire-rig/claire-driver/pkg/publishers"
	"github.com/claire-rig/claire-driver/pkg/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

var ErrNoPort = errors.New("no serial port configured, use -port or set device.port")

const eventBuffer = 64

// SessionOptions builds device options from the config.
func SessionOptions(cfg *config.Instance) device.Options {
	return device.Options{
		ExpectedVersion:      cfg.ExpectedVersion(),
		CommunicationTimeout: cfg.CommunicationTimeout(),
		PollInterval:         cfg.PollInterval(),
		WatchdogInterval:     cfg.WatchdogInterval(),
		HandshakeTimeout:     cfg.HandshakeTimeout(),
		UnderflowThresholdMM: cfg.UnderflowThresholdMM(),
		EchoLines:            cfg.EchoLines(),
		DisableWatchdog:      !cfg.WatchdogEnabled(),
	}
}

// fanOut copies events to every sink without blocking, and closes the sinks
// once in is closed.
func fanOut(in <-chan device.Event, sinks ...chan device.Event) {
	defer func() {
		for _, sink := range sinks {
			close(sink)
		}
	}()
	for ev := range in {
		for _, sink := range sinks {
			select {
			case sink <- ev:
			default:
				log.Debug().Str("method", ev.Method).Msg("event sink full, dropping event")
			}
		}
	}
}

// Execute opens the configured rig and runs the requested actions.
func Execute(ctx context.Context, cfg *config.Instance, f *Flags, out io.Writer) error {
	port := cfg.DevicePort()
	if port == "" {
		return ErrNoPort
	}

	opts := SessionOptions(cfg)

	reporter, err := telemetry.Start(telemetry.Options{
		DSN:         cfg.ErrorReportingDSN(),
		Environment: cfg.ErrorReportingEnvironment(),
		Release:     config.AppVersion,
		Port:        port,
	}, helpers.LogWriter())
	if err != nil {
		log.Warn().Err(err).Msg("error reporting disabled")
	}
	defer reporter.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := device.NewMetrics(reg)
	if err != nil {
		return err
	}
	opts.Metrics = metrics

	var sinks []chan device.Event

	if cfg.MQTTEnabled() {
		mqttEvents := make(chan device.Event, eventBuffer)
		pub := publishers.NewMQTTPublisher(cfg.MQTTBroker(), cfg.MQTTTopic(), cfg.MQTTClientID(), nil)
		if err := pub.Start(mqttEvents); err != nil {
			log.Error().Err(err).Msg("mqtt publisher disabled")
		} else {
			defer pub.Stop()
			sinks = append(sinks, mqttEvents)
		}
	}

	listen := cfg.MetricsListen()
	var hub *api.EventHub
	if listen != "" {
		hub = api.NewEventHub()
		hubEvents := make(chan device.Event, eventBuffer)
		go hub.Run(hubEvents)
		defer hub.Close()
		sinks = append(sinks, hubEvents)
	}

	if len(sinks) > 0 {
		events := make(chan device.Event, eventBuffer)
		go fanOut(events, sinks...)
		// runs after the session is closed, before the sinks stop
		defer close(events)
		opts.Events = events
	}

	tr, err := transport.Open(ctx, port, transport.Options{
		BaudRate:    cfg.BaudRate(),
		OpenRetries: cfg.OpenRetries(),
	})
	if err != nil {
		return err
	}

	sess, err := device.Open(ctx, tr, opts)
	if err != nil {
		return fmt.Errorf("failed to start session on %s: %w", port, err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Error().Err(err).Msg("error closing session")
		}
	}()

	reporter.SetSession(sess.ID())
	log.Info().Str("session", sess.ID()).Str("port", port).Msg("session ready")

	if listen != "" {
		stopServer := api.Serve(listen, api.NewRouter(sess, reg, hub))
		defer stopServer()

		if cfg.MetricsAdvertise() {
			if httpPort, err := discovery.ListenPort(listen); err != nil {
				log.Warn().Err(err).Msg("not advertising status server")
			} else {
				svc := discovery.New(cfg.MetricsInstanceName(), httpPort, sess.ID(), port)
				svc.Start()
				defer svc.Stop()
			}
		}
	}

	every := opts.WatchdogInterval
	if every <= 0 {
		every = device.DefaultWatchdogInterval
	}
	return RunActions(ctx, sess, f, out, every)
}
