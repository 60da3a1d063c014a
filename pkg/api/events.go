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

package api

import (
	"encoding/json"
	"net/http"

	"github.com/claire-rig/claire-driver/pkg/device"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"
)

// EventHub pushes session events to websocket clients connected on /events.
type EventHub struct {
	m    *melody.Melody
	done chan struct{}
}

func NewEventHub() *EventHub {
	m := melody.New()
	m.Upgrader.CheckOrigin = func(*http.Request) bool { return true }
	m.HandleConnect(func(s *melody.Session) {
		log.Debug().Str("remote", s.Request.RemoteAddr).Msg("event client connected")
	})
	m.HandleDisconnect(func(s *melody.Session) {
		log.Debug().Str("remote", s.Request.RemoteAddr).Msg("event client disconnected")
	})
	return &EventHub{
		m:    m,
		done: make(chan struct{}),
	}
}

// Run broadcasts events until the channel is closed.
func (h *EventHub) Run(events <-chan device.Event) {
	defer close(h.done)
	for ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			log.Error().Err(err).Msg("marshalling event")
			continue
		}
		if err := h.m.Broadcast(data); err != nil {
			log.Error().Err(err).Str("method", ev.Method).Msg("broadcasting event")
		}
	}
}

// Close disconnects all clients. Call it after the channel passed to Run
// has been closed.
func (h *EventHub) Close() {
	<-h.done
	if err := h.m.Close(); err != nil {
		log.Warn().Err(err).Msg("closing event hub")
	}
}

// Clients is the number of connected websocket clients.
func (h *EventHub) Clients() int {
	return h.m.Len()
}

func (h *EventHub) handle(w http.ResponseWriter, r *http.Request) {
	if err := h.m.HandleRequest(w, r); err != nil {
		log.Error().Err(err).Msg("handling websocket request")
	}
}
