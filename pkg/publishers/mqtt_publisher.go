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

// Package publishers forwards session events to external systems.
package publishers

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/claire-rig/claire-driver/pkg/device"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	StateSubtopic  = "state"
	EventsSubtopic = "events"

	disconnectQuiesce = 250
)

// MQTTPublisher publishes every session event to <topic>/events and the
// latest device state, retained, to <topic>/state.
type MQTTPublisher struct {
	client    mqtt.Client
	newClient func(*mqtt.ClientOptions) mqtt.Client
	stopCh    chan struct{}
	doneCh    chan struct{}
	broker    string
	topic     string
	clientID  string
	filter    []string
	stopOnce  sync.Once
	started   bool
}

// NewMQTTPublisher creates a publisher. An empty filter publishes all event
// methods.
func NewMQTTPublisher(broker, topic, clientID string, filter []string) *MQTTPublisher {
	if !strings.Contains(broker, "://") {
		broker = "tcp://" + broker
	}
	if clientID == "" {
		clientID = "claire-" + uuid.New().String()[:8]
	}
	return &MQTTPublisher{
		broker:    broker,
		topic:     strings.TrimSuffix(topic, "/"),
		clientID:  clientID,
		filter:    filter,
		newClient: mqtt.NewClient,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

func (p *MQTTPublisher) Start(events <-chan device.Event) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(p.broker)
	opts.SetClientID(p.clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)

	opts.OnConnect = func(_ mqtt.Client) {
		log.Info().Msgf("mqtt publisher: connected to %s", p.broker)
	}

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("mqtt publisher: connection lost")
	}

	p.client = p.newClient(opts)

	token := p.client.Connect()
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	log.Info().Msgf("mqtt publisher: publishing to %s/{%s,%s}", p.topic, StateSubtopic, EventsSubtopic)

	p.started = true
	go p.publishEvents(events)

	return nil
}

// Stop ends the publishing goroutine and disconnects. Safe to call twice.
func (p *MQTTPublisher) Stop() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		if !p.started {
			return
		}
		<-p.doneCh

		if p.client.IsConnected() {
			log.Debug().Msg("mqtt publisher: disconnecting")
			p.client.Disconnect(disconnectQuiesce)
		}
	})
}

func (p *MQTTPublisher) publishEvents(events <-chan device.Event) {
	defer close(p.doneCh)

	for {
		select {
		case <-p.stopCh:
			log.Debug().Msg("mqtt publisher: stopping")
			return
		case ev, ok := <-events:
			if !ok {
				log.Debug().Msg("mqtt publisher: event channel closed")
				return
			}
			if !p.matchesFilter(ev.Method) {
				continue
			}
			p.publishEvent(ev)
		}
	}
}

func (p *MQTTPublisher) publishEvent(ev device.Event) {
	if ev.State != nil {
		payload, err := json.Marshal(ev.State)
		if err != nil {
			log.Error().Err(err).Msg("mqtt publisher: failed to marshal state")
		} else {
			p.send(p.topic+"/"+StateSubtopic, true, payload)
		}
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Msg("mqtt publisher: failed to marshal event")
		return
	}
	p.send(p.topic+"/"+EventsSubtopic, false, payload)
}

func (p *MQTTPublisher) send(topic string, retained bool, payload []byte) {
	token := p.client.Publish(topic, 0, retained, payload)
	if token.Wait() && token.Error() != nil {
		log.Error().Err(token.Error()).Str("topic", topic).Msg("mqtt publisher: failed to publish message")
		return
	}
	log.Debug().Str("topic", topic).Msg("mqtt publisher: published message")
}

func (p *MQTTPublisher) matchesFilter(method string) bool {
	return len(p.filter) == 0 || slices.Contains(p.filter, method)
}
