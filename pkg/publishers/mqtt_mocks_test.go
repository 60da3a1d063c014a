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

package publishers

import (
	"time"

	"github.com/claire-rig/claire-driver/pkg/helpers/syncutil"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// fakeBroker is an in-memory mqtt.Client that records publishes.
type fakeBroker struct {
	connectErr  error
	publishErr  error
	opts        *mqtt.ClientOptions
	messages    []brokerMessage
	disconnects int
	connected   bool
	mu          syncutil.Mutex
}

type brokerMessage struct {
	topic    string
	payload  []byte
	retained bool
}

func (b *fakeBroker) factory(opts *mqtt.ClientOptions) mqtt.Client {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opts = opts
	return b
}

func (b *fakeBroker) published() []brokerMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]brokerMessage(nil), b.messages...)
}

func (b *fakeBroker) onTopic(topic string) []brokerMessage {
	var out []brokerMessage
	for _, m := range b.published() {
		if m.topic == topic {
			out = append(out, m)
		}
	}
	return out
}

func (b *fakeBroker) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *fakeBroker) IsConnectionOpen() bool {
	return b.IsConnected()
}

func (b *fakeBroker) Connect() mqtt.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.connectErr != nil {
		return &fakeToken{err: b.connectErr}
	}
	b.connected = true
	return &fakeToken{}
}

func (b *fakeBroker) Disconnect(_ uint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
	b.disconnects++
}

func (b *fakeBroker) Publish(topic string, _ byte, retained bool, payload any) mqtt.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishErr != nil {
		return &fakeToken{err: b.publishErr}
	}
	data, _ := payload.([]byte)
	b.messages = append(b.messages, brokerMessage{topic: topic, payload: data, retained: retained})
	return &fakeToken{}
}

func (*fakeBroker) Subscribe(_ string, _ byte, _ mqtt.MessageHandler) mqtt.Token {
	return &fakeToken{}
}

func (*fakeBroker) SubscribeMultiple(_ map[string]byte, _ mqtt.MessageHandler) mqtt.Token {
	return &fakeToken{}
}

func (*fakeBroker) Unsubscribe(_ ...string) mqtt.Token {
	return &fakeToken{}
}

func (*fakeBroker) AddRoute(_ string, _ mqtt.MessageHandler) {}

func (*fakeBroker) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.ClientOptionsReader{}
}

type fakeToken struct {
	err error
}

func (*fakeToken) Wait() bool { return true }

func (*fakeToken) WaitTimeout(_ time.Duration) bool { return true }

func (*fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (t *fakeToken) Error() error { return t.err }
