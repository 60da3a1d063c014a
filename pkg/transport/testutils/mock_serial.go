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

// Package testutils provides a scriptable serial port for transport tests.
package testutils

import (
	"errors"
	"time"

	"github.com/claire-rig/claire-driver/pkg/helpers/syncutil"
)

type MockSerialPort struct {
	ReadError  error
	WriteError error
	CloseError error
	TimeoutErr error
	ReadFunc   func(p []byte) (n int, err error)
	ReadChunks [][]byte
	written    []byte
	Closed     bool
	mu         syncutil.RWMutex
}

func NewMockSerialPort(chunks ...[]byte) *MockSerialPort {
	return &MockSerialPort{ReadChunks: chunks}
}

// Read hands out one queued chunk per call and returns 0, nil once the queue
// is empty, like a port whose read timeout expired.
func (m *MockSerialPort) Read(p []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Closed {
		return 0, errors.New("port closed")
	}
	if m.ReadFunc != nil {
		return m.ReadFunc(p)
	}
	if m.ReadError != nil {
		return 0, m.ReadError
	}
	if len(m.ReadChunks) == 0 {
		return 0, nil
	}

	n = copy(p, m.ReadChunks[0])
	if n < len(m.ReadChunks[0]) {
		m.ReadChunks[0] = m.ReadChunks[0][n:]
	} else {
		m.ReadChunks = m.ReadChunks[1:]
	}
	return n, nil
}

func (m *MockSerialPort) Write(p []byte) (n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteError != nil {
		return 0, m.WriteError
	}
	m.written = append(m.written, p...)
	return len(p), nil
}

func (m *MockSerialPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return m.CloseError
}

func (m *MockSerialPort) SetReadTimeout(_ time.Duration) error {
	return m.TimeoutErr
}

func (m *MockSerialPort) Written() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return string(m.written)
}

func (m *MockSerialPort) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Closed
}
