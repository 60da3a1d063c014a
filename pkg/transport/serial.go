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

// Package transport is the serial link to the rig. It turns the byte stream
// from the port into complete text lines and retries opening a port that is
// still busy or not yet enumerated after a reset.
package transport

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

const (
	DefaultBaudRate    = 115200
	DefaultReadTimeout = 100 * time.Millisecond
	DefaultOpenRetries = 5

	readBufferSize = 1024
)

var ErrClosed = errors.New("transport closed")

type SerialPort interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error
	SetReadTimeout(t time.Duration) error
}

type SerialPortFactory func(path string, mode *serial.Mode) (SerialPort, error)

func DefaultSerialPortFactory(path string, mode *serial.Mode) (SerialPort, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return port, nil
}

// Options configures Open. Zero values use the rig defaults.
type Options struct {
	PortFactory SerialPortFactory
	BaudRate    int
	ReadTimeout time.Duration
	OpenRetries int
	// RetryInterval is the first backoff delay between open attempts.
	RetryInterval time.Duration
	SkipStat      bool
}

func (o Options) withDefaults() Options {
	if o.PortFactory == nil {
		o.PortFactory = DefaultSerialPortFactory
	}
	if o.BaudRate <= 0 {
		o.BaudRate = DefaultBaudRate
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = DefaultReadTimeout
	}
	if o.OpenRetries < 0 {
		o.OpenRetries = 0
	} else if o.OpenRetries == 0 {
		o.OpenRetries = DefaultOpenRetries
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = 250 * time.Millisecond
	}
	return o
}

// SerialTransport reads and writes newline-terminated text over a serial
// port. ReadLines must only be called from one goroutine.
type SerialTransport struct {
	port    SerialPort
	path    string
	lineBuf []byte
	readBuf []byte
	closed  atomic.Bool
}

// Open opens the serial device at path in 8N1 mode. Busy or missing ports are
// retried with exponential backoff until the retries run out or ctx is done.
func Open(ctx context.Context, path string, opts Options) (*SerialTransport, error) {
	opts = opts.withDefaults()

	if !opts.SkipStat && runtime.GOOS != "windows" {
		if _, err := os.Stat(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat device path %s: %w", path, err)
		}
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = opts.RetryInterval
	bo.MaxElapsedTime = 0

	var port SerialPort
	err := backoff.RetryNotify(func() error {
		p, err := opts.PortFactory(path, mode)
		if err != nil {
			if !isRetryableOpenError(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		port = p
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(opts.OpenRetries)), ctx),
		func(err error, next time.Duration) {
			log.Warn().Err(err).Str("path", path).Dur("retry_in", next).Msg("serial port not ready, retrying")
		})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}

	if err := port.SetReadTimeout(opts.ReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout on serial port: %w", err)
	}

	log.Info().Str("path", path).Int("baud", opts.BaudRate).Msg("serial port opened")

	return &SerialTransport{
		port:    port,
		path:    path,
		readBuf: make([]byte, readBufferSize),
	}, nil
}

func isRetryableOpenError(err error) bool {
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PortBusy, serial.PortNotFound:
			return true
		default:
			return false
		}
	}
	return errors.Is(err, os.ErrNotExist)
}

func (t *SerialTransport) Path() string {
	return t.path
}

func (t *SerialTransport) Write(p []byte) (int, error) {
	if t.closed.Load() {
		return 0, ErrClosed
	}
	n, err := t.port.Write(p)
	if err != nil {
		if IsDisconnectionError(err) {
			log.Info().Err(err).Str("path", t.path).Msg("device disconnected during write")
		}
		return n, fmt.Errorf("failed to write to port: %w", err)
	}
	return n, nil
}

// ReadLines waits up to the read timeout for data and returns the lines it
// completed. A line cut off mid-read is kept until its terminator arrives.
// Lines that are not valid UTF-8 are dropped.
func (t *SerialTransport) ReadLines() ([]string, error) {
	if t.closed.Load() {
		return nil, ErrClosed
	}
	n, err := t.port.Read(t.readBuf)
	if err != nil {
		return nil, fmt.Errorf("failed to read from serial port: %w", err)
	}

	var lines []string
	for _, b := range t.readBuf[:n] {
		if b != '\n' {
			t.lineBuf = append(t.lineBuf, b)
			continue
		}

		raw := t.lineBuf
		t.lineBuf = nil

		line := strings.TrimRight(string(raw), "\r")
		if !utf8.ValidString(line) {
			log.Warn().Str("path", t.path).Hex("data", raw).Msg("dropping line that is not valid UTF-8")
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Close releases the port. Later calls are no-ops and reads or writes after
// it return ErrClosed.
func (t *SerialTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("failed to close serial port: %w", err)
	}
	return nil
}
