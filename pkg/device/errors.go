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

package device

import (
	"errors"
	"fmt"
	"strings"

	"github.com/claire-rig/claire-driver/pkg/validation"
)

var (
	// ErrSensorFault is returned when a sonar reported its fault sentinel and no
	// level can be derived.
	ErrSensorFault = errors.New("sensor fault")
	// ErrCommunicationTimeout is returned when the device did not answer or did
	// not become idle in time.
	ErrCommunicationTimeout = errors.New("communication timeout")
	// ErrMalformedState is returned when a response could not be decoded into a
	// device state.
	ErrMalformedState = errors.New("malformed state")
	// ErrProtocolVersionMismatch is returned when the firmware version differs
	// from the expected one.
	ErrProtocolVersionMismatch = errors.New("protocol version mismatch")
	// ErrNoGreeting is returned when the device became ready without printing
	// its banner.
	ErrNoGreeting = errors.New("no greeting received from device")
	// ErrDeviceBusy is returned to non-blocking callers while a request is
	// outstanding.
	ErrDeviceBusy = errors.New("device busy")
	// ErrSessionClosed is returned for operations on a closed session.
	ErrSessionClosed = errors.New("session closed")
	// ErrInvalidArgument matches every *ArgumentError.
	ErrInvalidArgument = errors.New("invalid argument")
)

// ArgumentError reports a tube, rate or level outside its valid range. It is
// raised before anything is written to the device.
type ArgumentError struct {
	Op     string
	Fields []validation.FieldError
}

func (e *ArgumentError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return fmt.Sprintf("%s: invalid argument: %s", e.Op, strings.Join(msgs, "; "))
}

func (*ArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// validateArgs runs struct validation and converts failures into an
// *ArgumentError for op.
func validateArgs(op string, params any) error {
	err := validation.Validate(params)
	if err == nil {
		return nil
	}
	var ve *validation.Error
	if errors.As(err, &ve) {
		return &ArgumentError{Op: op, Fields: ve.Fields}
	}
	return fmt.Errorf("%s: %w", op, err)
}
