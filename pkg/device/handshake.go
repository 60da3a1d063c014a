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
	"context"
	"fmt"

	"github.com/claire-rig/claire-driver/pkg/protocol"
	"github.com/rs/zerolog/log"
)

// handshake waits for the firmware's first ready sentinel and checks the
// greeting it printed on reset.
func (s *Session) handshake(ctx context.Context) error {
	deadline := s.clock.Now().Add(s.opts.HandshakeTimeout)
	ticker := s.clock.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for s.busy.Load() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for device: %w", ctx.Err())
		case <-ticker.Chan():
		}
		if s.busy.Load() && !s.clock.Now().Before(deadline) {
			s.opts.Metrics.timeout()
			return fmt.Errorf(
				"%w: device not ready after %s", ErrCommunicationTimeout, s.opts.HandshakeTimeout,
			)
		}
	}

	return s.checkGreeting()
}

func (s *Session) checkGreeting() error {
	first, ok := s.lines.First()
	if !ok {
		return ErrNoGreeting
	}

	greeting, err := protocol.ParseGreeting(first)
	if err != nil {
		log.Error().Str("line", first).Msg("unrecognised device greeting")
		return fmt.Errorf("%w: %w", ErrProtocolVersionMismatch, err)
	}

	if greeting.Version != s.opts.ExpectedVersion {
		return fmt.Errorf(
			"%w: device runs %s, driver expects %s",
			ErrProtocolVersionMismatch, greeting.Version, s.opts.ExpectedVersion,
		)
	}

	s.greeting = greeting
	return nil
}
