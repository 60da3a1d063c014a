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
	"strings"

	"github.com/claire-rig/claire-driver/pkg/protocol"
	"github.com/rs/zerolog/log"
)

// readLoop drains the transport until ctx is cancelled. It is the only writer
// of the line log and the only task that clears the busy flag.
func (s *Session) readLoop(ctx context.Context) {
	failing := false
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		lines, err := s.transport.ReadLines()
		if err != nil {
			if !failing {
				log.Warn().Err(err).Str("session", s.id).Msg("failed to read from device")
				failing = true
			} else {
				log.Debug().Err(err).Str("session", s.id).Msg("read still failing")
			}
			s.pause(ctx)
			continue
		}
		if failing {
			log.Info().Str("session", s.id).Msg("device reads recovered")
			failing = false
		}

		for _, line := range lines {
			s.handleLine(line)
		}
	}
}

func (s *Session) handleLine(line string) {
	idx := s.lines.Append(line)
	s.liveness.Touch()
	s.opts.Metrics.lineReceived()

	if strings.TrimSpace(line) == protocol.ReadySentinel {
		s.busy.Store(false)
	}

	if s.opts.EchoLines {
		log.Info().Str("session", s.id).Int("line", idx).Msg(line)
	}
	if s.opts.LineObserver != nil {
		s.opts.LineObserver(idx, line)
	}
}

func (s *Session) pause(ctx context.Context) {
	t := s.clock.NewTimer(s.opts.PollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.Chan():
	}
}
