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

	"github.com/claire-rig/claire-driver/pkg/protocol"
	"github.com/rs/zerolog/log"
)

func (s *Session) watchdogLoop(ctx context.Context) {
	ticker := s.clock.NewTicker(s.opts.WatchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}

		// skip while the device is silent or a command is in flight
		if !s.IsAlive() || s.IsBusy() || s.cycle.Held() {
			continue
		}

		if _, err := s.checkUnderflow(ctx); err != nil {
			log.Error().Err(err).Str("session", s.id).Msg("underflow check failed")
		}
	}
}

// checkUnderflow stops the outflow pump of the first tube that is being
// drained below the threshold with nothing flowing in. It returns the
// corrected tube or TubeAll when nothing needed doing.
func (s *Session) checkUnderflow(ctx context.Context) (protocol.Tube, error) {
	state, err := s.GetCachedOrRefresh(ctx)
	if err != nil {
		return protocol.TubeAll, err
	}

	for _, tube := range protocol.Tubes {
		level, err := state.Level(tube)
		if err != nil {
			log.Warn().Err(err).Msg("skipping underflow check on faulty sensor")
			continue
		}
		if level >= s.opts.UnderflowThresholdMM ||
			state.OutflowDuty(tube) == 0 ||
			state.InflowDuty(tube) != 0 {
			continue
		}

		log.Warn().
			Int("tube", int(tube)).
			Float64("level", level).
			Int("outflow", state.OutflowDuty(tube)).
			Msg("underflow risk, stopping outflow")

		if err := s.SetOutflow(ctx, tube, 0); err != nil {
			return protocol.TubeAll, err
		}
		s.opts.Metrics.intervention(int(tube))
		s.emit(Event{Method: EventWatchdogIntervened, Tube: int(tube)})
		return tube, nil
	}

	return protocol.TubeAll, nil
}
