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

package protocol

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrNotRecord is returned for lines that are not a flat key-value record.
var ErrNotRecord = errors.New("line is not a key-value record")

// Firmware record keys.
const (
	KeyTube1Distance = "Tube1_sonar_dist_mm"
	KeyTube2Distance = "Tube2_sonar_dist_mm"
	KeyTube1Inflow   = "Tube1_inflow_duty"
	KeyTube1Outflow  = "Tube1_outflow_duty"
	KeyTube2Inflow   = "Tube2_inflow_duty"
	KeyTube2Outflow  = "Tube2_outflow_duty"
	KeyStreamInflow  = "Stream_inflow_duty"
	KeyStreamOutflow = "Stream_outflow_duty"
)

// Record is a decoded telemetry line.
type Record map[string]float64

// LooksLikeRecord is the cheap structural check used while waiting for a
// response; ParseRecord does the real work.
func LooksLikeRecord(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), RecordOpen)
}

// ParseRecord decodes a line such as
//
//	{'Tube1_sonar_dist_mm': 412.5, "Tube1_inflow_duty": 0, Stream_inflow_duty: 40}
//
// Keys may be bare or quoted. Values must be numbers or true/false.
func ParseRecord(line string) (Record, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, RecordOpen) || !strings.HasSuffix(line, RecordClose) {
		return nil, ErrNotRecord
	}

	body := strings.TrimSpace(line[1 : len(line)-1])
	if body == "" {
		return nil, fmt.Errorf("%w: empty record", ErrNotRecord)
	}

	rec := make(Record)
	for _, pair := range strings.Split(body, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			// trailing comma
			continue
		}

		k, v, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("%w: pair without separator: %q", ErrNotRecord, pair)
		}

		key := strings.Trim(strings.TrimSpace(k), `'"`)
		if key == "" {
			return nil, fmt.Errorf("%w: empty key in %q", ErrNotRecord, pair)
		}

		val, err := parseValue(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("%w: key %s: %w", ErrNotRecord, key, err)
		}
		rec[key] = val
	}

	if len(rec) == 0 {
		return nil, fmt.Errorf("%w: no fields", ErrNotRecord)
	}

	return rec, nil
}

func parseValue(s string) (float64, error) {
	switch strings.ToLower(strings.Trim(s, `'"`)) {
	case "true":
		return 1, nil
	case "false":
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite number %q", s)
	}
	return f, nil
}
