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

package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rateParams struct {
	Tube int `validate:"tube"`
	Rate int `validate:"gte=0,lte=100"`
}

type timingParams struct {
	Timeout string `validate:"required,duration"`
}

func TestValidate_Tube(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		tube    int
		wantErr bool
	}{
		{name: "tube 1", tube: 1},
		{name: "tube 2", tube: 2},
		{name: "tube 0", tube: 0, wantErr: true},
		{name: "tube 3", tube: 3, wantErr: true},
		{name: "negative", tube: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Validate(rateParams{Tube: tt.tube, Rate: 50})
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}

			var ve *Error
			require.True(t, errors.As(err, &ve))
			require.Len(t, ve.Fields, 1)
			assert.Equal(t, "Tube", ve.Fields[0].Field)
			assert.Equal(t, "tube", ve.Fields[0].Tag)
			assert.Contains(t, err.Error(), "tube must be 1 or 2")
		})
	}
}

func TestValidate_RangeMessages(t *testing.T) {
	t.Parallel()

	err := Validate(rateParams{Tube: 3, Rate: 101})
	var ve *Error
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Fields, 2)
	assert.Equal(t, "lte", ve.Fields[1].Tag)
	assert.Equal(t, "100", ve.Fields[1].Param)
	assert.Contains(t, err.Error(), "rate must be <= 100, got 101")
}

func TestValidate_Duration(t *testing.T) {
	t.Parallel()

	require.NoError(t, Validate(timingParams{Timeout: "10s"}))
	require.Error(t, Validate(timingParams{Timeout: "soon"}))
	require.Error(t, Validate(timingParams{Timeout: "-1s"}))
	require.Error(t, Validate(timingParams{Timeout: ""}))
}

func TestError_Empty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "validation failed", (&Error{}).Error())
}

func TestValidate_UsesTOMLKeyNames(t *testing.T) {
	t.Parallel()

	type section struct {
		Interval string `toml:"poll_interval,omitempty" validate:"duration"`
	}

	err := Validate(section{Interval: "never"})
	var ve *Error
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Fields, 1)
	assert.Equal(t, "poll_interval", ve.Fields[0].Field)
}
