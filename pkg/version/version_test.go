// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/sysdiff/pkg/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Version
		wantErr error
	}{
		{in: "1", want: Version{Major: 1, Precision: 1}},
		{in: "v1.4", want: Version{Major: 1, Minor: 4, Precision: 2}},
		{in: "0.3.12", want: Version{Minor: 3, Patch: 12, Precision: 3}},
		{in: "v0.3.0-next", want: Version{Minor: 3, Precision: 3, Extras: "-next"}},
		{in: "1.2.3+abc123", want: Version{Major: 1, Minor: 2, Patch: 3, Precision: 3, Extras: "+abc123"}},
		{in: "", wantErr: ErrEmptyVersion},
		{in: "dev", wantErr: ErrNonNumeric},
		{in: "1.2.3.4", wantErr: ErrTooManyComponents},
		{in: "1..2", wantErr: ErrNonNumeric},
		{in: "1.-2", wantErr: ErrNonNumeric},
		{in: "1.+2", wantErr: ErrNonNumeric},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.IsValid())
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.2.3", "1.2.3", 0},
		{"1.2.3", "1.2.4", -1},
		{"1.3.0", "1.2.9", 1},
		{"2", "1.9.9", 1},
		{"1.2", "1.2.7", 0},
		{"0.9.1", "1", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			a, err := Parse(tt.a)
			require.NoError(t, err)
			b, err := Parse(tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, a.Compare(b))
			assert.Equal(t, -tt.want, b.Compare(a))
		})
	}
}

func TestString(t *testing.T) {
	v, err := Parse("v1.2.3-rc1")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3", v.String())

	v.Precision = 2
	assert.Equal(t, "1.2", v.String())
	v.Precision = 1
	assert.Equal(t, "1", v.String())
}

func TestCheckMinimum(t *testing.T) {
	tests := []struct {
		name     string
		running  string
		required string
		wantErr  bool
	}{
		{name: "no requirement", running: "0.1.0", required: ""},
		{name: "satisfied", running: "v0.4.2", required: "0.4"},
		{name: "exact", running: "0.4.0", required: "0.4.0"},
		{name: "too old", running: "0.3.9", required: "0.4", wantErr: true},
		{name: "dev build", running: "dev", required: "9.9.9"},
		{name: "bad requirement", running: "0.4.0", required: "latest", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckMinimum(tt.running, tt.required)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.ErrCodeConfiguration))
		})
	}
}
