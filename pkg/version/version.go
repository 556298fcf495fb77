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

// Package version parses and compares the release versions used to gate
// capture configuration files against the running sysdiff build.
package version

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	sderrors "github.com/NVIDIA/sysdiff/pkg/errors"
)

// Parse failures.
var (
	ErrEmptyVersion      = errors.New("version string is empty")
	ErrTooManyComponents = errors.New("version has more than 3 components")
	ErrNonNumeric        = errors.New("version component is not numeric")
)

// Version is a release number of up to three numeric components. Precision
// records how many components were given, so "1.4" matches any 1.4.x.
type Version struct {
	Major     int    `json:"major" yaml:"major"`
	Minor     int    `json:"minor,omitempty" yaml:"minor,omitempty"`
	Patch     int    `json:"patch,omitempty" yaml:"patch,omitempty"`
	Precision int    `json:"precision" yaml:"precision"`
	Extras    string `json:"extras,omitempty" yaml:"extras,omitempty"`
}

// String renders the significant components without extras.
func (v Version) String() string {
	switch v.Precision {
	case 1:
		return strconv.Itoa(v.Major)
	case 2:
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	default:
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	}
}

// Parse accepts "1", "1.2", "1.2.3" with an optional "v" prefix. Anything
// after a '-' or '+' that follows a digit is kept in Extras, which covers
// pre-release tags and goreleaser snapshot suffixes.
func Parse(s string) (Version, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	if s == "" {
		return Version{}, ErrEmptyVersion
	}

	var v Version
	core := s
	for i := 1; i < len(s); i++ {
		if (s[i] == '-' || s[i] == '+') && s[i-1] >= '0' && s[i-1] <= '9' {
			core, v.Extras = s[:i], s[i:]
			break
		}
	}

	parts := strings.Split(core, ".")
	if len(parts) > 3 {
		return Version{}, ErrTooManyComponents
	}
	nums := []*int{&v.Major, &v.Minor, &v.Patch}
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || strings.HasPrefix(part, "+") {
			return Version{}, fmt.Errorf("%w: %q", ErrNonNumeric, part)
		}
		*nums[i] = n
	}
	v.Precision = len(parts)
	return v, nil
}

// Compare returns -1, 0 or 1 comparing v with other up to the lower of the
// two precisions.
func (v Version) Compare(other Version) int {
	precision := min(v.Precision, other.Precision)
	a := []int{v.Major, v.Minor, v.Patch}
	b := []int{other.Major, other.Minor, other.Patch}
	for i := 0; i < precision; i++ {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

// AtLeast reports whether v is equal to or newer than required, compared at
// the precision of required.
func (v Version) AtLeast(required Version) bool {
	return v.Compare(required) >= 0
}

// IsValid reports whether all components are non-negative and the precision
// is 1, 2 or 3.
func (v Version) IsValid() bool {
	return v.Major >= 0 && v.Minor >= 0 && v.Patch >= 0 &&
		v.Precision >= 1 && v.Precision <= 3
}

// CheckMinimum fails with a configuration error when the running build is
// older than required. Development builds and empty requirements always pass.
func CheckMinimum(running, required string) error {
	if required == "" {
		return nil
	}
	req, err := Parse(required)
	if err != nil {
		return sderrors.WrapWithContext(sderrors.ErrCodeConfiguration,
			"invalid minimum version", err, map[string]any{"required": required})
	}
	cur, err := Parse(running)
	if err != nil {
		slog.Debug("skipping version check for non-release build", "version", running)
		return nil
	}
	if !cur.AtLeast(req) {
		return sderrors.NewWithContext(sderrors.ErrCodeConfiguration,
			"configuration requires a newer sysdiff", map[string]any{
				"required": req.String(),
				"running":  cur.String(),
			})
	}
	return nil
}
