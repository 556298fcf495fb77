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
)

func FuzzParse(f *testing.F) {
	for _, seed := range []string{
		"1", "v1.2", "1.2.3", "0.0.0", "999.999.999", "", ".", "1.", ".1",
		"1..2", "v", "vv1", "-1", "1.-2", "a.b.c", "1.2.3.4", " 1.2.3 ", "1.2.3-rc1",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		v, err := Parse(input)
		if err != nil {
			return
		}
		if !v.IsValid() {
			t.Errorf("Parse(%q) returned invalid version: %+v", input, v)
		}

		again, err := Parse(v.String())
		if err != nil {
			t.Errorf("re-parsing %q (from %q) failed: %v", v.String(), input, err)
			return
		}
		if again.Major != v.Major || again.Minor != v.Minor || again.Patch != v.Patch || again.Precision != v.Precision {
			t.Errorf("round trip mismatch for %q: %+v != %+v", input, v, again)
		}
		if v.Compare(v) != 0 {
			t.Errorf("%+v does not compare equal to itself", v)
		}
	})
}
