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

package diff

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// TokenDiffFunc renders the difference between a before and an after token.
type TokenDiffFunc func(before, after string) string

// separators matches runs of non-word characters.
var separators = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// Tokenize splits line into alternating word and separator tokens. The first
// and last tokens are always words, possibly empty, so strings.Join(tokens, "")
// reproduces line exactly.
func Tokenize(line string) []string {
	matches := separators.FindAllStringIndex(line, -1)
	tokens := make([]string, 0, 2*len(matches)+1)
	prev := 0
	for _, m := range matches {
		tokens = append(tokens, line[prev:m[0]], line[m[0]:m[1]])
		prev = m[1]
	}
	return append(tokens, line[prev:])
}

// DiffTokens returns after when both tokens are whitespace, the token itself
// when unchanged, and "[before -> after]" otherwise.
func DiffTokens(before, after string) string {
	if isSpace(before) && isSpace(after) {
		return after
	}
	if before == after {
		return after
	}
	return fmt.Sprintf("[%s -> %s]", before, after)
}

// DeltaTokens behaves like DiffTokens except that two unsigned integer tokens
// are rendered as their signed difference, including "0" when equal.
func DeltaTokens(before, after string) string {
	if isDigits(before) && isDigits(after) {
		b, errB := strconv.ParseInt(before, 10, 64)
		a, errA := strconv.ParseInt(after, 10, 64)
		if errB == nil && errA == nil {
			return strconv.FormatInt(a-b, 10)
		}
	}
	return DiffTokens(before, after)
}

func isSpace(s string) bool {
	return s != "" && strings.TrimSpace(s) == ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// wordCount returns the number of tokens that are not pure whitespace.
func wordCount(tokens []string) int {
	n := 0
	for _, t := range tokens {
		if strings.TrimSpace(t) != "" {
			n++
		}
	}
	return n
}

// Option configures Tree and Table.
type Option func(*options)

type options struct {
	tokenDiff TokenDiffFunc
}

// WithTokenDiff replaces the token annotation function. The default is DiffTokens.
func WithTokenDiff(fn TokenDiffFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.tokenDiff = fn
		}
	}
}

func newOptions(opts []Option) *options {
	o := &options{tokenDiff: DiffTokens}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
