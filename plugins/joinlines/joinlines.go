// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package joinlines implements the reference fix-up plugin: joining lines.
//
// A non-empty range joins every line break inside it; consecutive breaks in
// the range are joined as one. An empty range joins the line containing
// Start with the next one. Each break is removed along with the whitespace
// around it, and a single space takes its place unless
// the join lands next to a bracket, a method call dot or the end of text.
// A trailing comma directly before a closing bracket is dropped as well.
package joinlines

import (
	"strings"

	"github.com/holomush/hotswap/pkg/fixup"
)

// Fixer joins lines. The zero value is ready to use.
type Fixer struct{}

// Compile-time interface check.
var _ fixup.Fixer = Fixer{}

// New returns a Fixer.
func New() fixup.Fixer {
	return Fixer{}
}

// Fix implements fixup.Fixer. Ranges past the end of source are clamped.
func (Fixer) Fix(source string, r fixup.TextRange) (fixup.TextEdit, error) {
	size := uint32(len(source)) //nolint:gosec // source texts are far below 4GiB
	r = fixup.NewRange(min(r.Start, size), min(r.End, size))

	if r.IsEmpty() {
		i := strings.IndexByte(source[r.Start:], '\n')
		if i < 0 {
			return fixup.TextEdit{}, nil
		}
		r = fixup.RangeAt(r.Start+uint32(i), 1) //nolint:gosec // bounded by size
	}

	b := fixup.NewBuilder()
	var done uint32
	for p := r.Start; p < r.End; p++ {
		if source[p] != '\n' || p < done {
			continue
		}
		del, insert := joinAt(source, p, r.End, done)
		b.Replace(del, insert)
		done = del.End
	}
	return b.Finish(), nil
}

// joinAt computes the edit removing the line break at p, together with any
// further breaks before end that follow it with only blanks in between.
// floor is the end of the previous edit, which this one must not overlap.
// Bytes on either side of the edit are never part of another edit.
func joinAt(source string, p, end, floor uint32) (fixup.TextRange, string) {
	size := uint32(len(source)) //nolint:gosec // source texts are far below 4GiB

	left := p
	for left > floor && isBlank(source[left-1]) {
		left--
	}
	right := p + 1
	for right < size && (isBlank(source[right]) || (source[right] == '\n' && right < end)) {
		right++
	}

	var prev, next byte
	if left > 0 {
		prev = source[left-1]
	}
	if right < size {
		next = source[right]
	}

	if prev == ',' && isClosing(next) {
		return fixup.NewRange(left-1, right), ""
	}
	if right == size || next == '\n' || isOpening(prev) || isClosing(next) || next == '.' {
		return fixup.NewRange(left, right), ""
	}
	return fixup.NewRange(left, right), " "
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r'
}

func isOpening(c byte) bool {
	return c == '(' || c == '[' || c == '{'
}

func isClosing(c byte) bool {
	return c == ')' || c == ']' || c == '}'
}
