// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package fixup

import (
	"fmt"
	"sort"
	"strings"
)

// TextRange is a half-open byte range [Start, End).
type TextRange struct {
	Start uint32
	End   uint32
}

// NewRange creates a TextRange. Start and End are swapped if reversed.
func NewRange(start, end uint32) TextRange {
	if end < start {
		start, end = end, start
	}
	return TextRange{Start: start, End: end}
}

// RangeAt creates a range of length n starting at offset.
func RangeAt(offset, n uint32) TextRange {
	return TextRange{Start: offset, End: offset + n}
}

// Len returns the number of bytes covered by the range.
func (r TextRange) Len() uint32 {
	return r.End - r.Start
}

// IsEmpty reports whether the range covers no bytes.
func (r TextRange) IsEmpty() bool {
	return r.Start == r.End
}

// Contains reports whether offset lies inside the range.
func (r TextRange) Contains(offset uint32) bool {
	return offset >= r.Start && offset < r.End
}

// String returns the range as "[start, end)".
func (r TextRange) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

// Indel deletes a range and inserts text in its place.
type Indel struct {
	Delete TextRange
	Insert string
}

// TextEdit is a set of non-overlapping indels, ordered by position.
type TextEdit struct {
	Indels []Indel
}

// IsEmpty reports whether the edit changes nothing.
func (e TextEdit) IsEmpty() bool {
	return len(e.Indels) == 0
}

// Len returns the number of indels.
func (e TextEdit) Len() int {
	return len(e.Indels)
}

// Apply applies the edit to text and returns the result.
// Indels must lie within text and must not overlap.
func (e TextEdit) Apply(text string) (string, error) {
	if e.IsEmpty() {
		return text, nil
	}

	indels := make([]Indel, len(e.Indels))
	copy(indels, e.Indels)
	sort.SliceStable(indels, func(i, j int) bool {
		return indels[i].Delete.Start < indels[j].Delete.Start
	})

	var b strings.Builder
	b.Grow(len(text))

	var pos uint32
	size := uint32(len(text)) //nolint:gosec // source texts are far below 4GiB
	for _, in := range indels {
		if in.Delete.End < in.Delete.Start || in.Delete.End > size {
			return "", fmt.Errorf("indel %s out of bounds for text of %d bytes", in.Delete, size)
		}
		if in.Delete.Start < pos {
			return "", fmt.Errorf("indel %s overlaps previous indel ending at %d", in.Delete, pos)
		}
		b.WriteString(text[pos:in.Delete.Start])
		b.WriteString(in.Insert)
		pos = in.Delete.End
	}
	b.WriteString(text[pos:])

	return b.String(), nil
}

// Builder accumulates indels into a TextEdit.
type Builder struct {
	indels []Indel
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Replace replaces r with text.
func (b *Builder) Replace(r TextRange, text string) {
	b.indels = append(b.indels, Indel{Delete: r, Insert: text})
}

// Delete removes r.
func (b *Builder) Delete(r TextRange) {
	b.Replace(r, "")
}

// Insert inserts text at offset.
func (b *Builder) Insert(offset uint32, text string) {
	b.Replace(TextRange{Start: offset, End: offset}, text)
}

// Finish returns the accumulated edit ordered by position.
func (b *Builder) Finish() TextEdit {
	indels := b.indels
	b.indels = nil
	sort.SliceStable(indels, func(i, j int) bool {
		return indels[i].Delete.Start < indels[j].Delete.Start
	})
	return TextEdit{Indels: indels}
}
