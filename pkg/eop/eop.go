// Package eop finds end-of-packet markers in received bytes.
//
// Search uses a precomputed failure function (prefix function), so a scan is
// linear in the haystack plus the pattern and never steps back over bytes it
// has already consumed.
package eop

import (
	"bytes"
	"fmt"
)

// NotFound is returned by the index functions when the pattern does not occur.
const NotFound = -1

// Pattern is a compiled terminator. The zero value matches nothing.
type Pattern struct {
	needle  []byte
	failure []int
}

// Compile copies needle and precomputes its failure table.
func Compile(needle []byte) Pattern {
	n := make([]byte, len(needle))
	copy(n, needle)
	return Pattern{needle: n, failure: failureTable(n)}
}

// Len returns the terminator length in bytes.
func (p Pattern) Len() int {
	return len(p.needle)
}

// Bytes returns the terminator bytes. Callers must not modify them.
func (p Pattern) Bytes() []byte {
	return p.needle
}

// Index returns the offset of the first occurrence of the pattern that lies
// entirely within haystack[from:upTo], or NotFound.
func (p Pattern) Index(haystack []byte, from, upTo int) int {
	if len(p.needle) == 0 || len(haystack) == 0 || from < 0 || from >= len(haystack) {
		return NotFound
	}
	if upTo > len(haystack) {
		upTo = len(haystack)
	}

	j := 0
	for i := from; i < upTo; i++ {
		for j > 0 && p.needle[j] != haystack[i] {
			j = p.failure[j-1]
		}
		if p.needle[j] == haystack[i] {
			j++
		}
		if j == len(p.needle) {
			return i - len(p.needle) + 1
		}
	}
	return NotFound
}

// IndexOf is the one-shot form of Compile(needle).Index(haystack, from, upTo).
func IndexOf(haystack, needle []byte, from, upTo int) int {
	if len(needle) == 0 {
		return NotFound
	}
	return Pattern{needle: needle, failure: failureTable(needle)}.Index(haystack, from, upTo)
}

// failureTable computes, for every i, the length of the longest proper prefix
// of needle[:i+1] that is also its suffix.
func failureTable(needle []byte) []int {
	failure := make([]int, len(needle))
	j := 0
	for i := 1; i < len(needle); i++ {
		for j > 0 && needle[j] != needle[i] {
			j = failure[j-1]
		}
		if needle[j] == needle[i] {
			j++
		}
		failure[i] = j
	}
	return failure
}

// Parse converts the terminator forms accepted by device media into a list of
// candidates: a byte, a rune, a string, a []byte, or a slice of any of those.
// A nil value yields no candidates.
func Parse(value any) ([][]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case byte:
		return [][]byte{{v}}, nil
	case rune:
		if v < 0 || v > 0xFF {
			return nil, fmt.Errorf("eop rune %q does not fit in one byte", v)
		}
		return [][]byte{{byte(v)}}, nil
	case string:
		return single([]byte(v))
	case []byte:
		return single(v)
	case [][]byte:
		return many(len(v), func(i int) any { return v[i] })
	case []string:
		return many(len(v), func(i int) any { return v[i] })
	case []any:
		return many(len(v), func(i int) any { return v[i] })
	default:
		return nil, fmt.Errorf("unsupported eop type %T", value)
	}
}

func single(b []byte) ([][]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("empty eop")
	}
	out := make([]byte, len(b))
	copy(out, b)
	return [][]byte{out}, nil
}

func many(n int, at func(int) any) ([][]byte, error) {
	out := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		c, err := Parse(at(i))
		if err != nil {
			return nil, fmt.Errorf("eop candidate %d: %w", i, err)
		}
		out = append(out, c...)
	}
	return out, nil
}

// Trim removes the first candidate that suffixes frame. Frames delivered by
// the receiver include their terminator; Trim is for callers that want it off.
func Trim(frame []byte, candidates [][]byte) []byte {
	for _, c := range candidates {
		if len(c) > 0 && bytes.HasSuffix(frame, c) {
			return frame[:len(frame)-len(c)]
		}
	}
	return frame
}
