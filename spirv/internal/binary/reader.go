package binary

import (
	"errors"
	"fmt"
)

// ErrOutOfBounds is returned when a read runs past the declared word count.
var ErrOutOfBounds = errors.New("read past end of word stream")

// WordReader is a bounds-checked cursor over a SPIR-V word stream.
// It never copies or retains ownership of the underlying slice.
type WordReader struct {
	words []uint32
	pos   int
}

// NewWordReader creates a WordReader over words.
func NewWordReader(words []uint32) *WordReader {
	return &WordReader{words: words}
}

// Position returns the index of the next word to be read.
func (r *WordReader) Position() int {
	return r.pos
}

// Len returns the declared word count.
func (r *WordReader) Len() int {
	return len(r.words)
}

// Remaining returns the number of unread words.
func (r *WordReader) Remaining() int {
	return len(r.words) - r.pos
}

// Next reads one word and advances.
func (r *WordReader) Next() (uint32, error) {
	if r.pos >= len(r.words) {
		return 0, r.outOfBounds(1)
	}
	w := r.words[r.pos]
	r.pos++
	return w, nil
}

// Peek returns the next word without advancing.
func (r *WordReader) Peek() (uint32, error) {
	if r.pos >= len(r.words) {
		return 0, r.outOfBounds(1)
	}
	return r.words[r.pos], nil
}

// Skip advances past n words.
func (r *WordReader) Skip(n int) error {
	if n < 0 || n > r.Remaining() {
		return r.outOfBounds(n)
	}
	r.pos += n
	return nil
}

// Read returns the next n words as a view into the underlying slice.
// The view is only valid while the caller owns the stream.
func (r *WordReader) Read(n int) ([]uint32, error) {
	if n < 0 || n > r.Remaining() {
		return nil, r.outOfBounds(n)
	}
	view := r.words[r.pos : r.pos+n : r.pos+n]
	r.pos += n
	return view, nil
}

func (r *WordReader) outOfBounds(n int) error {
	return &ParseError{
		Position: r.pos,
		Err:      fmt.Errorf("%w: want %d words, %d remain", ErrOutOfBounds, n, r.Remaining()),
	}
}

// ParseError represents an error during word stream parsing with position information.
type ParseError struct {
	Err      error
	Position int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("spirv: at word %d: %v", e.Position, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// DecodeString decodes a nul-terminated UTF-8 literal packed little-endian
// into words. It returns the string and the number of words consumed.
func DecodeString(words []uint32) (string, int, bool) {
	buf := make([]byte, 0, len(words)*4)
	for i, w := range words {
		for shift := 0; shift < 32; shift += 8 {
			b := byte(w >> shift)
			if b == 0 {
				return string(buf), i + 1, true
			}
			buf = append(buf, b)
		}
	}
	return string(buf), len(words), false
}
