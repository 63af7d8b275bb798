package binary

import (
	"bytes"
	"encoding/binary"
)

// WordWriter provides buffered writing utilities for SPIR-V binary encoding.
type WordWriter struct {
	buf *bytes.Buffer
}

// NewWordWriter creates a new WordWriter with room for sizeHint words.
func NewWordWriter(sizeHint int) *WordWriter {
	b := &bytes.Buffer{}
	if sizeHint > 0 {
		b.Grow(sizeHint * 4)
	}
	return &WordWriter{buf: b}
}

// Bytes returns the written bytes.
func (w *WordWriter) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the number of words written.
func (w *WordWriter) Len() int {
	return w.buf.Len() / 4
}

// Word writes one little-endian word.
func (w *WordWriter) Word(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	w.buf.Write(buf[:])
}

// Words writes a sequence of words.
func (w *WordWriter) Words(vs []uint32) {
	for _, v := range vs {
		w.Word(v)
	}
}

// EncodeString packs s as a nul-terminated literal padded to a word boundary.
func EncodeString(s string) []uint32 {
	n := len(s)/4 + 1
	words := make([]uint32, n)
	for i := 0; i < len(s); i++ {
		words[i/4] |= uint32(s[i]) << (8 * (i % 4))
	}
	return words
}
