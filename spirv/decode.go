package spirv

import (
	"encoding/binary"
	"fmt"

	"fortio.org/safecast"

	spverrors "github.com/wippyai/spvkernel/errors"
	bin "github.com/wippyai/spvkernel/spirv/internal/binary"
)

// DecodeHeader validates and returns the module header.
func DecodeHeader(words []uint32) (Header, error) {
	if len(words) < HeaderWords {
		return Header{}, spverrors.MalformedHeader(
			fmt.Sprintf("need %d header words, have %d", HeaderWords, len(words)), nil)
	}
	h := Header{
		Magic:     words[0],
		Version:   words[1],
		Generator: words[2],
		Bound:     words[3],
		Schema:    words[4],
	}
	if h.Magic != Magic {
		return Header{}, spverrors.MalformedHeader(fmt.Sprintf("bad magic 0x%08x", h.Magic), nil)
	}
	return h, nil
}

// Scan walks the instruction stream after the header and calls visit for each
// instruction. operands is a view into words and must not be retained.
// Scan stops at the first error returned by visit.
func Scan(words []uint32, visit func(op Opcode, operands []uint32, offset int) error) error {
	if _, err := DecodeHeader(words); err != nil {
		return err
	}
	r := bin.NewWordReader(words)
	if err := r.Skip(HeaderWords); err != nil {
		return spverrors.Wrap(spverrors.PhaseHeader, spverrors.KindMalformedHeader, err, "skip header")
	}
	for r.Remaining() > 0 {
		offset := r.Position()
		first, err := r.Next()
		if err != nil {
			return spverrors.Wrap(spverrors.PhaseDecode, spverrors.KindTruncatedStream, err, "read opcode")
		}
		count := int(first >> 16)
		op := Opcode(first & 0xffff)
		if count == 0 {
			return spverrors.New(spverrors.PhaseDecode, spverrors.KindMalformedBinary).
				Value(offset).
				Detail("%s at word %d has zero word count", op, offset).
				Build()
		}
		if count-1 > r.Remaining() {
			return spverrors.TruncatedStream(spverrors.PhaseDecode, offset, count, r.Remaining()+1)
		}
		operands, err := r.Read(count - 1)
		if err != nil {
			return spverrors.Wrap(spverrors.PhaseDecode, spverrors.KindTruncatedStream, err, op.String())
		}
		if err := visit(op, operands, offset); err != nil {
			return err
		}
	}
	return nil
}

// Decode decodes a word stream into a Module that owns copies of all operands.
func Decode(words []uint32) (*Module, error) {
	h, err := DecodeHeader(words)
	if err != nil {
		return nil, err
	}
	m := &Module{Header: h}
	err = Scan(words, func(op Opcode, operands []uint32, _ int) error {
		ops := make([]uint32, len(operands))
		copy(ops, operands)
		m.Instructions = append(m.Instructions, Instruction{Opcode: op, Operands: ops})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeBytes decodes a byte image of either endianness.
func DecodeBytes(data []byte) (*Module, error) {
	words, err := WordsFromBytes(data)
	if err != nil {
		return nil, err
	}
	return Decode(words)
}

// WordsFromBytes converts a byte image to words, detecting endianness from
// the magic number. A length that is not a multiple of four is a truncated
// stream.
func WordsFromBytes(data []byte) ([]uint32, error) {
	if len(data)%4 != 0 {
		return nil, spverrors.New(spverrors.PhaseHeader, spverrors.KindTruncatedStream).
			Value(len(data)).
			Detail("byte length %d is not a multiple of 4", len(data)).
			Build()
	}
	if len(data) < 4 {
		return nil, spverrors.MalformedHeader("empty module", nil)
	}
	var order binary.ByteOrder = binary.LittleEndian
	switch binary.LittleEndian.Uint32(data) {
	case Magic:
	case MagicSwapped:
		order = binary.BigEndian
	default:
		return nil, spverrors.MalformedHeader(
			fmt.Sprintf("bad magic 0x%08x", binary.LittleEndian.Uint32(data)), nil)
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = order.Uint32(data[i*4:])
	}
	return words, nil
}

// Words encodes the module back into a word stream.
func (m *Module) Words() ([]uint32, error) {
	n := HeaderWords
	for _, inst := range m.Instructions {
		n += inst.WordCount()
	}
	words := make([]uint32, 0, n)
	words = append(words, m.Header.Magic, m.Header.Version, m.Header.Generator, m.Header.Bound, m.Header.Schema)
	for idx, inst := range m.Instructions {
		count, err := safecast.Conv[uint16](inst.WordCount())
		if err != nil {
			return nil, spverrors.New(spverrors.PhaseRewrite, spverrors.KindMalformedBinary).
				Value(idx).
				Cause(err).
				Detail("%s has %d words", inst.Opcode, inst.WordCount()).
				Build()
		}
		words = append(words, uint32(count)<<16|uint32(inst.Opcode))
		words = append(words, inst.Operands...)
	}
	return words, nil
}

// Encode encodes the module as little-endian bytes.
func (m *Module) Encode() ([]byte, error) {
	words, err := m.Words()
	if err != nil {
		return nil, err
	}
	return WordsToBytes(words), nil
}

// WordsToBytes encodes words as little-endian bytes.
func WordsToBytes(words []uint32) []byte {
	w := bin.NewWordWriter(len(words))
	w.Words(words)
	return w.Bytes()
}

// DecodeString decodes a literal string operand and returns the number of
// words it occupies. ok is false when no terminator was found.
func DecodeString(words []uint32) (s string, n int, ok bool) {
	return bin.DecodeString(words)
}

// EncodeString packs s as a literal string operand.
func EncodeString(s string) []uint32 {
	return bin.EncodeString(s)
}

func decodeLiteral(words []uint32) (string, int, bool) {
	return bin.DecodeString(words)
}
