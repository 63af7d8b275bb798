package spirv

import (
	"fmt"

	spverrors "github.com/wippyai/spvkernel/errors"
)

// AtomicFix records one rewritten compare-exchange instruction.
type AtomicFix struct {
	Offset     int // word offset of the instruction
	Result     uint32
	OldType    uint32
	NewType    uint32
	WasWeak    bool
	TypeFixed  bool
	OldOpcode  Opcode
	WordLength int
}

// ApplyAtomicCmpXchgWorkaround rewrites compare-exchange instructions some
// producers emit with the deprecated Weak opcode or with a result type that
// differs from the integer type the pointer operand points to. The output
// is a little-endian byte stream of the same length as words; only the
// opcode word and result type operand of targeted instructions change.
func ApplyAtomicCmpXchgWorkaround(words []uint32) ([]byte, error) {
	patched, _, err := PatchAtomicCmpXchg(words)
	if err != nil {
		return nil, err
	}
	return WordsToBytes(patched), nil
}

// PatchAtomicCmpXchg is ApplyAtomicCmpXchgWorkaround on words. The input is
// never modified. When nothing needs fixing the returned slice is a copy of
// words and fixes is empty.
func PatchAtomicCmpXchg(words []uint32) ([]uint32, []AtomicFix, error) {
	ints := make(map[uint32]bool)
	pointee := make(map[uint32]uint32)
	valueType := make(map[uint32]uint32)
	type site struct {
		offset int
		inst   Instruction
	}
	var sites []site

	err := Scan(words, func(op Opcode, operands []uint32, offset int) error {
		inst := Instruction{Opcode: op, Operands: operands}
		switch op {
		case OpTypeInt:
			if len(operands) >= 1 {
				ints[operands[0]] = true
			}
		case OpTypePointer:
			if len(operands) >= 3 {
				pointee[operands[0]] = operands[2]
			}
		case OpAtomicCompareExchange, OpAtomicCompareExchangeWeak:
			if len(operands) < 8 {
				return spverrors.MalformedBinary(spverrors.PhaseWorkaround,
					fmt.Sprintf("%s at word %d: want 8 operands, have %d", op, offset, len(operands)))
			}
			sites = append(sites, site{offset: offset, inst: inst})
		}
		if rt, ok := inst.ResultType(); ok {
			if id, ok := inst.ResultID(); ok {
				valueType[id] = rt
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("atomic workaround: %w", err)
	}

	out := make([]uint32, len(words))
	copy(out, words)

	var fixes []AtomicFix
	for _, s := range sites {
		resultType := s.inst.Operands[0]
		ptr := s.inst.Operands[2]
		elem, known := pointee[valueType[ptr]]
		if known && !ints[elem] {
			known = false
		}
		weak := s.inst.Opcode == OpAtomicCompareExchangeWeak
		typeFix := known && elem != resultType
		if !weak && !typeFix {
			continue
		}
		fix := AtomicFix{
			Offset:     s.offset,
			Result:     s.inst.Operands[1],
			OldType:    resultType,
			NewType:    resultType,
			OldOpcode:  s.inst.Opcode,
			WasWeak:    weak,
			TypeFixed:  typeFix,
			WordLength: s.inst.WordCount(),
		}
		out[s.offset] = out[s.offset]&0xffff0000 | uint32(OpAtomicCompareExchange)
		if typeFix {
			out[s.offset+1] = elem
			fix.NewType = elem
		}
		fixes = append(fixes, fix)
	}
	return out, fixes, nil
}
