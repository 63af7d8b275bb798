// Package spirv provides SPIR-V binary manipulation primitives.
//
// A module is decoded into a header plus a flat instruction list. Decoding
// checks only the framing (header, word counts); instructions are kept as
// opcode plus raw operands so that anything the front end does not
// interpret survives a round trip unchanged:
//
//	m, err := spirv.Decode(words)
//	if err != nil {
//		return err
//	}
//	out, err := m.Encode()
//
// Scan walks a word stream without copying it, which is what the signature
// extractor and the atomic compare-exchange workaround use.
package spirv
