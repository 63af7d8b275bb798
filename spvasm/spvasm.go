package spvasm

import (
	"github.com/wippyai/spvkernel/spirv"
	"github.com/wippyai/spvkernel/spvasm/internal/parser"
	"github.com/wippyai/spvkernel/spvasm/internal/token"
)

// Program is an assembled module plus the ids given to named operands.
type Program struct {
	Module *spirv.Module
	IDs    map[string]uint32
}

// ID returns the id assigned to %name. It returns 0 for unknown names.
func (p *Program) ID(name string) uint32 {
	return p.IDs[name]
}

// Words returns the encoded word stream.
func (p *Program) Words() ([]uint32, error) {
	return p.Module.Words()
}

// Parse assembles source into a decoded module.
func Parse(source string) (*Program, error) {
	p := parser.New(token.Tokenize(source))
	m, err := p.Parse()
	if err != nil {
		return nil, err
	}
	return &Program{Module: m, IDs: p.IDs()}, nil
}

func Assemble(source string) ([]uint32, error) {
	prog, err := Parse(source)
	if err != nil {
		return nil, err
	}
	return prog.Words()
}

func Compile(source string) ([]byte, error) {
	prog, err := Parse(source)
	if err != nil {
		return nil, err
	}
	return prog.Module.Encode()
}
