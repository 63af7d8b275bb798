package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wippyai/spvkernel/spirv"
	"github.com/wippyai/spvkernel/spvasm/internal/token"
)

// Version is the header version written for assembled modules (1.0).
const Version uint32 = 0x00010000

type Parser struct {
	ids    map[string]uint32
	tokens []token.Token
	pos    int
	maxID  uint32
}

func New(tokens []token.Token) *Parser {
	return &Parser{
		tokens: tokens,
		ids:    make(map[string]uint32),
	}
}

// IDs returns the id assigned to each named id after Parse.
func (p *Parser) IDs() map[string]uint32 {
	return p.ids
}

func (p *Parser) Parse() (*spirv.Module, error) {
	if err := p.assignIDs(); err != nil {
		return nil, err
	}
	m := &spirv.Module{
		Header: spirv.Header{
			Magic:   spirv.Magic,
			Version: Version,
		},
	}
	for p.peek() != nil {
		inst, err := p.parseInstruction()
		if err != nil {
			return nil, err
		}
		m.Instructions = append(m.Instructions, inst)
	}
	m.Header.Bound = p.maxID + 1
	return m, nil
}

// assignIDs keeps numeric ids as written and numbers named ids after the
// largest numeric one, in order of first appearance.
func (p *Parser) assignIDs() error {
	for _, t := range p.tokens {
		if t.Type != token.ID {
			continue
		}
		if t.Value == "" {
			return fmt.Errorf("line %d: empty id", t.Line)
		}
		if n, err := strconv.ParseUint(t.Value, 10, 32); err == nil {
			if n == 0 {
				return fmt.Errorf("line %d: id %%0 is reserved", t.Line)
			}
			p.ids[t.Value] = uint32(n)
			p.maxID = max(p.maxID, uint32(n))
		}
	}
	for _, t := range p.tokens {
		if t.Type != token.ID {
			continue
		}
		if _, ok := p.ids[t.Value]; ok {
			continue
		}
		p.maxID++
		p.ids[t.Value] = p.maxID
	}
	return nil
}

func (p *Parser) peek() *token.Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos]
}

func (p *Parser) peekAt(n int) *token.Token {
	if p.pos+n >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos+n]
}

func (p *Parser) next() *token.Token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	t := &p.tokens[p.pos]
	p.pos++
	return t
}

func (p *Parser) expect(typ token.Type) (*token.Token, error) {
	t := p.next()
	if t == nil {
		return nil, fmt.Errorf("unexpected end of input")
	}
	if t.Type != typ {
		return nil, fmt.Errorf("line %d: expected %v, got %q", t.Line, typ, t.Value)
	}
	return t, nil
}

// atInstructionStart reports whether the next tokens begin a new
// instruction: either "%id =" or an opcode mnemonic.
func (p *Parser) atInstructionStart() bool {
	t := p.peek()
	if t == nil {
		return true
	}
	if t.Type == token.ID {
		n := p.peekAt(1)
		return n != nil && n.Type == token.Equals
	}
	return t.Type == token.Ident && isMnemonic(t.Value)
}

func isMnemonic(s string) bool {
	return len(s) > 2 && strings.HasPrefix(s, "Op") && s[2] >= 'A' && s[2] <= 'Z'
}

func (p *Parser) parseInstruction() (spirv.Instruction, error) {
	var result uint32
	hasResultTok := false
	if t := p.peek(); t.Type == token.ID {
		p.next()
		result = p.ids[t.Value]
		hasResultTok = true
		if _, err := p.expect(token.Equals); err != nil {
			return spirv.Instruction{}, err
		}
	}

	opTok, err := p.expect(token.Ident)
	if err != nil {
		return spirv.Instruction{}, err
	}
	op, ok := spirv.OpcodeByName(opTok.Value)
	if !ok {
		return spirv.Instruction{}, fmt.Errorf("line %d: unknown instruction %q", opTok.Line, opTok.Value)
	}

	hasType, hasResult := spirv.ResultLayout(op)
	if hasResult && !hasResultTok {
		return spirv.Instruction{}, fmt.Errorf("line %d: %s needs a result id", opTok.Line, opTok.Value)
	}
	if !hasResult && hasResultTok {
		return spirv.Instruction{}, fmt.Errorf("line %d: %s has no result id", opTok.Line, opTok.Value)
	}

	kinds := grammar[op]
	var written []uint32
	pending := KindNone
	for i := 0; !p.atInstructionStart(); i++ {
		kind := pending
		pending = KindNone
		if kind == KindNone && i < len(kinds) {
			kind = kinds[i]
		}
		words, err := p.parseOperand(op, kind)
		if err != nil {
			return spirv.Instruction{}, err
		}
		if kind == KindDecoration && len(words) == 1 {
			pending = decorationArg(words[0])
		}
		written = append(written, words...)
	}

	var operands []uint32
	switch {
	case hasType:
		if len(written) == 0 {
			return spirv.Instruction{}, fmt.Errorf("line %d: %s needs a result type", opTok.Line, opTok.Value)
		}
		operands = make([]uint32, 0, len(written)+1)
		operands = append(operands, written[0], result)
		operands = append(operands, written[1:]...)
	case hasResult:
		operands = append([]uint32{result}, written...)
	default:
		operands = written
	}
	return spirv.Instruction{Opcode: op, Operands: operands}, nil
}

func (p *Parser) parseOperand(op spirv.Opcode, kind Kind) ([]uint32, error) {
	t := p.next()
	switch t.Type {
	case token.ID:
		return []uint32{p.ids[t.Value]}, nil
	case token.String:
		return spirv.EncodeString(t.Value), nil
	case token.Number:
		if words, err := parseNumber(t.Value); err == nil {
			return words, nil
		}
		if v, ok := lookupEnum(kind, t.Value); ok {
			return []uint32{v}, nil
		}
		return nil, fmt.Errorf("line %d: invalid number %q", t.Line, t.Value)
	case token.Ident:
		if strings.HasPrefix(t.Value, "!") {
			v, err := strconv.ParseUint(t.Value[1:], 0, 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid raw word %q", t.Line, t.Value)
			}
			return []uint32{uint32(v)}, nil
		}
		if v, ok := lookupEnum(kind, t.Value); ok {
			return []uint32{v}, nil
		}
		return nil, fmt.Errorf("line %d: unknown operand %q for %s", t.Line, t.Value, op)
	}
	return nil, fmt.Errorf("line %d: unexpected %v %q", t.Line, t.Type, t.Value)
}

// parseNumber encodes an integer or float literal. Integers wider than 32
// bits take two words, low word first.
func parseNumber(s string) ([]uint32, error) {
	isHex := strings.HasPrefix(strings.TrimLeft(s, "+-"), "0x") || strings.HasPrefix(strings.TrimLeft(s, "+-"), "0X")
	if !isHex && strings.ContainsAny(s, ".eE") {
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, err
		}
		return []uint32{math.Float32bits(float32(f))}, nil
	}
	if strings.HasPrefix(s, "-") {
		v, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return nil, err
		}
		if v >= math.MinInt32 {
			return []uint32{uint32(int32(v))}, nil
		}
		return []uint32{uint32(uint64(v)), uint32(uint64(v) >> 32)}, nil
	}
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "+"), 0, 64)
	if err != nil {
		return nil, err
	}
	if v <= math.MaxUint32 {
		return []uint32{uint32(v)}, nil
	}
	return []uint32{uint32(v), uint32(v >> 32)}, nil
}
