package spirv

// Header is the five-word SPIR-V module header.
type Header struct {
	Magic     uint32
	Version   uint32
	Generator uint32
	Bound     uint32
	Schema    uint32
}

// Instruction is a decoded instruction. Operands excludes the leading
// wordCount/opcode word.
type Instruction struct {
	Operands []uint32
	Opcode   Opcode
}

// WordCount returns the encoded length of the instruction in words.
func (i Instruction) WordCount() int {
	return len(i.Operands) + 1
}

// Operand returns operand n, or 0 and false when the instruction is shorter.
func (i Instruction) Operand(n int) (uint32, bool) {
	if n < 0 || n >= len(i.Operands) {
		return 0, false
	}
	return i.Operands[n], true
}

// Clone returns a deep copy of the instruction.
func (i Instruction) Clone() Instruction {
	ops := make([]uint32, len(i.Operands))
	copy(ops, i.Operands)
	return Instruction{Opcode: i.Opcode, Operands: ops}
}

// Module is a SPIR-V module decoded into an instruction list.
// Instructions that are not interpreted survive a decode/encode round trip
// unchanged.
type Module struct {
	Instructions []Instruction
	Header       Header
}

// EntryPoint is a decoded OpEntryPoint.
type EntryPoint struct {
	Name      string
	Interface []uint32
	Index     int // position in Module.Instructions
	Model     ExecutionModel
	Function  uint32
}

// Function is the instruction range of one OpFunction ... OpFunctionEnd.
type Function struct {
	ID     uint32
	Type   uint32 // OpTypeFunction id
	Start  int    // index of OpFunction
	End    int    // index of OpFunctionEnd
	Params []int  // indices of OpFunctionParameter
}

// Body returns the index of the first instruction after the parameters.
func (f Function) Body() int {
	if len(f.Params) == 0 {
		return f.Start + 1
	}
	return f.Params[len(f.Params)-1] + 1
}

// EntryPoints returns the module's entry points in declaration order.
func (m *Module) EntryPoints() []EntryPoint {
	var eps []EntryPoint
	for idx, inst := range m.Instructions {
		if inst.Opcode != OpEntryPoint || len(inst.Operands) < 3 {
			continue
		}
		name, n, _ := decodeLiteral(inst.Operands[2:])
		eps = append(eps, EntryPoint{
			Model:     ExecutionModel(inst.Operands[0]),
			Function:  inst.Operands[1],
			Name:      name,
			Interface: inst.Operands[2+n:],
			Index:     idx,
		})
	}
	return eps
}

// Functions returns every function definition keyed by function id.
// A function without a matching OpFunctionEnd runs to the end of the module.
func (m *Module) Functions() map[uint32]*Function {
	fns := make(map[uint32]*Function)
	var cur *Function
	for idx, inst := range m.Instructions {
		switch inst.Opcode {
		case OpFunction:
			if len(inst.Operands) < 4 {
				continue
			}
			cur = &Function{
				ID:    inst.Operands[1],
				Type:  inst.Operands[3],
				Start: idx,
				End:   len(m.Instructions) - 1,
			}
			fns[cur.ID] = cur
		case OpFunctionParameter:
			if cur != nil {
				cur.Params = append(cur.Params, idx)
			}
		case OpFunctionEnd:
			if cur != nil {
				cur.End = idx
				cur = nil
			}
		}
	}
	return fns
}

// Clone returns a deep copy of the module.
func (m *Module) Clone() *Module {
	out := &Module{
		Header:       m.Header,
		Instructions: make([]Instruction, len(m.Instructions)),
	}
	for i, inst := range m.Instructions {
		out.Instructions[i] = inst.Clone()
	}
	return out
}

// AllocID reserves a fresh result id at the header bound.
func (m *Module) AllocID() uint32 {
	id := m.Header.Bound
	m.Header.Bound++
	return id
}
