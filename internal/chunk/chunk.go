// Package chunk implements the bytecode container spec.md §4.1 describes:
// a flat byte stream of fixed-width instructions plus a constant pool,
// owned by exactly one object.Function. Structurally this mirrors
// estevaofon-noxy's internal/chunk package (a []byte code stream, a
// Constants pool, a Write/AddConstant API, a disassembler walk by
// offset) but trades its variable-width (1/2/3-byte) operand encoding for
// spec.md's fixed 1-opcode-byte + 8-operand-byte layout, and its dozens of
// typed-value opcodes for the exact instruction set spec.md §4.1 lists.
package chunk

import (
	"encoding/binary"
	"fmt"
)

// OpCode is a single bytecode instruction's opcode byte.
type OpCode byte

const (
	Nop OpCode = iota
	OpNone
	OpTrue
	OpFalse
	Const // u64 = const_index
	Pop
	SetGlobal // u64 = global_id
	GetGlobal // u64 = global_id
	SetLocal  // u64 = stack_slot
	GetLocal  // u64 = stack_slot
	Call      // u64 = arg_count
	Return
	Jump        // u64 = offset (relative to ip)
	JumpIfFalse // u64 = offset (relative to ip)
	Loop        // u64 = absolute_addr
	Not
	Neg
	And
	Or
	Equal
	NotEqual
	Less
	LessEqual
	Greater
	GreaterEqual
	Add
	Sub
	Mul
	Div
)

var names = map[OpCode]string{
	Nop: "NOP", OpNone: "NONE", OpTrue: "TRUE", OpFalse: "FALSE",
	Const: "CONST", Pop: "POP",
	SetGlobal: "SET_GLOBAL", GetGlobal: "GET_GLOBAL",
	SetLocal: "SET_LOCAL", GetLocal: "GET_LOCAL",
	Call: "CALL", Return: "RETURN",
	Jump: "JUMP", JumpIfFalse: "JUMP_IF_FALSE", Loop: "LOOP",
	Not: "NOT", Neg: "NEG", And: "AND", Or: "OR",
	Equal: "EQUAL", NotEqual: "NOT_EQUAL",
	Less: "LESS", LessEqual: "LESS_EQUAL",
	Greater: "GREATER", GreaterEqual: "GREATER_EQUAL",
	Add: "ADD", Sub: "SUB", Mul: "MUL", Div: "DIV",
}

func (op OpCode) String() string {
	if name, ok := names[op]; ok {
		return name
	}
	return "UNKNOWN"
}

// HasOperand reports whether op is followed by an 8-byte operand.
func (op OpCode) HasOperand() bool {
	switch op {
	case Const, SetGlobal, GetGlobal, SetLocal, GetLocal, Call, Jump, JumpIfFalse, Loop:
		return true
	default:
		return false
	}
}

const (
	SizeInstruction = 1
	SizeIndex       = 8
)

// LiteralKind tags a parsed constant's variant.
type LiteralKind int

const (
	LitNone LiteralKind = iota
	LitTrue
	LitFalse
	LitInteger
	LitFloat
	LitString
)

// Literal is a parsed constant from source — the chunk's constant pool
// element type (spec.md §3).
type Literal struct {
	Kind  LiteralKind
	Int   int64
	Float float64
	Str   string
}

func NoneLiteral() Literal           { return Literal{Kind: LitNone} }
func TrueLiteral() Literal           { return Literal{Kind: LitTrue} }
func FalseLiteral() Literal          { return Literal{Kind: LitFalse} }
func IntegerLiteral(v int64) Literal { return Literal{Kind: LitInteger, Int: v} }
func FloatLiteral(v float64) Literal { return Literal{Kind: LitFloat, Float: v} }
func StringLiteral(v string) Literal { return Literal{Kind: LitString, Str: v} }

// String renders a Literal for disassembly listings.
func (l Literal) String() string {
	switch l.Kind {
	case LitNone:
		return "None"
	case LitTrue:
		return "True"
	case LitFalse:
		return "False"
	case LitInteger:
		return fmt.Sprintf("%d", l.Int)
	case LitFloat:
		return fmt.Sprintf("%g", l.Float)
	case LitString:
		return fmt.Sprintf("%q", l.Str)
	default:
		return "?"
	}
}

// Chunk holds one function's bytecode and constant pool. Functions do not
// embed their compiled chunks inside the parent chunk: each function owns
// its own Chunk (spec.md §3). Lines records, for each opcode address, the
// source line it was compiled from — not part of spec.md's core data
// model, but carried the way estevaofon-noxy's chunk.Lines is so runtime
// errors can report "<chunk name>:line". FileName is not filled in by the
// compiler and is not read by the VM.
type Chunk struct {
	Name      string
	FileName  string
	Data      []byte
	Constants []Literal
	Lines     map[int]int
}

func New(name string) *Chunk {
	return &Chunk{Name: name, Lines: make(map[int]int)}
}

// Size is the current length of the instruction stream, used by the
// compiler to record jump/loop targets.
func (c *Chunk) Size() int { return len(c.Data) }

// Emit appends a single opcode byte at the given source line and returns
// its address.
func (c *Chunk) Emit(op OpCode, line int) int {
	addr := len(c.Data)
	c.Data = append(c.Data, byte(op))
	c.Lines[addr] = line
	return addr
}

// LineFor returns the source line recorded for the opcode at or before
// addr, or 0 if none was recorded.
func (c *Chunk) LineFor(addr int) int {
	for a := addr; a >= 0; a-- {
		if line, ok := c.Lines[a]; ok {
			return line
		}
	}
	return 0
}

// EmitIndex appends an 8-byte little-endian operand and returns the
// address of those bytes, so the compiler can later patch it with
// PatchIndex (used for forward jumps whose target isn't known yet).
func (c *Chunk) EmitIndex(index uint64) int {
	addr := len(c.Data)
	var buf [SizeIndex]byte
	binary.LittleEndian.PutUint64(buf[:], index)
	c.Data = append(c.Data, buf[:]...)
	return addr
}

// PatchIndex overwrites the 8-byte operand at addr with value.
func (c *Chunk) PatchIndex(addr int, value uint64) {
	binary.LittleEndian.PutUint64(c.Data[addr:addr+SizeIndex], value)
}

// PatchJumpAddr patches a forward Jump/JumpIfFalse operand recorded at at
// so that it branches to target. The offset written is target - at + 1,
// matching spec.md §4.1's back-patch formula: at is one byte past the
// opcode, so the "+1" makes the offset relative to the opcode's own
// address, which is what the VM (and disasm) add it to.
func (c *Chunk) PatchJumpAddr(at int, target int) {
	offset := int64(target) - int64(at) + 1
	c.PatchIndex(at, uint64(offset))
}

// ReadIndex reads the 8-byte little-endian operand at index (the VM uses
// this at ip+1 for every instruction with an operand).
func (c *Chunk) ReadIndex(index int) uint64 {
	return binary.LittleEndian.Uint64(c.Data[index : index+SizeIndex])
}

// AddConstant appends a literal to the pool and returns its index.
func (c *Chunk) AddConstant(lit Literal) uint64 {
	c.Constants = append(c.Constants, lit)
	return uint64(len(c.Constants) - 1)
}
