// Package disasm is the read-only disassembler collaborator spec.md §6
// calls for, used by cmd/langvm's "-d"/--disassembly flag: a flat walk over a
// chunk.Chunk's bytecode producing one Instruction per opcode, extended
// from original_source/src/disassembler.rs's linear (op, optional index)
// shape — which only covered a handful of opcodes — to the full spec.md
// §4.1 instruction set, including Call/Return/the jump family/locals.
package disasm

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"langvm/internal/chunk"
)

// Instruction is one decoded opcode at a fixed address, with its operand
// (if the opcode carries one) and the source line chunk.Emit recorded
// for it.
type Instruction struct {
	Addr    int
	Op      chunk.OpCode
	Operand *uint64
	Line    int
}

// Walk decodes every instruction in c in address order.
func Walk(c *chunk.Chunk) []Instruction {
	var out []Instruction
	addr := 0
	for addr < c.Size() {
		op := chunk.OpCode(c.Data[addr])
		inst := Instruction{Addr: addr, Op: op, Line: c.LineFor(addr)}
		if op.HasOperand() {
			v := c.ReadIndex(addr + 1)
			inst.Operand = &v
			addr += 1 + chunk.SizeIndex
		} else {
			addr++
		}
		out = append(out, inst)
	}
	return out
}

// Disassemble renders c's full instruction stream as estevaofon-noxy-style
// one-line-per-instruction text, with jump/loop targets and constant
// operands resolved to their literal value for readability, followed by a
// humanize-formatted chunk size summary line.
func Disassemble(c *chunk.Chunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", c.Name)
	for _, inst := range Walk(c) {
		b.WriteString(formatInstruction(c, inst))
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "-- %s (%s) --\n", c.Name, humanize.Bytes(uint64(len(c.Data))))
	return b.String()
}

func formatInstruction(c *chunk.Chunk, inst Instruction) string {
	prefix := fmt.Sprintf("%04d %4d %-12s", inst.Addr, inst.Line, inst.Op.String())
	if inst.Operand == nil {
		return prefix
	}

	switch inst.Op {
	case chunk.Const:
		if int(*inst.Operand) < len(c.Constants) {
			return fmt.Sprintf("%s %d (%s)", prefix, *inst.Operand, c.Constants[*inst.Operand].String())
		}
	case chunk.Jump, chunk.JumpIfFalse:
		target := inst.Addr + int(int64(*inst.Operand))
		return fmt.Sprintf("%s +%d -> %d", prefix, int64(*inst.Operand), target)
	case chunk.Loop:
		return fmt.Sprintf("%s -> %d", prefix, *inst.Operand)
	}
	return fmt.Sprintf("%s %d", prefix, *inst.Operand)
}
