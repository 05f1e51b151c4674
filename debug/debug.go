// Package debug implements the bytecode disassembler used by the `disasm`
// CLI subcommand.
package debug

import (
	"fmt"
	"io"

	"github.com/mna/lox/compiler"
	"github.com/mna/lox/object"
)

// Disassembler prints human-readable bytecode listings to Output.
type Disassembler struct {
	// Output is the io.Writer to print to. It has no default and must be
	// set before printing.
	Output io.Writer
}

// Disassemble prints every instruction in chunk, labelled with name (the
// owning function's name, or "<script>").
func (d *Disassembler) Disassemble(chunk *object.Chunk, name string) {
	fmt.Fprintf(d.Output, "== %s ==\n", name)
	for offset := 0; offset < len(chunk.Code); {
		offset = d.Instruction(chunk, offset)
	}
}

// Instruction prints the single instruction at offset and returns the
// offset of the next one.
func (d *Disassembler) Instruction(chunk *object.Chunk, offset int) int {
	fmt.Fprintf(d.Output, "%04d ", offset)
	if offset > 0 && chunk.Lines[offset] == chunk.Lines[offset-1] {
		fmt.Fprint(d.Output, "   | ")
	} else {
		fmt.Fprintf(d.Output, "%4d ", chunk.Lines[offset])
	}

	op := compiler.Opcode(chunk.Code[offset])
	switch op {
	case compiler.OpConstant, compiler.OpClass:
		return d.constantInstr(op, chunk, offset)
	case compiler.OpGetLocal, compiler.OpSetLocal, compiler.OpGetUpvalue, compiler.OpSetUpvalue, compiler.OpCall:
		return d.byteInstr(op, chunk, offset)
	case compiler.OpGetGlobal, compiler.OpDefineGlobal, compiler.OpSetGlobal,
		compiler.OpGetProperty, compiler.OpSetProperty, compiler.OpGetSuper, compiler.OpMethod:
		return d.constantInstr(op, chunk, offset)
	case compiler.OpInvoke, compiler.OpSuperInvoke:
		return d.invokeInstr(op, chunk, offset)
	case compiler.OpJump, compiler.OpJumpIfFalse:
		return d.jumpInstr(op, chunk, offset, 1)
	case compiler.OpLoop:
		return d.jumpInstr(op, chunk, offset, -1)
	case compiler.OpClosure:
		return d.closureInstr(chunk, offset)
	default:
		return d.simpleInstr(op, offset)
	}
}

func (d *Disassembler) simpleInstr(op compiler.Opcode, offset int) int {
	fmt.Fprintf(d.Output, "%s\n", op)
	return offset + 1
}

func (d *Disassembler) byteInstr(op compiler.Opcode, chunk *object.Chunk, offset int) int {
	slot := chunk.Code[offset+1]
	fmt.Fprintf(d.Output, "%-16s %4d\n", op, slot)
	return offset + 2
}

func (d *Disassembler) constantInstr(op compiler.Opcode, chunk *object.Chunk, offset int) int {
	idx := chunk.Code[offset+1]
	fmt.Fprintf(d.Output, "%-16s %4d '%s'\n", op, idx, chunk.Constants[idx].String())
	return offset + 2
}

func (d *Disassembler) invokeInstr(op compiler.Opcode, chunk *object.Chunk, offset int) int {
	idx := chunk.Code[offset+1]
	argc := chunk.Code[offset+2]
	fmt.Fprintf(d.Output, "%-16s (%d args) %4d '%s'\n", op, argc, idx, chunk.Constants[idx].String())
	return offset + 3
}

func (d *Disassembler) jumpInstr(op compiler.Opcode, chunk *object.Chunk, offset, sign int) int {
	jump := int(chunk.Code[offset+1])<<8 | int(chunk.Code[offset+2])
	fmt.Fprintf(d.Output, "%-16s %4d -> %d\n", op, offset, offset+3+sign*jump)
	return offset + 3
}

func (d *Disassembler) closureInstr(chunk *object.Chunk, offset int) int {
	offset++
	idx := chunk.Code[offset]
	offset++
	fn := chunk.Constants[idx].AsObject().(*object.Function)
	fmt.Fprintf(d.Output, "%-16s %4d '%s'\n", compiler.OpClosure, idx, fn.Display())

	for i := 0; i < fn.UpvalueCount; i++ {
		isLocal := chunk.Code[offset]
		offset++
		index := chunk.Code[offset]
		offset++
		kind := "upvalue"
		if isLocal != 0 {
			kind = "local"
		}
		fmt.Fprintf(d.Output, "%04d      |                     %s %d\n", offset-2, kind, index)
	}
	return offset
}
