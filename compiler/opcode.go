package compiler

import "fmt"

// Opcode is a single bytecode instruction tag. Operand widths are fixed per
// opcode (0, 1, or 2 bytes), except CLOSURE, whose trailing operand count
// depends on the function's upvalue count.
type Opcode uint8

//nolint:revive
const (
	OpConstant Opcode = iota
	OpNil
	OpTrue
	OpFalse
	OpPop
	OpGetLocal
	OpSetLocal
	OpGetGlobal
	OpDefineGlobal
	OpSetGlobal
	OpGetUpvalue
	OpSetUpvalue
	OpGetProperty
	OpSetProperty
	OpGetSuper
	OpEqual
	OpGreater
	OpLess
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpNot
	OpNegate
	OpPrint
	OpJump
	OpJumpIfFalse
	OpLoop
	OpCall
	OpInvoke
	OpSuperInvoke
	OpClosure
	OpCloseUpvalue
	OpReturn
	OpClass
	OpInherit
	OpMethod

	maxOpcode
)

var opcodeNames = [...]string{
	OpConstant:     "CONSTANT",
	OpNil:          "NIL",
	OpTrue:         "TRUE",
	OpFalse:        "FALSE",
	OpPop:          "POP",
	OpGetLocal:     "GET_LOCAL",
	OpSetLocal:     "SET_LOCAL",
	OpGetGlobal:    "GET_GLOBAL",
	OpDefineGlobal: "DEFINE_GLOBAL",
	OpSetGlobal:    "SET_GLOBAL",
	OpGetUpvalue:   "GET_UPVALUE",
	OpSetUpvalue:   "SET_UPVALUE",
	OpGetProperty:  "GET_PROPERTY",
	OpSetProperty:  "SET_PROPERTY",
	OpGetSuper:     "GET_SUPER",
	OpEqual:        "EQUAL",
	OpGreater:      "GREATER",
	OpLess:         "LESS",
	OpAdd:          "ADD",
	OpSubtract:     "SUBTRACT",
	OpMultiply:     "MULTIPLY",
	OpDivide:       "DIVIDE",
	OpNot:          "NOT",
	OpNegate:       "NEGATE",
	OpPrint:        "PRINT",
	OpJump:         "JUMP",
	OpJumpIfFalse:  "JUMP_IF_FALSE",
	OpLoop:         "LOOP",
	OpCall:         "CALL",
	OpInvoke:       "INVOKE",
	OpSuperInvoke:  "SUPER_INVOKE",
	OpClosure:      "CLOSURE",
	OpCloseUpvalue: "CLOSE_UPVALUE",
	OpReturn:       "RETURN",
	OpClass:        "CLASS",
	OpInherit:      "INHERIT",
	OpMethod:       "METHOD",
}

func (op Opcode) String() string {
	if op < maxOpcode {
		if n := opcodeNames[op]; n != "" {
			return n
		}
	}
	return fmt.Sprintf("illegal opcode (%d)", op)
}

// operandBytes is the fixed operand width in bytes for opcodes whose
// operand count does not depend on runtime data. CLOSURE is handled
// specially by the emitter and the disassembler, since its trailing operand
// count depends on the function's upvalue count.
var operandBytes = [...]int{
	OpConstant:     1,
	OpNil:          0,
	OpTrue:         0,
	OpFalse:        0,
	OpPop:          0,
	OpGetLocal:     1,
	OpSetLocal:     1,
	OpGetGlobal:    1,
	OpDefineGlobal: 1,
	OpSetGlobal:    1,
	OpGetUpvalue:   1,
	OpSetUpvalue:   1,
	OpGetProperty:  1,
	OpSetProperty:  1,
	OpGetSuper:     1,
	OpEqual:        0,
	OpGreater:      0,
	OpLess:         0,
	OpAdd:          0,
	OpSubtract:     0,
	OpMultiply:     0,
	OpDivide:       0,
	OpNot:          0,
	OpNegate:       0,
	OpPrint:        0,
	OpJump:         2,
	OpJumpIfFalse:  2,
	OpLoop:         2,
	OpCall:         1,
	OpInvoke:       2,
	OpSuperInvoke:  2,
	OpClosure:      1, // plus 2*upvalueCount trailing bytes, variable
	OpCloseUpvalue: 0,
	OpReturn:       0,
	OpClass:        1,
	OpInherit:      0,
	OpMethod:       1,
}

// OperandBytes returns the fixed operand width for op, excluding CLOSURE's
// variable upvalue-descriptor tail.
func OperandBytes(op Opcode) int { return operandBytes[op] }
