package vm

import (
	"fmt"
	"strings"

	"github.com/mna/lox/compiler"
	"github.com/mna/lox/object"
)

func (vm *VM) currentFrame() *CallFrame { return &vm.frames[vm.frameCount-1] }

func (vm *VM) readByte(frame *CallFrame) byte {
	b := frame.closure.Fn.Chunk.Code[frame.ip]
	frame.ip++
	return b
}

func (vm *VM) readShort(frame *CallFrame) int {
	hi := vm.readByte(frame)
	lo := vm.readByte(frame)
	return int(hi)<<8 | int(lo)
}

func (vm *VM) readConstant(frame *CallFrame) object.Value {
	return frame.closure.Fn.Chunk.Constants[vm.readByte(frame)]
}

func (vm *VM) readString(frame *CallFrame) *object.String {
	return vm.readConstant(frame).AsObject().(*object.String)
}

// run drives the fetch-decode-execute loop until the outermost call frame
// returns or a runtime error occurs.
func (vm *VM) run() error {
	frame := vm.currentFrame()
	for {
		switch op := compiler.Opcode(vm.readByte(frame)); op {
		case compiler.OpConstant:
			vm.push(vm.readConstant(frame))

		case compiler.OpNil:
			vm.push(object.Nil)
		case compiler.OpTrue:
			vm.push(object.True)
		case compiler.OpFalse:
			vm.push(object.False)
		case compiler.OpPop:
			vm.pop()

		case compiler.OpGetLocal:
			slot := int(vm.readByte(frame))
			vm.push(vm.stack[frame.slotsBase+slot])
		case compiler.OpSetLocal:
			slot := int(vm.readByte(frame))
			vm.stack[frame.slotsBase+slot] = vm.peek(0)

		case compiler.OpGetGlobal:
			name := vm.readString(frame)
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name.Value())
			}
			vm.push(v)
		case compiler.OpDefineGlobal:
			name := vm.readString(frame)
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case compiler.OpSetGlobal:
			name := vm.readString(frame)
			if vm.globals.Set(name, vm.peek(0)) {
				vm.globals.Delete(name)
				return vm.runtimeError("Undefined variable '%s'.", name.Value())
			}

		case compiler.OpGetUpvalue:
			idx := vm.readByte(frame)
			vm.push(*frame.closure.Upvalues[idx].Location)
		case compiler.OpSetUpvalue:
			idx := vm.readByte(frame)
			*frame.closure.Upvalues[idx].Location = vm.peek(0)

		case compiler.OpGetProperty:
			if err := vm.getProperty(frame); err != nil {
				return err
			}
		case compiler.OpSetProperty:
			if err := vm.setProperty(frame); err != nil {
				return err
			}
		case compiler.OpGetSuper:
			name := vm.readString(frame)
			superclass := vm.pop().AsObject().(*object.Class)
			receiver := vm.pop()
			method, ok := superclass.Method(name)
			if !ok {
				return vm.runtimeError("Undefined property '%s'.", name.Value())
			}
			vm.push(object.Obj(vm.newBoundMethod(receiver, method)))

		case compiler.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(object.Bool(object.Equal(a, b)))
		case compiler.OpGreater, compiler.OpLess:
			if err := vm.binaryCompare(op); err != nil {
				return err
			}
		case compiler.OpAdd:
			if err := vm.add(); err != nil {
				return err
			}
		case compiler.OpSubtract, compiler.OpMultiply, compiler.OpDivide:
			if err := vm.arith(op); err != nil {
				return err
			}
		case compiler.OpNot:
			vm.push(object.Bool(!vm.pop().Truthy()))
		case compiler.OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.push(object.Number(-vm.pop().AsNumber()))

		case compiler.OpPrint:
			fmt.Fprintln(vm.stdout(), vm.pop().String())

		case compiler.OpJump:
			off := vm.readShort(frame)
			frame.ip += off
		case compiler.OpJumpIfFalse:
			off := vm.readShort(frame)
			if !vm.peek(0).Truthy() {
				frame.ip += off
			}
		case compiler.OpLoop:
			off := vm.readShort(frame)
			frame.ip -= off

		case compiler.OpCall:
			argc := int(vm.readByte(frame))
			if err := vm.callValue(vm.peek(argc), argc); err != nil {
				return err
			}
			frame = vm.currentFrame()
		case compiler.OpInvoke:
			name := vm.readString(frame)
			argc := int(vm.readByte(frame))
			if err := vm.invoke(name, argc); err != nil {
				return err
			}
			frame = vm.currentFrame()
		case compiler.OpSuperInvoke:
			name := vm.readString(frame)
			argc := int(vm.readByte(frame))
			superclass := vm.pop().AsObject().(*object.Class)
			if err := vm.invokeFromClass(superclass, name, argc); err != nil {
				return err
			}
			frame = vm.currentFrame()

		case compiler.OpClosure:
			fn := vm.readConstant(frame).AsObject().(*object.Function)
			closure := vm.newClosure(fn)
			// Root the closure before filling in its upvalues: capturing one
			// may trigger an allocation-driven collection.
			vm.push(object.Obj(closure))
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := vm.readByte(frame)
				idx := int(vm.readByte(frame))
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(frame.slotsBase + idx)
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[idx]
				}
			}
		case compiler.OpCloseUpvalue:
			vm.closeUpvalues(vm.sp - 1)
			vm.pop()

		case compiler.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(frame.slotsBase)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop() // the top-level script closure
				return nil
			}
			vm.sp = frame.slotsBase
			vm.push(result)
			frame = vm.currentFrame()

		case compiler.OpClass:
			name := vm.readString(frame)
			vm.push(object.Obj(vm.newClass(name)))
		case compiler.OpInherit:
			superVal := vm.peek(1)
			superclass, ok := superVal.AsObject().(*object.Class)
			if !superVal.IsObject() || !ok {
				return vm.runtimeError("Superclass must be a class.")
			}
			subclass := vm.peek(0).AsObject().(*object.Class)
			subclass.Methods.AddAll(&superclass.Methods)
			vm.pop() // the duplicate subclass reference used only for this opcode
		case compiler.OpMethod:
			name := vm.readString(frame)
			method := vm.pop().AsObject().(*object.Closure)
			class := vm.peek(0).AsObject().(*object.Class)
			class.Methods.Set(name, object.Obj(method))

		default:
			return vm.runtimeError("illegal opcode %s", op)
		}
	}
}

func (vm *VM) binaryCompare(op compiler.Opcode) error {
	b := vm.peek(0)
	a := vm.peek(1)
	if !a.IsNumber() || !b.IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	vm.pop()
	vm.pop()
	var res bool
	if op == compiler.OpGreater {
		res = a.AsNumber() > b.AsNumber()
	} else {
		res = a.AsNumber() < b.AsNumber()
	}
	vm.push(object.Bool(res))
	return nil
}

func (vm *VM) arith(op compiler.Opcode) error {
	b := vm.peek(0)
	a := vm.peek(1)
	if !a.IsNumber() || !b.IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	vm.pop()
	vm.pop()
	var res float64
	switch op {
	case compiler.OpSubtract:
		res = a.AsNumber() - b.AsNumber()
	case compiler.OpMultiply:
		res = a.AsNumber() * b.AsNumber()
	case compiler.OpDivide:
		res = a.AsNumber() / b.AsNumber()
	}
	vm.push(object.Number(res))
	return nil
}

func asString(v object.Value) (*object.String, bool) {
	if !v.IsObject() {
		return nil, false
	}
	s, ok := v.AsObject().(*object.String)
	return s, ok
}

func (vm *VM) add() error {
	b := vm.peek(0)
	a := vm.peek(1)
	switch {
	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(object.Number(a.AsNumber() + b.AsNumber()))
	default:
		as, aOK := asString(a)
		bs, bOK := asString(b)
		if !aOK || !bOK {
			return vm.runtimeError("Operands must be two numbers or two strings.")
		}
		vm.pop()
		vm.pop()
		vm.push(object.Obj(vm.concatenate(as, bs)))
	}
	return nil
}

// getProperty implements GET_PROPERTY: read an instance field, falling back
// to a bound method of the instance's class.
func (vm *VM) getProperty(frame *CallFrame) error {
	name := vm.readString(frame)
	instVal := vm.peek(0)
	inst, ok := instVal.AsObject().(*object.Instance)
	if !instVal.IsObject() || !ok {
		return vm.runtimeError("Only instances have properties.")
	}
	if v, ok := inst.Fields.Get(name); ok {
		vm.pop()
		vm.push(v)
		return nil
	}
	method, ok := inst.Class.Method(name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Value())
	}
	vm.pop()
	vm.push(object.Obj(vm.newBoundMethod(instVal, method)))
	return nil
}

// setProperty implements SET_PROPERTY: instances accept any field name,
// created on first assignment. The assigned value is left on top of the
// stack, so `a.b = c.d = 1` chains the way any other assignment expression
// does.
func (vm *VM) setProperty(frame *CallFrame) error {
	name := vm.readString(frame)
	value := vm.peek(0)
	instVal := vm.peek(1)
	inst, ok := instVal.AsObject().(*object.Instance)
	if !instVal.IsObject() || !ok {
		return vm.runtimeError("Only instances have fields.")
	}
	inst.Fields.Set(name, value)
	vm.pop()
	vm.pop()
	vm.push(value)
	return nil
}

// callValue dispatches a CALL (or the implicit call at the bottom of a
// method INVOKE fast path) to whatever kind of callable callee is.
func (vm *VM) callValue(callee object.Value, argc int) error {
	if !callee.IsObject() {
		return vm.runtimeError("Can only call functions and classes.")
	}
	switch c := callee.AsObject().(type) {
	case *object.Closure:
		return vm.call(c, argc)
	case *object.Native:
		args := vm.stack[vm.sp-argc : vm.sp]
		res, err := c.Fn(args)
		if err != nil {
			return vm.runtimeError("%s", err.Error())
		}
		vm.sp -= argc + 1
		vm.push(res)
		return nil
	case *object.Class:
		inst := vm.newInstance(c)
		vm.stack[vm.sp-argc-1] = object.Obj(inst)
		if initMethod, ok := c.Method(vm.initString); ok {
			return vm.call(initMethod, argc)
		}
		if argc != 0 {
			return vm.runtimeError("Expected 0 arguments but got %d.", argc)
		}
		return nil
	case *object.BoundMethod:
		vm.stack[vm.sp-argc-1] = c.Receiver
		return vm.call(c.Method, argc)
	default:
		return vm.runtimeError("Can only call functions and classes.")
	}
}

func (vm *VM) call(closure *object.Closure, argc int) error {
	if argc != closure.Fn.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", closure.Fn.Arity, argc)
	}
	if vm.frameCount == len(vm.frames) {
		return vm.runtimeError("Stack overflow.")
	}
	vm.frames[vm.frameCount] = CallFrame{closure: closure, ip: 0, slotsBase: vm.sp - argc - 1}
	vm.frameCount++
	return nil
}

// invoke fuses GET_PROPERTY+CALL for the common `receiver.method(args)`
// shape, skipping the intermediate BoundMethod allocation. A field holding a
// callable still shadows a method of the same name, exactly as a plain
// GET_PROPERTY followed by CALL would see it.
func (vm *VM) invoke(name *object.String, argc int) error {
	receiver := vm.peek(argc)
	inst, ok := receiver.AsObject().(*object.Instance)
	if !receiver.IsObject() || !ok {
		return vm.runtimeError("Only instances have methods.")
	}
	if v, ok := inst.Fields.Get(name); ok {
		vm.stack[vm.sp-argc-1] = v
		return vm.callValue(v, argc)
	}
	return vm.invokeFromClass(inst.Class, name, argc)
}

func (vm *VM) invokeFromClass(class *object.Class, name *object.String, argc int) error {
	method, ok := class.Method(name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name.Value())
	}
	return vm.call(method, argc)
}

// captureUpvalue returns the open upvalue aliasing the given stack slot,
// reusing one already open for that slot if the list has one. The list is
// kept sorted by descending slot index so closeUpvalues can stop at the
// first node below its cutoff.
func (vm *VM) captureUpvalue(slot int) *object.Upvalue {
	var prev *object.Upvalue
	cur := vm.openUpvalues
	for cur != nil && cur.Slot > slot {
		prev = cur
		cur = cur.OpenNext
	}
	if cur != nil && cur.Slot == slot {
		return cur
	}

	created := vm.newUpvalue(slot)
	created.OpenNext = cur
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.OpenNext = created
	}
	return created
}

// closeUpvalues closes (promotes to owning their value inline) every open
// upvalue aliasing a slot at or above last, as that frame or block scope
// goes out of scope.
func (vm *VM) closeUpvalues(last int) {
	for vm.openUpvalues != nil && vm.openUpvalues.Slot >= last {
		uv := vm.openUpvalues
		vm.openUpvalues = uv.OpenNext
		uv.Close()
	}
}

// runtimeError formats a runtime error and prepends the call-stack trace,
// innermost frame first, matching the reference interpreter's diagnostic
// format.
func (vm *VM) runtimeError(format string, args ...any) error {
	var b strings.Builder
	fmt.Fprintf(&b, format, args...)
	for i := vm.frameCount - 1; i >= 0; i-- {
		f := &vm.frames[i]
		name := f.name()
		if name != "script" {
			name += "()"
		}
		fmt.Fprintf(&b, "\n[line %d] in %s", f.line(), name)
	}
	return fmt.Errorf("%s", b.String())
}
