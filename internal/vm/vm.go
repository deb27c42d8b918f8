// Package vm implements the stack-based bytecode interpreter spec.md §4.3
// describes: a frame stack plus a value stack walking one Function's
// Chunk at a time, dispatching on chunk.OpCode in a single switch loop.
// The overall shape — a VM struct holding a fixed-capacity frame array and
// value stack, a runtimeError(chunk, ip, format, args...) helper that
// reports "[<chunk name>:line] message", a VMConfig struct, and DefineNative
// wiring a builtin straight into the globals table — follows
// estevaofon-noxy's internal/vm package; the frame/call/return bookkeeping
// and the opcode set itself are this language's own (spec.md §4.1/§4.3),
// not noxy's closures-and-upvalues calling convention.
package vm

import (
	"fmt"
	"log"

	"langvm/internal/chunk"
	"langvm/internal/object"
	"langvm/internal/symboltable"
)

// StackMax and FramesMax bound the value stack and call depth the same
// way estevaofon-noxy's vm.go bounds them, giving spec.md §5's "a faithful
// implementation should impose a configurable recursion depth bound" a
// concrete default; VMConfig.MaxCallDepth overrides FramesMax per VM.
const (
	StackMax  = 4096
	FramesMax = 512
)

// InvalidBytecodeError is raised when the fetch loop reads an opcode byte
// that doesn't correspond to any chunk.OpCode — a decoding failure
// spec.md §7 classifies as fatal/unrecoverable.
type InvalidBytecodeError struct{ Byte byte }

func (e *InvalidBytecodeError) Error() string {
	return fmt.Sprintf("InvalidBytecode: byte 0x%02x", e.Byte)
}

// InvalidOperandError is the typed form of the InvalidOperand variant (a
// bad const/local index, or the TypeError case spec.md §7 folds into it).
// The VM's own instruction paths do not return this type: they report
// these conditions through runtimeError as "[<chunk>:line] InvalidOperand:
// ..." errors. The same holds for UndefinedNameError and
// WrongArgumentCountError below; of this file's error types only
// InvalidBytecodeError is returned as such.
type InvalidOperandError struct{ Details string }

func (e *InvalidOperandError) Error() string { return fmt.Sprintf("InvalidOperand: %s", e.Details) }

// UndefinedNameError is the typed form of the runtime UndefinedName
// variant (a global id with no binding) — distinct from the compiler's
// NameNotFoundError, which fires at compile time instead. GetGlobal and
// Call report it as an "UndefinedName: ..." runtimeError, not as this type.
type UndefinedNameError struct{ ID uint64 }

func (e *UndefinedNameError) Error() string { return fmt.Sprintf("UndefinedName: id %d", e.ID) }

// WrongArgumentCountError is the typed form of the variant for a Call whose
// arg_count doesn't match the resolved Function/NativeFunction's declared
// arity; VM.call reports it as a "WrongArgumentCount: ..." runtimeError.
type WrongArgumentCountError struct{ Details string }

func (e *WrongArgumentCountError) Error() string {
	return fmt.Sprintf("WrongArgumentCount: %s", e.Details)
}

// Frame records one in-flight invocation: the callee Function, the value
// stack height at the moment the frame was pushed (minus its arguments,
// which are reused as locals 0..arity-1), and the current instruction
// pointer into the Function's own Chunk (spec.md §3 "Frame").
type Frame struct {
	Function *object.Function
	StackSize int
	IP        int
}

// VMConfig mirrors estevaofon-noxy's vm.VMConfig{RootPath: ...} shape: a
// plain struct of functional defaults, no config-file library, per
// SPEC_FULL.md's ambient-stack "Configuration" entry.
type VMConfig struct {
	// RootPath records the root path the VM was configured with. The VM
	// itself does not read it; the dynamodb plugin lookup uses the copy in
	// natives.Config instead.
	RootPath string
	// MaxCallDepth overrides FramesMax when non-zero, giving embedders a
	// way to tune the recursion bound spec.md §5 calls for.
	MaxCallDepth int
	// Logger receives the VM's per-instruction fetch/stack-dump trace
	// lines when Trace is true. Tokens and the AST are not logged by the
	// VM or by cmd/langvm; cmd/langvm prints the top-level chunk's
	// disassembly to standard output only under its -d flag.
	Logger *log.Logger
	Trace  bool
}

// VM is the stack machine: a frame stack, a value stack and the shared
// global SymbolTable (spec.md §4.3 "State").
type VM struct {
	frames     []Frame
	frameCount int

	stack    []object.Object
	stackTop int

	globals *symboltable.SymbolTable
	config  VMConfig

	maxFrames int
}

// New creates a VM with a fresh, empty global table and default config.
func New() *VM {
	return NewWithConfig(symboltable.New(), VMConfig{RootPath: "."})
}

// NewWithConfig creates a VM sharing the given globals (so a REPL or an
// embedder can keep bindings alive across multiple Interpret calls, the
// way estevaofon-noxy's REPL shares one machine across lines).
func NewWithConfig(globals *symboltable.SymbolTable, cfg VMConfig) *VM {
	maxFrames := cfg.MaxCallDepth
	if maxFrames <= 0 {
		maxFrames = FramesMax
	}
	vm := &VM{
		frames:    make([]Frame, 0, maxFrames),
		stack:     make([]object.Object, 0, StackMax),
		globals:   globals,
		config:    cfg,
		maxFrames: maxFrames,
	}
	DefineCoreNatives(vm)
	return vm
}

// Globals exposes the shared symbol table so natives packages and the CLI
// front end can install additional bindings before/after a run.
func (vm *VM) Globals() *symboltable.SymbolTable { return vm.globals }

// DefineNative installs a builtin into globals under name, the same
// mechanism spec.md §4.5's native registry uses for every builtin
// (print/abs plus the domain-stack natives in internal/natives).
func (vm *VM) DefineNative(name string, arity int, fn object.NativeFunc) {
	nf := &object.NativeFunction{Name: name, Arity: arity, Fn: fn}
	obj := object.Object{Value: object.FromNative(nf)}
	if id, ok := vm.globals.GetIndex(name); ok {
		vm.globals.Set(id, object.NewWithID(id, name, obj.Value))
		return
	}
	vm.globals.Insert(name, &obj)
}

func (vm *VM) runtimeError(c *chunk.Chunk, ip int, format string, args ...interface{}) error {
	file := "<main>"
	line := 0
	if c != nil {
		file = c.Name
		line = c.LineFor(ip)
	}
	return fmt.Errorf("[%s:%d] %s", file, line, fmt.Sprintf(format, args...))
}

func (vm *VM) push(o object.Object) error {
	if len(vm.stack) >= StackMax {
		return fmt.Errorf("InvalidOperand: stack overflow")
	}
	vm.stack = append(vm.stack, o)
	return nil
}

func (vm *VM) pop() object.Object {
	o := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return o
}

func (vm *VM) peek(distance int) object.Object {
	return vm.stack[len(vm.stack)-1-distance]
}

// Interpret runs main (the compiled top-level `<main>` Function) to
// completion and returns the final Value: the stack top if anything
// remains, else None (spec.md §8 "Universal properties").
func (vm *VM) Interpret(main *object.Function) (object.Value, error) {
	vm.frames = vm.frames[:0]
	vm.stack = vm.stack[:0]
	vm.frameCount = 0

	if err := vm.pushFrame(main, 0); err != nil {
		return object.None(), err
	}
	if err := vm.run(); err != nil {
		return object.None(), err
	}
	if len(vm.stack) == 0 {
		return object.None(), nil
	}
	return vm.stack[len(vm.stack)-1].Value, nil
}

func (vm *VM) pushFrame(fn *object.Function, stackSize int) error {
	if len(vm.frames) >= vm.maxFrames {
		return fmt.Errorf("InvalidOperand: call stack exhausted (max depth %d)", vm.maxFrames)
	}
	vm.frames = append(vm.frames, Frame{Function: fn, StackSize: stackSize, IP: 0})
	vm.frameCount++
	return nil
}

func (vm *VM) currentFrame() *Frame { return &vm.frames[len(vm.frames)-1] }

// run executes instructions from the top frame until every frame has
// returned. Frames are pushed/popped in place rather than recursing in
// Go, so a deeply recursive program fails with InvalidOperand (call stack
// exhausted) rather than a host stack overflow (spec.md §5).
func (vm *VM) run() error {
	for len(vm.frames) > 0 {
		frame := vm.currentFrame()
		fn := frame.Function
		c := fn.Chunk.(*chunk.Chunk)

		if frame.IP >= c.Size() {
			vm.popFrame()
			continue
		}

		op := chunk.OpCode(c.Data[frame.IP])
		opAddr := frame.IP

		if vm.config.Trace && vm.config.Logger != nil {
			vm.config.Logger.Printf("frame=%s ip=%d op=%s stack=%v", fn.Name, opAddr, op, vm.stackStrings())
		}

		var operand uint64
		if op.HasOperand() {
			if opAddr+1+chunk.SizeIndex > c.Size() {
				return &InvalidBytecodeError{Byte: byte(op)}
			}
			operand = c.ReadIndex(opAddr + 1)
			frame.IP = opAddr + 1 + chunk.SizeIndex
		} else {
			frame.IP = opAddr + 1
		}

		if op == chunk.Return {
			// Return's value is already on the stack top (the compiler
			// always emits the return expression, or an explicit None,
			// before Return); popFrame reads it off and restores the
			// caller's stack height (spec.md §4.3).
			vm.popFrame()
			continue
		}

		if err := vm.execute(op, operand, opAddr, c, frame); err != nil {
			return err
		}
	}
	return nil
}

func (vm *VM) stackStrings() []string {
	out := make([]string, len(vm.stack))
	for i, o := range vm.stack {
		out[i] = o.String()
	}
	return out
}

func (vm *VM) popFrame() {
	frame := vm.frames[len(vm.frames)-1]
	var ret object.Object
	if len(vm.stack) > frame.StackSize {
		ret = vm.stack[len(vm.stack)-1]
	} else {
		ret = object.NewNone()
	}
	// Resize down to (or up to, padding with None) the recorded
	// stack_size, the explicit restore original_source/src/vm.rs performs
	// on Return (spec.md §4.3's "padding with None if ever shorter").
	if frame.StackSize > len(vm.stack) {
		for len(vm.stack) < frame.StackSize {
			vm.stack = append(vm.stack, object.NewNone())
		}
	} else {
		vm.stack = vm.stack[:frame.StackSize]
	}
	vm.frames = vm.frames[:len(vm.frames)-1]
	vm.frameCount--
	// Whether this was the top-level frame or a callee, the return value
	// lands back on the stack at the restored height: the caller's frame
	// for a callee, or the slot Interpret reads back for the top level.
	vm.stack = append(vm.stack, ret)
}

// execute dispatches a single decoded instruction. opAddr is the address
// of the opcode byte itself, used by Jump/JumpIfFalse's "offset added to
// the current IP" rule and by runtimeError to find the source line; Loop's
// operand is an absolute address and does not use it.
func (vm *VM) execute(op chunk.OpCode, operand uint64, opAddr int, c *chunk.Chunk, frame *Frame) error {
	switch op {
	case chunk.Nop:
		return nil

	case chunk.OpNone:
		return vm.push(object.NewNone())
	case chunk.OpTrue:
		return vm.push(object.NewTrue())
	case chunk.OpFalse:
		return vm.push(object.NewFalse())

	case chunk.Const:
		if int(operand) >= len(c.Constants) {
			return vm.runtimeError(c, opAddr, "InvalidOperand: constant index %d out of range", operand)
		}
		lit := c.Constants[operand]
		return vm.push(object.New(literalToValue(lit)))

	case chunk.Pop:
		vm.pop()
		return nil

	case chunk.SetGlobal:
		rhs := vm.pop()
		existing, ok := vm.globals.Get(operand)
		if !ok {
			return vm.runtimeError(c, opAddr, "UndefinedName: id %d", operand)
		}
		vm.globals.Set(operand, object.NewWithID(existing.ID, existing.Name, rhs.Value))
		return nil

	case chunk.GetGlobal:
		obj, ok := vm.globals.Get(operand)
		if !ok {
			return vm.runtimeError(c, opAddr, "UndefinedName: id %d", operand)
		}
		return vm.push(*obj)

	case chunk.SetLocal:
		slot := frame.StackSize + int(operand)
		if slot >= len(vm.stack) {
			return vm.runtimeError(c, opAddr, "InvalidOperand: local slot %d out of range", operand)
		}
		vm.stack[slot] = vm.peek(0)
		return nil

	case chunk.GetLocal:
		slot := frame.StackSize + int(operand)
		if slot >= len(vm.stack) {
			return vm.runtimeError(c, opAddr, "InvalidOperand: local slot %d out of range", operand)
		}
		return vm.push(vm.stack[slot])

	case chunk.Call:
		return vm.call(int(operand), opAddr, c, frame)

	case chunk.Jump:
		frame.IP = opAddr + int(int64(operand))
		return nil

	case chunk.JumpIfFalse:
		cond := vm.pop()
		if cond.IsFalsey() {
			frame.IP = opAddr + int(int64(operand))
		}
		return nil

	case chunk.Loop:
		frame.IP = int(operand)
		return nil

	case chunk.Not:
		v := vm.pop()
		return vm.push(object.New(object.FromBool(v.IsFalsey())))

	case chunk.Neg:
		v := vm.pop()
		switch v.Value.Kind {
		case object.KindInteger:
			return vm.push(object.New(object.Integer(-v.Value.Int)))
		case object.KindFloat:
			return vm.push(object.New(object.Float(-v.Value.Float)))
		default:
			return vm.runtimeError(c, opAddr, "InvalidOperand: cannot negate %s", v.Value.Kind.String())
		}

	case chunk.And:
		rhs := vm.pop()
		lhs := vm.pop()
		return vm.push(object.New(object.FromBool(lhs.IsTruthy() && rhs.IsTruthy())))

	case chunk.Or:
		rhs := vm.pop()
		lhs := vm.pop()
		return vm.push(object.New(object.FromBool(lhs.IsTruthy() || rhs.IsTruthy())))

	case chunk.Equal:
		rhs := vm.pop()
		lhs := vm.pop()
		return vm.push(object.New(object.FromBool(lhs.Value.Equal(rhs.Value))))

	case chunk.NotEqual:
		rhs := vm.pop()
		lhs := vm.pop()
		return vm.push(object.New(object.FromBool(!lhs.Value.Equal(rhs.Value))))

	case chunk.Less, chunk.LessEqual, chunk.Greater, chunk.GreaterEqual:
		rhs := vm.pop()
		lhs := vm.pop()
		return vm.pushOrdering(op, lhs.Value, rhs.Value, c, opAddr)

	case chunk.Add, chunk.Sub, chunk.Mul, chunk.Div:
		rhs := vm.pop()
		lhs := vm.pop()
		result, err := vm.arith(op, lhs.Value, rhs.Value)
		if err != nil {
			return vm.runtimeError(c, opAddr, "%s", err)
		}
		return vm.push(object.New(result))

	default:
		return &InvalidBytecodeError{Byte: byte(op)}
	}
}

func literalToValue(lit chunk.Literal) object.Value {
	switch lit.Kind {
	case chunk.LitNone:
		return object.None()
	case chunk.LitTrue:
		return object.True()
	case chunk.LitFalse:
		return object.False()
	case chunk.LitInteger:
		return object.Integer(lit.Int)
	case chunk.LitFloat:
		return object.Float(lit.Float)
	case chunk.LitString:
		return object.String(lit.Str)
	default:
		return object.None()
	}
}

func (vm *VM) pushOrdering(op chunk.OpCode, lhs, rhs object.Value, c *chunk.Chunk, opAddr int) error {
	if lhs.Kind != rhs.Kind || (lhs.Kind != object.KindInteger && lhs.Kind != object.KindFloat && lhs.Kind != object.KindString) {
		return vm.runtimeError(c, opAddr, "InvalidOperand: cannot compare %s and %s", lhs.Kind.String(), rhs.Kind.String())
	}
	less := lhs.Less(rhs)
	equal := lhs.Equal(rhs)
	var result bool
	switch op {
	case chunk.Less:
		result = less
	case chunk.LessEqual:
		result = less || equal
	case chunk.Greater:
		result = !less && !equal
	case chunk.GreaterEqual:
		result = !less || equal
	}
	return vm.push(object.New(object.FromBool(result)))
}

// arith implements spec.md §4.3's numeric coercion table: int⊕int→int,
// int⊕float/float⊕int→float, float⊕float→float, String+String→
// concatenation, anything else → InvalidOperand (TypeError).
func (vm *VM) arith(op chunk.OpCode, lhs, rhs object.Value) (object.Value, error) {
	if lhs.Kind == object.KindString && rhs.Kind == object.KindString {
		if op != chunk.Add {
			return object.Value{}, fmt.Errorf("InvalidOperand: strings only support +")
		}
		return object.String(lhs.Str + rhs.Str), nil
	}

	isNum := func(v object.Value) bool { return v.Kind == object.KindInteger || v.Kind == object.KindFloat }
	if !isNum(lhs) || !isNum(rhs) {
		return object.Value{}, fmt.Errorf("InvalidOperand: unsupported operand types %s and %s", lhs.Kind.String(), rhs.Kind.String())
	}

	if lhs.Kind == object.KindInteger && rhs.Kind == object.KindInteger {
		switch op {
		case chunk.Add:
			return object.Integer(lhs.Int + rhs.Int), nil
		case chunk.Sub:
			return object.Integer(lhs.Int - rhs.Int), nil
		case chunk.Mul:
			return object.Integer(lhs.Int * rhs.Int), nil
		case chunk.Div:
			if rhs.Int == 0 {
				return object.Value{}, fmt.Errorf("InvalidOperand: integer division by zero")
			}
			return object.Integer(lhs.Int / rhs.Int), nil
		}
	}

	lf := asFloat(lhs)
	rf := asFloat(rhs)
	switch op {
	case chunk.Add:
		return object.Float(lf + rf), nil
	case chunk.Sub:
		return object.Float(lf - rf), nil
	case chunk.Mul:
		return object.Float(lf * rf), nil
	case chunk.Div:
		if rf == 0 {
			return object.Value{}, fmt.Errorf("InvalidOperand: float division by zero")
		}
		return object.Float(lf / rf), nil
	}
	return object.Value{}, fmt.Errorf("InvalidOperand: unsupported operator")
}

func asFloat(v object.Value) float64 {
	if v.Kind == object.KindInteger {
		return float64(v.Int)
	}
	return v.Float
}

// call implements spec.md §4.3's Call semantics: pop the callee, resolve
// it by name against globals (spec.md §9's documented brittleness — this
// is deliberate, not a bug), then either push a new Frame (Function) or
// invoke the native directly (NativeFunction).
func (vm *VM) call(argCount int, opAddr int, c *chunk.Chunk, frame *Frame) error {
	calleeObj := vm.pop()
	id, ok := vm.globals.GetIndex(calleeObj.Name)
	if !ok {
		return vm.runtimeError(c, opAddr, "UndefinedName: %s", calleeObj.Name)
	}
	global, _ := vm.globals.Get(id)

	switch global.Value.Kind {
	case object.KindFunction:
		fn := global.Value.Fn
		if fn.Arity != argCount {
			return vm.runtimeError(c, opAddr, "WrongArgumentCount: %s expected %d, got %d", fn.Name, fn.Arity, argCount)
		}
		stackSize := len(vm.stack) - argCount
		return vm.pushFrame(fn, stackSize)

	case object.KindNativeFunction:
		nf := global.Value.Native
		if nf.Arity != object.SentinelAny && nf.Arity != argCount {
			return vm.runtimeError(c, opAddr, "WrongArgumentCount: %s expected %d, got %d", nf.Name, nf.Arity, argCount)
		}
		args := make([]object.Object, argCount)
		for i := argCount - 1; i >= 0; i-- {
			args[i] = vm.pop()
		}
		result, err := nf.Fn(args)
		if err != nil {
			return vm.runtimeError(c, opAddr, "%s", err)
		}
		return vm.push(result)

	default:
		return vm.runtimeError(c, opAddr, "InvalidOperand: %s is not callable", calleeObj.Name)
	}
}
