// Package compiler lowers an ast.Program into bytecode chunk.Chunks,
// resolving global/local scope and back-patching control-flow jumps
// (spec.md §4.2) — this is the first of the three core subsystems the
// specification covers. The overall shape (a single Compiler walking
// nodes with a switch dispatcher, a chunk-building emit* helper set, a
// locals stack plus scopeDepth for block scoping, and one child Compiler
// per nested function) follows estevaofon-noxy's internal/compiler
// package; the scope-resolution rules themselves — global-by-default at
// the top level, locals-with-global-fallback inside a def, eager global
// registration for recursion — are this language's own (spec.md §4.2),
// not noxy's type-checked let/struct/closure model.
package compiler

import (
	"fmt"

	"langvm/internal/ast"
	"langvm/internal/chunk"
	"langvm/internal/object"
	"langvm/internal/symboltable"
)

// NameNotFoundError is raised when a Variable read or write can't be
// resolved against any local, the enclosing function's own name, or the
// global table.
type NameNotFoundError struct{ Name string }

func (e *NameNotFoundError) Error() string { return fmt.Sprintf("NameNotFound: %s", e.Name) }

// InvalidExpressionError covers every other structural compile failure:
// a non-Variable assignment target, or `continue` outside any loop.
type InvalidExpressionError struct{ Message string }

func (e *InvalidExpressionError) Error() string { return fmt.Sprintf("InvalidExpression: %s", e.Message) }

// Local is a compile-time-only binding; its index in Compiler.locals is
// also its VM stack slot offset from the frame base (spec.md §3).
type Local struct {
	Name  string
	Depth int
}

// Compiler compiles exactly one Function's body: the top-level program
// (isTopLevel == true, reserved name object.NameMain) or one `def`'s
// body (isTopLevel == false). Nested defs get their own child Compiler;
// there is no upvalue resolution because closures/captures are a
// declared non-goal (spec.md §1).
type Compiler struct {
	globals *symboltable.SymbolTable

	chunk      *chunk.Chunk
	isTopLevel bool
	ownName    string
	ownGlobal  uint64

	locals     []Local
	scopeDepth int

	continueStack []int
	breakStack    []int
}

// New creates the compiler for the program's top-level `<main>` function.
func New(globals *symboltable.SymbolTable) *Compiler {
	return &Compiler{
		globals:    globals,
		chunk:      chunk.New(object.NameMain),
		isTopLevel: true,
	}
}

func newChild(globals *symboltable.SymbolTable, name string, ownGlobal uint64) *Compiler {
	return &Compiler{
		globals:   globals,
		chunk:     chunk.New(name),
		ownName:   name,
		ownGlobal: ownGlobal,
	}
}

// CompileProgram compiles the whole program into the top-level
// function's chunk, terminated by a Nop (spec.md §4.2 Finalization).
func (c *Compiler) CompileProgram(prog *ast.Program) (*chunk.Chunk, error) {
	for _, expr := range prog.Exprs {
		if err := c.compile(expr); err != nil {
			return nil, err
		}
	}
	c.chunk.Emit(chunk.Nop, 0)
	return c.chunk, nil
}

func (c *Compiler) compile(node ast.Expression) error {
	line := node.Line()
	switch n := node.(type) {
	case *ast.Empty:
		c.chunk.Emit(chunk.Nop, line)
		return nil

	case *ast.Literal:
		return c.compileLiteral(n)

	case *ast.Variable:
		return c.compileVariableRead(n)

	case *ast.Assignment:
		return c.compileAssignment(n)

	case *ast.Unary:
		if err := c.compile(n.Operand); err != nil {
			return err
		}
		c.chunk.Emit(c.operatorOpcode(n.Op), line)
		return nil

	case *ast.Binary:
		if err := c.compile(n.Left); err != nil {
			return err
		}
		if err := c.compile(n.Right); err != nil {
			return err
		}
		c.chunk.Emit(c.operatorOpcode(n.Op), line)
		return nil

	case *ast.Block:
		return c.compileBlock(n)

	case *ast.If:
		return c.compileIf(n)

	case *ast.While:
		return c.compileWhile(n)

	case *ast.Continue:
		if len(c.continueStack) == 0 {
			return &InvalidExpressionError{Message: "continue without loop"}
		}
		target := c.continueStack[len(c.continueStack)-1]
		c.chunk.Emit(chunk.Loop, line)
		c.chunk.EmitIndex(uint64(target))
		return nil

	case *ast.Break:
		c.chunk.Emit(chunk.Jump, line)
		addr := c.chunk.EmitIndex(0)
		c.breakStack = append(c.breakStack, addr)
		return nil

	case *ast.Return:
		if _, ok := n.Value.(*ast.Empty); ok {
			c.chunk.Emit(chunk.OpNone, line)
		} else if err := c.compile(n.Value); err != nil {
			return err
		}
		c.chunk.Emit(chunk.Return, line)
		return nil

	case *ast.FunctionExpr:
		return c.compileFunctionExpr(n)

	case *ast.Call:
		return c.compileCall(n)

	default:
		c.chunk.Emit(chunk.Nop, line)
		return nil
	}
}

func (c *Compiler) compileLiteral(n *ast.Literal) error {
	switch n.Kind {
	case ast.LitNone:
		c.chunk.Emit(chunk.OpNone, n.Line())
	case ast.LitTrue:
		c.chunk.Emit(chunk.OpTrue, n.Line())
	case ast.LitFalse:
		c.chunk.Emit(chunk.OpFalse, n.Line())
	case ast.LitInteger:
		idx := c.chunk.AddConstant(chunk.IntegerLiteral(n.Int))
		c.chunk.Emit(chunk.Const, n.Line())
		c.chunk.EmitIndex(idx)
	case ast.LitFloat:
		idx := c.chunk.AddConstant(chunk.FloatLiteral(n.Float))
		c.chunk.Emit(chunk.Const, n.Line())
		c.chunk.EmitIndex(idx)
	case ast.LitString:
		idx := c.chunk.AddConstant(chunk.StringLiteral(n.Str))
		c.chunk.Emit(chunk.Const, n.Line())
		c.chunk.EmitIndex(idx)
	}
	return nil
}

func (c *Compiler) operatorOpcode(op ast.Operator) chunk.OpCode {
	switch op {
	case ast.Not:
		return chunk.Not
	case ast.Neg:
		return chunk.Neg
	case ast.Add:
		return chunk.Add
	case ast.Sub:
		return chunk.Sub
	case ast.Mul:
		return chunk.Mul
	case ast.Div:
		return chunk.Div
	case ast.And:
		return chunk.And
	case ast.Or:
		return chunk.Or
	case ast.Equal:
		return chunk.Equal
	case ast.NotEqual:
		return chunk.NotEqual
	case ast.Less:
		return chunk.Less
	case ast.LessEqual:
		return chunk.LessEqual
	case ast.Greater:
		return chunk.Greater
	case ast.GreaterEqual:
		return chunk.GreaterEqual
	default:
		return chunk.Nop
	}
}

// compileVariableRead implements spec.md §4.2's read resolution rules.
func (c *Compiler) compileVariableRead(n *ast.Variable) error {
	line := n.Line()
	if c.isTopLevel {
		id, ok := c.globals.GetIndex(n.Name)
		if !ok {
			return &NameNotFoundError{Name: n.Name}
		}
		c.chunk.Emit(chunk.GetGlobal, line)
		c.chunk.EmitIndex(id)
		return nil
	}

	if slot, ok := c.resolveLocal(n.Name); ok {
		c.chunk.Emit(chunk.GetLocal, line)
		c.chunk.EmitIndex(uint64(slot))
		return nil
	}
	if n.Name == c.ownName {
		c.chunk.Emit(chunk.GetGlobal, line)
		c.chunk.EmitIndex(c.ownGlobal)
		return nil
	}
	if id, ok := c.globals.GetIndex(n.Name); ok {
		c.chunk.Emit(chunk.GetGlobal, line)
		c.chunk.EmitIndex(id)
		return nil
	}
	return &NameNotFoundError{Name: n.Name}
}

func (c *Compiler) resolveLocal(name string) (int, bool) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].Name == name {
			return i, true
		}
	}
	return 0, false
}

// compileAssignment implements spec.md §4.2's write resolution rules.
func (c *Compiler) compileAssignment(n *ast.Assignment) error {
	target, ok := n.Target.(*ast.Variable)
	if !ok {
		return &InvalidExpressionError{Message: "Assignment must set a variable"}
	}
	if err := c.compile(n.Value); err != nil {
		return err
	}
	line := n.Line()

	if c.isTopLevel {
		id, ok := c.globals.GetIndex(target.Name)
		if !ok {
			id = c.globals.Insert(target.Name, nil)
		}
		c.chunk.Emit(chunk.SetGlobal, line)
		c.chunk.EmitIndex(id)
		return nil
	}

	if id, ok := c.globals.GetIndex(target.Name); ok {
		c.chunk.Emit(chunk.SetGlobal, line)
		c.chunk.EmitIndex(id)
		return nil
	}

	slot, ok := c.resolveLocal(target.Name)
	if !ok {
		slot = len(c.locals)
		c.locals = append(c.locals, Local{Name: target.Name, Depth: c.scopeDepth})
	}
	c.chunk.Emit(chunk.SetLocal, line)
	c.chunk.EmitIndex(uint64(slot))
	return nil
}

func (c *Compiler) compileBlock(b *ast.Block) error {
	c.beginScope()
	for _, e := range b.Exprs {
		if err := c.compile(e); err != nil {
			return err
		}
	}
	c.endScope()
	return nil
}

func (c *Compiler) beginScope() { c.scopeDepth++ }

func (c *Compiler) endScope() {
	c.scopeDepth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].Depth > c.scopeDepth {
		c.chunk.Emit(chunk.Pop, 0)
		c.locals = c.locals[:len(c.locals)-1]
	}
}

// compileIf implements spec.md §4.2's If emission contract: each
// if/elif branch gets its own conditional-skip jump, and every branch's
// unconditional exit jump is patched to the address right after the
// whole if/elif/else chain.
func (c *Compiler) compileIf(n *ast.If) error {
	type exprBranch struct {
		Cond ast.Expression
		Body *ast.Block
	}

	branches := []exprBranch{{Cond: n.Cond, Body: n.Then}}
	for _, e := range n.Elifs {
		branches = append(branches, exprBranch{Cond: e.Cond, Body: e.Then})
	}

	var exitJumps []int
	for _, br := range branches {
		if err := c.compile(br.Cond); err != nil {
			return err
		}
		c.chunk.Emit(chunk.JumpIfFalse, br.Cond.Line())
		jifAddr := c.chunk.EmitIndex(0)

		if err := c.compileBlock(br.Body); err != nil {
			return err
		}

		c.chunk.Emit(chunk.Jump, br.Body.Line())
		exitAddr := c.chunk.EmitIndex(0)
		exitJumps = append(exitJumps, exitAddr)

		c.chunk.PatchJumpAddr(jifAddr, c.chunk.Size())
	}

	if n.Else != nil {
		if err := c.compileBlock(n.Else); err != nil {
			return err
		}
	}

	exitTarget := c.chunk.Size()
	for _, addr := range exitJumps {
		c.chunk.PatchJumpAddr(addr, exitTarget)
	}
	return nil
}

func (c *Compiler) compileWhile(n *ast.While) error {
	startAddr := c.chunk.Size()
	c.continueStack = append(c.continueStack, startAddr)
	breakMark := len(c.breakStack)

	if err := c.compile(n.Cond); err != nil {
		return err
	}
	c.chunk.Emit(chunk.JumpIfFalse, n.Cond.Line())
	jifAddr := c.chunk.EmitIndex(0)

	if err := c.compileBlock(n.Body); err != nil {
		return err
	}

	c.continueStack = c.continueStack[:len(c.continueStack)-1]
	c.chunk.Emit(chunk.Loop, n.Line())
	c.chunk.EmitIndex(uint64(startAddr))

	exitAddr := c.chunk.Size()
	c.chunk.PatchJumpAddr(jifAddr, exitAddr)
	for _, addr := range c.breakStack[breakMark:] {
		c.chunk.PatchJumpAddr(addr, exitAddr)
	}
	c.breakStack = c.breakStack[:breakMark]
	return nil
}

// compileFunctionExpr registers the function's name in globals before
// compiling its body (enabling direct and mutual recursion, spec.md §9),
// then compiles a standalone child chunk and installs the resulting
// object.Function as that global's value. No bytecode is emitted into
// the enclosing chunk: the def's only effect is populating globals.
func (c *Compiler) compileFunctionExpr(n *ast.FunctionExpr) error {
	id, ok := c.globals.GetIndex(n.Name)
	if !ok {
		id = c.globals.Insert(n.Name, nil)
	}

	child := newChild(c.globals, n.Name, id)
	for _, p := range n.Params {
		child.locals = append(child.locals, Local{Name: p, Depth: 0})
	}
	if err := child.compile(n.Body); err != nil {
		return err
	}
	// Fallback return path for a body that falls off the end without an
	// explicit `return` on every branch.
	child.chunk.Emit(chunk.OpNone, n.Line())
	child.chunk.Emit(chunk.Return, n.Line())

	fn := &object.Function{Name: n.Name, Arity: len(n.Params), Chunk: child.chunk}
	c.globals.Set(id, object.NewWithID(id, n.Name, object.FromFunction(fn)))
	return nil
}

// compileCall emits arguments in source order, then the callee, so the
// argument values land on the stack in the same order a callee Function's
// params were declared (arg 0 ends up at the lowest slot, matching
// compileFunctionExpr's param-to-local-index assignment) and a native's
// pop-while-counting-down loop reassembles them in source order too
// (spec.md §4.2, §9).
func (c *Compiler) compileCall(n *ast.Call) error {
	for _, arg := range n.Args {
		if err := c.compile(arg); err != nil {
			return err
		}
	}
	if err := c.compile(n.Callee); err != nil {
		return err
	}
	c.chunk.Emit(chunk.Call, n.Line())
	c.chunk.EmitIndex(uint64(len(n.Args)))
	return nil
}
