package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"langvm/internal/ast"
	"langvm/internal/chunk"
	"langvm/internal/lexer"
	"langvm/internal/object"
	"langvm/internal/parser"
	"langvm/internal/symboltable"
)

func compileSource(t *testing.T, src string) (*chunk.Chunk, *symboltable.SymbolTable) {
	t.Helper()
	p := parser.New(lexer.New(src))
	prog := p.ParseProgram()
	require.Empty(t, p.Errors(), "parser errors: %v", p.Errors())

	globals := symboltable.New()
	c := New(globals)
	ck, err := c.CompileProgram(prog)
	require.NoError(t, err)
	return ck, globals
}

func opsOf(t *testing.T, ck *chunk.Chunk) []chunk.OpCode {
	t.Helper()
	var ops []chunk.OpCode
	i := 0
	for i < ck.Size() {
		op := chunk.OpCode(ck.Data[i])
		ops = append(ops, op)
		i += chunk.SizeInstruction
		if op.HasOperand() {
			i += chunk.SizeIndex
		}
	}
	return ops
}

func TestLiteralEmitsConstAndIndex(t *testing.T) {
	ck, _ := compileSource(t, "42\n")
	require.Len(t, ck.Constants, 1)
	require.Equal(t, int64(42), ck.Constants[0].Int)
	ops := opsOf(t, ck)
	require.Equal(t, chunk.Const, ops[0])
	require.Equal(t, chunk.Nop, ops[len(ops)-1])
}

func TestTopLevelAssignmentUsesSetGlobal(t *testing.T) {
	ck, globals := compileSource(t, "x = 10\n")
	ops := opsOf(t, ck)
	require.Contains(t, ops, chunk.SetGlobal)
	_, ok := globals.GetIndex("x")
	require.True(t, ok)
}

func TestTopLevelReadOfUndeclaredNameFails(t *testing.T) {
	p := parser.New(lexer.New("y\n"))
	prog := p.ParseProgram()
	require.Empty(t, p.Errors())

	c := New(symboltable.New())
	_, err := c.CompileProgram(prog)
	require.Error(t, err)
	var nameErr *NameNotFoundError
	require.ErrorAs(t, err, &nameErr)
	require.Equal(t, "y", nameErr.Name)
}

func TestIfElifElsePatchesAllExitJumpsToSameTarget(t *testing.T) {
	src := "x = 1\nif x < 0:\n  1\nelif x > 0:\n  2\nelse:\n  3\n"
	ck, _ := compileSource(t, src)
	ops := opsOf(t, ck)
	require.Contains(t, ops, chunk.JumpIfFalse)
	require.Contains(t, ops, chunk.Jump)

	// Every branch's exit Jump lands on the instruction after the whole
	// chain: the final Nop.
	var jumpTargets []int
	for addr := 0; addr < ck.Size(); {
		op := chunk.OpCode(ck.Data[addr])
		if op == chunk.Jump {
			jumpTargets = append(jumpTargets, addr+int(int64(ck.ReadIndex(addr+1))))
		}
		addr += chunk.SizeInstruction
		if op.HasOperand() {
			addr += chunk.SizeIndex
		}
	}
	require.Len(t, jumpTargets, 2)
	for _, target := range jumpTargets {
		require.Equal(t, ck.Size()-1, target)
	}
}

func TestWhileEmitsLoopBackToConditionStart(t *testing.T) {
	src := "x = 0\nwhile x < 10:\n  x = x + 1\n"
	ck, _ := compileSource(t, src)
	ops := opsOf(t, ck)
	require.Contains(t, ops, chunk.Loop)
	require.Contains(t, ops, chunk.JumpIfFalse)

	// `x = 0` is Const + SetGlobal (2 * 9 bytes), so the condition starts
	// at address 18 and Loop's absolute operand must point there.
	loopTarget := -1
	for addr := 0; addr < ck.Size(); {
		op := chunk.OpCode(ck.Data[addr])
		if op == chunk.Loop {
			loopTarget = int(ck.ReadIndex(addr + 1))
		}
		addr += chunk.SizeInstruction
		if op.HasOperand() {
			addr += chunk.SizeIndex
		}
	}
	require.Equal(t, 18, loopTarget)
}

func TestBreakInsideLoopCompilesAsForwardJump(t *testing.T) {
	src := "x = 0\nwhile x < 10:\n  if x == 5:\n    break\n  x = x + 1\n"
	ck, _ := compileSource(t, src)
	ops := opsOf(t, ck)
	require.Contains(t, ops, chunk.Jump)
}

func TestContinueWithoutLoopIsInvalidExpression(t *testing.T) {
	p := parser.New(lexer.New("continue\n"))
	prog := p.ParseProgram()
	require.Empty(t, p.Errors())

	c := New(symboltable.New())
	_, err := c.CompileProgram(prog)
	require.Error(t, err)
	var invErr *InvalidExpressionError
	require.ErrorAs(t, err, &invErr)
}

func TestAssignmentToNonVariableIsRejected(t *testing.T) {
	c := &Compiler{globals: symboltable.New(), chunk: chunk.New("<main>"), isTopLevel: true}
	bad := &ast.Assignment{
		Target: &ast.Literal{Kind: ast.LitInteger, Int: 1},
		Value:  &ast.Literal{Kind: ast.LitInteger, Int: 2},
	}
	err := c.compileAssignment(bad)
	require.Error(t, err)
	var invErr *InvalidExpressionError
	require.ErrorAs(t, err, &invErr)
}

func TestFunctionDefRegistersGlobalAndOwnChunk(t *testing.T) {
	src := "def double(n):\n  return n * 2\ndouble(21)\n"
	ck, globals := compileSource(t, src)

	id, ok := globals.GetIndex("double")
	require.True(t, ok)
	obj, ok := globals.Get(id)
	require.True(t, ok)
	require.Equal(t, object.KindFunction, obj.Value.Kind)
	fn := obj.Value.Fn
	require.Equal(t, 1, fn.Arity)

	childChunk, ok := fn.Chunk.(*chunk.Chunk)
	require.True(t, ok)
	childOps := opsOf(t, childChunk)
	require.Contains(t, childOps, chunk.Return)

	topOps := opsOf(t, ck)
	require.Contains(t, topOps, chunk.Call)
}

func TestRecursiveFunctionResolvesOwnNameAsGlobal(t *testing.T) {
	src := "def fact(n):\n  if n <= 1:\n    return 1\n  return n * fact(n - 1)\nfact(5)\n"
	_, globals := compileSource(t, src)
	_, ok := globals.GetIndex("fact")
	require.True(t, ok)
}

func TestCallArgumentsEmittedBeforeCallee(t *testing.T) {
	src := "def f(a, b):\n  return a\nf(1, 2)\n"
	ck, _ := compileSource(t, src)
	ops := opsOf(t, ck)
	callIdx := -1
	for i, op := range ops {
		if op == chunk.Call {
			callIdx = i
		}
	}
	require.GreaterOrEqual(t, callIdx, 3)
	require.Equal(t, chunk.GetGlobal, ops[callIdx-1])
	require.Equal(t, chunk.Const, ops[callIdx-2])
	require.Equal(t, chunk.Const, ops[callIdx-3])
}
