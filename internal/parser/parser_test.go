package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"langvm/internal/ast"
	"langvm/internal/lexer"
)

func parseProgram(t *testing.T, src string) *ast.Program {
	t.Helper()
	p := New(lexer.New(src))
	prog := p.ParseProgram()
	require.Empty(t, p.Errors(), "parser errors: %v", p.Errors())
	return prog
}

func TestParsesArithmeticPrecedence(t *testing.T) {
	prog := parseProgram(t, "1 + 2 * 3\n")
	require.Len(t, prog.Exprs, 1)
	bin, ok := prog.Exprs[0].(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, ast.Add, bin.Op)
	require.IsType(t, &ast.Literal{}, bin.Left)
	rightBin, ok := bin.Right.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, ast.Mul, rightBin.Op)
}

func TestParsesAssignment(t *testing.T) {
	prog := parseProgram(t, "x = 10\ny = x + 5\n")
	require.Len(t, prog.Exprs, 2)
	a0, ok := prog.Exprs[0].(*ast.Assignment)
	require.True(t, ok)
	v, ok := a0.Target.(*ast.Variable)
	require.True(t, ok)
	require.Equal(t, "x", v.Name)
}

func TestParsesIfElifElse(t *testing.T) {
	src := "if 1 < 0:\n  1\nelif 2 < 1:\n  2\nelif 2 < 0:\n  3\nelse:\n  4\n"
	prog := parseProgram(t, src)
	require.Len(t, prog.Exprs, 1)
	n, ok := prog.Exprs[0].(*ast.If)
	require.True(t, ok)
	require.Len(t, n.Elifs, 2)
	require.NotNil(t, n.Else)
	require.Len(t, n.Then.Exprs, 1)
}

func TestParsesWhileWithBreak(t *testing.T) {
	src := "test = 1\nwhile test < 10:\n  if test >= 5:\n    break\n  test = test + 1\ntest\n"
	prog := parseProgram(t, src)
	require.Len(t, prog.Exprs, 3)
	w, ok := prog.Exprs[1].(*ast.While)
	require.True(t, ok)
	require.Len(t, w.Body.Exprs, 2)
	innerIf, ok := w.Body.Exprs[0].(*ast.If)
	require.True(t, ok)
	_, ok = innerIf.Then.Exprs[0].(*ast.Break)
	require.True(t, ok)
}

func TestParsesFunctionDefAndCall(t *testing.T) {
	src := "def double(n):\n  return 2 * n\ndouble(10)\n"
	prog := parseProgram(t, src)
	require.Len(t, prog.Exprs, 2)
	fn, ok := prog.Exprs[0].(*ast.FunctionExpr)
	require.True(t, ok)
	require.Equal(t, "double", fn.Name)
	require.Equal(t, []string{"n"}, fn.Params)
	ret, ok := fn.Body.Exprs[0].(*ast.Return)
	require.True(t, ok)
	require.IsType(t, &ast.Binary{}, ret.Value)

	call, ok := prog.Exprs[1].(*ast.Call)
	require.True(t, ok)
	callee, ok := call.Callee.(*ast.Variable)
	require.True(t, ok)
	require.Equal(t, "double", callee.Name)
	require.Len(t, call.Args, 1)
}

func TestParsesSiblingFunctionDefsAtTopLevel(t *testing.T) {
	src := "def two():\n  return 1 + 1\ndef six():\n  return 6\nresult = 1\n"
	prog := parseProgram(t, src)
	require.Len(t, prog.Exprs, 3)
	require.IsType(t, &ast.FunctionExpr{}, prog.Exprs[0])
	require.IsType(t, &ast.FunctionExpr{}, prog.Exprs[1])
}

func TestReturnWithNoValueIsEmpty(t *testing.T) {
	src := "def f():\n  return\nf()\n"
	prog := parseProgram(t, src)
	fn := prog.Exprs[0].(*ast.FunctionExpr)
	ret := fn.Body.Exprs[0].(*ast.Return)
	require.IsType(t, &ast.Empty{}, ret.Value)
}

func TestUnaryNotAndNeg(t *testing.T) {
	prog := parseProgram(t, "not x\n-5\n")
	require.Len(t, prog.Exprs, 2)
	u0 := prog.Exprs[0].(*ast.Unary)
	require.Equal(t, ast.Not, u0.Op)
	u1 := prog.Exprs[1].(*ast.Unary)
	require.Equal(t, ast.Neg, u1.Op)
}

func TestContinueInsideWhile(t *testing.T) {
	src := "while x:\n  continue\n"
	prog := parseProgram(t, src)
	w := prog.Exprs[0].(*ast.While)
	_, ok := w.Body.Exprs[0].(*ast.Continue)
	require.True(t, ok)
}
