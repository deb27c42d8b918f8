package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"langvm/internal/compiler"
	"langvm/internal/lexer"
	"langvm/internal/object"
	"langvm/internal/parser"
	"langvm/internal/symboltable"
)

// run compiles and interprets src, returning the final Value the way
// spec.md §8's end-to-end scenarios are phrased (source → final Value).
func run(t *testing.T, src string) object.Value {
	t.Helper()
	p := parser.New(lexer.New(src))
	prog := p.ParseProgram()
	require.Empty(t, p.Errors(), "parser errors: %v", p.Errors())

	globals := symboltable.New()
	// The VM installs print/abs into globals, so it must exist before the
	// compiler resolves names against them.
	machine := NewWithConfig(globals, VMConfig{RootPath: "."})
	c := compiler.New(globals)
	ck, err := c.CompileProgram(prog)
	require.NoError(t, err)

	main := &object.Function{Name: object.NameMain, Arity: 0, Chunk: ck}
	result, err := machine.Interpret(main)
	require.NoError(t, err)
	return result
}

func TestArithmeticPrecedence(t *testing.T) {
	v := run(t, "1 + 2 * 3\n")
	require.Equal(t, object.KindInteger, v.Kind)
	require.Equal(t, int64(7), v.Int)
}

func TestGlobalAssignmentAndReference(t *testing.T) {
	v := run(t, "x = 10\ny = x + 5\ny\n")
	require.Equal(t, int64(15), v.Int)
}

func TestIfElifElseTakesFirstTruthyBranch(t *testing.T) {
	src := "if 1 < 0:\n  1\nelif 2 < 1:\n  2\nelif 2 < 0:\n  3\nelse:\n  4\n"
	v := run(t, src)
	require.Equal(t, int64(4), v.Int)
}

func TestWhileLoopCountsUp(t *testing.T) {
	src := "test = 1\nwhile test < 100:\n  test = test + 1\ntest\n"
	v := run(t, src)
	require.Equal(t, int64(100), v.Int)
}

func TestBreakExitsLoopEarly(t *testing.T) {
	src := "test = 1\nwhile test < 10:\n  if test >= 5:\n    break\n  test = test + 1\ntest\n"
	v := run(t, src)
	require.Equal(t, int64(5), v.Int)
}

func TestContinueSkipsRestOfIteration(t *testing.T) {
	// Sums only the even numbers from 1..10 by continuing past odds.
	src := "n = 0\ntotal = 0\nwhile n < 10:\n  n = n + 1\n  if n - (n / 2) * 2 == 1:\n    continue\n  total = total + n\ntotal\n"
	v := run(t, src)
	require.Equal(t, int64(30), v.Int)
}

func TestFunctionCallReturnsComputedValue(t *testing.T) {
	src := "def double(n):\n  return 2 * n\ndouble(10)\n"
	v := run(t, src)
	require.Equal(t, int64(20), v.Int)
}

func TestMutualGlobalReadsAcrossFunctions(t *testing.T) {
	src := "def two():\n  return 1 + 1\ndef six():\n  return 6\nresult = 1\nresult = two()\nresult = result * six()\nresult\n"
	v := run(t, src)
	require.Equal(t, int64(12), v.Int)
}

func TestRecursiveFactorial(t *testing.T) {
	src := "def fact(n):\n  if n <= 1:\n    return 1\n  return n * fact(n - 1)\nfact(5)\n"
	v := run(t, src)
	require.Equal(t, int64(120), v.Int)
}

func TestAbsNativeOnIntegerAndFloat(t *testing.T) {
	v := run(t, "abs(-3)\n")
	require.Equal(t, int64(3), v.Int)

	v = run(t, "abs(-2.5)\n")
	require.Equal(t, object.KindFloat, v.Kind)
	require.Equal(t, 2.5, v.Float)
}

func TestStringConcatenation(t *testing.T) {
	v := run(t, "\"foo\" + \"bar\"\n")
	require.Equal(t, "foobar", v.Str)
}

func TestIntFloatCoercionPromotesToFloat(t *testing.T) {
	v := run(t, "1 + 2.5\n")
	require.Equal(t, object.KindFloat, v.Kind)
	require.Equal(t, 3.5, v.Float)
}

func TestIntegerDivisionTruncates(t *testing.T) {
	v := run(t, "7 / 2\n")
	require.Equal(t, int64(3), v.Int)
}

func TestCallingNonCallableGlobalIsInvalidOperand(t *testing.T) {
	p := parser.New(lexer.New("x = 10\nx()\n"))
	prog := p.ParseProgram()
	require.Empty(t, p.Errors())

	globals := symboltable.New()
	c := compiler.New(globals)
	ck, err := c.CompileProgram(prog)
	require.NoError(t, err)

	main := &object.Function{Name: object.NameMain, Arity: 0, Chunk: ck}
	machine := NewWithConfig(globals, VMConfig{RootPath: "."})
	_, err = machine.Interpret(main)
	require.Error(t, err)
	require.Contains(t, err.Error(), "InvalidOperand")
}

func TestWrongArgumentCountIsRejected(t *testing.T) {
	src := "def one(a):\n  return a\none(1, 2)\n"
	p := parser.New(lexer.New(src))
	prog := p.ParseProgram()
	require.Empty(t, p.Errors())

	globals := symboltable.New()
	c := compiler.New(globals)
	ck, err := c.CompileProgram(prog)
	require.NoError(t, err)

	main := &object.Function{Name: object.NameMain, Arity: 0, Chunk: ck}
	machine := NewWithConfig(globals, VMConfig{RootPath: "."})
	_, err = machine.Interpret(main)
	require.Error(t, err)
	require.Contains(t, err.Error(), "WrongArgumentCount")
}

func TestAddingIntegerAndStringIsTypeError(t *testing.T) {
	src := "1 + \"x\"\n"
	p := parser.New(lexer.New(src))
	prog := p.ParseProgram()
	require.Empty(t, p.Errors())

	globals := symboltable.New()
	c := compiler.New(globals)
	ck, err := c.CompileProgram(prog)
	require.NoError(t, err)

	main := &object.Function{Name: object.NameMain, Arity: 0, Chunk: ck}
	machine := NewWithConfig(globals, VMConfig{RootPath: "."})
	_, err = machine.Interpret(main)
	require.Error(t, err)
	require.Contains(t, err.Error(), "InvalidOperand")
}

func TestMultiArgFunctionBindsParamsInDeclaredOrder(t *testing.T) {
	// subtract(a, b) must see a=10, b=3, not the reverse: a regression
	// test for the argument-to-local-slot ordering compileCall/call rely on.
	src := "def subtract(a, b):\n  return a - b\nsubtract(10, 3)\n"
	v := run(t, src)
	require.Equal(t, int64(7), v.Int)
}

func TestMultiArgNativeSeesArgsInSourceOrder(t *testing.T) {
	globals := symboltable.New()
	machine := NewWithConfig(globals, VMConfig{RootPath: "."})
	var seen []int64
	machine.DefineNative("record", 3, func(args []object.Object) (object.Object, error) {
		for _, a := range args {
			seen = append(seen, a.Value.Int)
		}
		return object.NewNone(), nil
	})

	p := parser.New(lexer.New("record(1, 2, 3)\n"))
	prog := p.ParseProgram()
	require.Empty(t, p.Errors())
	c := compiler.New(globals)
	ck, err := c.CompileProgram(prog)
	require.NoError(t, err)

	main := &object.Function{Name: object.NameMain, Arity: 0, Chunk: ck}
	_, err = machine.Interpret(main)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3}, seen)
}

func TestDefineNativeIsCallableFromSource(t *testing.T) {
	globals := symboltable.New()
	machine := NewWithConfig(globals, VMConfig{RootPath: "."})
	var captured object.Value
	machine.DefineNative("report", 1, func(args []object.Object) (object.Object, error) {
		captured = args[0].Value
		return object.NewNone(), nil
	})

	p := parser.New(lexer.New("report(42)\n"))
	prog := p.ParseProgram()
	require.Empty(t, p.Errors())
	c := compiler.New(globals)
	ck, err := c.CompileProgram(prog)
	require.NoError(t, err)

	main := &object.Function{Name: object.NameMain, Arity: 0, Chunk: ck}
	_, err = machine.Interpret(main)
	require.NoError(t, err)
	require.Equal(t, int64(42), captured.Int)
}
