package vm

import (
	"fmt"
	"strings"

	"langvm/internal/object"
)

// DefineCoreNatives installs the two mandatory builtins spec.md §4.5
// requires every interpreter to carry: print and abs. Their exact shape
// (arity, SentinelAny for variadic, the pop-order/space-join convention)
// is taken from original_source/src/native.rs, as SPEC_FULL.md §4 records.
func DefineCoreNatives(vm *VM) {
	vm.DefineNative("print", object.SentinelAny, nativePrint)
	vm.DefineNative("abs", 1, nativeAbs)
}

// nativePrint receives arguments in source order (the compiler emits them
// left to right and VM.call pops them last-first into the args slice from
// its end, so args[0] is the first source argument), space-joins their
// display form and writes a trailing newline to standard output.
func nativePrint(args []object.Object) (object.Object, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Value.String()
	}
	fmt.Println(strings.Join(parts, " "))
	return object.NewNone(), nil
}

func nativeAbs(args []object.Object) (object.Object, error) {
	v := args[0].Value
	switch v.Kind {
	case object.KindInteger:
		n := v.Int
		if n < 0 {
			n = -n
		}
		return object.New(object.Integer(n)), nil
	case object.KindFloat:
		f := v.Float
		if f < 0 {
			f = -f
		}
		return object.New(object.Float(f)), nil
	default:
		return object.Object{}, fmt.Errorf("InvalidOperand: abs expects Integer or Float, got %s", v.Kind.String())
	}
}
