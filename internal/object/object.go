// Package object defines the runtime value universe and the identity
// wrapper the compiler's and VM's symbol table key on.
package object

import (
	"fmt"
	"hash/fnv"
	"math"
)

// Kind tags a Value's variant.
type Kind int

const (
	KindNone Kind = iota
	KindTrue
	KindFalse
	KindInteger
	KindFloat
	KindString
	KindFunction
	KindNativeFunction
)

var kindNames = map[Kind]string{
	KindNone: "None", KindTrue: "True", KindFalse: "False",
	KindInteger: "Integer", KindFloat: "Float", KindString: "String",
	KindFunction: "Function", KindNativeFunction: "NativeFunction",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// SentinelAny marks a NativeFunction as variadic (see ANY arity in
// spec.md's native registry).
const SentinelAny = -1

// Function is the interpreted, bytecode-bearing callable produced by the
// compiler for a `def`. Chunk is declared as interface{} here to avoid an
// import cycle with package chunk; the compiler stores a *chunk.Chunk in
// it and the vm package asserts it back to *chunk.Chunk.
type Function struct {
	Name  string
	Arity int
	Chunk interface{}
}

// NameMain is the reserved name of the synthetic top-level function whose
// body is the whole program.
const NameMain = "<main>"

// NativeFunc is the Go function a NativeFunction dispatches to. Arguments
// arrive in source order (arg 0 first); see the native registry's calling
// convention note in spec.md §4.5 and §9.
type NativeFunc func(args []Object) (Object, error)

// NativeFunction is a builtin registered at interpreter startup.
type NativeFunction struct {
	Name  string
	Arity int // SentinelAny for variadic
	Fn    NativeFunc
}

// Value is the tagged union of runtime data types the interpreter
// manipulates. Exactly one of the payload fields is meaningful for a given
// Kind.
type Value struct {
	Kind    Kind
	Int     int64
	Float   float64
	Str     string
	Fn      *Function
	Native  *NativeFunction
}

func None() Value  { return Value{Kind: KindNone} }
func True() Value  { return Value{Kind: KindTrue} }
func False() Value { return Value{Kind: KindFalse} }

func Integer(v int64) Value { return Value{Kind: KindInteger, Int: v} }
func Float(v float64) Value { return Value{Kind: KindFloat, Float: v} }
func String(v string) Value { return Value{Kind: KindString, Str: v} }

func FromFunction(fn *Function) Value { return Value{Kind: KindFunction, Fn: fn} }
func FromNative(nf *NativeFunction) Value {
	return Value{Kind: KindNativeFunction, Native: nf}
}

// FromBool is a convenience constructor used by the VM's comparison and
// logical operators.
func FromBool(b bool) Value {
	if b {
		return True()
	}
	return False()
}

// IsFalsey implements the truthiness rule of spec.md §3: None/False are
// false, numeric zero is false, empty string is false, callables are
// always true.
func (v Value) IsFalsey() bool {
	switch v.Kind {
	case KindNone, KindFalse:
		return true
	case KindInteger:
		return v.Int == 0
	case KindFloat:
		return v.Float == 0
	case KindString:
		return v.Str == ""
	default:
		return false
	}
}

func (v Value) IsTruthy() bool { return !v.IsFalsey() }

// Equal implements the component-wise structural equality of spec.md §4.4.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNone, KindTrue, KindFalse:
		return true
	case KindInteger:
		return v.Int == other.Int
	case KindFloat:
		return v.Float == other.Float
	case KindString:
		return v.Str == other.Str
	case KindFunction:
		return v.Fn == other.Fn || (v.Fn != nil && other.Fn != nil && v.Fn.Name == other.Fn.Name)
	case KindNativeFunction:
		return v.Native == other.Native || (v.Native != nil && other.Native != nil && v.Native.Name == other.Native.Name)
	default:
		return false
	}
}

// Less is only meaningful within a single Kind (spec.md §4.4: ordering is
// total within a given variant for Integer, Float, String).
func (v Value) Less(other Value) bool {
	switch v.Kind {
	case KindInteger:
		return v.Int < other.Int
	case KindFloat:
		return v.Float < other.Float
	case KindString:
		return v.Str < other.Str
	default:
		return false
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindNone:
		return "None"
	case KindTrue:
		return "True"
	case KindFalse:
		return "False"
	case KindInteger:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindString:
		return v.Str
	case KindFunction:
		return fmt.Sprintf("<function %s>", v.Fn.Name)
	case KindNativeFunction:
		return fmt.Sprintf("<native %s>", v.Native.Name)
	default:
		return "<unknown>"
	}
}

// hash produces the 64-bit digest used to derive an anonymous Object's id.
// spec.md §3/§4.4 leaves the hash algorithm implementation-defined; the
// original Rust implementation (original_source/src/object.rs) uses Rust's
// DefaultHasher (SipHash) over the Value's discriminant and payload. No
// example repo in the pack hashes values with a third-party library, so
// this follows suit with the standard library's FNV-1a, the closest stdlib
// analogue to a simple non-cryptographic value hash.
func (v Value) hash() uint64 {
	h := fnv.New64a()
	switch v.Kind {
	case KindNone, KindTrue, KindFalse:
		// Contribute nothing, matching original_source/src/object.rs.
	case KindInteger:
		var buf [8]byte
		putUint64(buf[:], uint64(v.Int))
		h.Write(buf[:])
	case KindFloat:
		var buf [8]byte
		putUint64(buf[:], math.Float64bits(v.Float))
		h.Write(buf[:])
	case KindString:
		h.Write([]byte(v.Str))
	case KindFunction:
		h.Write([]byte(v.Fn.Name))
	case KindNativeFunction:
		h.Write([]byte(v.Native.Name))
	}
	return h.Sum64()
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// Object wraps a Value with the identity metadata (id, name) the symbol
// table indexes on (spec.md §3).
type Object struct {
	ID    uint64
	Name  string
	Value Value
}

// NewWithID builds an Object with an explicit id/name, used by the symbol
// table when it assigns a fresh global id.
func NewWithID(id uint64, name string, value Value) Object {
	return Object{ID: id, Name: name, Value: value}
}

// New builds an anonymous Object: id = hash(value), name = "$" + id.
func New(value Value) Object {
	id := value.hash()
	return Object{ID: id, Name: fmt.Sprintf("$%d", id), Value: value}
}

// Singleton ids, fixed per spec.md §3.
const (
	IDNone  uint64 = 0
	IDTrue  uint64 = 1
	IDFalse uint64 = 2
)

func NewNone() Object  { return Object{ID: IDNone, Name: "None", Value: None()} }
func NewTrue() Object  { return Object{ID: IDTrue, Name: "True", Value: True()} }
func NewFalse() Object { return Object{ID: IDFalse, Name: "False", Value: False()} }

func (o Object) IsNone() bool  { return o.Value.Kind == KindNone }
func (o Object) IsFalsey() bool { return o.Value.IsFalsey() }
func (o Object) IsTruthy() bool { return o.Value.IsTruthy() }

func (o Object) String() string { return o.Value.String() }
