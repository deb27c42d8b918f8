package object

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSingletonIdentity(t *testing.T) {
	require.Equal(t, IDNone, NewNone().ID)
	require.Equal(t, IDTrue, NewTrue().ID)
	require.Equal(t, IDFalse, NewFalse().ID)
	require.Equal(t, "None", NewNone().Name)
	require.Equal(t, "True", NewTrue().Name)
	require.Equal(t, "False", NewFalse().Name)
}

func TestAnonymousObjectIdentity(t *testing.T) {
	obj := New(Integer(42))
	require.Contains(t, obj.Name, "$")

	// Two objects wrapping the same value hash to the same id.
	other := New(Integer(42))
	require.Equal(t, obj.ID, other.ID)

	different := New(Integer(43))
	require.NotEqual(t, obj.ID, different.ID)
}

func TestTruthiness(t *testing.T) {
	cases := []struct {
		name    string
		value   Value
		falsey  bool
	}{
		{"none", None(), true},
		{"false", False(), true},
		{"true", True(), false},
		{"zero int", Integer(0), true},
		{"nonzero int", Integer(1), false},
		{"zero float", Float(0), true},
		{"nonzero float", Float(0.1), false},
		{"empty string", String(""), true},
		{"nonempty string", String("x"), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.falsey, c.value.IsFalsey())
			require.Equal(t, !c.falsey, c.value.IsTruthy())
		})
	}
}

func TestNativeFunctionIsAlwaysTruthy(t *testing.T) {
	nf := &NativeFunction{Name: "print", Arity: SentinelAny}
	v := FromNative(nf)
	require.False(t, v.IsFalsey())
}

func TestEqualityIsComponentWise(t *testing.T) {
	require.True(t, Integer(1).Equal(Integer(1)))
	require.False(t, Integer(1).Equal(Integer(2)))
	require.False(t, Integer(1).Equal(Float(1)))
	require.True(t, String("a").Equal(String("a")))
}

func TestOrderingWithinVariant(t *testing.T) {
	require.True(t, Integer(1).Less(Integer(2)))
	require.True(t, Float(1.0).Less(Float(2.0)))
	require.True(t, String("a").Less(String("b")))
}
