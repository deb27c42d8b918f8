package ast

import (
	"testing"

	"github.com/stretchr/testify/require"

	"langvm/internal/token"
)

func TestBinaryStringRendersInfix(t *testing.T) {
	b := &Binary{
		Tok:   token.Token{Type: token.PLUS, Literal: "+"},
		Left:  &Literal{Kind: LitInteger, Int: 1},
		Op:    Add,
		Right: &Literal{Kind: LitInteger, Int: 2},
	}
	require.Equal(t, "(1 + 2)", b.String())
}

func TestIfStringIncludesElifAndElse(t *testing.T) {
	n := &If{
		Cond: &Variable{Name: "x"},
		Then: &Block{Exprs: []Expression{&Literal{Kind: LitInteger, Int: 1}}},
		Elifs: []ElifBranch{
			{Cond: &Variable{Name: "y"}, Then: &Block{Exprs: []Expression{&Literal{Kind: LitInteger, Int: 2}}}},
		},
		Else: &Block{Exprs: []Expression{&Literal{Kind: LitInteger, Int: 3}}},
	}
	s := n.String()
	require.Contains(t, s, "if x")
	require.Contains(t, s, "elif y")
	require.Contains(t, s, "else")
}

func TestProgramStringJoinsTopLevelExprs(t *testing.T) {
	p := &Program{Exprs: []Expression{
		&Assignment{Target: &Variable{Name: "x"}, Value: &Literal{Kind: LitInteger, Int: 1}},
		&Variable{Name: "x"},
	}}
	require.Equal(t, "x = 1\nx", p.String())
}

func TestReturnWithEmptyValue(t *testing.T) {
	r := &Return{Value: &Empty{}}
	require.Equal(t, "return <empty>", r.String())
}
