package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookupIdentRecognizesKeywords(t *testing.T) {
	require.Equal(t, IF, LookupIdent("if"))
	require.Equal(t, DEF, LookupIdent("def"))
	require.Equal(t, NONE, LookupIdent("None"))
	require.Equal(t, TRUE, LookupIdent("True"))
}

func TestLookupIdentFallsBackToIdentifier(t *testing.T) {
	require.Equal(t, IDENTIFIER, LookupIdent("counter"))
	require.Equal(t, IDENTIFIER, LookupIdent("true")) // lowercase isn't the keyword
}

func TestTokenStringIncludesPosition(t *testing.T) {
	tok := Token{Type: IDENTIFIER, Literal: "x", Line: 3, Column: 5}
	require.Contains(t, tok.String(), "line 3")
	require.Contains(t, tok.String(), "col 5")
}
