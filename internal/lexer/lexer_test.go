package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"langvm/internal/token"
)

func collectTypes(t *testing.T, src string) []token.Type {
	t.Helper()
	l := New(src)
	var types []token.Type
	for {
		tok := l.NextToken()
		types = append(types, tok.Type)
		if tok.Type == token.EOF {
			break
		}
	}
	return types
}

func TestSimpleAssignmentLine(t *testing.T) {
	types := collectTypes(t, "x = 1\n")
	require.Equal(t, []token.Type{
		token.IDENTIFIER, token.ASSIGN, token.INT, token.NEWLINE, token.EOF,
	}, types)
}

func TestIndentAndDedentAroundIfBlock(t *testing.T) {
	src := "if x:\n    y = 1\nz = 2\n"
	types := collectTypes(t, src)
	require.Equal(t, []token.Type{
		token.IF, token.IDENTIFIER, token.COLON, token.NEWLINE,
		token.INDENT,
		token.IDENTIFIER, token.ASSIGN, token.INT, token.NEWLINE,
		token.DEDENT,
		token.IDENTIFIER, token.ASSIGN, token.INT, token.NEWLINE,
		token.EOF,
	}, types)
}

func TestBlankAndCommentLinesAreIgnoredForIndentation(t *testing.T) {
	src := "if x:\n    y = 1\n\n    # a comment\n    z = 2\n"
	types := collectTypes(t, src)
	require.Equal(t, []token.Type{
		token.IF, token.IDENTIFIER, token.COLON, token.NEWLINE,
		token.INDENT,
		token.IDENTIFIER, token.ASSIGN, token.INT, token.NEWLINE,
		token.IDENTIFIER, token.ASSIGN, token.INT, token.NEWLINE,
		token.DEDENT,
		token.EOF,
	}, types)
}

func TestNestedDedentEmitsOneTokenPerLevel(t *testing.T) {
	src := "if a:\n    if b:\n        x = 1\ny = 2\n"
	types := collectTypes(t, src)
	require.Equal(t, []token.Type{
		token.IF, token.IDENTIFIER, token.COLON, token.NEWLINE,
		token.INDENT,
		token.IF, token.IDENTIFIER, token.COLON, token.NEWLINE,
		token.INDENT,
		token.IDENTIFIER, token.ASSIGN, token.INT, token.NEWLINE,
		token.DEDENT, token.DEDENT,
		token.IDENTIFIER, token.ASSIGN, token.INT, token.NEWLINE,
		token.EOF,
	}, types)
}

func TestKeywordsAndOperators(t *testing.T) {
	src := "while x <= 1 and not y:\n    break\n"
	types := collectTypes(t, src)
	require.Equal(t, []token.Type{
		token.WHILE, token.IDENTIFIER, token.LTE, token.INT, token.AND, token.NOT, token.IDENTIFIER, token.COLON, token.NEWLINE,
		token.INDENT,
		token.BREAK, token.NEWLINE,
		token.DEDENT,
		token.EOF,
	}, types)
}

func TestStringAndFloatLiterals(t *testing.T) {
	src := `s = "hi\n" + 1.5` + "\n"
	l := New(src)
	var literals []string
	var types []token.Type
	for {
		tok := l.NextToken()
		types = append(types, tok.Type)
		literals = append(literals, tok.Literal)
		if tok.Type == token.EOF {
			break
		}
	}
	require.Contains(t, types, token.STRING)
	require.Contains(t, types, token.FLOAT)
	require.Contains(t, literals, "hi\n")
	require.Contains(t, literals, "1.5")
}

func TestMissingFinalNewlineIsSynthesized(t *testing.T) {
	types := collectTypes(t, "x = 1")
	require.Equal(t, []token.Type{token.IDENTIFIER, token.ASSIGN, token.INT, token.NEWLINE, token.EOF}, types)
}

func TestBackslashContinuationJoinsLines(t *testing.T) {
	types := collectTypes(t, "x = 1 + \\\n    2\n")
	require.Equal(t, []token.Type{
		token.IDENTIFIER, token.ASSIGN, token.INT, token.PLUS, token.INT, token.NEWLINE, token.EOF,
	}, types)
}
