// Package parser implements the recursive-descent parser spec.md §6 names
// as an external collaborator: it consumes the lexer's token stream and
// must produce exactly the ast.Expression variants spec.md §3 enumerates.
// The Pratt-style prefix/infix function tables and precedence-climbing
// parseExpression, plus the "[line:col] SyntaxError: ..." error format,
// follow estevaofon-noxy's internal/parser package; the statement grammar
// itself (indentation-delimited blocks terminated by Dedent rather than
// an `end` keyword) is this language's own.
package parser

import (
	"fmt"
	"strconv"

	"langvm/internal/ast"
	"langvm/internal/lexer"
	"langvm/internal/token"
)

const (
	_ int = iota
	LOWEST
	OR
	AND
	EQUALS
	LESSGREATER
	SUM
	PRODUCT
	PREFIX
	CALL
)

var precedences = map[token.Type]int{
	token.OR:    OR,
	token.AND:   AND,
	token.EQ:    EQUALS,
	token.NEQ:   EQUALS,
	token.LT:    LESSGREATER,
	token.GT:    LESSGREATER,
	token.LTE:   LESSGREATER,
	token.GTE:   LESSGREATER,
	token.PLUS:  SUM,
	token.MINUS: SUM,
	token.STAR:  PRODUCT,
	token.SLASH: PRODUCT,
	token.LPAREN: CALL,
}

var binaryOps = map[token.Type]ast.Operator{
	token.PLUS:  ast.Add,
	token.MINUS: ast.Sub,
	token.STAR:  ast.Mul,
	token.SLASH: ast.Div,
	token.AND:   ast.And,
	token.OR:    ast.Or,
	token.EQ:    ast.Equal,
	token.NEQ:   ast.NotEqual,
	token.LT:    ast.Less,
	token.LTE:   ast.LessEqual,
	token.GT:    ast.Greater,
	token.GTE:   ast.GreaterEqual,
}

type Parser struct {
	l *lexer.Lexer

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.Type]func() ast.Expression
	infixParseFns  map[token.Type]func(ast.Expression) ast.Expression

	errors []string
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}
	p.nextToken()
	p.nextToken()

	p.prefixParseFns = map[token.Type]func() ast.Expression{
		token.IDENTIFIER: p.parseIdentifier,
		token.INT:        p.parseIntegerLiteral,
		token.FLOAT:      p.parseFloatLiteral,
		token.STRING:     p.parseStringLiteral,
		token.TRUE:       p.parseBooleanLiteral,
		token.FALSE:      p.parseBooleanLiteral,
		token.NONE:       p.parseNoneLiteral,
		token.NOT:        p.parseUnaryExpression,
		token.MINUS:      p.parseUnaryExpression,
		token.LPAREN:     p.parseGroupedExpression,
	}

	p.infixParseFns = map[token.Type]func(ast.Expression) ast.Expression{
		token.PLUS:   p.parseBinaryExpression,
		token.MINUS:  p.parseBinaryExpression,
		token.STAR:   p.parseBinaryExpression,
		token.SLASH:  p.parseBinaryExpression,
		token.AND:    p.parseBinaryExpression,
		token.OR:     p.parseBinaryExpression,
		token.EQ:     p.parseBinaryExpression,
		token.NEQ:    p.parseBinaryExpression,
		token.LT:     p.parseBinaryExpression,
		token.LTE:    p.parseBinaryExpression,
		token.GT:     p.parseBinaryExpression,
		token.GTE:    p.parseBinaryExpression,
		token.LPAREN: p.parseCallExpression,
	}

	return p
}

func (p *Parser) Errors() []string { return p.errors }

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t token.Type) bool  { return p.curToken.Type == t }
func (p *Parser) peekTokenIs(t token.Type) bool { return p.peekToken.Type == t }

func (p *Parser) expectPeek(t token.Type) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) peekError(t token.Type) {
	p.errors = append(p.errors, fmt.Sprintf("[%d:%d] SyntaxError: expected %s, found %s",
		p.peekToken.Line, p.peekToken.Column, t, p.peekToken.Type))
}

func (p *Parser) errorf(tok token.Token, format string, args ...interface{}) {
	p.errors = append(p.errors, fmt.Sprintf("[%d:%d] SyntaxError: %s", tok.Line, tok.Column, fmt.Sprintf(format, args...)))
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if pr, ok := precedences[p.curToken.Type]; ok {
		return pr
	}
	return LOWEST
}

// skipNewlines consumes zero or more blank NEWLINE tokens between
// top-level statements and at the start/end of blocks.
func (p *Parser) skipNewlines() {
	for p.curTokenIs(token.NEWLINE) {
		p.nextToken()
	}
}

// ParseProgram parses the whole token stream into a top-level sequence
// of expressions (spec.md §3: "Program = ordered sequence of
// Expression").
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}
	p.skipNewlines()
	for !p.curTokenIs(token.EOF) {
		expr := p.parseTopLevelExpression()
		if expr != nil {
			program.Exprs = append(program.Exprs, expr)
		}
		p.skipNewlines()
	}
	return program
}

// parseTopLevelExpression parses one statement-level construct and
// consumes its trailing NEWLINE (or leaves curToken at DEDENT/EOF when
// the construct is block-terminated).
func (p *Parser) parseTopLevelExpression() ast.Expression {
	switch p.curToken.Type {
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.DEF:
		return p.parseFunctionExpr()
	case token.BREAK:
		return p.parseBreak()
	case token.CONTINUE:
		return p.parseContinue()
	case token.RETURN:
		return p.parseReturn()
	default:
		return p.parseSimpleStatement()
	}
}

// parseSimpleStatement handles an expression, optionally followed by
// `= expr` to make it an Assignment, terminated by NEWLINE/EOF.
func (p *Parser) parseSimpleStatement() ast.Expression {
	tok := p.curToken
	expr := p.parseExpression(LOWEST)
	if expr == nil {
		p.skipToNewline()
		return nil
	}

	if p.peekTokenIs(token.ASSIGN) {
		p.nextToken() // consume target, curToken == ASSIGN
		assignTok := p.curToken
		p.nextToken() // move to start of rhs
		value := p.parseExpression(LOWEST)
		expr = &ast.Assignment{Tok: assignTok, Target: expr, Value: value}
	}
	_ = tok

	p.consumeStatementEnd()
	return expr
}

// consumeStatementEnd advances past the NEWLINE terminating a
// statement-level construct, if one is present.
func (p *Parser) consumeStatementEnd() {
	if p.peekTokenIs(token.NEWLINE) {
		p.nextToken()
	}
}

func (p *Parser) skipToNewline() {
	for !p.curTokenIs(token.NEWLINE) && !p.curTokenIs(token.EOF) && !p.curTokenIs(token.DEDENT) {
		p.nextToken()
	}
}

// parseBlock parses `: NEWLINE INDENT expr* DEDENT`. curToken on entry
// must be the COLON that opens the block; on exit curToken is the
// DEDENT that closed it.
func (p *Parser) parseBlock() *ast.Block {
	tok := p.curToken
	if !p.expectPeek(token.NEWLINE) {
		return &ast.Block{Tok: tok}
	}
	if !p.expectPeek(token.INDENT) {
		return &ast.Block{Tok: tok}
	}
	p.nextToken() // move past INDENT to first body token

	block := &ast.Block{Tok: tok}
	p.skipNewlines()
	for !p.curTokenIs(token.DEDENT) && !p.curTokenIs(token.EOF) {
		expr := p.parseTopLevelExpression()
		if expr != nil {
			block.Exprs = append(block.Exprs, expr)
		}
		p.skipNewlines()
	}
	return block
}

func (p *Parser) parseIf() ast.Expression {
	tok := p.curToken
	p.nextToken() // past 'if'
	cond := p.parseExpression(LOWEST)
	if !p.expectPeek(token.COLON) {
		return nil
	}
	then := p.parseBlock()
	node := &ast.If{Tok: tok, Cond: cond, Then: then}

	for p.curTokenIs(token.DEDENT) && p.peekTokenIs(token.ELIF) {
		p.nextToken() // consume DEDENT
		p.nextToken() // consume ELIF, curToken now condition start
		elifCond := p.parseExpression(LOWEST)
		if !p.expectPeek(token.COLON) {
			return nil
		}
		elifBody := p.parseBlock()
		node.Elifs = append(node.Elifs, ast.ElifBranch{Cond: elifCond, Then: elifBody})
	}

	if p.curTokenIs(token.DEDENT) && p.peekTokenIs(token.ELSE) {
		p.nextToken() // consume DEDENT
		elseTok := p.curToken
		_ = elseTok
		if !p.expectPeek(token.COLON) {
			return nil
		}
		node.Else = p.parseBlock()
	}

	if p.curTokenIs(token.DEDENT) {
		p.nextToken()
	}
	return node
}

func (p *Parser) parseWhile() ast.Expression {
	tok := p.curToken
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	if !p.expectPeek(token.COLON) {
		return nil
	}
	body := p.parseBlock()
	if p.curTokenIs(token.DEDENT) {
		p.nextToken()
	}
	return &ast.While{Tok: tok, Cond: cond, Body: body}
}

func (p *Parser) parseFunctionExpr() ast.Expression {
	tok := p.curToken
	if !p.expectPeek(token.IDENTIFIER) {
		return nil
	}
	name := p.curToken.Literal
	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	params := p.parseParamList()
	if !p.expectPeek(token.COLON) {
		return nil
	}
	body := p.parseBlock()
	if p.curTokenIs(token.DEDENT) {
		p.nextToken()
	}
	return &ast.FunctionExpr{Tok: tok, Name: name, Params: params, Body: body}
}

func (p *Parser) parseParamList() []string {
	var params []string
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return params
	}
	p.nextToken()
	params = append(params, p.curToken.Literal)
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		params = append(params, p.curToken.Literal)
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return params
}

func (p *Parser) parseBreak() ast.Expression {
	node := &ast.Break{Tok: p.curToken}
	p.consumeStatementEnd()
	return node
}

func (p *Parser) parseContinue() ast.Expression {
	node := &ast.Continue{Tok: p.curToken}
	p.consumeStatementEnd()
	return node
}

func (p *Parser) parseReturn() ast.Expression {
	tok := p.curToken
	if p.peekTokenIs(token.NEWLINE) || p.peekTokenIs(token.EOF) || p.peekTokenIs(token.DEDENT) {
		p.consumeStatementEnd()
		return &ast.Return{Tok: tok, Value: &ast.Empty{Tok: tok}}
	}
	p.nextToken()
	value := p.parseExpression(LOWEST)
	p.consumeStatementEnd()
	return &ast.Return{Tok: tok, Value: value}
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.errorf(p.curToken, "invalid syntax %q", p.curToken.Literal)
		return nil
	}
	left := prefix()

	for !p.peekTokenIs(token.NEWLINE) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return left
		}
		p.nextToken()
		left = infix(left)
	}
	return left
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Variable{Tok: p.curToken, Name: p.curToken.Literal}
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	v, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
	if err != nil {
		p.errorf(p.curToken, "invalid integer literal %q", p.curToken.Literal)
		return nil
	}
	return &ast.Literal{Tok: p.curToken, Kind: ast.LitInteger, Int: v}
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	v, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.errorf(p.curToken, "invalid float literal %q", p.curToken.Literal)
		return nil
	}
	return &ast.Literal{Tok: p.curToken, Kind: ast.LitFloat, Float: v}
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return &ast.Literal{Tok: p.curToken, Kind: ast.LitString, Str: p.curToken.Literal}
}

func (p *Parser) parseBooleanLiteral() ast.Expression {
	kind := ast.LitFalse
	if p.curTokenIs(token.TRUE) {
		kind = ast.LitTrue
	}
	return &ast.Literal{Tok: p.curToken, Kind: kind}
}

func (p *Parser) parseNoneLiteral() ast.Expression {
	return &ast.Literal{Tok: p.curToken, Kind: ast.LitNone}
}

func (p *Parser) parseUnaryExpression() ast.Expression {
	tok := p.curToken
	op := ast.Neg
	if p.curTokenIs(token.NOT) {
		op = ast.Not
	}
	p.nextToken()
	operand := p.parseExpression(PREFIX)
	return &ast.Unary{Tok: tok, Op: op, Operand: operand}
}

func (p *Parser) parseBinaryExpression(left ast.Expression) ast.Expression {
	tok := p.curToken
	op, ok := binaryOps[p.curToken.Type]
	if !ok {
		p.errorf(tok, "invalid operator %q", p.curToken.Literal)
		return nil
	}
	precedence := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(precedence)
	return &ast.Binary{Tok: tok, Left: left, Op: op, Right: right}
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return exp
}

func (p *Parser) parseCallExpression(callee ast.Expression) ast.Expression {
	tok := p.curToken
	args := p.parseCallArguments()
	return &ast.Call{Tok: tok, Callee: callee, Args: args}
}

func (p *Parser) parseCallArguments() []ast.Expression {
	var args []ast.Expression
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return args
	}
	p.nextToken()
	args = append(args, p.parseExpression(LOWEST))
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		args = append(args, p.parseExpression(LOWEST))
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return args
}
