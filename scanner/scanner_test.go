package scanner_test

import (
	"testing"

	"github.com/mna/lox/scanner"
	"github.com/mna/lox/token"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) []token.Token {
	t.Helper()
	var s scanner.Scanner
	s.Init(src)
	var toks []token.Token
	for {
		tok := s.Scan()
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return toks
}

func types(toks []token.Token) []token.Type {
	ts := make([]token.Type, len(toks))
	for i, tok := range toks {
		ts[i] = tok.Type
	}
	return ts
}

func TestScanPunctuationAndOperators(t *testing.T) {
	toks := scanAll(t, "(){};,+-*!===<=>=!=<>/ =")
	require.Equal(t, []token.Type{
		token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE, token.SEMICOLON,
		token.COMMA, token.PLUS, token.MINUS, token.STAR, token.BANG_EQ,
		token.EQ_EQ, token.LT_EQ, token.GT_EQ, token.BANG_EQ, token.LT, token.GT,
		token.SLASH, token.EQ, token.EOF,
	}, types(toks))
}

func TestScanKeywordsAndIdentifiers(t *testing.T) {
	toks := scanAll(t, "var x = orange; fun foo")
	require.Equal(t, []token.Type{
		token.VAR, token.IDENT, token.EQ, token.IDENT, token.SEMICOLON,
		token.FUN, token.IDENT, token.EOF,
	}, types(toks))
	require.Equal(t, "orange", toks[3].Lexeme)
}

func TestScanNumbers(t *testing.T) {
	toks := scanAll(t, "123 3.14 0.5")
	require.Equal(t, "123", toks[0].Lexeme)
	require.Equal(t, "3.14", toks[1].Lexeme)
	require.Equal(t, "0.5", toks[2].Lexeme)
}

func TestScanStrings(t *testing.T) {
	toks := scanAll(t, `"hello" "multi
line"`)
	require.Equal(t, token.STRING, toks[0].Type)
	require.Equal(t, `"hello"`, toks[0].Lexeme)
	require.Equal(t, token.STRING, toks[1].Type)
}

func TestScanUnterminatedString(t *testing.T) {
	toks := scanAll(t, `"oops`)
	require.Equal(t, token.ILLEGAL, toks[0].Type)
	require.Equal(t, "Unterminated string.", toks[0].Lexeme)
}

func TestScanSkipsLineComments(t *testing.T) {
	toks := scanAll(t, "var x; // comment\nvar y;")
	require.Equal(t, []token.Type{
		token.VAR, token.IDENT, token.SEMICOLON,
		token.VAR, token.IDENT, token.SEMICOLON, token.EOF,
	}, types(toks))
	require.Equal(t, 2, toks[3].Line)
}

func TestScanLineTracking(t *testing.T) {
	toks := scanAll(t, "var a;\nvar b;\nvar c;")
	require.Equal(t, 1, toks[0].Line)
	require.Equal(t, 2, toks[3].Line)
	require.Equal(t, 3, toks[6].Line)
}
