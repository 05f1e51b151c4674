package compiler

import (
	"strconv"

	"github.com/mna/lox/object"
	"github.com/mna/lox/token"
)

// Precedence is the Pratt precedence ladder, lowest to highest.
type Precedence int

const (
	PrecNone       Precedence = iota
	PrecAssignment            // =
	PrecOr                    // or
	PrecAnd                   // and
	PrecEquality              // == !=
	PrecComparison            // < > <= >=
	PrecTerm                  // + -
	PrecFactor                // * /
	PrecUnary                 // ! -
	PrecCall                  // . ()
	PrecPrimary
)

type parseFn func(p *Parser, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

var rules map[token.Type]parseRule

func init() {
	rules = map[token.Type]parseRule{
		token.LPAREN:    {prefix: (*Parser).grouping, infix: (*Parser).call, precedence: PrecCall},
		token.DOT:       {infix: (*Parser).dot, precedence: PrecCall},
		token.MINUS:     {prefix: (*Parser).unary, infix: (*Parser).binary, precedence: PrecTerm},
		token.PLUS:      {infix: (*Parser).binary, precedence: PrecTerm},
		token.SLASH:     {infix: (*Parser).binary, precedence: PrecFactor},
		token.STAR:      {infix: (*Parser).binary, precedence: PrecFactor},
		token.BANG:      {prefix: (*Parser).unary},
		token.BANG_EQ:   {infix: (*Parser).binary, precedence: PrecEquality},
		token.EQ_EQ:     {infix: (*Parser).binary, precedence: PrecEquality},
		token.GT:        {infix: (*Parser).binary, precedence: PrecComparison},
		token.GT_EQ:     {infix: (*Parser).binary, precedence: PrecComparison},
		token.LT:        {infix: (*Parser).binary, precedence: PrecComparison},
		token.LT_EQ:     {infix: (*Parser).binary, precedence: PrecComparison},
		token.IDENT:     {prefix: (*Parser).variableExpr},
		token.STRING:    {prefix: (*Parser).stringExpr},
		token.NUMBER:    {prefix: (*Parser).numberExpr},
		token.AND:       {infix: (*Parser).and, precedence: PrecAnd},
		token.OR:        {infix: (*Parser).or, precedence: PrecOr},
		token.FALSE:     {prefix: (*Parser).literal},
		token.NIL:       {prefix: (*Parser).literal},
		token.TRUE:      {prefix: (*Parser).literal},
		token.THIS:      {prefix: (*Parser).this},
		token.SUPER:     {prefix: (*Parser).super},
	}
}

func getRule(t token.Type) parseRule { return rules[t] }

func (p *Parser) expression() { p.parsePrecedence(PrecAssignment) }

func (p *Parser) parsePrecedence(prec Precedence) {
	p.advance()
	prefix := getRule(p.previous.Type).prefix
	if prefix == nil {
		p.errorAtPrevious("Expect expression.")
		return
	}
	canAssign := prec <= PrecAssignment
	prefix(p, canAssign)

	for prec <= getRule(p.current.Type).precedence {
		p.advance()
		infix := getRule(p.previous.Type).infix
		infix(p, canAssign)
	}

	if canAssign && p.matchTok(token.EQ) {
		p.errorAtPrevious("Invalid assignment target.")
	}
}

func (p *Parser) numberExpr(bool) {
	n, err := strconv.ParseFloat(p.previous.Lexeme, 64)
	if err != nil {
		p.errorAtPrevious("Invalid number literal.")
		return
	}
	p.emitConstant(object.Number(n))
}

func (p *Parser) stringExpr(bool) {
	// strip the surrounding quotes; no escape sequences are supported.
	raw := p.previous.Lexeme
	s := raw[1 : len(raw)-1]
	p.emitConstant(object.Obj(p.interner.InternString(s)))
}

func (p *Parser) literal(bool) {
	switch p.previous.Type {
	case token.FALSE:
		p.emitOp(OpFalse)
	case token.TRUE:
		p.emitOp(OpTrue)
	case token.NIL:
		p.emitOp(OpNil)
	}
}

func (p *Parser) grouping(bool) {
	p.expression()
	p.consume(token.RPAREN, "Expect ')' after expression.")
}

func (p *Parser) unary(bool) {
	opType := p.previous.Type
	p.parsePrecedence(PrecUnary)
	switch opType {
	case token.BANG:
		p.emitOp(OpNot)
	case token.MINUS:
		p.emitOp(OpNegate)
	}
}

func (p *Parser) binary(bool) {
	opType := p.previous.Type
	rule := getRule(opType)
	p.parsePrecedence(rule.precedence + 1)

	switch opType {
	case token.BANG_EQ:
		p.emitOp(OpEqual)
		p.emitOp(OpNot)
	case token.EQ_EQ:
		p.emitOp(OpEqual)
	case token.GT:
		p.emitOp(OpGreater)
	case token.GT_EQ:
		p.emitOp(OpLess)
		p.emitOp(OpNot)
	case token.LT:
		p.emitOp(OpLess)
	case token.LT_EQ:
		p.emitOp(OpGreater)
		p.emitOp(OpNot)
	case token.PLUS:
		p.emitOp(OpAdd)
	case token.MINUS:
		p.emitOp(OpSubtract)
	case token.STAR:
		p.emitOp(OpMultiply)
	case token.SLASH:
		p.emitOp(OpDivide)
	}
}

func (p *Parser) and(bool) {
	endJump := p.emitJump(OpJumpIfFalse)
	p.emitOp(OpPop)
	p.parsePrecedence(PrecAnd)
	p.patchJump(endJump)
}

func (p *Parser) or(bool) {
	elseJump := p.emitJump(OpJumpIfFalse)
	endJump := p.emitJump(OpJump)
	p.patchJump(elseJump)
	p.emitOp(OpPop)
	p.parsePrecedence(PrecOr)
	p.patchJump(endJump)
}

func (p *Parser) call(bool) {
	argCount := p.argumentList()
	p.emitOpByte(OpCall, argCount)
}

func (p *Parser) argumentList() byte {
	var count int
	if !p.check(token.RPAREN) {
		for {
			p.expression()
			if count == maxArgs {
				p.errorAtPrevious("Can't have more than 255 arguments.")
			}
			count++
			if !p.matchTok(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "Expect ')' after arguments.")
	return byte(count)
}

func (p *Parser) dot(canAssign bool) {
	p.consume(token.IDENT, "Expect property name after '.'.")
	name := p.identifierConstant(p.previous)

	switch {
	case canAssign && p.matchTok(token.EQ):
		p.expression()
		p.emitOpByte(OpSetProperty, name)
	case p.matchTok(token.LPAREN):
		argCount := p.argumentList()
		p.emitOpByte(OpInvoke, name)
		p.emitByte(argCount)
	default:
		p.emitOpByte(OpGetProperty, name)
	}
}

func (p *Parser) variableExpr(canAssign bool) { p.namedVariable(p.previous, canAssign) }

func (p *Parser) namedVariable(tok token.Token, canAssign bool) {
	var getOp, setOp Opcode
	arg := resolveLocal(p.cur, tok.Lexeme)
	switch {
	case arg == -2:
		p.errorAtPrevious("Can't read local variable in its own initializer.")
		arg = 0
		getOp, setOp = OpGetLocal, OpSetLocal
	case arg >= 0:
		getOp, setOp = OpGetLocal, OpSetLocal
	default:
		arg = resolveUpvalue(p.cur, tok.Lexeme)
		switch {
		case arg == -2:
			p.errorAtPrevious("Can't read local variable in its own initializer.")
			arg = 0
			getOp, setOp = OpGetUpvalue, OpSetUpvalue
		case arg >= 0:
			getOp, setOp = OpGetUpvalue, OpSetUpvalue
		default:
			arg = int(p.identifierConstant(tok))
			getOp, setOp = OpGetGlobal, OpSetGlobal
		}
	}

	if canAssign && p.matchTok(token.EQ) {
		p.expression()
		p.emitOpByte(setOp, byte(arg))
	} else {
		p.emitOpByte(getOp, byte(arg))
	}
}

func (p *Parser) this(bool) {
	if p.class == nil {
		p.errorAtPrevious("Can't use 'this' outside of a class.")
		return
	}
	p.namedVariable(token.Token{Type: token.IDENT, Lexeme: "this"}, false)
}

func (p *Parser) super(bool) {
	switch {
	case p.class == nil:
		p.errorAtPrevious("Can't use 'super' outside of a class.")
	case !p.class.hasSuperclass:
		p.errorAtPrevious("Can't use 'super' in a class with no superclass.")
	}

	p.consume(token.DOT, "Expect '.' after 'super'.")
	p.consume(token.IDENT, "Expect superclass method name.")
	name := p.identifierConstant(p.previous)

	thisTok := token.Token{Type: token.IDENT, Lexeme: "this"}
	superTok := token.Token{Type: token.IDENT, Lexeme: "super"}

	p.namedVariable(thisTok, false)
	if p.matchTok(token.LPAREN) {
		argCount := p.argumentList()
		p.namedVariable(superTok, false)
		p.emitOpByte(OpSuperInvoke, name)
		p.emitByte(argCount)
	} else {
		p.namedVariable(superTok, false)
		p.emitOpByte(OpGetSuper, name)
	}
}
