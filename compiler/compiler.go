// Package compiler implements the single-pass Pratt parser that compiles
// lox source directly into bytecode, with no intermediate AST. Local
// variable and upvalue resolution happen inline as the token stream is
// consumed, exactly as described by the language's reference compiler.
package compiler

import (
	"fmt"

	"github.com/dolthub/swiss"
	"github.com/mna/lox/object"
	"github.com/mna/lox/scanner"
	"github.com/mna/lox/token"
	"golang.org/x/exp/slices"
)

// syncTokens are the token types synchronize treats as likely statement
// boundaries.
var syncTokens = []token.Type{
	token.CLASS, token.FUN, token.VAR, token.FOR, token.IF, token.WHILE, token.PRINT, token.RETURN,
}

// Interner is the compiler's one dependency on the running VM: it needs to
// intern string constants and allocate Function objects through the same
// heap the VM's garbage collector tracks, and it needs a way to keep
// not-yet-embedded objects reachable if an allocation triggers a collection
// mid-compile (the "active compiler chain" root set from the design notes).
// Rather than have the collector walk a private compiler-frame stack, the
// compiler keeps every in-progress object rooted on the VM's own value
// stack for exactly as long as it is not yet reachable through some
// already-rooted constant pool; see PushRoot/PopRoot below.
type Interner interface {
	InternString(s string) *object.String
	NewFunction(name *object.String) *object.Function
	PushRoot(v object.Value)
	PopRoot()
}

const (
	maxLocals    = 256
	maxUpvalues  = 256
	maxArgs      = 255
	maxConstants = 256
)

type funcType int

const (
	typeFunction funcType = iota
	typeInitializer
	typeMethod
	typeScript
)

type local struct {
	name       string
	depth      int // -1 means "declared, not yet initialized"
	isCaptured bool
}

type upvalueRef struct {
	index   uint8
	isLocal bool
}

// funcState is one compiler frame, one per function (or the top-level
// script) currently being compiled. Frames link through enclosing to form
// the active compiler chain.
type funcState struct {
	enclosing *funcState
	fn        *object.Function
	fnType    funcType

	locals     []local
	upvalues   []upvalueRef
	scopeDepth int

	// identConsts caches identifier name -> constant pool index within this
	// function, so repeated references to the same global/property/method
	// name (a common pattern: a loop reading the same global many times)
	// don't each burn a fresh constant pool slot.
	identConsts *swiss.Map[string, byte]
}

type classState struct {
	enclosing     *classState
	hasSuperclass bool
}

// Parser holds all mutable compiler state: the two-token lookahead window,
// error/panic-mode tracking, and the active function/class compiler chains.
type Parser struct {
	sc       *scanner.Scanner
	current  token.Token
	previous token.Token

	hadError  bool
	panicMode bool
	errors    []string

	interner Interner
	cur      *funcState
	class    *classState
}

// Compile compiles source into a top-level script Function. ok is false if
// any compile error occurred, in which case the returned function must be
// discarded (per spec: compilation continues after an error to surface as
// many diagnostics as possible in one pass, but produces nothing usable).
func Compile(source string, interner Interner) (fn *object.Function, errs []string, ok bool) {
	var sc scanner.Scanner
	sc.Init(source)

	p := &Parser{sc: &sc, interner: interner}
	p.pushFunc(typeScript, nil)

	p.advance()
	for !p.matchTok(token.EOF) {
		p.declaration()
	}

	fn = p.endFunc()
	return fn, p.errors, !p.hadError
}

// --- token stream -----------------------------------------------------

func (p *Parser) advance() {
	p.previous = p.current
	for {
		p.current = p.sc.Scan()
		if p.current.Type != token.ILLEGAL {
			break
		}
		p.errorAtCurrent(p.current.Lexeme)
	}
}

func (p *Parser) check(t token.Type) bool { return p.current.Type == t }

func (p *Parser) matchTok(t token.Type) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) consume(t token.Type, msg string) {
	if p.current.Type == t {
		p.advance()
		return
	}
	p.errorAtCurrent(msg)
}

func (p *Parser) errorAtCurrent(msg string) { p.errorAt(p.current, msg) }
func (p *Parser) errorAtPrevious(msg string) { p.errorAt(p.previous, msg) }

func (p *Parser) errorAt(tok token.Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.hadError = true

	where := "at '" + tok.Lexeme + "'"
	if tok.Type == token.EOF {
		where = "at end"
	}
	p.errors = append(p.errors, fmt.Sprintf("[line %d] Error %s: %s", tok.Line, where, msg))
}

// synchronize skips tokens until a likely statement boundary, so a single
// compile error does not cascade into a wall of spurious follow-on errors.
func (p *Parser) synchronize() {
	p.panicMode = false
	for p.current.Type != token.EOF {
		if p.previous.Type == token.SEMICOLON {
			return
		}
		if slices.Contains(syncTokens, p.current.Type) {
			return
		}
		p.advance()
	}
}

// --- chunk emission -----------------------------------------------------

func (p *Parser) currentChunk() *object.Chunk { return p.cur.fn.Chunk }

func (p *Parser) emitByte(b byte) {
	p.currentChunk().Write(b, p.previous.Line)
}

func (p *Parser) emitOp(op Opcode) { p.emitByte(byte(op)) }

func (p *Parser) emitOpByte(op Opcode, arg byte) {
	p.emitByte(byte(op))
	p.emitByte(arg)
}

func (p *Parser) emitLoop(loopStart int) {
	p.emitOp(OpLoop)
	offset := len(p.currentChunk().Code) - loopStart + 2
	if offset > 0xffff {
		p.errorAtPrevious("Loop body too large.")
	}
	p.emitByte(byte(offset >> 8))
	p.emitByte(byte(offset))
}

// emitJump emits a jump opcode with a placeholder 2-byte offset and returns
// the offset of the first placeholder byte, to be patched once the jump
// target is known.
func (p *Parser) emitJump(op Opcode) int {
	p.emitOp(op)
	p.emitByte(0xff)
	p.emitByte(0xff)
	return len(p.currentChunk().Code) - 2
}

func (p *Parser) patchJump(offset int) {
	jump := len(p.currentChunk().Code) - offset - 2
	if jump > 0xffff {
		p.errorAtPrevious("Too much code to jump over.")
	}
	p.currentChunk().Code[offset] = byte(jump >> 8)
	p.currentChunk().Code[offset+1] = byte(jump)
}

func (p *Parser) emitReturn() {
	if p.cur.fnType == typeInitializer {
		// init() implicitly returns the receiver (local slot 0: "this").
		p.emitOpByte(OpGetLocal, 0)
	} else {
		p.emitOp(OpNil)
	}
	p.emitOp(OpReturn)
}

func (p *Parser) makeConstant(v object.Value) byte {
	if len(p.currentChunk().Constants) >= maxConstants {
		p.errorAtPrevious("Too many constants in one chunk.")
		return 0
	}
	return byte(p.currentChunk().AddConstant(v))
}

func (p *Parser) emitConstant(v object.Value) {
	p.emitOpByte(OpConstant, p.makeConstant(v))
}

// --- function compiler frames --------------------------------------------

func (p *Parser) pushFunc(fnType funcType, nameTok *token.Token) {
	var name *object.String
	if nameTok != nil {
		name = p.interner.InternString(nameTok.Lexeme)
		// The name is not yet reachable from anything rooted, and
		// NewFunction may trigger a collection.
		p.interner.PushRoot(object.Obj(name))
	}
	fn := p.interner.NewFunction(name)
	if name != nil {
		p.interner.PopRoot()
	}
	p.interner.PushRoot(object.Obj(fn))

	fs := &funcState{enclosing: p.cur, fn: fn, fnType: fnType}
	// Slot 0 of every function's locals is reserved: the receiver ("this")
	// for methods/initializers, unnamed (inaccessible) for plain functions.
	slot0 := local{depth: 0}
	if fnType == typeMethod || fnType == typeInitializer {
		slot0.name = "this"
	}
	fs.locals = append(fs.locals, slot0)
	p.cur = fs
}

// endFunc finalizes the current function compiler frame and returns to the
// enclosing one (or nil, at the top level).
func (p *Parser) endFunc() *object.Function {
	p.emitReturn()
	fn := p.cur.fn
	fn.UpvalueCount = len(p.cur.upvalues)
	upvals := p.cur.upvalues
	p.cur = p.cur.enclosing

	if p.cur != nil {
		// The function is about to be embedded as a constant of the
		// enclosing chunk (via CLOSURE), which is reachable through that
		// chunk once it is itself reachable — so it no longer needs the
		// temporary stack root.
		p.interner.PopRoot()
		p.emitOpByte(OpClosure, p.makeConstant(object.Obj(fn)))
		for _, uv := range upvals {
			if uv.isLocal {
				p.emitByte(1)
			} else {
				p.emitByte(0)
			}
			p.emitByte(uv.index)
		}
	} else {
		p.interner.PopRoot()
	}
	return fn
}

// --- scopes ---------------------------------------------------------------

func (p *Parser) beginScope() { p.cur.scopeDepth++ }

func (p *Parser) endScope() {
	p.cur.scopeDepth--
	for len(p.cur.locals) > 0 && p.cur.locals[len(p.cur.locals)-1].depth > p.cur.scopeDepth {
		last := p.cur.locals[len(p.cur.locals)-1]
		if last.isCaptured {
			p.emitOp(OpCloseUpvalue)
		} else {
			p.emitOp(OpPop)
		}
		p.cur.locals = p.cur.locals[:len(p.cur.locals)-1]
	}
}

// --- variable declaration & resolution -------------------------------------

func (p *Parser) identifierConstant(tok token.Token) byte {
	if p.cur.identConsts == nil {
		p.cur.identConsts = swiss.NewMap[string, byte](8)
	}
	if idx, ok := p.cur.identConsts.Get(tok.Lexeme); ok {
		return idx
	}
	idx := p.makeConstant(object.Obj(p.interner.InternString(tok.Lexeme)))
	p.cur.identConsts.Put(tok.Lexeme, idx)
	return idx
}

func (p *Parser) addLocal(name string) {
	if len(p.cur.locals) >= maxLocals {
		p.errorAtPrevious("Too many local variables in function.")
		return
	}
	p.cur.locals = append(p.cur.locals, local{name: name, depth: -1})
}

func (p *Parser) declareVariable() {
	if p.cur.scopeDepth == 0 {
		return
	}
	name := p.previous.Lexeme
	for i := len(p.cur.locals) - 1; i >= 0; i-- {
		l := p.cur.locals[i]
		if l.depth != -1 && l.depth < p.cur.scopeDepth {
			break
		}
		if l.name == name {
			p.errorAtPrevious("Already a variable with this name in this scope.")
		}
	}
	p.addLocal(name)
}

func (p *Parser) parseVariable(errMsg string) byte {
	p.consume(token.IDENT, errMsg)
	p.declareVariable()
	if p.cur.scopeDepth > 0 {
		return 0
	}
	return p.identifierConstant(p.previous)
}

func (p *Parser) markInitialized() {
	if p.cur.scopeDepth == 0 {
		return
	}
	p.cur.locals[len(p.cur.locals)-1].depth = p.cur.scopeDepth
}

func (p *Parser) defineVariable(global byte) {
	if p.cur.scopeDepth > 0 {
		p.markInitialized()
		return
	}
	p.emitOpByte(OpDefineGlobal, global)
}

func resolveLocal(fs *funcState, name string) int {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			if fs.locals[i].depth == -1 {
				return -2 // sentinel: read before initialized
			}
			return i
		}
	}
	return -1
}

func addUpvalue(fs *funcState, index uint8, isLocal bool) int {
	for i, uv := range fs.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	if len(fs.upvalues) >= maxUpvalues {
		return -1
	}
	fs.upvalues = append(fs.upvalues, upvalueRef{index: index, isLocal: isLocal})
	return len(fs.upvalues) - 1
}

func resolveUpvalue(fs *funcState, name string) int {
	if fs.enclosing == nil {
		return -1
	}
	if local := resolveLocal(fs.enclosing, name); local >= 0 {
		fs.enclosing.locals[local].isCaptured = true
		return addUpvalue(fs, uint8(local), true)
	} else if local == -2 {
		return -2
	}
	if up := resolveUpvalue(fs.enclosing, name); up >= 0 {
		return addUpvalue(fs, uint8(up), false)
	} else if up == -2 {
		return -2
	}
	return -1
}

// --- declarations & statements ----------------------------------------

func (p *Parser) declaration() {
	switch {
	case p.matchTok(token.CLASS):
		p.classDeclaration()
	case p.matchTok(token.FUN):
		p.funDeclaration()
	case p.matchTok(token.VAR):
		p.varDeclaration()
	default:
		p.statement()
	}
	if p.panicMode {
		p.synchronize()
	}
}

func (p *Parser) classDeclaration() {
	p.consume(token.IDENT, "Expect class name.")
	nameTok := p.previous
	nameConst := p.identifierConstant(nameTok)
	p.declareVariable()

	p.emitOpByte(OpClass, nameConst)
	p.defineVariable(nameConst)

	cs := &classState{enclosing: p.class}
	p.class = cs

	if p.matchTok(token.LT) {
		p.consume(token.IDENT, "Expect superclass name.")
		p.namedVariable(p.previous, false) // push superclass
		if p.previous.Lexeme == nameTok.Lexeme {
			p.errorAtPrevious("A class can't inherit from itself.")
		}

		p.beginScope()
		p.addLocal("super")
		p.defineVariable(0)

		p.namedVariable(nameTok, false) // push subclass
		p.emitOp(OpInherit)
		cs.hasSuperclass = true
	}

	p.namedVariable(nameTok, false) // push class for METHOD opcodes
	p.consume(token.LBRACE, "Expect '{' before class body.")
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		p.method()
	}
	p.consume(token.RBRACE, "Expect '}' after class body.")
	p.emitOp(OpPop) // pop class

	if cs.hasSuperclass {
		p.endScope()
	}
	p.class = cs.enclosing
}

func (p *Parser) method() {
	p.consume(token.IDENT, "Expect method name.")
	nameTok := p.previous
	nameConst := p.identifierConstant(nameTok)

	fnType := typeMethod
	if nameTok.Lexeme == "init" {
		fnType = typeInitializer
	}
	p.function(fnType, &nameTok)
	p.emitOpByte(OpMethod, nameConst)
}

func (p *Parser) funDeclaration() {
	global := p.parseVariable("Expect function name.")
	p.markInitialized()
	nameTok := p.previous
	p.function(typeFunction, &nameTok)
	p.defineVariable(global)
}

func (p *Parser) function(fnType funcType, nameTok *token.Token) {
	p.pushFunc(fnType, nameTok)
	p.beginScope()

	p.consume(token.LPAREN, "Expect '(' after function name.")
	if !p.check(token.RPAREN) {
		for {
			p.cur.fn.Arity++
			if p.cur.fn.Arity > maxArgs {
				p.errorAtCurrent("Can't have more than 255 parameters.")
			}
			paramConst := p.parseVariable("Expect parameter name.")
			p.defineVariable(paramConst)
			if !p.matchTok(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "Expect ')' after parameters.")
	p.consume(token.LBRACE, "Expect '{' before function body.")
	p.block()

	p.endFunc()
}

func (p *Parser) varDeclaration() {
	global := p.parseVariable("Expect variable name.")
	if p.matchTok(token.EQ) {
		p.expression()
	} else {
		p.emitOp(OpNil)
	}
	p.consume(token.SEMICOLON, "Expect ';' after variable declaration.")
	p.defineVariable(global)
}

func (p *Parser) statement() {
	switch {
	case p.matchTok(token.PRINT):
		p.printStatement()
	case p.matchTok(token.IF):
		p.ifStatement()
	case p.matchTok(token.RETURN):
		p.returnStatement()
	case p.matchTok(token.WHILE):
		p.whileStatement()
	case p.matchTok(token.FOR):
		p.forStatement()
	case p.matchTok(token.LBRACE):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.expressionStatement()
	}
}

func (p *Parser) block() {
	for !p.check(token.RBRACE) && !p.check(token.EOF) {
		p.declaration()
	}
	p.consume(token.RBRACE, "Expect '}' after block.")
}

func (p *Parser) printStatement() {
	p.expression()
	p.consume(token.SEMICOLON, "Expect ';' after value.")
	p.emitOp(OpPrint)
}

func (p *Parser) expressionStatement() {
	p.expression()
	p.consume(token.SEMICOLON, "Expect ';' after expression.")
	p.emitOp(OpPop)
}

func (p *Parser) ifStatement() {
	p.consume(token.LPAREN, "Expect '(' after 'if'.")
	p.expression()
	p.consume(token.RPAREN, "Expect ')' after condition.")

	thenJump := p.emitJump(OpJumpIfFalse)
	p.emitOp(OpPop)
	p.statement()

	elseJump := p.emitJump(OpJump)
	p.patchJump(thenJump)
	p.emitOp(OpPop)

	if p.matchTok(token.ELSE) {
		p.statement()
	}
	p.patchJump(elseJump)
}

func (p *Parser) whileStatement() {
	loopStart := len(p.currentChunk().Code)
	p.consume(token.LPAREN, "Expect '(' after 'while'.")
	p.expression()
	p.consume(token.RPAREN, "Expect ')' after condition.")

	exitJump := p.emitJump(OpJumpIfFalse)
	p.emitOp(OpPop)
	p.statement()
	p.emitLoop(loopStart)

	p.patchJump(exitJump)
	p.emitOp(OpPop)
}

func (p *Parser) forStatement() {
	p.beginScope()
	p.consume(token.LPAREN, "Expect '(' after 'for'.")
	switch {
	case p.matchTok(token.SEMICOLON):
		// no initializer
	case p.matchTok(token.VAR):
		p.varDeclaration()
	default:
		p.expressionStatement()
	}

	loopStart := len(p.currentChunk().Code)
	exitJump := -1
	if !p.matchTok(token.SEMICOLON) {
		p.expression()
		p.consume(token.SEMICOLON, "Expect ';' after loop condition.")
		exitJump = p.emitJump(OpJumpIfFalse)
		p.emitOp(OpPop)
	}

	if !p.matchTok(token.RPAREN) {
		bodyJump := p.emitJump(OpJump)
		incrStart := len(p.currentChunk().Code)
		p.expression()
		p.emitOp(OpPop)
		p.consume(token.RPAREN, "Expect ')' after for clauses.")

		p.emitLoop(loopStart)
		loopStart = incrStart
		p.patchJump(bodyJump)
	}

	p.statement()
	p.emitLoop(loopStart)

	if exitJump != -1 {
		p.patchJump(exitJump)
		p.emitOp(OpPop)
	}
	p.endScope()
}

func (p *Parser) returnStatement() {
	if p.cur.fnType == typeScript {
		p.errorAtPrevious("Can't return from top-level code.")
	}
	if p.matchTok(token.SEMICOLON) {
		p.emitReturn()
		return
	}
	if p.cur.fnType == typeInitializer {
		p.errorAtPrevious("Can't return a value from an initializer.")
	}
	p.expression()
	p.consume(token.SEMICOLON, "Expect ';' after return value.")
	p.emitOp(OpReturn)
}
