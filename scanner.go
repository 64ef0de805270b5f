// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jstep

import (
	"errors"
	"fmt"
	"io"

	"github.com/creachadair/jstep/internal/escape"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go4.org/mem"
)

// Token is the type of a lexical token in the JSON grammar.
type Token byte

// Constants defining the valid Token values.
const (
	Invalid Token = iota // invalid token
	EOF                  // end of input
	LBrace               // left brace "{"
	RBrace               // right brace "}"
	LSquare              // left square bracket "["
	RSquare              // right square bracket "]"
	Comma                // comma ","
	Colon                // colon ":"
	True                 // constant: true
	False                // constant: false
	Null                 // constant: null
	String               // quoted string
	Number               // number
)

var tokenStr = [...]string{
	Invalid: "invalid",
	EOF:     "end of input",
	LBrace:  "{",
	RBrace:  "}",
	LSquare: "[",
	RSquare: "]",
	Comma:   ",",
	Colon:   ":",
	True:    "true",
	False:   "false",
	Null:    "null",
	String:  "string",
	Number:  "number",
}

func (t Token) String() string {
	if int(t) >= len(tokenStr) {
		return tokenStr[Invalid]
	}
	return tokenStr[t]
}

// punct maps each punctuation byte to its token. All other entries are
// Invalid.
var punct = [256]Token{
	'{': LBrace,
	'}': RBrace,
	'[': LSquare,
	']': RSquare,
	',': Comma,
	':': Colon,
}

var keywords = [...]struct {
	tok  Token
	text string
}{
	{True, "true"},
	{False, "false"},
	{Null, "null"},
}

// minScratch is the initial capacity of the scratch buffer.
const minScratch = 1024

// maxDiagLen bounds the length of a diagnostic message.
const maxDiagLen = 256

// A Parser is a forward-only pull parser for JSON. Each call advances the
// parser through its Source by exactly as much input as needed to produce
// the requested token, with at most one byte of lookahead.
//
// The text of the current string or number token is held in a scratch
// buffer owned by the parser, and is only valid until the next call that
// advances the parser. A Parser is not safe for concurrent use.
//
// After any failure the parser is desynchronized from its input. The error
// is sticky: all further calls that advance the parser report it again.
type Parser struct {
	src Source
	log log.Logger

	tok  Token
	buf  []byte  // scratch: text of the most recent string or number
	num  float64 // value of the most recent number
	flag bool    // value of the most recent boolean
	off  int64   // offset of the next unconsumed input byte
	err  error   // sticky failure
}

// NewParser constructs a parser that consumes input from src.
func NewParser(src Source) *Parser {
	p := &Parser{src: src}
	p.SetLogger(nil)
	return p
}

// NewBytes constructs a parser that consumes the contents of data.
func NewBytes(data []byte) *Parser { return NewParser(NewBytesSource(data)) }

// NewReader constructs a parser that consumes input from r.
func NewReader(r io.Reader) *Parser { return NewParser(NewReaderSource(r)) }

// SetLogger sets the sink for diagnostics reported by p. Each failure is
// logged once at error level, tagged with the reporting call site and the
// input offset. If logger == nil, diagnostics are discarded.
func (p *Parser) SetLogger(logger log.Logger) {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	p.log = log.With(logger, "caller", log.Caller(5))
}

// Token returns the type of the current token.
func (p *Parser) Token() Token { return p.tok }

// Text returns a view of the text of the most recent string or number token.
// For strings, escapes are decoded and the quotes are removed.
//
// The view is only valid until the next call that advances p. The caller
// must copy the contents (e.g., with Copy) if it is needed beyond that.
func (p *Parser) Text() mem.RO { return mem.B(p.buf) }

// Copy returns a copy of the text reported by Text.
func (p *Parser) Copy() string { return string(p.buf) }

// Float returns the value of the most recent number token.
func (p *Parser) Float() float64 { return p.num }

// Bool returns the value of the most recent boolean token.
func (p *Parser) Bool() bool { return p.flag }

// Offset returns the offset of the next unconsumed byte of input.
func (p *Parser) Offset() int64 { return p.off }

// Err returns the error that stopped p, or nil.
func (p *Parser) Err() error { return p.err }

// Next advances p to the next token of the input, or reports an error.
// At the end of the input, Next returns io.EOF and the current token is EOF.
func (p *Parser) Next() error {
	if p.err != nil {
		return p.err
	}
	p.tok = Invalid
	p.skipSpace()

	c, ok := p.src.Peek()
	if !ok {
		if err := p.src.Err(); err != nil {
			return p.failf("reading input: %w", err)
		}
		p.tok = EOF
		return io.EOF
	}

	// Handle punctuation.
	if t := punct[c]; t != Invalid {
		p.get()
		p.tok = t
		return nil
	}

	switch {
	case c == 't' || c == 'f' || c == 'n':
		return p.scanKeyword(c)
	case c == '"':
		return p.scanString()
	case isNumByte(c):
		return p.scanNumber()
	}
	return p.failf("unexpected %s", escape.QuoteByte(c))
}

func (p *Parser) scanKeyword(first byte) error {
	for _, kw := range keywords {
		if kw.text[0] != first {
			continue
		}
		for i := 0; i < len(kw.text); i++ {
			c, ok := p.get()
			if !ok {
				return p.failf("incomplete %v", kw.tok)
			} else if c != kw.text[i] {
				return p.failf("invalid symbol, want %v", kw.tok)
			}
		}
		p.tok = kw.tok
		if kw.tok != Null {
			p.flag = kw.tok == True
		}
		return nil
	}
	return p.failf("unexpected %s", escape.QuoteByte(first))
}

func (p *Parser) scanString() error {
	p.get() // opening quote
	p.buf = p.buf[:0]
	for {
		c, ok := p.get()
		if !ok {
			return p.failf("unterminated string")
		}
		switch c {
		case '"':
			p.tok = String
			return nil
		case '\\':
			e, ok := p.get()
			if !ok {
				return p.failf("unterminated escape sequence")
			}
			v, ok := escape.Decode(e)
			if !ok {
				return p.failf("invalid escape sequence %s", escape.QuoteByte(e))
			}
			p.put(v)
		default:
			p.put(c)
		}
	}
}

// scanNumber consumes a maximal run of number bytes. Exponents are not
// supported: an "e" ends the number.
//
// The whole run is the text of the token, but its value is taken from the
// longest prefix of the run that has the form of a decimal number, so "1.2.3"
// has value 1.2. A run with no such prefix, like "-" or ".", has value 0.
func (p *Parser) scanNumber() error {
	p.buf = p.buf[:0]
	for {
		c, ok := p.src.Peek()
		if !ok || !isNumByte(c) {
			break
		}
		p.put(c)
		p.get()
	}
	p.num = 0
	if n := numberPrefix(p.buf); n > 0 {
		// The prefix is well-formed, so the only possible error is a range
		// error, for which ParseFloat reports ±Inf.
		p.num, _ = mem.ParseFloat(mem.B(p.buf[:n]), 64)
	}
	p.tok = Number
	return nil
}

// numberPrefix returns the length of the longest prefix of buf of the form
// [-+]?[0-9]*(\.[0-9]*)? having at least one digit, or 0 if there is none.
func numberPrefix(buf []byte) int {
	i, digits := 0, 0
	if i < len(buf) && (buf[i] == '-' || buf[i] == '+') {
		i++
	}
	for ; i < len(buf) && isDigit(buf[i]); i++ {
		digits++
	}
	if i < len(buf) && buf[i] == '.' {
		i++
		for ; i < len(buf) && isDigit(buf[i]); i++ {
			digits++
		}
	}
	if digits == 0 {
		return 0
	}
	return i
}

// put appends c to the scratch buffer, doubling its capacity when full.
func (p *Parser) put(c byte) {
	if len(p.buf) == cap(p.buf) {
		n := 2 * cap(p.buf)
		if n == 0 {
			n = minScratch
		}
		buf := make([]byte, len(p.buf), n)
		copy(buf, p.buf)
		p.buf = buf
	}
	p.buf = append(p.buf, c)
}

// get consumes one byte of input.
func (p *Parser) get() (byte, bool) {
	c, ok := p.src.Next()
	if ok {
		p.off++
	}
	return c, ok
}

func (p *Parser) skipSpace() {
	for {
		c, ok := p.src.Peek()
		if !ok || !isSpace(c) {
			return
		}
		p.get()
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

func isDigit(c byte) bool   { return '0' <= c && c <= '9' }
func isNumByte(c byte) bool { return isDigit(c) || c == '-' || c == '+' || c == '.' }

// SyntaxError is the concrete type of errors reported by the parser.
type SyntaxError struct {
	Offset  int64 // input offset at which the error was detected
	Message string

	err error
}

// Error satisfies the error interface.
func (s *SyntaxError) Error() string {
	return fmt.Sprintf("at offset %d: %s", s.Offset, s.Message)
}

// Unwrap supports error wrapping.
func (s *SyntaxError) Unwrap() error { return s.err }

// Failf stops p with a *SyntaxError at the current offset, whose message is
// formatted from msg and args as by fmt.Errorf. It is for callers that detect
// a problem in the input the parser cannot, such as a value that is
// well-formed JSON but not meaningful to the caller. The failure is logged
// like any other, and Failf returns the resulting error.
func (p *Parser) Failf(msg string, args ...any) error { return p.report(fmt.Errorf(msg, args...)) }

// failf records and reports a failure at the current offset.
func (p *Parser) failf(msg string, args ...any) error { return p.report(fmt.Errorf(msg, args...)) }

// report stops p with err and logs a diagnostic. The caller of the function
// that calls report is recorded as the call site.
func (p *Parser) report(err error) error {
	p.tok = Invalid
	p.err = &SyntaxError{Offset: p.off, Message: err.Error(), err: errors.Unwrap(err)}

	text := err.Error()
	if len(text) > maxDiagLen {
		text = text[:maxDiagLen]
	}
	level.Error(p.log).Log("offset", p.off, "msg", text)
	return p.err
}
