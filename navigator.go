// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jstep

import (
	"io"

	"github.com/creachadair/jstep/internal/escape"
	"go4.org/mem"
)

// ObjectBegin consumes the opening brace of an object.
func (p *Parser) ObjectBegin() error { return p.expect(LBrace) }

// ObjectEnd consumes the closing brace of an object.
func (p *Parser) ObjectEnd() error { return p.expect(RBrace) }

// ObjectMember reports whether another member of the current object follows.
// If so, it consumes the member name and the colon after it, leaving the
// parser positioned at the start of the member value; the name is available
// from Key until the next call that advances p.
//
// If the object has no more members, ObjectMember returns false without
// consuming the closing brace; the caller must still call ObjectEnd.
//
// A typical loop looks like:
//
//	if err := p.ObjectBegin(); err != nil {
//	   return err
//	}
//	for {
//	   ok, err := p.ObjectMember()
//	   if err != nil {
//	      return err
//	   } else if !ok {
//	      break
//	   }
//	   // ... handle p.Key() and its value ...
//	}
//	return p.ObjectEnd()
func (p *Parser) ObjectMember() (bool, error) {
	c, err := p.peekNonSpace("member or }")
	if err != nil {
		return false, err
	}
	switch c {
	case ',':
		p.get()
		p.tok = Comma
		if err := p.expect(String); err != nil {
			return false, err
		}
	case '}':
		return false, nil // N.B. not consumed
	default:
		// The first member of the object has no leading comma.
		if err := p.Next(); err == io.EOF {
			return false, p.failf("expected %v, but got %v", String, EOF)
		} else if err != nil {
			return false, err
		} else if p.tok != String {
			return false, p.failf("expected %v, but got %v", String, p.tok)
		}
	}
	if err := p.expect(Colon); err != nil {
		return false, err
	}
	return true, nil
}

// Key returns a view of the name of the member most recently reported by
// ObjectMember. It is only valid until the next call that advances p.
func (p *Parser) Key() mem.RO { return p.Text() }

// UnknownMember reports the current member name as unexpected, and returns
// the resulting error. After this the parser is stopped.
func (p *Parser) UnknownMember() error {
	return p.failf("unexpected object member %s", escape.Quote(p.Key()))
}

// ArrayBegin consumes the opening bracket of an array.
func (p *Parser) ArrayBegin() error { return p.expect(LSquare) }

// ArrayEnd consumes the closing bracket of an array.
func (p *Parser) ArrayEnd() error { return p.expect(RSquare) }

// ArrayItem reports whether another item of the current array follows.  If
// so, the separating comma (if any) is consumed and the parser is positioned
// at the start of the item. If not, ArrayItem returns false without
// consuming the closing bracket; the caller must still call ArrayEnd.
func (p *Parser) ArrayItem() (bool, error) {
	c, err := p.peekNonSpace("item or ]")
	if err != nil {
		return false, err
	}
	switch c {
	case ',':
		p.get()
		p.tok = Comma
		return true, nil
	case ']':
		return false, nil // N.B. not consumed
	default:
		return true, nil // first item
	}
}

// SkipArray consumes a complete array, including any nested arrays.
func (p *Parser) SkipArray() error {
	if err := p.expect(LSquare); err != nil {
		return err
	}
	return p.skipOpen(LSquare, RSquare)
}

// SkipObject consumes a complete object, including any nested objects.
func (p *Parser) SkipObject() error {
	if err := p.expect(LBrace); err != nil {
		return err
	}
	return p.skipOpen(LBrace, RBrace)
}

// SkipAny consumes a complete value of any type.
func (p *Parser) SkipAny() error {
	if err := p.Next(); err == io.EOF {
		return p.failf("expected value, but got %v", EOF)
	} else if err != nil {
		return err
	}
	switch p.tok {
	case LBrace:
		return p.skipOpen(LBrace, RBrace)
	case LSquare:
		return p.skipOpen(LSquare, RSquare)
	case RBrace, RSquare, Comma, Colon:
		return p.failf("expected value, but got %v", p.tok)
	}
	return nil // the scalar is already consumed
}

// skipOpen consumes tokens until the close matching an already-consumed open
// is found. Only brackets of the same kind are counted.
func (p *Parser) skipOpen(open, close Token) error {
	for depth := 1; depth > 0; {
		if err := p.Next(); err == io.EOF {
			return p.failf("expected %v, but got %v", close, EOF)
		} else if err != nil {
			return err
		}
		switch p.tok {
		case open:
			depth++
		case close:
			depth--
		}
	}
	return nil
}

// ReadString consumes a string and returns a view of its decoded text.  The
// view is only valid until the next call that advances p.
func (p *Parser) ReadString() (mem.RO, error) {
	if err := p.expect(String); err != nil {
		return mem.RO{}, err
	}
	return p.Text(), nil
}

// ReadNumber consumes a number and returns its value.
func (p *Parser) ReadNumber() (float64, error) {
	if err := p.expect(Number); err != nil {
		return 0, err
	}
	return p.num, nil
}

// ReadBool consumes a true or false constant and returns its value.
func (p *Parser) ReadBool() (bool, error) {
	if err := p.Next(); err != nil && err != io.EOF {
		return false, err
	}
	if p.tok != True && p.tok != False {
		return false, p.failf("expected boolean, but got %v", p.tok)
	}
	return p.flag, nil
}

// ReadNull consumes a null constant.
func (p *Parser) ReadNull() error { return p.expect(Null) }

// IsNullAhead reports whether the next value is null, without consuming it.
func (p *Parser) IsNullAhead() bool { return p.ahead(func(c byte) bool { return c == 'n' }) }

// IsBoolAhead reports whether the next value is true or false, without
// consuming it.
func (p *Parser) IsBoolAhead() bool {
	return p.ahead(func(c byte) bool { return c == 't' || c == 'f' })
}

// IsNumberAhead reports whether the next value is a number, without
// consuming it.
func (p *Parser) IsNumberAhead() bool {
	return p.ahead(func(c byte) bool { return c == '-' || c == '+' || isDigit(c) })
}

// IsStringAhead reports whether the next value is a string, without
// consuming it.
func (p *Parser) IsStringAhead() bool { return p.ahead(func(c byte) bool { return c == '"' }) }

// IsArrayAhead reports whether the next value is an array, without consuming
// it.
func (p *Parser) IsArrayAhead() bool { return p.ahead(func(c byte) bool { return c == '[' }) }

// IsObjectAhead reports whether the next value is an object, without
// consuming it.
func (p *Parser) IsObjectAhead() bool { return p.ahead(func(c byte) bool { return c == '{' }) }

// ahead skips whitespace and reports whether the next input byte satisfies f.
// It does not consume a token.
func (p *Parser) ahead(f func(byte) bool) bool {
	if p.err != nil {
		return false
	}
	p.skipSpace()
	c, ok := p.src.Peek()
	return ok && f(c)
}

// peekNonSpace skips whitespace and returns the next input byte without
// consuming it. Running out of input is a failure; want describes what was
// expected instead.
func (p *Parser) peekNonSpace(want string) (byte, error) {
	if p.err != nil {
		return 0, p.err
	}
	p.skipSpace()
	c, ok := p.src.Peek()
	if !ok {
		if err := p.src.Err(); err != nil {
			return 0, p.failf("reading input: %w", err)
		}
		return 0, p.failf("expected %s, but got %v", want, EOF)
	}
	return c, nil
}

// expect advances to the next token and requires it to be want.
func (p *Parser) expect(want Token) error {
	if err := p.Next(); err != nil && err != io.EOF {
		return err
	}
	if p.tok != want {
		return p.failf("expected %v, but got %v", want, p.tok)
	}
	return nil
}
