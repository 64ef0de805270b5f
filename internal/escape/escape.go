// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Package escape handles the restricted set of string escapes understood by
// the pull parser, and quoting of text for diagnostics.
package escape

import (
	"unicode/utf8"

	"go4.org/mem"
)

// decode maps the byte following a backslash to its literal value.
// Zero entries are not valid escapes.
var decode = [256]byte{
	'r':  '\r',
	'n':  '\n',
	't':  '\t',
	'\\': '\\',
	'"':  '"',
}

// encode is the inverse of decode.
var encode = [256]byte{
	'\r': 'r',
	'\n': 'n',
	'\t': 't',
	'\\': '\\',
	'"':  '"',
}

// Decode reports the literal byte denoted by the escape sequence "\" b, and
// whether b is a supported escape.
func Decode(b byte) (byte, bool) {
	v := decode[b]
	return v, v != 0
}

var hexDigit = []byte("0123456789abcdef")

// Quote renders src as a double-quoted string for inclusion in a diagnostic
// message. Bytes with a supported escape are escaped; other control bytes
// and invalid UTF-8 are rendered as \xHH.
func Quote(src mem.RO) string {
	buf := make([]byte, 0, src.Len()+2)
	buf = append(buf, '"')
	for src.Len() != 0 {
		r, n := mem.DecodeRune(src)
		if r == utf8.RuneError && n <= 1 || r < ' ' {
			b := src.At(0)
			if e := encode[b]; e != 0 {
				buf = append(buf, '\\', e)
			} else {
				buf = append(buf, '\\', 'x', hexDigit[b>>4], hexDigit[b&15])
			}
			src = src.SliceFrom(1)
			continue
		}
		if e := encode[src.At(0)]; e != 0 {
			buf = append(buf, '\\', e)
		} else {
			buf = mem.Append(buf, src.SliceTo(n))
		}
		src = src.SliceFrom(n)
	}
	return string(append(buf, '"'))
}

// QuoteByte renders a single input byte for a diagnostic message.
func QuoteByte(b byte) string { return Quote(mem.B([]byte{b})) }
