// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jstep

import (
	"bufio"
	"errors"
	"io"
	"time"
)

// A Source supplies the input bytes of a Parser one at a time. A Source
// caches at most one byte of lookahead, and no byte is delivered twice.
type Source interface {
	// Peek reports the next input byte without consuming it. It returns false
	// if the input is permanently exhausted.
	Peek() (byte, bool)

	// Next consumes and returns the byte reported by Peek.
	Next() (byte, bool)

	// Err reports the error, if any, that ended the input early. It returns
	// nil if the input ended normally or has not ended.
	Err() error
}

// NewBytesSource returns a Source that reads the contents of data.
// The Source does not copy data; the caller must not modify it while the
// Source is in use.
func NewBytesSource(data []byte) Source { return &bytesSource{data: data, pos: -1} }

type bytesSource struct {
	data   []byte
	pos    int // offset of the cached byte; -1 before the first Peek
	cached bool
}

func (b *bytesSource) Peek() (byte, bool) {
	if !b.cached {
		b.pos++
		b.cached = true
	}
	if b.pos >= len(b.data) {
		b.pos = len(b.data)
		return 0, false
	}
	return b.data[b.pos], true
}

func (b *bytesSource) Next() (byte, bool) {
	c, ok := b.Peek()
	if ok {
		b.cached = false
	}
	return c, ok
}

func (*bytesSource) Err() error { return nil }

// pollDelay is how long a reader source waits before polling a stream that
// had no data available.
var pollDelay = time.Millisecond

// NewReaderSource returns a Source that consumes input from r.
//
// Peek blocks until a byte is available or r reports an error.  A stream
// that repeatedly returns no data without an error is polled again after a
// short delay; there is no timeout. io.EOF ends the input normally; any
// other error ends the input and is reported by Err.
func NewReaderSource(r io.Reader) Source {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &readerSource{r: br}
}

type readerSource struct {
	r      *bufio.Reader
	c      byte
	cached bool
	done   bool
	err    error
}

func (s *readerSource) Peek() (byte, bool) {
	if s.cached {
		return s.c, true
	}
	for !s.done {
		c, err := s.r.ReadByte()
		if err == nil {
			s.c, s.cached = c, true
			return c, true
		} else if errors.Is(err, io.ErrNoProgress) {
			time.Sleep(pollDelay)
			continue
		}
		s.done = true
		if err != io.EOF {
			s.err = err
		}
	}
	return 0, false
}

func (s *readerSource) Next() (byte, bool) {
	c, ok := s.Peek()
	s.cached = false
	return c, ok
}

func (s *readerSource) Err() error { return s.err }
