// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package efa

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/creachadair/jstep"
	"go4.org/mem"
)

// A memberPolicy says what to do with an object member whose name is not
// recognized.
type memberPolicy bool

const (
	strict  memberPolicy = false // fail the parse
	lenient memberPolicy = true  // discard the value, which must be a scalar
)

// walkObject consumes an object. For each member, visit is called with the
// member name; it must either consume the value and report true, or consume
// nothing and report false. Unrecognized members are handled according to
// pol.
//
// The name passed to visit is only valid until visit advances the parser.
func walkObject(p *jstep.Parser, pol memberPolicy, visit func(key mem.RO) (bool, error)) error {
	if err := p.ObjectBegin(); err != nil {
		return err
	}
	for {
		more, err := p.ObjectMember()
		if err != nil {
			return err
		} else if !more {
			break
		}
		if ok, err := visit(p.Key()); err != nil {
			return err
		} else if ok {
			continue
		}
		if pol == strict {
			return p.UnknownMember()
		}
		if err := discardScalar(p); err != nil {
			return err
		}
	}
	return p.ObjectEnd()
}

// Walk consumes a complete response from p.
func (w *Walker) Walk(p *jstep.Parser) error {
	return walkObject(p, strict, func(key mem.RO) (bool, error) {
		switch {
		case key.EqualString("serverInfo"):
			return true, w.serverInfo(p)
		case key.EqualString("version"):
			return true, discardString(p)
		case key.EqualString("systemMessages"):
			// Expected to be empty.
			if err := p.ArrayBegin(); err != nil {
				return true, err
			}
			return true, p.ArrayEnd()
		case key.EqualString("locations"):
			return true, p.SkipArray()
		case key.EqualString("stopEvents"):
			return true, w.stopEvents(p)
		}
		return false, nil
	})
}

func (w *Walker) serverInfo(p *jstep.Parser) error {
	return walkObject(p, lenient, func(key mem.RO) (bool, error) {
		switch {
		case key.EqualString("serverTime"):
			t, _, err := readTime(p)
			w.ServerTime = t
			return true, err
		case key.EqualString("calcTime"):
			_, err := p.ReadNumber()
			return true, err
		}
		return false, nil
	})
}

func (w *Walker) stopEvents(p *jstep.Parser) error {
	if err := p.ArrayBegin(); err != nil {
		return err
	}
	for i := 0; ; i++ {
		more, err := p.ArrayItem()
		if err != nil {
			return err
		} else if !more {
			break
		}
		ev, err := stopEvent(p)
		if err != nil {
			return err
		}
		if w.OnStopEvent != nil {
			if err := w.OnStopEvent(ev, w.Now); err != nil {
				return fmt.Errorf("stop event %d: %w", i, err)
			}
		}
	}
	return p.ArrayEnd()
}

func stopEvent(p *jstep.Parser) (StopEvent, error) {
	var ev StopEvent
	err := walkObject(p, strict, func(key mem.RO) (bool, error) {
		switch {
		case key.EqualString("realtimeStatus"):
			return true, p.SkipArray()
		case key.EqualString("isRealtimeControlled"):
			_, err := p.ReadBool()
			return true, err
		case key.EqualString("location"):
			return true, location(p, &ev.Platform)
		case key.EqualString("departureTimePlanned"):
			t, _, err := readTime(p)
			ev.Planned = t
			return true, err
		case key.EqualString("departureTimeEstimated"):
			t, ok, err := readTime(p)
			ev.Estimated = t
			ev.HasEstimate = ok
			return true, err
		case key.EqualString("departureTimeBaseTimetable"):
			return true, discardString(p)
		case key.EqualString("transportation"):
			return true, transportation(p, &ev.Route)
		case key.EqualString("properties"):
			return true, p.SkipObject()
		}
		return false, nil
	})
	return ev, err
}

func location(p *jstep.Parser, platform *byte) error {
	return walkObject(p, strict, func(key mem.RO) (bool, error) {
		switch {
		case key.EqualString("id"),
			key.EqualString("name"),
			key.EqualString("disassembledName"),
			key.EqualString("type"),
			key.EqualString("pointType"):
			return true, discardString(p)
		case key.EqualString("isGlobalId"):
			_, err := p.ReadBool()
			return true, err
		case key.EqualString("coord"):
			return true, p.SkipArray()
		case key.EqualString("properties"):
			return true, locationProperties(p, platform)
		case key.EqualString("parent"):
			return true, p.SkipObject()
		}
		return false, nil
	})
}

func locationProperties(p *jstep.Parser, platform *byte) error {
	return walkObject(p, lenient, func(key mem.RO) (bool, error) {
		if !key.EqualString("platform") {
			return false, nil
		}
		s, err := p.ReadString()
		if err != nil {
			return true, err
		}
		*platform = 0
		if s.Len() != 0 {
			*platform = s.At(0)
		}
		return true, nil
	})
}

func transportation(p *jstep.Parser, route *int) error {
	return walkObject(p, strict, func(key mem.RO) (bool, error) {
		switch {
		case key.EqualString("id"),
			key.EqualString("name"),
			key.EqualString("disassembledName"),
			key.EqualString("description"):
			return true, discardString(p)
		case key.EqualString("number"):
			s, err := p.ReadString()
			if err == nil {
				*route = leadingInt(s)
			}
			return true, err
		case key.EqualString("product"),
			key.EqualString("destination"),
			key.EqualString("properties"),
			key.EqualString("origin"),
			key.EqualString("operator"):
			return true, p.SkipObject()
		}
		return false, nil
	})
}

func discardString(p *jstep.Parser) error {
	_, err := p.ReadString()
	return err
}

// discardScalar consumes a string, number, boolean or null.
func discardScalar(p *jstep.Parser) error {
	if err := p.Next(); err != nil && err != io.EOF {
		return err
	}
	switch p.Token() {
	case jstep.String, jstep.Number, jstep.True, jstep.False, jstep.Null:
		return nil
	}
	return p.Failf("expected scalar value, but got %v", p.Token())
}

// timeLayouts are the accepted timestamp formats, in order of preference.
// Timestamps without a zone are taken to be UTC.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	time.DateTime,
}

// readTime consumes a string holding a timestamp. The string is part of the
// schema but its contents are not: if it is not in one of the known layouts,
// readTime reports the zero time and false, without error.
func readTime(p *jstep.Parser) (time.Time, bool, error) {
	s, err := p.ReadString()
	if err != nil {
		return time.Time{}, false, err
	}
	t, err := parseTime(s)
	if err != nil {
		return time.Time{}, false, nil
	}
	return t, true, nil
}

func parseTime(s mem.RO) (time.Time, error) {
	text := s.StringCopy()
	var err error
	for _, layout := range timeLayouts {
		var t time.Time
		if t, err = time.Parse(layout, text); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// maxRoute bounds the magnitude of a route number; further digits are
// ignored.
const maxRoute = math.MaxInt32

// leadingInt parses the decimal integer at the front of s, after optional
// whitespace and sign, ignoring anything that follows. It returns 0 if s does
// not begin with an integer. A value too large in magnitude is clamped to
// maxRoute.
func leadingInt(s mem.RO) int {
	i := 0
	for i < s.Len() && isSpace(s.At(i)) {
		i++
	}
	neg := false
	if i < s.Len() && (s.At(i) == '-' || s.At(i) == '+') {
		neg = s.At(i) == '-'
		i++
	}
	var v int
	for ; i < s.Len() && '0' <= s.At(i) && s.At(i) <= '9'; i++ {
		v = 10*v + int(s.At(i)-'0')
		if v >= maxRoute {
			v = maxRoute
			break
		}
	}
	if neg {
		return -v
	}
	return v
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}
