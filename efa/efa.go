// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Package efa extracts departures from the JSON response of an EFA departure
// monitor (the "stopEvents" API), using a jstep.Parser.
//
// Only the fields needed to show a departure board are decoded: the server's
// local time, and for each stop event the platform, route number and the
// planned and estimated departure times. Everything else is skipped without
// being decoded.
//
// The response shape is fixed. Most objects are checked strictly: a member
// that is not part of the expected shape fails the parse. The "serverInfo"
// object and the "properties" of a stop location are lenient: unknown members
// there are discarded, provided their values are scalars.
package efa

import (
	"io"
	"time"

	"github.com/creachadair/jstep"
)

// A StopEvent is a single departure reported in the "stopEvents" array.
type StopEvent struct {
	// Platform is the first byte of the platform designator, or 0 if the stop
	// event did not name a platform. Longer designators are truncated.
	Platform byte

	// Route is the route number of the transportation. It is 0 if the route
	// "number" is absent or does not begin with a decimal integer.
	Route int

	// HasEstimate reports whether Estimated is set. An estimate whose text is
	// not a recognized timestamp is treated as absent.
	HasEstimate bool

	Planned   time.Time // planned departure time, zero if unrecognized
	Estimated time.Time // estimated departure time, if HasEstimate
}

// Departure returns the estimated departure time of e if there is one, or
// otherwise the planned departure time.
func (e StopEvent) Departure() time.Time {
	if e.HasEstimate {
		return e.Estimated
	}
	return e.Planned
}

// A Walker extracts the stop events from a departure monitor response.
type Walker struct {
	// Now is the caller's notion of the current time (UTC). It is passed
	// through to OnStopEvent unmodified.
	Now time.Time

	// OnStopEvent, if non-nil, is called once for each stop event in the
	// order they occur in the input, as soon as the event has been parsed.
	// If it reports an error, the walk stops and that error is returned.
	OnStopEvent func(ev StopEvent, now time.Time) error

	// ServerTime is set by Walk to the local time reported by the server, or
	// the zero time if the server's timestamp is not recognized.
	ServerTime time.Time
}

// Parse reads a response from r and calls fn for each stop event. It returns
// the server's local time.
func Parse(r io.Reader, now time.Time, fn func(StopEvent, time.Time) error) (time.Time, error) {
	w := &Walker{Now: now, OnStopEvent: fn}
	err := w.Walk(jstep.NewReader(r))
	return w.ServerTime, err
}

// ParseBytes is as Parse, but reads the response from data.
func ParseBytes(data []byte, now time.Time, fn func(StopEvent, time.Time) error) (time.Time, error) {
	w := &Walker{Now: now, OnStopEvent: fn}
	err := w.Walk(jstep.NewBytes(data))
	return w.ServerTime, err
}
