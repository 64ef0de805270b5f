// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Package board lays out upcoming departures for display, one column per
// platform.
package board

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/creachadair/jstep/efa"
)

// DefaultRows is the default number of rows shown per column.
const DefaultRows = 9

// DefaultCutoff is the default age beyond which a departure is no longer
// shown. Departures that left less than this long ago are kept, so that a
// rider can see the one just missed.
const DefaultCutoff = -2 // minutes

// A Row is one departure shown on the board.
type Row struct {
	Route   int // route number
	Minutes int // whole minutes until departure, negative if already left
}

func (r Row) String() string { return fmt.Sprintf("%-3d    %2d min", r.Route, r.Minutes) }

// A Column collects the departures from one platform.
type Column struct {
	Platform byte   // platform designator matched against stop events
	Title    string // heading shown above the column
	Rows     []Row
}

// A Board collects departures into columns. Use Add as the stop event
// callback of an efa.Walker.
type Board struct {
	Columns []*Column

	// MaxRows is the maximum number of rows kept per column. If zero,
	// DefaultRows is used.
	MaxRows int

	// Cutoff is the number of minutes (usually negative) below which a
	// departure is dropped.
	Cutoff int

	// Clock is the time shown in the header of the board.
	Clock time.Time
}

// New constructs an empty board with default settings and a column for
// each of the given platforms.
func New(platforms ...byte) *Board {
	b := &Board{MaxRows: DefaultRows, Cutoff: DefaultCutoff}
	for _, p := range platforms {
		b.Columns = append(b.Columns, &Column{Platform: p, Title: string(p)})
	}
	return b
}

// Reset discards all rows from the board, keeping its columns.
func (b *Board) Reset() {
	for _, c := range b.Columns {
		c.Rows = c.Rows[:0]
	}
}

func (b *Board) maxRows() int {
	if b.MaxRows <= 0 {
		return DefaultRows
	}
	return b.MaxRows
}

// Add adds ev to the column for its platform, if there is one and it is not
// already full. Departures more than the cutoff in the past are dropped.
// It never reports an error.
func (b *Board) Add(ev efa.StopEvent, now time.Time) error {
	for _, c := range b.Columns {
		if c.Platform != ev.Platform || len(c.Rows) >= b.maxRows() {
			continue
		}
		mins := Minutes(ev.Departure(), now)
		if mins < b.Cutoff {
			continue
		}
		c.Rows = append(c.Rows, Row{Route: ev.Route, Minutes: mins})
	}
	return nil
}

// Minutes returns the whole number of minutes from now until t, truncated
// toward zero.
func Minutes(t, now time.Time) int {
	return int(t.Sub(now) / time.Minute)
}

// WriteTo renders b as text to w. The header shows the clock; below it the
// columns are shown side by side, with blank rows filling each column to
// the maximum number of rows.
func (b *Board) WriteTo(w io.Writer) (int64, error) {
	cw := &countWriter{w: w}
	fmt.Fprintf(cw, "%s\n", b.Clock.Format("15:04"))

	tw := tabwriter.NewWriter(cw, 0, 8, 4, ' ', 0)
	titles := make([]string, len(b.Columns))
	for i, c := range b.Columns {
		titles[i] = c.Title
	}
	fmt.Fprintln(tw, strings.Join(titles, "\t"))
	for i := 0; i < b.maxRows(); i++ {
		cells := make([]string, len(b.Columns))
		for j, c := range b.Columns {
			if i < len(c.Rows) {
				cells[j] = c.Rows[i].String()
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return cw.n, err
	}
	return cw.n, cw.err
}

type countWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countWriter) Write(data []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(data)
	c.n += int64(n)
	c.err = err
	return n, err
}
