// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package main

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/creachadair/jstep"
	"github.com/creachadair/jstep/board"
	"github.com/creachadair/jstep/efa"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/backoff"
	"github.com/klauspost/compress/gzip"
)

// timeNow reports the current time; tests replace it.
var timeNow = time.Now

// A fetcher loads departure monitor responses and collects them into a
// board.
type fetcher struct {
	cfg     Config
	client  *http.Client
	logger  log.Logger
	metrics *metrics
}

// run refreshes and prints the board to w until ctx ends, or once if
// cfg.Once is set.
func (f *fetcher) run(ctx context.Context, w io.Writer) error {
	b := newBoard(f.cfg)
	show := func() error {
		if err := f.refresh(ctx, b); err != nil {
			return err
		}
		_, err := b.WriteTo(w)
		return err
	}
	if err := show(); err != nil {
		if f.cfg.Once {
			return err
		}
		level.Error(f.logger).Log("msg", "refresh failed", "err", err)
	}
	if f.cfg.Once {
		return nil
	}

	t := time.NewTicker(time.Duration(f.cfg.Interval))
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if err := show(); err != nil {
				level.Error(f.logger).Log("msg", "refresh failed", "err", err)
			}
		}
	}
}

// refresh replaces the contents of b with the current departures, retrying
// failed attempts up to the configured limit.
func (f *fetcher) refresh(ctx context.Context, b *board.Board) error {
	bo := backoff.New(ctx, backoff.Config{
		MinBackoff: time.Duration(f.cfg.RetryDelay),
		MaxBackoff: time.Duration(f.cfg.RetryDelay),
		MaxRetries: f.cfg.Retries,
	})

	var lastErr error
	for bo.Ongoing() {
		f.metrics.attempts.Inc()
		err := f.fetch(ctx, b)
		if err == nil {
			return nil
		}
		f.metrics.failures.Inc()
		lastErr = err
		level.Warn(f.logger).Log("msg", "fetching departures failed", "attempt", bo.NumRetries()+1, "err", err)
		bo.Wait()
	}
	return fmt.Errorf("fetching departures after %d attempts: %w", bo.NumRetries(), cmp.Or(lastErr, bo.Err()))
}

// fetch makes a single attempt to load the departures into b.
func (f *fetcher) fetch(ctx context.Context, b *board.Board) error {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(f.cfg.Timeout))
	defer cancel()

	// Stop events are reported in UTC.
	now := timeNow().UTC()

	rc, err := f.open(ctx)
	if err != nil {
		return err
	}
	defer rc.Close()

	b.Reset()
	p := jstep.NewReader(rc)
	p.SetLogger(f.logger)
	w := &efa.Walker{Now: now, OnStopEvent: func(ev efa.StopEvent, now time.Time) error {
		f.metrics.stopEvents.Inc()
		return b.Add(ev, now)
	}}
	err = w.Walk(p)
	f.metrics.inputBytes.Add(float64(p.Offset()))
	if err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	b.Clock = w.ServerTime
	f.metrics.lastRefresh.Set(float64(now.Unix()))
	level.Debug(f.logger).Log("msg", "parsed response", "bytes", p.Offset(), "serverTime", w.ServerTime)
	return nil
}

// open returns a reader for the response body. A file whose name ends in
// ".gz" is decompressed.
func (f *fetcher) open(ctx context.Context) (io.ReadCloser, error) {
	if f.cfg.File != "" {
		return openFile(f.cfg.File)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	rsp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	if rsp.StatusCode != http.StatusOK {
		rsp.Body.Close()
		return nil, fmt.Errorf("GET %s: %s", f.cfg.URL, rsp.Status)
	}
	return rsp.Body, nil
}

func openFile(path string) (io.ReadCloser, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	} else if !strings.HasSuffix(path, ".gz") {
		return fp, nil
	}
	zr, err := gzip.NewReader(fp)
	if err != nil {
		fp.Close()
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	return gzipFile{Reader: zr, f: fp}, nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g gzipFile) Close() error {
	zerr := g.Reader.Close()
	return cmp.Or(g.f.Close(), zerr)
}
