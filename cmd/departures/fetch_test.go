// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/creachadair/jstep/board"
	"github.com/creachadair/mds/mtest"
	"github.com/go-kit/log"
	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const testInput = "../../testdata/departures.json"

func fixedClock(t *testing.T) {
	t.Helper()
	mtest.Swap(t, &timeNow, func() time.Time {
		return time.Date(2024, 1, 1, 9, 0, 0, 0, time.FixedZone("CET", 3600))
	})
}

// server returns a test server that fails the first n requests, then serves
// the test input. The returned counter reports the number of requests.
func server(t *testing.T, n int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	data, err := os.ReadFile(testInput)
	if err != nil {
		t.Fatalf("Read test input: %v", err)
	}
	var count atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if int(count.Add(1)) <= n {
			http.Error(w, "try again later", http.StatusInternalServerError)
			return
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept header: got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv, &count
}

func testMetrics() *metrics { return newMetrics(prometheus.NewRegistry()) }

func testConfigFor(url, file string) Config {
	cfg := defaultConfig()
	cfg.URL, cfg.File = url, file
	cfg.RetryDelay = duration(time.Millisecond)
	cfg.Timeout = duration(5 * time.Second)
	return cfg
}

func rowsByPlatform(b *board.Board) map[byte][]board.Row {
	m := make(map[byte][]board.Row)
	for _, c := range b.Columns {
		m[c.Platform] = c.Rows
	}
	return m
}

var wantRows = map[byte][]board.Row{
	'e': {{Route: 32, Minutes: 7}},
	'a': {{Route: 3, Minutes: 6}, {Route: 6, Minutes: 17}},
}

func TestFetch(t *testing.T) {
	fixedClock(t)
	srv, count := server(t, 0)

	cfg := testConfigFor(srv.URL, "")
	f := &fetcher{cfg: cfg, client: srv.Client(), logger: log.NewNopLogger(), metrics: testMetrics()}
	b := newBoard(cfg)
	if err := f.refresh(context.Background(), b); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if diff := cmp.Diff(wantRows, rowsByPlatform(b)); diff != "" {
		t.Errorf("Rows (-want, +got)\n%s", diff)
	}
	if want := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC); !b.Clock.Equal(want) {
		t.Errorf("Clock: got %v, want %v", b.Clock, want)
	}
	if n := count.Load(); n != 1 {
		t.Errorf("Got %d requests, want 1", n)
	}
	if got := testutil.ToFloat64(f.metrics.stopEvents); got != 4 {
		t.Errorf("Stop events metric: got %v, want 4", got)
	}
	// The refresh time is the local clock, not the server's wall time.
	if got, want := testutil.ToFloat64(f.metrics.lastRefresh), float64(timeNow().Unix()); got != want {
		t.Errorf("Last refresh metric: got %v, want %v", got, want)
	}

	// A second refresh replaces the rows rather than adding to them.
	if err := f.refresh(context.Background(), b); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if diff := cmp.Diff(wantRows, rowsByPlatform(b)); diff != "" {
		t.Errorf("Rows after second refresh (-want, +got)\n%s", diff)
	}
}

func TestFetch_file(t *testing.T) {
	fixedClock(t)
	cfg := testConfigFor("", testInput)
	f := &fetcher{cfg: cfg, logger: log.NewNopLogger(), metrics: testMetrics()}
	b := newBoard(cfg)
	if err := f.refresh(context.Background(), b); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if diff := cmp.Diff(wantRows, rowsByPlatform(b)); diff != "" {
		t.Errorf("Rows (-want, +got)\n%s", diff)
	}
}

func TestFetch_gzip(t *testing.T) {
	fixedClock(t)
	data, err := os.ReadFile(testInput)
	if err != nil {
		t.Fatalf("Read test input: %v", err)
	}
	path := filepath.Join(t.TempDir(), "departures.json.gz")
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write(data)
	if err := zw.Close(); err != nil {
		t.Fatalf("Compress test input: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		t.Fatalf("Write test input: %v", err)
	}

	cfg := testConfigFor("", path)
	f := &fetcher{cfg: cfg, logger: log.NewNopLogger(), metrics: testMetrics()}
	b := newBoard(cfg)
	if err := f.refresh(context.Background(), b); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if diff := cmp.Diff(wantRows, rowsByPlatform(b)); diff != "" {
		t.Errorf("Rows (-want, +got)\n%s", diff)
	}
	if got, want := testutil.ToFloat64(f.metrics.inputBytes), float64(len(bytes.TrimRight(data, " \t\r\n"))); got != want {
		t.Errorf("Input bytes metric: got %v, want %v", got, want)
	}
}

func TestFetch_retry(t *testing.T) {
	fixedClock(t)

	t.Run("Recover", func(t *testing.T) {
		srv, count := server(t, 2)
		cfg := testConfigFor(srv.URL, "")
		var logs bytes.Buffer
		f := &fetcher{cfg: cfg, client: srv.Client(), logger: log.NewLogfmtLogger(&logs), metrics: testMetrics()}
		b := newBoard(cfg)
		if err := f.refresh(context.Background(), b); err != nil {
			t.Fatalf("refresh failed: %v", err)
		}
		if n := count.Load(); n != 3 {
			t.Errorf("Got %d requests, want 3", n)
		}
		if diff := cmp.Diff(wantRows, rowsByPlatform(b)); diff != "" {
			t.Errorf("Rows (-want, +got)\n%s", diff)
		}
		if n := strings.Count(logs.String(), "fetching departures failed"); n != 2 {
			t.Errorf("Got %d failure logs, want 2:\n%s", n, logs.String())
		}
		if got := testutil.ToFloat64(f.metrics.attempts); got != 3 {
			t.Errorf("Attempts metric: got %v, want 3", got)
		}
		if got := testutil.ToFloat64(f.metrics.failures); got != 2 {
			t.Errorf("Failures metric: got %v, want 2", got)
		}
	})

	t.Run("GiveUp", func(t *testing.T) {
		srv, count := server(t, 100)
		cfg := testConfigFor(srv.URL, "")
		cfg.Retries = 2
		f := &fetcher{cfg: cfg, client: srv.Client(), logger: log.NewNopLogger(), metrics: testMetrics()}
		err := f.refresh(context.Background(), newBoard(cfg))
		if err == nil {
			t.Fatal("refresh: got nil, want error")
		}
		for _, want := range []string{"after 2 attempts", "500 Internal Server Error"} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("Error %q does not mention %q", err, want)
			}
		}
		if n := count.Load(); n != 2 {
			t.Errorf("Got %d requests, want 2", n)
		}
	})

	t.Run("BadPayload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"serverInfo": {}, "bogus": 1}`))
		}))
		defer srv.Close()
		cfg := testConfigFor(srv.URL, "")
		cfg.Retries = 1
		f := &fetcher{cfg: cfg, client: srv.Client(), logger: log.NewNopLogger(), metrics: testMetrics()}
		err := f.refresh(context.Background(), newBoard(cfg))
		if err == nil || !strings.Contains(err.Error(), `unexpected object member "bogus"`) {
			t.Errorf("refresh: got %v, want unexpected member error", err)
		}
	})
}

func TestRun_once(t *testing.T) {
	fixedClock(t)
	cfg := testConfigFor("", testInput)
	cfg.Once = true

	var out bytes.Buffer
	f := &fetcher{cfg: cfg, logger: log.NewNopLogger(), metrics: testMetrics()}
	if err := f.run(context.Background(), &out); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	text := out.String()
	for _, want := range []string{"09:00", "Into city", "Out of city", "32      7 min", "3       6 min", "6      17 min"} {
		if !strings.Contains(text, want) {
			t.Errorf("Output does not contain %q:\n%s", want, text)
		}
	}
}

func TestRun_cancel(t *testing.T) {
	fixedClock(t)
	cfg := testConfigFor("", testInput)
	cfg.Interval = duration(time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	w := &cancelWriter{cancel: cancel, after: 3}
	f := &fetcher{cfg: cfg, logger: log.NewNopLogger(), metrics: testMetrics()}
	if err := f.run(ctx, w); err != context.Canceled {
		t.Errorf("run: got %v, want %v", err, context.Canceled)
	}
	if w.boards < 3 {
		t.Errorf("Got %d boards, want at least 3", w.boards)
	}
}

// cancelWriter counts boards written and cancels a context after the given
// number of them.
type cancelWriter struct {
	cancel func()
	after  int
	boards int
}

func (c *cancelWriter) Write(data []byte) (int, error) {
	if bytes.HasPrefix(data, []byte("09:00")) {
		c.boards++
		if c.boards == c.after {
			c.cancel()
		}
	}
	return len(data), nil
}
