// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package main

import (
	"net/http"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	attempts    prometheus.Counter
	failures    prometheus.Counter
	stopEvents  prometheus.Counter
	inputBytes  prometheus.Counter
	lastRefresh prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		attempts: f.NewCounter(prometheus.CounterOpts{
			Namespace: "departures",
			Name:      "fetch_attempts_total",
			Help:      "counts attempts to fetch and parse a departure monitor response",
		}),
		failures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "departures",
			Name:      "fetch_failures_total",
			Help:      "counts attempts that failed to fetch or parse a response",
		}),
		stopEvents: f.NewCounter(prometheus.CounterOpts{
			Namespace: "departures",
			Name:      "stop_events_total",
			Help:      "counts stop events parsed from responses",
		}),
		inputBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: "departures",
			Name:      "input_bytes_total",
			Help:      "counts bytes of response consumed by the parser",
		}),
		lastRefresh: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "departures",
			Name:      "last_refresh_timestamp_seconds",
			Help:      "time of the last successful refresh, in seconds since the Unix epoch",
		}),
	}
}

// serveMetrics exposes the default registry on addr until the process exits.
func serveMetrics(addr string, logger log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			level.Error(logger).Log("msg", "metrics server stopped", "addr", addr, "err", err)
		}
	}()
}
