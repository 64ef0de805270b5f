// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Program departures shows the upcoming departures from a public transit
// stop, as reported by an EFA departure monitor.
//
// Usage:
//
//	departures -url 'https://host/efa/XML_DM_REQUEST?...&outputFormat=rapidJSON'
//	departures -file saved.json -once
//
// The response is parsed as it is received, without being held in memory.
// Departures are grouped into one column per platform, and the board is
// refreshed every -interval until the program is interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/creachadair/jstep/board"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := defaultConfig()
	configFile := bindFlags(flag.CommandLine, &cfg)
	flag.Parse()

	if *configFile != "" {
		if err := applyConfigFile(flag.CommandLine, *configFile, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	logger := newLogger(cfg.LogLevel)
	if cfg.MetricsAddr != "" {
		serveMetrics(cfg.MetricsAddr, logger)
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	f := &fetcher{
		cfg:     cfg,
		client:  http.DefaultClient,
		logger:  logger,
		metrics: newMetrics(prometheus.DefaultRegisterer),
	}
	if err := f.run(ctx, os.Stdout); err != nil && ctx.Err() == nil {
		level.Error(logger).Log("msg", "exiting", "err", err)
		os.Exit(1)
	}
}

// bindFlags attaches the settings of cfg to flags in fs, and returns the
// location of the -config flag.
func bindFlags(fs *flag.FlagSet, cfg *Config) *string {
	configFile := fs.String("config", "", "Read settings from this HuJSON file (flags take precedence)")
	fs.StringVar(&cfg.URL, "url", cfg.URL, "Departure monitor request URL")
	fs.StringVar(&cfg.File, "file", cfg.File, "Read a saved response from this file instead of -url")
	fs.Var(&cfg.Platforms, "platforms", `Board columns as "platform:title,..."`)
	fs.IntVar(&cfg.Rows, "rows", cfg.Rows, "Maximum departures shown per platform")
	fs.IntVar(&cfg.Cutoff, "cutoff", cfg.Cutoff, "Hide departures that left more than this many minutes ago (negative)")
	fs.IntVar(&cfg.Retries, "retries", cfg.Retries, "Attempts per refresh")
	fs.Var(&cfg.RetryDelay, "retry-delay", "Delay between attempts")
	fs.Var(&cfg.Interval, "interval", "Time between refreshes")
	fs.Var(&cfg.Timeout, "timeout", "Time limit for a single fetch")
	fs.BoolVar(&cfg.Once, "once", cfg.Once, "Refresh once and exit")
	fs.StringVar(&cfg.LogLevel, "log.level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.MetricsAddr, "metrics.addr", cfg.MetricsAddr, "Serve Prometheus metrics on this address (disabled if empty)")
	return configFile
}

// applyConfigFile loads the config file at path into cfg, then restores the
// values of any flags in fs that were set explicitly.
func applyConfigFile(fs *flag.FlagSet, path string, cfg *Config) error {
	set := make(map[string]string)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = f.Value.String() })

	if err := loadConfigFile(path, cfg); err != nil {
		return err
	}
	for name, value := range set {
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("flag -%s: %w", name, err)
		}
	}
	return nil
}

func newLogger(lvl string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = level.NewFilter(logger, level.Allow(level.ParseDefault(lvl, level.InfoValue())))
	return log.With(logger, "ts", log.DefaultTimestampUTC)
}

func newBoard(cfg Config) *board.Board {
	b := &board.Board{MaxRows: cfg.Rows, Cutoff: cfg.Cutoff}
	for _, p := range cfg.Platforms {
		b.Columns = append(b.Columns, &board.Column{Platform: p.Platform[0], Title: p.Title})
	}
	return b
}
