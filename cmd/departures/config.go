// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/tailscale/hujson"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Config holds the settings of the program. Settings may be given in a
// config file, as HuJSON (JSON with comments and trailing commas); flags
// given on the command line take precedence over the file.
type Config struct {
	URL       string       `json:"url"`       // departure monitor request URL
	File      string       `json:"file"`      // read a saved response instead of URL
	Platforms platformList `json:"platforms"` // board columns, in order
	Rows      int          `json:"rows"`      // rows per column
	Cutoff    int          `json:"cutoff"`    // drop departures older than this (minutes)

	Retries    int      `json:"retries"`    // attempts per refresh
	RetryDelay duration `json:"retryDelay"` // delay between attempts
	Interval   duration `json:"interval"`   // time between refreshes
	Timeout    duration `json:"timeout"`    // limit on one fetch
	Once       bool     `json:"once"`       // refresh once and exit

	LogLevel    string `json:"logLevel"`
	MetricsAddr string `json:"metricsAddr"` // serve metrics here, if set
}

func defaultConfig() Config {
	return Config{
		Platforms: platformList{
			{Platform: "e", Title: "Into city"},
			{Platform: "a", Title: "Out of city"},
		},
		Rows:       9,
		Cutoff:     -2,
		Retries:    3,
		RetryDelay: duration(time.Second),
		Interval:   duration(time.Minute),
		Timeout:    duration(30 * time.Second),
		LogLevel:   "info",
	}
}

// loadConfigFile updates cfg from the HuJSON file at path.
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	std, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("parsing config %q: %w", path, err)
	}
	if err := json.Unmarshal(std, cfg); err != nil {
		return fmt.Errorf("decoding config %q: %w", path, err)
	}
	return nil
}

// Validate reports an error if cfg is not usable.
func (c *Config) Validate() error {
	switch {
	case c.URL == "" && c.File == "":
		return errors.New("one of -url or -file is required")
	case c.URL != "" && c.File != "":
		return errors.New("-url and -file are mutually exclusive")
	case len(c.Platforms) == 0:
		return errors.New("no platforms are configured")
	case c.Rows <= 0:
		return fmt.Errorf("invalid row count %d", c.Rows)
	case c.Retries <= 0:
		return fmt.Errorf("invalid retry count %d", c.Retries)
	case c.Interval <= 0:
		return fmt.Errorf("invalid refresh interval %v", c.Interval)
	case c.Timeout <= 0:
		return fmt.Errorf("invalid fetch timeout %v", c.Timeout)
	case c.RetryDelay < 0:
		return fmt.Errorf("invalid retry delay %v", c.RetryDelay)
	}
	for _, p := range c.Platforms {
		if len(p.Platform) != 1 {
			return fmt.Errorf("platform %q must be a single character", p.Platform)
		}
	}
	return nil
}

// A platform is one column of the board.
type platform struct {
	Platform string `json:"platform"`
	Title    string `json:"title"`
}

// platformList is a list of platforms. As a flag it is written as
// comma-separated "platform:title" pairs, for example "e:Into city,a:Out".
type platformList []platform

func (p platformList) String() string {
	ss := make([]string, len(p))
	for i, v := range p {
		ss[i] = v.Platform + ":" + v.Title
	}
	return strings.Join(ss, ",")
}

func (p *platformList) Set(s string) error {
	var out platformList
	for _, elt := range strings.Split(s, ",") {
		name, title, ok := strings.Cut(elt, ":")
		if !ok {
			title = name
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return fmt.Errorf("empty platform in %q", s)
		}
		out = append(out, platform{Platform: name, Title: strings.TrimSpace(title)})
	}
	*p = out
	return nil
}

// duration is a time.Duration that can be set from a flag or decoded from
// a JSON string such as "1m30s".
type duration time.Duration

func (d duration) String() string { return time.Duration(d).String() }

func (d *duration) Set(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

func (d *duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	return d.Set(s)
}
