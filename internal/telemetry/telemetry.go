/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry provides a small opt-in event sender for anonymous usage
// metrics (layout saves and exports) and optional crash uploads.
package telemetry

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	applog "chatters/internal/log"
	"chatters/internal/version"
)

// Event names.
const (
	EventLayoutSaved    = "layout_saved"
	EventLayoutExported = "layout_exported"
)

// Config holds runtime configuration for telemetry and crash uploads.
// Telemetry is opt-in and disabled by default.
//
// Environment variables (read by FromEnv):
// - CHT_TELEMETRY_OPT_IN: "1", "true", "yes" to enable metrics
// - CHT_TELEMETRY_URL: URL to POST JSON events to
// - CHT_CRASH_UPLOAD_URL: URL to POST crash reports to
// - CHT_TELEMETRY_TIMEOUT_MS: optional request timeout, default 1500ms
// - CHT_TELEMETRY_DEBUG: if set, logs send attempts
//
// Without URLs events are dropped even when opted in.
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

func FromEnv() Config {
	cfg := Config{
		OptIn:        parseBool(os.Getenv("CHT_TELEMETRY_OPT_IN")),
		EventsURL:    strings.TrimSpace(os.Getenv("CHT_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("CHT_CRASH_UPLOAD_URL")),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv("CHT_TELEMETRY_DEBUG") != "",
	}
	if ms := strings.TrimSpace(os.Getenv("CHT_TELEMETRY_TIMEOUT_MS")); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil {
			cfg.Timeout = v
		}
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

// Client is an async sender with a bounded queue; it drops events when the
// queue is full and never retries.
type Client struct {
	cfg     Config
	log     *slog.Logger
	http    *resty.Client
	q       chan map[string]any
	pending sync.WaitGroup
	once    sync.Once
	closed  chan struct{}
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

func getDefault() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(FromEnv())
	}
	return defaultClient
}

// NewDefault replaces the package-level default client.
func NewDefault(cfg Config) {
	c := New(cfg)
	defaultMu.Lock()
	old := defaultClient
	defaultClient = c
	defaultMu.Unlock()
	if old != nil {
		old.Close()
	}
}

// New constructs a client and starts its sender goroutine.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 1500 * time.Millisecond
	}
	c := &Client{
		cfg: cfg,
		log: applog.WithComponent("telemetry"),
		http: resty.New().
			SetTimeout(cfg.Timeout).
			SetHeader("User-Agent", "chatters/"+version.Version),
		q:      make(chan map[string]any, 64),
		closed: make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether telemetry is enabled and an endpoint is configured.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Enabled reports whether the default client is enabled.
func Enabled() bool { return getDefault().Enabled() }

// Event queues a small JSON event if enabled. props must not carry PII.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	payload := map[string]any{
		"name":    name,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"version": version.String(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	for k, v := range props {
		payload[k] = v
	}
	c.pending.Add(1)
	select {
	case c.q <- payload:
	default:
		c.pending.Done()
	}
}

// Event using the default client.
func Event(name string, props map[string]any) { getDefault().Event(name, props) }

// LayoutSaved records a save with its diff sizes.
func LayoutSaved(upserted, deleted int) {
	Event(EventLayoutSaved, map[string]any{"upserted": upserted, "deleted": deleted})
}

// LayoutExported records an export in the given format.
func LayoutExported(format string, tables int) {
	Event(EventLayoutExported, map[string]any{"format": format, "tables": tables})
}

// Flush waits until queued events are sent or ctx is done.
func (c *Client) Flush(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	done := make(chan struct{})
	go func() {
		c.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	case <-time.After(2 * c.cfg.Timeout):
	}
}

// Flush flushes the default client.
func Flush(ctx context.Context) { getDefault().Flush(ctx) }

// Close stops the sender goroutine. Queued events are dropped.
func (c *Client) Close() { c.once.Do(func() { close(c.closed) }) }

func (c *Client) loop() {
	for {
		select {
		case <-c.closed:
			return
		case item := <-c.q:
			c.send(item)
			c.pending.Done()
		}
	}
}

func (c *Client) send(item map[string]any) {
	resp, err := c.http.R().
		SetHeader("Content-Type", "application/json").
		SetBody(item).
		Post(c.cfg.EventsURL)
	if c.cfg.DebugLogging {
		switch {
		case err != nil:
			c.log.Debug("telemetry send failed", slog.Any("err", err))
		case resp.IsError():
			c.log.Debug("telemetry send rejected", slog.Int("status", resp.StatusCode()))
		default:
			c.log.Debug("telemetry event sent", slog.Any("name", item["name"]))
		}
	}
}

// UploadCrash posts a serialized crash report to the crash URL if opted in.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	c.pending.Add(1)
	go func(b []byte) {
		defer c.pending.Done()
		_, err := c.http.R().
			SetHeader("Content-Type", "text/plain; charset=utf-8").
			SetBody(b).
			Post(c.cfg.CrashURL)
		if err != nil && c.cfg.DebugLogging {
			c.log.Debug("crash upload failed", slog.Any("err", err))
		}
	}(append([]byte(nil), report...))
}

// UploadCrash using the default client.
func UploadCrash(report []byte) { getDefault().UploadCrash(report) }
