// Copyright 2026 The gkelog Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package gkeloghttp_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/gkelog/gkelog"
	"github.com/gkelog/gkelog/gkeloghttp"
)

// newTestMiddleware returns a middleware writing access entries to buf, with
// the otelhttp wrapper disabled so requests hit the logging handler directly.
func newTestMiddleware(buf *bytes.Buffer, extra ...gkeloghttp.Option) func(http.Handler) http.Handler {
	logger := slog.New(gkelog.NewHandler(buf))
	opts := append([]gkeloghttp.Option{
		gkeloghttp.WithLogger(logger),
		gkeloghttp.WithOTel(false),
	}, extra...)
	return gkeloghttp.Middleware(opts...)
}

// decodeEntries parses the handler output into one decoded entry per line.
func decodeEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("unmarshal line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

// TestMiddlewareAccessLogLine verifies the full happy path: one combined-
// format access entry whose httpRequest payload reflects the observed
// response.
func TestMiddlewareAccessLogLine(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	handler := newTestMiddleware(&buf)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "42")
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodGet, "http://example.com/items?x=1", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	entries := decodeEntries(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	entry := entries[0]

	if entry["severity"] != "INFO" {
		t.Errorf("severity = %v", entry["severity"])
	}
	msg, _ := entry["message"].(string)
	linePattern := regexp.MustCompile(`^10\.0\.0\.1 - - \[[0-9]{2}/[A-Z][a-z]{2}/[0-9]{4}:[0-9:]{8} [-+][0-9]{4}\] GET /items\?x=1 HTTP/1\.1 201 42 "-" "-"$`)
	if !linePattern.MatchString(msg) {
		t.Errorf("message = %q", msg)
	}

	httpReq, ok := entry["httpRequest"].(map[string]any)
	if !ok {
		t.Fatalf("httpRequest missing: %v", entry)
	}
	if httpReq["requestMethod"] != "GET" {
		t.Errorf("requestMethod = %v", httpReq["requestMethod"])
	}
	if httpReq["requestUrl"] != "http://example.com/items?x=1" {
		t.Errorf("requestUrl = %v", httpReq["requestUrl"])
	}
	if httpReq["status"] != float64(201) {
		t.Errorf("status = %v", httpReq["status"])
	}
	if httpReq["responseSize"] != "42" {
		t.Errorf("responseSize = %v", httpReq["responseSize"])
	}
	if httpReq["remoteIp"] != "10.0.0.1" {
		t.Errorf("remoteIp = %v", httpReq["remoteIp"])
	}
	latency, _ := httpReq["latency"].(string)
	if !strings.HasSuffix(latency, "s") || !strings.Contains(latency, ".") {
		t.Errorf("latency = %q", latency)
	}
}

// TestMiddlewareImplicitStatus verifies a body write without WriteHeader
// observes the implicit 200.
func TestMiddlewareImplicitStatus(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	handler := newTestMiddleware(&buf)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			t.Errorf("write: %v", err)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	entries := decodeEntries(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	httpReq, _ := entries[0]["httpRequest"].(map[string]any)
	if httpReq["status"] != float64(200) {
		t.Errorf("status = %v", httpReq["status"])
	}
}

// TestMiddlewareRejectsUnknownMethod verifies unrecognized methods fail fast
// with 400, skipping both the downstream handler and the access log.
func TestMiddlewareRejectsUnknownMethod(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	called := false
	handler := newTestMiddleware(&buf)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest("TRACE", "http://example.com/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if called {
		t.Error("downstream handler ran for rejected method")
	}
	if buf.Len() != 0 {
		t.Errorf("access log written for rejected method: %q", buf.String())
	}
}

// TestMiddlewarePanicEmitsErrorEntry verifies a downstream panic still
// produces a 500 access entry and propagates unchanged.
func TestMiddlewarePanicEmitsErrorEntry(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	handler := newTestMiddleware(&buf)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "http://example.com/fail", nil)
	rec := httptest.NewRecorder()

	func() {
		defer func() {
			if p := recover(); p != "boom" {
				t.Errorf("recovered %v, want \"boom\"", p)
			}
		}()
		handler.ServeHTTP(rec, req)
	}()

	entries := decodeEntries(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0]["severity"] != "ERROR" {
		t.Errorf("severity = %v", entries[0]["severity"])
	}
	httpReq, _ := entries[0]["httpRequest"].(map[string]any)
	if httpReq["status"] != float64(500) {
		t.Errorf("status = %v", httpReq["status"])
	}
}

// TestMiddlewareUnobservedResponse verifies a handler that never starts a
// response yields an unknown status: a "-" atom in the line and an ERROR
// entry.
func TestMiddlewareUnobservedResponse(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	handler := newTestMiddleware(&buf)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Response intentionally never started.
	}))

	req := httptest.NewRequest(http.MethodGet, "http://example.com/silent", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	entries := decodeEntries(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0]["severity"] != "ERROR" {
		t.Errorf("severity = %v", entries[0]["severity"])
	}
	msg, _ := entries[0]["message"].(string)
	if !strings.Contains(msg, " - - \"-\" \"-\"") && !strings.Contains(msg, "HTTP/1.1 - -") {
		t.Errorf("message lacks missing-status atoms: %q", msg)
	}
	httpReq, _ := entries[0]["httpRequest"].(map[string]any)
	if _, ok := httpReq["status"]; ok {
		t.Errorf("status present for unobserved response: %v", httpReq)
	}
}

// TestMiddlewareScopeVisibleDownstream verifies the downstream handler sees
// the request scope: user ID set inside the handler appears in the access
// line, and scope labels reach entries logged within the request.
func TestMiddlewareScopeVisibleDownstream(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(gkelog.NewHandler(&buf))
	handler := newTestMiddleware(&buf)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gkelog.SetUserID(r.Context(), "alice")
		gkelog.AddLabel(r.Context(), "tenant", "acme")
		logger.InfoContext(r.Context(), "handling")
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "http://example.com/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	entries := decodeEntries(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	// Handler entry first, access entry last.
	if entries[0]["message"] != "handling" {
		t.Errorf("first entry = %v", entries[0])
	}
	labels, _ := entries[0]["logging.googleapis.com/labels"].(map[string]any)
	if labels["tenant"] != "acme" {
		t.Errorf("handler entry labels = %v", labels)
	}
	httpReq, _ := entries[0]["httpRequest"].(map[string]any)
	if httpReq == nil || httpReq["requestUrl"] != "http://example.com/me" {
		t.Errorf("handler entry httpRequest = %v", httpReq)
	}

	access, _ := entries[1]["message"].(string)
	if !strings.Contains(access, " - alice [") {
		t.Errorf("access line lacks user id: %q", access)
	}
	accessReq, _ := entries[1]["httpRequest"].(map[string]any)
	if accessReq["status"] != float64(204) {
		t.Errorf("access entry status = %v", accessReq["status"])
	}
}

// TestMiddlewareCustomFormatAndServerIP verifies the template and serving
// address overrides.
func TestMiddlewareCustomFormatAndServerIP(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	handler := newTestMiddleware(&buf,
		gkeloghttp.WithMessageFormat("{request_line} -> {status_code}"),
		gkeloghttp.WithServerIP("192.0.2.10"),
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "http://example.com/submit", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	entries := decodeEntries(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0]["message"] != "POST /submit HTTP/1.1 -> 200" {
		t.Errorf("message = %v", entries[0]["message"])
	}
	httpReq, _ := entries[0]["httpRequest"].(map[string]any)
	if httpReq["serverIp"] != "192.0.2.10" {
		t.Errorf("serverIp = %v", httpReq["serverIp"])
	}
}
