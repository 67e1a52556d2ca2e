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
	"log/slog"
	"testing"
	"time"

	"github.com/gkelog/gkelog"
	"github.com/gkelog/gkelog/gkeloghttp"
)

// mustRequest builds a descriptor for rendering tests.
func mustRequest(t *testing.T, params gkelog.HTTPRequestParams) *gkelog.HTTPRequest {
	t.Helper()
	req, err := gkelog.NewHTTPRequest(params)
	if err != nil {
		t.Fatalf("NewHTTPRequest: %v", err)
	}
	return req
}

// TestRenderAccessLogCombined verifies each atom of the default template
// against a fully populated exchange.
func TestRenderAccessLogCombined(t *testing.T) {
	t.Parallel()

	req := mustRequest(t, gkelog.HTTPRequestParams{
		Protocol:  "HTTP/1.1",
		Method:    "GET",
		URL:       "http://example.com/items?x=1",
		RemoteIP:  "10.0.0.1",
		Referer:   "http://example.com/start",
		UserAgent: "curl/8.5",
	})
	req.ObserveResponse(201, "42")

	when := time.Date(2026, 7, 9, 14, 30, 0, 0, time.UTC)
	line := gkeloghttp.RenderAccessLog(gkeloghttp.CombinedLogFormat, when, req, "alice")

	want := `10.0.0.1 - alice [09/Jul/2026:14:30:00 +0000] GET /items?x=1 HTTP/1.1 201 42 "http://example.com/start" "curl/8.5"`
	if line != want {
		t.Errorf("line = %q\nwant   %q", line, want)
	}
}

// TestRenderAccessLogMissingData verifies every absent datum renders as a
// dash.
func TestRenderAccessLogMissingData(t *testing.T) {
	t.Parallel()

	req := mustRequest(t, gkelog.HTTPRequestParams{
		Protocol: "HTTP/1.1",
		Method:   "HEAD",
		URL:      "http://example.com",
	})

	when := time.Date(2026, 7, 9, 14, 30, 0, 0, time.UTC)
	line := gkeloghttp.RenderAccessLog(gkeloghttp.CombinedLogFormat, when, req, "")

	want := `- - - [09/Jul/2026:14:30:00 +0000] HEAD / HTTP/1.1 - - "-" "-"`
	if line != want {
		t.Errorf("line = %q\nwant   %q", line, want)
	}
}

// TestRenderAccessLogUnknownPlaceholders verifies unrecognized placeholders
// pass through untouched.
func TestRenderAccessLogUnknownPlaceholders(t *testing.T) {
	t.Parallel()

	req := mustRequest(t, gkelog.HTTPRequestParams{
		Protocol: "HTTP/2",
		Method:   "GET",
		URL:      "https://example.com/x",
	})
	req.ObserveResponse(200, "")

	line := gkeloghttp.RenderAccessLog("{status_code} {mystery}", time.Now(), req, "")
	if line != "200 {mystery}" {
		t.Errorf("line = %q", line)
	}
}

// TestLevelForStatus verifies the status-to-level mapping, including the
// unknown-status case.
func TestLevelForStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   slog.Level
	}{
		{200, slog.LevelInfo},
		{204, slog.LevelInfo},
		{302, slog.LevelInfo},
		{399, slog.LevelInfo},
		{400, slog.LevelWarn},
		{404, slog.LevelWarn},
		{499, slog.LevelWarn},
		{500, slog.LevelError},
		{503, slog.LevelError},
		{0, slog.LevelError},
	}
	for _, tc := range tests {
		if got := gkeloghttp.LevelForStatus(tc.status); got != tc.want {
			t.Errorf("LevelForStatus(%d) = %v, want %v", tc.status, got, tc.want)
		}
	}
}
