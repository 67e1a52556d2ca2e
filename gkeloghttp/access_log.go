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

package gkeloghttp

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gkelog/gkelog"
)

// CombinedLogFormat is the default access-log message template, reflecting
// the "combined" log format of Apache httpd and NGINX
// (https://httpd.apache.org/docs/trunk/logs.html#combined). Its atoms:
//
//   - remote address (client IP)
//   - RFC 1413 identity (always "-")
//   - user ID
//   - request timestamp
//   - request line ("METHOD PATH[?QUERY] PROTOCOL")
//   - response status code
//   - response length in bytes
//   - referer
//   - user agent
//
// A dash marks any missing datum.
const CombinedLogFormat = `{remote_addr} {ident} {user_id} [{timestamp}] {request_line} {status_code} {response_length} "{referer}" "{user_agent}"`

// accessLogTimestampLayout renders request timestamps in the traditional
// access-log form, e.g. "02/Jan/2026:15:04:05 +0000".
const accessLogTimestampLayout = "02/Jan/2006:15:04:05 -0700"

// RenderAccessLog fills the message template's named placeholders from the
// request descriptor, substituting "-" for any missing value.
func RenderAccessLog(format string, requestTime time.Time, req *gkelog.HTTPRequest, userID string) string {
	status := ""
	if code := req.Status(); code > 0 {
		status = strconv.Itoa(code)
	}
	replacer := strings.NewReplacer(
		"{remote_addr}", orDash(req.RemoteIP()),
		"{ident}", "-",
		"{user_id}", orDash(userID),
		"{timestamp}", requestTime.Format(accessLogTimestampLayout),
		"{request_line}", requestLine(req),
		"{status_code}", orDash(status),
		"{response_length}", orDash(req.ResponseSize()),
		"{referer}", orDash(req.Referer()),
		"{user_agent}", orDash(req.UserAgent()),
	)
	return replacer.Replace(format)
}

// requestLine reconstructs "METHOD PATH[?QUERY] PROTOCOL" from the
// descriptor's full URL.
func requestLine(req *gkelog.HTTPRequest) string {
	target := "/"
	if u, err := url.Parse(req.URL()); err == nil {
		if u.Path != "" {
			target = u.Path
		}
		if u.RawQuery != "" {
			target += "?" + u.RawQuery
		}
	}
	return req.Method() + " " + target + " " + req.Protocol()
}

// LevelForStatus maps a response status to the access entry's level:
// success is informational, client errors warn, and server failures or an
// unknown status are errors.
func LevelForStatus(status int) slog.Level {
	switch {
	case status > 0 && status < http.StatusBadRequest:
		return slog.LevelInfo
	case status >= http.StatusBadRequest && status < http.StatusInternalServerError:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// orDash substitutes the access-log missing-data marker for empty values.
func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
