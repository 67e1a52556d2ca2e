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

package gkelog

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrInvalidMethod reports an HTTP method outside the fixed set accepted by
// NewHTTPRequest. Construction fails before the descriptor can be stored in
// a scope, so the triggering request should be treated as unprocessable.
var ErrInvalidMethod = errors.New("gkelog: invalid HTTP method")

// allowedMethods is the fixed set of request methods accepted by
// NewHTTPRequest, matched case-insensitively.
var allowedMethods = map[string]struct{}{
	"GET":     {},
	"POST":    {},
	"PATCH":   {},
	"PUT":     {},
	"DELETE":  {},
	"OPTIONS": {},
	"HEAD":    {},
	"CONNECT": {},
}

// HTTPRequestParams carries the creation-time fields of an HTTPRequest.
// Sizes are strings because they originate from Content-Length headers and
// may legitimately be absent.
type HTTPRequestParams struct {
	Protocol    string
	Method      string
	URL         string
	RequestSize string
	UserAgent   string
	RemoteIP    string
	ServerIP    string
	Referer     string
}

// HTTPRequest is the mutable descriptor for one in-flight HTTP exchange,
// shaped after Cloud Logging's httpRequest payload. Request-side fields are
// fixed at construction; status, response size, and latency are each written
// exactly once when the response becomes available. A descriptor is owned
// exclusively by one request's scope and must never be shared across
// requests.
type HTTPRequest struct {
	protocol    string
	method      string
	url         string
	requestSize string
	userAgent   string
	remoteIP    string
	serverIP    string
	referer     string

	mu           sync.Mutex
	observed     bool
	status       int
	responseSize string
	latency      time.Duration
	latencySet   bool
}

// NewHTTPRequest validates params and returns a descriptor. The method must
// be one of GET, POST, PATCH, PUT, DELETE, OPTIONS, HEAD, or CONNECT in any
// case; it is stored normalized to upper case.
func NewHTTPRequest(params HTTPRequestParams) (*HTTPRequest, error) {
	method := strings.ToUpper(params.Method)
	if _, ok := allowedMethods[method]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidMethod, params.Method)
	}
	return &HTTPRequest{
		protocol:    params.Protocol,
		method:      method,
		url:         params.URL,
		requestSize: params.RequestSize,
		userAgent:   params.UserAgent,
		remoteIP:    params.RemoteIP,
		serverIP:    params.ServerIP,
		referer:     params.Referer,
	}, nil
}

// ObserveResponse records the response status and Content-Length header
// value. Only the first call takes effect; it reports whether this call was
// the one that transitioned the descriptor from unset to observed. An empty
// responseSize (streaming responses with no Content-Length) leaves the field
// absent rather than guessing a value.
func (r *HTTPRequest) ObserveResponse(status int, responseSize string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.observed {
		return false
	}
	r.observed = true
	r.status = status
	r.responseSize = responseSize
	return true
}

// SetLatency records the elapsed wall-clock time for the exchange. Later
// calls overwrite earlier ones; the middleware calls it exactly once from
// its finalizer.
func (r *HTTPRequest) SetLatency(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d < 0 {
		d = 0
	}
	r.latency = d
	r.latencySet = true
}

// Method returns the normalized request method.
func (r *HTTPRequest) Method() string { return r.method }

// URL returns the full request URL.
func (r *HTTPRequest) URL() string { return r.url }

// Protocol returns the request protocol, such as "HTTP/1.1".
func (r *HTTPRequest) Protocol() string { return r.protocol }

// RequestSize returns the Content-Length request header value, or "".
func (r *HTTPRequest) RequestSize() string { return r.requestSize }

// UserAgent returns the User-Agent header value, or "".
func (r *HTTPRequest) UserAgent() string { return r.userAgent }

// RemoteIP returns the client IP, or "".
func (r *HTTPRequest) RemoteIP() string { return r.remoteIP }

// ServerIP returns the serving address, or "".
func (r *HTTPRequest) ServerIP() string { return r.serverIP }

// Referer returns the Referer header value, or "".
func (r *HTTPRequest) Referer() string { return r.referer }

// Status returns the observed response status, or 0 when no response signal
// has been captured yet.
func (r *HTTPRequest) Status() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// ResponseSize returns the observed Content-Length response header value, or
// "" when absent or not yet captured.
func (r *HTTPRequest) ResponseSize() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.responseSize
}

// Latency returns the recorded latency and whether it has been set.
func (r *HTTPRequest) Latency() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latency, r.latencySet
}

// FormatLatency renders a duration in the fixed access-log form: seconds to
// five decimal places with a trailing unit, e.g. "0.00421s".
func FormatLatency(d time.Duration) string {
	return fmt.Sprintf("%.5fs", d.Seconds())
}

// httpRequestPayload is the serialized httpRequest object. Field names match
// google.logging.type.HttpRequest's JSON schema.
type httpRequestPayload struct {
	RequestMethod string `json:"requestMethod,omitempty"`
	RequestURL    string `json:"requestUrl,omitempty"`
	RequestSize   string `json:"requestSize,omitempty"`
	UserAgent     string `json:"userAgent,omitempty"`
	RemoteIP      string `json:"remoteIp,omitempty"`
	ServerIP      string `json:"serverIp,omitempty"`
	Referer       string `json:"referer,omitempty"`
	Status        int    `json:"status,omitempty"`
	ResponseSize  string `json:"responseSize,omitempty"`
	Latency       string `json:"latency,omitempty"`
	Protocol      string `json:"protocol,omitempty"`
}

// snapshot freezes the descriptor's current state into its wire form so a
// LogEntry serialized now is unaffected by later mutation.
func (r *HTTPRequest) snapshot() *httpRequestPayload {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	payload := &httpRequestPayload{
		RequestMethod: r.method,
		RequestURL:    r.url,
		RequestSize:   r.requestSize,
		UserAgent:     r.userAgent,
		RemoteIP:      r.remoteIP,
		ServerIP:      r.serverIP,
		Referer:       r.referer,
		Status:        r.status,
		ResponseSize:  r.responseSize,
		Protocol:      r.protocol,
	}
	if r.latencySet {
		payload.Latency = FormatLatency(r.latency)
	}
	return payload
}
