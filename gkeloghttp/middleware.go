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
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"runtime"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/gkelog/gkelog"
)

const instrumentationName = "github.com/gkelog/gkelog/gkeloghttp"

// Middleware returns an http.Handler middleware that installs a per-request
// gkelog scope, captures response metadata, and writes one access-log entry
// per exchange. Request state advances along a single path: descriptor
// built, scope populated, downstream invoked, response observed, access log
// written.
func Middleware(opts ...Option) func(http.Handler) http.Handler {
	cfg := applyOptions(opts)
	gkelog.EnsurePropagation()

	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		handler := buildLoggingHandler(cfg, next)
		return wrapWithOTel(cfg, handler)
	}
}

// buildLoggingHandler constructs the logging middleware around next.
func buildLoggingHandler(cfg *config, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := gkelog.WithScope(r.Context())

		desc, err := RequestDescriptor(r, cfg.serverIP)
		if err != nil {
			// Construction failed before the descriptor could enter the
			// scope; the request is unprocessable.
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		gkelog.SetHTTPRequest(ctx, desc)
		ctx = extractTrace(ctx, r, cfg)
		r = r.WithContext(ctx)

		wrapped := &responseRecorder{ResponseWriter: w, request: desc}

		defer func() {
			if p := recover(); p != nil {
				// Uncaught failure downstream: annotate logging state,
				// emit the access entry, and re-raise unchanged.
				desc.ObserveResponse(http.StatusInternalServerError, "")
				emitAccessLog(ctx, cfg, desc, start)
				panic(p)
			}
			emitAccessLog(ctx, cfg, desc, start)
		}()

		next.ServeHTTP(wrapped, r)
	})
}

// RequestDescriptor builds an HTTPRequest descriptor from request metadata.
// The serving address comes from serverIP when non-empty, otherwise from the
// connection's local address. Construction fails only for methods outside
// the fixed allowed set.
func RequestDescriptor(r *http.Request, serverIP string) (*gkelog.HTTPRequest, error) {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if serverIP == "" {
		serverIP = localAddrIP(r)
	}
	return gkelog.NewHTTPRequest(gkelog.HTTPRequestParams{
		Protocol:    r.Proto,
		Method:      r.Method,
		URL:         scheme + "://" + r.Host + r.URL.RequestURI(),
		RequestSize: r.Header.Get("Content-Length"),
		UserAgent:   r.UserAgent(),
		RemoteIP:    extractIP(r.RemoteAddr),
		ServerIP:    serverIP,
		Referer:     r.Referer(),
	})
}

// extractTrace records the request's span ID in the scope, extracting remote
// trace context through the configured propagator when the context carries
// none yet (otelhttp, when enabled, extracts before this handler runs).
func extractTrace(ctx context.Context, r *http.Request, cfg *config) context.Context {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		propagator := cfg.propagators
		if propagator == nil && !cfg.propagatorsSet {
			propagator = otel.GetTextMapPropagator()
		}
		if propagator != nil {
			extracted := propagator.Extract(ctx, propagation.HeaderCarrier(r.Header))
			if esc := trace.SpanContextFromContext(extracted); esc.IsValid() {
				ctx = extracted
				sc = esc
			}
		}
	}
	if sc.IsValid() {
		gkelog.SetSpanID(ctx, sc.SpanID().String())
	}
	return ctx
}

// emitAccessLog finalizes the descriptor's latency and writes the single
// access-log entry for the exchange, using the request start time as the
// record timestamp.
func emitAccessLog(ctx context.Context, cfg *config, desc *gkelog.HTTPRequest, start time.Time) {
	desc.SetLatency(time.Since(start))

	level := LevelForStatus(desc.Status())
	logger := cfg.logger
	if logger == nil || !logger.Enabled(ctx, level) {
		return
	}

	line := RenderAccessLog(cfg.messageFormat, start, desc, gkelog.UserIDFromContext(ctx))

	var pcs [1]uintptr
	runtime.Callers(2, pcs[:])
	rec := slog.NewRecord(start, level, line, pcs[0])
	_ = logger.Handler().Handle(ctx, rec)
}

// wrapWithOTel wraps handler with otelhttp instrumentation when enabled.
func wrapWithOTel(cfg *config, handler http.Handler) http.Handler {
	if !cfg.enableOTel {
		return handler
	}
	return otelhttp.NewHandler(handler, instrumentationName)
}

// localAddrIP reads the serving address placed in the request context by
// net/http, or "" when absent.
func localAddrIP(r *http.Request) string {
	addr, ok := r.Context().Value(http.LocalAddrContextKey).(net.Addr)
	if !ok || addr == nil {
		return ""
	}
	return extractIP(addr.String())
}

// extractIP strips the port from a host:port string.
func extractIP(addr string) string {
	if addr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// responseRecorder captures the first response-start signal onto the
// request descriptor exactly once: the status code and the Content-Length
// response header as set at header-write time. Later signals are ignored by
// the descriptor's observed-state tag.
type responseRecorder struct {
	http.ResponseWriter
	request     *gkelog.HTTPRequest
	wroteHeader bool
}

// WriteHeader observes the response before delegating to the wrapped writer.
func (rr *responseRecorder) WriteHeader(status int) {
	if !rr.wroteHeader {
		rr.wroteHeader = true
		rr.request.ObserveResponse(status, rr.Header().Get("Content-Length"))
	}
	rr.ResponseWriter.WriteHeader(status)
}

// Write triggers the implicit 200 observation before forwarding the body.
func (rr *responseRecorder) Write(p []byte) (int, error) {
	if !rr.wroteHeader {
		rr.WriteHeader(http.StatusOK)
	}
	n, err := rr.ResponseWriter.Write(p)
	if err != nil {
		return n, fmt.Errorf("write response body: %w", err)
	}
	return n, nil
}

// ReadFrom streams data from src through the wrapped writer.
func (rr *responseRecorder) ReadFrom(src io.Reader) (int64, error) {
	if !rr.wroteHeader {
		rr.WriteHeader(http.StatusOK)
	}
	if rf, ok := rr.ResponseWriter.(io.ReaderFrom); ok {
		n, err := rf.ReadFrom(src)
		if err != nil {
			return n, fmt.Errorf("read from body: %w", err)
		}
		return n, nil
	}
	n, err := io.Copy(rr.ResponseWriter, src)
	if err != nil {
		return n, fmt.Errorf("copy response body: %w", err)
	}
	return n, nil
}

// Unwrap exposes the underlying ResponseWriter for http.ResponseController.
func (rr *responseRecorder) Unwrap() http.ResponseWriter {
	return rr.ResponseWriter
}

// Flush forwards the flush request when the underlying writer supports it.
func (rr *responseRecorder) Flush() {
	if flusher, ok := rr.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Hijack delegates to the wrapped Hijacker when supported.
func (rr *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := rr.ResponseWriter.(http.Hijacker); ok {
		conn, rw, err := hijacker.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, rw, nil
	}
	return nil, nil, http.ErrNotSupported
}

// Push forwards HTTP/2 push requests when supported.
func (rr *responseRecorder) Push(target string, opts *http.PushOptions) error {
	if pusher, ok := rr.ResponseWriter.(http.Pusher); ok {
		if err := pusher.Push(target, opts); err != nil {
			return fmt.Errorf("http/2 push: %w", err)
		}
		return nil
	}
	return http.ErrNotSupported
}
