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

	"go.opentelemetry.io/otel/propagation"
)

// Option configures the middleware.
type Option func(*config)

type config struct {
	logger         *slog.Logger
	messageFormat  string
	enableOTel     bool
	propagators    propagation.TextMapPropagator
	propagatorsSet bool
	serverIP       string
}

// defaultConfig returns the baseline middleware configuration.
func defaultConfig() *config {
	return &config{
		logger:        slog.Default(),
		messageFormat: CombinedLogFormat,
		enableOTel:    true,
	}
}

// applyOptions applies the provided options on top of defaultConfig.
func applyOptions(opts []Option) *config {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// WithLogger sets the access logger. When nil, slog.Default() is used. The
// logger's handler should be a gkelog.Handler so access entries carry the
// scope's httpRequest payload.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger == nil {
			cfg.logger = slog.Default()
			return
		}
		cfg.logger = logger
	}
}

// WithMessageFormat overrides the access-log message template. The template
// uses the named placeholders of CombinedLogFormat; unknown placeholders
// pass through untouched.
func WithMessageFormat(format string) Option {
	return func(cfg *config) {
		if format == "" {
			cfg.messageFormat = CombinedLogFormat
			return
		}
		cfg.messageFormat = format
	}
}

// WithOTel toggles wrapping the middleware chain in otelhttp
// instrumentation. Enabled by default; with no tracer provider registered
// the wrapper is inert.
func WithOTel(enabled bool) Option {
	return func(cfg *config) {
		cfg.enableOTel = enabled
	}
}

// WithPropagators supplies the TextMapPropagator used to extract trace
// context from request headers. When omitted, the global otel propagator is
// used (gkelog.EnsurePropagation installs one that understands
// X-Cloud-Trace-Context).
func WithPropagators(p propagation.TextMapPropagator) Option {
	return func(cfg *config) {
		cfg.propagators = p
		cfg.propagatorsSet = true
	}
}

// WithServerIP overrides the serving address recorded on each descriptor.
// When unset, the middleware reads the local address from the connection
// context.
func WithServerIP(ip string) Option {
	return func(cfg *config) {
		cfg.serverIP = ip
	}
}
