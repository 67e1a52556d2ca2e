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

package gkeloggrpc

import (
	"log/slog"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel/propagation"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/stats"
)

// CodeToLevel maps a gRPC status code to the level of the completion log
// entry.
type CodeToLevel func(code codes.Code) slog.Level

// Option configures the interceptors.
type Option func(*config)

type config struct {
	logger         *slog.Logger
	levelFunc      CodeToLevel
	propagators    propagation.TextMapPropagator
	propagatorsSet bool
	includePeer    bool
	includeSizes   bool
	userIDKey      string
}

// defaultConfig returns the baseline interceptor configuration.
func defaultConfig() *config {
	return &config{
		logger:       slog.Default(),
		levelFunc:    DefaultCodeToLevel,
		includePeer:  true,
		includeSizes: true,
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

// WithLogger sets the completion logger. When nil, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger == nil {
			cfg.logger = slog.Default()
			return
		}
		cfg.logger = logger
	}
}

// WithLevels overrides the status-code-to-level mapping. A nil f restores
// DefaultCodeToLevel.
func WithLevels(f CodeToLevel) Option {
	return func(cfg *config) {
		if f == nil {
			cfg.levelFunc = DefaultCodeToLevel
			return
		}
		cfg.levelFunc = f
	}
}

// WithPropagators supplies the TextMapPropagator used to extract trace
// context from incoming metadata. When omitted, the global otel propagator
// is used.
func WithPropagators(p propagation.TextMapPropagator) Option {
	return func(cfg *config) {
		cfg.propagators = p
		cfg.propagatorsSet = true
	}
}

// WithPeer toggles recording the peer address as a scope label. Enabled by
// default.
func WithPeer(enabled bool) Option {
	return func(cfg *config) {
		cfg.includePeer = enabled
	}
}

// WithSizes toggles measuring proto message sizes on unary calls. Enabled
// by default.
func WithSizes(enabled bool) Option {
	return func(cfg *config) {
		cfg.includeSizes = enabled
	}
}

// WithUserIDMetadataKey names an incoming metadata key whose first value is
// recorded as the scope's user ID. Disabled when empty.
func WithUserIDMetadataKey(key string) Option {
	return func(cfg *config) {
		cfg.userIDKey = key
	}
}

// DefaultCodeToLevel maps gRPC status codes onto log levels: successes and
// cancellations are informational, client and precondition errors warn, and
// server failures are errors.
func DefaultCodeToLevel(code codes.Code) slog.Level {
	switch code {
	case codes.OK, codes.Canceled:
		return slog.LevelInfo
	case codes.InvalidArgument, codes.NotFound, codes.AlreadyExists,
		codes.Unauthenticated, codes.PermissionDenied:
		return slog.LevelWarn
	case codes.DeadlineExceeded, codes.ResourceExhausted, codes.FailedPrecondition,
		codes.Aborted, codes.OutOfRange, codes.Unavailable:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// StatsHandler returns an otelgrpc stats handler suitable for
// grpc.StatsHandler, giving servers span creation that the interceptors'
// trace extraction can then surface in log entries.
func StatsHandler() stats.Handler {
	return otelgrpc.NewServerHandler()
}
