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
	"context"
	"log/slog"
	"net"
	"runtime"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"

	"github.com/gkelog/gkelog"
)

// UnaryServerInterceptor returns an interceptor that forks a gkelog scope
// per unary RPC, records peer and trace metadata in it, and emits one
// completion entry after the handler returns. Handler errors are returned
// unchanged.
func UnaryServerInterceptor(opts ...Option) grpc.UnaryServerInterceptor {
	cfg := applyOptions(opts)
	gkelog.EnsurePropagation()

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		ctx = populateScope(ctx, cfg, info.FullMethod, "unary")

		var requestSize, responseSize int64 = -1, -1
		if cfg.includeSizes {
			requestSize = protoSize(req)
		}

		resp, err := handler(ctx, req)

		if cfg.includeSizes && err == nil {
			responseSize = protoSize(resp)
		}
		emitCompletion(ctx, cfg, info.FullMethod, status.Code(err), requestSize, responseSize, start)
		return resp, err
	}
}

// StreamServerInterceptor returns the streaming counterpart of
// UnaryServerInterceptor. Message sizes are not measured for streams.
func StreamServerInterceptor(opts ...Option) grpc.StreamServerInterceptor {
	cfg := applyOptions(opts)
	gkelog.EnsurePropagation()

	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		ctx := populateScope(ss.Context(), cfg, info.FullMethod, streamKind(info))

		err := handler(srv, &serverStream{ServerStream: ss, ctx: ctx})
		emitCompletion(ctx, cfg, info.FullMethod, status.Code(err), -1, -1, start)
		return err
	}
}

// populateScope forks the ambient scope for one RPC and fills it with
// method, kind, peer, span, and user metadata.
func populateScope(ctx context.Context, cfg *config, fullMethod, kind string) context.Context {
	ctx = gkelog.ForkScope(ctx)
	gkelog.AddLabel(ctx, "rpc.method", fullMethod)
	gkelog.AddLabel(ctx, "rpc.kind", kind)

	if cfg.includePeer {
		if addr := peerAddress(ctx); addr != "" {
			gkelog.AddLabel(ctx, "rpc.peer", addr)
		}
	}

	md, _ := metadata.FromIncomingContext(ctx)
	ctx = extractTrace(ctx, md, cfg)

	if cfg.userIDKey != "" {
		if values := md.Get(cfg.userIDKey); len(values) > 0 {
			gkelog.SetUserID(ctx, values[0])
		}
	}
	return ctx
}

// extractTrace records the call's span ID in the scope, extracting remote
// trace context from metadata when the context carries none yet.
func extractTrace(ctx context.Context, md metadata.MD, cfg *config) context.Context {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() && md != nil {
		propagator := cfg.propagators
		if propagator == nil && !cfg.propagatorsSet {
			propagator = otel.GetTextMapPropagator()
		}
		if propagator != nil {
			extracted := propagator.Extract(ctx, metadataCarrier(md))
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

// emitCompletion writes the single completion entry for one RPC, using the
// call start time as the record timestamp.
func emitCompletion(ctx context.Context, cfg *config, fullMethod string, code codes.Code, requestSize, responseSize int64, start time.Time) {
	level := cfg.levelFunc(code)
	logger := cfg.logger
	if logger == nil || !logger.Enabled(ctx, level) {
		return
	}

	var pcs [1]uintptr
	runtime.Callers(2, pcs[:])
	rec := slog.NewRecord(start, level, fullMethod, pcs[0])
	rec.AddAttrs(
		gkelog.Label("rpc.code", code.String()),
		gkelog.Label("rpc.latency", gkelog.FormatLatency(time.Since(start))),
	)
	if requestSize >= 0 {
		rec.AddAttrs(gkelog.Label("rpc.request_size", strconv.FormatInt(requestSize, 10)))
	}
	if responseSize >= 0 {
		rec.AddAttrs(gkelog.Label("rpc.response_size", strconv.FormatInt(responseSize, 10)))
	}
	_ = logger.Handler().Handle(ctx, rec)
}

// protoSize reports the serialized size of a proto message, or -1 for
// non-proto payloads.
func protoSize(msg any) int64 {
	if m, ok := msg.(proto.Message); ok {
		return int64(proto.Size(m))
	}
	return -1
}

// peerAddress returns the remote address of the call, without the port.
func peerAddress(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// streamKind names the stream shape for the rpc.kind label.
func streamKind(info *grpc.StreamServerInfo) string {
	switch {
	case info.IsClientStream && info.IsServerStream:
		return "bidi_stream"
	case info.IsClientStream:
		return "client_stream"
	case info.IsServerStream:
		return "server_stream"
	default:
		return "stream"
	}
}

// serverStream overrides Context so downstream handlers observe the forked
// scope.
type serverStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the scope-carrying context installed by the interceptor.
func (ss *serverStream) Context() context.Context {
	return ss.ctx
}

// metadataCarrier adapts metadata.MD to propagation.TextMapCarrier for
// extraction.
type metadataCarrier metadata.MD

// Get returns the first value for key.
func (mc metadataCarrier) Get(key string) string {
	values := metadata.MD(mc).Get(key)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// Set stores a single value for key.
func (mc metadataCarrier) Set(key, value string) {
	metadata.MD(mc).Set(key, value)
}

// Keys lists the carrier's keys.
func (mc metadataCarrier) Keys() []string {
	keys := make([]string, 0, len(mc))
	for k := range mc {
		keys = append(keys, k)
	}
	return keys
}
