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
	"context"
	"maps"
	"sync"
)

type contextKey int

const (
	scopeContextKey contextKey = iota
)

// scope holds the ambient values for one logical execution: a request, a
// job run, or a concurrent task. A scope is exclusive to its execution;
// cross-scope access is never possible through the package API. The mutex
// covers the handler goroutine and any response callback the host runs on
// its behalf.
type scope struct {
	mu      sync.RWMutex
	labels  map[string]string
	userID  string
	spanID  string
	request *HTTPRequest
}

// snapshot copies the scope's current values into a fresh scope. The labels
// map is copied so child writes cannot leak back; the HTTPRequest reference
// is shared deliberately, since descriptor mutation must stay visible to
// whichever scope emits the access log.
func (s *scope) snapshot() *scope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	child := &scope{
		userID:  s.userID,
		spanID:  s.spanID,
		request: s.request,
	}
	if len(s.labels) > 0 {
		child.labels = maps.Clone(s.labels)
	}
	return child
}

// scopeFromContext returns the scope installed in ctx, or nil.
func scopeFromContext(ctx context.Context) *scope {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(scopeContextKey).(*scope)
	return s
}

// WithScope returns a child context carrying a fresh, empty scope. Call it
// once at each execution boundary (request entry, job start). Values set in
// the new scope are invisible to the parent and to siblings.
func WithScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, scopeContextKey, &scope{})
}

// ForkScope returns a child context whose scope starts as a copy-on-spawn
// snapshot of the current one. Children see values present at fork time and
// may overwrite them locally; their writes never affect the parent or
// siblings. Call it at every concurrency boundary that should inherit
// context. When ctx carries no scope, ForkScope behaves like WithScope.
func ForkScope(ctx context.Context) context.Context {
	s := scopeFromContext(ctx)
	if s == nil {
		return WithScope(ctx)
	}
	return context.WithValue(ctx, scopeContextKey, s.snapshot())
}

// SetLabels replaces the entire label set for the current scope. Without an
// installed scope the call is a no-op.
func SetLabels(ctx context.Context, labels map[string]string) {
	s := scopeFromContext(ctx)
	if s == nil {
		return
	}
	s.mu.Lock()
	s.labels = maps.Clone(labels)
	s.mu.Unlock()
}

// AddLabel inserts or overwrites a single label in the current scope,
// creating the label set if none exists yet.
func AddLabel(ctx context.Context, key, value string) {
	s := scopeFromContext(ctx)
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.labels == nil {
		s.labels = make(map[string]string, 4)
	}
	s.labels[key] = value
	s.mu.Unlock()
}

// LabelsFromContext returns a copy of the current scope's labels. It never
// fails; absence yields an empty map.
func LabelsFromContext(ctx context.Context) map[string]string {
	s := scopeFromContext(ctx)
	if s == nil {
		return map[string]string{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.labels) == 0 {
		return map[string]string{}
	}
	return maps.Clone(s.labels)
}

// SetUserID records the user ID for the current scope.
func SetUserID(ctx context.Context, id string) {
	s := scopeFromContext(ctx)
	if s == nil {
		return
	}
	s.mu.Lock()
	s.userID = id
	s.mu.Unlock()
}

// UserIDFromContext returns the current scope's user ID, or "".
func UserIDFromContext(ctx context.Context) string {
	s := scopeFromContext(ctx)
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// SetSpanID records the span ID for the current scope.
func SetSpanID(ctx context.Context, id string) {
	s := scopeFromContext(ctx)
	if s == nil {
		return
	}
	s.mu.Lock()
	s.spanID = id
	s.mu.Unlock()
}

// SpanIDFromContext returns the current scope's span ID, or "".
func SpanIDFromContext(ctx context.Context) string {
	s := scopeFromContext(ctx)
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spanID
}

// SetHTTPRequest stores the request descriptor for the current scope. The
// reference is stored as-is, so later mutation of the descriptor (the
// response interceptor observing a status) is visible to any later reader
// in the same scope.
func SetHTTPRequest(ctx context.Context, req *HTTPRequest) {
	s := scopeFromContext(ctx)
	if s == nil {
		return
	}
	s.mu.Lock()
	s.request = req
	s.mu.Unlock()
}

// HTTPRequestFromContext returns the current scope's request descriptor, or
// nil when none has been stored.
func HTTPRequestFromContext(ctx context.Context) *HTTPRequest {
	s := scopeFromContext(ctx)
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.request
}
