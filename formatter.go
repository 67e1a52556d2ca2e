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
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
)

var jsonBufferPool = sync.Pool{
	New: func() any {
		return new(bytes.Buffer)
	},
}

// Formatter converts one slog.Record plus the ambient scope carried by a
// context into one serialized LogEntry. Formatting is a pure function of
// (record, scope, configuration): it performs no I/O beyond reading the
// scope and fails only when the record level maps to no severity.
type Formatter struct {
	defaultLabels map[string]LabelValue
	now           func() time.Time
}

// NewFormatter returns a Formatter with the given default labels. Default
// labels form the lowest-priority label layer, overridden by scope labels
// and per-record attrs on key collision.
func NewFormatter(defaultLabels map[string]LabelValue) *Formatter {
	f := &Formatter{now: time.Now}
	if len(defaultLabels) > 0 {
		f.defaultLabels = make(map[string]LabelValue, len(defaultLabels))
		for k, v := range defaultLabels {
			f.defaultLabels[k] = v
		}
	}
	return f
}

// Format serializes r as a Cloud Logging LogEntry enriched from the scope in
// ctx. The returned slice is newline-terminated and owned by the caller.
func (f *Formatter) Format(ctx context.Context, r slog.Record) ([]byte, error) {
	entry, err := f.buildEntry(ctx, r, nil, "")
	if err != nil {
		return nil, err
	}

	buf := jsonBufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		jsonBufferPool.Put(buf)
	}()

	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(entry); err != nil {
		return nil, err
	}
	return append([]byte(nil), buf.Bytes()...), nil
}

// buildEntry assembles the LogEntry for r. boundLabels holds labels derived
// from handler-bound attrs (logger.With); they sit between scope labels and
// the record's own attrs in precedence. attrPrefix is the dotted path of the
// handler's open groups and qualifies the record's own attrs.
func (f *Formatter) buildEntry(ctx context.Context, r slog.Record, boundLabels map[string]string, attrPrefix string) (*LogEntry, error) {
	severity, err := severityName(r.Level)
	if err != nil {
		return nil, err
	}

	ts := r.Time
	if ts.IsZero() {
		ts = f.now()
	}

	entry := &LogEntry{
		Time:           ts.UTC().Format(time.RFC3339Nano),
		Severity:       severity,
		Message:        r.Message,
		HTTPRequest:    HTTPRequestFromContext(ctx).snapshot(),
		SpanID:         f.resolveSpanID(ctx),
		SourceLocation: resolveSourceLocation(r),
		Labels:         f.mergeLabels(ctx, r, boundLabels, attrPrefix),
	}
	return entry, nil
}

// resolveSpanID prefers the scope's span ID and falls back to any sampled or
// unsampled OpenTelemetry span context already carried by ctx.
func (f *Formatter) resolveSpanID(ctx context.Context) string {
	if id := SpanIDFromContext(ctx); id != "" {
		return id
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.SpanID().String()
	}
	return ""
}

// mergeLabels flattens the three label layers, each overriding keys from the
// previous: formatter defaults, scope labels, then per-record attrs (with
// handler-bound attrs applied just before the record's own). Record attrs
// are qualified by attrPrefix, the handler's open-group path.
func (f *Formatter) mergeLabels(ctx context.Context, r slog.Record, boundLabels map[string]string, attrPrefix string) map[string]string {
	labels := make(map[string]string, len(f.defaultLabels)+len(boundLabels)+int(r.NumAttrs()))

	for k, v := range f.defaultLabels {
		labels[k] = v.resolve(r)
	}
	for k, v := range LabelsFromContext(ctx) {
		labels[k] = v
	}
	for k, v := range boundLabels {
		labels[k] = v
	}
	r.Attrs(func(attr slog.Attr) bool {
		collectAttrLabels(labels, attrPrefix, attr)
		return true
	})

	if len(labels) == 0 {
		return nil
	}
	return labels
}

// collectAttrLabels folds one attr into the label map. Attrs inside the
// logging.googleapis.com/labels group contribute their bare key; any other
// attr contributes its dotted-group-qualified key so per-call data is never
// silently dropped. Empty attrs are skipped per slog convention.
func collectAttrLabels(labels map[string]string, prefix string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()

	if attr.Value.Kind() == slog.KindGroup {
		next := prefix
		switch attr.Key {
		case LabelsGroup:
			// The labels group resets qualification: Label attrs land on
			// their bare keys wherever they were built.
			next = ""
		case "":
			// Inlined group: children keep the current prefix.
		default:
			if next == "" {
				next = attr.Key
			} else {
				next = next + "." + attr.Key
			}
		}
		for _, child := range attr.Value.Group() {
			collectAttrLabels(labels, next, child)
		}
		return
	}

	if attr.Key == "" {
		return
	}
	key := attr.Key
	if prefix != "" {
		key = prefix + "." + key
	}
	labels[key] = attr.Value.String()
}

// resolveSourceLocation reports the logging call site recorded in r, or nil
// when the record carries no program counter.
func resolveSourceLocation(r slog.Record) *SourceLocation {
	if r.PC == 0 {
		return nil
	}
	frames := runtime.CallersFrames([]uintptr{r.PC})
	frame, _ := frames.Next()
	if frame.File == "" && frame.Function == "" {
		return nil
	}
	return &SourceLocation{
		File:     frame.File,
		Line:     int64(frame.Line),
		Function: frame.Function,
	}
}
