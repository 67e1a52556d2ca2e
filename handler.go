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
	"io"
	"log/slog"
	"maps"
	"strings"
	"sync"
)

// Handler is the slog registration hook: an slog.Handler that formats each
// record through a Formatter and writes one JSON line per record to its
// writer. Concurrent Handle calls serialize writes with a shared mutex, so
// lines never interleave.
type Handler struct {
	mu        *sync.Mutex
	writer    io.Writer
	leveler   slog.Leveler
	formatter *Formatter

	// boundLabels holds labels accumulated via WithAttrs; they override
	// scope labels and are overridden by the record's own attrs.
	boundLabels map[string]string
	groups      []string
}

// NewHandler returns a Handler writing to w. With no options it logs at
// LevelInfo and configures no default labels.
func NewHandler(w io.Writer, opts ...Option) *Handler {
	cfg := applyOptions(opts)
	return &Handler{
		mu:        &sync.Mutex{},
		writer:    w,
		leveler:   cfg.leveler,
		formatter: NewFormatter(cfg.defaultLabels),
	}
}

// Enabled reports whether level is enabled for emission.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	min := slog.LevelInfo
	if h.leveler != nil {
		min = h.leveler.Level()
	}
	return level >= min
}

// Handle formats r as a LogEntry enriched from the scope in ctx and writes
// it. It returns ErrUnmappedLevel-wrapped errors for levels outside the
// severity enumeration; records missing optional context never fail.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	entry, err := h.formatter.buildEntry(ctx, r, h.boundLabels, labelPrefix(h.groups))
	if err != nil {
		return err
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
		return err
	}

	h.mu.Lock()
	_, err = h.writer.Write(buf.Bytes())
	h.mu.Unlock()
	return err
}

// WithAttrs returns a handler whose future records carry attrs as
// additional labels. Attr values are resolved immediately; group structure
// follows the same dotted-key flattening the formatter applies to record
// attrs.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	bound := maps.Clone(h.boundLabels)
	if bound == nil {
		bound = make(map[string]string, len(attrs))
	}
	prefix := labelPrefix(h.groups)
	for _, attr := range attrs {
		collectAttrLabels(bound, prefix, attr)
	}
	return h.clone(bound, h.groups)
}

// WithGroup nests subsequent attr keys under name, qualifying both bound
// and per-record attrs. Opening the labels group resets qualification:
// WithGroup(LabelsGroup) makes subsequent keys land bare, matching how the
// formatter treats grouped record attrs.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	groups := append(append([]string(nil), h.groups...), name)
	return h.clone(h.boundLabels, groups)
}

// clone copies the handler with replacement bound labels and groups,
// sharing the writer, mutex, leveler, and formatter.
func (h *Handler) clone(bound map[string]string, groups []string) *Handler {
	return &Handler{
		mu:          h.mu,
		writer:      h.writer,
		leveler:     h.leveler,
		formatter:   h.formatter,
		boundLabels: bound,
		groups:      groups,
	}
}

// labelPrefix joins group names with ".". The labels group resets the
// accumulated path, mirroring collectAttrLabels.
func labelPrefix(groups []string) string {
	if len(groups) == 0 {
		return ""
	}
	kept := make([]string, 0, len(groups))
	for _, g := range groups {
		if g == LabelsGroup {
			kept = kept[:0]
			continue
		}
		kept = append(kept, g)
	}
	return strings.Join(kept, ".")
}
