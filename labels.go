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

import "log/slog"

// LabelValue is a default-label value configured on a Formatter: either a
// constant string or a function of the record being formatted. Computed
// values are resolved at format time, so a single formatter can stamp
// per-record metadata (goroutine counts, build info, sampling decisions)
// into the lowest-priority label layer.
type LabelValue struct {
	static  string
	compute func(slog.Record) string
}

// Static returns a LabelValue that always resolves to v.
func Static(v string) LabelValue {
	return LabelValue{static: v}
}

// Computed returns a LabelValue resolved by calling fn with the record
// being formatted. A nil fn resolves to "".
func Computed(fn func(slog.Record) string) LabelValue {
	return LabelValue{compute: fn}
}

// resolve evaluates the variant against r.
func (lv LabelValue) resolve(r slog.Record) string {
	if lv.compute != nil {
		return lv.compute(r)
	}
	return lv.static
}

// Label returns an attr that the formatter merges into the entry's label
// set under key, taking precedence over scope and default labels:
//
//	slog.InfoContext(ctx, "picked", gkelog.Label("queue", "fast"))
func Label(key, value string) slog.Attr {
	return slog.Group(LabelsGroup, slog.String(key, value))
}
