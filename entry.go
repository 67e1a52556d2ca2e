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

// Special payload field names recognized by Cloud Logging when structured
// JSON is written to stdout/stderr on GKE, Cloud Run, and Cloud Functions.
// See https://cloud.google.com/logging/docs/structured-logging.
const (
	// LabelsGroup is the attribute group whose members become entry labels.
	LabelsGroup = "logging.googleapis.com/labels"

	// SpanKey is the field name carrying the hex span ID.
	SpanKey = "logging.googleapis.com/spanId"

	// SourceLocationKey is the field name for source location metadata.
	SourceLocationKey = "logging.googleapis.com/sourceLocation"
)

// SourceLocation mirrors Cloud Logging's LogEntrySourceLocation: the file,
// line, and function of the logging call site.
type SourceLocation struct {
	File     string `json:"file"`
	Line     int64  `json:"line"`
	Function string `json:"function"`
}

// LogEntry is the wire-shaped output record. One LogEntry is produced per
// formatted slog record; it is constructed fresh each time and never mutated
// after serialization. Unset optional fields are omitted from output rather
// than serialized as null.
type LogEntry struct {
	Time           string              `json:"time"`
	Severity       string              `json:"severity"`
	Message        string              `json:"message"`
	HTTPRequest    *httpRequestPayload `json:"httpRequest,omitempty"`
	SpanID         string              `json:"logging.googleapis.com/spanId,omitempty"`
	SourceLocation *SourceLocation     `json:"logging.googleapis.com/sourceLocation,omitempty"`
	Labels         map[string]string   `json:"logging.googleapis.com/labels,omitempty"`
}
