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
	"log/slog"
)

// Level represents the severity of a log event, extending slog.Level to
// cover the full Google Cloud Logging severity enumeration. It maintains the
// underlying integer representation compatible with slog.Level.
type Level slog.Level

// Constants for Cloud Logging severities, mapped onto slog.Level integer
// values. The values preserve slog's ordering and spacing so the standard
// levels keep their usual numbers.
const (
	// LevelDefault maps to DEFAULT. Lower than Debug.
	LevelDefault Level = -8

	// LevelDebug maps to DEBUG. Standard slog level.
	LevelDebug Level = Level(slog.LevelDebug) // -4

	// LevelInfo maps to INFO. Standard slog level and the handler default.
	LevelInfo Level = Level(slog.LevelInfo) // 0

	// LevelNotice maps to NOTICE. Between Info and Warn.
	LevelNotice Level = 2

	// LevelWarn maps to WARNING. Standard slog level.
	LevelWarn Level = Level(slog.LevelWarn) // 4

	// LevelError maps to ERROR. Standard slog level.
	LevelError Level = Level(slog.LevelError) // 8

	// LevelCritical maps to CRITICAL. Above Error.
	LevelCritical Level = 12

	// LevelAlert maps to ALERT. Above Critical.
	LevelAlert Level = 16

	// LevelEmergency maps to EMERGENCY. Highest severity.
	LevelEmergency Level = 20
)

// ErrUnmappedLevel reports a record level that does not correspond to any
// Cloud Logging severity. The formatter never invents severities; callers
// must log at one of the defined Level constants.
var ErrUnmappedLevel = errors.New("gkelog: level has no mapped severity")

// Level returns the underlying slog.Level value, satisfying slog.Leveler so
// a gkelog.Level can be used anywhere slog accepts a level.
func (l Level) Level() slog.Level {
	return slog.Level(l)
}

// String returns the canonical Cloud Logging severity name for defined
// levels, and the slog representation otherwise.
func (l Level) String() string {
	if name, err := severityName(slog.Level(l)); err == nil {
		return name
	}
	return slog.Level(l).String()
}

// severityName maps a record level onto its Cloud Logging severity string.
// The match is exact; intermediate levels are a configuration error the
// caller must avoid.
func severityName(level slog.Level) (string, error) {
	switch Level(level) {
	case LevelDefault:
		return "DEFAULT", nil
	case LevelDebug:
		return "DEBUG", nil
	case LevelInfo:
		return "INFO", nil
	case LevelNotice:
		return "NOTICE", nil
	case LevelWarn:
		return "WARNING", nil
	case LevelError:
		return "ERROR", nil
	case LevelCritical:
		return "CRITICAL", nil
	case LevelAlert:
		return "ALERT", nil
	case LevelEmergency:
		return "EMERGENCY", nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnmappedLevel, slog.Level(level).String())
}
