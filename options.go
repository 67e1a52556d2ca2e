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

// Option configures a Handler.
type Option func(*config)

type config struct {
	leveler       slog.Leveler
	defaultLabels map[string]LabelValue
}

// defaultConfig returns the baseline handler configuration.
func defaultConfig() *config {
	return &config{leveler: slog.LevelInfo}
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

// WithLevel sets the minimum level for emission. When nil, LevelInfo is
// used.
func WithLevel(leveler slog.Leveler) Option {
	return func(cfg *config) {
		if leveler == nil {
			cfg.leveler = slog.LevelInfo
			return
		}
		cfg.leveler = leveler
	}
}

// WithDefaultLabel adds one default label, static or computed, to the
// formatter's lowest-priority label layer.
func WithDefaultLabel(key string, value LabelValue) Option {
	return func(cfg *config) {
		if cfg.defaultLabels == nil {
			cfg.defaultLabels = make(map[string]LabelValue, 4)
		}
		cfg.defaultLabels[key] = value
	}
}

// WithDefaultLabels adds a set of default labels. Later options overwrite
// earlier ones on key collision.
func WithDefaultLabels(labels map[string]LabelValue) Option {
	return func(cfg *config) {
		if len(labels) == 0 {
			return
		}
		if cfg.defaultLabels == nil {
			cfg.defaultLabels = make(map[string]LabelValue, len(labels))
		}
		for k, v := range labels {
			cfg.defaultLabels[k] = v
		}
	}
}

// WithRuntimeLabels merges labels detected from the runtime environment
// (Cloud Run service/revision, GKE cluster, and similar) into the default
// label layer. Detection runs once per process; see DetectRuntimeInfo.
func WithRuntimeLabels() Option {
	return func(cfg *config) {
		info := DetectRuntimeInfo()
		if len(info.Labels) == 0 {
			return
		}
		if cfg.defaultLabels == nil {
			cfg.defaultLabels = make(map[string]LabelValue, len(info.Labels))
		}
		for k, v := range info.Labels {
			cfg.defaultLabels[k] = Static(v)
		}
	}
}
