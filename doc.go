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

// Package gkelog formats log/slog records into Google Cloud Logging's
// structured JSON schema and enriches them with ambient, request-scoped
// context.
//
// The package has three pieces:
//
//   - A scope API ([WithScope], [ForkScope], [SetLabels], [SetUserID],
//     [SetSpanID], [SetHTTPRequest] and their readers) that carries
//     execution-scoped metadata on a context.Context so call sites never
//     thread logging parameters explicitly.
//   - A [Formatter] that turns one slog.Record plus the ambient scope into
//     one serialized LogEntry, and a [Handler] that registers the formatter
//     with log/slog.
//   - The [HTTPRequest] descriptor shared between handlers and the
//     access-logging middleware in the gkeloghttp subpackage.
//
// A minimal setup:
//
//	logger := slog.New(gkelog.NewHandler(os.Stdout))
//	slog.SetDefault(logger)
//
//	mux := http.NewServeMux()
//	handler := gkeloghttp.Middleware(gkeloghttp.WithLogger(logger))(mux)
//	http.ListenAndServe(":8080", handler)
//
// Inside a request, ambient values set once are merged into every log line
// emitted during that request:
//
//	gkelog.SetUserID(r.Context(), "user-123")
//	gkelog.AddLabel(r.Context(), "tenant", "acme")
//	slog.InfoContext(r.Context(), "order placed")
//
// Scopes are isolated per logical execution. Code that fans out work must
// fork the scope at the concurrency boundary so children start from a
// snapshot of the parent's values without being able to mutate them:
//
//	go func(ctx context.Context) {
//		gkelog.AddLabel(ctx, "worker", "1") // invisible to parent and siblings
//		...
//	}(gkelog.ForkScope(ctx))
package gkelog
