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

// Package gkeloghttp provides net/http middleware that instruments each
// request/response exchange for structured access logging without requiring
// handler code to know about logging.
//
// Per request, the middleware installs a fresh gkelog scope, stores an
// HTTPRequest descriptor in it, invokes the downstream handler with a
// response-capturing writer, and emits exactly one combined-format access
// log entry when the exchange finishes, whether it finished normally, by
// panic, or by cancellation. The access entry is always the last log line
// emitted for a request.
//
//	mux := http.NewServeMux()
//	handler := gkeloghttp.Middleware(
//		gkeloghttp.WithLogger(logger),
//	)(mux)
package gkeloghttp
