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
	"os"
	"strconv"
	"strings"
	"sync"

	gcppropagator "github.com/GoogleCloudPlatform/opentelemetry-operations-go/propagator"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// disablePropagationEnv suppresses automatic propagator installation when
// set to a value strconv.ParseBool reads as true.
const disablePropagationEnv = "GKELOG_DISABLE_PROPAGATOR_AUTOSET"

var installPropagatorOnce sync.Once

// EnsurePropagation installs the global OpenTelemetry text map propagator
// this package's trace extraction relies on, at most once per process. The
// composite accepts Google Cloud's legacy X-Cloud-Trace-Context header on
// ingress without ever injecting it, and otherwise speaks W3C Trace Context
// plus Baggage.
//
// The middleware and interceptor constructors call it on your behalf.
// Applications remain free to override the global propagator afterwards via
// otel.SetTextMapPropagator, or to suppress installation entirely with the
// GKELOG_DISABLE_PROPAGATOR_AUTOSET environment variable.
func EnsurePropagation() {
	installPropagatorOnce.Do(func() {
		raw := strings.TrimSpace(os.Getenv(disablePropagationEnv))
		if disabled, err := strconv.ParseBool(raw); err == nil && disabled {
			return
		}
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			gcppropagator.CloudTraceOneWayPropagator{},
			propagation.TraceContext{},
			propagation.Baggage{},
		))
	})
}
