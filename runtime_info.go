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
	"os"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/compute/metadata"
)

// RuntimeInfo captures metadata about the current Google Cloud environment:
// a project ID and platform-specific labels suitable for the formatter's
// default label layer.
type RuntimeInfo struct {
	ProjectID string
	Labels    map[string]string
}

var (
	runtimeInfo     RuntimeInfo
	runtimeInfoOnce sync.Once
)

// metadataTimeout bounds the metadata server round trip during detection so
// startup off GCP never blocks on an unreachable endpoint.
const metadataTimeout = 2 * time.Second

// DetectRuntimeInfo inspects well-known environment variables, falling back
// to the GCE metadata server for the project ID, to infer platform labels.
// Results are cached for the life of the process.
func DetectRuntimeInfo() RuntimeInfo {
	runtimeInfoOnce.Do(func() {
		runtimeInfo = detectRuntimeInfo()
	})
	return runtimeInfo
}

func detectRuntimeInfo() RuntimeInfo {
	info := RuntimeInfo{
		ProjectID: firstNonEmpty(
			strings.TrimSpace(os.Getenv("GKELOG_PROJECT_ID")),
			strings.TrimSpace(os.Getenv("GOOGLE_CLOUD_PROJECT")),
			strings.TrimSpace(os.Getenv("GCLOUD_PROJECT")),
		),
	}

	switch {
	case detectCloudRunService(&info):
	case detectCloudRunJob(&info):
	case detectKubernetes(&info):
	}

	ensureProjectID(&info)
	return info
}

// detectCloudRunService recognizes Cloud Run services and Cloud Functions
// (2nd gen), both of which expose K_SERVICE/K_REVISION.
func detectCloudRunService(info *RuntimeInfo) bool {
	service := strings.TrimSpace(os.Getenv("K_SERVICE"))
	revision := strings.TrimSpace(os.Getenv("K_REVISION"))
	if service == "" || revision == "" {
		return false
	}
	info.Labels = map[string]string{
		"service":  service,
		"revision": revision,
	}
	if config := strings.TrimSpace(os.Getenv("K_CONFIGURATION")); config != "" {
		info.Labels["configuration"] = config
	}
	return true
}

// detectCloudRunJob recognizes Cloud Run jobs.
func detectCloudRunJob(info *RuntimeInfo) bool {
	job := strings.TrimSpace(os.Getenv("CLOUD_RUN_JOB"))
	if job == "" {
		return false
	}
	info.Labels = map[string]string{"job": job}
	if execution := strings.TrimSpace(os.Getenv("CLOUD_RUN_EXECUTION")); execution != "" {
		info.Labels["execution"] = execution
	}
	return true
}

// detectKubernetes recognizes GKE and other Kubernetes pods via the service
// host injected into every container.
func detectKubernetes(info *RuntimeInfo) bool {
	if strings.TrimSpace(os.Getenv("KUBERNETES_SERVICE_HOST")) == "" {
		return false
	}
	info.Labels = map[string]string{}
	if pod := strings.TrimSpace(os.Getenv("HOSTNAME")); pod != "" {
		info.Labels["pod"] = pod
	}
	if ns := strings.TrimSpace(os.Getenv("POD_NAMESPACE")); ns != "" {
		info.Labels["namespace"] = ns
	}
	return true
}

// ensureProjectID fills the project ID from the metadata server when the
// environment did not provide one and the process runs on GCE.
func ensureProjectID(info *RuntimeInfo) {
	if info.ProjectID != "" || !metadata.OnGCE() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), metadataTimeout)
	defer cancel()
	if id, err := metadata.ProjectIDWithContext(ctx); err == nil {
		info.ProjectID = strings.TrimSpace(id)
	}
}

// firstNonEmpty returns the first non-empty value.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
