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

import "testing"

// clearPlatformEnv blanks every detection variable so each case starts from
// a neutral environment. A project variable stays set to keep detection off
// the metadata server.
func clearPlatformEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GKELOG_PROJECT_ID",
		"GCLOUD_PROJECT",
		"K_SERVICE", "K_REVISION", "K_CONFIGURATION",
		"CLOUD_RUN_JOB", "CLOUD_RUN_EXECUTION",
		"KUBERNETES_SERVICE_HOST", "HOSTNAME", "POD_NAMESPACE",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("GOOGLE_CLOUD_PROJECT", "unit-test-project")
}

// TestDetectRuntimeInfoCloudRunService verifies Cloud Run service detection
// and label shape.
func TestDetectRuntimeInfoCloudRunService(t *testing.T) {
	clearPlatformEnv(t)
	t.Setenv("K_SERVICE", "checkout")
	t.Setenv("K_REVISION", "checkout-00042-abc")
	t.Setenv("K_CONFIGURATION", "checkout")

	info := detectRuntimeInfo()
	if info.ProjectID != "unit-test-project" {
		t.Errorf("ProjectID = %q", info.ProjectID)
	}
	want := map[string]string{
		"service":       "checkout",
		"revision":      "checkout-00042-abc",
		"configuration": "checkout",
	}
	for k, v := range want {
		if info.Labels[k] != v {
			t.Errorf("Labels[%q] = %q, want %q", k, info.Labels[k], v)
		}
	}
}

// TestDetectRuntimeInfoCloudRunJob verifies job detection takes the
// job/execution labels.
func TestDetectRuntimeInfoCloudRunJob(t *testing.T) {
	clearPlatformEnv(t)
	t.Setenv("CLOUD_RUN_JOB", "nightly-sync")
	t.Setenv("CLOUD_RUN_EXECUTION", "nightly-sync-7kfmq")

	info := detectRuntimeInfo()
	if info.Labels["job"] != "nightly-sync" {
		t.Errorf("Labels = %v", info.Labels)
	}
	if info.Labels["execution"] != "nightly-sync-7kfmq" {
		t.Errorf("Labels = %v", info.Labels)
	}
}

// TestDetectRuntimeInfoKubernetes verifies pod detection via the injected
// service host.
func TestDetectRuntimeInfoKubernetes(t *testing.T) {
	clearPlatformEnv(t)
	t.Setenv("KUBERNETES_SERVICE_HOST", "10.8.0.1")
	t.Setenv("HOSTNAME", "checkout-5d9f7c-x2lvq")
	t.Setenv("POD_NAMESPACE", "prod")

	info := detectRuntimeInfo()
	if info.Labels["pod"] != "checkout-5d9f7c-x2lvq" {
		t.Errorf("Labels = %v", info.Labels)
	}
	if info.Labels["namespace"] != "prod" {
		t.Errorf("Labels = %v", info.Labels)
	}
}

// TestDetectRuntimeInfoPlain verifies a bare environment produces no labels
// and the project comes from the environment.
func TestDetectRuntimeInfoPlain(t *testing.T) {
	clearPlatformEnv(t)

	info := detectRuntimeInfo()
	if len(info.Labels) != 0 {
		t.Errorf("Labels = %v, want none", info.Labels)
	}
	if info.ProjectID != "unit-test-project" {
		t.Errorf("ProjectID = %q", info.ProjectID)
	}
}

// TestDetectRuntimeInfoProjectPrecedence verifies GKELOG_PROJECT_ID wins
// over the generic variables.
func TestDetectRuntimeInfoProjectPrecedence(t *testing.T) {
	clearPlatformEnv(t)
	t.Setenv("GKELOG_PROJECT_ID", "explicit-project")
	t.Setenv("GCLOUD_PROJECT", "legacy-project")

	info := detectRuntimeInfo()
	if info.ProjectID != "explicit-project" {
		t.Errorf("ProjectID = %q, want explicit-project", info.ProjectID)
	}
}
