/*
Copyright 2019 The Batch Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package kube

import (
	"context"
	"testing"

	coreapi "k8s.io/api/core/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func TestSelector(t *testing.T) {
	if got, want := Selector("abc123"), "app=batch-job,instance=abc123"; got != want {
		t.Errorf("Selector() = %q, want %q", got, want)
	}
}

func TestCreateAndGetPod(t *testing.T) {
	c := NewClient(fake.NewSimpleClientset(), "test-ns")
	ctx := context.Background()

	pod := &coreapi.Pod{}
	pod.Name = "job-1-abc"
	pod.Labels = map[string]string{LabelApp: AppBatchJob}
	if _, err := c.CreatePod(ctx, pod); err != nil {
		t.Fatalf("CreatePod: %v", err)
	}

	got, err := c.GetPod(ctx, "job-1-abc")
	if err != nil {
		t.Fatalf("GetPod: %v", err)
	}
	if got == nil {
		t.Fatal("GetPod returned nil for an existing pod")
	}
	if got.Labels[LabelApp] != AppBatchJob {
		t.Errorf("labels = %v", got.Labels)
	}
}

func TestGetPodMissing(t *testing.T) {
	c := NewClient(fake.NewSimpleClientset(), "test-ns")
	pod, err := c.GetPod(context.Background(), "gone")
	if err != nil {
		t.Fatalf("GetPod: %v", err)
	}
	if pod != nil {
		t.Errorf("GetPod = %+v for a missing pod, want nil", pod)
	}
}

func TestDeletePod(t *testing.T) {
	existing := &coreapi.Pod{}
	existing.Name = "job-1-abc"
	existing.Namespace = "test-ns"
	c := NewClient(fake.NewSimpleClientset(existing), "test-ns")
	ctx := context.Background()

	if err := c.DeletePod(ctx, "job-1-abc"); err != nil {
		t.Fatalf("DeletePod: %v", err)
	}
	if pod, err := c.GetPod(ctx, "job-1-abc"); err != nil || pod != nil {
		t.Errorf("pod still visible after delete: %+v, %v", pod, err)
	}

	// Deleting a pod that is already gone is not an error.
	if err := c.DeletePod(ctx, "job-1-abc"); err != nil {
		t.Errorf("second DeletePod: %v", err)
	}
}

func TestListPods(t *testing.T) {
	mine := &coreapi.Pod{}
	mine.Name = "job-1-abc"
	mine.Namespace = "test-ns"
	elsewhere := &coreapi.Pod{}
	elsewhere.Name = "job-2-def"
	elsewhere.Namespace = "other-ns"
	c := NewClient(fake.NewSimpleClientset(mine, elsewhere), "test-ns")

	pods, err := c.ListPods(context.Background(), "")
	if err != nil {
		t.Fatalf("ListPods: %v", err)
	}
	if len(pods) != 1 || pods[0].Name != "job-1-abc" {
		t.Errorf("pods = %+v, want only job-1-abc", pods)
	}
}
