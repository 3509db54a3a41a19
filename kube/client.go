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

// Package kube wraps the Kubernetes API for the pod operations the
// batch service needs.
package kube

import (
	"context"
	"fmt"

	coreapi "k8s.io/api/core/v1"
	kerrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes"
)

const (
	// LabelApp marks pods owned by any batch instance.
	LabelApp = "app"
	// AppBatchJob is the LabelApp value stamped on every created pod.
	AppBatchJob = "batch-job"
	// LabelInstance partitions pods between coexisting instances.
	LabelInstance = "instance"
	// LabelUUID carries a fresh uuid per created pod, so replacement
	// pods for the same job are distinguishable.
	LabelUUID = "uuid"
)

// Selector returns the label selector matching every pod owned by the
// given instance.
func Selector(instanceID string) string {
	return fmt.Sprintf("%s=%s,%s=%s", LabelApp, AppBatchJob, LabelInstance, instanceID)
}

// Client talks to a single namespace of one cluster.
type Client struct {
	client    kubernetes.Interface
	namespace string
}

// NewClient creates a Client operating on the given namespace.
func NewClient(client kubernetes.Interface, namespace string) *Client {
	return &Client{client: client, namespace: namespace}
}

// CreatePod creates the given pod and returns the server's view of it,
// including the assigned name.
func (c *Client) CreatePod(ctx context.Context, pod *coreapi.Pod) (*coreapi.Pod, error) {
	return c.client.CoreV1().Pods(c.namespace).Create(ctx, pod, metav1.CreateOptions{})
}

// DeletePod deletes the named pod. A pod that is already gone counts
// as deleted.
func (c *Client) DeletePod(ctx context.Context, name string) error {
	err := c.client.CoreV1().Pods(c.namespace).Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !kerrors.IsNotFound(err) {
		return err
	}
	return nil
}

// GetPod returns the named pod, or nil without error when the pod does
// not exist.
func (c *Client) GetPod(ctx context.Context, name string) (*coreapi.Pod, error) {
	pod, err := c.client.CoreV1().Pods(c.namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if kerrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return pod, nil
}

// GetLog returns the named pod's log.
func (c *Client) GetLog(ctx context.Context, name string) ([]byte, error) {
	return c.client.CoreV1().Pods(c.namespace).GetLogs(name, &coreapi.PodLogOptions{}).DoRaw(ctx)
}

// ListPods lists pods matching the given label selector.
func (c *Client) ListPods(ctx context.Context, selector string) ([]coreapi.Pod, error) {
	list, err := c.client.CoreV1().Pods(c.namespace).List(ctx, metav1.ListOptions{LabelSelector: selector})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

// WatchPods opens a watch over pods matching the given label selector.
func (c *Client) WatchPods(ctx context.Context, selector string) (watch.Interface, error) {
	return c.client.CoreV1().Pods(c.namespace).Watch(ctx, metav1.ListOptions{LabelSelector: selector})
}
