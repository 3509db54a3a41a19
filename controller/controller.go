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

// Package controller keeps the job registry consistent with the
// cluster's pods. The watcher is the low-latency signal; the periodic
// sweep is the safety net against missed watch events. Neither alone
// converges, both together do.
package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	coreapi "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/watch"
)

type podClient interface {
	GetPod(ctx context.Context, name string) (*coreapi.Pod, error)
	ListPods(ctx context.Context, selector string) ([]coreapi.Pod, error)
	WatchPods(ctx context.Context, selector string) (watch.Interface, error)
}

type jobAgent interface {
	Tracks(podName string) bool
	Reconcile(ctx context.Context, podName string, pod *coreapi.Pod) error
	PodNames() []string
}

// Controller runs the watcher and the sweeper against one instance's
// pods.
type Controller struct {
	pc       podClient
	agent    jobAgent
	selector string
	resync   time.Duration
	log      *logrus.Entry
}

// New creates a Controller. selector must match exactly the pods this
// instance owns; resync is the sweep cadence.
func New(pc podClient, agent jobAgent, selector string, resync time.Duration) *Controller {
	return &Controller{
		pc:       pc,
		agent:    agent,
		selector: selector,
		resync:   resync,
		log:      logrus.NewEntry(logrus.StandardLogger()),
	}
}

// Watch consumes one watch session over the instance's pods and feeds
// every event through reconciliation. Event payloads can be stale
// across watch restarts, so the event only names the pod: the current
// object is always fetched fresh, and a fetch 404 reconciles the job
// against a missing pod. Any error ends the session; the supervisor
// restarts it.
func (c *Controller) Watch(ctx context.Context) error {
	w, err := c.pc.WatchPods(ctx, c.selector)
	if err != nil {
		return fmt.Errorf("error opening pod watch: %v", err)
	}
	defer w.Stop()
	watchSessions.Inc()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.ResultChan():
			if !ok {
				return fmt.Errorf("pod watch closed")
			}
			if event.Type == watch.Error {
				return fmt.Errorf("pod watch error event: %v", event.Object)
			}
			pod, ok := event.Object.(*coreapi.Pod)
			if !ok {
				c.log.Warnf("Unexpected watch object of type %T.", event.Object)
				continue
			}
			if !c.agent.Tracks(pod.Name) {
				continue
			}
			fresh, err := c.pc.GetPod(ctx, pod.Name)
			if err != nil {
				return fmt.Errorf("error reading pod %s: %v", pod.Name, err)
			}
			if err := c.agent.Reconcile(ctx, pod.Name, fresh); err != nil {
				reconcileErrors.Inc()
				return err
			}
		}
	}
}

// Sync does one full sweep: list every owned pod, reconcile each
// tracked job against its listed pod, then reconcile every bound pod
// name missing from the listing against a nil pod so vanished pods get
// replaced. The pod name snapshot is taken before the listing: every
// snapshotted name predates the list, so absence from the list means
// the pod is gone, not newer than the list. A pod bound mid-sweep
// waits for the next one.
func (c *Controller) Sync(ctx context.Context) error {
	tracked := c.agent.PodNames()

	pods, err := c.pc.ListPods(ctx, c.selector)
	if err != nil {
		return fmt.Errorf("error listing pods: %v", err)
	}

	seen := make(map[string]bool, len(pods))
	var syncErrs []error
	for i := range pods {
		pod := &pods[i]
		seen[pod.Name] = true
		if !c.agent.Tracks(pod.Name) {
			continue
		}
		if err := c.agent.Reconcile(ctx, pod.Name, pod); err != nil {
			reconcileErrors.Inc()
			syncErrs = append(syncErrs, err)
		}
	}
	for _, name := range tracked {
		if seen[name] {
			continue
		}
		if err := c.agent.Reconcile(ctx, name, nil); err != nil {
			reconcileErrors.Inc()
			syncErrs = append(syncErrs, err)
		}
	}
	if len(syncErrs) > 0 {
		return fmt.Errorf("errors syncing: %v", syncErrs)
	}
	return nil
}

// Sweep runs Sync on the resync cadence until ctx is cancelled. Sync
// failures are logged and the next tick retries; only cancellation
// ends the loop.
func (c *Controller) Sweep(ctx context.Context) error {
	// Give the watcher a head start before the first full sweep.
	select {
	case <-time.After(time.Second):
	case <-ctx.Done():
		return nil
	}
	for {
		start := time.Now()
		if err := c.Sync(ctx); err != nil {
			c.log.WithError(err).Error("Error syncing cluster state.")
		} else {
			c.log.Infof("Sync time: %v", time.Since(start))
		}
		sweeps.Inc()
		select {
		case <-time.After(c.resync):
		case <-ctx.Done():
			return nil
		}
	}
}
