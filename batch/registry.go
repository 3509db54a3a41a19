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

package batch

import (
	"sort"
)

// Registry holds the in-memory job and batch state. It is the single
// mediator of the pod-name <-> job relation: for every job with a bound
// pod the pods map has exactly one matching entry, and every pods entry
// points at a job whose PodName is that key.
//
// Registry does no locking. The owning Agent serializes all access.
type Registry struct {
	counter int64

	jobs    map[int64]*Job
	pods    map[string]*Job
	batches map[int64]*Batch
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		jobs:    map[int64]*Job{},
		pods:    map[string]*Job{},
		batches: map[int64]*Batch{},
	}
}

// NextID allocates the next process-unique id. Ids are shared between
// jobs and batches and are never reused.
func (r *Registry) NextID() int64 {
	r.counter++
	return r.counter
}

// Watermark returns the highest id allocated so far.
func (r *Registry) Watermark() int64 {
	return r.counter
}

// InsertJob registers a job by id and appends it to its batch when it
// has one.
func (r *Registry) InsertJob(j *Job) {
	r.jobs[j.ID] = j
	if j.BatchID != 0 {
		if b, ok := r.batches[j.BatchID]; ok {
			b.JobIDs = append(b.JobIDs, j.ID)
		}
	}
}

// RemoveJob drops a job from the id map and from its batch's member
// list. The pod binding, if any, is left to the caller.
func (r *Registry) RemoveJob(j *Job) {
	delete(r.jobs, j.ID)
	if j.BatchID == 0 {
		return
	}
	b, ok := r.batches[j.BatchID]
	if !ok {
		return
	}
	for i, id := range b.JobIDs {
		if id == j.ID {
			b.JobIDs = append(b.JobIDs[:i], b.JobIDs[i+1:]...)
			break
		}
	}
}

// JobByID looks up a job by id.
func (r *Registry) JobByID(id int64) (*Job, bool) {
	j, ok := r.jobs[id]
	return j, ok
}

// JobByPod looks up the job bound to the named pod.
func (r *Registry) JobByPod(name string) (*Job, bool) {
	j, ok := r.pods[name]
	return j, ok
}

// BindPod binds a job to a pod name, replacing any previous binding.
func (r *Registry) BindPod(j *Job, name string) {
	if j.PodName != "" {
		delete(r.pods, j.PodName)
	}
	j.PodName = name
	r.pods[name] = j
}

// UnbindPod clears a job's pod binding, if any.
func (r *Registry) UnbindPod(j *Job) {
	if j.PodName == "" {
		return
	}
	delete(r.pods, j.PodName)
	j.PodName = ""
}

// InsertBatch registers a batch by id.
func (r *Registry) InsertBatch(b *Batch) {
	r.batches[b.ID] = b
}

// RemoveBatch drops a batch and orphans its members by clearing their
// BatchID.
func (r *Registry) RemoveBatch(b *Batch) {
	delete(r.batches, b.ID)
	for _, id := range b.JobIDs {
		if j, ok := r.jobs[id]; ok {
			j.BatchID = 0
		}
	}
	b.JobIDs = nil
}

// BatchByID looks up a batch by id.
func (r *Registry) BatchByID(id int64) (*Batch, bool) {
	b, ok := r.batches[id]
	return b, ok
}

// Jobs returns all registered jobs ordered by id.
func (r *Registry) Jobs() []*Job {
	jobs := make([]*Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].ID < jobs[k].ID })
	return jobs
}

// PodNames returns a snapshot of all bound pod names. Callers may
// mutate bindings while iterating the snapshot.
func (r *Registry) PodNames() []string {
	names := make([]string, 0, len(r.pods))
	for name := range r.pods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
