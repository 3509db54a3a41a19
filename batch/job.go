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
	coreapi "k8s.io/api/core/v1"
)

// State is the lifecycle state of a Job.
type State string

const (
	// StateCreated means the job is live and bound (or about to be
	// rebound) to a pod.
	StateCreated State = "Created"
	// StateComplete means the pod terminated; exit code and log are
	// captured. Terminal.
	StateComplete State = "Complete"
	// StateCancelled means the user cancelled the job before it
	// completed. Terminal.
	StateCancelled State = "Cancelled"
)

// DefaultContainer is the name of the single container every job pod
// is assumed to run.
const DefaultContainer = "default"

// Job is a user-submitted unit of work bound to at most one pod at a
// time. All fields are guarded by the owning Agent's lock.
type Job struct {
	ID         int64
	BatchID    int64 // 0 when the job belongs to no batch
	Attributes map[string]string
	Callback   string

	// Template is the pod this job materializes as. Its metadata
	// carries the generate-name and ownership labels; a fresh uuid
	// label is stamped on every pod created from it.
	Template coreapi.Pod

	// PodName is the cluster-assigned name of the bound pod, or empty.
	PodName string

	State    State
	ExitCode int32 // meaningful only when State == StateComplete
}

// Terminal reports whether the job reached a terminal state. Terminal
// jobs never transition again.
func (j *Job) Terminal() bool {
	return j.State == StateComplete || j.State == StateCancelled
}

// JobDocument is the public JSON form of a Job.
type JobDocument struct {
	ID         int64             `json:"id"`
	State      State             `json:"state"`
	ExitCode   *int32            `json:"exit_code,omitempty"`
	Log        string            `json:"log,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}
