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
	"github.com/prometheus/client_golang/prometheus"
)

var (
	stateTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "batch_job_state_transitions",
		Help: "A counter of job state transitions.",
	}, []string{"from", "to"})
	podsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "batch_pods_created",
		Help: "A counter of pods created for jobs, including replacements.",
	})
	podsDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "batch_pods_deleted",
		Help: "A counter of pod deletions issued by cancel and delete.",
	})
)

func init() {
	prometheus.MustRegister(stateTransitions)
	prometheus.MustRegister(podsCreated)
	prometheus.MustRegister(podsDeleted)
}
