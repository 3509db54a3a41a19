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

package controller

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	watchSessions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "batch_watch_sessions",
		Help: "A counter of pod watch sessions opened.",
	})
	sweeps = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "batch_sweeps",
		Help: "A counter of full reconciliation sweeps.",
	})
	reconcileErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "batch_reconcile_errors",
		Help: "A counter of reconciliation failures.",
	})
)

func init() {
	prometheus.MustRegister(watchSessions)
	prometheus.MustRegister(sweeps)
	prometheus.MustRegister(reconcileErrors)
}
