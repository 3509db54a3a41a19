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

// Package supervise keeps long-lived workers running. A worker that
// returns or fails is restarted after a randomized delay so that
// workers sharing a failure mode do not restart in lockstep.
package supervise

import (
	"context"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

// targetInterval is the expected mean delay between restarts of a
// worker that terminates immediately. It is a variable so tests can
// shrink it.
var targetInterval = 15 * time.Second

// Run executes worker in a restart loop until ctx is cancelled.
//
// After each termination it sleeps rand(0, 2*targetInterval) minus the
// worker's run time, clamped to zero. Long-running workers restart
// immediately; crash-looping ones are throttled with jitter.
func Run(ctx context.Context, name string, worker func(context.Context) error) {
	log := logrus.WithField("worker", name)
	for ctx.Err() == nil {
		start := time.Now()
		log.Info("Starting worker.")
		if err := worker(ctx); err != nil {
			log.WithError(err).Error("Worker terminated with an error.")
		} else {
			log.Info("Worker returned.")
		}
		elapsed := time.Since(start)
		delay := time.Duration(rand.Int63n(int64(2*targetInterval))) - elapsed
		if delay <= 0 {
			continue
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}
