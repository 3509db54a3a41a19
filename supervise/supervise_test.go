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

package supervise

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunRestartsFailingWorker(t *testing.T) {
	old := targetInterval
	targetInterval = time.Millisecond
	defer func() { targetInterval = old }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runs := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		Run(ctx, "flaky", func(context.Context) error {
			runs++
			if runs == 3 {
				cancel()
			}
			return errors.New("boom")
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
	if runs < 3 {
		t.Errorf("worker ran %d times, want at least 3", runs)
	}
}

func TestRunRestartsReturningWorker(t *testing.T) {
	old := targetInterval
	targetInterval = time.Millisecond
	defer func() { targetInterval = old }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runs := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		Run(ctx, "quitter", func(context.Context) error {
			runs++
			if runs == 2 {
				cancel()
			}
			return nil
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
	if runs < 2 {
		t.Errorf("worker ran %d times, want at least 2", runs)
	}
}

func TestRunStopsImmediatelyWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ran := false
	Run(ctx, "never", func(context.Context) error {
		ran = true
		return nil
	})
	if ran {
		t.Error("worker ran under a cancelled context")
	}
}
