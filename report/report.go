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

// Package report delivers job completion documents to user callbacks.
package report

import (
	"bytes"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const timeout = 120 * time.Second

// Reporter POSTs completion documents. Each report is one attempt on a
// detached goroutine: failures are logged, never retried, and never
// reach the caller.
type Reporter struct {
	client *http.Client
	log    *logrus.Entry
}

// NewReporter returns a Reporter with the standard callback timeout.
func NewReporter() *Reporter {
	return &Reporter{
		client: &http.Client{Timeout: timeout},
		log:    logrus.NewEntry(logrus.StandardLogger()),
	}
}

// Report dispatches the document to url without blocking the caller.
func (r *Reporter) Report(jobID int64, url string, document []byte) {
	go r.post(jobID, url, document)
}

func (r *Reporter) post(jobID int64, url string, document []byte) {
	log := r.log.WithField("job", jobID).WithField("callback", url)
	resp, err := r.client.Post(url, "application/json", bytes.NewReader(document))
	if err != nil {
		callbackResults.WithLabelValues("error").Inc()
		log.WithError(err).Warn("Callback failed, it will not be retried.")
		return
	}
	defer resp.Body.Close()
	callbackResults.WithLabelValues(resp.Status).Inc()
	log.WithField("status", resp.StatusCode).Info("Callback delivered.")
}
