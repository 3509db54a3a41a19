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

// Package server exposes the job and batch lifecycle over REST.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	coreapi "k8s.io/api/core/v1"

	"github.com/podbatch/batch/batch"
)

type agent interface {
	CreateJob(ctx context.Context, req batch.CreateJobRequest) (batch.JobDocument, error)
	GetJob(ctx context.Context, id int64) (batch.JobDocument, error)
	ListJobs(ctx context.Context) []batch.JobDocument
	JobLog(ctx context.Context, id int64) ([]byte, error)
	CancelJob(ctx context.Context, id int64) error
	DeleteJob(ctx context.Context, id int64) error
	CreateBatch(attributes map[string]string) batch.BatchDocument
	GetBatch(id int64) (batch.BatchDocument, error)
	DeleteBatch(id int64) error
}

// Server dispatches validated requests to the agent.
type Server struct {
	agent agent
	log   *logrus.Entry
}

// New creates a Server around the given agent.
func New(a agent) *Server {
	return &Server{
		agent: a,
		log:   logrus.NewEntry(logrus.StandardLogger()),
	}
}

// Handler returns the full route table.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/jobs/create", s.createJob).Methods(http.MethodPost)
	r.HandleFunc("/jobs", s.listJobs).Methods(http.MethodGet)
	r.HandleFunc("/jobs/{id:[0-9]+}", s.getJob).Methods(http.MethodGet)
	r.HandleFunc("/jobs/{id:[0-9]+}/log", s.getJobLog).Methods(http.MethodGet)
	r.HandleFunc("/jobs/{id:[0-9]+}/cancel", s.cancelJob).Methods(http.MethodPost)
	r.HandleFunc("/jobs/{id:[0-9]+}/delete", s.deleteJob).Methods(http.MethodDelete)
	r.HandleFunc("/batches/create", s.createBatch).Methods(http.MethodPost)
	r.HandleFunc("/batches/{id:[0-9]+}", s.getBatch).Methods(http.MethodGet)
	r.HandleFunc("/batches/{id:[0-9]+}/delete", s.deleteBatch).Methods(http.MethodDelete)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "OK")
	}).Methods(http.MethodGet)
	return r
}

type createJobRequest struct {
	Spec       coreapi.PodSpec   `json:"spec"`
	BatchID    int64             `json:"batch_id,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Callback   string            `json:"callback,omitempty"`
}

func (s *Server) createJob(w http.ResponseWriter, r *http.Request) {
	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		s.httpError(w, http.StatusBadRequest, "cannot read body")
		return
	}
	if msg, ok := validate(createJobSchema, body); !ok {
		s.httpError(w, http.StatusNotFound, "invalid request: %s", msg)
		return
	}
	var req createJobRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.httpError(w, http.StatusNotFound, "invalid request: %v", err)
		return
	}
	doc, err := s.agent.CreateJob(r.Context(), batch.CreateJobRequest{
		Spec:       req.Spec,
		BatchID:    req.BatchID,
		Attributes: req.Attributes,
		Callback:   req.Callback,
	})
	if err != nil {
		s.agentError(w, err)
		return
	}
	s.writeJSON(w, doc)
}

func (s *Server) listJobs(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.agent.ListJobs(r.Context()))
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	doc, err := s.agent.GetJob(r.Context(), id)
	if err != nil {
		s.agentError(w, err)
		return
	}
	s.writeJSON(w, doc)
}

func (s *Server) getJobLog(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	log, err := s.agent.JobLog(r.Context(), id)
	if err != nil {
		s.agentError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	responseCounter.WithLabelValues(strconv.Itoa(http.StatusOK)).Inc()
	if _, err := w.Write(log); err != nil {
		s.log.WithError(err).Warning("Error writing log.")
	}
}

func (s *Server) cancelJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.agent.CancelJob(r.Context(), id); err != nil {
		s.agentError(w, err)
		return
	}
	s.writeJSON(w, struct{}{})
}

func (s *Server) deleteJob(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.agent.DeleteJob(r.Context(), id); err != nil {
		s.agentError(w, err)
		return
	}
	s.writeJSON(w, struct{}{})
}

type createBatchRequest struct {
	Attributes map[string]string `json:"attributes,omitempty"`
}

func (s *Server) createBatch(w http.ResponseWriter, r *http.Request) {
	body, err := ioutil.ReadAll(r.Body)
	if err != nil {
		s.httpError(w, http.StatusBadRequest, "cannot read body")
		return
	}
	if msg, ok := validate(createBatchSchema, body); !ok {
		s.httpError(w, http.StatusNotFound, "invalid request: %s", msg)
		return
	}
	var req createBatchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.httpError(w, http.StatusNotFound, "invalid request: %v", err)
		return
	}
	s.writeJSON(w, s.agent.CreateBatch(req.Attributes))
}

func (s *Server) getBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	doc, err := s.agent.GetBatch(id)
	if err != nil {
		s.agentError(w, err)
		return
	}
	s.writeJSON(w, doc)
}

func (s *Server) deleteBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.agent.DeleteBatch(id); err != nil {
		s.agentError(w, err)
		return
	}
	s.writeJSON(w, struct{}{})
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		s.httpError(w, http.StatusNotFound, "invalid id")
		return 0, false
	}
	return id, true
}

// agentError translates agent errors to the wire: expected errors are
// 404, anything else is a 500.
func (s *Server) agentError(w http.ResponseWriter, err error) {
	if batch.IsNotFound(err) || batch.IsBadRequest(err) {
		s.httpError(w, http.StatusNotFound, "%v", err)
		return
	}
	s.log.WithError(err).Error("Request failed.")
	s.httpError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) httpError(w http.ResponseWriter, code int, format string, args ...interface{}) {
	responseCounter.WithLabelValues(strconv.Itoa(code)).Inc()
	http.Error(w, fmt.Sprintf(format, args...), code)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	responseCounter.WithLabelValues(strconv.Itoa(http.StatusOK)).Inc()
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Error("Error writing response.")
	}
}
