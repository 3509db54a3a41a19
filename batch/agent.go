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
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	coreapi "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/podbatch/batch/kube"
)

// PodClient is the part of the cluster API the agent consumes.
type PodClient interface {
	CreatePod(ctx context.Context, pod *coreapi.Pod) (*coreapi.Pod, error)
	DeletePod(ctx context.Context, name string) error
	GetLog(ctx context.Context, name string) ([]byte, error)
}

// Reporter dispatches a job's completion document to its callback URL.
// Implementations must not block the caller.
type Reporter interface {
	Report(jobID int64, url string, document []byte)
}

// Agent owns the registry and performs every job and batch mutation.
// A single mutex serializes request handlers against the reconcilers,
// so the registry's pod<->job invariants hold at every observable
// moment. Cluster calls run under the lock; they carry client-side
// timeouts and the lock is what makes concurrent cancels and duplicate
// completion observations collapse into no-ops.
type Agent struct {
	mu  sync.Mutex
	reg *Registry

	pc         PodClient
	logs       *LogStore
	reporter   Reporter
	instanceID string
	log        *logrus.Entry
}

// NewAgent creates an Agent around an empty registry.
func NewAgent(pc PodClient, logs *LogStore, reporter Reporter, instanceID string) *Agent {
	return &Agent{
		reg:        NewRegistry(),
		pc:         pc,
		logs:       logs,
		reporter:   reporter,
		instanceID: instanceID,
		log:        logrus.NewEntry(logrus.StandardLogger()),
	}
}

// CreateJobRequest carries a validated job submission.
type CreateJobRequest struct {
	Spec       coreapi.PodSpec
	BatchID    int64
	Attributes map[string]string
	Callback   string
}

// CreateJob registers a new job and creates its pod. Referencing an
// unknown batch is a BadRequestError. The job stays registered even
// when pod creation fails, matching the rest of the lifecycle: a later
// cancel or delete cleans it up.
func (a *Agent) CreateJob(ctx context.Context, req CreateJobRequest) (JobDocument, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if req.BatchID != 0 {
		if _, ok := a.reg.BatchByID(req.BatchID); !ok {
			return JobDocument{}, badRequest("batch_id %d not found", req.BatchID)
		}
	}

	id := a.reg.NextID()
	j := &Job{
		ID:         id,
		BatchID:    req.BatchID,
		Attributes: req.Attributes,
		Callback:   req.Callback,
		Template: coreapi.Pod{
			ObjectMeta: metav1.ObjectMeta{
				GenerateName: fmt.Sprintf("job-%d-", id),
				Labels: map[string]string{
					kube.LabelApp:      kube.AppBatchJob,
					kube.LabelInstance: a.instanceID,
				},
			},
			Spec: req.Spec,
		},
		State: StateCreated,
	}
	a.reg.InsertJob(j)
	a.log.WithField("job", j.ID).Info("Created job.")

	if err := a.createPod(ctx, j); err != nil {
		return JobDocument{}, err
	}
	return a.document(ctx, j), nil
}

// GetJob returns the public document for a job.
func (a *Agent) GetJob(ctx context.Context, id int64) (JobDocument, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	j, ok := a.reg.JobByID(id)
	if !ok {
		return JobDocument{}, notFound("job %d not found", id)
	}
	return a.document(ctx, j), nil
}

// ListJobs returns the documents of all registered jobs, ordered by id.
func (a *Agent) ListJobs(ctx context.Context) []JobDocument {
	a.mu.Lock()
	defer a.mu.Unlock()
	jobs := a.reg.Jobs()
	docs := make([]JobDocument, 0, len(jobs))
	for _, j := range jobs {
		docs = append(docs, a.document(ctx, j))
	}
	return docs
}

// JobLog returns the job's log: the live pod stream while the job runs,
// the persisted artifact once it completed. Artifacts survive job
// deletion, so ids within the allocator watermark are still served
// after the job is gone.
func (a *Agent) JobLog(ctx context.Context, id int64) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if id > a.reg.Watermark() {
		return nil, notFound("job %d not found", id)
	}
	j, ok := a.reg.JobByID(id)
	if !ok {
		return a.logs.Read(id)
	}
	log := a.readLog(ctx, j)
	if log == nil {
		return nil, notFound("no log for job %d", id)
	}
	return log, nil
}

// CancelJob cancels a job. Cancelling a terminal job is a no-op.
func (a *Agent) CancelJob(ctx context.Context, id int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	j, ok := a.reg.JobByID(id)
	if !ok {
		return notFound("job %d not found", id)
	}
	if j.Terminal() {
		return nil
	}
	if err := a.deletePod(ctx, j); err != nil {
		return err
	}
	a.setState(j, StateCancelled)
	return nil
}

// DeleteJob deletes the job's bound pod, if any, then removes the job
// from the registry and its batch. The pod goes first: a failed delete
// leaves the job registered and bound so the request can be retried,
// instead of stranding a live pod nobody tracks.
func (a *Agent) DeleteJob(ctx context.Context, id int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	j, ok := a.reg.JobByID(id)
	if !ok {
		return notFound("job %d not found", id)
	}
	if err := a.deletePod(ctx, j); err != nil {
		return err
	}
	a.reg.RemoveJob(j)
	return nil
}

// CreateBatch registers a new, empty batch.
func (a *Agent) CreateBatch(attributes map[string]string) BatchDocument {
	a.mu.Lock()
	defer a.mu.Unlock()
	b := &Batch{
		ID:         a.reg.NextID(),
		Attributes: attributes,
	}
	a.reg.InsertBatch(b)
	a.log.WithField("batch", b.ID).Info("Created batch.")
	return a.batchDocument(b)
}

// GetBatch returns the aggregate document for a batch.
func (a *Agent) GetBatch(id int64) (BatchDocument, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.reg.BatchByID(id)
	if !ok {
		return BatchDocument{}, notFound("batch %d not found", id)
	}
	return a.batchDocument(b), nil
}

// DeleteBatch removes a batch. Member jobs survive with their batch
// membership cleared.
func (a *Agent) DeleteBatch(id int64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.reg.BatchByID(id)
	if !ok {
		return notFound("batch %d not found", id)
	}
	a.reg.RemoveBatch(b)
	return nil
}

// Tracks reports whether the named pod is bound to a non-terminal job.
// The watcher uses this to skip fetching pods nobody waits on.
func (a *Agent) Tracks(podName string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	j, ok := a.reg.JobByPod(podName)
	return ok && !j.Terminal()
}

// PodNames returns a snapshot of all bound pod names.
func (a *Agent) PodNames() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reg.PodNames()
}

// Reconcile updates the job bound to podName against the current truth
// of its pod. A nil pod means the cluster no longer has it: the job is
// marked unscheduled and a replacement pod is created. A pod whose
// single container terminated completes the job. Anything else is a
// pod that exists but has not finished, which changes nothing.
//
// Terminal jobs and unknown pods are ignored, which makes duplicate
// observations from the watcher and the sweeper collapse to no-ops.
func (a *Agent) Reconcile(ctx context.Context, podName string, pod *coreapi.Pod) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	j, ok := a.reg.JobByPod(podName)
	if !ok || j.Terminal() {
		return nil
	}
	if pod == nil {
		return a.markUnscheduled(ctx, j)
	}
	statuses := pod.Status.ContainerStatuses
	if len(statuses) == 0 {
		return nil
	}
	if len(statuses) != 1 || statuses[0].Name != DefaultContainer {
		return fmt.Errorf("pod %s for job %d must run a single container named %q, got %d", pod.Name, j.ID, DefaultContainer, len(statuses))
	}
	if statuses[0].State.Terminated != nil {
		return a.markComplete(ctx, j, pod)
	}
	return nil
}

// markUnscheduled rebinds a non-terminal job whose pod vanished before
// completion: the stale binding is dropped and a fresh pod is created
// from the same template.
func (a *Agent) markUnscheduled(ctx context.Context, j *Job) error {
	a.log.WithField("job", j.ID).WithField("pod", j.PodName).Info("Pod is missing, starting a new pod.")
	a.reg.UnbindPod(j)
	return a.createPod(ctx, j)
}

// markComplete captures the pod's exit code and log, persists the log
// artifact, and moves the job to Complete. The callback, if any, is
// dispatched after the state is final so a slow endpoint cannot hold
// up reconciliation.
func (a *Agent) markComplete(ctx context.Context, j *Job, pod *coreapi.Pod) error {
	terminated := pod.Status.ContainerStatuses[0].State.Terminated

	podLog, err := a.pc.GetLog(ctx, pod.Name)
	if err != nil {
		return fmt.Errorf("error reading log of pod %s: %v", pod.Name, err)
	}
	if err := a.logs.Write(j.ID, podLog); err != nil {
		return fmt.Errorf("error writing log for job %d: %v", j.ID, err)
	}
	a.log.WithField("job", j.ID).Infof("Wrote log to %s.", a.logs.Path(j.ID))

	a.reg.UnbindPod(j)
	j.ExitCode = terminated.ExitCode
	a.setState(j, StateComplete)
	a.log.WithField("job", j.ID).WithField("exit_code", j.ExitCode).Info("Job complete.")

	if j.Callback != "" {
		document, err := json.Marshal(a.document(ctx, j))
		if err != nil {
			a.log.WithError(err).WithField("job", j.ID).Error("Error marshaling callback document.")
			return nil
		}
		a.reporter.Report(j.ID, j.Callback, document)
	}
	return nil
}

// createPod creates a pod for the job from its template, with a fresh
// uuid label, and binds the assigned name.
func (a *Agent) createPod(ctx context.Context, j *Job) error {
	pod := j.Template.DeepCopy()
	pod.ObjectMeta.Labels[kube.LabelUUID] = uuid.New().String()
	created, err := a.pc.CreatePod(ctx, pod)
	if err != nil {
		return fmt.Errorf("error creating pod for job %d: %v", j.ID, err)
	}
	a.reg.BindPod(j, created.Name)
	podsCreated.Inc()
	a.log.WithField("job", j.ID).WithField("pod", created.Name).Info("Created pod.")
	return nil
}

// deletePod deletes the job's bound pod, if any, and unbinds it. The
// client treats a cluster-side 404 as success: the pod being gone is
// the state we want.
func (a *Agent) deletePod(ctx context.Context, j *Job) error {
	if j.PodName == "" {
		return nil
	}
	if err := a.pc.DeletePod(ctx, j.PodName); err != nil {
		return fmt.Errorf("error deleting pod %s: %v", j.PodName, err)
	}
	podsDeleted.Inc()
	a.reg.UnbindPod(j)
	return nil
}

func (a *Agent) setState(j *Job, state State) {
	if j.State == state {
		return
	}
	a.log.WithField("job", j.ID).
		WithField("from", j.State).
		WithField("to", state).Info("Transitioning states.")
	stateTransitions.WithLabelValues(string(j.State), string(state)).Inc()
	j.State = state
}

// document renders a job's public JSON form. The log field is filled
// best-effort per the job's state.
func (a *Agent) document(ctx context.Context, j *Job) JobDocument {
	doc := JobDocument{
		ID:         j.ID,
		State:      j.State,
		Attributes: j.Attributes,
	}
	if j.State == StateComplete {
		exitCode := j.ExitCode
		doc.ExitCode = &exitCode
	}
	if log := a.readLog(ctx, j); log != nil {
		doc.Log = string(log)
	}
	return doc
}

// readLog returns the job's log bytes or nil when none is available:
// the live stream of the bound pod while Created, the persisted
// artifact once Complete, nothing for Cancelled. Transient stream
// errors are swallowed.
func (a *Agent) readLog(ctx context.Context, j *Job) []byte {
	switch j.State {
	case StateCreated:
		if j.PodName == "" {
			return nil
		}
		log, err := a.pc.GetLog(ctx, j.PodName)
		if err != nil {
			return nil
		}
		return log
	case StateComplete:
		log, err := a.logs.Read(j.ID)
		if err != nil {
			return nil
		}
		return log
	default:
		return nil
	}
}

func (a *Agent) batchDocument(b *Batch) BatchDocument {
	var counts StateCounts
	for _, id := range b.JobIDs {
		j, ok := a.reg.JobByID(id)
		if !ok {
			continue
		}
		switch j.State {
		case StateCreated:
			counts.Created++
		case StateComplete:
			counts.Complete++
		case StateCancelled:
			counts.Cancelled++
		}
	}
	return BatchDocument{
		ID:         b.ID,
		Jobs:       counts,
		Attributes: b.Attributes,
	}
}
