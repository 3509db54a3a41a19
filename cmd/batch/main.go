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

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"k8s.io/client-go/kubernetes"

	"github.com/podbatch/batch/batch"
	"github.com/podbatch/batch/controller"
	"github.com/podbatch/batch/kube"
	"github.com/podbatch/batch/logrusutil"
	"github.com/podbatch/batch/report"
	"github.com/podbatch/batch/server"
	"github.com/podbatch/batch/supervise"
)

type options struct {
	port          int
	namespace     string
	logsDir       string
	kubeconfig    string
	useKubeConfig bool
}

func gatherOptions() options {
	o := options{}
	flag.IntVar(&o.port, "port", 5000, "Port to listen on.")
	flag.StringVar(&o.namespace, "namespace", "default", "Namespace job pods are created in.")
	flag.StringVar(&o.logsDir, "logs-dir", "logs", "Directory job log artifacts are written to.")
	flag.StringVar(&o.kubeconfig, "kubeconfig", "", "Path to a kubeconfig. Only used with kubeconfig loading; if empty the default loading rules apply.")
	_, useKubeConfig := os.LookupEnv("BATCH_USE_KUBE_CONFIG")
	flag.BoolVar(&o.useKubeConfig, "use-kube-config", useKubeConfig, "Load cluster credentials from a kubeconfig instead of the in-cluster service account.")
	flag.Parse()
	return o
}

func (o *options) Validate() error {
	if o.namespace == "" {
		return errors.New("namespace must not be empty")
	}
	if o.port <= 0 || o.port > 65535 {
		return fmt.Errorf("invalid port %d", o.port)
	}
	return nil
}

func refreshInterval() time.Duration {
	v := os.Getenv("REFRESH_INTERVAL_IN_SECONDS")
	if v == "" {
		return 300 * time.Second
	}
	seconds, err := strconv.Atoi(v)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid REFRESH_INTERVAL_IN_SECONDS.")
	}
	return time.Duration(seconds) * time.Second
}

func main() {
	logrusutil.ComponentInit("batch")
	o := gatherOptions()
	if err := o.Validate(); err != nil {
		logrus.WithError(err).Fatal("Invalid options")
	}
	rand.Seed(time.Now().UnixNano())

	resync := refreshInterval()
	logrus.Infof("REFRESH_INTERVAL_IN_SECONDS %d", int(resync.Seconds()))

	instanceID := strings.ReplaceAll(uuid.New().String(), "-", "")
	logrus.Infof("instance_id = %s", instanceID)

	cfg, err := kube.LoadClusterConfig(o.useKubeConfig, o.kubeconfig)
	if err != nil {
		logrus.WithError(err).Fatal("Error loading cluster config.")
	}
	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Error creating Kubernetes client.")
	}
	kc := kube.NewClient(clientset, o.namespace)

	logs, err := batch.NewLogStore(o.logsDir)
	if err != nil {
		logrus.WithError(err).Fatal("Error setting up the log store.")
	}

	agent := batch.NewAgent(kc, logs, report.NewReporter(), instanceID)
	ctrl := controller.New(kc, agent, kube.Selector(instanceID), resync)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sig
		logrus.WithField("signal", s).Info("Shutting down.")
		cancel()
	}()

	go supervise.Run(ctx, "watcher", ctrl.Watch)
	go supervise.Run(ctx, "sweeper", ctrl.Sweep)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", o.port),
		Handler: server.New(agent).Handler(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Error("Error shutting down the HTTP server.")
		}
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logrus.WithError(err).Fatal("ListenAndServe returned.")
	}
}
