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

package kube

import (
	"fmt"

	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// LoadClusterConfig returns the rest config for the cluster we run
// against. With useKubeConfig it loads kubeconfig rules (the explicit
// path wins over the default loading rules); otherwise it loads the
// in-cluster service account credentials.
func LoadClusterConfig(useKubeConfig bool, kubeconfig string) (*rest.Config, error) {
	if !useKubeConfig {
		return rest.InClusterConfig()
	}
	var loader clientcmd.ClientConfigLoader
	if kubeconfig != "" {
		loader = &clientcmd.ClientConfigLoadingRules{ExplicitPath: kubeconfig}
	} else {
		loader = clientcmd.NewDefaultClientConfigLoadingRules()
	}
	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loader, &clientcmd.ConfigOverrides{}).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig: %v", err)
	}
	return cfg, nil
}
