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
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
)

// LogStore persists one log artifact per completed job. Artifacts are
// written exactly once and remain readable after the job is deleted.
type LogStore struct {
	dir string
}

// NewLogStore creates the store directory if needed.
func NewLogStore(dir string) (*LogStore, error) {
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create log dir: %v", err)
		}
	case err != nil:
		return nil, err
	case !info.IsDir():
		return nil, fmt.Errorf("%s exists but is not a directory", dir)
	}
	return &LogStore{dir: dir}, nil
}

// Path returns the artifact path for a job id.
func (s *LogStore) Path(id int64) string {
	return filepath.Join(s.dir, fmt.Sprintf("job-%d.log", id))
}

// Write persists the log artifact for a job id.
func (s *LogStore) Write(id int64, data []byte) error {
	return ioutil.WriteFile(s.Path(id), data, 0644)
}

// Read returns the artifact for a job id, or a NotFoundError when none
// was ever written.
func (s *LogStore) Read(id int64) ([]byte, error) {
	data, err := ioutil.ReadFile(s.Path(id))
	if os.IsNotExist(err) {
		return nil, notFound("no log for job %d", id)
	}
	return data, err
}
