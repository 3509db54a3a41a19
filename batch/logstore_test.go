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
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestLogStoreRoundTrip(t *testing.T) {
	s, err := NewLogStore(filepath.Join(t.TempDir(), "logs"))
	if err != nil {
		t.Fatalf("NewLogStore: %v", err)
	}
	if err := s.Write(7, []byte("hello\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read(7)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "hello\n" {
		t.Errorf("Read = %q, want %q", got, "hello\n")
	}
	if _, err := s.Read(8); !IsNotFound(err) {
		t.Errorf("Read(8) = %v, want NotFoundError", err)
	}
}

func TestLogStorePath(t *testing.T) {
	s, err := NewLogStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLogStore: %v", err)
	}
	if got, want := filepath.Base(s.Path(12)), "job-12.log"; got != want {
		t.Errorf("Path(12) basename = %q, want %q", got, want)
	}
}

func TestLogStoreNotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs")
	if err := ioutil.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewLogStore(path); err == nil {
		t.Error("NewLogStore on a file succeeded, want error")
	}
}

func TestLogStoreExistingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if _, err := NewLogStore(dir); err != nil {
		t.Errorf("NewLogStore on existing dir: %v", err)
	}
}
