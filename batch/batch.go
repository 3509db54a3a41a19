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

// Batch groups jobs for aggregate status reporting. Membership is held
// as job ids so a Batch never outlives its usefulness as a plain value;
// the registry keeps both sides of the relation coherent.
type Batch struct {
	ID         int64
	Attributes map[string]string
	JobIDs     []int64
}

// StateCounts tallies batch members per state.
type StateCounts struct {
	Created   int `json:"Created"`
	Complete  int `json:"Complete"`
	Cancelled int `json:"Cancelled"`
}

// BatchDocument is the public JSON form of a Batch.
type BatchDocument struct {
	ID         int64             `json:"id"`
	Jobs       StateCounts       `json:"jobs"`
	Attributes map[string]string `json:"attributes"`
}
