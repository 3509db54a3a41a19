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

package server

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// The pod spec itself is left to the cluster to validate on create;
// the schema only pins the envelope.
const createJobSchemaJSON = `{
	"type": "object",
	"properties": {
		"spec": {"type": "object"},
		"batch_id": {"type": "integer"},
		"attributes": {
			"type": "object",
			"additionalProperties": {"type": "string"}
		},
		"callback": {"type": "string"}
	},
	"required": ["spec"],
	"additionalProperties": false
}`

const createBatchSchemaJSON = `{
	"type": "object",
	"properties": {
		"attributes": {
			"type": "object",
			"additionalProperties": {"type": "string"}
		}
	},
	"additionalProperties": false
}`

var (
	createJobSchema   = mustCompile(createJobSchemaJSON)
	createBatchSchema = mustCompile(createBatchSchemaJSON)
)

func mustCompile(schema string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("bad schema: %v", err))
	}
	return s
}

// validate checks body against schema. On failure it returns a
// diagnostic listing every violation.
func validate(schema *gojsonschema.Schema, body []byte) (string, bool) {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return err.Error(), false
	}
	if result.Valid() {
		return "", true
	}
	var msgs []string
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return strings.Join(msgs, "; "), false
}
