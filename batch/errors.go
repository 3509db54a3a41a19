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
	"errors"
	"fmt"
)

// NotFoundError reports a lookup for an id the registry does not know.
type NotFoundError struct {
	msg string
}

func (e NotFoundError) Error() string { return e.msg }

func notFound(format string, args ...interface{}) error {
	return NotFoundError{msg: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// BadRequestError reports a request that references an unknown id or
// otherwise cannot be honored as written.
type BadRequestError struct {
	msg string
}

func (e BadRequestError) Error() string { return e.msg }

func badRequest(format string, args ...interface{}) error {
	return BadRequestError{msg: fmt.Sprintf(format, args...)}
}

// IsBadRequest reports whether err is a BadRequestError.
func IsBadRequest(err error) bool {
	var br BadRequestError
	return errors.As(err, &br)
}
