// Copyright (c) 2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/validator.v2"
	"gopkg.in/yaml.v2"
)

// ValidationError is the returned when a configuration fails to pass validation
type ValidationError struct {
	errorMap validator.ErrorMap
}

// ErrForField returns the validation error for the given field
func (e ValidationError) ErrForField(name string) error {
	return e.errorMap[name]
}

// Error returns the error string from a ValidationError
func (e ValidationError) Error() string {
	var w bytes.Buffer

	fields := make([]string, 0, len(e.errorMap))
	for f := range e.errorMap {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	fmt.Fprintf(&w, "validation failed")
	for _, f := range fields {
		fmt.Fprintf(&w, "   %s: %v\n", f, e.errorMap[f])
	}

	return w.String()
}

// Parse loads the given configFiles in order, merges them together, and parse into given
// config interface.
func Parse(config interface{}, configFiles ...string) error {
	if len(configFiles) == 0 {
		return errors.New("no files to load")
	}
	var contents [][]byte
	for _, fname := range configFiles {
		data, err := os.ReadFile(fname)
		if err != nil {
			return errors.Wrapf(err, "read config file %s", fname)
		}
		contents = append(contents, data)
	}
	return ParseBytes(config, contents...)
}

// ParseBytes merges the given yaml documents in order into config, and
// validates the result.
func ParseBytes(config interface{}, contents ...[]byte) error {
	for _, data := range contents {
		if err := yaml.Unmarshal(data, config); err != nil {
			return errors.Wrap(err, "unmarshal yaml config")
		}
	}

	// Validate on the merged config at the end.
	if err := validator.Validate(config); err != nil {
		errorMap, ok := err.(validator.ErrorMap)
		if !ok {
			return err
		}
		return ValidationError{
			errorMap: errorMap,
		}
	}
	return nil
}
