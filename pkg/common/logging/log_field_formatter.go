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

package logging

import (
	log "github.com/sirupsen/logrus"
)

// LogFieldFormatter adds a fixed set of fields to every log entry before
// handing it to the wrapped formatter. Fields set on the entry win over the
// fixed ones.
type LogFieldFormatter struct {
	log.Formatter
	Fields log.Fields
}

// Format is called by logrus and returns the formatted entry.
func (f LogFieldFormatter) Format(entry *log.Entry) ([]byte, error) {
	data := make(log.Fields, len(entry.Data)+len(f.Fields))
	for k, v := range f.Fields {
		data[k] = v
	}
	for k, v := range entry.Data {
		data[k] = v
	}
	formatted := *entry
	formatted.Data = data
	return f.Formatter.Format(&formatted)
}
