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

package models

import (
	"fmt"

	"github.com/uber/offerplanner/pkg/planner/scalar"
)

// Job is a pending unit of work waiting for an offer.
type Job struct {
	// ID identifies the job towards the caller.
	ID string
	// Name is the human readable name of the job, e.g. the application name.
	Name string
	// Priority of the job, a higher value is more urgent.
	Priority int
	// Resources is what the job needs from an offer.
	Resources scalar.Resources
	// Constraint is the attribute requirement of the job, empty if the
	// job can run anywhere.
	Constraint string
}

// NewJob creates a new job without constraint.
func NewJob(id string, priority int, resources scalar.Resources) *Job {
	return &Job{
		ID:        id,
		Name:      id,
		Priority:  priority,
		Resources: resources,
	}
}

// WithConstraint returns the job with the attribute requirement set.
func (j *Job) WithConstraint(constraint string) *Job {
	j.Constraint = constraint
	return j
}

// HasConstraint returns true if the job carries an attribute requirement.
func (j *Job) HasConstraint() bool {
	return j.Constraint != ""
}

// String returns a short description of the job.
func (j *Job) String() string {
	if j.HasConstraint() {
		return fmt.Sprintf("%s(prio=%d %v attrs=%s)",
			j.ID, j.Priority, j.Resources, j.Constraint)
	}
	return fmt.Sprintf("%s(prio=%d %v)", j.ID, j.Priority, j.Resources)
}
