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

// Package ordering decides in which order pending jobs get to claim offers.
//
// Jobs are ordered
//  1. by priority, higher priority first,
//  2. jobs with an attribute constraint before jobs without one,
//  3. by required number of GPUs, more GPUs first.
//
// The first key puts important work first; the other two are heuristics to
// place jobs first that are harder to place. Jobs equal on every key keep
// their queue order.
package ordering

import (
	"github.com/uber/offerplanner/pkg/common/sorter"
	"github.com/uber/offerplanner/pkg/planner/models"
)

// ByPriority orders jobs with higher priority first.
func ByPriority(j1, j2 *models.Job) bool {
	return j1.Priority > j2.Priority
}

// ByConstraint orders jobs carrying an attribute constraint first.
func ByConstraint(j1, j2 *models.Job) bool {
	return j1.HasConstraint() && !j2.HasConstraint()
}

// ByGPU orders jobs needing more GPUs first.
func ByGPU(j1, j2 *models.Job) bool {
	return j1.Resources.GPU > j2.Resources.GPU
}

// keys returns the composite key used to order the job queue.
func keys() []sorter.LessFunc[*models.Job] {
	return []sorter.LessFunc[*models.Job]{
		ByPriority,
		ByConstraint,
		ByGPU,
	}
}

// Sort returns the jobs in processing order. The given slice is not
// modified.
func Sort(jobs []*models.Job) []*models.Job {
	return sorter.OrderedBy(keys()...).Sorted(jobs)
}
