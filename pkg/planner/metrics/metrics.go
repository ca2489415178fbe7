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

package metrics

import (
	"github.com/uber-go/tally/v4"
)

// Metrics contains all the metrics relevant to the planner
type Metrics struct {
	// Plans counts the successful planning cycles.
	Plans tally.Counter
	// PlansFail counts the planning cycles aborted with an error.
	PlansFail tally.Counter
	// PlanDuration times a planning cycle.
	PlanDuration tally.Timer

	// JobsAssigned counts jobs assigned to an offer.
	JobsAssigned tally.Counter
	// JobsKept counts jobs kept for the next cycle.
	JobsKept tally.Counter
	// JobsPending is the size of the job queue of the last cycle.
	JobsPending tally.Gauge

	// OffersAssigned counts offers that received at least one job.
	OffersAssigned tally.Counter
	// OffersStocked counts idle offers held back for the next cycle.
	OffersStocked tally.Counter
	// OffersReleased counts offers neither assigned nor stocked.
	OffersReleased tally.Counter
	// OffersAvailable is the number of offers of the last cycle.
	OffersAvailable tally.Gauge
}

// NewMetrics returns a new Metrics struct with all metrics initialized and
// rooted below the given tally scope
func NewMetrics(scope tally.Scope) *Metrics {
	jobScope := scope.SubScope("job")
	offerScope := scope.SubScope("offer")

	planSuccessScope := scope.Tagged(map[string]string{"result": "success"})
	planFailScope := scope.Tagged(map[string]string{"result": "fail"})

	return &Metrics{
		Plans:        planSuccessScope.Counter("plan"),
		PlansFail:    planFailScope.Counter("plan"),
		PlanDuration: scope.Timer("plan_duration"),

		JobsAssigned: jobScope.Counter("assigned"),
		JobsKept:     jobScope.Counter("kept"),
		JobsPending:  jobScope.Gauge("pending"),

		OffersAssigned:  offerScope.Counter("assigned"),
		OffersStocked:   offerScope.Counter("stocked"),
		OffersReleased:  offerScope.Counter("released"),
		OffersAvailable: offerScope.Gauge("available"),
	}
}
