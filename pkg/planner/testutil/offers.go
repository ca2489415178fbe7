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

package testutil

import (
	"fmt"

	"go.uber.org/atomic"

	"github.com/uber/offerplanner/pkg/planner/attributes"
	"github.com/uber/offerplanner/pkg/planner/models"
	"github.com/uber/offerplanner/pkg/planner/scalar"
)

var _jobCount atomic.Int64

// SetupOffers creates the offers abc (cpu 2, mem 128) and def (cpu 1,
// mem 256), both without attributes.
func SetupOffers() map[string]*models.Offer {
	return map[string]*models.Offer{
		"abc": models.NewOffer("abc", scalar.Resources{CPU: 2.0, Mem: 128, Disk: 555}),
		"def": models.NewOffer("def", scalar.Resources{CPU: 1.0, Mem: 256, Disk: 123}),
	}
}

// SetupAttrOffers creates the offers of SetupOffers plus ghi (cpu 1,
// mem 256) carrying the text attribute rack=A.
func SetupAttrOffers() map[string]*models.Offer {
	offers := SetupOffers()
	offers["ghi"] = models.NewOffer(
		"ghi",
		scalar.Resources{CPU: 1.0, Mem: 256, Disk: 123},
		attributes.NewText("rack", "A"))
	return offers
}

// SetupJob creates a job needing one cpu and the given memory, with an
// optional attribute constraint.
func SetupJob(mem uint64, constraint string) *models.Job {
	return models.NewJob(
		fmt.Sprintf("job-%d", _jobCount.Inc()),
		0,
		scalar.Resources{CPU: 1, Mem: mem},
	).WithConstraint(constraint)
}
