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

package plugins

//go:generate mockgen -destination=mocks/mock_strategy.go -package=mocks github.com/uber/offerplanner/pkg/planner/plugins Strategy

import (
	"github.com/uber/offerplanner/pkg/planner/models"
)

// DefaultMaxStock is the number of idle offers a plan stocks when nothing
// else is configured.
const DefaultMaxStock = 10

// Strategy is a placement strategy that does all the matching of jobs to
// offers for one planning cycle.
type Strategy interface {
	// Name returns the configured name of the strategy.
	Name() string

	// Place assigns jobs to offers and records the outcome in the plan:
	// every job is either assigned or kept, idle offers are offered to the
	// plan's stock in the order the strategy considers them. Offers are
	// given in a deterministic order and neither offers nor jobs may be
	// modified.
	// An error aborts the cycle, the plan must then be discarded.
	Place(offers []*models.Offer, jobs []*models.Job, plan *models.Plan) error
}

// StockRemaining offers the remaining offers to the plan's stock until the
// plan refuses, and returns how many offers were stocked.
func StockRemaining(offers []*models.Offer, plan *models.Plan) (int, error) {
	stocked := 0
	for _, offer := range offers {
		ok, err := plan.AddStock(offer.ID)
		if err != nil {
			return stocked, err
		}
		if !ok {
			break
		}
		stocked++
	}
	return stocked, nil
}
