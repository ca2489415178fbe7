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

package binpack

import (
	log "github.com/sirupsen/logrus"

	"github.com/uber/offerplanner/pkg/planner/models"
	"github.com/uber/offerplanner/pkg/planner/plugins"
	"github.com/uber/offerplanner/pkg/planner/scalar"
)

// Name is the configured name of the bin-packing strategy.
const Name = "binpack"

// New creates a new bin-packing placement strategy.
func New() plugins.Strategy {
	log.Info("Using binpack placement strategy.")
	return &binpack{}
}

// binpack fills up offers with jobs one at a time, in queue order. It only
// looks at resources, attribute constraints of the jobs are ignored.
type binpack struct{}

// Name is an implementation of the plugins.Strategy interface.
func (s *binpack) Name() string {
	return Name
}

// Place is an implementation of the plugins.Strategy interface.
func (s *binpack) Place(
	offers []*models.Offer,
	jobs []*models.Job,
	plan *models.Plan,
) error {
	unassigned := jobs
	stocked := 0
	var placed []scalar.Resources
	for _, offer := range offers {
		var assigned []*models.Job
		assigned, unassigned = s.fillOffer(offer, unassigned)
		for _, job := range assigned {
			if err := plan.AddJob(offer.ID, job); err != nil {
				return err
			}
			placed = append(placed, job.Resources)
		}
		if len(assigned) > 0 {
			continue
		}
		ok, err := plan.AddStock(offer.ID)
		if err != nil {
			return err
		}
		if ok {
			stocked++
		}
	}

	if err := plan.AddKeep(unassigned...); err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"jobs":       len(jobs),
		"offers":     len(offers),
		"unassigned": len(unassigned),
		"stocked":    stocked,
		"placed":     scalar.Sum(placed...).String(),
		"strategy":   Name,
	}).Debug("Place binpack strategy returned")
	return nil
}

// fillOffer takes jobs from the front of the queue as long as they fit into
// what is left of the offer, and returns the taken jobs and the rest of the
// queue. It stops at the first job that does not fit.
func (s *binpack) fillOffer(
	offer *models.Offer,
	unassigned []*models.Job,
) ([]*models.Job, []*models.Job) {
	remaining := offer.GetAvailableResources()
	for i, job := range unassigned {
		left, ok := remaining.TrySubtract(job.Resources)
		if !ok {
			return unassigned[:i], unassigned[i:]
		}
		remaining = left
	}
	return unassigned, nil
}
