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

package attr

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/uber/offerplanner/pkg/planner/attributes"
	"github.com/uber/offerplanner/pkg/planner/models"
	"github.com/uber/offerplanner/pkg/planner/ordering"
	"github.com/uber/offerplanner/pkg/planner/plugins"
)

// Name is the configured name of the attribute strategy.
const Name = "attr"

// New creates a new attribute aware placement strategy.
func New() plugins.Strategy {
	log.Info("Using attr placement strategy.")
	return &attr{}
}

// attr places at most one job per offer. Jobs are walked in the order of
// the ordering package and each takes the first remaining offer that has
// enough resources and satisfies the attribute constraint of the job.
type attr struct{}

// Name is an implementation of the plugins.Strategy interface.
func (s *attr) Name() string {
	return Name
}

// Place is an implementation of the plugins.Strategy interface.
func (s *attr) Place(
	offers []*models.Offer,
	jobs []*models.Job,
	plan *models.Plan,
) error {
	queue := ordering.Sort(jobs)

	available := make([]*models.Offer, len(offers))
	copy(available, offers)

	var unmatched []*models.Job
	for _, job := range queue {
		idx, err := s.findOffer(available, job)
		if err != nil {
			return errors.Wrapf(err, "job %s", job.ID)
		}
		if idx < 0 {
			unmatched = append(unmatched, job)
			continue
		}
		if err := plan.AddJob(available[idx].ID, job); err != nil {
			return err
		}
		available = append(available[:idx], available[idx+1:]...)
	}

	if err := plan.AddKeep(unmatched...); err != nil {
		return err
	}

	stocked, err := plugins.StockRemaining(available, plan)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"jobs":      len(queue),
		"offers":    len(offers),
		"unmatched": len(unmatched),
		"stocked":   stocked,
		"released":  len(available) - stocked,
		"strategy":  Name,
	}).Debug("Place attr strategy returned")
	return nil
}

// findOffer returns the index of the first offer that fits the job, or -1.
// The constraint is only parsed once an offer with enough resources and at
// least one attribute has to be checked against it.
func (s *attr) findOffer(
	offers []*models.Offer,
	job *models.Job,
) (int, error) {
	req := &requirement{raw: job.Constraint}
	for i, offer := range offers {
		if !offer.Resources.Fits(job.Resources) {
			continue
		}
		ok, err := req.matches(offer.Attributes)
		if err != nil {
			return -1, errors.Wrapf(err, "offer %s", offer.ID)
		}
		if ok {
			return i, nil
		}
	}
	return -1, nil
}

// requirement parses the constraint of a job on first use.
type requirement struct {
	raw    string
	parsed attributes.Requirement
	done   bool
}

func (r *requirement) matches(attrs []*attributes.Attribute) (bool, error) {
	if !r.done {
		if len(attrs) == 0 {
			return attributes.Matches(attrs, r.raw)
		}
		parsed, err := attributes.ParseRequirement(r.raw)
		if err != nil {
			return false, err
		}
		r.parsed = parsed
		r.done = true
	}
	return r.parsed.Matches(attrs)
}
