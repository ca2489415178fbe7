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

package planner

import (
	"time"

	"github.com/pborman/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally/v4"

	"github.com/uber/offerplanner/pkg/common/logging"
	"github.com/uber/offerplanner/pkg/planner/config"
	"github.com/uber/offerplanner/pkg/planner/metrics"
	"github.com/uber/offerplanner/pkg/planner/models"
	"github.com/uber/offerplanner/pkg/planner/plugins"
)

// Planner turns the offers and pending jobs of one scheduling cycle into a
// plan.
type Planner interface {
	// Plan assigns the jobs to the offers. The offers map and the jobs slice
	// are not modified. The returned error is only set when a job constraint
	// could not be evaluated, in which case no plan is produced.
	Plan(offers map[string]*models.Offer, jobs []*models.Job) (*models.Plan, error)
}

// Option configures optional behavior of a planner.
type Option func(*planner)

// WithLevelOverride counts every finished planning cycle against the given
// log level override, so debug logging can be enabled for a number of
// cycles.
func WithLevelOverride(override *logging.LevelOverride) Option {
	return func(p *planner) {
		p.levelOverride = override
	}
}

// New creates a new planner running the given strategy.
func New(
	scope tally.Scope,
	cfg *config.PlannerConfig,
	strategy plugins.Strategy,
	opts ...Option,
) Planner {
	p := &planner{
		config:   cfg.Copy(),
		strategy: strategy,
		metrics:  metrics.NewMetrics(scope),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type planner struct {
	config        *config.PlannerConfig
	strategy      plugins.Strategy
	metrics       *metrics.Metrics
	levelOverride *logging.LevelOverride
}

// Plan is an implementation of the Planner interface.
func (p *planner) Plan(
	offers map[string]*models.Offer,
	jobs []*models.Job,
) (*models.Plan, error) {
	cycleID := uuid.New()
	start := time.Now()
	if p.levelOverride != nil {
		defer p.levelOverride.CycleDone()
	}

	snapshot := models.OffersByID(offers)
	queue := make([]*models.Job, len(jobs))
	copy(queue, jobs)

	p.metrics.OffersAvailable.Update(float64(len(snapshot)))
	p.metrics.JobsPending.Update(float64(len(queue)))

	plan := models.NewPlan(p.config.MaxStock)
	if err := p.strategy.Place(snapshot, queue, plan); err != nil {
		p.metrics.PlansFail.Inc(1)
		log.WithFields(log.Fields{
			"cycle_id": cycleID,
			"strategy": p.strategy.Name(),
			"offers":   len(snapshot),
			"jobs":     len(queue),
		}).WithError(err).Error("Failed to plan cycle")
		return nil, err
	}

	assigned := len(plan.OfferIDs())
	stocked := len(plan.OfferIDsToStock())
	p.metrics.Plans.Inc(1)
	p.metrics.JobsAssigned.Inc(int64(plan.NumAssigned()))
	p.metrics.JobsKept.Inc(int64(len(plan.ToKeep())))
	p.metrics.OffersAssigned.Inc(int64(assigned))
	p.metrics.OffersStocked.Inc(int64(stocked))
	p.metrics.OffersReleased.Inc(int64(len(snapshot) - assigned - stocked))
	p.metrics.PlanDuration.Record(time.Since(start))

	log.WithFields(log.Fields{
		"cycle_id": cycleID,
		"strategy": p.strategy.Name(),
		"plan":     plan.String(),
	}).Debug("Plan => ")
	return plan, nil
}
