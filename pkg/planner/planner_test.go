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
	"encoding/json"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
	"github.com/uber-go/tally/v4"

	"github.com/uber/offerplanner/pkg/common/logging"
	"github.com/uber/offerplanner/pkg/planner/attributes"
	"github.com/uber/offerplanner/pkg/planner/config"
	"github.com/uber/offerplanner/pkg/planner/models"
	"github.com/uber/offerplanner/pkg/planner/plugins/attr"
	"github.com/uber/offerplanner/pkg/planner/plugins/binpack"
	"github.com/uber/offerplanner/pkg/planner/plugins/mocks"
	"github.com/uber/offerplanner/pkg/planner/scalar"
	"github.com/uber/offerplanner/pkg/planner/testutil"
)

type PlannerTestSuite struct {
	suite.Suite

	scope tally.TestScope
	cfg   *config.PlannerConfig
}

func (suite *PlannerTestSuite) SetupTest() {
	suite.scope = tally.NewTestScope("", map[string]string{})
	suite.cfg = &config.PlannerConfig{
		Strategy: config.Attr,
		MaxStock: 3,
	}
}

func TestPlanner(t *testing.T) {
	suite.Run(t, new(PlannerTestSuite))
}

func (suite *PlannerTestSuite) newPlanner() Planner {
	strategy, err := NewStrategy(suite.cfg.Strategy)
	suite.NoError(err)
	return New(suite.scope, suite.cfg, strategy)
}

func (suite *PlannerTestSuite) counter(name string) int64 {
	counter, ok := suite.scope.Snapshot().Counters()[name]
	if !ok {
		return 0
	}
	return counter.Value()
}

func (suite *PlannerTestSuite) gauge(name string) float64 {
	gauge, ok := suite.scope.Snapshot().Gauges()[name]
	if !ok {
		return 0
	}
	return gauge.Value()
}

func (suite *PlannerTestSuite) assertPlan(
	plan *models.Plan,
	assignments map[string][]*models.Job,
	stock []string,
	keep []*models.Job) {
	suite.Equal(len(assignments), len(plan.JobSpecs()))
	for offerID, jobs := range assignments {
		suite.Equal(jobs, plan.JobSpecs()[offerID], offerID)
	}
	suite.ElementsMatch(stock, plan.OfferIDsToStock())
	suite.ElementsMatch(keep, plan.ToKeep())
}

func (suite *PlannerTestSuite) TestPlanSmallJob() {
	job := testutil.SetupJob(64, "")
	plan, err := suite.newPlanner().Plan(testutil.SetupOffers(), []*models.Job{job})
	suite.NoError(err)
	suite.assertPlan(plan,
		map[string][]*models.Job{"abc": {job}},
		[]string{"def"},
		nil)
}

func (suite *PlannerTestSuite) TestPlanMemoryBoundJob() {
	job := testutil.SetupJob(129, "")
	plan, err := suite.newPlanner().Plan(testutil.SetupOffers(), []*models.Job{job})
	suite.NoError(err)
	suite.assertPlan(plan,
		map[string][]*models.Job{"def": {job}},
		[]string{"abc"},
		nil)
}

func (suite *PlannerTestSuite) TestPlanJobTooLarge() {
	job := testutil.SetupJob(1024, "")
	plan, err := suite.newPlanner().Plan(testutil.SetupOffers(), []*models.Job{job})
	suite.NoError(err)
	suite.assertPlan(plan,
		nil,
		[]string{"abc", "def"},
		[]*models.Job{job})
}

func (suite *PlannerTestSuite) TestPlanAttributeMatch() {
	job := testutil.SetupJob(129, "rack:A")
	plan, err := suite.newPlanner().Plan(testutil.SetupAttrOffers(), []*models.Job{job})
	suite.NoError(err)
	suite.assertPlan(plan,
		map[string][]*models.Job{"ghi": {job}},
		[]string{"abc", "def"},
		nil)
}

func (suite *PlannerTestSuite) TestPlanAttributeNoMatch() {
	job := testutil.SetupJob(1024, "rack:B")
	plan, err := suite.newPlanner().Plan(testutil.SetupAttrOffers(), []*models.Job{job})
	suite.NoError(err)
	suite.assertPlan(plan,
		nil,
		[]string{"abc", "def", "ghi"},
		[]*models.Job{job})
}

func (suite *PlannerTestSuite) TestPlanMixedJobs() {
	large := testutil.SetupJob(129, "")
	rackB := testutil.SetupJob(64, "rack:B")
	rackA := testutil.SetupJob(64, "rack:A")

	plan, err := suite.newPlanner().Plan(
		testutil.SetupAttrOffers(),
		[]*models.Job{large, rackB, rackA})
	suite.NoError(err)
	suite.assertPlan(plan,
		map[string][]*models.Job{
			"ghi": {rackA},
			"def": {large},
		},
		[]string{"abc"},
		[]*models.Job{rackB})
	suite.Equal([]string{"ghi", "def"}, plan.OfferIDs())
}

func (suite *PlannerTestSuite) TestPlanMetrics() {
	large := testutil.SetupJob(129, "")
	rackB := testutil.SetupJob(64, "rack:B")
	rackA := testutil.SetupJob(64, "rack:A")
	offers := testutil.SetupAttrOffers()
	offers["jkl"] = models.NewOffer("jkl", scalar.Resources{CPU: 0.5})
	suite.cfg.MaxStock = 1

	_, err := suite.newPlanner().Plan(offers, []*models.Job{large, rackB, rackA})
	suite.NoError(err)

	suite.Equal(int64(1), suite.counter("plan+result=success"))
	suite.Equal(int64(0), suite.counter("plan+result=fail"))
	suite.Equal(int64(2), suite.counter("job.assigned+"))
	suite.Equal(int64(1), suite.counter("job.kept+"))
	suite.Equal(int64(2), suite.counter("offer.assigned+"))
	suite.Equal(int64(1), suite.counter("offer.stocked+"))
	suite.Equal(int64(1), suite.counter("offer.released+"))
	suite.Equal(float64(4), suite.gauge("offer.available+"))
	suite.Equal(float64(3), suite.gauge("job.pending+"))
}

func (suite *PlannerTestSuite) TestPlanInvariants() {
	offers := testutil.SetupAttrOffers()
	offers["gpu"] = models.NewOffer("gpu",
		scalar.Resources{CPU: 4, Mem: 512, GPU: 2},
		attributes.NewScalar("zone", 2))
	jobs := []*models.Job{
		testutil.SetupJob(64, ""),
		testutil.SetupJob(64, "zone:2"),
		testutil.SetupJob(300, ""),
		testutil.SetupJob(64, "rack:A"),
		testutil.SetupJob(64, "rack:C"),
		testutil.SetupJob(8, ""),
	}
	jobs[2].Priority = 5

	plan, err := suite.newPlanner().Plan(offers, jobs)
	suite.NoError(err)

	seen := make(map[*models.Job]int)
	for offerID, assigned := range plan.JobSpecs() {
		suite.Len(assigned, 1, offerID)
		offer := offers[offerID]
		for _, job := range assigned {
			seen[job]++
			suite.True(offer.Resources.Fits(job.Resources), job.ID)
			ok, err := attributes.Matches(offer.Attributes, job.Constraint)
			suite.NoError(err)
			suite.True(ok, job.ID)
		}
	}
	for _, job := range plan.ToKeep() {
		seen[job]++
	}
	suite.Len(seen, len(jobs))
	for _, job := range jobs {
		suite.Equal(1, seen[job], job.ID)
	}

	suite.LessOrEqual(len(plan.OfferIDsToStock()), suite.cfg.MaxStock)
	for _, offerID := range plan.OfferIDsToStock() {
		_, assigned := plan.JobSpecs()[offerID]
		suite.False(assigned, offerID)
	}
}

func (suite *PlannerTestSuite) TestPlanDeterministic() {
	jobs := []*models.Job{
		testutil.SetupJob(64, ""),
		testutil.SetupJob(129, "rack:A"),
		testutil.SetupJob(32, ""),
	}
	p := suite.newPlanner()

	first, err := p.Plan(testutil.SetupAttrOffers(), jobs)
	suite.NoError(err)
	for i := 0; i < 10; i++ {
		next, err := p.Plan(testutil.SetupAttrOffers(), jobs)
		suite.NoError(err)
		suite.Equal(first.String(), next.String())

		a, err := json.Marshal(first)
		suite.NoError(err)
		b, err := json.Marshal(next)
		suite.NoError(err)
		suite.JSONEq(string(a), string(b))
	}
}

func (suite *PlannerTestSuite) TestPlanDoesNotMutateInputs() {
	offers := testutil.SetupAttrOffers()
	low := testutil.SetupJob(64, "")
	high := testutil.SetupJob(64, "rack:A")
	high.Priority = 10
	jobs := []*models.Job{low, high}

	_, err := suite.newPlanner().Plan(offers, jobs)
	suite.NoError(err)

	suite.Len(offers, 3)
	suite.Equal([]*models.Job{low, high}, jobs)
	suite.Equal(uint64(128), offers["abc"].Resources.Mem)
}

func (suite *PlannerTestSuite) TestPlanBinPack() {
	suite.cfg.Strategy = config.BinPack
	suite.cfg.MaxStock = 1
	offers := map[string]*models.Offer{
		"abc": models.NewOffer("abc", scalar.Resources{CPU: 2, Mem: 256}),
		"def": models.NewOffer("def", scalar.Resources{CPU: 1, Mem: 256}),
		"ghi": models.NewOffer("ghi", scalar.Resources{CPU: 1, Mem: 256}),
	}
	j1 := testutil.SetupJob(64, "rack:Z")
	j2 := testutil.SetupJob(64, "")
	j3 := testutil.SetupJob(64, "")

	plan, err := suite.newPlanner().Plan(offers, []*models.Job{j1, j2, j3})
	suite.NoError(err)
	suite.assertPlan(plan,
		map[string][]*models.Job{
			"abc": {j1, j2},
			"def": {j3},
		},
		[]string{"ghi"},
		nil)
}

func (suite *PlannerTestSuite) TestPlanMalformedConstraint() {
	job := testutil.SetupJob(64, "rack")
	plan, err := suite.newPlanner().Plan(testutil.SetupAttrOffers(), []*models.Job{job})
	suite.Nil(plan)
	suite.Equal(attributes.ErrInvalidRequirement, errors.Cause(err))
	suite.Equal(int64(1), suite.counter("plan+result=fail"))
	suite.Equal(int64(0), suite.counter("plan+result=success"))
}

func (suite *PlannerTestSuite) TestPlanStrategyError() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	strategy := mocks.NewMockStrategy(ctrl)
	strategy.EXPECT().Name().Return("mock").AnyTimes()
	strategy.EXPECT().
		Place(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(attributes.ErrUnsupportedAttribute)

	p := New(suite.scope, suite.cfg, strategy)
	plan, err := p.Plan(testutil.SetupOffers(), []*models.Job{testutil.SetupJob(64, "")})
	suite.Nil(plan)
	suite.Equal(attributes.ErrUnsupportedAttribute, err)
	suite.Equal(int64(1), suite.counter("plan+result=fail"))
}

func (suite *PlannerTestSuite) TestPlanPassesSortedSnapshot() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	first := testutil.SetupJob(64, "")
	second := testutil.SetupJob(8, "")
	jobs := []*models.Job{first, second}
	strategy := mocks.NewMockStrategy(ctrl)
	strategy.EXPECT().Name().Return("mock").AnyTimes()
	strategy.EXPECT().
		Place(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(
			offers []*models.Offer,
			queue []*models.Job,
			plan *models.Plan) error {
			suite.Len(offers, 3)
			suite.Equal("abc", offers[0].ID)
			suite.Equal("def", offers[1].ID)
			suite.Equal("ghi", offers[2].ID)
			suite.Equal(jobs, queue)
			suite.Equal(3, plan.MaxStock())
			// Reordering the queue must not leak to the caller.
			queue[0], queue[1] = queue[1], queue[0]
			return plan.AddKeep(queue...)
		})

	plan, err := New(suite.scope, suite.cfg, strategy).Plan(testutil.SetupAttrOffers(), jobs)
	suite.NoError(err)
	suite.Len(plan.ToKeep(), 2)
	suite.Equal(int64(3), suite.counter("offer.released+"))
	suite.Equal([]*models.Job{first, second}, jobs)
}

func (suite *PlannerTestSuite) TestPlanConfigIsCopied() {
	p := suite.newPlanner()
	suite.cfg.MaxStock = 0

	plan, err := p.Plan(testutil.SetupOffers(), nil)
	suite.NoError(err)
	suite.Len(plan.OfferIDsToStock(), 2)
}

func (suite *PlannerTestSuite) TestPlanCountsLevelOverrideCycles() {
	defer log.SetLevel(log.InfoLevel)

	override := logging.NewLevelOverride(log.InfoLevel)
	suite.NoError(override.Set(log.DebugLevel, 0, 2))

	strategy, err := NewStrategy(config.Attr)
	suite.NoError(err)
	p := New(suite.scope, suite.cfg, strategy, WithLevelOverride(override))

	_, err = p.Plan(testutil.SetupOffers(), []*models.Job{testutil.SetupJob(64, "")})
	suite.NoError(err)
	suite.Equal(log.DebugLevel, log.GetLevel())

	// Failed cycles count as well.
	_, err = p.Plan(testutil.SetupAttrOffers(), []*models.Job{testutil.SetupJob(64, "rack")})
	suite.Error(err)
	suite.False(override.Active())
	suite.Equal(log.InfoLevel, log.GetLevel())
}

func (suite *PlannerTestSuite) TestNewStrategy() {
	s, err := NewStrategy(config.Attr)
	suite.NoError(err)
	suite.Equal(attr.Name, s.Name())

	s, err = NewStrategy("")
	suite.NoError(err)
	suite.Equal(attr.Name, s.Name())

	s, err = NewStrategy(config.BinPack)
	suite.NoError(err)
	suite.Equal(binpack.Name, s.Name())

	_, err = NewStrategy("random")
	suite.Error(err)
}
