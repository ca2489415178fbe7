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
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrJobAlreadyPlanned is returned when a job is added to a plan which
	// already assigned or kept it.
	ErrJobAlreadyPlanned = errors.New("job is already part of the plan")

	// ErrOfferAlreadyPlanned is returned when an offer is added to a plan
	// which already assigned or stocked it.
	ErrOfferAlreadyPlanned = errors.New("offer is already part of the plan")
)

// Plan is the outcome of one planning cycle. Every job ends up either
// assigned to an offer or kept for the next cycle, and up to maxStock idle
// offers are stocked. Offers that are neither assigned nor stocked are
// released.
type Plan struct {
	maxStock int

	// jobSpecs maps offer id to the jobs assigned to it, in assignment order.
	jobSpecs map[string][]*Job
	// offerIDs lists the assigned offers in the order of first assignment.
	offerIDs []string
	stock    []string
	keep     []*Job

	planned map[*Job]struct{}
	stocked map[string]struct{}
}

// NewPlan creates an empty plan which stocks at most maxStock offers.
func NewPlan(maxStock int) *Plan {
	if maxStock < 0 {
		maxStock = 0
	}
	return &Plan{
		maxStock: maxStock,
		jobSpecs: make(map[string][]*Job),
		planned:  make(map[*Job]struct{}),
		stocked:  make(map[string]struct{}),
	}
}

// MaxStock returns the maximal number of offers this plan stocks.
func (p *Plan) MaxStock() int {
	return p.maxStock
}

// AddJob assigns the job to the offer.
func (p *Plan) AddJob(offerID string, job *Job) error {
	if _, ok := p.planned[job]; ok {
		return errors.Wrapf(ErrJobAlreadyPlanned, "job %s", job.ID)
	}
	if _, ok := p.stocked[offerID]; ok {
		return errors.Wrapf(ErrOfferAlreadyPlanned, "offer %s is stocked", offerID)
	}
	if _, ok := p.jobSpecs[offerID]; !ok {
		p.offerIDs = append(p.offerIDs, offerID)
	}
	p.jobSpecs[offerID] = append(p.jobSpecs[offerID], job)
	p.planned[job] = struct{}{}
	return nil
}

// AddStock stocks the offer unless the plan already holds maxStock offers,
// in which case false is returned and the offer is released.
func (p *Plan) AddStock(offerID string) (bool, error) {
	if _, ok := p.jobSpecs[offerID]; ok {
		return false, errors.Wrapf(ErrOfferAlreadyPlanned, "offer %s is assigned", offerID)
	}
	if _, ok := p.stocked[offerID]; ok {
		return false, errors.Wrapf(ErrOfferAlreadyPlanned, "offer %s is stocked", offerID)
	}
	if len(p.stock) >= p.maxStock {
		return false, nil
	}
	p.stock = append(p.stock, offerID)
	p.stocked[offerID] = struct{}{}
	return true, nil
}

// AddKeep keeps the jobs for the next cycle.
func (p *Plan) AddKeep(jobs ...*Job) error {
	for _, job := range jobs {
		if _, ok := p.planned[job]; ok {
			return errors.Wrapf(ErrJobAlreadyPlanned, "job %s", job.ID)
		}
		p.keep = append(p.keep, job)
		p.planned[job] = struct{}{}
	}
	return nil
}

// JobSpecs returns a copy of the assignments, keyed by offer id.
func (p *Plan) JobSpecs() map[string][]*Job {
	result := make(map[string][]*Job, len(p.jobSpecs))
	for offerID, jobs := range p.jobSpecs {
		result[offerID] = append([]*Job(nil), jobs...)
	}
	return result
}

// OfferIDs returns the ids of the assigned offers, in assignment order.
func (p *Plan) OfferIDs() []string {
	return append([]string(nil), p.offerIDs...)
}

// OfferIDsToStock returns the ids of the stocked offers.
func (p *Plan) OfferIDsToStock() []string {
	return append([]string(nil), p.stock...)
}

// ToKeep returns the jobs kept for the next cycle.
func (p *Plan) ToKeep() []*Job {
	return append([]*Job(nil), p.keep...)
}

// NumAssigned returns the number of assigned jobs.
func (p *Plan) NumAssigned() int {
	return len(p.planned) - len(p.keep)
}

// String returns a human readable summary of the plan.
func (p *Plan) String() string {
	var assignments []string
	for _, offerID := range p.offerIDs {
		var ids []string
		for _, job := range p.jobSpecs[offerID] {
			ids = append(ids, job.ID)
		}
		assignments = append(assignments,
			fmt.Sprintf("%s:[%s]", offerID, strings.Join(ids, ",")))
	}
	return fmt.Sprintf("Plan{assignments={%s} stock=[%s] keep=[%s]}",
		strings.Join(assignments, " "),
		strings.Join(p.stock, ","),
		strings.Join(jobIDs(p.keep), ","))
}

type planJSON struct {
	Assignments map[string][]string `json:"assignments"`
	Stock       []string            `json:"stock"`
	Keep        []string            `json:"keep"`
}

// MarshalJSON encodes the plan with jobs referenced by id.
func (p *Plan) MarshalJSON() ([]byte, error) {
	out := planJSON{
		Assignments: make(map[string][]string, len(p.jobSpecs)),
		Stock:       append([]string{}, p.stock...),
		Keep:        append([]string{}, jobIDs(p.keep)...),
	}
	for offerID, jobs := range p.jobSpecs {
		out.Assignments[offerID] = jobIDs(jobs)
	}
	return json.Marshal(out)
}

func jobIDs(jobs []*Job) []string {
	ids := make([]string, 0, len(jobs))
	for _, job := range jobs {
		ids = append(ids, job.ID)
	}
	return ids
}
