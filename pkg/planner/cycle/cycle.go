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

// Package cycle decodes the offers and pending jobs of one scheduling cycle
// from a YAML or JSON document, as handed over by the upstream offer and
// job sources.
package cycle

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/uber/offerplanner/pkg/planner/attributes"
	"github.com/uber/offerplanner/pkg/planner/models"
	"github.com/uber/offerplanner/pkg/planner/scalar"
)

// Cycle is the input document of one planning cycle.
type Cycle struct {
	OfferList []Offer `yaml:"offers" json:"offers"`
	JobList   []Job   `yaml:"jobs" json:"jobs"`
}

// Offer is an offer as listed in a cycle document.
type Offer struct {
	ID         string           `yaml:"id" json:"id"`
	Hostname   string           `yaml:"hostname" json:"hostname"`
	Resources  scalar.Resources `yaml:"resources" json:"resources"`
	Attributes []Attribute      `yaml:"attributes" json:"attributes"`
}

// Attribute is an offer attribute as listed in a cycle document. Type is
// one of text, scalar, ranges or set and selects the value field.
type Attribute struct {
	Name   string   `yaml:"name" json:"name"`
	Type   string   `yaml:"type" json:"type"`
	Text   string   `yaml:"text" json:"text,omitempty"`
	Scalar float64  `yaml:"scalar" json:"scalar,omitempty"`
	Ranges []Range  `yaml:"ranges" json:"ranges,omitempty"`
	Set    []string `yaml:"set" json:"set,omitempty"`
}

// Range is a closed range of a ranges attribute.
type Range struct {
	Begin uint64 `yaml:"begin" json:"begin"`
	End   uint64 `yaml:"end" json:"end"`
}

// Job is a pending job as listed in a cycle document.
type Job struct {
	ID         string           `yaml:"id" json:"id"`
	Name       string           `yaml:"name" json:"name"`
	Priority   int              `yaml:"priority" json:"priority"`
	Resources  scalar.Resources `yaml:"resources" json:"resources"`
	Constraint string           `yaml:"constraint" json:"constraint"`
}

// Load reads and decodes the cycle document at path.
func Load(path string) (*Cycle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read cycle file %s", path)
	}
	return Decode(data)
}

// Decode decodes a cycle document and validates it. JSON documents are
// accepted as they are valid YAML.
func Decode(data []byte) (*Cycle, error) {
	var c Cycle
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "failed to decode cycle")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate returns all problems of the document at once, or nil.
func (c *Cycle) Validate() error {
	var result *multierror.Error

	offerIDs := make(map[string]struct{}, len(c.OfferList))
	for i, offer := range c.OfferList {
		if offer.ID == "" {
			result = multierror.Append(result, fmt.Errorf("offer #%d: empty id", i))
		} else if _, ok := offerIDs[offer.ID]; ok {
			result = multierror.Append(result, fmt.Errorf("offer %s: duplicate id", offer.ID))
		}
		offerIDs[offer.ID] = struct{}{}

		if offer.Resources.CPU < 0 {
			result = multierror.Append(result, fmt.Errorf("offer %s: negative cpu %v", offer.ID, offer.Resources.CPU))
		}
		for _, attr := range offer.Attributes {
			if err := attr.validate(); err != nil {
				result = multierror.Append(result, errors.Wrapf(err, "offer %s", offer.ID))
			}
		}
	}

	jobIDs := make(map[string]struct{}, len(c.JobList))
	for i, job := range c.JobList {
		if job.ID == "" {
			result = multierror.Append(result, fmt.Errorf("job #%d: empty id", i))
		} else if _, ok := jobIDs[job.ID]; ok {
			result = multierror.Append(result, fmt.Errorf("job %s: duplicate id", job.ID))
		}
		jobIDs[job.ID] = struct{}{}

		if job.Resources.CPU < 0 {
			result = multierror.Append(result, fmt.Errorf("job %s: negative cpu %v", job.ID, job.Resources.CPU))
		}
	}

	return result.ErrorOrNil()
}

func (a Attribute) validate() error {
	if a.Name == "" {
		return errors.New("attribute with empty name")
	}
	t, ok := attributes.ParseType(a.Type)
	if !ok {
		return fmt.Errorf("attribute %s: unknown type %q", a.Name, a.Type)
	}
	if t == attributes.Ranges {
		for _, r := range a.Ranges {
			if r.Begin > r.End {
				return fmt.Errorf("attribute %s: range %d-%d begins after its end", a.Name, r.Begin, r.End)
			}
		}
	}
	return nil
}

// Offers returns the offers of the cycle keyed by id. Every call creates
// new offer objects.
func (c *Cycle) Offers() map[string]*models.Offer {
	result := make(map[string]*models.Offer, len(c.OfferList))
	for _, o := range c.OfferList {
		offer := models.NewOffer(o.ID, o.Resources)
		offer.Hostname = o.Hostname
		for _, a := range o.Attributes {
			offer.Attributes = append(offer.Attributes, a.toModel())
		}
		result[o.ID] = offer
	}
	return result
}

// Jobs returns the jobs of the cycle in document order. Every call creates
// new job objects.
func (c *Cycle) Jobs() []*models.Job {
	result := make([]*models.Job, 0, len(c.JobList))
	for _, j := range c.JobList {
		job := models.NewJob(j.ID, j.Priority, j.Resources).WithConstraint(j.Constraint)
		if j.Name != "" {
			job.Name = j.Name
		}
		result = append(result, job)
	}
	return result
}

func (a Attribute) toModel() *attributes.Attribute {
	t, _ := attributes.ParseType(a.Type)
	switch t {
	case attributes.Text:
		return attributes.NewText(a.Name, a.Text)
	case attributes.Scalar:
		return attributes.NewScalar(a.Name, a.Scalar)
	case attributes.Ranges:
		ranges := make([]attributes.Range, 0, len(a.Ranges))
		for _, r := range a.Ranges {
			ranges = append(ranges, attributes.Range{Begin: r.Begin, End: r.End})
		}
		return attributes.NewRanges(a.Name, ranges...)
	case attributes.Set:
		return attributes.NewSet(a.Name, a.Set...)
	}
	return &attributes.Attribute{Name: a.Name, Type: attributes.TypeUnknown}
}
