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
	"sort"

	"github.com/uber/offerplanner/pkg/planner/attributes"
	"github.com/uber/offerplanner/pkg/planner/scalar"
)

// Offer is a slot of resources offered by the cluster manager for one
// scheduling cycle.
type Offer struct {
	ID         string
	Hostname   string
	Resources  scalar.Resources
	Attributes []*attributes.Attribute
}

// NewOffer creates a new offer.
func NewOffer(
	id string,
	resources scalar.Resources,
	attrs ...*attributes.Attribute) *Offer {
	return &Offer{
		ID:         id,
		Resources:  resources,
		Attributes: attrs,
	}
}

// GetAvailableResources returns the capacity of the offer.
func (o *Offer) GetAvailableResources() scalar.Resources {
	return o.Resources
}

// OffersByID returns the offers of the map ordered by id, which is the order
// in which strategies consider them.
func OffersByID(offers map[string]*Offer) []*Offer {
	result := make([]*Offer, 0, len(offers))
	for _, offer := range offers {
		result = append(result, offer)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}
