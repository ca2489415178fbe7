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

package attributes

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	_clauseSeparator = ";"
	_keySeparator    = ":"

	// _scalarEpsilon is the tolerance used when comparing scalar attributes.
	_scalarEpsilon = 0.000001
)

var (
	// ErrInvalidRequirement is the cause of errors for requirement clauses
	// which are not of the form 'key:value'.
	ErrInvalidRequirement = errors.New("attribute requirement does not have the required format 'key:value'")

	// ErrUnsupportedAttribute is the cause of errors for requirements that
	// hit a ranges or set attribute, which cannot be matched yet.
	ErrUnsupportedAttribute = errors.New("attribute checks are not implemented for this type")

	// ErrUnknownAttributeType is the cause of errors for attributes carrying
	// a type that is not known to the matcher.
	ErrUnknownAttributeType = errors.New("unknown attribute type")
)

// Clause is a single 'key:value' condition of a requirement.
type Clause struct {
	Key   string
	Value string
}

// String returns the clause in its textual form.
func (c Clause) String() string {
	return c.Key + _keySeparator + c.Value
}

// Requirement is a conjunction of clauses. An empty requirement matches
// every offer.
type Requirement []Clause

// String returns the requirement in its textual form.
func (r Requirement) String() string {
	parts := make([]string, 0, len(r))
	for _, c := range r {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, _clauseSeparator)
}

// ParseRequirement parses a requirement string of ';' separated 'key:value'
// clauses. Trailing empty clauses are ignored, so "" and ";" both yield an
// empty requirement.
func ParseRequirement(required string) (Requirement, error) {
	components := splitClauses(required)
	req := make(Requirement, 0, len(components))
	for _, component := range components {
		clause, err := parseClause(component)
		if err != nil {
			return nil, err
		}
		req = append(req, clause)
	}
	return req, nil
}

// Matches checks the requirement string against the attributes of an offer.
// A non-empty requirement never matches an offer without attributes, and in
// that case the requirement is not parsed at all.
func Matches(attrs []*Attribute, required string) (bool, error) {
	components := splitClauses(required)
	if len(components) == 0 {
		return true, nil
	}
	if len(attrs) == 0 {
		return false, nil
	}
	req, err := ParseRequirement(required)
	if err != nil {
		return false, err
	}
	return req.Matches(attrs)
}

// Matches checks every clause of the requirement against the attributes.
// For each clause only the first attribute carrying the clause key is
// considered; a mismatch on it fails the whole requirement.
func (r Requirement) Matches(attrs []*Attribute) (bool, error) {
	if len(r) == 0 {
		return true, nil
	}
	if len(attrs) == 0 {
		return false, nil
	}
	for _, clause := range r {
		attr := find(attrs, clause.Key)
		if attr == nil {
			return false, nil
		}
		ok, err := clause.evaluate(attr)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (c Clause) evaluate(attr *Attribute) (bool, error) {
	switch attr.Type {
	case Text:
		return attr.Text == c.Value, nil
	case Scalar:
		required, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64)
		if err != nil {
			return false, errors.Wrapf(ErrInvalidRequirement,
				"scalar value %q of clause %q", c.Value, c.String())
		}
		return math.Abs(attr.Scalar-required) < _scalarEpsilon, nil
	case Ranges, Set:
		return false, errors.Wrapf(ErrUnsupportedAttribute,
			"%s checks for attribute %q", attr.Type, attr.Name)
	default:
		return false, errors.Wrapf(ErrUnknownAttributeType,
			"attribute %q of type %s", attr.Name, attr.Type)
	}
}

func find(attrs []*Attribute, name string) *Attribute {
	for _, attr := range attrs {
		if attr.Name == name {
			return attr
		}
	}
	return nil
}

func splitClauses(required string) []string {
	components := strings.Split(required, _clauseSeparator)
	for len(components) > 0 && components[len(components)-1] == "" {
		components = components[:len(components)-1]
	}
	return components
}

func parseClause(component string) (Clause, error) {
	rule := strings.Split(component, _keySeparator)
	if len(rule) != 2 || rule[0] == "" || rule[1] == "" {
		return Clause{}, errors.Wrapf(ErrInvalidRequirement,
			"attribute requirement %q", component)
	}
	return Clause{Key: rule[0], Value: rule[1]}, nil
}
