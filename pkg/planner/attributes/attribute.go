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
	"fmt"
	"strconv"
	"strings"
)

// Type is the value type of an offer attribute.
type Type int

const (
	// TypeUnknown is the zero value and never valid on an offer.
	TypeUnknown Type = iota
	// Text attributes hold a single string.
	Text
	// Scalar attributes hold a single floating point value.
	Scalar
	// Ranges attributes hold a list of closed integer ranges.
	Ranges
	// Set attributes hold an unordered list of strings.
	Set
)

var _typeNames = map[Type]string{
	Text:   "text",
	Scalar: "scalar",
	Ranges: "ranges",
	Set:    "set",
}

// String returns the lower case name of the type.
func (t Type) String() string {
	if name, ok := _typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

// ParseType returns the type for the given name, as written in cycle
// documents.
func ParseType(name string) (Type, bool) {
	for t, n := range _typeNames {
		if strings.EqualFold(n, name) {
			return t, true
		}
	}
	return TypeUnknown, false
}

// Range is a closed range [Begin, End].
type Range struct {
	Begin uint64
	End   uint64
}

// Attribute is a named fact about an offer, as reported by the cluster
// manager. Only the value field matching Type is meaningful.
type Attribute struct {
	Name   string
	Type   Type
	Text   string
	Scalar float64
	Ranges []Range
	Set    []string
}

// NewText creates a text attribute.
func NewText(name, value string) *Attribute {
	return &Attribute{Name: name, Type: Text, Text: value}
}

// NewScalar creates a scalar attribute.
func NewScalar(name string, value float64) *Attribute {
	return &Attribute{Name: name, Type: Scalar, Scalar: value}
}

// NewRanges creates a ranges attribute.
func NewRanges(name string, ranges ...Range) *Attribute {
	return &Attribute{Name: name, Type: Ranges, Ranges: ranges}
}

// NewSet creates a set attribute.
func NewSet(name string, items ...string) *Attribute {
	return &Attribute{Name: name, Type: Set, Set: items}
}

// String returns the attribute in name=value form.
func (a *Attribute) String() string {
	switch a.Type {
	case Text:
		return a.Name + "=" + a.Text
	case Scalar:
		return a.Name + "=" + strconv.FormatFloat(a.Scalar, 'f', -1, 64)
	case Ranges:
		var parts []string
		for _, r := range a.Ranges {
			parts = append(parts, fmt.Sprintf("%d-%d", r.Begin, r.End))
		}
		return a.Name + "=[" + strings.Join(parts, ",") + "]"
	case Set:
		return a.Name + "={" + strings.Join(a.Set, ",") + "}"
	}
	return a.Name + "=<" + a.Type.String() + ">"
}
