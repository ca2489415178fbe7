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
	"fmt"

	"github.com/uber/offerplanner/pkg/planner/config"
	"github.com/uber/offerplanner/pkg/planner/plugins"
	"github.com/uber/offerplanner/pkg/planner/plugins/attr"
	"github.com/uber/offerplanner/pkg/planner/plugins/binpack"
)

// NewStrategy returns the placement strategy configured by name.
func NewStrategy(name config.PlacementStrategy) (plugins.Strategy, error) {
	switch name {
	case config.Attr, "":
		return attr.New(), nil
	case config.BinPack:
		return binpack.New(), nil
	}
	return nil, fmt.Errorf("unknown placement strategy %q", name)
}
