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

package config

import (
	"github.com/uber/offerplanner/pkg/common/metrics"
	"github.com/uber/offerplanner/pkg/planner/plugins"
)

const (
	// Attr is the attribute aware, one job per offer strategy
	Attr = PlacementStrategy("attr")
	// BinPack is the resource only, many jobs per offer strategy
	BinPack = PlacementStrategy("binpack")

	_defaultHTTPPort = 5300
)

// Config holds all configs to run a planner.
type Config struct {
	Metrics metrics.Config `yaml:"metrics"`
	Planner PlannerConfig  `yaml:"planner"`
	Server  ServerConfig   `yaml:"server"`
}

// PlacementStrategy determines the placement strategy that the planner
// should use.
type PlacementStrategy string

// PlannerConfig is planner specific config
type PlannerConfig struct {
	// Strategy is the placement strategy that the planner should use.
	Strategy PlacementStrategy `yaml:"strategy"`

	// MaxStock is the max number of idle offers stocked per cycle, all
	// other idle offers are released.
	MaxStock int `yaml:"max_stock" validate:"min=0"`
}

// ServerConfig is the config of the HTTP plan service.
type ServerConfig struct {
	// HTTP port which the planner is listening on
	HTTPPort int `yaml:"http_port" validate:"min=0,max=65535"`

	// MaxPlansPerSecond throttles the plan endpoint, 0 means unlimited.
	MaxPlansPerSecond float64 `yaml:"max_plans_per_second"`

	// Burst is the number of plan requests allowed at once above the rate.
	Burst int `yaml:"burst" validate:"min=0"`
}

// Default returns the config used when no file overrides it.
func Default() Config {
	return Config{
		Planner: PlannerConfig{
			Strategy: Attr,
			MaxStock: plugins.DefaultMaxStock,
		},
		Server: ServerConfig{
			HTTPPort: _defaultHTTPPort,
			Burst:    1,
		},
	}
}

// Copy returns a deep copy of the config.
func (config *PlannerConfig) Copy() *PlannerConfig {
	copy := *config
	return &copy
}
