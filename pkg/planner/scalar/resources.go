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

package scalar

import (
	"fmt"
)

// Resources is the capacity vector of an offer, or the requirement of a job.
// CPU is the only fractional dimension, every other dimension counts units.
// The zero value is an empty vector.
type Resources struct {
	CPU   float64 `yaml:"cpu" json:"cpu"`
	Mem   uint64  `yaml:"mem" json:"mem"`
	Disk  uint64  `yaml:"disk" json:"disk"`
	GPU   uint64  `yaml:"gpu" json:"gpu"`
	Ports uint64  `yaml:"ports" json:"ports"`
}

// Fits determines whether the requested resources can be carved out of the
// current ones in every dimension.
// NOTE: CPU is compared without epsilon, a request of 1.0000001 cpu does
// not fit into 1.0 cpu.
func (r Resources) Fits(requested Resources) bool {
	return r.CPU >= requested.CPU &&
		r.Mem >= requested.Mem &&
		r.Disk >= requested.Disk &&
		r.GPU >= requested.GPU &&
		r.Ports >= requested.Ports
}

// Add returns the component-wise sum of current and other resources.
func (r Resources) Add(other Resources) Resources {
	return Resources{
		CPU:   r.CPU + other.CPU,
		Mem:   r.Mem + other.Mem,
		Disk:  r.Disk + other.Disk,
		GPU:   r.GPU + other.GPU,
		Ports: r.Ports + other.Ports,
	}
}

// TrySubtract attempts to subtract another scalar resources from current
// one, but returns false if other does not fit.
func (r Resources) TrySubtract(other Resources) (Resources, bool) {
	if !r.Fits(other) {
		return Resources{}, false
	}
	return Resources{
		CPU:   r.CPU - other.CPU,
		Mem:   r.Mem - other.Mem,
		Disk:  r.Disk - other.Disk,
		GPU:   r.GPU - other.GPU,
		Ports: r.Ports - other.Ports,
	}, true
}

// String returns a formatted string for scalar resources
func (r Resources) String() string {
	return fmt.Sprintf("CPU:%.2f MEM:%d DISK:%d GPU:%d PORTS:%d",
		r.CPU, r.Mem, r.Disk, r.GPU, r.Ports)
}

// Sum adds up a list of resources.
func Sum(resources ...Resources) (r Resources) {
	for _, res := range resources {
		r = r.Add(res)
	}
	return r
}
