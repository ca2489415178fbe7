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
	"testing"

	"github.com/stretchr/testify/assert"
)

const _zeroDelta = 0.000001

func TestFits(t *testing.T) {
	// An empty Resources should fit into another empty one.
	empty1 := Resources{}
	empty2 := Resources{}
	assert.True(t, empty1.Fits(empty1))
	assert.True(t, empty1.Fits(empty2))

	r1 := Resources{
		CPU: 1.0,
	}
	assert.True(t, r1.Fits(r1))
	assert.False(t, empty1.Fits(r1))
	assert.True(t, r1.Fits(empty1))

	r2 := Resources{
		Mem: 1,
	}
	assert.False(t, r1.Fits(r2))
	assert.False(t, r2.Fits(r1))

	r3 := Resources{
		CPU:   1.0,
		Mem:   1,
		Disk:  1,
		GPU:   1,
		Ports: 1,
	}
	assert.False(t, r1.Fits(r3))
	assert.False(t, r2.Fits(r3))
	assert.True(t, r3.Fits(r1))
	assert.True(t, r3.Fits(r2))
	assert.True(t, r3.Fits(r3))
}

func TestFitsEachDimension(t *testing.T) {
	offer := Resources{CPU: 2.0, Mem: 128, Disk: 555, GPU: 1, Ports: 2}

	tt := []struct {
		name      string
		requested Resources
		fits      bool
	}{
		{"whole offer", offer, true},
		{"too much cpu", Resources{CPU: 2.5}, false},
		{"too much mem", Resources{Mem: 129}, false},
		{"too much disk", Resources{Disk: 556}, false},
		{"too many gpus", Resources{GPU: 2}, false},
		{"too many ports", Resources{Ports: 3}, false},
		{"partial", Resources{CPU: 1.5, Mem: 64}, true},
	}
	for _, test := range tt {
		assert.Equal(t, test.fits, offer.Fits(test.requested), test.name)
	}
}

func TestFitsCPUWithoutEpsilon(t *testing.T) {
	offer := Resources{CPU: 1.0}
	assert.False(t, offer.Fits(Resources{CPU: 1.0000001}))
	assert.True(t, offer.Fits(Resources{CPU: 0.9999999}))
}

func TestAdd(t *testing.T) {
	empty := Resources{}
	r1 := Resources{
		CPU: 1.0,
	}

	result := empty.Add(empty)
	assert.Equal(t, Resources{}, result)

	result = r1.Add(Resources{})
	assert.InDelta(t, 1.0, result.CPU, _zeroDelta)
	assert.Equal(t, uint64(0), result.Mem)

	r2 := Resources{
		CPU:   4.0,
		Mem:   3,
		Disk:  2,
		GPU:   1,
		Ports: 5,
	}
	result = r1.Add(r2)
	assert.InDelta(t, 5.0, result.CPU, _zeroDelta)
	assert.Equal(t, uint64(3), result.Mem)
	assert.Equal(t, uint64(2), result.Disk)
	assert.Equal(t, uint64(1), result.GPU)
	assert.Equal(t, uint64(5), result.Ports)

	// Add is commutative.
	assert.Equal(t, r1.Add(r2), r2.Add(r1))
}

func TestSum(t *testing.T) {
	assert.Equal(t, Resources{}, Sum())
	result := Sum(
		Resources{CPU: 0.5, Mem: 64},
		Resources{CPU: 0.5, Mem: 64, GPU: 1},
		Resources{Disk: 10},
	)
	assert.Equal(t, Resources{CPU: 1.0, Mem: 128, Disk: 10, GPU: 1}, result)
}

func TestTrySubtract(t *testing.T) {
	empty := Resources{}
	r1 := Resources{
		CPU:  1.0,
		Mem:  2,
		Disk: 3,
		GPU:  4,
	}

	res, ok := empty.TrySubtract(empty)
	assert.True(t, ok)
	assert.Equal(t, Resources{}, res)

	_, ok = empty.TrySubtract(r1)
	assert.False(t, ok)

	res, ok = r1.TrySubtract(r1)
	assert.True(t, ok)
	assert.Equal(t, Resources{}, res)

	r3 := Resources{
		CPU:  5.0,
		Mem:  6,
		Disk: 7,
		GPU:  8,
	}
	res, ok = r3.TrySubtract(r1)
	assert.True(t, ok)
	assert.InDelta(t, 4.0, res.CPU, _zeroDelta)
	assert.Equal(t, uint64(4), res.Mem)
	assert.Equal(t, uint64(4), res.Disk)
	assert.Equal(t, uint64(4), res.GPU)

	// r3 is more than r1
	_, ok = r1.TrySubtract(r3)
	assert.False(t, ok)
}

func TestString(t *testing.T) {
	r := Resources{CPU: 1.5, Mem: 64, Disk: 10, GPU: 1, Ports: 2}
	assert.Equal(t, "CPU:1.50 MEM:64 DISK:10 GPU:1 PORTS:2", r.String())
}
