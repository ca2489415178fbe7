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

package metrics

import (
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally/v4"
	"go.uber.org/atomic"
)

// Closer stops the runtime metrics collection.
type Closer func()

// _numGCThreshold is the size of the runtime.MemStats.PauseNs ring buffer.
const _numGCThreshold = uint32(256)

// StartCollectingRuntimeMetrics emits process runtime metrics under the
// "runtime" subscope every collectInterval while enabled.
func StartCollectingRuntimeMetrics(
	scope tally.Scope,
	enabled bool,
	collectInterval time.Duration,
) Closer {
	collector := NewRuntimeCollector(scope.SubScope("runtime"), collectInterval)
	if enabled {
		collector.Start()
	}
	return collector.close
}

type runtimeMetrics struct {
	numGoRoutines   tally.Gauge
	goMaxProcs      tally.Gauge
	memoryAllocated tally.Gauge
	memoryHeap      tally.Gauge
	memoryHeapIdle  tally.Gauge
	memoryHeapInuse tally.Gauge
	memoryStack     tally.Gauge
	numGC           tally.Counter
	gcPauseMs       tally.Timer
}

// RuntimeCollector periodically samples the go runtime of the planner.
type RuntimeCollector struct {
	collectInterval time.Duration
	metrics         runtimeMetrics
	lastNumGC       atomic.Uint32
	started         atomic.Bool
	stopped         atomic.Bool
	quit            chan struct{}
}

// NewRuntimeCollector creates a new RuntimeCollector.
func NewRuntimeCollector(scope tally.Scope, collectInterval time.Duration) *RuntimeCollector {
	var memstats runtime.MemStats
	runtime.ReadMemStats(&memstats)
	r := &RuntimeCollector{
		collectInterval: collectInterval,
		metrics: runtimeMetrics{
			numGoRoutines:   scope.Gauge("num_goroutines"),
			goMaxProcs:      scope.Gauge("gomaxprocs"),
			memoryAllocated: scope.Gauge("memory_allocated"),
			memoryHeap:      scope.Gauge("memory_heap"),
			memoryHeapIdle:  scope.Gauge("memory_heapidle"),
			memoryHeapInuse: scope.Gauge("memory_heapinuse"),
			memoryStack:     scope.Gauge("memory_stack"),
			numGC:           scope.Counter("memory_num_gc"),
			gcPauseMs:       scope.Timer("memory_gc_pause_ms"),
		},
		quit: make(chan struct{}),
	}
	r.lastNumGC.Store(memstats.NumGC)
	return r
}

// IsRunning returns true if the collector has been started and not closed.
func (r *RuntimeCollector) IsRunning() bool {
	return r.started.Load() && !r.stopped.Load()
}

// Start starts the goroutine that periodically emits metrics. Starting a
// running collector is a no-op.
func (r *RuntimeCollector) Start() {
	if !r.started.CompareAndSwap(false, true) {
		return
	}
	log.WithField("interval", r.collectInterval).
		Info("Starting runtime metrics collection")
	go func() {
		ticker := time.NewTicker(r.collectInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.generate()
			case <-r.quit:
				return
			}
		}
	}()
}

func (r *RuntimeCollector) generate() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	r.metrics.numGoRoutines.Update(float64(runtime.NumGoroutine()))
	r.metrics.goMaxProcs.Update(float64(runtime.GOMAXPROCS(0)))
	r.metrics.memoryAllocated.Update(float64(memStats.Alloc))
	r.metrics.memoryHeap.Update(float64(memStats.HeapAlloc))
	r.metrics.memoryHeapIdle.Update(float64(memStats.HeapIdle))
	r.metrics.memoryHeapInuse.Update(float64(memStats.HeapInuse))
	r.metrics.memoryStack.Update(float64(memStats.StackInuse))

	// NumGC only grows (modulo 2^32 wrap around).
	num := memStats.NumGC
	lastNum := r.lastNumGC.Swap(num)
	if delta := num - lastNum; delta > 0 {
		r.metrics.numGC.Inc(int64(delta))
		// Older pauses are already overwritten in the ring buffer.
		if delta >= _numGCThreshold {
			lastNum = num - _numGCThreshold
		}
		for i := lastNum; i != num; i++ {
			pause := memStats.PauseNs[i%_numGCThreshold]
			r.metrics.gcPauseMs.Record(time.Duration(pause))
		}
	}
}

// close stops collecting runtime metrics. A closed collector cannot be
// started again.
func (r *RuntimeCollector) close() {
	if r.stopped.CompareAndSwap(false, true) {
		close(r.quit)
	}
}
