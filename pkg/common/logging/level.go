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

package logging

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

const (
	// LevelOverwrite is the default endpoint of the level override handler.
	LevelOverwrite = "/logging-level"

	_level    = "level"
	_duration = "duration"
	_cycles   = "cycles"
	_usage    = "usage: GET `/logging-level?level=[info|debug]&duration=<duration>&cycles=<n>` " +
		"(duration, cycles or both)"
)

// LevelOverride raises the process log level for a bounded time, for a
// bounded number of planning cycles, or both, whichever ends first.
// Expiry is checked whenever a cycle ends and on every request, there is no
// background timer.
type LevelOverride struct {
	initial log.Level
	now     func() time.Time

	active atomic.Bool

	mu       sync.Mutex
	deadline time.Time // zero if only bounded by cycles
	cycles   int       // 0 if only bounded by time
}

// NewLevelOverride sets the process log level to initial and returns an
// override resetting to it.
func NewLevelOverride(initial log.Level) *LevelOverride {
	log.SetLevel(initial)
	return &LevelOverride{
		initial: initial,
		now:     time.Now,
	}
}

// Active returns true while an override is in place.
func (o *LevelOverride) Active() bool {
	return o.active.Load()
}

// Set switches to level until duration passed or cycles planning cycles
// ended. A zero duration or zero cycles leaves that bound unset, but one of
// them must be set.
func (o *LevelOverride) Set(level log.Level, duration time.Duration, cycles int) error {
	if level != log.InfoLevel && level != log.DebugLevel {
		return fmt.Errorf("New Level %s is not info or debug", level)
	}
	if duration < 0 || cycles < 0 {
		return errors.New("duration and cycles must not be negative")
	}
	if duration == 0 && cycles == 0 {
		return errors.New("either duration or cycles is required")
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.deadline = time.Time{}
	if duration > 0 {
		o.deadline = o.now().Add(duration)
	}
	o.cycles = cycles
	o.active.Store(true)

	log.WithFields(log.Fields{
		"new_level": level,
		"duration":  duration,
		"cycles":    cycles,
	}).Info("Setting log level to new level")
	log.SetLevel(level)
	return nil
}

// CycleDone counts a finished planning cycle against the override.
func (o *LevelOverride) CycleDone() {
	if !o.active.Load() {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.active.Load() {
		return
	}
	if o.cycles > 0 {
		o.cycles--
		if o.cycles == 0 {
			o.resetLocked("cycles")
			return
		}
	}
	o.expireLocked()
}

func (o *LevelOverride) expireLocked() {
	if o.active.Load() && !o.deadline.IsZero() && !o.now().Before(o.deadline) {
		o.resetLocked("duration")
	}
}

func (o *LevelOverride) resetLocked(reason string) {
	o.active.Store(false)
	o.deadline = time.Time{}
	o.cycles = 0
	log.WithFields(log.Fields{
		"initial_level": o.initial,
		"reason":        reason,
	}).Info("Resetting log level")
	log.SetLevel(o.initial)
}

// ServeHTTP is an implementation of the http.Handler interface.
func (o *LevelOverride) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	o.mu.Lock()
	o.expireLocked()
	o.mu.Unlock()

	values := r.URL.Query()
	var missing []string
	if values.Get(_level) == "" {
		missing = append(missing, _level)
	}
	if values.Get(_duration) == "" && values.Get(_cycles) == "" {
		missing = append(missing, _duration+"|"+_cycles)
	}
	if len(missing) > 0 {
		writeError(w, fmt.Errorf("Required params not set: %s", strings.Join(missing, ",")))
		return
	}

	newLevel, err := log.ParseLevel(values.Get(_level))
	if err != nil {
		writeError(w, err)
		return
	}

	var duration time.Duration
	if v := values.Get(_duration); v != "" {
		if duration, err = time.ParseDuration(v); err != nil {
			writeError(w, err)
			return
		}
	}

	var cycles int
	if v := values.Get(_cycles); v != "" {
		if cycles, err = strconv.Atoi(v); err != nil {
			writeError(w, errors.Wrapf(err, "invalid cycles %q", v))
			return
		}
	}

	if err := o.Set(newLevel, duration, cycles); err != nil {
		writeError(w, err)
		return
	}

	var bounds []string
	if duration > 0 {
		bounds = append(bounds, duration.String())
	}
	if cycles > 0 {
		bounds = append(bounds, fmt.Sprintf("%d plan cycles", cycles))
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "Level changed to %s for the next %s.\n", newLevel, strings.Join(bounds, " or "))
}

func writeError(w http.ResponseWriter, err error) {
	w.WriteHeader(http.StatusBadRequest)
	fmt.Fprintln(w, err.Error())
	fmt.Fprintln(w, _usage)
}
