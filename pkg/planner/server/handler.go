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

package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/uber/offerplanner/pkg/planner"
	"github.com/uber/offerplanner/pkg/planner/cycle"
)

const (
	// PlanEndpoint is the path the plan handler is mounted on.
	PlanEndpoint = "/plan"

	_defaultMaxBodySize = 32 << 20
)

// Handler serves planning requests over HTTP. The request body is a cycle
// document, the response the JSON encoded plan.
type Handler struct {
	planner     planner.Planner
	limiter     *rate.Limiter
	maxBodySize int64
}

// NewHandler creates a new plan handler. A nil limiter does not throttle.
func NewHandler(p planner.Planner, limiter *rate.Limiter) *Handler {
	return &Handler{
		planner:     p,
		limiter:     limiter,
		maxBodySize: _defaultMaxBodySize,
	}
}

// NewLimiter returns the limiter for the given rate, or nil if the rate is
// not positive.
func NewLimiter(perSecond float64, burst int) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// ServeHTTP is an implementation of the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed,
			fmt.Errorf("method %s not allowed", r.Method))
		return
	}

	if h.limiter != nil && !h.limiter.Allow() {
		writeError(w, http.StatusTooManyRequests,
			errors.New("too many plan requests"))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Errorf("cycle document exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "failed to read body"))
		return
	}

	c, err := cycle.Decode(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	plan, err := h.planner.Plan(c.Offers(), c.Jobs())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(plan); err != nil {
		log.WithError(err).Warn("Failed to write plan response")
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, code int, err error) {
	log.WithFields(log.Fields{
		"code": code,
	}).WithError(err).Info("Plan request failed")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if encodeErr := json.NewEncoder(w).Encode(errorResponse{Error: err.Error()}); encodeErr != nil {
		log.WithError(encodeErr).Warn("Failed to write error response")
	}
}
