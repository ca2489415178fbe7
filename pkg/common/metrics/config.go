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
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/cactus/go-statsd-client/v5/statsd"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally/v4"
	tallyprom "github.com/uber-go/tally/v4/prometheus"
	tallystatsd "github.com/uber-go/tally/v4/statsd"
)

const (
	// MetricsEndpoint is the endpoint serving prometheus metrics.
	MetricsEndpoint = "/metrics"
	// HealthEndpoint is the endpoint serving the health check.
	HealthEndpoint = "/health"

	// TallyFlushInterval is the flush interval of the root scope.
	TallyFlushInterval = time.Second

	// RuntimeCollectInterval is how often runtime metrics are sampled.
	RuntimeCollectInterval = 10 * time.Second
)

// Config will be containing the metrics configuration
type Config struct {
	Prometheus *PrometheusConfig `yaml:"prometheus"`
	Statsd     *StatsdConfig     `yaml:"statsd"`
}

// PrometheusConfig enables the prometheus reporter.
type PrometheusConfig struct {
	Enable bool `yaml:"enable"`
}

// StatsdConfig enables the statsd reporter.
type StatsdConfig struct {
	Enable   bool   `yaml:"enable"`
	Endpoint string `yaml:"endpoint"`
}

// InitMetricScope initialize a root scope and its closer, with a http server mux
func InitMetricScope(
	cfg *Config,
	rootMetricScope string,
	metricFlushInterval time.Duration) (tally.Scope, io.Closer, *nethttp.ServeMux, error) {
	// mux is used to mux together other (non-RPC) handlers, like metrics exposition endpoints, etc
	mux := nethttp.NewServeMux()
	opts := tally.ScopeOptions{
		Tags:      map[string]string{},
		Separator: ".",
	}
	var promHandler nethttp.Handler
	if cfg.Prometheus != nil && cfg.Prometheus.Enable {
		// tally panics if scope name contains "-", hence force convert to "_"
		rootMetricScope = strings.Replace(rootMetricScope, "-", "_", -1)
		opts.Separator = "_"
		promReporter := tallyprom.NewReporter(tallyprom.Options{})
		opts.CachedReporter = promReporter
		promHandler = promReporter.HTTPHandler()
	} else if cfg.Statsd != nil && cfg.Statsd.Enable {
		log.Infof("Metrics configured with statsd endpoint %s", cfg.Statsd.Endpoint)
		c, err := statsd.NewClientWithConfig(&statsd.ClientConfig{
			Address: cfg.Statsd.Endpoint,
		})
		if err != nil {
			return nil, nil, nil, errors.Wrap(err, "unable to setup statsd client")
		}
		opts.Reporter = tallystatsd.NewReporter(c, tallystatsd.Options{})
	} else {
		log.Warnf("No metrics backends configured, using the null reporter")
		opts.Reporter = tally.NullStatsReporter
	}
	opts.Prefix = rootMetricScope

	if promHandler != nil {
		// if prometheus support is enabled, handle /metrics to serve prom metrics
		log.Infof("Setting up prometheus metrics handler at %s", MetricsEndpoint)
		mux.Handle(MetricsEndpoint, promHandler)
	}
	mux.HandleFunc(HealthEndpoint, func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		w.WriteHeader(nethttp.StatusOK)
		fmt.Fprintln(w, `\(★ω★)/`)
	})

	metricScope, scopeCloser := tally.NewRootScope(opts, metricFlushInterval)
	return metricScope, scopeCloser, mux, nil
}
