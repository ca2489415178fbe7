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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/uber-go/tally/v4"
	_ "go.uber.org/automaxprocs"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/uber/offerplanner/pkg/common"
	common_config "github.com/uber/offerplanner/pkg/common/config"
	"github.com/uber/offerplanner/pkg/common/logging"
	"github.com/uber/offerplanner/pkg/common/metrics"
	"github.com/uber/offerplanner/pkg/planner"
	"github.com/uber/offerplanner/pkg/planner/config"
	"github.com/uber/offerplanner/pkg/planner/cycle"
	"github.com/uber/offerplanner/pkg/planner/server"
)

const _shutdownTimeout = 10 * time.Second

var (
	version string
	app     = kingpin.New(common.OfferPlanner, "Offer Planner")

	debug = app.Flag(
		"debug", "enable debug mode (print full plans)").
		Short('d').
		Default("false").
		Envar("ENABLE_DEBUG_LOGGING").
		Bool()

	cfgFiles = app.Flag(
		"config",
		"YAML config files (can be provided multiple times to merge configs)").
		Short('c').
		Required().
		ExistingFiles()

	strategy = app.Flag(
		"strategy",
		"Placement strategy (planner.strategy override) "+
			"(set $PLANNER_STRATEGY to override)").
		Envar("PLANNER_STRATEGY").
		Enum(string(config.Attr), string(config.BinPack))

	maxStock = app.Flag(
		"max-stock",
		"Max number of idle offers stocked per cycle (planner.max_stock override) "+
			"(set $MAX_STOCK to override)").
		Default("-1").
		Envar("MAX_STOCK").
		Int()

	httpPort = app.Flag(
		"http-port",
		"Planner HTTP port (server.http_port override) "+
			"(set $HTTP_PORT to override)").
		Envar("HTTP_PORT").
		Int()

	planCmd   = app.Command("plan", "Plan a single cycle and print the plan as JSON")
	cycleFile = planCmd.Arg("cycle", "YAML or JSON cycle document").
			Required().
			ExistingFile()

	serveCmd = app.Command("serve", "Serve plan requests over HTTP")
)

func main() {
	app.Version(version)
	app.HelpFlag.Short('h')
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	log.SetFormatter(
		&logging.LogFieldFormatter{
			Formatter: &log.JSONFormatter{},
			Fields: log.Fields{
				common.AppLogField: app.Name,
			},
		},
	)

	initialLevel := log.InfoLevel
	if *debug {
		initialLevel = log.DebugLevel
	}
	levelOverride := logging.NewLevelOverride(initialLevel)

	log.WithField("files", *cfgFiles).
		Info("Loading Offer Planner config")
	cfg := config.Default()
	if err := common_config.Parse(&cfg, *cfgFiles...); err != nil {
		log.WithField("error", err).Fatal("Cannot parse yaml config")
	}

	// now, override any CLI flags in the loaded config.Config
	overrideConfig(&cfg, *strategy, *maxStock, *httpPort)

	log.WithField("config", cfg).
		Info("Completed Loading Offer Planner config")

	switch command {
	case planCmd.FullCommand():
		if err := runPlan(&cfg, *cycleFile, os.Stdout); err != nil {
			log.WithError(err).Fatal("Failed to plan cycle")
		}
	case serveCmd.FullCommand():
		runServe(&cfg, levelOverride)
	}
}

// overrideConfig applies the command line flags which were set on top of
// the parsed configuration.
func overrideConfig(cfg *config.Config, strategy string, maxStock int, httpPort int) {
	if strategy != "" {
		cfg.Planner.Strategy = config.PlacementStrategy(strategy)
	}

	if maxStock >= 0 {
		cfg.Planner.MaxStock = maxStock
	}

	if httpPort != 0 {
		cfg.Server.HTTPPort = httpPort
	}
}

func newPlanner(
	cfg *config.Config,
	scope tally.Scope,
	opts ...planner.Option,
) (planner.Planner, error) {
	s, err := planner.NewStrategy(cfg.Planner.Strategy)
	if err != nil {
		return nil, err
	}
	return planner.New(scope, &cfg.Planner, s, opts...), nil
}

func runPlan(cfg *config.Config, path string, out *os.File) error {
	c, err := cycle.Load(path)
	if err != nil {
		return err
	}

	p, err := newPlanner(cfg, tally.NoopScope)
	if err != nil {
		return err
	}

	plan, err := p.Plan(c.Offers(), c.Jobs())
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func runServe(cfg *config.Config, levelOverride *logging.LevelOverride) {
	rootScope, scopeCloser, mux, err := metrics.InitMetricScope(
		&cfg.Metrics,
		common.OfferPlanner,
		metrics.TallyFlushInterval,
	)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize metrics")
	}
	defer scopeCloser.Close()

	stopRuntimeMetrics := metrics.StartCollectingRuntimeMetrics(
		rootScope,
		true,
		metrics.RuntimeCollectInterval,
	)
	defer stopRuntimeMetrics()

	p, err := newPlanner(
		cfg,
		rootScope.SubScope("planner"),
		planner.WithLevelOverride(levelOverride),
	)
	if err != nil {
		log.WithError(err).Fatal("Failed to create planner")
	}

	mux.Handle(logging.LevelOverwrite, levelOverride)
	mux.Handle(server.PlanEndpoint, server.NewHandler(
		p,
		server.NewLimiter(cfg.Server.MaxPlansPerSecond, cfg.Server.Burst),
	))

	httpServer := &nethttp.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: mux,
	}

	go func() {
		log.WithField("port", cfg.Server.HTTPPort).Info("Started Offer Planner")
		if err := httpServer.ListenAndServe(); err != nil && err != nethttp.ErrServerClosed {
			log.WithError(err).Fatal("Failed to serve plan requests")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("Stopping Offer Planner")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), _shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Failed to shut down HTTP server")
	}
}
