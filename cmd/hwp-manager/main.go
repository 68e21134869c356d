// Copyright 2023 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	pkgcfg "github.com/intel/hwp-manager/pkg/config"
	"github.com/intel/hwp-manager/pkg/hwp"
	"github.com/intel/hwp-manager/pkg/instrumentation"
	logger "github.com/intel/hwp-manager/pkg/log"
	"github.com/intel/hwp-manager/pkg/metrics"
	"github.com/intel/hwp-manager/pkg/pidfile"
	"github.com/intel/hwp-manager/pkg/sysfs"
)

var log = logger.Default()

func main() {
	flag.Parse()

	if len(flag.Args()) != 0 {
		log.Error("unknown command-line arguments: %s", strings.Join(flag.Args(), ","))
		flag.Usage()
		os.Exit(1)
	}

	if err := run(); err != nil {
		log.Fatal("%v", err)
	}
}

func run() error {
	if opt.configFile != "" {
		if err := pkgcfg.SetConfigFromFile(opt.configFile); err != nil {
			return err
		}
	}

	sys, err := sysfs.DiscoverSystem()
	if err != nil {
		return err
	}

	pid := pidfile.New(opt.pidFile)
	disc := hwp.Discover(
		hwp.WithDriverProbe(sys),
		hwp.WithInstanceCheck(pid.OwnerPid),
	)
	if !disc.Supported() {
		// another driver is in charge, nothing to do
		log.Warn("%v", disc.Err())
		return nil
	}

	if err := pid.Claim(); err != nil {
		return err
	}
	defer pid.Remove()

	mgr, err := hwp.NewManager(disc, hwp.WithClockRate(sys))
	if err != nil {
		return err
	}

	cpus, err := hwp.SelectCPUs(sys.OnlineCPUs())
	if err != nil {
		return err
	}
	if err := mgr.Attach(cpus...); err != nil {
		log.Error("some CPUs failed to attach: %v", err)
	}
	log.Info("managing %d CPUs", len(mgr.Cores()))

	pkgcfg.GetModule("hwp").WatchUpdates(mgr.ConfigNotify)
	if opt.configFile != "" && opt.watch {
		w, err := pkgcfg.WatchFile(opt.configFile)
		if err != nil {
			return err
		}
		defer w.Stop()
	}

	if err := setupInstrumentation(mgr); err != nil {
		return err
	}
	defer instrumentation.Stop()

	logger.SetupDebugToggleSignal(syscall.SIGUSR1)
	defer logger.ClearDebugToggleSignal()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("received %v, shutting down...", sig)

	mgr.Detach(mgr.Cores()...)
	logger.Flush()

	return nil
}

func setupInstrumentation(mgr *hwp.Manager) error {
	err := metrics.RegisterCollector("hwp", func() (prometheus.Collector, error) {
		return hwp.NewCollector(mgr), nil
	})
	if err != nil {
		return err
	}

	g, err := metrics.NewMetricGatherer()
	if err != nil {
		return err
	}
	instrumentation.RegisterGatherer(g)

	if err := mgr.RegisterHandlers(instrumentation.GetHTTPMux()); err != nil {
		return err
	}

	if err := instrumentation.Start(); err != nil {
		return err
	}
	log.Info("serving HTTP endpoints on %s", instrumentation.HTTPAddress())

	return nil
}
