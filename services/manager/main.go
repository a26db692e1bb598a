// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianMQTT/pkg/logging"
	"github.com/AleutianAI/AleutianMQTT/services/manager/bridge"
	"github.com/AleutianAI/AleutianMQTT/services/manager/certs"
	"github.com/AleutianAI/AleutianMQTT/services/manager/config"
	"github.com/AleutianAI/AleutianMQTT/services/manager/observability"
	"github.com/AleutianAI/AleutianMQTT/services/manager/routes"
	"github.com/AleutianAI/AleutianMQTT/services/manager/store"
	"github.com/AleutianAI/AleutianMQTT/services/manager/supervisor"
)

func main() {
	defaultPath, err := config.DefaultPath()
	if err != nil {
		log.Fatalf("resolve config path: %v", err)
	}
	configPath := flag.String("config", defaultPath, "path to manager.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.Logging.Level),
		LogDir:  cfg.Logging.Dir,
		Service: "manager",
		JSON:    true,
	})
	defer logger.Close()

	if err := run(cfg, logger); err != nil {
		logger.Error("manager exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.ManagerConfig, logger *logging.Logger) error {
	paths := config.Paths{DataDir: cfg.DataDir}
	if err := os.MkdirAll(paths.DataDir, 0700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// TLS material first: the compiled broker config references the
	// cert paths when the TLS listener is on.
	issuer := certs.NewIssuer(paths, logger)
	if cfg.Broker.TLS.Enabled {
		if err := issuer.EnsureCertificates(cfg.Broker.BindAddress); err != nil {
			return fmt.Errorf("ensure certificates: %w", err)
		}
	}

	st := store.New(paths, cfg.Broker, logger)
	if err := st.Load(); err != nil {
		return fmt.Errorf("load store: %w", err)
	}
	if err := st.CompileAll(); err != nil {
		return fmt.Errorf("compile artifacts: %w", err)
	}

	installer := &supervisor.DefaultInstaller{Binary: cfg.Broker.Binary, Logger: logger}
	info, err := installer.Detect(context.Background())
	if err != nil {
		return fmt.Errorf("detect broker: %w", err)
	}
	if !info.Installed {
		if err := installer.Install(context.Background()); err != nil {
			logger.Warn("broker binary not found; supervisor will stay stopped until it is installed",
				"binary", cfg.Broker.Binary, "error", err)
		} else if info, err = installer.Detect(context.Background()); err != nil {
			return fmt.Errorf("detect broker after install: %w", err)
		}
	}
	if info.Installed {
		logger.Info("broker detected", "path", info.Path, "version", info.Version)
	}

	metrics := observability.NewMetrics()
	stats := supervisor.NewSysStatsReader(
		cfg.Broker.BindAddress, cfg.Broker.Port, "", "", logger)
	control := supervisor.NewMosquittoControl(
		cfg.Broker.Binary, paths.BrokerConfFile(), stats, logger)
	sup := supervisor.New(control, supervisor.Config{
		StatusInterval:     time.Duration(cfg.Supervisor.StatusIntervalSeconds) * time.Second,
		HealthInterval:     time.Duration(cfg.Supervisor.HealthIntervalSeconds) * time.Second,
		MaxRestartAttempts: cfg.Supervisor.MaxRestartAttempts,
		SettleDelay:        time.Duration(cfg.Supervisor.SettleDelaySeconds) * time.Second,
	}, metrics, logger)

	watcher, err := config.NewArtifactWatcher(paths, logger)
	if err != nil {
		return fmt.Errorf("artifact watcher: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	router := gin.New()
	router.Use(gin.Recovery())
	routes.SetupRoutes(ctx, router, routes.Deps{
		Store:       st,
		Supervisor:  sup,
		Installer:   installer,
		Issuer:      issuer,
		Tester:      bridge.NewTester(logger),
		Metrics:     metrics,
		BindAddress: cfg.Broker.BindAddress,
	})

	if info.Installed {
		if err := sup.Start(ctx); err != nil {
			return fmt.Errorf("start supervisor: %w", err)
		}
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: router,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("manager API listening", "port", cfg.HTTP.Port)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		return watcher.Run(groupCtx)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "error", err)
		}
		return sup.Stop(shutdownCtx)
	})

	return group.Wait()
}
