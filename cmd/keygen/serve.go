/*
Copyright 2026 The Flux authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Wjiuwa/KeyGenOverApi/credentials"
	"github.com/Wjiuwa/KeyGenOverApi/runtime/logger"
	"github.com/Wjiuwa/KeyGenOverApi/runtime/metrics"
	"github.com/Wjiuwa/KeyGenOverApi/runtime/probes"
	"github.com/Wjiuwa/KeyGenOverApi/server"
	"github.com/Wjiuwa/KeyGenOverApi/snapshot"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the credential state and authorized calls, refreshing all endpoints periodically",
	RunE:  runServe,
}

var serveCmdFlags struct {
	listenAddress   string
	shutdownTimeout time.Duration
	enablePprof     bool
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveCmdFlags.listenAddress, "listen-address", ":8000",
		"The address the HTTP server binds to.")
	serveCmd.Flags().DurationVar(&serveCmdFlags.shutdownTimeout, "shutdown-timeout", 10*time.Second,
		"The time allowed for in-flight requests to complete on shutdown.")
	serveCmd.Flags().BoolVar(&serveCmdFlags.enablePprof, "enable-pprof", false,
		"Serve the pprof endpoints under /debug/pprof.")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := setupSignalHandler()
	log := logger.NewLogger(rootArgs.logOptions)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	writer := snapshot.NewWriter(rootArgs.config.SnapshotPath, snapshot.WithLogger(log.WithName("snapshot")))
	manager, err := newManager(log, writer, reg)
	if err != nil {
		log.Error(err, "unable to create credential manager")
		return err
	}

	jitterFn, err := rootArgs.jitter.Jitter(nil)
	if err != nil {
		return err
	}
	recorder := metrics.NewRecorder()
	reg.MustRegister(recorder.Collectors()...)
	refresher := credentials.NewRefresher(manager,
		credentials.WithInterval(rootArgs.config.RefreshInterval),
		credentials.WithJitter(jitterFn),
		credentials.WithRecorder(recorder))

	handler := server.NewHandler(manager,
		server.WithLogger(log.WithName("server")),
		server.WithGatherer(reg),
		server.WithPprof(serveCmdFlags.enablePprof),
		server.WithReadyCheck(probes.Check{
			Name: "refresh",
			Checker: func(*http.Request) error {
				if !refresher.Ready() {
					return errors.New("first refresh round has not completed")
				}
				return nil
			},
		}))
	httpServer := &http.Server{
		Addr:              serveCmdFlags.listenAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return writer.Run(ctx, manager)
	})
	g.Go(func() error {
		return refresher.Run(ctx)
	})
	g.Go(func() error {
		log.Info("starting server", "address", serveCmdFlags.listenAddress, "snapshot", writer.Path())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), serveCmdFlags.shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error(err, "server stopped with error")
		return err
	}
	log.Info("server stopped")
	return nil
}
