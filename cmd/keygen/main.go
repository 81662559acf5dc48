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
	"os"
	"os/signal"
	"syscall"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Wjiuwa/KeyGenOverApi/config"
	"github.com/Wjiuwa/KeyGenOverApi/credentials"
	"github.com/Wjiuwa/KeyGenOverApi/runtime/jitter"
	"github.com/Wjiuwa/KeyGenOverApi/runtime/logger"
)

var rootCmd = &cobra.Command{
	Use:          "keygen",
	Short:        "Derive, cache and refresh the authorization tokens of remote endpoints",
	SilenceUsage: true,
}

var rootArgs struct {
	logOptions logger.Options
	config     config.Options
	jitter     jitter.Interval
}

func init() {
	rootArgs.logOptions.BindFlags(rootCmd.PersistentFlags())
	rootArgs.config.BindFlags(rootCmd.PersistentFlags())
	rootArgs.jitter.BindFlags(rootCmd.PersistentFlags())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setupSignalHandler returns a context that is cancelled on SIGINT or
// SIGTERM. A second signal terminates the process with exit code 1.
func setupSignalHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()

	return ctx
}

// newManager loads the configuration and returns the credential manager it
// describes.
func newManager(log logr.Logger, notifier credentials.Notifier, reg prometheus.Registerer) (*credentials.Manager, error) {
	cfg, err := rootArgs.config.Load()
	if err != nil {
		return nil, err
	}
	log.Info("configuration loaded", "endpoints", len(cfg.Registry))

	opts := []credentials.Option{
		credentials.WithLogger(log.WithName("credentials")),
		credentials.WithNotifier(notifier),
		credentials.WithHTTPRetries(rootArgs.config.HTTPRetries),
		credentials.WithFetchTimeout(rootArgs.config.FetchTimeout),
	}
	if reg != nil {
		opts = append(opts, credentials.WithMetricsRegisterer(reg))
	}
	return credentials.NewManager(cfg.Registry, cfg.Identity, opts...)
}
