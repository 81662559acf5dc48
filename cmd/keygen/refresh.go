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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Wjiuwa/KeyGenOverApi/credentials"
	"github.com/Wjiuwa/KeyGenOverApi/runtime/logger"
	"github.com/Wjiuwa/KeyGenOverApi/snapshot"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh every endpoint once, write the snapshot file and print it",
	RunE:  runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	ctx := setupSignalHandler()
	log := logger.NewLogger(rootArgs.logOptions)

	writer := snapshot.NewWriter(rootArgs.config.SnapshotPath, snapshot.WithLogger(log.WithName("snapshot")))
	// the snapshot is written once below
	manager, err := newManager(log, nil, nil)
	if err != nil {
		log.Error(err, "unable to create credential manager")
		return err
	}

	errs := credentials.NewRefresher(manager).Round(ctx)
	if err := writer.Write(manager); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	data, err := snapshot.Render(manager.Snapshot())
	if err != nil {
		return err
	}
	if _, err := cmd.OutOrStdout().Write(data); err != nil {
		return err
	}

	if len(errs) == len(manager.Endpoints()) && len(errs) > 0 {
		return fmt.Errorf("no credential could be obtained for any of the %d endpoints", len(errs))
	}
	return nil
}
