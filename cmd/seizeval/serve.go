// Copyright (C) 2025 Seizeval Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/seizeval/seizeval/services/gateway"
	"github.com/seizeval/seizeval/services/gateway/config"
)

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	slog.Info("starting seizeval gateway",
		"port", cfg.Port,
		"workers", cfg.MaxWorkers,
		"cache_ttl", cfg.CacheTTL.String(),
		"oracle_configured", cfg.OracleURL != "",
	)

	svc, err := gateway.New(cfg)
	if err != nil {
		return fmt.Errorf("assemble gateway: %w", err)
	}
	return svc.Run()
}
