// ============================================================================
// GhostType - Voice Dictation for Desktop
// ============================================================================
//
// Package:     cmd
// Description: CLI command to run the dictation client
// Author:      Yida
// Created:     2026-01-18
// License:     MIT
// ============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Yida-git/GhostType/internal/dictation"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the dictation client",
	Long: `Starts GhostType as a system tray application.

Hold the configured push-to-talk key to dictate. Configuration is read
from config.toml (see the config command group for the search order).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path := loadConfig()
		if path != "" {
			fmt.Printf("GhostType v%s (config: %s)\n", dictation.Version, path)
		} else {
			fmt.Printf("GhostType v%s (default config)\n", dictation.Version)
		}

		app, err := dictation.New(cfg, path)
		if err != nil {
			printError("startup failed", err)
			return err
		}
		return app.Run()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	// bare "ghosttype" runs the client too
	rootCmd.RunE = runCmd.RunE
}
