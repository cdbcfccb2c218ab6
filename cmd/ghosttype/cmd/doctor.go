// ============================================================================
// GhostType - Voice Dictation for Desktop
// ============================================================================
//
// Package:     cmd
// Description: CLI command to diagnose the setup
// Author:      Yida
// Created:     2026-01-18
// License:     MIT
// ============================================================================

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Yida-git/GhostType/internal/dictation"
	"github.com/Yida-git/GhostType/internal/dictation/asr"
	"github.com/Yida-git/GhostType/internal/dictation/audio"
	"github.com/Yida-git/GhostType/internal/dictation/llm"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the dictation setup",
	Long: `Checks each part of the dictation path and reports what works:
configuration, microphone, recognition service and correction engine.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path := loadConfig()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if path != "" {
			ok("config", path)
		} else {
			warn("config", "no file found, using defaults")
		}

		checkMicrophone(cfg)
		checkRecognizer(ctx, cfg)
		checkCorrection(ctx, cfg)
		return nil
	},
}

func checkMicrophone(cfg dictation.Config) {
	devices, err := audio.ListInputDevices()
	if err != nil {
		fail("microphone", err.Error())
		return
	}
	if len(devices) == 0 {
		fail("microphone", "no input devices")
		return
	}
	if cfg.AudioDevice == "" {
		ok("microphone", fmt.Sprintf("%d device(s), using system default", len(devices)))
		return
	}
	for _, dev := range devices {
		if dev.Name == cfg.AudioDevice {
			ok("microphone", cfg.AudioDevice)
			return
		}
	}
	fail("microphone", fmt.Sprintf("configured device %q not found", cfg.AudioDevice))
}

func checkRecognizer(ctx context.Context, cfg dictation.Config) {
	engine, err := asr.NewEngine(cfg.ASR, nil)
	if err != nil {
		fail("recognizer", err.Error())
		return
	}
	pr, okProbe := engine.(interface{ Probe(context.Context) error })
	if !okProbe {
		warn("recognizer", "backend does not support probing")
		return
	}
	if err := pr.Probe(ctx); err != nil {
		fail("recognizer", fmt.Sprintf("%s unreachable: %v", cfg.ASR.Endpoint, err))
		return
	}
	ok("recognizer", cfg.ASR.Endpoint)
}

func checkCorrection(ctx context.Context, cfg dictation.Config) {
	if cfg.Correction.Type == llm.EngineDisabled || cfg.Correction.Type == "" {
		ok("correction", "disabled")
		return
	}
	engine, err := llm.NewEngine(cfg.Correction.Config)
	if err != nil {
		fail("correction", err.Error())
		return
	}
	if !engine.Healthy(ctx) {
		fail("correction", fmt.Sprintf("%s (%s) not healthy", cfg.Correction.Type, cfg.Correction.Endpoint))
		return
	}
	ok("correction", fmt.Sprintf("%s (%s)", cfg.Correction.Type, cfg.Correction.Model))
}

func ok(what, detail string)   { fmt.Printf("  ✓ %-12s %s\n", what, detail) }
func warn(what, detail string) { fmt.Printf("  ! %-12s %s\n", what, detail) }
func fail(what, detail string) { fmt.Printf("  ✗ %-12s %s\n", what, detail) }

func init() {
	rootCmd.AddCommand(doctorCmd)
}
