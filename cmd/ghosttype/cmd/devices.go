// ============================================================================
// GhostType - Voice Dictation for Desktop
// ============================================================================
//
// Package:     cmd
// Description: CLI command to list audio input devices
// Author:      Yida
// Created:     2026-01-18
// License:     MIT
// ============================================================================

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Yida-git/GhostType/internal/dictation/audio"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio input devices",
	Long: `Lists the available microphone devices.

Put the exact device name into the audio_device config field to pin
capture to one device; leave it empty to use the system default.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		devices, err := audio.ListInputDevices()
		if err != nil {
			printError("device enumeration failed", err)
			return err
		}
		if len(devices) == 0 {
			fmt.Println("no input devices found")
			return nil
		}
		for _, dev := range devices {
			marker := " "
			if dev.IsDefault {
				marker = "*"
			}
			fmt.Printf("%s %-40s %6.0f Hz  %d ch\n", marker, dev.Name, dev.DefaultSampleRate, dev.MaxInputChannels)
		}
		fmt.Println("\n* system default")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
