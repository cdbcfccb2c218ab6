// ============================================================================
// GhostType - Voice Dictation for Desktop
// ============================================================================
//
// Package:     ui
// Description: System tray using fyne.io/systray
// Author:      Yida
// Created:     2026-01-18
// License:     MIT
// ============================================================================

package ui

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"

	"fyne.io/systray"
)

// IconState represents the current state for icon coloring
type IconState string

const (
	IconStateOffline    IconState = "offline"    // Gray - recognizer unreachable
	IconStateIdle       IconState = "idle"       // White - ready for dictation
	IconStateRecording  IconState = "recording"  // Red - push-to-talk held
	IconStateProcessing IconState = "processing" // Blue - waiting for transcript
	IconStateError      IconState = "error"      // Orange - last session failed
)

// TrayApp represents the system tray application. Status updates arrive
// from the state-listener and connectivity goroutines concurrently, so the
// mutable fields sit behind a mutex.
type TrayApp struct {
	onSettings func()
	onQuit     func()

	mu           sync.Mutex
	ready        bool
	menuStatus   *systray.MenuItem
	menuService  *systray.MenuItem
	menuHotkey   *systray.MenuItem
	menuSettings *systray.MenuItem
	menuQuit     *systray.MenuItem

	currentStatus string
	hotkey        string
	serviceOnline bool
	currentIcon   IconState
}

// TrayCallbacks holds callback functions for tray events
type TrayCallbacks struct {
	OnSettings func()
	OnQuit     func()
}

// NewTrayApp creates a new system tray application
func NewTrayApp(hotkey string, callbacks TrayCallbacks) *TrayApp {
	return &TrayApp{
		onSettings:    callbacks.OnSettings,
		onQuit:        callbacks.OnQuit,
		currentStatus: "Ready",
		hotkey:        hotkey,
		serviceOnline: false,
		currentIcon:   IconStateOffline,
	}
}

// Run starts the system tray application (blocking)
func (t *TrayApp) Run() {
	systray.Run(t.onReady, t.onExit)
}

// RunWithReady starts the tray and invokes ready once the menu exists
func (t *TrayApp) RunWithReady(ready func()) {
	systray.Run(func() {
		t.onReady()
		if ready != nil {
			go ready()
		}
	}, t.onExit)
}

func (t *TrayApp) onReady() {
	t.mu.Lock()
	defer t.mu.Unlock()

	systray.SetIcon(createTextIconBytes(t.currentIcon))
	systray.SetTitle("")
	systray.SetTooltip("GhostType")

	t.menuService = systray.AddMenuItem("Service: checking...", "Recognition service availability")
	t.menuService.Disable()

	t.menuStatus = systray.AddMenuItem("Status: "+t.currentStatus, "Current status")
	t.menuStatus.Disable()

	t.menuHotkey = systray.AddMenuItem("Hold "+t.hotkey+" to dictate", "Push-to-talk key")
	t.menuHotkey.Disable()

	systray.AddSeparator()

	t.menuSettings = systray.AddMenuItem("Settings...", "Open the config file")

	systray.AddSeparator()

	t.menuQuit = systray.AddMenuItem("Quit", "Exit GhostType")

	t.ready = true

	go t.handleClicks()
}

func (t *TrayApp) handleClicks() {
	for {
		select {
		case <-t.menuSettings.ClickedCh:
			if t.onSettings != nil {
				t.onSettings()
			}
		case <-t.menuQuit.ClickedCh:
			if t.onQuit != nil {
				t.onQuit()
			}
			systray.Quit()
			return
		}
	}
}

func (t *TrayApp) onExit() {
	// Cleanup if needed
}

// SetStatus updates the status display
func (t *TrayApp) SetStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setStatusLocked(status)
}

func (t *TrayApp) setStatusLocked(status string) {
	t.currentStatus = status
	if t.menuStatus != nil {
		t.menuStatus.SetTitle("Status: " + status)
	}
}

// SetServiceStatus updates the recognition service availability line. While
// idle the icon follows the service state.
func (t *TrayApp) SetServiceStatus(online bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.serviceOnline = online
	if t.menuService != nil {
		if online {
			t.menuService.SetTitle("Service: connected ✓")
		} else {
			t.menuService.SetTitle("Service: unreachable ✗")
		}
	}
	if t.currentIcon == IconStateOffline || t.currentIcon == IconStateIdle {
		if online {
			t.setIconLocked(IconStateIdle)
		} else {
			t.setIconLocked(IconStateOffline)
		}
	}
}

// SetRecording shows the recording icon
func (t *TrayApp) SetRecording() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setStatusLocked("Recording")
	t.setIconLocked(IconStateRecording)
}

// SetProcessing shows the processing icon
func (t *TrayApp) SetProcessing() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setStatusLocked("Processing")
	t.setIconLocked(IconStateProcessing)
}

// SetError shows the error icon. It stays until the next successful
// session or service recovery.
func (t *TrayApp) SetError() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setStatusLocked("Error")
	t.setIconLocked(IconStateError)
}

// SetIdle returns the icon to idle, respecting service availability
func (t *TrayApp) SetIdle() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.setStatusLocked("Ready")
	if t.serviceOnline {
		t.setIconLocked(IconStateIdle)
	} else {
		t.setIconLocked(IconStateOffline)
	}
}

// setIconLocked records the state and pushes the icon once the tray loop
// has built the menu; systray calls before Run are not safe.
func (t *TrayApp) setIconLocked(state IconState) {
	t.currentIcon = state
	if t.ready {
		systray.SetIcon(createTextIconBytes(state))
	}
}

// Quit quits the system tray
func (t *TrayApp) Quit() {
	systray.Quit()
}

// createTextIconBytes creates a PNG icon with "GT" text in the state color
func createTextIconBytes(state IconState) []byte {
	// macOS menu bar: 44x22 is retina-ready at menu bar height
	width := 44
	height := 22
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	var c color.RGBA
	switch state {
	case IconStateOffline:
		c = color.RGBA{128, 128, 128, 255} // Gray
	case IconStateIdle:
		c = color.RGBA{255, 255, 255, 255} // White
	case IconStateRecording:
		c = color.RGBA{255, 59, 48, 255} // Red
	case IconStateProcessing:
		c = color.RGBA{0, 122, 255, 255} // Blue
	case IconStateError:
		c = color.RGBA{255, 149, 0, 255} // Orange
	default:
		c = color.RGBA{128, 128, 128, 255}
	}

	drawText(img, "GT", 8, 4, c)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return minimalPNG()
	}
	return buf.Bytes()
}

// Bitmap font data for characters (5x7 pixels each)
// Each character is defined as 7 rows of 5 bits
var bitmapFont = map[rune][]byte{
	'G': {
		0b01110,
		0b10001,
		0b10000,
		0b10111,
		0b10001,
		0b10001,
		0b01110,
	},
	'T': {
		0b11111,
		0b00100,
		0b00100,
		0b00100,
		0b00100,
		0b00100,
		0b00100,
	},
}

// drawText draws text on the image using the bitmap font
func drawText(img *image.RGBA, text string, startX, startY int, c color.RGBA) {
	x := startX
	charWidth := 6 // 5 pixels + 1 spacing
	charHeight := 7

	// 2x scale for visibility
	scale := 2

	for _, ch := range text {
		if pattern, ok := bitmapFont[ch]; ok {
			for row := 0; row < charHeight; row++ {
				for col := 0; col < 5; col++ {
					if pattern[row]&(1<<(4-col)) != 0 {
						for sy := 0; sy < scale; sy++ {
							for sx := 0; sx < scale; sx++ {
								px := x + col*scale + sx
								py := startY + row*scale + sy
								if px >= 0 && px < img.Bounds().Max.X && py >= 0 && py < img.Bounds().Max.Y {
									img.SetRGBA(px, py, c)
								}
							}
						}
					}
				}
			}
		}
		x += charWidth * scale
	}
}

// minimalPNG returns a minimal valid 1x1 PNG as fallback
func minimalPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, color.Black)
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}
