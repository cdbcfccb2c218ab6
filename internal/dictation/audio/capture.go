// ============================================================================
// GhostType - Voice Dictation for Desktop
// ============================================================================
//
// Package:     audio
// Description: Microphone capture using PortAudio
// Author:      Yida
// Created:     2026-01-14
// License:     MIT
// ============================================================================

package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const (
	// DefaultFramesPerBuffer is the PortAudio read size. Small enough to keep
	// push-to-talk latency low, large enough to avoid overrun on slow hosts.
	DefaultFramesPerBuffer = 512

	// frameChanCapacity bounds the capture-to-pipeline handoff. The capture
	// loop never blocks on a full channel; overflow chunks are dropped.
	frameChanCapacity = 32
)

// CaptureConfig holds configuration for microphone capture
type CaptureConfig struct {
	DeviceName      string // empty or "default" = system default input
	FramesPerBuffer int
}

// Capture owns one PortAudio input stream for the duration of a session.
// PCM crosses from the PortAudio thread to the pipeline through a bounded
// channel; Frames() ends after Stop.
type Capture struct {
	mu         sync.Mutex
	stream     *portaudio.Stream
	device     *portaudio.DeviceInfo
	sampleRate int
	channels   int
	bufSize    int
	frames     chan []int16
	done       chan struct{}
	running    bool
	stopped    bool
	dropped    int
}

// NewCapture initializes PortAudio, resolves the input device and negotiates
// a codec-supported sample rate. It fails when the device cannot run at any
// whitelisted rate.
func NewCapture(cfg CaptureConfig) (*Capture, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}

	device, err := resolveInputDevice(cfg.DeviceName)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}

	channels := device.MaxInputChannels
	if channels > 2 {
		channels = 2
	}
	if channels < 1 {
		portaudio.Terminate()
		return nil, fmt.Errorf("device %q has no input channels", device.Name)
	}

	bufSize := cfg.FramesPerBuffer
	if bufSize <= 0 {
		bufSize = DefaultFramesPerBuffer
	}

	sampleRate, err := negotiateSampleRate(device, channels, bufSize)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}

	return &Capture{
		device:     device,
		sampleRate: sampleRate,
		channels:   channels,
		bufSize:    bufSize,
		frames:     make(chan []int16, frameChanCapacity),
		done:       make(chan struct{}),
	}, nil
}

// SampleRate returns the negotiated capture rate
func (c *Capture) SampleRate() int {
	return c.sampleRate
}

// DeviceName returns the resolved input device name
func (c *Capture) DeviceName() string {
	return c.device.Name
}

// Frames returns the channel of mono 16-bit PCM chunks. The channel is closed
// after Stop once the capture loop has drained.
func (c *Capture) Frames() <-chan []int16 {
	return c.frames
}

// Start opens and starts the input stream and launches the capture loop
func (c *Capture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return fmt.Errorf("capture already running")
	}
	if c.stopped {
		return fmt.Errorf("capture already stopped")
	}

	buffer := make([]float32, c.bufSize*c.channels)
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   c.device,
			Channels: c.channels,
			Latency:  c.device.DefaultLowInputLatency,
		},
		SampleRate:      float64(c.sampleRate),
		FramesPerBuffer: c.bufSize,
	}

	stream, err := portaudio.OpenStream(params, buffer)
	if err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("start input stream: %w", err)
	}

	c.stream = stream
	c.running = true
	go c.captureLoop(stream, buffer)
	return nil
}

// captureLoop reads from the blocking stream until Stop. Conversion happens
// here, off the cooperative side: interleaved float32 in, mono int16 out.
func (c *Capture) captureLoop(stream *portaudio.Stream, buffer []float32) {
	defer close(c.frames)

	for {
		select {
		case <-c.done:
			return
		default:
		}

		if err := stream.Read(); err != nil {
			select {
			case <-c.done:
			default:
				// Transient overrun; keep reading. A dead stream surfaces as
				// repeated errors until Stop, which is harmless.
			}
			continue
		}

		chunk := MonoPCM16(buffer, c.channels)

		select {
		case c.frames <- chunk:
		default:
			c.mu.Lock()
			c.dropped++
			c.mu.Unlock()
		}
	}
}

// Stop stops the stream and terminates PortAudio. The frames channel closes
// once the capture loop exits.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	running := c.running
	c.running = false
	stream := c.stream
	c.stream = nil
	c.mu.Unlock()

	// created but never started: release the PortAudio hold and nothing else
	if !running {
		close(c.done)
		close(c.frames)
		return portaudio.Terminate()
	}
	close(c.done)

	var firstErr error
	if err := stream.Abort(); err != nil {
		firstErr = fmt.Errorf("abort input stream: %w", err)
	}
	if err := stream.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close input stream: %w", err)
	}
	if err := portaudio.Terminate(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("terminate portaudio: %w", err)
	}
	return firstErr
}

// Dropped returns how many chunks were discarded because the consumer fell
// behind
func (c *Capture) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// resolveInputDevice finds a device by name, falling back to the default
// input when the name is empty, "default", or not found
func resolveInputDevice(name string) (*portaudio.DeviceInfo, error) {
	if name != "" && name != "default" {
		devices, err := portaudio.Devices()
		if err == nil {
			for _, dev := range devices {
				if dev.Name == name && dev.MaxInputChannels > 0 {
					return dev, nil
				}
			}
		}
	}

	device, err := portaudio.DefaultInputDevice()
	if err != nil {
		return nil, fmt.Errorf("no input device: %w", err)
	}
	return device, nil
}

// negotiateSampleRate picks the first whitelisted rate the device supports,
// falling back to the device default if and only if it is itself whitelisted
func negotiateSampleRate(device *portaudio.DeviceInfo, channels, bufSize int) (int, error) {
	probe := make([]float32, bufSize*channels)
	for _, rate := range SupportedSampleRates {
		params := portaudio.StreamParameters{
			Input: portaudio.StreamDeviceParameters{
				Device:   device,
				Channels: channels,
				Latency:  device.DefaultLowInputLatency,
			},
			SampleRate:      float64(rate),
			FramesPerBuffer: bufSize,
		}
		if err := portaudio.IsFormatSupported(params, probe); err == nil {
			return rate, nil
		}
	}

	defaultRate := int(device.DefaultSampleRate)
	if IsSupportedSampleRate(defaultRate) {
		return defaultRate, nil
	}

	return 0, fmt.Errorf("device %q supports no codec sample rate (default %d; try setting the device to 48kHz)",
		device.Name, defaultRate)
}

// MonoPCM16 converts interleaved float32 samples to mono 16-bit PCM by taking
// the first channel of each sample frame. Deliberately not an average: one
// channel is enough for speech and avoids the extra pass.
func MonoPCM16(data []float32, channels int) []int16 {
	if channels <= 0 {
		return nil
	}
	out := make([]int16, 0, len(data)/channels)
	for i := 0; i+channels <= len(data); i += channels {
		out = append(out, pcm16(data[i]))
	}
	return out
}

// pcm16 clamps a float sample to [-1, 1] and scales to int16
func pcm16(sample float32) int16 {
	if sample > 1 {
		sample = 1
	} else if sample < -1 {
		sample = -1
	}
	return int16(sample * 32767)
}

// DeviceInfo describes an available input device
type DeviceInfo struct {
	Name              string
	MaxInputChannels  int
	DefaultSampleRate float64
	IsDefault         bool
}

// ListInputDevices enumerates input-capable devices
func ListInputDevices() ([]DeviceInfo, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	defaultInput, _ := portaudio.DefaultInputDevice()
	var defaultName string
	if defaultInput != nil {
		defaultName = defaultInput.Name
	}

	var out []DeviceInfo
	for _, dev := range devices {
		if dev.MaxInputChannels <= 0 {
			continue
		}
		out = append(out, DeviceInfo{
			Name:              dev.Name,
			MaxInputChannels:  dev.MaxInputChannels,
			DefaultSampleRate: dev.DefaultSampleRate,
			IsDefault:         dev.Name == defaultName,
		})
	}
	return out, nil
}
