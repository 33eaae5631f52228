package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// MaxSampleRate keeps the sample interval at one microsecond or more.
const MaxSampleRate = 1_000_000

type Config struct {
	APIAddr  string
	// APIKey, when set, is required on requests that change the instrument.
	APIKey   string
	LogDebug bool

	SampleRate int
	// TonePacing selects how samples are spaced: sleep, ticker or none.
	// Empty picks the backend's default.
	TonePacing string
	// DACBackend selects the audio output: capture, speaker or serial.
	DACBackend    string
	DACSerialPort string
	DACSerialBaud int
	DACChunk      int
	CaptureSec    int

	DisplayPort           string
	DisplayBaud           int
	DisplayConnectTimeout time.Duration
	DisplayRetryDelay     time.Duration

	MIDIEnabled   bool
	MIDIPreferred []string
	MIDIRescan    time.Duration
}

func Load() *Config {
	return &Config{
		APIAddr:  getEnv("API_ADDR", ":9090"),
		APIKey:   getEnv("API_KEY", ""),
		LogDebug: getEnvBool("LOG_DEBUG", false),

		SampleRate:    getEnvInt("SAMPLE_RATE", 20000),
		TonePacing:    getEnv("TONE_PACING", ""),
		DACBackend:    getEnv("DAC_BACKEND", "capture"),
		DACSerialPort: getEnv("DAC_SERIAL_PORT", "/dev/ttyACM0"),
		DACSerialBaud: getEnvInt("DAC_SERIAL_BAUD", 500000),
		DACChunk:      getEnvInt("DAC_CHUNK", 256),
		CaptureSec:    getEnvInt("CAPTURE_SEC", 5),

		DisplayPort:           getEnv("DISPLAY_PORT", "/dev/rfcomm0"),
		DisplayBaud:           getEnvInt("DISPLAY_BAUD", 115200),
		DisplayConnectTimeout: getEnvMillis("DISPLAY_CONNECT_TIMEOUT_MS", 2000),
		DisplayRetryDelay:     getEnvMillis("DISPLAY_RETRY_MS", 1000),

		MIDIEnabled:   getEnvBool("MIDI_ENABLED", false),
		MIDIPreferred: getEnvList("MIDI_PREFERRED", []string{"Launchkey", "Novation"}),
		MIDIRescan:    getEnvMillis("MIDI_RESCAN_MS", 1000),
	}
}

// Validate rejects values the audio path cannot run with.
func (c *Config) Validate() error {
	var err error
	if c.SampleRate <= 0 || c.SampleRate > MaxSampleRate {
		err = multierr.Append(err, fmt.Errorf("SAMPLE_RATE must be in (0, %d], got %d", MaxSampleRate, c.SampleRate))
	}
	if c.CaptureSec <= 0 {
		err = multierr.Append(err, fmt.Errorf("CAPTURE_SEC must be positive, got %d", c.CaptureSec))
	}
	if c.DACChunk <= 0 {
		err = multierr.Append(err, fmt.Errorf("DAC_CHUNK must be positive, got %d", c.DACChunk))
	}
	if c.DACSerialBaud <= 0 {
		err = multierr.Append(err, fmt.Errorf("DAC_SERIAL_BAUD must be positive, got %d", c.DACSerialBaud))
	}
	if c.DisplayBaud <= 0 {
		err = multierr.Append(err, fmt.Errorf("DISPLAY_BAUD must be positive, got %d", c.DisplayBaud))
	}
	if c.DisplayConnectTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("DISPLAY_CONNECT_TIMEOUT_MS must be positive, got %v", c.DisplayConnectTimeout))
	}
	if c.DisplayRetryDelay < 0 {
		err = multierr.Append(err, fmt.Errorf("DISPLAY_RETRY_MS must not be negative, got %v", c.DisplayRetryDelay))
	}
	if c.MIDIEnabled && c.MIDIRescan <= 0 {
		err = multierr.Append(err, fmt.Errorf("MIDI_RESCAN_MS must be positive, got %v", c.MIDIRescan))
	}
	return err
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvMillis(key string, fallbackMs int) time.Duration {
	return time.Duration(getEnvInt(key, fallbackMs)) * time.Millisecond
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
