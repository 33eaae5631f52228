package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gauges
var (
	CurrentFrequency = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "piano_current_frequency_hz",
		Help: "Frequency currently requested from the tone generator, 0 when silent",
	})
	DisplayConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "piano_display_connected",
		Help: "1 while a display session is established",
	})
	MIDIConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "piano_midi_connected",
		Help: "1 while a MIDI input device is connected",
	})
)

// Counters
var (
	KeyEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "piano_key_events_total",
		Help: "Key events by source and outcome",
	}, []string{"source", "outcome"})
	SamplesWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "piano_dac_samples_total",
		Help: "Total samples written to the DAC",
	})
	DACWriteErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "piano_dac_write_errors_total",
		Help: "Total failed DAC sample writes",
	})
	PeriodsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "piano_tone_periods_total",
		Help: "Waveform periods by outcome (completed or aborted)",
	}, []string{"outcome"})
	DisplayConnectAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "piano_display_connect_attempts_total",
		Help: "Display connection attempts by outcome",
	}, []string{"outcome"})
	LayoutBuildsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "piano_display_layout_builds_total",
		Help: "Keyboard layouts sent to the display by trigger",
	}, []string{"trigger"})
)
