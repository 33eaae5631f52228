package main

import (
	"fmt"
	"time"

	"github.com/piotrcurious/Bluedisplay-piano/internal/audio"
	"github.com/piotrcurious/Bluedisplay-piano/internal/config"
	"github.com/piotrcurious/Bluedisplay-piano/internal/dac"
	"github.com/piotrcurious/Bluedisplay-piano/internal/tone"
)

// openOutput builds the configured DAC, teed into capture, and the pacer that
// suits it. The returned func releases the device.
func openOutput(cfg *config.Config, capture *dac.Capture) (tone.DAC, tone.Pacer, func(), error) {
	pacing, err := pacingFor(cfg.DACBackend, cfg.TonePacing)
	if err != nil {
		return nil, nil, nil, err
	}

	var out tone.DAC = capture
	closeFn := func() {}

	switch cfg.DACBackend {
	case "capture":
	case "speaker":
		sp, err := dac.NewSpeaker(cfg.SampleRate, cfg.DACChunk)
		if err != nil {
			return nil, nil, nil, err
		}
		out = dac.Tee{sp, capture}
		closeFn = func() { sp.Close() }
	case "serial":
		st, err := dac.OpenSerial(cfg.DACSerialPort, cfg.DACSerialBaud, cfg.DACChunk)
		if err != nil {
			return nil, nil, nil, err
		}
		out = dac.Tee{st, capture}
		closeFn = func() { st.Close() }
	}

	interval := time.Duration(audio.SampleInterval(cfg.SampleRate)) * time.Microsecond
	switch pacing {
	case "ticker":
		tp := tone.NewTickerPacer(interval)
		return out, tp, func() { tp.Stop(); closeFn() }, nil
	case "none":
		return out, tone.NoPacer{}, closeFn, nil
	default:
		return out, tone.SleepPacer{Interval: interval}, closeFn, nil
	}
}

// pacingFor resolves the pacing mode for a backend. The speaker blocks on its
// device buffer, so it only runs unpaced.
func pacingFor(backend, pacing string) (string, error) {
	switch backend {
	case "capture", "serial":
	case "speaker":
		if pacing == "" || pacing == "none" {
			return "none", nil
		}
		return "", fmt.Errorf("tone pacing %q cannot drive the speaker backend, which paces itself", pacing)
	default:
		return "", fmt.Errorf("unknown DAC backend %q", backend)
	}

	switch pacing {
	case "":
		return "sleep", nil
	case "sleep", "ticker", "none":
		return pacing, nil
	default:
		return "", fmt.Errorf("unknown tone pacing %q", pacing)
	}
}
