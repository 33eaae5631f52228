package tone

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/piotrcurious/Bluedisplay-piano/internal/audio"
	"github.com/piotrcurious/Bluedisplay-piano/internal/metrics"
)

// DAC is an 8-bit analog output. The generator goroutine is its only writer.
type DAC interface {
	WriteSample(s uint8) error
}

// FrequencySource reports the frequency to play, 0 for silence.
type FrequencySource interface {
	Frequency() int
}

// Stats counts generator activity. Safe to read while Run is active.
type Stats struct {
	Samples         atomic.Uint64
	PeriodsComplete atomic.Uint64
	PeriodsAborted  atomic.Uint64
	WriteErrors     atomic.Uint64
}

// Generator drives a DAC with one sine period at a time at the frequency named
// by its source, or with the midpoint level while the source reports 0.
type Generator struct {
	rate   int
	src    FrequencySource
	dac    DAC
	pacer  Pacer
	logger *zap.Logger

	stats   Stats
	failing bool
	// periods caches one waveform period per frequency played.
	periods map[int][]uint8
}

// NewGenerator creates a generator sampling at rate Hz.
func NewGenerator(rate int, src FrequencySource, dac DAC, pacer Pacer, logger *zap.Logger) *Generator {
	return &Generator{
		rate:    rate,
		src:     src,
		dac:     dac,
		pacer:   pacer,
		logger:  logger,
		periods: make(map[int][]uint8),
	}
}

// Stats returns the generator's live counters.
func (g *Generator) Stats() *Stats {
	return &g.stats
}

// Run plays until ctx is cancelled, then returns ctx.Err().
func (g *Generator) Run(ctx context.Context) error {
	g.logger.Info("tone generator started",
		zap.Int("sampleRate", g.rate),
		zap.Int("sampleIntervalUs", audio.SampleInterval(g.rate)),
	)
	defer g.logger.Info("tone generator stopped")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		f := g.src.Frequency()
		if f == 0 {
			g.emit(audio.Midpoint)
			g.pacer.Wait()
			continue
		}
		g.playPeriod(ctx, f)
	}
}

// playPeriod writes one period of f. It returns early, without finishing the
// cycle, as soon as the source changes to any other value or ctx is done.
func (g *Generator) playPeriod(ctx context.Context, f int) {
	period := g.period(f)
	n := len(period)
	if n == 0 {
		// f above the sampling rate cannot be represented; hold the midpoint
		g.emit(audio.Midpoint)
		g.pacer.Wait()
		return
	}
	for i := 0; i < n; i++ {
		g.emit(period[i])
		g.pacer.Wait()
		if g.src.Frequency() != f || ctx.Err() != nil {
			if i < n-1 {
				g.stats.PeriodsAborted.Add(1)
				metrics.PeriodsTotal.WithLabelValues("aborted").Inc()
				return
			}
		}
	}
	g.stats.PeriodsComplete.Add(1)
	metrics.PeriodsTotal.WithLabelValues("completed").Inc()
}

func (g *Generator) period(f int) []uint8 {
	p, ok := g.periods[f]
	if !ok {
		p = audio.GeneratePeriod(g.rate, f)
		g.periods[f] = p
	}
	return p
}

func (g *Generator) emit(s uint8) {
	err := g.dac.WriteSample(s)
	g.stats.Samples.Add(1)
	metrics.SamplesWrittenTotal.Inc()
	if err != nil {
		g.stats.WriteErrors.Add(1)
		metrics.DACWriteErrorsTotal.Inc()
		if !g.failing {
			g.logger.Warn("DAC write failed", zap.Error(err))
			g.failing = true
		}
		return
	}
	if g.failing {
		g.logger.Info("DAC writes recovered")
		g.failing = false
	}
}
