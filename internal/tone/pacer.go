package tone

import "time"

// Pacer spaces DAC writes in time. Wait is called once after every sample.
type Pacer interface {
	Wait()
}

// SleepPacer sleeps a fixed interval after each sample. The write and compute
// cost is not accounted for, so the true rate is slightly below nominal.
type SleepPacer struct {
	Interval time.Duration
}

func (p SleepPacer) Wait() { time.Sleep(p.Interval) }

// TickerPacer waits for the next tick of a time.Ticker, so the time spent
// computing and writing a sample is absorbed into the interval.
type TickerPacer struct {
	ticker *time.Ticker
}

// NewTickerPacer starts a ticker firing every interval. Call Stop when done.
func NewTickerPacer(interval time.Duration) *TickerPacer {
	return &TickerPacer{ticker: time.NewTicker(interval)}
}

func (p *TickerPacer) Wait() { <-p.ticker.C }

// Stop releases the underlying ticker.
func (p *TickerPacer) Stop() { p.ticker.Stop() }

// NoPacer never waits. Use it with sinks whose writes block at the hardware
// rate, such as a buffered audio device.
type NoPacer struct{}

func (NoPacer) Wait() {}
