package tone

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/piotrcurious/Bluedisplay-piano/internal/audio"
	"github.com/piotrcurious/Bluedisplay-piano/internal/testutil"
)

type fixedSource struct {
	hz atomic.Int32
}

func (s *fixedSource) Frequency() int { return int(s.hz.Load()) }

func newSource(hz int) *fixedSource {
	s := &fixedSource{}
	s.hz.Store(int32(hz))
	return s
}

// recordingDAC keeps every sample and calls onWrite with the running count.
type recordingDAC struct {
	samples []uint8
	onWrite func(n int)
	err     error
}

func (d *recordingDAC) WriteSample(s uint8) error {
	d.samples = append(d.samples, s)
	if d.onWrite != nil {
		d.onWrite(len(d.samples))
	}
	return d.err
}

// runUntil runs g until the DAC has received n samples.
func runUntil(t *testing.T, src *fixedSource, n int, hook func(count int)) (*recordingDAC, *Generator) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dac := &recordingDAC{}
	dac.onWrite = func(count int) {
		if hook != nil {
			hook(count)
		}
		if count == n {
			cancel()
		}
	}
	g := NewGenerator(audio.SampleRate, src, dac, NoPacer{}, zap.NewNop())
	if err := g.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run returned %v, want context.Canceled", err)
	}
	if len(dac.samples) != n {
		t.Fatalf("expected %d samples, got %d", n, len(dac.samples))
	}
	return dac, g
}

func TestSilenceEmitsMidpoint(t *testing.T) {
	dac, g := runUntil(t, newSource(0), 20, nil)
	for i, s := range dac.samples {
		if s != audio.Midpoint {
			t.Fatalf("sample %d = %d, want midpoint", i, s)
		}
	}
	if g.Stats().PeriodsComplete.Load() != 0 {
		t.Error("silence should not count periods")
	}
}

func TestUninterruptedPeriods(t *testing.T) {
	const period = 76 // 20000 / 262
	dac, g := runUntil(t, newSource(262), 2*period, nil)

	want := audio.GeneratePeriod(audio.SampleRate, 262)
	if len(want) != period {
		t.Fatalf("period length %d, want %d", len(want), period)
	}
	for i, s := range dac.samples {
		if s != want[i%period] {
			t.Fatalf("sample %d = %d, want %d", i, s, want[i%period])
		}
	}
	if dac.samples[0] != audio.Midpoint || dac.samples[period] != audio.Midpoint {
		t.Error("each period must start at the midpoint")
	}
	if got := g.Stats().PeriodsComplete.Load(); got != 2 {
		t.Errorf("completed periods = %d, want 2", got)
	}
	if got := g.Stats().PeriodsAborted.Load(); got != 0 {
		t.Errorf("aborted periods = %d, want 0", got)
	}
}

func TestNoteChangeAbortsPeriod(t *testing.T) {
	src := newSource(262)
	const switchAt = 10
	gPeriod := audio.GeneratePeriod(audio.SampleRate, 392)

	dac, g := runUntil(t, src, switchAt+len(gPeriod), func(count int) {
		if count == switchAt {
			src.hz.Store(392)
		}
	})

	cPeriod := audio.GeneratePeriod(audio.SampleRate, 262)
	for i := 0; i < switchAt; i++ {
		if dac.samples[i] != cPeriod[i] {
			t.Fatalf("C sample %d = %d, want %d", i, dac.samples[i], cPeriod[i])
		}
	}
	// G starts from its first sample, not mid-period.
	for i, want := range gPeriod {
		if got := dac.samples[switchAt+i]; got != want {
			t.Fatalf("G sample %d = %d, want %d", i, got, want)
		}
	}
	if got := g.Stats().PeriodsAborted.Load(); got != 1 {
		t.Errorf("aborted periods = %d, want 1", got)
	}
}

func TestReleaseFallsBackToMidpoint(t *testing.T) {
	src := newSource(262)
	dac, _ := runUntil(t, src, 30, func(count int) {
		if count == 5 {
			src.hz.Store(0)
		}
	})
	for i := 5; i < len(dac.samples); i++ {
		if dac.samples[i] != audio.Midpoint {
			t.Fatalf("sample %d = %d after release, want midpoint", i, dac.samples[i])
		}
	}
}

func TestSameFrequencyDoesNotRestart(t *testing.T) {
	src := newSource(262)
	dac, g := runUntil(t, src, 76, func(count int) {
		if count == 5 {
			src.hz.Store(262)
		}
	})
	want := audio.GeneratePeriod(audio.SampleRate, 262)
	for i, s := range dac.samples {
		if s != want[i] {
			t.Fatalf("sample %d = %d, want %d", i, s, want[i])
		}
	}
	if g.Stats().PeriodsAborted.Load() != 0 {
		t.Error("rewriting the same frequency aborted the period")
	}
}

func TestWriteErrorsAreCountedNotFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dac := &recordingDAC{err: errors.New("bus fault")}
	dac.onWrite = func(n int) {
		if n == 10 {
			cancel()
		}
	}
	g := NewGenerator(audio.SampleRate, newSource(440), dac, NoPacer{}, zap.NewNop())
	_ = g.Run(ctx)
	if got := g.Stats().WriteErrors.Load(); got != 10 {
		t.Errorf("write errors = %d, want 10", got)
	}
}

func TestRunStopsWithPacer(t *testing.T) {
	baseline := testutil.GoroutineBaseline()

	pacer := NewTickerPacer(50 * time.Microsecond)
	defer pacer.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	g := NewGenerator(audio.SampleRate, newSource(262), &recordingDAC{}, pacer, zap.NewNop())
	done := make(chan error, 1)
	go func() { done <- g.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("generator did not stop")
	}
	if g.Stats().Samples.Load() == 0 {
		t.Error("no samples written")
	}
	testutil.AssertNoGoroutineLeaks(t, baseline, 2)
}
