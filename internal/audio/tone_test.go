package audio

import (
	"testing"

	"github.com/faiface/beep"
)

func TestPeriodSamples(t *testing.T) {
	if got := PeriodSamples(SampleRate, 262); got != 76 {
		t.Errorf("PeriodSamples(20000, 262) = %d, want 76", got)
	}
	if got := PeriodSamples(SampleRate, 440); got != 45 {
		t.Errorf("PeriodSamples(20000, 440) = %d, want 45", got)
	}
	if got := PeriodSamples(SampleRate, 0); got != 0 {
		t.Errorf("PeriodSamples with zero frequency = %d, want 0", got)
	}
}

func TestSampleInterval(t *testing.T) {
	if got := SampleInterval(SampleRate); got != 50 {
		t.Errorf("SampleInterval(20000) = %d, want 50", got)
	}
	if got := SampleInterval(0); got != 0 {
		t.Errorf("SampleInterval(0) = %d, want 0", got)
	}
}

func TestGeneratePeriodShape(t *testing.T) {
	p := GeneratePeriod(SampleRate, 262)
	if len(p) != 76 {
		t.Fatalf("expected 76 samples, got %d", len(p))
	}
	if p[0] != Midpoint {
		t.Errorf("first sample %d, want midpoint %d", p[0], Midpoint)
	}
	// quarter period is the positive peak, three quarters the negative one
	if p[19] != 255 {
		t.Errorf("sample 19 = %d, want 255", p[19])
	}
	if p[57] != 1 {
		t.Errorf("sample 57 = %d, want 1", p[57])
	}
	if p[38] != Midpoint {
		t.Errorf("half period sample = %d, want %d", p[38], Midpoint)
	}
}

func TestU8ToFloatSurvivesWAVEncoding(t *testing.T) {
	format := beep.Format{SampleRate: SampleRate, NumChannels: 1, Precision: 1}
	buf := make([]byte, 1)
	for v := 0; v <= 255; v++ {
		x := U8ToFloat(uint8(v))
		if x < -1 || x > 1 {
			t.Fatalf("U8ToFloat(%d) = %f out of range", v, x)
		}
		format.EncodeUnsigned(buf, [2]float64{x, x})
		if int(buf[0]) != v {
			t.Errorf("sample %d encoded as %d", v, buf[0])
		}
	}
}
