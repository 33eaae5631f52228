package audio

import "math"

const (
	// SampleRate is the DAC sampling rate in Hz.
	SampleRate = 20000
	// Midpoint is the 8-bit DAC level for zero amplitude.
	Midpoint = 128
	// Amplitude is the sine peak around Midpoint. Samples stay within [1, 255].
	Amplitude = 127
)

// SampleInterval returns the open-loop delay between samples at rate Hz,
// 1,000,000/rate microseconds. A non-positive rate has no interval.
func SampleInterval(rate int) int {
	if rate <= 0 {
		return 0
	}
	return 1_000_000 / rate
}

// PeriodSamples returns how many samples make one waveform period of
// frequency Hz at rate Hz. The division truncates, so frequencies that do not
// divide rate evenly play slightly sharp.
func PeriodSamples(rate, frequency int) int {
	if frequency <= 0 {
		return 0
	}
	return rate / frequency
}

// SineSample returns sample i of a discretized sine period of length period.
// Sample 0 is always Midpoint.
func SineSample(i, period int) uint8 {
	v := Midpoint + Amplitude*math.Sin(2*math.Pi*float64(i)/float64(period))
	return uint8(math.Round(v))
}

// GeneratePeriod produces one full sine period of frequency Hz at rate Hz as
// unsigned 8-bit samples.
func GeneratePeriod(rate, frequency int) []uint8 {
	n := PeriodSamples(rate, frequency)
	samples := make([]uint8, n)
	for i := range samples {
		samples[i] = SineSample(i, n)
	}
	return samples
}
