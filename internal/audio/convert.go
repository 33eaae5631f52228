package audio

// U8ToFloat maps an unsigned 8-bit DAC sample onto the [-1, 1] range used by
// beep streamers. beep encodes unsigned 8-bit as trunc((x+1)/2*255), so the
// value is placed half a step above s/255 and survives that encoding exactly.
func U8ToFloat(s uint8) float64 {
	x := (float64(s)+0.5)/255*2 - 1
	if x > 1 {
		x = 1
	}
	return x
}
