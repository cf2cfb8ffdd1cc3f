package parser

// AltitudeSample is one [timestamp, altitude] point of a recorded altitude curve.
type AltitudeSample struct {
	Timestamp int64
	Altitude  float64
}

// TotalAscent sums the positive and negative altitude changes between
// consecutive samples. No smoothing is applied, so sensor noise inflates both.
func TotalAscent(samples []AltitudeSample) (ascent, descent float64) {
	for i := 0; i+1 < len(samples); i++ {
		delta := samples[i+1].Altitude - samples[i].Altitude
		if delta > 0 {
			ascent += delta
		} else {
			descent -= delta
		}
	}
	return ascent, descent
}
