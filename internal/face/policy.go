package face

// Decision is the outcome of applying a threshold to a computed distance.
type Decision struct {
	Verified  bool
	Distance  float64
	Threshold float64
}

// Decide accepts a pair when distance <= threshold.
func Decide(distance, threshold float64) Decision {
	return Decision{
		Verified:  distance <= threshold,
		Distance:  distance,
		Threshold: threshold,
	}
}
