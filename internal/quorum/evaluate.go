package quorum

import (
	"math"
)

// DefaultTolerance is the default inlier distance from the mean.
const DefaultTolerance = 5.0

// Decision is the outcome of evaluating one round of sensor readings.
type Decision struct {
	Accepted  bool
	Mean      float64 // mean over all values
	Tolerance float64
	Required  int
	Inliers   []float64
	// AcceptedValue is the mean of Inliers. NaN unless Accepted.
	AcceptedValue float64
}

// Value returns the accepted value and whether the decision was accepted.
func (d Decision) Value() (float64, bool) {
	if !d.Accepted {
		return math.NaN(), false
	}
	return d.AcceptedValue, true
}

// Majority returns floor(n/2)+1.
func Majority(n int) int {
	return (n / 2) + 1
}

// Mean returns the arithmetic mean of values, or NaN when values is empty.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Evaluate decides whether enough readings agree with the overall mean.
//
// A value is an inlier when |v - mean| <= tolerance, where mean is taken over
// all values. The decision is accepted when the number of inliers reaches
// required (majority of len(values) when required <= 0), in which case
// AcceptedValue is the mean of the inliers only.
func Evaluate(values []float64, tolerance float64, required int) Decision {
	if required <= 0 {
		required = Majority(len(values))
	}

	d := Decision{
		Mean:          Mean(values),
		Tolerance:     tolerance,
		Required:      required,
		Inliers:       make([]float64, 0, len(values)),
		AcceptedValue: math.NaN(),
	}
	if len(values) == 0 {
		return d
	}

	for _, v := range values {
		if math.Abs(v-d.Mean) <= tolerance {
			d.Inliers = append(d.Inliers, v)
		}
	}

	if len(d.Inliers) >= required {
		d.Accepted = true
		d.AcceptedValue = Mean(d.Inliers)
	}

	return d
}
