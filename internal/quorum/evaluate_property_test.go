package quorum

import (
	"math"
	"math/rand"
	"testing"
)

// TestEvaluate_Property_AcceptIffTwoWithinTolerance checks the 2-of-3 rule on random inputs.
func TestEvaluate_Property_AcceptIffTwoWithinTolerance(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		values := []float64{
			20 + rng.NormFloat64()*2,
			20 + rng.NormFloat64()*2,
			20 + rng.NormFloat64()*2,
		}
		tol := rng.Float64() * 3

		mean := (values[0] + values[1] + values[2]) / 3
		within := 0
		for _, v := range values {
			if math.Abs(v-mean) <= tol {
				within++
			}
		}

		d := Evaluate(values, tol, 0)
		if d.Accepted != (within >= 2) {
			t.Fatalf("values=%v tol=%v: accepted=%v but %d within tolerance", values, tol, d.Accepted, within)
		}
	}
}

// TestEvaluate_Property_AcceptedValueIsInlierMean checks that the accepted value never includes outliers.
func TestEvaluate_Property_AcceptedValueIsInlierMean(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 2000; i++ {
		values := []float64{
			rng.Float64() * 10,
			rng.Float64() * 10,
			rng.Float64() * 10,
		}
		d := Evaluate(values, rng.Float64()*4, 0)
		if !d.Accepted {
			continue
		}

		var sum float64
		for _, v := range d.Inliers {
			sum += v
			if math.Abs(v-d.Mean) > d.Tolerance {
				t.Fatalf("inlier %v is further than %v from mean %v", v, d.Tolerance, d.Mean)
			}
		}
		want := sum / float64(len(d.Inliers))
		if math.Abs(d.AcceptedValue-want) > 1e-12 {
			t.Fatalf("accepted value %v, want inlier mean %v", d.AcceptedValue, want)
		}
	}
}

// TestEvaluate_Property_OrderIndependent checks that permuting readings does not change the decision.
func TestEvaluate_Property_OrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(99))

	for i := 0; i < 500; i++ {
		a, b, c := float64(rng.Intn(40)), float64(rng.Intn(40)), float64(rng.Intn(40))
		tol := float64(rng.Intn(10))

		base := Evaluate([]float64{a, b, c}, tol, 0)
		for _, perm := range [][]float64{{a, c, b}, {b, a, c}, {b, c, a}, {c, a, b}, {c, b, a}} {
			d := Evaluate(perm, tol, 0)
			if d.Accepted != base.Accepted || len(d.Inliers) != len(base.Inliers) {
				t.Fatalf("permutation %v changed decision: %+v vs %+v", perm, d, base)
			}
			if d.Accepted && math.Abs(d.AcceptedValue-base.AcceptedValue) > 1e-9 {
				t.Fatalf("permutation %v changed accepted value: %v vs %v", perm, d.AcceptedValue, base.AcceptedValue)
			}
		}
	}
}
