package fingerprint

import (
	"math"

	"github.com/MorganMind/penrose/internal/model"
)

// describe returns the population mean, variance and standard deviation
func describe(values []float64) model.LengthStats {
	if len(values) == 0 {
		return model.LengthStats{}
	}
	mean := Mean(values)
	variance := Variance(values)
	return model.LengthStats{Mean: mean, Variance: variance, StdDev: math.Sqrt(variance)}
}

// Mean returns the arithmetic mean, 0 for an empty slice
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Variance returns the population variance, 0 for an empty slice
func Variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(values))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
