package stats

import (
	"slices"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ZVal returns the two-tailed Z-value associated with a specific confidence interval.
// The interval is a number from 0 to 100 percent.
func ZVal(confidenceInterval float64) float64 {
	dist := distuv.Normal{
		Mu:    0,
		Sigma: 1,
	}
	area := (1 + (confidenceInterval / 100)) / 2
	return dist.Quantile(area)
}

// Summary describes a sample of measurements.
type Summary struct {
	Count  int     `yaml:"count"`
	Mean   float64 `yaml:"mean"`
	Stdev  float64 `yaml:"stdev"`
	Min    float64 `yaml:"min"`
	Median float64 `yaml:"median"`
	P90    float64 `yaml:"p90"`
	Max    float64 `yaml:"max"`
	// half-width of the confidence interval of the mean
	CIHalfWidth float64 `yaml:"ci_half_width"`
}

// Summarize computes a Summary of values, with a confidence interval of
// the mean at the given level (in percent).
func Summarize(values []float64, confidenceInterval float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	mean, stdev := stat.MeanStdDev(sorted, nil)
	if len(sorted) == 1 {
		stdev = 0
	}
	sum := Summary{
		Count:  len(sorted),
		Mean:   mean,
		Stdev:  stdev,
		Min:    sorted[0],
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P90:    stat.Quantile(0.9, stat.Empirical, sorted, nil),
		Max:    sorted[len(sorted)-1],
	}
	sum.CIHalfWidth = ZVal(confidenceInterval) * stat.StdErr(stdev, float64(len(sorted)))
	return sum
}
