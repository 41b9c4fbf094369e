// Package calibrate measures the empirical accuracy of distinct-count runs
// by Monte Carlo simulation. It answers the sizing question directly: for a
// stream of this length and this many distinct values, what error does a
// given epsilon and delta actually deliver, and how large a sample set does
// it cost.
package calibrate

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/yourusername/cardinality-auditor/pkg/distinct"
)

// Config describes one calibration experiment: Trials independent runs over
// a synthetic stream of StreamLen elements cycling through Distinct values.
// Trial i draws from a source seeded with Seed+i, so a whole experiment is
// reproducible from its Config.
type Config struct {
	Trials    int
	StreamLen int
	Distinct  int
	Epsilon   float64
	Delta     float64
	Seed      uint64
}

// Summary aggregates the estimates of all trials against the known distinct
// count.
type Summary struct {
	Threshold  int     // sample capacity each run allocated
	Mean       float64 // mean estimate across trials
	StdDev     float64
	Median     float64
	P90        float64
	P99        float64
	MeanRelErr float64
	MaxRelErr  float64
	WithinEps  float64 // fraction of trials within the requested error bound
}

// Run executes the experiment and aggregates its estimates.
func Run(cfg Config) (Summary, error) {
	if cfg.Trials <= 0 {
		return Summary{}, fmt.Errorf("trials must be positive, got %d", cfg.Trials)
	}
	if cfg.Distinct <= 0 {
		return Summary{}, fmt.Errorf("distinct must be positive, got %d", cfg.Distinct)
	}
	if cfg.StreamLen < cfg.Distinct {
		return Summary{}, fmt.Errorf("stream length %d cannot hold %d distinct values", cfg.StreamLen, cfg.Distinct)
	}
	if cfg.Epsilon <= 0 {
		return Summary{}, fmt.Errorf("epsilon must be positive, got %v", cfg.Epsilon)
	}
	if cfg.Delta <= 0 || cfg.Delta >= 1 {
		return Summary{}, fmt.Errorf("delta must be in (0, 1), got %v", cfg.Delta)
	}

	stream := make([]int, cfg.StreamLen)
	for i := range stream {
		stream[i] = i % cfg.Distinct
	}

	truth := float64(cfg.Distinct)

	estimates := make([]float64, cfg.Trials)
	relErrs := make([]float64, cfg.Trials)

	within := 0
	maxRelErr := 0.0

	for i := range estimates {
		est := distinct.Estimate(stream, cfg.Epsilon, cfg.Delta,
			distinct.WithSource(distinct.NewGen(cfg.Seed+uint64(i))))

		estimates[i] = float64(est)
		relErrs[i] = math.Abs(float64(est)-truth) / truth

		if relErrs[i] <= cfg.Epsilon {
			within++
		}
		if relErrs[i] > maxRelErr {
			maxRelErr = relErrs[i]
		}
	}

	sort.Float64s(estimates)

	s := Summary{
		Threshold:  distinct.Threshold(cfg.StreamLen, cfg.Epsilon, cfg.Delta),
		Mean:       stat.Mean(estimates, nil),
		Median:     stat.Quantile(0.5, stat.Empirical, estimates, nil),
		P90:        stat.Quantile(0.9, stat.Empirical, estimates, nil),
		P99:        stat.Quantile(0.99, stat.Empirical, estimates, nil),
		MeanRelErr: stat.Mean(relErrs, nil),
		MaxRelErr:  maxRelErr,
		WithinEps:  float64(within) / float64(cfg.Trials),
	}

	if cfg.Trials > 1 {
		s.StdDev = stat.StdDev(estimates, nil)
	}

	return s, nil
}

// String renders the summary as a compact one-line report.
func (s Summary) String() string {
	return fmt.Sprintf(
		"threshold=%d mean=%.1f sd=%.1f median=%.0f p90=%.0f p99=%.0f rel_err(mean=%.4f max=%.4f) within_eps=%.0f%%",
		s.Threshold, s.Mean, s.StdDev, s.Median, s.P90, s.P99, s.MeanRelErr, s.MaxRelErr, 100*s.WithinEps)
}
