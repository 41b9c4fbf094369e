// Package distinct estimates the number of distinct elements in a finite
// stream using the CVM algorithm of Chakraborty, Vinodchandran, and Meel
// ("Distinct Elements in Streams: An Algorithm for the (Text) Book",
// https://arxiv.org/abs/2301.10191). It is useful for counting unique items
// (users, keys, events) in one pass over data too large to deduplicate
// exactly.
//
// The estimator keeps a randomly thinned sample of the distinct values seen
// so far. Whenever the sample reaches a threshold derived from the stream
// length and the accuracy parameters, each sampled value is discarded with
// probability 1/2 and the sampling probability is halved. The final estimate
// is the sample size divided by the final sampling probability. Memory is
// bounded by the threshold, which grows only logarithmically with the stream
// length for fixed accuracy, never by the stream itself.
//
// A zero result is ambiguous: it is returned for an empty stream and also
// when a thinning pass fails to shrink the sample, which aborts the run as
// statistically degenerate (the parameters were too tight for the observed
// data). A zero therefore does not certify that the stream held no distinct
// values unless the stream was empty. Use WithStats to tell the two apart.
//
// Estimate and Estimator perform no validation of eps and delta; supplying
// non-positive or otherwise extreme values is a caller error that yields a
// meaningless threshold. Service code should reject such parameters before
// starting a run.
package distinct

import (
	"log/slog"
	"math"
)

const (
	// thresholdScale is the 12/eps^2 multiplier in the CVM threshold bound.
	thresholdScale = 12.0

	// thresholdLogScale scales the stream length inside the log2 term.
	thresholdLogScale = 8.0

	// thinKeep is the survival bound of a thinning pass: an element is kept
	// when its draw is >= thinKeep.
	thinKeep = 0.5

	// initialProbability is the sampling probability before any thinning.
	initialProbability = 1.0
)

// Threshold returns the sample-set capacity ceil((12/eps^2) * log2(8m/delta))
// used by a run over a stream of length m with relative error bound eps and
// failure probability delta. It is a pure function of its inputs and does no
// validation: eps or delta at or below zero produce a meaningless result.
func Threshold(m int, eps, delta float64) int {
	return int(math.Ceil(thresholdScale / (eps * eps) * math.Log2(thresholdLogScale*float64(m)/delta)))
}

// Estimator is one in-flight distinct-count run over a stream whose length
// was declared up front. Feed every element in order with Observe, then read
// the estimate with Result. All run state dies with the Estimator; nothing
// carries over between runs.
//
// An Estimator is not safe for concurrent use, and it owns its Source for
// the duration of the run.
type Estimator[T comparable] struct {
	thresh int
	p      float64
	chi    *sampleSet[T]
	src    Source
	logger *slog.Logger
	stats  *Stats

	halvings   int
	empty      bool
	degenerate bool
}

// NewEstimator starts a run over a stream of declared length m. A
// non-positive m declares the stream empty: the run observes nothing and
// reports 0. eps and delta are not validated (see the package
// documentation).
func NewEstimator[T comparable](m int, eps, delta float64, opts ...Option) *Estimator[T] {
	cfg := applyOptions(opts)

	e := &Estimator[T]{
		p:      initialProbability,
		src:    cfg.src,
		logger: cfg.logger,
		stats:  cfg.stats,
	}

	if m <= 0 {
		e.empty = true
		if e.stats != nil {
			e.stats.FinalP = e.p
		}
		return e
	}

	e.thresh = Threshold(m, eps, delta)
	e.chi = newSampleSet[T]()

	e.logger.Info("starting distinct-count run", "m", m, "thresh", e.thresh, "p", e.p)

	if e.stats != nil {
		e.stats.StreamLen = m
		e.stats.Threshold = e.thresh
		e.stats.FinalP = e.p
	}

	return e
}

// Observe feeds the next stream element into the run. An element already in
// the sample is first removed unconditionally, then re-admitted with the
// current sampling probability, so each observation ends up sampled with
// probability p regardless of history. Observations after the run has gone
// degenerate, or on a run declared empty, are no-ops.
func (e *Estimator[T]) Observe(v T) {
	if e.empty || e.degenerate {
		return
	}

	e.chi.remove(v)

	if e.src.Float64() < e.p {
		e.chi.insert(v)
	}

	if e.chi.len() != e.thresh {
		return
	}

	e.chi.thin(e.src)
	e.p /= 2
	e.halvings++

	if e.stats != nil {
		e.stats.Halvings = e.halvings
		e.stats.FinalP = e.p
	}

	if e.chi.len() == e.thresh {
		e.degenerate = true
		if e.stats != nil {
			e.stats.Degenerate = true
			e.stats.SampleSize = e.chi.len()
		}
		e.logger.Warn("sample set still full after thinning, aborting run", "thresh", e.thresh, "p", e.p)
	}
}

// Result returns the estimated number of distinct values observed. An empty
// stream and a degenerate run both report 0; see the package documentation
// for the ambiguity. Result is idempotent and does not consume draws.
func (e *Estimator[T]) Result() int {
	if e.empty || e.degenerate {
		return 0
	}

	size := e.chi.len()

	if e.stats != nil {
		e.stats.SampleSize = size
		e.stats.FinalP = e.p
	}

	e.logger.Info("distinct-count run finished", "p", e.p, "sample_size", size)

	return int(math.Round(float64(size) / e.p))
}

// Estimate returns the estimated number of distinct values in stream, with
// relative error eps at confidence 1-delta. It never errors: an empty stream
// reports 0, and so does a degenerate run (see the package documentation).
// The stream is read once and never mutated; auxiliary memory is bounded by
// Threshold(len(stream), eps, delta), not by the stream length.
//
// By default draws come from an entropy-seeded source and results vary
// between runs within the algorithm's error bounds. Pass WithSource with a
// seeded Gen for fully reproducible results.
func Estimate[T comparable](stream []T, eps, delta float64, opts ...Option) int {
	e := NewEstimator[T](len(stream), eps, delta, opts...)

	for _, v := range stream {
		e.Observe(v)
		if e.degenerate {
			break
		}
	}

	return e.Result()
}
