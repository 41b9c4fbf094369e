package distinct

import (
	"io"
	"log/slog"
)

// Stats reports diagnostics of a finished or aborted run. It is filled in as
// the run progresses and never influences the computed estimate. In
// particular, Degenerate distinguishes a run aborted by a failed thinning
// pass from a genuinely empty stream; the returned estimate is 0 either way.
type Stats struct {
	StreamLen  int     // declared stream length m (0 for an empty run)
	Threshold  int     // sample-set capacity computed for the run
	SampleSize int     // surviving sample size when the run ended
	FinalP     float64 // sampling probability when the run ended
	Halvings   int     // number of thinning passes performed
	Degenerate bool    // true when a thinning pass failed to shrink the sample
}

// Option configures a single estimation run.
type Option func(*settings)

type settings struct {
	src    Source
	logger *slog.Logger
	stats  *Stats
}

// WithSource supplies the Random Source for the run. Pass a seeded Gen for
// reproducible results. The default is NewGenFromEntropy.
func WithSource(src Source) Option {
	return func(s *settings) { s.src = src }
}

// WithLogger attaches a logger receiving run diagnostics: the computed
// threshold and initial state at start, the final sampling probability at
// completion, and a warning when the run aborts as degenerate. Logging is
// advisory and never changes the result. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithStats records run diagnostics into st as the run progresses.
func WithStats(st *Stats) Option {
	return func(s *settings) { s.stats = st }
}

func applyOptions(opts []Option) settings {
	var s settings

	for _, opt := range opts {
		opt(&s)
	}

	if s.src == nil {
		s.src = NewGenFromEntropy()
	}

	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return s
}
