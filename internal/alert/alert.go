// Package alert flags anomalous audit results: estimates that spike past
// the configured factor, and runs that aborted as degenerate.
package alert

import (
	"fmt"
	"sync"

	"github.com/yourusername/cardinality-auditor/internal/config"
	"github.com/yourusername/cardinality-auditor/internal/storage"
)

const (
	ReasonSpike      = "spike"
	ReasonDegenerate = "degenerate"
)

// Alert describes one anomalous audit result.
type Alert struct {
	Table    string `json:"table"`
	Column   string `json:"column"`
	Source   string `json:"source"`
	Reason   string `json:"reason"`
	Previous int    `json:"previous_estimate"`
	Current  int    `json:"current_estimate"`
	Message  string `json:"message"`
}

// Detector compares each report against the last estimate recorded for the
// same column. It is safe for concurrent use.
type Detector struct {
	config config.AlertConfig

	mu   sync.Mutex
	last map[string]int
}

func NewDetector(cfg config.AlertConfig) *Detector {
	return &Detector{
		config: cfg,
		last:   make(map[string]int),
	}
}

// Check inspects one report and reports whether it warrants an alert. A
// degenerate run always does; a completed run does when its estimate reaches
// SpikeFactor times the previous estimate for the column and clears
// MinEstimate. Degenerate runs never become the comparison baseline.
func (d *Detector) Check(r storage.Report) (Alert, bool) {
	if r.Degenerate {
		return Alert{
			Table:  r.Table,
			Column: r.Column,
			Source: r.Source,
			Reason: ReasonDegenerate,
			Message: fmt.Sprintf("distinct-count run for %s.%s aborted: sample stayed full after thinning",
				r.Table, r.Column),
		}, true
	}

	key := r.Table + "." + r.Column

	d.mu.Lock()
	prev, seen := d.last[key]
	d.last[key] = r.Estimate
	d.mu.Unlock()

	if !seen || d.config.SpikeFactor < 1 {
		return Alert{}, false
	}
	if r.Estimate < d.config.MinEstimate {
		return Alert{}, false
	}
	if float64(r.Estimate) < d.config.SpikeFactor*float64(prev) {
		return Alert{}, false
	}

	return Alert{
		Table:    r.Table,
		Column:   r.Column,
		Source:   r.Source,
		Reason:   ReasonSpike,
		Previous: prev,
		Current:  r.Estimate,
		Message: fmt.Sprintf("distinct count for %s.%s jumped from %d to %d",
			r.Table, r.Column, prev, r.Estimate),
	}, true
}
