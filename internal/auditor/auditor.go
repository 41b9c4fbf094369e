// Package auditor orchestrates distinct-count runs over the configured
// targets: periodic full-column scans and continuously accumulated CDC
// windows. Every finished run becomes a persisted report, a metrics update,
// and possibly an alert.
package auditor

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yourusername/cardinality-auditor/internal/alert"
	"github.com/yourusername/cardinality-auditor/internal/cdc"
	"github.com/yourusername/cardinality-auditor/internal/config"
	"github.com/yourusername/cardinality-auditor/internal/guardrail"
	"github.com/yourusername/cardinality-auditor/internal/metrics"
	"github.com/yourusername/cardinality-auditor/internal/storage"
	"github.com/yourusername/cardinality-auditor/pkg/distinct"
)

const defaultScanInterval = time.Hour

type Auditor struct {
	db       *sql.DB
	cfg      *config.Config
	guard    *guardrail.Guardrail
	detector *alert.Detector
	notifier *alert.Notifier
	events   <-chan cdc.Event

	scanInterval time.Duration
	windowLen    time.Duration
	windows      map[config.TargetConfig]*window
}

// window accumulates one target's CDC values until the next flush.
type window struct {
	target config.TargetConfig
	est    *distinct.Estimator[string]
	stats  *distinct.Stats
	events int
	opened time.Time
}

// New wires an auditor over an already validated configuration. events may
// be nil when CDC is not in use; windows are only armed when a window
// duration is configured.
func New(
	db *sql.DB,
	cfg *config.Config,
	guard *guardrail.Guardrail,
	detector *alert.Detector,
	notifier *alert.Notifier,
	events <-chan cdc.Event,
) (*Auditor, error) {
	a := &Auditor{
		db:           db,
		cfg:          cfg,
		guard:        guard,
		detector:     detector,
		notifier:     notifier,
		events:       events,
		scanInterval: defaultScanInterval,
	}

	if cfg.Audit.ScanInterval != "" {
		d, err := time.ParseDuration(cfg.Audit.ScanInterval)
		if err != nil {
			return nil, fmt.Errorf("parsing scan_interval: %w", err)
		}
		a.scanInterval = d
	}

	if cfg.Audit.Window != "" {
		d, err := time.ParseDuration(cfg.Audit.Window)
		if err != nil {
			return nil, fmt.Errorf("parsing window: %w", err)
		}
		a.windowLen = d

		if err := guard.CheckRun(cfg.Audit.WindowEvents, cfg.Estimator.Epsilon, cfg.Estimator.Delta); err != nil {
			return nil, fmt.Errorf("window capacity: %w", err)
		}

		a.openWindows()
	}

	return a, nil
}

// Run drives the audit loop until ctx is canceled: CDC events feed the open
// windows, the window ticker flushes them, and the scan ticker triggers full
// audits. One full audit runs immediately on startup.
func (a *Auditor) Run(ctx context.Context) {
	scanTicker := time.NewTicker(a.scanInterval)
	defer scanTicker.Stop()

	var windowC <-chan time.Time
	if a.windowLen > 0 {
		windowTicker := time.NewTicker(a.windowLen)
		defer windowTicker.Stop()
		windowC = windowTicker.C
	}

	a.ScanAll(ctx)

	for {
		select {
		case ev, ok := <-a.events:
			if !ok {
				a.events = nil
				continue
			}
			a.observe(ev)

		case <-windowC:
			a.flushWindows(ctx)

		case <-scanTicker.C:
			a.ScanAll(ctx)

		case <-ctx.Done():
			return
		}
	}
}

// ScanAll audits every configured target once.
func (a *Auditor) ScanAll(ctx context.Context) {
	log.Printf("Running full audit of %d targets", len(a.cfg.Audit.Targets))
	for _, t := range a.cfg.Audit.Targets {
		if err := a.auditTable(ctx, t); err != nil {
			log.Printf("Audit of %s.%s failed: %v", t.Table, t.Column, err)
		}
	}
}

// auditTable runs one full-column scan: count the rows, size a run to the
// count, stream every value through it, and finish the report.
func (a *Auditor) auditTable(ctx context.Context, target config.TargetConfig) error {
	eps, delta := a.cfg.Estimator.Epsilon, a.cfg.Estimator.Delta

	start := time.Now()

	var (
		est   *distinct.Estimator[string]
		stats distinct.Stats
	)

	err := storage.StreamColumn(ctx, a.db, target.Table, target.Column, func(rowCount int) (storage.RowVisitor, error) {
		if err := a.guard.CheckRun(rowCount, eps, delta); err != nil {
			return nil, err
		}

		est = distinct.NewEstimator[string](rowCount, eps, delta,
			distinct.WithSource(a.newSource()),
			distinct.WithStats(&stats))

		return est.Observe, nil
	})
	if err != nil {
		return err
	}

	estimate := est.Result()
	elapsed := time.Since(start)

	metrics.AuditDuration.Observe(elapsed.Seconds())

	return a.finish(ctx, storage.Report{
		Table:      target.Table,
		Column:     target.Column,
		Source:     storage.SourceScan,
		StreamLen:  stats.StreamLen,
		Estimate:   estimate,
		Threshold:  stats.Threshold,
		SampleSize: stats.SampleSize,
		FinalP:     stats.FinalP,
		Halvings:   stats.Halvings,
		Degenerate: stats.Degenerate,
		Elapsed:    elapsed,
		AuditedAt:  time.Now().UTC(),
	})
}

// observe routes one CDC event into every window watching its table.
func (a *Auditor) observe(ev cdc.Event) {
	for _, w := range a.windows {
		if !TableMatches(ev.Table, w.target.Table) {
			continue
		}
		if v, ok := ev.Values[w.target.Column]; ok {
			w.est.Observe(v)
			w.events++
		}
	}
}

func (a *Auditor) flushWindows(ctx context.Context) {
	for _, r := range a.collectWindowReports() {
		if err := a.finish(ctx, r); err != nil {
			log.Printf("Window report for %s.%s failed: %v", r.Table, r.Column, err)
		}
	}
}

// collectWindowReports closes every window that saw at least one event,
// returns their reports, and opens fresh windows for the next interval.
func (a *Auditor) collectWindowReports() []storage.Report {
	now := time.Now()

	var reports []storage.Report
	for _, w := range a.windows {
		if w.events == 0 {
			continue
		}

		if w.events > a.cfg.Audit.WindowEvents {
			log.Printf("Window for %s.%s overflowed its declared capacity (%d > %d events); accuracy bounds no longer hold",
				w.target.Table, w.target.Column, w.events, a.cfg.Audit.WindowEvents)
		}

		reports = append(reports, storage.Report{
			Table:      w.target.Table,
			Column:     w.target.Column,
			Source:     storage.SourceWindow,
			StreamLen:  w.events,
			Estimate:   w.est.Result(),
			Threshold:  w.stats.Threshold,
			SampleSize: w.stats.SampleSize,
			FinalP:     w.stats.FinalP,
			Halvings:   w.stats.Halvings,
			Degenerate: w.stats.Degenerate,
			Elapsed:    now.Sub(w.opened),
			AuditedAt:  now.UTC(),
		})
	}

	a.openWindows()

	return reports
}

func (a *Auditor) openWindows() {
	if a.windows == nil {
		a.windows = make(map[config.TargetConfig]*window, len(a.cfg.Audit.Targets))
	}

	for _, t := range a.cfg.Audit.Targets {
		stats := &distinct.Stats{}
		a.windows[t] = &window{
			target: t,
			stats:  stats,
			opened: time.Now(),
			est: distinct.NewEstimator[string](a.cfg.Audit.WindowEvents,
				a.cfg.Estimator.Epsilon, a.cfg.Estimator.Delta,
				distinct.WithSource(a.newSource()),
				distinct.WithStats(stats)),
		}
	}
}

// finish records one report: metrics, log line, alerting, and persistence.
func (a *Auditor) finish(ctx context.Context, r storage.Report) error {
	metrics.AuditRunsTotal.WithLabelValues(r.Table, r.Column, r.Source).Inc()
	if r.Degenerate {
		metrics.DegenerateRunsTotal.WithLabelValues(r.Table, r.Column).Inc()
	} else {
		metrics.CardinalityEstimate.WithLabelValues(r.Table, r.Column, r.Source).Set(float64(r.Estimate))
	}

	log.Printf("Audit %s %s.%s: estimate=%d over %d rows (p=%g, degenerate=%v, took %s)",
		r.Source, r.Table, r.Column, r.Estimate, r.StreamLen, r.FinalP, r.Degenerate, r.Elapsed)

	if al, ok := a.detector.Check(r); ok {
		metrics.AlertsTotal.WithLabelValues(r.Table, r.Column, al.Reason).Inc()
		log.Printf("ALERT [%s] %s", al.Reason, al.Message)
		if err := a.notifier.Notify(ctx, al); err != nil {
			log.Printf("Alert delivery failed: %v", err)
		}
	}

	if err := storage.SaveReport(ctx, a.db, r); err != nil {
		return fmt.Errorf("persisting report: %w", err)
	}

	return nil
}

func (a *Auditor) newSource() distinct.Source {
	if seed := a.cfg.Estimator.Seed; seed != 0 {
		return distinct.NewGen(seed)
	}
	return distinct.NewGenFromEntropy()
}

// TableMatches reports whether a replication event's schema-qualified table
// name refers to the configured table, which may omit the public schema.
func TableMatches(eventTable, configured string) bool {
	if eventTable == configured {
		return true
	}
	return !strings.Contains(configured, ".") && eventTable == "public."+configured
}
