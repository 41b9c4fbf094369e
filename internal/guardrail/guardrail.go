// Package guardrail rejects configurations and runs that would produce
// meaningless estimates or unbounded memory. The estimator itself performs
// no validation, so everything user-supplied is checked here before a run
// starts.
package guardrail

import (
	"fmt"
	"net/url"
	"time"

	"github.com/yourusername/cardinality-auditor/internal/config"
	"github.com/yourusername/cardinality-auditor/pkg/distinct"
)

type Guardrail struct {
	config config.GuardrailConfig
}

func New(cfg config.GuardrailConfig) *Guardrail {
	return &Guardrail{
		config: cfg,
	}
}

// ValidateConfig checks the whole configuration at startup so a bad file
// fails fast instead of surfacing mid-audit.
func (g *Guardrail) ValidateConfig(cfg *config.Config) error {
	if err := ValidateAccuracy(cfg.Estimator.Epsilon, cfg.Estimator.Delta); err != nil {
		return err
	}

	if len(cfg.Audit.Targets) == 0 {
		return fmt.Errorf("no audit targets configured")
	}

	if g.config.MaxTargets > 0 && len(cfg.Audit.Targets) > g.config.MaxTargets {
		return fmt.Errorf("too many audit targets: %d > %d", len(cfg.Audit.Targets), g.config.MaxTargets)
	}

	for _, t := range cfg.Audit.Targets {
		if err := ValidateTarget(t.Table, t.Column); err != nil {
			return err
		}
	}

	if cfg.Audit.ScanInterval != "" {
		if _, err := parsePositiveDuration(cfg.Audit.ScanInterval); err != nil {
			return fmt.Errorf("audit scan_interval: %w", err)
		}
	}

	if cfg.Audit.Window != "" {
		if _, err := parsePositiveDuration(cfg.Audit.Window); err != nil {
			return fmt.Errorf("audit window: %w", err)
		}
		if cfg.Audit.WindowEvents <= 0 {
			return fmt.Errorf("audit window_events must be positive when a window is configured, got %d", cfg.Audit.WindowEvents)
		}
	}

	if cfg.Alert.WebhookURL != "" {
		u, err := url.Parse(cfg.Alert.WebhookURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("alert webhook_url is not an absolute URL: %q", cfg.Alert.WebhookURL)
		}
		if cfg.Alert.SpikeFactor < 1 {
			return fmt.Errorf("alert spike_factor must be at least 1, got %v", cfg.Alert.SpikeFactor)
		}
	}

	return nil
}

// CheckRun caps the sample-set size a single run may allocate. A run over a
// declared stream length that would need a larger threshold than allowed is
// rejected before any memory is committed. A zero limit disables the check.
func (g *Guardrail) CheckRun(streamLen int, eps, delta float64) error {
	if g.config.MaxThreshold == 0 || streamLen <= 0 {
		return nil
	}

	if thresh := distinct.Threshold(streamLen, eps, delta); thresh > g.config.MaxThreshold {
		return fmt.Errorf("run over %d elements needs a sample threshold of %d, above the configured maximum %d",
			streamLen, thresh, g.config.MaxThreshold)
	}

	return nil
}

// ValidateAccuracy rejects accuracy parameters outside the range the
// threshold formula is meaningful for.
func ValidateAccuracy(eps, delta float64) error {
	if eps <= 0 {
		return fmt.Errorf("epsilon must be positive, got %v", eps)
	}
	if delta <= 0 || delta >= 1 {
		return fmt.Errorf("delta must be in (0, 1), got %v", delta)
	}
	return nil
}

// ValidateTarget checks that a table and column pair is usable in a query.
func ValidateTarget(table, column string) error {
	if err := validateIdentifier(table, true); err != nil {
		return fmt.Errorf("invalid table name %q: %w", table, err)
	}
	if err := validateIdentifier(column, false); err != nil {
		return fmt.Errorf("invalid column name %q: %w", column, err)
	}
	return nil
}

func validateIdentifier(name string, allowDot bool) error {
	if name == "" {
		return fmt.Errorf("identifier is empty")
	}
	// Allow only alphanumeric characters, underscores, and dots (for schema.table)
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			continue
		}
		if r == '.' && allowDot {
			continue
		}
		return fmt.Errorf("invalid character: %c", r)
	}
	return nil
}

func parsePositiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", d)
	}
	return d, nil
}
