package alert_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/cardinality-auditor/internal/alert"
	"github.com/yourusername/cardinality-auditor/internal/config"
	"github.com/yourusername/cardinality-auditor/internal/storage"
)

func report(estimate int) storage.Report {
	return storage.Report{
		Table:    "public.users",
		Column:   "email",
		Source:   "scan",
		Estimate: estimate,
	}
}

func TestDetector_Spike(t *testing.T) {
	t.Parallel()

	d := alert.NewDetector(config.AlertConfig{SpikeFactor: 2, MinEstimate: 100})

	// First report only seeds the baseline.
	_, firing := d.Check(report(1000))
	assert.False(t, firing)

	// Below the factor: no alert, but the baseline moves.
	_, firing = d.Check(report(1500))
	assert.False(t, firing)

	a, firing := d.Check(report(3000))
	require.True(t, firing, "3000 is twice the 1500 baseline")
	assert.Equal(t, alert.ReasonSpike, a.Reason)
	assert.Equal(t, 1500, a.Previous)
	assert.Equal(t, 3000, a.Current)
	assert.Contains(t, a.Message, "jumped from 1500 to 3000")
}

func TestDetector_MinEstimateSuppressesNoise(t *testing.T) {
	t.Parallel()

	d := alert.NewDetector(config.AlertConfig{SpikeFactor: 2, MinEstimate: 100})

	_, firing := d.Check(report(3))
	assert.False(t, firing)

	// 3 -> 30 is a tenfold jump but still under min_estimate.
	_, firing = d.Check(report(30))
	assert.False(t, firing)
}

func TestDetector_SeparateColumnsSeparateBaselines(t *testing.T) {
	t.Parallel()

	d := alert.NewDetector(config.AlertConfig{SpikeFactor: 2})

	users := report(1000)

	orders := report(10)
	orders.Table = "public.orders"
	orders.Column = "sku"

	_, firing := d.Check(users)
	assert.False(t, firing)

	// A first report for another column must not compare against users.
	_, firing = d.Check(orders)
	assert.False(t, firing)
}

func TestDetector_Degenerate(t *testing.T) {
	t.Parallel()

	d := alert.NewDetector(config.AlertConfig{SpikeFactor: 2, MinEstimate: 100})

	_, firing := d.Check(report(1000))
	assert.False(t, firing)

	degen := report(0)
	degen.Degenerate = true

	a, firing := d.Check(degen)
	require.True(t, firing, "degenerate runs always alert")
	assert.Equal(t, alert.ReasonDegenerate, a.Reason)

	// The degenerate zero must not have replaced the baseline: a repeat of
	// the previous estimate is not a spike from zero.
	_, firing = d.Check(report(1000))
	assert.False(t, firing)
}

func TestNotifier_PostsJSON(t *testing.T) {
	t.Parallel()

	var got alert.Alert

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := alert.NewNotifier(srv.URL)

	a := alert.Alert{
		Table:    "public.users",
		Column:   "email",
		Source:   "window",
		Reason:   alert.ReasonSpike,
		Previous: 10,
		Current:  100,
		Message:  "distinct count for public.users.email jumped from 10 to 100",
	}

	require.NoError(t, n.Notify(context.Background(), a))
	assert.Equal(t, a, got)
}

func TestNotifier_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := alert.NewNotifier(srv.URL).Notify(context.Background(), alert.Alert{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestNotifier_EmptyURLDrops(t *testing.T) {
	t.Parallel()

	assert.NoError(t, alert.NewNotifier("").Notify(context.Background(), alert.Alert{}))
}
