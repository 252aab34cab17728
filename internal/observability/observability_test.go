package observability

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/railzwaylabs/caremarket/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := buildLogger(config.Config{Log: config.LogConfig{Level: "chatty"}})
	require.Error(t, err)
}

func TestBuildLoggerWithFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	cfg := config.Config{Log: config.LogConfig{
		Level:  "debug",
		Format: "console",
		File:   config.LogFileConfig{Enabled: true, Path: path, MaxSizeMB: 1},
	}}

	logger, err := buildLogger(cfg)
	require.NoError(t, err)
	logger.Info("hello")
	assert.FileExists(t, path)
}

func TestObserveCalculation(t *testing.T) {
	m := NewMetrics()
	m.ObserveCalculation("earnings", nil)
	m.ObserveCalculation("earnings", nil)
	m.ObserveCalculation("earnings", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Calculations.WithLabelValues("earnings")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CalculationError.WithLabelValues("earnings")))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.ObserveCalculation("x", nil) })
}
