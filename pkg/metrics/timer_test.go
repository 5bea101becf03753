package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerElapsed(t *testing.T) {
	timer := NewTimer()
	time.Sleep(20 * time.Millisecond)

	first := timer.Duration()
	assert.GreaterOrEqual(t, first, 20*time.Millisecond)
	assert.Greater(t, timer.Duration(), first)
}

func TestTimerObservesResourceDuration(t *testing.T) {
	byType := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "resource_seconds",
		Help: "per resource type",
	}, []string{"type"})
	run := prometheus.NewHistogram(prometheus.HistogramOpts{Name: "run_seconds", Help: "per run"})

	for _, typ := range []string{"rightscale_volume", "filesystem", "filesystem"} {
		NewTimer().ObserveDurationVec(byType, typ)
	}
	NewTimer().ObserveDuration(run)

	assert.Equal(t, 2, testutil.CollectAndCount(byType))
	assert.Equal(t, 1, testutil.CollectAndCount(run))
}

func TestBackupSnapshotsGauge(t *testing.T) {
	BackupSnapshots.WithLabelValues("prod").Set(3)
	t.Cleanup(func() { BackupSnapshots.DeleteLabelValues("prod") })

	assert.Equal(t, 3.0, testutil.ToFloat64(BackupSnapshots.WithLabelValues("prod")))
}

func TestWriteTextfile(t *testing.T) {
	ResourcesTotal.WithLabelValues("link", "create", "updated").Inc()

	path := filepath.Join(t.TempDir(), "acng.prom")
	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `acng_resources_total{action="create",status="updated",type="link"}`)
}

func TestWriteTextfileBadPath(t *testing.T) {
	err := WriteTextfile(filepath.Join(t.TempDir(), "missing", "acng.prom"))
	assert.Error(t, err)
}
