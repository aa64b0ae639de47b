package core

import (
	"context"
	"testing"
	"time"

	"github.com/RecoveryAshes/mapscrawler/internal/crawlers"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()

	m.AddLabels(5)
	m.IncPersisted(3)
	m.IncPersisted(0)
	m.IncSkipped("resumed")
	m.IncSkipped("panel_not_opened")
	m.IncSkipped("resumed")
	m.AddAttempts(4)
	m.ObserveItem(1500 * time.Millisecond)
	m.ObserveField("phone", crawlers.FieldAbsent)

	require.Equal(t, 5.0, testutil.ToFloat64(m.LabelsHarvested))
	require.Equal(t, 2.0, testutil.ToFloat64(m.PlacesPersisted))
	require.Equal(t, 3.0, testutil.ToFloat64(m.ReviewsTotal))
	require.Equal(t, 2.0, testutil.ToFloat64(m.PlacesSkipped.WithLabelValues("resumed")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.PlacesSkipped.WithLabelValues("panel_not_opened")))
	require.Equal(t, 4.0, testutil.ToFloat64(m.Attempts))
	require.Equal(t, 1.0, testutil.ToFloat64(m.FieldResults.WithLabelValues("phone", "absent")))
	require.Equal(t, 1, testutil.CollectAndCount(m.ItemDuration))
}

func TestMetricsNilSafe(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.AddLabels(1)
		m.IncPersisted(1)
		m.IncSkipped("x")
		m.AddAttempts(1)
		m.ObserveItem(time.Second)
		m.ObserveField("name", crawlers.FieldFound)
	})
	require.Nil(t, StartMetricsServer(":0", nil))
	require.Nil(t, StartMetricsServer("", NewMetrics()))
}

// TestRunRecordsMetrics 运行期间字段结果和计数被记录
func TestRunRecordsMetrics(t *testing.T) {
	cfg := testConfig(t)
	cfg.Harvest.SkipReviews = true
	m := NewMetrics()

	d := batchDOM()
	c, err := NewCrawler(cfg, d, "Pho", m)
	require.NoError(t, err)
	c.SetProgress(false)
	_, err = c.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2.0, testutil.ToFloat64(m.LabelsHarvested))
	require.Equal(t, 2.0, testutil.ToFloat64(m.PlacesPersisted))
	require.Equal(t, 2.0, testutil.ToFloat64(m.FieldResults.WithLabelValues("name", "found")))
}
