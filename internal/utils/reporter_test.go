package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RecoveryAshes/mapscrawler/internal/models"
	"github.com/stretchr/testify/require"
)

func TestReporter_SaveAndLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	reporter := NewReporter(dir)

	task, err := models.NewRunTask(models.SearchTarget{
		BaseURL:   "https://www.google.com/maps",
		Query:     "Cafe X",
		Latitude:  21.020833,
		Longitude: 105.511944,
		Zoom:      14,
	})
	require.NoError(t, err)
	task.Start()
	task.Stats.PersistedPlaces = 2
	task.Finish(models.RunStatusCompleted, nil)

	report := models.NewRunReport(task, "output/places_cafe_x.json", []models.FailedLabel{
		{Label: "Cafe Y", ErrorType: "panel_not_opened", Attempts: 2},
	})

	path, err := reporter.Save(report)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "run_"+task.ID+".json"), path)

	loaded, err := LoadReport(path)
	require.NoError(t, err)
	require.Equal(t, task.ID, loaded.RunID)
	require.Equal(t, "Cafe X", loaded.Query)
	require.Equal(t, models.RunStatusCompleted, loaded.Status)
	require.Equal(t, 2, loaded.Stats.PersistedPlaces)
	require.Len(t, loaded.FailedLabels, 1)
	require.Equal(t, "Cafe Y", loaded.FailedLabels[0].Label)
	require.WithinDuration(t, report.StartTime, loaded.StartTime, time.Second)
}

func TestReporter_SaveJSON(t *testing.T) {
	dir := t.TempDir()
	path, err := NewReporter(dir).SaveJSON("batch_x.json", map[string]int{"total_queries": 3})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `{"total_queries": 3}`, string(data))
}

func TestLoadReport_Missing(t *testing.T) {
	_, err := LoadReport(filepath.Join(t.TempDir(), "run_none.json"))
	require.Error(t, err)
}
