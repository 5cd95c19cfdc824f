package storage

import (
	"cgmd/internal/models"
	"cgmd/internal/testutil"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func newTestMeasurementStore(t *testing.T, loc *time.Location) (*MeasurementStore, *FileManager, string) {
	t.Helper()
	conf := testutil.Config(t.TempDir())
	conf.SetLocation(loc)
	logger := &testutil.MockLogger{}
	fm := NewFileManager(&testutil.MockCompressor{}, logger, &testutil.MockMetrics{})
	store := NewMeasurementStore(conf, fm, logger).(*MeasurementStore)
	store.now = func() time.Time { return testNow }
	return store, fm, conf.Persistence.ReadingsFile
}

func reading(ts time.Time, value int) models.Reading {
	return models.Reading{Timestamp: ts, ValueMgPerDl: value, TrendArrow: 3}
}

func TestMeasurementStore_AppendsInArrivalOrder(t *testing.T) {
	store, _, _ := newTestMeasurementStore(t, time.UTC)

	require.NoError(t, store.RecordReading(reading(testNow.Add(-2*time.Minute), 100)))
	require.NoError(t, store.RecordReading(reading(testNow.Add(-time.Minute), 104)))
	require.NoError(t, store.RecordReading(reading(testNow, 98)))

	today := store.Today()
	require.Len(t, today, 3)
	assert.Equal(t, []int{100, 104, 98}, []int{today[0].ValueMgPerDl, today[1].ValueMgPerDl, today[2].ValueMgPerDl})
}

func TestMeasurementStore_PurgesYesterdayBeforeAppend(t *testing.T) {
	store, fm, path := newTestMeasurementStore(t, time.UTC)
	yesterday := testNow.Add(-24 * time.Hour)
	require.NoError(t, fm.SaveToFile(path, &models.MeasurementLog{Readings: []models.Reading{
		reading(yesterday, 90),
		reading(yesterday.Add(time.Minute), 91),
	}}))

	require.NoError(t, store.RecordReading(reading(testNow, 120)))

	var persisted models.MeasurementLog
	_, err := fm.LoadFromFile(path, &persisted)
	require.NoError(t, err)
	require.Len(t, persisted.Readings, 1)
	assert.Equal(t, 120, persisted.Readings[0].ValueMgPerDl)
}

func TestMeasurementStore_TodayFiltersOnRead(t *testing.T) {
	store, fm, path := newTestMeasurementStore(t, time.UTC)
	require.NoError(t, fm.SaveToFile(path, &models.MeasurementLog{Readings: []models.Reading{
		reading(testNow.Add(-24*time.Hour), 90),
		reading(testNow.Add(-time.Hour), 95),
	}}))

	today := store.Today()
	require.Len(t, today, 1)
	assert.Equal(t, 95, today[0].ValueMgPerDl)
}

func TestMeasurementStore_DayBoundaryFollowsConfiguredZone(t *testing.T) {
	// 09:30 UTC on the 15th is 21:30 on the 14th in UTC-12.
	store, fm, path := newTestMeasurementStore(t, time.FixedZone("UTC-12", -12*60*60))
	require.NoError(t, fm.SaveToFile(path, &models.MeasurementLog{Readings: []models.Reading{
		reading(testNow.Add(-22*time.Hour), 80),
		reading(testNow.Add(-10*time.Hour), 85),
	}}))

	today := store.Today()
	require.Len(t, today, 1)
	assert.Equal(t, 85, today[0].ValueMgPerDl)
}

func TestMeasurementStore_CorruptLogResets(t *testing.T) {
	store, _, path := newTestMeasurementStore(t, time.UTC)
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0600))

	assert.Empty(t, store.Today())
	require.NoError(t, store.RecordReading(reading(testNow, 110)))
	assert.Len(t, store.Today(), 1)
}

func TestMeasurementStore_WriteFailure(t *testing.T) {
	store, _, _ := newTestMeasurementStore(t, time.UTC)
	store.path = "/dev/null/readings.json"

	assert.Error(t, store.RecordReading(reading(testNow, 110)))
}

func TestMeasurementStore_UnreadableLogIsNotOverwritten(t *testing.T) {
	store, _, path := newTestMeasurementStore(t, time.UTC)
	require.NoError(t, os.Mkdir(path, 0700))

	assert.Empty(t, store.Today())
	err := store.RecordReading(reading(testNow, 110))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading measurement log")

	info, statErr := os.Stat(path)
	require.NoError(t, statErr)
	assert.True(t, info.IsDir())
}

func TestMeasurementStore_RefusesReadingFromEarlierDay(t *testing.T) {
	store, fm, path := newTestMeasurementStore(t, time.UTC)

	err := store.RecordReading(reading(testNow.Add(-24*time.Hour), 90))
	assert.ErrorIs(t, err, ErrNotToday)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	require.NoError(t, store.RecordReading(reading(testNow, 100)))
	var persisted models.MeasurementLog
	_, err = fm.LoadFromFile(path, &persisted)
	require.NoError(t, err)
	require.Len(t, persisted.Readings, 1)
	assert.Equal(t, 100, persisted.Readings[0].ValueMgPerDl)
}
