package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCreateAndGetLookups(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []*Lookup{
		{URL: "https://connect.garmin.com/modern/activity/1", Vendor: "garmin", Outcome: "ok", DurationMs: 120, CreatedAt: base},
		{URL: "https://flow.polar.com/training/analysis/2", Vendor: "polar", Outcome: "connection_error", Error: "upstream status 502", DurationMs: 80, CreatedAt: base.Add(time.Minute)},
		{URL: "https://www.strava.com/activities/3", Outcome: "unsupported_vendor", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		require.NoError(t, db.CreateLookup(e))
		assert.NotZero(t, e.ID)
	}

	all, err := db.GetLookups(LookupFilters{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "unsupported_vendor", all[0].Outcome)
	assert.Equal(t, "garmin", all[2].Vendor)
	assert.True(t, all[2].CreatedAt.Equal(base))
	assert.Equal(t, "upstream status 502", all[1].Error)

	limited, err := db.GetLookups(LookupFilters{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, entries[2].ID, limited[0].ID)

	polar, err := db.GetLookups(LookupFilters{Vendor: "polar"})
	require.NoError(t, err)
	require.Len(t, polar, 1)
	assert.Equal(t, int64(80), polar[0].DurationMs)

	since := base.Add(30 * time.Second)
	recent, err := db.GetLookups(LookupFilters{Since: &since, Outcome: "connection_error"})
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestGetLookupsEmpty(t *testing.T) {
	db := newTestDB(t)

	lookups, err := db.GetLookups(LookupFilters{Limit: 50})
	require.NoError(t, err)
	assert.NotNil(t, lookups)
	assert.Empty(t, lookups)
}

func TestGetStats(t *testing.T) {
	db := newTestDB(t)

	for _, e := range []Lookup{
		{URL: "a", Vendor: "garmin", Outcome: "ok"},
		{URL: "b", Vendor: "garmin", Outcome: "ok"},
		{URL: "c", Vendor: "suunto", Outcome: "malformed_response"},
		{URL: "d", Outcome: "unsupported_vendor"},
	} {
		e := e
		require.NoError(t, db.CreateLookup(&e))
	}

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, map[string]int{"ok": 2, "malformed_response": 1, "unsupported_vendor": 1}, stats.ByOutcome)
	assert.Equal(t, map[string]int{"garmin": 2, "suunto": 1, "none": 1}, stats.ByVendor)
}

func TestPruneBefore(t *testing.T) {
	db := newTestDB(t)
	now := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)

	require.NoError(t, db.CreateLookup(&Lookup{URL: "old", Outcome: "ok", CreatedAt: now.Add(-40 * 24 * time.Hour)}))
	require.NoError(t, db.CreateLookup(&Lookup{URL: "new", Outcome: "ok", CreatedAt: now.Add(-time.Hour)}))

	removed, err := db.PruneBefore(now.Add(-30 * 24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	left, err := db.GetLookups(LookupFilters{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "new", left[0].URL)
}
