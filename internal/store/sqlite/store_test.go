package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mdemirtas/tgtg-notifier/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(filepath.Join(t.TempDir(), "offers.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func testRecord(storeID, itemID string, sentAt time.Time) models.NotificationRecord {
	start := time.Date(2025, 8, 12, 18, 0, 0, 0, time.UTC)
	return models.NotificationRecord{
		StoreID:        storeID,
		StoreName:      "Pizza Palace",
		ItemID:         itemID,
		DisplayName:    "Surprise Bag",
		ItemsAvailable: 2,
		PickupStart:    models.CanonicalTime(start),
		PickupEnd:      models.CanonicalTime(start.Add(2 * time.Hour)),
		SentAt:         sentAt,
	}
}

func keyOf(rec models.NotificationRecord) models.OfferKey {
	return models.OfferKey{
		StoreID:     rec.StoreID,
		ItemID:      rec.ItemID,
		PickupStart: rec.PickupStart,
		PickupEnd:   rec.PickupEnd,
	}
}

func TestRecordIdempotence(t *testing.T) {
	st := newTestStore(t)
	rec := testRecord("1", "10", time.Now())

	exists, err := st.Exists(keyOf(rec))
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, st.Record(rec))
	require.NoError(t, st.Record(rec), "duplicate record must be a no-op")

	exists, err = st.Exists(keyOf(rec))
	require.NoError(t, err)
	assert.True(t, exists)

	stats, err := st.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalRecords, "exactly one record per key")
}

func TestPurgeRetentionBoundary(t *testing.T) {
	st := newTestStore(t)
	now := time.Now()

	old := testRecord("1", "10", now.Add(-8*24*time.Hour))
	fresh := testRecord("2", "20", now.Add(-6*24*time.Hour))
	require.NoError(t, st.Record(old))
	require.NoError(t, st.Record(fresh))

	deleted, err := st.PurgeOlderThan(7 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	exists, err := st.Exists(keyOf(old))
	require.NoError(t, err)
	assert.False(t, exists, "8 day old record must be purged")

	exists, err = st.Exists(keyOf(fresh))
	require.NoError(t, err)
	assert.True(t, exists, "6 day old record must survive")
}

func TestRecentWindowAndOrdering(t *testing.T) {
	st := newTestStore(t)
	now := time.Now()

	require.NoError(t, st.Record(testRecord("1", "10", now.Add(-2*time.Hour))))
	require.NoError(t, st.Record(testRecord("2", "20", now.Add(-30*time.Minute))))
	require.NoError(t, st.Record(testRecord("3", "30", now.Add(-48*time.Hour))))

	records, err := st.Recent(24 * time.Hour)
	require.NoError(t, err)
	require.Len(t, records, 2, "records outside the window are excluded")

	assert.Equal(t, "2", records[0].StoreID, "newest first")
	assert.Equal(t, "1", records[1].StoreID)
}

func TestStats(t *testing.T) {
	st := newTestStore(t)

	stats, err := st.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalRecords)
	assert.Equal(t, int64(0), stats.Records24h)
	assert.True(t, stats.OldestSentAt.IsZero())

	now := time.Now()
	require.NoError(t, st.Record(testRecord("1", "10", now.Add(-3*24*time.Hour))))
	require.NoError(t, st.Record(testRecord("2", "20", now.Add(-time.Hour))))

	stats, err = st.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalRecords)
	assert.Equal(t, int64(1), stats.Records24h)
	assert.WithinDuration(t, now.Add(-3*24*time.Hour), stats.OldestSentAt, time.Second)
	assert.WithinDuration(t, now.Add(-time.Hour), stats.NewestSentAt, time.Second)
}

func TestReset(t *testing.T) {
	st := newTestStore(t)
	rec := testRecord("1", "10", time.Now())
	require.NoError(t, st.Record(rec))

	require.NoError(t, st.Reset())

	exists, err := st.Exists(keyOf(rec))
	require.NoError(t, err)
	assert.False(t, exists)

	stats, err := st.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalRecords)
}
