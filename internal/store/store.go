package store

import (
	"errors"
	"time"

	"github.com/mdemirtas/tgtg-notifier/internal/models"
)

// ErrUnavailable wraps any backend failure. Callers treat it as fatal
// for the running cycle: skipping a send is safer than double-sending.
var ErrUnavailable = errors.New("dedup store unavailable")

// Store is the persistent record of already-notified offers. The store
// itself is the synchronization boundary: Record is atomic with respect
// to the uniqueness constraint, so overlapping scheduler runs cannot
// produce two records for one key.
type Store interface {
	Close() error
	Exists(key models.OfferKey) (bool, error)
	Record(rec models.NotificationRecord) error
	PurgeOlderThan(retention time.Duration) (int64, error)
	Stats() (models.StoreStats, error)
	Recent(window time.Duration) ([]models.NotificationRecord, error)
	Reset() error
}
