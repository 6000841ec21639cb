package sqlite

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mdemirtas/tgtg-notifier/internal/models"
	"github.com/mdemirtas/tgtg-notifier/internal/store"
)

// Store is the default embedded dedup store. The UNIQUE constraint on
// the composite key is the load-bearing invariant; INSERT OR IGNORE
// gives insert-if-absent without a separate existence check.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path))
	if err != nil {
		return nil, fmt.Errorf("%w: open: %v", store.ErrUnavailable, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping: %v", store.ErrUnavailable, err)
	}

	if err := initDatabase(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: init: %v", store.ErrUnavailable, err)
	}

	return &Store{
		db: db,
	}, nil
}

func initDatabase(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sent_offers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			store_id TEXT NOT NULL,
			store_name TEXT NOT NULL,
			item_id TEXT NOT NULL,
			display_name TEXT NOT NULL,
			items_available INTEGER NOT NULL,
			pickup_start TEXT NOT NULL,
			pickup_end TEXT NOT NULL,
			sent_at TIMESTAMP NOT NULL,
			UNIQUE(store_id, item_id, pickup_start, pickup_end)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sent_offers_sent_at
			ON sent_offers(sent_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query %q: %v", query, err)
		}
	}

	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Exists(key models.OfferKey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM sent_offers
		WHERE store_id = ? AND item_id = ? AND pickup_start = ? AND pickup_end = ?
	`, key.StoreID, key.ItemID, key.PickupStart, key.PickupEnd).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("%w: query sent offer: %v", store.ErrUnavailable, err)
	}

	return count > 0, nil
}

func (s *Store) Record(rec models.NotificationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO sent_offers
		(store_id, store_name, item_id, display_name, items_available, pickup_start, pickup_end, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.StoreID, rec.StoreName, rec.ItemID, rec.DisplayName, rec.ItemsAvailable,
		rec.PickupStart, rec.PickupEnd, rec.SentAt.UTC())
	if err != nil {
		return fmt.Errorf("%w: record sent offer: %v", store.ErrUnavailable, err)
	}

	return nil
}

func (s *Store) PurgeOlderThan(retention time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`
		DELETE FROM sent_offers WHERE sent_at < ?
	`, time.Now().Add(-retention).UTC())
	if err != nil {
		return 0, fmt.Errorf("%w: purge sent offers: %v", store.ErrUnavailable, err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected: %v", store.ErrUnavailable, err)
	}

	return deleted, nil
}

func (s *Store) Stats() (models.StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats models.StoreStats

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sent_offers`).Scan(&stats.TotalRecords); err != nil {
		return stats, fmt.Errorf("%w: count records: %v", store.ErrUnavailable, err)
	}

	if err := s.db.QueryRow(`
		SELECT COUNT(*) FROM sent_offers WHERE sent_at > ?
	`, time.Now().Add(-24*time.Hour).UTC()).Scan(&stats.Records24h); err != nil {
		return stats, fmt.Errorf("%w: count recent records: %v", store.ErrUnavailable, err)
	}

	if stats.TotalRecords == 0 {
		return stats, nil
	}

	if err := s.db.QueryRow(`
		SELECT sent_at FROM sent_offers ORDER BY sent_at ASC LIMIT 1
	`).Scan(&stats.OldestSentAt); err != nil {
		return stats, fmt.Errorf("%w: oldest record: %v", store.ErrUnavailable, err)
	}

	if err := s.db.QueryRow(`
		SELECT sent_at FROM sent_offers ORDER BY sent_at DESC LIMIT 1
	`).Scan(&stats.NewestSentAt); err != nil {
		return stats, fmt.Errorf("%w: newest record: %v", store.ErrUnavailable, err)
	}

	return stats, nil
}

func (s *Store) Recent(window time.Duration) ([]models.NotificationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, store_id, store_name, item_id, display_name, items_available, pickup_start, pickup_end, sent_at
		FROM sent_offers
		WHERE sent_at > ?
		ORDER BY sent_at DESC
	`, time.Now().Add(-window).UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: query recent offers: %v", store.ErrUnavailable, err)
	}
	defer rows.Close()

	var records []models.NotificationRecord
	for rows.Next() {
		var rec models.NotificationRecord
		if err := rows.Scan(&rec.ID, &rec.StoreID, &rec.StoreName, &rec.ItemID, &rec.DisplayName,
			&rec.ItemsAvailable, &rec.PickupStart, &rec.PickupEnd, &rec.SentAt); err != nil {
			return nil, fmt.Errorf("%w: scan record: %v", store.ErrUnavailable, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate records: %v", store.ErrUnavailable, err)
	}

	return records, nil
}

func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM sent_offers`); err != nil {
		return fmt.Errorf("%w: reset: %v", store.ErrUnavailable, err)
	}

	return nil
}
