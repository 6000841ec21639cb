package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mdemirtas/tgtg-notifier/internal/models"
	"github.com/mdemirtas/tgtg-notifier/internal/store"
	"github.com/redis/go-redis/v9"
)

const (
	recordPrefix = "tgtg:sent:"
	timeIndexKey = "tgtg:sent_by_time"
	opTimeout    = 5 * time.Second
)

// Store implements the dedup store on Redis. Each record lives as a JSON
// value under its key hash with SETNX providing insert-if-absent; the
// sent_by_time zset is the sent_at index backing purge, recent and stats.
type Store struct {
	rdb *redis.Client
}

func New(redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse redis url: %v", store.ErrUnavailable, err)
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second
	opts.MaxRetries = 3

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("%w: ping: %v", store.ErrUnavailable, err)
	}

	return &Store{rdb: rdb}, nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) Exists(key models.OfferKey) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	n, err := s.rdb.Exists(ctx, recordPrefix+key.Hash()).Result()
	if err != nil {
		return false, fmt.Errorf("%w: exists: %v", store.ErrUnavailable, err)
	}

	return n > 0, nil
}

func (s *Store) Record(rec models.NotificationRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	key := models.OfferKey{
		StoreID:     rec.StoreID,
		ItemID:      rec.ItemID,
		PickupStart: rec.PickupStart,
		PickupEnd:   rec.PickupEnd,
	}
	hash := key.Hash()

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: marshal record: %v", store.ErrUnavailable, err)
	}

	set, err := s.rdb.SetNX(ctx, recordPrefix+hash, payload, 0).Result()
	if err != nil {
		return fmt.Errorf("%w: record sent offer: %v", store.ErrUnavailable, err)
	}
	if !set {
		// Already recorded by this or an overlapping run.
		return nil
	}

	if err := s.rdb.ZAdd(ctx, timeIndexKey, redis.Z{
		Score:  float64(rec.SentAt.Unix()),
		Member: hash,
	}).Err(); err != nil {
		return fmt.Errorf("%w: index sent offer: %v", store.ErrUnavailable, err)
	}

	return nil
}

func (s *Store) PurgeOlderThan(retention time.Duration) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	cutoff := fmt.Sprintf("%d", time.Now().Add(-retention).Unix())

	hashes, err := s.rdb.ZRangeByScore(ctx, timeIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + cutoff,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: list expired offers: %v", store.ErrUnavailable, err)
	}
	if len(hashes) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(hashes))
	for _, h := range hashes {
		keys = append(keys, recordPrefix+h)
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("%w: delete expired offers: %v", store.ErrUnavailable, err)
	}
	if err := s.rdb.ZRemRangeByScore(ctx, timeIndexKey, "-inf", "("+cutoff).Err(); err != nil {
		return 0, fmt.Errorf("%w: trim time index: %v", store.ErrUnavailable, err)
	}

	return int64(len(hashes)), nil
}

func (s *Store) Stats() (models.StoreStats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var stats models.StoreStats

	total, err := s.rdb.ZCard(ctx, timeIndexKey).Result()
	if err != nil {
		return stats, fmt.Errorf("%w: count records: %v", store.ErrUnavailable, err)
	}
	stats.TotalRecords = total

	cutoff := fmt.Sprintf("%d", time.Now().Add(-24*time.Hour).Unix())
	recent, err := s.rdb.ZCount(ctx, timeIndexKey, "("+cutoff, "+inf").Result()
	if err != nil {
		return stats, fmt.Errorf("%w: count recent records: %v", store.ErrUnavailable, err)
	}
	stats.Records24h = recent

	if total == 0 {
		return stats, nil
	}

	oldest, err := s.rdb.ZRangeWithScores(ctx, timeIndexKey, 0, 0).Result()
	if err != nil {
		return stats, fmt.Errorf("%w: oldest record: %v", store.ErrUnavailable, err)
	}
	newest, err := s.rdb.ZRangeWithScores(ctx, timeIndexKey, -1, -1).Result()
	if err != nil {
		return stats, fmt.Errorf("%w: newest record: %v", store.ErrUnavailable, err)
	}
	if len(oldest) > 0 {
		stats.OldestSentAt = time.Unix(int64(oldest[0].Score), 0).UTC()
	}
	if len(newest) > 0 {
		stats.NewestSentAt = time.Unix(int64(newest[0].Score), 0).UTC()
	}

	return stats, nil
}

func (s *Store) Recent(window time.Duration) ([]models.NotificationRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	cutoff := fmt.Sprintf("%d", time.Now().Add(-window).Unix())

	hashes, err := s.rdb.ZRevRangeByScore(ctx, timeIndexKey, &redis.ZRangeBy{
		Min: "(" + cutoff,
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: list recent offers: %v", store.ErrUnavailable, err)
	}

	var records []models.NotificationRecord
	for _, h := range hashes {
		payload, err := s.rdb.Get(ctx, recordPrefix+h).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: load record: %v", store.ErrUnavailable, err)
		}

		var rec models.NotificationRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("%w: unmarshal record: %v", store.ErrUnavailable, err)
		}
		records = append(records, rec)
	}

	return records, nil
}

func (s *Store) Reset() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	hashes, err := s.rdb.ZRange(ctx, timeIndexKey, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("%w: list records: %v", store.ErrUnavailable, err)
	}

	keys := make([]string, 0, len(hashes)+1)
	for _, h := range hashes {
		keys = append(keys, recordPrefix+h)
	}
	keys = append(keys, timeIndexKey)

	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: reset: %v", store.ErrUnavailable, err)
	}

	return nil
}
