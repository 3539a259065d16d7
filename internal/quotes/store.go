package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-quote/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-quote/internal/pricing"
)

// ErrNotFound is returned for unknown or expired quotes.
var ErrNotFound = fmt.Errorf("quote %w", httpx.ErrNotFound)

// Record is a priced quote together with the request it answered.
type Record struct {
	Request pricing.TripRequest `json:"request"`
	Quote   pricing.QuoteResult `json:"quote"`
}

// Store keeps recent quotes and per-agency history.
type Store interface {
	Save(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (*Record, error)
	ListByAgency(ctx context.Context, agency string, limit int) ([]Record, error)
	SetNote(ctx context.Context, id, note string) error
}

const (
	quoteKeyPrefix  = "quotes:id"
	agencyKeyPrefix = "quotes:agency"
	// HistoryCap bounds how many quote ids are kept per agency.
	HistoryCap = 100
)

// RedisStore persists quotes as JSON strings with a TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore constructs a RedisStore.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func quoteKey(id string) string {
	return quoteKeyPrefix + ":" + id
}

func agencyKey(agency string) string {
	return agencyKeyPrefix + ":" + strings.ToLower(strings.TrimSpace(agency))
}

// Save writes the record and prepends it to the agency history.
func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("quotes: marshal record: %w", err)
	}
	hist := agencyKey(rec.Request.AgencyName)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, quoteKey(rec.Quote.ID), raw, s.ttl)
		pipe.LPush(ctx, hist, rec.Quote.ID)
		pipe.LTrim(ctx, hist, 0, HistoryCap-1)
		pipe.Expire(ctx, hist, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("quotes: save %s: %w", rec.Quote.ID, err)
	}
	return nil
}

// Get loads a record by quote id.
func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	raw, err := s.client.Get(ctx, quoteKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("quotes: get %s: %w", id, err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("quotes: decode %s: %w", id, err)
	}
	return &rec, nil
}

// ListByAgency returns the newest quotes first, skipping expired entries.
func (s *RedisStore) ListByAgency(ctx context.Context, agency string, limit int) ([]Record, error) {
	if limit <= 0 || limit > HistoryCap {
		limit = HistoryCap
	}
	ids, err := s.client.LRange(ctx, agencyKey(agency), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("quotes: history %s: %w", agency, err)
	}
	if len(ids) == 0 {
		return []Record{}, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = quoteKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("quotes: history %s: %w", agency, err)
	}
	records := make([]Record, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// SetNote replaces the system note while keeping the record's TTL.
func (s *RedisStore) SetNote(ctx context.Context, id, note string) error {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	rec.Quote.SystemNote = note
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("quotes: marshal record: %w", err)
	}
	if err := s.client.Set(ctx, quoteKey(id), raw, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("quotes: set note %s: %w", id, err)
	}
	return nil
}
