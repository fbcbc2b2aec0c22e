package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultCryptoKey = "server:crypto:quotes"
	DefaultStocksKey = "server:stocks:quotes"
)

// RedisSource reads the quote lists the market-data job writes as JSON
// arrays of {"symbol","price"}.
type RedisSource struct {
	rdb       redis.UniversalClient
	cryptoKey string
	stocksKey string
	now       func() time.Time
}

func NewRedisSource(rdb redis.UniversalClient, cryptoKey, stocksKey string) *RedisSource {
	if cryptoKey == "" {
		cryptoKey = DefaultCryptoKey
	}
	if stocksKey == "" {
		stocksKey = DefaultStocksKey
	}
	return &RedisSource{rdb: rdb, cryptoKey: cryptoKey, stocksKey: stocksKey, now: time.Now}
}

func (s *RedisSource) Load(ctx context.Context) (*Snapshot, error) {
	crypto, err := s.readList(ctx, s.cryptoKey)
	if err != nil {
		return nil, err
	}
	stocks, err := s.readList(ctx, s.stocksKey)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(crypto, stocks, s.now()), nil
}

// A missing key is an empty list; the job may not have run yet.
func (s *RedisSource) readList(ctx context.Context, key string) ([]Quote, error) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	var quotes []Quote
	if err := json.Unmarshal(raw, &quotes); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return quotes, nil
}

func (s *RedisSource) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
