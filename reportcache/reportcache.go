// Package reportcache keeps finished reports in redis, keyed by what was
// analyzed. A cache that cannot be reached behaves as always empty.
package reportcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bsaid97/go-overlap-checker/logger"
	"github.com/bsaid97/go-overlap-checker/metrics"
	"github.com/bsaid97/go-overlap-checker/report"
)

const (
	DefaultTTL = 10 * time.Minute
	keyPrefix  = "overlap:report:"
)

type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// Open returns nil when no address is configured; a nil *Redis is a valid,
// always-missing cache.
func Open(opts Options) *Redis {
	if opts.Addr == "" {
		return nil
	}
	return New(redis.NewClient(&redis.Options{Addr: opts.Addr, Password: opts.Password, DB: opts.DB}), opts.TTL)
}

func New(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

// Key identifies an analysis by its target, excluded parcel and layer list.
func Key(wkt, excludeParcel string, layerNames []string) string {
	h := sha256.New()
	h.Write([]byte(wkt))
	h.Write([]byte{0})
	h.Write([]byte(excludeParcel))
	for _, name := range layerNames {
		h.Write([]byte{0})
		h.Write([]byte(name))
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (r *Redis) Get(ctx context.Context, key string) (*report.FinalResult, bool) {
	if r == nil || r.client == nil {
		return nil, false
	}
	s, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.L().Warn("report cache read failed", zap.Error(err))
		}
		metrics.ReportCacheMissesTotal.Inc()
		return nil, false
	}

	var res report.FinalResult
	if err := json.Unmarshal([]byte(s), &res); err != nil {
		logger.L().Warn("report cache entry unreadable", zap.String("key", key), zap.Error(err))
		metrics.ReportCacheMissesTotal.Inc()
		return nil, false
	}
	metrics.ReportCacheHitsTotal.Inc()
	return &res, true
}

func (r *Redis) Set(ctx context.Context, key string, res *report.FinalResult) {
	if r == nil || r.client == nil || res == nil {
		return
	}
	b, err := json.Marshal(res)
	if err != nil {
		logger.L().Warn("report cache encode failed", zap.Error(err))
		return
	}
	if err := r.client.Set(ctx, key, string(b), r.ttl).Err(); err != nil {
		logger.L().Warn("report cache write failed", zap.Error(err))
	}
}

func (r *Redis) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}
