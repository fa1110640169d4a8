package dedup

import (
	"context"
	"time"

	"github.com/asuogyaman/constituency-gateway/pkg/logger"
	"github.com/asuogyaman/constituency-gateway/pkg/redis"
)

// Deduper keeps a short-lived marker per reconciled webhook event so that
// gateway redeliveries can be acknowledged without touching the database.
// It is a best-effort fast path only: the conditional status update in the
// contributions table remains the source of truth, so a cold or unavailable
// redis never affects correctness.
type Deduper struct {
	redis  redis.RedisAdapter
	config Config
}

type Config struct {
	ProcessedTTL time.Duration
	KeyPrefix    string
}

func DefaultConfig() Config {
	return Config{
		ProcessedTTL: 24 * time.Hour,
		KeyPrefix:    "webhook:processed:",
	}
}

func New(redisAdapter redis.RedisAdapter, config Config) *Deduper {
	if config.ProcessedTTL <= 0 {
		config.ProcessedTTL = 24 * time.Hour
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = "webhook:processed:"
	}
	return &Deduper{
		redis:  redisAdapter,
		config: config,
	}
}

// Seen reports whether the event was already reconciled. A redis failure is
// reported as not-seen so processing falls through to the database.
func (d *Deduper) Seen(ctx context.Context, eventKey string) bool {
	if d == nil || d.redis == nil {
		return false
	}
	exists, err := d.redis.Exist(d.config.KeyPrefix + eventKey)
	if err != nil {
		logger.Warn("dedup check failed, falling through to store", "event", eventKey, "error", err)
		return false
	}
	return exists > 0
}

// MarkProcessed records the event marker. Callers invoke this only after the
// database transition has been applied, so a write that fails here merely
// costs one extra database round-trip on redelivery.
func (d *Deduper) MarkProcessed(ctx context.Context, eventKey string) {
	if d == nil || d.redis == nil {
		return
	}
	if err := d.redis.Set(d.config.KeyPrefix+eventKey, []byte("1"), d.config.ProcessedTTL); err != nil {
		logger.Warn("failed to write dedup marker", "event", eventKey, "error", err)
	}
}
