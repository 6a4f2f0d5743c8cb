package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// BlameTTL is how long provider blame responses stay cached.
const BlameTTL = 60 * time.Second

// Cache stores raw provider responses with a per-entry expiry.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key derives the cache key for a provider request.
func Key(namespace string, integrationID int64, path, query string) string {
	sum := sha256.Sum256([]byte(strconv.FormatInt(integrationID, 10) + path + query))
	return fmt.Sprintf("%s.client:%s", namespace, hex.EncodeToString(sum[:]))
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }
