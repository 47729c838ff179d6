package ops

import (
	"context"
	"time"

	"github.com/linesight/linesight/server/db"
)

// Payload kinds stored in the cache.
const (
	KindPrediction = "prediction"
	KindChangeLog  = "changelog"
	KindTimeSeries = "timeseries"
	KindTopology   = "topology"
)

// Store caches raw upstream payloads and persists committed node edits.
// Implementations: RedisStore, with MemStore as the fallback when redis is
// unreachable.
type Store interface {
	GetPayload(ctx context.Context, key db.PayloadKey) ([]byte, error)
	StorePayload(ctx context.Context, key db.PayloadKey, b []byte, ttl time.Duration) error

	StoreNodeOverride(ctx context.Context, machineID int64, attrs []byte) error
	ScanNodeOverrides(ctx context.Context, f func(machineID int64, attrs []byte) error) error
}
