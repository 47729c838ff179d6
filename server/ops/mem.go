package ops

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/linesight/linesight/server/db"
)

type memPayload struct {
	b       []byte
	expires time.Time
}

// MemStore keeps payloads and node overrides in process memory. It backs the
// server when redis is not configured or unreachable.
type MemStore struct {
	mu       sync.RWMutex
	payloads map[db.PayloadKey]memPayload

	ovMu      sync.RWMutex
	overrides map[int64][]byte

	now func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{
		payloads:  make(map[db.PayloadKey]memPayload),
		overrides: make(map[int64][]byte),
		now:       time.Now,
	}
}

func (m *MemStore) GetPayload(_ context.Context, key db.PayloadKey) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payloads[key]
	if !ok || m.now().After(p.expires) {
		return nil, db.ErrPayloadNotFound
	}
	return p.b, nil
}

func (m *MemStore) StorePayload(_ context.Context, key db.PayloadKey, b []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads[key] = memPayload{b: b, expires: m.now().Add(ttl)}
	return nil
}

func (m *MemStore) StoreNodeOverride(_ context.Context, machineID int64, attrs []byte) error {
	m.ovMu.Lock()
	defer m.ovMu.Unlock()
	m.overrides[machineID] = attrs
	return nil
}

func (m *MemStore) ScanNodeOverrides(_ context.Context, f func(machineID int64, attrs []byte) error) error {
	m.ovMu.RLock()
	ids := make([]int64, 0, len(m.overrides))
	for id := range m.overrides {
		ids = append(ids, id)
	}
	ovCopy := make(map[int64][]byte, len(m.overrides))
	for id, b := range m.overrides {
		ovCopy[id] = b
	}
	m.ovMu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if err := f(id, ovCopy[id]); err != nil {
			return err
		}
	}
	return nil
}

var _ Store = (*MemStore)(nil)
