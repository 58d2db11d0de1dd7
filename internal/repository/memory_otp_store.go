package repository

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/ugxchange/ugxchange/internal/models"
)

const otpShardCount = 32

type otpEntry struct {
	rec     models.OTPRecord
	version uint64
}

type otpShard struct {
	mu      sync.Mutex
	entries map[string]otpEntry
}

// MemoryOTPStore is a process-local OTPStore. Phones are spread over
// independently locked shards; check callbacks run outside any lock.
type MemoryOTPStore struct {
	shards  [otpShardCount]*otpShard
	version atomic.Uint64
}

func NewMemoryOTPStore() *MemoryOTPStore {
	s := &MemoryOTPStore{}
	for i := range s.shards {
		s.shards[i] = &otpShard{entries: make(map[string]otpEntry)}
	}
	return s
}

func (s *MemoryOTPStore) shard(phone string) *otpShard {
	h := fnv.New32a()
	h.Write([]byte(phone))
	return s.shards[h.Sum32()%otpShardCount]
}

func (s *MemoryOTPStore) Put(ctx context.Context, rec models.OTPRecord) error {
	v := s.version.Add(1)
	sh := s.shard(rec.Phone)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.entries[rec.Phone] = otpEntry{rec: rec, version: v}
	return nil
}

func (s *MemoryOTPStore) Get(ctx context.Context, phone string) (*models.OTPRecord, error) {
	sh := s.shard(phone)
	sh.mu.Lock()
	e, ok := sh.entries[phone]
	sh.mu.Unlock()
	if !ok {
		return nil, ErrOTPNotFound
	}
	rec := e.rec
	return &rec, nil
}

func (s *MemoryOTPStore) ConsumeIf(ctx context.Context, phone string, check func(models.OTPRecord) bool) (bool, error) {
	sh := s.shard(phone)
	for attempt := 0; attempt < maxConsumeAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		sh.mu.Lock()
		e, ok := sh.entries[phone]
		sh.mu.Unlock()
		if !ok {
			return false, nil
		}

		if !check(e.rec) {
			return true, nil
		}

		sh.mu.Lock()
		cur, ok := sh.entries[phone]
		if ok && cur.version == e.version {
			delete(sh.entries, phone)
			sh.mu.Unlock()
			return true, nil
		}
		sh.mu.Unlock()
	}
	return false, ErrConsumeConflict
}
