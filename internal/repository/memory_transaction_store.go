package repository

import (
	"context"
	"sync"

	"github.com/ugxchange/ugxchange/internal/models"
)

// MemoryTransactionStore is a process-local TransactionStore.
type MemoryTransactionStore struct {
	mu    sync.RWMutex
	txs   []models.Transaction
	byRef map[string]int
}

func NewMemoryTransactionStore() *MemoryTransactionStore {
	return &MemoryTransactionStore{byRef: make(map[string]int)}
}

func (s *MemoryTransactionStore) Append(ctx context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx.ID = int64(len(s.txs) + 1)
	s.txs = append(s.txs, *tx)
	if tx.Reference != "" {
		if _, dup := s.byRef[tx.Reference]; !dup {
			s.byRef[tx.Reference] = len(s.txs) - 1
		}
	}
	return nil
}

func (s *MemoryTransactionStore) List(ctx context.Context) ([]models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Transaction, len(s.txs))
	copy(out, s.txs)
	return out, nil
}

func (s *MemoryTransactionStore) FindByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byRef[reference]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	tx := s.txs[idx]
	return &tx, nil
}
