package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/faawibowo/pakta/backend/config"
	"github.com/faawibowo/pakta/backend/model"
)

// ErrContractNotFound is returned when no contract has the requested ID.
var ErrContractNotFound = errors.New("contract not found")

// ContractFilter narrows ListContracts. Zero values match everything.
type ContractFilter struct {
	OwnerID string
	Status  model.ContractStatus
}

// ContractRepository persists contracts and their validation history.
type ContractRepository interface {
	CreateContract(ctx context.Context, c *model.Contract) error
	UpdateContract(ctx context.Context, c *model.Contract) error
	GetContract(ctx context.Context, id string) (*model.Contract, error)
	ListContracts(ctx context.Context, filter ContractFilter) ([]*model.Contract, error)
	// DeleteContract removes the contract together with its validations.
	DeleteContract(ctx context.Context, id string) error

	AddValidation(ctx context.Context, v *model.ValidationRecord) error
	// ListValidations returns a contract's validations, newest first.
	ListValidations(ctx context.Context, contractID string) ([]*model.ValidationRecord, error)
	// LatestValidation returns nil, nil when the contract has none.
	LatestValidation(ctx context.Context, contractID string) (*model.ValidationRecord, error)
	Count(ctx context.Context) (int64, error)
}

// MemoryStore is an in-memory ContractRepository
type MemoryStore struct {
	contracts    map[string]*model.Contract
	validations  map[string][]*model.ValidationRecord // by contract ID, oldest first
	mu           sync.RWMutex
	maxContracts int // Maximum contracts to keep, 0 = unlimited
}

// NewMemoryStore creates a store bounded by cfg.MaxContracts
func NewMemoryStore(cfg *config.StoreConfig) *MemoryStore {
	maxContracts := cfg.MaxContracts
	if maxContracts < 0 {
		maxContracts = 0
	}
	slog.Info("memory contract store initialized", "max_contracts", maxContracts)
	return &MemoryStore{
		contracts:    make(map[string]*model.Contract),
		validations:  make(map[string][]*model.ValidationRecord),
		maxContracts: maxContracts,
	}
}

func (s *MemoryStore) CreateContract(_ context.Context, c *model.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	cp := *c
	s.contracts[c.ID] = &cp

	// Cleanup if exceeds max
	s.cleanupIfNeeded()
	return nil
}

func (s *MemoryStore) UpdateContract(_ context.Context, c *model.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.contracts[c.ID]
	if !ok {
		return ErrContractNotFound
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now()
	cp := *c
	s.contracts[c.ID] = &cp
	return nil
}

func (s *MemoryStore) GetContract(_ context.Context, id string) (*model.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contracts[id]
	if !ok {
		return nil, ErrContractNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) ListContracts(_ context.Context, filter ContractFilter) ([]*model.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.Contract, 0, len(s.contracts))
	for _, c := range s.contracts {
		if filter.OwnerID != "" && c.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		cp := *c
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) DeleteContract(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contracts[id]; !ok {
		return ErrContractNotFound
	}
	delete(s.contracts, id)
	delete(s.validations, id)
	return nil
}

func (s *MemoryStore) AddValidation(_ context.Context, v *model.ValidationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contracts[v.ContractID]; !ok {
		return ErrContractNotFound
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	cp := *v
	s.validations[v.ContractID] = append(s.validations[v.ContractID], &cp)
	return nil
}

func (s *MemoryStore) ListValidations(_ context.Context, contractID string) ([]*model.ValidationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.contracts[contractID]; !ok {
		return nil, ErrContractNotFound
	}
	history := s.validations[contractID]
	result := make([]*model.ValidationRecord, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		cp := *history[i]
		result = append(result, &cp)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) LatestValidation(ctx context.Context, contractID string) (*model.ValidationRecord, error) {
	history, err := s.ListValidations(ctx, contractID)
	if err != nil || len(history) == 0 {
		return nil, err
	}
	return history[0], nil
}

// Count returns the number of contracts in the store
func (s *MemoryStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.contracts)), nil
}

// cleanupIfNeeded removes oldest contracts if store exceeds maxContracts
// Must be called with lock held
func (s *MemoryStore) cleanupIfNeeded() {
	if s.maxContracts <= 0 {
		return // Unlimited
	}

	if len(s.contracts) <= s.maxContracts {
		return
	}

	contracts := make([]*model.Contract, 0, len(s.contracts))
	for _, c := range s.contracts {
		contracts = append(contracts, c)
	}
	sort.Slice(contracts, func(i, j int) bool {
		return contracts[i].CreatedAt.Before(contracts[j].CreatedAt)
	})

	removeCount := len(contracts) - s.maxContracts
	for i := 0; i < removeCount; i++ {
		slog.Info("auto-cleaning old contract",
			"contract_id", contracts[i].ID,
			"created_at", contracts[i].CreatedAt,
		)
		delete(s.contracts, contracts[i].ID)
		delete(s.validations, contracts[i].ID)
	}
}
