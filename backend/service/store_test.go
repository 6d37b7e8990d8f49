package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/faawibowo/pakta/backend/config"
	"github.com/faawibowo/pakta/backend/model"
)

func newTestStore(maxContracts int) *MemoryStore {
	return NewMemoryStore(&config.StoreConfig{MaxContracts: maxContracts})
}

func TestMemoryStoreCreateAndGet(t *testing.T) {
	store := newTestStore(100)
	ctx := context.Background()

	contract := &model.Contract{
		ID:        "test-id-1",
		Title:     "Supply agreement",
		Filename:  "supply.pdf",
		OwnerID:   "u-1",
		Status:    model.StatusPending,
		CreatedAt: time.Now(),
	}

	if err := store.CreateContract(ctx, contract); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	retrieved, err := store.GetContract(ctx, "test-id-1")
	if err != nil {
		t.Fatalf("Expected to retrieve contract, got %v", err)
	}
	if retrieved.Filename != "supply.pdf" {
		t.Errorf("Expected filename supply.pdf, got %s", retrieved.Filename)
	}

	// Mutating the returned copy must not leak into the store
	retrieved.Title = "changed"
	again, _ := store.GetContract(ctx, "test-id-1")
	if again.Title != "Supply agreement" {
		t.Errorf("Expected stored title to be unchanged, got %s", again.Title)
	}

	if _, err := store.GetContract(ctx, "non-existent"); !errors.Is(err, ErrContractNotFound) {
		t.Errorf("Expected ErrContractNotFound, got %v", err)
	}
}

func TestMemoryStoreListContracts(t *testing.T) {
	store := newTestStore(100)
	ctx := context.Background()
	base := time.Now()

	store.CreateContract(ctx, &model.Contract{ID: "1", OwnerID: "u-1", Status: model.StatusActive, CreatedAt: base})
	store.CreateContract(ctx, &model.Contract{ID: "2", OwnerID: "u-1", Status: model.StatusPending, CreatedAt: base.Add(time.Second)})
	store.CreateContract(ctx, &model.Contract{ID: "3", OwnerID: "u-2", Status: model.StatusActive, CreatedAt: base.Add(2 * time.Second)})

	all, _ := store.ListContracts(ctx, ContractFilter{})
	if len(all) != 3 {
		t.Fatalf("Expected 3 contracts, got %d", len(all))
	}
	if all[0].ID != "3" {
		t.Errorf("Expected newest contract first, got %s", all[0].ID)
	}

	owned, _ := store.ListContracts(ctx, ContractFilter{OwnerID: "u-1"})
	if len(owned) != 2 {
		t.Errorf("Expected 2 contracts for u-1, got %d", len(owned))
	}

	active, _ := store.ListContracts(ctx, ContractFilter{Status: model.StatusActive})
	if len(active) != 2 {
		t.Errorf("Expected 2 active contracts, got %d", len(active))
	}

	none, _ := store.ListContracts(ctx, ContractFilter{OwnerID: "u-3"})
	if len(none) != 0 {
		t.Errorf("Expected 0 contracts for u-3, got %d", len(none))
	}
}

func TestMemoryStoreUpdateContract(t *testing.T) {
	store := newTestStore(100)
	ctx := context.Background()
	created := time.Now().Add(-time.Hour)

	store.CreateContract(ctx, &model.Contract{ID: "upd", Title: "Old", Status: model.StatusPending, CreatedAt: created})

	err := store.UpdateContract(ctx, &model.Contract{ID: "upd", Title: "New", Status: model.StatusActive})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	c, _ := store.GetContract(ctx, "upd")
	if c.Title != "New" || c.Status != model.StatusActive {
		t.Errorf("Expected updated fields, got %s/%s", c.Title, c.Status)
	}
	if !c.CreatedAt.Equal(created) {
		t.Errorf("Expected CreatedAt to be preserved, got %v", c.CreatedAt)
	}

	if err := store.UpdateContract(ctx, &model.Contract{ID: "missing"}); !errors.Is(err, ErrContractNotFound) {
		t.Errorf("Expected ErrContractNotFound, got %v", err)
	}
}

func TestMemoryStoreDeleteCascadesValidations(t *testing.T) {
	store := newTestStore(100)
	ctx := context.Background()

	store.CreateContract(ctx, &model.Contract{ID: "delete-me", CreatedAt: time.Now()})
	store.AddValidation(ctx, &model.ValidationRecord{ID: "v1", ContractID: "delete-me"})

	if err := store.DeleteContract(ctx, "delete-me"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if _, err := store.GetContract(ctx, "delete-me"); !errors.Is(err, ErrContractNotFound) {
		t.Error("Expected contract to be deleted")
	}
	if len(store.validations["delete-me"]) != 0 {
		t.Error("Expected validations to be deleted with the contract")
	}
	if err := store.DeleteContract(ctx, "delete-me"); !errors.Is(err, ErrContractNotFound) {
		t.Errorf("Expected ErrContractNotFound on second delete, got %v", err)
	}
}

func TestMemoryStoreValidationHistory(t *testing.T) {
	store := newTestStore(100)
	ctx := context.Background()
	base := time.Now()

	store.CreateContract(ctx, &model.Contract{ID: "c", CreatedAt: base})

	latest, err := store.LatestValidation(ctx, "c")
	if err != nil || latest != nil {
		t.Fatalf("Expected no validation yet, got %v, %v", latest, err)
	}

	store.AddValidation(ctx, &model.ValidationRecord{ID: "v1", ContractID: "c", Verdict: model.VerdictHighRisk, CreatedAt: base})
	store.AddValidation(ctx, &model.ValidationRecord{ID: "v2", ContractID: "c", Verdict: model.VerdictValid, CreatedAt: base.Add(time.Minute)})

	history, err := store.ListValidations(ctx, "c")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(history) != 2 || history[0].ID != "v2" {
		t.Fatalf("Expected newest validation first, got %+v", history)
	}

	latest, _ = store.LatestValidation(ctx, "c")
	if latest.Verdict != model.VerdictValid {
		t.Errorf("Expected latest verdict Valid, got %s", latest.Verdict)
	}

	if err := store.AddValidation(ctx, &model.ValidationRecord{ID: "v3", ContractID: "nope"}); !errors.Is(err, ErrContractNotFound) {
		t.Errorf("Expected ErrContractNotFound, got %v", err)
	}
	if _, err := store.ListValidations(ctx, "nope"); !errors.Is(err, ErrContractNotFound) {
		t.Errorf("Expected ErrContractNotFound, got %v", err)
	}
}

func TestMemoryStoreAutoCleanup(t *testing.T) {
	store := newTestStore(3) // Max 3 contracts
	ctx := context.Background()

	// Add 5 contracts
	for i := 0; i < 5; i++ {
		store.CreateContract(ctx, &model.Contract{
			ID:        string(rune('a' + i)),
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		})
	}

	// Should only have 3 contracts (newest)
	if n, _ := store.Count(ctx); n != 3 {
		t.Errorf("Expected 3 contracts after cleanup, got %d", n)
	}

	// Oldest contracts should be removed
	if _, err := store.GetContract(ctx, "a"); err == nil {
		t.Error("Expected oldest contract 'a' to be removed")
	}
	if _, err := store.GetContract(ctx, "b"); err == nil {
		t.Error("Expected second oldest contract 'b' to be removed")
	}
}

func TestMemoryStoreUnlimitedContracts(t *testing.T) {
	store := newTestStore(0) // Unlimited
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		store.CreateContract(ctx, &model.Contract{
			ID:        string(rune('a' + i)),
			CreatedAt: time.Now(),
		})
	}

	if n, _ := store.Count(ctx); n != 10 {
		t.Errorf("Expected 10 contracts, got %d", n)
	}
}

func TestNewMemoryStoreNegativeLimit(t *testing.T) {
	store := newTestStore(-5)
	if store.maxContracts != 0 {
		t.Errorf("Expected negative limit to mean unlimited, got %d", store.maxContracts)
	}
}
