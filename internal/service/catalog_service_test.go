package service

import (
	"context"
	"errors"
	"testing"

	"github.com/PharmaUz/Uz-Pharma-Bot/internal/domain"
	"github.com/PharmaUz/Uz-Pharma-Bot/internal/repository"
)

func setupCatalog(t *testing.T) *CatalogService {
	t.Helper()
	return NewCatalogService(repository.NewMemoryStore().Repositories().Drugs)
}

func TestCatalog_Create_Valid(t *testing.T) {
	ctx := context.Background()
	cs := setupCatalog(t)
	d, err := cs.Create(ctx, domain.Drug{Name: " Aspirin ", Price: ptr(int64(3000))})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if d.ID == 0 || d.Name != "Aspirin" {
		t.Fatalf("expected id assigned and trimmed name, got %+v", d)
	}
	// цена может отсутствовать
	if _, err := cs.Create(ctx, domain.Drug{Name: "Vitamin C"}); err != nil {
		t.Fatalf("nil price: %v", err)
	}
}

func TestCatalog_Create_Invalid(t *testing.T) {
	ctx := context.Background()
	cs := setupCatalog(t)
	if _, err := cs.Create(ctx, domain.Drug{Name: "  "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := cs.Create(ctx, domain.Drug{Name: "N", Price: ptr(int64(-1))}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCatalog_Search(t *testing.T) {
	ctx := context.Background()
	cs := setupCatalog(t)
	for _, d := range []domain.Drug{
		{Name: "Aspirin", Category: "Painkillers"},
		{Name: "Paracetamol", Category: "Painkillers"},
		{Name: "Ibuprofen", Manufacturer: "Berlin-Chemie"},
	} {
		if _, err := cs.Create(ctx, d); err != nil {
			t.Fatal(err)
		}
	}

	list, err := cs.Search(ctx, "PAIN", 0)
	if err != nil {
		t.Fatalf("search err: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 painkillers, got %d", len(list))
	}
	list, _ = cs.Search(ctx, "berlin", 0)
	if len(list) != 1 || list[0].Name != "Ibuprofen" {
		t.Fatalf("manufacturer search failed: %+v", list)
	}
	list, _ = cs.Search(ctx, "", 1)
	if len(list) != 1 || list[0].Name != "Aspirin" {
		t.Fatalf("limit failed: %+v", list)
	}
	if _, err := cs.Search(ctx, "", -1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("negative limit: %v", err)
	}
}

func TestCatalog_UpdatePrice(t *testing.T) {
	ctx := context.Background()
	cs := setupCatalog(t)
	d, _ := cs.Create(ctx, domain.Drug{Name: "Aspirin", Price: ptr(int64(3000))})

	up, err := cs.UpdatePrice(ctx, d.ID, 3500)
	if err != nil {
		t.Fatalf("update err: %v", err)
	}
	if up.UnitPrice() != 3500 {
		t.Fatalf("not updated: %d", up.UnitPrice())
	}
	if _, err := cs.UpdatePrice(ctx, 999, 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := cs.Get(ctx, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
