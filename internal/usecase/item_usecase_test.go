package usecase

import (
	"context"
	"errors"
	"testing"

	"pharmacy-backend/internal/delivery/dto"
	"pharmacy-backend/internal/domain/entity"
	"pharmacy-backend/internal/repository"
	"pharmacy-backend/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestItemCatalogue(t *testing.T) {
	db := testutil.NewDB(t)
	uc := NewItemUsecase(db, testutil.Logger(), repository.NewItemRepository())
	ctx := context.Background()

	created, err := uc.Create(ctx, &dto.ItemRequest{
		Name:                 "Amoxicillin 500mg",
		Price:                decimal.RequireFromString("12500.455"),
		Stock:                40,
		RequiresPrescription: true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !created.Price.Equal(decimal.RequireFromString("12500.46")) {
		t.Fatalf("price should be rounded to cents, got %s", created.Price)
	}

	if _, err := uc.Create(ctx, &dto.ItemRequest{Name: "Broken", Price: decimal.NewFromInt(-1)}); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("negative price: want ErrInvalidPrice, got %v", err)
	}

	updated, err := uc.Update(ctx, created.ID, &dto.ItemRequest{Name: "Amoxicillin 500mg", Price: decimal.NewFromInt(13000), Stock: 39, RequiresPrescription: true})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Stock != 39 || !updated.Price.Equal(decimal.NewFromInt(13000)) {
		t.Fatalf("unexpected update: %+v", updated)
	}

	if _, err := uc.Create(ctx, &dto.ItemRequest{Name: "Paracetamol 500mg", Price: decimal.NewFromInt(5000), Stock: 100}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	items, total, err := uc.GetAll(ctx, 1, 1)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if total != 2 || len(items) != 1 || items[0].Name != "Amoxicillin 500mg" {
		t.Fatalf("unexpected page: total=%d items=%+v", total, items)
	}

	if err := uc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := uc.GetByID(ctx, created.ID); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("deleted item: want ErrItemNotFound, got %v", err)
	}
	if err := uc.Delete(ctx, created.ID); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("second delete: want ErrItemNotFound, got %v", err)
	}
}

func TestRequestChecksReferencedItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := testutil.SeedCustomer(t, f.db)
	branch := uuid.New()

	item := &entity.Item{Name: "Ibuprofen 400mg", Price: decimal.NewFromInt(8000)}
	if err := f.db.Create(item).Error; err != nil {
		t.Fatalf("seed item: %v", err)
	}

	resp, err := f.consultations.Request(ctx, user.ID, &dto.CreateConsultationRequest{
		Type:     string(entity.ConsultationTypeMedicationInquiry),
		BranchID: branch,
		ItemID:   &item.ID,
	})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if resp.ItemID == nil || *resp.ItemID != item.ID {
		t.Fatalf("item not recorded: %+v", resp.ItemID)
	}

	missing := uuid.New()
	_, err = f.consultations.Request(ctx, user.ID, &dto.CreateConsultationRequest{
		Type:     string(entity.ConsultationTypeMedicationInquiry),
		BranchID: branch,
		ItemID:   &missing,
	})
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("unknown item: want ErrItemNotFound, got %v", err)
	}
	if n := f.queueLen(t, branch); n != 1 {
		t.Fatalf("rejected request must not be queued, queue length %d", n)
	}
}
