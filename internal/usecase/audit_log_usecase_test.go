package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"pharmacy-backend/internal/delivery/dto"
	"pharmacy-backend/internal/domain/entity"
	"pharmacy-backend/internal/repository"
	"pharmacy-backend/internal/testutil"

	"github.com/google/uuid"
)

func TestAuditTrailSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	branch := uuid.New()
	user, doctor, c := f.accepted(t, branch)

	if _, err := f.consultations.Complete(ctx, c.ID, doctor.UserID, &dto.CompleteConsultationRequest{Summary: "done"}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	uc := NewAuditLogUsecase(f.db, testutil.Logger(), repository.NewAuditLogRepository())

	all, total, err := uc.Search(ctx, &dto.AuditLogQuery{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if total < 3 || int64(len(all)) != total {
		t.Fatalf("expected request, accept and complete entries, got %d", total)
	}
	if all[0].ID < all[len(all)-1].ID {
		t.Fatalf("entries should be newest first")
	}

	byDoctor, _, err := uc.Search(ctx, &dto.AuditLogQuery{UserID: doctor.UserID.String()})
	if err != nil {
		t.Fatalf("Search by user: %v", err)
	}
	for _, e := range byDoctor {
		if e.UserID == nil || *e.UserID != doctor.UserID {
			t.Fatalf("entry %d is not the doctor's", e.ID)
		}
	}

	requests, n, err := uc.Search(ctx, &dto.AuditLogQuery{Action: entity.AuditActionConsultationRequest})
	if err != nil {
		t.Fatalf("Search by action: %v", err)
	}
	if n != 1 || *requests[0].UserID != user.ID || requests[0].EntityID != c.ID.String() {
		t.Fatalf("unexpected request entries: %+v", requests)
	}

	page, n, err := uc.Search(ctx, &dto.AuditLogQuery{Page: 2, Limit: 1})
	if err != nil {
		t.Fatalf("Search page: %v", err)
	}
	if len(page) != 1 || n != total || page[0].ID != all[1].ID {
		t.Fatalf("page 2 should hold the second newest entry")
	}

	future := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	if none, n, err := uc.Search(ctx, &dto.AuditLogQuery{Since: future}); err != nil || n != 0 || len(none) != 0 {
		t.Fatalf("future window: n=%d err=%v", n, err)
	}
	past := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	if _, _, err := uc.Search(ctx, &dto.AuditLogQuery{Since: future, Until: past}); !errors.Is(err, ErrInvalidTimeRange) {
		t.Fatalf("inverted window: want ErrInvalidTimeRange, got %v", err)
	}

	if _, err := uc.GetAuditLog(ctx, all[0].ID); err != nil {
		t.Fatalf("GetAuditLog: %v", err)
	}
	if _, err := uc.GetAuditLog(ctx, -1); !errors.Is(err, ErrAuditLogNotFound) {
		t.Fatalf("want ErrAuditLogNotFound, got %v", err)
	}
}
