package repository

import (
	"testing"

	"pharmacy-backend/internal/testutil"

	"github.com/google/uuid"
)

func TestIncrementActiveIfAdmissibleStopsAtCap(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewDoctorProfileRepository()
	doctor := testutil.SeedDoctor(t, db, uuid.New(), 2, true)

	for i := 0; i < 2; i++ {
		rows, err := repo.IncrementActiveIfAdmissible(db, doctor.UserID)
		if err != nil {
			t.Fatalf("admit %d: %v", i, err)
		}
		if rows != 1 {
			t.Fatalf("admit %d: want 1 row, got %d", i, rows)
		}
	}

	rows, err := repo.IncrementActiveIfAdmissible(db, doctor.UserID)
	if err != nil {
		t.Fatalf("admit at cap: %v", err)
	}
	if rows != 0 {
		t.Fatalf("admission at cap must not touch the row, got %d", rows)
	}
	if got := testutil.ReloadDoctor(t, db, doctor.UserID).ActiveConsultationsCount; got != 2 {
		t.Fatalf("active count: want 2, got %d", got)
	}

	// A released slot can be taken again.
	if rows, _ := repo.DecrementActive(db, doctor.UserID); rows != 1 {
		t.Fatalf("release: want 1 row, got %d", rows)
	}
	if rows, _ := repo.IncrementActiveIfAdmissible(db, doctor.UserID); rows != 1 {
		t.Fatalf("admit after release: want 1 row, got %d", rows)
	}
}

func TestIncrementActiveIfAdmissibleRequiresAvailability(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewDoctorProfileRepository()
	doctor := testutil.SeedDoctor(t, db, uuid.New(), 3, false)

	rows, err := repo.IncrementActiveIfAdmissible(db, doctor.UserID)
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if rows != 0 {
		t.Fatalf("unavailable doctor must not be admitted, got %d rows", rows)
	}

	for i := 0; i < 2; i++ {
		if rows, _ := repo.DecrementActive(db, doctor.UserID); rows != 0 {
			t.Fatalf("release at zero must be a no-op, got %d rows", rows)
		}
	}
	if got := testutil.ReloadDoctor(t, db, doctor.UserID).ActiveConsultationsCount; got != 0 {
		t.Fatalf("active count: want 0, got %d", got)
	}
}
