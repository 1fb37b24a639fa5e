package service

import (
	"errors"
	"math"
	"testing"

	"pharmacy-backend/internal/repository"
	"pharmacy-backend/internal/testutil"

	"github.com/google/uuid"
)

func TestNextAverageIsOrderIndependent(t *testing.T) {
	orders := [][]int{
		{5, 3, 4}, {5, 4, 3}, {3, 5, 4}, {3, 4, 5}, {4, 5, 3}, {4, 3, 5},
	}
	for _, order := range orders {
		avg, count := 0.0, 0
		for _, r := range order {
			avg, count = NextAverage(avg, count, r)
		}
		if count != 3 || math.Abs(avg-4.0) > 1e-9 {
			t.Fatalf("order %v: got avg=%v count=%d", order, avg, count)
		}
	}
}

func TestRatingAggregatorApply(t *testing.T) {
	db := testutil.NewDB(t)
	doctor := testutil.SeedDoctor(t, db, uuid.New(), 3, true)
	ra := NewRatingAggregator(repository.NewDoctorProfileRepository(), testutil.Logger())

	for _, r := range []int{4, 3, 5} {
		if err := ra.Apply(db, doctor.UserID, r); err != nil {
			t.Fatalf("apply %d: %v", r, err)
		}
	}

	got := testutil.ReloadDoctor(t, db, doctor.UserID)
	if got.TotalRaters != 3 || math.Abs(got.AverageRating-4.0) > 1e-9 {
		t.Fatalf("got avg=%v count=%d", got.AverageRating, got.TotalRaters)
	}
}

func TestRatingAggregatorValidates(t *testing.T) {
	db := testutil.NewDB(t)
	ra := NewRatingAggregator(repository.NewDoctorProfileRepository(), testutil.Logger())

	for _, r := range []int{0, 6, -1} {
		if err := ra.Apply(db, uuid.New(), r); !errors.Is(err, ErrInvalidRating) {
			t.Fatalf("rating %d: want ErrInvalidRating, got %v", r, err)
		}
	}
	if err := ra.Apply(db, uuid.New(), 5); !errors.Is(err, ErrDoctorNotFound) {
		t.Fatalf("unknown doctor: want ErrDoctorNotFound, got %v", err)
	}
}
