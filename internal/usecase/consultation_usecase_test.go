package usecase

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"pharmacy-backend/internal/delivery/dto"
	"pharmacy-backend/internal/domain/entity"
	"pharmacy-backend/internal/realtime"
	"pharmacy-backend/internal/service"
	"pharmacy-backend/internal/testutil"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
)

func TestRequestCreatesQueuedConsultation(t *testing.T) {
	f := newFixture(t)
	branch := uuid.New()
	user := testutil.SeedCustomer(t, f.db)

	c := f.request(t, user.ID, branch, entity.ConsultationTypeUrgent)

	if c.Status != string(entity.ConsultationStatusRequested) {
		t.Fatalf("status: got %s", c.Status)
	}
	if c.DoctorID != nil {
		t.Fatalf("requested consultation must not carry a doctor")
	}
	if c.Priority != 10 {
		t.Fatalf("urgent priority: got %d", c.Priority)
	}
	if !strings.HasPrefix(c.ConsultationNo, "CONS") {
		t.Fatalf("consultation no: %q", c.ConsultationNo)
	}
	if !c.ExpiresAt.After(c.CreatedAt) {
		t.Fatalf("expiry %v should be after creation %v", c.ExpiresAt, c.CreatedAt)
	}
	if n := f.queueLen(t, branch); n != 1 {
		t.Fatalf("queue length: got %d", n)
	}
}

func TestAcceptRespectsCapacityUnderConcurrency(t *testing.T) {
	f := newFixture(t)
	branch := uuid.New()
	doctor := testutil.SeedDoctor(t, f.db, branch, 3, true)

	ids := make([]uuid.UUID, 10)
	for i := range ids {
		user := testutil.SeedCustomer(t, f.db)
		ids[i] = f.request(t, user.ID, branch, entity.ConsultationTypeGeneral).ID
	}

	var accepted, rejected, other atomic.Int32
	var wg conc.WaitGroup
	for _, id := range ids {
		id := id
		wg.Go(func() {
			_, err := f.consultations.Accept(context.Background(), id, doctor.UserID)
			switch {
			case err == nil:
				accepted.Add(1)
			case errors.Is(err, service.ErrCapacityExceeded):
				rejected.Add(1)
			default:
				other.Add(1)
				t.Errorf("unexpected accept error: %v", err)
			}
		})
	}
	wg.Wait()

	if accepted.Load() != 3 || rejected.Load() != 7 || other.Load() != 0 {
		t.Fatalf("want 3 accepted and 7 rejected, got %d/%d/%d", accepted.Load(), rejected.Load(), other.Load())
	}
	if got := testutil.ReloadDoctor(t, f.db, doctor.UserID).ActiveConsultationsCount; got != 3 {
		t.Fatalf("active count: got %d", got)
	}

	var assigned int64
	f.db.Model(&entity.Consultation{}).Where("status = ?", entity.ConsultationStatusAssigned).Count(&assigned)
	if assigned != 3 {
		t.Fatalf("assigned consultations: got %d", assigned)
	}
	if n := f.queueLen(t, branch); n != 7 {
		t.Fatalf("rejected consultations should stay queued, queue length %d", n)
	}
}

func TestAcceptHasExactlyOneWinner(t *testing.T) {
	f := newFixture(t)
	branch := uuid.New()
	user := testutil.SeedCustomer(t, f.db)
	a := testutil.SeedDoctor(t, f.db, branch, 3, true)
	b := testutil.SeedDoctor(t, f.db, branch, 3, true)
	c := f.request(t, user.ID, branch, entity.ConsultationTypeGeneral)

	var wins, lost atomic.Int32
	var wg conc.WaitGroup
	for _, doctorID := range []uuid.UUID{a.UserID, b.UserID} {
		doctorID := doctorID
		wg.Go(func() {
			_, err := f.consultations.Accept(context.Background(), c.ID, doctorID)
			if err == nil {
				wins.Add(1)
				return
			}
			if errors.Is(err, ErrInvalidState) {
				lost.Add(1)
				return
			}
			t.Errorf("unexpected accept error: %v", err)
		})
	}
	wg.Wait()

	if wins.Load() != 1 || lost.Load() != 1 {
		t.Fatalf("want one winner and one InvalidState, got %d/%d", wins.Load(), lost.Load())
	}
	total := testutil.ReloadDoctor(t, f.db, a.UserID).ActiveConsultationsCount +
		testutil.ReloadDoctor(t, f.db, b.UserID).ActiveConsultationsCount
	if total != 1 {
		t.Fatalf("exactly one slot should be held, got %d", total)
	}
}

func TestAcceptUnavailableDoctorLeavesConsultationRequested(t *testing.T) {
	f := newFixture(t)
	branch := uuid.New()
	user := testutil.SeedCustomer(t, f.db)
	doctor := testutil.SeedDoctor(t, f.db, branch, 3, false)
	c := f.request(t, user.ID, branch, entity.ConsultationTypeGeneral)

	_, err := f.consultations.Accept(context.Background(), c.ID, doctor.UserID)
	if !errors.Is(err, service.ErrCapacityExceeded) {
		t.Fatalf("want ErrCapacityExceeded, got %v", err)
	}
	if !strings.Contains(err.Error(), service.ReasonUnavailable) {
		t.Fatalf("rejection reason missing: %v", err)
	}
	if s := f.status(t, c.ID); s != entity.ConsultationStatusRequested {
		t.Fatalf("rolled back status: got %s", s)
	}
	if n := f.queueLen(t, branch); n != 1 {
		t.Fatalf("consultation should remain queued, got %d", n)
	}
}

func TestAcceptPublishesDoctorJoinedAndNotifiesUser(t *testing.T) {
	f := newFixture(t)
	branch := uuid.New()
	user := testutil.SeedCustomer(t, f.db)
	doctor := testutil.SeedDoctor(t, f.db, branch, 3, true)
	c := f.request(t, user.ID, branch, entity.ConsultationTypeGeneral)

	sub, err := f.hub.Subscribe(realtime.ConsultationTopic(c.ID))
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	resp, err := f.consultations.Accept(context.Background(), c.ID, doctor.UserID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if resp.Status != string(entity.ConsultationStatusAssigned) || resp.DoctorID == nil || *resp.DoctorID != doctor.UserID {
		t.Fatalf("unexpected accept response: %+v", resp)
	}

	select {
	case evt := <-sub.Events():
		if evt.Kind != realtime.EventDoctorJoined {
			t.Fatalf("want doctor_joined, got %s", evt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatalf("no doctor_joined event")
	}

	kinds := f.notifier.kinds()
	if len(kinds) != 1 || kinds[0] != "consultation_accepted" {
		t.Fatalf("push notifications: %v", kinds)
	}
}

func TestCompleteReleasesCapacityOnce(t *testing.T) {
	f := newFixture(t)
	branch := uuid.New()
	_, doctor, c := f.accepted(t, branch)
	req := &dto.CompleteConsultationRequest{Summary: "Take with food", Notes: "follow up in a week"}

	resp, err := f.consultations.Complete(context.Background(), c.ID, doctor.UserID, req)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Status != string(entity.ConsultationStatusCompleted) || resp.CompletedAt == nil {
		t.Fatalf("unexpected complete response: %+v", resp)
	}
	if resp.DoctorNotes != "follow up in a week" {
		t.Fatalf("doctor view should carry notes")
	}

	if _, err := f.consultations.Complete(context.Background(), c.ID, doctor.UserID, req); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second complete: want ErrInvalidState, got %v", err)
	}
	if got := testutil.ReloadDoctor(t, f.db, doctor.UserID).ActiveConsultationsCount; got != 0 {
		t.Fatalf("active count after complete: got %d", got)
	}
}

func TestCompleteByOtherDoctorIsNotFound(t *testing.T) {
	f := newFixture(t)
	branch := uuid.New()
	_, _, c := f.accepted(t, branch)
	stranger := testutil.SeedDoctor(t, f.db, branch, 3, true)

	_, err := f.consultations.Complete(context.Background(), c.ID, stranger.UserID, &dto.CompleteConsultationRequest{Summary: "done"})
	if !errors.Is(err, ErrConsultationNotFound) {
		t.Fatalf("want ErrConsultationNotFound, got %v", err)
	}
}

func TestExpireAndAcceptNeverBothWin(t *testing.T) {
	f := newFixture(t)
	branch := uuid.New()
	user := testutil.SeedCustomer(t, f.db)
	doctor := testutil.SeedDoctor(t, f.db, branch, 3, true)
	c := f.request(t, user.ID, branch, entity.ConsultationTypeGeneral)

	f.setNow(c.ExpiresAt.Add(time.Second))

	if _, err := f.consultations.Accept(context.Background(), c.ID, doctor.UserID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("accept past deadline: want ErrInvalidState, got %v", err)
	}
	n, err := f.consultations.ExpireOverdue(context.Background())
	if err != nil {
		t.Fatalf("ExpireOverdue: %v", err)
	}
	if n != 1 {
		t.Fatalf("expired: got %d", n)
	}
	if s := f.status(t, c.ID); s != entity.ConsultationStatusExpired {
		t.Fatalf("status: got %s", s)
	}
	if got := testutil.ReloadDoctor(t, f.db, doctor.UserID).ActiveConsultationsCount; got != 0 {
		t.Fatalf("no slot may be held, got %d", got)
	}
	if n := f.queueLen(t, branch); n != 0 {
		t.Fatalf("expired consultation should leave the queue, got %d", n)
	}

	again, err := f.consultations.ExpireOverdue(context.Background())
	if err != nil || again != 0 {
		t.Fatalf("second sweep should be a no-op, got %d, %v", again, err)
	}
}

func TestExpireSkipsAcceptedConsultation(t *testing.T) {
	f := newFixture(t)
	branch := uuid.New()
	_, _, c := f.accepted(t, branch)

	f.setNow(c.ExpiresAt.Add(time.Hour))
	n, err := f.consultations.ExpireOverdue(context.Background())
	if err != nil {
		t.Fatalf("ExpireOverdue: %v", err)
	}
	if n != 0 {
		t.Fatalf("assigned consultation must not expire, got %d", n)
	}
	if s := f.status(t, c.ID); s != entity.ConsultationStatusAssigned {
		t.Fatalf("status: got %s", s)
	}
}

func TestGetForUserAppliesLazyExpiry(t *testing.T) {
	f := newFixture(t)
	branch := uuid.New()
	user := testutil.SeedCustomer(t, f.db)
	c := f.request(t, user.ID, branch, entity.ConsultationTypeGeneral)

	f.setNow(c.ExpiresAt.Add(time.Minute))
	resp, err := f.consultations.GetForUser(context.Background(), c.ID, user.ID)
	if err != nil {
		t.Fatalf("GetForUser: %v", err)
	}
	if resp.Status != string(entity.ConsultationStatusExpired) {
		t.Fatalf("lazy expiry: got %s", resp.Status)
	}
}

func TestCancelReleasesCapacityAndDetachesDoctor(t *testing.T) {
	f := newFixture(t)
	branch := uuid.New()
	user, doctor, c := f.accepted(t, branch)

	ok, err := f.consultations.VerifyParticipant(context.Background(), c.ID, doctor.UserID)
	if err != nil || !ok {
		t.Fatalf("doctor should be a participant before cancel: %v, %v", ok, err)
	}

	resp, err := f.consultations.Cancel(context.Background(), c.ID, user.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if resp.Status != string(entity.ConsultationStatusCancelled) || resp.CancelledBy != string(entity.SenderRoleUser) {
		t.Fatalf("unexpected cancel response: %+v", resp)
	}
	if resp.DoctorID != nil {
		t.Fatalf("cancelled consultation must not carry a doctor")
	}
	if got := testutil.ReloadDoctor(t, f.db, doctor.UserID).ActiveConsultationsCount; got != 0 {
		t.Fatalf("active count after cancel: got %d", got)
	}

	ok, err = f.consultations.VerifyParticipant(context.Background(), c.ID, doctor.UserID)
	if err != nil || ok {
		t.Fatalf("doctor should no longer be a participant: %v, %v", ok, err)
	}
	if _, err := f.consultations.Cancel(context.Background(), c.ID, user.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second cancel: want ErrInvalidState, got %v", err)
	}
}

func TestCancelRequestedRemovesQueueEntry(t *testing.T) {
	f := newFixture(t)
	branch := uuid.New()
	user := testutil.SeedCustomer(t, f.db)
	c := f.request(t, user.ID, branch, entity.ConsultationTypeGeneral)

	if _, err := f.consultations.Cancel(context.Background(), c.ID, uuid.New()); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("stranger cancel: want ErrNotParticipant, got %v", err)
	}
	if _, err := f.consultations.Cancel(context.Background(), c.ID, user.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if n := f.queueLen(t, branch); n != 0 {
		t.Fatalf("queue length after cancel: got %d", n)
	}
}

func TestRateOnceAndAggregate(t *testing.T) {
	f := newFixture(t)
	branch := uuid.New()
	doctor := testutil.SeedDoctor(t, f.db, branch, 5, true)

	for _, rating := range []int{5, 3, 4} {
		user := testutil.SeedCustomer(t, f.db)
		c := f.request(t, user.ID, branch, entity.ConsultationTypeGeneral)
		if _, err := f.consultations.Accept(context.Background(), c.ID, doctor.UserID); err != nil {
			t.Fatalf("Accept: %v", err)
		}

		if _, err := f.consultations.Rate(context.Background(), c.ID, user.ID, &dto.RateConsultationRequest{Rating: rating}); !errors.Is(err, ErrInvalidState) {
			t.Fatalf("rating before completion: want ErrInvalidState, got %v", err)
		}
		if _, err := f.consultations.Complete(context.Background(), c.ID, doctor.UserID, &dto.CompleteConsultationRequest{Summary: "done"}); err != nil {
			t.Fatalf("Complete: %v", err)
		}

		resp, err := f.consultations.Rate(context.Background(), c.ID, user.ID, &dto.RateConsultationRequest{Rating: rating, Notes: "thanks"})
		if err != nil {
			t.Fatalf("Rate: %v", err)
		}
		if resp.Rating == nil || *resp.Rating != rating {
			t.Fatalf("rating not stored: %+v", resp.Rating)
		}
		if _, err := f.consultations.Rate(context.Background(), c.ID, user.ID, &dto.RateConsultationRequest{Rating: 1}); !errors.Is(err, ErrAlreadyRated) {
			t.Fatalf("second rating: want ErrAlreadyRated, got %v", err)
		}
	}

	profile := testutil.ReloadDoctor(t, f.db, doctor.UserID)
	if profile.TotalRaters != 3 {
		t.Fatalf("total raters: got %d", profile.TotalRaters)
	}
	if profile.AverageRating < 3.999 || profile.AverageRating > 4.001 {
		t.Fatalf("average: got %v", profile.AverageRating)
	}
}

func TestRateRejectsOutOfRange(t *testing.T) {
	f := newFixture(t)
	if _, err := f.consultations.Rate(context.Background(), uuid.New(), uuid.New(), &dto.RateConsultationRequest{Rating: 6}); !errors.Is(err, service.ErrInvalidRating) {
		t.Fatalf("want ErrInvalidRating, got %v", err)
	}
}

func TestVerifyParticipant(t *testing.T) {
	f := newFixture(t)
	branch := uuid.New()
	user := testutil.SeedCustomer(t, f.db)
	doctor := testutil.SeedDoctor(t, f.db, branch, 3, true)
	c := f.request(t, user.ID, branch, entity.ConsultationTypeGeneral)
	ctx := context.Background()

	tests := []struct {
		name   string
		userID uuid.UUID
		want   bool
	}{
		{"user before assignment", user.ID, true},
		{"doctor before assignment", doctor.UserID, false},
		{"stranger", uuid.New(), false},
		{"nil id", uuid.Nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.consultations.VerifyParticipant(ctx, c.ID, tt.userID)
			if err != nil {
				t.Fatalf("VerifyParticipant: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %v want %v", got, tt.want)
			}
		})
	}

	if _, err := f.consultations.Accept(ctx, c.ID, doctor.UserID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if ok, _ := f.consultations.VerifyParticipant(ctx, c.ID, doctor.UserID); !ok {
		t.Fatalf("assigned doctor should be a participant")
	}
	if _, err := f.consultations.VerifyParticipant(ctx, uuid.New(), user.ID); !errors.Is(err, ErrConsultationNotFound) {
		t.Fatalf("unknown consultation: want ErrConsultationNotFound, got %v", err)
	}
}

func TestGetForDoctorHidesNotesUntilAssigned(t *testing.T) {
	f := newFixture(t)
	branch := uuid.New()
	user := testutil.SeedCustomer(t, f.db)
	doctor := testutil.SeedDoctor(t, f.db, branch, 3, true)
	elsewhere := testutil.SeedDoctor(t, f.db, uuid.New(), 3, true)
	c := f.request(t, user.ID, branch, entity.ConsultationTypeGeneral)
	ctx := context.Background()

	if _, err := f.consultations.GetForDoctor(ctx, c.ID, doctor.UserID); err != nil {
		t.Fatalf("branch doctor should preview a requested consultation: %v", err)
	}
	if _, err := f.consultations.GetForDoctor(ctx, c.ID, elsewhere.UserID); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("other branch: want ErrNotParticipant, got %v", err)
	}

	if _, err := f.consultations.Accept(ctx, c.ID, doctor.UserID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	other := testutil.SeedDoctor(t, f.db, branch, 3, true)
	if _, err := f.consultations.GetForDoctor(ctx, c.ID, other.UserID); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("unassigned doctor after accept: want ErrNotParticipant, got %v", err)
	}
}

func TestListBranchQueueOrdersAndSkipsOverdue(t *testing.T) {
	f := newFixture(t)
	branch := uuid.New()
	doctor := testutil.SeedDoctor(t, f.db, branch, 3, true)
	base := time.Now().UTC()

	f.setNow(base)
	stale := f.request(t, testutil.SeedCustomer(t, f.db).ID, branch, entity.ConsultationTypeGeneral)

	f.setNow(base.Add(20 * time.Minute))
	general := f.request(t, testutil.SeedCustomer(t, f.db).ID, branch, entity.ConsultationTypeGeneral)
	f.setNow(base.Add(21 * time.Minute))
	urgent := f.request(t, testutil.SeedCustomer(t, f.db).ID, branch, entity.ConsultationTypeUrgent)

	f.setNow(stale.ExpiresAt.Add(time.Second))
	queue, err := f.consultations.ListBranchQueue(context.Background(), doctor.UserID)
	if err != nil {
		t.Fatalf("ListBranchQueue: %v", err)
	}

	if queue.Total != 2 {
		t.Fatalf("queue total: got %d", queue.Total)
	}
	if queue.Entries[0].Consultation.ID != urgent.ID || queue.Entries[1].Consultation.ID != general.ID {
		t.Fatalf("unexpected order: %s, %s", queue.Entries[0].Consultation.ID, queue.Entries[1].Consultation.ID)
	}
	if queue.Entries[0].Position != 1 || queue.Entries[1].Position != 2 {
		t.Fatalf("positions: %d, %d", queue.Entries[0].Position, queue.Entries[1].Position)
	}
	if s := f.status(t, stale.ID); s != entity.ConsultationStatusExpired {
		t.Fatalf("overdue entry should expire on read, got %s", s)
	}
}

func TestListMineFiltersByStatus(t *testing.T) {
	f := newFixture(t)
	branch := uuid.New()
	user := testutil.SeedCustomer(t, f.db)
	doctor := testutil.SeedDoctor(t, f.db, branch, 3, true)

	first := f.request(t, user.ID, branch, entity.ConsultationTypeGeneral)
	f.request(t, user.ID, branch, entity.ConsultationTypeSideEffect)
	if _, err := f.consultations.Accept(context.Background(), first.ID, doctor.UserID); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	all, err := f.consultations.ListMine(context.Background(), user.ID, nil)
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if all.Total != 2 {
		t.Fatalf("total: got %d", all.Total)
	}

	assigned, err := f.consultations.ListMine(context.Background(), user.ID, &dto.ConsultationListQuery{Statuses: []string{"assigned"}})
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if assigned.Total != 1 || assigned.Consultations[0].ID != first.ID {
		t.Fatalf("status filter: %+v", assigned)
	}

	active, err := f.consultations.ListDoctorActive(context.Background(), doctor.UserID)
	if err != nil {
		t.Fatalf("ListDoctorActive: %v", err)
	}
	if active.Total != 1 {
		t.Fatalf("doctor active: got %d", active.Total)
	}
}

func TestGenerateConsultationNoFormat(t *testing.T) {
	now := time.UnixMilli(1700000000123).UTC()
	no := generateConsultationNo(now)
	if !strings.HasPrefix(no, "CONS1700000000123") {
		t.Fatalf("prefix: %q", no)
	}
	if len(no) != len("CONS1700000000123")+4 {
		t.Fatalf("suffix should be four digits: %q", no)
	}
}
