package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"pharmacy-backend/internal/delivery/dto"
	"pharmacy-backend/internal/domain/entity"
	"pharmacy-backend/internal/realtime"
	"pharmacy-backend/internal/repository"
	"pharmacy-backend/internal/service"
	"pharmacy-backend/internal/testutil"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type pushCall struct {
	userIDs []uuid.UUID
	title   string
	data    map[string]string
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []pushCall
}

func (n *recordingNotifier) Notify(userIDs []uuid.UUID, title, body string, data map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, pushCall{userIDs: userIDs, title: title, data: data})
}

func (n *recordingNotifier) kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	kinds := make([]string, len(n.calls))
	for i, c := range n.calls {
		kinds[i] = c.data["type"]
	}
	return kinds
}

type fixture struct {
	db            *gorm.DB
	hub           *realtime.Hub
	notifier      *recordingNotifier
	consultations *consultationUsecase
	messages      *consultationMessageUsecase
	doctors       DoctorProfileUsecase
	schedules     *medicationScheduleUsecase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewDB(t)
	log := testutil.Logger()
	hub := realtime.NewHub(log, 64)
	t.Cleanup(func() { _ = hub.Close() })
	notifier := &recordingNotifier{}

	consultationRepo := repository.NewConsultationRepository()
	doctorRepo := repository.NewDoctorProfileRepository()
	audit := service.NewAuditService(log, repository.NewAuditLogRepository())
	capacity := service.NewCapacityController(doctorRepo, log)

	consultations := NewConsultationUsecase(
		db, log, consultationRepo, repository.NewItemRepository(),
		capacity,
		service.NewQueueManager(repository.NewConsultationQueueRepository(), log),
		service.NewRatingAggregator(doctorRepo, log),
		audit, hub, notifier, nil, 30*time.Minute,
	).(*consultationUsecase)

	messages := NewConsultationMessageUsecase(
		db, log, consultationRepo, repository.NewConsultationMessageRepository(),
		consultations, hub, notifier,
	).(*consultationMessageUsecase)

	return &fixture{
		db:            db,
		hub:           hub,
		notifier:      notifier,
		consultations: consultations,
		messages:      messages,
		doctors:       NewDoctorProfileUsecase(db, log, repository.NewUserRepository(), doctorRepo, capacity, audit, nil),
		schedules: NewMedicationScheduleUsecase(
			db, log, consultationRepo, repository.NewMedicationScheduleRepository(), messages, audit,
		).(*medicationScheduleUsecase),
	}
}

// setNow pins the clock of every usecase in the fixture
func (f *fixture) setNow(now time.Time) {
	clock := func() time.Time { return now }
	f.consultations.now = clock
	f.messages.now = clock
	f.schedules.now = clock
}

func (f *fixture) request(t *testing.T, userID, branchID uuid.UUID, typ entity.ConsultationType) *dto.ConsultationResponse {
	t.Helper()
	resp, err := f.consultations.Request(context.Background(), userID, &dto.CreateConsultationRequest{
		Type:           string(typ),
		BranchID:       branchID,
		InitialMessage: "Is it safe to take ibuprofen with my blood pressure medication?",
	})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	return resp
}

func (f *fixture) accepted(t *testing.T, branchID uuid.UUID) (*entity.User, *entity.DoctorProfile, *dto.ConsultationResponse) {
	t.Helper()
	user := testutil.SeedCustomer(t, f.db)
	doctor := testutil.SeedDoctor(t, f.db, branchID, 3, true)
	c := f.request(t, user.ID, branchID, entity.ConsultationTypeGeneral)
	if _, err := f.consultations.Accept(context.Background(), c.ID, doctor.UserID); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	return user, doctor, c
}

func (f *fixture) status(t *testing.T, id uuid.UUID) entity.ConsultationStatus {
	t.Helper()
	var c entity.Consultation
	if err := f.db.Where("id = ?", id).First(&c).Error; err != nil {
		t.Fatalf("load consultation: %v", err)
	}
	return c.Status
}

func (f *fixture) queueLen(t *testing.T, branchID uuid.UUID) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&entity.ConsultationQueue{}).Where("branch_id = ?", branchID).Count(&n).Error; err != nil {
		t.Fatalf("count queue: %v", err)
	}
	return n
}
