package usecase

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"pharmacy-backend/internal/converter"
	"pharmacy-backend/internal/delivery/dto"
	"pharmacy-backend/internal/domain/entity"
	"pharmacy-backend/internal/domain/repository"
	"pharmacy-backend/internal/realtime"
	"pharmacy-backend/internal/service"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrConsultationNotFound = errors.New("consultation not found")
	ErrInvalidState         = errors.New("consultation is no longer available for this operation")
	ErrNotParticipant       = errors.New("you are not a participant of this consultation")
	ErrAlreadyRated         = errors.New("consultation has already been rated")
	ErrVersionConflict      = errors.New("consultation was modified concurrently")
)

const (
	consultationNoPrefix      = "CONS"
	maxConsultationNoAttempts = 3
	maxRateAttempts           = 3
	expireBatchSize           = 100

	participantCacheTTL     = 5 * time.Minute
	participantCacheCleanup = 10 * time.Minute

	DefaultExpiryWindow = 30 * time.Minute
)

// Notifier sends push notifications without blocking the caller
type Notifier interface {
	Notify(userIDs []uuid.UUID, title, body string, data map[string]string)
}

type ConsultationUsecase interface {
	Request(ctx context.Context, userID uuid.UUID, req *dto.CreateConsultationRequest) (*dto.ConsultationResponse, error)
	Accept(ctx context.Context, consultationID, doctorID uuid.UUID) (*dto.ConsultationResponse, error)
	Complete(ctx context.Context, consultationID, doctorID uuid.UUID, req *dto.CompleteConsultationRequest) (*dto.ConsultationResponse, error)
	Cancel(ctx context.Context, consultationID, actorID uuid.UUID) (*dto.ConsultationResponse, error)
	Rate(ctx context.Context, consultationID, userID uuid.UUID, req *dto.RateConsultationRequest) (*dto.ConsultationResponse, error)
	VerifyParticipant(ctx context.Context, consultationID, userID uuid.UUID) (bool, error)
	GetForUser(ctx context.Context, consultationID, userID uuid.UUID) (*dto.ConsultationResponse, error)
	GetForDoctor(ctx context.Context, consultationID, doctorID uuid.UUID) (*dto.ConsultationResponse, error)
	ListMine(ctx context.Context, userID uuid.UUID, query *dto.ConsultationListQuery) (*dto.ConsultationListResponse, error)
	ListDoctorActive(ctx context.Context, doctorID uuid.UUID) (*dto.ConsultationListResponse, error)
	ListBranchQueue(ctx context.Context, doctorID uuid.UUID) (*dto.QueueResponse, error)
	ExpireOverdue(ctx context.Context) (int, error)
}

type consultationUsecase struct {
	db               *gorm.DB
	log              *logrus.Logger
	consultationRepo repository.ConsultationRepository
	itemRepo         repository.ItemRepository
	capacity         *service.CapacityController
	queue            *service.QueueManager
	ratings          *service.RatingAggregator
	audit            service.AuditService
	bus              realtime.Bus
	notifier         Notifier
	mirror           CapacityMirror
	expiryWindow     time.Duration

	// positive participant checks only; cleared when a cancel drops the doctor
	participants *cache.Cache
	now          func() time.Time
}

func NewConsultationUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	consultationRepo repository.ConsultationRepository,
	itemRepo repository.ItemRepository,
	capacity *service.CapacityController,
	queue *service.QueueManager,
	ratings *service.RatingAggregator,
	audit service.AuditService,
	bus realtime.Bus,
	notifier Notifier,
	mirror CapacityMirror,
	expiryWindow time.Duration,
) ConsultationUsecase {
	if expiryWindow <= 0 {
		expiryWindow = DefaultExpiryWindow
	}
	return &consultationUsecase{
		db:               db,
		log:              log,
		consultationRepo: consultationRepo,
		itemRepo:         itemRepo,
		capacity:         capacity,
		queue:            queue,
		ratings:          ratings,
		audit:            audit,
		bus:              bus,
		notifier:         notifier,
		mirror:           mirror,
		expiryWindow:     expiryWindow,
		participants:     cache.New(participantCacheTTL, participantCacheCleanup),
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// Request creates a REQUESTED consultation and queues it for the branch.
func (u *consultationUsecase) Request(ctx context.Context, userID uuid.UUID, req *dto.CreateConsultationRequest) (*dto.ConsultationResponse, error) {
	if req.ItemID != nil {
		item, err := u.itemRepo.FindByID(u.db.WithContext(ctx), *req.ItemID)
		if err != nil {
			u.log.Warnf("Failed to find item %s: %+v", *req.ItemID, err)
			return nil, err
		}
		if item == nil {
			return nil, ErrItemNotFound
		}
	}

	now := u.now()
	typ := entity.ConsultationType(req.Type)

	consultation := &entity.Consultation{
		Type:               typ,
		Status:             entity.ConsultationStatusRequested,
		Priority:           typ.Priority(),
		UserID:             userID,
		BranchID:           req.BranchID,
		ItemID:             req.ItemID,
		UserInitialMessage: req.InitialMessage,
		ExpiresAt:          now.Add(u.expiryWindow),
		Version:            1,
	}

	var err error
	for attempt := 1; attempt <= maxConsultationNoAttempts; attempt++ {
		consultation.ConsultationNo = generateConsultationNo(now)

		err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := u.consultationRepo.Create(tx, consultation); err != nil {
				return err
			}
			if err := u.queue.Enqueue(tx, consultation, now); err != nil {
				return err
			}
			return u.audit.LogCreate(ctx, tx, &userID, entity.AuditActionConsultationRequest, "consultation", consultation.ID.String(), map[string]interface{}{
				"consultation_no": consultation.ConsultationNo,
				"type":            consultation.Type,
				"branch_id":       consultation.BranchID,
			})
		})
		if err == nil {
			break
		}
		if !isDuplicateKey(err) {
			u.log.Warnf("Failed to create consultation for user %s: %+v", userID, err)
			return nil, err
		}
		u.log.Warnf("Consultation number %s collided (attempt %d), regenerating", consultation.ConsultationNo, attempt)
	}
	if err != nil {
		return nil, err
	}

	u.reindexQueue(ctx, consultation.BranchID)

	u.log.Infof("Consultation requested: id=%s, no=%s, user=%s, branch=%s", consultation.ID, consultation.ConsultationNo, userID, consultation.BranchID)
	return converter.ConsultationToResponse(consultation, false), nil
}

// Accept assigns a REQUESTED consultation to the doctor.
//
// Flow (one transaction, consultation row locked before the doctor row):
// 1. Conditional status update requested -> assigned, only while not expired
// 2. Capacity admission as a single check-and-increment
// 3. Queue row removal
// A rejected admission rolls the status update back.
func (u *consultationUsecase) Accept(ctx context.Context, consultationID, doctorID uuid.UUID) (*dto.ConsultationResponse, error) {
	existing, err := u.consultationRepo.FindByID(u.db.WithContext(ctx), consultationID)
	if err != nil {
		u.log.Warnf("Failed to find consultation %s: %+v", consultationID, err)
		return nil, err
	}
	if existing == nil {
		return nil, ErrConsultationNotFound
	}
	if !existing.Status.CanTransition(entity.ConsultationStatusAssigned) {
		return nil, ErrInvalidState
	}

	now := u.now()
	var branchID uuid.UUID
	var dequeued bool

	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := u.consultationRepo.Assign(tx, consultationID, doctorID, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrInvalidState
		}

		if err := u.capacity.TryAdmit(tx, doctorID); err != nil {
			return err
		}

		branchID, dequeued, err = u.queue.Remove(tx, consultationID)
		if err != nil {
			return err
		}

		return u.audit.LogTransition(ctx, tx, &doctorID, entity.AuditActionConsultationAccept, "consultation", consultationID.String(),
			entity.ConsultationStatusRequested, entity.ConsultationStatusAssigned, map[string]interface{}{"doctor_id": doctorID})
	})
	if err != nil {
		if !errors.Is(err, ErrInvalidState) && !errors.Is(err, service.ErrCapacityExceeded) && !errors.Is(err, service.ErrDoctorNotFound) {
			u.log.Warnf("Failed to accept consultation %s by doctor %s: %+v", consultationID, doctorID, err)
		}
		return nil, err
	}

	if dequeued {
		u.reindexQueue(ctx, branchID)
	}
	capacityChanged(ctx, u.mirror, doctorID)

	consultation := u.reload(ctx, consultationID, existing)
	userView := converter.ConsultationToResponse(consultation, false)

	u.publish(ctx, consultationID, realtime.EventDoctorJoined, userView)
	u.notify([]uuid.UUID{consultation.UserID}, "Consultation accepted", "A pharmacist has joined your consultation", consultationID, "consultation_accepted")

	u.log.Infof("Consultation accepted: id=%s, doctor=%s", consultationID, doctorID)
	return converter.ConsultationToResponse(consultation, true), nil
}

// Complete retires an ASSIGNED/IN_PROGRESS consultation and frees the doctor's slot.
func (u *consultationUsecase) Complete(ctx context.Context, consultationID, doctorID uuid.UUID, req *dto.CompleteConsultationRequest) (*dto.ConsultationResponse, error) {
	existing, err := u.consultationRepo.FindByIDAndDoctor(u.db.WithContext(ctx), consultationID, doctorID)
	if err != nil {
		u.log.Warnf("Failed to find consultation %s: %+v", consultationID, err)
		return nil, err
	}
	if existing == nil {
		return nil, ErrConsultationNotFound
	}
	if !existing.Status.CanTransition(entity.ConsultationStatusCompleted) {
		return nil, ErrInvalidState
	}

	now := u.now()
	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := u.consultationRepo.Complete(tx, consultationID, doctorID, req.Summary, req.Notes, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrInvalidState
		}

		if err := u.capacity.Release(tx, doctorID); err != nil {
			return err
		}

		return u.audit.LogTransition(ctx, tx, &doctorID, entity.AuditActionConsultationComplete, "consultation", consultationID.String(),
			existing.Status, entity.ConsultationStatusCompleted, nil)
	})
	if err != nil {
		if !errors.Is(err, ErrInvalidState) {
			u.log.Warnf("Failed to complete consultation %s: %+v", consultationID, err)
		}
		return nil, err
	}
	capacityChanged(ctx, u.mirror, doctorID)

	consultation := u.reload(ctx, consultationID, existing)

	u.publish(ctx, consultationID, realtime.EventConsultationCompleted, converter.ConsultationToResponse(consultation, false))
	u.notify([]uuid.UUID{consultation.UserID}, "Consultation completed", "Your consultation has been completed. Please rate your pharmacist.", consultationID, "consultation_completed")

	u.log.Infof("Consultation completed: id=%s, doctor=%s", consultationID, doctorID)
	return converter.ConsultationToResponse(consultation, true), nil
}

// Cancel retires a non-terminal consultation on behalf of either participant.
// The doctor is detached and, if it was holding a slot, the slot is released.
func (u *consultationUsecase) Cancel(ctx context.Context, consultationID, actorID uuid.UUID) (*dto.ConsultationResponse, error) {
	existing, err := u.consultationRepo.FindByID(u.db.WithContext(ctx), consultationID)
	if err != nil {
		u.log.Warnf("Failed to find consultation %s: %+v", consultationID, err)
		return nil, err
	}
	if existing == nil {
		return nil, ErrConsultationNotFound
	}
	if !existing.IsParticipant(actorID) {
		return nil, ErrNotParticipant
	}
	if !existing.Status.CanTransition(entity.ConsultationStatusCancelled) {
		return nil, ErrInvalidState
	}

	cancelledBy := string(entity.SenderRoleUser)
	if existing.UserID != actorID {
		cancelledBy = string(entity.SenderRoleDoctor)
	}

	now := u.now()
	from := existing.Status
	var branchID uuid.UUID
	var dequeued bool

	err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Conditional on the status we read, so the doctor we release is the one holding the slot.
		rows, err := u.consultationRepo.Cancel(tx, consultationID, from, cancelledBy, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrInvalidState
		}

		if existing.DoctorID != nil && from.HoldsDoctor() {
			if err := u.capacity.Release(tx, *existing.DoctorID); err != nil {
				return err
			}
		}

		branchID, dequeued, err = u.queue.Remove(tx, consultationID)
		if err != nil {
			return err
		}

		return u.audit.LogTransition(ctx, tx, &actorID, entity.AuditActionConsultationCancel, "consultation", consultationID.String(),
			from, entity.ConsultationStatusCancelled, map[string]interface{}{"cancelled_by": cancelledBy})
	})
	if err != nil {
		if !errors.Is(err, ErrInvalidState) {
			u.log.Warnf("Failed to cancel consultation %s: %+v", consultationID, err)
		}
		return nil, err
	}

	if dequeued {
		u.reindexQueue(ctx, branchID)
	}
	if existing.DoctorID != nil {
		u.participants.Delete(participantKey(consultationID, *existing.DoctorID))
		if from.HoldsDoctor() {
			capacityChanged(ctx, u.mirror, *existing.DoctorID)
		}
	}

	consultation := u.reload(ctx, consultationID, existing)
	u.publish(ctx, consultationID, realtime.EventConsultationCancelled, converter.ConsultationToResponse(consultation, false))

	if cancelledBy == string(entity.SenderRoleDoctor) {
		u.notify([]uuid.UUID{consultation.UserID}, "Consultation cancelled", "Your pharmacist cancelled the consultation", consultationID, "consultation_cancelled")
	} else if existing.DoctorID != nil {
		u.notify([]uuid.UUID{*existing.DoctorID}, "Consultation cancelled", "The customer cancelled the consultation", consultationID, "consultation_cancelled")
	}

	u.log.Infof("Consultation cancelled: id=%s, by=%s, from=%s", consultationID, cancelledBy, from)
	return converter.ConsultationToResponse(consultation, cancelledBy == string(entity.SenderRoleDoctor)), nil
}

// Rate records the user's single rating of a COMPLETED consultation and folds
// it into the doctor's running average. The consultation row is updated with a
// compare-and-swap on version; a lost race is retried a bounded number of times.
func (u *consultationUsecase) Rate(ctx context.Context, consultationID, userID uuid.UUID, req *dto.RateConsultationRequest) (*dto.ConsultationResponse, error) {
	if req.Rating < service.MinRating || req.Rating > service.MaxRating {
		return nil, service.ErrInvalidRating
	}

	for attempt := 1; attempt <= maxRateAttempts; attempt++ {
		c, err := u.consultationRepo.FindByID(u.db.WithContext(ctx), consultationID)
		if err != nil {
			u.log.Warnf("Failed to find consultation %s: %+v", consultationID, err)
			return nil, err
		}
		if c == nil {
			return nil, ErrConsultationNotFound
		}
		if c.UserID != userID {
			return nil, ErrNotParticipant
		}
		if c.Status != entity.ConsultationStatusCompleted || c.DoctorID == nil {
			return nil, ErrInvalidState
		}
		if c.Rating != nil {
			return nil, ErrAlreadyRated
		}

		doctorID := *c.DoctorID
		err = u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			rows, err := u.consultationRepo.UpdateIfVersion(tx, consultationID, c.Version, map[string]interface{}{
				"rating":       req.Rating,
				"rating_notes": req.Notes,
			})
			if err != nil {
				return err
			}
			if rows == 0 {
				return ErrVersionConflict
			}

			if err := u.ratings.Apply(tx, doctorID, req.Rating); err != nil {
				return err
			}

			return u.audit.LogTransition(ctx, tx, &userID, entity.AuditActionConsultationRate, "consultation", consultationID.String(),
				nil, req.Rating, map[string]interface{}{"doctor_id": doctorID})
		})
		if errors.Is(err, ErrVersionConflict) {
			u.log.Debugf("Rating for consultation %s lost a version race (attempt %d)", consultationID, attempt)
			continue
		}
		if err != nil {
			u.log.Warnf("Failed to rate consultation %s: %+v", consultationID, err)
			return nil, err
		}

		u.log.Infof("Consultation rated: id=%s, doctor=%s, rating=%d", consultationID, doctorID, req.Rating)
		return converter.ConsultationToResponse(u.reload(ctx, consultationID, c), false), nil
	}

	return nil, ErrVersionConflict
}

// VerifyParticipant reports whether userID is the consultation's user or assigned doctor.
func (u *consultationUsecase) VerifyParticipant(ctx context.Context, consultationID, userID uuid.UUID) (bool, error) {
	key := participantKey(consultationID, userID)
	if _, ok := u.participants.Get(key); ok {
		return true, nil
	}

	consultation, err := u.consultationRepo.FindByID(u.db.WithContext(ctx), consultationID)
	if err != nil {
		u.log.Warnf("Failed to find consultation %s: %+v", consultationID, err)
		return false, err
	}
	if consultation == nil {
		return false, ErrConsultationNotFound
	}

	ok := consultation.IsParticipant(userID)
	if ok {
		u.participants.SetDefault(key, true)
	}
	return ok, nil
}

// GetForUser returns the customer's view of their consultation
func (u *consultationUsecase) GetForUser(ctx context.Context, consultationID, userID uuid.UUID) (*dto.ConsultationResponse, error) {
	consultation, err := u.load(ctx, consultationID)
	if err != nil {
		return nil, err
	}
	if consultation.UserID != userID {
		return nil, ErrNotParticipant
	}
	return converter.ConsultationToResponse(consultation, false), nil
}

// GetForDoctor returns the doctor's view. Unassigned doctors may preview
// REQUESTED consultations of their own branch before accepting.
func (u *consultationUsecase) GetForDoctor(ctx context.Context, consultationID, doctorID uuid.UUID) (*dto.ConsultationResponse, error) {
	consultation, err := u.load(ctx, consultationID)
	if err != nil {
		return nil, err
	}
	if consultation.DoctorID != nil && *consultation.DoctorID == doctorID {
		return converter.ConsultationToResponse(consultation, true), nil
	}
	if consultation.Status != entity.ConsultationStatusRequested {
		return nil, ErrNotParticipant
	}

	profile, err := u.capacity.Snapshot(u.db.WithContext(ctx), doctorID)
	if err != nil {
		return nil, err
	}
	if profile.BranchID != consultation.BranchID {
		return nil, ErrNotParticipant
	}
	return converter.ConsultationToResponse(consultation, false), nil
}

// ListMine returns the customer's consultations, newest first
func (u *consultationUsecase) ListMine(ctx context.Context, userID uuid.UUID, query *dto.ConsultationListQuery) (*dto.ConsultationListResponse, error) {
	filter := &entity.ConsultationFilter{}
	if query != nil {
		for _, s := range query.Statuses {
			filter.Statuses = append(filter.Statuses, entity.ConsultationStatus(s))
		}
		filter.Limit = query.Limit
		filter.Offset = query.Offset
	}

	consultations, err := u.consultationRepo.FindByUserID(u.db.WithContext(ctx), userID, filter)
	if err != nil {
		u.log.Warnf("Failed to find consultations for user %s: %+v", userID, err)
		return nil, err
	}

	now := u.now()
	for i := range consultations {
		if consultations[i].IsExpiredAt(now) {
			if expired, _ := u.expireOne(ctx, &consultations[i], now); expired {
				consultations[i].Status = entity.ConsultationStatusExpired
			}
		}
	}

	return &dto.ConsultationListResponse{
		Consultations: converter.ConsultationsToResponses(consultations, false),
		Total:         len(consultations),
	}, nil
}

// ListDoctorActive returns the consultations currently holding the doctor's slots
func (u *consultationUsecase) ListDoctorActive(ctx context.Context, doctorID uuid.UUID) (*dto.ConsultationListResponse, error) {
	consultations, err := u.consultationRepo.FindByDoctorID(u.db.WithContext(ctx), doctorID, &entity.ConsultationFilter{
		Statuses: entity.ActiveConsultationStatuses(),
	})
	if err != nil {
		u.log.Warnf("Failed to find active consultations for doctor %s: %+v", doctorID, err)
		return nil, err
	}

	return &dto.ConsultationListResponse{
		Consultations: converter.ConsultationsToResponses(consultations, true),
		Total:         len(consultations),
	}, nil
}

// ListBranchQueue returns the pending queue of the doctor's branch in dequeue order.
// Overdue entries are expired on the way and left out.
func (u *consultationUsecase) ListBranchQueue(ctx context.Context, doctorID uuid.UUID) (*dto.QueueResponse, error) {
	profile, err := u.capacity.Snapshot(u.db.WithContext(ctx), doctorID)
	if err != nil {
		return nil, err
	}

	entries, err := u.queue.List(u.db.WithContext(ctx), profile.BranchID)
	if err != nil {
		u.log.Warnf("Failed to list queue for branch %s: %+v", profile.BranchID, err)
		return nil, err
	}

	now := u.now()
	pending := make([]entity.ConsultationQueue, 0, len(entries))
	for i := range entries {
		if entries[i].Consultation.IsExpiredAt(now) {
			_, _ = u.expireOne(ctx, &entries[i].Consultation, now)
			continue
		}
		pending = append(pending, entries[i])
	}
	for i := range pending {
		pending[i].Position = i + 1
	}

	return &dto.QueueResponse{
		BranchID: profile.BranchID,
		Entries:  converter.QueueEntriesToResponses(pending),
		Total:    len(pending),
	}, nil
}

// ExpireOverdue retires every REQUESTED consultation past its deadline.
// Idempotent and safe to run alongside accepts: both transitions are
// conditional on status = requested, so exactly one of them wins.
func (u *consultationUsecase) ExpireOverdue(ctx context.Context) (int, error) {
	now := u.now()
	total := 0

	for {
		overdue, err := u.consultationRepo.FindExpiredRequested(u.db.WithContext(ctx), now, expireBatchSize)
		if err != nil {
			u.log.Warnf("Failed to find overdue consultations: %+v", err)
			return total, err
		}

		for i := range overdue {
			expired, err := u.expireOne(ctx, &overdue[i], now)
			if err != nil {
				return total, err
			}
			if expired {
				total++
			}
		}

		if len(overdue) < expireBatchSize {
			return total, nil
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}
	}
}

func (u *consultationUsecase) expireOne(ctx context.Context, c *entity.Consultation, now time.Time) (bool, error) {
	if !c.Status.CanTransition(entity.ConsultationStatusExpired) {
		return false, nil
	}

	expired := false
	var branchID uuid.UUID
	var dequeued bool

	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := u.consultationRepo.Expire(tx, c.ID, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			// accepted or cancelled first
			return nil
		}
		expired = true

		branchID, dequeued, err = u.queue.Remove(tx, c.ID)
		if err != nil {
			return err
		}

		return u.audit.LogTransition(ctx, tx, nil, entity.AuditActionConsultationExpire, "consultation", c.ID.String(),
			entity.ConsultationStatusRequested, entity.ConsultationStatusExpired, nil)
	})
	if err != nil {
		u.log.Warnf("Failed to expire consultation %s: %+v", c.ID, err)
		return false, err
	}
	if !expired {
		return false, nil
	}

	if dequeued {
		u.reindexQueue(ctx, branchID)
	}

	c.Status = entity.ConsultationStatusExpired
	u.publish(ctx, c.ID, realtime.EventConsultationExpired, converter.ConsultationToResponse(c, false))
	u.notify([]uuid.UUID{c.UserID}, "Consultation expired", "No pharmacist was available in time. Please try again.", c.ID, "consultation_expired")

	u.log.Infof("Consultation expired: id=%s", c.ID)
	return true, nil
}

// load finds a consultation and applies the lazy expiry check
func (u *consultationUsecase) load(ctx context.Context, consultationID uuid.UUID) (*entity.Consultation, error) {
	consultation, err := u.consultationRepo.FindByID(u.db.WithContext(ctx), consultationID)
	if err != nil {
		u.log.Warnf("Failed to find consultation %s: %+v", consultationID, err)
		return nil, err
	}
	if consultation == nil {
		return nil, ErrConsultationNotFound
	}

	if consultation.IsExpiredAt(u.now()) {
		if _, err := u.expireOne(ctx, consultation, u.now()); err != nil {
			return nil, err
		}
		return u.reload(ctx, consultationID, consultation), nil
	}
	return consultation, nil
}

// reload re-reads a consultation after a committed change, falling back to the
// stale copy if the read fails
func (u *consultationUsecase) reload(ctx context.Context, consultationID uuid.UUID, fallback *entity.Consultation) *entity.Consultation {
	consultation, err := u.consultationRepo.FindByID(u.db.WithContext(ctx), consultationID)
	if err != nil || consultation == nil {
		u.log.Warnf("Failed to reload consultation %s: %+v", consultationID, err)
		return fallback
	}
	return consultation
}

func (u *consultationUsecase) reindexQueue(ctx context.Context, branchID uuid.UUID) {
	if err := u.queue.Reindex(u.db.WithContext(context.WithoutCancel(ctx)), branchID); err != nil {
		u.log.Warnf("Failed to reindex queue for branch %s: %+v", branchID, err)
	}
}

func (u *consultationUsecase) publish(ctx context.Context, consultationID uuid.UUID, kind realtime.EventKind, data any) {
	publishEvent(ctx, u.bus, u.log, consultationID, kind, data)
}

func (u *consultationUsecase) notify(userIDs []uuid.UUID, title, body string, consultationID uuid.UUID, kind string) {
	if u.notifier == nil {
		return
	}
	u.notifier.Notify(userIDs, title, body, map[string]string{
		"type":            kind,
		"consultation_id": consultationID.String(),
	})
}

// publishEvent fans an event out after a committed change. Failures are logged only.
func publishEvent(ctx context.Context, bus realtime.Bus, log *logrus.Logger, consultationID uuid.UUID, kind realtime.EventKind, data any) {
	if bus == nil {
		return
	}
	topic := realtime.ConsultationTopic(consultationID)
	if err := bus.Publish(context.WithoutCancel(ctx), topic, realtime.NewEvent(kind, data)); err != nil {
		log.Warnf("Failed to publish %s on %s: %+v", kind, topic, err)
	}
}

func participantKey(consultationID, userID uuid.UUID) string {
	return consultationID.String() + ":" + userID.String()
}

// generateConsultationNo generates a consultation number: CONS<unix millis><4 digits>
func generateConsultationNo(now time.Time) string {
	var b [2]byte
	_, _ = rand.Read(b[:])
	suffix := binary.BigEndian.Uint16(b[:]) % 10000
	return fmt.Sprintf("%s%d%04d", consultationNoPrefix, now.UnixMilli(), suffix)
}
