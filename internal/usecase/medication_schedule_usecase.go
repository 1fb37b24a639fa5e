package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pharmacy-backend/internal/converter"
	"pharmacy-backend/internal/delivery/dto"
	"pharmacy-backend/internal/domain/entity"
	"pharmacy-backend/internal/domain/repository"
	"pharmacy-backend/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrScheduleNotFound = errors.New("medication schedule not found")
	ErrScheduleInactive = errors.New("medication schedule is not active on that day")
	ErrInvalidDateRange = errors.New("end date must not be before start date")
)

const dateLayout = "2006-01-02"

type MedicationScheduleUsecase interface {
	Create(ctx context.Context, consultationID, doctorID uuid.UUID, req *dto.CreateMedicationScheduleRequest) (*dto.MedicationScheduleResponse, error)
	ListMine(ctx context.Context, userID uuid.UUID) (*dto.MedicationScheduleListResponse, error)
	MarkTaken(ctx context.Context, scheduleID, userID uuid.UUID, req *dto.MarkTakenRequest) (*dto.AdherenceLogResponse, error)
}

type medicationScheduleUsecase struct {
	db               *gorm.DB
	log              *logrus.Logger
	consultationRepo repository.ConsultationRepository
	scheduleRepo     repository.MedicationScheduleRepository
	messages         ConsultationMessageUsecase
	auditService     service.AuditService
	now              func() time.Time
}

func NewMedicationScheduleUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	consultationRepo repository.ConsultationRepository,
	scheduleRepo repository.MedicationScheduleRepository,
	messages ConsultationMessageUsecase,
	auditService service.AuditService,
) MedicationScheduleUsecase {
	return &medicationScheduleUsecase{
		db:               db,
		log:              log,
		consultationRepo: consultationRepo,
		scheduleRepo:     scheduleRepo,
		messages:         messages,
		auditService:     auditService,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// Create prescribes a schedule from a live consultation and posts a
// medication_link message pointing at it.
func (u *medicationScheduleUsecase) Create(ctx context.Context, consultationID, doctorID uuid.UUID, req *dto.CreateMedicationScheduleRequest) (*dto.MedicationScheduleResponse, error) {
	startDate, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		return nil, err
	}
	var endDate *time.Time
	if req.EndDate != "" {
		end, err := time.Parse(dateLayout, req.EndDate)
		if err != nil {
			return nil, err
		}
		if end.Before(startDate) {
			return nil, ErrInvalidDateRange
		}
		endDate = &end
	}

	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	consultation, err := u.consultationRepo.FindByIDAndDoctor(tx, consultationID, doctorID)
	if err != nil {
		u.log.Warnf("Failed to find consultation %s: %+v", consultationID, err)
		return nil, err
	}
	if consultation == nil {
		return nil, ErrConsultationNotFound
	}
	if consultation.IsTerminal() {
		return nil, ErrInvalidState
	}

	schedule := &entity.MedicationSchedule{
		ConsultationID: consultationID,
		UserID:         consultation.UserID,
		PrescribedBy:   doctorID,
		MedicineName:   req.MedicineName,
		Dosage:         req.Dosage,
		TimesOfDay:     datatypes.JSONSlice[string](req.TimesOfDay),
		StartDate:      startDate,
		EndDate:        endDate,
		Instructions:   req.Instructions,
		IsActive:       true,
	}
	if err := u.scheduleRepo.Create(tx, schedule); err != nil {
		u.log.Warnf("Failed to create medication schedule: %+v", err)
		return nil, err
	}

	if err := u.auditService.LogCreate(ctx, tx, &doctorID, entity.AuditActionMedicationSchedule, "medication_schedule", schedule.ID.String(), map[string]interface{}{
		"consultation_id": consultationID,
		"medicine_name":   schedule.MedicineName,
	}); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	metadata, _ := json.Marshal(map[string]interface{}{
		"schedule_id":   schedule.ID,
		"medicine_name": schedule.MedicineName,
		"dosage":        schedule.Dosage,
	})
	_, err = u.messages.Send(ctx, consultationID, doctorID, entity.SenderRoleDoctor, &dto.SendMessageRequest{
		Type:     string(entity.MessageTypeMedicationLink),
		Content:  fmt.Sprintf("%s %s", schedule.MedicineName, schedule.Dosage),
		Metadata: metadata,
	})
	if err != nil {
		// The schedule stands even if the consultation closed in between.
		u.log.Warnf("Failed to post medication link for schedule %s: %+v", schedule.ID, err)
	}

	u.log.Infof("Medication schedule created: id=%s, consultation=%s", schedule.ID, consultationID)
	return converter.MedicationScheduleToResponse(schedule, 0, u.now()), nil
}

// ListMine returns the user's schedules with adherence counts
func (u *medicationScheduleUsecase) ListMine(ctx context.Context, userID uuid.UUID) (*dto.MedicationScheduleListResponse, error) {
	schedules, err := u.scheduleRepo.FindByUserID(u.db.WithContext(ctx), userID)
	if err != nil {
		u.log.Warnf("Failed to find medication schedules for user %s: %+v", userID, err)
		return nil, err
	}

	today := u.now()
	responses := make([]dto.MedicationScheduleResponse, len(schedules))
	for i := range schedules {
		taken, err := u.scheduleRepo.CountAdherenceLogs(u.db.WithContext(ctx), schedules[i].ID)
		if err != nil {
			u.log.Warnf("Failed to count adherence logs for schedule %s: %+v", schedules[i].ID, err)
			return nil, err
		}
		responses[i] = *converter.MedicationScheduleToResponse(&schedules[i], taken, today)
	}

	return &dto.MedicationScheduleListResponse{
		Schedules: responses,
		Total:     len(responses),
	}, nil
}

// MarkTaken records one dose against the user's schedule
func (u *medicationScheduleUsecase) MarkTaken(ctx context.Context, scheduleID, userID uuid.UUID, req *dto.MarkTakenRequest) (*dto.AdherenceLogResponse, error) {
	schedule, err := u.scheduleRepo.FindByID(u.db.WithContext(ctx), scheduleID)
	if err != nil {
		u.log.Warnf("Failed to find medication schedule %s: %+v", scheduleID, err)
		return nil, err
	}
	if schedule == nil || schedule.UserID != userID {
		return nil, ErrScheduleNotFound
	}

	takenAt := u.now()
	if req != nil && req.TakenAt != nil {
		takenAt = req.TakenAt.UTC()
	}
	if !schedule.IsActiveOn(takenAt) {
		return nil, ErrScheduleInactive
	}

	entry := &entity.AdherenceLog{
		ScheduleID: scheduleID,
		UserID:     userID,
		TakenAt:    takenAt,
	}
	if req != nil {
		entry.Notes = req.Notes
	}
	if err := u.scheduleRepo.CreateAdherenceLog(u.db.WithContext(ctx), entry); err != nil {
		u.log.Warnf("Failed to create adherence log for schedule %s: %+v", scheduleID, err)
		return nil, err
	}

	return converter.AdherenceLogToResponse(entry), nil
}
