package usecase

import (
	"context"
	"errors"

	"pharmacy-backend/internal/converter"
	"pharmacy-backend/internal/delivery/dto"
	"pharmacy-backend/internal/domain/entity"
	"pharmacy-backend/internal/domain/repository"
	"pharmacy-backend/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrDoctorUserNotFound  = errors.New("user not found")
	ErrDoctorUserNotDoctor = errors.New("user does not have the doctor role")
	ErrDoctorProfileExists = errors.New("doctor profile already exists")
	ErrDoctorSTRExists     = errors.New("STR number already exists")
)

const (
	BranchCapacitySourceCache    = "cache"
	BranchCapacitySourceDatabase = "database"
)

// CapacityMirror keeps a read copy of doctors' free slots outside the database
type CapacityMirror interface {
	CapacityChanged(ctx context.Context, doctorID uuid.UUID)
	BranchFreeSlots(ctx context.Context, branchID uuid.UUID) (map[uuid.UUID]int, error)
}

// capacityChanged runs after commit; a nil mirror is allowed
func capacityChanged(ctx context.Context, mirror CapacityMirror, doctorID uuid.UUID) {
	if mirror != nil {
		mirror.CapacityChanged(ctx, doctorID)
	}
}

type DoctorProfileUsecase interface {
	RegisterDoctor(ctx context.Context, adminID uuid.UUID, req *dto.RegisterDoctorRequest) (*dto.DoctorCapacityResponse, error)
	SetAvailability(ctx context.Context, doctorID uuid.UUID, available bool) (*dto.DoctorCapacityResponse, error)
	GetCapacity(ctx context.Context, doctorID uuid.UUID) (*dto.DoctorCapacityResponse, error)
	GetBranchCapacity(ctx context.Context, branchID uuid.UUID) (*dto.BranchCapacityResponse, error)
}

type doctorProfileUsecase struct {
	db                *gorm.DB
	log               *logrus.Logger
	userRepo          repository.UserRepository
	doctorProfileRepo repository.DoctorProfileRepository
	capacity          *service.CapacityController
	auditService      service.AuditService
	mirror            CapacityMirror
}

func NewDoctorProfileUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	userRepo repository.UserRepository,
	doctorProfileRepo repository.DoctorProfileRepository,
	capacity *service.CapacityController,
	auditService service.AuditService,
	mirror CapacityMirror,
) DoctorProfileUsecase {
	return &doctorProfileUsecase{
		db:                db,
		log:               log,
		userRepo:          userRepo,
		doctorProfileRepo: doctorProfileRepo,
		capacity:          capacity,
		auditService:      auditService,
		mirror:            mirror,
	}
}

// RegisterDoctor attaches a capacity record to an existing doctor account.
// New doctors start unavailable.
func (u *doctorProfileUsecase) RegisterDoctor(ctx context.Context, adminID uuid.UUID, req *dto.RegisterDoctorRequest) (*dto.DoctorCapacityResponse, error) {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	user, err := u.userRepo.FindByID(tx, req.UserID)
	if err != nil {
		u.log.Warnf("Failed to find user: %+v", err)
		return nil, err
	}
	if user == nil {
		return nil, ErrDoctorUserNotFound
	}
	if user.RoleID != entity.RoleIDDoctor {
		return nil, ErrDoctorUserNotDoctor
	}

	existing, err := u.doctorProfileRepo.FindByUserID(tx, req.UserID)
	if err != nil {
		u.log.Warnf("Failed to find doctor profile: %+v", err)
		return nil, err
	}
	if existing != nil {
		return nil, ErrDoctorProfileExists
	}

	maxConcurrent := req.MaxConcurrentConsultations
	if maxConcurrent <= 0 {
		maxConcurrent = entity.DefaultMaxConcurrentConsultations
	}

	profile := &entity.DoctorProfile{
		UserID:                     req.UserID,
		BranchID:                   req.BranchID,
		STRNumber:                  req.STRNumber,
		Specialization:             req.Specialization,
		Biography:                  req.Biography,
		MaxConcurrentConsultations: maxConcurrent,
	}
	if err := u.doctorProfileRepo.Create(tx, profile); err != nil {
		if isDuplicateKey(err) {
			return nil, ErrDoctorSTRExists
		}
		u.log.Warnf("Failed to create doctor profile: %+v", err)
		return nil, err
	}

	if err := u.auditService.LogCreate(ctx, tx, &adminID, entity.AuditActionDoctorRegister, "doctor_profile", profile.UserID.String(), converter.DoctorCapacityToResponse(profile)); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	u.log.Infof("Doctor registered: user=%s, branch=%s, max=%d", profile.UserID, profile.BranchID, maxConcurrent)
	capacityChanged(ctx, u.mirror, profile.UserID)
	return converter.DoctorCapacityToResponse(profile), nil
}

// SetAvailability toggles whether the doctor may be admitted new consultations.
// Consultations already held are unaffected.
func (u *doctorProfileUsecase) SetAvailability(ctx context.Context, doctorID uuid.UUID, available bool) (*dto.DoctorCapacityResponse, error) {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	profile, err := u.doctorProfileRepo.FindByUserID(tx, doctorID)
	if err != nil {
		u.log.Warnf("Failed to find doctor profile: %+v", err)
		return nil, err
	}
	if profile == nil {
		return nil, ErrDoctorNotFound
	}

	if _, err := u.doctorProfileRepo.SetAvailability(tx, doctorID, available); err != nil {
		u.log.Warnf("Failed to set availability for doctor %s: %+v", doctorID, err)
		return nil, err
	}

	if err := u.auditService.LogTransition(ctx, tx, &doctorID, entity.AuditActionDoctorAvailability, "doctor_profile", doctorID.String(),
		profile.AvailableForConsultation, available, nil); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	u.log.Infof("Doctor availability changed: doctor=%s, available=%t", doctorID, available)
	capacityChanged(ctx, u.mirror, doctorID)
	return u.GetCapacity(ctx, doctorID)
}

func (u *doctorProfileUsecase) GetCapacity(ctx context.Context, doctorID uuid.UUID) (*dto.DoctorCapacityResponse, error) {
	profile, err := u.capacity.Snapshot(u.db.WithContext(ctx), doctorID)
	if err != nil {
		if errors.Is(err, service.ErrDoctorNotFound) {
			return nil, ErrDoctorNotFound
		}
		u.log.Warnf("Failed to find doctor profile: %+v", err)
		return nil, err
	}
	return converter.DoctorCapacityToResponse(profile), nil
}

// GetBranchCapacity prefers the Redis mirror and falls back to the database
// when the mirror is absent, unreachable or has no entry for the branch.
func (u *doctorProfileUsecase) GetBranchCapacity(ctx context.Context, branchID uuid.UUID) (*dto.BranchCapacityResponse, error) {
	if u.mirror != nil {
		slots, err := u.mirror.BranchFreeSlots(ctx, branchID)
		if err != nil {
			u.log.Warnf("Capacity mirror unavailable for branch %s, reading database: %+v", branchID, err)
		} else if len(slots) > 0 {
			return converter.BranchCapacityToResponse(branchID, slots, BranchCapacitySourceCache), nil
		}
	}

	profiles, err := u.doctorProfileRepo.FindByBranch(u.db.WithContext(ctx), branchID)
	if err != nil {
		u.log.Warnf("Failed to find doctors for branch %s: %+v", branchID, err)
		return nil, err
	}
	slots := make(map[uuid.UUID]int, len(profiles))
	for i := range profiles {
		slots[profiles[i].UserID] = profiles[i].FreeSlots()
	}
	return converter.BranchCapacityToResponse(branchID, slots, BranchCapacitySourceDatabase), nil
}
