package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pharmacy-backend/internal/converter"
	"pharmacy-backend/internal/delivery/dto"
	"pharmacy-backend/internal/domain/entity"
	"pharmacy-backend/internal/domain/repository"
	"pharmacy-backend/internal/service"
	"pharmacy-backend/pkg/jwt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrUserNotFound       = errors.New("user not found")
	ErrRoleNotFound       = errors.New("role not found")
)

const (
	tokenTypeBearer  = "Bearer"
	tokenValidMarker = "valid"
	revokeScanCount  = 100
)

type AuthUsecase interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error)
	CreateStaffAccount(ctx context.Context, adminID uuid.UUID, req *dto.CreateStaffRequest) (*dto.UserResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Logout(ctx context.Context, userID uuid.UUID, tokenID string) error
	LogoutAll(ctx context.Context, userID uuid.UUID) (int, error)
	GetCurrentUser(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error)
}

type authUsecase struct {
	db           *gorm.DB
	log          *logrus.Logger
	userRepo     repository.UserRepository
	roleRepo     repository.RoleRepository
	auditService service.AuditService
	jwtService   *jwt.JWTService
	redisClient  *redis.Client
}

func NewAuthUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	auditService service.AuditService,
	jwtService *jwt.JWTService,
	redisClient *redis.Client,
) AuthUsecase {
	return &authUsecase{
		db:           db,
		log:          log,
		userRepo:     userRepo,
		roleRepo:     roleRepo,
		auditService: auditService,
		jwtService:   jwtService,
		redisClient:  redisClient,
	}
}

// Register opens a customer account
func (u *authUsecase) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	user, err := u.createUser(u.db.WithContext(ctx), req.Email, req.Password, req.FullName, entity.RoleIDCustomer)
	if err != nil {
		return nil, err
	}
	return converter.UserToResponse(user, entity.RoleCustomer), nil
}

// CreateStaffAccount opens a doctor or admin account on behalf of an admin
func (u *authUsecase) CreateStaffAccount(ctx context.Context, adminID uuid.UUID, req *dto.CreateStaffRequest) (*dto.UserResponse, error) {
	tx := u.db.WithContext(ctx).Begin()
	defer tx.Rollback()

	role, err := u.roleRepo.FindByName(tx, req.Role)
	if err != nil {
		u.log.Warnf("Failed to find role: %+v", err)
		return nil, err
	}
	if role == nil {
		return nil, ErrRoleNotFound
	}

	user, err := u.createUser(tx, req.Email, req.Password, req.FullName, role.ID)
	if err != nil {
		return nil, err
	}

	if err := u.auditService.LogCreate(ctx, tx, &adminID, entity.AuditActionUserCreate, "user", user.ID.String(), map[string]interface{}{
		"email": user.Email,
		"role":  role.RoleName,
	}); err != nil {
		u.log.Warnf("Failed to create audit log: %+v", err)
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		u.log.Warnf("Failed commit transaction: %+v", err)
		return nil, err
	}

	return converter.UserToResponse(user, role.RoleName), nil
}

func (u *authUsecase) createUser(db *gorm.DB, email, password, fullName string, roleID int) (*entity.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		u.log.Warnf("Failed to hash password: %+v", err)
		return nil, err
	}

	user := &entity.User{
		RoleID:       roleID,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: string(hashedPassword),
		FullName:     strings.TrimSpace(fullName),
		IsActive:     true,
	}

	if err := u.userRepo.Create(db, user); err != nil {
		if isDuplicateKey(err) {
			return nil, ErrEmailAlreadyExists
		}
		u.log.Warnf("Failed to create user: %+v", err)
		return nil, err
	}
	return user, nil
}

// Login checks the password and whitelists a fresh access token in Redis
func (u *authUsecase) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	user, err := u.userRepo.FindByEmail(u.db.WithContext(ctx), req.Email)
	if err != nil {
		u.log.Warnf("Failed to find user by email: %+v", err)
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}

	accessToken, tokenID, err := u.jwtService.GenerateAccessToken(user.ID, user.Email, user.RoleID)
	if err != nil {
		u.log.Warnf("Failed to generate access token: %+v", err)
		return nil, err
	}

	if err := u.redisClient.Set(ctx, jwt.AccessTokenKey(user.ID, tokenID), tokenValidMarker, u.jwtService.GetAccessExpiry()).Err(); err != nil {
		u.log.Warnf("Failed to store access token in Redis: %+v", err)
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken: accessToken,
		TokenType:   tokenTypeBearer,
		ExpiresIn:   int64(u.jwtService.GetAccessExpiry().Seconds()),
	}, nil
}

// Logout revokes the token the request was made with
func (u *authUsecase) Logout(ctx context.Context, userID uuid.UUID, tokenID string) error {
	if err := u.redisClient.Del(ctx, jwt.AccessTokenKey(userID, tokenID)).Err(); err != nil {
		u.log.Warnf("Failed to delete access token: %+v", err)
		return err
	}
	return nil
}

// LogoutAll revokes every live token of the user and returns how many were removed
func (u *authUsecase) LogoutAll(ctx context.Context, userID uuid.UUID) (int, error) {
	pattern := fmt.Sprintf("access_token:%s:*", userID.String())

	revoked := 0
	iter := u.redisClient.Scan(ctx, 0, pattern, revokeScanCount).Iterator()
	batch := make([]string, 0, revokeScanCount)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == revokeScanCount {
			n, err := u.redisClient.Del(ctx, batch...).Result()
			if err != nil {
				u.log.Warnf("Failed to delete access tokens: %+v", err)
				return revoked, err
			}
			revoked += int(n)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		u.log.Warnf("Failed to scan access tokens: %+v", err)
		return revoked, err
	}
	if len(batch) > 0 {
		n, err := u.redisClient.Del(ctx, batch...).Result()
		if err != nil {
			u.log.Warnf("Failed to delete access tokens: %+v", err)
			return revoked, err
		}
		revoked += int(n)
	}

	return revoked, nil
}

func (u *authUsecase) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	user, err := u.userRepo.FindByID(u.db.WithContext(ctx), userID)
	if err != nil {
		u.log.Warnf("Failed to find user by ID: %+v", err)
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return converter.UserToResponse(user, ""), nil
}
