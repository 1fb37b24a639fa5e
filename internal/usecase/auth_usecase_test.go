package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"pharmacy-backend/config"
	"pharmacy-backend/internal/delivery/dto"
	"pharmacy-backend/internal/domain/entity"
	"pharmacy-backend/internal/repository"
	"pharmacy-backend/internal/service"
	"pharmacy-backend/internal/testutil"
	"pharmacy-backend/pkg/jwt"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type authFixture struct {
	db   *gorm.DB
	mr   *miniredis.Miniredis
	jwt  *jwt.JWTService
	auth AuthUsecase
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db := testutil.NewDB(t)
	log := testutil.Logger()
	jwtService := jwt.NewJWTService(config.JWTConfig{Secret: "test-secret", AccessExpiry: 15 * time.Minute})
	auth := NewAuthUsecase(db, log, repository.NewUserRepository(), repository.NewRoleRepository(),
		service.NewAuditService(log, repository.NewAuditLogRepository()), jwtService, rdb)
	return &authFixture{db: db, mr: mr, jwt: jwtService, auth: auth}
}

func (f *authFixture) login(t *testing.T, email, password string) *jwt.Claims {
	t.Helper()
	tokens, err := f.auth.Login(context.Background(), &dto.LoginRequest{Email: email, Password: password})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims, err := f.jwt.ValidateToken(tokens.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	return claims
}

func TestRegisterAndLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, err := f.auth.Register(ctx, &dto.RegisterRequest{Email: "Sari@Example.com", Password: "s3cret-pass", FullName: "Sari"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Role != entity.RoleCustomer || user.Email != "sari@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}

	if _, err := f.auth.Register(ctx, &dto.RegisterRequest{Email: "sari@example.com", Password: "another-pass", FullName: "Sari 2"}); !errors.Is(err, ErrEmailAlreadyExists) {
		t.Fatalf("duplicate email: want ErrEmailAlreadyExists, got %v", err)
	}

	claims := f.login(t, "SARI@example.com", "s3cret-pass")
	if claims.UserID != user.ID || claims.RoleID != entity.RoleIDCustomer {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !f.mr.Exists(jwt.AccessTokenKey(claims.UserID, claims.TokenID)) {
		t.Fatalf("access token not whitelisted")
	}

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "sari@example.com", "wrong-pass"},
		{"unknown email", "nobody@example.com", "s3cret-pass"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.auth.Login(ctx, &dto.LoginRequest{Email: tt.email, Password: tt.password}); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("want ErrInvalidCredentials, got %v", err)
			}
		})
	}

	me, err := f.auth.GetCurrentUser(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetCurrentUser: %v", err)
	}
	if me.Role != entity.RoleCustomer {
		t.Fatalf("role not loaded: %+v", me)
	}
	if _, err := f.auth.GetCurrentUser(ctx, uuid.New()); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown user: want ErrUserNotFound, got %v", err)
	}
}

func TestLoginRejectsDisabledAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, err := f.auth.Register(ctx, &dto.RegisterRequest{Email: "off@example.com", Password: "s3cret-pass", FullName: "Off"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := f.db.Model(&entity.User{}).Where("id = ?", user.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("disable user: %v", err)
	}

	if _, err := f.auth.Login(ctx, &dto.LoginRequest{Email: "off@example.com", Password: "s3cret-pass"}); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("want ErrAccountDisabled, got %v", err)
	}
}

func TestLogoutRevokesTokens(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	if _, err := f.auth.Register(ctx, &dto.RegisterRequest{Email: "budi@example.com", Password: "s3cret-pass", FullName: "Budi"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	first := f.login(t, "budi@example.com", "s3cret-pass")
	second := f.login(t, "budi@example.com", "s3cret-pass")
	third := f.login(t, "budi@example.com", "s3cret-pass")

	if err := f.auth.Logout(ctx, first.UserID, first.TokenID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if f.mr.Exists(jwt.AccessTokenKey(first.UserID, first.TokenID)) {
		t.Fatalf("logged out token still live")
	}
	if !f.mr.Exists(jwt.AccessTokenKey(second.UserID, second.TokenID)) {
		t.Fatalf("other sessions must survive a single logout")
	}

	revoked, err := f.auth.LogoutAll(ctx, third.UserID)
	if err != nil {
		t.Fatalf("LogoutAll: %v", err)
	}
	if revoked != 2 {
		t.Fatalf("want 2 revoked tokens, got %d", revoked)
	}
	if f.mr.Exists(jwt.AccessTokenKey(third.UserID, third.TokenID)) {
		t.Fatalf("LogoutAll left a live token")
	}
}

func TestCreateStaffAccount(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	admin := uuid.New()

	doctor, err := f.auth.CreateStaffAccount(ctx, admin, &dto.CreateStaffRequest{
		Email: "apt.dewi@example.com", Password: "s3cret-pass", FullName: "apt. Dewi", Role: entity.RoleDoctor,
	})
	if err != nil {
		t.Fatalf("CreateStaffAccount: %v", err)
	}
	if doctor.Role != entity.RoleDoctor {
		t.Fatalf("unexpected role: %+v", doctor)
	}
	if claims := f.login(t, "apt.dewi@example.com", "s3cret-pass"); claims.RoleID != entity.RoleIDDoctor {
		t.Fatalf("doctor token carries role %d", claims.RoleID)
	}

	var audits int64
	f.db.Model(&entity.AuditLog{}).Where("action = ?", entity.AuditActionUserCreate).Count(&audits)
	if audits != 1 {
		t.Fatalf("staff account creation should be audited, got %d", audits)
	}

	if _, err := f.auth.CreateStaffAccount(ctx, admin, &dto.CreateStaffRequest{
		Email: "x@example.com", Password: "s3cret-pass", FullName: "X", Role: "pharmacist",
	}); !errors.Is(err, ErrRoleNotFound) {
		t.Fatalf("unknown role: want ErrRoleNotFound, got %v", err)
	}
}
