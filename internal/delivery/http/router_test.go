package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pharmacy-backend/config"
	"pharmacy-backend/internal/delivery/dto"
	"pharmacy-backend/internal/delivery/http/handler"
	"pharmacy-backend/internal/delivery/http/middleware"
	"pharmacy-backend/internal/domain/entity"
	"pharmacy-backend/internal/realtime"
	"pharmacy-backend/internal/repository"
	"pharmacy-backend/internal/service"
	"pharmacy-backend/internal/testutil"
	"pharmacy-backend/internal/usecase"
	"pharmacy-backend/pkg/jwt"
	"pharmacy-backend/pkg/validator"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type apiClient struct {
	t      *testing.T
	router *mux.Router
	auth   usecase.AuthUsecase
}

// newTestAPI wires the full router over SQLite, miniredis and the in-process hub
func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	db := testutil.NewDB(t)
	log := testutil.Logger()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	hub := realtime.NewHub(log, 16)
	t.Cleanup(func() { _ = hub.Close() })

	jwtService := jwt.NewJWTService(config.JWTConfig{Secret: "test-secret", AccessExpiry: time.Minute})
	v := validator.NewValidator()

	userRepo := repository.NewUserRepository()
	doctorRepo := repository.NewDoctorProfileRepository()
	consultationRepo := repository.NewConsultationRepository()
	deviceRepo := repository.NewDeviceTokenRepository()
	auditLogRepo := repository.NewAuditLogRepository()
	itemRepo := repository.NewItemRepository()

	notifier := service.NewPushNotifier(db, log, deviceRepo, service.NoopClient{}, config.PushConfig{Workers: 1})
	t.Cleanup(notifier.Wait)
	audit := service.NewAuditService(log, auditLogRepo)
	capacity := service.NewCapacityController(doctorRepo, log)
	mirror := service.NewCapacityMirror(db, rdb, doctorRepo, log)
	t.Cleanup(mirror.Stop)

	authUC := usecase.NewAuthUsecase(db, log, userRepo, repository.NewRoleRepository(), audit, jwtService, rdb)
	consultationUC := usecase.NewConsultationUsecase(
		db, log, consultationRepo, itemRepo, capacity,
		service.NewQueueManager(repository.NewConsultationQueueRepository(), log),
		service.NewRatingAggregator(doctorRepo, log),
		audit, hub, notifier, mirror, 30*time.Minute,
	)
	messageUC := usecase.NewConsultationMessageUsecase(db, log, consultationRepo, repository.NewConsultationMessageRepository(), consultationUC, hub, notifier)
	doctorUC := usecase.NewDoctorProfileUsecase(db, log, userRepo, doctorRepo, capacity, audit, mirror)
	scheduleUC := usecase.NewMedicationScheduleUsecase(db, log, consultationRepo, repository.NewMedicationScheduleRepository(), messageUC, audit)

	cors := middleware.NewCORSMiddleware([]string{"*"})
	router := NewRouter(
		handler.NewAuthHandler(authUC, v),
		handler.NewConsultationHandler(consultationUC, v),
		handler.NewMessageHandler(messageUC, v),
		handler.NewStreamHandler(consultationUC, messageUC, hub, log, config.ConsultationConfig{}, cors.CheckOrigin),
		handler.NewDoctorHandler(doctorUC, v),
		handler.NewMedicationHandler(scheduleUC, v),
		handler.NewDeviceHandler(usecase.NewDeviceUsecase(db, log, deviceRepo), v),
		handler.NewAuditLogHandler(usecase.NewAuditLogUsecase(db, log, auditLogRepo), v),
		handler.NewItemHandler(usecase.NewItemUsecase(db, log, itemRepo), v),
		middleware.NewAuthMiddleware(jwtService, rdb),
		cors,
		middleware.NewLoggerMiddleware(log),
	)

	return &apiClient{t: t, router: router.Setup(), auth: authUC}
}

func (c *apiClient) do(method, path, token string, body interface{}) (int, envelope) {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec.Code, env
}

func (c *apiClient) expect(method, path, token string, body interface{}, want int, out interface{}) {
	c.t.Helper()
	code, env := c.do(method, path, token, body)
	if code != want {
		c.t.Fatalf("%s %s: want %d, got %d (%s)", method, path, want, code, env.Message)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			c.t.Fatalf("%s %s: decode data: %v", method, path, err)
		}
	}
}

func (c *apiClient) login(email, password string) string {
	c.t.Helper()
	var tokens dto.TokenResponse
	c.expect(http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: email, Password: password}, http.StatusOK, &tokens)
	return tokens.AccessToken
}

func (c *apiClient) staff(email, role string) (uuid.UUID, string) {
	c.t.Helper()
	user, err := c.auth.CreateStaffAccount(context.Background(), uuid.New(), &dto.CreateStaffRequest{
		Email: email, Password: "s3cret-pass", FullName: email, Role: role,
	})
	if err != nil {
		c.t.Fatalf("CreateStaffAccount: %v", err)
	}
	return user.ID, c.login(email, "s3cret-pass")
}

func TestConsultationFlowOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	branch := uuid.New()

	api.expect(http.MethodPost, "/api/v1/auth/register", "", dto.RegisterRequest{
		Email: "sari@example.com", Password: "s3cret-pass", FullName: "Sari",
	}, http.StatusCreated, nil)
	customer := api.login("sari@example.com", "s3cret-pass")

	_, admin := api.staff("admin@example.com", entity.RoleAdmin)
	doctorID, doctor := api.staff("apt.rina@example.com", entity.RoleDoctor)

	api.expect(http.MethodPost, "/api/v1/admin/doctors", admin, dto.RegisterDoctorRequest{
		UserID: doctorID, BranchID: branch, STRNumber: "STR-000123", Specialization: "Clinical Pharmacist",
		MaxConcurrentConsultations: 2,
	}, http.StatusCreated, nil)
	available := true
	api.expect(http.MethodPut, "/api/v1/doctor/availability", doctor, dto.SetAvailabilityRequest{Available: &available}, http.StatusOK, nil)

	var created dto.ConsultationResponse
	api.expect(http.MethodPost, "/api/v1/consultations", customer, dto.CreateConsultationRequest{
		Type: "medication_inquiry", BranchID: branch, InitialMessage: "Can I take this with coffee?",
	}, http.StatusCreated, &created)
	if created.Status != string(entity.ConsultationStatusRequested) {
		t.Fatalf("new consultation status %q", created.Status)
	}

	var queue dto.QueueResponse
	api.expect(http.MethodGet, "/api/v1/doctor/consultations/queue", doctor, nil, http.StatusOK, &queue)
	if queue.BranchID != branch || len(queue.Entries) != 1 || queue.Entries[0].Consultation.ID != created.ID {
		t.Fatalf("queue should hold the new consultation: %+v", queue)
	}

	path := "/api/v1/doctor/consultations/" + created.ID.String()
	api.expect(http.MethodPost, path+"/accept", doctor, nil, http.StatusOK, nil)
	api.expect(http.MethodPost, path+"/accept", doctor, nil, http.StatusConflict, nil)

	var branchCapacity dto.BranchCapacityResponse
	api.expect(http.MethodGet, "/api/v1/admin/branches/"+branch.String()+"/capacity", admin, nil, http.StatusOK, &branchCapacity)
	if branchCapacity.TotalFreeSlots != 1 {
		t.Fatalf("one of two slots should be taken: %+v", branchCapacity)
	}

	msgPath := "/api/v1/consultations/" + created.ID.String() + "/messages"
	api.expect(http.MethodPost, msgPath, customer, dto.SendMessageRequest{Content: "Thank you"}, http.StatusCreated, nil)
	api.expect(http.MethodPost, msgPath, customer, dto.SendMessageRequest{Content: "   "}, http.StatusBadRequest, nil)
	api.expect(http.MethodPost, path+"/messages", doctor, dto.SendMessageRequest{Content: "Wait two hours."}, http.StatusCreated, nil)

	var mine dto.ConsultationResponse
	api.expect(http.MethodGet, "/api/v1/consultations/"+created.ID.String(), customer, nil, http.StatusOK, &mine)
	if mine.Status != string(entity.ConsultationStatusInProgress) {
		t.Fatalf("doctor reply should start the consultation, got %q", mine.Status)
	}

	api.expect(http.MethodPost, path+"/complete", doctor, dto.CompleteConsultationRequest{Summary: "Avoid coffee for two hours."}, http.StatusOK, nil)
	api.expect(http.MethodPost, "/api/v1/consultations/"+created.ID.String()+"/rate", customer, dto.RateConsultationRequest{Rating: 5}, http.StatusOK, nil)
	api.expect(http.MethodPost, "/api/v1/consultations/"+created.ID.String()+"/rate", customer, dto.RateConsultationRequest{Rating: 4}, http.StatusConflict, nil)

	var capacity dto.DoctorCapacityResponse
	api.expect(http.MethodGet, "/api/v1/doctor/capacity", doctor, nil, http.StatusOK, &capacity)
	if capacity.FreeSlots != 2 || capacity.TotalRaters != 1 {
		t.Fatalf("completion should free the slot and count the rating: %+v", capacity)
	}
}

func TestRouteGuards(t *testing.T) {
	api := newTestAPI(t)
	api.expect(http.MethodPost, "/api/v1/auth/register", "", dto.RegisterRequest{
		Email: "budi@example.com", Password: "s3cret-pass", FullName: "Budi",
	}, http.StatusCreated, nil)
	customer := api.login("budi@example.com", "s3cret-pass")
	_, doctor := api.staff("apt.dewi@example.com", entity.RoleDoctor)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"health is public", http.MethodGet, "/health", "", http.StatusOK},
		{"consultations need a token", http.MethodGet, "/api/v1/consultations", "", http.StatusUnauthorized},
		{"doctor cannot list customer consultations", http.MethodGet, "/api/v1/consultations", doctor, http.StatusForbidden},
		{"customer cannot read the queue", http.MethodGet, "/api/v1/doctor/consultations/queue", customer, http.StatusForbidden},
		{"customer cannot read the audit trail", http.MethodGet, "/api/v1/admin/audit-logs", customer, http.StatusForbidden},
		{"bad consultation id", http.MethodGet, "/api/v1/consultations/not-a-uuid", customer, http.StatusBadRequest},
		{"unknown consultation", http.MethodGet, "/api/v1/consultations/" + uuid.NewString(), customer, http.StatusNotFound},
		{"catalogue is open to any role", http.MethodGet, "/api/v1/items", doctor, http.StatusOK},
		{"preflight", http.MethodOptions, "/api/v1/consultations", "", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, env := api.do(tt.method, tt.path, tt.token, nil); code != tt.want {
				t.Fatalf("want %d, got %d (%s)", tt.want, code, env.Message)
			}
		})
	}
}

func TestLogoutRevokesAccess(t *testing.T) {
	api := newTestAPI(t)
	api.expect(http.MethodPost, "/api/v1/auth/register", "", dto.RegisterRequest{
		Email: "tono@example.com", Password: "s3cret-pass", FullName: "Tono",
	}, http.StatusCreated, nil)
	token := api.login("tono@example.com", "s3cret-pass")
	other := api.login("tono@example.com", "s3cret-pass")

	var me dto.UserResponse
	api.expect(http.MethodGet, "/api/v1/auth/me", token, nil, http.StatusOK, &me)
	if me.Email != "tono@example.com" || me.Role != entity.RoleCustomer {
		t.Fatalf("unexpected profile: %+v", me)
	}

	api.expect(http.MethodPost, "/api/v1/auth/logout", token, nil, http.StatusOK, nil)
	api.expect(http.MethodGet, "/api/v1/auth/me", token, nil, http.StatusUnauthorized, nil)
	api.expect(http.MethodGet, "/api/v1/auth/me", other, nil, http.StatusOK, nil)

	api.expect(http.MethodPost, "/api/v1/auth/logout-all", other, nil, http.StatusOK, nil)
	api.expect(http.MethodGet, "/api/v1/auth/me", other, nil, http.StatusUnauthorized, nil)

	api.expect(http.MethodPost, "/api/v1/auth/login", "", dto.LoginRequest{Email: "tono@example.com", Password: "nope"}, http.StatusUnauthorized, nil)
}
