package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"pharmacy-backend/config"
	"pharmacy-backend/internal/domain/entity"
	"pharmacy-backend/internal/repository"
	"pharmacy-backend/internal/testutil"

	"github.com/google/uuid"
)

func TestPushNotifierSendsToRegisteredDevices(t *testing.T) {
	var (
		mu       sync.Mutex
		received []fcmRequest
		authz    string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req fcmRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		mu.Lock()
		received = append(received, req)
		authz = r.Header.Get("Authorization")
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(fcmResponse{Success: len(req.RegistrationIDs)})
	}))
	defer srv.Close()

	db := testutil.NewDB(t)
	tokenRepo := repository.NewDeviceTokenRepository()
	user := uuid.New()
	for _, tok := range []string{"tok-a", "tok-b"} {
		if err := tokenRepo.Upsert(db, &entity.DeviceToken{UserID: user, Token: tok, Platform: "android"}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	cfg := config.PushConfig{Endpoint: srv.URL, ServerKey: "secret", Timeout: time.Second, Workers: 2}
	client, err := NewFCMClient(cfg)
	if err != nil {
		t.Fatalf("NewFCMClient: %v", err)
	}
	n := NewPushNotifier(db, testutil.Logger(), tokenRepo, client, cfg)

	n.Notify([]uuid.UUID{user}, "Doctor joined", "Your consultation was accepted", map[string]string{"type": "accepted"})
	n.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 {
		t.Fatalf("want one provider call, got %d", len(received))
	}
	if len(received[0].RegistrationIDs) != 2 || received[0].Notification.Title != "Doctor joined" {
		t.Fatalf("unexpected payload: %+v", received[0])
	}
	if authz != "key=secret" {
		t.Fatalf("authorization header: %q", authz)
	}
}

func TestPushNotifierSwallowsProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	db := testutil.NewDB(t)
	tokenRepo := repository.NewDeviceTokenRepository()
	user := uuid.New()
	_ = tokenRepo.Upsert(db, &entity.DeviceToken{UserID: user, Token: "tok", Platform: "ios"})

	cfg := config.PushConfig{Endpoint: srv.URL, ServerKey: "k", Timeout: time.Second}
	client, _ := NewFCMClient(cfg)
	n := NewPushNotifier(db, testutil.Logger(), tokenRepo, client, cfg)

	done := make(chan struct{})
	go func() {
		n.Notify([]uuid.UUID{user}, "t", "b", nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Notify blocked the caller")
	}
	n.Wait()
}

func TestDeviceTokenUpsertRehomesToken(t *testing.T) {
	db := testutil.NewDB(t)
	tokenRepo := repository.NewDeviceTokenRepository()
	first, second := uuid.New(), uuid.New()

	_ = tokenRepo.Upsert(db, &entity.DeviceToken{UserID: first, Token: "shared", Platform: "android"})
	if err := tokenRepo.Upsert(db, &entity.DeviceToken{UserID: second, Token: "shared", Platform: "android"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	tokens, _ := tokenRepo.FindTokensByUserIDs(db, []uuid.UUID{first})
	if len(tokens) != 0 {
		t.Fatalf("token should have moved off the first user: %v", tokens)
	}
	tokens, _ = tokenRepo.FindTokensByUserIDs(db, []uuid.UUID{second})
	if len(tokens) != 1 {
		t.Fatalf("second user tokens: %v", tokens)
	}
}

func TestNewFCMClientRequiresKey(t *testing.T) {
	if _, err := NewFCMClient(config.PushConfig{Endpoint: "http://x"}); err == nil {
		t.Fatalf("expected error without server key")
	}
}
