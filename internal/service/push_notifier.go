package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"pharmacy-backend/config"
	"pharmacy-backend/internal/domain/repository"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/pool"
	"gorm.io/gorm"
)

const (
	// Tokens per provider request
	pushChunkSize = 500

	defaultPushWorkers = 4
	defaultPushTimeout = 10 * time.Second
)

// PushMessage is one notification addressed to a set of device tokens
type PushMessage struct {
	Tokens []string
	Title  string
	Body   string
	Data   map[string]string
}

// PushResult counts per-token outcomes reported by the provider
type PushResult struct {
	Success int
	Failure int
}

// PushClient delivers to a push provider
type PushClient interface {
	Send(ctx context.Context, msg PushMessage) (PushResult, error)
}

type fcmRequest struct {
	RegistrationIDs []string          `json:"registration_ids"`
	Notification    fcmNotification   `json:"notification"`
	Data            map[string]string `json:"data,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
}

// FCMClient talks to the FCM HTTP endpoint
type FCMClient struct {
	httpClient *resty.Client
}

func NewFCMClient(cfg config.PushConfig) (*FCMClient, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("push endpoint cannot be empty")
	}
	if cfg.ServerKey == "" {
		return nil, errors.New("push server key cannot be empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultPushTimeout
	}

	client := resty.New().
		SetBaseURL(cfg.Endpoint).
		SetHeader("Authorization", "key="+cfg.ServerKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)

	return &FCMClient{httpClient: client}, nil
}

func (c *FCMClient) Send(ctx context.Context, msg PushMessage) (PushResult, error) {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(fcmRequest{
			RegistrationIDs: msg.Tokens,
			Notification:    fcmNotification{Title: msg.Title, Body: msg.Body},
			Data:            msg.Data,
		}).
		SetResult(&fcmResponse{}).
		Post("/send")
	if err != nil {
		return PushResult{}, fmt.Errorf("push request failed: %w", err)
	}
	if resp.IsError() {
		return PushResult{Failure: len(msg.Tokens)}, fmt.Errorf("push provider error: status %s, body: %s", resp.Status(), resp.String())
	}

	result := resp.Result().(*fcmResponse)
	return PushResult{Success: result.Success, Failure: result.Failure}, nil
}

// NoopClient accepts every message without sending it. Used when no provider is configured.
type NoopClient struct{}

func (NoopClient) Send(ctx context.Context, msg PushMessage) (PushResult, error) {
	return PushResult{Success: len(msg.Tokens)}, nil
}

// PushNotifier fans a notification out to every device of the given users.
// Notify never blocks and never reports failure to the caller; delivery
// problems are only logged.
type PushNotifier struct {
	db        *gorm.DB
	log       *logrus.Logger
	tokenRepo repository.DeviceTokenRepository
	client    PushClient
	workers   int
	timeout   time.Duration

	inflight conc.WaitGroup
}

func NewPushNotifier(db *gorm.DB, log *logrus.Logger, tokenRepo repository.DeviceTokenRepository, client PushClient, cfg config.PushConfig) *PushNotifier {
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultPushWorkers
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultPushTimeout
	}
	return &PushNotifier{
		db:        db,
		log:       log,
		tokenRepo: tokenRepo,
		client:    client,
		workers:   workers,
		timeout:   timeout,
	}
}

func (n *PushNotifier) Notify(userIDs []uuid.UUID, title, body string, data map[string]string) {
	if len(userIDs) == 0 {
		return
	}
	n.inflight.Go(func() {
		n.deliver(userIDs, title, body, data)
	})
}

// Wait blocks until every queued notification has been attempted
func (n *PushNotifier) Wait() {
	n.inflight.Wait()
}

func (n *PushNotifier) deliver(userIDs []uuid.UUID, title, body string, data map[string]string) {
	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()

	tokens, err := n.tokenRepo.FindTokensByUserIDs(n.db.WithContext(ctx), userIDs)
	if err != nil {
		n.log.Errorf("Failed to load device tokens: %+v", err)
		return
	}
	if len(tokens) == 0 {
		n.log.Debugf("No device tokens for %d users", len(userIDs))
		return
	}

	var success, failure atomic.Int64
	p := pool.New().WithMaxGoroutines(n.workers)
	for start := 0; start < len(tokens); start += pushChunkSize {
		end := start + pushChunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunk := tokens[start:end]
		p.Go(func() {
			result, err := n.client.Send(ctx, PushMessage{Tokens: chunk, Title: title, Body: body, Data: data})
			if err != nil {
				n.log.Errorf("Push delivery failed for %d tokens: %+v", len(chunk), err)
				failure.Add(int64(len(chunk)))
				return
			}
			success.Add(int64(result.Success))
			failure.Add(int64(result.Failure))
		})
	}
	p.Wait()

	n.log.WithFields(logrus.Fields{
		"title":   title,
		"success": success.Load(),
		"failure": failure.Load(),
	}).Info("Push notification dispatched")
}
