package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"pharmacy-backend/config"
	"pharmacy-backend/internal/delivery/dto"
	"pharmacy-backend/internal/realtime"
	"pharmacy-backend/internal/usecase"
	"pharmacy-backend/pkg/response"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 4096

	defaultStreamRetry     = 3 * time.Second
	defaultStreamHeartbeat = 15 * time.Second
)

// StreamHandler serves a consultation's live events over SSE or websocket.
// Both transports are gated on participation and subscribe before sending
// the connected frame, so nothing published after that frame is missed.
type StreamHandler struct {
	verifier       usecase.ParticipantVerifier
	messageUsecase usecase.ConsultationMessageUsecase
	bus            realtime.Bus
	log            *logrus.Logger
	retry          time.Duration
	heartbeat      time.Duration
	upgrader       websocket.Upgrader
}

func NewStreamHandler(
	verifier usecase.ParticipantVerifier,
	messageUsecase usecase.ConsultationMessageUsecase,
	bus realtime.Bus,
	log *logrus.Logger,
	cfg config.ConsultationConfig,
	checkOrigin func(r *http.Request) bool,
) *StreamHandler {
	if cfg.StreamRetry <= 0 {
		cfg.StreamRetry = defaultStreamRetry
	}
	if cfg.StreamHeartbeat <= 0 {
		cfg.StreamHeartbeat = defaultStreamHeartbeat
	}
	return &StreamHandler{
		verifier:       verifier,
		messageUsecase: messageUsecase,
		bus:            bus,
		log:            log,
		retry:          cfg.StreamRetry,
		heartbeat:      cfg.StreamHeartbeat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Same policy as the CORS middleware. Nil keeps the same-origin default.
			CheckOrigin: checkOrigin,
		},
	}
}

type connectedData struct {
	ConsultationID uuid.UUID `json:"consultation_id"`
	UserID         uuid.UUID `json:"user_id"`
}

// ServeSSE streams events as text/event-stream frames
func (h *StreamHandler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	userID, consultationID, ok := h.authorize(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming is not supported")
		return
	}

	sub, err := h.bus.Subscribe(realtime.ConsultationTopic(consultationID))
	if err != nil {
		h.log.Warnf("Failed to subscribe to consultation %s: %+v", consultationID, err)
		response.InternalServerError(w, "Failed to open stream")
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "retry: %d\n\n", h.retry.Milliseconds())
	connected := realtime.NewEvent(realtime.EventConnected, connectedData{ConsultationID: consultationID, UserID: userID})
	connected.Topic = sub.Topic
	if err := writeSSE(w, connected); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case evt, ok := <-sub.Events():
			if !ok {
				if sub.Evicted() {
					h.log.Warnf("SSE subscriber %s on consultation %s evicted for falling behind", sub.ID, consultationID)
				}
				return
			}
			if err := writeSSE(w, evt); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, evt realtime.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Kind, payload)
	return err
}

// wsInbound is a frame sent by the websocket client
type wsInbound struct {
	Event    realtime.EventKind `json:"event"`
	IsTyping bool               `json:"is_typing"`
}

// ServeWS streams events as JSON websocket frames. Clients may send typing frames.
func (h *StreamHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, consultationID, ok := h.authorize(w, r)
	if !ok {
		return
	}
	role := senderRole(r)

	sub, err := h.bus.Subscribe(realtime.ConsultationTopic(consultationID))
	if err != nil {
		h.log.Warnf("Failed to subscribe to consultation %s: %+v", consultationID, err)
		response.InternalServerError(w, "Failed to open stream")
		return
	}
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		h.log.Debugf("Websocket upgrade failed for consultation %s: %v", consultationID, err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reader: handles pongs and client typing frames, cancels on disconnect.
	go func() {
		defer cancel()
		conn.SetReadLimit(wsMaxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			var in wsInbound
			if err := conn.ReadJSON(&in); err != nil {
				return
			}
			if in.Event != realtime.EventTyping {
				continue
			}
			if err := h.messageUsecase.Typing(ctx, consultationID, userID, role, &dto.TypingRequest{IsTyping: in.IsTyping}); err != nil {
				h.log.Debugf("Dropped typing frame on consultation %s: %v", consultationID, err)
			}
		}
	}()

	connected := realtime.NewEvent(realtime.EventConnected, connectedData{ConsultationID: consultationID, UserID: userID})
	connected.Topic = sub.Topic
	if err := h.writeWS(conn, connected); err != nil {
		return
	}

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case evt, ok := <-sub.Events():
			if !ok {
				reason := "stream closed"
				if sub.Evicted() {
					reason = "subscriber fell behind"
				}
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, reason),
					time.Now().Add(wsWriteWait))
				return
			}
			if err := h.writeWS(conn, evt); err != nil {
				return
			}
		}
	}
}

func (h *StreamHandler) writeWS(conn *websocket.Conn, evt realtime.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(evt)
}

func (h *StreamHandler) authorize(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	consultationID, ok := pathUUID(w, r, "id", "consultation")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}

	participant, err := h.verifier.VerifyParticipant(r.Context(), consultationID, userID)
	if err != nil {
		writeError(w, err, "Failed to verify participant")
		return uuid.Nil, uuid.Nil, false
	}
	if !participant {
		writeError(w, usecase.ErrNotParticipant, "")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, consultationID, true
}
