package usecase

import (
	"context"
	"errors"
	"time"

	"pharmacy-backend/internal/converter"
	"pharmacy-backend/internal/delivery/dto"
	"pharmacy-backend/internal/domain/entity"
	"pharmacy-backend/internal/domain/repository"
	"pharmacy-backend/internal/realtime"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrInvalidMessageType = errors.New("message type is not allowed for this sender")
)

const (
	defaultMessagePageSize = 100
	pushPreviewLength      = 120
)

// ParticipantVerifier answers whether a user takes part in a consultation
type ParticipantVerifier interface {
	VerifyParticipant(ctx context.Context, consultationID, userID uuid.UUID) (bool, error)
}

type ConsultationMessageUsecase interface {
	Send(ctx context.Context, consultationID, senderID uuid.UUID, role entity.SenderRole, req *dto.SendMessageRequest) (*dto.MessageResponse, error)
	List(ctx context.Context, consultationID, readerID uuid.UUID, limit, offset int) (*dto.MessageListResponse, error)
	MarkRead(ctx context.Context, consultationID, readerID uuid.UUID) (*dto.MarkReadResponse, error)
	UnreadCount(ctx context.Context, consultationID, readerID uuid.UUID) (int64, error)
	Typing(ctx context.Context, consultationID, senderID uuid.UUID, role entity.SenderRole, req *dto.TypingRequest) error
}

type consultationMessageUsecase struct {
	db               *gorm.DB
	log              *logrus.Logger
	consultationRepo repository.ConsultationRepository
	messageRepo      repository.ConsultationMessageRepository
	verifier         ParticipantVerifier
	bus              realtime.Bus
	notifier         Notifier
	now              func() time.Time
}

func NewConsultationMessageUsecase(
	db *gorm.DB,
	log *logrus.Logger,
	consultationRepo repository.ConsultationRepository,
	messageRepo repository.ConsultationMessageRepository,
	verifier ParticipantVerifier,
	bus realtime.Bus,
	notifier Notifier,
) ConsultationMessageUsecase {
	return &consultationMessageUsecase{
		db:               db,
		log:              log,
		consultationRepo: consultationRepo,
		messageRepo:      messageRepo,
		verifier:         verifier,
		bus:              bus,
		notifier:         notifier,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// Send appends a message to a live consultation.
//
// Flow (one transaction):
// 1. Bump message_count, conditional on the consultation not being terminal
// 2. Insert the message
// 3. The first doctor message on an ASSIGNED consultation moves it to IN_PROGRESS
// Subscribers and the other party are told after commit.
func (u *consultationMessageUsecase) Send(ctx context.Context, consultationID, senderID uuid.UUID, role entity.SenderRole, req *dto.SendMessageRequest) (*dto.MessageResponse, error) {
	if err := u.requireParticipant(ctx, consultationID, senderID); err != nil {
		return nil, err
	}

	msgType := entity.MessageType(req.Type)
	if msgType == "" {
		msgType = entity.MessageTypeText
	}
	if msgType == entity.MessageTypeMedicationLink && role != entity.SenderRoleDoctor {
		return nil, ErrInvalidMessageType
	}

	message := &entity.ConsultationMessage{
		ConsultationID: consultationID,
		Type:           msgType,
		Content:        req.Content,
	}
	message.SetSender(role, senderID)
	if len(req.Metadata) > 0 {
		message.Metadata = datatypes.JSON(req.Metadata)
	}

	var consultation *entity.Consultation
	started := false

	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := u.consultationRepo.IncrementMessageCount(tx, consultationID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrInvalidState
		}

		message.CreatedAt = u.now()
		if err := u.messageRepo.Create(tx, message); err != nil {
			return err
		}

		consultation, err = u.consultationRepo.FindByID(tx, consultationID)
		if err != nil {
			return err
		}
		if consultation == nil {
			return ErrConsultationNotFound
		}

		if role == entity.SenderRoleDoctor && consultation.Status.CanTransition(entity.ConsultationStatusInProgress) {
			rows, err := u.consultationRepo.Start(tx, consultationID, senderID)
			if err != nil {
				return err
			}
			started = rows == 1
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrInvalidState) {
			u.log.Warnf("Failed to send message on consultation %s: %+v", consultationID, err)
		}
		return nil, err
	}

	if started {
		u.log.Infof("Consultation started: id=%s, doctor=%s", consultationID, senderID)
	}

	response := converter.MessageToResponse(message)
	publishEvent(ctx, u.bus, u.log, consultationID, realtime.EventNewMessage, response)

	if recipient := otherParty(consultation, senderID); recipient != uuid.Nil && u.notifier != nil {
		u.notifier.Notify([]uuid.UUID{recipient}, "New message", preview(message.Content), map[string]string{
			"type":            "new_message",
			"consultation_id": consultationID.String(),
			"message_id":      message.ID.String(),
		})
	}

	return response, nil
}

// List returns the conversation in creation order along with the reader's unread count
func (u *consultationMessageUsecase) List(ctx context.Context, consultationID, readerID uuid.UUID, limit, offset int) (*dto.MessageListResponse, error) {
	if err := u.requireParticipant(ctx, consultationID, readerID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultMessagePageSize
	}

	messages, err := u.messageRepo.FindByConsultationID(u.db.WithContext(ctx), consultationID, limit, offset)
	if err != nil {
		u.log.Warnf("Failed to find messages for consultation %s: %+v", consultationID, err)
		return nil, err
	}

	unread, err := u.messageRepo.CountUnreadFor(u.db.WithContext(ctx), consultationID, readerID)
	if err != nil {
		u.log.Warnf("Failed to count unread messages for consultation %s: %+v", consultationID, err)
		return nil, err
	}

	return &dto.MessageListResponse{
		Messages: converter.MessagesToResponses(messages),
		Total:    len(messages),
		Unread:   unread,
	}, nil
}

// MarkRead marks every message not authored by the reader as read.
// Read state still changes on a retired consultation, but nothing is published.
func (u *consultationMessageUsecase) MarkRead(ctx context.Context, consultationID, readerID uuid.UUID) (*dto.MarkReadResponse, error) {
	if err := u.requireParticipant(ctx, consultationID, readerID); err != nil {
		return nil, err
	}
	consultation, err := u.loadConsultation(ctx, consultationID)
	if err != nil {
		return nil, err
	}

	updated, err := u.messageRepo.MarkReadFor(u.db.WithContext(ctx), consultationID, readerID, u.now())
	if err != nil {
		u.log.Warnf("Failed to mark messages read for consultation %s: %+v", consultationID, err)
		return nil, err
	}

	if updated > 0 && !consultation.IsTerminal() {
		publishEvent(ctx, u.bus, u.log, consultationID, realtime.EventMessagesRead, map[string]interface{}{
			"reader_id": readerID,
			"updated":   updated,
		})
	}

	return &dto.MarkReadResponse{Updated: updated}, nil
}

func (u *consultationMessageUsecase) UnreadCount(ctx context.Context, consultationID, readerID uuid.UUID) (int64, error) {
	if err := u.requireParticipant(ctx, consultationID, readerID); err != nil {
		return 0, err
	}

	count, err := u.messageRepo.CountUnreadFor(u.db.WithContext(ctx), consultationID, readerID)
	if err != nil {
		u.log.Warnf("Failed to count unread messages for consultation %s: %+v", consultationID, err)
		return 0, err
	}
	return count, nil
}

// Typing relays a typing indicator on a live consultation. Nothing is persisted.
func (u *consultationMessageUsecase) Typing(ctx context.Context, consultationID, senderID uuid.UUID, role entity.SenderRole, req *dto.TypingRequest) error {
	if err := u.requireParticipant(ctx, consultationID, senderID); err != nil {
		return err
	}
	consultation, err := u.loadConsultation(ctx, consultationID)
	if err != nil {
		return err
	}
	if consultation.IsTerminal() {
		return ErrInvalidState
	}

	publishEvent(ctx, u.bus, u.log, consultationID, realtime.EventTyping, realtime.TypingData{
		ConsultationID: consultationID,
		SenderID:       senderID,
		SenderRole:     string(role),
		IsTyping:       req.IsTyping,
	})
	return nil
}

func (u *consultationMessageUsecase) loadConsultation(ctx context.Context, consultationID uuid.UUID) (*entity.Consultation, error) {
	consultation, err := u.consultationRepo.FindByID(u.db.WithContext(ctx), consultationID)
	if err != nil {
		u.log.Warnf("Failed to find consultation %s: %+v", consultationID, err)
		return nil, err
	}
	if consultation == nil {
		return nil, ErrConsultationNotFound
	}
	return consultation, nil
}

func (u *consultationMessageUsecase) requireParticipant(ctx context.Context, consultationID, userID uuid.UUID) error {
	ok, err := u.verifier.VerifyParticipant(ctx, consultationID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotParticipant
	}
	return nil
}

func otherParty(c *entity.Consultation, senderID uuid.UUID) uuid.UUID {
	if c == nil {
		return uuid.Nil
	}
	if c.UserID != senderID {
		return c.UserID
	}
	if c.DoctorID != nil {
		return *c.DoctorID
	}
	return uuid.Nil
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= pushPreviewLength {
		return content
	}
	return string(runes[:pushPreviewLength]) + "..."
}
