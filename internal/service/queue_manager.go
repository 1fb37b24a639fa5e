package service

import (
	"time"

	"pharmacy-backend/internal/domain/entity"
	"pharmacy-backend/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// QueueManager keeps one pending queue per branch ordered by
// (priority DESC, enqueued_at ASC). Position is a dense 1-based display rank;
// admission never reads it.
type QueueManager struct {
	queueRepo repository.ConsultationQueueRepository
	log       *logrus.Logger
}

func NewQueueManager(queueRepo repository.ConsultationQueueRepository, log *logrus.Logger) *QueueManager {
	return &QueueManager{
		queueRepo: queueRepo,
		log:       log,
	}
}

// Enqueue inserts the pending row. Call Reindex for the branch once the
// surrounding transaction has committed.
func (q *QueueManager) Enqueue(tx *gorm.DB, consultation *entity.Consultation, now time.Time) error {
	entry := &entity.ConsultationQueue{
		ConsultationID: consultation.ID,
		BranchID:       consultation.BranchID,
		Priority:       consultation.Priority,
		EnqueuedAt:     now,
	}
	if err := q.queueRepo.Create(tx, entry); err != nil {
		q.log.Warnf("Failed to enqueue consultation %s: %+v", consultation.ID, err)
		return err
	}
	return nil
}

// Remove drops the queue row if present and reports the branch it left.
// Removing an absent row is a no-op.
func (q *QueueManager) Remove(tx *gorm.DB, consultationID uuid.UUID) (uuid.UUID, bool, error) {
	entry, err := q.queueRepo.FindByConsultationID(tx, consultationID)
	if err != nil {
		return uuid.Nil, false, err
	}
	if entry == nil {
		return uuid.Nil, false, nil
	}
	rows, err := q.queueRepo.Delete(tx, consultationID)
	if err != nil {
		q.log.Warnf("Failed to dequeue consultation %s: %+v", consultationID, err)
		return uuid.Nil, false, err
	}
	return entry.BranchID, rows > 0, nil
}

// List returns the branch queue in dequeue order
func (q *QueueManager) List(db *gorm.DB, branchID uuid.UUID) ([]entity.ConsultationQueue, error) {
	return q.queueRepo.FindByBranchOrdered(db, branchID)
}

// Reindex rewrites the dense ranks of a branch in its own transaction.
// It runs after the lifecycle transaction commits, so that transaction only
// ever locks its own queue row and concurrent accepts in one branch cannot deadlock.
func (q *QueueManager) Reindex(db *gorm.DB, branchID uuid.UUID) error {
	return db.Transaction(func(tx *gorm.DB) error {
		entries, err := q.queueRepo.FindByBranchOrdered(tx, branchID)
		if err != nil {
			return err
		}
		for i := range entries {
			rank := i + 1
			if entries[i].Position == rank {
				continue
			}
			if err := q.queueRepo.UpdatePosition(tx, entries[i].ConsultationID, rank); err != nil {
				return err
			}
		}
		return nil
	})
}
