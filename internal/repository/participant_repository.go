package repository

import (
	"context"
	"errors"

	"quiz-backend/internal/models"

	"gorm.io/gorm"
)

// ParticipantRepository defines access to recorded quiz results.
type ParticipantRepository interface {
	Create(tx *gorm.DB, participant *models.QuizParticipant) error
	Get(db *gorm.DB, escrowAddress, participant string) (*models.QuizParticipant, error)
	Exists(tx *gorm.DB, escrowAddress, participant string) (bool, error)
	ListByEscrow(ctx context.Context, escrowAddress string) ([]*models.QuizParticipant, error)
}

type participantRepository struct {
	db *gorm.DB
}

// NewParticipantRepository creates a new ParticipantRepository instance
func NewParticipantRepository(db *gorm.DB) ParticipantRepository {
	return &participantRepository{db: db}
}

// Create records a result inside the settlement transaction
func (r *participantRepository) Create(tx *gorm.DB, participant *models.QuizParticipant) error {
	return tx.Create(participant).Error
}

// Get returns the recorded result for (escrow, participant), or
// gorm.ErrRecordNotFound when the participant never submitted.
func (r *participantRepository) Get(db *gorm.DB, escrowAddress, participant string) (*models.QuizParticipant, error) {
	if db == nil {
		db = r.db
	}
	var record models.QuizParticipant
	err := db.Where("escrow_address = ? AND participant = ?", escrowAddress, participant).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Exists reports whether a participant has already submitted a result
func (r *participantRepository) Exists(tx *gorm.DB, escrowAddress, participant string) (bool, error) {
	_, err := r.Get(tx, escrowAddress, participant)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListByEscrow returns all recorded results for one escrow in submission order
func (r *participantRepository) ListByEscrow(ctx context.Context, escrowAddress string) ([]*models.QuizParticipant, error) {
	var records []*models.QuizParticipant
	err := r.db.WithContext(ctx).
		Where("escrow_address = ?", escrowAddress).
		Order("created_at ASC").
		Find(&records).Error
	return records, err
}
