package repository

import (
	"context"

	"quiz-backend/internal/models"

	"gorm.io/gorm"
)

// EscrowRepository defines access to quiz escrow instances.
type EscrowRepository interface {
	Create(tx *gorm.DB, escrow *models.QuizEscrow) error
	GetByAddress(db *gorm.DB, address string) (*models.QuizEscrow, error)
	Update(tx *gorm.DB, escrow *models.QuizEscrow) error
	ListByCreator(ctx context.Context, creator string, page, pageSize int) ([]*models.QuizEscrow, int64, error)
	ListActive(ctx context.Context) ([]*models.QuizEscrow, error)
}

type escrowRepository struct {
	db *gorm.DB
}

// NewEscrowRepository creates a new EscrowRepository instance
func NewEscrowRepository(db *gorm.DB) EscrowRepository {
	return &escrowRepository{db: db}
}

// Create persists a new escrow inside the deploy transaction
func (r *escrowRepository) Create(tx *gorm.DB, escrow *models.QuizEscrow) error {
	return tx.Create(escrow).Error
}

// GetByAddress loads an escrow. Callers pass their transaction handle when
// the read must be consistent with a pending mutation, or r.db for plain
// view queries.
func (r *escrowRepository) GetByAddress(db *gorm.DB, address string) (*models.QuizEscrow, error) {
	if db == nil {
		db = r.db
	}
	var escrow models.QuizEscrow
	err := db.Where("address = ?", address).First(&escrow).Error
	if err != nil {
		return nil, err
	}
	return &escrow, nil
}

// Update saves escrow mutations inside their transaction
func (r *escrowRepository) Update(tx *gorm.DB, escrow *models.QuizEscrow) error {
	return tx.Save(escrow).Error
}

// ListByCreator returns the paginated escrows deployed by one creator
func (r *escrowRepository) ListByCreator(ctx context.Context, creator string, page, pageSize int) ([]*models.QuizEscrow, int64, error) {
	var escrows []*models.QuizEscrow
	var total int64

	query := r.db.WithContext(ctx).Model(&models.QuizEscrow{}).Where("creator = ?", creator)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&escrows).Error
	return escrows, total, err
}

// ListActive returns all escrows that have not been terminated yet
func (r *escrowRepository) ListActive(ctx context.Context) ([]*models.QuizEscrow, error) {
	var escrows []*models.QuizEscrow
	err := r.db.WithContext(ctx).
		Where("is_ended = ?", false).
		Order("created_at ASC").
		Find(&escrows).Error
	return escrows, err
}
