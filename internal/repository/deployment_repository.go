package repository

import (
	"context"

	"quiz-backend/internal/models"

	"gorm.io/gorm"
)

// DeploymentRepository defines access to the global deployment ledger.
// Rows are append-only; there is no update or delete path.
type DeploymentRepository interface {
	Create(tx *gorm.DB, deployment *models.Deployment) error
	GetByAddress(ctx context.Context, contractAddress string) (*models.Deployment, error)
	ListByCreator(ctx context.Context, creator string, page, pageSize int) ([]*models.Deployment, int64, error)
	List(ctx context.Context, page, pageSize int) ([]*models.Deployment, int64, error)
	Count(ctx context.Context) (int64, error)
	CountByHandler(tx *gorm.DB, handlerAddress string) (int64, error)
}

type deploymentRepository struct {
	db *gorm.DB
}

// NewDeploymentRepository creates a new DeploymentRepository instance
func NewDeploymentRepository(db *gorm.DB) DeploymentRepository {
	return &deploymentRepository{db: db}
}

// Create appends a deployment record inside the deploy transaction.
func (r *deploymentRepository) Create(tx *gorm.DB, deployment *models.Deployment) error {
	return tx.Create(deployment).Error
}

// GetByAddress retrieves a deployment by its contract address
func (r *deploymentRepository) GetByAddress(ctx context.Context, contractAddress string) (*models.Deployment, error) {
	var deployment models.Deployment
	err := r.db.WithContext(ctx).Where("contract_address = ?", contractAddress).First(&deployment).Error
	if err != nil {
		return nil, err
	}
	return &deployment, nil
}

// ListByCreator returns the paginated deployment history of one creator
func (r *deploymentRepository) ListByCreator(ctx context.Context, creator string, page, pageSize int) ([]*models.Deployment, int64, error) {
	var deployments []*models.Deployment
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Deployment{}).Where("creator = ?", creator)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&deployments).Error
	return deployments, total, err
}

// List returns the paginated global deployment ledger
func (r *deploymentRepository) List(ctx context.Context, page, pageSize int) ([]*models.Deployment, int64, error) {
	var deployments []*models.Deployment
	var total int64

	if err := r.db.WithContext(ctx).Model(&models.Deployment{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&deployments).Error
	return deployments, total, err
}

// Count returns the total number of deployments ever performed
func (r *deploymentRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Deployment{}).Count(&total).Error
	return total, err
}

// CountByHandler counts deployments performed by one handler. Read inside
// the deploy transaction, it doubles as the handler's address-derivation
// nonce.
func (r *deploymentRepository) CountByHandler(tx *gorm.DB, handlerAddress string) (int64, error) {
	var total int64
	err := tx.Model(&models.Deployment{}).Where("handler_address = ?", handlerAddress).Count(&total).Error
	return total, err
}
