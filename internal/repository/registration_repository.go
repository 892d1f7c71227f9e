package repository

import (
	"context"
	"errors"
	"time"

	"quiz-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RegistrationRepository persists the registry's handler map so registered
// contract types survive restarts.
type RegistrationRepository interface {
	Upsert(ctx context.Context, registration *models.HandlerRegistration) error
	Delete(ctx context.Context, contractType string) error
	GetByType(ctx context.Context, contractType string) (*models.HandlerRegistration, error)
	List(ctx context.Context) ([]*models.HandlerRegistration, error)
}

type registrationRepository struct {
	db *gorm.DB
}

// NewRegistrationRepository creates a new RegistrationRepository instance
func NewRegistrationRepository(db *gorm.DB) RegistrationRepository {
	return &registrationRepository{db: db}
}

// Upsert overwrites an existing registration for the contract type in place
// or creates a new row. Last registration wins.
func (r *registrationRepository) Upsert(ctx context.Context, registration *models.HandlerRegistration) error {
	var existing models.HandlerRegistration
	err := r.db.WithContext(ctx).Where("contract_type = ?", registration.ContractType).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if registration.ID == "" {
			registration.ID = uuid.New().String()
		}
		registration.CreatedAt = time.Now()
		registration.UpdatedAt = time.Now()
		return r.db.WithContext(ctx).Create(registration).Error
	}
	if err != nil {
		return err
	}

	existing.HandlerAddress = registration.HandlerAddress
	existing.Version = registration.Version
	existing.Description = registration.Description
	existing.RegisteredBy = registration.RegisteredBy
	existing.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(&existing).Error
}

// Delete removes the registration of one contract type
func (r *registrationRepository) Delete(ctx context.Context, contractType string) error {
	return r.db.WithContext(ctx).Where("contract_type = ?", contractType).Delete(&models.HandlerRegistration{}).Error
}

// GetByType retrieves a registration by contract type
func (r *registrationRepository) GetByType(ctx context.Context, contractType string) (*models.HandlerRegistration, error) {
	var registration models.HandlerRegistration
	err := r.db.WithContext(ctx).Where("contract_type = ?", contractType).First(&registration).Error
	if err != nil {
		return nil, err
	}
	return &registration, nil
}

// List returns all registrations
func (r *registrationRepository) List(ctx context.Context) ([]*models.HandlerRegistration, error) {
	var registrations []*models.HandlerRegistration
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&registrations).Error
	return registrations, err
}
