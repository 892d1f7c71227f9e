package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"quiz-backend/internal/events"
	"quiz-backend/internal/interfaces"
	"quiz-backend/internal/metrics"
	"quiz-backend/internal/models"
	"quiz-backend/internal/repository"
	"quiz-backend/internal/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const registryOwnerKey = "registry_owner"

var (
	ErrNotOwner             = errors.New("caller is not the registry owner")
	ErrEmptyContractType    = errors.New("contract type cannot be empty")
	ErrNilHandler           = errors.New("handler cannot be nil")
	ErrHandlerNotRegistered = errors.New("no handler registered for contract type")
	ErrInsufficientFee      = errors.New("insufficient payment for deployment fee")
	ErrDeploymentFailed     = errors.New("handler returned zero contract address")
	ErrSameOwner            = errors.New("new owner must differ from current owner")
)

// RegistryService is the MotherFactory: it maps contract-type names to
// handlers, delegates deployment and fee quotes to them, and keeps the
// append-only ledger of everything deployed through it. It holds no quiz
// domain logic of its own.
//
// Deployment is serialized by a mutex so ledger appends and value movement
// are totally ordered; the handler map has its own lock because reads
// (quotes, lookups) vastly outnumber registrations.
type RegistryService struct {
	db *gorm.DB

	handlerMu     sync.RWMutex
	handlers      map[string]interfaces.ContractHandler
	contractTypes []string

	deployMu sync.Mutex

	accountRepo      repository.AccountRepository
	deploymentRepo   repository.DeploymentRepository
	registrationRepo repository.RegistrationRepository
	publisher        events.Publisher
}

// NewRegistryService creates an empty registry. Handlers are attached
// afterwards through RegisterHandler by the owner.
func NewRegistryService(
	db *gorm.DB,
	accountRepo repository.AccountRepository,
	deploymentRepo repository.DeploymentRepository,
	registrationRepo repository.RegistrationRepository,
	publisher events.Publisher,
) *RegistryService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &RegistryService{
		db:               db,
		handlers:         make(map[string]interfaces.ContractHandler),
		contractTypes:    make([]string, 0),
		accountRepo:      accountRepo,
		deploymentRepo:   deploymentRepo,
		registrationRepo: registrationRepo,
		publisher:        publisher,
	}
}

// Owner returns the current registry owner. The zero address means
// ownership has been renounced.
func (s *RegistryService) Owner(ctx context.Context) (string, error) {
	var row models.GlobalConfig
	err := s.db.WithContext(ctx).Where("config_key = ?", registryOwnerKey).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.ZeroAddress, nil
	}
	if err != nil {
		return "", err
	}
	return utils.NormalizeAddress(row.ConfigValue), nil
}

func (s *RegistryService) requireOwner(ctx context.Context, caller common.Address) error {
	owner, err := s.Owner(ctx)
	if err != nil {
		return err
	}
	if utils.IsZeroAddress(owner) || utils.AddressKey(caller) != owner {
		return ErrNotOwner
	}
	return nil
}

func (s *RegistryService) setOwner(ctx context.Context, newOwner string, updatedBy common.Address) error {
	return s.db.WithContext(ctx).Model(&models.GlobalConfig{}).
		Where("config_key = ?", registryOwnerKey).
		Updates(map[string]interface{}{
			"config_value": newOwner,
			"updated_by":   utils.AddressKey(updatedBy),
			"updated_at":   time.Now(),
		}).Error
}

// RegisterHandler registers or replaces the handler for a contract type.
// Owner-only. Replacing an existing registration does not add a second
// entry to the contract-type list.
func (s *RegistryService) RegisterHandler(ctx context.Context, caller common.Address, contractType string, handler interfaces.ContractHandler) error {
	if err := s.requireOwner(ctx, caller); err != nil {
		return err
	}
	contractType = strings.TrimSpace(contractType)
	if contractType == "" {
		return ErrEmptyContractType
	}
	if handler == nil {
		return ErrNilHandler
	}

	info := handler.HandlerInfo()
	if err := s.registrationRepo.Upsert(ctx, &models.HandlerRegistration{
		ID:             uuid.New().String(),
		ContractType:   contractType,
		HandlerAddress: utils.AddressKey(handler.Address()),
		Version:        info.Version,
		Description:    info.Description,
		RegisteredBy:   utils.AddressKey(caller),
	}); err != nil {
		return fmt.Errorf("failed to persist handler registration: %w", err)
	}

	s.handlerMu.Lock()
	_, replaced := s.handlers[contractType]
	s.handlers[contractType] = handler
	if !replaced {
		s.contractTypes = append(s.contractTypes, contractType)
	}
	s.handlerMu.Unlock()

	s.publisher.Publish(events.New(events.ContractMotherFactory, events.TypeHandlerRegistered, events.HandlerRegisteredPayload{
		ContractType:   contractType,
		HandlerAddress: utils.AddressKey(handler.Address()),
		Owner:          utils.AddressKey(caller),
	}))

	logrus.WithFields(logrus.Fields{
		"contract_type": contractType,
		"handler":       utils.AddressKey(handler.Address()),
		"replaced":      replaced,
	}).Info("✅ Handler registered")

	return nil
}

// RemoveHandler removes a registered contract type. Owner-only; fails when
// the type is unknown. Contract-type list compaction is swap-with-last,
// order is not significant.
func (s *RegistryService) RemoveHandler(ctx context.Context, caller common.Address, contractType string) error {
	if err := s.requireOwner(ctx, caller); err != nil {
		return err
	}

	s.handlerMu.Lock()
	if _, ok := s.handlers[contractType]; !ok {
		s.handlerMu.Unlock()
		return ErrHandlerNotRegistered
	}
	delete(s.handlers, contractType)
	for i, t := range s.contractTypes {
		if t == contractType {
			last := len(s.contractTypes) - 1
			s.contractTypes[i] = s.contractTypes[last]
			s.contractTypes = s.contractTypes[:last]
			break
		}
	}
	s.handlerMu.Unlock()

	if err := s.registrationRepo.Delete(ctx, contractType); err != nil {
		return fmt.Errorf("failed to delete handler registration: %w", err)
	}

	s.publisher.Publish(events.New(events.ContractMotherFactory, events.TypeHandlerRemoved, events.HandlerRemovedPayload{
		ContractType: contractType,
		Owner:        utils.AddressKey(caller),
	}))

	return nil
}

// TransferOwnership hands the registry to a new owner. Transferring to the
// current owner is rejected; transferring to the zero address renounces
// ownership permanently and disables registration forever.
func (s *RegistryService) TransferOwnership(ctx context.Context, caller common.Address, newOwner common.Address) error {
	if err := s.requireOwner(ctx, caller); err != nil {
		return err
	}
	current, err := s.Owner(ctx)
	if err != nil {
		return err
	}
	next := utils.AddressKey(newOwner)
	if next == current {
		return ErrSameOwner
	}
	if err := s.setOwner(ctx, next, caller); err != nil {
		return err
	}

	s.publisher.Publish(events.New(events.ContractMotherFactory, events.TypeOwnershipTransferred, events.OwnershipTransferredPayload{
		PreviousOwner: current,
		NewOwner:      next,
	}))

	if utils.IsZeroAddress(next) {
		logrus.Warn("⚠️ Registry ownership renounced - handler registration is permanently disabled")
	}
	return nil
}

// RenounceOwnership is TransferOwnership to the zero address.
func (s *RegistryService) RenounceOwnership(ctx context.Context, caller common.Address) error {
	return s.TransferOwnership(ctx, caller, common.Address{})
}

func (s *RegistryService) lookupHandler(contractType string) (interfaces.ContractHandler, error) {
	s.handlerMu.RLock()
	defer s.handlerMu.RUnlock()
	handler, ok := s.handlers[contractType]
	if !ok {
		return nil, ErrHandlerNotRegistered
	}
	return handler, nil
}

// GetDeploymentFee quotes the fee for deploying a contract of the given
// type with the given params. Read-only passthrough to the handler.
func (s *RegistryService) GetDeploymentFee(contractType string, params []byte) (*big.Int, error) {
	handler, err := s.lookupHandler(contractType)
	if err != nil {
		return nil, err
	}
	return handler.GetDeploymentFee(params), nil
}

// GetHandlerInfo returns the registered handler's static metadata.
func (s *RegistryService) GetHandlerInfo(contractType string) (*interfaces.HandlerInfo, error) {
	handler, err := s.lookupHandler(contractType)
	if err != nil {
		return nil, err
	}
	info := handler.HandlerInfo()
	return &info, nil
}

// ContractTypes returns the currently registered type identifiers.
func (s *RegistryService) ContractTypes() []string {
	s.handlerMu.RLock()
	defer s.handlerMu.RUnlock()
	out := make([]string, len(s.contractTypes))
	copy(out, s.contractTypes)
	return out
}

// DeployContract deploys a new contract of the given type. The caller's
// account is debited the full attached value; the handler decides how it
// splits into fee and funding. The debit, the handler's rows and credits,
// and the ledger entry commit atomically: a failure at any stage leaves no
// orphaned escrow and no ledger entry.
func (s *RegistryService) DeployContract(ctx context.Context, caller common.Address, contractType string, params []byte, value *big.Int) (*models.Deployment, error) {
	handler, err := s.lookupHandler(contractType)
	if err != nil {
		metrics.DeploymentFailures.WithLabelValues(contractType, "unregistered").Inc()
		return nil, err
	}
	if value == nil {
		value = big.NewInt(0)
	}

	fee := handler.GetDeploymentFee(params)
	if value.Cmp(fee) < 0 {
		metrics.DeploymentFailures.WithLabelValues(contractType, "insufficient_fee").Inc()
		return nil, ErrInsufficientFee
	}

	s.deployMu.Lock()
	defer s.deployMu.Unlock()

	var deployment *models.Deployment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.accountRepo.Debit(tx, caller, value); err != nil {
			return err
		}

		contractAddr, err := handler.DeployContract(tx, caller, params, value)
		if err != nil {
			return err
		}
		if contractAddr == (common.Address{}) {
			return ErrDeploymentFailed
		}

		deployment = &models.Deployment{
			ID:              uuid.New().String(),
			Creator:         utils.AddressKey(caller),
			ContractType:    contractType,
			ContractAddress: utils.AddressKey(contractAddr),
			HandlerAddress:  utils.AddressKey(handler.Address()),
			FeeCharged:      utils.FormatWei(fee),
			CreatedAt:       time.Now(),
		}
		return s.deploymentRepo.Create(tx, deployment)
	})
	if err != nil {
		metrics.DeploymentFailures.WithLabelValues(contractType, "failed").Inc()
		return nil, err
	}

	metrics.ContractsDeployed.WithLabelValues(contractType).Inc()
	metrics.DeploymentFeesCollected.Add(float64(fee.Int64()))

	s.publisher.Publish(events.New(events.ContractMotherFactory, events.TypeContractDeployed, events.ContractDeployedPayload{
		Creator:         deployment.Creator,
		ContractType:    deployment.ContractType,
		ContractAddress: deployment.ContractAddress,
		HandlerAddress:  deployment.HandlerAddress,
		FeeCharged:      deployment.FeeCharged,
	}))

	logrus.WithFields(logrus.Fields{
		"creator":       deployment.Creator,
		"contract_type": contractType,
		"contract":      deployment.ContractAddress,
	}).Info("✅ Contract deployed through registry")

	return deployment, nil
}

// RestoreHandlers reattaches handler implementations for registrations that
// survived in the database across a restart. Registrations without a
// matching implementation are left in place but stay undeployable until
// re-registered; this is logged, not fatal.
func (s *RegistryService) RestoreHandlers(ctx context.Context, available map[string]interfaces.ContractHandler) error {
	registrations, err := s.registrationRepo.List(ctx)
	if err != nil {
		return err
	}

	s.handlerMu.Lock()
	defer s.handlerMu.Unlock()
	for _, registration := range registrations {
		handler, ok := available[registration.ContractType]
		if !ok {
			logrus.WithFields(logrus.Fields{
				"contract_type": registration.ContractType,
			}).Warn("⚠️ Persisted handler registration has no implementation in this build")
			continue
		}
		if _, attached := s.handlers[registration.ContractType]; !attached {
			s.contractTypes = append(s.contractTypes, registration.ContractType)
		}
		s.handlers[registration.ContractType] = handler
	}
	return nil
}

// TotalDeployed returns the size of the global deployment ledger.
func (s *RegistryService) TotalDeployed(ctx context.Context) (int64, error) {
	return s.deploymentRepo.Count(ctx)
}

// GetUserDeployments returns one creator's deployment history, paginated.
func (s *RegistryService) GetUserDeployments(ctx context.Context, creator common.Address, page, pageSize int) ([]*models.Deployment, int64, error) {
	return s.deploymentRepo.ListByCreator(ctx, utils.AddressKey(creator), page, pageSize)
}

// GetAllDeployments returns the global deployment ledger, paginated.
func (s *RegistryService) GetAllDeployments(ctx context.Context, page, pageSize int) ([]*models.Deployment, int64, error) {
	return s.deploymentRepo.List(ctx, page, pageSize)
}
