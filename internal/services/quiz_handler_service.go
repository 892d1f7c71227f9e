// Package services provides the deployment and settlement business logic.
package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"quiz-backend/internal/events"
	"quiz-backend/internal/interfaces"
	"quiz-backend/internal/models"
	"quiz-backend/internal/repository"
	"quiz-backend/internal/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// DeploymentFeeWei is the fixed fee retained by the QuizHandler per escrow
// instantiated: 0.001 ETH. The remainder of the attached value becomes the
// quiz funding.
var DeploymentFeeWei = big.NewInt(1_000_000_000_000_000)

const (
	quizHandlerType        = "QuizEscrow"
	quizHandlerVersion     = "1.0.0"
	quizHandlerDescription = "Deploys QuizEscrow contracts holding Discord quiz reward funding"
)

var (
	ErrInsufficientDeploymentFee = errors.New("insufficient payment for deployment fee")
	ErrZeroCreator               = errors.New("creator address cannot be zero")
	ErrZeroOperator              = errors.New("operator address cannot be zero")
	ErrNoFeesToWithdraw          = errors.New("no fees to withdraw")
)

// QuizHandlerService is the QuizHandler factory: it validates payment
// against the fixed deployment fee, splits the attached value into fee and
// quiz funding, and instantiates QuizEscrow instances. It implements
// interfaces.ContractHandler so the registry can dispatch to it without
// knowing the quiz parameter schema.
//
// DeployContract itself carries no caller restriction; payment correctness
// is what protects the handler. Caller policy, if any, belongs to the
// registry's surface.
type QuizHandlerService struct {
	db             *gorm.DB
	address        common.Address
	operator       common.Address
	accountRepo    repository.AccountRepository
	escrowRepo     repository.EscrowRepository
	deploymentRepo repository.DeploymentRepository
	publisher      events.Publisher
}

// NewQuizHandlerService creates the handler with its immutable operator
// identity. The operator cannot be rotated afterwards.
func NewQuizHandlerService(
	db *gorm.DB,
	address common.Address,
	operator common.Address,
	accountRepo repository.AccountRepository,
	escrowRepo repository.EscrowRepository,
	deploymentRepo repository.DeploymentRepository,
	publisher events.Publisher,
) (*QuizHandlerService, error) {
	if address == (common.Address{}) {
		return nil, errors.New("handler address cannot be zero")
	}
	if operator == (common.Address{}) {
		return nil, ErrZeroOperator
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &QuizHandlerService{
		db:             db,
		address:        address,
		operator:       operator,
		accountRepo:    accountRepo,
		escrowRepo:     escrowRepo,
		deploymentRepo: deploymentRepo,
		publisher:      publisher,
	}, nil
}

// Address implements interfaces.ContractHandler.
func (s *QuizHandlerService) Address() common.Address {
	return s.address
}

// Operator returns the immutable authorized operator.
func (s *QuizHandlerService) Operator() common.Address {
	return s.operator
}

// HandlerInfo implements interfaces.ContractHandler.
func (s *QuizHandlerService) HandlerInfo() interfaces.HandlerInfo {
	return interfaces.HandlerInfo{
		ContractType: quizHandlerType,
		Version:      quizHandlerVersion,
		Description:  quizHandlerDescription,
	}
}

// GetDeploymentFee implements interfaces.ContractHandler. The fee is
// parameter-independent for this handler type.
func (s *QuizHandlerService) GetDeploymentFee(_ []byte) *big.Int {
	return new(big.Int).Set(DeploymentFeeWei)
}

// DeployContract implements interfaces.ContractHandler. It runs inside the
// registry's transaction: the escrow row, the funding credit and the fee
// credit all commit or roll back together with the registry's ledger entry.
func (s *QuizHandlerService) DeployContract(tx *gorm.DB, creator common.Address, params []byte, value *big.Int) (common.Address, error) {
	if creator == (common.Address{}) {
		return common.Address{}, ErrZeroCreator
	}
	if value == nil {
		value = big.NewInt(0)
	}

	correctReward, incorrectReward, err := DecodeQuizParams(params)
	if err != nil {
		return common.Address{}, err
	}

	if value.Cmp(DeploymentFeeWei) < 0 {
		return common.Address{}, ErrInsufficientDeploymentFee
	}
	quizFunding := new(big.Int).Sub(value, DeploymentFeeWei)

	nonce, err := s.deploymentRepo.CountByHandler(tx, utils.AddressKey(s.address))
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to derive escrow nonce: %w", err)
	}
	escrowAddr := crypto.CreateAddress(s.address, uint64(nonce))

	now := time.Now()
	escrow := &models.QuizEscrow{
		Address:         utils.AddressKey(escrowAddr),
		Creator:         utils.AddressKey(creator),
		Operator:        utils.AddressKey(s.operator),
		CorrectReward:   utils.FormatWei(correctReward),
		IncorrectReward: utils.FormatWei(incorrectReward),
		FundingAmount:   utils.FormatWei(quizFunding),
		TotalPaidOut:    "0",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.escrowRepo.Create(tx, escrow); err != nil {
		return common.Address{}, fmt.Errorf("failed to create escrow: %w", err)
	}

	if err := s.accountRepo.Credit(tx, escrowAddr, quizFunding); err != nil {
		return common.Address{}, fmt.Errorf("failed to fund escrow: %w", err)
	}
	if err := s.accountRepo.Credit(tx, s.address, DeploymentFeeWei); err != nil {
		return common.Address{}, fmt.Errorf("failed to credit deployment fee: %w", err)
	}

	s.publisher.Publish(events.New(events.ContractQuizHandler, events.TypeQuizDeployed, events.QuizDeployedPayload{
		Creator:         utils.AddressKey(creator),
		EscrowAddress:   utils.AddressKey(escrowAddr),
		CorrectReward:   utils.FormatWei(correctReward),
		IncorrectReward: utils.FormatWei(incorrectReward),
		FundingAmount:   utils.FormatWei(quizFunding),
		FeeCharged:      utils.FormatWei(DeploymentFeeWei),
	}))
	s.publisher.Publish(events.New(events.ContractQuizEscrow, events.TypeQuizCreated, events.QuizCreatedPayload{
		EscrowAddress:   utils.AddressKey(escrowAddr),
		Creator:         utils.AddressKey(creator),
		Operator:        utils.AddressKey(s.operator),
		FundingAmount:   utils.FormatWei(quizFunding),
		CorrectReward:   utils.FormatWei(correctReward),
		IncorrectReward: utils.FormatWei(incorrectReward),
	}))

	logrus.WithFields(logrus.Fields{
		"escrow":  utils.AddressKey(escrowAddr),
		"creator": utils.AddressKey(creator),
		"funding": utils.WeiToEtherString(quizFunding),
	}).Info("✅ Quiz escrow deployed")

	return escrowAddr, nil
}

// WithdrawFees sweeps the handler's entire accumulated fee balance to the
// authorized operator. Fails when the balance is zero; there is no partial
// withdrawal.
func (s *QuizHandlerService) WithdrawFees(ctx context.Context, caller common.Address) (*big.Int, error) {
	if caller != s.operator {
		return nil, ErrNotOperator
	}

	var withdrawn *big.Int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		balance, err := s.accountRepo.Balance(tx, s.address)
		if err != nil {
			return err
		}
		if balance.Sign() == 0 {
			return ErrNoFeesToWithdraw
		}
		if err := s.accountRepo.Transfer(tx, s.address, s.operator, balance); err != nil {
			return err
		}
		withdrawn = balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(events.New(events.ContractQuizHandler, events.TypeFeesWithdrawn, events.FeesWithdrawnPayload{
		HandlerAddress: utils.AddressKey(s.address),
		Operator:       utils.AddressKey(s.operator),
		Amount:         utils.FormatWei(withdrawn),
	}))

	logrus.WithFields(logrus.Fields{
		"operator": utils.AddressKey(s.operator),
		"amount":   utils.WeiToEtherString(withdrawn),
	}).Info("✅ Deployment fees withdrawn")

	return withdrawn, nil
}

// FeeBalance returns the currently accumulated, not yet withdrawn fees.
func (s *QuizHandlerService) FeeBalance(ctx context.Context) (*big.Int, error) {
	return s.accountRepo.Balance(s.db.WithContext(ctx), s.address)
}
