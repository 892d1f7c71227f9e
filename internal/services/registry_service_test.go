package services

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"quiz-backend/internal/interfaces"
	"quiz-backend/internal/models"
	"quiz-backend/internal/repository"
	"quiz-backend/internal/utils"

	"github.com/ethereum/go-ethereum/crypto"
)

func TestRegisterHandlerOwnerOnly(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	err := s.registry.RegisterHandler(ctx, testStranger, "QuizEscrow", s.handler)
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}

	if err := s.registry.RegisterHandler(ctx, testOwner, "QuizEscrow", s.handler); err != nil {
		t.Fatalf("owner registration failed: %v", err)
	}

	types := s.registry.ContractTypes()
	if len(types) != 1 || types[0] != "QuizEscrow" {
		t.Fatalf("unexpected contract types: %v", types)
	}
}

func TestRegisterHandlerRejectsInvalidInput(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	if err := s.registry.RegisterHandler(ctx, testOwner, "  ", s.handler); !errors.Is(err, ErrEmptyContractType) {
		t.Fatalf("expected ErrEmptyContractType, got %v", err)
	}
	if err := s.registry.RegisterHandler(ctx, testOwner, "QuizEscrow", nil); !errors.Is(err, ErrNilHandler) {
		t.Fatalf("expected ErrNilHandler, got %v", err)
	}
}

func TestRegisterHandlerReplaceKeepsSingleEntry(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	if err := s.registry.RegisterHandler(ctx, testOwner, "QuizEscrow", s.handler); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if err := s.registry.RegisterHandler(ctx, testOwner, "QuizEscrow", s.handler); err != nil {
		t.Fatalf("replacement failed: %v", err)
	}

	if types := s.registry.ContractTypes(); len(types) != 1 {
		t.Fatalf("replacement duplicated contract type list: %v", types)
	}
}

func TestRemoveHandlerUnknownType(t *testing.T) {
	s := newTestStack(t)

	err := s.registry.RemoveHandler(context.Background(), testOwner, "NoSuchType")
	if !errors.Is(err, ErrHandlerNotRegistered) {
		t.Fatalf("expected ErrHandlerNotRegistered, got %v", err)
	}
}

func TestRemoveHandlerMakesTypeUndeployable(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	if err := s.registry.RegisterHandler(ctx, testOwner, "QuizEscrow", s.handler); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := s.registry.RemoveHandler(ctx, testOwner, "QuizEscrow"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	if types := s.registry.ContractTypes(); len(types) != 0 {
		t.Fatalf("contract types not empty after removal: %v", types)
	}

	_, err := s.registry.DeployContract(ctx, testCreator, "QuizEscrow", nil, DeploymentFeeWei)
	if !errors.Is(err, ErrHandlerNotRegistered) {
		t.Fatalf("expected ErrHandlerNotRegistered after removal, got %v", err)
	}
}

func TestTransferOwnership(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	if err := s.registry.TransferOwnership(ctx, testOwner, testOwner); !errors.Is(err, ErrSameOwner) {
		t.Fatalf("expected ErrSameOwner, got %v", err)
	}

	if err := s.registry.TransferOwnership(ctx, testOwner, testStranger); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	owner, err := s.registry.Owner(ctx)
	if err != nil {
		t.Fatalf("read owner: %v", err)
	}
	if owner != utils.AddressKey(testStranger) {
		t.Fatalf("owner not updated: %s", owner)
	}

	// previous owner lost control
	if err := s.registry.RegisterHandler(ctx, testOwner, "QuizEscrow", s.handler); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner for previous owner, got %v", err)
	}
	if err := s.registry.RegisterHandler(ctx, testStranger, "QuizEscrow", s.handler); err != nil {
		t.Fatalf("new owner registration failed: %v", err)
	}
}

func TestRenounceOwnershipIsPermanent(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	if err := s.registry.RenounceOwnership(ctx, testOwner); err != nil {
		t.Fatalf("renounce failed: %v", err)
	}

	owner, err := s.registry.Owner(ctx)
	if err != nil {
		t.Fatalf("read owner: %v", err)
	}
	if owner != utils.ZeroAddress {
		t.Fatalf("owner not zeroed: %s", owner)
	}

	// nobody can administer the registry anymore, not even the old owner
	if err := s.registry.RegisterHandler(ctx, testOwner, "QuizEscrow", s.handler); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner after renounce, got %v", err)
	}
}

func TestDeployContractSplitsFeeAndFunding(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	funding := wei(10_000)
	escrowAddr := s.deployQuiz(t, wei(100), wei(10), funding)

	// first deployment through this handler uses nonce 0
	expected := crypto.CreateAddress(testHandlerAddr, 0)
	if escrowAddr != expected {
		t.Fatalf("escrow address mismatch: got %s want %s", escrowAddr.Hex(), expected.Hex())
	}

	if got := balanceOf(t, s.db, s.accounts, testCreator); got.Sign() != 0 {
		t.Fatalf("creator balance not fully debited: %s", got)
	}
	if got := balanceOf(t, s.db, s.accounts, escrowAddr); got.Cmp(funding) != 0 {
		t.Fatalf("escrow funding mismatch: got %s want %s", got, funding)
	}
	if got := balanceOf(t, s.db, s.accounts, testHandlerAddr); got.Cmp(DeploymentFeeWei) != 0 {
		t.Fatalf("handler fee mismatch: got %s want %s", got, DeploymentFeeWei)
	}

	total, err := s.registry.TotalDeployed(ctx)
	if err != nil {
		t.Fatalf("count deployments: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected 1 deployment, got %d", total)
	}

	mine, count, err := s.registry.GetUserDeployments(ctx, testCreator, 1, 20)
	if err != nil {
		t.Fatalf("list deployments: %v", err)
	}
	if count != 1 || len(mine) != 1 {
		t.Fatalf("creator deployment history wrong: count=%d len=%d", count, len(mine))
	}
	if mine[0].ContractAddress != utils.AddressKey(escrowAddr) {
		t.Fatalf("ledger entry address mismatch: %s", mine[0].ContractAddress)
	}
}

func TestDeployContractSequentialNonces(t *testing.T) {
	s := newTestStack(t)

	first := s.deployQuiz(t, wei(100), wei(0), wei(5_000))

	// second deployment, same handler, nonce 1
	value := new(big.Int).Add(DeploymentFeeWei, wei(5_000))
	creditAccount(t, s.db, s.accounts, testCreator, value)
	params, _ := EncodeQuizParams(wei(100), wei(0))
	deployment, err := s.registry.DeployContract(context.Background(), testCreator, "QuizEscrow", params, value)
	if err != nil {
		t.Fatalf("second deploy failed: %v", err)
	}

	second := crypto.CreateAddress(testHandlerAddr, 1)
	if deployment.ContractAddress != utils.AddressKey(second) {
		t.Fatalf("second escrow address mismatch: got %s want %s", deployment.ContractAddress, utils.AddressKey(second))
	}
	if deployment.ContractAddress == utils.AddressKey(first) {
		t.Fatal("second deployment reused the first escrow address")
	}
}

func TestDeployContractInsufficientFee(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	if err := s.registry.RegisterHandler(ctx, testOwner, "QuizEscrow", s.handler); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	short := new(big.Int).Sub(DeploymentFeeWei, wei(1))
	creditAccount(t, s.db, s.accounts, testCreator, short)
	params, _ := EncodeQuizParams(wei(100), wei(10))

	_, err := s.registry.DeployContract(ctx, testCreator, "QuizEscrow", params, short)
	if !errors.Is(err, ErrInsufficientFee) {
		t.Fatalf("expected ErrInsufficientFee, got %v", err)
	}

	// nothing was charged
	if got := balanceOf(t, s.db, s.accounts, testCreator); got.Cmp(short) != 0 {
		t.Fatalf("creator was charged on failed deploy: %s", got)
	}
}

func TestDeployContractRollsBackOnInsufficientBalance(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	if err := s.registry.RegisterHandler(ctx, testOwner, "QuizEscrow", s.handler); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// value covers the fee so the quote passes, but the account holds nothing
	params, _ := EncodeQuizParams(wei(100), wei(10))
	_, err := s.registry.DeployContract(ctx, testCreator, "QuizEscrow", params, DeploymentFeeWei)
	if !errors.Is(err, repository.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	// the whole transaction rolled back: no ledger entry, no escrow row
	total, err := s.registry.TotalDeployed(ctx)
	if err != nil {
		t.Fatalf("count deployments: %v", err)
	}
	if total != 0 {
		t.Fatalf("deployment ledger not empty after rollback: %d", total)
	}

	var escrowCount int64
	if err := s.db.Model(&models.QuizEscrow{}).Count(&escrowCount).Error; err != nil {
		t.Fatalf("count escrows: %v", err)
	}
	if escrowCount != 0 {
		t.Fatalf("escrow row survived rollback: %d", escrowCount)
	}
	if got := balanceOf(t, s.db, s.accounts, testHandlerAddr); got.Sign() != 0 {
		t.Fatalf("handler credited on failed deploy: %s", got)
	}
}

func TestRestoreHandlersReattachesPersistedRegistrations(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	if err := s.registry.RegisterHandler(ctx, testOwner, "QuizEscrow", s.handler); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// simulate a restart with a fresh registry over the same database
	restarted := NewRegistryService(s.db, s.accounts,
		repository.NewDeploymentRepository(s.db),
		repository.NewRegistrationRepository(s.db), nil)
	if len(restarted.ContractTypes()) != 0 {
		t.Fatal("fresh registry should start empty")
	}

	if err := restarted.RestoreHandlers(ctx, map[string]interfaces.ContractHandler{"QuizEscrow": s.handler}); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	types := restarted.ContractTypes()
	if len(types) != 1 || types[0] != "QuizEscrow" {
		t.Fatalf("restored types wrong: %v", types)
	}

	fee, err := restarted.GetDeploymentFee("QuizEscrow", nil)
	if err != nil {
		t.Fatalf("quote after restore failed: %v", err)
	}
	if fee.Cmp(DeploymentFeeWei) != 0 {
		t.Fatalf("fee mismatch after restore: %s", fee)
	}
}
