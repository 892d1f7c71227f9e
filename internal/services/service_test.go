package services

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"quiz-backend/internal/db"
	"quiz-backend/internal/models"
	"quiz-backend/internal/repository"
	"quiz-backend/internal/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	testOwner       = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testOperator    = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testHandlerAddr = common.HexToAddress("0x3333333333333333333333333333333333333333")
	testCreator     = common.HexToAddress("0x4444444444444444444444444444444444444444")
	testParticipant = common.HexToAddress("0x5555555555555555555555555555555555555555")
	testStranger    = common.HexToAddress("0x6666666666666666666666666666666666666666")
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return gdb
}

func seedOwner(t *testing.T, gdb *gorm.DB, owner common.Address) {
	t.Helper()
	row := models.GlobalConfig{
		ConfigKey:   "registry_owner",
		ConfigValue: utils.AddressKey(owner),
		Description: "Current registry owner (zero address = renounced)",
		UpdatedBy:   "test",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := gdb.Create(&row).Error; err != nil {
		t.Fatalf("seed registry owner: %v", err)
	}
}

func creditAccount(t *testing.T, gdb *gorm.DB, accounts repository.AccountRepository, addr common.Address, amount *big.Int) {
	t.Helper()
	err := gdb.Transaction(func(tx *gorm.DB) error {
		return accounts.Credit(tx, addr, amount)
	})
	if err != nil {
		t.Fatalf("credit %s: %v", utils.AddressKey(addr), err)
	}
}

func balanceOf(t *testing.T, gdb *gorm.DB, accounts repository.AccountRepository, addr common.Address) *big.Int {
	t.Helper()
	balance, err := accounts.Balance(gdb, addr)
	if err != nil {
		t.Fatalf("balance of %s: %v", utils.AddressKey(addr), err)
	}
	return balance
}

// testStack is the wired service triad over one in-memory database.
type testStack struct {
	db       *gorm.DB
	accounts repository.AccountRepository

	registry *RegistryService
	handler  *QuizHandlerService
	escrow   *QuizEscrowService
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	gdb := newTestDB(t)
	seedOwner(t, gdb, testOwner)

	accounts := repository.NewAccountRepository()
	deployments := repository.NewDeploymentRepository(gdb)
	escrows := repository.NewEscrowRepository(gdb)
	participants := repository.NewParticipantRepository(gdb)
	registrations := repository.NewRegistrationRepository(gdb)

	handler, err := NewQuizHandlerService(gdb, testHandlerAddr, testOperator, accounts, escrows, deployments, nil)
	if err != nil {
		t.Fatalf("create handler service: %v", err)
	}

	return &testStack{
		db:       gdb,
		accounts: accounts,
		registry: NewRegistryService(gdb, accounts, deployments, registrations, nil),
		handler:  handler,
		escrow:   NewQuizEscrowService(gdb, escrows, participants, accounts, nil),
	}
}

// deployQuiz registers the handler, funds the creator and deploys one quiz.
// Returns the escrow address.
func (s *testStack) deployQuiz(t *testing.T, correctReward, incorrectReward, funding *big.Int) common.Address {
	t.Helper()

	ctx := context.Background()
	if err := s.registry.RegisterHandler(ctx, testOwner, "QuizEscrow", s.handler); err != nil {
		t.Fatalf("register handler: %v", err)
	}

	value := new(big.Int).Add(DeploymentFeeWei, funding)
	creditAccount(t, s.db, s.accounts, testCreator, value)

	params, err := EncodeQuizParams(correctReward, incorrectReward)
	if err != nil {
		t.Fatalf("encode params: %v", err)
	}

	deployment, err := s.registry.DeployContract(ctx, testCreator, "QuizEscrow", params, value)
	if err != nil {
		t.Fatalf("deploy quiz: %v", err)
	}
	return common.HexToAddress(deployment.ContractAddress)
}

func wei(v int64) *big.Int {
	return big.NewInt(v)
}
