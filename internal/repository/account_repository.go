// Package repository provides data access interfaces and implementations
package repository

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"quiz-backend/internal/models"
	"quiz-backend/internal/utils"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
)

// ErrInsufficientBalance is returned when a debit would take an account
// below zero. Callers must treat it as a hard failure: no partial transfer
// is ever applied.
var ErrInsufficientBalance = errors.New("insufficient account balance")

// AccountRepository is the internal funds ledger. All mutating methods must
// be called with the transaction handle of the operation they belong to so
// that fund movement commits or rolls back atomically with the business
// state it pays for.
type AccountRepository interface {
	Balance(db *gorm.DB, addr common.Address) (*big.Int, error)
	Credit(tx *gorm.DB, addr common.Address, amount *big.Int) error
	Debit(tx *gorm.DB, addr common.Address, amount *big.Int) error
	Transfer(tx *gorm.DB, from, to common.Address, amount *big.Int) error
}

type accountRepository struct{}

// NewAccountRepository creates a new AccountRepository instance
func NewAccountRepository() AccountRepository {
	return &accountRepository{}
}

func (r *accountRepository) load(db *gorm.DB, addr common.Address) (*models.Account, error) {
	key := utils.AddressKey(addr)
	var account models.Account
	err := db.Where("address = ?", key).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		account = models.Account{
			Address:   key,
			Balance:   "0",
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := db.Create(&account).Error; err != nil {
			return nil, fmt.Errorf("failed to create account %s: %w", key, err)
		}
		return &account, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Balance returns the current balance of addr. Unknown accounts read as
// zero without creating a row.
func (r *accountRepository) Balance(db *gorm.DB, addr common.Address) (*big.Int, error) {
	var account models.Account
	err := db.Where("address = ?", utils.AddressKey(addr)).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	return utils.ParseWei(account.Balance)
}

// Credit adds amount to addr, creating the account row if needed.
func (r *accountRepository) Credit(tx *gorm.DB, addr common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("negative credit amount")
	}
	account, err := r.load(tx, addr)
	if err != nil {
		return err
	}
	balance, err := utils.ParseWei(account.Balance)
	if err != nil {
		return err
	}
	account.Balance = utils.FormatWei(new(big.Int).Add(balance, amount))
	account.UpdatedAt = time.Now()
	return tx.Save(account).Error
}

// Debit removes amount from addr, failing with ErrInsufficientBalance when
// the account does not hold enough.
func (r *accountRepository) Debit(tx *gorm.DB, addr common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("negative debit amount")
	}
	account, err := r.load(tx, addr)
	if err != nil {
		return err
	}
	balance, err := utils.ParseWei(account.Balance)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	account.Balance = utils.FormatWei(new(big.Int).Sub(balance, amount))
	account.UpdatedAt = time.Now()
	return tx.Save(account).Error
}

// Transfer atomically moves amount from one account to another. Zero-amount
// transfers are a no-op, not an error.
func (r *accountRepository) Transfer(tx *gorm.DB, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}
	if err := r.Debit(tx, from, amount); err != nil {
		return err
	}
	return r.Credit(tx, to, amount)
}
