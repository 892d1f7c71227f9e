package handlers

import (
	"net/http"

	"quiz-backend/internal/db"
	"quiz-backend/internal/dto"
	"quiz-backend/internal/repository"
	"quiz-backend/internal/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AdminAccountHandler manages ledger accounts. Deposits arrive off-chain in
// this deployment, so crediting is an operator action behind the localhost
// restriction.
type AdminAccountHandler struct {
	accountRepo repository.AccountRepository
}

// NewAdminAccountHandler creates a new AdminAccountHandler instance
func NewAdminAccountHandler(accountRepo repository.AccountRepository) *AdminAccountHandler {
	return &AdminAccountHandler{accountRepo: accountRepo}
}

// CreditAccountHandler tops up a ledger account
// POST /api/admin/accounts/credit
func (h *AdminAccountHandler) CreditAccountHandler(c *gin.Context) {
	var req dto.CreditAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request: " + err.Error(),
			"code":    "INVALID_REQUEST",
		})
		return
	}

	addr, err := utils.ParseAddress(req.Address)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid account address",
			"code":    "INVALID_ADDRESS",
		})
		return
	}

	amount, err := utils.ParseWei(req.Amount)
	if err != nil || amount.Sign() <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Amount must be a positive wei value",
			"code":    "INVALID_AMOUNT",
		})
		return
	}

	err = db.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		return h.accountRepo.Credit(tx, addr, amount)
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to credit account",
			"code":    "INTERNAL_ERROR",
		})
		return
	}

	logrus.WithFields(logrus.Fields{
		"address": utils.AddressKey(addr),
		"amount":  utils.FormatWei(amount),
	}).Info("✅ Account credited")

	balance, err := h.accountRepo.Balance(db.DB.WithContext(c.Request.Context()), addr)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to read balance",
			"code":    "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"address": utils.AddressKey(addr),
		"balance": utils.FormatWei(balance),
	})
}

// GetAccountBalanceHandler returns the ledger balance of any address
// GET /api/accounts/:address/balance
func (h *AdminAccountHandler) GetAccountBalanceHandler(c *gin.Context) {
	address := c.Param("address")
	if !utils.IsValidAddress(address) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid account address",
			"code":    "INVALID_ADDRESS",
		})
		return
	}

	balance, err := h.accountRepo.Balance(db.DB.WithContext(c.Request.Context()), common.HexToAddress(address))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to read balance",
			"code":    "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"address": utils.NormalizeAddress(address),
		"balance": utils.FormatWei(balance),
	})
}
