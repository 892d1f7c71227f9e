package handlers

import (
	"errors"
	"net/http"

	"quiz-backend/internal/dto"
	"quiz-backend/internal/repository"
	"quiz-backend/internal/services"
	"quiz-backend/internal/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// QuizHandler exposes the escrow state machine: result recording, quiz
// termination, fee withdrawal and the read views the Discord bot polls.
type QuizHandler struct {
	escrowService  *services.QuizEscrowService
	handlerService *services.QuizHandlerService
	escrowRepo     repository.EscrowRepository
}

// NewQuizHandler creates a new QuizHandler instance
func NewQuizHandler(
	escrowService *services.QuizEscrowService,
	handlerService *services.QuizHandlerService,
	escrowRepo repository.EscrowRepository,
) *QuizHandler {
	return &QuizHandler{
		escrowService:  escrowService,
		handlerService: handlerService,
		escrowRepo:     escrowRepo,
	}
}

func escrowErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrEscrowNotFound):
		return http.StatusNotFound, "ESCROW_NOT_FOUND"
	case errors.Is(err, services.ErrNotOperator):
		return http.StatusForbidden, "NOT_OPERATOR"
	case errors.Is(err, services.ErrNotAuthorizedToEnd):
		return http.StatusForbidden, "NOT_AUTHORIZED"
	case errors.Is(err, services.ErrQuizEnded), errors.Is(err, services.ErrAlreadyEnded):
		return http.StatusConflict, "QUIZ_ENDED"
	case errors.Is(err, services.ErrQuizExpired):
		return http.StatusConflict, "QUIZ_EXPIRED"
	case errors.Is(err, services.ErrAlreadyParticipated):
		return http.StatusConflict, "ALREADY_PARTICIPATED"
	case errors.Is(err, services.ErrInsufficientEscrowBalance):
		return http.StatusPaymentRequired, "INSUFFICIENT_ESCROW_BALANCE"
	case errors.Is(err, services.ErrZeroParticipant), errors.Is(err, services.ErrEmptySubmission):
		return http.StatusBadRequest, "INVALID_SUBMISSION"
	case errors.Is(err, services.ErrNoFeesToWithdraw):
		return http.StatusConflict, "NO_FEES"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func escrowParam(c *gin.Context) (common.Address, bool) {
	addr, err := utils.ParseAddress(c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid escrow address",
			"code":    "INVALID_ADDRESS",
		})
		return common.Address{}, false
	}
	return addr, true
}

// RecordResultHandler posts one participant's result and pays the reward
// POST /api/quiz/:address/results
func (h *QuizHandler) RecordResultHandler(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	escrow, ok := escrowParam(c)
	if !ok {
		return
	}

	var req dto.RecordResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request: " + err.Error(),
			"code":    "INVALID_REQUEST",
		})
		return
	}

	if !utils.IsValidAddress(req.Participant) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid participant address",
			"code":    "INVALID_ADDRESS",
		})
		return
	}

	record, err := h.escrowService.RecordResult(c.Request.Context(), caller, escrow, common.HexToAddress(req.Participant), req.CorrectCount, req.IncorrectCount)
	if err != nil {
		status, code := escrowErrorStatus(err)
		c.JSON(status, gin.H{"success": false, "error": err.Error(), "code": code})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"result":  record,
	})
}

// EndQuizHandler ends a quiz and sweeps unclaimed funds to the creator
// POST /api/quiz/:address/end
func (h *QuizHandler) EndQuizHandler(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	escrow, ok := escrowParam(c)
	if !ok {
		return
	}

	swept, err := h.escrowService.Terminate(c.Request.Context(), caller, escrow)
	if err != nil {
		status, code := escrowErrorStatus(err)
		c.JSON(status, gin.H{"success": false, "error": err.Error(), "code": code})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"returned": utils.FormatWei(swept),
	})
}

// GetQuizStatsHandler returns the aggregate quiz view
// GET /api/quiz/:address
func (h *QuizHandler) GetQuizStatsHandler(c *gin.Context) {
	escrow, ok := escrowParam(c)
	if !ok {
		return
	}

	stats, err := h.escrowService.GetQuizStats(c.Request.Context(), escrow)
	if err != nil {
		status, code := escrowErrorStatus(err)
		c.JSON(status, gin.H{"success": false, "error": err.Error(), "code": code})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"quiz":    stats,
	})
}

// GetRemainingTimeHandler returns seconds until the validity window closes
// GET /api/quiz/:address/remaining
func (h *QuizHandler) GetRemainingTimeHandler(c *gin.Context) {
	escrow, ok := escrowParam(c)
	if !ok {
		return
	}

	remaining, err := h.escrowService.GetRemainingTime(c.Request.Context(), escrow)
	if err != nil {
		status, code := escrowErrorStatus(err)
		c.JSON(status, gin.H{"success": false, "error": err.Error(), "code": code})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"remaining_seconds": remaining,
	})
}

// GetQuizBalanceHandler returns the escrow ledger balance
// GET /api/quiz/:address/balance
func (h *QuizHandler) GetQuizBalanceHandler(c *gin.Context) {
	escrow, ok := escrowParam(c)
	if !ok {
		return
	}

	balance, err := h.escrowService.GetBalance(c.Request.Context(), escrow)
	if err != nil {
		status, code := escrowErrorStatus(err)
		c.JSON(status, gin.H{"success": false, "error": err.Error(), "code": code})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"balance": utils.FormatWei(balance),
	})
}

// GetParticipantHandler returns one participant's recorded result
// GET /api/quiz/:address/participants/:participant
func (h *QuizHandler) GetParticipantHandler(c *gin.Context) {
	escrow, ok := escrowParam(c)
	if !ok {
		return
	}

	participant := c.Param("participant")
	if !utils.IsValidAddress(participant) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid participant address",
			"code":    "INVALID_ADDRESS",
		})
		return
	}

	result, err := h.escrowService.GetParticipantResult(c.Request.Context(), escrow, common.HexToAddress(participant))
	if err != nil {
		status, code := escrowErrorStatus(err)
		c.JSON(status, gin.H{"success": false, "error": err.Error(), "code": code})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  result,
	})
}

// ListParticipantsHandler lists all recorded results for a quiz
// GET /api/quiz/:address/participants
func (h *QuizHandler) ListParticipantsHandler(c *gin.Context) {
	escrow, ok := escrowParam(c)
	if !ok {
		return
	}

	participants, err := h.escrowService.GetParticipants(c.Request.Context(), escrow)
	if err != nil {
		status, code := escrowErrorStatus(err)
		c.JSON(status, gin.H{"success": false, "error": err.Error(), "code": code})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"participants": participants,
		"total":        len(participants),
	})
}

// ListActiveQuizzesHandler lists quizzes that have not ended yet
// GET /api/quiz/active
func (h *QuizHandler) ListActiveQuizzesHandler(c *gin.Context) {
	quizzes, err := h.escrowRepo.ListActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to list quizzes",
			"code":    "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"quizzes": quizzes,
		"total":   len(quizzes),
	})
}

// MyQuizzesHandler lists the authenticated creator's quizzes
// GET /api/quiz/mine
func (h *QuizHandler) MyQuizzesHandler(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}

	page, pageSize := pageParams(c)
	quizzes, total, err := h.escrowRepo.ListByCreator(c.Request.Context(), utils.AddressKey(caller), page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to list quizzes",
			"code":    "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"quizzes":   quizzes,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// WithdrawFeesHandler moves accumulated deployment fees to the operator
// POST /api/handler/fees/withdraw
func (h *QuizHandler) WithdrawFeesHandler(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}

	amount, err := h.handlerService.WithdrawFees(c.Request.Context(), caller)
	if err != nil {
		status, code := escrowErrorStatus(err)
		c.JSON(status, gin.H{"success": false, "error": err.Error(), "code": code})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"amount":  utils.FormatWei(amount),
	})
}

// FeeBalanceHandler returns the handler's accumulated fee balance
// GET /api/handler/fees
func (h *QuizHandler) FeeBalanceHandler(c *gin.Context) {
	balance, err := h.handlerService.FeeBalance(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to read fee balance",
			"code":    "INTERNAL_ERROR",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"handler": utils.AddressKey(h.handlerService.Address()),
		"balance": utils.FormatWei(balance),
	})
}
