package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"quiz-backend/internal/dto"
	"quiz-backend/internal/interfaces"
	"quiz-backend/internal/services"
	"quiz-backend/internal/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// RegistryHandler exposes the factory registry: handler bindings, ownership
// and contract deployment.
type RegistryHandler struct {
	registryService *services.RegistryService
	// compiled-in handlers available for registration, by contract type
	available map[string]interfaces.ContractHandler
}

// NewRegistryHandler creates a new RegistryHandler instance
func NewRegistryHandler(registryService *services.RegistryService, available map[string]interfaces.ContractHandler) *RegistryHandler {
	return &RegistryHandler{
		registryService: registryService,
		available:       available,
	}
}

// callerAddress reads the authenticated wallet address set by the JWT
// middleware.
func callerAddress(c *gin.Context) (common.Address, bool) {
	raw, exists := c.Get("user_address")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "Authentication required",
			"code":    "MISSING_AUTH",
		})
		return common.Address{}, false
	}
	addr, err := utils.ParseAddress(raw.(string))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   "Invalid caller address",
			"code":    "INVALID_CALLER",
		})
		return common.Address{}, false
	}
	return addr, true
}

// pageParams reads ?page= and ?page_size= with sane defaults.
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

// registryErrorStatus maps registry sentinel errors to HTTP codes.
func registryErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrNotOwner):
		return http.StatusForbidden, "NOT_OWNER"
	case errors.Is(err, services.ErrHandlerNotRegistered):
		return http.StatusNotFound, "HANDLER_NOT_REGISTERED"
	case errors.Is(err, services.ErrEmptyContractType), errors.Is(err, services.ErrNilHandler), errors.Is(err, services.ErrSameOwner):
		return http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, services.ErrInsufficientFee), errors.Is(err, services.ErrInsufficientDeploymentFee):
		return http.StatusPaymentRequired, "INSUFFICIENT_FEE"
	case errors.Is(err, services.ErrDeploymentFailed):
		return http.StatusBadGateway, "DEPLOYMENT_FAILED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// GetOwnerHandler returns the current registry owner
// GET /api/registry/owner
func (h *RegistryHandler) GetOwnerHandler(c *gin.Context) {
	owner, err := h.registryService.Owner(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to read registry owner",
			"code":    "INTERNAL_ERROR",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"owner":     owner,
		"renounced": owner == utils.ZeroAddress,
	})
}

// RegisterHandlerHandler binds one of the compiled-in handlers under a
// contract type. Owner only.
// POST /api/registry/handlers
func (h *RegistryHandler) RegisterHandlerHandler(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}

	var req dto.RegisterHandlerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request: " + err.Error(),
			"code":    "INVALID_REQUEST",
		})
		return
	}

	handler, found := h.available[req.ContractType]
	if !found {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "No handler implementation available for contract type",
			"code":    "HANDLER_UNAVAILABLE",
		})
		return
	}

	if err := h.registryService.RegisterHandler(c.Request.Context(), caller, req.ContractType, handler); err != nil {
		status, code := registryErrorStatus(err)
		c.JSON(status, gin.H{"success": false, "error": err.Error(), "code": code})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"contract_type": req.ContractType,
		"handler":       utils.AddressKey(handler.Address()),
	})
}

// RemoveHandlerHandler unbinds a contract type. Owner only.
// DELETE /api/registry/handlers/:type
func (h *RegistryHandler) RemoveHandlerHandler(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}

	contractType := c.Param("type")
	if err := h.registryService.RemoveHandler(c.Request.Context(), caller, contractType); err != nil {
		status, code := registryErrorStatus(err)
		c.JSON(status, gin.H{"success": false, "error": err.Error(), "code": code})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"contract_type": contractType,
	})
}

// TransferOwnershipHandler hands the registry to a new owner. The zero
// address renounces ownership permanently.
// POST /api/registry/ownership
func (h *RegistryHandler) TransferOwnershipHandler(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}

	var req dto.TransferOwnershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request: " + err.Error(),
			"code":    "INVALID_REQUEST",
		})
		return
	}

	if !utils.IsValidAddress(req.NewOwner) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid new owner address",
			"code":    "INVALID_ADDRESS",
		})
		return
	}

	newOwner := common.HexToAddress(req.NewOwner)
	if err := h.registryService.TransferOwnership(c.Request.Context(), caller, newOwner); err != nil {
		status, code := registryErrorStatus(err)
		c.JSON(status, gin.H{"success": false, "error": err.Error(), "code": code})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"new_owner": utils.AddressKey(newOwner),
	})
}

// RenounceOwnershipHandler permanently renounces registry ownership. Every
// owner-gated operation is disabled afterwards.
// POST /api/registry/ownership/renounce
func (h *RegistryHandler) RenounceOwnershipHandler(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}

	if err := h.registryService.RenounceOwnership(c.Request.Context(), caller); err != nil {
		status, code := registryErrorStatus(err)
		c.JSON(status, gin.H{"success": false, "error": err.Error(), "code": code})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"owner":   utils.ZeroAddress,
	})
}

// ListContractTypesHandler lists the currently registered contract types
// GET /api/registry/types
func (h *RegistryHandler) ListContractTypesHandler(c *gin.Context) {
	types := h.registryService.ContractTypes()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"types":   types,
		"total":   len(types),
	})
}

// GetHandlerInfoHandler returns version metadata for one contract type
// GET /api/registry/handlers/:type
func (h *RegistryHandler) GetHandlerInfoHandler(c *gin.Context) {
	info, err := h.registryService.GetHandlerInfo(c.Param("type"))
	if err != nil {
		status, code := registryErrorStatus(err)
		c.JSON(status, gin.H{"success": false, "error": err.Error(), "code": code})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"info":    info,
	})
}

// GetDeploymentFeeHandler quotes the deployment fee for a contract type
// GET /api/registry/handlers/:type/fee
func (h *RegistryHandler) GetDeploymentFeeHandler(c *gin.Context) {
	fee, err := h.registryService.GetDeploymentFee(c.Param("type"), nil)
	if err != nil {
		status, code := registryErrorStatus(err)
		c.JSON(status, gin.H{"success": false, "error": err.Error(), "code": code})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"fee":     utils.FormatWei(fee),
	})
}

// DeployQuizHandler funds and deploys a new quiz escrow through the registry
// POST /api/registry/deploy
func (h *RegistryHandler) DeployQuizHandler(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}

	var req dto.DeployQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request: " + err.Error(),
			"code":    "INVALID_REQUEST",
		})
		return
	}

	value, err := utils.ParseWei(req.Value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid value: " + err.Error(),
			"code":    "INVALID_AMOUNT",
		})
		return
	}

	correctReward, err := utils.ParseWei(req.CorrectReward)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid correct_reward: " + err.Error(),
			"code":    "INVALID_AMOUNT",
		})
		return
	}
	incorrectReward, err := utils.ParseWei(req.IncorrectReward)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid incorrect_reward: " + err.Error(),
			"code":    "INVALID_AMOUNT",
		})
		return
	}

	params, err := services.EncodeQuizParams(correctReward, incorrectReward)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid reward parameters: " + err.Error(),
			"code":    "INVALID_PARAMS",
		})
		return
	}

	deployment, err := h.registryService.DeployContract(c.Request.Context(), caller, req.ContractType, params, value)
	if err != nil {
		status, code := registryErrorStatus(err)
		c.JSON(status, gin.H{"success": false, "error": err.Error(), "code": code})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"deployment": deployment,
	})
}

// TotalDeployedHandler returns the global deployment count
// GET /api/registry/deployments/total
func (h *RegistryHandler) TotalDeployedHandler(c *gin.Context) {
	total, err := h.registryService.TotalDeployed(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to count deployments",
			"code":    "INTERNAL_ERROR",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"total":   total,
	})
}

// ListDeploymentsHandler lists all deployments, newest first
// GET /api/registry/deployments
func (h *RegistryHandler) ListDeploymentsHandler(c *gin.Context) {
	page, pageSize := pageParams(c)
	deployments, total, err := h.registryService.GetAllDeployments(c.Request.Context(), page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to list deployments",
			"code":    "INTERNAL_ERROR",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"deployments": deployments,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
	})
}

// MyDeploymentsHandler lists the authenticated caller's deployments
// GET /api/registry/deployments/mine
func (h *RegistryHandler) MyDeploymentsHandler(c *gin.Context) {
	caller, ok := callerAddress(c)
	if !ok {
		return
	}

	page, pageSize := pageParams(c)
	deployments, total, err := h.registryService.GetUserDeployments(c.Request.Context(), caller, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to list deployments",
			"code":    "INTERNAL_ERROR",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"deployments": deployments,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
	})
}
