package dto

// ==================== Registry DTOs ====================

// RegisterHandlerRequest installs or replaces a handler binding
type RegisterHandlerRequest struct {
	ContractType string `json:"contract_type" binding:"required"`
}

// RemoveHandlerRequest removes a handler binding
type RemoveHandlerRequest struct {
	ContractType string `json:"contract_type" binding:"required"`
}

// TransferOwnershipRequest hands the registry to a new owner. The zero
// address renounces ownership permanently.
type TransferOwnershipRequest struct {
	NewOwner string `json:"new_owner" binding:"required"`
}

// DeployQuizRequest funds and deploys one quiz escrow
type DeployQuizRequest struct {
	ContractType    string `json:"contract_type" binding:"required"`
	Value           string `json:"value" binding:"required"` // total wei sent: fee + funding
	CorrectReward   string `json:"correct_reward"`           // wei per correct answer
	IncorrectReward string `json:"incorrect_reward"`         // wei per incorrect answer
}

// ==================== Escrow DTOs ====================

// RecordResultRequest posts one participant's quiz outcome
type RecordResultRequest struct {
	Participant    string `json:"participant" binding:"required"`
	CorrectCount   uint32 `json:"correct_count"`
	IncorrectCount uint32 `json:"incorrect_count"`
}

// ==================== Admin DTOs ====================

// CreditAccountRequest tops up a ledger account
type CreditAccountRequest struct {
	Address string `json:"address" binding:"required"`
	Amount  string `json:"amount" binding:"required"` // wei
}
