// Package events defines the notifications the settlement core emits and
// the publisher capability used to deliver them. The Discord bot and other
// off-chain consumers learn about new escrows and result postings only
// through these events.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Contract names used in event subjects, matching the on-chain triad.
const (
	ContractMotherFactory = "MotherFactory"
	ContractQuizHandler   = "QuizHandler"
	ContractQuizEscrow    = "QuizEscrow"
)

// Event types.
const (
	TypeHandlerRegistered      = "HandlerRegistered"
	TypeHandlerRemoved         = "HandlerRemoved"
	TypeOwnershipTransferred   = "OwnershipTransferred"
	TypeContractDeployed       = "ContractDeployed"
	TypeQuizDeployed           = "QuizDeployed"
	TypeQuizCreated            = "QuizCreated"
	TypeResultRecorded         = "ResultRecorded"
	TypeQuizEnded              = "QuizEnded"
	TypeUnclaimedFundsReturned = "UnclaimedFundsReturned"
	TypeFeesWithdrawn          = "FeesWithdrawn"
)

// QuizEvent is one emitted notification.
type QuizEvent struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Contract  string      `json:"contract"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Publisher delivers events to the configured sinks. Implementations must
// not block the calling operation on delivery.
type Publisher interface {
	Publish(event QuizEvent)
}

// NoopPublisher discards all events. Used in tests and whenever NATS is not
// configured.
type NoopPublisher struct{}

// Publish implements Publisher.
func (NoopPublisher) Publish(QuizEvent) {}

// New creates an event with a fresh ID and the current timestamp.
func New(contract, eventType string, payload interface{}) QuizEvent {
	return QuizEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Contract:  contract,
		Timestamp: time.Now(),
		Payload:   payload,
	}
}

// HandlerRegisteredPayload carries the acting owner for audit purposes.
type HandlerRegisteredPayload struct {
	ContractType   string `json:"contract_type"`
	HandlerAddress string `json:"handler_address"`
	Owner          string `json:"owner"`
}

type HandlerRemovedPayload struct {
	ContractType string `json:"contract_type"`
	Owner        string `json:"owner"`
}

type OwnershipTransferredPayload struct {
	PreviousOwner string `json:"previous_owner"`
	NewOwner      string `json:"new_owner"`
}

type ContractDeployedPayload struct {
	Creator         string `json:"creator"`
	ContractType    string `json:"contract_type"`
	ContractAddress string `json:"contract_address"`
	HandlerAddress  string `json:"handler_address"`
	FeeCharged      string `json:"fee_charged"`
}

type QuizDeployedPayload struct {
	Creator         string `json:"creator"`
	EscrowAddress   string `json:"escrow_address"`
	CorrectReward   string `json:"correct_reward"`
	IncorrectReward string `json:"incorrect_reward"`
	FundingAmount   string `json:"funding_amount"`
	FeeCharged      string `json:"fee_charged"`
}

type QuizCreatedPayload struct {
	EscrowAddress   string `json:"escrow_address"`
	Creator         string `json:"creator"`
	Operator        string `json:"operator"`
	FundingAmount   string `json:"funding_amount"`
	CorrectReward   string `json:"correct_reward"`
	IncorrectReward string `json:"incorrect_reward"`
}

type ResultRecordedPayload struct {
	EscrowAddress  string `json:"escrow_address"`
	Participant    string `json:"participant"`
	CorrectCount   uint32 `json:"correct_count"`
	IncorrectCount uint32 `json:"incorrect_count"`
	Payout         string `json:"payout"`
}

// QuizEndedPayload.Trigger is "operator" or "expiry".
type QuizEndedPayload struct {
	EscrowAddress     string `json:"escrow_address"`
	Trigger           string `json:"trigger"`
	TotalPaidOut      string `json:"total_paid_out"`
	TotalParticipants int    `json:"total_participants"`
}

type UnclaimedFundsReturnedPayload struct {
	EscrowAddress string `json:"escrow_address"`
	Creator       string `json:"creator"`
	Amount        string `json:"amount"`
}

type FeesWithdrawnPayload struct {
	HandlerAddress string `json:"handler_address"`
	Operator       string `json:"operator"`
	Amount         string `json:"amount"`
}
