package models

import (
	"time"
)

// Account is one row of the internal funds ledger. Every identity that can
// hold value (creators, participants, the fee handler, escrow instances) has
// exactly one row keyed by its 0x address. Balances are wei stored as
// NUMERIC(78,0) so a full uint256 range fits without rounding.
type Account struct {
	Address   string    `json:"address" gorm:"primaryKey;type:varchar(42)"`
	Balance   string    `json:"balance" gorm:"type:numeric(78,0);not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HandlerRegistration mirrors the registry's in-memory handler map so the
// registered contract types survive a restart. ContractType is the unique
// key; re-registration overwrites the row in place.
type HandlerRegistration struct {
	ID             string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ContractType   string    `json:"contract_type" gorm:"uniqueIndex;type:varchar(64);not null"`
	HandlerAddress string    `json:"handler_address" gorm:"type:varchar(42);not null"`
	Version        string    `json:"version" gorm:"type:varchar(16)"`
	Description    string    `json:"description" gorm:"type:text"`
	RegisteredBy   string    `json:"registered_by" gorm:"type:varchar(42);not null"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Deployment is the global append-only deployment ledger. Rows are only ever
// inserted, inside the same transaction that moves the attached value, so
// COUNT(*) over this table is the registry's totalDeployed.
type Deployment struct {
	ID              string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Creator         string    `json:"creator" gorm:"type:varchar(42);index;not null"`
	ContractType    string    `json:"contract_type" gorm:"type:varchar(64);index;not null"`
	ContractAddress string    `json:"contract_address" gorm:"uniqueIndex;type:varchar(42);not null"`
	HandlerAddress  string    `json:"handler_address" gorm:"type:varchar(42);not null"`
	FeeCharged      string    `json:"fee_charged" gorm:"type:numeric(78,0);not null"`
	CreatedAt       time.Time `json:"created_at" gorm:"index"`
}

// QuizEscrow is one escrow instance. Reward rates, funding, creator and
// operator are immutable after the deploy transaction commits; only the
// aggregate counters, TotalPaidOut and the ended flag change afterwards.
type QuizEscrow struct {
	Address         string     `json:"address" gorm:"primaryKey;type:varchar(42)"`
	Creator         string     `json:"creator" gorm:"type:varchar(42);index;not null"`
	Operator        string     `json:"operator" gorm:"type:varchar(42);not null"`
	CorrectReward   string     `json:"correct_reward" gorm:"type:numeric(78,0);not null"`
	IncorrectReward string     `json:"incorrect_reward" gorm:"type:numeric(78,0);not null"`
	FundingAmount   string     `json:"funding_amount" gorm:"type:numeric(78,0);not null"`
	TotalPaidOut    string     `json:"total_paid_out" gorm:"type:numeric(78,0);not null;default:0"`
	TotalParticipants int      `json:"total_participants" gorm:"not null;default:0"`
	TotalCorrect    int64      `json:"total_correct_answers" gorm:"not null;default:0"`
	TotalIncorrect  int64      `json:"total_incorrect_answers" gorm:"not null;default:0"`
	IsEnded         bool       `json:"is_ended" gorm:"not null;default:false;index"`
	EndedAt         *time.Time `json:"ended_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// QuizParticipant is one recorded result. The composite unique index is the
// double-participation guard: a second insert for the same (escrow,
// participant) pair fails at the database even if the in-process check is
// somehow bypassed.
type QuizParticipant struct {
	ID             string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	EscrowAddress  string    `json:"escrow_address" gorm:"uniqueIndex:idx_escrow_participant;type:varchar(42);not null"`
	Participant    string    `json:"participant" gorm:"uniqueIndex:idx_escrow_participant;type:varchar(42);not null"`
	CorrectCount   uint32    `json:"correct_count" gorm:"not null"`
	IncorrectCount uint32    `json:"incorrect_count" gorm:"not null"`
	TotalPayout    string    `json:"total_payout" gorm:"type:numeric(78,0);not null"`
	CreatedAt      time.Time `json:"created_at"`
}

// GlobalConfig stores system-wide key/value configuration. The registry
// owner lives here under key "registry_owner"; renounced ownership is the
// zero address and is never rewritten.
type GlobalConfig struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	ConfigKey   string    `json:"config_key" gorm:"uniqueIndex;type:varchar(64);not null"`
	ConfigValue string    `json:"config_value" gorm:"type:text;not null"`
	Description string    `json:"description" gorm:"type:text"`
	UpdatedBy   string    `json:"updated_by" gorm:"type:varchar(42)"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
