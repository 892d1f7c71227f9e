package services

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"quiz-backend/internal/events"
	"quiz-backend/internal/metrics"
	"quiz-backend/internal/models"
	"quiz-backend/internal/repository"
	"quiz-backend/internal/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// QuizValidityWindow is the fixed lifetime of an escrow. After it elapses
// anyone may terminate and no further results can be recorded.
const QuizValidityWindow = 24 * time.Hour

var (
	ErrEscrowNotFound            = errors.New("escrow not found")
	ErrNotOperator               = errors.New("caller is not the authorized operator")
	ErrQuizEnded                 = errors.New("quiz has ended")
	ErrQuizExpired               = errors.New("quiz validity window has expired")
	ErrZeroParticipant           = errors.New("participant address cannot be zero")
	ErrEmptySubmission           = errors.New("participant must have answered at least one question")
	ErrAlreadyParticipated       = errors.New("participant result already recorded")
	ErrInsufficientEscrowBalance = errors.New("insufficient escrow balance for payout")
	ErrNotAuthorizedToEnd        = errors.New("only the operator may end an active quiz before expiry")
	ErrAlreadyEnded              = errors.New("quiz already ended")
)

// ParticipantResult is the per-participant view. HasParticipated false is
// the sentinel for identities that never submitted, returned instead of an
// error.
type ParticipantResult struct {
	Participant    string `json:"participant"`
	CorrectCount   uint32 `json:"correct_count"`
	IncorrectCount uint32 `json:"incorrect_count"`
	TotalPayout    string `json:"total_payout"`
	HasParticipated bool  `json:"has_participated"`
}

// QuizStats is the aggregate view of one escrow.
type QuizStats struct {
	Address           string `json:"address"`
	Creator           string `json:"creator"`
	Operator          string `json:"operator"`
	CorrectReward     string `json:"correct_reward"`
	IncorrectReward   string `json:"incorrect_reward"`
	FundingAmount     string `json:"funding_amount"`
	TotalPaidOut      string `json:"total_paid_out"`
	RemainingBalance  string `json:"remaining_balance"`
	TotalParticipants int    `json:"total_participants"`
	TotalCorrect      int64  `json:"total_correct_answers"`
	TotalIncorrect    int64  `json:"total_incorrect_answers"`
	IsEnded           bool   `json:"is_ended"`
	IsExpired         bool   `json:"is_expired"`
	RemainingSeconds  int64  `json:"remaining_seconds"`
	CreatedAt         time.Time `json:"created_at"`
}

// QuizEscrowService operates the per-quiz escrow state machine: one
// Active→Ended transition, operator-gated result recording with immediate
// payout, and a final sweep of unclaimed funds back to the creator.
//
// Mutating operations on one escrow are serialized through a per-address
// mutex; whichever result submission acquires it first establishes the
// participation record and the loser fails the double-participation guard.
// All state changes and the fund movement they imply share one database
// transaction.
type QuizEscrowService struct {
	db              *gorm.DB
	escrowRepo      repository.EscrowRepository
	participantRepo repository.ParticipantRepository
	accountRepo     repository.AccountRepository
	publisher       events.Publisher
	nowFn           func() time.Time

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

// NewQuizEscrowService creates the settlement service.
func NewQuizEscrowService(
	db *gorm.DB,
	escrowRepo repository.EscrowRepository,
	participantRepo repository.ParticipantRepository,
	accountRepo repository.AccountRepository,
	publisher events.Publisher,
) *QuizEscrowService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &QuizEscrowService{
		db:              db,
		escrowRepo:      escrowRepo,
		participantRepo: participantRepo,
		accountRepo:     accountRepo,
		publisher:       publisher,
		nowFn:           time.Now,
		locks:           make(map[string]*sync.Mutex),
	}
}

// SetNowFunc overrides the clock. Intended for tests.
func (s *QuizEscrowService) SetNowFunc(now func() time.Time) {
	if now == nil {
		s.nowFn = time.Now
		return
	}
	s.nowFn = now
}

func (s *QuizEscrowService) escrowLock(address string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[address]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[address] = lock
	}
	return lock
}

func (s *QuizEscrowService) loadEscrow(db *gorm.DB, address string) (*models.QuizEscrow, error) {
	escrow, err := s.escrowRepo.GetByAddress(db, address)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEscrowNotFound
	}
	if err != nil {
		return nil, err
	}
	return escrow, nil
}

func (s *QuizEscrowService) isExpired(escrow *models.QuizEscrow) bool {
	return !s.nowFn().Before(escrow.CreatedAt.Add(QuizValidityWindow))
}

func remainingBalance(escrow *models.QuizEscrow) (*big.Int, error) {
	funding, err := utils.ParseWei(escrow.FundingAmount)
	if err != nil {
		return nil, err
	}
	paidOut, err := utils.ParseWei(escrow.TotalPaidOut)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Sub(funding, paidOut), nil
}

// RecordResult records one participant's quiz result and immediately pays
// the computed reward. Operator-only. Preconditions are checked in a fixed
// order and the first failure wins; on any failure no state changes and no
// funds move.
func (s *QuizEscrowService) RecordResult(ctx context.Context, caller common.Address, escrowAddress common.Address, participant common.Address, correctCount, incorrectCount uint32) (*models.QuizParticipant, error) {
	address := utils.AddressKey(escrowAddress)

	lock := s.escrowLock(address)
	lock.Lock()
	defer lock.Unlock()

	var record *models.QuizParticipant
	var payout *big.Int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		escrow, err := s.loadEscrow(tx, address)
		if err != nil {
			return err
		}
		if utils.AddressKey(caller) != escrow.Operator {
			return ErrNotOperator
		}
		if escrow.IsEnded {
			return ErrQuizEnded
		}
		if s.isExpired(escrow) {
			return ErrQuizExpired
		}
		if participant == (common.Address{}) {
			return ErrZeroParticipant
		}
		if correctCount+incorrectCount == 0 {
			return ErrEmptySubmission
		}
		exists, err := s.participantRepo.Exists(tx, address, utils.AddressKey(participant))
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyParticipated
		}

		correctReward, err := utils.ParseWei(escrow.CorrectReward)
		if err != nil {
			return err
		}
		incorrectReward, err := utils.ParseWei(escrow.IncorrectReward)
		if err != nil {
			return err
		}
		payout = new(big.Int).Add(
			new(big.Int).Mul(correctReward, big.NewInt(int64(correctCount))),
			new(big.Int).Mul(incorrectReward, big.NewInt(int64(incorrectCount))),
		)

		remaining, err := remainingBalance(escrow)
		if err != nil {
			return err
		}
		if payout.Cmp(remaining) > 0 {
			return ErrInsufficientEscrowBalance
		}

		record = &models.QuizParticipant{
			ID:             uuid.New().String(),
			EscrowAddress:  address,
			Participant:    utils.AddressKey(participant),
			CorrectCount:   correctCount,
			IncorrectCount: incorrectCount,
			TotalPayout:    utils.FormatWei(payout),
			CreatedAt:      s.nowFn(),
		}
		if err := s.participantRepo.Create(tx, record); err != nil {
			return err
		}

		paidOut, err := utils.ParseWei(escrow.TotalPaidOut)
		if err != nil {
			return err
		}
		escrow.TotalPaidOut = utils.FormatWei(new(big.Int).Add(paidOut, payout))
		escrow.TotalParticipants++
		escrow.TotalCorrect += int64(correctCount)
		escrow.TotalIncorrect += int64(incorrectCount)
		escrow.UpdatedAt = s.nowFn()
		if err := s.escrowRepo.Update(tx, escrow); err != nil {
			return err
		}

		return s.accountRepo.Transfer(tx, escrowAddress, participant, payout)
	})
	if err != nil {
		metrics.ResultFailures.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	metrics.ResultsRecorded.Inc()
	if payout.IsInt64() {
		metrics.RewardsPaidOut.Add(float64(payout.Int64()))
	}

	s.publisher.Publish(events.New(events.ContractQuizEscrow, events.TypeResultRecorded, events.ResultRecordedPayload{
		EscrowAddress:  address,
		Participant:    record.Participant,
		CorrectCount:   correctCount,
		IncorrectCount: incorrectCount,
		Payout:         record.TotalPayout,
	}))

	logrus.WithFields(logrus.Fields{
		"escrow":      address,
		"participant": record.Participant,
		"correct":     correctCount,
		"incorrect":   incorrectCount,
		"payout":      utils.WeiToEtherString(payout),
	}).Info("✅ Quiz result recorded")

	return record, nil
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrNotOperator):
		return "unauthorized"
	case errors.Is(err, ErrQuizEnded):
		return "ended"
	case errors.Is(err, ErrQuizExpired):
		return "expired"
	case errors.Is(err, ErrAlreadyParticipated):
		return "already_participated"
	case errors.Is(err, ErrInsufficientEscrowBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrZeroParticipant), errors.Is(err, ErrEmptySubmission):
		return "invalid_submission"
	default:
		return "error"
	}
}

// Terminate ends the quiz and sweeps the remaining balance back to the
// creator. The operator may terminate at any time; once the validity window
// has elapsed anyone may. A zero-balance sweep is a no-op transfer, not an
// error.
func (s *QuizEscrowService) Terminate(ctx context.Context, caller common.Address, escrowAddress common.Address) (*big.Int, error) {
	address := utils.AddressKey(escrowAddress)

	lock := s.escrowLock(address)
	lock.Lock()
	defer lock.Unlock()

	var swept *big.Int
	var trigger string
	var ended *models.QuizEscrow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		escrow, err := s.loadEscrow(tx, address)
		if err != nil {
			return err
		}
		if escrow.IsEnded {
			return ErrAlreadyEnded
		}

		expired := s.isExpired(escrow)
		isOperator := utils.AddressKey(caller) == escrow.Operator
		if !isOperator && !expired {
			return ErrNotAuthorizedToEnd
		}
		trigger = "operator"
		if !isOperator {
			trigger = "expiry"
		}

		swept, err = remainingBalance(escrow)
		if err != nil {
			return err
		}

		now := s.nowFn()
		escrow.IsEnded = true
		escrow.EndedAt = &now
		escrow.UpdatedAt = now
		if err := s.escrowRepo.Update(tx, escrow); err != nil {
			return err
		}
		ended = escrow

		creator := common.HexToAddress(escrow.Creator)
		return s.accountRepo.Transfer(tx, escrowAddress, creator, swept)
	})
	if err != nil {
		return nil, err
	}

	metrics.QuizzesEnded.WithLabelValues(trigger).Inc()

	s.publisher.Publish(events.New(events.ContractQuizEscrow, events.TypeQuizEnded, events.QuizEndedPayload{
		EscrowAddress:     address,
		Trigger:           trigger,
		TotalPaidOut:      ended.TotalPaidOut,
		TotalParticipants: ended.TotalParticipants,
	}))
	if swept.Sign() > 0 {
		s.publisher.Publish(events.New(events.ContractQuizEscrow, events.TypeUnclaimedFundsReturned, events.UnclaimedFundsReturnedPayload{
			EscrowAddress: address,
			Creator:       ended.Creator,
			Amount:        utils.FormatWei(swept),
		}))
	}

	logrus.WithFields(logrus.Fields{
		"escrow":  address,
		"trigger": trigger,
		"swept":   utils.WeiToEtherString(swept),
	}).Info("✅ Quiz ended")

	return swept, nil
}

// GetQuizStats returns the aggregate view of one escrow.
func (s *QuizEscrowService) GetQuizStats(ctx context.Context, escrowAddress common.Address) (*QuizStats, error) {
	escrow, err := s.loadEscrow(s.db.WithContext(ctx), utils.AddressKey(escrowAddress))
	if err != nil {
		return nil, err
	}

	remaining, err := remainingBalance(escrow)
	if err != nil {
		return nil, err
	}

	return &QuizStats{
		Address:           escrow.Address,
		Creator:           escrow.Creator,
		Operator:          escrow.Operator,
		CorrectReward:     escrow.CorrectReward,
		IncorrectReward:   escrow.IncorrectReward,
		FundingAmount:     escrow.FundingAmount,
		TotalPaidOut:      escrow.TotalPaidOut,
		RemainingBalance:  utils.FormatWei(remaining),
		TotalParticipants: escrow.TotalParticipants,
		TotalCorrect:      escrow.TotalCorrect,
		TotalIncorrect:    escrow.TotalIncorrect,
		IsEnded:           escrow.IsEnded,
		IsExpired:         s.isExpired(escrow),
		RemainingSeconds:  s.remainingSeconds(escrow),
		CreatedAt:         escrow.CreatedAt,
	}, nil
}

func (s *QuizEscrowService) remainingSeconds(escrow *models.QuizEscrow) int64 {
	deadline := escrow.CreatedAt.Add(QuizValidityWindow)
	remaining := deadline.Sub(s.nowFn())
	if remaining < 0 {
		return 0
	}
	return int64(remaining.Seconds())
}

// GetRemainingTime returns the time left in the validity window, floored at
// zero once expired.
func (s *QuizEscrowService) GetRemainingTime(ctx context.Context, escrowAddress common.Address) (int64, error) {
	escrow, err := s.loadEscrow(s.db.WithContext(ctx), utils.AddressKey(escrowAddress))
	if err != nil {
		return 0, err
	}
	return s.remainingSeconds(escrow), nil
}

// GetBalance returns the escrow's current ledger balance.
func (s *QuizEscrowService) GetBalance(ctx context.Context, escrowAddress common.Address) (*big.Int, error) {
	if _, err := s.loadEscrow(s.db.WithContext(ctx), utils.AddressKey(escrowAddress)); err != nil {
		return nil, err
	}
	return s.accountRepo.Balance(s.db.WithContext(ctx), escrowAddress)
}

// GetParticipantResult returns one participant's recorded result. Unknown
// participants yield a zero-value result with HasParticipated false.
func (s *QuizEscrowService) GetParticipantResult(ctx context.Context, escrowAddress, participant common.Address) (*ParticipantResult, error) {
	address := utils.AddressKey(escrowAddress)
	if _, err := s.loadEscrow(s.db.WithContext(ctx), address); err != nil {
		return nil, err
	}

	record, err := s.participantRepo.Get(s.db.WithContext(ctx), address, utils.AddressKey(participant))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &ParticipantResult{
			Participant: utils.AddressKey(participant),
			TotalPayout: "0",
		}, nil
	}
	if err != nil {
		return nil, err
	}

	return &ParticipantResult{
		Participant:     record.Participant,
		CorrectCount:    record.CorrectCount,
		IncorrectCount:  record.IncorrectCount,
		TotalPayout:     record.TotalPayout,
		HasParticipated: true,
	}, nil
}

// GetParticipants returns all recorded results for one escrow in
// submission order.
func (s *QuizEscrowService) GetParticipants(ctx context.Context, escrowAddress common.Address) ([]*models.QuizParticipant, error) {
	address := utils.AddressKey(escrowAddress)
	if _, err := s.loadEscrow(s.db.WithContext(ctx), address); err != nil {
		return nil, err
	}
	return s.participantRepo.ListByEscrow(ctx, address)
}
