package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-backend/internal/utils"

	"github.com/ethereum/go-ethereum/common"
)

func TestRecordResultPaysBlendedReward(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	escrowAddr := s.deployQuiz(t, wei(100), wei(10), wei(10_000))

	result, err := s.escrow.RecordResult(ctx, testOperator, escrowAddr, testParticipant, 7, 3)
	if err != nil {
		t.Fatalf("record result: %v", err)
	}

	// 7*100 + 3*10
	want := wei(730)
	if result.TotalPayout != utils.FormatWei(want) {
		t.Fatalf("payout mismatch: got %s want %s", result.TotalPayout, want)
	}
	if got := balanceOf(t, s.db, s.accounts, testParticipant); got.Cmp(want) != 0 {
		t.Fatalf("participant balance mismatch: got %s want %s", got, want)
	}
	if got := balanceOf(t, s.db, s.accounts, escrowAddr); got.Cmp(wei(10_000-730)) != 0 {
		t.Fatalf("escrow balance mismatch: got %s", got)
	}

	stats, err := s.escrow.GetQuizStats(ctx, escrowAddr)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalParticipants != 1 || stats.TotalCorrect != 7 || stats.TotalIncorrect != 3 {
		t.Fatalf("counters wrong: %+v", stats)
	}
	if stats.TotalPaidOut != utils.FormatWei(want) {
		t.Fatalf("total paid out mismatch: %s", stats.TotalPaidOut)
	}
}

func TestZeroStakesQuiz(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	// free quiz: no funding, no rewards
	escrowAddr := s.deployQuiz(t, wei(0), wei(0), wei(0))

	result, err := s.escrow.RecordResult(ctx, testOperator, escrowAddr, testParticipant, 3, 2)
	if err != nil {
		t.Fatalf("record result on free quiz: %v", err)
	}
	if result.TotalPayout != "0" {
		t.Fatalf("free quiz paid out %s", result.TotalPayout)
	}

	// the zero-payout submission still counts as participation
	lookup, err := s.escrow.GetParticipantResult(ctx, escrowAddr, testParticipant)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !lookup.HasParticipated {
		t.Fatal("zero-payout submission not recorded as participation")
	}
}

func TestRecordResultOperatorOnly(t *testing.T) {
	s := newTestStack(t)
	escrowAddr := s.deployQuiz(t, wei(100), wei(10), wei(10_000))

	_, err := s.escrow.RecordResult(context.Background(), testStranger, escrowAddr, testParticipant, 1, 0)
	if !errors.Is(err, ErrNotOperator) {
		t.Fatalf("expected ErrNotOperator, got %v", err)
	}
	if got := balanceOf(t, s.db, s.accounts, testParticipant); got.Sign() != 0 {
		t.Fatalf("participant paid despite rejection: %s", got)
	}
}

func TestRecordResultRejectsDoubleParticipation(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	escrowAddr := s.deployQuiz(t, wei(100), wei(10), wei(10_000))

	if _, err := s.escrow.RecordResult(ctx, testOperator, escrowAddr, testParticipant, 5, 5); err != nil {
		t.Fatalf("first submission: %v", err)
	}
	_, err := s.escrow.RecordResult(ctx, testOperator, escrowAddr, testParticipant, 1, 0)
	if !errors.Is(err, ErrAlreadyParticipated) {
		t.Fatalf("expected ErrAlreadyParticipated, got %v", err)
	}
}

func TestRecordResultRejectsInvalidSubmissions(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	escrowAddr := s.deployQuiz(t, wei(100), wei(10), wei(10_000))

	if _, err := s.escrow.RecordResult(ctx, testOperator, escrowAddr, common.Address{}, 1, 0); !errors.Is(err, ErrZeroParticipant) {
		t.Fatalf("expected ErrZeroParticipant, got %v", err)
	}
	if _, err := s.escrow.RecordResult(ctx, testOperator, escrowAddr, testParticipant, 0, 0); !errors.Is(err, ErrEmptySubmission) {
		t.Fatalf("expected ErrEmptySubmission, got %v", err)
	}
}

func TestRecordResultAfterEnd(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	escrowAddr := s.deployQuiz(t, wei(100), wei(10), wei(10_000))

	if _, err := s.escrow.Terminate(ctx, testOperator, escrowAddr); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	_, err := s.escrow.RecordResult(ctx, testOperator, escrowAddr, testParticipant, 1, 0)
	if !errors.Is(err, ErrQuizEnded) {
		t.Fatalf("expected ErrQuizEnded, got %v", err)
	}
}

func TestRecordResultAfterExpiry(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	escrowAddr := s.deployQuiz(t, wei(100), wei(10), wei(10_000))

	created := time.Now()
	s.escrow.SetNowFunc(func() time.Time { return created.Add(QuizValidityWindow + time.Minute) })

	_, err := s.escrow.RecordResult(ctx, testOperator, escrowAddr, testParticipant, 1, 0)
	if !errors.Is(err, ErrQuizExpired) {
		t.Fatalf("expected ErrQuizExpired, got %v", err)
	}
}

func TestRecordResultInsufficientEscrowBalance(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	// funding covers a single full-score payout, nothing more
	escrowAddr := s.deployQuiz(t, wei(100), wei(10), wei(1_000))

	if _, err := s.escrow.RecordResult(ctx, testOperator, escrowAddr, testParticipant, 10, 0); err != nil {
		t.Fatalf("first payout: %v", err)
	}

	_, err := s.escrow.RecordResult(ctx, testOperator, escrowAddr, testStranger, 1, 0)
	if !errors.Is(err, ErrInsufficientEscrowBalance) {
		t.Fatalf("expected ErrInsufficientEscrowBalance, got %v", err)
	}

	// the rejected submission left no trace
	participants, err := s.escrow.GetParticipants(ctx, escrowAddr)
	if err != nil {
		t.Fatalf("list participants: %v", err)
	}
	if len(participants) != 1 {
		t.Fatalf("expected 1 participant, got %d", len(participants))
	}
	if got := balanceOf(t, s.db, s.accounts, testStranger); got.Sign() != 0 {
		t.Fatalf("stranger paid despite rejection: %s", got)
	}
}

func TestTerminateByOperatorSweepsRemainder(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	escrowAddr := s.deployQuiz(t, wei(100), wei(10), wei(10_000))

	if _, err := s.escrow.RecordResult(ctx, testOperator, escrowAddr, testParticipant, 5, 0); err != nil {
		t.Fatalf("record result: %v", err)
	}

	swept, err := s.escrow.Terminate(ctx, testOperator, escrowAddr)
	if err != nil {
		t.Fatalf("terminate: %v", err)
	}
	want := wei(10_000 - 500)
	if swept.Cmp(want) != 0 {
		t.Fatalf("swept mismatch: got %s want %s", swept, want)
	}
	if got := balanceOf(t, s.db, s.accounts, escrowAddr); got.Sign() != 0 {
		t.Fatalf("escrow not drained: %s", got)
	}
	if got := balanceOf(t, s.db, s.accounts, testCreator); got.Cmp(want) != 0 {
		t.Fatalf("creator refund mismatch: got %s want %s", got, want)
	}

	if _, err := s.escrow.Terminate(ctx, testOperator, escrowAddr); !errors.Is(err, ErrAlreadyEnded) {
		t.Fatalf("expected ErrAlreadyEnded, got %v", err)
	}
}

func TestTerminateAuthorization(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	escrowAddr := s.deployQuiz(t, wei(100), wei(10), wei(10_000))

	// before expiry only the operator may end the quiz
	if _, err := s.escrow.Terminate(ctx, testStranger, escrowAddr); !errors.Is(err, ErrNotAuthorizedToEnd) {
		t.Fatalf("expected ErrNotAuthorizedToEnd, got %v", err)
	}

	created := time.Now()
	s.escrow.SetNowFunc(func() time.Time { return created.Add(QuizValidityWindow + time.Minute) })

	// after expiry anyone may trigger the sweep
	swept, err := s.escrow.Terminate(ctx, testStranger, escrowAddr)
	if err != nil {
		t.Fatalf("terminate after expiry: %v", err)
	}
	if swept.Cmp(wei(10_000)) != 0 {
		t.Fatalf("swept mismatch: got %s", swept)
	}
	if got := balanceOf(t, s.db, s.accounts, testCreator); got.Cmp(wei(10_000)) != 0 {
		t.Fatalf("creator refund mismatch: %s", got)
	}
}

func TestGetRemainingTime(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	escrowAddr := s.deployQuiz(t, wei(100), wei(10), wei(10_000))

	remaining, err := s.escrow.GetRemainingTime(ctx, escrowAddr)
	if err != nil {
		t.Fatalf("remaining time: %v", err)
	}
	if remaining <= 0 || remaining > int64(QuizValidityWindow/time.Second) {
		t.Fatalf("remaining seconds out of range: %d", remaining)
	}

	created := time.Now()
	s.escrow.SetNowFunc(func() time.Time { return created.Add(QuizValidityWindow * 2) })

	remaining, err = s.escrow.GetRemainingTime(ctx, escrowAddr)
	if err != nil {
		t.Fatalf("remaining time after expiry: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expired quiz should report zero, got %d", remaining)
	}
}

func TestGetParticipantResultSentinel(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()
	escrowAddr := s.deployQuiz(t, wei(100), wei(10), wei(10_000))

	result, err := s.escrow.GetParticipantResult(ctx, escrowAddr, testParticipant)
	if err != nil {
		t.Fatalf("lookup unknown participant: %v", err)
	}
	if result.HasParticipated {
		t.Fatal("unknown participant reported as participated")
	}
	if result.TotalPayout != "0" {
		t.Fatalf("sentinel payout should be zero, got %s", result.TotalPayout)
	}

	if _, err := s.escrow.RecordResult(ctx, testOperator, escrowAddr, testParticipant, 2, 1); err != nil {
		t.Fatalf("record result: %v", err)
	}

	result, err = s.escrow.GetParticipantResult(ctx, escrowAddr, testParticipant)
	if err != nil {
		t.Fatalf("lookup participant: %v", err)
	}
	if !result.HasParticipated || result.CorrectCount != 2 || result.IncorrectCount != 1 {
		t.Fatalf("participant result wrong: %+v", result)
	}
	if result.TotalPayout != utils.FormatWei(wei(210)) {
		t.Fatalf("payout mismatch: %s", result.TotalPayout)
	}
}

func TestEscrowLookupUnknownAddress(t *testing.T) {
	s := newTestStack(t)

	_, err := s.escrow.GetQuizStats(context.Background(), testStranger)
	if !errors.Is(err, ErrEscrowNotFound) {
		t.Fatalf("expected ErrEscrowNotFound, got %v", err)
	}
}

func TestWithdrawFees(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	s.deployQuiz(t, wei(100), wei(10), wei(10_000))

	balance, err := s.handler.FeeBalance(ctx)
	if err != nil {
		t.Fatalf("fee balance: %v", err)
	}
	if balance.Cmp(DeploymentFeeWei) != 0 {
		t.Fatalf("accrued fees mismatch: got %s want %s", balance, DeploymentFeeWei)
	}

	if _, err := s.handler.WithdrawFees(ctx, testStranger); !errors.Is(err, ErrNotOperator) {
		t.Fatalf("expected ErrNotOperator, got %v", err)
	}

	withdrawn, err := s.handler.WithdrawFees(ctx, testOperator)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if withdrawn.Cmp(DeploymentFeeWei) != 0 {
		t.Fatalf("withdrawn mismatch: got %s", withdrawn)
	}
	if got := balanceOf(t, s.db, s.accounts, testOperator); got.Cmp(DeploymentFeeWei) != 0 {
		t.Fatalf("operator balance mismatch: %s", got)
	}

	if _, err := s.handler.WithdrawFees(ctx, testOperator); !errors.Is(err, ErrNoFeesToWithdraw) {
		t.Fatalf("expected ErrNoFeesToWithdraw, got %v", err)
	}
}
