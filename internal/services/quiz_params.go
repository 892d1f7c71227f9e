package services

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Quiz deployment params are ABI-encoded (uint256 correctReward,
// uint256 incorrectReward), in that fixed order. The registry never
// inspects this blob; the schema belongs to the QuizHandler alone.
var quizParamsArguments abi.Arguments

func init() {
	uint256Type, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(fmt.Sprintf("abi: %v", err))
	}
	quizParamsArguments = abi.Arguments{
		{Name: "correctReward", Type: uint256Type},
		{Name: "incorrectReward", Type: uint256Type},
	}
}

// EncodeQuizParams packs the two reward rates into the handler's parameter
// blob. Nil rates encode as zero; zero rates are valid (free quizzes).
func EncodeQuizParams(correctReward, incorrectReward *big.Int) ([]byte, error) {
	if correctReward == nil {
		correctReward = big.NewInt(0)
	}
	if incorrectReward == nil {
		incorrectReward = big.NewInt(0)
	}
	if correctReward.Sign() < 0 || incorrectReward.Sign() < 0 {
		return nil, errors.New("reward rates must not be negative")
	}
	return quizParamsArguments.Pack(correctReward, incorrectReward)
}

// DecodeQuizParams unpacks the parameter blob back into the reward rates.
func DecodeQuizParams(data []byte) (correctReward, incorrectReward *big.Int, err error) {
	values, err := quizParamsArguments.Unpack(data)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid quiz params: %w", err)
	}
	if len(values) != 2 {
		return nil, nil, fmt.Errorf("invalid quiz params: expected 2 values, got %d", len(values))
	}
	correctReward, ok := values[0].(*big.Int)
	if !ok {
		return nil, nil, errors.New("invalid quiz params: correctReward is not uint256")
	}
	incorrectReward, ok = values[1].(*big.Int)
	if !ok {
		return nil, nil, errors.New("invalid quiz params: incorrectReward is not uint256")
	}
	return correctReward, incorrectReward, nil
}
