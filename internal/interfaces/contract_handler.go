// Package interfaces defines the capability contracts that keep the
// registry decoupled from concrete handler implementations.
package interfaces

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
)

// HandlerInfo is the static metadata a handler reports about itself.
type HandlerInfo struct {
	ContractType string `json:"contract_type"`
	Version      string `json:"version"`
	Description  string `json:"description"`
}

// ContractHandler is the capability a type-specific factory exposes to the
// registry. The registry never sees handler-specific parameter schemas:
// params is an opaque byte blob whose encoding each handler defines for
// itself. DeployContract runs inside the registry's transaction; every
// row it creates and every ledger movement it performs commits or rolls
// back together with the registry's own bookkeeping.
type ContractHandler interface {
	// DeployContract instantiates a new contract funded with value (fee
	// included) on behalf of creator and returns its address.
	DeployContract(tx *gorm.DB, creator common.Address, params []byte, value *big.Int) (common.Address, error)

	// GetDeploymentFee quotes the fee required to deploy with the given
	// params. Must not mutate state.
	GetDeploymentFee(params []byte) *big.Int

	// HandlerInfo returns static handler metadata.
	HandlerInfo() HandlerInfo

	// Address is the handler's own ledger account, where deployment fees
	// accumulate.
	Address() common.Address
}
