package factory

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// TokenController is the ledger collaborator the factory drives. All three
// calls are synchronous and must report failure without partial effect.
type TokenController interface {
	// Mint credits amount to the given address.
	Mint(to ethcommon.Address, amount *big.Int) error

	// Burn destroys amount out of the controller's own custody balance.
	Burn(amount *big.Int) error

	// TransferInto pulls amount from the given address into the
	// controller's custody. The burn flow calls it right before Burn.
	TransferInto(from ethcommon.Address, amount *big.Int) error
}
