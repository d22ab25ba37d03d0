package factory

import (
	"math/big"

	"github.com/TEENet-io/custody-go/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// CalcRequestHash is the content-addressed identifier of a request:
// keccak256 over the packed encoding of the six fields in fixed order.
// Nonce and timestamp are part of the digest, so two requests with the same
// requester/amount/address still hash differently.
func CalcRequestHash(
	requester ethcommon.Address,
	amount *big.Int,
	btcDepositAddress string,
	btcTxid string,
	nonce uint64,
	timestamp int64,
) ethcommon.Hash {
	return crypto.Keccak256Hash(common.EncodePacked(
		requester,
		amount,
		btcDepositAddress,
		btcTxid,
		nonce,
		timestamp,
	))
}
