package factory

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Event is one entry of the factory's audit stream. Events are emitted only
// after the full transition has committed; a failing operation emits nothing.
type Event interface {
	Name() string
}

type CustodianBtcDepositAddressSet struct {
	Merchant   ethcommon.Address
	BtcAddress string
	SetBy      ethcommon.Address
}

func (CustodianBtcDepositAddressSet) Name() string { return "CustodianBtcDepositAddressSet" }

type MerchantBtcDepositAddressSet struct {
	Merchant   ethcommon.Address
	BtcAddress string
}

func (MerchantBtcDepositAddressSet) Name() string { return "MerchantBtcDepositAddressSet" }

type MintRequestAdded struct {
	Nonce             uint64
	Requester         ethcommon.Address
	Amount            *big.Int
	BtcDepositAddress string
	BtcTxid           string
	Timestamp         int64
	RequestHash       ethcommon.Hash
}

func (MintRequestAdded) Name() string { return "MintRequestAdded" }

// MintConfirmed reports the custodian's decision on a mint request; the
// Confirmed flag distinguishes approval from rejection.
type MintConfirmed struct {
	Nonce             uint64
	Requester         ethcommon.Address
	Amount            *big.Int
	BtcDepositAddress string
	BtcTxid           string
	Timestamp         int64
	RequestHash       ethcommon.Hash
	Confirmed         bool
}

func (MintConfirmed) Name() string { return "MintConfirmed" }

type MintRequestCancelled struct {
	Nonce       uint64
	Requester   ethcommon.Address
	RequestHash ethcommon.Hash
}

func (MintRequestCancelled) Name() string { return "MintRequestCancelled" }

type Burned struct {
	Nonce             uint64
	Requester         ethcommon.Address
	Amount            *big.Int
	BtcDepositAddress string
	Timestamp         int64
	RequestHash       ethcommon.Hash
}

func (Burned) Name() string { return "Burned" }

// BurnConfirmed carries the hash the custodian supplied (the pre-confirm
// hash), not the re-indexed one; downstream consumers correlate by it.
type BurnConfirmed struct {
	Nonce             uint64
	Requester         ethcommon.Address
	Amount            *big.Int
	BtcDepositAddress string
	BtcTxid           string
	Timestamp         int64
	InputRequestHash  ethcommon.Hash
}

func (BurnConfirmed) Name() string { return "BurnConfirmed" }
