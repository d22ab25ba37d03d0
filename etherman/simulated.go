package etherman

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/params"
)

// Fixture for controller tests: one operator account (submits mint/burn
// txs the way the real server does) plus a handful of merchant accounts.
const (
	simMerchantCount = 4
	simFundEther     = 100
	simBlockGasLimit = uint64(999999999999999999)
)

var SimChainID = big.NewInt(1337)

type SimulatedChain struct {
	Backend *simulated.Backend

	// Accounts[0] is the operator; the rest are merchants.
	Accounts []*bind.TransactOpts
}

func NewSimulatedChain() *SimulatedChain {
	accounts := make([]*bind.TransactOpts, 0, 1+simMerchantCount)
	alloc := make(map[ethcommon.Address]types.Account)

	fund := new(big.Int).Mul(big.NewInt(simFundEther), big.NewInt(params.Ether))
	for i := 0; i < cap(accounts); i++ {
		sk, _ := crypto.GenerateKey()
		auth, _ := bind.NewKeyedTransactorWithChainID(sk, SimChainID)
		accounts = append(accounts, auth)
		alloc[auth.From] = types.Account{Balance: new(big.Int).Set(fund)}
	}

	backend := simulated.NewBackend(alloc, simulated.WithBlockGasLimit(simBlockGasLimit))

	return &SimulatedChain{
		Backend:  backend,
		Accounts: accounts,
	}
}

func (sc *SimulatedChain) Client() simulated.Client {
	return sc.Backend.Client()
}

func (sc *SimulatedChain) Operator() *bind.TransactOpts {
	return sc.Accounts[0]
}

func (sc *SimulatedChain) Merchants() []*bind.TransactOpts {
	return sc.Accounts[1:]
}
