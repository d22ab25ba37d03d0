package etherman

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

type Config struct {
	// URL of the Ethereum node
	URL string

	// hex private key of the account submitting controller transactions
	PrivateKey string

	ChainID *big.Int

	ControllerContractAddress ethcommon.Address
	TokenContractAddress      ethcommon.Address
}

func (cfg *Config) transactOpts() (*bind.TransactOpts, error) {
	sk, err := crypto.HexToECDSA(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}
	return bind.NewKeyedTransactorWithChainID(sk, cfg.ChainID)
}
