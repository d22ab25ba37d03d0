// Package etherman drives the on-chain token controller: the contract pair
// (controller + token) that actually mints, burns and moves the custody
// token. It satisfies factory.TokenController.
package etherman

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	logger "github.com/sirupsen/logrus"
)

// Hand-maintained fragments of the deployed contracts; only the functions
// the factory drives are listed.
const (
	controllerABI = `[
		{"type":"function","name":"mint","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
		{"type":"function","name":"burn","inputs":[{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
		{"type":"function","name":"token","inputs":[],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"}
	]`

	tokenABI = `[
		{"type":"function","name":"transferFrom","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
		{"type":"function","name":"balanceOf","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"}
	]`
)

type ethereumClient interface {
	bind.ContractBackend
}

type Etherman struct {
	ethClient ethereumClient
	auth      *bind.TransactOpts

	controllerAddress ethcommon.Address
	tokenAddress      ethcommon.Address
	controller        *bind.BoundContract
	token             *bind.BoundContract
}

func NewEtherman(cfg *Config) (*Etherman, error) {
	ethClient, err := ethclient.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}

	auth, err := cfg.transactOpts()
	if err != nil {
		return nil, err
	}

	return bindContracts(ethClient, auth, cfg.ControllerContractAddress, cfg.TokenContractAddress)
}

// NewEthermanWithBackend binds against an existing backend, used by tests
// running on a simulated chain.
func NewEthermanWithBackend(
	backend bind.ContractBackend,
	auth *bind.TransactOpts,
	controllerAddress, tokenAddress ethcommon.Address,
) (*Etherman, error) {
	return bindContracts(backend, auth, controllerAddress, tokenAddress)
}

func bindContracts(
	backend bind.ContractBackend,
	auth *bind.TransactOpts,
	controllerAddress, tokenAddress ethcommon.Address,
) (*Etherman, error) {
	ctlABI, err := abi.JSON(strings.NewReader(controllerABI))
	if err != nil {
		return nil, err
	}
	tokABI, err := abi.JSON(strings.NewReader(tokenABI))
	if err != nil {
		return nil, err
	}

	return &Etherman{
		ethClient:         backend,
		auth:              auth,
		controllerAddress: controllerAddress,
		tokenAddress:      tokenAddress,
		controller:        bind.NewBoundContract(controllerAddress, ctlABI, backend, backend, backend),
		token:             bind.NewBoundContract(tokenAddress, tokABI, backend, backend, backend),
	}, nil
}

// Mint credits amount of the custody token to the given address.
func (e *Etherman) Mint(to ethcommon.Address, amount *big.Int) error {
	tx, err := e.controller.Transact(e.auth, "mint", to, amount)
	if err != nil {
		return err
	}

	logger.Infof("controller mint submitted: to=%s, amount=%v, tx=%s", to.Hex(), amount, tx.Hash().Hex())
	return nil
}

// Burn destroys amount out of the controller's custody balance.
func (e *Etherman) Burn(amount *big.Int) error {
	tx, err := e.controller.Transact(e.auth, "burn", amount)
	if err != nil {
		return err
	}

	logger.Infof("controller burn submitted: amount=%v, tx=%s", amount, tx.Hash().Hex())
	return nil
}

// TransferInto pulls amount from the given address into the controller's
// custody; requires a prior allowance on the token.
func (e *Etherman) TransferInto(from ethcommon.Address, amount *big.Int) error {
	tx, err := e.token.Transact(e.auth, "transferFrom", from, e.controllerAddress, amount)
	if err != nil {
		return err
	}

	logger.Infof("token transferFrom submitted: from=%s, amount=%v, tx=%s", from.Hex(), amount, tx.Hash().Hex())
	return nil
}

// TokenBalanceOf reads the custody token balance of an address.
func (e *Etherman) TokenBalanceOf(addr ethcommon.Address) (*big.Int, error) {
	var out []interface{}
	if err := e.token.Call(nil, &out, "balanceOf", addr); err != nil {
		return nil, err
	}

	return out[0].(*big.Int), nil
}
