package factory

import (
	"database/sql"
	"errors"
	"math/big"
	"sync"

	"github.com/TEENet-io/custody-go/members"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

var (
	errSimInsufficientBalance = errors.New("insufficient balance")
	errSimInsufficientCustody = errors.New("insufficient custody balance")
)

// SimulatedTokenController is an in-memory ledger for tests: per-address
// balances plus the controller's own custody pool. FailMint / FailTransfer
// force the next corresponding call to fail, for atomicity tests.
type SimulatedTokenController struct {
	mu       sync.Mutex
	balances map[ethcommon.Address]*big.Int
	custody  *big.Int
	supply   *big.Int

	FailMint     bool
	FailTransfer bool
}

func NewSimulatedTokenController() *SimulatedTokenController {
	return &SimulatedTokenController{
		balances: make(map[ethcommon.Address]*big.Int),
		custody:  new(big.Int),
		supply:   new(big.Int),
	}
}

func (c *SimulatedTokenController) Mint(to ethcommon.Address, amount *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.FailMint {
		return errors.New("forced mint failure")
	}

	c.balanceOf(to).Add(c.balanceOf(to), amount)
	c.supply.Add(c.supply, amount)
	return nil
}

func (c *SimulatedTokenController) TransferInto(from ethcommon.Address, amount *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.FailTransfer {
		return errors.New("forced transfer failure")
	}

	bal := c.balanceOf(from)
	if bal.Cmp(amount) < 0 {
		return errSimInsufficientBalance
	}

	bal.Sub(bal, amount)
	c.custody.Add(c.custody, amount)
	return nil
}

func (c *SimulatedTokenController) Burn(amount *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.custody.Cmp(amount) < 0 {
		return errSimInsufficientCustody
	}

	c.custody.Sub(c.custody, amount)
	c.supply.Sub(c.supply, amount)
	return nil
}

func (c *SimulatedTokenController) BalanceOf(addr ethcommon.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.balanceOf(addr))
}

func (c *SimulatedTokenController) TotalSupply() *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.supply)
}

func (c *SimulatedTokenController) balanceOf(addr ethcommon.Address) *big.Int {
	bal, ok := c.balances[addr]
	if !ok {
		bal = new(big.Int)
		c.balances[addr] = bal
	}
	return bal
}

// SimFactory is a fully wired factory over an in-memory database, with the
// simulated members registry and token controller exposed for tests.
type SimFactory struct {
	*Factory

	SqlDB      *sql.DB
	Members    *members.Simulated
	Controller *SimulatedTokenController
}

func NewSimFactory(sqldb *sql.DB, cfg *Config) (*SimFactory, error) {
	statedb, err := NewStateDB(sqldb)
	if err != nil {
		return nil, err
	}

	reg := members.NewSimulated()
	ctl := NewSimulatedTokenController()

	f, err := New(statedb, reg, ctl, cfg)
	if err != nil {
		return nil, err
	}

	return &SimFactory{
		Factory:    f,
		SqlDB:      sqldb,
		Members:    reg,
		Controller: ctl,
	}, nil
}

func (sf *SimFactory) Close() {
	sf.statedb.Close()
	sf.SqlDB.Close()
}
