// Server = factory (state machine) + members registry + token controller
// + db/state + http reporter.
// All components are configured via environment variables (strings!).

package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/btcsuite/btcd/chaincfg"
	ethcommon "github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"
	logger "github.com/sirupsen/logrus"

	"github.com/TEENet-io/custody-go/etherman"
	"github.com/TEENet-io/custody-go/factory"
	"github.com/TEENet-io/custody-go/members"
	"github.com/TEENet-io/custody-go/reporter"
)

// Default params for server.
// More often we don't recommend users to tweak those.
// So we list them here.
const (
	// factory audit event channel capacity
	EVENT_CHANNEL_SIZE = 1024
)

// Keep the configuration's fields as "text" as possible.
// Its easier to load it from env vars or a config file.
type CustodyServerConfig struct {
	// eth side
	EthRpcUrl          string // json rpc url
	EthCoreAccountPriv string // private key of the account submitting controller txs
	EthChainID         int64  // chain id of the eth network
	// state side
	DbFilePath string // db file path
	// btc side
	BtcChainConfig *chaincfg.Params // regtest, testnet, mainnet? advisory address checks only.
	// Http side
	HttpIp   string // eg. 0.0.0.0
	HttpPort string // eg. 8080
	// Predefined ETH smart contract addresses
	PredefinedControllerContractAddr string // token controller contract address
	PredefinedTokenContractAddr      string // custody token (erc20) contract address
	// Bootstrap participants (hex addresses). Optional.
	SeedMerchants  []string
	SeedCustodians []string
}

// CustodyServer holds the objects that consists of the custody server.
type CustodyServer struct {
	SqlDb *sql.DB

	MyMembersDb *members.StateDB
	MyStateDb   *factory.StateDB
	MyEtherman  *etherman.Etherman
	MyFactory   *factory.Factory
	MyReporter  *reporter.HttpReporter
}

// NewCustodyServer creates a new custody server.
// ctx is used for parental context to cancel the operation of the server.
// wg is used to wait for the goroutines inside the server (event logger, reporter) to finish.
func NewCustodyServer(csc *CustodyServerConfig, ctx context.Context, wg *sync.WaitGroup) (*CustodyServer, error) {
	// 0) open the shared sqlite db
	sqldb, err := sql.Open("sqlite3", csc.DbFilePath)
	if err != nil {
		logger.Fatalf("cannot open sqlite db %s: %v", csc.DbFilePath, err)
		return nil, err
	}

	// 1) members registry (who is merchant, who is custodian)
	membersDb, err := members.NewStateDB(sqldb)
	if err != nil {
		logger.Fatalf("cannot create members db: %v", err)
		return nil, err
	}
	if err := seedMembers(membersDb, csc.SeedMerchants, members.RoleMerchant); err != nil {
		return nil, err
	}
	if err := seedMembers(membersDb, csc.SeedCustodians, members.RoleCustodian); err != nil {
		return nil, err
	}

	// 2) request state storage
	statedb, err := factory.NewStateDB(sqldb)
	if err != nil {
		logger.Fatalf("cannot create state db: %v", err)
		return nil, err
	}

	// 3) token controller on the eth side
	myEtherman, err := etherman.NewEtherman(&etherman.Config{
		URL:                       csc.EthRpcUrl,
		PrivateKey:                csc.EthCoreAccountPriv,
		ChainID:                   big.NewInt(csc.EthChainID),
		ControllerContractAddress: ethcommon.HexToAddress(csc.PredefinedControllerContractAddr),
		TokenContractAddress:      ethcommon.HexToAddress(csc.PredefinedTokenContractAddr),
	})
	if err != nil {
		logger.Fatalf("cannot create etherman: %v", err)
		return nil, err
	}

	// 4) the factory itself
	myFactory, err := factory.New(statedb, membersDb, myEtherman, &factory.Config{
		EventChannelSize: EVENT_CHANNEL_SIZE,
		BtcChainParams:   csc.BtcChainConfig,
	})
	if err != nil {
		logger.Fatalf("cannot create factory: %v", err)
		return nil, err
	}

	// 5) drain + log audit events until cancelled
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-myFactory.Events():
				if !ok {
					return
				}
				logger.WithField("event", ev.Name()).Infof("audit: %+v", ev)
			}
		}
	}()

	// 6) http reporter (read-only surface)
	myReporter := reporter.NewHttpReporter(csc.HttpIp, csc.HttpPort, myFactory)
	wg.Add(1)
	go func() {
		defer wg.Done()
		myReporter.Run()
	}()

	return &CustodyServer{
		SqlDb:       sqldb,
		MyMembersDb: membersDb,
		MyStateDb:   statedb,
		MyEtherman:  myEtherman,
		MyFactory:   myFactory,
		MyReporter:  myReporter,
	}, nil
}

// StartCustodyServerAndWait creates the server and blocks until killed.
func StartCustodyServerAndWait(csc *CustodyServerConfig) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up a signal channel to listen for Ctrl-C (SIGINT) or SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Launch a new goroutine to handle the signal
	go func() {
		sig := <-sigCh
		fmt.Printf("Received signal: %v, cancelling context...\n", sig)
		cancel()
	}()

	var wg sync.WaitGroup

	_, err := NewCustodyServer(csc, ctx, &wg)
	if err != nil {
		logger.Fatalf("failed to create custody server: %v", err)
		return
	}

	// wait for all routines to finish (which is forever)
	wg.Wait()
}

// Helper function. Registers the given hex addresses under one role.
func seedMembers(db *members.StateDB, addrs []string, role members.Role) error {
	for _, s := range addrs {
		if !ethcommon.IsHexAddress(s) {
			logger.Warnf("skipping malformed %s address %s", role, s)
			continue
		}
		if err := db.Add(ethcommon.HexToAddress(s), role); err != nil {
			logger.Errorf("cannot register %s %s: %v", role, s, err)
			return err
		}
	}
	return nil
}
