package main

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/TEENet-io/custody-go/cmd"
	"github.com/TEENet-io/custody-go/logconfig"
	"github.com/spf13/viper"
)

const (
	ENV_CONFIG_FILE_PATH = "CUSTODY_CONFIG"
)

func main() {
	// Flip to ConfigDebugLogger() when chasing a problem.
	logconfig.ConfigProductionLogger()

	// Tool to read environment variables
	viper.AutomaticEnv()

	// Accessing an environment variable of configuration file location.
	_config_file := viper.GetString(ENV_CONFIG_FILE_PATH)
	fmt.Printf("Custody server configuration file = %s\n", _config_file)

	// See if file exists
	if !cmd.FileExists(_config_file) {
		fmt.Printf("Custody server configuration file not found: %s\n", _config_file)
		return
	}

	// Read from config file.
	success := initializeViper(_config_file)
	if !success {
		return
	}

	// Make the configuration
	csc := PrepareCustodyServerConfig()
	if csc == nil {
		fmt.Printf("Error loading custody server configuration\n")
		return
	}

	fmt.Println("Starting custody server... press Ctrl+C to kill the server")
	// Start server and block.
	cmd.StartCustodyServerAndWait(csc)
}

func initializeViper(filePath string) bool {
	viper.SetConfigFile(filePath)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("Error reading configuration file, %s", err)
		return false
	}
	return true
}

// PrepareCustodyServerConfig reads configuration variables and returns a CustodyServerConfig.
func PrepareCustodyServerConfig() *cmd.CustodyServerConfig {

	// *** prepare objects that aren't string type ***

	// Parse the BTC chain config (e.g., "regtest", "testnet", or "mainnet").
	// This only steers the advisory deposit-address format check.
	var btcParams *chaincfg.Params
	switch viper.GetString("BTC_CHAIN_CONFIG") {
	case "testnet":
		btcParams = &chaincfg.TestNet3Params
	case "mainnet":
		btcParams = &chaincfg.MainNetParams
	case "regtest":
		btcParams = &chaincfg.RegressionNetParams
	default:
		// default to regtest
		btcParams = &chaincfg.RegressionNetParams
	}

	// *** end of preparing objects ***

	return &cmd.CustodyServerConfig{
		// eth side
		EthRpcUrl:          viper.GetString("ETH_RPC_URL"),
		EthCoreAccountPriv: viper.GetString("ETH_CORE_ACCOUNT_PRIV"),
		EthChainID:         viper.GetInt64("ETH_CHAIN_ID"),
		// state side
		DbFilePath: viper.GetString("DB_FILE_PATH"),
		// btc side
		BtcChainConfig: btcParams,
		// Http side
		HttpIp:   viper.GetString("HTTP_IP"),
		HttpPort: viper.GetString("HTTP_PORT"),
		// contracts
		PredefinedControllerContractAddr: viper.GetString("CONTROLLER_CONTRACT_ADDR"),
		PredefinedTokenContractAddr:      viper.GetString("TOKEN_CONTRACT_ADDR"),
		// bootstrap participants
		SeedMerchants:  viper.GetStringSlice("SEED_MERCHANTS"),
		SeedCustodians: viper.GetStringSlice("SEED_CUSTODIANS"),
	}
}
