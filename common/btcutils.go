package common

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

func IsValidBtcAddress(address string, cfg *chaincfg.Params) bool {
	if _, err := btcutil.DecodeAddress(address, cfg); err != nil {
		return false
	}

	return true
}

// IsValidBtcTxid reports whether s parses as a 32-byte btc tx hash.
func IsValidBtcTxid(s string) bool {
	if _, err := chainhash.NewHashFromStr(s); err != nil {
		return false
	}

	return true
}

func MainNetParams() *chaincfg.Params {
	return &chaincfg.MainNetParams
}

func RegressionNetParams() *chaincfg.Params {
	return &chaincfg.RegressionNetParams
}
