package common

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
)

// EncodePacked mimics solidity's abi.encodePacked for the value types the
// request hasher feeds it. Addresses contribute their 20 raw bytes, big ints
// a 32-byte big-endian word, strings their raw utf-8 bytes. Strings are
// never hex-decoded: btc txids and deposit addresses arrive from callers,
// and a "0x" prefix carries no meaning there.
func EncodePacked(values ...interface{}) []byte {
	var res [][]byte
	for _, value := range values {
		switch v := value.(type) {
		case string:
			res = append(res, []byte(v))
		case []byte:
			res = append(res, v)
		case [32]byte:
			res = append(res, v[:])
		case *big.Int:
			res = append(res, math.U256Bytes(v))
		case uint64:
			res = append(res, math.U256Bytes(new(big.Int).SetUint64(v)))
		case int64:
			res = append(res, math.U256Bytes(big.NewInt(v)))
		case common.Hash:
			res = append(res, v[:])
		case common.Address:
			res = append(res, v[:])
		case []string:
			res = append(res, encodeStringArray(v))
		}
	}
	return bytes.Join(res, nil)
}

func encodeStringArray(arr []string) []byte {
	var res [][]byte
	for _, v := range arr {
		res = append(res, []byte(v))
	}

	return bytes.Join(res, nil)
}
