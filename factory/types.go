package factory

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/TEENet-io/custody-go/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusCanceled RequestStatus = "canceled"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// Terminal reports whether a request in this status can never change again.
func (s RequestStatus) Terminal() bool {
	return s != StatusPending
}

// Request is one entry in a mint or burn sequence. Requester, Amount,
// BtcDepositAddress, Nonce and Timestamp never change after creation.
// Status always does exactly one Pending -> terminal move; BtcTxid is set
// once, at confirmation, for burn requests only.
type Request struct {
	Requester         ethcommon.Address
	Amount            *big.Int
	BtcDepositAddress string
	BtcTxid           string
	Nonce             uint64
	Timestamp         int64 // unix seconds, assigned at creation
	Status            RequestStatus
}

// Hash digests the request's current fields. Status is not part of the
// digest; mutating BtcTxid changes the result, which is what makes
// stale-hash detection work.
func (r *Request) Hash() ethcommon.Hash {
	return CalcRequestHash(r.Requester, r.Amount, r.BtcDepositAddress, r.BtcTxid, r.Nonce, r.Timestamp)
}

func (r *Request) Clone() *Request {
	clone := *r
	clone.Amount = new(big.Int).Set(r.Amount)
	return &clone
}

func (r *Request) String() string {
	return fmt.Sprintf("%+v", *r)
}

// RequestInfo is the accessor view: a snapshot of the record plus its
// status label and content hash at read time.
type RequestInfo struct {
	Request
	RequestHash ethcommon.Hash
}

func (ri *RequestInfo) MarshalJSON() ([]byte, error) {
	return json.Marshal(&JSONRequest{
		Requester:         ri.Requester.Hex(),
		Amount:            common.BigIntToHexStr(ri.Amount),
		BtcDepositAddress: ri.BtcDepositAddress,
		BtcTxid:           ri.BtcTxid,
		Nonce:             ri.Nonce,
		Timestamp:         ri.Timestamp,
		Status:            string(ri.Status),
		RequestHash:       ri.RequestHash.Hex(),
	})
}

type JSONRequest struct {
	Requester         string `json:"requester"`
	Amount            string `json:"amount"`
	BtcDepositAddress string `json:"btc_deposit_address"`
	BtcTxid           string `json:"btc_txid"`
	Nonce             uint64 `json:"nonce"`
	Timestamp         int64  `json:"timestamp"`
	Status            string `json:"status"`
	RequestHash       string `json:"request_hash"`
}

type sqlRequest struct {
	Nonce             uint64
	Requester         string
	Amount            uint64
	BtcDepositAddress string
	BtcTxid           string
	Timestamp         int64
	Status            string
	RequestHash       string
}

func encode(r *Request) *sqlRequest {
	return &sqlRequest{
		Nonce:             r.Nonce,
		Requester:         r.Requester.Hex()[2:],
		Amount:            r.Amount.Uint64(),
		BtcDepositAddress: r.BtcDepositAddress,
		BtcTxid:           r.BtcTxid,
		Timestamp:         r.Timestamp,
		Status:            string(r.Status),
		RequestHash:       r.Hash().Hex()[2:],
	}
}

func (s *sqlRequest) decode() *Request {
	return &Request{
		Requester:         ethcommon.HexToAddress("0x" + s.Requester),
		Amount:            new(big.Int).SetUint64(s.Amount),
		BtcDepositAddress: s.BtcDepositAddress,
		BtcTxid:           s.BtcTxid,
		Nonce:             s.Nonce,
		Timestamp:         s.Timestamp,
		Status:            RequestStatus(s.Status),
	}
}
