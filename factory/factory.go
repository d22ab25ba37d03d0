// Package factory owns the custody request registry: the append-only mint
// and burn request sequences, their hash indexes, the deposit address
// directory and the role-gated state transitions between them.
package factory

import (
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/TEENet-io/custody-go/common"
	"github.com/TEENet-io/custody-go/members"
	"github.com/btcsuite/btcd/chaincfg"
	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"
)

const defaultEventChannelSize = 1024

type Config struct {
	// EventChannelSize is the capacity of the audit event channel.
	EventChannelSize int

	// BtcChainParams enables an advisory (warn-only, never gating) format
	// check on submitted btc addresses. Nil disables the check.
	BtcChainParams *chaincfg.Params
}

// Factory is the single owning instance of the registry state. Every
// operation takes the one mutex, so read-modify-write sequences
// (lookup-by-hash -> check pending -> mutate -> re-index) never interleave
// and collaborator calls complete inside the transition they belong to.
type Factory struct {
	mu sync.Mutex

	statedb    *StateDB
	members    members.Registry
	controller TokenController
	cfg        *Config

	mintRequests []*Request
	burnRequests []*Request

	// content hash -> nonce. Entries go stale when a record's hashable
	// fields change (burn confirmation); stale entries are never removed,
	// the hash re-validation in getPendingRequest rejects them.
	mintIndex map[ethcommon.Hash]uint64
	burnIndex map[ethcommon.Hash]uint64

	evCh chan Event
}

func New(statedb *StateDB, registry members.Registry, controller TokenController, cfg *Config) (*Factory, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	size := cfg.EventChannelSize
	if size <= 0 {
		size = defaultEventChannelSize
	}

	f := &Factory{
		statedb:    statedb,
		members:    registry,
		controller: controller,
		cfg:        cfg,
		mintIndex:  make(map[ethcommon.Hash]uint64),
		burnIndex:  make(map[ethcommon.Hash]uint64),
		evCh:       make(chan Event, size),
	}

	if err := f.load(); err != nil {
		return nil, err
	}

	return f, nil
}

// load rebuilds the in-memory sequences and hash indexes from the statedb.
// Only current hashes are reconstructed; hashes orphaned by an earlier burn
// confirmation resolve to nothing after a restart, which still denies the
// operation (not-found instead of hash-mismatch).
func (f *Factory) load() error {
	mints, err := f.statedb.GetMintRequests()
	if err != nil {
		return err
	}
	for _, r := range mints {
		f.mintIndex[r.Hash()] = r.Nonce
	}
	f.mintRequests = mints

	burns, err := f.statedb.GetBurnRequests()
	if err != nil {
		return err
	}
	for _, r := range burns {
		f.burnIndex[r.Hash()] = r.Nonce
	}
	f.burnRequests = burns

	if len(mints) > 0 || len(burns) > 0 {
		logger.Infof("factory state reloaded: mintRequests=%d, burnRequests=%d", len(mints), len(burns))
	}

	return nil
}

// Events returns the audit stream. The channel is buffered; consumers that
// fall behind by more than the configured capacity lose events (a warning
// is logged for each drop).
func (f *Factory) Events() <-chan Event {
	return f.evCh
}

// ---- deposit address directory ----

func (f *Factory) SetCustodianBtcDepositAddress(caller, merchant ethcommon.Address, btcDepositAddress string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.members.IsCustodian(caller) {
		return ErrNotCustodian
	}
	if merchant == (ethcommon.Address{}) {
		return ErrInvalidMerchant
	}
	if btcDepositAddress == "" {
		return ErrEmptyDepositAddress
	}
	f.warnOnOddBtcAddress(btcDepositAddress)

	if err := f.statedb.SetCustodianDepositAddress(merchant, btcDepositAddress); err != nil {
		return fmt.Errorf("%w: %v", ErrStateDBFailure, err)
	}

	f.emit(CustodianBtcDepositAddressSet{
		Merchant:   merchant,
		BtcAddress: btcDepositAddress,
		SetBy:      caller,
	})
	return nil
}

func (f *Factory) SetMerchantBtcDepositAddress(caller ethcommon.Address, btcDepositAddress string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.members.IsMerchant(caller) {
		return ErrNotMerchant
	}
	if btcDepositAddress == "" {
		return ErrEmptyDepositAddress
	}
	f.warnOnOddBtcAddress(btcDepositAddress)

	if err := f.statedb.SetMerchantDepositAddress(caller, btcDepositAddress); err != nil {
		return fmt.Errorf("%w: %v", ErrStateDBFailure, err)
	}

	f.emit(MerchantBtcDepositAddressSet{
		Merchant:   caller,
		BtcAddress: btcDepositAddress,
	})
	return nil
}

// Reads are unrestricted. A merchant without an entry reads as "".
func (f *Factory) GetCustodianBtcDepositAddress(merchant ethcommon.Address) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statedb.GetCustodianDepositAddress(merchant)
}

func (f *Factory) GetMerchantBtcDepositAddress(merchant ethcommon.Address) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statedb.GetMerchantDepositAddress(merchant)
}

// ---- mint flow ----

// AddMintRequest appends a new pending mint request for the calling
// merchant and returns its content hash. The btcDepositAddress must match
// the custodian deposit address currently on file for the caller.
func (f *Factory) AddMintRequest(
	caller ethcommon.Address,
	amount *big.Int,
	btcTxid string,
	btcDepositAddress string,
) (ethcommon.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.members.IsMerchant(caller) {
		return ethcommon.Hash{}, ErrNotMerchant
	}
	if amount == nil || amount.Sign() <= 0 {
		return ethcommon.Hash{}, ErrInvalidAmount
	}
	if btcDepositAddress == "" {
		return ethcommon.Hash{}, ErrEmptyDepositAddress
	}

	onFile, err := f.statedb.GetCustodianDepositAddress(caller)
	if err != nil {
		return ethcommon.Hash{}, fmt.Errorf("%w: %v", ErrStateDBFailure, err)
	}
	if btcDepositAddress != onFile {
		return ethcommon.Hash{}, ErrDepositAddressMismatch
	}

	r := &Request{
		Requester:         caller,
		Amount:            common.BigIntClone(amount),
		BtcDepositAddress: btcDepositAddress,
		BtcTxid:           btcTxid,
		Nonce:             uint64(len(f.mintRequests)),
		Timestamp:         time.Now().Unix(),
		Status:            StatusPending,
	}
	hash := r.Hash()

	if err := f.statedb.InsertMintRequest(r); err != nil {
		return ethcommon.Hash{}, fmt.Errorf("%w: %v", ErrStateDBFailure, err)
	}

	f.mintRequests = append(f.mintRequests, r)
	f.mintIndex[hash] = r.Nonce

	f.emit(MintRequestAdded{
		Nonce:             r.Nonce,
		Requester:         r.Requester,
		Amount:            common.BigIntClone(r.Amount),
		BtcDepositAddress: r.BtcDepositAddress,
		BtcTxid:           r.BtcTxid,
		Timestamp:         r.Timestamp,
		RequestHash:       hash,
	})
	return hash, nil
}

// ConfirmMintRequest mints the requested amount to the requester and moves
// the request to approved. The controller call happens first; its failure
// aborts the whole transition with the request still pending.
func (f *Factory) ConfirmMintRequest(caller ethcommon.Address, requestHash ethcommon.Hash) error {
	return f.settleMintRequest(caller, requestHash, true)
}

// RejectMintRequest moves the request to rejected. No controller call.
func (f *Factory) RejectMintRequest(caller ethcommon.Address, requestHash ethcommon.Hash) error {
	return f.settleMintRequest(caller, requestHash, false)
}

func (f *Factory) settleMintRequest(caller ethcommon.Address, requestHash ethcommon.Hash, confirm bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.members.IsCustodian(caller) {
		return ErrNotCustodian
	}

	r, err := getPendingRequest(f.mintRequests, f.mintIndex, requestHash)
	if err != nil {
		return err
	}

	if confirm {
		if err := f.controller.Mint(r.Requester, common.BigIntClone(r.Amount)); err != nil {
			return fmt.Errorf("%w: mint: %v", ErrTokenControllerFailure, err)
		}
	}

	updated := r.Clone()
	if confirm {
		updated.Status = StatusApproved
	} else {
		updated.Status = StatusRejected
	}

	if err := f.commitMintRequest(updated); err != nil {
		return err
	}

	f.emit(MintConfirmed{
		Nonce:             updated.Nonce,
		Requester:         updated.Requester,
		Amount:            common.BigIntClone(updated.Amount),
		BtcDepositAddress: updated.BtcDepositAddress,
		BtcTxid:           updated.BtcTxid,
		Timestamp:         updated.Timestamp,
		RequestHash:       updated.Hash(),
		Confirmed:         confirm,
	})
	return nil
}

// CancelMintRequest is gated on identity, not role: only the original
// requester may cancel, merchant certification is not re-checked.
func (f *Factory) CancelMintRequest(caller ethcommon.Address, requestHash ethcommon.Hash) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, err := getPendingRequest(f.mintRequests, f.mintIndex, requestHash)
	if err != nil {
		return err
	}
	if r.Requester != caller {
		return ErrNotRequester
	}

	updated := r.Clone()
	updated.Status = StatusCanceled

	if err := f.commitMintRequest(updated); err != nil {
		return err
	}

	f.emit(MintRequestCancelled{
		Nonce:       updated.Nonce,
		Requester:   updated.Requester,
		RequestHash: updated.Hash(),
	})
	return nil
}

func (f *Factory) commitMintRequest(updated *Request) error {
	if err := f.statedb.UpdateMintRequest(updated); err != nil {
		return fmt.Errorf("%w: %v", ErrStateDBFailure, err)
	}
	f.mintRequests[updated.Nonce] = updated
	f.mintIndex[updated.Hash()] = updated.Nonce
	return nil
}

// ---- burn flow ----

// Burn destroys the caller's tokens immediately (transfer into custody,
// then burn) and only then records the pending burn request; confirmation
// later attaches the btc txid. The caller's burn address may be blank at
// this point; it is recorded as-is.
func (f *Factory) Burn(caller ethcommon.Address, amount *big.Int) (ethcommon.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.members.IsMerchant(caller) {
		return ethcommon.Hash{}, ErrNotMerchant
	}
	if amount == nil || amount.Sign() <= 0 {
		return ethcommon.Hash{}, ErrInvalidAmount
	}

	btcDepositAddress, err := f.statedb.GetMerchantDepositAddress(caller)
	if err != nil {
		return ethcommon.Hash{}, fmt.Errorf("%w: %v", ErrStateDBFailure, err)
	}

	if err := f.controller.TransferInto(caller, common.BigIntClone(amount)); err != nil {
		return ethcommon.Hash{}, fmt.Errorf("%w: transfer: %v", ErrTokenControllerFailure, err)
	}
	if err := f.controller.Burn(common.BigIntClone(amount)); err != nil {
		// the transfer already went through; a failure here means the
		// controller's custody accounting is broken
		logger.Errorf("burn failed after transfer succeeded: requester=%s, amount=%v, err=%v",
			caller.Hex(), amount, err)
		return ethcommon.Hash{}, fmt.Errorf("%w: burn: %v", ErrTokenControllerFailure, err)
	}

	r := &Request{
		Requester:         caller,
		Amount:            common.BigIntClone(amount),
		BtcDepositAddress: btcDepositAddress,
		BtcTxid:           "",
		Nonce:             uint64(len(f.burnRequests)),
		Timestamp:         time.Now().Unix(),
		Status:            StatusPending,
	}
	hash := r.Hash()

	if err := f.statedb.InsertBurnRequest(r); err != nil {
		return ethcommon.Hash{}, fmt.Errorf("%w: %v", ErrStateDBFailure, err)
	}

	f.burnRequests = append(f.burnRequests, r)
	f.burnIndex[hash] = r.Nonce

	f.emit(Burned{
		Nonce:             r.Nonce,
		Requester:         r.Requester,
		Amount:            common.BigIntClone(r.Amount),
		BtcDepositAddress: r.BtcDepositAddress,
		Timestamp:         r.Timestamp,
		RequestHash:       hash,
	})
	return hash, nil
}

// ConfirmBurnRequest attaches the btc txid and approves the request in one
// move, then re-indexes the record under its new hash. The supplied hash
// stays in the index but no longer matches, so a retry fails with
// ErrRequestHashMismatch. There is no reject or cancel path for burns.
func (f *Factory) ConfirmBurnRequest(caller ethcommon.Address, requestHash ethcommon.Hash, btcTxid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.members.IsCustodian(caller) {
		return ErrNotCustodian
	}

	r, err := getPendingRequest(f.burnRequests, f.burnIndex, requestHash)
	if err != nil {
		return err
	}

	if btcTxid != "" && !common.IsValidBtcTxid(btcTxid) {
		logger.Warnf("btc txid does not parse as a tx hash: txid=%s, nonce=%d", btcTxid, r.Nonce)
	}

	updated := r.Clone()
	updated.BtcTxid = btcTxid
	updated.Status = StatusApproved

	if err := f.statedb.UpdateBurnRequest(updated); err != nil {
		return fmt.Errorf("%w: %v", ErrStateDBFailure, err)
	}
	f.burnRequests[updated.Nonce] = updated
	f.burnIndex[updated.Hash()] = updated.Nonce

	f.emit(BurnConfirmed{
		Nonce:             updated.Nonce,
		Requester:         updated.Requester,
		Amount:            common.BigIntClone(updated.Amount),
		BtcDepositAddress: updated.BtcDepositAddress,
		BtcTxid:           updated.BtcTxid,
		Timestamp:         updated.Timestamp,
		InputRequestHash:  requestHash,
	})
	return nil
}

// ---- read accessors ----

func (f *Factory) GetMintRequest(nonce uint64) (*RequestInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return getRequest(f.mintRequests, nonce)
}

func (f *Factory) GetBurnRequest(nonce uint64) (*RequestInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return getRequest(f.burnRequests, nonce)
}

func (f *Factory) GetMintRequestsLength() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.mintRequests))
}

func (f *Factory) GetBurnRequestsLength() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.burnRequests))
}

func getRequest(seq []*Request, nonce uint64) (*RequestInfo, error) {
	if nonce >= uint64(len(seq)) {
		return nil, ErrNonceOutOfRange
	}
	r := seq[nonce]
	return &RequestInfo{
		Request:     *r.Clone(),
		RequestHash: r.Hash(),
	}, nil
}

// getPendingRequest is the shared guard of every hash-addressed transition:
// resolve the nonce, re-validate the hash against the current record, then
// require pending. The hash check runs before the status check so a hash
// orphaned by a burn confirmation fails with hash-mismatch, not with a
// friendlier already-settled error.
func getPendingRequest(seq []*Request, index map[ethcommon.Hash]uint64, hash ethcommon.Hash) (*Request, error) {
	if hash == (ethcommon.Hash{}) {
		return nil, ErrRequestNotFound
	}

	nonce, ok := index[hash]
	if !ok {
		return nil, ErrRequestNotFound
	}

	r := seq[nonce]
	if r.Hash() != hash {
		return nil, ErrRequestHashMismatch
	}
	if r.Status != StatusPending {
		return nil, ErrRequestNotPending
	}

	return r, nil
}

func (f *Factory) warnOnOddBtcAddress(addr string) {
	if f.cfg.BtcChainParams == nil {
		return
	}
	if !common.IsValidBtcAddress(addr, f.cfg.BtcChainParams) {
		logger.Warnf("btc address does not parse for the configured chain: addr=%s", addr)
	}
}

// emit never blocks the transition that produced the event.
func (f *Factory) emit(ev Event) {
	logger.Infof("%s: %+v", ev.Name(), ev)
	select {
	case f.evCh <- ev:
	default:
		logger.Warnf("event channel full, dropping event: %s", ev.Name())
	}
}
