package factory

import (
	"database/sql"
	"math/big"
	"testing"

	"github.com/TEENet-io/custody-go/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSimFactory(t *testing.T) *SimFactory {
	sqldb, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)

	sf, err := NewSimFactory(sqldb, nil)
	require.NoError(t, err)

	return sf
}

// drains one event or fails the test
func nextEvent(t *testing.T, sf *SimFactory) Event {
	select {
	case ev := <-sf.Events():
		return ev
	default:
		t.Fatal("expected an event")
		return nil
	}
}

func drainEvents(sf *SimFactory) {
	for {
		select {
		case <-sf.Events():
		default:
			return
		}
	}
}

func setupRoles(t *testing.T, sf *SimFactory) (merchant, custodian ethcommon.Address) {
	merchant = common.RandEthAddress()
	custodian = common.RandEthAddress()
	sf.Members.AddMerchant(merchant)
	sf.Members.AddCustodian(custodian)
	return
}

func TestSetCustodianBtcDepositAddress(t *testing.T) {
	sf := newSimFactory(t)
	defer sf.Close()
	merchant, custodian := setupRoles(t, sf)

	// only custodians may call
	err := sf.SetCustodianBtcDepositAddress(merchant, merchant, "addr1")
	assert.ErrorIs(t, err, ErrNotCustodian)

	// zero merchant and blank address rejected
	err = sf.SetCustodianBtcDepositAddress(custodian, ethcommon.Address{}, "addr1")
	assert.ErrorIs(t, err, ErrInvalidMerchant)
	err = sf.SetCustodianBtcDepositAddress(custodian, merchant, "")
	assert.ErrorIs(t, err, ErrEmptyDepositAddress)

	require.NoError(t, sf.SetCustodianBtcDepositAddress(custodian, merchant, "addr1"))
	got, err := sf.GetCustodianBtcDepositAddress(merchant)
	require.NoError(t, err)
	assert.Equal(t, "addr1", got)

	ev := nextEvent(t, sf).(CustodianBtcDepositAddressSet)
	assert.Equal(t, merchant, ev.Merchant)
	assert.Equal(t, "addr1", ev.BtcAddress)
	assert.Equal(t, custodian, ev.SetBy)

	// last write wins, no history
	require.NoError(t, sf.SetCustodianBtcDepositAddress(custodian, merchant, "addr2"))
	got, err = sf.GetCustodianBtcDepositAddress(merchant)
	require.NoError(t, err)
	assert.Equal(t, "addr2", got)
}

func TestSetMerchantBtcDepositAddress(t *testing.T) {
	sf := newSimFactory(t)
	defer sf.Close()
	merchant, custodian := setupRoles(t, sf)

	err := sf.SetMerchantBtcDepositAddress(custodian, "burnaddr")
	assert.ErrorIs(t, err, ErrNotMerchant)
	err = sf.SetMerchantBtcDepositAddress(merchant, "")
	assert.ErrorIs(t, err, ErrEmptyDepositAddress)

	require.NoError(t, sf.SetMerchantBtcDepositAddress(merchant, "burnaddr"))
	got, err := sf.GetMerchantBtcDepositAddress(merchant)
	require.NoError(t, err)
	assert.Equal(t, "burnaddr", got)

	ev := nextEvent(t, sf).(MerchantBtcDepositAddressSet)
	assert.Equal(t, merchant, ev.Merchant)
	assert.Equal(t, "burnaddr", ev.BtcAddress)
}

// Scenario A: no custodian address on file -> any non-blank address mismatches.
func TestAddMintRequestNoAddressOnFile(t *testing.T) {
	sf := newSimFactory(t)
	defer sf.Close()
	merchant, _ := setupRoles(t, sf)

	_, err := sf.AddMintRequest(merchant, big.NewInt(100), "", "addr1")
	assert.ErrorIs(t, err, ErrDepositAddressMismatch)
	assert.Equal(t, uint64(0), sf.GetMintRequestsLength())
}

func TestAddMintRequestValidation(t *testing.T) {
	sf := newSimFactory(t)
	defer sf.Close()
	merchant, custodian := setupRoles(t, sf)
	require.NoError(t, sf.SetCustodianBtcDepositAddress(custodian, merchant, "addr1"))

	_, err := sf.AddMintRequest(custodian, big.NewInt(100), "", "addr1")
	assert.ErrorIs(t, err, ErrNotMerchant)

	_, err = sf.AddMintRequest(merchant, big.NewInt(0), "", "addr1")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = sf.AddMintRequest(merchant, nil, "", "addr1")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = sf.AddMintRequest(merchant, big.NewInt(100), "", "")
	assert.ErrorIs(t, err, ErrEmptyDepositAddress)

	_, err = sf.AddMintRequest(merchant, big.NewInt(100), "", "otheraddr")
	assert.ErrorIs(t, err, ErrDepositAddressMismatch)

	assert.Equal(t, uint64(0), sf.GetMintRequestsLength())
}

// Txids and addresses are opaque strings; a 0x prefix on malformed hex must
// not break hashing or the lifecycle.
func TestRequestStringsAreOpaque(t *testing.T) {
	sf := newSimFactory(t)
	defer sf.Close()
	merchant, custodian := setupRoles(t, sf)
	require.NoError(t, sf.SetCustodianBtcDepositAddress(custodian, merchant, "addr1"))
	require.NoError(t, sf.SetMerchantBtcDepositAddress(merchant, "0xnot-hex-addr"))

	hash, err := sf.AddMintRequest(merchant, big.NewInt(100), "0xzz", "addr1")
	require.NoError(t, err)
	require.NoError(t, sf.ConfirmMintRequest(custodian, hash))

	info, err := sf.GetMintRequest(0)
	require.NoError(t, err)
	assert.Equal(t, "0xzz", info.BtcTxid)
	assert.Equal(t, StatusApproved, info.Status)

	burnHash, err := sf.Burn(merchant, big.NewInt(40))
	require.NoError(t, err)
	require.NoError(t, sf.ConfirmBurnRequest(custodian, burnHash, "0xnothex!"))

	info, err = sf.GetBurnRequest(0)
	require.NoError(t, err)
	assert.Equal(t, "0xnothex!", info.BtcTxid)
	assert.Equal(t, "0xnot-hex-addr", info.BtcDepositAddress)
}

// Scenario B: create -> confirm -> second confirm/reject is not-pending.
func TestMintRequestLifecycle(t *testing.T) {
	sf := newSimFactory(t)
	defer sf.Close()
	merchant, custodian := setupRoles(t, sf)
	require.NoError(t, sf.SetCustodianBtcDepositAddress(custodian, merchant, "addr1"))
	drainEvents(sf)

	hash, err := sf.AddMintRequest(merchant, big.NewInt(100), "", "addr1")
	require.NoError(t, err)

	info, err := sf.GetMintRequest(0)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, info.Status)
	assert.Equal(t, uint64(0), info.Nonce)
	assert.Equal(t, merchant, info.Requester)
	assert.Equal(t, hash, info.RequestHash)
	// accessor output re-hashes to the same value
	assert.Equal(t, info.RequestHash, info.Request.Hash())

	ev := nextEvent(t, sf).(MintRequestAdded)
	assert.Equal(t, hash, ev.RequestHash)
	assert.Equal(t, uint64(0), ev.Nonce)

	// only custodians may confirm
	err = sf.ConfirmMintRequest(merchant, hash)
	assert.ErrorIs(t, err, ErrNotCustodian)

	require.NoError(t, sf.ConfirmMintRequest(custodian, hash))
	assert.Equal(t, int64(100), sf.Controller.BalanceOf(merchant).Int64())

	info, err = sf.GetMintRequest(0)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, info.Status)

	cev := nextEvent(t, sf).(MintConfirmed)
	assert.True(t, cev.Confirmed)
	assert.Equal(t, hash, cev.RequestHash)

	// terminal: no further transition, no second mint
	err = sf.ConfirmMintRequest(custodian, hash)
	assert.ErrorIs(t, err, ErrRequestNotPending)
	err = sf.RejectMintRequest(custodian, hash)
	assert.ErrorIs(t, err, ErrRequestNotPending)
	err = sf.CancelMintRequest(merchant, hash)
	assert.ErrorIs(t, err, ErrRequestNotPending)
	assert.Equal(t, int64(100), sf.Controller.BalanceOf(merchant).Int64())
}

func TestRejectMintRequest(t *testing.T) {
	sf := newSimFactory(t)
	defer sf.Close()
	merchant, custodian := setupRoles(t, sf)
	require.NoError(t, sf.SetCustodianBtcDepositAddress(custodian, merchant, "addr1"))
	drainEvents(sf)

	hash, err := sf.AddMintRequest(merchant, big.NewInt(100), "", "addr1")
	require.NoError(t, err)
	drainEvents(sf)

	require.NoError(t, sf.RejectMintRequest(custodian, hash))

	// reject performs no mint
	assert.Equal(t, int64(0), sf.Controller.BalanceOf(merchant).Int64())

	info, err := sf.GetMintRequest(0)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, info.Status)

	ev := nextEvent(t, sf).(MintConfirmed)
	assert.False(t, ev.Confirmed)
}

func TestConfirmMintRequestUnknownHash(t *testing.T) {
	sf := newSimFactory(t)
	defer sf.Close()
	_, custodian := setupRoles(t, sf)

	err := sf.ConfirmMintRequest(custodian, ethcommon.Hash(common.RandBytes32()))
	assert.ErrorIs(t, err, ErrRequestNotFound)

	err = sf.ConfirmMintRequest(custodian, ethcommon.Hash{})
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

// Mint failure aborts the whole transition: status stays pending and the
// same hash can be confirmed again once the controller recovers.
func TestConfirmMintRequestControllerFailure(t *testing.T) {
	sf := newSimFactory(t)
	defer sf.Close()
	merchant, custodian := setupRoles(t, sf)
	require.NoError(t, sf.SetCustodianBtcDepositAddress(custodian, merchant, "addr1"))
	drainEvents(sf)

	hash, err := sf.AddMintRequest(merchant, big.NewInt(100), "", "addr1")
	require.NoError(t, err)
	drainEvents(sf)

	sf.Controller.FailMint = true
	err = sf.ConfirmMintRequest(custodian, hash)
	assert.ErrorIs(t, err, ErrTokenControllerFailure)

	info, err := sf.GetMintRequest(0)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, info.Status)
	assert.Equal(t, int64(0), sf.Controller.BalanceOf(merchant).Int64())

	// no outcome event was emitted for the failed attempt
	select {
	case ev := <-sf.Events():
		t.Fatalf("unexpected event: %v", ev)
	default:
	}

	sf.Controller.FailMint = false
	require.NoError(t, sf.ConfirmMintRequest(custodian, hash))
	assert.Equal(t, int64(100), sf.Controller.BalanceOf(merchant).Int64())
}

func TestCancelMintRequest(t *testing.T) {
	sf := newSimFactory(t)
	defer sf.Close()
	merchant, custodian := setupRoles(t, sf)
	require.NoError(t, sf.SetCustodianBtcDepositAddress(custodian, merchant, "addr1"))

	// a second certified merchant must still not cancel someone else's request
	other := common.RandEthAddress()
	sf.Members.AddMerchant(other)
	drainEvents(sf)

	hash, err := sf.AddMintRequest(merchant, big.NewInt(100), "", "addr1")
	require.NoError(t, err)
	drainEvents(sf)

	err = sf.CancelMintRequest(other, hash)
	assert.ErrorIs(t, err, ErrNotRequester)

	info, err := sf.GetMintRequest(0)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, info.Status)

	require.NoError(t, sf.CancelMintRequest(merchant, hash))

	info, err = sf.GetMintRequest(0)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, info.Status)

	ev := nextEvent(t, sf).(MintRequestCancelled)
	assert.Equal(t, hash, ev.RequestHash)
	assert.Equal(t, merchant, ev.Requester)

	// canceled is terminal
	err = sf.ConfirmMintRequest(custodian, hash)
	assert.ErrorIs(t, err, ErrRequestNotPending)
}

// Scenario C: eager burn at request time, confirmation attaches the txid and
// re-indexes; retrying with the stale hash fails with hash mismatch.
func TestBurnLifecycle(t *testing.T) {
	sf := newSimFactory(t)
	defer sf.Close()
	merchant, custodian := setupRoles(t, sf)
	require.NoError(t, sf.SetMerchantBtcDepositAddress(merchant, "burnaddr"))
	require.NoError(t, sf.Controller.Mint(merchant, big.NewInt(50)))
	drainEvents(sf)

	hash0, err := sf.Burn(merchant, big.NewInt(50))
	require.NoError(t, err)

	// tokens destroyed eagerly, before any confirmation
	assert.Equal(t, int64(0), sf.Controller.BalanceOf(merchant).Int64())
	assert.Equal(t, int64(0), sf.Controller.TotalSupply().Int64())

	info, err := sf.GetBurnRequest(0)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, info.Status)
	assert.Equal(t, "", info.BtcTxid)
	assert.Equal(t, "burnaddr", info.BtcDepositAddress)
	assert.Equal(t, hash0, info.RequestHash)

	bev := nextEvent(t, sf).(Burned)
	assert.Equal(t, hash0, bev.RequestHash)

	err = sf.ConfirmBurnRequest(merchant, hash0, "tx123")
	assert.ErrorIs(t, err, ErrNotCustodian)

	require.NoError(t, sf.ConfirmBurnRequest(custodian, hash0, "tx123"))

	info, err = sf.GetBurnRequest(0)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, info.Status)
	assert.Equal(t, "tx123", info.BtcTxid)
	// txid participates in the hash, so the hash moved
	assert.NotEqual(t, hash0, info.RequestHash)

	cev := nextEvent(t, sf).(BurnConfirmed)
	assert.Equal(t, hash0, cev.InputRequestHash)
	assert.Equal(t, "tx123", cev.BtcTxid)

	// the stale hash still resolves the nonce but no longer matches
	err = sf.ConfirmBurnRequest(custodian, hash0, "tx456")
	assert.ErrorIs(t, err, ErrRequestHashMismatch)

	// the new hash points at a non-pending record
	err = sf.ConfirmBurnRequest(custodian, info.RequestHash, "tx456")
	assert.ErrorIs(t, err, ErrRequestNotPending)

	// txid was set exactly once
	info, err = sf.GetBurnRequest(0)
	require.NoError(t, err)
	assert.Equal(t, "tx123", info.BtcTxid)
}

// The merchant burn address is deliberately not validated: a merchant with
// no address on file can still burn, the record carries "".
func TestBurnWithoutDepositAddress(t *testing.T) {
	sf := newSimFactory(t)
	defer sf.Close()
	merchant, _ := setupRoles(t, sf)
	require.NoError(t, sf.Controller.Mint(merchant, big.NewInt(10)))
	drainEvents(sf)

	_, err := sf.Burn(merchant, big.NewInt(10))
	require.NoError(t, err)

	info, err := sf.GetBurnRequest(0)
	require.NoError(t, err)
	assert.Equal(t, "", info.BtcDepositAddress)
}

func TestBurnValidation(t *testing.T) {
	sf := newSimFactory(t)
	defer sf.Close()
	merchant, custodian := setupRoles(t, sf)

	_, err := sf.Burn(custodian, big.NewInt(10))
	assert.ErrorIs(t, err, ErrNotMerchant)

	_, err = sf.Burn(merchant, big.NewInt(-5))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

// A failing token transfer aborts the burn request creation entirely: no
// record, no event, balances untouched.
func TestBurnTransferFailure(t *testing.T) {
	sf := newSimFactory(t)
	defer sf.Close()
	merchant, _ := setupRoles(t, sf)
	require.NoError(t, sf.Controller.Mint(merchant, big.NewInt(50)))
	drainEvents(sf)

	sf.Controller.FailTransfer = true
	_, err := sf.Burn(merchant, big.NewInt(50))
	assert.ErrorIs(t, err, ErrTokenControllerFailure)

	assert.Equal(t, uint64(0), sf.GetBurnRequestsLength())
	assert.Equal(t, int64(50), sf.Controller.BalanceOf(merchant).Int64())
	select {
	case ev := <-sf.Events():
		t.Fatalf("unexpected event: %v", ev)
	default:
	}

	// insufficient balance fails the same way
	sf.Controller.FailTransfer = false
	_, err = sf.Burn(merchant, big.NewInt(100))
	assert.ErrorIs(t, err, ErrTokenControllerFailure)
	assert.Equal(t, uint64(0), sf.GetBurnRequestsLength())
}

// Scenario D: nonces are dense, strictly increasing and match creation order
// across merchants; the length accessor counts successful creations only.
func TestMintRequestNonceOrdering(t *testing.T) {
	sf := newSimFactory(t)
	defer sf.Close()
	custodian := common.RandEthAddress()
	sf.Members.AddCustodian(custodian)

	m1 := common.RandEthAddress()
	m2 := common.RandEthAddress()
	sf.Members.AddMerchant(m1)
	sf.Members.AddMerchant(m2)
	require.NoError(t, sf.SetCustodianBtcDepositAddress(custodian, m1, "addr1"))
	require.NoError(t, sf.SetCustodianBtcDepositAddress(custodian, m2, "addr2"))

	hashes := make(map[ethcommon.Hash]bool)
	for i := 0; i < 6; i++ {
		var h ethcommon.Hash
		var err error
		if i%2 == 0 {
			h, err = sf.AddMintRequest(m1, big.NewInt(int64(100+i)), "", "addr1")
		} else {
			h, err = sf.AddMintRequest(m2, big.NewInt(int64(100+i)), "", "addr2")
		}
		require.NoError(t, err)
		assert.False(t, hashes[h], "request hashes must not collide")
		hashes[h] = true

		info, err := sf.GetMintRequest(uint64(i))
		require.NoError(t, err)
		assert.Equal(t, uint64(i), info.Nonce)
	}

	// a failed creation does not consume a nonce
	_, err := sf.AddMintRequest(m1, big.NewInt(1), "", "wrong")
	assert.ErrorIs(t, err, ErrDepositAddressMismatch)

	assert.Equal(t, uint64(6), sf.GetMintRequestsLength())
}

func TestGetRequestOutOfRange(t *testing.T) {
	sf := newSimFactory(t)
	defer sf.Close()

	_, err := sf.GetMintRequest(0)
	assert.ErrorIs(t, err, ErrNonceOutOfRange)
	_, err = sf.GetBurnRequest(7)
	assert.ErrorIs(t, err, ErrNonceOutOfRange)
}

// Restarting the factory over the same database reproduces sequences,
// lengths and hash lookups.
func TestReload(t *testing.T) {
	sqldb, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer sqldb.Close()

	sf, err := NewSimFactory(sqldb, nil)
	require.NoError(t, err)

	merchant, custodian := setupRoles(t, sf)
	require.NoError(t, sf.SetCustodianBtcDepositAddress(custodian, merchant, "addr1"))

	hash0, err := sf.AddMintRequest(merchant, big.NewInt(100), "", "addr1")
	require.NoError(t, err)
	hash1, err := sf.AddMintRequest(merchant, big.NewInt(200), "", "addr1")
	require.NoError(t, err)
	require.NoError(t, sf.ConfirmMintRequest(custodian, hash0))

	// second factory over the same db, same collaborators
	statedb, err := NewStateDB(sqldb)
	require.NoError(t, err)
	f2, err := New(statedb, sf.Members, sf.Controller, nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(2), f2.GetMintRequestsLength())

	info, err := f2.GetMintRequest(0)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, info.Status)
	assert.Equal(t, hash0, info.RequestHash)

	info, err = f2.GetMintRequest(1)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, info.Status)
	assert.Equal(t, hash1, info.RequestHash)

	// the reloaded index still guards transitions
	require.NoError(t, f2.ConfirmMintRequest(custodian, hash1))
	err = f2.ConfirmMintRequest(custodian, hash1)
	assert.ErrorIs(t, err, ErrRequestNotPending)
}
