package members

import (
	"database/sql"
	"testing"

	"github.com/TEENet-io/custody-go/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
)

func newTestDB(t *testing.T) (*StateDB, *sql.DB) {
	sqldb, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	st, err := NewStateDB(sqldb)
	if err != nil {
		t.Fatal(err)
	}
	return st, sqldb
}

func TestAddRemove(t *testing.T) {
	st, sqldb := newTestDB(t)
	defer sqldb.Close()
	defer st.Close()

	merchant := common.RandEthAddress()
	custodian := common.RandEthAddress()

	assert.False(t, st.IsMerchant(merchant))
	assert.False(t, st.IsCustodian(custodian))

	assert.NoError(t, st.Add(merchant, RoleMerchant))
	assert.NoError(t, st.Add(custodian, RoleCustodian))

	assert.True(t, st.IsMerchant(merchant))
	assert.True(t, st.IsCustodian(custodian))

	// roles do not bleed into each other
	assert.False(t, st.IsCustodian(merchant))
	assert.False(t, st.IsMerchant(custodian))

	// adding twice is a no-op
	assert.NoError(t, st.Add(merchant, RoleMerchant))
	assert.True(t, st.IsMerchant(merchant))

	assert.NoError(t, st.Remove(merchant, RoleMerchant))
	assert.False(t, st.IsMerchant(merchant))
}

func TestAddInvalid(t *testing.T) {
	st, sqldb := newTestDB(t)
	defer sqldb.Close()
	defer st.Close()

	err := st.Add(ethcommon.Address{}, RoleMerchant)
	assert.ErrorIs(t, err, ErrInvalidMemberAddress)

	err = st.Add(common.RandEthAddress(), Role("auditor"))
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestDualRole(t *testing.T) {
	st, sqldb := newTestDB(t)
	defer sqldb.Close()
	defer st.Close()

	addr := common.RandEthAddress()
	assert.NoError(t, st.Add(addr, RoleMerchant))
	assert.NoError(t, st.Add(addr, RoleCustodian))

	assert.True(t, st.IsMerchant(addr))
	assert.True(t, st.IsCustodian(addr))

	// removing one role keeps the other
	assert.NoError(t, st.Remove(addr, RoleCustodian))
	assert.True(t, st.IsMerchant(addr))
	assert.False(t, st.IsCustodian(addr))
}
