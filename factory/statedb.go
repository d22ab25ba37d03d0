package factory

import (
	"database/sql"

	"github.com/TEENet-io/custody-go/database"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// StateDB is the write-through persistence of the factory: both request
// sequences and both deposit address maps. The factory owns the in-memory
// copies; the db exists so a restart can reload them.
type StateDB struct {
	db        *sql.DB
	stmtCache *database.StmtCache
}

func NewStateDB(sqldb *sql.DB) (*StateDB, error) {
	ddl := mintRequestTable + burnRequestTable +
		custodianDepositAddressTable + merchantDepositAddressTable
	if _, err := sqldb.Exec(ddl); err != nil {
		return nil, err
	}

	return &StateDB{
		db:        sqldb,
		stmtCache: database.NewStmtCache(sqldb),
	}, nil
}

func (st *StateDB) Close() {
	st.stmtCache.Clear()
}

func (st *StateDB) InsertMintRequest(r *Request) error {
	return st.insertRequest("mint_request", r)
}

func (st *StateDB) InsertBurnRequest(r *Request) error {
	return st.insertRequest("burn_request", r)
}

func (st *StateDB) insertRequest(table string, r *Request) error {
	query := `INSERT INTO ` + table + ` (` + requestParamList + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	stmt := st.stmtCache.MustPrepare(query)

	s := encode(r)
	_, err := stmt.Exec(
		s.Nonce,
		s.Requester,
		s.Amount,
		s.BtcDepositAddress,
		s.BtcTxid,
		s.Timestamp,
		s.Status,
		s.RequestHash,
	)
	return err
}

// UpdateMintRequest rewrites the mutable columns of the record at r.Nonce.
// For mint that is status and the derived requestHash.
func (st *StateDB) UpdateMintRequest(r *Request) error {
	query := `UPDATE mint_request SET status = ?, requestHash = ? WHERE nonce = ?`
	stmt := st.stmtCache.MustPrepare(query)

	s := encode(r)
	_, err := stmt.Exec(s.Status, s.RequestHash, s.Nonce)
	return err
}

// UpdateBurnRequest additionally rewrites btcTxid, which burn confirmation
// sets together with the status.
func (st *StateDB) UpdateBurnRequest(r *Request) error {
	query := `UPDATE burn_request SET btcTxid = ?, status = ?, requestHash = ? WHERE nonce = ?`
	stmt := st.stmtCache.MustPrepare(query)

	s := encode(r)
	_, err := stmt.Exec(s.BtcTxid, s.Status, s.RequestHash, s.Nonce)
	return err
}

func (st *StateDB) GetMintRequests() ([]*Request, error) {
	return st.getRequests("mint_request")
}

func (st *StateDB) GetBurnRequests() ([]*Request, error) {
	return st.getRequests("burn_request")
}

func (st *StateDB) getRequests(table string) ([]*Request, error) {
	query := `SELECT` + requestParamList + `FROM ` + table + ` ORDER BY nonce ASC`
	stmt := st.stmtCache.MustPrepare(query)

	rows, err := stmt.Query()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*Request
	for rows.Next() {
		var s sqlRequest
		if err := rows.Scan(
			&s.Nonce,
			&s.Requester,
			&s.Amount,
			&s.BtcDepositAddress,
			&s.BtcTxid,
			&s.Timestamp,
			&s.Status,
			&s.RequestHash,
		); err != nil {
			return nil, err
		}
		requests = append(requests, s.decode())
	}

	return requests, rows.Err()
}

func (st *StateDB) SetCustodianDepositAddress(merchant ethcommon.Address, btcAddress string) error {
	return st.setDepositAddress("custodian_deposit_address", merchant, btcAddress)
}

func (st *StateDB) SetMerchantDepositAddress(merchant ethcommon.Address, btcAddress string) error {
	return st.setDepositAddress("merchant_deposit_address", merchant, btcAddress)
}

func (st *StateDB) setDepositAddress(table string, merchant ethcommon.Address, btcAddress string) error {
	query := `INSERT OR REPLACE INTO ` + table + ` (merchant, btcAddress) VALUES (?, ?)`
	stmt := st.stmtCache.MustPrepare(query)

	_, err := stmt.Exec(merchant.Hex()[2:], btcAddress)
	return err
}

// GetCustodianDepositAddress returns "" when no address is on file.
func (st *StateDB) GetCustodianDepositAddress(merchant ethcommon.Address) (string, error) {
	return st.getDepositAddress("custodian_deposit_address", merchant)
}

func (st *StateDB) GetMerchantDepositAddress(merchant ethcommon.Address) (string, error) {
	return st.getDepositAddress("merchant_deposit_address", merchant)
}

func (st *StateDB) getDepositAddress(table string, merchant ethcommon.Address) (string, error) {
	query := `SELECT btcAddress FROM ` + table + ` WHERE merchant = ?`
	stmt := st.stmtCache.MustPrepare(query)

	var addr string
	if err := stmt.QueryRow(merchant.Hex()[2:]).Scan(&addr); err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}

	return addr, nil
}
