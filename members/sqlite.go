package members

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/TEENet-io/custody-go/database"
	ethcommon "github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"
)

var (
	ErrInvalidMemberAddress = errors.New("member address is the zero address")
	ErrInvalidRole          = errors.New("unknown member role")
)

var memberTable = `CREATE TABLE IF NOT EXISTS member (
	addr CHAR(40) NOT NULL,
	role VARCHAR(10) NOT NULL,
	PRIMARY KEY (addr, role),
	CONSTRAINT chk_role CHECK (role IN ('merchant', 'custodian')),
	CONSTRAINT chk_addr CHECK (addr != '` + strings.Repeat("0", 40) + `')
);`

// StateDB is the sqlite-backed membership registry. It satisfies Registry
// and additionally carries the management operations (add / remove).
type StateDB struct {
	db        *sql.DB
	stmtCache *database.StmtCache
}

func NewStateDB(sqldb *sql.DB) (*StateDB, error) {
	if _, err := sqldb.Exec(memberTable); err != nil {
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

func (st *StateDB) Add(addr ethcommon.Address, role Role) error {
	if addr == (ethcommon.Address{}) {
		return ErrInvalidMemberAddress
	}
	if role != RoleMerchant && role != RoleCustodian {
		return ErrInvalidRole
	}

	query := `INSERT OR IGNORE INTO member (addr, role) VALUES (?, ?)`
	stmt := st.stmtCache.MustPrepare(query)

	if _, err := stmt.Exec(encodeAddr(addr), string(role)); err != nil {
		return err
	}

	logger.Infof("member added: addr=%s, role=%s", addr.Hex(), role)
	return nil
}

func (st *StateDB) Remove(addr ethcommon.Address, role Role) error {
	query := `DELETE FROM member WHERE addr = ? AND role = ?`
	stmt := st.stmtCache.MustPrepare(query)

	if _, err := stmt.Exec(encodeAddr(addr), string(role)); err != nil {
		return err
	}

	logger.Infof("member removed: addr=%s, role=%s", addr.Hex(), role)
	return nil
}

func (st *StateDB) IsMerchant(addr ethcommon.Address) bool {
	return st.has(addr, RoleMerchant)
}

func (st *StateDB) IsCustodian(addr ethcommon.Address) bool {
	return st.has(addr, RoleCustodian)
}

func (st *StateDB) has(addr ethcommon.Address, role Role) bool {
	query := `SELECT EXISTS(SELECT 1 FROM member WHERE addr = ? AND role = ?)`
	stmt := st.stmtCache.MustPrepare(query)

	var exists bool
	if err := stmt.QueryRow(encodeAddr(addr), string(role)).Scan(&exists); err != nil {
		logger.Errorf("failed to query member table: err=%v", err)
		return false
	}

	return exists
}

func encodeAddr(addr ethcommon.Address) string {
	return addr.Hex()[2:]
}
