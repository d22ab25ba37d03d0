package factory

import "strings"

var (
	strZeroBytes20 = strings.Repeat("0", 40)

	// one table per request sequence; nonce doubles as the dense 0-based
	// sequence index
	mintRequestTable = `CREATE TABLE IF NOT EXISTS mint_request (
		nonce INTEGER PRIMARY KEY NOT NULL,
		requester CHAR(40) NOT NULL,
		amount BIGINT UNSIGNED NOT NULL,
		btcDepositAddress VARCHAR(62) NOT NULL,
		btcTxid VARCHAR(64) NOT NULL,
		timestamp BIGINT NOT NULL,
		status VARCHAR(10) NOT NULL,
		requestHash CHAR(64) NOT NULL,
		CONSTRAINT chk_status CHECK (status IN ('pending', 'canceled', 'approved', 'rejected')),
		CONSTRAINT chk_amount CHECK (amount > 0),
		CONSTRAINT chk_requester CHECK (requester != '` + strZeroBytes20 + `'),
		CONSTRAINT chk_btcDepositAddress CHECK (btcDepositAddress != '')
	);`

	// burn requests may carry an empty deposit address (not validated at
	// creation) and gain their btcTxid only at confirmation
	burnRequestTable = `CREATE TABLE IF NOT EXISTS burn_request (
		nonce INTEGER PRIMARY KEY NOT NULL,
		requester CHAR(40) NOT NULL,
		amount BIGINT UNSIGNED NOT NULL,
		btcDepositAddress VARCHAR(62) NOT NULL,
		btcTxid VARCHAR(64) NOT NULL,
		timestamp BIGINT NOT NULL,
		status VARCHAR(10) NOT NULL,
		requestHash CHAR(64) NOT NULL,
		CONSTRAINT chk_status CHECK (status IN ('pending', 'approved')),
		CONSTRAINT chk_amount CHECK (amount > 0),
		CONSTRAINT chk_requester CHECK (requester != '` + strZeroBytes20 + `')
	);`

	// one custodian-facing deposit address per merchant, last write wins
	custodianDepositAddressTable = `CREATE TABLE IF NOT EXISTS custodian_deposit_address (
		merchant CHAR(40) PRIMARY KEY NOT NULL,
		btcAddress VARCHAR(62) NOT NULL,
		CONSTRAINT chk_merchant CHECK (merchant != '` + strZeroBytes20 + `'),
		CONSTRAINT chk_btcAddress CHECK (btcAddress != '')
	);`

	merchantDepositAddressTable = `CREATE TABLE IF NOT EXISTS merchant_deposit_address (
		merchant CHAR(40) PRIMARY KEY NOT NULL,
		btcAddress VARCHAR(62) NOT NULL,
		CONSTRAINT chk_merchant CHECK (merchant != '` + strZeroBytes20 + `'),
		CONSTRAINT chk_btcAddress CHECK (btcAddress != '')
	);`

	requestParamList = " nonce, requester, amount, btcDepositAddress, btcTxid, timestamp, status, requestHash "
)
