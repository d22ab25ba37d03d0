package factory

import "errors"

var (
	// role guards
	ErrNotMerchant  = errors.New("caller is not a merchant")
	ErrNotCustodian = errors.New("caller is not a custodian")
	ErrNotRequester = errors.New("caller is not the requester of the request")

	// input validation
	ErrInvalidAmount       = errors.New("amount must be a positive integer")
	ErrInvalidMerchant     = errors.New("merchant is the zero address")
	ErrEmptyDepositAddress = errors.New("btc deposit address is empty")

	// mint creation
	ErrDepositAddressMismatch = errors.New("btc deposit address does not match the custodian deposit address on file")

	// guarded transitions
	ErrRequestNotFound     = errors.New("no request found for the given hash")
	ErrNonceOutOfRange     = errors.New("nonce exceeds the request sequence length")
	ErrRequestNotPending   = errors.New("request is no longer pending")
	ErrRequestHashMismatch = errors.New("given hash does not match the current request hash")

	// collaborators
	ErrTokenControllerFailure = errors.New("token controller call failed")
	ErrStateDBFailure         = errors.New("failed to persist request state")
)
