package wallet

import "errors"

// Sentinel kinds for ledger errors.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrUnknownAccount    = errors.New("unknown account")
	ErrTransferRejected  = errors.New("transfer rejected")
)
