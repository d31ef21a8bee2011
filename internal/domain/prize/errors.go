package prize

import "errors"

// Sentinel kinds for prize distribution errors.
var (
	ErrNothingToClaim  = errors.New("nothing to claim")
	ErrBadShareTable   = errors.New("share table must sum to 10000 basis points")
	ErrBadIncentive    = errors.New("caller incentive out of range")
	ErrClaimFailed     = errors.New("claim transfer failed")
	ErrEmptyRecipient  = errors.New("empty recipient")
	ErrNegativeAmounts = errors.New("negative amount")
)
