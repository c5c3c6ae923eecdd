package ledger

import (
	"time"

	"profilecheck/pkg/domain"
)

// CheckType names a kind of verification. Records of every check type share
// the same shape; only one kind exists today.
type CheckType string

const (
	CheckCompleteSocialProfile CheckType = "complete_social_profile"
)

func (c CheckType) String() string {
	return string(c)
}

// VerificationRecord states that an account passed a check at a point in time.
type VerificationRecord struct {
	AccountID  domain.AccountID
	CheckType  CheckType
	VerifiedAt time.Time
}
