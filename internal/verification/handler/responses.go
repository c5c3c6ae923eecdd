package handler

import (
	"time"

	"profilecheck/internal/ledger"
	"profilecheck/internal/verification"
	dErrors "profilecheck/pkg/domain-errors"
	"profilecheck/pkg/platform/httputil"
)

// OperationResponse describes a verification operation, pending or finished.
type OperationResponse struct {
	OperationID string     `json:"operation_id"`
	AccountID   string     `json:"account_id"`
	Network     string     `json:"network"`
	State       string     `json:"state"`
	CreatedAt   time.Time  `json:"created_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`

	Verified   *bool      `json:"verified,omitempty"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	Reason     string     `json:"reason,omitempty"`
	Missing    []string   `json:"missing,omitempty"`
	Charged    string     `json:"charged,omitempty"`
	Refund     string     `json:"refund,omitempty"`

	Error *httputil.ErrorResponse `json:"error,omitempty"`
}

// RemovalResponse is returned by the removal endpoints.
type RemovalResponse struct {
	AccountID string `json:"account_id"`
	Removed   bool   `json:"removed"`
	Freed     string `json:"freed"`
	Refund    string `json:"refund"`
}

// RecordResponse is a stored verification record.
type RecordResponse struct {
	AccountID  string    `json:"account_id"`
	CheckType  string    `json:"check_type"`
	VerifiedAt time.Time `json:"verified_at"`
}

// StatusResponse answers whether an account is verified.
type StatusResponse struct {
	AccountID string `json:"account_id"`
	Verified  bool   `json:"verified"`
}

func toOperationResponse(op *verification.Operation) *OperationResponse {
	resp := &OperationResponse{
		OperationID: op.ID.String(),
		AccountID:   op.Account.String(),
		Network:     string(op.Endpoint.Network),
		State:       string(op.State()),
		CreatedAt:   op.CreatedAt,
	}
	if finished := op.FinishedAt(); !finished.IsZero() {
		resp.FinishedAt = &finished
	}

	outcome, err := op.Result()
	if err != nil {
		code := dErrors.CodeOf(err)
		resp.Error = &httputil.ErrorResponse{Error: string(code)}
		if de, ok := dErrors.As(err); ok && code != dErrors.CodeInternal {
			resp.Error.ErrorDescription = de.Message
		}
		return resp
	}
	if outcome == nil {
		return resp
	}

	verified := outcome.Verified
	resp.Verified = &verified
	if outcome.Verified {
		at := outcome.VerifiedAt
		resp.VerifiedAt = &at
		resp.Charged = outcome.Settlement.Charged.String()
	}
	resp.Reason = string(outcome.Reason)
	for _, c := range outcome.Missing {
		resp.Missing = append(resp.Missing, string(c))
	}
	resp.Refund = outcome.Refund.String()
	return resp
}

func toRemovalResponse(r *verification.Removal) *RemovalResponse {
	return &RemovalResponse{
		AccountID: r.Account.String(),
		Removed:   r.Removed,
		Freed:     r.Settlement.Freed.String(),
		Refund:    r.Refund.String(),
	}
}

func toRecordResponse(rec *ledger.VerificationRecord) *RecordResponse {
	return &RecordResponse{
		AccountID:  rec.AccountID.String(),
		CheckType:  rec.CheckType.String(),
		VerifiedAt: rec.VerifiedAt,
	}
}
