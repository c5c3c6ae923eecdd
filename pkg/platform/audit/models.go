package audit

import (
	"context"
	"time"

	"profilecheck/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose so stores can
// apply different retention and routing.
type EventCategory string

const (
	// CategoryCompliance covers ledger and balance changes.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers refused or suspicious requests.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine pipeline activity; may be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. It stays
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	// AccountID is the account whose verification state the event concerns.
	AccountID domain.AccountID
	// ActorID is the caller, when different from AccountID.
	ActorID     string
	Action      string
	Decision    string
	Reason      string
	Amount      string
	OperationID string
	RequestID   string
	ClientIP    string
}

type AuditEvent string

const (
	EventVerificationRequested AuditEvent = "verification_requested"
	EventVerificationRecorded  AuditEvent = "verification_recorded"
	EventVerificationRejected  AuditEvent = "verification_rejected"
	EventVerificationFailed    AuditEvent = "verification_failed"
	EventVerificationRemoved   AuditEvent = "verification_removed"
	EventRemovalDenied         AuditEvent = "removal_denied"
	EventRefundIssued          AuditEvent = "refund_issued"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventVerificationRecorded: CategoryCompliance,
	EventVerificationRemoved:  CategoryCompliance,
	EventRefundIssued:         CategoryCompliance,

	EventRemovalDenied:      CategorySecurity,
	EventVerificationFailed: CategorySecurity,

	EventVerificationRequested: CategoryOperations,
	EventVerificationRejected:  CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByAccount(ctx context.Context, account domain.AccountID) ([]Event, error)
}
