// Package verification runs the profile completeness check: one registry read
// per request, then a continuation that records passing accounts in the ledger
// and settles the attached storage deposit.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"profilecheck/internal/accounting"
	"profilecheck/internal/ledger"
	"profilecheck/internal/profile"
	"profilecheck/internal/registry"
	"profilecheck/internal/settlement"
	"profilecheck/internal/verification/metrics"
	"profilecheck/pkg/domain"
	dErrors "profilecheck/pkg/domain-errors"
	"profilecheck/pkg/jsonvalue"
	audit "profilecheck/pkg/platform/audit"
	"profilecheck/pkg/platform/sentinel"
	"profilecheck/pkg/requestcontext"
)

// DefaultQueryBudget bounds the single registry read of a verification.
const DefaultQueryBudget = 5 * time.Second

// RegistryClient reads documents from the social registry.
type RegistryClient interface {
	Get(ctx context.Context, endpoint registry.Endpoint, keys []string) ([]byte, error)
}

// Transferer delivers refunds.
type Transferer interface {
	Transfer(ctx context.Context, t settlement.Transfer) error
}

// AuditPublisher records audit events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	ledger         *ledger.Ledger
	accountant     *accounting.Accountant
	registry       RegistryClient
	transferer     Transferer
	endpoints      registry.Endpoints
	tracker        *Tracker
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	logger         *slog.Logger
	tracer         trace.Tracer
	now            func() time.Time
	queryBudget    time.Duration

	inflight sync.WaitGroup
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// WithClock sets the source of verification timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithQueryBudget bounds each registry read. Non-positive values are ignored.
func WithQueryBudget(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.queryBudget = d
		}
	}
}

func WithTracker(t *Tracker) Option {
	return func(s *Service) {
		s.tracker = t
	}
}

func WithEndpoints(e registry.Endpoints) Option {
	return func(s *Service) {
		s.endpoints = e
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func New(l *ledger.Ledger, accountant *accounting.Accountant, client RegistryClient, transferer Transferer, opts ...Option) (*Service, error) {
	if l == nil {
		return nil, errors.New("ledger is required")
	}
	if accountant == nil {
		return nil, errors.New("accountant is required")
	}
	if client == nil {
		return nil, errors.New("registry client is required")
	}
	if transferer == nil {
		return nil, errors.New("transferer is required")
	}

	svc := &Service{
		ledger:      l,
		accountant:  accountant,
		registry:    client,
		transferer:  transferer,
		endpoints:   registry.DefaultEndpoints(),
		logger:      slog.Default(),
		tracer:      otel.Tracer("profilecheck/internal/verification"),
		now:         time.Now,
		queryBudget: DefaultQueryBudget,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.tracker == nil {
		svc.tracker = NewTracker(DefaultRetention)
	}
	return svc, nil
}

// RequestVerification starts checking req.Account's profile and returns the
// pending operation. The registry read and its continuation run in the
// background on a context that outlives the caller's.
func (s *Service) RequestVerification(ctx context.Context, req Request) (*Operation, error) {
	if req.Account.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller account is required")
	}
	signer := req.Signer
	if signer.IsNil() {
		signer = req.Account
	}

	op := newOperation(req, s.endpoints.Select(signer), s.now())
	s.tracker.Add(op)
	s.emit(ctx, audit.Event{
		AccountID:   op.Account,
		Action:      string(audit.EventVerificationRequested),
		Amount:      op.Deposit.String(),
		OperationID: op.ID.String(),
	})
	s.logger.InfoContext(ctx, "verification requested",
		"operation_id", op.ID,
		"account_id", op.Account,
		"endpoint", op.Endpoint.String(),
		"deposit", op.Deposit.String(),
	)

	detached := withOperationID(context.WithoutCancel(ctx), op.ID)
	s.metrics.IncInFlight()
	s.inflight.Add(1)
	go s.run(detached, op)
	return op, nil
}

// Verify requests a verification and waits for it.
func (s *Service) Verify(ctx context.Context, req Request) (*Operation, *Outcome, error) {
	op, err := s.RequestVerification(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	outcome, err := op.Wait(ctx)
	if err != nil && ctx.Err() != nil {
		return op, nil, dErrors.Wrap(err, dErrors.CodeTimeout, "verification still pending")
	}
	return op, outcome, err
}

// Operation returns a tracked operation by its string id.
func (s *Service) Operation(_ context.Context, id string) (*Operation, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid operation id")
	}
	op, err := s.tracker.Get(parsed)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "operation not found")
	}
	return op, nil
}

func (s *Service) run(ctx context.Context, op *Operation) {
	defer s.inflight.Done()
	defer s.metrics.DecInFlight()

	ctx, span := s.tracer.Start(ctx, "verification.run", trace.WithAttributes(
		attribute.String("operation.id", op.ID.String()),
		attribute.String("account.id", op.Account.String()),
		attribute.String("registry.endpoint", op.Endpoint.String()),
	))
	defer span.End()

	result := s.query(ctx, op)
	outcome, err := s.OnQueryComplete(ctx, op.Account, op.Deposit, result)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "verification failed")
		op.fail(err, s.now())
		return
	}
	span.SetAttributes(attribute.Bool("verification.verified", outcome.Verified))
	op.resolve(&outcome, s.now())
}

// query performs the operation's only registry call.
func (s *Service) query(ctx context.Context, op *Operation) QueryResult {
	ctx, cancel := context.WithTimeout(ctx, s.queryBudget)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "registry.get")
	defer span.End()

	start := time.Now()
	doc, err := s.registry.Get(ctx, op.Endpoint, []string{registry.ProfileKey(op.Account)})
	s.metrics.ObserveRegistryLatency(string(op.Endpoint.Network), time.Since(start))
	if err != nil {
		category := registry.CategoryOf(err)
		s.metrics.IncrementRegistryError(string(category))
		span.RecordError(err)
		span.SetStatus(codes.Error, string(category))
		s.logger.WarnContext(ctx, "registry query failed",
			"operation_id", op.ID,
			"account_id", op.Account,
			"category", category,
			"error", err,
		)
		return QueryResult{Err: err}
	}
	return QueryResult{Document: doc}
}

// OnQueryComplete acts on the registry response for account. Registry
// failures and documents that do not describe a complete profile resolve to a
// not-verified outcome and a full deposit refund. A complete profile is
// recorded and charged in one ledger transaction; insufficient deposit or
// amount overflow abort that transaction, return the deposit and are
// returned as errors.
func (s *Service) OnQueryComplete(ctx context.Context, account domain.AccountID, deposit domain.Amount, result QueryResult) (Outcome, error) {
	if result.Err != nil {
		return s.reject(ctx, account, deposit, RejectRegistryError, nil)
	}
	doc, err := jsonvalue.Parse(result.Document)
	if err != nil || doc.Kind() != jsonvalue.KindObject {
		return s.reject(ctx, account, deposit, RejectMalformedDocument, nil)
	}
	report := profile.Check(doc, account)
	if !report.Passed() {
		return s.reject(ctx, account, deposit, RejectIncompleteProfile, report.Missing())
	}

	verifiedAt := s.now()
	var settled accounting.Settlement
	err = s.ledger.RunInTx(ctx, account, func(tx *ledger.Tx) error {
		before := tx.Usage()
		if err := tx.Upsert(account, verifiedAt); err != nil {
			return err
		}
		var err error
		settled, err = s.accountant.Settle(before, tx.Usage(), deposit)
		return err
	})
	if err != nil {
		s.metrics.IncrementOutcome("failed", "")
		s.emit(ctx, audit.Event{
			AccountID: account,
			Action:    string(audit.EventVerificationFailed),
			Decision:  "aborted",
			Reason:    err.Error(),
			Amount:    deposit.String(),
		})
		s.logger.ErrorContext(ctx, "verification aborted",
			"account_id", account,
			"deposit", deposit.String(),
			"error", err,
		)
		s.refund(ctx, account, deposit, settlement.ReasonAborted)
		return Outcome{}, toServiceError(err, "failed to record verification")
	}

	s.metrics.IncrementOutcome("verified", "")
	s.emit(ctx, audit.Event{
		AccountID: account,
		Action:    string(audit.EventVerificationRecorded),
		Decision:  "verified",
		Amount:    settled.Charged.String(),
	})
	s.logger.InfoContext(ctx, "profile verified",
		"account_id", account,
		"bytes", settled.Bytes,
		"charged", settled.Charged.String(),
		"refund", settled.Refund.String(),
	)
	s.refund(ctx, account, settled.Refund, settlement.ReasonDepositSurplus)

	return Outcome{
		Account:    account,
		Verified:   true,
		VerifiedAt: verifiedAt,
		Settlement: settled,
		Refund:     settled.Refund,
	}, nil
}

func (s *Service) reject(ctx context.Context, account domain.AccountID, deposit domain.Amount, reason RejectReason, missing []profile.Criterion) (Outcome, error) {
	s.metrics.IncrementOutcome("not_verified", string(reason))
	s.emit(ctx, audit.Event{
		AccountID: account,
		Action:    string(audit.EventVerificationRejected),
		Decision:  "not_verified",
		Reason:    string(reason),
	})
	s.logger.InfoContext(ctx, "profile not verified",
		"account_id", account,
		"reason", reason,
		"missing", missing,
	)
	s.refund(ctx, account, deposit, settlement.ReasonNotVerified)
	return Outcome{
		Account:    account,
		Reason:     reason,
		Missing:    missing,
		Settlement: accounting.Settlement{Direction: accounting.DirectionUnchanged, Refund: deposit},
		Refund:     deposit,
	}, nil
}

// Remove deletes target's verification record on behalf of caller and
// refunds the freed storage cost plus deposit. Only the owner may remove a
// record. Removing an absent record changes nothing and returns the deposit;
// a refused or failed removal returns it as well.
func (s *Service) Remove(ctx context.Context, caller, target domain.AccountID, deposit domain.Amount) (*Removal, error) {
	if caller.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller account is required")
	}
	if caller != target {
		s.metrics.IncrementRemoval("denied")
		s.emit(ctx, audit.Event{
			AccountID: target,
			ActorID:   caller.String(),
			Action:    string(audit.EventRemovalDenied),
			Decision:  "denied",
			Reason:    "not_owner",
		})
		s.logger.WarnContext(ctx, "removal of foreign verification denied",
			"caller", caller,
			"target", target,
		)
		s.refund(ctx, caller, deposit, settlement.ReasonAborted)
		return nil, dErrors.New(dErrors.CodeForbidden, "accounts can only remove their own verification")
	}

	var (
		removed bool
		settled accounting.Settlement
	)
	err := s.ledger.RunInTx(ctx, target, func(tx *ledger.Tx) error {
		before := tx.Usage()
		var err error
		if removed, err = tx.Remove(target); err != nil {
			return err
		}
		settled, err = s.accountant.Settle(before, tx.Usage(), deposit)
		return err
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "verification removal failed",
			"account_id", target,
			"error", err,
		)
		s.refund(ctx, target, deposit, settlement.ReasonAborted)
		return nil, toServiceError(err, "failed to remove verification")
	}

	reason := settlement.ReasonDepositSurplus
	if removed {
		reason = settlement.ReasonStorageFreed
		s.metrics.IncrementRemoval("removed")
		s.emit(ctx, audit.Event{
			AccountID: target,
			Action:    string(audit.EventVerificationRemoved),
			Decision:  "removed",
			Amount:    settled.Freed.String(),
		})
		s.logger.InfoContext(ctx, "verification removed",
			"account_id", target,
			"bytes", settled.Bytes,
			"freed", settled.Freed.String(),
		)
	} else {
		s.metrics.IncrementRemoval("absent")
	}
	s.refund(ctx, target, settled.Refund, reason)

	return &Removal{
		Account:    target,
		Removed:    removed,
		Settlement: settled,
		Refund:     settled.Refund,
	}, nil
}

// Has reports whether account holds a verification record.
func (s *Service) Has(ctx context.Context, account domain.AccountID) (bool, error) {
	ok, err := s.ledger.Has(ctx, account)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read verification")
	}
	return ok, nil
}

// Fetch returns account's verification record.
func (s *Service) Fetch(ctx context.Context, account domain.AccountID) (*ledger.VerificationRecord, error) {
	rec, err := s.ledger.Fetch(ctx, account)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "verification not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read verification")
	}
	return rec, nil
}

// Wait blocks until every background continuation has finished or ctx ends.
func (s *Service) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for verifications: %w", ctx.Err())
	}
}

// refund sends amount to account. A failed transfer does not undo the ledger
// change; it is logged and counted for reconciliation.
func (s *Service) refund(ctx context.Context, account domain.AccountID, amount domain.Amount, reason settlement.Reason) {
	if amount.IsZero() {
		return
	}
	t := settlement.NewTransfer(account, amount, reason, s.now())
	t.OperationID = operationIDFrom(ctx)
	if err := s.transferer.Transfer(ctx, t); err != nil {
		s.metrics.IncrementRefundFailure()
		s.logger.ErrorContext(ctx, "refund transfer failed",
			"transfer_id", t.ID,
			"account_id", account,
			"amount", amount.String(),
			"reason", reason,
			"error", err,
		)
		return
	}
	s.metrics.IncrementRefund(string(reason))
	s.emit(ctx, audit.Event{
		AccountID: account,
		Action:    string(audit.EventRefundIssued),
		Reason:    string(reason),
		Amount:    amount.String(),
	})
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if event.OperationID == "" {
		event.OperationID = operationIDFrom(ctx)
	}
	event.RequestID = requestcontext.RequestID(ctx)
	event.ClientIP = requestcontext.ClientIP(ctx)
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}

func toServiceError(err error, msg string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	if mapped, ok := dErrors.As(accounting.ToDomainError(err)); ok {
		return mapped
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
