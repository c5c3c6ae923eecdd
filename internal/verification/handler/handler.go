package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"profilecheck/internal/ledger"
	"profilecheck/internal/verification"
	"profilecheck/pkg/domain"
	dErrors "profilecheck/pkg/domain-errors"
	"profilecheck/pkg/platform/httputil"
	request "profilecheck/pkg/platform/middleware/request"
	"profilecheck/pkg/requestcontext"
)

// Service defines the verification operations exposed over HTTP.
type Service interface {
	RequestVerification(ctx context.Context, req verification.Request) (*verification.Operation, error)
	Verify(ctx context.Context, req verification.Request) (*verification.Operation, *verification.Outcome, error)
	Operation(ctx context.Context, id string) (*verification.Operation, error)
	Remove(ctx context.Context, caller, target domain.AccountID, deposit domain.Amount) (*verification.Removal, error)
	Has(ctx context.Context, account domain.AccountID) (bool, error)
	Fetch(ctx context.Context, account domain.AccountID) (*ledger.VerificationRecord, error)
}

// Handler handles verification endpoints.
type Handler struct {
	service     Service
	logger      *slog.Logger
	requireAuth func(http.Handler) http.Handler
}

// New creates a verification Handler. requireAuth guards the mutating routes
// and must place the caller's account in the request context.
func New(service Service, logger *slog.Logger, requireAuth func(http.Handler) http.Handler) *Handler {
	return &Handler{
		service:     service,
		logger:      logger,
		requireAuth: requireAuth,
	}
}

// Register registers the verification routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1/verifications", func(r chi.Router) {
		r.Get("/operations/{operationID}", h.handleGetOperation)
		r.Get("/{accountID}", h.handleFetch)
		r.Get("/{accountID}/status", h.handleStatus)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Post("/", h.handleVerify)
			r.Delete("/", h.handleRemoveOwn)
			r.Delete("/{accountID}", h.handleRemove)
		})
	})
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	vreq := verification.Request{
		Account: caller,
		Signer:  requestcontext.SignerID(ctx),
		Deposit: req.Amount(),
	}

	if req.Async {
		op, err := h.service.RequestVerification(ctx, vreq)
		if err != nil {
			h.writeServiceError(ctx, w, requestID, "failed to request verification", err)
			return
		}
		w.Header().Set("Location", "/v1/verifications/operations/"+op.ID.String())
		httputil.WriteJSON(w, http.StatusAccepted, toOperationResponse(op))
		return
	}

	op, _, err := h.service.Verify(ctx, vreq)
	if err != nil {
		h.writeServiceError(ctx, w, requestID, "verification failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toOperationResponse(op))
}

func (h *Handler) handleGetOperation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	op, err := h.service.Operation(ctx, chi.URLParam(r, "operationID"))
	if err != nil {
		h.writeServiceError(ctx, w, request.GetRequestID(ctx), "failed to load operation", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toOperationResponse(op))
}

func (h *Handler) handleRemoveOwn(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	h.remove(w, r, caller, caller)
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	target, ok := h.pathAccount(w, r)
	if !ok {
		return
	}
	h.remove(w, r, caller, target)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request, caller, target domain.AccountID) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RemoveRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	removal, err := h.service.Remove(ctx, caller, target, req.Amount())
	if err != nil {
		h.writeServiceError(ctx, w, requestID, "failed to remove verification", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRemovalResponse(removal))
}

func (h *Handler) handleFetch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, ok := h.pathAccount(w, r)
	if !ok {
		return
	}
	rec, err := h.service.Fetch(ctx, account)
	if err != nil {
		h.writeServiceError(ctx, w, request.GetRequestID(ctx), "failed to fetch verification", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(rec))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, ok := h.pathAccount(w, r)
	if !ok {
		return
	}
	verified, err := h.service.Has(ctx, account)
	if err != nil {
		h.writeServiceError(ctx, w, request.GetRequestID(ctx), "failed to read verification status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &StatusResponse{AccountID: account.String(), Verified: verified})
}

// caller returns the authenticated account placed in the context by requireAuth.
func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (domain.AccountID, bool) {
	ctx := r.Context()
	caller := requestcontext.AccountID(ctx)
	if caller.IsNil() {
		// This should never happen if the auth middleware is configured correctly
		h.logger.ErrorContext(ctx, "account missing from context despite auth middleware",
			"request_id", request.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return "", false
	}
	return caller, true
}

func (h *Handler) pathAccount(w http.ResponseWriter, r *http.Request) (domain.AccountID, bool) {
	account, err := domain.ParseAccountID(chi.URLParam(r, "accountID"))
	if err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return account, true
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, requestID, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestID,
			"error", err,
		)
	} else {
		h.logger.WarnContext(ctx, msg,
			"request_id", requestID,
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
