package jwttoken

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	dErrors "profilecheck/pkg/domain-errors"
	"profilecheck/pkg/platform/httputil"
	request "profilecheck/pkg/platform/middleware/request"
	"profilecheck/pkg/requestcontext"
)

// fallbackRevocationTTL covers tokens issued without an expiry.
const fallbackRevocationTTL = 24 * time.Hour

// Handler lets a caller revoke the bearer token it authenticated with.
type Handler struct {
	revocations RevocationList
	logger      *slog.Logger
	requireAuth func(http.Handler) http.Handler
}

func NewHandler(revocations RevocationList, logger *slog.Logger, requireAuth func(http.Handler) http.Handler) *Handler {
	return &Handler{
		revocations: revocations,
		logger:      logger,
		requireAuth: requireAuth,
	}
}

// Register registers the token routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.With(h.requireAuth).Delete("/v1/tokens/current", h.handleRevokeCurrent)
}

func (h *Handler) handleRevokeCurrent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	jti := requestcontext.TokenID(ctx)
	if jti == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "token has no id to revoke"))
		return
	}

	ttl := fallbackRevocationTTL
	if exp := requestcontext.TokenExpiry(ctx); !exp.IsZero() {
		ttl = max(exp.Sub(requestcontext.Now(ctx)), time.Second)
	}

	if err := h.revocations.RevokeToken(ctx, jti, ttl); err != nil {
		h.logger.ErrorContext(ctx, "failed to revoke token",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token"))
		return
	}

	h.logger.InfoContext(ctx, "token revoked",
		"request_id", requestID,
		"account", requestcontext.AccountID(ctx).String(),
		"jti", jti,
	)
	w.WriteHeader(http.StatusNoContent)
}
