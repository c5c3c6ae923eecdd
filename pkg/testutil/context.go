package testutil

import (
	"net/http"

	"profilecheck/pkg/domain"
	"profilecheck/pkg/requestcontext"
)

// WithAccount places account in the request context the way the auth
// middleware does. Invalid account ids are silently ignored.
func WithAccount(req *http.Request, account string) *http.Request {
	return WithAuth(req, account, "")
}

// WithAuth places the caller account and signer in the request context.
// An empty or invalid signer leaves the signer defaulting to the account.
func WithAuth(req *http.Request, account, signer string) *http.Request {
	ctx := req.Context()
	if parsed, err := domain.ParseAccountID(account); err == nil {
		ctx = requestcontext.WithAccountID(ctx, parsed)
	}
	if parsed, err := domain.ParseAccountID(signer); err == nil {
		ctx = requestcontext.WithSignerID(ctx, parsed)
	}
	return req.WithContext(ctx)
}
