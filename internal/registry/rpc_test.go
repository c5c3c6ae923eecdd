package registry

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profilecheck/pkg/domain"
)

func byteArray(s string) string {
	parts := make([]string, len(s))
	for i := range len(s) {
		parts[i] = fmt.Sprint(s[i])
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func testEndpoint(url string) Endpoint {
	return Endpoint{Network: NetworkTestnet, Contract: domain.AccountID("v1.social08.testnet"), RPCURL: url}
}

func TestRPCClientGet(t *testing.T) {
	const doc = `{"alice":{"profile":{"name":"Alice"}}}`

	var got rpcRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":"profilecheck","result":{"result":%s,"logs":[],"block_height":1}}`, byteArray(doc))
	}))
	defer srv.Close()

	out, err := NewRPCClient().Get(context.Background(), testEndpoint(srv.URL), []string{"alice/profile/**"})
	require.NoError(t, err)
	assert.JSONEq(t, doc, string(out))

	assert.Equal(t, "query", got.Method)
	assert.Equal(t, "call_function", got.Params.RequestType)
	assert.Equal(t, "final", got.Params.Finality)
	assert.Equal(t, "v1.social08.testnet", got.Params.AccountID)
	assert.Equal(t, "get", got.Params.MethodName)

	args, err := base64.StdEncoding.DecodeString(got.Params.ArgsBase64)
	require.NoError(t, err)
	assert.JSONEq(t, `{"keys":["alice/profile/**"]}`, string(args))
}

func TestRPCClientErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   ErrorCategory
	}{
		{"server error", http.StatusBadGateway, ``, ErrorProviderOutage},
		{"throttled", http.StatusTooManyRequests, ``, ErrorRateLimited},
		{"unexpected status", http.StatusNotFound, ``, ErrorContractMismatch},
		{"malformed body", http.StatusOK, `<html>`, ErrorBadData},
		{"empty envelope", http.StatusOK, `{"jsonrpc":"2.0"}`, ErrorContractMismatch},
		{"contract failure", http.StatusOK, `{"result":{"error":"wasm execution failed"}}`, ErrorContractMismatch},
		{"byte out of range", http.StatusOK, `{"result":{"result":[123,300]}}`, ErrorBadData},
		{"unknown account", http.StatusOK, `{"error":{"name":"HANDLER_ERROR","cause":{"name":"UNKNOWN_ACCOUNT"}}}`, ErrorNotFound},
		{"node timeout", http.StatusOK, `{"error":{"name":"HANDLER_ERROR","cause":{"name":"TIMEOUT_ERROR"}}}`, ErrorTimeout},
		{"node internal", http.StatusOK, `{"error":{"name":"INTERNAL_ERROR","cause":{"name":"SOMETHING"}}}`, ErrorProviderOutage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewRPCClient().Get(context.Background(), testEndpoint(srv.URL), []string{"k"})
			require.Error(t, err)
			assert.Equal(t, tt.want, CategoryOf(err))
		})
	}
}

func TestRPCClientResponseSizeLimit(t *testing.T) {
	envelope := fmt.Sprintf(`{"jsonrpc":"2.0","id":"profilecheck","result":{"result":%s}}`, byteArray(`{}`))
	serve := func(size int) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(envelope + strings.Repeat(" ", size-len(envelope))))
		}))
	}

	t.Run("body at the limit is accepted", func(t *testing.T) {
		srv := serve(maxResponseBytes)
		defer srv.Close()

		out, err := NewRPCClient().Get(context.Background(), testEndpoint(srv.URL), []string{"k"})
		require.NoError(t, err)
		assert.JSONEq(t, `{}`, string(out))
	})

	t.Run("body over the limit is rejected", func(t *testing.T) {
		srv := serve(maxResponseBytes + 1)
		defer srv.Close()

		_, err := NewRPCClient().Get(context.Background(), testEndpoint(srv.URL), []string{"k"})
		require.Error(t, err)
		assert.Equal(t, ErrorBadData, CategoryOf(err))
		assert.ErrorContains(t, err, "response too large")
	})
}

func TestRPCClientHonorsDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewRPCClient().Get(ctx, testEndpoint(srv.URL), []string{"k"})
	require.Error(t, err)
	assert.Equal(t, ErrorTimeout, CategoryOf(err))
	assert.True(t, IsRetryable(err))
}

func TestRPCClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewRPCClient().Get(context.Background(), testEndpoint(url), []string{"k"})
	require.Error(t, err)
	assert.Equal(t, ErrorProviderOutage, CategoryOf(err))
}
