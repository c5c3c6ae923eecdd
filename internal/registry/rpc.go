package registry

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	rpcMethodQuery   = "query"
	requestTypeCall  = "call_function"
	finalityFinal    = "final"
	contractGetCall  = "get"
	defaultTimeout   = 10 * time.Second
	maxResponseBytes = 4 << 20
)

// RPCClient reads the registry through a node's JSON-RPC view-call interface.
type RPCClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	requestID  string
}

// RPCOption configures an RPCClient.
type RPCOption func(*RPCClient)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) RPCOption {
	return func(r *RPCClient) {
		r.httpClient = c
	}
}

// WithLogger sets the client's logger.
func WithLogger(logger *slog.Logger) RPCOption {
	return func(r *RPCClient) {
		r.logger = logger
	}
}

// NewRPCClient builds a JSON-RPC registry client.
func NewRPCClient(opts ...RPCOption) *RPCClient {
	c := &RPCClient{
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default(),
		requestID:  "profilecheck",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      string    `json:"id"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
}

type rpcParams struct {
	RequestType string `json:"request_type"`
	Finality    string `json:"finality"`
	AccountID   string `json:"account_id"`
	MethodName  string `json:"method_name"`
	ArgsBase64  string `json:"args_base64"`
}

type getArgs struct {
	Keys []string `json:"keys"`
}

type rpcResponse struct {
	Result *callResult `json:"result"`
	Error  *rpcError   `json:"error"`
}

type callResult struct {
	Result []int   `json:"result"`
	Error  *string `json:"error"`
}

type rpcError struct {
	Name    string `json:"name"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Cause   struct {
		Name string `json:"name"`
	} `json:"cause"`
}

// Get calls the registry contract's get method for keys and returns the
// resulting JSON document bytes.
func (c *RPCClient) Get(ctx context.Context, endpoint Endpoint, keys []string) ([]byte, error) {
	ep := endpoint.String()

	args, err := json.Marshal(getArgs{Keys: keys})
	if err != nil {
		return nil, NewError(ErrorInternal, ep, "encode call arguments", err)
	}
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID,
		Method:  rpcMethodQuery,
		Params: rpcParams{
			RequestType: requestTypeCall,
			Finality:    finalityFinal,
			AccountID:   endpoint.Contract.String(),
			MethodName:  contractGetCall,
			ArgsBase64:  base64.StdEncoding.EncodeToString(args),
		},
	})
	if err != nil {
		return nil, NewError(ErrorInternal, ep, "encode rpc request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.RPCURL, bytes.NewReader(body))
	if err != nil {
		return nil, NewError(ErrorInternal, ep, "build http request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(ctx, ep, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, classifyTransportError(ctx, ep, err)
	}
	if len(raw) > maxResponseBytes {
		return nil, NewError(ErrorBadData, ep, "response too large", nil)
	}

	doc, err := parseRPCResponse(ep, resp.StatusCode, raw)
	if err != nil {
		c.logger.DebugContext(ctx, "registry query failed",
			"endpoint", ep,
			"status", resp.StatusCode,
			"category", CategoryOf(err),
		)
		return nil, err
	}
	return doc, nil
}

func classifyTransportError(ctx context.Context, ep string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return NewError(ErrorTimeout, ep, "query budget exceeded", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewError(ErrorTimeout, ep, "rpc node timed out", err)
	}
	return NewError(ErrorProviderOutage, ep, "rpc node unreachable", err)
}

func parseRPCResponse(ep string, status int, raw []byte) ([]byte, error) {
	switch {
	case status == http.StatusTooManyRequests:
		return nil, NewError(ErrorRateLimited, ep, "rpc node throttled request", nil)
	case status >= http.StatusInternalServerError:
		return nil, NewError(ErrorProviderOutage, ep, fmt.Sprintf("rpc node returned %d", status), nil)
	case status != http.StatusOK:
		return nil, NewError(ErrorContractMismatch, ep, fmt.Sprintf("unexpected status %d", status), nil)
	}

	var resp rpcResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, NewError(ErrorBadData, ep, "malformed rpc response", err)
	}
	if resp.Error != nil {
		return nil, classifyRPCError(ep, resp.Error)
	}
	if resp.Result == nil {
		return nil, NewError(ErrorContractMismatch, ep, "rpc response has neither result nor error", nil)
	}
	if resp.Result.Error != nil {
		return nil, NewError(ErrorContractMismatch, ep, "contract call failed: "+*resp.Result.Error, nil)
	}
	return decodeResultBytes(ep, resp.Result.Result)
}

func classifyRPCError(ep string, e *rpcError) error {
	msg := e.Name
	if e.Cause.Name != "" {
		msg += "/" + e.Cause.Name
	}
	switch e.Cause.Name {
	case "UNKNOWN_ACCOUNT", "NO_CONTRACT_CODE":
		return NewError(ErrorNotFound, ep, msg, nil)
	case "TIMEOUT_ERROR":
		return NewError(ErrorTimeout, ep, msg, nil)
	case "UNKNOWN_BLOCK", "NO_SYNCED_BLOCKS", "NOT_SYNCED_YET":
		return NewError(ErrorProviderOutage, ep, msg, nil)
	}
	switch e.Name {
	case "INTERNAL_ERROR":
		return NewError(ErrorProviderOutage, ep, msg, nil)
	case "REQUEST_VALIDATION_ERROR":
		return NewError(ErrorContractMismatch, ep, msg, nil)
	}
	return NewError(ErrorContractMismatch, ep, msg, nil)
}

// decodeResultBytes converts the view-call result, a JSON array of byte values,
// into the bytes it encodes.
func decodeResultBytes(ep string, values []int) ([]byte, error) {
	out := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return nil, NewError(ErrorBadData, ep, fmt.Sprintf("result byte %d out of range: %d", i, v), nil)
		}
		out[i] = byte(v)
	}
	return out, nil
}
