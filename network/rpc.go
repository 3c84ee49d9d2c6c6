package network

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// RPCClient is a JSON-RPC 1.0 client for communicating with BSV nodes.
// It handles request serialization, authentication, and response parsing.
// All high-level blockchain methods are built on top of the Call method.
type RPCClient struct {
	url    string
	user   string
	pass   string
	client *http.Client
	log    *zap.Logger
	nextID atomic.Int64
}

// Option customizes an RPCClient.
type Option func(*RPCClient)

// WithLogger logs every call at debug level.
func WithLogger(log *zap.Logger) Option {
	return func(c *RPCClient) {
		if log != nil {
			c.log = log
		}
	}
}

// WithHTTPClient replaces the default pooled HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *RPCClient) {
		if hc != nil {
			c.client = hc
		}
	}
}

// rpcRequest represents a JSON-RPC 1.0 request payload.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// rpcResponse represents a JSON-RPC 1.0 response payload.
type rpcResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// Node error codes revsplit acts on.
const (
	RPCErrNoSuchTx        = -5  // unknown transaction
	RPCErrDeserialization = -22 // malformed transaction
	RPCErrVerify          = -25 // missing or spent inputs
	RPCErrVerifyRejected  = -26 // policy or script failure
	RPCErrAlreadyInChain  = -27
)

// RPCError is an error reported by the node itself, as opposed to a failure
// to reach it.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("network: rpc error %d: %s", e.Code, e.Message)
}

// rpcErrorCode returns the node error code carried by err, or 0.
func rpcErrorCode(err error) int {
	var rerr *RPCError
	if errors.As(err, &rerr) {
		return rerr.Code
	}
	return 0
}

// NewRPCClient creates a new JSON-RPC client with the given configuration.
// The client uses HTTP Basic Auth when User is non-empty.
func NewRPCClient(cfg RPCConfig, opts ...Option) *RPCClient {
	c := &RPCClient{
		url:  cfg.URL,
		user: cfg.User,
		pass: cfg.Password,
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		log: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call invokes a JSON-RPC method on the BSV node. It serializes the request,
// sends it with optional Basic Auth, and deserializes the response into result.
//
// If params is nil, an empty params array is sent. If result is nil, the
// response result is discarded.
//
// Call returns ErrConnectionFailed if the HTTP request fails, and ErrInvalidResponse
// if the response cannot be decoded. Errors reported by the node (e.g. -5 "No such
// mempool transaction") are returned as *RPCError, whatever the HTTP status the
// node sent them with.
func (c *RPCClient) Call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	reqBody := rpcRequest{
		JSONRPC: "1.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("network: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("network: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.user != "" {
		req.SetBasicAuth(c.user, c.pass)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Debug("rpc call failed", zap.String("method", method), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	c.log.Debug("rpc call",
		zap.String("method", method),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))
	defer func() { _ = resp.Body.Close() }()

	// Nodes send RPC errors with HTTP 500 and the error in the body.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var errResp rpcResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != nil {
			return errResp.Error
		}
		return fmt.Errorf("%w: HTTP %d: %s", ErrConnectionFailed, resp.StatusCode, string(respBody))
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrInvalidResponse, err)
	}

	if rpcResp.ID != reqBody.ID {
		return fmt.Errorf("%w: response ID mismatch: expected %d, got %d",
			ErrInvalidResponse, reqBody.ID, rpcResp.ID)
	}

	if rpcResp.Error != nil {
		return rpcResp.Error
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("%w: unmarshal result: %w", ErrInvalidResponse, err)
		}
	}

	return nil
}
