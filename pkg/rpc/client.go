package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/substrate-tools/auramon/pkg/retry"
	"go.uber.org/zap"
)

// Client is a JSON-RPC 2.0 client over a single websocket connection. The
// monitor issues calls strictly sequentially, so the client keeps no pending
// request table; it writes one request and reads frames until the matching
// response id arrives (subscription notifications, if any, are skipped).
type Client struct {
	conn   *websocket.Conn
	logger *zap.Logger

	mu     sync.Mutex
	nextID uint64
}

// Dial connects to a substrate node's websocket endpoint. Only this initial
// dial is retried; once the loop is running, any transport failure surfaces
// to the caller unretried.
func Dial(ctx context.Context, url string, logger *zap.Logger) (*Client, error) {
	var conn *websocket.Conn
	err := retry.WithBackoff(ctx, retry.DialConfig(), logger, "rpc dial", func() error {
		c, _, dErr := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if dErr != nil {
			return fmt.Errorf("dial %s: %w", url, dErr)
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, logger: logger, nextID: 1}, nil
}

// Close tears down the websocket connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

type rpcRequest struct {
	Jsonrpc string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      *uint64         `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// call performs one request/response round trip. out may be nil to discard
// the result; a JSON null result is left untouched in out, so callers that
// care about null pass a pointer type and check for nil.
func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++

	if params == nil {
		params = []any{}
	}
	req := rpcRequest{Jsonrpc: "2.0", ID: id, Method: method, Params: params}

	deadline, _ := ctx.Deadline() // zero time clears any previous deadline
	_ = c.conn.SetWriteDeadline(deadline)
	_ = c.conn.SetReadDeadline(deadline)

	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("%s: write: %w", method, err)
	}

	for {
		var resp rpcResponse
		if err := c.conn.ReadJSON(&resp); err != nil {
			return fmt.Errorf("%s: read: %w", method, err)
		}
		if resp.ID == nil || *resp.ID != id {
			c.logger.Debug("skipping unmatched rpc frame", zap.String("method", method))
			continue
		}
		if resp.Error != nil {
			return fmt.Errorf("%s: rpc error %d: %s", method, resp.Error.Code, resp.Error.Message)
		}
		if out == nil || len(resp.Result) == 0 || string(resp.Result) == "null" {
			return nil
		}
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("%s: decode result: %w", method, err)
		}
		return nil
	}
}
