// Package rpc wraps a Bitcoin Core node connection with the typed
// calls the explorer and the metrics collector need.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
)

// Client talks to a Bitcoin Core node over JSON-RPC in HTTP POST mode.
type Client struct {
	node *rpcclient.Client
	cfg  *rpcclient.ConnConfig
}

// NewClient creates a Client for the given node URL and credentials.
func NewClient(nodeURL, user, password string) (*Client, error) {
	u, err := url.Parse(nodeURL)
	if err != nil {
		return nil, fmt.Errorf("parsing node url %q: %w", nodeURL, err)
	}
	cfg := &rpcclient.ConnConfig{
		Host:         u.Host,
		User:         user,
		Pass:         password,
		HTTPPostMode: true,
		DisableTLS:   u.Scheme != "https",
	}
	node, err := rpcclient.New(cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("creating node client: %w", err)
	}
	return &Client{node: node, cfg: cfg}, nil
}

// Close shuts down the underlying connection.
func (c *Client) Close() {
	c.node.Shutdown()
}

// Error is a JSON-RPC error returned by the node.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// nodeError converts the library's node-side error into the typed
// Error the HTTP handlers inspect.
func nodeError(err error) error {
	var jerr *btcjson.RPCError
	if errors.As(err, &jerr) {
		return &Error{Code: int(jerr.Code), Message: jerr.Message}
	}
	return err
}

// call issues a raw request for methods the library has no wrapper
// for, or where Core's current response shape has fields the library's
// result types lack.
func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw := make([]json.RawMessage, 0, len(params))
	for _, p := range params {
		b, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("%s: marshalling param: %w", method, err)
		}
		raw = append(raw, b)
	}
	res, err := c.node.RawRequest(method, raw)
	if err != nil {
		return fmt.Errorf("%s: %w", method, nodeError(err))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(res, out); err != nil {
		return fmt.Errorf("%s: decoding result: %w", method, err)
	}
	return nil
}

// BlockTimes returns the header timestamp of every block from height
// from to height to inclusive, batching the underlying calls into two
// round trips.
func (c *Client) BlockTimes(ctx context.Context, from, to uint64) ([]uint64, error) {
	if to < from {
		return nil, fmt.Errorf("invalid height range %d..%d", from, to)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batch, err := rpcclient.NewBatch(c.cfg)
	if err != nil {
		return nil, fmt.Errorf("creating batch client: %w", err)
	}
	defer batch.Shutdown()

	n := int(to - from + 1)
	hashFutures := make([]rpcclient.FutureGetBlockHashResult, 0, n)
	for h := from; h <= to; h++ {
		hashFutures = append(hashFutures, batch.GetBlockHashAsync(int64(h)))
	}
	if err := batch.Send(); err != nil {
		return nil, fmt.Errorf("sending getblockhash batch: %w", err)
	}
	hashes := make([]*chainhash.Hash, 0, n)
	for i, f := range hashFutures {
		hash, err := f.Receive()
		if err != nil {
			return nil, fmt.Errorf("getblockhash %d: %w", from+uint64(i), nodeError(err))
		}
		hashes = append(hashes, hash)
	}

	hdrFutures := make([]rpcclient.FutureGetBlockHeaderVerboseResult, 0, n)
	for _, hash := range hashes {
		hdrFutures = append(hdrFutures, batch.GetBlockHeaderVerboseAsync(hash))
	}
	if err := batch.Send(); err != nil {
		return nil, fmt.Errorf("sending getblockheader batch: %w", err)
	}
	times := make([]uint64, 0, n)
	for i, f := range hdrFutures {
		hdr, err := f.Receive()
		if err != nil {
			return nil, fmt.Errorf("getblockheader %s: %w", hashes[i], nodeError(err))
		}
		times = append(times, uint64(hdr.Time))
	}
	return times, nil
}
