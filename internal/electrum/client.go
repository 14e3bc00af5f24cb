// Package electrum wraps an ElectrumX index server with the address
// queries the explorer needs.
package electrum

import (
	"context"
	"fmt"

	"github.com/checksum0/go-electrum/electrum"
)

// Balance is blockchain.scripthash.get_balance. Values are satoshis;
// unconfirmed may be negative when mempool transactions spend from the
// script.
type Balance struct {
	Confirmed   int64 `json:"confirmed"`
	Unconfirmed int64 `json:"unconfirmed"`
}

// Unspent is one entry of blockchain.scripthash.listunspent.
type Unspent struct {
	TxHash string `json:"tx_hash"`
	TxPos  uint32 `json:"tx_pos"`
	Height uint32 `json:"height"` // 0 for mempool
	Value  uint64 `json:"value"`  // satoshis
}

// HistoryItem is one entry of blockchain.scripthash.get_history.
// Height <= 0 means unconfirmed.
type HistoryItem struct {
	TxHash string `json:"tx_hash"`
	Height int32  `json:"height"`
}

// IndexClient is the Electrum interface consumed by the explorer.
// *Client implements it; tests substitute fakes.
type IndexClient interface {
	GetBalance(ctx context.Context, scripthash string) (*Balance, error)
	ListUnspent(ctx context.Context, scripthash string) ([]Unspent, error)
	GetHistory(ctx context.Context, scripthash string) ([]HistoryItem, error)
	GetTransaction(ctx context.Context, txid string) (string, error)
}

// Client adapts a go-electrum server connection to IndexClient.
type Client struct {
	node *electrum.Client
}

var _ IndexClient = (*Client)(nil)

// NewClient connects to the Electrum server at host:port over TCP.
func NewClient(ctx context.Context, addr string) (*Client, error) {
	node, err := electrum.NewClientTCP(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("connecting to electrum server %s: %w", addr, err)
	}
	return &Client{node: node}, nil
}

// Close tears down the server connection.
func (c *Client) Close() {
	c.node.Shutdown()
}

// GetBalance calls blockchain.scripthash.get_balance.
func (c *Client) GetBalance(ctx context.Context, scripthash string) (*Balance, error) {
	res, err := c.node.GetBalance(ctx, scripthash)
	if err != nil {
		return nil, fmt.Errorf("get_balance: %w", err)
	}
	return &Balance{
		Confirmed:   int64(res.Confirmed),
		Unconfirmed: int64(res.Unconfirmed),
	}, nil
}

// ListUnspent calls blockchain.scripthash.listunspent.
func (c *Client) ListUnspent(ctx context.Context, scripthash string) ([]Unspent, error) {
	res, err := c.node.ListUnspent(ctx, scripthash)
	if err != nil {
		return nil, fmt.Errorf("listunspent: %w", err)
	}
	utxos := make([]Unspent, 0, len(res))
	for _, u := range res {
		utxos = append(utxos, Unspent{
			TxHash: u.Hash,
			TxPos:  u.Position,
			Height: u.Height,
			Value:  u.Value,
		})
	}
	return utxos, nil
}

// GetHistory calls blockchain.scripthash.get_history. The server
// returns confirmed entries in block order followed by mempool entries.
func (c *Client) GetHistory(ctx context.Context, scripthash string) ([]HistoryItem, error) {
	res, err := c.node.GetHistory(ctx, scripthash)
	if err != nil {
		return nil, fmt.Errorf("get_history: %w", err)
	}
	hist := make([]HistoryItem, 0, len(res))
	for _, h := range res {
		hist = append(hist, HistoryItem{TxHash: h.Hash, Height: h.Height})
	}
	return hist, nil
}

// GetTransaction calls blockchain.transaction.get and returns the raw
// transaction hex.
func (c *Client) GetTransaction(ctx context.Context, txid string) (string, error) {
	raw, err := c.node.GetRawTransaction(ctx, txid)
	if err != nil {
		return "", fmt.Errorf("transaction.get: %w", err)
	}
	return raw, nil
}
