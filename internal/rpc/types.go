package rpc

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// ChainInfo is the subset of getblockchaininfo the explorer uses.
type ChainInfo struct {
	Blocks               uint64  `json:"blocks"`
	Headers              uint64  `json:"headers"`
	Difficulty           float64 `json:"difficulty"`
	VerificationProgress float64 `json:"verificationprogress"`
	InitialBlockDownload bool    `json:"initialblockdownload"`
}

// MempoolInfo is getmempoolinfo.
type MempoolInfo struct {
	Size             uint64  `json:"size"`
	Bytes            uint64  `json:"bytes"`
	Usage            uint64  `json:"usage"`
	FullRBF          bool    `json:"fullrbf"`
	UnbroadcastCount uint64  `json:"unbroadcastcount"`
	MempoolMinFee    float64 `json:"mempoolminfee"` // BTC/kvB
}

// BlockHeader is the subset of getblockheader (verbose) the explorer uses.
type BlockHeader struct {
	Hash   string `json:"hash"`
	Height uint64 `json:"height"`
	Time   uint64 `json:"time"`
}

// Block is getblock with verbosity 1: tx holds txids only.
type Block struct {
	Hash          string   `json:"hash"`
	Height        uint64   `json:"height"`
	Time          uint64   `json:"time"`
	MedianTime    uint64   `json:"mediantime"`
	Size          uint64   `json:"size"`
	Weight        uint64   `json:"weight"`
	NTx           uint64   `json:"nTx"`
	PrevBlockHash string   `json:"previousblockhash"`
	NextBlockHash string   `json:"nextblockhash"`
	Tx            []string `json:"tx"`
}

// TxIn is one input of a decoded transaction. Coinbase inputs carry the
// coinbase field instead of txid/vout.
type TxIn struct {
	TxID     string `json:"txid"`
	Vout     uint32 `json:"vout"`
	Coinbase string `json:"coinbase"`
}

// TxOut is one output of a decoded transaction.
type TxOut struct {
	Value        float64 `json:"value"` // BTC
	N            uint32  `json:"n"`
	ScriptPubKey struct {
		Asm     string `json:"asm"`
		Hex     string `json:"hex"`
		Type    string `json:"type"`
		Address string `json:"address"`
	} `json:"scriptPubKey"`
}

// Tx is getrawtransaction with verbose=true.
type Tx struct {
	TxID          string  `json:"txid"`
	Hash          string  `json:"hash"`
	Size          uint64  `json:"size"`
	VSize         uint64  `json:"vsize"`
	Weight        uint64  `json:"weight"`
	Version       int64   `json:"version"`
	LockTime      uint64  `json:"locktime"`
	Vin           []TxIn  `json:"vin"`
	Vout          []TxOut `json:"vout"`
	Time          uint64  `json:"time"`
	BlockTime     uint64  `json:"blocktime"`
	Confirmations uint64  `json:"confirmations"`
	BlockHash     string  `json:"blockhash"`
}

// IsCoinbase reports whether the transaction's first input is a coinbase.
func (t *Tx) IsCoinbase() bool {
	return len(t.Vin) > 0 && t.Vin[0].Coinbase != ""
}

// NodeClient is the node interface consumed by the explorer and the
// metrics collector. *Client implements it; tests substitute fakes.
type NodeClient interface {
	GetBlockchainInfo(ctx context.Context) (*ChainInfo, error)
	GetMempoolInfo(ctx context.Context) (*MempoolInfo, error)
	GetBlockHash(ctx context.Context, height uint64) (string, error)
	GetBlockHeader(ctx context.Context, hash string) (*BlockHeader, error)
	GetBlock(ctx context.Context, hash string) (*Block, error)
	GetRawTransaction(ctx context.Context, txid string) (*Tx, error)
	GetNetworkHashPS(ctx context.Context) (float64, error)
}

var _ NodeClient = (*Client)(nil)

// GetBlockchainInfo calls getblockchaininfo.
func (c *Client) GetBlockchainInfo(ctx context.Context) (*ChainInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := c.node.GetBlockChainInfo()
	if err != nil {
		return nil, fmt.Errorf("getblockchaininfo: %w", nodeError(err))
	}
	return &ChainInfo{
		Blocks:               uint64(res.Blocks),
		Headers:              uint64(res.Headers),
		Difficulty:           res.Difficulty,
		VerificationProgress: res.VerificationProgress,
		InitialBlockDownload: res.InitialBlockDownload,
	}, nil
}

// GetMempoolInfo calls getmempoolinfo.
func (c *Client) GetMempoolInfo(ctx context.Context) (*MempoolInfo, error) {
	var info MempoolInfo
	if err := c.call(ctx, "getmempoolinfo", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetBlockHash calls getblockhash for the given height.
func (c *Client) GetBlockHash(ctx context.Context, height uint64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	hash, err := c.node.GetBlockHash(int64(height))
	if err != nil {
		return "", fmt.Errorf("getblockhash: %w", nodeError(err))
	}
	return hash.String(), nil
}

// GetBlockHeader calls getblockheader with verbose output.
func (c *Client) GetBlockHeader(ctx context.Context, hash string) (*BlockHeader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, err := chainhash.NewHashFromStr(hash)
	if err != nil {
		return nil, fmt.Errorf("parsing block hash %q: %w", hash, err)
	}
	res, err := c.node.GetBlockHeaderVerbose(h)
	if err != nil {
		return nil, fmt.Errorf("getblockheader: %w", nodeError(err))
	}
	return &BlockHeader{
		Hash:   res.Hash,
		Height: uint64(res.Height),
		Time:   uint64(res.Time),
	}, nil
}

// GetBlock calls getblock with verbosity 1 (txids only).
func (c *Client) GetBlock(ctx context.Context, hash string) (*Block, error) {
	var blk Block
	if err := c.call(ctx, "getblock", []any{hash, 1}, &blk); err != nil {
		return nil, err
	}
	return &blk, nil
}

// GetRawTransaction calls getrawtransaction with verbose=true.
func (c *Client) GetRawTransaction(ctx context.Context, txid string) (*Tx, error) {
	var tx Tx
	if err := c.call(ctx, "getrawtransaction", []any{txid, true}, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetNetworkHashPS calls getnetworkhashps (H/s).
func (c *Client) GetNetworkHashPS(ctx context.Context) (float64, error) {
	var hps float64
	if err := c.call(ctx, "getnetworkhashps", nil, &hps); err != nil {
		return 0, err
	}
	return hps, nil
}
