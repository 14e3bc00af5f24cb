// Package explorer assembles node and index data into the views the
// explorer UI and JSON API serve.
package explorer

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/bitvia/bitvia/internal/chain"
	"github.com/bitvia/bitvia/internal/electrum"
	"github.com/bitvia/bitvia/internal/rpc"
)

const (
	defaultBlockTxLimit = 20
	maxBlockTxLimit     = 200

	defaultResolveInputs = 20
	maxResolveInputs     = 100

	defaultHistoryLimit = 25
	maxHistoryLimit     = 200

	blocksPerDay = 144
)

// Service answers explorer queries against a Bitcoin Core node and an
// Electrum index server.
type Service struct {
	node   rpc.NodeClient
	index  electrum.IndexClient
	params *chaincfg.Params

	mu        sync.Mutex
	lastBlock string // hash of the most recently viewed block
}

// NewService creates a Service. index may be nil, which disables
// address lookups and prevout resolution.
func NewService(node rpc.NodeClient, index electrum.IndexClient, params *chaincfg.Params) *Service {
	if params == nil {
		params = &chaincfg.MainNetParams
	}
	return &Service{node: node, index: index, params: params}
}

// LastViewedBlock returns the hash of the block most recently served by
// BlockByHash, or "" if none has been viewed yet.
func (s *Service) LastViewedBlock() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBlock
}

func (s *Service) setLastViewedBlock(hash string) {
	s.mu.Lock()
	s.lastBlock = hash
	s.mu.Unlock()
}

// Mempool returns the mempool widget view.
func (s *Service) Mempool(ctx context.Context) (*MempoolView, error) {
	info, err := s.node.GetMempoolInfo(ctx)
	if err != nil {
		return nil, err
	}
	return &MempoolView{
		TxCount:          info.Size,
		Bytes:            info.Bytes,
		Usage:            info.Usage,
		FullRBF:          info.FullRBF,
		UnbroadcastCount: info.UnbroadcastCount,
		MinFeeBTCPerKvB:  info.MempoolMinFee,
		// BTC/kvB -> sat/vB: * 1e8 / 1000.
		MinFeeSatPerVB: info.MempoolMinFee * 1e5,
	}, nil
}

// Network returns the network widget view: chain tip, retarget
// estimate and supply numbers.
func (s *Service) Network(ctx context.Context) (*NetworkView, error) {
	ci, err := s.node.GetBlockchainInfo(ctx)
	if err != nil {
		return nil, err
	}
	height := ci.Blocks

	tipHash, err := s.node.GetBlockHash(ctx, height)
	if err != nil {
		return nil, err
	}
	tipHdr, err := s.node.GetBlockHeader(ctx, tipHash)
	if err != nil {
		return nil, err
	}

	into, toNext := chain.EpochPosition(height)

	avgInterval, diffChange := chain.TargetBlockInterval, 0.0
	if into > 0 {
		startHash, err := s.node.GetBlockHash(ctx, height-into)
		if err != nil {
			return nil, err
		}
		startHdr, err := s.node.GetBlockHeader(ctx, startHash)
		if err != nil {
			return nil, err
		}
		dt := float64(tipHdr.Time) - float64(startHdr.Time)
		avgInterval, diffChange = chain.EstimateRetarget(into, dt)
	}

	hps, err := s.node.GetNetworkHashPS(ctx)
	if err != nil {
		return nil, err
	}

	subsidy := chain.SubsidyBTC(height)

	return &NetworkView{
		Height:              height,
		Difficulty:          ci.Difficulty,
		HashrateGHPS:        hps / 1e9,
		AvgBlockIntervalSec: avgInterval,
		BlocksIntoEpoch:     into,
		BlocksToAdjust:      toNext,
		EstDiffChangePct:    diffChange,
		CurrentSubsidyBTC:   subsidy,
		EstNewBTCPerDay:     subsidy * blocksPerDay,
		EstCirculatingBTC:   chain.MinedSupplyBTC(height),
		TipTime:             tipHdr.Time,
	}, nil
}

// BlockHashByHeight resolves a height to its block hash.
func (s *Service) BlockHashByHeight(ctx context.Context, height uint64) (*BlockHashView, error) {
	hash, err := s.node.GetBlockHash(ctx, height)
	if err != nil {
		return nil, err
	}
	return &BlockHashView{Height: height, Hash: hash}, nil
}

// BlockByHash returns the block widget view with one page of txids,
// and records the block as the last viewed one.
func (s *Service) BlockByHash(ctx context.Context, hash string, offset, limit int) (*BlockView, error) {
	blk, err := s.node.GetBlock(ctx, hash)
	if err != nil {
		return nil, err
	}

	start, end, page := clampPage(len(blk.Tx), offset, limit, defaultBlockTxLimit, maxBlockTxLimit)

	view := &BlockView{
		Hash:       blk.Hash,
		Height:     blk.Height,
		Time:       blk.Time,
		MedianTime: blk.MedianTime,
		Size:       blk.Size,
		Weight:     blk.Weight,
		NTx:        blk.NTx,
		Prev:       blk.PrevBlockHash,
		Next:       blk.NextBlockHash,
		TxIDs:      blk.Tx[start:end],
		Page:       page,
	}
	s.setLastViewedBlock(blk.Hash)
	return view, nil
}

// TxByID returns the transaction widget view. Up to resolve prevouts
// are fetched from the Electrum index to compute input totals and the
// fee. A negative resolve means unspecified and takes the default of
// 20; an explicit value is capped at 100, and 0 resolves nothing.
func (s *Service) TxByID(ctx context.Context, txid string, resolve int) (*TxView, error) {
	tx, err := s.node.GetRawTransaction(ctx, txid)
	if err != nil {
		return nil, err
	}

	var outputsTotal float64
	for _, out := range tx.Vout {
		outputsTotal += out.Value
	}

	view := &TxView{
		TxID:            tx.TxID,
		Size:            tx.Size,
		VSize:           tx.VSize,
		Weight:          tx.Weight,
		Confirmations:   tx.Confirmations,
		BlockHash:       tx.BlockHash,
		IsCoinbase:      tx.IsCoinbase(),
		OutputsTotalBTC: outputsTotal,
		TotalInputs:     len(tx.Vin),
		Vout:            tx.Vout,
	}

	if view.IsCoinbase || s.index == nil {
		return view, nil
	}

	if resolve < 0 {
		resolve = defaultResolveInputs
	}
	if resolve > maxResolveInputs {
		resolve = maxResolveInputs
	}
	if resolve > len(tx.Vin) {
		resolve = len(tx.Vin)
	}

	var sumSats int64
	for _, vin := range tx.Vin[:resolve] {
		prev, sats, err := s.resolvePrevout(ctx, vin.TxID, vin.Vout)
		if err != nil {
			return nil, fmt.Errorf("resolving input %s:%d: %w", vin.TxID, vin.Vout, err)
		}
		view.Inputs = append(view.Inputs, *prev)
		sumSats += sats
	}
	view.ResolvedInputs = resolve
	view.MoreInputs = len(tx.Vin) > resolve

	// Fee and feerate only make sense once every input is known.
	if resolve == len(tx.Vin) && resolve > 0 {
		inputsTotal := float64(sumSats) / 1e8
		view.InputsTotalBTC = &inputsTotal

		fee := inputsTotal - outputsTotal
		if fee < 0 {
			fee = 0
		}
		view.FeeBTC = &fee

		if tx.VSize > 0 {
			rate := fee * 1e8 / float64(tx.VSize)
			view.FeeRateSatVB = &rate
		}
	}

	return view, nil
}

// resolvePrevout fetches the funding transaction from the index and
// extracts the value and address of the spent output. The satoshi
// value is returned separately to keep fee sums exact.
func (s *Service) resolvePrevout(ctx context.Context, prevTxID string, vout uint32) (*Prevout, int64, error) {
	raw, err := s.index.GetTransaction(ctx, prevTxID)
	if err != nil {
		return nil, 0, err
	}

	rawBytes, err := hex.DecodeString(raw)
	if err != nil {
		return nil, 0, fmt.Errorf("decoding raw tx hex: %w", err)
	}

	var msg wire.MsgTx
	if err := msg.Deserialize(bytes.NewReader(rawBytes)); err != nil {
		return nil, 0, fmt.Errorf("deserializing tx: %w", err)
	}
	if int(vout) >= len(msg.TxOut) {
		return nil, 0, fmt.Errorf("prevout index %d out of range (%d outputs)", vout, len(msg.TxOut))
	}
	out := msg.TxOut[vout]

	address := "(no address)"
	if _, addrs, _, err := txscript.ExtractPkScriptAddrs(out.PkScript, s.params); err == nil && len(addrs) > 0 {
		address = addrs[0].EncodeAddress()
	}

	return &Prevout{
		TxID:     prevTxID,
		Vout:     vout,
		ValueBTC: float64(out.Value) / 1e8,
		Address:  address,
	}, out.Value, nil
}

// ErrNoIndex is returned for address lookups when no Electrum server
// is configured.
var ErrNoIndex = fmt.Errorf("no electrum index server configured")

// AddressBalance returns the address widget view. When details is set
// the full UTXO list is included.
func (s *Service) AddressBalance(ctx context.Context, address string, details bool) (*AddrView, error) {
	if s.index == nil {
		return nil, ErrNoIndex
	}

	script, err := electrum.PayScript(address, s.params)
	if err != nil {
		return nil, err
	}
	scripthash, err := electrum.ScriptHash(address, s.params)
	if err != nil {
		return nil, err
	}

	bal, err := s.index.GetBalance(ctx, scripthash)
	if err != nil {
		return nil, err
	}
	total := bal.Confirmed + bal.Unconfirmed
	if total < 0 {
		total = 0
	}

	view := &AddrView{
		Address:  address,
		TotalBTC: float64(total) / 1e8,
	}

	if details {
		utxos, err := s.index.ListUnspent(ctx, scripthash)
		if err != nil {
			return nil, err
		}
		spkHex := hex.EncodeToString(script)
		for _, u := range utxos {
			item := AddrUTXO{
				TxID:         u.TxHash,
				Vout:         u.TxPos,
				AmountBTC:    float64(u.Value) / 1e8,
				ScriptPubKey: spkHex,
			}
			if u.Height > 0 {
				h := u.Height
				item.Height = &h
			}
			view.UTXOs = append(view.UTXOs, item)
		}
		view.UTXOCount = len(view.UTXOs)
	}

	return view, nil
}

// AddressHistory returns one page of the address's transaction history,
// newest last within the confirmed range as reported by the index.
func (s *Service) AddressHistory(ctx context.Context, address string, offset, limit int) (*AddrHistoryView, error) {
	if s.index == nil {
		return nil, ErrNoIndex
	}

	scripthash, err := electrum.ScriptHash(address, s.params)
	if err != nil {
		return nil, err
	}

	hist, err := s.index.GetHistory(ctx, scripthash)
	if err != nil {
		return nil, err
	}

	start, end, page := clampPage(len(hist), offset, limit, defaultHistoryLimit, maxHistoryLimit)

	view := &AddrHistoryView{Address: address, Page: page}
	for _, h := range hist[start:end] {
		view.Items = append(view.Items, AddrHistoryItem{TxID: h.TxHash, Height: h.Height})
	}
	return view, nil
}
