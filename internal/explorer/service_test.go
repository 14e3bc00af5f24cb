package explorer

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/bitvia/bitvia/internal/electrum"
	"github.com/bitvia/bitvia/internal/rpc"
)

// genesisAddr received the first coinbase output.
const genesisAddr = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"

type fakeNode struct {
	chainInfo *rpc.ChainInfo
	mempool   *rpc.MempoolInfo
	hashes    map[uint64]string
	headers   map[string]*rpc.BlockHeader
	blocks    map[string]*rpc.Block
	txs       map[string]*rpc.Tx
	hashps    float64
}

func (f *fakeNode) GetBlockchainInfo(ctx context.Context) (*rpc.ChainInfo, error) {
	return f.chainInfo, nil
}

func (f *fakeNode) GetMempoolInfo(ctx context.Context) (*rpc.MempoolInfo, error) {
	return f.mempool, nil
}

func (f *fakeNode) GetBlockHash(ctx context.Context, height uint64) (string, error) {
	h, ok := f.hashes[height]
	if !ok {
		return "", &rpc.Error{Code: -8, Message: "Block height out of range"}
	}
	return h, nil
}

func (f *fakeNode) GetBlockHeader(ctx context.Context, hash string) (*rpc.BlockHeader, error) {
	hdr, ok := f.headers[hash]
	if !ok {
		return nil, &rpc.Error{Code: -5, Message: "Block not found"}
	}
	return hdr, nil
}

func (f *fakeNode) GetBlock(ctx context.Context, hash string) (*rpc.Block, error) {
	blk, ok := f.blocks[hash]
	if !ok {
		return nil, &rpc.Error{Code: -5, Message: "Block not found"}
	}
	return blk, nil
}

func (f *fakeNode) GetRawTransaction(ctx context.Context, txid string) (*rpc.Tx, error) {
	tx, ok := f.txs[txid]
	if !ok {
		return nil, &rpc.Error{Code: -5, Message: "No such mempool or blockchain transaction"}
	}
	return tx, nil
}

func (f *fakeNode) GetNetworkHashPS(ctx context.Context) (float64, error) {
	return f.hashps, nil
}

type fakeIndex struct {
	balances map[string]*electrum.Balance
	unspent  map[string][]electrum.Unspent
	history  map[string][]electrum.HistoryItem
	rawTxs   map[string]string
}

func (f *fakeIndex) GetBalance(ctx context.Context, scripthash string) (*electrum.Balance, error) {
	if b, ok := f.balances[scripthash]; ok {
		return b, nil
	}
	return &electrum.Balance{}, nil
}

func (f *fakeIndex) ListUnspent(ctx context.Context, scripthash string) ([]electrum.Unspent, error) {
	return f.unspent[scripthash], nil
}

func (f *fakeIndex) GetHistory(ctx context.Context, scripthash string) ([]electrum.HistoryItem, error) {
	return f.history[scripthash], nil
}

func (f *fakeIndex) GetTransaction(ctx context.Context, txid string) (string, error) {
	raw, ok := f.rawTxs[txid]
	if !ok {
		return "", errors.New("transaction not in index")
	}
	return raw, nil
}

// rawTxPaying builds and hex-encodes a transaction whose first output
// pays the given satoshi amount to addr.
func rawTxPaying(t *testing.T, addr string, sats int64) string {
	t.Helper()

	a, err := btcutil.DecodeAddress(addr, &chaincfg.MainNetParams)
	if err != nil {
		t.Fatalf("decoding address: %v", err)
	}
	script, err := txscript.PayToAddrScript(a)
	if err != nil {
		t.Fatalf("building script: %v", err)
	}

	msg := wire.NewMsgTx(wire.TxVersion)
	msg.AddTxIn(wire.NewTxIn(&wire.OutPoint{Index: 0}, nil, nil))
	msg.AddTxOut(wire.NewTxOut(sats, script))

	var buf bytes.Buffer
	if err := msg.Serialize(&buf); err != nil {
		t.Fatalf("serializing tx: %v", err)
	}
	return hex.EncodeToString(buf.Bytes())
}

func TestMempoolView(t *testing.T) {
	node := &fakeNode{mempool: &rpc.MempoolInfo{
		Size:          4213,
		Bytes:         1_800_000,
		Usage:         5_200_000,
		FullRBF:       true,
		MempoolMinFee: 0.00001, // BTC/kvB
	}}
	svc := NewService(node, nil, nil)

	view, err := svc.Mempool(context.Background())
	if err != nil {
		t.Fatalf("Mempool: %v", err)
	}
	if view.TxCount != 4213 {
		t.Errorf("TxCount = %d, want 4213", view.TxCount)
	}
	if math.Abs(view.MinFeeSatPerVB-1.0) > 1e-9 {
		t.Errorf("MinFeeSatPerVB = %v, want 1.0", view.MinFeeSatPerVB)
	}
	if !view.FullRBF {
		t.Error("FullRBF not carried through")
	}
}

func TestNetworkViewMidEpoch(t *testing.T) {
	// 10 blocks into the epoch, mined at 540s apiece: the estimate
	// should say difficulty goes up about 11.1%.
	const height = 2016 + 10
	node := &fakeNode{
		chainInfo: &rpc.ChainInfo{Blocks: height, Difficulty: 90e12},
		hashes: map[uint64]string{
			height: "tip",
			2016:   "epochstart",
		},
		headers: map[string]*rpc.BlockHeader{
			"tip":        {Hash: "tip", Height: height, Time: 1_700_005_400},
			"epochstart": {Hash: "epochstart", Height: 2016, Time: 1_700_000_000},
		},
		hashps: 6.5e20,
	}
	svc := NewService(node, nil, nil)

	view, err := svc.Network(context.Background())
	if err != nil {
		t.Fatalf("Network: %v", err)
	}
	if view.Height != height {
		t.Errorf("Height = %d, want %d", view.Height, height)
	}
	if view.BlocksIntoEpoch != 10 || view.BlocksToAdjust != 2006 {
		t.Errorf("epoch position = %d into / %d to go, want 10 / 2006",
			view.BlocksIntoEpoch, view.BlocksToAdjust)
	}
	if math.Abs(view.AvgBlockIntervalSec-540) > 1e-9 {
		t.Errorf("AvgBlockIntervalSec = %v, want 540", view.AvgBlockIntervalSec)
	}
	wantChange := (600.0/540.0 - 1) * 100
	if math.Abs(view.EstDiffChangePct-wantChange) > 1e-9 {
		t.Errorf("EstDiffChangePct = %v, want %v", view.EstDiffChangePct, wantChange)
	}
	if view.CurrentSubsidyBTC != 50 {
		t.Errorf("CurrentSubsidyBTC = %v, want 50 at height %d", view.CurrentSubsidyBTC, height)
	}
	if math.Abs(view.HashrateGHPS-6.5e11) > 1 {
		t.Errorf("HashrateGHPS = %v, want 6.5e11", view.HashrateGHPS)
	}
}

func TestNetworkViewEpochBoundary(t *testing.T) {
	// Right on the retarget boundary there is no intra-epoch sample,
	// so the view reports the 600s target and a flat estimate.
	const height = 2016 * 3
	node := &fakeNode{
		chainInfo: &rpc.ChainInfo{Blocks: height},
		hashes:    map[uint64]string{height: "tip"},
		headers:   map[string]*rpc.BlockHeader{"tip": {Hash: "tip", Height: height, Time: 1_700_000_000}},
	}
	svc := NewService(node, nil, nil)

	view, err := svc.Network(context.Background())
	if err != nil {
		t.Fatalf("Network: %v", err)
	}
	if view.AvgBlockIntervalSec != 600 || view.EstDiffChangePct != 0 {
		t.Errorf("boundary view = %v sec / %v%%, want 600 / 0",
			view.AvgBlockIntervalSec, view.EstDiffChangePct)
	}
	if view.BlocksToAdjust != 2016 {
		t.Errorf("BlocksToAdjust = %d, want 2016", view.BlocksToAdjust)
	}
}

func TestBlockByHashPagination(t *testing.T) {
	txids := make([]string, 50)
	for i := range txids {
		txids[i] = fmt.Sprintf("tx%02d", i)
	}
	node := &fakeNode{blocks: map[string]*rpc.Block{
		"abc": {Hash: "abc", Height: 800_000, NTx: 50, Tx: txids},
	}}
	svc := NewService(node, nil, nil)

	view, err := svc.BlockByHash(context.Background(), "abc", 0, -1)
	if err != nil {
		t.Fatalf("BlockByHash: %v", err)
	}
	if len(view.TxIDs) != 20 {
		t.Errorf("default page has %d txids, want 20", len(view.TxIDs))
	}
	if !view.Page.More {
		t.Error("Page.More = false with 50 txids and limit 20")
	}

	view, err = svc.BlockByHash(context.Background(), "abc", 40, 20)
	if err != nil {
		t.Fatalf("BlockByHash page 3: %v", err)
	}
	if len(view.TxIDs) != 10 || view.TxIDs[0] != "tx40" {
		t.Errorf("last page = %v", view.TxIDs)
	}
	if view.Page.More {
		t.Error("Page.More = true on the last page")
	}

	if got := svc.LastViewedBlock(); got != "abc" {
		t.Errorf("LastViewedBlock = %q, want %q", got, "abc")
	}
}

func TestBlockHashByHeightMissing(t *testing.T) {
	svc := NewService(&fakeNode{hashes: map[uint64]string{}}, nil, nil)

	_, err := svc.BlockHashByHeight(context.Background(), 99_999_999)
	var rpcErr *rpc.Error
	if !errors.As(err, &rpcErr) {
		t.Fatalf("err = %v, want *rpc.Error", err)
	}
}

func TestTxByIDCoinbase(t *testing.T) {
	node := &fakeNode{txs: map[string]*rpc.Tx{
		"cb": {
			TxID:  "cb",
			VSize: 110,
			Vin:   []rpc.TxIn{{Coinbase: "0102"}},
			Vout:  []rpc.TxOut{{Value: 3.125, N: 0}},
		},
	}}
	// The index must not be consulted for coinbase inputs.
	svc := NewService(node, &fakeIndex{}, nil)

	view, err := svc.TxByID(context.Background(), "cb", -1)
	if err != nil {
		t.Fatalf("TxByID: %v", err)
	}
	if !view.IsCoinbase {
		t.Error("IsCoinbase = false")
	}
	if view.FeeBTC != nil || view.InputsTotalBTC != nil {
		t.Error("coinbase tx must not report a fee")
	}
	if view.OutputsTotalBTC != 3.125 {
		t.Errorf("OutputsTotalBTC = %v, want 3.125", view.OutputsTotalBTC)
	}
}

func TestTxByIDFeeComputation(t *testing.T) {
	raw := rawTxPaying(t, genesisAddr, 150_000_000)
	node := &fakeNode{txs: map[string]*rpc.Tx{
		"spend": {
			TxID:  "spend",
			VSize: 200,
			Vin:   []rpc.TxIn{{TxID: "fund", Vout: 0}},
			Vout: []rpc.TxOut{
				{Value: 1.0, N: 0},
				{Value: 0.4999, N: 1},
			},
		},
	}}
	index := &fakeIndex{rawTxs: map[string]string{"fund": raw}}
	svc := NewService(node, index, nil)

	view, err := svc.TxByID(context.Background(), "spend", -1)
	if err != nil {
		t.Fatalf("TxByID: %v", err)
	}
	if view.ResolvedInputs != 1 || view.MoreInputs {
		t.Errorf("resolved = %d more = %v, want 1 / false", view.ResolvedInputs, view.MoreInputs)
	}
	if len(view.Inputs) != 1 {
		t.Fatalf("Inputs = %v", view.Inputs)
	}
	if view.Inputs[0].Address != genesisAddr {
		t.Errorf("input address = %q, want %q", view.Inputs[0].Address, genesisAddr)
	}
	if view.Inputs[0].ValueBTC != 1.5 {
		t.Errorf("input value = %v, want 1.5", view.Inputs[0].ValueBTC)
	}
	if view.InputsTotalBTC == nil || *view.InputsTotalBTC != 1.5 {
		t.Fatalf("InputsTotalBTC = %v, want 1.5", view.InputsTotalBTC)
	}
	if view.FeeBTC == nil || math.Abs(*view.FeeBTC-0.0001) > 1e-9 {
		t.Fatalf("FeeBTC = %v, want 0.0001", view.FeeBTC)
	}
	// 10000 sats over 200 vB.
	if view.FeeRateSatVB == nil || math.Abs(*view.FeeRateSatVB-50) > 1e-6 {
		t.Errorf("FeeRateSatVB = %v, want 50", view.FeeRateSatVB)
	}
}

func TestTxByIDPartialResolveNoFee(t *testing.T) {
	raw := rawTxPaying(t, genesisAddr, 100_000_000)
	vins := make([]rpc.TxIn, 30)
	for i := range vins {
		vins[i] = rpc.TxIn{TxID: "fund", Vout: 0}
	}
	node := &fakeNode{txs: map[string]*rpc.Tx{
		"big": {TxID: "big", VSize: 4000, Vin: vins, Vout: []rpc.TxOut{{Value: 29.9}}},
	}}
	svc := NewService(node, &fakeIndex{rawTxs: map[string]string{"fund": raw}}, nil)

	view, err := svc.TxByID(context.Background(), "big", 10)
	if err != nil {
		t.Fatalf("TxByID: %v", err)
	}
	if view.ResolvedInputs != 10 || !view.MoreInputs {
		t.Errorf("resolved = %d more = %v, want 10 / true", view.ResolvedInputs, view.MoreInputs)
	}
	if view.FeeBTC != nil {
		t.Error("fee reported with unresolved inputs")
	}
}

func TestTxByIDResolveZero(t *testing.T) {
	raw := rawTxPaying(t, genesisAddr, 100_000_000)
	node := &fakeNode{txs: map[string]*rpc.Tx{
		"spend": {
			TxID:  "spend",
			VSize: 200,
			Vin:   []rpc.TxIn{{TxID: "fund", Vout: 0}},
			Vout:  []rpc.TxOut{{Value: 0.9999, N: 0}},
		},
	}}
	svc := NewService(node, &fakeIndex{rawTxs: map[string]string{"fund": raw}}, nil)

	view, err := svc.TxByID(context.Background(), "spend", 0)
	if err != nil {
		t.Fatalf("TxByID: %v", err)
	}
	if view.ResolvedInputs != 0 || len(view.Inputs) != 0 {
		t.Errorf("resolved = %d inputs = %v, want none", view.ResolvedInputs, view.Inputs)
	}
	if !view.MoreInputs {
		t.Error("MoreInputs = false with unresolved inputs remaining")
	}
	if view.FeeBTC != nil || view.InputsTotalBTC != nil {
		t.Error("fee reported without resolving any inputs")
	}
}

func TestAddressBalance(t *testing.T) {
	scripthash, err := electrum.ScriptHash(genesisAddr, &chaincfg.MainNetParams)
	if err != nil {
		t.Fatalf("ScriptHash: %v", err)
	}

	index := &fakeIndex{
		balances: map[string]*electrum.Balance{
			scripthash: {Confirmed: 5_000_000_000, Unconfirmed: -100_000_000},
		},
		unspent: map[string][]electrum.Unspent{
			scripthash: {
				{TxHash: "aa", TxPos: 0, Height: 800_000, Value: 4_900_000_000},
				{TxHash: "bb", TxPos: 1, Height: 0, Value: 100_000_000},
			},
		},
	}
	svc := NewService(&fakeNode{}, index, nil)

	view, err := svc.AddressBalance(context.Background(), genesisAddr, true)
	if err != nil {
		t.Fatalf("AddressBalance: %v", err)
	}
	// 50 BTC confirmed minus 1 BTC of unconfirmed spend.
	if view.TotalBTC != 49 {
		t.Errorf("TotalBTC = %v, want 49", view.TotalBTC)
	}
	if view.UTXOCount != 2 {
		t.Fatalf("UTXOCount = %d, want 2", view.UTXOCount)
	}
	if view.UTXOs[0].Height == nil || *view.UTXOs[0].Height != 800_000 {
		t.Errorf("confirmed utxo height = %v", view.UTXOs[0].Height)
	}
	if view.UTXOs[1].Height != nil {
		t.Error("mempool utxo should have nil height")
	}
}

func TestAddressBalanceNoIndex(t *testing.T) {
	svc := NewService(&fakeNode{}, nil, nil)
	if _, err := svc.AddressBalance(context.Background(), genesisAddr, false); !errors.Is(err, ErrNoIndex) {
		t.Errorf("err = %v, want ErrNoIndex", err)
	}
}

func TestAddressBalanceBadAddress(t *testing.T) {
	svc := NewService(&fakeNode{}, &fakeIndex{}, nil)
	_, err := svc.AddressBalance(context.Background(), "notanaddress", false)
	if err == nil || !strings.Contains(err.Error(), "decoding address") {
		t.Errorf("err = %v, want address decode failure", err)
	}
}

func TestAddressHistoryPagination(t *testing.T) {
	scripthash, err := electrum.ScriptHash(genesisAddr, &chaincfg.MainNetParams)
	if err != nil {
		t.Fatalf("ScriptHash: %v", err)
	}

	items := make([]electrum.HistoryItem, 60)
	for i := range items {
		items[i] = electrum.HistoryItem{TxHash: fmt.Sprintf("h%02d", i), Height: int32(100 + i)}
	}
	index := &fakeIndex{history: map[string][]electrum.HistoryItem{scripthash: items}}
	svc := NewService(&fakeNode{}, index, nil)

	view, err := svc.AddressHistory(context.Background(), genesisAddr, 0, -1)
	if err != nil {
		t.Fatalf("AddressHistory: %v", err)
	}
	if len(view.Items) != 25 {
		t.Errorf("default page has %d items, want 25", len(view.Items))
	}
	if !view.Page.More {
		t.Error("Page.More = false with 60 items")
	}

	view, err = svc.AddressHistory(context.Background(), genesisAddr, 50, 25)
	if err != nil {
		t.Fatalf("AddressHistory tail: %v", err)
	}
	if len(view.Items) != 10 || view.Items[0].TxID != "h50" {
		t.Errorf("tail page = %v", view.Items)
	}
}
