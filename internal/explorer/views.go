package explorer

import (
	"github.com/bitvia/bitvia/internal/rpc"
)

// Page bounds a window over a list of known total size.
type Page struct {
	Total  int  `json:"total"`
	Offset int  `json:"offset"`
	Limit  int  `json:"limit"`
	More   bool `json:"more"`
}

// clampPage normalizes offset/limit against the defaults and the list
// size, returning the slice bounds and the page bookkeeping. A negative
// limit means unspecified and takes the default; an explicit limit is
// clamped to [1, maxLimit], offset to [0, total].
func clampPage(total, offset, limit, defaultLimit, maxLimit int) (start, end int, page Page) {
	if limit < 0 {
		limit = defaultLimit
	}
	if limit == 0 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end = offset + limit
	if end > total {
		end = total
	}
	return offset, end, Page{
		Total:  total,
		Offset: offset,
		Limit:  limit,
		More:   end < total,
	}
}

// MempoolView is the mempool widget payload.
type MempoolView struct {
	TxCount          uint64  `json:"size"`
	Bytes            uint64  `json:"bytes"`
	Usage            uint64  `json:"usage"`
	FullRBF          bool    `json:"fullrbf"`
	UnbroadcastCount uint64  `json:"unbroadcastcount"`
	MinFeeBTCPerKvB  float64 `json:"mempoolminfee"`
	MinFeeSatPerVB   float64 `json:"min_fee_sat_vb"`
}

// NetworkView is the network widget payload.
type NetworkView struct {
	Height              uint64  `json:"height"`
	Difficulty          float64 `json:"difficulty"`
	HashrateGHPS        float64 `json:"hashrate_ghps"`
	AvgBlockIntervalSec float64 `json:"avg_block_interval_sec"`

	BlocksIntoEpoch   uint64  `json:"blocks_into_epoch"`
	BlocksToAdjust    uint64  `json:"blocks_to_next_adjust"`
	EstDiffChangePct  float64 `json:"est_diff_change_pct"`

	CurrentSubsidyBTC float64 `json:"current_subsidy_btc"`
	EstNewBTCPerDay   float64 `json:"est_new_btc_per_day"`
	EstCirculatingBTC float64 `json:"est_circulating_btc"`

	TipTime uint64 `json:"tip_time"`
}

// BlockView is the block widget payload: block metadata plus one page
// of txids.
type BlockView struct {
	Hash       string `json:"hash"`
	Height     uint64 `json:"height"`
	Time       uint64 `json:"time"`
	MedianTime uint64 `json:"mediantime,omitempty"`
	Size       uint64 `json:"size"`
	Weight     uint64 `json:"weight,omitempty"`
	NTx        uint64 `json:"n_tx"`
	Prev       string `json:"prev,omitempty"`
	Next       string `json:"next,omitempty"`

	TxIDs []string `json:"txids"`
	Page  Page     `json:"page"`
}

// BlockHashView is the /api/blockhash/{height} payload.
type BlockHashView struct {
	Height uint64 `json:"height"`
	Hash   string `json:"hash"`
}

// Prevout is one resolved transaction input.
type Prevout struct {
	TxID     string  `json:"txid"`
	Vout     uint32  `json:"vout"`
	ValueBTC float64 `json:"value_btc"`
	Address  string  `json:"address"`
}

// TxView is the transaction widget payload.
type TxView struct {
	TxID          string `json:"txid"`
	Size          uint64 `json:"size"`
	VSize         uint64 `json:"vsize"`
	Weight        uint64 `json:"weight"`
	Confirmations uint64 `json:"confirmations"`
	BlockHash     string `json:"blockhash,omitempty"`
	IsCoinbase    bool   `json:"is_coinbase"`

	Inputs          []Prevout `json:"inputs_resolved"`
	InputsTotalBTC  *float64  `json:"inputs_total_btc"`
	OutputsTotalBTC float64   `json:"outputs_total_btc"`
	FeeBTC          *float64  `json:"fee_btc"`
	FeeRateSatVB    *float64  `json:"feerate_sat_vb"`

	TotalInputs    int  `json:"total_inputs"`
	ResolvedInputs int  `json:"resolved_inputs"`
	MoreInputs     bool `json:"more_inputs"`

	Vout []rpc.TxOut `json:"vout"`
}

// AddrUTXO is one unspent output of an address.
type AddrUTXO struct {
	TxID         string  `json:"txid"`
	Vout         uint32  `json:"vout"`
	AmountBTC    float64 `json:"amount_btc"`
	Height       *uint32 `json:"height"` // nil while in mempool
	ScriptPubKey string  `json:"script_pub_key"`
}

// AddrView is the address widget payload.
type AddrView struct {
	Address   string     `json:"address"`
	TotalBTC  float64    `json:"total_btc"`
	UTXOCount int        `json:"utxo_count"`
	UTXOs     []AddrUTXO `json:"utxos,omitempty"`
}

// AddrHistoryItem is one entry of an address's transaction history.
// Height <= 0 means the transaction is still unconfirmed.
type AddrHistoryItem struct {
	TxID   string `json:"txid"`
	Height int32  `json:"height"`
}

// AddrHistoryView is the paginated address history payload.
type AddrHistoryView struct {
	Address string            `json:"address"`
	Items   []AddrHistoryItem `json:"items"`
	Page    Page              `json:"page"`
}
