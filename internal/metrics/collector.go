package metrics

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/bitvia/bitvia/internal/chain"
	"github.com/bitvia/bitvia/internal/rpc"
)

// intervalWindow is how many recent blocks feed the average interval,
// roughly half a day of chain time.
const intervalWindow = 72

// Collect takes a live snapshot from the node: mempool counters plus
// the average interval over the last intervalWindow blocks. Negative
// and longer-than-an-hour gaps are treated as outliers and skipped.
func Collect(ctx context.Context, node rpc.NodeClient) (*Row, error) {
	ci, err := node.GetBlockchainInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("getblockchaininfo: %w", err)
	}
	mp, err := node.GetMempoolInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("getmempoolinfo: %w", err)
	}

	avg, err := avgBlockInterval(ctx, node, ci.Blocks)
	if err != nil {
		return nil, err
	}

	fee := mp.MempoolMinFee * 1e5 // BTC/kvB to sat/vB
	if math.IsNaN(fee) || math.IsInf(fee, 0) || fee < 0 {
		fee = 0
	}
	fee = math.Round(fee*100) / 100

	txCount := int64(mp.Size)
	byteCount := int64(mp.Bytes)

	return &Row{
		Date:                time.Now().UTC().Format("2006-01-02"),
		MempoolTx:           &txCount,
		MempoolBytes:        &byteCount,
		AvgBlockIntervalSec: &avg,
		MedianFeeSatPerVB:   &fee,
	}, nil
}

// batchTimes is implemented by node clients that can fetch a height
// range of header timestamps in batched calls.
type batchTimes interface {
	BlockTimes(ctx context.Context, from, to uint64) ([]uint64, error)
}

func avgBlockInterval(ctx context.Context, node rpc.NodeClient, tip uint64) (float64, error) {
	start := uint64(0)
	if tip > intervalWindow {
		start = tip - intervalWindow
	}

	times, err := headerTimes(ctx, node, start, tip)
	if err != nil {
		return 0, err
	}

	var total, count int64
	for i := 1; i < len(times); i++ {
		dt := int64(times[i]) - int64(times[i-1])
		if dt > 0 && dt < 3600 {
			total += dt
			count++
		}
	}

	if count == 0 {
		return chain.TargetBlockInterval, nil
	}
	return float64(total) / float64(count), nil
}

func headerTimes(ctx context.Context, node rpc.NodeClient, from, to uint64) ([]uint64, error) {
	if bt, ok := node.(batchTimes); ok {
		return bt.BlockTimes(ctx, from, to)
	}
	times := make([]uint64, 0, to-from+1)
	for h := from; h <= to; h++ {
		t, err := blockTime(ctx, node, h)
		if err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	return times, nil
}

func blockTime(ctx context.Context, node rpc.NodeClient, height uint64) (uint64, error) {
	hash, err := node.GetBlockHash(ctx, height)
	if err != nil {
		return 0, fmt.Errorf("getblockhash %d: %w", height, err)
	}
	hdr, err := node.GetBlockHeader(ctx, hash)
	if err != nil {
		return 0, fmt.Errorf("getblockheader %s: %w", hash, err)
	}
	return hdr.Time, nil
}
