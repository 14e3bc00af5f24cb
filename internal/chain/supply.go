// Package chain holds pure Bitcoin consensus arithmetic: subsidy
// schedule, mined supply, and difficulty retarget estimates.
package chain

const (
	// SatsPerBTC is the number of satoshis in one bitcoin.
	SatsPerBTC = 100_000_000

	// HalvingInterval is the number of blocks between subsidy halvings.
	HalvingInterval = 210_000

	// EpochLength is the number of blocks per difficulty retarget epoch.
	EpochLength = 2016

	// TargetBlockInterval is the protocol's target seconds per block.
	TargetBlockInterval = 600.0

	initialSubsidySats = 50 * SatsPerBTC
)

// SubsidySats returns the block subsidy in satoshis at the given height.
func SubsidySats(height uint64) uint64 {
	halvings := height / HalvingInterval
	if halvings >= 64 {
		return 0
	}
	return initialSubsidySats >> halvings
}

// SubsidyBTC returns the block subsidy in BTC at the given height.
func SubsidyBTC(height uint64) float64 {
	return float64(SubsidySats(height)) / SatsPerBTC
}

// MinedSupplyBTC returns the total mined supply up to and including
// height, in BTC. The genesis subsidy is excluded (it is unspendable).
func MinedSupplyBTC(height uint64) float64 {
	remaining := height
	subsidy := uint64(initialSubsidySats)
	var total uint64

	for i := 0; i < 64; i++ {
		if remaining == 0 || subsidy == 0 {
			break
		}
		blocks := remaining
		if blocks > HalvingInterval {
			blocks = HalvingInterval
		}
		total += blocks * subsidy
		remaining -= blocks
		subsidy >>= 1
	}
	return float64(total) / SatsPerBTC
}

// EpochPosition reports how far into the current retarget epoch height
// is, and how many blocks remain until the next adjustment.
func EpochPosition(height uint64) (into, toNext uint64) {
	into = height % EpochLength
	return into, EpochLength - into
}

// EstimateRetarget estimates the average block interval since the epoch
// start and the resulting difficulty change percentage, clamped to
// ±50%. blocksIntoEpoch must be > 0 and dt is the seconds elapsed
// between the epoch-start block and the tip.
func EstimateRetarget(blocksIntoEpoch uint64, dt float64) (avgIntervalSec, changePct float64) {
	if blocksIntoEpoch == 0 {
		return TargetBlockInterval, 0
	}

	avg := dt / float64(blocksIntoEpoch)
	if dt <= 0 {
		avg = TargetBlockInterval
	}

	pct := (TargetBlockInterval/avg - 1) * 100
	if pct > 50 {
		pct = 50
	}
	if pct < -50 {
		pct = -50
	}
	return avg, pct
}
