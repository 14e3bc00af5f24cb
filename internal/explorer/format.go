package explorer

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatBTC renders a BTC amount with 8 decimals and comma grouping of
// the integer part.
func FormatBTC(v float64) string {
	s := humanize.CommafWithDigits(v, 8)
	// Always show the full 8 decimals like the node does.
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return s + ".00000000"
	}
	if pad := 8 - (len(s) - dot - 1); pad > 0 {
		return s + strings.Repeat("0", pad)
	}
	return s
}

// FormatSats renders a satoshi amount as BTC.
func FormatSats(sats int64) string {
	return FormatBTC(float64(sats) / 1e8)
}

// FormatFeeRate renders a sat/vB fee rate with one decimal.
func FormatFeeRate(satPerVB float64) string {
	return fmt.Sprintf("%.1f sat/vB", satPerVB)
}

// FormatInt renders an integer with comma grouping.
func FormatInt(v int64) string {
	return humanize.Comma(v)
}

// FormatBytes renders a byte count in human units (SI).
func FormatBytes(v uint64) string {
	return humanize.Bytes(v)
}

// FormatHashrate renders a GH/s value, scaling up to TH/s, PH/s or
// EH/s as needed.
func FormatHashrate(ghps float64) string {
	units := []string{"GH/s", "TH/s", "PH/s", "EH/s"}
	i := 0
	for ghps >= 1000 && i < len(units)-1 {
		ghps /= 1000
		i++
	}
	return fmt.Sprintf("%.2f %s", ghps, units[i])
}

// FormatDifficulty renders a difficulty value in engineering notation
// (e.g. 90.67 T).
func FormatDifficulty(d float64) string {
	switch {
	case d >= 1e12:
		return fmt.Sprintf("%.2f T", d/1e12)
	case d >= 1e9:
		return fmt.Sprintf("%.2f G", d/1e9)
	case d >= 1e6:
		return fmt.Sprintf("%.2f M", d/1e6)
	default:
		return humanize.CommafWithDigits(d, 2)
	}
}

// FormatDuration renders a second count as "9m 36s" style text.
func FormatDuration(sec float64) string {
	d := time.Duration(sec * float64(time.Second)).Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) - m*60
	if m < 60 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := m / 60
	m -= h * 60
	return fmt.Sprintf("%dh %dm", h, m)
}

// TimeAgo renders a unix timestamp relative to now ("12 minutes ago").
func TimeAgo(unix uint64) string {
	if unix == 0 {
		return "unknown"
	}
	return humanize.Time(time.Unix(int64(unix), 0))
}

// FormatTime renders a unix timestamp as UTC date and time.
func FormatTime(unix uint64) string {
	if unix == 0 {
		return "—"
	}
	return time.Unix(int64(unix), 0).UTC().Format("2006-01-02 15:04:05 UTC")
}

// ShortHash abbreviates a hash for display, keeping both ends.
func ShortHash(h string) string {
	if len(h) <= 16 {
		return h
	}
	return h[:8] + "…" + h[len(h)-8:]
}
