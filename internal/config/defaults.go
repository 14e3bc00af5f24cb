package config

// DefaultFeeds are the news feeds ingested when none are configured.
var DefaultFeeds = []string{
	"https://www.coindesk.com/arc/outboundfeeds/rss/",
	"https://decrypt.co/feed",
	"https://bitcoinops.org/feed.xml",
	"https://blog.blockstream.com/rss/",
	"https://insights.glassnode.com/feed/",
	"https://mempool.space/blog/index.xml",
	"https://www.reddit.com/r/Bitcoin/.rss",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BindAddr:     "0.0.0.0:8000",
		DBPath:       "db/bitvia.db",
		RPC:          RPCConfig{URL: "http://127.0.0.1:8332"},
		ElectrumAddr: "127.0.0.1:50001",
		Price: PriceConfig{
			FeedURL: "wss://ws-feed.exchange.coinbase.com",
			Product: "BTC-USD",
		},
		Feeds: DefaultFeeds,
		Digest: DigestConfig{
			Model:   "gpt-4o-mini",
			MaxNews: 10,
			MaxRPM:  30,
		},
	}
}
