package config

// RPCConfig holds Bitcoin Core JSON-RPC connection settings.
type RPCConfig struct {
	URL      string `yaml:"url" koanf:"url"`
	User     string `yaml:"user" koanf:"user"`
	Password string `yaml:"password" koanf:"password"`
}

// PriceConfig holds the streaming price feed settings.
type PriceConfig struct {
	FeedURL string `yaml:"feed_url" koanf:"feed_url"`
	Product string `yaml:"product" koanf:"product"`
}

// DigestConfig holds settings for the AI-written daily digest.
type DigestConfig struct {
	Model    string `yaml:"model" koanf:"model"`
	MaxNews  int    `yaml:"max_news" koanf:"max_news"`
	MaxRPM   int    `yaml:"max_rpm" koanf:"max_rpm"`
}

// Config is the top-level bitvia configuration, corresponding to .bitvia.yml.
type Config struct {
	BindAddr     string       `yaml:"bind_addr" koanf:"bind_addr"`
	DBPath       string       `yaml:"db_path" koanf:"db_path"`
	RPC          RPCConfig    `yaml:"rpc" koanf:"rpc"`
	ElectrumAddr string       `yaml:"electrum_addr" koanf:"electrum_addr"`
	Price        PriceConfig  `yaml:"price" koanf:"price"`
	Feeds        []string     `yaml:"feeds" koanf:"feeds"`
	Digest       DigestConfig `yaml:"digest" koanf:"digest"`
}
