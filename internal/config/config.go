package config

import (
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (BITVIA_*). Nested keys use
// underscores: BITVIA_RPC_URL -> rpc.url.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: BITVIA_RPC_URL -> rpc.url, etc.
	if err := k.Load(env.Provider("BITVIA_", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// sections are config keys that hold nested structs; their env vars
// map to dotted keys (BITVIA_RPC_URL -> rpc.url). Everything else stays
// flat (BITVIA_ELECTRUM_ADDR -> electrum_addr).
var sections = []string{"rpc_", "price_", "digest_"}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, "BITVIA_"))
	for _, p := range sections {
		if strings.HasPrefix(key, p) {
			return strings.TrimSuffix(p, "_") + "." + strings.TrimPrefix(key, p)
		}
	}
	return key
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.BindAddr == "" {
		return fmt.Errorf("bind_addr is required")
	}
	if _, _, err := net.SplitHostPort(c.BindAddr); err != nil {
		return fmt.Errorf("bind_addr must be host:port: %w", err)
	}

	if c.RPC.URL == "" {
		return fmt.Errorf("rpc.url is required")
	}

	if c.ElectrumAddr != "" {
		if _, _, err := net.SplitHostPort(c.ElectrumAddr); err != nil {
			return fmt.Errorf("electrum_addr must be host:port: %w", err)
		}
	}

	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}

	if c.Price.FeedURL != "" && !strings.HasPrefix(c.Price.FeedURL, "ws") {
		return fmt.Errorf("price.feed_url must be a ws:// or wss:// URL")
	}

	if c.Digest.MaxNews < 0 {
		return fmt.Errorf("digest.max_news must be non-negative")
	}

	return nil
}
