package config

import (
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .bitvia.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to bitvia! Let's connect your node.")
	fmt.Println()

	defaults := DefaultConfig()

	// 1. Bitcoin Core RPC.
	rpcURLPrompt := promptui.Prompt{
		Label:   "Bitcoin Core RPC URL",
		Default: defaults.RPC.URL,
	}
	rpcURL, err := rpcURLPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("rpc url: %w", err)
	}

	rpcUserPrompt := promptui.Prompt{
		Label: "RPC username",
	}
	rpcUser, err := rpcUserPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("rpc user: %w", err)
	}

	rpcPassPrompt := promptui.Prompt{
		Label: "RPC password",
		Mask:  '*',
	}
	rpcPass, err := rpcPassPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("rpc password: %w", err)
	}

	// 2. Electrum index server (electrs or similar).
	electrumPrompt := promptui.Prompt{
		Label:   "Electrum server address (host:port, blank to disable address lookups)",
		Default: defaults.ElectrumAddr,
	}
	electrumAddr, err := electrumPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("electrum address: %w", err)
	}

	// 3. Listen address.
	bindPrompt := promptui.Prompt{
		Label:   "Explorer listen address",
		Default: defaults.BindAddr,
	}
	bindAddr, err := bindPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("bind address: %w", err)
	}

	// 4. Database path.
	dbPrompt := promptui.Prompt{
		Label:   "SQLite database path",
		Default: defaults.DBPath,
	}
	dbPath, err := dbPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("db path: %w", err)
	}

	// 5. Price feed product.
	productPrompt := promptui.Select{
		Label: "Price ticker product",
		Items: []string{"BTC-USD", "BTC-EUR", "BTC-GBP"},
	}
	_, product, err := productPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("product selection: %w", err)
	}

	// Build the config.
	cfg := DefaultConfig()
	cfg.BindAddr = bindAddr
	cfg.DBPath = dbPath
	cfg.RPC = RPCConfig{URL: rpcURL, User: rpcUser, Password: rpcPass}
	cfg.ElectrumAddr = electrumAddr
	cfg.Price.Product = product

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if os.Getenv("OPENAI_API_KEY") == "" {
		fmt.Printf("\nNote: Set OPENAI_API_KEY in your environment before running bitvia digest.\n")
	}

	// Save to .bitvia.yml.
	configPath := ".bitvia.yml"
	if err := cfg.Save(configPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", configPath)
	return cfg, nil
}
