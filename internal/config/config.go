package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds everything the agent needs for one run. Values come from the
// environment, optionally overlaid by a YAML file for the tuning knobs that
// are awkward as env vars (tier thresholds, reply templates).
type Config struct {
	// Chain
	NetworkID       string `yaml:"network_id"`        // e.g. base-sepolia, base-mainnet
	ChainAPIBase    string `yaml:"chain_api_base"`    // CDP-style toolkit endpoint
	ChainAPIKey     string `yaml:"-"`                 // secret, env only
	ContractAddress string `yaml:"contract_address"`  // NFT contract to mint from
	WalletDataFile  string `yaml:"wallet_data_file"`  // persisted MPC wallet export

	// Explorer / scoring
	ExplorerAPIBase string    `yaml:"explorer_api_base"`
	ExplorerAPIKey  string    `yaml:"-"`
	Tiers           []float64 `yaml:"tiers"` // ascending score thresholds for tiers 1..4

	// Social platform
	XAPIBase     string `yaml:"x_api_base"`
	XBearerToken string `yaml:"-"` // app-only, read endpoints
	XUserToken   string `yaml:"-"` // user context, required to post
	XAccountID   string `yaml:"x_account_id"`
	MaxMentions  int    `yaml:"max_mentions"` // per-run fetch cap

	// Reply composer
	GeminiAPIKey  string `yaml:"-"`
	ReplyTemplate string `yaml:"reply_template"`

	// Notifier (optional)
	TelegramToken  string `yaml:"-"`
	TelegramChatID string `yaml:"telegram_chat_id"`

	// Local paths
	StorePath string `yaml:"store_path"` // memory artifact, JSON mode
	MediaDir  string `yaml:"media_dir"`  // rendered previews

	// Debugging
	DummyMentionsFile string `yaml:"dummy_mentions_file"`
}

// Default reply used when no composer is available. {{...}} placeholders are
// substituted by the pipeline.
const defaultReplyTemplate = "Your onchain reputation tier is {{tier}}! " +
	"NFT minted to {{address}}. Tx: {{tx}}"

func defaults() Config {
	return Config{
		NetworkID:       "base-sepolia",
		ChainAPIBase:    "https://api.cdp.coinbase.com/platform",
		ContractAddress: "0x4B9523186371F5a805d2EF882Cf0c6a52120deF8",
		WalletDataFile:  "data/wallet_data.json",
		ExplorerAPIBase: "https://api.basescan.org/api",
		Tiers:           []float64{10, 40, 120, 400},
		XAPIBase:        "https://api.twitter.com",
		MaxMentions:     25,
		ReplyTemplate:   defaultReplyTemplate,
		StorePath:       "data/memory.json",
		MediaDir:        "data/media",
	}
}

// Load builds the config from defaults, an optional YAML file, then env
// overrides, in that order. path may be empty.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	setIf(&c.NetworkID, "NETWORK_ID")
	setIf(&c.ChainAPIBase, "CDP_API_BASE")
	setIf(&c.ChainAPIKey, "CDP_API_KEY")
	setIf(&c.ContractAddress, "NFT_CONTRACT_ADDRESS")
	setIf(&c.WalletDataFile, "WALLET_DATA_FILE")
	setIf(&c.ExplorerAPIBase, "EXPLORER_API_BASE")
	setIf(&c.ExplorerAPIKey, "EXPLORER_API_KEY")
	setIf(&c.XAPIBase, "X_API_BASE")
	setIf(&c.XBearerToken, "X_BEARER_TOKEN")
	setIf(&c.XUserToken, "X_USER_TOKEN")
	setIf(&c.XAccountID, "X_ACCOUNT_ID")
	setIfInt(&c.MaxMentions, "MAX_MENTIONS")
	setIf(&c.GeminiAPIKey, "GEMINI_API_KEY")
	setIf(&c.TelegramToken, "TELEGRAM_BOT_TOKEN")
	setIf(&c.TelegramChatID, "TELEGRAM_CHAT_ID")
	setIf(&c.StorePath, "MEMORY_STORE_PATH")
	setIf(&c.MediaDir, "MEDIA_DIR")
	setIf(&c.DummyMentionsFile, "DUMMY_MENTIONS_FILE")
}

func setIf(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setIfInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// Validate reports every missing required credential at once so a CI run
// fails with one actionable message. Dry-run skips the platform secrets.
func (c *Config) Validate(dryRun bool) error {
	var missing []string

	if !dryRun {
		if c.ChainAPIKey == "" {
			missing = append(missing, "CDP_API_KEY")
		}
		if c.XBearerToken == "" {
			missing = append(missing, "X_BEARER_TOKEN")
		}
		if c.XUserToken == "" {
			missing = append(missing, "X_USER_TOKEN")
		}
		if c.XAccountID == "" {
			missing = append(missing, "X_ACCOUNT_ID")
		}
	}
	if c.ContractAddress == "" {
		missing = append(missing, "NFT_CONTRACT_ADDRESS")
	}
	if len(c.Tiers) != 4 {
		return fmt.Errorf("config: tiers must list exactly 4 thresholds, got %d", len(c.Tiers))
	}
	for i := 1; i < len(c.Tiers); i++ {
		if c.Tiers[i] <= c.Tiers[i-1] {
			return fmt.Errorf("config: tier thresholds must be strictly ascending")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("config: missing required credentials: %s", strings.Join(missing, ", "))
	}
	return nil
}
