package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// AssetConfig declares one accepted collateral asset and its price feed.
type AssetConfig struct {
	Symbol              string `toml:"Symbol"`
	FeedSource          string `toml:"FeedSource"`
	CoinGeckoID         string `toml:"CoinGeckoID,omitempty"`
	StaleTimeoutSeconds int64  `toml:"StaleTimeoutSeconds"`
}

// StaleTimeout returns the configured freshness window, or zero to signal the
// engine default.
func (a AssetConfig) StaleTimeout() time.Duration {
	if a.StaleTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.StaleTimeoutSeconds) * time.Second
}

type Config struct {
	RPCAddress string `toml:"RPCAddress"`
	DataDir    string `toml:"DataDir"`

	TokenName   string `toml:"TokenName"`
	TokenSymbol string `toml:"TokenSymbol"`

	LogLevel     string `toml:"LogLevel"`
	LogFile      string `toml:"LogFile,omitempty"`
	LogMaxSizeMB int    `toml:"LogMaxSizeMB,omitempty"`

	MetricsAddress string `toml:"MetricsAddress,omitempty"`
	OTLPEndpoint   string `toml:"OTLPEndpoint,omitempty"`
	ServiceName    string `toml:"ServiceName,omitempty"`

	Assets []AssetConfig `toml:"Asset"`
}

const (
	defaultRPCAddress  = ":8545"
	defaultDataDir     = "./stable-data"
	defaultTokenName   = "Stable USD"
	defaultTokenSymbol = "SUSD"
	defaultLogLevel    = "info"
	defaultServiceName = "stabled"
)

// Load reads the configuration from path, creating a default file when none
// exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return nil, fmt.Errorf("config file %s has unknown fields: %s", path, strings.Join(keys, ", "))
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.RPCAddress) == "" {
		c.RPCAddress = defaultRPCAddress
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = defaultDataDir
	}
	if strings.TrimSpace(c.TokenName) == "" {
		c.TokenName = defaultTokenName
	}
	if strings.TrimSpace(c.TokenSymbol) == "" {
		c.TokenSymbol = defaultTokenSymbol
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = defaultLogLevel
	}
	if strings.TrimSpace(c.ServiceName) == "" {
		c.ServiceName = defaultServiceName
	}
}

// Validate rejects configurations the daemon could not start with.
func (c *Config) Validate() error {
	if len(c.Assets) == 0 {
		return fmt.Errorf("config: at least one [[Asset]] entry is required")
	}
	seen := make(map[string]struct{}, len(c.Assets))
	for i, asset := range c.Assets {
		symbol := strings.ToUpper(strings.TrimSpace(asset.Symbol))
		if symbol == "" {
			return fmt.Errorf("config: Asset %d has an empty Symbol", i)
		}
		if _, dup := seen[symbol]; dup {
			return fmt.Errorf("config: duplicate asset %s", symbol)
		}
		seen[symbol] = struct{}{}
		switch strings.ToLower(strings.TrimSpace(asset.FeedSource)) {
		case "manual", "":
		case "coingecko":
			if strings.TrimSpace(asset.CoinGeckoID) == "" {
				return fmt.Errorf("config: asset %s uses the coingecko feed but has no CoinGeckoID", symbol)
			}
		default:
			return fmt.Errorf("config: asset %s has unknown FeedSource %q", symbol, asset.FeedSource)
		}
	}
	return nil
}

// createDefault writes a default configuration file and returns it.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		RPCAddress:  defaultRPCAddress,
		DataDir:     defaultDataDir,
		TokenName:   defaultTokenName,
		TokenSymbol: defaultTokenSymbol,
		LogLevel:    defaultLogLevel,
		ServiceName: defaultServiceName,
		Assets: []AssetConfig{
			{Symbol: "WETH", FeedSource: "manual"},
		},
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		_ = file.Close()
	}()
	return toml.NewEncoder(file).Encode(cfg)
}
