package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/TEENet-io/coin-store/coinstore"
	"github.com/TEENet-io/coin-store/common"
)

// Default values of the text configuration.
const (
	DefaultNetwork  = "regtest"
	DefaultHttpIp   = "127.0.0.1"
	DefaultHttpPort = "8080"
)

// FileExists checks if a file exists and is readable
func FileExists(filePath string) bool {
	file, err := os.Open(filePath)
	if err != nil {
		return false
	}
	defer file.Close()
	return true
}

// Keep the configuration's fields as "text" as possible.
// Its easier to load it from env vars or a config file.
type CoinStoreConfig struct {
	DbFilePath           string // db file path
	Network              string // mainnet, testnet, signet, regtest, simnet
	BatchSize            string // rows per coin selection batch, empty for default
	ProgramCacheSize     string // shared compiled program cache, 0 disables it
	MaxConcurrentFilters string // filters evaluated in parallel by one query

	// Http side
	HttpIp   string // eg. 0.0.0.0
	HttpPort string // eg. 8080

	LogLevel string // logrus level name
}

// StoreConfig turns the text configuration into a coinstore.Config.
func (c *CoinStoreConfig) StoreConfig() (*coinstore.Config, error) {
	if c.DbFilePath == "" {
		return nil, fmt.Errorf("DB_FILE_PATH must be set")
	}

	network := c.Network
	if network == "" {
		network = DefaultNetwork
	}
	params, err := common.ParseNetwork(network)
	if err != nil {
		return nil, err
	}

	cfg := coinstore.DefaultConfig(c.DbFilePath)
	cfg.Params = params
	if cfg.BatchSize, err = parseInt("BATCH_SIZE", c.BatchSize, cfg.BatchSize); err != nil {
		return nil, err
	}
	if cfg.ProgramCacheSize, err = parseInt("PROGRAM_CACHE_SIZE", c.ProgramCacheSize, cfg.ProgramCacheSize); err != nil {
		return nil, err
	}
	if cfg.MaxConcurrentFilters, err = parseInt("MAX_CONCURRENT_FILTERS", c.MaxConcurrentFilters, cfg.MaxConcurrentFilters); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Address returns the http listen ip and port, defaults filled in.
func (c *CoinStoreConfig) Address() (string, string) {
	ip, port := c.HttpIp, c.HttpPort
	if ip == "" {
		ip = DefaultHttpIp
	}
	if port == "" {
		port = DefaultHttpPort
	}
	return ip, port
}

func parseInt(key, value string, def int) (int, error) {
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s: negative value %d", key, n)
	}
	return n, nil
}
