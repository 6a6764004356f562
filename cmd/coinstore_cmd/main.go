package main

import (
	"encoding/hex"
	"fmt"
	"os"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"

	"github.com/TEENet-io/coin-store/cmd"
	"github.com/TEENet-io/coin-store/common"
	"github.com/TEENet-io/coin-store/elements"
	"github.com/TEENet-io/coin-store/logconfig"
)

const (
	ENV_CONFIG_FILE_PATH = "COINSTORE_CONFIG"
)

func main() {
	app := &cli.App{
		Name:   "coinstore",
		Usage:  "Operate a confidential asset coin store",
		Before: loadConfig,
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Create the store and its schema",
				Action: initStore,
			},
			{
				Name:   "unspent",
				Usage:  "List unspent outpoints",
				Action: listUnspent,
			},
			{
				Name:   "scripts",
				Usage:  "List script pubkeys of tracked contracts",
				Action: listScripts,
			},
			{
				Name:      "import-tx",
				Usage:     "Spend the inputs and store the explicit outputs of a raw transaction",
				ArgsUsage: "<hex>",
				Action:    importTx,
			},
			{
				Name:   "serve",
				Usage:  "Serve the http reporter, press Ctrl+C to stop",
				Action: serve,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Fatal(err)
	}
}

// loadConfig reads environment variables, then the file named by
// COINSTORE_CONFIG when it is set.
func loadConfig(c *cli.Context) error {
	viper.AutomaticEnv()

	_config_file := viper.GetString(ENV_CONFIG_FILE_PATH)
	if _config_file != "" {
		if !cmd.FileExists(_config_file) {
			return fmt.Errorf("configuration file not found: %s", _config_file)
		}
		viper.SetConfigFile(_config_file)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading configuration file: %w", err)
		}
	}

	return logconfig.ConfigLogger(viper.GetString("LOG_LEVEL"))
}

// PrepareCoinStoreConfig reads configuration variables and returns a CoinStoreConfig.
func PrepareCoinStoreConfig() *cmd.CoinStoreConfig {
	return &cmd.CoinStoreConfig{
		DbFilePath:           viper.GetString("DB_FILE_PATH"),
		Network:              viper.GetString("NETWORK"),
		BatchSize:            viper.GetString("BATCH_SIZE"),
		ProgramCacheSize:     viper.GetString("PROGRAM_CACHE_SIZE"),
		MaxConcurrentFilters: viper.GetString("MAX_CONCURRENT_FILTERS"),
		HttpIp:               viper.GetString("HTTP_IP"),
		HttpPort:             viper.GetString("HTTP_PORT"),
		LogLevel:             viper.GetString("LOG_LEVEL"),
	}
}

func initStore(c *cli.Context) error {
	st, err := cmd.OpenStore(c.Context, PrepareCoinStoreConfig(), true)
	if err != nil {
		return err
	}
	return st.Close()
}

func listUnspent(c *cli.Context) error {
	st, err := cmd.OpenStore(c.Context, PrepareCoinStoreConfig(), false)
	if err != nil {
		return err
	}
	defer st.Close()

	ops, err := st.ListUnspentOutpoints(c.Context)
	if err != nil {
		return err
	}
	for _, op := range ops {
		fmt.Println(op.String())
	}
	return nil
}

func listScripts(c *cli.Context) error {
	st, err := cmd.OpenStore(c.Context, PrepareCoinStoreConfig(), false)
	if err != nil {
		return err
	}
	defer st.Close()

	scripts, err := st.ListTrackedScriptPubKeys(c.Context)
	if err != nil {
		return err
	}
	for _, s := range scripts {
		fmt.Println(hex.EncodeToString(s))
	}
	return nil
}

func importTx(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expect one raw transaction in hex")
	}
	raw, err := common.DecodeHex(c.Args().First())
	if err != nil {
		return err
	}
	tx, err := elements.DeserializeTransaction(raw)
	if err != nil {
		return err
	}

	st, err := cmd.OpenStore(c.Context, PrepareCoinStoreConfig(), false)
	if err != nil {
		return err
	}
	defer st.Close()

	// no blinding keys on the command line, confidential outputs are skipped
	report, err := st.InsertTransaction(c.Context, tx, nil)
	if err != nil {
		return err
	}
	logger.WithFields(logger.Fields{
		"txid":      report.Txid.String(),
		"spent":     report.Spent,
		"inserted":  report.Inserted,
		"skipped":   report.Skipped,
		"entropies": report.Entropies,
	}).Info("transaction imported")
	return nil
}

func serve(c *cli.Context) error {
	fmt.Println("Starting coin store server... press Ctrl+C to kill the server")
	return cmd.StartServerAndWait(PrepareCoinStoreConfig())
}
