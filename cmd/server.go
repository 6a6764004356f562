// Server = coin store + http reporter.
// All components are configured via environment variables (strings!).

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	logger "github.com/sirupsen/logrus"

	"github.com/TEENet-io/coin-store/coinstore"
	"github.com/TEENet-io/coin-store/reporter"
)

// OpenStore opens the store described by csc. With create set, a missing
// store is initialized first.
func OpenStore(ctx context.Context, csc *CoinStoreConfig, create bool) (*coinstore.Store, error) {
	cfg, err := csc.StoreConfig()
	if err != nil {
		return nil, err
	}

	st, err := coinstore.Open(ctx, cfg)
	if create && (errors.Is(err, coinstore.ErrNotFound) || errors.Is(err, coinstore.ErrNotInitialized)) {
		return coinstore.Create(ctx, cfg)
	}
	return st, err
}

// RunServer serves the http reporter over an open store until ctx is done.
func RunServer(ctx context.Context, csc *CoinStoreConfig, st *coinstore.Store) error {
	ip, port := csc.Address()
	http_server := reporter.NewHttpReporter(ip, port, st)
	return http_server.RunContext(ctx)
}

// Open the store, then start the http reporter and wait.
// Press Ctrl-C to kill the server.
func StartServerAndWait(csc *CoinStoreConfig) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up a signal channel to listen for Ctrl-C (SIGINT) or SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			fmt.Printf("Received signal: %v, cancelling context...\n", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	st, err := OpenStore(ctx, csc, true)
	if err != nil {
		logger.WithError(err).Error("failed to open coin store")
		return err
	}
	defer st.Close()

	logger.WithField("db", csc.DbFilePath).Info("coin store opened")
	return RunServer(ctx, csc, st)
}
