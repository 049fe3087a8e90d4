package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	dbbadger "github.com/darkswap-network/darkswap-daemon/internal/infrastructure/storage/db/badger"
	"github.com/urfave/cli/v2"
)

var (
	defaultDatadir = btcutil.AppDataDir("darkswap-daemon", false)

	datadirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "data directory of the darkswap daemon",
		Value: defaultDatadir,
	}
	walletFlag = cli.StringFlag{
		Name:     "wallet",
		Usage:    "the wallet address",
		Required: true,
	}
	chainFlag = cli.Uint64Flag{
		Name:  "chain",
		Usage: "the chain id, 0 for all chains",
	}
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fatal(err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()

	app.Version = "0.1.0"
	app.Name = "darkswap operator CLI"
	app.Usage = "Offline inspection of the state of a stopped darkswap daemon"
	app.Flags = []cli.Flag{&datadirFlag}
	app.Commands = append(
		app.Commands,
		&notes,
		&balances,
		&orders,
		&events,
	)
	return app
}

// getRepoManager opens the daemon's badger stores. The daemon must not be
// running since badger holds an exclusive lock on its directories.
func getRepoManager(ctx *cli.Context) (ports.RepoManager, func(), error) {
	dbDir := filepath.Join(ctx.String(datadirFlag.Name), "db")
	if _, err := os.Stat(dbDir); err != nil {
		return nil, nil, fmt.Errorf("datadir %s has no database", ctx.String(datadirFlag.Name))
	}

	repoManager, err := dbbadger.NewRepoManager(dbDir, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to open database, is the daemon running? %w", err)
	}
	return repoManager, repoManager.Close, nil
}

func printJSON(ctx *cli.Context, resp interface{}) error {
	buf, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		return fmt.Errorf("unable to encode response: %w", err)
	}
	_, err = fmt.Fprintln(ctx.App.Writer, string(buf))
	return err
}

type invalidUsageError struct {
	ctx     *cli.Context
	command string
}

func (e *invalidUsageError) Error() string {
	return fmt.Sprintf("invalid usage of command %s", e.command)
}

func fatal(err error) {
	var e *invalidUsageError
	if errors.As(err, &e) {
		_ = cli.ShowCommandHelp(e.ctx, e.command)
	} else {
		_, _ = fmt.Fprintf(os.Stderr, "[darkswapctl] %v\n", err)
	}
	os.Exit(1)
}
