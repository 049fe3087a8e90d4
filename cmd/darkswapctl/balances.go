package main

import (
	"sort"

	"github.com/darkswap-network/darkswap-daemon/internal/core/application/ledger"
	"github.com/urfave/cli/v2"
)

var balances = cli.Command{
	Name:   "balances",
	Usage:  "get the active and locked balances of a wallet",
	Flags:  []cli.Flag{&walletFlag, &chainFlag},
	Action: balancesAction,
}

func balancesAction(ctx *cli.Context) error {
	repoManager, cleanup, err := getRepoManager(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	ledgerSvc, err := ledger.NewService(repoManager)
	if err != nil {
		return err
	}

	wallet := ctx.String(walletFlag.Name)
	if chainID := ctx.Uint64(chainFlag.Name); chainID > 0 {
		list, err := ledgerSvc.Balances(ctx.Context, wallet, chainID)
		if err != nil {
			return err
		}
		return printJSON(ctx, newBalanceViews(chainID, list))
	}

	byChain, err := ledgerSvc.AllBalances(ctx.Context, wallet)
	if err != nil {
		return err
	}
	chainIDs := make([]uint64, 0, len(byChain))
	for chainID := range byChain {
		chainIDs = append(chainIDs, chainID)
	}
	sort.Slice(chainIDs, func(i, j int) bool { return chainIDs[i] < chainIDs[j] })

	views := make([]balanceView, 0)
	for _, chainID := range chainIDs {
		views = append(views, newBalanceViews(chainID, byChain[chainID])...)
	}
	return printJSON(ctx, views)
}
