package main

import (
	"fmt"

	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/urfave/cli/v2"
)

var notes = cli.Command{
	Name:  "notes",
	Usage: "list the notes of a wallet",
	Flags: []cli.Flag{
		&walletFlag,
		&chainFlag,
		&cli.StringFlag{
			Name:  "asset",
			Usage: "the asset address to filter notes by, requires --chain",
		},
		&cli.StringFlag{
			Name:  "status",
			Usage: "the note status to filter by (CREATED, ACTIVE, SPENT, LOCKED)",
		},
	},
	Action: notesAction,
}

func notesAction(ctx *cli.Context) error {
	wallet := domain.NormalizeAddress(ctx.String(walletFlag.Name))
	chainID := ctx.Uint64(chainFlag.Name)
	asset := domain.NormalizeAddress(ctx.String("asset"))

	var filter *domain.NoteStatus
	if label := ctx.String("status"); label != "" {
		status, ok := domain.NoteStatusFromString(label)
		if !ok {
			return fmt.Errorf("unknown note status %s", label)
		}
		filter = &status
	}
	if asset != "" && chainID == 0 {
		return &invalidUsageError{ctx, ctx.Command.Name}
	}

	repoManager, cleanup, err := getRepoManager(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	repo := repoManager.NoteRepository()
	var list []domain.Note
	switch {
	case asset != "":
		list, err = repo.GetNotesByAsset(ctx.Context, wallet, chainID, asset)
	case chainID > 0:
		list, err = repo.GetNotesForAccount(ctx.Context, wallet, chainID)
	default:
		list, err = repo.GetNotesForWallet(ctx.Context, wallet)
	}
	if err != nil {
		return err
	}

	views := make([]noteView, 0, len(list))
	for _, n := range list {
		if filter != nil && n.Status != *filter {
			continue
		}
		views = append(views, newNoteView(n))
	}
	return printJSON(ctx, views)
}
