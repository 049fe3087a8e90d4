package main

import (
	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/urfave/cli/v2"
)

var events = cli.Command{
	Name:  "events",
	Usage: "list order status events, either of one order or after a given event id",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "order",
			Usage: "the order id",
		},
		&cli.Uint64Flag{
			Name:  "from-id",
			Usage: "list events with id greater than this one",
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "max number of events returned with --from-id",
			Value: 100,
		},
	},
	Action: eventsAction,
}

func eventsAction(ctx *cli.Context) error {
	orderID := ctx.String("order")
	if orderID != "" && ctx.IsSet("from-id") {
		return &invalidUsageError{ctx, ctx.Command.Name}
	}

	repoManager, cleanup, err := getRepoManager(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	repo := repoManager.OrderEventRepository()
	var list []domain.OrderEvent
	if orderID != "" {
		list, err = repo.GetEventsForOrder(ctx.Context, orderID)
	} else {
		list, err = repo.GetEventsAfter(ctx.Context, ctx.Uint64("from-id"), ctx.Int("limit"))
	}
	if err != nil {
		return err
	}
	return printJSON(ctx, newEventViews(list))
}
