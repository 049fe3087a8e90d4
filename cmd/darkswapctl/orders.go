package main

import (
	"fmt"

	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/urfave/cli/v2"
)

var orders = cli.Command{
	Name:  "orders",
	Usage: "list the orders known to the daemon",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "status",
			Usage: "the order status to filter by",
		},
		&cli.IntFlag{
			Name:  "page",
			Usage: "the page number, starting from 1",
		},
		&cli.IntFlag{
			Name:  "size",
			Usage: "the page size",
		},
	},
	Action: ordersAction,
}

func ordersAction(ctx *cli.Context) error {
	var page *domain.Page
	if ctx.IsSet("page") || ctx.IsSet("size") {
		p := domain.NewPage(ctx.Int("page"), ctx.Int("size"))
		page = &p
	}

	repoManager, cleanup, err := getRepoManager(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	repo := repoManager.OrderRepository()
	var list []domain.Order
	if label := ctx.String("status"); label != "" {
		status, ok := domain.OrderStatusFromString(label)
		if !ok {
			return fmt.Errorf("unknown order status %s", label)
		}
		list, err = repo.GetOrdersByStatus(ctx.Context, status, page)
	} else {
		list, err = repo.GetAllOrders(ctx.Context, page)
	}
	if err != nil {
		return err
	}

	views := make([]orderView, 0, len(list))
	for _, o := range list {
		views = append(views, newOrderView(o))
	}
	return printJSON(ctx, views)
}
