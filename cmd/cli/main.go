package main

import (
	"context"
	"github.com/ZilDuck/membership-market/internal/config"
	"github.com/ZilDuck/membership-market/internal/config/di"
	"github.com/ZilDuck/membership-market/internal/dev"
	"github.com/ZilDuck/membership-market/internal/entity"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"os"
	"os/signal"
	"syscall"
)

var container *di.Container

func main() {
	config.Init("cli")

	var err error
	if container, err = di.NewContainer(); err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to build container")
	}
	defer container.Delete()

	app := &cli.App{
		Name:  "billing",
		Usage: "operate membership billing",
		Commands: []*cli.Command{
			{
				Name:   "charge",
				Usage:  "run one billing cycle now",
				Action: charge,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "dry-run", Usage: "only list the memberships that would be charged"},
				},
			},
			{
				Name:   "due",
				Usage:  "list memberships due for payment",
				Action: due,
			},
			{
				Name:   "runs",
				Usage:  "list recent billing runs",
				Action: runs,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 10, Usage: "number of runs to show"},
				},
			},
			{
				Name:   "member",
				Usage:  "show the membership status of an account",
				Action: member,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "account", Required: true, Usage: "hex or bech32 address"},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		zap.L().With(zap.Error(err)).Fatal("Command failed")
	}
}

func charge(c *cli.Context) error {
	if c.Bool("dry-run") {
		return due(c)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	run, err := container.GetScheduler().Run(ctx)
	if dumpErr := dev.Dump(os.Stdout, run); dumpErr != nil {
		return dumpErr
	}
	return err
}

func due(c *cli.Context) error {
	assets, err := container.GetScheduler().Due(context.Background())
	if err != nil {
		return err
	}

	zap.S().Infof("%d memberships due", len(assets))
	return dev.Dump(os.Stdout, assets)
}

func runs(c *cli.Context) error {
	list, err := container.GetRunRepository().List(c.Int("limit"))
	if err != nil {
		return err
	}
	return dev.Dump(os.Stdout, list)
}

func member(c *cli.Context) error {
	account, err := entity.ParseAccount(c.String("account"))
	if err != nil {
		return err
	}

	isMember, err := container.GetRegistry().AddressIsMember(account)
	if err != nil {
		return err
	}

	held := make([]entity.Asset, 0)
	active, err := container.GetRegistry().ActiveMemberships()
	if err != nil {
		return err
	}
	for _, asset := range active {
		if asset.Owner == account {
			held = append(held, asset)
		}
	}

	return dev.Dump(os.Stdout, map[string]interface{}{
		"account":     account,
		"bech32":      account.Bech32(),
		"member":      isMember,
		"memberships": held,
	})
}
