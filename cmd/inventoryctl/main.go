// Command inventoryctl is the operator client of the inventory admin
// service: it settles pending orders, maintains stock records and
// overrides catalog prices.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/rl1809/catalog-cart/internal/adapter/handler/adminpb"
)

func main() {
	app := &cli.App{
		Name:  "inventoryctl",
		Usage: "administer catalog inventory and orders",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: "localhost:50051", EnvVars: []string{"CART_GRPC_ADDR"}, Usage: "admin service address"},
			&cli.StringFlag{Name: "tenant", Aliases: []string{"t"}, Required: true, EnvVars: []string{"CART_TENANT"}, Usage: "catalog id"},
			&cli.DurationFlag{Name: "timeout", Value: 10 * time.Second},
		},
		Commands: []*cli.Command{
			{
				Name:      "confirm",
				Usage:     "confirm a pending order and consume its stock",
				ArgsUsage: "ORDER_ID",
				Action: run(func(ctx context.Context, c *cli.Context, admin *adminpb.InventoryAdminClient) (any, error) {
					id, err := arg(c, 0, "order id")
					if err != nil {
						return nil, err
					}
					return admin.ConfirmOrder(ctx, &adminpb.OrderRequest{Tenant: c.String("tenant"), OrderID: id})
				}),
			},
			{
				Name:      "cancel",
				Usage:     "cancel a pending order and release its stock",
				ArgsUsage: "ORDER_ID",
				Action: run(func(ctx context.Context, c *cli.Context, admin *adminpb.InventoryAdminClient) (any, error) {
					id, err := arg(c, 0, "order id")
					if err != nil {
						return nil, err
					}
					return admin.CancelOrder(ctx, &adminpb.OrderRequest{Tenant: c.String("tenant"), OrderID: id})
				}),
			},
			{
				Name:  "orders",
				Usage: "list orders",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "status", Value: "pending", Usage: "pending, confirmed, cancelled or empty for all"},
				},
				Action: run(func(ctx context.Context, c *cli.Context, admin *adminpb.InventoryAdminClient) (any, error) {
					return admin.ListOrders(ctx, &adminpb.ListOrdersRequest{Tenant: c.String("tenant"), Status: c.String("status")})
				}),
			},
			{
				Name:      "set-stock",
				Usage:     "set the stock of an item or variant",
				ArgsUsage: "ITEM_ID STOCK",
				Flags:     []cli.Flag{&cli.StringFlag{Name: "variant"}},
				Action: run(func(ctx context.Context, c *cli.Context, admin *adminpb.InventoryAdminClient) (any, error) {
					item, err := arg(c, 0, "item id")
					if err != nil {
						return nil, err
					}
					stock, err := intArg(c, 1, "stock")
					if err != nil {
						return nil, err
					}
					return admin.SetStock(ctx, &adminpb.SetStockRequest{
						Tenant:    c.String("tenant"),
						ItemID:    item,
						VariantID: c.String("variant"),
						Stock:     stock,
					})
				}),
			},
			{
				Name:      "adjust",
				Usage:     "add to (or subtract from) a record's stock",
				ArgsUsage: "KEY DELTA",
				Action: run(func(ctx context.Context, c *cli.Context, admin *adminpb.InventoryAdminClient) (any, error) {
					key, err := arg(c, 0, "key")
					if err != nil {
						return nil, err
					}
					delta, err := intArg(c, 1, "delta")
					if err != nil {
						return nil, err
					}
					return admin.AdjustStock(ctx, &adminpb.AdjustStockRequest{Tenant: c.String("tenant"), Key: key, Delta: delta})
				}),
			},
			{
				Name:      "get",
				Usage:     "show one inventory record",
				ArgsUsage: "KEY",
				Action: run(func(ctx context.Context, c *cli.Context, admin *adminpb.InventoryAdminClient) (any, error) {
					key, err := arg(c, 0, "key")
					if err != nil {
						return nil, err
					}
					return admin.GetInventory(ctx, &adminpb.GetInventoryRequest{Tenant: c.String("tenant"), Key: key})
				}),
			},
			{
				Name:  "list",
				Usage: "list inventory records",
				Action: run(func(ctx context.Context, c *cli.Context, admin *adminpb.InventoryAdminClient) (any, error) {
					return admin.ListInventory(ctx, &adminpb.TenantRequest{Tenant: c.String("tenant")})
				}),
			},
			{
				Name:  "recalculate",
				Usage: "rebuild reserved counters from pending orders",
				Action: run(func(ctx context.Context, c *cli.Context, admin *adminpb.InventoryAdminClient) (any, error) {
					return admin.RecalculateReserved(ctx, &adminpb.TenantRequest{Tenant: c.String("tenant")})
				}),
			},
			{
				Name:  "diagnose",
				Usage: "report oversold records and reserved counter drift",
				Action: run(func(ctx context.Context, c *cli.Context, admin *adminpb.InventoryAdminClient) (any, error) {
					return admin.Diagnose(ctx, &adminpb.TenantRequest{Tenant: c.String("tenant")})
				}),
			},
			{
				Name:      "seed",
				Usage:     "create missing records; items are ITEM or ITEM_VARIANT",
				ArgsUsage: "ITEM...",
				Flags:     []cli.Flag{&cli.IntFlag{Name: "stock", Usage: "stock for new records, catalog default when 0"}},
				Action: run(func(ctx context.Context, c *cli.Context, admin *adminpb.InventoryAdminClient) (any, error) {
					if c.NArg() == 0 {
						return nil, errors.New("at least one item is required")
					}
					req := &adminpb.SeedRequest{Tenant: c.String("tenant"), Stock: c.Int("stock")}
					for _, a := range c.Args().Slice() {
						item, variant, _ := strings.Cut(a, "_")
						req.Items = append(req.Items, adminpb.SeedItem{ItemID: item, VariantID: variant})
					}
					return admin.Seed(ctx, req)
				}),
			},
			{
				Name:      "price-set",
				Usage:     "override the price of an item or variant, in minor units",
				ArgsUsage: "ITEM_ID PRICE",
				Flags:     []cli.Flag{&cli.StringFlag{Name: "variant"}},
				Action: run(func(ctx context.Context, c *cli.Context, admin *adminpb.InventoryAdminClient) (any, error) {
					item, err := arg(c, 0, "item id")
					if err != nil {
						return nil, err
					}
					v, err := arg(c, 1, "price")
					if err != nil {
						return nil, err
					}
					amount, err := strconv.ParseInt(v, 10, 64)
					if err != nil {
						return nil, errors.Wrap(err, "price must be a number")
					}
					return admin.SetPrice(ctx, &adminpb.SetPriceRequest{
						Tenant:    c.String("tenant"),
						ItemID:    item,
						VariantID: c.String("variant"),
						Price:     amount,
					})
				}),
			},
			{
				Name:      "price-reset",
				Usage:     "drop a price override so the page price applies again",
				ArgsUsage: "ITEM_ID",
				Flags:     []cli.Flag{&cli.StringFlag{Name: "variant"}},
				Action: run(func(ctx context.Context, c *cli.Context, admin *adminpb.InventoryAdminClient) (any, error) {
					item, err := arg(c, 0, "item id")
					if err != nil {
						return nil, err
					}
					return admin.ResetPrice(ctx, &adminpb.ResetPriceRequest{Tenant: c.String("tenant"), ItemID: item, VariantID: c.String("variant")})
				}),
			},
			{
				Name:  "prices",
				Usage: "list price overrides",
				Action: run(func(ctx context.Context, c *cli.Context, admin *adminpb.InventoryAdminClient) (any, error) {
					return admin.ListPrices(ctx, &adminpb.TenantRequest{Tenant: c.String("tenant")})
				}),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("inventoryctl failed")
	}
}

type action func(ctx context.Context, c *cli.Context, admin *adminpb.InventoryAdminClient) (any, error)

// run dials the admin service, performs the call and prints the reply as JSON.
func run(fn action) cli.ActionFunc {
	return func(c *cli.Context) error {
		conn, err := grpc.NewClient(c.String("addr"), grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return errors.Wrap(err, "dial admin service")
		}
		defer conn.Close()

		ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
		defer cancel()

		reply, err := fn(ctx, c, adminpb.NewInventoryAdminClient(conn))
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(reply, "", "  ")
		if err != nil {
			return errors.Wrap(err, "encode reply")
		}
		fmt.Fprintln(c.App.Writer, string(out))
		return nil
	}
}

func arg(c *cli.Context, i int, name string) (string, error) {
	v := c.Args().Get(i)
	if v == "" {
		return "", errors.Errorf("%s is required", name)
	}
	return v, nil
}

func intArg(c *cli.Context, i int, name string) (int, error) {
	v, err := arg(c, i, name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.Wrapf(err, "%s must be a number", name)
	}
	return n, nil
}
