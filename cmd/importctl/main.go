// importctl applies purchase-batch JSON files directly against the configured
// record store — the same reconciliation path the HTTP endpoint uses, for
// back-office bulk loads and migrations.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"sellsmart/internal/config"
	"sellsmart/internal/dto"
	"sellsmart/internal/repository"
	"sellsmart/internal/service"
	"sellsmart/internal/store"

	"github.com/bsm/redislock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	batchFile string
	productID string
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd := &cobra.Command{
		Use:          "importctl",
		Short:        "SellSmart batch-import tool",
		SilenceUsage: true,
	}

	applyCmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a batch-import JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			data, err := os.ReadFile(batchFile)
			if err != nil {
				return err
			}
			var req dto.BatchImportRequest
			if err := json.Unmarshal(data, &req); err != nil {
				return fmt.Errorf("parse %s: %w", batchFile, err)
			}

			inv, _, cleanup, err := buildServices(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			resp, err := inv.ApplyBatch(ctx, req)
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
	applyCmd.Flags().StringVarP(&batchFile, "file", "f", "", "batch-import JSON file (required)")
	_ = applyCmd.MarkFlagRequired("file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show a product document with its aggregates and batch history",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			_, products, cleanup, err := buildServices(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			p, err := products.Get(ctx, productID)
			if err != nil {
				return err
			}
			return printJSON(p)
		},
	}
	showCmd.Flags().StringVarP(&productID, "product", "p", "", "product id (required)")
	_ = showCmd.MarkFlagRequired("product")

	rootCmd.AddCommand(applyCmd, showCmd)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildServices(ctx context.Context) (service.InventoryService, service.ProductService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	st, err := store.New(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	cleanup := func() { _ = st.Close(context.Background()) }

	attrRepo := repository.NewAttributeRepository(st)
	productRepo := repository.NewProductRepository(st)
	detailRepo := repository.NewVariantDetailRepository(st)

	// Same lock wiring as the HTTP service: only meaningful when the redis
	// store backs the records, and never load-bearing for correctness.
	var locker *redislock.Client
	if cfg.ImportLockEnabled {
		if rs, ok := st.(*store.Redis); ok {
			locker = redislock.New(rs.Client())
		}
	}

	catalog := service.NewCatalogService(attrRepo, cfg.ImportRetryAttempts)
	inv := service.NewInventoryService(productRepo, detailRepo, catalog, cfg.ImportRetryAttempts, locker)
	products := service.NewProductService(productRepo, inv)
	return inv, products, cleanup, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
