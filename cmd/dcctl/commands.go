package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dc-purchase-api/internal/app"
	"dc-purchase-api/internal/config"
	"dc-purchase-api/internal/dal"
	"dc-purchase-api/internal/repo"
	"dc-purchase-api/internal/service"
)

func resumeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resume [order-id]",
		Short: "Clear an order's error and drive it forward",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			o, err := a.Processor.Resume(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			view, err := service.ToOrderView(o)
			if err != nil {
				return err
			}
			return printJSON(view)
		},
	}
}

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Drive every non-terminal order once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			n, err := a.Reconcile.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("driven %d orders\n", n)
			return nil
		},
	}
}

func orderCmd() *cobra.Command {
	var withEvents bool
	cmd := &cobra.Command{
		Use:   "order [order-id]",
		Short: "Show an order and optionally its audit events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dal.InitOrderDB()
			orders := service.NewOrderService(service.OrderServiceDeps{Orders: repo.NewOrderRepo(), Config: config.C.Order})
			o, err := orders.GetOrder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			view, err := service.ToOrderView(o)
			if err != nil {
				return err
			}
			if !withEvents {
				return printJSON(view)
			}
			events, err := orders.ListEvents(cmd.Context(), o.ID)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"order": view, "events": service.ToEventViews(events)})
		},
	}
	cmd.Flags().BoolVar(&withEvents, "events", false, "include audit events")
	return cmd
}

func syncOuisCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync-ouis",
		Short: "Refresh the local OUI table from the Helium entity API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dal.InitOrderDB()
			dal.InitRedis()
			n, err := app.NewDirectory().Sync(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("upserted %d ouis\n", n)
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dal.InitOrderDB()
			c := config.C.Database
			if err := dal.PrepareSchema(dal.OrderDB, c.Driver, c.MigrationsPath); err != nil {
				return err
			}
			fmt.Printf("schema ready (%s)\n", c.Driver)
			return nil
		},
	}
}

func buildApp() (*app.App, error) {
	if err := app.InitInfra(); err != nil {
		return nil, err
	}
	return app.Build()
}
