package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"dc-purchase-api/internal/config"
	"dc-purchase-api/internal/idgen"
	"dc-purchase-api/internal/logger"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "dcctl",
		Short: "Operator tooling for DC purchase orders",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil {
				log.Println("no .env file, using environment")
			}
			if err := config.Load(configPath); err != nil {
				return fmt.Errorf("load config %s: %w", configPath, err)
			}
			logger.Init(config.C.Log.Dir, config.C.Log.Level)
			return idgen.InitNode("default", 1)
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.dev.yaml", "config file")

	rootCmd.AddCommand(resumeCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(orderCmd())
	rootCmd.AddCommand(syncOuisCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
