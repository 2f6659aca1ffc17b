package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded database schema",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()

		config, log := loadConfig(cmd.Name())

		store, err := openStore(ctx, config.Storage)
		if err != nil {
			log.Fatal("opening the store", zap.Error(err))
		}
		defer store.Close()

		if err := migrateStore(ctx, store, log); err != nil {
			log.Fatal("migrating the store", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
