package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kaziconnect/kaziconnect/internal/server"
	"github.com/kaziconnect/kaziconnect/internal/storage"
	"github.com/kaziconnect/kaziconnect/internal/storage/postgres"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Run: func(cmd *cobra.Command, _ []string) {
		serve(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 0, "port to listen on (overrides http.port)")
	serveCmd.Flags().Bool("migrate", false, "apply the postgres schema before serving")

	viper.BindPFlag("http.port", serveCmd.Flags().Lookup("port"))
}

func serve(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d := prepare(ctx, cmd.Name())
	defer d.Close()

	if migrate, _ := cmd.Flags().GetBool("migrate"); migrate {
		if err := migrateStore(ctx, d.store, d.logger); err != nil {
			d.logger.Fatal("migrating the store", zap.Error(err))
		}
	}

	srv := server.New(server.Config{
		Environment: d.config.Environment,
		CORSOrigins: d.config.HTTP.CORSOrigins,
	}, d.services(), d.logger.Named("http"))

	addr := fmt.Sprintf(":%d", d.config.HTTP.Port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			d.logger.Error("http server stopped", zap.Error(err))
		}
		return
	case <-ctx.Done():
	}

	d.logger.Info("shutting down", zap.Duration("timeout", shutdownTimeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		d.logger.Error("http server shutdown", zap.Error(err))
	}
}

// migrateStore applies the schema when the store needs one. SQLite migrates
// on open.
func migrateStore(ctx context.Context, store storage.Store, log *zap.Logger) error {
	pg, ok := store.(*postgres.Store)
	if !ok {
		log.Info("store migrates on open, nothing to do")
		return nil
	}
	if err := pg.Migrate(ctx); err != nil {
		return err
	}
	log.Info("schema applied")
	return nil
}
