package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/jsonstore/internal/app"
	"github.com/ziadkadry99/jsonstore/internal/catalog"
	"github.com/ziadkadry99/jsonstore/internal/server"
	"github.com/ziadkadry99/jsonstore/internal/web"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the storefront web server",
	Long:  `Starts the storefront: catalog and item pages, the cart API and the live cart badge feed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = servePort
		}

		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer logger.Sync()

		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		if database != nil {
			defer database.Close()
		}

		sessions := app.NewManager(app.Options{
			DB:          database,
			Catalog:     catalog.NewSource(cfg.Catalog),
			IdleTimeout: time.Duration(cfg.SessionIdleMinutes) * time.Minute,
			Logger:      logger.Named("app"),
		})
		defer sessions.Close()

		srv := server.New(server.Config{
			Port:     cfg.Port,
			AllowAll: cfg.AllowAllOrigins,
		}, logger.Named("server"))

		web.New(sessions, web.Options{
			StoreName: cfg.StoreName,
			Catalog:   cfg.Catalog,
			Logger:    logger.Named("web"),
		}).RegisterRoutes(srv.Router())

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		catalogDesc := cfg.Catalog
		if catalogDesc == "" {
			catalogDesc = "built-in sample"
		}
		logger.Info("starting jsonstore",
			zap.String("version", Version),
			zap.Int("port", cfg.Port),
			zap.String("catalog", catalogDesc),
			zap.Bool("ephemeral", cfg.Ephemeral))

		g, ctx := errgroup.WithContext(ctx)
		g.Go(srv.Start)
		g.Go(func() error {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
