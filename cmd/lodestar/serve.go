package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cerrors "github.com/lodestar-catalog/lodestar/compiler/errors"
	"github.com/lodestar-catalog/lodestar/internal/annotations"
	"github.com/lodestar-catalog/lodestar/internal/config"
	"github.com/lodestar-catalog/lodestar/internal/generation"
	"github.com/lodestar-catalog/lodestar/internal/store"
	"github.com/lodestar-catalog/lodestar/internal/watch"
	"github.com/lodestar-catalog/lodestar/internal/web/server"
)

var serveDev bool

func init() {
	serveCmd.Flags().BoolVar(&serveDev, "dev", false, "Use human-readable development logging")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Compile the schema set and serve the aspect store",
	Long:  "Compile the configured schema set, publish it as the first generation, and serve the aspect store and descriptor endpoints over HTTP with hot schema reload",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger()
		if err != nil {
			return err
		}
		defer log.Sync()

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		gen, errs := compileGeneration(cfg)
		if gen == nil {
			fmt.Fprint(os.Stderr, cerrors.FormatListForTerminal(errs))
			return fmt.Errorf("startup compile failed with %d error(s)", len(errs.Errors()))
		}

		pub := generation.NewPublisher()
		pub.Publish(gen)
		log.Info("published initial schema generation",
			zap.String("generation", gen.ID.String()),
			zap.Int("aspects", len(gen.Schemas.AspectNames())))

		st, err := store.Open(cfg.Store.Path, pub, log.Named("store"))
		if err != nil {
			return err
		}
		defer st.Close()

		opts := generation.Options{
			Workers:     cfg.Compile.Workers,
			Annotations: annotations.Options{InheritEmbedded: cfg.Annotations.InheritEmbedded},
		}
		reloader := watch.NewReloader(cfg, pub, opts, log.Named("reload"))
		watcher, err := watch.NewSchemaWatcher(cfg.Schema.Paths, cfg.Schema.EntityRegistry,
			log.Named("watch"), reloader.Reload)
		if err != nil {
			return err
		}
		if err := watcher.Start(); err != nil {
			return err
		}
		defer watcher.Stop()

		srv := server.New(st, pub, log.Named("http"))
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

		serveErr := make(chan error, 1)
		go func() { serveErr <- srv.Start(addr) }()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serveErr:
			return err
		case sig := <-stop:
			log.Info("shutting down", zap.String("signal", sig.String()))
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}

func newLogger() (*zap.Logger, error) {
	if serveDev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
