package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/felixbrock/promptstudio/internal/app"
	"github.com/felixbrock/promptstudio/internal/persistence"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(e *env) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				e.cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return e.serve(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides server.port)")

	return cmd
}

func (e *env) serve(ctx context.Context) error {
	store, closeStore, err := persistence.OpenStore(e.storeConfig(), e.log)

	if err != nil {
		return err
	}

	defer func() {
		err := closeStore()
		if err != nil {
			e.log.Error("Error occured", "error", err.Error())
		}
	}()

	completer, err := e.completer(ctx)

	if err != nil {
		return err
	}

	appCfg, err := e.appConfig()

	if err != nil {
		return err
	}

	var opts []app.Option
	if e.cfg.Analytics.PosthogKey != "" {
		opts = append(opts, app.WithAnalytics(persistence.NewPHRepo(e.cfg.Analytics.PosthogKey)))
	}
	if e.cfg.Archive.URL != "" {
		opts = append(opts, app.WithArchive(persistence.NewOptimizationRepo(e.cfg.Archive.URL, e.cfg.Archive.APIKey)))
	}

	srv := app.New(appCfg, completer, store, e.log, opts...).Server(e.cfg.Addr())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		e.log.Info("server listening",
			"addr", srv.Addr,
			"provider", e.cfg.Completion.Provider,
			"history_backend", e.cfg.History.Backend)

		err := srv.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		e.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
