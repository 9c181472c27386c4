// cmd/retriever/commands.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github-analytics-retriever/internal/api"
	"github-analytics-retriever/internal/config"
	"github-analytics-retriever/internal/database"
	"github-analytics-retriever/internal/github"
	"github-analytics-retriever/internal/model"
	"github-analytics-retriever/internal/store"
	"github-analytics-retriever/internal/syncer"
	"github-analytics-retriever/internal/tasks"
)

// app holds the components built from one configuration.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
	runner *tasks.Runner
	loader *database.Loader
}

// newApp wires configuration into the task runner. The database is only
// opened when withDB is set and DB_URL is configured.
func newApp(ctx context.Context, envDir string, logOut io.Writer, withDB bool) (*app, error) {
	cfg, err := config.LoadConfig(envDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := newLogger(logOut, cfg.LogLevel, cfg.LogFormat)
	logger.Debug("Configuration loaded successfully")

	accepted, err := github.LoadAcceptedErrors(cfg.AcceptedErrorsFile)
	if err != nil {
		return nil, err
	}
	client, err := github.NewClient(cfg.GithubToken, logger, github.Options{
		BaseURL:  cfg.GithubAPIURL,
		Timeout:  cfg.RequestTimeout,
		Accepted: accepted,
	})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, store: store.New(cfg.OutputDir)}

	var loader tasks.TableLoader
	if withDB && cfg.DBURL != "" {
		if err := database.Migrate(cfg.DBURL); err != nil {
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
		logger.Info("Database migrations applied successfully")
		a.loader, err = database.Connect(ctx, cfg.DBURL, logger)
		if err != nil {
			return nil, err
		}
		loader = a.loader
	}

	retriever := syncer.NewSyncer(client, github.NewCatalog(cfg.Organization), a.store, logger, cfg.PerPage)
	a.runner = tasks.NewRunner(retriever, a.store, loader, logger)
	return a, nil
}

func (a *app) Close() {
	if a.loader != nil {
		a.loader.Close()
	}
}

func newRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var envDir string

	withApp := func(withDB bool, fn func(ctx context.Context, a *app) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), envDir, stderr, withDB)
			if err != nil {
				return err
			}
			defer a.Close()
			return fn(cmd.Context(), a)
		}
	}

	root := &cobra.Command{
		Use:   "gh-analytics",
		Short: "Retrieve GitHub organization analytics into JSON and CSV files",
		Long: `Retrieves commits, pull requests, review comments and Dependabot alerts for
every repository of an organization, stores the raw responses and flattens
them into per-repository and organization-wide CSV tables.

Without a sub-command an interactive menu is shown.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: withApp(true, func(ctx context.Context, a *app) error {
			return newMenu(stdin, stdout, a.runner.Catalog()).Run(ctx)
		}),
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&envDir, "env-dir", ".", "directory holding the optional .env file")

	root.AddCommand(
		stageCommand("retrieve", "Refresh the repository list and fetch raw snapshots", withApp, (*tasks.Runner).Retrieve),
		stageCommand("flatten", "Flatten raw snapshots into per-repository CSV tables", withApp, (*tasks.Runner).Flatten),
		stageCommand("merge", "Merge per-repository tables into organization-wide tables", withApp, (*tasks.Runner).Merge),
		stageCommand("run", "Retrieve, flatten and merge", withApp, (*tasks.Runner).Pipeline),
		&cobra.Command{
			Use:   "load",
			Short: "Load merged tables into PostgreSQL (requires DB_URL)",
			Args:  cobra.NoArgs,
			RunE: withApp(true, func(ctx context.Context, a *app) error {
				return a.runner.Load(ctx, model.AllResources)
			}),
		},
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the stored tables over a read-only HTTP API",
			Args:  cobra.NoArgs,
			RunE: withApp(false, func(ctx context.Context, a *app) error {
				return serve(ctx, a)
			}),
		},
	)
	return root
}

type appRunner func(withDB bool, fn func(ctx context.Context, a *app) error) func(*cobra.Command, []string) error

type stage func(r *tasks.Runner, ctx context.Context, resources []model.Resource) error

// stageCommand builds a sub-command taking an optional resource argument
// (a resource name or "all").
func stageCommand(name, short string, withApp appRunner, run stage) *cobra.Command {
	var resources []model.Resource
	cmd := &cobra.Command{
		Use:   name + " [commits|pull_requests|review_comments|dependabot_alerts|all]",
		Short: short,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			var arg string
			if len(args) == 1 {
				arg = args[0]
			}
			var err error
			resources, err = model.ParseResources(arg)
			return err
		},
		RunE: withApp(false, func(ctx context.Context, a *app) error {
			return run(a.runner, ctx, resources)
		}),
	}
	cmd.ValidArgs = []string{"all"}
	for _, r := range model.AllResources {
		cmd.ValidArgs = append(cmd.ValidArgs, r.Dir())
	}
	return cmd
}

func serve(ctx context.Context, a *app) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           api.NewRouter(a.store, a.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP API listening", "addr", a.cfg.HTTPAddr, "output_dir", a.store.Root())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutdown signal received. Stopping HTTP API.")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
