// Package tasks sequences retrieval, flattening, merging and loading into
// named units of work.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	custom_errors "github-analytics-retriever/internal/errors"
	"github-analytics-retriever/internal/flatten"
	"github-analytics-retriever/internal/merge"
	"github-analytics-retriever/internal/model"
	"github-analytics-retriever/internal/store"
)

// Retriever fetches raw snapshots. It is implemented by *syncer.Syncer.
type Retriever interface {
	UpdateRepositories(ctx context.Context) ([]string, error)
	Retrieve(ctx context.Context, repos []string, resources []model.Resource) error
}

// TableLoader replaces a merged table in an external database. It is
// implemented by *database.Loader.
type TableLoader interface {
	ReplaceTable(ctx context.Context, r model.Resource, table *model.Table) (int64, error)
}

// Runner runs the pipeline stages over all repositories.
type Runner struct {
	retriever Retriever
	store     *store.Store
	merger    *merge.Merger
	loader    TableLoader
	logger    *slog.Logger
}

// NewRunner creates a Runner. loader may be nil when no database is configured.
func NewRunner(retriever Retriever, s *store.Store, loader TableLoader, logger *slog.Logger) *Runner {
	return &Runner{
		retriever: retriever,
		store:     s,
		merger:    merge.NewMerger(s, logger),
		loader:    loader,
		logger:    logger,
	}
}

// HasLoader reports whether a database is configured.
func (r *Runner) HasLoader() bool {
	return r.loader != nil
}

// Retrieve refreshes repositories.json and fetches the raw snapshots of
// resources for every repository.
func (r *Runner) Retrieve(ctx context.Context, resources []model.Resource) error {
	repos, err := r.retriever.UpdateRepositories(ctx)
	if err != nil {
		return err
	}
	return r.retriever.Retrieve(ctx, repos, resources)
}

// Flatten converts every stored raw snapshot of resources into a
// per-repository table. Failures are logged per repository and returned
// joined once all repositories have been processed.
func (r *Runner) Flatten(ctx context.Context, resources []model.Resource) error {
	repos, err := r.store.RepositoryNames()
	if err != nil {
		return err
	}

	var failures []error
	for _, res := range resources {
		for _, repo := range repos {
			if err := ctx.Err(); err != nil {
				return errors.Join(append(failures, err)...)
			}
			if err := r.flattenOne(res, repo); err != nil {
				r.logger.Error("Failed to flatten repository data", "repo", repo, "resource", res.Dir(), "error", err)
				failures = append(failures, &custom_errors.RepositoryError{
					Stage:      "flatten",
					Repository: repo,
					Resource:   res.Dir(),
					Err:        err,
				})
			}
		}
	}
	return errors.Join(failures...)
}

func (r *Runner) flattenOne(res model.Resource, repo string) error {
	logger := r.logger.With("repo", repo, "resource", res.Dir())

	snapshot, err := r.store.ReadRaw(res, repo)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("No raw snapshot, skipping")
		return r.store.RemoveTable(res, repo)
	}
	if err != nil {
		return err
	}

	table, err := flatten.Flatten(res, snapshot)
	switch {
	case errors.Is(err, flatten.ErrEmptySnapshot):
		logger.Info(fmt.Sprintf("Repository %s has no %s", repo, res.Label()))
		return r.store.RemoveTable(res, repo)
	case errors.Is(err, flatten.ErrErrorPayload):
		logger.Warn("Snapshot holds an API error instead of items, skipping", "detail", err)
		return r.store.RemoveTable(res, repo)
	case err != nil:
		// A table from an earlier run must not outlive a snapshot that no
		// longer flattens.
		return errors.Join(err, r.store.RemoveTable(res, repo))
	}

	if err := r.store.WriteTable(r.store.TablePath(res, repo), table); err != nil {
		return err
	}
	logger.Debug("Wrote table", "rows", table.Len())
	return nil
}

// Merge builds the organization-wide table of each resource.
func (r *Runner) Merge(ctx context.Context, resources []model.Resource) error {
	repos, err := r.store.RepositoryNames()
	if err != nil {
		return err
	}
	for _, res := range resources {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := r.merger.Merge(res, repos); err != nil {
			return err
		}
	}
	return nil
}

// Pipeline runs retrieve, flatten and merge. Per-repository failures of the
// earlier stages do not prevent the later ones; they are reported together.
func (r *Runner) Pipeline(ctx context.Context, resources []model.Resource) error {
	var stageErrs []error

	if err := r.Retrieve(ctx, resources); err != nil {
		if !isPartial(err) {
			return err
		}
		stageErrs = append(stageErrs, err)
	}
	if err := r.Flatten(ctx, resources); err != nil {
		if !isPartial(err) {
			return errors.Join(append(stageErrs, err)...)
		}
		stageErrs = append(stageErrs, err)
	}
	if err := r.Merge(ctx, resources); err != nil {
		stageErrs = append(stageErrs, err)
	}
	return errors.Join(stageErrs...)
}

// Load replaces the database tables with the merged tables. Resources
// without a merged table are skipped.
func (r *Runner) Load(ctx context.Context, resources []model.Resource) error {
	if r.loader == nil {
		return errors.New("no database configured: set DB_URL to load merged tables")
	}
	for _, res := range resources {
		table, err := r.store.ReadTable(r.store.MergedPath(res))
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Info("No merged table, skipping load", "resource", res.Dir())
			continue
		}
		if err != nil {
			return err
		}
		n, err := r.loader.ReplaceTable(ctx, res, table)
		if err != nil {
			return fmt.Errorf("load %s: %w", res, err)
		}
		r.logger.Info("Loaded merged table", "resource", res.Dir(), "rows", n)
	}
	return nil
}

// isPartial reports whether err only carries per-repository failures, after
// which the pipeline keeps going.
func isPartial(err error) bool {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return false
	}
	for _, e := range joined.Unwrap() {
		var repoErr *custom_errors.RepositoryError
		if !errors.As(e, &repoErr) {
			return false
		}
	}
	return true
}
