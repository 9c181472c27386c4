// internal/syncer/syncer.go
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	gh "github.com/google/go-github/v62/github"

	custom_errors "github-analytics-retriever/internal/errors"
	"github-analytics-retriever/internal/github"
	"github-analytics-retriever/internal/model"
	"github-analytics-retriever/internal/store"
)

// Syncer retrieves raw snapshots from the API and stores them.
// Repositories and pages are processed one at a time.
type Syncer struct {
	lister  github.PageLister
	catalog github.Catalog
	store   *store.Store
	logger  *slog.Logger
	perPage int
}

// NewSyncer creates a new Syncer instance.
func NewSyncer(lister github.PageLister, catalog github.Catalog, s *store.Store, logger *slog.Logger, perPage int) *Syncer {
	return &Syncer{
		lister:  lister,
		catalog: catalog,
		store:   s,
		logger:  logger,
		perPage: perPage,
	}
}

// UpdateRepositories lists the organization's repositories, overwrites
// repositories.json and returns the repository names in listing order.
func (s *Syncer) UpdateRepositories(ctx context.Context) ([]string, error) {
	s.logger.Info("Updating repositories file", "organization", s.catalog.Organization)

	raw, err := github.ListAll(ctx, s.lister, s.catalog.Repositories(), s.perPage)
	if err != nil {
		return nil, fmt.Errorf("list repositories of %s: %w", s.catalog.Organization, err)
	}
	if err := s.store.WriteRepositories(raw); err != nil {
		return nil, fmt.Errorf("write repository list: %w", err)
	}

	names, err := repositoryNames(raw)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Retrieved repositories", "count", len(names))
	return names, nil
}

// Retrieve fetches every resource in resources for every repository and
// writes the raw snapshots. A failure for one repository and resource is
// logged and does not stop the others; all failures are returned joined.
func (s *Syncer) Retrieve(ctx context.Context, repos []string, resources []model.Resource) error {
	var failures []error
	for _, repo := range repos {
		for _, r := range resources {
			if ctx.Err() != nil {
				return errors.Join(append(failures, ctx.Err())...)
			}
			if _, err := s.RetrieveResource(ctx, r, repo); err != nil {
				if errors.Is(err, context.Canceled) {
					return errors.Join(append(failures, err)...)
				}
				s.logger.Error("Failed to retrieve repository data", "repo", repo, "resource", r.Dir(), "error", err)
				failures = append(failures, &custom_errors.RepositoryError{
					Stage:      "retrieve",
					Repository: repo,
					Resource:   r.Dir(),
					Err:        err,
				})
			}
		}
	}
	return errors.Join(failures...)
}

// RetrieveResource fetches all pages of one resource for one repository and
// replaces its raw snapshot. It returns the number of items stored. When
// fetching fails the previous snapshot is removed.
func (s *Syncer) RetrieveResource(ctx context.Context, r model.Resource, repo string) (int, error) {
	logger := s.logger.With("repo", repo, "resource", r.Dir())
	logger.Info("Retrieving " + r.Label())

	ep, err := s.catalog.ForResource(r, repo)
	if err != nil {
		return 0, err
	}
	items, err := github.ListAll(ctx, s.lister, ep, s.perPage)
	if err != nil {
		// Later stages must not mistake the previous run's snapshot for this one.
		return 0, errors.Join(err, s.store.RemoveRaw(r, repo))
	}
	if err := s.store.WriteRaw(r, repo, items); err != nil {
		return 0, fmt.Errorf("write %s snapshot: %w", r, err)
	}

	logger.Info("Retrieved "+r.Label(), "count", len(items))
	return len(items), nil
}

func repositoryNames(raw []json.RawMessage) ([]string, error) {
	repos := make([]*gh.Repository, 0, len(raw))
	for i, item := range raw {
		var repo gh.Repository
		if err := json.Unmarshal(item, &repo); err != nil {
			return nil, fmt.Errorf("decode repository %d: %w", i, err)
		}
		repos = append(repos, &repo)
	}
	return store.Names(repos), nil
}
