// internal/merge/merge.go
package merge

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"

	"github-analytics-retriever/internal/flatten"
	"github-analytics-retriever/internal/model"
	"github-analytics-retriever/internal/store"
)

// Merger concatenates per-repository tables into organization-wide tables.
type Merger struct {
	store  *store.Store
	logger *slog.Logger
}

// NewMerger creates a new Merger instance.
func NewMerger(s *store.Store, logger *slog.Logger) *Merger {
	return &Merger{store: s, logger: logger}
}

// Merge builds the merged table for r from the per-repository tables of
// repos, in the given order, and writes it. Repositories without a table are
// skipped. A table whose header differs from r's columns fails the merge.
func (m *Merger) Merge(r model.Resource, repos []string) (*model.Table, error) {
	columns, err := flatten.Columns(r)
	if err != nil {
		return nil, err
	}
	merged := model.NewTable(append(columns, model.RepositoryColumn)...)

	contributing := 0
	for _, repo := range repos {
		table, err := m.store.ReadTable(m.store.TablePath(r, repo))
		if errors.Is(err, fs.ErrNotExist) {
			m.logger.Debug("No table for repository, skipping", "resource", r.Dir(), "repo", repo)
			continue
		}
		if err != nil {
			return nil, err
		}
		if !slices.Equal(table.Columns, columns) {
			return nil, fmt.Errorf("merge %s: table for %s has columns %v, want %v", r, repo, table.Columns, columns)
		}
		for _, row := range table.Rows {
			merged.Rows = append(merged.Rows, append(slices.Clip(row), repo))
		}
		contributing++
	}

	if err := m.store.WriteTable(m.store.MergedPath(r), merged); err != nil {
		return nil, fmt.Errorf("write merged %s table: %w", r, err)
	}
	m.logger.Info("Merged repository tables",
		"resource", r.Dir(), "repositories", contributing, "rows", merged.Len(), "path", m.store.MergedPath(r))
	return merged, nil
}
