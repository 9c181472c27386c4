package merge

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github-analytics-retriever/internal/model"
	"github-analytics-retriever/internal/store"
)

var commitColumns = []string{"sha", "message", "date", "author", "committer"}

func newTestMerger(t *testing.T) (*Merger, *store.Store) {
	s := store.New(t.TempDir())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMerger(s, logger), s
}

func writeCommits(t *testing.T, s *store.Store, repo string, rows ...[]string) {
	t.Helper()
	table := &model.Table{Columns: commitColumns, Rows: rows}
	require.NoError(t, s.WriteTable(s.TablePath(model.Commits, repo), table))
}

func TestMerger_Merge(t *testing.T) {
	t.Run("skips repositories without a table and keeps list order", func(t *testing.T) {
		m, s := newTestMerger(t)
		writeCommits(t, s, "gamma", []string{"c1", "third", "2024-01-03T00:00:00Z", "carol", ""})
		writeCommits(t, s, "alpha",
			[]string{"a1", "first", "2024-01-01T00:00:00Z", "alice", "alice"},
			[]string{"a2", "second", "2024-01-02T00:00:00Z", "", ""},
		)

		merged, err := m.Merge(model.Commits, []string{"alpha", "beta", "gamma"})

		require.NoError(t, err)
		assert.Equal(t, append(commitColumns, "repository"), merged.Columns)
		assert.Equal(t, [][]string{
			{"a1", "first", "2024-01-01T00:00:00Z", "alice", "alice", "alpha"},
			{"a2", "second", "2024-01-02T00:00:00Z", "", "", "alpha"},
			{"c1", "third", "2024-01-03T00:00:00Z", "carol", "", "gamma"},
		}, merged.Rows)

		onDisk, err := s.ReadTable(s.MergedPath(model.Commits))
		require.NoError(t, err)
		assert.Equal(t, merged, onDisk)
	})

	t.Run("is idempotent", func(t *testing.T) {
		m, s := newTestMerger(t)
		writeCommits(t, s, "alpha", []string{"a1", "msg, with comma", "2024-01-01T00:00:00Z", "alice", ""})
		writeCommits(t, s, "beta", []string{"b1", "multi\nline", "2024-01-02T00:00:00Z", "", "bob"})
		repos := []string{"alpha", "beta"}

		_, err := m.Merge(model.Commits, repos)
		require.NoError(t, err)
		first, err := os.ReadFile(s.MergedPath(model.Commits))
		require.NoError(t, err)

		_, err = m.Merge(model.Commits, repos)
		require.NoError(t, err)
		second, err := os.ReadFile(s.MergedPath(model.Commits))
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("writes a header-only table when nothing contributes", func(t *testing.T) {
		m, s := newTestMerger(t)

		merged, err := m.Merge(model.Commits, []string{"alpha"})

		require.NoError(t, err)
		assert.Zero(t, merged.Len())
		onDisk, err := s.ReadTable(s.MergedPath(model.Commits))
		require.NoError(t, err)
		assert.Equal(t, append(commitColumns, "repository"), onDisk.Columns)
	})

	t.Run("rejects a table with unexpected columns", func(t *testing.T) {
		m, s := newTestMerger(t)
		bad := &model.Table{Columns: []string{"sha"}, Rows: [][]string{{"x"}}}
		require.NoError(t, s.WriteTable(s.TablePath(model.Commits, "alpha"), bad))

		_, err := m.Merge(model.Commits, []string{"alpha"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "alpha")
	})
}
