package store

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github-analytics-retriever/internal/model"
)

func TestStore_Paths(t *testing.T) {
	s := New("/data")

	assert.Equal(t, filepath.Join("/data", "repositories.json"), s.RepositoriesPath())
	assert.Equal(t, filepath.Join("/data", "pull_requests", "api.json"), s.RawPath(model.PullRequests, "api"))
	assert.Equal(t, filepath.Join("/data", "dependabot_alerts", "api.csv"), s.TablePath(model.DependabotAlerts, "api"))
	assert.Equal(t, filepath.Join("/data", "review_comments.csv"), s.MergedPath(model.ReviewComments))
}

func TestStore_Repositories(t *testing.T) {
	s := New(t.TempDir())
	raw := []json.RawMessage{
		json.RawMessage(`{"name": "web", "private": true}`),
		json.RawMessage(`{"name": "api"}`),
		json.RawMessage(`{"id": 3}`),
	}

	require.NoError(t, s.WriteRepositories(raw))
	names, err := s.RepositoryNames()

	require.NoError(t, err)
	assert.Equal(t, []string{"web", "api"}, names)

	data, err := os.ReadFile(s.RepositoriesPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  {\n    \"name\": \"web\"", "written with two-space indentation")
}

func TestStore_RepositoryNamesMissingFile(t *testing.T) {
	_, err := New(t.TempDir()).RepositoryNames()

	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestStore_Raw(t *testing.T) {
	s := New(t.TempDir())

	require.NoError(t, s.WriteRaw(model.Commits, "api", nil))
	data, err := s.ReadRaw(model.Commits, "api")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))

	require.NoError(t, s.WriteRaw(model.Commits, "api", []json.RawMessage{json.RawMessage(`{"sha":"abc"}`)}))
	data, err = s.ReadRaw(model.Commits, "api")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"sha":"abc"}]`, string(data), "a new snapshot replaces the old one")

	_, err = s.ReadRaw(model.Commits, "missing")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	require.NoError(t, s.RemoveRaw(model.Commits, "api"))
	_, err = s.ReadRaw(model.Commits, "api")
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.NoError(t, s.RemoveRaw(model.Commits, "api"), "removing a missing snapshot is not an error")
}

func TestStore_Tables(t *testing.T) {
	s := New(t.TempDir())
	table := &model.Table{
		Columns: []string{"id", "body"},
		Rows: [][]string{
			{"1", "multi\nline, with comma"},
			{"2", ""},
		},
	}
	path := s.TablePath(model.ReviewComments, "api")

	require.NoError(t, s.WriteTable(path, table))
	loaded, err := s.ReadTable(path)

	require.NoError(t, err)
	assert.Equal(t, table, loaded)

	require.NoError(t, s.RemoveTable(model.ReviewComments, "api"))
	_, err = s.ReadTable(path)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.NoError(t, s.RemoveTable(model.ReviewComments, "api"), "removing a missing table is not an error")
}

func TestStore_ReadTableEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := New(filepath.Dir(path)).ReadTable(path)

	assert.Error(t, err)
}
