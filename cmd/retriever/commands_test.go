package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGitHub serves one organization with two repositories, one of which
// has Dependabot alerts disabled.
func fakeGitHub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/orgs/acme/repos", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"name": "api"}, {"name": "web"}]`)
	})
	mux.HandleFunc("/repos/acme/api/commits", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"sha": "abc", "commit": {"message": "fix: a bug", "author": {"date": "2024-01-02T12:00:00Z"}}, "author": {"login": "alice"}, "committer": {"login": "web-flow"}}]`)
	})
	mux.HandleFunc("/repos/acme/web/commits", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})
	mux.HandleFunc("/repos/acme/api/dependabot/alerts", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message": "Dependabot alerts are disabled for this repository."}`)
	})
	mux.HandleFunc("/repos/acme/web/dependabot/alerts", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"message": "Dependabot alerts are not available for archived repositories."}`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func setupEnv(t *testing.T, apiURL string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("GITHUB_API_TOKEN", "test-token")
	t.Setenv("GITHUB_ORGANIZATION", "acme")
	t.Setenv("GITHUB_API_URL", apiURL)
	t.Setenv("OUTPUT_DIR", dir)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DB_URL", "")
	return dir
}

func TestRun_Pipeline(t *testing.T) {
	server := fakeGitHub(t)
	dir := setupEnv(t, server.URL)
	var stdout, stderr bytes.Buffer

	err := run([]string{"--env-dir", dir, "run", "commits"}, strings.NewReader(""), &stdout, &stderr)

	require.NoError(t, err)
	merged, err := os.ReadFile(filepath.Join(dir, "commits.csv"))
	require.NoError(t, err)
	assert.Equal(t,
		"sha,message,date,author,committer,repository\n"+
			"abc,fix: a bug,2024-01-02T12:00:00Z,alice,web-flow,api\n",
		string(merged))
	assert.FileExists(t, filepath.Join(dir, "repositories.json"))
	assert.FileExists(t, filepath.Join(dir, "commits", "web.json"))
	assert.NoFileExists(t, filepath.Join(dir, "commits", "web.csv"))
}

func TestRun_SwallowsAcceptedErrors(t *testing.T) {
	server := fakeGitHub(t)
	dir := setupEnv(t, server.URL)
	var stdout, stderr bytes.Buffer

	err := run([]string{"--env-dir", dir, "run", "dependabot-alerts"}, strings.NewReader(""), &stdout, &stderr)

	require.NoError(t, err)
	raw, err := os.ReadFile(filepath.Join(dir, "dependabot_alerts", "api.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
	merged, err := os.ReadFile(filepath.Join(dir, "dependabot_alerts.csv"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(merged), "\n"), "header only")
}

func TestRun_Menu(t *testing.T) {
	server := fakeGitHub(t)
	dir := setupEnv(t, server.URL)
	var stdout, stderr bytes.Buffer

	err := run([]string{"--env-dir", dir}, strings.NewReader("9\n"), &stdout, &stderr)

	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "\t8 - Merge all repository tables")
	assert.NotContains(t, stdout.String(), "PostgreSQL")
	assert.Contains(t, stdout.String(), "Invalid task number")
}

func TestRun_Errors(t *testing.T) {
	server := fakeGitHub(t)

	t.Run("unknown resource", func(t *testing.T) {
		dir := setupEnv(t, server.URL)
		err := run([]string{"--env-dir", dir, "flatten", "issues"}, strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
		assert.ErrorContains(t, err, `unknown resource "issues"`)
	})

	t.Run("load without a database", func(t *testing.T) {
		dir := setupEnv(t, server.URL)
		err := run([]string{"--env-dir", dir, "load"}, strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
		assert.ErrorContains(t, err, "DB_URL")
	})

	t.Run("missing token", func(t *testing.T) {
		dir := setupEnv(t, server.URL)
		t.Setenv("GITHUB_API_TOKEN", "")
		err := run([]string{"--env-dir", dir, "merge"}, strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
		assert.ErrorContains(t, err, "GITHUB_API_TOKEN")
	})
}
