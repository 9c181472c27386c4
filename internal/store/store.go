// internal/store/store.go
package store

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/go-github/v62/github"

	"github-analytics-retriever/internal/model"
)

const repositoriesFile = "repositories.json"

// Store reads and writes the artifact tree rooted at one directory:
//
//	repositories.json
//	<resource>/<repo>.json   raw snapshot
//	<resource>/<repo>.csv    flattened table
//	<resource>.csv           merged table
//
// Every write replaces the whole file.
type Store struct {
	root string
}

// New returns a Store rooted at dir.
func New(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the artifact directory.
func (s *Store) Root() string {
	return s.root
}

// RepositoriesPath is the location of the raw repository listing.
func (s *Store) RepositoriesPath() string {
	return filepath.Join(s.root, repositoriesFile)
}

// RawPath is the location of one repository's raw snapshot.
func (s *Store) RawPath(r model.Resource, repo string) string {
	return filepath.Join(s.root, r.Dir(), repo+".json")
}

// TablePath is the location of one repository's flattened table.
func (s *Store) TablePath(r model.Resource, repo string) string {
	return filepath.Join(s.root, r.Dir(), repo+".csv")
}

// MergedPath is the location of the organization-wide table of r.
func (s *Store) MergedPath(r model.Resource) string {
	return filepath.Join(s.root, r.Dir()+".csv")
}

// WriteRepositories persists the raw repository listing.
func (s *Store) WriteRepositories(repos []json.RawMessage) error {
	return writeJSON(s.RepositoriesPath(), repos)
}

// RepositoryNames returns the names from repositories.json in listing order.
func (s *Store) RepositoryNames() ([]string, error) {
	data, err := os.ReadFile(s.RepositoriesPath())
	if err != nil {
		return nil, fmt.Errorf("read repository list: %w", err)
	}
	var repos []*github.Repository
	if err := json.Unmarshal(data, &repos); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.RepositoriesPath(), err)
	}
	return Names(repos), nil
}

// Names extracts non-empty repository names, keeping order.
func Names(repos []*github.Repository) []string {
	names := make([]string, 0, len(repos))
	for _, repo := range repos {
		if name := repo.GetName(); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// WriteRaw persists one repository's raw snapshot for a resource.
func (s *Store) WriteRaw(r model.Resource, repo string, items []json.RawMessage) error {
	return writeJSON(s.RawPath(r, repo), items)
}

// ReadRaw returns one repository's raw snapshot. A missing snapshot is
// reported with an error wrapping fs.ErrNotExist.
func (s *Store) ReadRaw(r model.Resource, repo string) ([]byte, error) {
	return os.ReadFile(s.RawPath(r, repo))
}

// WriteTable writes a table as CSV with a header row.
func (s *Store) WriteTable(path string, table *model.Table) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(table.Columns); err != nil {
		return err
	}
	if err := w.WriteAll(table.Rows); err != nil {
		return err
	}
	return writeFile(path, buf.Bytes())
}

// ReadTable loads a CSV table written by WriteTable. A missing file is
// reported with an error wrapping fs.ErrNotExist.
func (s *Store) ReadTable(path string) (*model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read table %s: missing header", path)
	}
	return &model.Table{Columns: records[0], Rows: records[1:]}, nil
}

// RemoveRaw deletes a raw snapshot if it exists.
func (s *Store) RemoveRaw(r model.Resource, repo string) error {
	return removeFile(s.RawPath(r, repo))
}

// RemoveTable deletes a per-repository table if it exists.
func (s *Store) RemoveTable(r model.Resource, repo string) error {
	return removeFile(s.TablePath(r, repo))
}

func removeFile(path string) error {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func writeJSON(path string, items []json.RawMessage) error {
	if items == nil {
		items = []json.RawMessage{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
