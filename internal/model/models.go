// internal/model/models.go
package model

import (
	"fmt"
	"strings"
)

// Resource identifies one of the per-repository listings that are retrieved,
// flattened and merged.
type Resource int

const (
	Commits Resource = iota
	PullRequests
	ReviewComments
	DependabotAlerts
)

// AllResources lists every resource kind in the order tasks process them.
var AllResources = []Resource{Commits, DependabotAlerts, PullRequests, ReviewComments}

// Dir returns the directory name used for the resource's artifacts. It is
// also the stem of the merged table file and the Postgres table name.
func (r Resource) Dir() string {
	switch r {
	case Commits:
		return "commits"
	case PullRequests:
		return "pull_requests"
	case ReviewComments:
		return "review_comments"
	case DependabotAlerts:
		return "dependabot_alerts"
	default:
		return ""
	}
}

// Label is the human-readable plural used in log lines and menu entries.
func (r Resource) Label() string {
	switch r {
	case Commits:
		return "commits"
	case PullRequests:
		return "pull requests"
	case ReviewComments:
		return "review comments"
	case DependabotAlerts:
		return "dependabot alerts"
	default:
		return "unknown resource"
	}
}

func (r Resource) String() string {
	if d := r.Dir(); d != "" {
		return d
	}
	return fmt.Sprintf("Resource(%d)", int(r))
}

// Valid reports whether r is one of the declared resource kinds.
func (r Resource) Valid() bool {
	return r.Dir() != ""
}

// ParseResource accepts the directory name of a resource ("pull_requests")
// or its dashed form ("pull-requests").
func ParseResource(s string) (Resource, error) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for _, r := range AllResources {
		if r.Dir() == name {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown resource %q", s)
}

// ParseResources resolves a command argument to resource kinds. "all" (or an
// empty string) selects every kind.
func ParseResources(s string) ([]Resource, error) {
	if s == "" || strings.EqualFold(s, "all") {
		return AllResources, nil
	}
	r, err := ParseResource(s)
	if err != nil {
		return nil, err
	}
	return []Resource{r}, nil
}

// RepositoryColumn is the column appended to merged tables.
const RepositoryColumn = "repository"

// Table is a fixed-column tabular record set. Empty cells stand for absent
// or null source values.
type Table struct {
	Columns []string
	Rows    [][]string
}

// NewTable returns an empty table with the given header.
func NewTable(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Records returns the rows keyed by column name, in row order.
func (t *Table) Records() []map[string]string {
	records := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]string, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records
}
