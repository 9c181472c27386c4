// Package flatten projects raw API snapshots onto fixed-column tables.
//
// Every column is extracted with nil-safe accessors: an absent or null nested
// object yields an empty cell. Only items whose JSON has the wrong shape (not
// an object, or a field of the wrong type) fail, with a *errors.ProjectionError.
package flatten

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	custom_errors "github-analytics-retriever/internal/errors"
	"github-analytics-retriever/internal/model"
)

var (
	// ErrEmptySnapshot is returned for a snapshot with no items. No table is
	// produced so that a missing file means "no data" downstream.
	ErrEmptySnapshot = errors.New("snapshot holds no items")

	// ErrErrorPayload is returned when a snapshot holds an API error object
	// instead of an item list.
	ErrErrorPayload = errors.New("snapshot holds an API error payload")
)

// rowFunc projects one raw item onto the projection's columns.
type rowFunc func(item json.RawMessage) ([]string, error)

type projection struct {
	columns []string
	row     rowFunc
}

var projections = map[model.Resource]projection{
	model.Commits: {
		columns: []string{"sha", "message", "date", "author", "committer"},
		row:     commitRow,
	},
	model.PullRequests: {
		columns: []string{
			"id", "number", "title", "state", "created_at", "updated_at",
			"closed_at", "merged_at", "user", "assignee", "requested_reviewers",
		},
		row: pullRequestRow,
	},
	model.ReviewComments: {
		columns: []string{"id", "user", "body", "created_at", "updated_at"},
		row:     reviewCommentRow,
	},
	model.DependabotAlerts: {
		columns: dependabotColumns(),
		row:     dependabotAlertRow,
	},
}

// Columns returns the ordered column list of a resource kind.
func Columns(r model.Resource) ([]string, error) {
	p, ok := projections[r]
	if !ok {
		return nil, fmt.Errorf("no projection for %v", r)
	}
	return append([]string(nil), p.columns...), nil
}

// Flatten projects a raw snapshot (the JSON array persisted by retrieval)
// onto the resource's table.
func Flatten(r model.Resource, snapshot []byte) (*model.Table, error) {
	p, ok := projections[r]
	if !ok {
		return nil, fmt.Errorf("no projection for %v", r)
	}

	trimmed := bytes.TrimSpace(snapshot)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var payload struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(trimmed, &payload); err == nil && payload.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrErrorPayload, payload.Message)
		}
		return nil, ErrErrorPayload
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("decode %s snapshot: %w", r, err)
	}
	if len(items) == 0 {
		return nil, ErrEmptySnapshot
	}

	table := model.NewTable(p.columns...)
	for i, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			return nil, &custom_errors.ProjectionError{
				Resource: r.Dir(),
				Index:    i,
				Err:      errors.New("item is not a JSON object"),
			}
		}
		row, err := p.row(item)
		if err != nil {
			return nil, projectionError(r, i, err)
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// columnError names the column whose source value had the wrong shape.
type columnError struct {
	column string
	err    error
}

func (e *columnError) Error() string { return e.column + ": " + e.err.Error() }
func (e *columnError) Unwrap() error { return e.err }

func projectionError(r model.Resource, index int, err error) error {
	pe := &custom_errors.ProjectionError{Resource: r.Dir(), Index: index, Err: err}

	var colErr *columnError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &colErr):
		pe.Column = colErr.column
		pe.Err = colErr.err
	case errors.As(err, &typeErr):
		pe.Column = typeErr.Field
	}
	return pe
}
