// internal/errors/errors.go
package errors

import (
	"fmt"
	"net/http"
	"strings"
)

// TransportError is returned when a request to the GitHub API fails and the
// failure is not one of the accepted API conditions. A zero StatusCode means
// no response was received (network failure, timeout); Err then holds the cause.
type TransportError struct {
	StatusCode int
	Reason     string
	Body       string
	URL        string
	Resource   string
	Repository string
	Err        error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	if e.StatusCode == 0 {
		fmt.Fprintf(&b, "request to %s failed", e.URL)
		if e.Err != nil {
			fmt.Fprintf(&b, ": %v", e.Err)
		}
	} else {
		reason := e.Reason
		if reason == "" {
			reason = http.StatusText(e.StatusCode)
		}
		fmt.Fprintf(&b, "%d %s: %s", e.StatusCode, reason, strings.TrimSpace(e.Body))
	}
	if e.Resource != "" {
		fmt.Fprintf(&b, " (resource=%s", e.Resource)
		if e.Repository != "" {
			fmt.Fprintf(&b, " repo=%s", e.Repository)
		}
		b.WriteString(")")
	}
	return b.String()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProjectionError is returned when a raw item cannot be projected onto its
// table columns. Index is the item's position in the snapshot; Column is empty
// when the item as a whole is malformed.
type ProjectionError struct {
	Resource string
	Index    int
	Column   string
	Err      error
}

func (e *ProjectionError) Error() string {
	where := fmt.Sprintf("item %d", e.Index)
	if e.Column != "" {
		where += fmt.Sprintf(" column %q", e.Column)
	}
	return fmt.Sprintf("cannot flatten %s: %s: %v", e.Resource, where, e.Err)
}

func (e *ProjectionError) Unwrap() error {
	return e.Err
}

// RepositoryError records a failure of one pipeline stage for one repository.
// Stages keep going after such failures and report them joined together.
type RepositoryError struct {
	Stage      string
	Repository string
	Resource   string
	Err        error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("%s %s for %s: %v", e.Stage, e.Resource, e.Repository, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}
