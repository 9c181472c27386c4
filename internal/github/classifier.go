// internal/github/classifier.go
package github

import (
	"fmt"
	"net/http"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// AcceptedErrors maps an HTTP status code to the exact API messages that mean
// "this repository has no data for this resource" rather than a failure.
type AcceptedErrors map[int][]string

// DefaultAcceptedErrors returns the built-in table.
func DefaultAcceptedErrors() AcceptedErrors {
	return AcceptedErrors{
		http.StatusForbidden: {
			"Dependabot alerts are not available for archived repositories.",
			"Dependabot alerts are disabled for this repository.",
			"Resource not accessible by personal access token",
		},
	}
}

// LoadAcceptedErrors reads additional accepted errors from a YAML file and
// merges them into the defaults. The file maps status codes to message lists:
//
//	403:
//	  - "Dependabot alerts are disabled for this repository."
//	404:
//	  - "Not Found"
func LoadAcceptedErrors(path string) (AcceptedErrors, error) {
	table := DefaultAcceptedErrors()
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read accepted errors file: %w", err)
	}
	var extra AcceptedErrors
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return nil, fmt.Errorf("parse accepted errors file %s: %w", path, err)
	}
	for status, messages := range extra {
		for _, msg := range messages {
			if !slices.Contains(table[status], msg) {
				table[status] = append(table[status], msg)
			}
		}
	}
	return table, nil
}

// Classifier decides whether a failed response is an accepted condition.
type Classifier struct {
	accepted AcceptedErrors
}

// NewClassifier creates a Classifier over the given table.
func NewClassifier(accepted AcceptedErrors) *Classifier {
	return &Classifier{accepted: accepted}
}

// Classify reports whether a response with the given status and API message
// should be swallowed. The message must match an entry exactly.
func (c *Classifier) Classify(status int, message string) (bool, string) {
	expected, ok := c.accepted[status]
	if !ok {
		return false, ""
	}
	if slices.Contains(expected, message) {
		return true, message
	}
	return false, ""
}
