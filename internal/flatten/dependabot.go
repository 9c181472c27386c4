package flatten

import (
	"bytes"
	"encoding/json"
)

// Dependabot alert payloads come in two shapes. The REST envelope nests the
// package under "dependency" and the advisory under "security_advisory". The
// flat shape carries one top-level field per column, either as a scalar or as
// an object holding the envelope path.
type alertRule struct {
	column   string
	envelope []step
}

var alertRules = []alertRule{
	{"number", keys("number")},
	{"state", keys("state")},
	{"dependency_name", keys("dependency", "package", "name")},
	{"dependency_path", keys("dependency", "manifest_path")},
	{"cve_id", keys("security_advisory", "cve_id")},
	{"summary", keys("security_advisory", "summary")},
	{"description", keys("security_advisory", "description")},
	{"severity", keys("security_advisory", "severity")},
	{"published_at", keys("security_advisory", "published_at")},
	{"updated_at", keys("security_advisory", "updated_at")},
	{"vulnerable_package_name", vulnerability("package", "name")},
	{"vulnerable_package_version", vulnerability("vulnerable_version_range")},
	{"first_patched_version", vulnerability("first_patched_version", "identifier")},
	{"url", keys("html_url")},
	// The alert's own creation time, not the advisory's.
	{"created_at", keys("created_at")},
}

// vulnerability is a path into the advisory's first vulnerability entry.
func vulnerability(names ...string) []step {
	path := append(keys("security_advisory", "vulnerabilities"), first())
	return append(path, keys(names...)...)
}

func dependabotColumns() []string {
	cols := make([]string, len(alertRules))
	for i, r := range alertRules {
		cols[i] = r.column
	}
	return cols
}

func dependabotAlertRow(item json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(item))
	dec.UseNumber()
	var alert map[string]any
	if err := dec.Decode(&alert); err != nil {
		return nil, err
	}

	_, hasAdvisory := alert["security_advisory"]
	_, hasDependency := alert["dependency"]
	envelope := hasAdvisory || hasDependency

	row := make([]string, len(alertRules))
	for i, r := range alertRules {
		var paths [][]step
		switch {
		case envelope:
			paths = [][]step{r.envelope}
		case r.column == "url":
			// The flat shape reduces a url object to its web URL.
			paths = [][]step{keys("url", "html_url"), r.envelope}
		default:
			paths = [][]step{
				keys(r.column),
				append(keys(r.column), r.envelope...),
			}
		}
		cell, err := firstScalar(alert, paths...)
		if err != nil {
			return nil, &columnError{column: r.column, err: err}
		}
		row[i] = cell
	}
	return row, nil
}
