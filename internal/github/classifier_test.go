package github

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifier_Classify(t *testing.T) {
	classifier := NewClassifier(DefaultAcceptedErrors())

	testCases := []struct {
		name      string
		status    int
		message   string
		swallowed bool
	}{
		{"dependabot disabled", http.StatusForbidden, "Dependabot alerts are disabled for this repository.", true},
		{"archived repository", http.StatusForbidden, "Dependabot alerts are not available for archived repositories.", true},
		{"token without access", http.StatusForbidden, "Resource not accessible by personal access token", true},
		{"other 403 message", http.StatusForbidden, "Something else", false},
		{"message must match exactly", http.StatusForbidden, "Dependabot alerts are disabled for this repository", false},
		{"status not in table", http.StatusNotFound, "Dependabot alerts are disabled for this repository.", false},
		{"404 not found", http.StatusNotFound, "Not Found", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			swallowed, msg := classifier.Classify(tc.status, tc.message)

			assert.Equal(t, tc.swallowed, swallowed)
			if tc.swallowed {
				assert.Equal(t, tc.message, msg)
			} else {
				assert.Empty(t, msg)
			}
		})
	}
}

func TestLoadAcceptedErrors(t *testing.T) {
	t.Run("no file returns defaults", func(t *testing.T) {
		table, err := LoadAcceptedErrors("")

		require.NoError(t, err)
		assert.Equal(t, DefaultAcceptedErrors(), table)
	})

	t.Run("file entries extend the defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "accepted.yaml")
		content := "403:\n  - \"Dependabot alerts are disabled for this repository.\"\n  - \"Secret scanning is disabled\"\n404:\n  - \"Not Found\"\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		table, err := LoadAcceptedErrors(path)

		require.NoError(t, err)
		assert.Len(t, table[http.StatusForbidden], 4)
		assert.Contains(t, table[http.StatusForbidden], "Secret scanning is disabled")
		assert.Equal(t, []string{"Not Found"}, table[http.StatusNotFound])

		swallowed, _ := NewClassifier(table).Classify(http.StatusNotFound, "Not Found")
		assert.True(t, swallowed)
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := LoadAcceptedErrors(filepath.Join(t.TempDir(), "missing.yaml"))

		assert.Error(t, err)
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "accepted.yaml")
		require.NoError(t, os.WriteFile(path, []byte("403: [unterminated"), 0o600))

		_, err := LoadAcceptedErrors(path)

		assert.Error(t, err)
	})
}
