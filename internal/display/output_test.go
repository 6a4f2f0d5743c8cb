package display

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/gnomegl/commitctx/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = []models.FileBlameInfo{{
	SourceLineInfo: models.SourceLineInfo{
		Repo:   models.Repository{ID: 1, Name: "group/app", Provider: "gitlab"},
		Path:   "main.go",
		Lineno: 12,
		Ref:    "main",
	},
	Commit: models.CommitInfo{
		CommitID:          "abc123",
		CommitMessage:     "fix crash\n\nlong body",
		CommitAuthorName:  "Jane",
		CommitAuthorEmail: "jane@example.com",
		CommittedDate:     time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
	},
}}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]string{"": FormatText, "JSON": FormatJSON, " csv ": FormatCSV, "text": FormatText} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestBlamesText(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	require.NoError(t, Blames(&buf, sample, 3, FormatText))
	out := buf.String()
	assert.Contains(t, out, "group/app main.go:12 @ main")
	assert.Contains(t, out, "Commit: abc123")
	assert.Contains(t, out, "Author: Jane <jane@example.com>")
	assert.Contains(t, out, "fix crash")
	assert.NotContains(t, out, "long body")
	assert.Contains(t, out, "Resolved 1 of 3 lines")
}

func TestBlamesJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Blames(&buf, sample, 2, FormatJSON))

	scanner := bufio.NewScanner(&buf)
	require.True(t, scanner.Scan())
	var meta NDJSONMeta
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &meta))
	assert.Equal(t, NDJSONMeta{Requested: 2, Resolved: 1}, meta)

	require.True(t, scanner.Scan())
	var entry models.FileBlameInfo
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
	assert.Equal(t, sample[0], entry)
	assert.False(t, scanner.Scan())
}

func TestBlamesCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Blames(&buf, sample, 1, FormatCSV))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "repository", rows[0][0])
	assert.Equal(t, []string{"group/app", "main.go", "12", "main", "abc123", "Jane", "jane@example.com", "2024-05-06T07:08:09Z", "fix crash"}, rows[1])
}
