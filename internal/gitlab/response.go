package gitlab

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gnomegl/commitctx/internal/blame"
)

// parseBlameResponse turns a blame response body into one RawCommit per hunk.
// Anything other than a JSON array is a format error.
func parseBlameResponse(body []byte) ([]blame.RawCommit, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, blame.FormatError(fmt.Errorf("expected a JSON array"))
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, blame.FormatError(err)
	}

	commits := make([]blame.RawCommit, 0, len(items))
	for _, item := range items {
		commits = append(commits, parseHunk(item))
	}
	return commits, nil
}

func parseHunk(item json.RawMessage) blame.RawCommit {
	var hunk struct {
		Commit map[string]json.RawMessage `json:"commit"`
		Lines  []string                   `json:"lines"`
	}
	if err := json.Unmarshal(item, &hunk); err != nil || len(hunk.Commit) == 0 {
		return blame.RawCommit{}
	}

	c := hunk.Commit
	return blame.RawCommit{
		Present:       true,
		ID:            stringField(c, "id"),
		Message:       stringField(c, "message"),
		AuthorName:    stringField(c, "author_name"),
		AuthorEmail:   stringField(c, "author_email"),
		CommittedDate: stringField(c, "committed_date"),
	}
}

// stringField yields "" for absent, null or non-string values.
func stringField(m map[string]json.RawMessage, key string) string {
	raw, ok := m[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
