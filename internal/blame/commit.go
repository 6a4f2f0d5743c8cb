package blame

import (
	"time"

	"github.com/gnomegl/commitctx/internal/models"
	"go.uber.org/zap"
)

// RawCommit is a provider commit before validation. Present is false when
// the hunk carried no commit object at all.
type RawCommit struct {
	Present       bool
	ID            string
	Message       string
	AuthorName    string
	AuthorEmail   string
	CommittedDate string
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
}

// ParseCommittedDate accepts RFC 3339 and zone-less ISO 8601 timestamps and
// returns the instant in UTC. Zone-less values are taken as UTC.
func ParseCommittedDate(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// NewCommitInfo validates raw and logs why it was discarded, if it was.
func NewCommitInfo(raw RawCommit, logger *zap.Logger, fields []zap.Field) *models.CommitInfo {
	if !raw.Present {
		logger.Warn("get_blame_for_files.no_commit_in_response", fields...)
		return nil
	}

	if raw.ID == "" {
		logger.Warn("get_blame_for_files.invalid_commit_response",
			With(fields, zap.String("missing_property", "id"))...)
		return nil
	}

	if raw.CommittedDate == "" {
		logger.Warn("get_blame_for_files.invalid_commit_response",
			With(fields, zap.String("commit_id", raw.ID), zap.String("missing_property", "committed_date"))...)
		return nil
	}

	committed, err := ParseCommittedDate(raw.CommittedDate)
	if err != nil {
		logger.Warn("get_blame_for_files.invalid_commit_response",
			With(fields, zap.String("commit_id", raw.ID), zap.Error(err))...)
		return nil
	}

	return &models.CommitInfo{
		CommitID:          raw.ID,
		CommitMessage:     raw.Message,
		CommitAuthorName:  raw.AuthorName,
		CommitAuthorEmail: raw.AuthorEmail,
		CommittedDate:     committed,
	}
}

// LatestCommit returns the commit with the greatest committed date. Ties
// keep the earliest candidate.
func LatestCommit(commits []*models.CommitInfo) *models.CommitInfo {
	var latest *models.CommitInfo
	for _, c := range commits {
		if c == nil {
			continue
		}
		if latest == nil || c.CommittedDate.After(latest.CommittedDate) {
			latest = c
		}
	}
	return latest
}
