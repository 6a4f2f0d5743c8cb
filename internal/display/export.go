package display

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/gnomegl/commitctx/internal/models"
)

type NDJSONMeta struct {
	Requested int `json:"requested"`
	Resolved  int `json:"resolved"`
}

// outputJSON writes a meta line followed by one line per blame.
func outputJSON(w io.Writer, blames []models.FileBlameInfo, requested int) error {
	encoder := json.NewEncoder(w)
	if err := encoder.Encode(NDJSONMeta{Requested: requested, Resolved: len(blames)}); err != nil {
		return err
	}
	for _, b := range blames {
		if err := encoder.Encode(b); err != nil {
			return err
		}
	}
	return nil
}

func outputCSV(w io.Writer, blames []models.FileBlameInfo) error {
	writer := csv.NewWriter(w)

	headers := []string{
		"repository",
		"path",
		"lineno",
		"ref",
		"commit_id",
		"author_name",
		"author_email",
		"committed_date",
		"message",
	}
	if err := writer.Write(headers); err != nil {
		return err
	}

	for _, b := range blames {
		row := []string{
			b.Repo.Name,
			b.Path,
			strconv.Itoa(b.Lineno),
			b.Ref,
			b.Commit.CommitID,
			b.Commit.CommitAuthorName,
			b.Commit.CommitAuthorEmail,
			b.Commit.CommittedDate.Format(time.RFC3339),
			firstLine(b.Commit.CommitMessage),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
