package github

import (
	"encoding/json"
	"fmt"

	"github.com/gnomegl/commitctx/internal/blame"
)

type blameResponse struct {
	Data *struct {
		Repository *struct {
			Ref *struct {
				Target *struct {
					Blame *struct {
						Ranges []blameRange `json:"ranges"`
					} `json:"blame"`
				} `json:"target"`
			} `json:"ref"`
		} `json:"repository"`
	} `json:"data"`
	Errors []struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"errors"`
}

type blameRange struct {
	StartingLine int `json:"startingLine"`
	EndingLine   int `json:"endingLine"`
	Commit       *struct {
		OID           string `json:"oid"`
		Message       string `json:"message"`
		CommittedDate string `json:"committedDate"`
		Author        *struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"author"`
	} `json:"commit"`
}

// parseBlameResponse returns the commits of every range covering lineno.
// A missing repository, ref or blame yields no commits.
func parseBlameResponse(body []byte, lineno int) ([]blame.RawCommit, error) {
	var resp blameResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, blame.FormatError(err)
	}

	if resp.Data == nil {
		if len(resp.Errors) > 0 {
			return nil, &blame.APIError{Text: fmt.Sprintf("graphql %s: %s", resp.Errors[0].Type, resp.Errors[0].Message)}
		}
		return nil, blame.FormatError(fmt.Errorf("missing data"))
	}

	repo := resp.Data.Repository
	if repo == nil || repo.Ref == nil || repo.Ref.Target == nil || repo.Ref.Target.Blame == nil {
		return nil, nil
	}

	var commits []blame.RawCommit
	for _, r := range repo.Ref.Target.Blame.Ranges {
		if lineno < r.StartingLine || lineno > r.EndingLine {
			continue
		}
		if r.Commit == nil {
			commits = append(commits, blame.RawCommit{})
			continue
		}
		raw := blame.RawCommit{
			Present:       true,
			ID:            r.Commit.OID,
			Message:       r.Commit.Message,
			CommittedDate: r.Commit.CommittedDate,
		}
		if r.Commit.Author != nil {
			raw.AuthorName = r.Commit.Author.Name
			raw.AuthorEmail = r.Commit.Author.Email
		}
		commits = append(commits, raw)
	}
	return commits, nil
}
