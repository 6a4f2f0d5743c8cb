package models

import "time"

type Repository struct {
	ID       int64             `json:"id" yaml:"id"`
	Name     string            `json:"name" yaml:"name"`
	Provider string            `json:"provider" yaml:"provider"`
	Config   map[string]string `json:"config,omitempty" yaml:"config,omitempty"`
}

// ProjectID is the provider-side project identifier, falling back to the repo name.
func (r Repository) ProjectID() string {
	if id := r.Config["project_id"]; id != "" {
		return id
	}
	return r.Name
}

// SourceLineInfo identifies a single line to blame.
type SourceLineInfo struct {
	Repo   Repository `json:"repo" yaml:"repo"`
	Path   string     `json:"path" yaml:"path"`
	Lineno int        `json:"lineno" yaml:"lineno"`
	Ref    string     `json:"ref" yaml:"ref"`
}

type CommitInfo struct {
	CommitID          string    `json:"commitId"`
	CommitMessage     string    `json:"commitMessage,omitempty"`
	CommitAuthorName  string    `json:"commitAuthorName,omitempty"`
	CommitAuthorEmail string    `json:"commitAuthorEmail,omitempty"`
	CommittedDate     time.Time `json:"committedDate"`
}

type FileBlameInfo struct {
	SourceLineInfo
	Commit CommitInfo `json:"commit"`
}

// RateLimitInfo is the provider quota observed on a single response.
type RateLimitInfo struct {
	Limit     int
	Remaining int
	Used      int
	Reset     time.Time
}

func (r RateLimitInfo) NextWindow() string {
	return r.Reset.Format("15:04:05")
}
