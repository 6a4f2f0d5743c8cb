package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/gnomegl/commitctx/internal/models"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

func ParseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatCSV:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q (json, csv, text)", s)
}

// Blames writes blames to w in format. requested is the number of lines
// asked for, used by the summary.
func Blames(w io.Writer, blames []models.FileBlameInfo, requested int, format string) error {
	switch format {
	case FormatJSON:
		return outputJSON(w, blames, requested)
	case FormatCSV:
		return outputCSV(w, blames)
	}
	outputText(w, blames, requested)
	return nil
}

func outputText(w io.Writer, blames []models.FileBlameInfo, requested int) {
	repo := color.New(color.FgGreen)
	commit := color.New(color.FgMagenta)
	faint := color.New(color.FgWhite)

	for _, b := range blames {
		repo.Fprintf(w, "📂 %s %s:%d", b.Repo.Name, b.Path, b.Lineno)
		if b.Ref != "" {
			faint.Fprintf(w, " @ %s", b.Ref)
		}
		fmt.Fprintln(w)

		commit.Fprintf(w, "  Commit: %s\n", b.Commit.CommitID)
		faint.Fprintf(w, "  Author: %s <%s>\n", b.Commit.CommitAuthorName, b.Commit.CommitAuthorEmail)
		faint.Fprintf(w, "  Date:   %s\n", b.Commit.CommittedDate.Format("2006-01-02 15:04:05 MST"))
		if msg := firstLine(b.Commit.CommitMessage); msg != "" {
			faint.Fprintf(w, "  %s\n", msg)
		}
	}

	summary := color.New(color.FgHiCyan)
	summary.Fprintf(w, "\nResolved %d of %d lines\n", len(blames), requested)
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
