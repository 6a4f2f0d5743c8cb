package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/gnomegl/commitctx/internal/blame"
	"github.com/gnomegl/commitctx/internal/display"
	"github.com/gnomegl/commitctx/internal/models"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// BlameRequest is a batch of lines to blame on one repository, either
// listed directly or loaded from a YAML/JSON file of source lines.
type BlameRequest struct {
	Repo      models.Repository
	Ref       string
	Lines     []string
	InputFile string
}

// ParseLineSpec splits path:lineno.
func ParseLineSpec(line string) (string, int, error) {
	i := strings.LastIndex(line, ":")
	if i <= 0 || i == len(line)-1 {
		return "", 0, fmt.Errorf("invalid line %q, expected path:lineno", line)
	}
	lineno, err := strconv.Atoi(line[i+1:])
	if err != nil || lineno <= 0 {
		return "", 0, fmt.Errorf("invalid line number in %q", line)
	}
	return line[:i], lineno, nil
}

func (r BlameRequest) files() ([]models.SourceLineInfo, error) {
	var files []models.SourceLineInfo

	if r.InputFile != "" {
		data, err := os.ReadFile(r.InputFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %v", err)
		}
		var doc struct {
			Files []models.SourceLineInfo `yaml:"files"`
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse input %s: %v", r.InputFile, err)
		}
		files = append(files, doc.Files...)
	}

	for _, entry := range r.Lines {
		path, lineno, err := ParseLineSpec(entry)
		if err != nil {
			return nil, err
		}
		files = append(files, models.SourceLineInfo{Repo: r.Repo, Path: path, Lineno: lineno, Ref: r.Ref})
	}

	if len(files) == 0 {
		return nil, errors.New("no lines to blame")
	}
	provider := files[0].Repo.Provider
	for _, f := range files {
		if f.Repo.Provider != provider {
			return nil, errors.New("all lines must belong to the same provider")
		}
	}
	return files, nil
}

// Blame resolves the latest commit of every requested line and prints them.
func (o *Orchestrator) Blame(ctx context.Context, req BlameRequest) ([]models.FileBlameInfo, error) {
	files, err := req.files()
	if err != nil {
		return nil, err
	}
	format, err := display.ParseFormat(o.config.OutputFormat)
	if err != nil {
		return nil, err
	}

	provider := files[0].Repo.Provider
	client, err := o.Blamer(ctx, provider)
	if err != nil {
		return nil, err
	}

	opts := []blame.Option{blame.WithLogger(o.logger), blame.WithMetrics(o.metrics)}
	var bar *progressbar.ProgressBar
	if o.progress {
		bar = newProgressBar(o, len(files))
		opts = append(opts, blame.WithProgress(func() { _ = bar.Add(1) }))
	}

	blames, err := blame.NewFetcher(client, opts...).FetchFileBlames(ctx, files, zap.String("provider", provider))
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(o.stderr)
	}
	if err != nil {
		var limited *blame.RateLimitedError
		if errors.As(err, &limited) {
			color.New(color.FgRed).Fprintf(o.stderr, "[x] %v\n", err)
		}
		return nil, err
	}

	if len(blames) == 0 {
		color.New(color.FgYellow).Fprintln(o.stderr, "[!] No commits found for the requested lines")
	}
	if err := display.Blames(o.stdout, blames, len(files), format); err != nil {
		return nil, err
	}
	return blames, nil
}

func newProgressBar(o *Orchestrator, total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(o.stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Blaming lines[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
