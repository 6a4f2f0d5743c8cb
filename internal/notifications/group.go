package notifications

import (
	"bytes"
	"fmt"
	"html"

	"github.com/gnomegl/commitctx/internal/users"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	// raw html passes through goldmark and is cleaned by the sanitizer
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)
	sanitize = bluemonday.UGCPolicy()
)

// GroupActivityNotification holds what every activity notification on an
// issue group shares.
type GroupActivityNotification struct {
	Activity *Activity
}

// RenderContext renders d into the template context. text_description is
// the formatted text; html_description is the formatted HTML source with
// escaped parameters, rendered as Markdown and sanitized.
func (g GroupActivityNotification) RenderContext(title string, d Description) (map[string]any, error) {
	text, err := formatBraces(d.Text, d.Params)
	if err != nil {
		return nil, fmt.Errorf("failed to format description: %w", err)
	}

	escaped := make(map[string]string, len(d.Params))
	for k, v := range d.Params {
		escaped[k] = html.EscapeString(v)
	}
	source := d.HTML
	if source == "" {
		source = d.Text
	}
	formatted, err := formatBraces(source, escaped)
	if err != nil {
		return nil, fmt.Errorf("failed to format html description: %w", err)
	}

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(formatted), &buf); err != nil {
		return nil, fmt.Errorf("failed to render description: %w", err)
	}

	ctx := map[string]any{
		"title":            title,
		"text_description": text,
		"html_description": sanitize.Sanitize(buf.String()),
	}
	if a := g.Activity; a != nil {
		ctx["activity_id"] = a.ID
		ctx["group_id"] = a.GroupID
		ctx["project"] = a.Project
		ctx["date_added"] = a.DateAdded
		if a.User != nil {
			ctx["author"] = a.User.DisplayName()
		}
	}
	return ctx, nil
}

// Author is the acting user, if one is attached.
func (g GroupActivityNotification) Author() *users.User {
	if g.Activity == nil {
		return nil
	}
	return g.Activity.User
}
