package notifications

import (
	"fmt"

	"github.com/gnomegl/commitctx/internal/users"
)

type NoteActivityNotification struct {
	GroupActivityNotification
}

func NewNoteActivityNotification(a *Activity) (*NoteActivityNotification, error) {
	if a == nil || a.Type != ActivityNote {
		return nil, fmt.Errorf("not a note activity")
	}
	return &NoteActivityNotification{GroupActivityNotification{Activity: a}}, nil
}

// Description escapes braces in the note so it survives formatting.
func (n *NoteActivityNotification) Description() Description {
	var text string
	if v, ok := n.Activity.Data["text"]; ok && v != nil {
		text = fmt.Sprint(v)
	}
	return Description{Text: escapeBraces(text), Params: map[string]string{}}
}

func (n *NoteActivityNotification) Title() string {
	author := "Unknown"
	if u := n.Author(); u != nil {
		author = u.DisplayName()
	}
	return "New comment by " + author
}

func (n *NoteActivityNotification) NotificationTitle(Provider, map[string]any) string {
	return n.Title()
}

func (n *NoteActivityNotification) Context() (map[string]any, error) {
	return n.RenderContext(n.Title(), n.Description())
}

func (n *NoteActivityNotification) MessageDescription(*users.User, Provider) (string, error) {
	ctx, err := n.Context()
	if err != nil {
		return "", err
	}
	text, _ := ctx["text_description"].(string)
	return text, nil
}

func (n *NoteActivityNotification) MetricsKey() string     { return "note_activity" }
func (n *NoteActivityNotification) TemplatePath() string   { return "commitctx/emails/activity/note" }
func (n *NoteActivityNotification) MessageBuilder() string { return "SlackNotificationsMessageBuilder" }
