package notifications

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gnomegl/commitctx/internal/users"
	"github.com/wneessen/go-mail"
)

// BuildEmail renders n into a multipart message for recipient.
func BuildEmail(n Notification, recipient *users.User, from string) (*mail.Msg, error) {
	if recipient == nil || recipient.Email == "" {
		return nil, errors.New("recipient has no email address")
	}

	ctx, err := n.Context()
	if err != nil {
		return nil, err
	}
	text, _ := ctx["text_description"].(string)
	html, _ := ctx["html_description"].(string)

	m := mail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}
	if err := m.To(recipient.Email); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", recipient.Email, err)
	}
	m.Subject(n.NotificationTitle(ProviderEmail, ctx))
	m.SetGenHeader("X-Commitctx-Template", n.TemplatePath())
	m.SetGenHeader("X-Commitctx-Metrics-Key", n.MetricsKey())
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(mail.TypeTextPlain, text)
	m.AddAlternativeString(mail.TypeTextHTML, html)
	return m, nil
}

type ChatMessage struct {
	Text   string      `json:"text"`
	Blocks []ChatBlock `json:"blocks"`
}

type ChatBlock struct {
	Type string    `json:"type"`
	Text *ChatText `json:"text,omitempty"`
}

type ChatText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// BuildChatMessage renders n as a Slack-style block message.
func BuildChatMessage(n Notification, recipient *users.User) (*ChatMessage, error) {
	ctx, err := n.Context()
	if err != nil {
		return nil, err
	}
	title := n.NotificationTitle(ProviderSlack, ctx)
	description, err := n.MessageDescription(recipient, ProviderSlack)
	if err != nil {
		return nil, err
	}

	msg := &ChatMessage{
		Text: title,
		Blocks: []ChatBlock{
			{Type: "section", Text: &ChatText{Type: "mrkdwn", Text: "*" + title + "*"}},
		},
	}
	if description != "" {
		msg.Blocks = append(msg.Blocks, ChatBlock{Type: "section", Text: &ChatText{Type: "mrkdwn", Text: description}})
	}
	return msg, nil
}

func (m *ChatMessage) JSON() ([]byte, error) {
	return json.Marshal(m)
}
