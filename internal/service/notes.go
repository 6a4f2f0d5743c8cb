package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gnomegl/commitctx/internal/notifications"
	"github.com/gnomegl/commitctx/internal/users"
)

type NoteRequest struct {
	Text      string
	AuthorID  int64
	GroupID   int64
	Project   string
	Recipient string
	// Format is "chat" or "email".
	Format string
}

// RenderNote prints the message a note activity would send.
func (o *Orchestrator) RenderNote(ctx context.Context, req NoteRequest) error {
	var author *users.User
	if req.AuthorID > 0 {
		u, err := o.users.GetUser(ctx, req.AuthorID)
		if err != nil {
			return err
		}
		author = u
	}

	n, err := notifications.NewNoteActivityNotification(&notifications.Activity{
		Type:      notifications.ActivityNote,
		GroupID:   req.GroupID,
		Project:   req.Project,
		User:      author,
		Data:      map[string]any{"text": req.Text},
		DateAdded: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	recipient := &users.User{Email: req.Recipient}

	switch req.Format {
	case "email":
		msg, err := notifications.BuildEmail(n, recipient, o.config.Mail.From)
		if err != nil {
			return err
		}
		_, err = msg.WriteTo(o.stdout)
		return err
	case "", "chat":
		msg, err := notifications.BuildChatMessage(n, recipient)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(o.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(msg)
	}
	return fmt.Errorf("unknown note format %q (chat, email)", req.Format)
}
