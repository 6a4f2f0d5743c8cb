package notifications

import (
	"time"

	"github.com/gnomegl/commitctx/internal/users"
)

type ActivityType string

const ActivityNote ActivityType = "note"

// Activity is something a user did on an issue group.
type Activity struct {
	ID        int64
	Type      ActivityType
	GroupID   int64
	Project   string
	User      *users.User
	Data      map[string]any
	DateAdded time.Time
}

type Provider string

const (
	ProviderEmail Provider = "email"
	ProviderSlack Provider = "slack"
)

// Description is a brace-formatted template plus its parameters. HTML,
// when set, replaces Text as the source of the HTML rendition.
type Description struct {
	Text   string
	HTML   string
	Params map[string]string
}

// Notification is what the message builders consume.
type Notification interface {
	Title() string
	NotificationTitle(provider Provider, ctx map[string]any) string
	Description() Description
	Context() (map[string]any, error)
	MessageDescription(recipient *users.User, provider Provider) (string, error)
	MetricsKey() string
	TemplatePath() string
	MessageBuilder() string
}
