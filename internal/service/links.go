package service

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gnomegl/commitctx/internal/users"
)

type SignRequest struct {
	UserID   int64
	View     string
	Referrer string
	// Args are positional values, or key=value pairs when Named is set.
	Args  []string
	Named bool
}

func (o *Orchestrator) SignLink(req SignRequest) (string, error) {
	links, err := o.Links()
	if err != nil {
		return "", err
	}

	var args []any
	var kwargs map[string]any
	if req.Named {
		kwargs = make(map[string]any, len(req.Args))
		for _, a := range req.Args {
			k, v, ok := strings.Cut(a, "=")
			if !ok || k == "" {
				return "", fmt.Errorf("invalid argument %q, expected key=value", a)
			}
			kwargs[k] = v
		}
	} else {
		for _, a := range req.Args {
			args = append(args, a)
		}
	}

	link, err := links.GenerateSignedLink(users.RawUserID(req.UserID), req.View, req.Referrer, args, kwargs)
	if err != nil {
		return "", err
	}
	fmt.Fprintln(o.stdout, link)
	return link, nil
}

// VerifyLink checks a signed link as if it had been requested now.
func (o *Orchestrator) VerifyLink(rawURL string, maxAge time.Duration) (*users.User, error) {
	links, err := o.Links()
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid link: %v", err)
	}
	r, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("invalid link: %v", err)
	}

	user := links.ProcessSignature(r, maxAge)
	if user == nil {
		color.New(color.FgRed).Fprintln(o.stderr, "[x] Link is not valid")
		return nil, errors.New("invalid signed link")
	}
	color.New(color.FgGreen).Fprintf(o.stdout, "[+] Valid link for %s (id %d)\n", user.DisplayName(), user.ID)
	return user, nil
}
