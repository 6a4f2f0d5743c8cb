package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

const tokenEnvVar = "COMMITCTX_GITHUB_TOKEN"

// Config holds the settings of the GitHub integration.
type Config struct {
	BaseURL       string `yaml:"base_url"`
	Token         string `yaml:"token"`
	TokenFile     string `yaml:"token_file"`
	ProxyFile     string `yaml:"proxy_file"`
	IntegrationID int64  `yaml:"integration_id"`
}

// NewClient builds a client authenticated with token (anonymous when empty),
// optionally routed through proxyURL and pointed at a GitHub Enterprise baseURL.
func NewClient(token, proxyURL, baseURL string) (*github.Client, error) {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}

	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %v", proxyURL, err)
		}
		transport.Proxy = http.ProxyURL(parsed)
	}

	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = &http.Client{
			Transport: &oauth2.Transport{
				Source: ts,
				Base:   transport,
			},
		}
	} else {
		httpClient = &http.Client{Transport: transport}
	}

	client := github.NewClient(httpClient)
	if baseURL == "" {
		return client, nil
	}
	return client.WithEnterpriseURLs(baseURL, baseURL)
}

// ResolveToken picks the explicit token, then the environment, then the
// token saved in the user config dir.
func ResolveToken(explicit string) string {
	if explicit != "" {
		return explicit
	}

	if token := os.Getenv(tokenEnvVar); token != "" {
		return token
	}

	configDir, err := os.UserConfigDir()
	if err == nil {
		tokenFile := filepath.Join(configDir, "commitctx", "github_token")
		if data, err := os.ReadFile(tokenFile); err == nil {
			return strings.TrimSpace(string(data))
		}
	}

	return ""
}

// SaveToken stores token in the user config dir for later runs.
func SaveToken(token string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	configPath := filepath.Join(configDir, "commitctx")
	if err := os.MkdirAll(configPath, 0700); err != nil {
		return "", err
	}
	tokenFile := filepath.Join(configPath, "github_token")
	return tokenFile, os.WriteFile(tokenFile, []byte(token), 0600)
}

func ValidateToken(ctx context.Context, client *github.Client) error {
	_, resp, err := client.Users.Get(ctx, "")
	if err != nil {
		if resp != nil {
			switch resp.StatusCode {
			case http.StatusUnauthorized:
				return fmt.Errorf("invalid GitHub token")
			case http.StatusForbidden:
				// rate limited, the token itself is fine
				return nil
			}
		}
		return fmt.Errorf("error validating token: %v", err)
	}
	return nil
}

// graphQLPath resolves the GraphQL endpoint relative to the REST base URL.
// Enterprise servers serve it at /api/graphql next to /api/v3/.
func graphQLPath(client *github.Client) string {
	if strings.HasSuffix(client.BaseURL.Path, "/api/v3/") {
		return "../graphql"
	}
	return "graphql"
}
