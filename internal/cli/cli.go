package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/fatih/color"
	"github.com/gnomegl/commitctx/internal/config"
	"github.com/gnomegl/commitctx/internal/github"
	"github.com/gnomegl/commitctx/internal/models"
	"github.com/gnomegl/commitctx/internal/service"
	"github.com/urfave/cli/v2"
)

const envPrefix = "COMMITCTX_"

func env(name string) []string {
	return []string{envPrefix + name}
}

var gitlabFlags = []cli.Flag{
	&cli.StringFlag{Name: "gitlab-url", Usage: "GitLab base URL", EnvVars: env("GITLAB_URL")},
	&cli.StringFlag{Name: "gitlab-token", Usage: "GitLab access token", EnvVars: env("GITLAB_TOKEN")},
}

var githubFlags = []cli.Flag{
	&cli.StringFlag{Name: "github-url", Usage: "GitHub Enterprise base URL", EnvVars: env("GITHUB_URL")},
	&cli.StringFlag{
		Name:    "token",
		Aliases: []string{"t"},
		Usage:   "GitHub personal access token",
		EnvVars: env("GITHUB_TOKEN"),
	},
	&cli.StringFlag{Name: "token-file", Usage: "File with one GitHub token per line"},
	&cli.StringFlag{Name: "proxy-file", Usage: "File with one proxy per line, matched to tokens"},
}

var linkFlags = []cli.Flag{
	&cli.StringFlag{Name: "url-prefix", Usage: "System URL prefix bound into signatures", EnvVars: env("URL_PREFIX")},
	&cli.StringFlag{Name: "region-url", Usage: "Base URL of generated links (defaults to the URL prefix)", EnvVars: env("REGION_URL")},
	&cli.StringFlag{Name: "secret", Usage: "Link signing secret", EnvVars: env("SECRET")},
}

func NewApp() *cli.App {
	return &cli.App{
		Name:    "commitctx",
		Usage:   "Blame lookups, note notifications and signed links for source-control integrations",
		Version: "v" + Version(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file",
				EnvVars: env("CONFIG"),
			},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error", EnvVars: env("LOG_LEVEL")},
			&cli.StringFlag{Name: "log-format", Usage: "console or json", EnvVars: env("LOG_FORMAT")},
			&cli.StringFlag{Name: "cache", Usage: "Response cache (memory, redis, none)", EnvVars: env("CACHE")},
			&cli.StringFlag{Name: "redis-addr", Usage: "Redis address for the redis cache", EnvVars: env("REDIS_ADDR")},
			&cli.StringFlag{Name: "users-file", Usage: "YAML file of known users", EnvVars: env("USERS_FILE")},
		},
		Commands: []*cli.Command{
			blameCommand(),
			linkCommand(),
			noteCommand(),
			serveCommand(),
			tokenCommand(),
		},
		Authors: []*cli.Author{
			{Name: "gnomegl"},
		},
	}
}

func withOrchestrator(c *cli.Context, fn func(ctx context.Context, o *service.Orchestrator) error, opts ...service.Option) error {
	cfg, err := config.ParseConfig(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	o, err := service.NewOrchestrator(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	defer o.Close()

	return fn(ctx, o)
}

func blameCommand() *cli.Command {
	return &cli.Command{
		Name:      "blame",
		Usage:     "Find the latest commit touching each line",
		ArgsUsage: "<path:line>...",
		Flags: append(append([]cli.Flag{
			&cli.StringFlag{Name: "provider", Aliases: []string{"p"}, Value: "gitlab", Usage: "gitlab or github"},
			&cli.StringFlag{Name: "repo", Aliases: []string{"r"}, Usage: "Repository name (owner/name on GitHub)"},
			&cli.Int64Flag{Name: "repo-id", Usage: "Repository id used for logging"},
			&cli.StringFlag{Name: "project-id", Usage: "GitLab project id (defaults to the repository name)"},
			&cli.StringFlag{Name: "ref", Value: "HEAD", Usage: "Branch, tag or commit"},
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "YAML/JSON file listing source lines"},
			&cli.StringFlag{Name: "output-format", Aliases: []string{"o"}, Usage: "Output format (json, csv, text)"},
			&cli.BoolFlag{Name: "no-progress", Usage: "Hide the progress bar"},
		}, gitlabFlags...), githubFlags...),
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 && c.String("input") == "" {
				return cli.ShowSubcommandHelp(c)
			}

			repo := models.Repository{
				ID:       c.Int64("repo-id"),
				Name:     c.String("repo"),
				Provider: c.String("provider"),
			}
			if id := c.String("project-id"); id != "" {
				repo.Config = map[string]string{"project_id": id}
			}
			if c.NArg() > 0 && repo.Name == "" {
				return fmt.Errorf("--repo is required when lines are given")
			}

			req := service.BlameRequest{
				Repo:      repo,
				Ref:       c.String("ref"),
				Lines:     c.Args().Slice(),
				InputFile: c.String("input"),
			}
			return withOrchestrator(c, func(ctx context.Context, o *service.Orchestrator) error {
				_, err := o.Blame(ctx, req)
				return err
			}, service.WithProgress(!c.Bool("no-progress")))
		},
	}
}

func linkCommand() *cli.Command {
	return &cli.Command{
		Name:  "link",
		Usage: "Generate or check signed links",
		Subcommands: []*cli.Command{
			{
				Name:      "sign",
				Usage:     "Print a signed link to a route for a user",
				ArgsUsage: "<route> [args...]",
				Flags: append([]cli.Flag{
					&cli.Int64Flag{Name: "user", Aliases: []string{"u"}, Required: true, Usage: "User id"},
					&cli.StringFlag{Name: "referrer", Usage: "Referrer query parameter"},
					&cli.BoolFlag{Name: "named", Usage: "Arguments are key=value pairs"},
				}, linkFlags...),
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return cli.ShowSubcommandHelp(c)
					}
					req := service.SignRequest{
						UserID:   c.Int64("user"),
						View:     c.Args().First(),
						Referrer: c.String("referrer"),
						Args:     c.Args().Tail(),
						Named:    c.Bool("named"),
					}
					return withOrchestrator(c, func(_ context.Context, o *service.Orchestrator) error {
						_, err := o.SignLink(req)
						return err
					})
				},
			},
			{
				Name:      "verify",
				Usage:     "Check a signed link and print its user",
				ArgsUsage: "<url>",
				Flags: append([]cli.Flag{
					&cli.DurationFlag{Name: "max-age", Usage: "Maximum signature age (default 240h)"},
				}, linkFlags...),
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.ShowSubcommandHelp(c)
					}
					return withOrchestrator(c, func(_ context.Context, o *service.Orchestrator) error {
						_, err := o.VerifyLink(c.Args().First(), c.Duration("max-age"))
						if err != nil {
							return cli.Exit("", 1)
						}
						return nil
					})
				},
			},
		},
	}
}

func noteCommand() *cli.Command {
	return &cli.Command{
		Name:  "note",
		Usage: "Note activity notifications",
		Subcommands: []*cli.Command{{
			Name:      "render",
			Usage:     "Render the notification of a note",
			ArgsUsage: "<text>",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "author", Usage: "Author user id"},
				&cli.Int64Flag{Name: "group", Usage: "Issue group id"},
				&cli.StringFlag{Name: "project", Usage: "Project slug"},
				&cli.StringFlag{Name: "recipient", Usage: "Recipient email address"},
				&cli.StringFlag{Name: "format", Value: "chat", Usage: "chat or email"},
				&cli.StringFlag{Name: "from", Usage: "Sender address of emails", EnvVars: env("MAIL_FROM")},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return cli.ShowSubcommandHelp(c)
				}
				req := service.NoteRequest{
					Text:      c.Args().First(),
					GroupID:   c.Int64("group"),
					Project:   c.String("project"),
					Recipient: c.String("recipient"),
					Format:    c.String("format"),
				}
				if a := c.String("author"); a != "" {
					id, err := strconv.ParseInt(a, 10, 64)
					if err != nil {
						return fmt.Errorf("invalid author id %q", a)
					}
					req.AuthorID = id
				}
				return withOrchestrator(c, func(ctx context.Context, o *service.Orchestrator) error {
					return o.RenderNote(ctx, req)
				})
			},
		}},
	}
}

func serveCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "listen", Aliases: []string{"l"}, Usage: "Listen address", EnvVars: env("LISTEN")},
	}
	flags = append(flags, gitlabFlags...)
	flags = append(flags, githubFlags...)
	flags = append(flags, linkFlags...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: flags,
		Action: func(c *cli.Context) error {
			return withOrchestrator(c, func(ctx context.Context, o *service.Orchestrator) error {
				return o.Serve(ctx)
			})
		},
	}
}

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Manage the saved GitHub token",
		Subcommands: []*cli.Command{{
			Name:      "save",
			Usage:     "Save a GitHub token for later runs",
			ArgsUsage: "<token>",
			Action: func(c *cli.Context) error {
				if c.NArg() != 1 {
					return cli.ShowSubcommandHelp(c)
				}
				path, err := github.SaveToken(c.Args().First())
				if err != nil {
					return fmt.Errorf("failed to save token: %v", err)
				}
				color.Green("[+] Token saved to %s", path)
				return nil
			},
		}},
	}
}
