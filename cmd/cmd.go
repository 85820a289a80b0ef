// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
		},
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Prepare local configuration and storage",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Create the config file if missing, then run database migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
					&cli.BoolFlag{
						Name:  "status",
						Usage: "List migrations and whether they are applied",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// catalogCommand inspects curriculum catalogs
func catalogCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "catalog",
		Aliases: []string{"cat"},
		Usage:   "Inspect the curriculum catalog",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List modules in catalog order",
				Flags:  jsonFlags(),
				Action: r.CatalogList,
			},
			{
				Name:      "show",
				Usage:     "Show a module and its submodules",
				ArgsUsage: "<slug>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "slug"},
				},
				Flags:  jsonFlags(),
				Action: r.CatalogShow,
			},
			{
				Name:      "validate",
				Usage:     "Validate a catalog file or URL",
				ArgsUsage: "<path|url>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "source"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "min-version",
						Usage: "Minimum catalog version to accept (default: catalog.min_version)",
					},
				},
				Action: r.CatalogValidate,
			},
		},
	}
}

// progressCommand reads and moves the signed-in user's position
func progressCommand(r *Runner) *cli.Command {
	slugArg := func() []cli.Argument {
		return []cli.Argument{&cli.StringArg{Name: "slug"}}
	}

	return &cli.Command{
		Name:    "progress",
		Aliases: []string{"p"},
		Usage:   "Read and update study progress",
		Commands: []*cli.Command{
			{
				Name:      "enter",
				Usage:     "Open a module at the saved position",
				ArgsUsage: "<slug>",
				Arguments: slugArg(),
				Flags:     jsonFlags(),
				Action:    r.ProgressEnter,
			},
			{
				Name:      "next",
				Usage:     "Mark the current submodule read and move on",
				ArgsUsage: "<slug>",
				Arguments: slugArg(),
				Flags: append(jsonFlags(),
					&cli.IntFlag{
						Name:    "index",
						Aliases: []string{"i"},
						Usage:   "Submodule being read (default: the saved position)",
					},
				),
				Action: r.ProgressNext,
			},
			{
				Name:      "jump",
				Usage:     "Start a module over from its first submodule",
				ArgsUsage: "<slug>",
				Arguments: slugArg(),
				Flags:     jsonFlags(),
				Action:    r.ProgressJump,
			},
			{
				Name:   "resume",
				Usage:  "Show where continuing would land",
				Flags:  jsonFlags(),
				Action: r.ProgressResume,
			},
			{
				Name:  "show",
				Usage: "Show progress across all modules",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: txt, markdown, csv or json",
						Value:   "txt",
					},
				},
				Action: r.ProgressShow,
			},
		},
	}
}

// reportCommand exports progress reports
func reportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Export progress reports",
		Commands: []*cli.Command{
			{
				Name:  "export",
				Usage: "Write one report per user plus a manifest",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "users",
						Usage: "Users to export (default: the signed-in user)",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Report format: json, csv, markdown or txt",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: progress_reports_{timestamp})",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent report writers (max 10)",
						Value: 4,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Progress reads per second",
						Value: 10,
					},
				},
				Action: r.ReportExport,
			},
		},
	}
}

// authCommand handles identities and API tokens
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Identity and API token operations",
		Commands: []*cli.Command{
			{
				Name:   "whoami",
				Usage:  "Print the signed-in user",
				Action: r.AuthWhoami,
			},
			{
				Name:  "token",
				Usage: "Issue a bearer token for the HTTP API",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "ttl",
						Usage: "Token lifetime (default: auth.token_ttl)",
					},
				},
				Action: r.AuthToken,
			},
		},
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default: server.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (default: server.port)",
			},
		},
		Action: r.Serve,
	}
}

// studyCommand launches the interactive reader
func studyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "study",
		Aliases: []string{"tui"},
		Usage:   "Launch the interactive reader",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "module",
				Aliases: []string{"m"},
				Usage:   "Open this module on start",
			},
			&cli.BoolFlag{
				Name:  "continue",
				Usage: "Open the resume position on start",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where logs go while the reader owns the terminal",
				Value: "./tmp/xtrobe-study.log",
			},
		},
		Action: r.Study,
	}
}
