// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func outputFlags() []cli.Flag {
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

func userFlag() cli.Flag {
	return &cli.Int64Flag{
		Name:     "user",
		Aliases:  []string{"u"},
		Usage:    "Library owner's user id",
		Required: true,
	}
}

func idFlag(usage string) cli.Flag {
	return &cli.Int64Flag{
		Name:     "id",
		Usage:    usage,
		Required: true,
	}
}

func platformFlag(usage string) cli.Flag {
	return &cli.Int64Flag{
		Name:    "platform",
		Aliases: []string{"p"},
		Usage:   usage,
	}
}

func setupCommand(r *Runner) *cli.Command {
	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}

	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and database",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Create config.toml if missing and run migrations",
				Flags:  []cli.Flag{configFlag},
				Action: r.SetupDatabase,
			},
			{
				Name:   "status",
				Usage:  "Show applied and pending migrations",
				Flags:  []cli.Flag{configFlag},
				Action: r.SetupStatus,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Flags:  []cli.Flag{configFlag},
				Action: r.SetupRollback,
			},
		},
	}
}

// gamesCommand handles catalog lookups
func gamesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "games",
		Usage: "Search and inspect the IGDB catalog",
		Commands: []*cli.Command{
			{
				Name:  "search",
				Usage: "Search games by name",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "query",
						Aliases:  []string{"q"},
						Usage:    "Name to search for",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results (1-50)",
						Value: 10,
					},
				}, outputFlags()...),
				Action: r.GamesSearch,
			},
			{
				Name:   "show",
				Usage:  "Show one game's details (cached after the first lookup)",
				Flags:  append([]cli.Flag{idFlag("IGDB game id")}, outputFlags()...),
				Action: r.GamesShow,
			},
		},
	}
}

// libraryCommand handles a user's saved games
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Manage a user's game library",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Add a game to the library",
				Flags: append([]cli.Flag{
					userFlag(),
					idFlag("IGDB game id"),
					platformFlag("Platform id the game is owned on"),
				}, outputFlags()...),
				Action: r.LibraryAdd,
			},
			{
				Name:  "list",
				Usage: "List library entries in the order they were added",
				Flags: append([]cli.Flag{
					userFlag(),
					&cli.IntFlag{
						Name:  "page",
						Usage: "Page number, starting at 1",
						Value: 1,
					},
					&cli.IntFlag{
						Name:  "page-size",
						Usage: "Entries per page (1-100)",
						Value: 20,
					},
				}, outputFlags()...),
				Action: r.LibraryList,
			},
			{
				Name:   "show",
				Usage:  "Show a user's entries for one game",
				Flags:  append([]cli.Flag{userFlag(), idFlag("IGDB game id")}, outputFlags()...),
				Action: r.LibraryShow,
			},
			{
				Name:  "remove",
				Usage: "Remove a game from the library",
				Flags: []cli.Flag{
					userFlag(),
					idFlag("IGDB game id"),
					platformFlag("Platform id of the entry; omit for the entry without a platform"),
				},
				Action: r.LibraryRemove,
			},
			{
				Name:  "export",
				Usage: "Export the whole library to a file",
				Flags: []cli.Flag{
					userFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: csv, markdown, text, json",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file (directory for markdown)",
					},
					&cli.BoolFlag{
						Name:  "covers",
						Usage: "Download cover images (markdown only)",
					},
				},
				Action: r.LibraryExport,
			},
		},
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the library HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Address to bind (defaults to [server] host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on (defaults to [server] port)",
			},
		},
		Action: r.Serve,
	}
}
