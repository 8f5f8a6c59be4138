// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
		Sources: cli.EnvVars("CLIQSPOT_CONFIG"),
	}
}

func storePathFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "store-path",
		Usage:   "Refresh token file (file storage backend)",
		Sources: cli.EnvVars("TOKEN_STORE_PATH"),
	}
}

func logLevelFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level (debug, info, warn, error)",
		Sources: cli.EnvVars("LOG_LEVEL"),
	}
}

// serveCommand runs the HTTP bridge
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP service the Cliq bot calls",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "client-id",
				Usage:   "Spotify application client ID",
				Sources: cli.EnvVars("SPOTIFY_CLIENT_ID"),
			},
			&cli.StringFlag{
				Name:    "client-secret",
				Usage:   "Spotify application client secret",
				Sources: cli.EnvVars("SPOTIFY_CLIENT_SECRET"),
			},
			&cli.StringFlag{
				Name:    "redirect-uri",
				Usage:   "OAuth redirect URI registered with Spotify",
				Sources: cli.EnvVars("SPOTIFY_REDIRECT_URI"),
			},
			&cli.StringFlag{
				Name:    "base-url",
				Usage:   "Public URL of this service",
				Sources: cli.EnvVars("BASE_URL"),
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "Interface to listen on",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on",
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "cors-origin",
				Usage:   "Comma separated list of allowed browser origins",
				Sources: cli.EnvVars("ZOHO_CORS_ORIGIN"),
			},
			&cli.StringFlag{
				Name:    "bot-secret",
				Usage:   "Shared secret expected in the x-bot-secret header",
				Sources: cli.EnvVars("BOT_SHARED_SECRET"),
			},
			&cli.StringFlag{
				Name:    "env",
				Usage:   "Deployment environment; production enables secure cookies",
				Sources: cli.EnvVars("NODE_ENV"),
			},
			storePathFlag(),
			logLevelFlag(),
		},
		Action: r.Serve,
	}
}

// usersCommand manages enrolled users
func usersCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "users",
		Usage: "Inspect and manage enrolled Spotify users",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List users with a stored refresh token",
				Flags: []cli.Flag{
					configFlag(),
					storePathFlag(),
					logLevelFlag(),
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.UsersList,
			},
			{
				Name:  "remove",
				Usage: "Delete a user's refresh token",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "userId",
					},
				},
				Flags: []cli.Flag{
					configFlag(),
					storePathFlag(),
					logLevelFlag(),
				},
				Action: r.UsersRemove,
			},
		},
	}
}

// setupCommand prepares configuration and storage
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create configuration and initialize storage",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write a config.toml template",
				Flags: []cli.Flag{
					configFlag(),
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize the sqlite token store and run migrations",
				Flags: []cli.Flag{
					configFlag(),
					logLevelFlag(),
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}
