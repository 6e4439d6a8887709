// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/oracle/internal/models"
	"github.com/urfave/cli/v3"
)

// setupCommand handles setup operations for configuration and storage.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write the default configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Create the storage database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles account and session operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage your Oracle account session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with email and password",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Account email", Required: true},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Account password", Required: true},
					&cli.BoolFlag{Name: "remember", Usage: "Remember this device"},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "register",
				Usage: "Create an account and sign in",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Full name", Required: true},
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Account email", Required: true},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Account password", Required: true},
				},
				Action: r.AuthRegister,
			},
			{
				Name:   "demo",
				Usage:  "Start a demo session",
				Action: r.AuthDemo,
			},
			{
				Name:   "logout",
				Usage:  "Sign out and forget the stored token",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show who is signed in",
				Action: r.AuthStatus,
			},
			{
				Name:   "verify",
				Usage:  "Verify the stored token with the API",
				Action: r.AuthVerify,
			},
			{
				Name:  "reset",
				Usage: "Request a password reset email",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Account email", Required: true},
				},
				Action: r.AuthReset,
			},
		},
	}
}

// apiCommand handles direct API calls
func apiCommand(r *Runner) *cli.Command {
	bodyFlag := func() cli.Flag {
		return &cli.StringFlag{
			Name:    "data",
			Aliases: []string{"d"},
			Usage:   "JSON body to send",
		}
	}
	return &cli.Command{
		Name:  "api",
		Usage: "Direct API calls with the stored token",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Direct GET, prints the JSON response",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
					},
				},
				Action: r.APIGet,
			},
			{
				Name:      "post",
				Usage:     "Direct POST with a JSON body",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags:     []cli.Flag{bodyFlag()},
				Action:    r.APIPost,
			},
			{
				Name:      "put",
				Usage:     "Direct PUT with a JSON body",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags:     []cli.Flag{bodyFlag()},
				Action:    r.APIPut,
			},
			{
				Name:      "delete",
				Usage:     "Direct DELETE",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Action:    r.APIDelete,
			},
		},
	}
}

// chatCommand talks to the coach personas
func chatCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Chat with an AI coach",
		Commands: []*cli.Command{
			{
				Name:      "send",
				Usage:     "Send a message and print the reply",
				Arguments: []cli.Argument{&cli.StringArg{Name: "message"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "coach", Usage: "Coach persona", Value: models.DefaultCoach},
					&cli.StringFlag{Name: "session", Usage: "Chat session id (default: a new one)"},
					&cli.BoolFlag{Name: "raw", Usage: "Print the reply Markdown unrendered"},
				},
				Action: r.ChatSend,
			},
			{
				Name:  "history",
				Usage: "Print the recent conversation",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "session", Usage: "Only this chat session"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum number of messages", Value: 50},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.ChatHistory,
			},
			{
				Name:   "personas",
				Usage:  "List the coach personas",
				Action: r.ChatPersonas,
			},
		},
	}
}

// tasksCommand manages the local training task board
func tasksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tasks",
		Usage: "Manage training tasks",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List tasks on the board",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "status", Usage: "Filter by status (pending, in_progress, completed, blocked)"},
					&cli.StringFlag{Name: "priority", Usage: "Filter by priority (high, medium, low)"},
					&cli.StringFlag{Name: "category", Usage: "Filter by category"},
					&cli.StringFlag{Name: "sort", Usage: "Sort by priority, dueDate, created or category", Value: "priority"},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.TasksList,
			},
			{
				Name:  "export",
				Usage: "Export tasks to a file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "json, csv, markdown or txt", Value: "json"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file path (default: boxing_tasks.<ext>)"},
				},
				Action: r.TasksExport,
			},
			{
				Name:  "bulk-status",
				Usage: "Set the status of several tasks",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "status", Usage: "New status", Required: true},
					&cli.StringSliceFlag{Name: "id", Usage: "Task id (repeatable)", Required: true},
				},
				Action: r.TasksBulkStatus,
			},
			{
				Name:  "sync",
				Usage: "Push the board to the API, or pull it with --pull",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "pull", Usage: "Merge server tasks into the board instead"},
					&cli.IntFlag{Name: "workers", Usage: "Concurrent workers", Value: 4},
					&cli.FloatFlag{Name: "rate", Usage: "Requests per second", Value: 5},
				},
				Action: r.TasksSync,
			},
		},
	}
}

// trainingCommand manages training sessions
func trainingCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "training",
		Usage: "Start, end and inspect training sessions",
		Commands: []*cli.Command{
			{
				Name:  "start",
				Usage: "Start a training session",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "technique, conditioning, sparring or mixed", Value: "technique"},
					&cli.IntFlag{Name: "duration", Aliases: []string{"d"}, Usage: "Planned minutes", Value: 30},
				},
				Action: r.TrainingStart,
			},
			{
				Name:      "end",
				Usage:     "End a training session",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "technique", Usage: "Technique practiced (repeatable)"},
				},
				Action: r.TrainingEnd,
			},
			{
				Name:      "show",
				Usage:     "Show a training session",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.TrainingShow,
			},
		},
	}
}

// statsCommand prints the signed-in user's totals
func statsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show your training stats and recent sessions",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
		},
		Action: r.Stats,
	}
}

// uploadCommand handles file uploads
func uploadCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "upload",
		Usage: "Upload files for analysis",
		Commands: []*cli.Command{
			{
				Name:      "video",
				Usage:     "Upload a training video",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Usage: "Video title"},
					&cli.StringFlag{Name: "type", Usage: "Training type shown in the video"},
				},
				Action: r.UploadVideo,
			},
		},
	}
}

// healthCommand checks the API
func healthCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "health",
		Usage:  "Check the API health endpoint",
		Action: r.Health,
	}
}

// devCommand runs the local development API
func devCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "dev",
		Usage: "Local development tools",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the in-memory development API",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "host", Usage: "Listen host (default: dev.host)"},
					&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Listen port (default: dev.port)"},
				},
				Action: r.DevServe,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive training client",
		Action:  r.TUI,
	}
}
