package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/oracle/internal/api"
	"github.com/desertthunder/oracle/internal/auth"
	"github.com/desertthunder/oracle/internal/shared"
	"github.com/desertthunder/oracle/internal/storage"
	"github.com/desertthunder/oracle/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The client stack (storage, API client, session and task board) is built on first use by [Runner.connect],
// so commands such as setup and dev serve never open the database.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	now        func() time.Time

	durable storage.Scope
	session storage.Scope
	store   *storage.Store
	client  *api.Client
	auth    *auth.Manager
	board   *tasks.Board
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	// Durable replaces the SQLite store, i.e. with a [storage.SessionScope] in tests.
	Durable storage.Scope
	Now     func() time.Time
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		now:        opts.Now,
		durable:    opts.Durable,
	}
}

// SetLogger replaces the logger, i.e. with a file logger while the TUI owns the terminal.
//
// Must be called before [Runner.connect].
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// connect builds the client stack once.
func (r *Runner) connect() error {
	if r.client != nil {
		return nil
	}

	if r.durable == nil {
		store, err := storage.Open(r.config.Storage, r.logger)
		if err != nil {
			return err
		}
		r.store = store
		r.durable = store
		r.session = store.Session()
	}
	if r.session == nil {
		r.session = storage.NewSessionScope()
	}

	tokens := storage.NewTokenStore(r.durable)
	opts := api.OptionsFromConfig(r.config.API, tokens, r.logger)
	opts.HTTPClient = r.httpClient
	r.client = api.NewClient(opts)

	r.auth = auth.NewManager(auth.Options{
		Backend:       r.client,
		Tokens:        tokens,
		Durable:       r.durable,
		Session:       r.session,
		CheckInterval: r.config.Session.CheckInterval,
		Logger:        r.logger,
	})
	r.board = tasks.NewBoard(r.durable, r.logger, tasks.WithClock(r.now))

	r.logger.Debug("client ready", "base_url", r.client.BaseURL())
	return nil
}

// restore connects and restores the stored session. It fails when nobody is signed in.
func (r *Runner) restore(ctx context.Context) error {
	if err := r.connect(); err != nil {
		return err
	}
	if !r.auth.Init(ctx) {
		return fmt.Errorf("%w: run 'oracle auth login' first", shared.ErrAuthRequired)
	}
	return nil
}

// Close releases the store when the runner opened one.
func (r *Runner) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, apiCommand, chatCommand, tasksCommand, trainingCommand,
		statsCommand, uploadCommand, healthCommand, devCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
