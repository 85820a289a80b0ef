package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/xtrobe/internal/auth"
	"github.com/desertthunder/xtrobe/internal/catalog"
	"github.com/desertthunder/xtrobe/internal/models"
	"github.com/desertthunder/xtrobe/internal/progress"
	"github.com/desertthunder/xtrobe/internal/repositories"
	"github.com/desertthunder/xtrobe/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The catalog and document store are built on first use so that commands like `auth token`
// never touch the database.
type Runner struct {
	config       *shared.Config
	configPath   string
	configLoaded bool
	logger       *log.Logger
	output       io.Writer
	users        *auth.StaticProvider
	catalog      *catalog.Catalog
	docs         models.DocumentStore
	closer       func() error
	tracker      *progress.Tracker
	resolver     *progress.Resolver
}

// RunnerOpts contains configuration options for creating a Runner.
//
// A non-nil Config is used as is; the --config and --env-file flags are then ignored.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	Users      *auth.StaticProvider
	Catalog    *catalog.Catalog
	Docs       models.DocumentStore
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	loaded := opts.Config != nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Users == nil {
		opts.Users = auth.NewStaticProvider("")
	}

	return &Runner{
		config:       opts.Config,
		configPath:   opts.ConfigPath,
		configLoaded: loaded,
		logger:       opts.Logger,
		output:       opts.Output,
		users:        opts.Users,
		catalog:      opts.Catalog,
		docs:         opts.Docs,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, catalogCommand, progressCommand, reportCommand, authCommand, serveCommand, studyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger swaps the logger, e.g. for a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Close releases the document store if the runner opened one.
func (r *Runner) Close() error {
	if r.closer == nil {
		return nil
	}
	err := r.closer()
	r.closer = nil
	return err
}

// loadConfig reads the config file named by --config, applies the environment and validates the result.
func (r *Runner) loadConfig(cmd *cli.Command) error {
	if r.configLoaded {
		return nil
	}

	path := r.configPath
	if p := cmd.String("config"); p != "" {
		path = p
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			config, err := shared.LoadConfig(path)
			if err != nil {
				return err
			}
			r.config = config
			r.configPath = path
		} else if cmd.IsSet("config") {
			return fmt.Errorf("%w: %s", shared.ErrMissingConfig, path)
		} else {
			r.logger.Debug("config file not found, using defaults", "path", path)
		}
	}

	if err := r.config.ApplyEnv(cmd.String("env-file")); err != nil {
		return err
	}
	if err := r.config.Validate(); err != nil {
		return err
	}

	level := r.config.Log.Level
	if cmd.Bool("verbose") {
		level = "debug"
	}
	shared.SetLogLevel(r.logger, shared.ParseLevel(level))

	r.configLoaded = true
	return nil
}

// loadCatalog resolves the catalog from the config: a local file, a URL, or the bundled curriculum.
func (r *Runner) loadCatalog(ctx context.Context, cmd *cli.Command) (*catalog.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}
	if err := r.loadConfig(cmd); err != nil {
		return nil, err
	}

	var (
		c   *catalog.Catalog
		err error
	)
	switch cfg := r.config.Catalog; {
	case cfg.Path != "":
		r.logger.Debug("loading catalog", "path", cfg.Path)
		c, err = catalog.Load(cfg.Path)
	case cfg.URL != "":
		r.logger.Debug("fetching catalog", "url", cfg.URL)
		c, err = catalog.Fetch(ctx, cfg.URL, catalog.FetchOptions{})
	default:
		c = catalog.Default()
	}
	if err != nil {
		return nil, err
	}

	if err := c.CheckVersion(r.config.Catalog.MinVersion); err != nil {
		return nil, err
	}

	r.catalog = c
	return c, nil
}

// prepare builds the tracker and resolver, opening the configured document store if none was injected.
func (r *Runner) prepare(ctx context.Context, cmd *cli.Command) error {
	if r.tracker != nil {
		return nil
	}

	c, err := r.loadCatalog(ctx, cmd)
	if err != nil {
		return err
	}

	if r.docs == nil {
		store, err := repositories.Open(ctx, r.config, r.logger)
		if err != nil {
			return fmt.Errorf("failed to open progress store: %w", err)
		}
		r.docs = store
		r.closer = store.Close
	}

	store := progress.NewStore(r.docs, r.config.Store.Timeout.Duration)
	r.tracker = progress.NewTracker(c, store, r.logger)
	r.resolver = progress.NewResolver(c, store, r.logger)
	return nil
}

// currentUser signs in the --user value, when given, and returns the signed-in user.
func (r *Runner) currentUser(ctx context.Context, cmd *cli.Command) (string, error) {
	if name := cmd.String("user"); name != "" {
		r.users.SignIn(name)
	}

	userID, err := r.users.CurrentUser(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: pass --user or set XTROBE_USER", err)
	}
	return userID, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
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
	if _, err := fmt.Fprintf(r.output, format, args...); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	return r.writePlain("\n"+format+"\n", args...)
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
