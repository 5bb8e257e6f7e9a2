package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/backlog/internal/library"
	"github.com/desertthunder/backlog/internal/services"
	"github.com/desertthunder/backlog/internal/shared"
	"github.com/desertthunder/backlog/internal/ui"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database and upstream client are opened on first use so commands that need neither
// (setup, help) work without credentials.
type Runner struct {
	config     *shared.Config
	catalog    services.Catalog
	db         *sql.DB
	ownsDB     bool
	service    *library.Service
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	Catalog    services.Catalog // defaults to an IGDB client built from Config
	DB         *sql.DB          // defaults to Config.Database.Path, migrated on open
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
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
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}

	return &Runner{
		config:     opts.Config,
		catalog:    opts.Catalog,
		db:         opts.DB,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, gamesCommand, libraryCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Library returns the facade, opening the database and upstream client on first call.
func (r *Runner) Library(ctx context.Context) (*library.Service, error) {
	if r.service != nil {
		return r.service, nil
	}

	if r.db == nil {
		db, err := shared.NewDatabase(r.config.Database.Path)
		if err != nil {
			return nil, err
		}
		if r.config.Database.Path != ":memory:" {
			shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
		}
		if err := shared.RunMigrations(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		r.db, r.ownsDB = db, true
	}

	if r.catalog == nil {
		catalog, err := r.newIGDBClient()
		if err != nil {
			return nil, err
		}
		r.catalog = catalog
	}

	r.service = library.NewService(library.NewStore(r.db, r.catalog, r.logger), r.logger)
	return r.service, nil
}

func (r *Runner) newIGDBClient() (*services.IGDBClient, error) {
	if err := r.config.Validate(); err != nil {
		return nil, err
	}

	igdb := r.config.Credentials.IGDB
	tokens, err := services.NewTokenManager(services.TokenManagerOpts{
		ClientID:     igdb.ClientID,
		ClientSecret: igdb.ClientSecret,
		TokenURL:     igdb.TokenURL,
		HTTPClient:   r.httpClient,
		Logger:       r.logger,
	})
	if err != nil {
		return nil, err
	}

	return services.NewIGDBClient(services.IGDBClientOpts{
		ClientID:          igdb.ClientID,
		BaseURL:           igdb.BaseURL,
		Tokens:            tokens,
		HTTPClient:        r.httpClient,
		RequestsPerSecond: igdb.RequestsPerSecond,
		Logger:            r.logger,
	})
}

// Close releases the database if the runner opened it.
func (r *Runner) Close() error {
	if r.ownsDB && r.db != nil {
		err := r.db.Close()
		r.db, r.ownsDB, r.service = nil, false, nil
		return err
	}
	return nil
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

func (r *Runner) writePlainHeader(title string) error {
	if err := r.writePlain("═══════════════════════════════════════\n"); err != nil {
		return err
	}
	if err := r.writePlain("%v\n", ui.Title(title)); err != nil {
		return err
	}
	return r.writePlain("═══════════════════════════════════════\n")
}
