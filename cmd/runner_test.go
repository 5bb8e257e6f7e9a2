package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/backlog/internal/models"
	"github.com/desertthunder/backlog/internal/shared"
	tu "github.com/desertthunder/backlog/internal/testing"
	"github.com/urfave/cli/v3"
)

func memoryConfig() *shared.Config {
	config := shared.DefaultConfig()
	config.Database.Path = ":memory:"
	return config
}

// newTestRunner returns a runner backed by an in-memory database and a mock catalog.
func newTestRunner(t *testing.T, items ...models.CatalogItem) (*Runner, *tu.MockCatalog, *bytes.Buffer) {
	t.Helper()
	catalog := tu.NewMockCatalog(items...)
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:  memoryConfig(),
		Catalog: catalog,
		Logger:  shared.DiscardLogger(),
		Output:  output,
	})
	t.Cleanup(func() { runner.Close() })
	return runner, catalog, output
}

func run(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	app := &cli.Command{
		Name:      "backlog",
		Commands:  r.register(),
		Writer:    io.Discard,
		ErrWriter: io.Discard,
	}
	return app.Run(context.Background(), append([]string{"backlog"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			catalog := tu.NewMockCatalog()

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Catalog:    catalog,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.catalog != catalog {
				t.Error("expected catalog to be set")
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.httpClient == nil || runner.httpClient.Timeout == 0 {
				t.Error("expected an http client with a timeout")
			}
			if runner.service != nil || runner.db != nil {
				t.Error("expected database and service to be opened lazily")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("writePlainln surrounds text with newlines", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlainln("%d games", 3); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "\n3 games\n" {
				t.Errorf("got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			if err := runner.writePlain("test"); err == nil {
				t.Fatal("expected error from failing writer")
			}
			if err := runner.writePlainHeader("title"); err == nil {
				t.Fatal("expected header error from failing writer")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		want := []string{"setup", "games", "library", "serve"}
		if len(commands) != len(want) {
			t.Fatalf("expected %d commands, got %d", len(want), len(commands))
		}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			if cmd.Name != want[i] {
				t.Errorf("command %d: expected %s, got %s", i, want[i], cmd.Name)
			}
		}
	})

	t.Run("Library", func(t *testing.T) {
		t.Run("opens once and reuses the service", func(t *testing.T) {
			runner, _, _ := newTestRunner(t)

			first, err := runner.Library(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			second, err := runner.Library(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if first != second {
				t.Error("expected the same service on second call")
			}
			if !runner.ownsDB {
				t.Error("expected runner to own the database it opened")
			}
		})

		t.Run("requires credentials without an injected catalog", func(t *testing.T) {
			config := memoryConfig()
			config.Credentials.IGDB.ClientID = ""
			runner := NewRunner(RunnerOpts{Config: config, Logger: shared.DiscardLogger()})
			defer runner.Close()

			_, err := runner.Library(context.Background())
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("token failure surfaces as upstream auth", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{
				Config:     memoryConfig(),
				Logger:     shared.DiscardLogger(),
				Output:     &bytes.Buffer{},
				HTTPClient: &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))},
			})
			defer runner.Close()

			err := run(t, runner, "games", "search", "-q", "doom")
			if !errors.Is(err, shared.ErrUpstreamAuth) {
				t.Errorf("expected ErrUpstreamAuth, got %v", err)
			}
		})

		t.Run("Close releases an owned database", func(t *testing.T) {
			runner, _, _ := newTestRunner(t)
			if _, err := runner.Library(context.Background()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if err := runner.Close(); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if runner.db != nil || runner.service != nil {
				t.Error("expected database and service to be cleared")
			}
		})
	})
}

func TestGamesCommands(t *testing.T) {
	doom := tu.Game(7, "Doom")
	quake := tu.Game(8, "Quake")

	t.Run("search prints results", func(t *testing.T) {
		runner, catalog, output := newTestRunner(t, doom, quake)

		if err := run(t, runner, "games", "search", "-q", "doom", "--limit", "5"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if catalog.SearchCalls() != 1 {
			t.Errorf("expected 1 search call, got %d", catalog.SearchCalls())
		}
		if !strings.Contains(output.String(), "Doom") || !strings.Contains(output.String(), "Quake") {
			t.Errorf("expected both games in output, got %q", output.String())
		}
	})

	t.Run("search rejects an out of range limit", func(t *testing.T) {
		runner, catalog, _ := newTestRunner(t, doom)

		err := run(t, runner, "games", "search", "-q", "doom", "--limit", "51")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if catalog.SearchCalls() != 0 {
			t.Error("expected no upstream call")
		}
	})

	t.Run("search requires a query", func(t *testing.T) {
		runner, _, _ := newTestRunner(t)
		if err := run(t, runner, "games", "search"); err == nil {
			t.Error("expected missing flag error")
		}
	})

	t.Run("show caches the detail", func(t *testing.T) {
		runner, catalog, output := newTestRunner(t, doom)

		for range 2 {
			if err := run(t, runner, "games", "show", "--id", "7"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if catalog.GetCalls() != 1 {
			t.Errorf("expected 1 upstream lookup, got %d", catalog.GetCalls())
		}
		if !strings.Contains(output.String(), "PC (Microsoft Windows)") {
			t.Errorf("expected platform in output, got %q", output.String())
		}
	})

	t.Run("show as JSON", func(t *testing.T) {
		runner, _, output := newTestRunner(t, doom)

		if err := run(t, runner, "games", "show", "--id", "7", "--json"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), `"name":"Doom"`) {
			t.Errorf("expected JSON item, got %q", output.String())
		}
	})

	t.Run("show unknown game", func(t *testing.T) {
		runner, _, _ := newTestRunner(t)

		err := run(t, runner, "games", "show", "--id", "99")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestLibraryCommands(t *testing.T) {
	doom := tu.Game(7, "Doom")

	t.Run("add list show remove", func(t *testing.T) {
		runner, _, output := newTestRunner(t, doom)

		if err := run(t, runner, "library", "add", "-u", "1", "--id", "7"); err != nil {
			t.Fatalf("add: %v", err)
		}
		if err := run(t, runner, "lib", "add", "-u", "1", "--id", "7", "-p", "6"); err != nil {
			t.Fatalf("add with platform: %v", err)
		}
		if !strings.Contains(output.String(), "Doom (7) on PC (Microsoft Windows)") {
			t.Errorf("expected platform name in output, got %q", output.String())
		}

		err := run(t, runner, "library", "add", "-u", "1", "--id", "7")
		if !errors.Is(err, shared.ErrDuplicateEntry) {
			t.Errorf("expected ErrDuplicateEntry, got %v", err)
		}

		output.Reset()
		if err := run(t, runner, "library", "list", "-u", "1"); err != nil {
			t.Fatalf("list: %v", err)
		}
		if !strings.Contains(output.String(), "2 games") {
			t.Errorf("expected total in listing, got %q", output.String())
		}

		output.Reset()
		if err := run(t, runner, "library", "show", "-u", "1", "--id", "7"); err != nil {
			t.Fatalf("show: %v", err)
		}
		if !strings.Contains(output.String(), "any platform") {
			t.Errorf("expected unqualified entry, got %q", output.String())
		}

		output.Reset()
		if err := run(t, runner, "library", "remove", "-u", "1", "--id", "7", "-p", "6"); err != nil {
			t.Fatalf("remove: %v", err)
		}
		if !strings.Contains(output.String(), "removed game 7") {
			t.Errorf("expected removal message, got %q", output.String())
		}

		output.Reset()
		if err := run(t, runner, "library", "remove", "-u", "1", "--id", "7", "-p", "6"); err != nil {
			t.Fatalf("second remove: %v", err)
		}
		if !strings.Contains(output.String(), "no matching entry") {
			t.Errorf("expected warning, got %q", output.String())
		}
	})

	t.Run("list rejects page size over the maximum", func(t *testing.T) {
		runner, _, _ := newTestRunner(t)

		err := run(t, runner, "library", "list", "-u", "1", "--page-size", "101")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("show without entries", func(t *testing.T) {
		runner, _, _ := newTestRunner(t, doom)

		err := run(t, runner, "library", "show", "-u", "1", "--id", "7")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("export", func(t *testing.T) {
		runner, _, output := newTestRunner(t, doom, tu.Game(8, "Quake"))
		dir := t.TempDir()

		for _, id := range []string{"7", "8"} {
			if err := run(t, runner, "library", "add", "-u", "1", "--id", id); err != nil {
				t.Fatalf("add %s: %v", id, err)
			}
		}

		csvPath := filepath.Join(dir, "library.csv")
		if err := run(t, runner, "library", "export", "-u", "1", "-o", csvPath); err != nil {
			t.Fatalf("csv export: %v", err)
		}
		tu.AssertFileExists(t, csvPath)
		content := tu.MustReadFile(t, csvPath)
		if !strings.Contains(content, "Doom") || !strings.Contains(content, "Quake") {
			t.Errorf("expected both games in export, got %q", content)
		}

		jsonPath := filepath.Join(dir, "library.json")
		if err := run(t, runner, "library", "export", "-u", "1", "-f", "json", "-o", jsonPath); err != nil {
			t.Fatalf("json export: %v", err)
		}
		if !strings.Contains(tu.MustReadFile(t, jsonPath), `"user_id": 1`) {
			t.Error("expected user id in JSON export")
		}

		mdDir := filepath.Join(dir, "md")
		if err := run(t, runner, "library", "export", "-u", "1", "-f", "md", "-o", mdDir); err != nil {
			t.Fatalf("markdown export: %v", err)
		}
		if !strings.Contains(output.String(), mdDir) {
			t.Errorf("expected markdown path in output, got %q", output.String())
		}
	})

	t.Run("export rejects unknown format", func(t *testing.T) {
		runner, _, _ := newTestRunner(t)

		if err := run(t, runner, "library", "export", "-u", "1", "-f", "xml"); err == nil {
			t.Error("expected unknown format error")
		}
	})
}

func TestSetupCommands(t *testing.T) {
	dir := t.TempDir()
	wd := tu.MustGetwd(t)
	tu.MustChdir(t, dir)
	t.Cleanup(func() { tu.MustChdir(t, wd) })

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Logger: shared.DiscardLogger(), Output: output})

	t.Run("database creates config and schema", func(t *testing.T) {
		if err := run(t, runner, "setup", "database"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "config.toml"))
		tu.AssertFileExists(t, filepath.Join(dir, "backlog.db"))
		if !strings.Contains(output.String(), "database ready") {
			t.Errorf("expected ready message, got %q", output.String())
		}
	})

	t.Run("status lists applied migrations", func(t *testing.T) {
		output.Reset()
		if err := run(t, runner, "setup", "status"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "applied") {
			t.Errorf("expected applied migrations, got %q", output.String())
		}
	})

	t.Run("rollback then status shows pending", func(t *testing.T) {
		if err := run(t, runner, "setup", "rollback"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		output.Reset()
		if err := run(t, runner, "setup", "status"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(output.String(), "pending") {
			t.Errorf("expected a pending migration, got %q", output.String())
		}
	})
}
