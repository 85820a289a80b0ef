package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/xtrobe/internal/auth"
	"github.com/desertthunder/xtrobe/internal/catalog"
	"github.com/desertthunder/xtrobe/internal/models"
	"github.com/desertthunder/xtrobe/internal/progress"
	"github.com/desertthunder/xtrobe/internal/repositories"
	"github.com/desertthunder/xtrobe/internal/shared"
	"github.com/desertthunder/xtrobe/internal/tasks"
	tu "github.com/desertthunder/xtrobe/internal/testing"
	"github.com/urfave/cli/v3"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New("1.0.0", []models.Module{
		{ID: 0, Title: "Stars", Submodules: []models.Submodule{
			{Title: "Birth", Content: "Nebulae collapse."},
			{Title: "Death", Content: "Supernovae scatter."},
		}},
		{ID: 1, Title: "Planets", Submodules: []models.Submodule{{Title: "Orbits", Content: "Ellipses."}}},
	})
	if err != nil {
		t.Fatalf("failed to build catalog: %v", err)
	}
	return c
}

// newTestRunner returns a runner over an in-memory store and the buffer it writes to.
func newTestRunner(t *testing.T) (*Runner, *bytes.Buffer) {
	t.Helper()
	t.Setenv("XTROBE_USER", "")

	config := shared.DefaultConfig()
	config.Store.Backend = "memory"
	config.Auth.JWTSecret = "test-secret"

	output := &bytes.Buffer{}
	return NewRunner(RunnerOpts{
		Config:  config,
		Logger:  shared.NewLogger(io.Discard),
		Output:  output,
		Catalog: testCatalog(t),
		Docs:    repositories.NewMemoryDocumentStore(),
	}), output
}

func runApp(r *Runner, args ...string) error {
	app := &cli.Command{
		Name:      "xtrobe",
		Flags:     globalFlags(),
		Commands:  r.register(),
		Writer:    io.Discard,
		ErrWriter: io.Discard,
	}
	return app.Run(context.Background(), append([]string{"xtrobe"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			users := auth.NewStaticProvider("ada")
			c := testCatalog(t)
			docs := repositories.NewMemoryDocumentStore()

			runner := NewRunner(RunnerOpts{
				Config:  config,
				Logger:  logger,
				Output:  output,
				Users:   users,
				Catalog: c,
				Docs:    docs,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if !runner.configLoaded {
				t.Error("expected injected config to count as loaded")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.users != users {
				t.Error("expected users to be set")
			}
			if runner.catalog != c {
				t.Error("expected catalog to be set")
			}
			if runner.docs != docs {
				t.Error("expected docs to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.configLoaded {
				t.Error("default config should still be loaded from flags")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil users starts signed out", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if _, err := runner.users.CurrentUser(context.Background()); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/test/path/config.toml"})

			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
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

		t.Run("writePlainln wraps in newlines", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			runner.writePlainln("done %d", 3)
			if output.String() != "\ndone 3\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := make([]string, 0, len(commands))
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names = append(names, cmd.Name)
		}

		want := "setup catalog progress report auth serve study"
		if got := strings.Join(names, " "); got != want {
			t.Errorf("expected commands %q, got %q", want, got)
		}
	})

	t.Run("Close", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		if err := runner.Close(); err != nil {
			t.Errorf("closing an unopened runner should be a no-op, got %v", err)
		}

		closed := 0
		runner.closer = func() error { closed++; return nil }
		runner.Close()
		runner.Close()
		if closed != 1 {
			t.Errorf("expected store to close once, closed %d times", closed)
		}
	})
}

func TestCatalogCommands(t *testing.T) {
	t.Run("List", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := runApp(runner, "catalog", "list"); err != nil {
			t.Fatalf("catalog list failed: %v", err)
		}

		result := output.String()
		if !strings.Contains(result, "Catalog (v1.0.0, 2 modules)") {
			t.Errorf("missing catalog header, got %s", result)
		}
		if !strings.Contains(result, "planets") {
			t.Errorf("missing planets slug, got %s", result)
		}
	})

	t.Run("ListJSON", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := runApp(runner, "catalog", "list", "--json"); err != nil {
			t.Fatalf("catalog list failed: %v", err)
		}

		var entries []catalog.Entry
		if err := json.Unmarshal(output.Bytes(), &entries); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(entries) != 2 || entries[0].Slug != "stars" {
			t.Errorf("unexpected entries %+v", entries)
		}
	})

	t.Run("Show", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := runApp(runner, "catalog", "show", "stars"); err != nil {
			t.Fatalf("catalog show failed: %v", err)
		}
		if !strings.Contains(output.String(), " 2. Death") {
			t.Errorf("missing submodule list, got %s", output.String())
		}
	})

	t.Run("ShowErrors", func(t *testing.T) {
		runner, _ := newTestRunner(t)

		if err := runApp(runner, "catalog", "show"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if err := runApp(runner, "catalog", "show", "comets"); !errors.Is(err, shared.ErrModuleNotFound) {
			t.Errorf("expected ErrModuleNotFound, got %v", err)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "catalog.json")
		doc := `{"version": "1.2.0", "modules": [{"id": 0, "title": "Stars", "submodules": [{"title": "Birth"}]}]}`
		if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
			t.Fatal(err)
		}

		t.Run("valid file", func(t *testing.T) {
			runner, output := newTestRunner(t)

			if err := runApp(runner, "catalog", "validate", path); err != nil {
				t.Fatalf("catalog validate failed: %v", err)
			}
			if !strings.Contains(output.String(), "1 modules, version 1.2.0") {
				t.Errorf("unexpected output %s", output.String())
			}
		})

		t.Run("too old", func(t *testing.T) {
			runner, _ := newTestRunner(t)

			err := runApp(runner, "catalog", "validate", "--min-version", "2.0.0", path)
			if !errors.Is(err, shared.ErrIncompatibleCatalog) {
				t.Errorf("expected ErrIncompatibleCatalog, got %v", err)
			}
		})

		t.Run("missing source", func(t *testing.T) {
			runner, _ := newTestRunner(t)

			if err := runApp(runner, "catalog", "validate"); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})
	})
}

func TestProgressCommands(t *testing.T) {
	t.Run("RequiresUser", func(t *testing.T) {
		runner, _ := newTestRunner(t)

		if err := runApp(runner, "progress", "enter", "stars"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("UserFromEnv", func(t *testing.T) {
		runner, output := newTestRunner(t)
		t.Setenv("XTROBE_USER", "grace")

		if err := runApp(runner, "auth", "whoami"); err != nil {
			t.Fatalf("auth whoami failed: %v", err)
		}
		if output.String() != "grace\n" {
			t.Errorf("expected grace, got %q", output.String())
		}
	})

	t.Run("StudyFlow", func(t *testing.T) {
		runner, output := newTestRunner(t)
		run := func(args ...string) string {
			t.Helper()
			output.Reset()
			if err := runApp(runner, append([]string{"--user", "ada"}, args...)...); err != nil {
				t.Fatalf("%v failed: %v", args, err)
			}
			return output.String()
		}

		if got := run("progress", "enter", "stars"); !strings.Contains(got, "Submodule 1/2: Birth") {
			t.Fatalf("enter should open the first submodule, got %s", got)
		}

		got := run("progress", "next", "stars")
		if !strings.Contains(got, "Submodule 2/2: Death") || !strings.Contains(got, "50% (1/2)") {
			t.Fatalf("next should move to Death at 50%%, got %s", got)
		}

		if got := run("progress", "next", "stars"); !strings.Contains(got, "Finished Stars. Next up: planets") {
			t.Fatalf("finishing stars should move to planets, got %s", got)
		}

		var target progress.ResumeTarget
		if err := json.Unmarshal([]byte(run("progress", "resume", "--json")), &target); err != nil {
			t.Fatalf("invalid resume JSON: %v", err)
		}
		if target.Slug != "planets" || target.SubmoduleIndex != 0 {
			t.Errorf("expected resume at planets/0, got %+v", target)
		}

		if got := run("progress", "next", "--index", "0", "planets"); !strings.Contains(got, "end of the curriculum") {
			t.Errorf("last submodule should finish the curriculum, got %s", got)
		}

		if got := run("progress", "show", "--format", "csv"); !strings.Contains(got, "0,Stars,stars,2,2,100,true") {
			t.Errorf("overview missing finished stars row, got %s", got)
		}

		got = run("progress", "jump", "stars")
		if !strings.Contains(got, "Submodule 1/2: Birth") || !strings.Contains(got, "100% (2/2)") {
			t.Errorf("jump should restart at Birth and keep completion, got %s", got)
		}
	})

	t.Run("NextJSON", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := runApp(runner, "--user", "ada", "progress", "next", "--json", "stars"); err != nil {
			t.Fatalf("progress next failed: %v", err)
		}

		var out struct {
			Outcome struct {
				Kind string `json:"kind"`
			} `json:"outcome"`
			Session progress.Session `json:"session"`
		}
		if err := json.Unmarshal(output.Bytes(), &out); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if out.Session.SubmoduleIndex != 1 || out.Session.Completed != 1 {
			t.Errorf("unexpected session %+v", out.Session)
		}
	})

	t.Run("ShowUnknownFormat", func(t *testing.T) {
		runner, _ := newTestRunner(t)

		err := runApp(runner, "--user", "ada", "progress", "show", "--format", "pdf")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("UnknownModule", func(t *testing.T) {
		runner, _ := newTestRunner(t)

		err := runApp(runner, "--user", "ada", "progress", "jump", "comets")
		if !errors.Is(err, shared.ErrModuleNotFound) {
			t.Errorf("expected ErrModuleNotFound, got %v", err)
		}
	})
}

func TestReportExport(t *testing.T) {
	runner, output := newTestRunner(t)
	dir := filepath.Join(t.TempDir(), "reports")

	err := runApp(runner, "report", "export",
		"--users", "ada", "--users", "grace",
		"--format", "txt", "--output", dir, "--rate", "100")
	if err != nil {
		t.Fatalf("report export failed: %v", err)
	}

	tu.AssertFileExists(t, filepath.Join(dir, "ada_progress.txt"))
	tu.AssertFileExists(t, filepath.Join(dir, "grace_progress.txt"))
	tu.AssertFileExists(t, filepath.Join(dir, tasks.ManifestName))

	if !strings.Contains(output.String(), "2 exported, 0 failed") {
		t.Errorf("missing summary, got %s", output.String())
	}
}

func TestAuthToken(t *testing.T) {
	t.Run("IssuesVerifiableToken", func(t *testing.T) {
		runner, output := newTestRunner(t)

		if err := runApp(runner, "--user", "ada", "auth", "token", "--ttl", "1h"); err != nil {
			t.Fatalf("auth token failed: %v", err)
		}

		tokens, err := auth.NewTokenProvider("test-secret", runner.config.Auth.Issuer, 0)
		if err != nil {
			t.Fatal(err)
		}
		userID, err := tokens.Verify(strings.TrimSpace(output.String()))
		if err != nil {
			t.Fatalf("issued token did not verify: %v", err)
		}
		if userID != "ada" {
			t.Errorf("expected subject ada, got %s", userID)
		}
	})

	t.Run("ExplicitConfigMustExist", func(t *testing.T) {
		t.Setenv("XTROBE_USER", "")
		runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: &bytes.Buffer{}})
		missing := filepath.Join(t.TempDir(), "missing.toml")

		err := runApp(runner, "--config", missing, "--user", "ada", "auth", "token")
		if !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("RequiresSecret", func(t *testing.T) {
		runner, _ := newTestRunner(t)
		runner.config.Auth.JWTSecret = ""

		if err := runApp(runner, "--user", "ada", "auth", "token"); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestSetupDatabase(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")

	runner, output := newTestRunner(t)
	runner.config.Database.Driver = "sqlite"
	runner.config.Database.Path = filepath.Join(dir, "xtrobe.db")

	if err := runApp(runner, "--config", configPath, "setup", "database"); err != nil {
		t.Fatalf("setup database failed: %v", err)
	}

	tu.AssertFileExists(t, configPath)
	tu.AssertFileExists(t, runner.config.Database.Path)

	if err := runApp(runner, "--config", configPath, "setup", "database", "--status"); err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(output.String(), "[✓] 0000 create_documents") {
		t.Errorf("expected applied migration in status, got %s", output.String())
	}

	if err := runApp(runner, "--config", configPath, "setup", "database", "--rollback"); err != nil {
		t.Errorf("rollback failed: %v", err)
	}
}
