package commands

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/klabast/wb-services/my-schedule/internal/app"
)

const indexPage = `<html><body><ul id="schedule-list"></ul><ol id="other"></ol></body></html>`

// startServer runs a schedule board on a fresh data directory
func startServer(t *testing.T, schedules ...app.Schedule) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	st, err := app.OpenFileStore(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("OpenFileStore() failed: %v", err)
	}
	for _, s := range schedules {
		if _, err := st.AddSchedule(context.Background(), s); err != nil {
			t.Fatalf("AddSchedule() failed: %v", err)
		}
	}

	cfg := app.DefaultConfig()
	cfg.DataDir = dir
	ts := httptest.NewServer(app.NewServer(cfg, st, zerolog.Nop(), app.WithAssets(nil, []byte(indexPage))))
	t.Cleanup(ts.Close)
	return ts
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd(Assets{})
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

func TestRenderCommand_PageFile(t *testing.T) {
	ts := startServer(t,
		app.Schedule{Date: "2024-01-01", Start: "09:00", End: "10:00", Title: "Standup"},
		app.Schedule{Date: "2024-01-02", Start: "13:00", End: "14:00", Title: "Review"},
	)
	dir := t.TempDir()
	page := filepath.Join(dir, "page.html")
	if err := os.WriteFile(page, []byte(indexPage), 0644); err != nil {
		t.Fatal(err)
	}
	output := filepath.Join(dir, "out.html")

	if _, err := run(t, "render", "--server", ts.URL, "--page", page, "-o", output); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	html := readFile(t, output)
	want := `<ul id="schedule-list"><li>2024-01-01 09:00〜10:00：Standup</li><li>2024-01-02 13:00〜14:00：Review</li></ul>`
	if !strings.Contains(html, want) {
		t.Errorf("Rendered page missing list items:\n%s", html)
	}
}

func TestRenderCommand_Stdout(t *testing.T) {
	ts := startServer(t, app.Schedule{Date: "2024-01-01", Start: "09:00", End: "10:00", Title: "Standup"})

	out, err := run(t, "render", "--server", ts.URL, "-o", "-")
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(out, `<li>2024-01-01 09:00〜10:00：Standup</li>`) {
		t.Errorf("Rendered page should be written to the command output:\n%s", out)
	}
}

func TestRenderCommand_ServerIndexAndContainer(t *testing.T) {
	ts := startServer(t, app.Schedule{Date: "2024-01-01", Start: "09:00", End: "10:00", Title: "Standup"})
	output := filepath.Join(t.TempDir(), "out.html")

	if _, err := run(t, "render", "--server", ts.URL, "--container", "other", "-o", output); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	html := readFile(t, output)
	if !strings.Contains(html, `<ol id="other"><li>2024-01-01 09:00〜10:00：Standup</li></ol>`) {
		t.Errorf("Expected entry in the custom container:\n%s", html)
	}
	if !strings.Contains(html, `<ul id="schedule-list"></ul>`) {
		t.Errorf("Default container should stay empty:\n%s", html)
	}
}

func TestRenderCommand_MissingContainer(t *testing.T) {
	ts := startServer(t)
	output := filepath.Join(t.TempDir(), "out.html")

	_, err := run(t, "render", "--server", ts.URL, "--container", "nope", "-o", output)
	if err == nil {
		t.Fatal("Expected an error for a missing container")
	}
	if _, statErr := os.Stat(output); statErr == nil {
		t.Error("No output should be written on failure")
	}
}

func TestExportCommand(t *testing.T) {
	ts := startServer(t, app.Schedule{Date: "2024-01-01", Start: "09:00", End: "10:00", Category: "仕事", Title: "Standup"})
	output := filepath.Join(t.TempDir(), "export.csv")

	if _, err := run(t, "export", "--server", ts.URL, "-f", "csv", "-o", output); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	csv := readFile(t, output)
	if !strings.HasPrefix(csv, "date,start,end,category,title,note,completed\n") {
		t.Errorf("Unexpected CSV header:\n%s", csv)
	}
	if !strings.Contains(csv, "2024-01-01,09:00,10:00,仕事,Standup,,false") {
		t.Errorf("Missing exported row:\n%s", csv)
	}
}

func TestExportCommand_UnsupportedFormat(t *testing.T) {
	if _, err := run(t, "export", "--server", "http://127.0.0.1:1", "-f", "pdf"); err == nil {
		t.Error("Expected an error for an unsupported format")
	}
}

func TestBackupCommand(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv(app.EnvDataDir, dataDir)
	backupDir := filepath.Join(t.TempDir(), "backups")

	out, err := run(t, "backup", "--dir", backupDir)
	if err != nil {
		t.Fatalf("backup failed: %v", err)
	}
	if !strings.Contains(out, "Backup created: "+backupDir) {
		t.Errorf("Unexpected output: %q", out)
	}

	entries, err := os.ReadDir(backupDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("Expected schedule and timetable backups, got %d files", len(entries))
	}
}

func TestBackupCommand_InvalidConfig(t *testing.T) {
	t.Setenv(app.EnvDataDir, t.TempDir())
	t.Setenv(app.EnvStorage, "redis")

	if _, err := run(t, "backup"); err == nil {
		t.Error("Expected an error for an unknown storage backend")
	}
}
