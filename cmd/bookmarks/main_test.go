package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apiclient "github.com/splax/bookmarkapi/pkg/api/client"
)

func useTempConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	return dir
}

func TestConfigRoundTrip(t *testing.T) {
	useTempConfigDir(t)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load missing config: %v", err)
	}
	if cfg.APIBaseURL != defaultAPIBaseURL || cfg.AccessToken != "" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}

	cfg.AccessToken = "tok"
	cfg.Email = "a@x.io"
	if err := saveConfig(cfg); err != nil {
		t.Fatalf("save config: %v", err)
	}
	path, err := configPath()
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat config: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 permissions, got %o", perm)
	}
	if filepath.Base(filepath.Dir(path)) != "bookmarks" {
		t.Fatalf("unexpected config location %s", path)
	}

	loaded, err := loadConfig()
	if err != nil {
		t.Fatalf("reload config: %v", err)
	}
	if loaded != cfg {
		t.Fatalf("expected %+v, got %+v", cfg, loaded)
	}
}

func TestResolveBaseURLPrecedence(t *testing.T) {
	cfg := cliConfig{APIBaseURL: "http://saved:4000"}

	t.Setenv("BOOKMARKS_API_URL", "")
	if got := resolveBaseURL(cfg, ""); got != "http://saved:4000" {
		t.Fatalf("expected saved url, got %s", got)
	}
	if got := resolveBaseURL(cliConfig{}, ""); got != defaultAPIBaseURL {
		t.Fatalf("expected default url, got %s", got)
	}

	t.Setenv("BOOKMARKS_API_URL", "http://env:4000")
	if got := resolveBaseURL(cfg, ""); got != "http://env:4000" {
		t.Fatalf("expected env url, got %s", got)
	}
	if got := resolveBaseURL(cfg, "http://flag:4000"); got != "http://flag:4000" {
		t.Fatalf("expected flag url, got %s", got)
	}
}

func TestSessionRequiresLogin(t *testing.T) {
	useTempConfigDir(t)
	if _, _, err := session(); err == nil || !strings.Contains(err.Error(), "login") {
		t.Fatalf("expected login hint, got %v", err)
	}
}

func TestPrintBookmarks(t *testing.T) {
	var buf bytes.Buffer
	if err := printBookmarks(&buf, nil); err != nil {
		t.Fatalf("print empty: %v", err)
	}
	if !strings.Contains(buf.String(), "no bookmarks yet") {
		t.Fatalf("unexpected output %q", buf.String())
	}

	buf.Reset()
	updated := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	err := printBookmarks(&buf, []apiclient.Bookmark{{ID: "b1", Title: "Go", Link: "https://go.dev", UpdatedAt: updated}})
	if err != nil {
		t.Fatalf("print: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"TITLE", "b1", "https://go.dev", "2025-03-01T10:00:00Z"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}
