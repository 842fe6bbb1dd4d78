package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedMigrationsAreGooseFiles(t *testing.T) {
	names, err := fs.Glob(FS, "*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(names) < 2 {
		t.Fatalf("expected users and bookmarks migrations, got %v", names)
	}
	for _, name := range names {
		body, err := fs.ReadFile(FS, name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if !strings.Contains(string(body), "-- +goose Up") || !strings.Contains(string(body), "-- +goose Down") {
			t.Fatalf("%s is missing goose annotations", name)
		}
	}
}

func TestUsersEmailIsUniqueCaseInsensitive(t *testing.T) {
	body, err := fs.ReadFile(FS, "00001_create_users.sql")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(body), "CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (LOWER(email))") {
		t.Fatal("users migration must enforce case-insensitive email uniqueness")
	}
}
