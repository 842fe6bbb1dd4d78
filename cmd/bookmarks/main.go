package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	apiclient "github.com/splax/bookmarkapi/pkg/api/client"
	"github.com/splax/bookmarkapi/pkg/config"
)

const defaultAPIBaseURL = "http://localhost:4000"

type cliConfig struct {
	APIBaseURL  string `json:"api_base_url"`
	AccessToken string `json:"access_token"`
	Email       string `json:"email,omitempty"`
}

var buildVersion = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	_ = config.LoadEnvFiles()
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "signup":
		err = commandSignup(args)
	case "login":
		err = commandLogin(args)
	case "logout":
		err = commandLogout()
	case "profile", "whoami":
		err = commandProfile(args)
	case "add":
		err = commandAdd(args)
	case "list", "ls":
		err = commandList(args)
	case "get":
		err = commandGet(args)
	case "edit":
		err = commandEdit(args)
	case "rm", "delete":
		err = commandDelete(args)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func commandSignup(args []string) error {
	fs := flag.NewFlagSet("signup", flag.ExitOnError)
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	apiBase := fs.String("api", "", "API base URL (default http://localhost:4000)")
	fs.Parse(args)

	if strings.TrimSpace(*email) == "" {
		return errors.New("--email is required")
	}
	secret, err := readSecret(*password)
	if err != nil {
		return err
	}

	cfg, _ := loadConfig()
	client, err := newClient(resolveBaseURL(cfg, *apiBase))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	user, err := client.Signup(ctx, *email, secret)
	if err != nil {
		return err
	}
	fmt.Printf("account created: %s (%s)\n", user.Email, user.ID)
	return nil
}

func commandLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	apiBase := fs.String("api", "", "API base URL (default http://localhost:4000)")
	fs.Parse(args)

	if strings.TrimSpace(*email) == "" {
		return errors.New("--email is required")
	}
	secret, err := readSecret(*password)
	if err != nil {
		return err
	}

	cfg, _ := loadConfig()
	cfg.APIBaseURL = resolveBaseURL(cfg, *apiBase)
	client, err := newClient(cfg.APIBaseURL)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	token, err := client.Login(ctx, *email, secret)
	if err != nil {
		return err
	}
	cfg.AccessToken = token
	cfg.Email = strings.TrimSpace(*email)
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Println("login successful")
	return nil
}

func commandLogout() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.AccessToken = ""
	cfg.Email = ""
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Println("logged out")
	return nil
}

func commandProfile(args []string) error {
	fs := flag.NewFlagSet("profile", flag.ExitOnError)
	fs.Parse(args)

	client, token, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	user, err := client.Profile(ctx, token)
	if err != nil {
		return err
	}
	fmt.Printf("%s\t%s\tjoined %s\n", user.ID, user.Email, user.CreatedAt.Format(time.RFC3339))
	return nil
}

func commandAdd(args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	title := fs.String("title", "", "Bookmark title")
	link := fs.String("link", "", "Absolute http(s) URL")
	description := fs.String("description", "", "Optional description")
	fs.Parse(args)

	if strings.TrimSpace(*title) == "" {
		return errors.New("--title is required")
	}
	if strings.TrimSpace(*link) == "" {
		return errors.New("--link is required")
	}

	client, token, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	b, err := client.CreateBookmark(ctx, token, apiclient.BookmarkInput{
		Title:       *title,
		Description: *description,
		Link:        *link,
	})
	if err != nil {
		return err
	}
	fmt.Printf("bookmark created: %s (%s)\n", b.ID, b.Title)
	return nil
}

func commandList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	limit := fs.Int("limit", 0, "Maximum number of bookmarks to display")
	asJSON := fs.Bool("json", false, "Print raw JSON")
	fs.Parse(args)

	client, token, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	bookmarks, err := client.ListBookmarks(ctx, token)
	if err != nil {
		return err
	}
	if *limit > 0 && *limit < len(bookmarks) {
		bookmarks = bookmarks[:*limit]
	}
	if *asJSON {
		return printJSON(os.Stdout, bookmarks)
	}
	return printBookmarks(os.Stdout, bookmarks)
}

func commandGet(args []string) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	id := fs.String("id", "", "Bookmark identifier")
	fs.Parse(args)
	if strings.TrimSpace(*id) == "" {
		return errors.New("--id is required")
	}

	client, token, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	b, err := client.GetBookmark(ctx, token, *id)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, b)
}

func commandEdit(args []string) error {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	id := fs.String("id", "", "Bookmark identifier")
	title := fs.String("title", "", "New title")
	link := fs.String("link", "", "New link")
	description := fs.String("description", "", "New description")
	fs.Parse(args)
	if strings.TrimSpace(*id) == "" {
		return errors.New("--id is required")
	}

	var patch apiclient.BookmarkPatch
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			patch.Title = title
		case "link":
			patch.Link = link
		case "description":
			patch.Description = description
		}
	})
	if patch.Title == nil && patch.Link == nil && patch.Description == nil {
		return errors.New("nothing to change: pass --title, --link or --description")
	}

	client, token, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	b, err := client.UpdateBookmark(ctx, token, *id, patch)
	if err != nil {
		return err
	}
	fmt.Printf("bookmark updated: %s (%s)\n", b.ID, b.Title)
	return nil
}

func commandDelete(args []string) error {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	id := fs.String("id", "", "Bookmark identifier")
	fs.Parse(args)
	if strings.TrimSpace(*id) == "" {
		return errors.New("--id is required")
	}

	client, token, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := client.DeleteBookmark(ctx, token, *id); err != nil {
		return err
	}
	fmt.Println("bookmark deleted")
	return nil
}

// session returns a client and the saved access token.
func session() (*apiclient.Client, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", err
	}
	token := strings.TrimSpace(cfg.AccessToken)
	if token == "" {
		return nil, "", errors.New("please login first using 'bookmarks login'")
	}
	client, err := newClient(resolveBaseURL(cfg, ""))
	if err != nil {
		return nil, "", err
	}
	return client, token, nil
}

func newClient(base string) (*apiclient.Client, error) {
	return apiclient.New(base, apiclient.WithTimeout(config.GetDuration("BOOKMARKS_TIMEOUT", 15*time.Second)))
}

// resolveBaseURL picks the API URL: flag, then BOOKMARKS_API_URL, then the
// saved config, then the default.
func resolveBaseURL(cfg cliConfig, flagValue string) string {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v
	}
	if v := strings.TrimSpace(config.GetString("BOOKMARKS_API_URL", "")); v != "" {
		return v
	}
	if v := strings.TrimSpace(cfg.APIBaseURL); v != "" {
		return v
	}
	return defaultAPIBaseURL
}

func readSecret(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Print("Password: ")
	bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Print("\n")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if len(bytes) == 0 {
		return "", errors.New("password is required")
	}
	return string(bytes), nil
}

func printBookmarks(w io.Writer, bookmarks []apiclient.Bookmark) error {
	if len(bookmarks) == 0 {
		_, err := fmt.Fprintln(w, "no bookmarks yet")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tLINK\tUPDATED")
	for _, b := range bookmarks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", b.ID, b.Title, b.Link, b.UpdatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func loadConfig() (cliConfig, error) {
	path, err := configPath()
	if err != nil {
		return cliConfig{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cliConfig{APIBaseURL: defaultAPIBaseURL}, nil
		}
		return cliConfig{}, err
	}
	var cfg cliConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cliConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = defaultAPIBaseURL
	}
	return cfg, nil
}

func saveConfig(cfg cliConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func configPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "bookmarks", "config.json"), nil
}

func printUsage() {
	fmt.Printf("bookmarks CLI %s\n\n", buildVersion)
	fmt.Print(`Usage:
	bookmarks signup --email user@example.com [--password secret] [--api http://localhost:4000]
	bookmarks login --email user@example.com [--password secret] [--api http://localhost:4000]
	bookmarks logout
	bookmarks profile
	bookmarks add --title <title> --link <url> [--description text]
	bookmarks list [--limit N] [--json]
	bookmarks get --id <bookmark-id>
	bookmarks edit --id <bookmark-id> [--title t] [--link url] [--description text]
	bookmarks rm --id <bookmark-id>
	bookmarks version

Environment:
	BOOKMARKS_API_URL   overrides the saved API base URL
	BOOKMARKS_TIMEOUT   request timeout (default 15s)
`)
}

func printVersion() {
	fmt.Println(strings.TrimSpace(buildVersion))
}
