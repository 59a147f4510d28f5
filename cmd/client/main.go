package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/karnan008/QA-Test-Manager/internal/client"
	"github.com/karnan008/QA-Test-Manager/internal/models"
)

var (
	version   string
	buildDate string
)

const help = `Available commands:
  login | logout | whoami
  list [module] [status]     list test cases
  show <id>                  show one test case
  add                        create a test case
  status <id>                change the status of a test case
  delete <id>                delete a test case
  modules                    list modules with their counts
  dashboard                  show the dashboard figures
  import <file.xlsx>         bulk import test cases
  template <file.xlsx>       download the import template
  export <file.xlsx>         download the detailed report
  summary <file.xlsx>        download the summary report
  exit`

type shell struct {
	api         *client.Client
	prompt      *client.Prompter
	out         io.Writer
	sessionFile string
}

// repl runs the interactive shell loop until exit or end of input.
func (s *shell) repl() {
	for {
		line, ok := s.prompt.Ask("qatm> ")
		if !ok {
			return
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			fmt.Fprintln(s.out, "Bye")
			return
		}
		if err := s.run(args); err != nil {
			fmt.Fprintln(s.out, err)
		}
	}
}

func (s *shell) run(args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch args[0] {
	case "help":
		fmt.Fprintln(s.out, help)
	case "login":
		email, password := s.prompt.Credentials()
		sess, err := s.api.Login(ctx, email, password)
		if err != nil {
			return err
		}
		if err := client.SaveSession(s.sessionFile, client.SavedSession{BaseURL: s.api.BaseURL, Session: sess}); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Logged in as %s (%s)\n", sess.User.Username, sess.User.Role)
	case "logout":
		if err := s.api.Logout(ctx); err != nil {
			return err
		}
		if err := client.ClearSession(s.sessionFile); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Logged out")
	case "whoami":
		u, err := s.api.Me(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%s <%s> %s\n", u.Username, u.Email, u.Role)
	case "list":
		q := url.Values{}
		if len(args) > 1 {
			q.Set("module", args[1])
		}
		if len(args) > 2 {
			q.Set("status", args[2])
		}
		tcs, err := s.api.TestCases(ctx, q)
		if err != nil {
			return err
		}
		return client.PrintTestCases(s.out, tcs)
	case "show":
		id, err := arg(args, "show <id>")
		if err != nil {
			return err
		}
		tc, err := s.api.TestCase(ctx, id)
		if err != nil {
			return err
		}
		client.PrintTestCase(s.out, tc)
	case "add":
		tc, err := s.api.CreateTestCase(ctx, s.prompt.TestCase())
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Test case %s created with id %s\n", tc.TestCaseID, tc.ID)
	case "status":
		id, err := arg(args, "status <id>")
		if err != nil {
			return err
		}
		st, ok := s.prompt.StatusChange()
		if !ok {
			return errors.New("unknown status")
		}
		tc, err := s.api.UpdateTestCase(ctx, id, models.TestCasePatch{Status: &st})
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Test case %s is now %s\n", tc.TestCaseID, tc.Status)
	case "delete":
		id, err := arg(args, "delete <id>")
		if err != nil {
			return err
		}
		if err := s.api.DeleteTestCase(ctx, id); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "Test case deleted")
	case "modules":
		ms, err := s.api.Modules(ctx)
		if err != nil {
			return err
		}
		return client.PrintModules(s.out, ms)
	case "dashboard":
		d, err := s.api.Dashboard(ctx)
		if err != nil {
			return err
		}
		client.PrintDashboard(s.out, d)
	case "import":
		path, err := arg(args, "import <file.xlsx>")
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		res, err := s.api.Import(ctx, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Successfully imported %d test cases", res.Added)
		if res.Duplicates > 0 {
			fmt.Fprintf(s.out, " (%d duplicates skipped)", res.Duplicates)
		}
		fmt.Fprintln(s.out)
	case "template":
		return s.download(ctx, args, "/api/import/template")
	case "export":
		return s.download(ctx, args, "/api/reports/export")
	case "summary":
		return s.download(ctx, args, "/api/reports/export/summary")
	default:
		fmt.Fprintln(s.out, "Unknown command. Type 'help' for a list of commands.")
	}
	return nil
}

func (s *shell) download(ctx context.Context, args []string, endpoint string) error {
	path, err := arg(args, args[0]+" <file.xlsx>")
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := s.api.Download(ctx, endpoint, nil, f); err != nil {
		f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Saved %s\n", path)
	return nil
}

func arg(args []string, usage string) (string, error) {
	if len(args) < 2 {
		return "", fmt.Errorf("usage: %s", usage)
	}
	return args[1], nil
}

// main parses command-line flags, restores the saved session and starts the shell.
func main() {
	var (
		baseURL     string
		sessionFile string
		showVer     bool
	)

	flag.StringVar(&baseURL, "url", "http://localhost:8080", "server base URL")
	flag.StringVar(&sessionFile, "session", client.DefaultSessionFile, "file keeping the session token")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("QA Test Manager Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	saved, err := client.LoadSession(sessionFile)
	if err != nil {
		log.Fatal(err)
	}
	api := client.New(&http.Client{Timeout: time.Minute}, baseURL)
	if saved.BaseURL == api.BaseURL {
		api.Token = saved.Token
	}

	s := &shell{
		api:         api,
		prompt:      client.NewPrompter(os.Stdin, os.Stdout),
		out:         os.Stdout,
		sessionFile: sessionFile,
	}
	s.repl()
}
