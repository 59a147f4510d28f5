package client

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/karnan008/QA-Test-Manager/internal/models"
)

// Prompter asks questions on Out and reads the answers line by line from In.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewPrompter returns a prompter reading in and writing out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(in), out: out}
}

// Ask prints label and returns the trimmed answer. ok is false once the
// input is exhausted.
func (p *Prompter) Ask(label string) (answer string, ok bool) {
	fmt.Fprint(p.out, label)
	if !p.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.in.Text()), true
}

// Credentials asks for email and password.
func (p *Prompter) Credentials() (email, password string) {
	email, _ = p.Ask("Email: ")
	password, _ = p.Ask("Password: ")
	return email, password
}

// TestCase asks for the attributes of a new test case. Empty priority and
// status are left to the server defaults; tags are comma separated.
func (p *Prompter) TestCase() models.NewTestCase {
	var in models.NewTestCase
	in.TestCaseID, _ = p.Ask("Test Case ID: ")
	in.Title, _ = p.Ask("Title: ")
	in.Module, _ = p.Ask("Module: ")
	in.Precondition, _ = p.Ask("Precondition: ")
	in.Steps, _ = p.Ask("Steps (use \\n for new lines): ")
	in.Steps = strings.ReplaceAll(in.Steps, `\n`, "\n")
	in.ExpectedResult, _ = p.Ask("Expected Result: ")

	priority, _ := p.Ask("Priority (Low/Medium/High/Critical, empty for Medium): ")
	if parsed, ok := models.ParsePriority(priority); ok {
		in.Priority = parsed
	} else {
		in.Priority = models.Priority(priority)
	}
	status, _ := p.Ask("Status (Draft/Final/Passed/Failed, empty for Draft): ")
	if parsed, ok := models.ParseStatus(status); ok {
		in.Status = parsed
	} else {
		in.Status = models.Status(status)
	}

	tags, _ := p.Ask("Tags (comma separated): ")
	for _, t := range strings.Split(tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			in.Tags = append(in.Tags, t)
		}
	}
	return in
}

// StatusChange asks for a new status.
func (p *Prompter) StatusChange() (models.Status, bool) {
	raw, _ := p.Ask("New status (Draft/Final/Passed/Failed): ")
	return models.ParseStatus(raw)
}
