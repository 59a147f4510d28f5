// Package client talks to the QA test manager API on behalf of the
// interactive shell.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/karnan008/QA-Test-Manager/internal/models"
	"github.com/karnan008/QA-Test-Manager/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// APIError is a non-2xx answer of the server.
type APIError struct {
	Status   int
	Message  string
	Problems []string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
	if len(e.Problems) > 0 {
		msg += "\n  " + strings.Join(e.Problems, "\n  ")
	}
	return msg
}

// Session is the authenticated user and its bearer token.
type Session struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// Client calls the API at BaseURL with the bearer Token.
type Client struct {
	HTTP    *http.Client
	BaseURL string
	Token   string
}

// New returns a client for baseURL using httpClient, or http.DefaultClient when nil.
func New(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{HTTP: httpClient, BaseURL: strings.TrimRight(baseURL, "/")}
}

// Login authenticates and keeps the returned token.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	var s Session
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/login", body, &s); err != nil {
		return Session{}, err
	}
	c.Token = s.Token
	return s, nil
}

// Register creates an account and keeps the returned token.
func (c *Client) Register(ctx context.Context, in models.NewUser) (Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodPost, "/api/register", in, &s); err != nil {
		return Session{}, err
	}
	c.Token = s.Token
	return s, nil
}

// Logout ends the session on the server and forgets the token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/api/logout", nil, nil); err != nil {
		return err
	}
	c.Token = ""
	return nil
}

// Me returns the user of the current token.
func (c *Client) Me(ctx context.Context) (models.User, error) {
	var u models.User
	err := c.do(ctx, http.MethodGet, "/api/me", nil, &u)
	return u, err
}

// TestCases lists the test cases matching the query parameters.
func (c *Client) TestCases(ctx context.Context, query url.Values) ([]models.TestCase, error) {
	var tcs []models.TestCase
	err := c.do(ctx, http.MethodGet, withQuery("/api/testcases", query), nil, &tcs)
	return tcs, err
}

// TestCase fetches one test case by system id.
func (c *Client) TestCase(ctx context.Context, id string) (models.TestCase, error) {
	var tc models.TestCase
	err := c.do(ctx, http.MethodGet, "/api/testcases/"+url.PathEscape(id), nil, &tc)
	return tc, err
}

// CreateTestCase adds a test case.
func (c *Client) CreateTestCase(ctx context.Context, in models.NewTestCase) (models.TestCase, error) {
	var tc models.TestCase
	err := c.do(ctx, http.MethodPost, "/api/testcases", in, &tc)
	return tc, err
}

// UpdateTestCase applies patch to a test case.
func (c *Client) UpdateTestCase(ctx context.Context, id string, patch models.TestCasePatch) (models.TestCase, error) {
	var tc models.TestCase
	err := c.do(ctx, http.MethodPatch, "/api/testcases/"+url.PathEscape(id), patch, &tc)
	return tc, err
}

// DeleteTestCase removes a test case.
func (c *Client) DeleteTestCase(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/testcases/"+url.PathEscape(id), nil, nil)
}

// ModuleStats is a module with the status tally of its test cases.
type ModuleStats struct {
	models.Module
	Stats report.StatusCounts `json:"stats"`
}

// Modules lists the modules.
func (c *Client) Modules(ctx context.Context) ([]ModuleStats, error) {
	var ms []ModuleStats
	err := c.do(ctx, http.MethodGet, "/api/modules", nil, &ms)
	return ms, err
}

// CreateModule adds a module. Admin only.
func (c *Client) CreateModule(ctx context.Context, in models.NewModule) (models.Module, error) {
	var m models.Module
	err := c.do(ctx, http.MethodPost, "/api/modules", in, &m)
	return m, err
}

// DeleteModule removes a module and reports how many test cases went with it.
func (c *Client) DeleteModule(ctx context.Context, id string) (int, error) {
	var out struct {
		Removed int `json:"removedTestCases"`
	}
	err := c.do(ctx, http.MethodDelete, "/api/modules/"+url.PathEscape(id), nil, &out)
	return out.Removed, err
}

// Dashboard fetches the dashboard figures.
func (c *Client) Dashboard(ctx context.Context) (report.Dashboard, error) {
	var d report.Dashboard
	err := c.do(ctx, http.MethodGet, "/api/dashboard", nil, &d)
	return d, err
}

// Import uploads an xlsx workbook.
func (c *Client) Import(ctx context.Context, workbook io.Reader) (models.ImportResult, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/import", workbook)
	if err != nil {
		return models.ImportResult{}, err
	}
	req.Header.Set("Content-Type", xlsxContentType)

	var res models.ImportResult
	err = c.send(req, &res)
	return res, err
}

// Download copies a workbook endpoint such as /api/reports/export into w.
func (c *Client) Download(ctx context.Context, path string, query url.Values, w io.Writer) error {
	req, err := c.newRequest(ctx, http.MethodGet, withQuery(path, query), nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return decodeError(resp)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("read download: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)
	var body struct {
		Error    string   `json:"error"`
		Problems []string `json:"problems"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(raw))
	}
	return &APIError{Status: resp.StatusCode, Message: body.Error, Problems: body.Problems}
}

func withQuery(path string, query url.Values) string {
	if len(query) == 0 {
		return path
	}
	return path + "?" + query.Encode()
}
