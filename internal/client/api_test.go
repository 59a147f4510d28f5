package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/karnan008/QA-Test-Manager/internal/models"
)

// roundTripperFunc stubs the transport of an http.Client.
type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(fn roundTripperFunc) *Client {
	return New(&http.Client{Transport: fn, Timeout: time.Second}, "http://example.com/")
}

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestLogin_KeepsToken(t *testing.T) {
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodPost || req.URL.String() != "http://example.com/api/login" {
			t.Errorf("unexpected request %s %s", req.Method, req.URL)
		}
		if ct := req.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var body map[string]string
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body["email"] != "admin@qa.com" || body["password"] != "admin123" {
			t.Errorf("unexpected body %v", body)
		}
		return respond(http.StatusOK, `{"user":{"id":"1","username":"admin","role":"admin"},"token":"demo-token-1"}`), nil
	})

	s, err := c.Login(context.Background(), "admin@qa.com", "admin123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if s.User.Username != "admin" || !s.User.IsAdmin() {
		t.Errorf("user = %+v", s.User)
	}
	if c.Token != "demo-token-1" {
		t.Errorf("Token = %q; want demo-token-1", c.Token)
	}
}

func TestSend_BearerHeader(t *testing.T) {
	c := newTestClient(func(req *http.Request) (*http.Response, error) {
		if got := req.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		if got := req.URL.Query().Get("module"); got != "API" {
			t.Errorf("module = %q", got)
		}
		return respond(http.StatusOK, `[{"id":"a","testCaseId":"TC001"}]`), nil
	})
	c.Token = "tok"

	tcs, err := c.TestCases(context.Background(), url.Values{"module": {"API"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(tcs) != 1 || tcs[0].TestCaseID != "TC001" {
		t.Errorf("tcs = %+v", tcs)
	}
}

func TestSend_Errors(t *testing.T) {
	tests := []struct {
		name     string
		rt       roundTripperFunc
		status   int
		message  string
		problems []string
	}{
		{
			name:    "json error body",
			rt:      func(*http.Request) (*http.Response, error) { return respond(http.StatusConflict, `{"error":"duplicate"}`), nil },
			status:  http.StatusConflict,
			message: "duplicate",
		},
		{
			name: "problems",
			rt: func(*http.Request) (*http.Response, error) {
				return respond(http.StatusBadRequest, `{"error":"validation failed","problems":["Missing Title"]}`), nil
			},
			status:   http.StatusBadRequest,
			message:  "validation failed",
			problems: []string{"Missing Title"},
		},
		{
			name:    "plain text body",
			rt:      func(*http.Request) (*http.Response, error) { return respond(http.StatusUnauthorized, "missing bearer token\n"), nil },
			status:  http.StatusUnauthorized,
			message: "missing bearer token",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestClient(tt.rt).Me(context.Background())
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Status != tt.status || apiErr.Message != tt.message {
				t.Errorf("got %d %q; want %d %q", apiErr.Status, apiErr.Message, tt.status, tt.message)
			}
			if len(apiErr.Problems) != len(tt.problems) {
				t.Errorf("problems = %v; want %v", apiErr.Problems, tt.problems)
			}
		})
	}
}

func TestSend_NetworkError(t *testing.T) {
	c := newTestClient(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("network down")
	})
	err := c.DeleteTestCase(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "request failed") {
		t.Errorf("expected network failure, got %v", err)
	}
}

func TestSend_InvalidJSON(t *testing.T) {
	c := newTestClient(func(*http.Request) (*http.Response, error) {
		return respond(http.StatusOK, "not-json"), nil
	})
	_, err := c.Modules(context.Background())
	if err == nil || !strings.Contains(err.Error(), "decode response") {
		t.Errorf("expected decode error, got %v", err)
	}
}

func TestLogout_NoContent(t *testing.T) {
	c := newTestClient(func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusNoContent, Body: io.NopCloser(strings.NewReader(""))}, nil
	})
	c.Token = "tok"
	if err := c.Logout(context.Background()); err != nil {
		t.Fatal(err)
	}
	if c.Token != "" {
		t.Errorf("Token = %q; want empty", c.Token)
	}
}

func TestImportAndDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/import":
			if ct := r.Header.Get("Content-Type"); ct != xlsxContentType {
				t.Errorf("Content-Type = %q", ct)
			}
			body, _ := io.ReadAll(r.Body)
			if string(body) != "workbook" {
				t.Errorf("body = %q", body)
			}
			_ = json.NewEncoder(w).Encode(models.ImportResult{Added: 2, Duplicates: 1})
		case "/api/reports/export":
			if r.URL.Query().Get("createdBy") != "admin" {
				t.Errorf("query = %v", r.URL.Query())
			}
			_, _ = w.Write([]byte("xlsx-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(srv.Client(), srv.URL)
	res, err := c.Import(context.Background(), strings.NewReader("workbook"))
	if err != nil {
		t.Fatal(err)
	}
	if res != (models.ImportResult{Added: 2, Duplicates: 1}) {
		t.Errorf("result = %+v", res)
	}

	var buf bytes.Buffer
	if err := c.Download(context.Background(), "/api/reports/export", url.Values{"createdBy": {"admin"}}, &buf); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "xlsx-bytes" {
		t.Errorf("download = %q", buf.String())
	}

	err = c.Download(context.Background(), "/api/missing", nil, &buf)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}
