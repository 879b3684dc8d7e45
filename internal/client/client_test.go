package client

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
}

type cannedResponse struct {
	code int
	body string
}

func newTestServer(t *testing.T, responses map[string]cannedResponse) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.mu.Lock()
		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})
		ts.mu.Unlock()

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(resp.code)
			w.Write([]byte(resp.body))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client(token string) *Client {
	return New(ts.server.URL+"/", token, ts.server.Client())
}

func TestGetProfile(t *testing.T) {
	ts := newTestServer(t, map[string]cannedResponse{
		"GET /profiles/alice": {200, `{"username":"alice","name":"Alice","verified":true,"bio":"hi","bioRendered":{"html":"<p>hi</p>","markdown":"hi"}}`},
	})

	p, err := ts.client("").GetProfile(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "Alice" || !p.Verified || p.BioRendered.HTML != "<p>hi</p>" {
		t.Errorf("profile = %+v", p)
	}
	if got := ts.requests[0].Auth; got != "" {
		t.Errorf("anonymous request sent Authorization %q", got)
	}
}

func TestGetProfile_NotFound(t *testing.T) {
	ts := newTestServer(t, nil)

	_, err := ts.client("").GetProfile(context.Background(), "ghost")
	if !IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Type != "not_found" || se.Message != "not found" {
		t.Errorf("status error = %+v", se)
	}
}

func TestUpdateProfile(t *testing.T) {
	ts := newTestServer(t, map[string]cannedResponse{
		"PUT /user": {200, `{"html":"<p><strong>x</strong></p>","markdown":"**x**"}`},
	})

	doc, err := ts.client("tok").UpdateProfile(context.Background(), "alice", "**x**")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Markdown != "**x**" {
		t.Errorf("markdown = %q", doc.Markdown)
	}

	req := ts.requests[0]
	if req.Auth != "Bearer tok" {
		t.Errorf("auth = %q", req.Auth)
	}
	if !strings.Contains(req.Body, `"username":"alice"`) || !strings.Contains(req.Body, `"bio":"**x**"`) {
		t.Errorf("body = %s", req.Body)
	}
}

func TestUpdateProfile_Errors(t *testing.T) {
	tests := []struct {
		name  string
		resp  cannedResponse
		check func(error) bool
	}{
		{"unauthorized", cannedResponse{401, `{"error":{"message":"nope","type":"authentication_error"}}`}, func(err error) bool {
			return errors.Is(err, ErrUnauthorized)
		}},
		{"server error", cannedResponse{500, `{"error":{"message":"boom","type":"api_error"}}`}, func(err error) bool {
			var se *StatusError
			return errors.As(err, &se) && se.Code == 500 && !errors.Is(err, ErrUnauthorized)
		}},
		{"plain text body", cannedResponse{422, `too long`}, func(err error) bool {
			var se *StatusError
			return errors.As(err, &se) && se.Message == "too long"
		}},
		{"malformed success", cannedResponse{200, `{`}, func(err error) bool {
			var se *StatusError
			return err != nil && !errors.As(err, &se) && !errors.Is(err, ErrUnauthorized)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, map[string]cannedResponse{"PUT /user": tt.resp})
			_, err := ts.client("tok").UpdateProfile(context.Background(), "alice", "x")
			if !tt.check(err) {
				t.Errorf("unexpected error classification: %v (%T)", err, err)
			}
		})
	}
}

func TestUpdateProfile_Unreachable(t *testing.T) {
	ts := newTestServer(t, nil)
	c := ts.client("tok")
	ts.server.Close()

	_, err := c.UpdateProfile(context.Background(), "alice", "x")
	if err == nil {
		t.Fatal("expected error")
	}
	var se *StatusError
	if errors.As(err, &se) || errors.Is(err, ErrUnauthorized) {
		t.Errorf("transport failure classified as %v", err)
	}
}

func TestWhoami(t *testing.T) {
	ts := newTestServer(t, map[string]cannedResponse{
		"GET /session": {200, `{"username":"alice"}`},
	})

	got, err := ts.client("tok").Whoami(context.Background())
	if err != nil || got != "alice" {
		t.Fatalf("Whoami = %q, %v", got, err)
	}

	got, err = ts.client("").Whoami(context.Background())
	if err != nil || got != "" {
		t.Errorf("anonymous Whoami = %q, %v", got, err)
	}
	if len(ts.requests) != 1 {
		t.Errorf("anonymous Whoami hit the server")
	}
}

func TestWhoami_RejectedToken(t *testing.T) {
	ts := newTestServer(t, map[string]cannedResponse{
		"GET /session": {401, `{"error":{"message":"bad","type":"authentication_error"}}`},
	})

	got, err := ts.client("stale").Whoami(context.Background())
	if err != nil || got != "" {
		t.Errorf("Whoami = %q, %v; want anonymous", got, err)
	}
}

func TestLoadPage(t *testing.T) {
	ts := newTestServer(t, map[string]cannedResponse{
		"GET /session":        {200, `{"username":"bob"}`},
		"GET /profiles/alice": {200, `{"username":"alice","name":"Alice"}`},
	})

	page, err := ts.client("tok").LoadPage(context.Background(), "alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Viewer != "bob" || page.Profile.Username != "alice" {
		t.Errorf("page = %+v", page)
	}
}

func TestLoadPage_ProfileMissing(t *testing.T) {
	ts := newTestServer(t, map[string]cannedResponse{
		"GET /session": {200, `{"username":"bob"}`},
	})

	_, err := ts.client("tok").LoadPage(context.Background(), "ghost")
	if !IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
}
