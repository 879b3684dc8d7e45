package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kalambet/folio/internal/profile"
	"github.com/kalambet/folio/internal/render"
	"github.com/kalambet/folio/internal/storage"
)

func setupHandler(t *testing.T) (http.Handler, *storage.Store, *profile.Manager) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	mgr := profile.NewManager(store, render.New())
	handler := NewHandler(Deps{
		Profiles: mgr,
		Lister:   store,
		Sessions: store,
	})
	return handler, store, mgr
}

func seedUser(t *testing.T, mgr *profile.Manager, store *storage.Store, username string) string {
	t.Helper()
	if _, err := mgr.CreateProfile(profile.Profile{Username: username, Name: "Name " + username, Bio: "hello"}); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}
	token, err := store.CreateSession(username)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return token
}

func authReq(method, url, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func errorType(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decoding error envelope %q: %v", rr.Body.String(), err)
	}
	return env.Error.Type
}

func TestHealth(t *testing.T) {
	h, _, _ := setupHandler(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/health", "", ""))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != `{"status":"ok"}` {
		t.Errorf("body = %s", got)
	}
}

func TestSession(t *testing.T) {
	h, store, mgr := setupHandler(t)
	token := seedUser(t, mgr, store, "alice")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/session", "", token))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["username"] != "alice" {
		t.Errorf("username = %q", body["username"])
	}
}

func TestSession_Unauthorized(t *testing.T) {
	h, _, _ := setupHandler(t)

	for _, token := range []string{"", "bogus"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, authReq(http.MethodGet, "/session", "", token))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("token %q: status = %d, want 401", token, rr.Code)
		}
		if typ := errorType(t, rr); typ != "authentication_error" {
			t.Errorf("token %q: error type = %q", token, typ)
		}
	}
}

func TestGetProfile(t *testing.T) {
	h, store, mgr := setupHandler(t)
	seedUser(t, mgr, store, "alice")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/profiles/alice", "", ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var p profile.Profile
	if err := json.Unmarshal(rr.Body.Bytes(), &p); err != nil {
		t.Fatal(err)
	}
	if p.Username != "alice" || p.Bio != "hello" {
		t.Errorf("profile = %+v", p)
	}
	if p.BioRendered.HTML == "" || p.BioRendered.Markdown != "hello" {
		t.Errorf("bioRendered = %+v", p.BioRendered)
	}
}

func TestGetProfile_NotFound(t *testing.T) {
	h, _, _ := setupHandler(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/profiles/ghost", "", ""))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	if typ := errorType(t, rr); typ != "not_found" {
		t.Errorf("error type = %q", typ)
	}
}

func TestListProfiles(t *testing.T) {
	h, store, mgr := setupHandler(t)
	seedUser(t, mgr, store, "alice")
	seedUser(t, mgr, store, "bob")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/profiles?limit=1", "", ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var out []ProfileSummary
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Errorf("len = %d, want 1", len(out))
	}
}

func TestUpdateUser(t *testing.T) {
	h, store, mgr := setupHandler(t)
	token := seedUser(t, mgr, store, "alice")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPut, "/user", `{"username":"alice","bio":"now **bold**"}`, token))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var doc render.Document
	if err := json.Unmarshal(rr.Body.Bytes(), &doc); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(doc.HTML, "<strong>bold</strong>") {
		t.Errorf("html = %q", doc.HTML)
	}
	if strings.Contains(rr.Body.String(), `"bio"`) {
		t.Errorf("response echoes raw bio: %s", rr.Body.String())
	}

	p, err := mgr.GetProfile("alice")
	if err != nil {
		t.Fatal(err)
	}
	if p.Bio != "now **bold**" {
		t.Errorf("stored bio = %q", p.Bio)
	}
}

func TestUpdateUser_Errors(t *testing.T) {
	h, store, mgr := setupHandler(t)
	token := seedUser(t, mgr, store, "alice")
	seedUser(t, mgr, store, "bob")

	tests := []struct {
		name     string
		body     string
		token    string
		wantCode int
		wantType string
	}{
		{"no token", `{"username":"alice","bio":"x"}`, "", http.StatusUnauthorized, "authentication_error"},
		{"other user", `{"username":"bob","bio":"x"}`, token, http.StatusUnauthorized, "authentication_error"},
		{"bad json", `{`, token, http.StatusBadRequest, "invalid_request_error"},
		{"missing username", `{"bio":"x"}`, token, http.StatusBadRequest, "invalid_request_error"},
		{"too long", `{"username":"alice","bio":"` + strings.Repeat("a", profile.MaxBioLength+1) + `"}`, token, http.StatusUnprocessableEntity, "invalid_request_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, authReq(http.MethodPut, "/user", tt.body, tt.token))
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d; body = %s", rr.Code, tt.wantCode, rr.Body.String())
			}
			if typ := errorType(t, rr); typ != tt.wantType {
				t.Errorf("error type = %q, want %q", typ, tt.wantType)
			}
		})
	}

	p, err := mgr.GetProfile("bob")
	if err != nil {
		t.Fatal(err)
	}
	if p.Bio != "hello" {
		t.Errorf("bob's bio changed to %q", p.Bio)
	}
}

func TestUpdateUser_ExactLimit(t *testing.T) {
	h, store, mgr := setupHandler(t)
	token := seedUser(t, mgr, store, "alice")

	bio := strings.Repeat("a", profile.MaxBioLength)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPut, "/user", `{"username":"alice","bio":"`+bio+`"}`, token))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
}
