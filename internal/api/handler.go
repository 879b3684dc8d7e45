package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/folio/internal/profile"
	"github.com/kalambet/folio/internal/render"
	"github.com/kalambet/folio/internal/storage"
)

const maxRequestBodySize = 64 << 10 // 64KB

// Profiles is the profile service the handlers need.
type Profiles interface {
	GetProfile(username string) (profile.Profile, error)
	UpdateBio(username, bio string) (render.Document, error)
}

// ProfileLister pages through stored profiles.
type ProfileLister interface {
	ListProfiles(limit, offset int) ([]storage.ProfileRow, error)
}

type Deps struct {
	Profiles Profiles
	Lister   ProfileLister
	Sessions SessionStore
}

// UpdateRequest is the body of PUT /user.
type UpdateRequest struct {
	Username string `json:"username"`
	Bio      string `json:"bio"`
}

// ProfileSummary is one entry of GET /profiles.
type ProfileSummary struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Verified bool   `json:"verified"`
}

func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Get("/profiles", handleListProfiles(deps))
	r.Get("/profiles/{username}", handleGetProfile(deps))

	r.Group(func(r chi.Router) {
		r.Use(SessionAuth(deps.Sessions))
		r.Get("/session", handleSession)
		r.Put("/user", handleUpdateUser(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleSession(w http.ResponseWriter, r *http.Request) {
	username, _ := SessionUser(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"username": username})
}

func handleGetProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := chi.URLParam(r, "username")

		p, err := deps.Profiles.GetProfile(username)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "profile %q not found", username)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get profile: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, p)
	}
}

func handleListProfiles(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)
		offset := parseIntParam(r, "offset", 0, 0)

		rows, err := deps.Lister.ListProfiles(limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list profiles: %v", err)
			return
		}

		out := make([]ProfileSummary, len(rows))
		for i, row := range rows {
			out[i] = ProfileSummary{Username: row.Username, Name: row.Name, Verified: row.Verified}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// handleUpdateUser saves the session user's biography and answers with the
// rendered document of the saved text. The raw biography is not echoed.
func handleUpdateUser(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req UpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		if req.Username == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "username is required")
			return
		}

		sessionUser, _ := SessionUser(r.Context())
		if req.Username != sessionUser {
			httpError(w, http.StatusUnauthorized, "authentication_error", "not allowed to edit profile %q", req.Username)
			return
		}

		doc, err := deps.Profiles.UpdateBio(req.Username, req.Bio)
		switch {
		case errors.Is(err, profile.ErrBioTooLong):
			httpError(w, http.StatusUnprocessableEntity, "invalid_request_error", "%v", err)
			return
		case errors.Is(err, storage.ErrNotFound):
			httpError(w, http.StatusNotFound, "not_found", "profile %q not found", req.Username)
			return
		case err != nil:
			slog.Error("bio update failed", "username", req.Username, "error", err)
			httpError(w, http.StatusInternalServerError, "api_error", "failed to update profile: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, doc)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": fmt.Sprintf(format, args...),
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
