// Package client talks to the folio HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kalambet/folio/internal/profile"
	"github.com/kalambet/folio/internal/render"
)

// ErrUnauthorized is returned when the server answers 401.
var ErrUnauthorized = errors.New("not authorized")

// StatusError is a non-2xx answer other than 401.
type StatusError struct {
	Code    int
	Type    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 StatusError.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New returns a client for baseURL. An empty token makes every request
// anonymous. A nil httpClient uses http.DefaultClient.
func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

// Page is everything the profile page needs on load. Viewer is the session
// username, empty when anonymous.
type Page struct {
	Profile profile.Profile
	Viewer  string
}

// Whoami returns the session username, or "" when the client has no token or
// the server rejects it.
func (c *Client) Whoami(ctx context.Context) (string, error) {
	if c.token == "" {
		return "", nil
	}
	resp, err := c.do(ctx, http.MethodGet, "/session", nil)
	if err != nil {
		return "", err
	}
	var out struct {
		Username string `json:"username"`
	}
	if err := decodeJSON(resp, &out); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			return "", nil
		}
		return "", err
	}
	return out.Username, nil
}

func (c *Client) GetProfile(ctx context.Context, username string) (profile.Profile, error) {
	resp, err := c.do(ctx, http.MethodGet, "/profiles/"+url.PathEscape(username), nil)
	if err != nil {
		return profile.Profile{}, err
	}
	var p profile.Profile
	if err := decodeJSON(resp, &p); err != nil {
		return profile.Profile{}, err
	}
	return p, nil
}

// UpdateProfile saves bio for username and returns the rendered document of
// the saved text.
func (c *Client) UpdateProfile(ctx context.Context, username, bio string) (render.Document, error) {
	resp, err := c.do(ctx, http.MethodPut, "/user", map[string]string{
		"username": username,
		"bio":      bio,
	})
	if err != nil {
		return render.Document{}, err
	}
	var doc render.Document
	if err := decodeJSON(resp, &doc); err != nil {
		return render.Document{}, err
	}
	return doc, nil
}

// LoadPage fetches the profile and the viewer identity concurrently.
func (c *Client) LoadPage(ctx context.Context, username string) (Page, error) {
	var page Page
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := c.GetProfile(ctx, username)
		if err != nil {
			return fmt.Errorf("loading profile %q: %w", username, err)
		}
		page.Profile = p
		return nil
	})
	g.Go(func() error {
		viewer, err := c.Whoami(ctx)
		if err != nil {
			return fmt.Errorf("loading session: %w", err)
		}
		page.Viewer = viewer
		return nil
	})
	if err := g.Wait(); err != nil {
		return Page{}, err
	}
	return page, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server not reachable, is folio serve running? (%w)", err)
	}
	return resp, nil
}

func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, resp.Body)
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &StatusError{Code: resp.StatusCode}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if err != nil {
			return se
		}
		var env struct {
			Error struct {
				Message string `json:"message"`
				Type    string `json:"type"`
			} `json:"error"`
		}
		if json.Unmarshal(body, &env) == nil && env.Error.Message != "" {
			se.Message = env.Error.Message
			se.Type = env.Error.Type
		} else {
			se.Message = strings.TrimSpace(string(body))
		}
		return se
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
