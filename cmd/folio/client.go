package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/kalambet/folio/internal/client"
	"github.com/kalambet/folio/internal/config"
)

var errNotSignedIn = errors.New("not signed in; run folio login <token>")

var newAPIClient = func() (*client.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return client.New(cfg.ClientBaseURL(), cfg.Client.Token, &http.Client{Timeout: cfg.ClientTimeout()}), nil
}

// explain turns client errors into messages a user can act on.
func explain(err error) error {
	var se *client.StatusError
	switch {
	case errors.Is(err, client.ErrUnauthorized):
		return fmt.Errorf("not authorized: %w", err)
	case client.IsNotFound(err):
		return fmt.Errorf("profile not found")
	case errors.As(err, &se):
		return fmt.Errorf("server returned %d: %s", se.Code, se.Message)
	}
	return err
}
