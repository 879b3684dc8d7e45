package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/folio/internal/profile"
	"github.com/kalambet/folio/internal/render"
	"github.com/kalambet/folio/internal/storage"
)

const excerptLength = 160

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Profiles Profiles
	Lister   ProfileLister
}

// NewMCPServer creates a read-only MCP server exposing stored profiles.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"folio",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("folio: public user profiles with display name, verification badge and biography."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("get_profile",
			mcp.WithDescription("Fetch a user's public profile, including the rendered biography as markdown."),
			mcp.WithString("username", mcp.Description("Profile username"), mcp.Required()),
		),
		mcpGetProfile(deps),
	)

	s.AddTool(
		mcp.NewTool("list_profiles",
			mcp.WithDescription("List stored profiles with a short plain-text excerpt of each biography."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
			mcp.WithNumber("offset", mcp.Description("Number of profiles to skip")),
		),
		mcpListProfiles(deps),
	)

	s.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"profile://{username}",
			"User Profile",
			mcp.WithTemplateDescription("A user profile as JSON"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		mcpResourceProfile(deps),
	)

	return s
}

type profileView struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Image    string `json:"image,omitempty"`
	Verified bool   `json:"verified"`
	Bio      string `json:"bio"`
}

func mcpGetProfile(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		username, err := req.RequireString("username")
		if err != nil || strings.TrimSpace(username) == "" {
			return mcp.NewToolResultError("username is required"), nil
		}

		p, err := deps.Profiles.GetProfile(username)
		if errors.Is(err, storage.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("profile %q not found", username)), nil
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to get profile: %v", err)), nil
		}

		b, err := json.Marshal(profileView{
			Username: p.Username,
			Name:     p.Name,
			Image:    p.Image,
			Verified: p.Verified,
			Bio:      profile.TruncateBio(p.BioRendered.Markdown),
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal profile: %v", err)), nil
		}
		return mcp.NewToolResultText(string(b)), nil
	}
}

func mcpListProfiles(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 20)
		if limit <= 0 {
			limit = 20
		}
		if limit > 100 {
			limit = 100
		}
		offset := req.GetInt("offset", 0)
		if offset < 0 {
			offset = 0
		}

		rows, err := deps.Lister.ListProfiles(limit, offset)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list profiles: %v", err)), nil
		}

		type entry struct {
			Username string `json:"username"`
			Name     string `json:"name"`
			Verified bool   `json:"verified"`
			Excerpt  string `json:"excerpt"`
		}

		out := make([]entry, len(rows))
		for i, row := range rows {
			out[i] = entry{
				Username: row.Username,
				Name:     row.Name,
				Verified: row.Verified,
				Excerpt:  render.PlainText(row.BioHTML, excerptLength),
			}
		}

		b, err := json.Marshal(out)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal profiles: %v", err)), nil
		}
		return mcp.NewToolResultText(string(b)), nil
	}
}

func mcpResourceProfile(deps MCPDeps) server.ResourceTemplateHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		username := strings.TrimPrefix(req.Params.URI, "profile://")
		if username == "" || strings.Contains(username, "/") {
			return nil, fmt.Errorf("invalid profile uri %q", req.Params.URI)
		}

		p, err := deps.Profiles.GetProfile(username)
		if err != nil {
			return nil, fmt.Errorf("failed to get profile: %w", err)
		}

		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profile: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}
