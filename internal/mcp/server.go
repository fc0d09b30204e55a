// Package mcp exposes personal records, weekly volume and set validation to
// MCP clients.
package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type contextKey int

const userIDKey contextKey = iota

// DefaultUserID is used when the transport did not inject a user.
const DefaultUserID = "local"

// UserIDFromContext extracts the user ID injected by the transport layer.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok && id != "" {
		return id
	}
	return DefaultUserID
}

// WithUserID returns a context with the given user ID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("LiftLog", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("LiftLog strength training server. Query personal records, weekly training volume and logged sets, and check a set for logging mistakes. All data is scoped to the configured user."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetPersonalRecords, Handler: h.getPersonalRecords},
		server.ServerTool{Tool: toolGetPersonalRecord, Handler: h.getPersonalRecord},
		server.ServerTool{Tool: toolGetWeeklyVolume, Handler: h.getWeeklyVolume},
		server.ServerTool{Tool: toolCheckSet, Handler: h.checkSet},
		server.ServerTool{Tool: toolGetWorkoutSets, Handler: h.getWorkoutSets},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resRecords, Handler: h.records},
		server.ServerResource{Resource: resRecentSets, Handler: h.recentSets},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resRecords = mcp.NewResource(
	"liftlog://records",
	"Personal Records",
	mcp.WithResourceDescription("Every stored personal record, grouped by exercise and ordered weight, reps, volume"),
	mcp.WithMIMEType("application/json"),
)

var resRecentSets = mcp.NewResource(
	"liftlog://recent_sets",
	"Recent Sets",
	mcp.WithResourceDescription("Logged sets from the last 14 days with their validation flags"),
	mcp.WithMIMEType("application/json"),
)
