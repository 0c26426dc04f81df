package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"flowcast/internal/backlog"
	"flowcast/internal/forecaster"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// DefaultSnapshot is the snapshot tools use when the caller names none.
const DefaultSnapshot = "backlog"

// Server exposes the forecasting service as MCP tools.
type Server struct {
	store           *backlog.Store
	service         *forecaster.Service
	enableMermaid   bool
	version         string
	defaultSnapshot string

	// Backlog runs write forecasts back onto shared features.
	runMu sync.Mutex
}

// NewServer creates a new MCP server.
func NewServer(store *backlog.Store, service *forecaster.Service, enableMermaid bool, version string) *Server {
	return &Server{
		store:           store,
		service:         service,
		enableMermaid:   enableMermaid,
		version:         version,
		defaultSnapshot: DefaultSnapshot,
	}
}

// SetDefaultSnapshot sets the snapshot tools use when the caller names none.
func (s *Server) SetDefaultSnapshot(name string) {
	s.defaultSnapshot = name
}

// MCPServer builds the SDK server with all tools registered.
func (s *Server) MCPServer() *sdk.Server {
	server := sdk.NewServer(&sdk.Implementation{Name: "flowcast", Version: s.version}, nil)
	s.registerTools(server)
	return server
}

// Serve runs the MCP protocol over stdin/stdout until the client disconnects.
func (s *Server) Serve(ctx context.Context) error {
	log.Info().Str("version", s.version).Msg("Serving MCP over stdio")
	return s.MCPServer().Run(ctx, &sdk.StdioTransport{})
}

// Response is the envelope every tool returns.
type Response struct {
	Data     any               `json:"data"`
	Visuals  map[string]string `json:"visuals,omitempty"`
	Guidance []string          `json:"guidance,omitempty"`
}

// WrapResponse builds a tool response, dropping empty charts.
func WrapResponse(data any, visuals map[string]string, guidance []string) Response {
	for k, v := range visuals {
		if v == "" {
			delete(visuals, k)
		}
	}
	if len(visuals) == 0 {
		visuals = nil
	}
	return Response{Data: data, Visuals: visuals, Guidance: guidance}
}

// handler adapts a tool function to the SDK, rendering its result as indented JSON text.
func handler[In any](name string, fn func(context.Context, In) (any, error)) sdk.ToolHandlerFor[In, any] {
	return func(ctx context.Context, _ *sdk.CallToolRequest, in In) (*sdk.CallToolResult, any, error) {
		log.Debug().Str("tool", name).Interface("args", in).Msg("Tool call")

		data, err := fn(ctx, in)
		if err != nil {
			log.Warn().Err(err).Str("tool", name).Msg("Tool call failed")
			return nil, nil, err
		}

		return &sdk.CallToolResult{
			Content: []sdk.Content{&sdk.TextContent{Text: formatResult(data)}},
		}, nil, nil
	}
}

func formatResult(data any) string {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(out)
}
