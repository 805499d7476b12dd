package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/autopilot/internal/logging"
	"github.com/aretw0/autopilot/internal/presentation/graph"
	"github.com/aretw0/autopilot/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// unitsURI is the resource listing every unit definition.
const unitsURI = "autopilot://units"

// Engine is the part of the autopilot facade exposed as MCP tools.
type Engine interface {
	StartUnit(ctx context.Context, unitID string, loop bool, speed float64) (domain.ExecutionState, error)
	StopUnit(ctx context.Context, unitID string) (domain.ExecutionState, error)
	UnitStatus(ctx context.Context, unitID string) (domain.ExecutionState, error)
	StartAll(ctx context.Context, loop bool, speed float64) (domain.MasterState, error)
	StopAll(ctx context.Context) (domain.MasterState, error)
	AllStatus() domain.MasterState
	Units(ctx context.Context) ([]domain.Unit, error)
	Unit(ctx context.Context, unitID string) (domain.Unit, error)
}

// UnitArgs selects a unit.
type UnitArgs struct {
	UnitID string `json:"unit_id"`
}

// StartArgs are the arguments of start_unit and start_all.
type StartArgs struct {
	UnitID string   `json:"unit_id,omitempty"`
	Loop   bool     `json:"loop,omitempty"`
	Speed  *float64 `json:"speed,omitempty"`
}

func (a StartArgs) speed() float64 {
	if a.Speed == nil {
		return 1.0
	}
	return *a.Speed
}

// UnitSummary is the list view of a unit.
type UnitSummary struct {
	ID    string `json:"id" jsonschema_description:"Unit identifier"`
	Name  string `json:"name" jsonschema_description:"Display name"`
	Order int    `json:"order" jsonschema_description:"Position in run-all sequences"`
	Nodes int    `json:"nodes" jsonschema_description:"Number of nodes"`
}

// UnitList is the structured result of list_units.
type UnitList struct {
	Units []UnitSummary `json:"units"`
}

// Server wraps the engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		engine:    engine,
		logger:    logger,
		mcpServer: server.NewMCPServer("autopilot-mcp", version),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx ends.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_units",
		mcp.WithDescription("List automation units in run order."),
		mcp.WithOutputSchema[UnitList](),
	), mcp.NewStructuredToolHandler(s.handleListUnits))

	s.mcpServer.AddTool(mcp.NewTool("start_unit",
		mcp.WithDescription("Start a unit in the background. Returns immediately with the running state."),
		mcp.WithString("unit_id", mcp.Required(), mcp.Description("The unit to run")),
		mcp.WithBoolean("loop", mcp.Description("Repeat the unit until stopped")),
		mcp.WithNumber("speed", mcp.Description("Speed factor, greater than zero (default 1.0)")),
		mcp.WithOutputSchema[domain.ExecutionState](),
	), mcp.NewStructuredToolHandler(s.handleStartUnit))

	s.mcpServer.AddTool(mcp.NewTool("stop_unit",
		mcp.WithDescription("Request a cooperative stop of a running unit."),
		mcp.WithString("unit_id", mcp.Required(), mcp.Description("The unit to stop")),
		mcp.WithOutputSchema[domain.ExecutionState](),
	), mcp.NewStructuredToolHandler(s.handleStopUnit))

	s.mcpServer.AddTool(mcp.NewTool("unit_status",
		mcp.WithDescription("Get the execution state of a unit."),
		mcp.WithString("unit_id", mcp.Required(), mcp.Description("The unit to inspect")),
		mcp.WithOutputSchema[domain.ExecutionState](),
	), mcp.NewStructuredToolHandler(s.handleUnitStatus))

	s.mcpServer.AddTool(mcp.NewTool("start_all",
		mcp.WithDescription("Run every unit one after another in the background."),
		mcp.WithBoolean("loop", mcp.Description("Repeat the whole sequence until stopped")),
		mcp.WithNumber("speed", mcp.Description("Speed factor, greater than zero (default 1.0)")),
		mcp.WithOutputSchema[domain.MasterState](),
	), mcp.NewStructuredToolHandler(s.handleStartAll))

	s.mcpServer.AddTool(mcp.NewTool("stop_all",
		mcp.WithDescription("Stop the run-all sequence and every running unit."),
		mcp.WithOutputSchema[domain.MasterState](),
	), mcp.NewStructuredToolHandler(s.handleStopAll))

	s.mcpServer.AddTool(mcp.NewTool("all_status",
		mcp.WithDescription("Get the state of the run-all sequence."),
		mcp.WithOutputSchema[domain.MasterState](),
	), mcp.NewStructuredToolHandler(s.handleAllStatus))

	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get a Mermaid flowchart of a unit, with the node in flight highlighted."),
		mcp.WithString("unit_id", mcp.Required(), mcp.Description("The unit to draw")),
	), s.handleGetGraph)
}

func (s *Server) handleListUnits(ctx context.Context, _ mcp.CallToolRequest, _ struct{}) (UnitList, error) {
	units, err := s.engine.Units(ctx)
	if err != nil {
		return UnitList{}, fmt.Errorf("list failed: %w", err)
	}
	out := UnitList{Units: make([]UnitSummary, 0, len(units))}
	for _, u := range units {
		out.Units = append(out.Units, UnitSummary{ID: u.ID, Name: u.DisplayName(), Order: u.Order, Nodes: len(u.Nodes)})
	}
	return out, nil
}

func (s *Server) handleStartUnit(ctx context.Context, _ mcp.CallToolRequest, args StartArgs) (domain.ExecutionState, error) {
	st, err := s.engine.StartUnit(ctx, args.UnitID, args.Loop, args.speed())
	if err != nil {
		return domain.ExecutionState{}, fmt.Errorf("start failed: %w", err)
	}
	s.logger.Info("MCP: Unit started", "unit_id", args.UnitID)
	return st, nil
}

func (s *Server) handleStopUnit(ctx context.Context, _ mcp.CallToolRequest, args UnitArgs) (domain.ExecutionState, error) {
	st, err := s.engine.StopUnit(ctx, args.UnitID)
	if err != nil {
		return domain.ExecutionState{}, fmt.Errorf("stop failed: %w", err)
	}
	return st, nil
}

func (s *Server) handleUnitStatus(ctx context.Context, _ mcp.CallToolRequest, args UnitArgs) (domain.ExecutionState, error) {
	st, err := s.engine.UnitStatus(ctx, args.UnitID)
	if err != nil {
		return domain.ExecutionState{}, fmt.Errorf("status failed: %w", err)
	}
	return st, nil
}

func (s *Server) handleStartAll(ctx context.Context, _ mcp.CallToolRequest, args StartArgs) (domain.MasterState, error) {
	ms, err := s.engine.StartAll(ctx, args.Loop, args.speed())
	if err != nil {
		return domain.MasterState{}, fmt.Errorf("start all failed: %w", err)
	}
	return ms, nil
}

func (s *Server) handleStopAll(ctx context.Context, _ mcp.CallToolRequest, _ struct{}) (domain.MasterState, error) {
	ms, err := s.engine.StopAll(ctx)
	if err != nil {
		return domain.MasterState{}, fmt.Errorf("stop all failed: %w", err)
	}
	return ms, nil
}

func (s *Server) handleAllStatus(_ context.Context, _ mcp.CallToolRequest, _ struct{}) (domain.MasterState, error) {
	return s.engine.AllStatus(), nil
}

func (s *Server) handleGetGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("unit_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	u, err := s.engine.Unit(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("graph failed: %v", err)), nil
	}
	var overlay *graph.GraphOverlay
	if st, err := s.engine.UnitStatus(ctx, id); err == nil && st.CurrentNode != "" {
		overlay = &graph.GraphOverlay{CurrentNode: st.CurrentNode}
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(u, overlay)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(unitsURI, "Unit Definitions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		units, err := s.engine.Units(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list units: %w", err)
		}
		jsonBytes, err := json.Marshal(units)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      unitsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
