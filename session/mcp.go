package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/domhighlight/idgen"
	"github.com/hazyhaar/domhighlight/kit"
)

// RegisterMCP registers the session's control tools on an MCP server.
func (s *Session) RegisterMCP(srv *mcp.Server) {
	s.registerStatusTool(srv)
	s.registerAddTool(srv)
	s.registerRemoveTool(srv)
}

// wrapTool applies the session's shared endpoint middleware: request
// context stamping, then outcome logging.
func (s *Session) wrapTool(name string, e kit.Endpoint) kit.Endpoint {
	return kit.Chain(s.toolContext(), s.toolLogging(name))(e)
}

// toolContext stamps each invocation with a fresh request id and the owning
// session id, so log lines from nested calls correlate.
func (s *Session) toolContext() kit.Middleware {
	newReq := idgen.Prefixed("req_", idgen.NanoID(8))
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			ctx = kit.WithRequestID(ctx, newReq())
			ctx = kit.WithSessionID(ctx, s.id)
			return next(ctx, req)
		}
	}
}

// toolLogging logs every invocation outcome with its transport and request id.
func (s *Session) toolLogging(name string) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			if err != nil {
				s.logger.Warn("session: tool failed",
					"tool", name,
					"transport", kit.GetTransport(ctx),
					"request", kit.GetRequestID(ctx),
					"error", err)
				return resp, err
			}
			s.logger.Debug("session: tool handled",
				"tool", name,
				"transport", kit.GetTransport(ctx),
				"request", kit.GetRequestID(ctx),
				"duration", time.Since(start))
			return resp, err
		}
	}
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	sch := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		sch["required"] = required
	}
	return sch
}

// --- status ---

type statusRequest struct{}

func (s *Session) registerStatusTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "highlight_status",
		Description: "Get the highlight session summary: page, tracked selectors, overlay counters.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		return s.Status(), nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: &statusRequest{}}, nil
	}

	kit.RegisterMCPTool(srv, tool, s.wrapTool(tool.Name, endpoint), decode)
}

// --- add ---

type addRequest struct {
	ID  string `json:"id,omitempty"`
	CSS string `json:"css"`
}

func (s *Session) registerAddTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "highlight_add",
		Description: "Start highlighting elements matching a CSS selector. Returns the selector id.",
		InputSchema: inputSchema(map[string]any{
			"id":  map[string]any{"type": "string", "description": "Optional selector id; minted when omitted. Re-using an id replaces its pattern."},
			"css": map[string]any{"type": "string", "description": "CSS selector to highlight (e.g. 'circle.selected')"},
		}, []string{"css"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*addRequest)
		id, err := s.AddSelector(r.ID, r.CSS)
		if err != nil {
			return nil, err
		}
		return map[string]string{"id": id}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r addRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, s.wrapTool(tool.Name, endpoint), decode)
}

// --- remove ---

type removeRequest struct {
	ID string `json:"id"`
}

func (s *Session) registerRemoveTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "highlight_remove",
		Description: "Stop highlighting a selector by id. The markers it produced are hidden, not destroyed.",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Selector id returned by highlight_add"},
		}, []string{"id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*removeRequest)
		if !s.RemoveSelector(r.ID) {
			return nil, errUnknownSelector(r.ID)
		}
		return map[string]string{"id": r.ID}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r removeRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, s.wrapTool(tool.Name, endpoint), decode)
}

type errUnknownSelector string

func (e errUnknownSelector) Error() string {
	return "session: unknown selector id " + string(e)
}
