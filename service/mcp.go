package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/snapkeep/kit"
)

// RegisterMCP registers all snapkeep tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerCapture(srv)
	s.registerFullPage(srv)
	s.registerCheckURL(srv)
	s.registerPageInfo(srv)
	s.registerList(srv)
	s.registerDelete(srv)
	s.registerValidate(srv)
	s.registerStats(srv)
	s.registerCleanupNow(srv)
	s.registerStatus(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	sc := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		sc["required"] = required
	}
	return sc
}

func decodeInto[T any](r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var p T
	if len(r.Params.Arguments) > 0 {
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
	}
	return &kit.MCPDecodeResult{Request: &p}, nil
}

// --- Capture ---

func (s *Service) registerCapture(srv *mcp.Server) {
	type req struct {
		URL               string `json:"url"`
		Selector          string `json:"selector"`
		Name              string `json:"name"`
		WaitForAnimations bool   `json:"wait_for_animations"`
	}

	tool := &mcp.Tool{
		Name:        "snap_capture",
		Description: "Screenshot one element of a page, identified by CSS selector, and store it as a PNG artifact",
		InputSchema: inputSchema(map[string]any{
			"url":                 map[string]any{"type": "string", "description": "Page URL (http or https)"},
			"selector":            map[string]any{"type": "string", "description": "CSS selector of the element to capture"},
			"name":                map[string]any{"type": "string", "description": "Artifact filename; generated when empty"},
			"wait_for_animations": map[string]any{"type": "boolean", "description": "Extra settle delay before shooting"},
		}, []string{"url", "selector"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return s.Capture(ctx, CaptureRequest{
			URL:               p.URL,
			Selector:          p.Selector,
			Name:              p.Name,
			WaitForAnimations: p.WaitForAnimations,
		})
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}

func (s *Service) registerFullPage(srv *mcp.Server) {
	type req struct {
		URL               string `json:"url"`
		Name              string `json:"name"`
		WaitForAnimations bool   `json:"wait_for_animations"`
	}

	tool := &mcp.Tool{
		Name:        "snap_fullpage",
		Description: "Screenshot an entire page and store it as a PNG artifact",
		InputSchema: inputSchema(map[string]any{
			"url":                 map[string]any{"type": "string", "description": "Page URL (http or https)"},
			"name":                map[string]any{"type": "string", "description": "Artifact filename; generated when empty"},
			"wait_for_animations": map[string]any{"type": "boolean", "description": "Extra settle delay before shooting"},
		}, []string{"url"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return s.Capture(ctx, CaptureRequest{
			URL:               p.URL,
			Name:              p.Name,
			WaitForAnimations: p.WaitForAnimations,
		})
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}

func (s *Service) registerCheckURL(srv *mcp.Server) {
	type req struct {
		URL string `json:"url"`
	}

	tool := &mcp.Tool{
		Name:        "snap_check_url",
		Description: "Probe a URL over HTTP and report accessibility, status and final URL after redirects",
		InputSchema: inputSchema(map[string]any{
			"url": map[string]any{"type": "string", "description": "URL to probe"},
		}, []string{"url"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return s.CheckURL(ctx, p.URL), nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}

func (s *Service) registerPageInfo(srv *mcp.Server) {
	type req struct {
		URL string `json:"url"`
	}

	tool := &mcp.Tool{
		Name:        "snap_page_info",
		Description: "Navigate to a page in the headless browser and report title, final URL and dimensions",
		InputSchema: inputSchema(map[string]any{
			"url": map[string]any{"type": "string", "description": "Page URL (http or https)"},
		}, []string{"url"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return s.PageInfo(ctx, p.URL)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}

// --- Store ---

func (s *Service) registerList(srv *mcp.Server) {
	type req struct{}

	tool := &mcp.Tool{
		Name:        "snap_list",
		Description: "List all stored screenshot artifacts with size and timestamps",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		return s.List()
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}

func (s *Service) registerDelete(srv *mcp.Server) {
	type req struct {
		Name string `json:"name"`
	}

	tool := &mcp.Tool{
		Name:        "snap_delete",
		Description: "Delete one stored artifact by name; deleting a missing artifact succeeds",
		InputSchema: inputSchema(map[string]any{
			"name": map[string]any{"type": "string", "description": "Artifact filename"},
		}, []string{"name"}),
	}

	endpoint := func(_ context.Context, r any) (any, error) {
		p := r.(*req)
		deleted, err := s.Delete(p.Name)
		if err != nil {
			return nil, err
		}
		return map[string]any{"deleted": deleted, "name": p.Name}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}

func (s *Service) registerValidate(srv *mcp.Server) {
	type req struct {
		Name string `json:"name"`
	}

	tool := &mcp.Tool{
		Name:        "snap_validate",
		Description: "Check that a stored artifact exists, has a valid name, is non-empty, within size limits and carries a PNG signature",
		InputSchema: inputSchema(map[string]any{
			"name": map[string]any{"type": "string", "description": "Artifact filename"},
		}, []string{"name"}),
	}

	endpoint := func(_ context.Context, r any) (any, error) {
		p := r.(*req)
		return s.Validate(p.Name)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}

func (s *Service) registerStats(srv *mcp.Server) {
	type req struct {
		IncludeDetails bool `json:"include_details"`
	}

	tool := &mcp.Tool{
		Name:        "snap_stats",
		Description: "Report artifact store totals: count, bytes, oldest and newest",
		InputSchema: inputSchema(map[string]any{
			"include_details": map[string]any{"type": "boolean", "description": "Include the per-artifact list"},
		}, nil),
	}

	endpoint := func(_ context.Context, r any) (any, error) {
		p := r.(*req)
		return s.Stats(p.IncludeDetails)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}

// --- Retention ---

func (s *Service) registerCleanupNow(srv *mcp.Server) {
	type req struct {
		MaxAgeHours float64 `json:"max_age_hours"`
	}

	tool := &mcp.Tool{
		Name:        "snap_cleanup_now",
		Description: "Evict artifacts older than the given age immediately; zero uses the configured retention policy",
		InputSchema: inputSchema(map[string]any{
			"max_age_hours": map[string]any{"type": "number", "description": "Age threshold in hours; 0 = configured policy"},
		}, nil),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		maxAge := time.Duration(p.MaxAgeHours * float64(time.Hour))
		return s.CleanupNow(ctx, maxAge), nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}

func (s *Service) registerStatus(srv *mcp.Server) {
	type req struct{}

	tool := &mcp.Tool{
		Name:        "snap_status",
		Description: "Report the retention scheduler state and per-job activity",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		return s.SchedulerStatus(), nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[req])
}
