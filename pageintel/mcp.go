package pageintel

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterMCP registers pipeline tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerExtractTool(srv)
	s.registerRecordTool(srv)
	s.registerFamiliesTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// registerTool wires a typed endpoint as an MCP tool: decode arguments,
// run, marshal the result as text content. Errors become tool errors, not
// protocol failures.
func registerTool[Req any](srv *mcp.Server, tool *mcp.Tool, run func(context.Context, *Req) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args Req
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("invalid arguments: %w", err))
			return &res, nil
		}
		out, err := run(ctx, &args)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(err)
			return &res, nil
		}
		data, err := json.Marshal(out)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

type extractToolReq struct {
	URL string `json:"url"`
}

func (s *Service) registerExtractTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "page_extract",
		Description: "Extract a normalized product record from a catalog product page URL.",
		InputSchema: inputSchema(map[string]any{
			"url": map[string]any{"type": "string", "description": "Product page URL"},
		}, []string{"url"}),
	}
	registerTool(srv, tool, func(ctx context.Context, req *extractToolReq) (any, error) {
		rec, rep, err := s.Extract(ctx, req.URL)
		if err != nil {
			return nil, err
		}
		return map[string]any{"record": rec, "report": rep}, nil
	})
}

type recordToolReq struct {
	SKU string `json:"sku"`
	URL string `json:"url"`
}

func (s *Service) registerRecordTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "record_get",
		Description: "Fetch a stored product record by SKU or canonical URL.",
		InputSchema: inputSchema(map[string]any{
			"sku": map[string]any{"type": "string", "description": "Catalog SKU"},
			"url": map[string]any{"type": "string", "description": "Canonical product URL"},
		}, nil),
	}
	registerTool(srv, tool, func(ctx context.Context, req *recordToolReq) (any, error) {
		switch {
		case req.SKU != "":
			return s.RecordBySKU(ctx, req.SKU)
		case req.URL != "":
			return s.RecordByURL(ctx, req.URL)
		}
		return nil, fmt.Errorf("sku or url required")
	})
}

type familiesToolReq struct{}

func (s *Service) registerFamiliesTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "families_list",
		Description: "List the product page families the classifier recognizes.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	registerTool(srv, tool, func(ctx context.Context, _ *familiesToolReq) (any, error) {
		st, err := s.Stats(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"families":  Families(),
			"by_family": st.ByFamily,
		}, nil
	})
}
