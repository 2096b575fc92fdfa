// CLAUDE:SUMMARY MCP tool surface: extpipe_extract, extpipe_plugins, extpipe_stages.
package pipeline

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/extpipe/kit"
)

// RegisterMCP registers extraction tools on an MCP server.
func (p *Pipeline) RegisterMCP(srv *mcp.Server) {
	p.registerExtractTool(srv)
	p.registerPluginsTool(srv)
	p.registerStagesTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- extract ---

type mcpExtractReq struct {
	// Input is the document content, base64-encoded.
	Input    string         `json:"input"`
	MimeType string         `json:"mime_type"`
	Config   map[string]any `json:"config,omitempty"`
	Plugins  *PluginOpts    `json:"plugins,omitempty"`
}

func (p *Pipeline) registerExtractTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "extpipe_extract",
		Description: "Run a document through the extraction pipeline: validation, extraction, staged post-processing.",
		InputSchema: inputSchema(map[string]any{
			"input":     map[string]any{"type": "string", "description": "Document content, base64-encoded"},
			"mime_type": map[string]any{"type": "string", "description": "MIME type of the input"},
			"config":    map[string]any{"type": "object", "description": "Extraction configuration passed to the engine and post-processors"},
			"plugins":   map[string]any{"type": "object", "description": "Plugin selection overriding the registry defaults"},
		}, []string{"input", "mime_type"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*mcpExtractReq)
		input, err := base64.StdEncoding.DecodeString(r.Input)
		if err != nil {
			return nil, err
		}
		return p.ExtractWithPlugins(ctx, input, r.MimeType, r.Config, r.Plugins)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r mcpExtractReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- plugins ---

func (p *Pipeline) registerPluginsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "extpipe_plugins",
		Description: "List registered validators, post-processors per stage, and OCR backends.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		processors := map[string][]string{}
		for _, stage := range Stages() {
			processors[string(stage)] = p.registry.ListPostProcessors(stage)
		}
		return map[string]any{
			"validators":      p.registry.ListValidators(),
			"post_processors": processors,
			"ocr_backends":    p.registry.ListOcrBackends(),
		}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- stages ---

func (p *Pipeline) registerStagesTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "extpipe_stages",
		Description: "List the post-processing stages in execution order.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		stages := make([]string, 0, len(Stages()))
		for _, s := range Stages() {
			stages = append(stages, string(s))
		}
		return map[string]any{"stages": stages}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
