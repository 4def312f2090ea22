// Package mcptool exposes tools discovered from an external Model
// Context Protocol server as kernel Tools, grounded on the teacher's
// mcptoolset package's stdio transport (mark3labs/mcp-go): start a
// subprocess, initialize the protocol handshake, list tools, and wrap
// each one for dispatch through EXECUTE/SANDBOXED-EXECUTE.
package mcptool

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ailrun/ail/pkg/ail"
	"github.com/ailrun/ail/pkg/sandbox"
	"github.com/ailrun/ail/pkg/tool"
)

const protocolVersion = "2024-11-05"

// Config configures a stdio-launched MCP server.
type Config struct {
	Command string
	Args    []string
	Env     map[string]string
}

// Source connects to an MCP server and discovers its tools.
type Source struct {
	cfg    Config
	client *client.Client
}

// Connect launches the MCP server process and performs the protocol
// handshake.
func Connect(ctx context.Context, cfg Config) (*Source, error) {
	env := make([]string, 0, len(cfg.Env))
	for k, v := range cfg.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	c, err := client.NewStdioMCPClient(cfg.Command, env, cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("mcptool: creating client: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("mcptool: starting server: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{Name: "ail", Version: "0.1.0"}
	initReq.Params.ProtocolVersion = protocolVersion
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return nil, fmt.Errorf("mcptool: initializing: %w", err)
	}

	return &Source{cfg: cfg, client: c}, nil
}

// Close shuts down the underlying MCP server process.
func (s *Source) Close() error {
	return s.client.Close()
}

// DiscoverTools lists tools the MCP server exposes and wraps each as
// a kernel Tool.
func (s *Source) DiscoverTools(ctx context.Context) ([]tool.Tool, error) {
	resp, err := s.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcptool: listing tools: %w", err)
	}

	tools := make([]tool.Tool, 0, len(resp.Tools))
	for _, mt := range resp.Tools {
		tools = append(tools, &wrapper{source: s, name: mt.Name, description: mt.Description})
	}
	return tools, nil
}

// wrapper adapts a single MCP-server tool to the kernel's Tool
// interface. MCP tools are always dispatched as Blocking: they cross
// a subprocess boundary.
type wrapper struct {
	source      *Source
	name        string
	description string
}

func (w *wrapper) Info() tool.Info {
	return tool.Info{Name: w.name, Description: w.description}
}

func (w *wrapper) Mode() tool.Mode { return tool.Blocking }

func (w *wrapper) Capabilities() sandbox.Capabilities {
	return sandbox.Capabilities{NetworkAccess: true}
}

// Execute expects params as a metadata map of named arguments,
// matching the MCP tool's input schema.
func (w *wrapper) Execute(ctx context.Context, params ail.Value) (tool.Result, error) {
	args, ok := params.(map[string]ail.Value)
	if !ok {
		if params == nil {
			args = map[string]ail.Value{}
		} else {
			err := fmt.Errorf("mcptool: %s: parameters must be a metadata map", w.name)
			return tool.Result{Success: false, Error: err.Error()}, err
		}
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = w.name
	req.Params.Arguments = args

	resp, err := w.source.client.CallTool(ctx, req)
	if err != nil {
		return tool.Result{Success: false, Error: err.Error()}, err
	}

	text := ""
	for _, c := range resp.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			text += tc.Text
		}
	}

	if resp.IsError {
		err := fmt.Errorf("mcptool: %s: %s", w.name, text)
		return tool.Result{Success: false, Error: text}, err
	}
	return tool.Result{Success: true, Value: text}, nil
}
