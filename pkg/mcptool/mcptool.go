// Package mcptool serves commit message generation over the Model Context
// Protocol, so MCP-capable editors can request a message in-process instead
// of shelling out to the CLI.
package mcptool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// GenerateToolName is the tool editors call to produce a commit message.
const GenerateToolName = "generate_commit_message"

const generateSchema = `{
	"type": "object",
	"properties": {
		"path": {
			"type": "string",
			"description": "Path to the git repository. Defaults to the server's working directory."
		}
	},
	"additionalProperties": false
}`

// Handler executes a tool with the given JSON input and returns a text result.
type Handler func(ctx context.Context, input json.RawMessage) (string, error)

// Tool is a tool definition served by Server.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     Handler
}

// Generate produces a commit message for the repository at path.
type Generate func(ctx context.Context, path string) (string, error)

// GenerateTool wraps a Generate func as the generate_commit_message tool.
func GenerateTool(generate Generate) Tool {
	return Tool{
		Name:        GenerateToolName,
		Description: "Generate a conventional commit message from the staged changes of a git repository.",
		InputSchema: json.RawMessage(generateSchema),
		Handler: func(ctx context.Context, input json.RawMessage) (string, error) {
			var args struct {
				Path string `json:"path"`
			}

			if len(input) > 0 {
				if err := json.Unmarshal(input, &args); err != nil {
					return "", fmt.Errorf("mcptool: decode arguments: %w", err)
				}
			}

			if args.Path == "" {
				args.Path = "."
			}

			return generate(ctx, args.Path)
		},
	}
}

// Server serves tools over the MCP protocol using the official MCP Go SDK.
type Server struct {
	server *mcp.Server
}

// New creates a Server with the given implementation name and version.
func New(name, version string) *Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    name,
		Version: version,
	}, nil)

	return &Server{server: server}
}

// Register adds tools to the server.
func (s *Server) Register(tools ...Tool) {
	for _, t := range tools {
		s.server.AddTool(toSDKTool(t), toSDKHandler(t.Handler))
	}
}

// Serve reads MCP requests from in and writes responses to out. It blocks
// until ctx is cancelled or the transport closes.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	transport := &mcp.IOTransport{
		Reader: io.NopCloser(in),
		Writer: nopWriteCloser{out},
	}

	return s.run(ctx, transport)
}

// run starts the server on the given transport. Serve wraps it for stdio;
// tests drive it with in-memory transports.
func (s *Server) run(ctx context.Context, transport mcp.Transport) error {
	return s.server.Run(ctx, transport)
}

func toSDKTool(t Tool) *mcp.Tool {
	return &mcp.Tool{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: t.InputSchema,
	}
}

func toSDKHandler(h Handler) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.Params.Arguments
		if args == nil {
			args = json.RawMessage("{}")
		}

		result, err := h(ctx, args)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
				IsError: true,
			}, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: result}},
		}, nil
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
