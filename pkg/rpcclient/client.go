// Package rpcclient is a thin wrapper around mark3labs/mcp-go's client
// package for driving a ridecore server's generate_route and prep_cache
// tools from the CLI, the same library the server side is built on.
package rpcclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// Client wraps an MCP client connected to a ridecore server over stdio.
type Client struct {
	mcp *client.Client
}

// DialStdio spawns command as a subprocess and speaks MCP over its
// stdin/stdout.
func DialStdio(ctx context.Context, command string, args ...string) (*Client, error) {
	c, err := client.NewStdioMCPClient(command, nil, args...)
	if err != nil {
		return nil, fmt.Errorf("rpcclient: dial stdio: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "ridecore-client", Version: "0.1.0"}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return nil, fmt.Errorf("rpcclient: initialize: %w", err)
	}

	return &Client{mcp: c}, nil
}

// Close ends the session and terminates the server subprocess.
func (c *Client) Close() error { return c.mcp.Close() }

// CallTool invokes name with args and returns its text result, or an error
// if the tool reported one.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := c.mcp.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("rpcclient: call %s: %w", name, err)
	}

	var text string
	for _, content := range result.Content {
		if t, ok := content.(mcp.TextContent); ok {
			text = t.Text
			break
		}
	}
	if result.IsError {
		return "", fmt.Errorf("rpcclient: %s reported an error: %s", name, text)
	}
	return text, nil
}

// GenerateRoute calls generate_route with the given request body, already
// shaped to match rpcserver's generateRouteInput (start/finish or
// center/distance_m, plus rule_file and format).
func (c *Client) GenerateRoute(ctx context.Context, req map[string]any) (string, error) {
	return c.CallTool(ctx, "generate_route", req)
}

// PrepCache calls prep_cache to build and persist a graph cache.
func (c *Client) PrepCache(ctx context.Context, inputPath, cachePath string) (string, error) {
	return c.CallTool(ctx, "prep_cache", map[string]any{
		"input":      inputPath,
		"cache_path": cachePath,
	})
}

// MarshalArgs is a convenience for building a generate_route arguments map
// from a Go value via JSON round-trip, so CLI code can reuse the same
// struct shapes the server decodes.
func MarshalArgs(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
