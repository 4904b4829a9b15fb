// Package mcp exposes the in-page bridge as a Model Context Protocol tool
// so agent hosts can drive dapp requests through the wallet.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	mcpproto "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/sealvault/sealvault-core/app"
	"github.com/sealvault/sealvault-core/provider"
)

const (
	serverName    = "sealvault"
	serverVersion = "0.1.0"
)

// WalletToolName is the tool agents call with raw JSON-RPC requests.
const WalletToolName = "wallet_in_page_request"

// WalletServer serves the wallet bridge tool over MCP.
type WalletServer struct {
	mcpServer *mcpserver.MCPServer
	logger    *slog.Logger
}

// NewWalletServer creates an MCP server with the wallet tool registered. All
// tool calls act as the page at pageURL.
func NewWalletServer(core *app.Core, pageURL string, logger *slog.Logger) *WalletServer {
	if logger == nil {
		logger = slog.Default()
	}
	server := mcpserver.NewMCPServer(serverName, serverVersion)
	tool, handler := NewWalletTool(core, pageURL, logger)
	server.AddTool(tool, handler)
	return &WalletServer{mcpServer: server, logger: logger}
}

// Serve runs the server on stdio until the client disconnects.
func (s *WalletServer) Serve() error {
	return mcpserver.ServeStdio(s.mcpServer)
}

// NewWalletTool builds the wallet_in_page_request tool and its handler. The
// handler approves every dapp connection without prompting, so this surface
// is for development and agent sandboxes, not end users.
func NewWalletTool(core *app.Core, pageURL string, logger *slog.Logger) (mcpproto.Tool, mcpserver.ToolHandlerFunc) {
	if logger == nil {
		logger = slog.Default()
	}
	tool := mcpproto.NewTool(
		WalletToolName,
		mcpproto.WithDescription("Send a JSON-RPC 2.0 request from the dapp page through the wallet. "+
			"Start a session with eth_requestAccounts, then call other Ethereum provider methods."),
		mcpproto.WithString("request", mcpproto.Required(),
			mcpproto.Description("Raw JSON-RPC 2.0 request object as a string")),
	)

	reqCtx := provider.InPageRequestContext{
		PageURL:   pageURL,
		Callbacks: &agentCallbacks{logger: logger},
	}

	handler := func(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
		args := req.GetArguments()
		raw, _ := args["request"].(string)
		if raw == "" {
			return toolError("request argument is required"), nil
		}

		responseHex, err := core.InPageRequest(ctx, reqCtx, raw)
		if err != nil {
			// Envelope or internal failures carry no JSON-RPC response. Let
			// the agent see the reason so it can correct the request.
			return toolError(fmt.Sprintf("request failed: %v", err)), nil
		}
		response, err := provider.DecodeHex(responseHex)
		if err != nil {
			return nil, fmt.Errorf("decode bridge response: %w", err)
		}
		return &mcpproto.CallToolResult{
			Content: []mcpproto.Content{mcpproto.NewTextContent(string(response))},
		}, nil
	}
	return tool, handler
}

func toolError(message string) *mcpproto.CallToolResult {
	return &mcpproto.CallToolResult{
		Content: []mcpproto.Content{mcpproto.NewTextContent(message)},
		IsError: true,
	}
}

// agentCallbacks approves every connection and logs notifications. Agent
// hosts have no user to prompt.
type agentCallbacks struct {
	logger *slog.Logger
}

func (c *agentCallbacks) ApproveDapp(params provider.DappApprovalParams) bool {
	c.logger.Info("dapp connection approved",
		slog.String("dapp", params.DappIdentifier),
		slog.String("account_id", params.AccountID),
	)
	return true
}

func (c *agentCallbacks) Notify(messageHex string) {
	message, err := provider.DecodeHex(messageHex)
	if err != nil {
		c.logger.Error("malformed provider notification", slog.Any("error", err))
		return
	}
	var envelope struct {
		Event string `json:"event"`
	}
	_ = json.Unmarshal(message, &envelope)
	c.logger.Debug("provider event",
		slog.String("event", envelope.Event),
		slog.String("message", string(message)),
	)
}
