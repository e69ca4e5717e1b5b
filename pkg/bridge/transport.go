package bridge

import (
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/maicraft/maicraft-go/pkg/config"
)

// Transport kinds accepted in [game].transport.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
	TransportSSE   = "sse"
)

// newTransport builds an MCP SDK transport from the [game] config section.
func newTransport(cfg config.GameConfig) (mcpsdk.Transport, error) {
	switch cfg.Transport {
	case TransportStdio:
		return newStdioTransport(cfg)
	case TransportHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("http transport requires url")
		}
		return &mcpsdk.StreamableClientTransport{
			Endpoint:   cfg.URL,
			HTTPClient: newHTTPClient(cfg),
		}, nil
	case TransportSSE:
		if cfg.URL == "" {
			return nil, fmt.Errorf("sse transport requires url")
		}
		return &mcpsdk.SSEClientTransport{
			Endpoint:   cfg.URL,
			HTTPClient: newHTTPClient(cfg),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported bridge transport: %q", cfg.Transport)
	}
}

func newStdioTransport(cfg config.GameConfig) (*mcpsdk.CommandTransport, error) {
	if cfg.Command == "" {
		return nil, fmt.Errorf("stdio transport requires command")
	}
	cmd := exec.Command(cfg.Command, cfg.Args...)
	// The bridge subprocess inherits our environment so it can read its own
	// server address and credentials from the same .env file.
	cmd.Env = os.Environ()
	return &mcpsdk.CommandTransport{Command: cmd}, nil
}

// newHTTPClient returns nil when no timeout is configured, letting the SDK
// use its default client.
func newHTTPClient(cfg config.GameConfig) *http.Client {
	if cfg.Timeout <= 0 {
		return nil
	}
	return &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}
}
