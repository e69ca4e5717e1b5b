// Package bridge connects the agent to the game bridge process over MCP:
// transport construction, session management, per-call timeouts, error
// classification, and session recreation when the transport dies. Tool
// results arrive as a JSON envelope that Call parses into a Result.
package bridge

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/maicraft/maicraft-go/pkg/config"
	"github.com/maicraft/maicraft-go/pkg/version"
)

// ToolCaller is the narrow calling surface the combat and crafting layers
// consume; tests substitute a stub.
type ToolCaller interface {
	Call(ctx context.Context, tool string, args map[string]any) (Result, error)
}

// Client manages the MCP session to the game bridge. Thread-safe: the poll
// loop, combat loop, and planner call tools concurrently.
type Client struct {
	cfg config.GameConfig

	mu      sync.RWMutex
	client  *mcpsdk.Client
	session *mcpsdk.ClientSession
	lastErr string

	// reinitMu serializes connect/reconnect attempts so concurrent callers
	// don't race to recreate the same session.
	reinitMu sync.Mutex
}

var _ ToolCaller = (*Client)(nil)

// Status is the bridge state exposed on the REST status surface.
type Status struct {
	Connected bool   `json:"connected"`
	Transport string `json:"transport"`
	LastError string `json:"last_error,omitempty"`
}

// NewClient creates an unconnected client for the configured bridge.
func NewClient(cfg config.GameConfig) *Client {
	return &Client{cfg: cfg}
}

// Connect establishes the bridge session. Returns nil if already connected;
// safe to call again after a failure.
func (c *Client) Connect(ctx context.Context) error {
	c.reinitMu.Lock()
	defer c.reinitMu.Unlock()
	return c.connectLocked(ctx, InitTimeout)
}

// connectLocked performs the connection; the caller holds reinitMu.
func (c *Client) connectLocked(ctx context.Context, timeout time.Duration) error {
	c.mu.RLock()
	connected := c.session != nil
	c.mu.RUnlock()
	if connected {
		return nil
	}

	transport, err := newTransport(c.cfg)
	if err != nil {
		return fmt.Errorf("create bridge transport: %w", err)
	}

	initCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{
		Name:    version.AppName,
		Version: version.GitCommit,
	}, nil)

	session, err := client.Connect(initCtx, transport, nil)
	if err != nil {
		// Close the transport if it holds resources (stdio child process);
		// the SDK covers most failure paths but not all transport types.
		if closer, ok := transport.(io.Closer); ok {
			_ = closer.Close()
		}
		c.recordError(err)
		return fmt.Errorf("connect to game bridge: %w", err)
	}

	c.mu.Lock()
	c.client = client
	c.session = session
	c.lastErr = ""
	c.mu.Unlock()

	slog.Info("Game bridge connected", "transport", c.cfg.Transport)
	return nil
}

// Call executes one bridge tool and parses the result envelope. Transport
// failures get a single retry after a jittered backoff, recreating the
// session when the classification asks for it.
func (c *Client) Call(ctx context.Context, tool string, args map[string]any) (Result, error) {
	params := &mcpsdk.CallToolParams{Name: tool, Arguments: args}

	res, err := c.callOnce(ctx, params)
	if err == nil {
		return parseCallResult(res), nil
	}

	action := ClassifyError(err)
	if action == NoRetry {
		c.recordError(err)
		return Result{}, err
	}

	slog.Info("Bridge call failed, retrying",
		"tool", tool, "action", action, "error", err)

	backoff := RetryBackoffMin + time.Duration(rand.Int64N(int64(RetryBackoffMax-RetryBackoffMin)))
	select {
	case <-time.After(backoff):
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	if action == RetryNewSession {
		if rerr := c.reconnect(ctx); rerr != nil {
			c.recordError(rerr)
			return Result{}, fmt.Errorf("bridge session recreation failed: %w", rerr)
		}
	}

	res, err = c.callOnce(ctx, params)
	if err != nil {
		c.recordError(err)
		return Result{}, fmt.Errorf("bridge retry failed for %s: %w", tool, err)
	}
	return parseCallResult(res), nil
}

// callOnce performs a single CallTool attempt against the live session.
func (c *Client) callOnce(ctx context.Context, params *mcpsdk.CallToolParams) (*mcpsdk.CallToolResult, error) {
	c.mu.RLock()
	session := c.session
	c.mu.RUnlock()
	if session == nil {
		return nil, fmt.Errorf("bridge not connected")
	}

	opCtx, cancel := context.WithTimeout(ctx, c.operationTimeout())
	defer cancel()

	return session.CallTool(opCtx, params)
}

func (c *Client) operationTimeout() time.Duration {
	if t := c.cfg.ToolTimeout(); t > 0 {
		return t
	}
	return OperationTimeout
}

// reconnect tears down the session and builds a fresh one.
func (c *Client) reconnect(ctx context.Context) error {
	c.reinitMu.Lock()
	defer c.reinitMu.Unlock()

	c.mu.Lock()
	if c.session != nil {
		_ = c.session.Close()
		c.session = nil
		c.client = nil
	}
	c.mu.Unlock()

	return c.connectLocked(ctx, ReinitTimeout)
}

// Close shuts down the session and its transport.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	c.client = nil
	if err != nil {
		return fmt.Errorf("close bridge session: %w", err)
	}
	return nil
}

// Connected reports whether a session is live.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session != nil
}

// LastError returns the most recent transport or call failure, empty after
// a successful connect.
func (c *Client) LastError() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Status snapshots the connection state for the REST status surface.
func (c *Client) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{
		Connected: c.session != nil,
		Transport: c.cfg.Transport,
		LastError: c.lastErr,
	}
}

func (c *Client) recordError(err error) {
	c.mu.Lock()
	c.lastErr = err.Error()
	c.mu.Unlock()
}
