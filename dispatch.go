package mcphost

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ListPrompts requests the server's prompt list for the given pagination
// cursor. It fails with ErrNotConnected before the handshake completed and
// with a capability error when the server never advertised prompts.
func (c *Conn) ListPrompts(ctx context.Context, params ListPromptsParams) (ListPromptsResult, error) {
	if err := c.promptsAvailable(); err != nil {
		return ListPromptsResult{}, err
	}

	res, err := c.call(ctx, MethodPromptsList, params)
	if err != nil {
		return ListPromptsResult{}, err
	}
	if res.Error != nil {
		return ListPromptsResult{}, fmt.Errorf("result error: %w", res.Error)
	}

	var result ListPromptsResult
	if err := json.Unmarshal(res.Result, &result); err != nil {
		return ListPromptsResult{}, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return result, nil
}

// GetPrompt fetches one prompt expanded with the given arguments.
func (c *Conn) GetPrompt(ctx context.Context, params GetPromptParams) (GetPromptResult, error) {
	if err := c.promptsAvailable(); err != nil {
		return GetPromptResult{}, err
	}

	res, err := c.call(ctx, MethodPromptsGet, params)
	if err != nil {
		return GetPromptResult{}, err
	}
	if res.Error != nil {
		return GetPromptResult{}, fmt.Errorf("result error: %w", res.Error)
	}

	var result GetPromptResult
	if err := json.Unmarshal(res.Result, &result); err != nil {
		return GetPromptResult{}, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return result, nil
}

// ListResources requests the server's resource list for the given pagination
// cursor.
func (c *Conn) ListResources(ctx context.Context, params ListResourcesParams) (ListResourcesResult, error) {
	if err := c.resourcesAvailable(); err != nil {
		return ListResourcesResult{}, err
	}

	res, err := c.call(ctx, MethodResourcesList, params)
	if err != nil {
		return ListResourcesResult{}, err
	}
	if res.Error != nil {
		return ListResourcesResult{}, fmt.Errorf("result error: %w", res.Error)
	}

	var result ListResourcesResult
	if err := json.Unmarshal(res.Result, &result); err != nil {
		return ListResourcesResult{}, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return result, nil
}

// ReadResource reads the contents of the resource at the given URI.
func (c *Conn) ReadResource(ctx context.Context, params ReadResourceParams) (ReadResourceResult, error) {
	if err := c.resourcesAvailable(); err != nil {
		return ReadResourceResult{}, err
	}

	res, err := c.call(ctx, MethodResourcesRead, params)
	if err != nil {
		return ReadResourceResult{}, err
	}
	if res.Error != nil {
		return ReadResourceResult{}, fmt.Errorf("result error: %w", res.Error)
	}

	var result ReadResourceResult
	if err := json.Unmarshal(res.Result, &result); err != nil {
		return ReadResourceResult{}, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return result, nil
}

// ListResourceTemplates requests the server's resource template list.
func (c *Conn) ListResourceTemplates(ctx context.Context, params ListResourceTemplatesParams) (ListResourceTemplatesResult, error) {
	if err := c.resourcesAvailable(); err != nil {
		return ListResourceTemplatesResult{}, err
	}

	res, err := c.call(ctx, MethodResourcesTemplatesList, params)
	if err != nil {
		return ListResourceTemplatesResult{}, err
	}
	if res.Error != nil {
		return ListResourceTemplatesResult{}, fmt.Errorf("result error: %w", res.Error)
	}

	var result ListResourceTemplatesResult
	if err := json.Unmarshal(res.Result, &result); err != nil {
		return ListResourceTemplatesResult{}, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return result, nil
}

// SubscribeResource registers interest in change notifications for the
// resource at the given URI. Updates are delivered to the connection's
// ResourceSubscribedWatcher.
func (c *Conn) SubscribeResource(ctx context.Context, params SubscribeResourceParams) error {
	if err := c.resourceSubscriptionAvailable(); err != nil {
		return err
	}

	res, err := c.call(ctx, MethodResourcesSubscribe, params)
	if err != nil {
		return err
	}
	if res.Error != nil {
		return fmt.Errorf("result error: %w", res.Error)
	}
	return nil
}

// UnsubscribeResource removes a previously registered resource subscription.
func (c *Conn) UnsubscribeResource(ctx context.Context, params UnsubscribeResourceParams) error {
	if err := c.resourceSubscriptionAvailable(); err != nil {
		return err
	}

	res, err := c.call(ctx, MethodResourcesUnsubscribe, params)
	if err != nil {
		return err
	}
	if res.Error != nil {
		return fmt.Errorf("result error: %w", res.Error)
	}
	return nil
}

// ListTools requests the server's tool list for the given pagination cursor.
func (c *Conn) ListTools(ctx context.Context, params ListToolsParams) (ListToolsResult, error) {
	if err := c.toolsAvailable(); err != nil {
		return ListToolsResult{}, err
	}

	res, err := c.call(ctx, MethodToolsList, params)
	if err != nil {
		return ListToolsResult{}, err
	}
	if res.Error != nil {
		return ListToolsResult{}, fmt.Errorf("result error: %w", res.Error)
	}

	var result ListToolsResult
	if err := json.Unmarshal(res.Result, &result); err != nil {
		return ListToolsResult{}, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return result, nil
}

// CallTool invokes the named tool and waits for its result. A tool-level
// failure from the server surfaces as a *ToolCallError carrying the wire
// error; a result whose payload references a long-running task is tracked by
// the connection's TaskManager before being returned.
func (c *Conn) CallTool(ctx context.Context, params CallToolParams) (CallToolResult, error) {
	if err := c.toolsAvailable(); err != nil {
		return CallToolResult{}, err
	}

	res, err := c.call(ctx, MethodToolsCall, params)
	if err != nil {
		return CallToolResult{}, err
	}
	if res.Error != nil {
		return CallToolResult{}, &ToolCallError{Tool: params.Name, RPC: res.Error}
	}

	var result CallToolResult
	if err := json.Unmarshal(res.Result, &result); err != nil {
		return CallToolResult{}, fmt.Errorf("failed to unmarshal result: %w", err)
	}

	if result.Task != nil {
		result.Task.Method = MethodToolsCall
		c.tasks.track(*result.Task)
	}
	return result, nil
}

// toolStream tracks one in-flight streaming tool call. Chunks are delivered
// from the read loop in arrival order; the terminal frame resolves the stream
// exactly once, even when a cancel races it.
type toolStream struct {
	terminal chan JSONRPCMessage

	mu        sync.Mutex
	cancelled bool
	onChunk   func(Content)
}

func (s *toolStream) deliver(content Content) {
	s.mu.Lock()
	cancelled := s.cancelled
	cb := s.onChunk
	s.mu.Unlock()
	if cancelled || cb == nil {
		return
	}
	cb(content)
}

func (s *toolStream) cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
}

func (s *toolStream) finish(msg JSONRPCMessage) {
	select {
	case s.terminal <- msg:
	default:
	}
}

// CallToolStream invokes the named tool and delivers intermediate output
// chunks to onChunk as they arrive, in order, until the terminal result. When
// ctx is cancelled mid-stream the server is notified, no further chunks are
// delivered, and the call fails with ErrStreamAborted; chunks still arriving
// for the abandoned call are discarded.
func (c *Conn) CallToolStream(ctx context.Context, params CallToolParams, onChunk func(Content)) (CallToolResult, error) {
	if err := c.toolsAvailable(); err != nil {
		return CallToolResult{}, err
	}

	c.mu.Lock()
	if c.status != StatusConnected {
		c.mu.Unlock()
		return CallToolResult{}, ErrNotConnected
	}
	closed := c.closed

	msgID := uuid.New().String()
	st := &toolStream{
		terminal: make(chan JSONRPCMessage, 1),
		onChunk:  onChunk,
	}
	c.streams[msgID] = st
	c.mu.Unlock()

	paramsBs, err := json.Marshal(params)
	if err != nil {
		c.removeStream(msgID)
		return CallToolResult{}, fmt.Errorf("failed to marshal params: %w", err)
	}

	if err := c.send(ctx, JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		ID:      MustString(msgID),
		Method:  MethodToolsCall,
		Params:  paramsBs,
	}); err != nil {
		c.removeStream(msgID)
		return CallToolResult{}, err
	}

	timer := time.NewTimer(c.readTimeout)
	defer timer.Stop()

	select {
	case res := <-st.terminal:
		if res.Error != nil {
			return CallToolResult{}, &ToolCallError{Tool: params.Name, RPC: res.Error}
		}
		var result CallToolResult
		if err := json.Unmarshal(res.Result, &result); err != nil {
			return CallToolResult{}, fmt.Errorf("failed to unmarshal result: %w", err)
		}
		if result.Task != nil {
			result.Task.Method = MethodToolsCall
			c.tasks.track(*result.Task)
		}
		return result, nil
	case <-ctx.Done():
		st.cancel()
		c.removeStream(msgID)
		c.notifyCancelled(msgID)
		return CallToolResult{}, ErrStreamAborted
	case <-timer.C:
		st.cancel()
		c.removeStream(msgID)
		c.notifyCancelled(msgID)
		return CallToolResult{}, ErrTimeout
	case <-closed:
		st.cancel()
		return CallToolResult{}, ErrConnectionClosed
	}
}

func (c *Conn) removeStream(msgID string) {
	c.mu.Lock()
	if c.streams != nil {
		delete(c.streams, msgID)
	}
	c.mu.Unlock()
}

// Complete asks the server for completion suggestions on a prompt argument or
// resource template variable.
func (c *Conn) Complete(ctx context.Context, params CompleteParams) (CompletionResult, error) {
	if err := c.completionsAvailable(); err != nil {
		return CompletionResult{}, err
	}

	res, err := c.call(ctx, MethodCompletionComplete, params)
	if err != nil {
		return CompletionResult{}, err
	}
	if res.Error != nil {
		return CompletionResult{}, fmt.Errorf("result error: %w", res.Error)
	}

	var result CompletionResult
	if err := json.Unmarshal(res.Result, &result); err != nil {
		return CompletionResult{}, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return result, nil
}

// SetLogLevel asks the server to emit log message notifications at the given
// severity and above. An invalid level is rejected locally without touching
// the connection; a server-side failure leaves the previous level in effect.
func (c *Conn) SetLogLevel(ctx context.Context, level LogLevel) error {
	if !level.Valid() {
		return fmt.Errorf("invalid log level %q", level)
	}
	if err := c.loggingAvailable(); err != nil {
		return err
	}

	res, err := c.call(ctx, MethodLoggingSetLevel, LogParams{Level: level})
	if err != nil {
		return err
	}
	if res.Error != nil {
		return fmt.Errorf("result error: %w", res.Error)
	}
	return nil
}

// Tools returns the server's full tool catalog, walking every pagination page.
// The catalog is cached until the server announces a list change or the
// connection goes down.
func (c *Conn) Tools(ctx context.Context) ([]Tool, error) {
	c.catalogMu.Lock()
	if c.tools != nil {
		cached := make([]Tool, len(c.tools))
		copy(cached, c.tools)
		c.catalogMu.Unlock()
		return cached, nil
	}
	c.catalogMu.Unlock()

	var tools []Tool
	var cursor string
	for {
		res, err := c.ListTools(ctx, ListToolsParams{Cursor: cursor})
		if err != nil {
			return nil, err
		}
		tools = append(tools, res.Tools...)
		if res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}

	c.catalogMu.Lock()
	c.tools = tools
	c.catalogMu.Unlock()
	return tools, nil
}

// Resources returns the server's full resource catalog, walking every
// pagination page. Cached like Tools.
func (c *Conn) Resources(ctx context.Context) ([]Resource, error) {
	c.catalogMu.Lock()
	if c.resources != nil {
		cached := make([]Resource, len(c.resources))
		copy(cached, c.resources)
		c.catalogMu.Unlock()
		return cached, nil
	}
	c.catalogMu.Unlock()

	var resources []Resource
	var cursor string
	for {
		res, err := c.ListResources(ctx, ListResourcesParams{Cursor: cursor})
		if err != nil {
			return nil, err
		}
		resources = append(resources, res.Resources...)
		if res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}

	c.catalogMu.Lock()
	c.resources = resources
	c.catalogMu.Unlock()
	return resources, nil
}

// Prompts returns the server's full prompt catalog, walking every pagination
// page. Cached like Tools.
func (c *Conn) Prompts(ctx context.Context) ([]Prompt, error) {
	c.catalogMu.Lock()
	if c.prompts != nil {
		cached := make([]Prompt, len(c.prompts))
		copy(cached, c.prompts)
		c.catalogMu.Unlock()
		return cached, nil
	}
	c.catalogMu.Unlock()

	var prompts []Prompt
	var cursor string
	for {
		res, err := c.ListPrompts(ctx, ListPromptsParams{Cursor: cursor})
		if err != nil {
			return nil, err
		}
		prompts = append(prompts, res.Prompts...)
		if res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}

	c.catalogMu.Lock()
	c.prompts = prompts
	c.catalogMu.Unlock()
	return prompts, nil
}

// available gates a dispatcher. Connectedness comes first: the capability
// snapshot is only meaningful after a completed handshake, and a connection
// that never had one must report ErrNotConnected, not a capability gap.
func (c *Conn) available(what string, supported func(ServerCapabilities) bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusConnected {
		return ErrNotConnected
	}
	if !supported(c.serverCaps) {
		return capabilityError(what)
	}
	return nil
}

func (c *Conn) promptsAvailable() error {
	return c.available("prompts", func(caps ServerCapabilities) bool { return caps.Prompts != nil })
}

func (c *Conn) resourcesAvailable() error {
	return c.available("resources", func(caps ServerCapabilities) bool { return caps.Resources != nil })
}

func (c *Conn) resourceSubscriptionAvailable() error {
	return c.available("resources subscribe", func(caps ServerCapabilities) bool {
		return caps.Resources != nil && caps.Resources.Subscribe
	})
}

func (c *Conn) toolsAvailable() error {
	return c.available("tools", func(caps ServerCapabilities) bool { return caps.Tools != nil })
}

func (c *Conn) completionsAvailable() error {
	return c.available("completions", func(caps ServerCapabilities) bool { return caps.Completions != nil })
}

func (c *Conn) loggingAvailable() error {
	return c.available("logging", func(caps ServerCapabilities) bool { return caps.Logging != nil })
}

func (c *Conn) tasksAvailable() error {
	return c.available("tasks", func(caps ServerCapabilities) bool { return caps.Tasks != nil })
}
