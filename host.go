package mcphost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// HostOption is a function that configures a host.
type HostOption func(*Host)

// ServerTool is a tool tagged with the connection it came from, so entries
// with the same name on different servers stay distinguishable in the merged
// catalog.
type ServerTool struct {
	ServerID string
	Tool
}

// ServerResource is a resource tagged with the connection it came from.
type ServerResource struct {
	ServerID string
	Resource
}

// ServerPrompt is a prompt tagged with the connection it came from.
type ServerPrompt struct {
	ServerID string
	Prompt
}

// Host aggregates connections to any number of MCP servers behind one
// surface: merged connection-tagged catalogs, routed operations, and a single
// pair of human-decision queues shared by every connection. Server IDs are
// chosen by the caller at AddServer time and tag everything the server
// contributes.
type Host struct {
	info         Info
	logger       *slog.Logger
	router       *inboundRouter
	rootsHandler RootsListHandler
	pendingTTL   time.Duration

	mu      sync.RWMutex
	conns   map[string]*Conn
	order   []string
	primary string
}

// WithHostLogger sets the logger for the host and the connections it creates.
func WithHostLogger(logger *slog.Logger) HostOption {
	return func(h *Host) {
		h.logger = logger
	}
}

// WithHostRootsListHandler sets the default roots list handler for every
// connection the host creates. A per-connection WithRootsListHandler takes
// precedence.
func WithHostRootsListHandler(handler RootsListHandler) HostOption {
	return func(h *Host) {
		h.rootsHandler = handler
	}
}

// WithHostPendingTTL sets the auto-cancel TTL for the shared sampling and
// elicitation queues. Zero (the default) keeps items queued until a person
// resolves them.
func WithHostPendingTTL(ttl time.Duration) HostOption {
	return func(h *Host) {
		h.pendingTTL = ttl
	}
}

// WithPrimaryServer sets the server ID that routing defaults to when an
// operation is called with an empty server ID. Without this option the first
// server added becomes primary.
func WithPrimaryServer(id string) HostOption {
	return func(h *Host) {
		h.primary = id
	}
}

// NewHost creates a host that identifies itself to every server with the
// given info.
func NewHost(info Info, options ...HostOption) *Host {
	h := &Host{
		info:   info,
		logger: slog.Default(),
		conns:  make(map[string]*Conn),
	}
	for _, opt := range options {
		opt(h)
	}
	h.router = newInboundRouter(h.logger)
	h.router.ttl = h.pendingTTL
	return h
}

// AddServer registers a server under the given id and prepares a connection
// through the given transport. The connection is not established until
// Connect or ConnectAll. The first server added becomes the primary routing
// target unless WithPrimaryServer chose one.
func (h *Host) AddServer(id string, transport ClientTransport, options ...ConnOption) (*Conn, error) {
	if id == "" {
		return nil, fmt.Errorf("server id must not be empty")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[id]; ok {
		return nil, fmt.Errorf("server %q already added", id)
	}

	defaults := []ConnOption{
		WithConnLogger(h.logger.With("server", id)),
	}
	if h.rootsHandler != nil {
		defaults = append(defaults, WithRootsListHandler(h.rootsHandler))
	}

	conn := NewConn(id, h.info, transport, defaults...)
	// All connections share the host's queues, so pending items from every
	// server interleave in one arrival order. The swap happens before the
	// caller's options run so that queue settings such as WithPendingTTL land
	// on the shared router instead of the discarded per-connection one.
	conn.router = h.router
	for _, opt := range options {
		opt(conn)
	}

	h.conns[id] = conn
	h.order = append(h.order, id)
	if h.primary == "" {
		h.primary = id
	}
	return conn, nil
}

// RemoveServer disconnects and forgets a server. Its catalog entries and
// queued inbound items disappear with it.
func (h *Host) RemoveServer(id string) error {
	h.mu.Lock()
	conn, ok := h.conns[id]
	if !ok {
		h.mu.Unlock()
		return fmt.Errorf("server %q: %w", id, ErrUnknownServer)
	}
	delete(h.conns, id)
	for i, oid := range h.order {
		if oid == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	if h.primary == id {
		h.primary = ""
		if len(h.order) > 0 {
			h.primary = h.order[0]
		}
	}
	h.mu.Unlock()

	return conn.Disconnect()
}

// Connect establishes the connection to one server.
func (h *Host) Connect(ctx context.Context, id string) error {
	conn := h.GetClient(id)
	if conn == nil {
		return fmt.Errorf("server %q: %w", id, ErrUnknownServer)
	}
	return conn.Connect(ctx)
}

// ConnectAll establishes every registered connection. A failure on one server
// is contained to it: the rest still connect, and the joined error reports
// each failure by server id.
func (h *Host) ConnectAll(ctx context.Context) error {
	var errs []error
	for _, conn := range h.clients() {
		if err := conn.Connect(ctx); err != nil {
			h.logger.Error("failed to connect server", "server", conn.ID(), "err", err)
			errs = append(errs, fmt.Errorf("server %q: %w", conn.ID(), err))
		}
	}
	return errors.Join(errs...)
}

// DisconnectServer closes the connection to one server without forgetting it.
func (h *Host) DisconnectServer(id string) error {
	conn := h.GetClient(id)
	if conn == nil {
		return fmt.Errorf("server %q: %w", id, ErrUnknownServer)
	}
	return conn.Disconnect()
}

// Close disconnects every server.
func (h *Host) Close() error {
	var errs []error
	for _, conn := range h.clients() {
		if err := conn.Disconnect(); err != nil {
			errs = append(errs, fmt.Errorf("server %q: %w", conn.ID(), err))
		}
	}
	return errors.Join(errs...)
}

// GetClient returns the connection registered under the given id, nil when no
// such server was added.
func (h *Host) GetClient(id string) *Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.conns[id]
}

// PrimaryServerID returns the server id operations route to when called with
// an empty server id.
func (h *Host) PrimaryServerID() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.primary
}

// SetPrimaryServer changes the default routing target.
func (h *Host) SetPrimaryServer(id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[id]; !ok {
		return fmt.Errorf("server %q: %w", id, ErrUnknownServer)
	}
	h.primary = id
	return nil
}

// clients snapshots the connections in registration order.
func (h *Host) clients() []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := make([]*Conn, 0, len(h.order))
	for _, id := range h.order {
		conns = append(conns, h.conns[id])
	}
	return conns
}

// route resolves a server id to its live connection, defaulting to the
// primary server for an empty id.
func (h *Host) route(serverID string) (*Conn, error) {
	if serverID == "" {
		serverID = h.PrimaryServerID()
	}
	conn := h.GetClient(serverID)
	if conn == nil {
		return nil, fmt.Errorf("server %q: %w", serverID, ErrUnknownServer)
	}
	return conn, nil
}

// AllTools merges the tool catalogs of every connected server, each entry
// tagged with its server id, in server registration order. Servers that are
// down or fail to answer are logged and skipped, so one bad server does not
// blank the merged view.
func (h *Host) AllTools(ctx context.Context) []ServerTool {
	var merged []ServerTool
	for _, conn := range h.clients() {
		if conn.Status() != StatusConnected {
			continue
		}
		tools, err := conn.Tools(ctx)
		if err != nil {
			h.logger.Error("failed to list tools", "server", conn.ID(), "err", err)
			continue
		}
		for _, tool := range tools {
			merged = append(merged, ServerTool{ServerID: conn.ID(), Tool: tool})
		}
	}
	return merged
}

// AllResources merges the resource catalogs of every connected server, tagged
// and ordered like AllTools.
func (h *Host) AllResources(ctx context.Context) []ServerResource {
	var merged []ServerResource
	for _, conn := range h.clients() {
		if conn.Status() != StatusConnected {
			continue
		}
		resources, err := conn.Resources(ctx)
		if err != nil {
			h.logger.Error("failed to list resources", "server", conn.ID(), "err", err)
			continue
		}
		for _, resource := range resources {
			merged = append(merged, ServerResource{ServerID: conn.ID(), Resource: resource})
		}
	}
	return merged
}

// AllPrompts merges the prompt catalogs of every connected server, tagged and
// ordered like AllTools.
func (h *Host) AllPrompts(ctx context.Context) []ServerPrompt {
	var merged []ServerPrompt
	for _, conn := range h.clients() {
		if conn.Status() != StatusConnected {
			continue
		}
		prompts, err := conn.Prompts(ctx)
		if err != nil {
			h.logger.Error("failed to list prompts", "server", conn.ID(), "err", err)
			continue
		}
		for _, prompt := range prompts {
			merged = append(merged, ServerPrompt{ServerID: conn.ID(), Prompt: prompt})
		}
	}
	return merged
}

// FindTool locates a tool by name across the connected servers, in
// registration order.
func (h *Host) FindTool(ctx context.Context, name string) (ServerTool, bool) {
	for _, tool := range h.AllTools(ctx) {
		if tool.Name == name {
			return tool, true
		}
	}
	return ServerTool{}, false
}

// CallTool routes a tool call to the given server, or to the primary server
// when serverID is empty.
func (h *Host) CallTool(ctx context.Context, serverID string, params CallToolParams) (CallToolResult, error) {
	conn, err := h.route(serverID)
	if err != nil {
		return CallToolResult{}, err
	}
	return conn.CallTool(ctx, params)
}

// CallToolStream routes a streaming tool call like CallTool.
func (h *Host) CallToolStream(ctx context.Context, serverID string, params CallToolParams, onChunk func(Content)) (CallToolResult, error) {
	conn, err := h.route(serverID)
	if err != nil {
		return CallToolResult{}, err
	}
	return conn.CallToolStream(ctx, params, onChunk)
}

// ReadResource routes a resource read like CallTool.
func (h *Host) ReadResource(ctx context.Context, serverID string, params ReadResourceParams) (ReadResourceResult, error) {
	conn, err := h.route(serverID)
	if err != nil {
		return ReadResourceResult{}, err
	}
	return conn.ReadResource(ctx, params)
}

// GetPrompt routes a prompt fetch like CallTool.
func (h *Host) GetPrompt(ctx context.Context, serverID string, params GetPromptParams) (GetPromptResult, error) {
	conn, err := h.route(serverID)
	if err != nil {
		return GetPromptResult{}, err
	}
	return conn.GetPrompt(ctx, params)
}

// Complete routes a completion request like CallTool.
func (h *Host) Complete(ctx context.Context, serverID string, params CompleteParams) (CompletionResult, error) {
	conn, err := h.route(serverID)
	if err != nil {
		return CompletionResult{}, err
	}
	return conn.Complete(ctx, params)
}

// SetLogLevel routes a log level change like CallTool.
func (h *Host) SetLogLevel(ctx context.Context, serverID string, level LogLevel) error {
	conn, err := h.route(serverID)
	if err != nil {
		return err
	}
	return conn.SetLogLevel(ctx, level)
}

// PendingSamplingRequests returns every queued sampling request across all
// connections, in arrival order.
func (h *Host) PendingSamplingRequests() []PendingSamplingRequest {
	return h.router.pendingSampling("")
}

// PendingElicitations returns every queued elicitation request across all
// connections, in arrival order.
func (h *Host) PendingElicitations() []PendingElicitation {
	return h.router.pendingElicitations("")
}

// RespondToSampling resolves a queued sampling request by id. Approval
// forwards the supplied completion to the originating server; rejection
// answers it with the sampling-rejected error. Resolving an id that is no
// longer queued fails with ErrAlreadyResolved and sends nothing.
func (h *Host) RespondToSampling(ctx context.Context, id string, approved bool, result *SamplingResult) error {
	return h.router.respondToSampling(ctx, id, approved, result)
}

// RespondToElicitation resolves a queued elicitation request by id with one of
// the three protocol verdicts. Content reaches the server only on accept.
// Resolving an id that is no longer queued fails with ErrAlreadyResolved.
func (h *Host) RespondToElicitation(ctx context.Context, id string, action ElicitAction, content map[string]any) error {
	return h.router.respondToElicitation(ctx, id, action, content)
}
