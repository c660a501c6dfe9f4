package mcphost

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a connection to one MCP server.
type Status string

// Connection lifecycle states.
const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

// ConnOption is a function that configures a connection.
type ConnOption func(*Conn)

// Conn manages the host's connection to a single MCP server. It owns the
// initialize handshake, correlates outbound requests with responses by unique
// request ID, routes server-initiated requests (sampling, elicitation,
// roots/list) into the inbound queues, and tracks the server's long-running
// tasks.
//
// A Conn must be created with NewConn and requires Connect to be called before
// any operation can be dispatched. Connect is idempotent while a connection is
// being established or already up. Disconnect is always safe to call: it
// rejects every in-flight request with ErrConnectionClosed and auto-resolves
// every queued sampling/elicitation item with a cancellation verdict.
type Conn struct {
	id        string
	info      Info
	transport ClientTransport
	logger    *slog.Logger

	rootsHandler              RootsListHandler
	rootsListChanged          bool
	promptListWatcher         PromptListWatcher
	resourceListWatcher       ResourceListWatcher
	resourceSubscribedWatcher ResourceSubscribedWatcher
	toolListWatcher           ToolListWatcher
	progressListener          ProgressListener
	logReceiver               LogReceiver

	writeTimeout         time.Duration
	readTimeout          time.Duration
	pingInterval         time.Duration
	pingTimeoutThreshold int

	router *inboundRouter
	tasks  *TaskManager

	mu         sync.Mutex
	status     Status
	lastErr    error
	session    Session
	serverInfo Info
	serverCaps ServerCapabilities
	pending    map[string]chan JSONRPCMessage
	streams    map[string]*toolStream
	closed     chan struct{}
	connecting chan struct{}

	catalogMu sync.Mutex
	tools     []Tool
	resources []Resource
	prompts   []Prompt
}

var (
	defaultConnWriteTimeout = 30 * time.Second
	defaultConnReadTimeout  = 30 * time.Second

	defaultPingTimeoutThreshold = 3
)

// WithRootsListHandler sets the roots list handler for the connection. When
// set, the connection advertises the roots capability and answers roots/list
// requests from the handler.
func WithRootsListHandler(handler RootsListHandler) ConnOption {
	return func(c *Conn) {
		c.rootsHandler = handler
	}
}

// WithRootsListChanged advertises that the host may notify the server about
// root list changes via NotifyRootsListChanged.
func WithRootsListChanged() ConnOption {
	return func(c *Conn) {
		c.rootsListChanged = true
	}
}

// WithPromptListWatcher sets the prompt list watcher for the connection.
func WithPromptListWatcher(watcher PromptListWatcher) ConnOption {
	return func(c *Conn) {
		c.promptListWatcher = watcher
	}
}

// WithResourceListWatcher sets the resource list watcher for the connection.
func WithResourceListWatcher(watcher ResourceListWatcher) ConnOption {
	return func(c *Conn) {
		c.resourceListWatcher = watcher
	}
}

// WithResourceSubscribedWatcher sets the resource subscribe watcher for the connection.
func WithResourceSubscribedWatcher(watcher ResourceSubscribedWatcher) ConnOption {
	return func(c *Conn) {
		c.resourceSubscribedWatcher = watcher
	}
}

// WithToolListWatcher sets the tool list watcher for the connection.
func WithToolListWatcher(watcher ToolListWatcher) ConnOption {
	return func(c *Conn) {
		c.toolListWatcher = watcher
	}
}

// WithProgressListener sets the progress listener for the connection.
func WithProgressListener(listener ProgressListener) ConnOption {
	return func(c *Conn) {
		c.progressListener = listener
	}
}

// WithLogReceiver sets the log receiver for the connection.
func WithLogReceiver(receiver LogReceiver) ConnOption {
	return func(c *Conn) {
		c.logReceiver = receiver
	}
}

// WithConnWriteTimeout sets the write timeout for the connection.
func WithConnWriteTimeout(timeout time.Duration) ConnOption {
	return func(c *Conn) {
		c.writeTimeout = timeout
	}
}

// WithConnReadTimeout sets the default deadline for awaiting a response. A
// caller-supplied context deadline takes effect as well; whichever elapses
// first rejects the request.
func WithConnReadTimeout(timeout time.Duration) ConnOption {
	return func(c *Conn) {
		c.readTimeout = timeout
	}
}

// WithPingInterval enables periodic ping health checks at the given interval.
// Zero disables pinging.
func WithPingInterval(interval time.Duration) ConnOption {
	return func(c *Conn) {
		c.pingInterval = interval
	}
}

// WithPingTimeoutThreshold sets the number of consecutive ping failures after
// which the connection is torn down into the error state.
func WithPingTimeoutThreshold(threshold int) ConnOption {
	return func(c *Conn) {
		c.pingTimeoutThreshold = threshold
	}
}

// WithConnLogger sets the logger for the connection.
func WithConnLogger(logger *slog.Logger) ConnOption {
	return func(c *Conn) {
		c.logger = logger
	}
}

// WithPendingTTL sets a time-to-live for queued sampling and elicitation
// items. Items left unresolved past the TTL are auto-resolved with the
// cancellation verdict. Zero (the default) waits indefinitely, since the
// resolution depends on a person. When the connection was added through a
// Host, the TTL applies to the host's shared queues.
func WithPendingTTL(ttl time.Duration) ConnOption {
	return func(c *Conn) {
		c.router.ttl = ttl
	}
}

// NewConn creates a connection to a single MCP server reachable through the
// given transport. The id tags every catalog entry and queued inbound item
// originating from this server. The info parameter identifies the host to the
// server during the handshake.
//
// The connection is not established until Connect is called.
func NewConn(id string, info Info, transport ClientTransport, options ...ConnOption) *Conn {
	closed := make(chan struct{})
	close(closed)

	c := &Conn{
		id:        id,
		info:      info,
		transport: transport,
		logger:    slog.Default(),
		status:    StatusDisconnected,
		closed:    closed,
	}
	c.router = newInboundRouter(c.logger)
	c.tasks = newTaskManager(c)
	for _, opt := range options {
		opt(c)
	}
	c.router.logger = c.logger

	if c.writeTimeout == 0 {
		c.writeTimeout = defaultConnWriteTimeout
	}
	if c.readTimeout == 0 {
		c.readTimeout = defaultConnReadTimeout
	}
	if c.pingTimeoutThreshold == 0 {
		c.pingTimeoutThreshold = defaultPingTimeoutThreshold
	}

	return c
}

// ID returns the identifier this connection was created with.
func (c *Conn) ID() string {
	return c.id
}

// Status returns the current lifecycle state.
func (c *Conn) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Err returns the cause retained from the last handshake or connection
// failure, nil when the connection is healthy.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// ServerInfo returns the server's info snapshot obtained at handshake. The
// snapshot is set exactly once per successful Connect and is immutable until
// the next Connect.
func (c *Conn) ServerInfo() Info {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverInfo
}

// ServerCapabilities returns the capability snapshot negotiated at handshake.
func (c *Conn) ServerCapabilities() ServerCapabilities {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverCaps
}

// Tasks returns the task manager tracking this server's long-running jobs.
func (c *Conn) Tasks() *TaskManager {
	return c.tasks
}

// clientCapabilities derives the advertised capability set from the configured
// handlers, the way the negotiation requires: a capability is only announced
// when the host can actually serve it.
func (c *Conn) clientCapabilities() ClientCapabilities {
	caps := ClientCapabilities{
		Sampling:    &SamplingCapability{},
		Elicitation: &ElicitationCapability{},
	}
	if c.rootsHandler != nil {
		caps.Roots = &RootsCapability{ListChanged: c.rootsListChanged}
	}
	return caps
}

// Connect establishes the session and performs the initialize handshake. It is
// idempotent: while a connection attempt is in flight, concurrent callers wait
// for its outcome; once connected, it returns immediately without
// re-handshaking. On failure the connection is left in the error state with
// the cause retained, and a subsequent Connect starts over.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.status {
	case StatusConnected:
		c.mu.Unlock()
		return nil
	case StatusConnecting:
		wait := c.connecting
		c.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wait:
		}
		c.mu.Lock()
		err := c.lastErr
		c.mu.Unlock()
		return err
	default:
	}

	c.status = StatusConnecting
	c.lastErr = nil
	c.connecting = make(chan struct{})
	c.closed = make(chan struct{})
	c.pending = make(map[string]chan JSONRPCMessage)
	c.streams = make(map[string]*toolStream)
	c.mu.Unlock()

	err := c.handshake(ctx)

	c.mu.Lock()
	close(c.connecting)
	c.connecting = nil
	if err != nil {
		c.lastErr = err
	} else if c.status == StatusConnecting {
		c.status = StatusConnected
	}
	c.mu.Unlock()

	if err != nil {
		c.teardown(err, StatusError)
	}
	return err
}

func (c *Conn) handshake(ctx context.Context) error {
	sess, err := c.transport.StartSession(ctx)
	if err != nil {
		return &HandshakeError{Err: fmt.Errorf("failed to start session: %w", err)}
	}

	c.mu.Lock()
	c.session = sess
	closed := c.closed
	c.mu.Unlock()

	go c.readLoop(sess, closed)

	params := initializeParams{
		ProtocolVersion: protocolVersion,
		Capabilities:    c.clientCapabilities(),
		ClientInfo:      c.info,
	}
	paramsBs, err := json.Marshal(params)
	if err != nil {
		return &HandshakeError{Err: fmt.Errorf("failed to marshal initialize params: %w", err)}
	}

	msgID := uuid.New().String()
	resCh := c.registerPending(msgID)
	defer c.unregisterPending(msgID)

	if err := c.send(ctx, JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		ID:      MustString(msgID),
		Method:  methodInitialize,
		Params:  paramsBs,
	}); err != nil {
		return &HandshakeError{Err: fmt.Errorf("failed to send initialize request: %w", err)}
	}

	timer := time.NewTimer(c.readTimeout)
	defer timer.Stop()

	var res JSONRPCMessage
	select {
	case <-ctx.Done():
		return &HandshakeError{Err: ctx.Err()}
	case <-timer.C:
		return &HandshakeError{Err: ErrTimeout}
	case <-closed:
		return &HandshakeError{Err: ErrConnectionClosed}
	case res = <-resCh:
	}

	if res.Error != nil {
		return &HandshakeError{Err: res.Error}
	}

	var result initializeResult
	if err := json.Unmarshal(res.Result, &result); err != nil {
		return &HandshakeError{Err: fmt.Errorf("failed to unmarshal initialize result: %w", err)}
	}

	if result.ProtocolVersion != protocolVersion {
		nErr := fmt.Errorf("protocol version mismatch: %s != %s", result.ProtocolVersion, protocolVersion)
		if err := c.sendError(ctx, res.ID, JSONRPCError{
			Code:    jsonRPCInvalidParamsCode,
			Message: errMsgUnsupportedProtocolVersion,
			Data:    map[string]any{"supported": protocolVersion, "requested": result.ProtocolVersion},
		}); err != nil {
			nErr = fmt.Errorf("%w: failed to send error on initialize: %w", nErr, err)
		}
		return &HandshakeError{Err: nErr}
	}

	c.mu.Lock()
	c.serverInfo = result.ServerInfo
	c.serverCaps = result.Capabilities
	c.mu.Unlock()

	if err := c.sendNotification(ctx, methodNotificationsInitialized, nil); err != nil {
		return &HandshakeError{Err: err}
	}

	if c.pingInterval > 0 {
		go c.pingLoop(closed)
	}

	return nil
}

// Disconnect closes the connection. It is safe to call in any state. Every
// still-pending outbound request is rejected with ErrConnectionClosed and
// every queued sampling/elicitation item owned by this connection is resolved
// with a cancellation verdict.
func (c *Conn) Disconnect() error {
	c.teardown(ErrConnectionClosed, StatusDisconnected)
	return nil
}

// teardown dismantles the current session once. Later calls for the same
// session are no-ops, so a spontaneous transport failure racing an explicit
// Disconnect resolves to whichever got there first.
func (c *Conn) teardown(cause error, to Status) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	c.teardownSession(closed, cause, to)
}

// teardownSession is teardown keyed to one session generation, identified by
// its closed channel. A call carrying a superseded channel is a no-op, so a
// goroutine draining a stopped session cannot dismantle the session that
// replaced it.
func (c *Conn) teardownSession(closed chan struct{}, cause error, to Status) {
	c.mu.Lock()
	if closed != c.closed {
		c.mu.Unlock()
		return
	}
	select {
	case <-c.closed:
		c.mu.Unlock()
		return
	default:
	}
	close(c.closed)
	sess := c.session
	c.session = nil
	c.status = to
	if to == StatusError {
		c.lastErr = cause
	} else {
		c.lastErr = nil
	}
	c.pending = nil
	c.streams = nil
	c.mu.Unlock()

	if sess != nil {
		sess.Stop()
	}

	c.invalidateCatalogs()
	c.router.cancelConn(c.id)
}

func (c *Conn) readLoop(sess Session, closed chan struct{}) {
	for msg := range sess.Messages() {
		c.handleMessage(msg)
	}
	// The message iterator only ends when the transport is gone. Tear down
	// this session's generation only; a reconnect may already be live.
	c.teardownSession(closed, ErrConnectionClosed, StatusError)
}

func (c *Conn) pingLoop(closed chan struct{}) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	failedPings := 0
	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				c.logger.Error("failed to send ping", "server", c.id, "err", err)
				failedPings++
				if failedPings > c.pingTimeoutThreshold {
					c.teardownSession(closed, fmt.Errorf("too many ping failures: %d", failedPings), StatusError)
					return
				}
			} else {
				failedPings = 0
			}
		}
	}
}

func (c *Conn) ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.readTimeout)
	defer cancel()

	res, err := c.request(ctx, methodPing, nil)
	if err != nil {
		return err
	}
	if res.Error != nil {
		return fmt.Errorf("error response: %w", res.Error)
	}
	return nil
}

func (c *Conn) handleMessage(msg JSONRPCMessage) {
	if msg.JSONRPC != JSONRPCVersion {
		c.logger.Error("invalid jsonrpc version", "version", msg.JSONRPC)
		return
	}

	if msg.Method == "" {
		c.handleResponse(msg)
		return
	}

	ctx := context.Background()

	if msg.ID != "" {
		// A method-bearing frame with an ID is either a server-initiated
		// request or a chunk of one of our streaming tool calls.
		switch msg.Method {
		case methodPing:
			if err := c.sendResult(ctx, msg.ID, nil); err != nil {
				c.logger.Error("failed to handle ping", "err", err)
			}
		case MethodRootsList:
			go c.handleListRoots(ctx, msg)
		case MethodSamplingCreateMessage:
			var params SamplingParams
			if err := json.Unmarshal(msg.Params, &params); err != nil {
				c.logger.Error("failed to unmarshal sampling params", "err", err)
				c.replyInvalidParams(ctx, msg.ID)
				return
			}
			c.router.enqueueSampling(c, string(msg.ID), params)
		case MethodElicitationCreate:
			var params ElicitParams
			if err := json.Unmarshal(msg.Params, &params); err != nil {
				c.logger.Error("failed to unmarshal elicitation params", "err", err)
				c.replyInvalidParams(ctx, msg.ID)
				return
			}
			c.router.enqueueElicitation(c, string(msg.ID), params)
		case MethodToolsChunk:
			c.handleToolChunk(msg)
		default:
			if err := c.sendError(ctx, msg.ID, JSONRPCError{
				Code:    jsonRPCMethodNotFoundCode,
				Message: errMsgMethodNotFound,
			}); err != nil {
				c.logger.Error("failed to reply to unknown method", "method", msg.Method, "err", err)
			}
		}
		return
	}

	switch msg.Method {
	case methodNotificationsCancelled:
		var params notificationsCancelledParams
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			c.logger.Error("failed to unmarshal cancelled params", "err", err)
			return
		}
		// The server withdrew one of its own pending requests.
		c.router.withdraw(c.id, params.RequestID)
	case methodNotificationsPromptsListChanged:
		c.catalogMu.Lock()
		c.prompts = nil
		c.catalogMu.Unlock()
		if c.promptListWatcher != nil {
			c.promptListWatcher.OnPromptListChanged()
		}
	case methodNotificationsResourcesListChanged:
		c.catalogMu.Lock()
		c.resources = nil
		c.catalogMu.Unlock()
		if c.resourceListWatcher != nil {
			c.resourceListWatcher.OnResourceListChanged()
		}
	case methodNotificationsResourcesUpdated:
		if c.resourceSubscribedWatcher != nil {
			var params notificationsResourcesUpdatedParams
			if err := json.Unmarshal(msg.Params, &params); err != nil {
				c.logger.Error("failed to unmarshal resources updated params", "err", err)
				return
			}
			c.resourceSubscribedWatcher.OnResourceSubscribedChanged(params.URI)
		}
	case methodNotificationsToolsListChanged:
		c.catalogMu.Lock()
		c.tools = nil
		c.catalogMu.Unlock()
		if c.toolListWatcher != nil {
			c.toolListWatcher.OnToolListChanged()
		}
	case methodNotificationsProgress:
		var params ProgressParams
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			c.logger.Error("failed to unmarshal progress params", "err", err)
			return
		}
		// A token matching a tracked task carries that task's progress.
		c.tasks.applyProgress(params)
		if c.progressListener != nil {
			c.progressListener.OnProgress(params)
		}
	case methodNotificationsMessage:
		if c.logReceiver == nil {
			return
		}
		var params LogParams
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			c.logger.Error("failed to unmarshal log params", "err", err)
			return
		}
		c.logReceiver.OnLog(params)
	case methodNotificationsTasksStatus:
		if err := c.tasks.applyStatus(msg.Params); err != nil {
			c.logger.Error("failed to apply task status", "err", err)
		}
	default:
		c.logger.Debug("unhandled notification", "method", msg.Method)
	}
}

// handleResponse routes an ID-matched response frame to the pending request or
// stream awaiting it. Unmatched responses are dropped; the request they answer
// was already rejected by timeout or disconnect.
func (c *Conn) handleResponse(msg JSONRPCMessage) {
	id := string(msg.ID)

	c.mu.Lock()
	if ch, ok := c.pending[id]; ok {
		delete(c.pending, id)
		c.mu.Unlock()
		ch <- msg
		return
	}
	if st, ok := c.streams[id]; ok {
		delete(c.streams, id)
		c.mu.Unlock()
		st.finish(msg)
		return
	}
	c.mu.Unlock()

	c.logger.Debug("dropping unmatched response", "id", id)
}

func (c *Conn) handleToolChunk(msg JSONRPCMessage) {
	id := string(msg.ID)

	c.mu.Lock()
	st, ok := c.streams[id]
	c.mu.Unlock()
	if !ok {
		// Chunk for an unknown or already-cancelled stream; drain and discard.
		return
	}

	var params toolChunkParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		c.logger.Error("failed to unmarshal tool chunk params", "err", err)
		return
	}
	st.deliver(params.Content)
}

func (c *Conn) handleListRoots(ctx context.Context, msg JSONRPCMessage) {
	if c.rootsHandler == nil {
		if err := c.sendError(ctx, msg.ID, JSONRPCError{
			Code:    jsonRPCMethodNotFoundCode,
			Message: errMsgMethodNotFound,
		}); err != nil {
			c.logger.Error("failed to reply to roots/list", "err", err)
		}
		return
	}

	roots, err := c.rootsHandler.RootsList(ctx)
	if err != nil {
		c.logger.Error("failed to list roots", "err", err)
		if err := c.sendError(ctx, msg.ID, JSONRPCError{
			Code:    jsonRPCInternalErrorCode,
			Message: err.Error(),
		}); err != nil {
			c.logger.Error("failed to send error", "err", err)
		}
		return
	}
	if err := c.sendResult(ctx, msg.ID, roots); err != nil {
		c.logger.Error("failed to send result", "err", err)
	}
}

// NotifyRootsListChanged informs the server that the host's root list changed,
// so it can request the list again.
func (c *Conn) NotifyRootsListChanged(ctx context.Context) error {
	return c.sendNotification(ctx, methodNotificationsRootsListChanged, nil)
}

func (c *Conn) registerPending(msgID string) chan JSONRPCMessage {
	ch := make(chan JSONRPCMessage, 1)
	c.mu.Lock()
	if c.pending != nil {
		c.pending[msgID] = ch
	}
	c.mu.Unlock()
	return ch
}

func (c *Conn) unregisterPending(msgID string) {
	c.mu.Lock()
	if c.pending != nil {
		delete(c.pending, msgID)
	}
	c.mu.Unlock()
}

// request sends a method call and suspends the caller until the ID-matched
// response arrives, the deadline elapses, or the connection goes down.
func (c *Conn) request(ctx context.Context, method string, params any) (JSONRPCMessage, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()

	msgID := uuid.New().String()
	msg := JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		ID:      MustString(msgID),
		Method:  method,
	}
	if params != nil {
		paramsBs, err := json.Marshal(params)
		if err != nil {
			return JSONRPCMessage{}, fmt.Errorf("failed to marshal params: %w", err)
		}
		msg.Params = paramsBs
	}

	resCh := c.registerPending(msgID)
	defer c.unregisterPending(msgID)

	if err := c.send(ctx, msg); err != nil {
		return JSONRPCMessage{}, err
	}

	timer := time.NewTimer(c.readTimeout)
	defer timer.Stop()

	select {
	case res := <-resCh:
		return res, nil
	case <-timer.C:
		c.notifyCancelled(msgID)
		return JSONRPCMessage{}, ErrTimeout
	case <-ctx.Done():
		c.notifyCancelled(msgID)
		return JSONRPCMessage{}, ctx.Err()
	case <-closed:
		return JSONRPCMessage{}, ErrConnectionClosed
	}
}

// call is the dispatcher entry point: it refuses to run before the handshake
// completed, then delegates to request.
func (c *Conn) call(ctx context.Context, method string, params any) (JSONRPCMessage, error) {
	c.mu.Lock()
	if c.status != StatusConnected {
		c.mu.Unlock()
		return JSONRPCMessage{}, ErrNotConnected
	}
	c.mu.Unlock()

	return c.request(ctx, method, params)
}

// notifyCancelled best-effort informs the server that a request it may still
// be working on was abandoned by the caller.
func (c *Conn) notifyCancelled(msgID string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.writeTimeout)
	defer cancel()

	if err := c.sendNotification(ctx, methodNotificationsCancelled, notificationsCancelledParams{
		RequestID: msgID,
		Reason:    userCancelledReason,
	}); err != nil {
		c.logger.Error("failed to send cancellation notification", "err", err)
	}
}

func (c *Conn) send(ctx context.Context, msg JSONRPCMessage) error {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess == nil {
		return ErrConnectionClosed
	}

	sCtx, sCancel := context.WithTimeout(ctx, c.writeTimeout)
	defer sCancel()

	return sess.Send(sCtx, msg)
}

func (c *Conn) sendNotification(ctx context.Context, method string, params any) error {
	notif := JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		Method:  method,
	}
	if params != nil {
		paramsBs, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("failed to marshal params: %w", err)
		}
		notif.Params = paramsBs
	}

	if err := c.send(ctx, notif); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}

func (c *Conn) sendResult(ctx context.Context, id MustString, result any) error {
	resBs, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	msg := JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Result:  resBs,
	}

	if err := c.send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send result: %w", err)
	}
	return nil
}

func (c *Conn) sendError(ctx context.Context, id MustString, rpcErr JSONRPCError) error {
	msg := JSONRPCMessage{
		JSONRPC: JSONRPCVersion,
		ID:      id,
		Error:   &rpcErr,
	}

	if err := c.send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send error: %w", err)
	}
	return nil
}

func (c *Conn) replyInvalidParams(ctx context.Context, id MustString) {
	if err := c.sendError(ctx, id, JSONRPCError{
		Code:    jsonRPCInvalidParamsCode,
		Message: "Invalid params",
	}); err != nil {
		c.logger.Error("failed to send invalid params error", "err", err)
	}
}

func (c *Conn) invalidateCatalogs() {
	c.catalogMu.Lock()
	c.tools = nil
	c.resources = nil
	c.prompts = nil
	c.catalogMu.Unlock()
}

// RespondToSampling resolves a queued sampling request owned by this
// connection. See Host.RespondToSampling.
func (c *Conn) RespondToSampling(ctx context.Context, id string, approved bool, result *SamplingResult) error {
	return c.router.respondToSampling(ctx, id, approved, result)
}

// RespondToElicitation resolves a queued elicitation request owned by this
// connection. See Host.RespondToElicitation.
func (c *Conn) RespondToElicitation(ctx context.Context, id string, action ElicitAction, content map[string]any) error {
	return c.router.respondToElicitation(ctx, id, action, content)
}

// PendingSamplingRequests returns the queued sampling requests awaiting a
// human decision on this connection, in server-send order.
func (c *Conn) PendingSamplingRequests() []PendingSamplingRequest {
	return c.router.pendingSampling(c.id)
}

// PendingElicitations returns the queued elicitation requests awaiting a human
// decision on this connection, in server-send order.
func (c *Conn) PendingElicitations() []PendingElicitation {
	return c.router.pendingElicitations(c.id)
}
