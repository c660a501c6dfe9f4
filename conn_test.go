package mcphost_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"sync"
	"testing"
	"time"

	mcphost "github.com/vishnu2kmohan/mcp-server-langgraph-sub014"
)

// testSession is an in-memory Session: frames pushed into in surface through
// Messages, frames the connection sends land in out.
type testSession struct {
	in  chan mcphost.JSONRPCMessage
	out chan mcphost.JSONRPCMessage

	stopOnce sync.Once
	stopped  chan struct{}
}

func newTestSession() *testSession {
	return &testSession{
		in:      make(chan mcphost.JSONRPCMessage, 32),
		out:     make(chan mcphost.JSONRPCMessage, 32),
		stopped: make(chan struct{}),
	}
}

func (s *testSession) Send(ctx context.Context, msg mcphost.JSONRPCMessage) error {
	select {
	case <-s.stopped:
		return errors.New("session stopped")
	case <-ctx.Done():
		return ctx.Err()
	case s.out <- msg:
		return nil
	}
}

func (s *testSession) Messages() iter.Seq[mcphost.JSONRPCMessage] {
	return func(yield func(mcphost.JSONRPCMessage) bool) {
		for {
			select {
			case <-s.stopped:
				return
			case msg := <-s.in:
				if !yield(msg) {
					return
				}
			}
		}
	}
}

func (s *testSession) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopped)
	})
}

type testTransport struct {
	sess     *testSession
	startErr error
}

func (t *testTransport) StartSession(context.Context) (mcphost.Session, error) {
	if t.startErr != nil {
		return nil, t.startErr
	}
	return t.sess, nil
}

// fakeServer drives the server side of a testSession. It answers the
// initialize handshake itself and delegates every other request to handle;
// a nil handle (or a nil return) leaves the request unanswered.
type fakeServer struct {
	sess            *testSession
	caps            mcphost.ServerCapabilities
	protocolVersion string
	handle          func(msg mcphost.JSONRPCMessage) *mcphost.JSONRPCMessage

	mu       sync.Mutex
	received []mcphost.JSONRPCMessage
}

func (f *fakeServer) run() {
	go func() {
		for {
			var msg mcphost.JSONRPCMessage
			select {
			case <-f.sess.stopped:
				return
			case msg = <-f.sess.out:
			}

			f.mu.Lock()
			f.received = append(f.received, msg)
			f.mu.Unlock()

			if msg.Method == "initialize" {
				version := f.protocolVersion
				if version == "" {
					version = "2025-11-25"
				}
				f.reply(resultMsg(msg.ID, map[string]any{
					"protocolVersion": version,
					"capabilities":    f.caps,
					"serverInfo":      mcphost.Info{Name: "fake-server", Version: "0.1.0"},
				}))
				continue
			}
			if msg.Method == "" || msg.ID == "" {
				continue
			}
			if f.handle == nil {
				continue
			}
			if res := f.handle(msg); res != nil {
				f.reply(*res)
			}
		}
	}()
}

func (f *fakeServer) reply(msg mcphost.JSONRPCMessage) {
	select {
	case f.sess.in <- msg:
	case <-f.sess.stopped:
	}
}

// push injects a server-to-client frame.
func (f *fakeServer) push(msg mcphost.JSONRPCMessage) {
	f.reply(msg)
}

func (f *fakeServer) notify(t *testing.T, method string, params any) {
	t.Helper()
	msg := mcphost.JSONRPCMessage{
		JSONRPC: mcphost.JSONRPCVersion,
		Method:  method,
	}
	if params != nil {
		bs, err := json.Marshal(params)
		if err != nil {
			t.Fatalf("failed to marshal params: %v", err)
		}
		msg.Params = bs
	}
	f.push(msg)
}

func (f *fakeServer) request(t *testing.T, id, method string, params any) {
	t.Helper()
	msg := mcphost.JSONRPCMessage{
		JSONRPC: mcphost.JSONRPCVersion,
		ID:      mcphost.MustString(id),
		Method:  method,
	}
	if params != nil {
		bs, err := json.Marshal(params)
		if err != nil {
			t.Fatalf("failed to marshal params: %v", err)
		}
		msg.Params = bs
	}
	f.push(msg)
}

func (f *fakeServer) frames() []mcphost.JSONRPCMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	frames := make([]mcphost.JSONRPCMessage, len(f.received))
	copy(frames, f.received)
	return frames
}

func (f *fakeServer) countMethod(method string) int {
	count := 0
	for _, msg := range f.frames() {
		if msg.Method == method {
			count++
		}
	}
	return count
}

// waitForFrame polls until the server has received a frame matching the
// predicate.
func (f *fakeServer) waitForFrame(t *testing.T, match func(mcphost.JSONRPCMessage) bool) mcphost.JSONRPCMessage {
	t.Helper()
	msg, ok := f.pollFrame(match)
	if !ok {
		t.Fatalf("no frame matched within deadline, got %d frames", len(f.frames()))
	}
	return msg
}

// pollFrame is waitForFrame without the fatal, safe off the test goroutine.
func (f *fakeServer) pollFrame(match func(mcphost.JSONRPCMessage) bool) (mcphost.JSONRPCMessage, bool) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, msg := range f.frames() {
			if match(msg) {
				return msg, true
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	return mcphost.JSONRPCMessage{}, false
}

func resultMsg(id mcphost.MustString, v any) mcphost.JSONRPCMessage {
	bs, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("failed to marshal result: %v", err))
	}
	return mcphost.JSONRPCMessage{
		JSONRPC: mcphost.JSONRPCVersion,
		ID:      id,
		Result:  bs,
	}
}

func errorMsg(id mcphost.MustString, code int, message string) mcphost.JSONRPCMessage {
	return mcphost.JSONRPCMessage{
		JSONRPC: mcphost.JSONRPCVersion,
		ID:      id,
		Error:   &mcphost.JSONRPCError{Code: code, Message: message},
	}
}

func newConnectedConn(t *testing.T, caps mcphost.ServerCapabilities,
	handle func(mcphost.JSONRPCMessage) *mcphost.JSONRPCMessage, opts ...mcphost.ConnOption,
) (*mcphost.Conn, *fakeServer) {
	t.Helper()

	sess := newTestSession()
	srv := &fakeServer{sess: sess, caps: caps, handle: handle}
	srv.run()

	allOpts := append([]mcphost.ConnOption{
		mcphost.WithConnReadTimeout(2 * time.Second),
		mcphost.WithConnWriteTimeout(time.Second),
	}, opts...)

	conn := mcphost.NewConn("srv", mcphost.Info{Name: "test-host", Version: "1.0.0"},
		&testTransport{sess: sess}, allOpts...)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Connect(ctx); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Disconnect()
	})
	return conn, srv
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestConnect(t *testing.T) {
	conn, srv := newConnectedConn(t, mcphost.ServerCapabilities{
		Tools: &mcphost.ToolsCapability{},
	}, nil)

	if got := conn.Status(); got != mcphost.StatusConnected {
		t.Errorf("expected status %s, got %s", mcphost.StatusConnected, got)
	}
	if err := conn.Err(); err != nil {
		t.Errorf("unexpected connection error: %v", err)
	}
	if got := conn.ServerInfo().Name; got != "fake-server" {
		t.Errorf("expected server name fake-server, got %s", got)
	}
	if conn.ServerCapabilities().Tools == nil {
		t.Error("expected tools capability to be recorded")
	}

	init := srv.waitForFrame(t, func(m mcphost.JSONRPCMessage) bool {
		return m.Method == "initialize"
	})
	var params struct {
		ProtocolVersion string                     `json:"protocolVersion"`
		Capabilities    mcphost.ClientCapabilities `json:"capabilities"`
		ClientInfo      mcphost.Info               `json:"clientInfo"`
	}
	if err := json.Unmarshal(init.Params, &params); err != nil {
		t.Fatalf("failed to unmarshal initialize params: %v", err)
	}
	if params.ProtocolVersion != "2025-11-25" {
		t.Errorf("unexpected protocol version %s", params.ProtocolVersion)
	}
	if params.ClientInfo.Name != "test-host" {
		t.Errorf("unexpected client name %s", params.ClientInfo.Name)
	}
	if params.Capabilities.Sampling == nil || params.Capabilities.Elicitation == nil {
		t.Error("expected sampling and elicitation capabilities to be advertised")
	}
	if params.Capabilities.Roots != nil {
		t.Error("roots capability advertised without a handler")
	}

	srv.waitForFrame(t, func(m mcphost.JSONRPCMessage) bool {
		return m.Method == "notifications/initialized"
	})
}

func TestConnectIdempotent(t *testing.T) {
	conn, srv := newConnectedConn(t, mcphost.ServerCapabilities{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := conn.Connect(ctx); err != nil {
		t.Fatalf("second connect failed: %v", err)
	}

	if got := srv.countMethod("initialize"); got != 1 {
		t.Errorf("expected exactly 1 initialize frame, got %d", got)
	}
}

func TestConnectProtocolVersionMismatch(t *testing.T) {
	sess := newTestSession()
	srv := &fakeServer{sess: sess, protocolVersion: "2024-11-05"}
	srv.run()

	conn := mcphost.NewConn("srv", mcphost.Info{Name: "test-host", Version: "1.0.0"},
		&testTransport{sess: sess}, mcphost.WithConnReadTimeout(2*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := conn.Connect(ctx)
	if err == nil {
		t.Fatal("expected connect to fail on version mismatch")
	}
	var hsErr *mcphost.HandshakeError
	if !errors.As(err, &hsErr) {
		t.Fatalf("expected HandshakeError, got %T: %v", err, err)
	}
	if got := conn.Status(); got != mcphost.StatusError {
		t.Errorf("expected status %s, got %s", mcphost.StatusError, got)
	}
	if conn.Err() == nil {
		t.Error("expected connection error to be retained")
	}
}

func TestConnectTransportFailure(t *testing.T) {
	conn := mcphost.NewConn("srv", mcphost.Info{Name: "test-host", Version: "1.0.0"},
		&testTransport{startErr: errors.New("dial refused")})

	err := conn.Connect(context.Background())
	var hsErr *mcphost.HandshakeError
	if !errors.As(err, &hsErr) {
		t.Fatalf("expected HandshakeError, got %T: %v", err, err)
	}
	if got := conn.Status(); got != mcphost.StatusError {
		t.Errorf("expected status %s, got %s", mcphost.StatusError, got)
	}
}

func TestOperationsBeforeConnect(t *testing.T) {
	conn := mcphost.NewConn("srv", mcphost.Info{Name: "test-host", Version: "1.0.0"},
		&testTransport{sess: newTestSession()})

	// Before any handshake the capability snapshot is empty; the failure must
	// name the missing connection, not a missing capability.
	_, err := conn.CallTool(context.Background(), mcphost.CallToolParams{Name: "echo"})
	if !errors.Is(err, mcphost.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected before connect, got %v", err)
	}

	_, err = conn.ListPrompts(context.Background(), mcphost.ListPromptsParams{})
	if !errors.Is(err, mcphost.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected from ListPrompts, got %v", err)
	}

	if err := conn.SetLogLevel(context.Background(), mcphost.LogLevelInfo); !errors.Is(err, mcphost.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected from SetLogLevel, got %v", err)
	}

	_, err = conn.Tasks().GetTask(context.Background(), "task-1")
	if !errors.Is(err, mcphost.ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected from GetTask, got %v", err)
	}
}

func TestDisconnectRejectsPending(t *testing.T) {
	// The server never answers tools/call, so the request stays in flight
	// until the disconnect rejects it.
	conn, srv := newConnectedConn(t, mcphost.ServerCapabilities{
		Tools: &mcphost.ToolsCapability{},
	}, nil)

	errs := make(chan error, 1)
	go func() {
		_, err := conn.CallTool(context.Background(), mcphost.CallToolParams{Name: "slow"})
		errs <- err
	}()

	srv.waitForFrame(t, func(m mcphost.JSONRPCMessage) bool {
		return m.Method == "tools/call"
	})

	if err := conn.Disconnect(); err != nil {
		t.Fatalf("failed to disconnect: %v", err)
	}

	select {
	case err := <-errs:
		if !errors.Is(err, mcphost.ErrConnectionClosed) {
			t.Errorf("expected ErrConnectionClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending call not rejected after disconnect")
	}

	if got := conn.Status(); got != mcphost.StatusDisconnected {
		t.Errorf("expected status %s, got %s", mcphost.StatusDisconnected, got)
	}
}

func TestDisconnectClearsQueuedElicitations(t *testing.T) {
	conn, srv := newConnectedConn(t, mcphost.ServerCapabilities{}, nil)

	srv.request(t, "e1", "elicitation/create", mcphost.ElicitParams{Message: "Name?"})
	waitFor(t, func() bool {
		return len(conn.PendingElicitations()) == 1
	}, "elicitation to be queued")

	if err := conn.Disconnect(); err != nil {
		t.Fatalf("failed to disconnect: %v", err)
	}

	if got := len(conn.PendingElicitations()); got != 0 {
		t.Errorf("expected no queued elicitations after disconnect, got %d", got)
	}
	if got := len(conn.PendingSamplingRequests()); got != 0 {
		t.Errorf("expected no queued sampling requests after disconnect, got %d", got)
	}
}

func TestTransportDeathEntersErrorState(t *testing.T) {
	conn, srv := newConnectedConn(t, mcphost.ServerCapabilities{}, nil)

	srv.sess.Stop()

	waitFor(t, func() bool {
		return conn.Status() == mcphost.StatusError
	}, "connection to enter error state")
	if !errors.Is(conn.Err(), mcphost.ErrConnectionClosed) {
		t.Errorf("expected ErrConnectionClosed cause, got %v", conn.Err())
	}
}

func TestReconnectAfterDisconnect(t *testing.T) {
	conn, _ := newConnectedConn(t, mcphost.ServerCapabilities{}, nil)

	if err := conn.Disconnect(); err != nil {
		t.Fatalf("failed to disconnect: %v", err)
	}

	// The old session is dead; swap in a fresh one behind a new transport.
	sess := newTestSession()
	srv2 := &fakeServer{sess: sess, caps: mcphost.ServerCapabilities{}}
	srv2.run()

	conn2 := mcphost.NewConn("srv", mcphost.Info{Name: "test-host", Version: "1.0.0"},
		&testTransport{sess: sess}, mcphost.WithConnReadTimeout(2*time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn2.Connect(ctx); err != nil {
		t.Fatalf("failed to reconnect: %v", err)
	}
	t.Cleanup(func() { _ = conn2.Disconnect() })
	if got := conn2.Status(); got != mcphost.StatusConnected {
		t.Errorf("expected status %s, got %s", mcphost.StatusConnected, got)
	}
}

// laggySession keeps its message iterator running past Stop until released,
// like a transport whose reader goroutine winds down slowly.
type laggySession struct {
	*testSession
	release chan struct{}
}

func (s *laggySession) Messages() iter.Seq[mcphost.JSONRPCMessage] {
	return func(yield func(mcphost.JSONRPCMessage) bool) {
		for {
			select {
			case <-s.stopped:
				<-s.release
				return
			case msg := <-s.in:
				if !yield(msg) {
					return
				}
			}
		}
	}
}

// sequenceTransport hands out a fresh session per StartSession call.
type sequenceTransport struct {
	mu       sync.Mutex
	sessions []mcphost.Session
}

func (t *sequenceTransport) StartSession(context.Context) (mcphost.Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.sessions) == 0 {
		return nil, errors.New("no more sessions")
	}
	sess := t.sessions[0]
	t.sessions = t.sessions[1:]
	return sess, nil
}

func TestStaleReaderLeavesNewSessionAlive(t *testing.T) {
	first := &laggySession{testSession: newTestSession(), release: make(chan struct{})}
	second := newTestSession()
	srv1 := &fakeServer{sess: first.testSession}
	srv1.run()
	srv2 := &fakeServer{sess: second}
	srv2.run()

	conn := mcphost.NewConn("srv", mcphost.Info{Name: "test-host", Version: "1.0.0"},
		&sequenceTransport{sessions: []mcphost.Session{first, second}},
		mcphost.WithConnReadTimeout(2*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Connect(ctx); err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := conn.Disconnect(); err != nil {
		t.Fatalf("failed to disconnect: %v", err)
	}
	if err := conn.Connect(ctx); err != nil {
		t.Fatalf("failed to reconnect: %v", err)
	}
	t.Cleanup(func() { _ = conn.Disconnect() })

	// Only now does the first session's reader observe its stop; its exit
	// must not dismantle the session that replaced it.
	close(first.release)
	time.Sleep(50 * time.Millisecond)

	if got := conn.Status(); got != mcphost.StatusConnected {
		t.Fatalf("expected status %s after stale reader exit, got %s", mcphost.StatusConnected, got)
	}

	srv2.request(t, "ping-1", "ping", nil)
	res := srv2.waitForFrame(t, func(m mcphost.JSONRPCMessage) bool {
		return m.Method == "" && m.ID == "ping-1"
	})
	if res.Error != nil {
		t.Errorf("expected ping result over the new session, got error: %v", res.Error)
	}
}

func TestServerPingAnswered(t *testing.T) {
	_, srv := newConnectedConn(t, mcphost.ServerCapabilities{}, nil)

	srv.request(t, "ping-1", "ping", nil)

	res := srv.waitForFrame(t, func(m mcphost.JSONRPCMessage) bool {
		return m.Method == "" && m.ID == "ping-1"
	})
	if res.Error != nil {
		t.Errorf("expected ping result, got error: %v", res.Error)
	}
}

func TestUnknownServerMethodRejected(t *testing.T) {
	_, srv := newConnectedConn(t, mcphost.ServerCapabilities{}, nil)

	srv.request(t, "x-1", "bogus/method", nil)

	res := srv.waitForFrame(t, func(m mcphost.JSONRPCMessage) bool {
		return m.Method == "" && m.ID == "x-1"
	})
	if res.Error == nil {
		t.Fatal("expected error response for unknown method")
	}
	if res.Error.Code != -32601 {
		t.Errorf("expected method-not-found code, got %d", res.Error.Code)
	}
}

func TestRootsListServed(t *testing.T) {
	roots, err := mcphost.NewStaticRoots(mcphost.Root{URI: "file:///home/user/project", Name: "project"})
	if err != nil {
		t.Fatalf("failed to build roots: %v", err)
	}

	_, srv := newConnectedConn(t, mcphost.ServerCapabilities{}, nil,
		mcphost.WithRootsListHandler(roots))

	srv.request(t, "r-1", "roots/list", nil)

	res := srv.waitForFrame(t, func(m mcphost.JSONRPCMessage) bool {
		return m.Method == "" && m.ID == "r-1"
	})
	if res.Error != nil {
		t.Fatalf("expected roots result, got error: %v", res.Error)
	}
	var list mcphost.RootList
	if err := json.Unmarshal(res.Result, &list); err != nil {
		t.Fatalf("failed to unmarshal roots: %v", err)
	}
	if len(list.Roots) != 1 || list.Roots[0].URI != "file:///home/user/project" {
		t.Errorf("unexpected roots list: %+v", list.Roots)
	}

	init := srv.waitForFrame(t, func(m mcphost.JSONRPCMessage) bool {
		return m.Method == "initialize"
	})
	var params struct {
		Capabilities mcphost.ClientCapabilities `json:"capabilities"`
	}
	if err := json.Unmarshal(init.Params, &params); err != nil {
		t.Fatalf("failed to unmarshal initialize params: %v", err)
	}
	if params.Capabilities.Roots == nil {
		t.Error("expected roots capability to be advertised")
	}
}

func TestWatcherNotifications(t *testing.T) {
	promptWatcher := &mockPromptListWatcher{}
	resourceWatcher := &mockResourceListWatcher{}
	toolWatcher := &mockToolListWatcher{}
	subWatcher := &mockResourceSubscribedWatcher{}
	progress := &mockProgressListener{}
	logs := &mockLogReceiver{}

	_, srv := newConnectedConn(t, mcphost.ServerCapabilities{}, nil,
		mcphost.WithPromptListWatcher(promptWatcher),
		mcphost.WithResourceListWatcher(resourceWatcher),
		mcphost.WithToolListWatcher(toolWatcher),
		mcphost.WithResourceSubscribedWatcher(subWatcher),
		mcphost.WithProgressListener(progress),
		mcphost.WithLogReceiver(logs),
	)

	srv.notify(t, "notifications/prompts/list_changed", nil)
	srv.notify(t, "notifications/resources/list_changed", nil)
	srv.notify(t, "notifications/tools/list_changed", nil)
	srv.notify(t, "notifications/resources/updated", map[string]string{"uri": "file:///a.txt"})
	srv.notify(t, "notifications/progress", mcphost.ProgressParams{
		ProgressToken: "tok", Progress: 0.5, Total: 1,
	})
	srv.notify(t, "notifications/message", mcphost.LogParams{
		Level: mcphost.LogLevelInfo, Logger: "core",
	})

	waitFor(t, func() bool {
		return promptWatcher.count() == 1 &&
			resourceWatcher.count() == 1 &&
			toolWatcher.count() == 1 &&
			subWatcher.count() == 1 &&
			progress.count() == 1 &&
			logs.count() == 1
	}, "all watchers to fire")

	if got := subWatcher.lastURI(); got != "file:///a.txt" {
		t.Errorf("unexpected subscribed URI %s", got)
	}
}

type mockPromptListWatcher struct {
	lock        sync.Mutex
	updateCount int
}

func (m *mockPromptListWatcher) OnPromptListChanged() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.updateCount++
}

func (m *mockPromptListWatcher) count() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.updateCount
}

type mockResourceListWatcher struct {
	lock        sync.Mutex
	updateCount int
}

func (m *mockResourceListWatcher) OnResourceListChanged() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.updateCount++
}

func (m *mockResourceListWatcher) count() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.updateCount
}

type mockResourceSubscribedWatcher struct {
	lock        sync.Mutex
	updateCount int
	uri         string
}

func (m *mockResourceSubscribedWatcher) OnResourceSubscribedChanged(uri string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.updateCount++
	m.uri = uri
}

func (m *mockResourceSubscribedWatcher) count() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.updateCount
}

func (m *mockResourceSubscribedWatcher) lastURI() string {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.uri
}

type mockToolListWatcher struct {
	lock        sync.Mutex
	updateCount int
}

func (m *mockToolListWatcher) OnToolListChanged() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.updateCount++
}

func (m *mockToolListWatcher) count() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.updateCount
}

type mockProgressListener struct {
	lock        sync.Mutex
	updateCount int
}

func (m *mockProgressListener) OnProgress(mcphost.ProgressParams) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.updateCount++
}

func (m *mockProgressListener) count() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.updateCount
}

type mockLogReceiver struct {
	lock        sync.Mutex
	updateCount int
}

func (m *mockLogReceiver) OnLog(mcphost.LogParams) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.updateCount++
}

func (m *mockLogReceiver) count() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.updateCount
}
