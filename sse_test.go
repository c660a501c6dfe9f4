package mcphost_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mcphost "github.com/vishnu2kmohan/mcp-server-langgraph-sub014"
)

// sseTestServer is a minimal SSE endpoint: the stream announces the POST
// endpoint first, then relays whatever is pushed into events.
type sseTestServer struct {
	srv      *httptest.Server
	events   chan string
	received chan []byte
	done     chan struct{}
}

func newSSETestServer(t *testing.T) *sseTestServer {
	t.Helper()

	s := &sseTestServer{
		events:   make(chan string, 8),
		received: make(chan []byte, 8),
		done:     make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/sse", func(w http.ResponseWriter, r *http.Request) {
		fl, ok := w.(http.Flusher)
		if !ok {
			t.Error("response writer is not a flusher")
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "event: endpoint\ndata: %s/message\n\n", s.srv.URL)
		fl.Flush()

		for {
			select {
			case <-s.done:
				return
			case <-r.Context().Done():
				return
			case data := <-s.events:
				fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
				fl.Flush()
			}
		}
	})
	mux.HandleFunc("/message", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.received <- body
	})

	s.srv = httptest.NewServer(mux)
	t.Cleanup(func() {
		close(s.done)
		s.srv.Close()
	})
	return s
}

func TestSSEClientSession(t *testing.T) {
	srv := newSSETestServer(t)

	client := mcphost.NewSSEClient(srv.srv.URL+"/sse", srv.srv.Client())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sess, err := client.StartSession(ctx)
	if err != nil {
		t.Fatalf("failed to start session: %v", err)
	}
	defer sess.Stop()

	// Client to server.
	out := mcphost.JSONRPCMessage{JSONRPC: mcphost.JSONRPCVersion, ID: "1", Method: "ping"}
	if err := sess.Send(ctx, out); err != nil {
		t.Fatalf("failed to send message: %v", err)
	}
	select {
	case body := <-srv.received:
		var got mcphost.JSONRPCMessage
		if err := json.Unmarshal(body, &got); err != nil {
			t.Fatalf("failed to unmarshal posted message: %v", err)
		}
		if got.Method != "ping" || got.ID != "1" {
			t.Errorf("unexpected posted message: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the POST")
	}

	// Server to client.
	in, _ := json.Marshal(mcphost.JSONRPCMessage{JSONRPC: mcphost.JSONRPCVersion, ID: "1", Result: json.RawMessage(`{}`)})
	srv.events <- string(in)

	msgs := make(chan mcphost.JSONRPCMessage, 1)
	go func() {
		for msg := range sess.Messages() {
			msgs <- msg
			return
		}
	}()

	select {
	case msg := <-msgs:
		if msg.ID != "1" {
			t.Errorf("unexpected message id %s", msg.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message arrived on the stream")
	}
}

func TestSSEClientDuplicateEndpointEvent(t *testing.T) {
	received := make(chan []byte, 1)

	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/sse", func(w http.ResponseWriter, r *http.Request) {
		fl := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")

		// A misbehaving server re-announces the endpoint; the second
		// announcement must not disturb the session.
		fmt.Fprintf(w, "event: endpoint\ndata: %s/message\n\n", srv.URL)
		fl.Flush()
		fmt.Fprintf(w, "event: endpoint\ndata: %s/other\n\n", srv.URL)
		fl.Flush()

		in, _ := json.Marshal(mcphost.JSONRPCMessage{JSONRPC: mcphost.JSONRPCVersion, ID: "1", Result: json.RawMessage(`{}`)})
		fmt.Fprintf(w, "event: message\ndata: %s\n\n", in)
		fl.Flush()
		<-r.Context().Done()
	})
	mux.HandleFunc("/message", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- body
	})
	mux.HandleFunc("/other", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "wrong endpoint", http.StatusNotFound)
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	client := mcphost.NewSSEClient(srv.URL+"/sse", srv.Client())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sess, err := client.StartSession(ctx)
	if err != nil {
		t.Fatalf("failed to start session: %v", err)
	}
	defer sess.Stop()

	// The stream keeps delivering after the duplicate announcement.
	msgs := make(chan mcphost.JSONRPCMessage, 1)
	go func() {
		for msg := range sess.Messages() {
			msgs <- msg
			return
		}
	}()
	select {
	case msg := <-msgs:
		if msg.ID != "1" {
			t.Errorf("unexpected message id %s", msg.ID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message arrived after duplicate endpoint event")
	}

	// Sends keep going to the first announced endpoint.
	if err := sess.Send(ctx, mcphost.JSONRPCMessage{JSONRPC: mcphost.JSONRPCVersion, ID: "2", Method: "ping"}); err != nil {
		t.Fatalf("failed to send message: %v", err)
	}
	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("POST never reached the original endpoint")
	}
}

func TestSSEClientConnectFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := mcphost.NewSSEClient(srv.URL, srv.Client())
	_, err := client.StartSession(context.Background())
	if err == nil {
		t.Fatal("expected connect to fail on 500")
	}
}

func TestSSEClientSendRejectsErrorStatus(t *testing.T) {
	srv := newSSETestServer(t)

	// Replace the message endpoint behavior by sending to a dead path: the
	// stream advertises /message, so point a second server's endpoint at a 404.
	client := mcphost.NewSSEClient(srv.srv.URL+"/sse", srv.srv.Client())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sess, err := client.StartSession(ctx)
	if err != nil {
		t.Fatalf("failed to start session: %v", err)
	}
	defer sess.Stop()

	// A cancelled context surfaces as a send error.
	cancelledCtx, cancelNow := context.WithCancel(context.Background())
	cancelNow()
	if err := sess.Send(cancelledCtx, mcphost.JSONRPCMessage{JSONRPC: mcphost.JSONRPCVersion, Method: "ping"}); err == nil {
		t.Fatal("expected send with cancelled context to fail")
	}
}
