package mcphost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/tmaxmax/go-sse"
)

// SSEClient is a ClientTransport over Server-Sent Events: server-to-client
// messages arrive on a long-lived SSE stream, client-to-server messages go out
// as HTTP POSTs to the endpoint URL the server announces as the stream's first
// event.
//
// Instances should be created using NewSSEClient.
type SSEClient struct {
	httpClient *http.Client
	connectURL string
	logger     *slog.Logger

	maxPayloadSize int
}

// SSEClientOption represents the options for the SSEClient.
type SSEClientOption func(*SSEClient)

// WithSSEClientMaxPayloadSize sets the maximum size of an SSE event payload
// that can be received from the server.
func WithSSEClientMaxPayloadSize(size int) SSEClientOption {
	return func(s *SSEClient) {
		s.maxPayloadSize = size
	}
}

// WithSSEClientLogger sets the logger for the SSEClient.
func WithSSEClientLogger(logger *slog.Logger) SSEClientOption {
	return func(s *SSEClient) {
		s.logger = logger
	}
}

// NewSSEClient creates an SSE transport that connects to the specified
// connectURL. The optional httpClient allows custom HTTP client
// configuration; nil falls back to http.DefaultClient.
func NewSSEClient(connectURL string, httpClient *http.Client, options ...SSEClientOption) *SSEClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	s := &SSEClient{
		httpClient: httpClient,
		connectURL: connectURL,
		logger:     slog.Default(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// StartSession establishes the SSE stream and waits for the server's endpoint
// event before returning, so the session can send messages the moment it is
// handed out. The stream stays up until Stop is called or the server closes
// it; the ctx only bounds the connection establishment.
func (s *SSEClient) StartSession(ctx context.Context) (Session, error) {
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, s.connectURL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to connect to SSE server: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	sess := &sseClientSession{
		httpClient:     s.httpClient,
		logger:         s.logger,
		maxPayloadSize: s.maxPayloadSize,
		cancel:         cancel,
		messages:       make(chan JSONRPCMessage, 10),
	}

	ready := make(chan error, 1)
	go sess.listen(resp.Body, ready)

	select {
	case err := <-ready:
		if err != nil {
			cancel()
			return nil, err
		}
		return sess, nil
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	}
}

type sseClientSession struct {
	httpClient     *http.Client
	logger         *slog.Logger
	maxPayloadSize int
	cancel         context.CancelFunc
	messages       chan JSONRPCMessage

	// messageURL is written once by listen before ready is signalled.
	messageURL string
}

// Send transmits a JSON-encoded message to the server through an HTTP POST
// request to the announced endpoint.
func (s *sseClientSession) Send(ctx context.Context, msg JSONRPCMessage) error {
	msgBs, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.messageURL, bytes.NewReader(msgBs))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

func (s *sseClientSession) Messages() iter.Seq[JSONRPCMessage] {
	return func(yield func(JSONRPCMessage) bool) {
		for msg := range s.messages {
			if !yield(msg) {
				return
			}
		}
	}
}

func (s *sseClientSession) Stop() {
	s.cancel()
}

func (s *sseClientSession) listen(body io.ReadCloser, ready chan<- error) {
	defer func() {
		body.Close()
		close(s.messages)
	}()

	var config *sse.ReadConfig
	if s.maxPayloadSize > 0 {
		config = &sse.ReadConfig{
			MaxEventSize: s.maxPayloadSize,
		}
	}

	// announced flips when the first endpoint event signals ready; the
	// channel is closed at that point, so later events must not touch it.
	var announced bool

	for ev, err := range sse.Read(body, config) {
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				s.logger.Error("failed to read SSE message", "err", err)
			}
			return
		}

		switch ev.Type {
		case "endpoint":
			if announced {
				// The endpoint URL is fixed for the session's lifetime and
				// may already be in use by Send.
				s.logger.Error("ignoring duplicate endpoint event", "data", ev.Data)
				continue
			}

			// Validate the endpoint URL before routing any messages to it.
			u, err := url.Parse(ev.Data)
			if err != nil {
				ready <- fmt.Errorf("parse endpoint URL: %w", err)
				return
			}
			if u.String() == "" {
				ready <- errors.New("empty endpoint URL")
				return
			}
			s.messageURL = u.String()
			announced = true
			close(ready)
		case "message":
			// Messages before the endpoint event would have nowhere to be
			// answered; drop them.
			if s.messageURL == "" {
				s.logger.Error("received message before endpoint URL")
				continue
			}

			var msg JSONRPCMessage
			if err := json.Unmarshal([]byte(ev.Data), &msg); err != nil {
				s.logger.Error("failed to unmarshal message", "err", err)
				continue
			}

			s.messages <- msg
		default:
			s.logger.Error("unhandled event type", "type", ev.Type)
		}
	}
}
