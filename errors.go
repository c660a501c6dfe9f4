package mcphost

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by connection and dispatch operations. Callers
// should test them with errors.Is, as they may arrive wrapped with context.
var (
	// ErrConnectionClosed is returned for every request still in flight when
	// its connection disconnects or fails.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrTimeout is returned when a request's deadline elapses before the
	// matching response arrives. The request may be retried.
	ErrTimeout = errors.New("request timeout")

	// ErrNotConnected is returned when an operation is dispatched on a
	// connection that has not completed its handshake.
	ErrNotConnected = errors.New("not connected")

	// ErrStreamAborted is returned from a streaming tool call that the caller
	// cancelled. It is not a failure of the tool itself.
	ErrStreamAborted = errors.New("stream aborted")

	// ErrAlreadyResolved is returned when a sampling or elicitation item is
	// resolved a second time, or after its connection disconnected. The first
	// resolution stands; host state is unaffected.
	ErrAlreadyResolved = errors.New("request already resolved")

	// ErrUnknownServer is returned by Host operations that name a server id
	// with no registered connection.
	ErrUnknownServer = errors.New("unknown server")
)

// HandshakeError reports a failed initialize exchange. It is fatal to the
// connection attempt but recoverable by calling Connect again.
type HandshakeError struct {
	Err error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake failed: %v", e.Err)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// ToolCallError reports a server-side failure of a tool invocation carried in
// an otherwise successful RPC exchange. It does not tear down the connection.
type ToolCallError struct {
	Tool string
	RPC  *JSONRPCError
}

func (e *ToolCallError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Tool, e.RPC)
}

func (e *ToolCallError) Unwrap() error {
	// A nil *JSONRPCError must not leak as a non-nil error interface.
	if e.RPC == nil {
		return nil
	}
	return e.RPC
}

// capabilityError is returned when a dispatcher targets a capability the
// server did not advertise at handshake.
func capabilityError(what string) error {
	return fmt.Errorf("%s not supported by server", what)
}
