package mcphost

import (
	"context"
	"iter"
)

// ClientTransport provides the communication layer between the host and one
// MCP server. Implementations wrap a concrete duplex channel (SSE, stdio, a
// test pipe) and are consumed by Conn; the protocol runtime itself never
// depends on a particular wire mechanism.
type ClientTransport interface {
	// StartSession opens a duplex channel to the server and returns once the
	// channel is ready to carry messages. Operations are canceled when the
	// context is canceled, and appropriate errors are returned for connection
	// failures.
	StartSession(ctx context.Context) (Session, error)
}

// Session represents one established bidirectional channel to a server.
type Session interface {
	// Send transmits a message to the server.
	Send(ctx context.Context, msg JSONRPCMessage) error

	// Messages returns an iterator that yields messages received from the
	// server. The iterator exits when the session is closed, by either party.
	Messages() iter.Seq[JSONRPCMessage]

	// Stop closes the session. The caller is guaranteed to call this method
	// at most once.
	Stop()
}

// RootsListHandler supplies the host's root list when a server requests it.
// Root boundaries scope which resources a server may ask the host about.
type RootsListHandler interface {
	// RootsList returns the list of available root resources.
	// Returns error if operation fails or context is cancelled.
	RootsList(ctx context.Context) (RootList, error)
}

// PromptListWatcher provides an interface for receiving notifications when a
// server's prompt list changes. Implementations can use these notifications to
// update their internal state or trigger UI updates.
type PromptListWatcher interface {
	// OnPromptListChanged is called when the server notifies that its prompt list has changed.
	OnPromptListChanged()
}

// ResourceListWatcher provides an interface for receiving notifications when a
// server's resource list changes.
type ResourceListWatcher interface {
	// OnResourceListChanged is called when the server notifies that its resource list has changed.
	OnResourceListChanged()
}

// ResourceSubscribedWatcher provides an interface for receiving notifications
// when a subscribed resource changes.
type ResourceSubscribedWatcher interface {
	// OnResourceSubscribedChanged is called when the server notifies that a subscribed resource has changed.
	OnResourceSubscribedChanged(uri string)
}

// ToolListWatcher provides an interface for receiving notifications when a
// server's tool list changes.
type ToolListWatcher interface {
	// OnToolListChanged is called when the server notifies that its tool list has changed.
	OnToolListChanged()
}

// ProgressListener provides an interface for receiving progress updates on
// long-running operations. Implementations can use these notifications to
// update progress bars or other UI elements.
type ProgressListener interface {
	// OnProgress is called when a progress update is received for an operation.
	OnProgress(params ProgressParams)
}

// LogReceiver provides an interface for receiving log messages emitted by the
// server. Implementations can display them in a UI, write them to a file, or
// forward them to a logging service.
type LogReceiver interface {
	// OnLog is called when a log message is received from the server.
	OnLog(params LogParams)
}
