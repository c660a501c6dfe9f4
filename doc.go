// Package mcphost implements the host side of the Model Context Protocol
// (MCP): managing connections to any number of MCP servers, dispatching typed
// operations against their tools, resources, prompts and completions, and
// routing the requests servers initiate back at the host. This implementation
// follows the official specification from https://spec.modelcontextprotocol.io/specification/.
//
// Server-initiated sampling and elicitation requests are never answered
// automatically. They are parked in arrival-ordered queues until the
// application resolves them, which keeps a person in the loop for every
// model invocation and every piece of user input a server asks for.
package mcphost
