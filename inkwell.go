// Package inkwell defines the request/response types for inkwell IPC.
// Messages are JSON-encoded and sent over a Unix domain socket, one per line.
package inkwell

// Request is sent from an editor client to the daemon.
type Request struct {
	// RequestID is a per-session incrementing identifier assigned by the client.
	// The daemon echoes it back in the response for ordering.
	RequestID int `json:"request_id"`
	// TextBefore is the document text preceding the cursor.
	TextBefore string `json:"text_before"`
	// TextAfter is the document text following the cursor.
	TextAfter string `json:"text_after"`
	// Selection is the currently selected text. Empty means no selection:
	// the daemon inserts at the cursor instead of rewriting the selection.
	Selection string `json:"selection,omitempty"`
	// Prompt is the user's instruction for the suggestion.
	Prompt string `json:"prompt"`
	// Categories names the ambient-context slices to include.
	// Empty means the default ("global").
	Categories []string `json:"categories,omitempty"`
	// DocPath is the path of the document being edited, if the editor
	// knows it. Used to gather workspace context for the prompt.
	DocPath string `json:"doc_path,omitempty"`
	// SessionID identifies the editor session.
	SessionID string `json:"session_id"`
}

// Suggestion modes echoed back in responses.
const (
	ModeInsertion = "insertion"
	ModeEditing   = "editing"
)

// Response is sent from the daemon back to the editor client.
type Response struct {
	// RequestID is echoed from the request for ordering on the client side.
	RequestID int `json:"request_id"`
	// Mode is the path the daemon took: "insertion" or "editing".
	Mode string `json:"mode"`
	// Suggestion is the backend's suggested text, verbatim.
	// For insertion it goes at the cursor; for editing it replaces the selection.
	Suggestion string `json:"suggestion"`
	// Error is set when the daemon cannot fulfill the request.
	Error *Error `json:"error,omitempty"`
}

// Error describes a daemon-side error returned to the editor client.
type Error struct {
	// Code is a machine-readable error identifier (e.g. "not_configured", "api_error").
	Code string `json:"code"`
	// Message is a human-readable error description.
	Message string `json:"message"`
}

// ContextRequest is sent from an editor client to warm the workspace context cache.
type ContextRequest struct {
	// Type is always "context".
	Type string `json:"type"`
	// DocPath is the document whose workspace should be pre-cached.
	DocPath string `json:"doc_path"`
}

// ContextResponse is sent from the daemon in response to a ContextRequest.
type ContextResponse struct {
	// OK is true when the warm-up was accepted.
	OK bool `json:"ok"`
	// Error is set when the operation fails.
	Error *Error `json:"error,omitempty"`
}

// ConfigRequest is sent from an editor client for configuration operations.
type ConfigRequest struct {
	// Action is the config operation: "get", "reload", "defaults",
	// "default_prompts", or "validate".
	Action string `json:"action"`
}

// ConfigResponse is sent from the daemon in response to a ConfigRequest.
type ConfigResponse struct {
	// Config is the current configuration (for "get", "reload", and "defaults" actions).
	Config *Config `json:"config,omitempty"`
	// InsertionPrompt is the default insertion prompt template (for "default_prompts").
	InsertionPrompt string `json:"insertion_prompt,omitempty"`
	// EditingPrompt is the default editing prompt template (for "default_prompts").
	EditingPrompt string `json:"editing_prompt,omitempty"`
	// Warnings contains configuration warnings (for "validate" action).
	Warnings []string `json:"warnings,omitempty"`
	// Error is set when the operation fails.
	Error *Error `json:"error,omitempty"`
}
