// Package responses defines the OpenAI Responses API wire format consumed
// from the backend: native streaming events, the request body, and the
// non-streaming response object. It also hosts the transport parser that
// turns raw bytes into native events, and the guards that classify them.
package responses

import "encoding/json"

// --- Request types ---

// Request is the wire format for POST /v1/responses.
type Request struct {
	Model           string          `json:"model"`
	Input           []InputItem     `json:"input"`
	Instructions    string          `json:"instructions,omitempty"`
	Tools           []Tool          `json:"tools,omitempty"`
	ToolChoice      any             `json:"tool_choice,omitempty"`
	Store           bool            `json:"store"`
	Stream          bool            `json:"stream,omitempty"`
	Temperature     *float64        `json:"temperature,omitempty"`
	TopP            *float64        `json:"top_p,omitempty"`
	MaxOutputTokens *int            `json:"max_output_tokens,omitempty"`
	Stop            []string        `json:"stop,omitempty"`
}

// InputItem is one element of the request input array: a message, a prior
// function call, or a function call result.
type InputItem struct {
	Type      string         `json:"type"` // "message", "function_call", "function_call_output"
	Role      string         `json:"role,omitempty"`
	Content   []ContentPart  `json:"content,omitempty"`
	CallID    string         `json:"call_id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Arguments string         `json:"arguments,omitempty"`
	Output    string         `json:"output,omitempty"`
}

// ContentPart is a typed content element within a message item.
type ContentPart struct {
	Type  string          `json:"type"` // "input_text", "output_text", "input_image"
	Text  string          `json:"text,omitempty"`
	Image json.RawMessage `json:"image_url,omitempty"`
}

// Tool is a tool definition in the Responses API format.
type Tool struct {
	Type        string          `json:"type"`
	Name        string          `json:"name,omitempty"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// --- Response types ---

// Response is the complete object returned by POST /v1/responses without
// streaming, and embedded in response.completed events.
type Response struct {
	ID                string             `json:"id"`
	Object            string             `json:"object"`
	CreatedAt         int64              `json:"created_at"`
	Status            string             `json:"status"` // "completed", "incomplete", "failed"
	Model             string             `json:"model"`
	Output            []Item             `json:"output"`
	Usage             *Usage             `json:"usage,omitempty"`
	Error             *ResponseError     `json:"error,omitempty"`
	IncompleteDetails *IncompleteDetails `json:"incomplete_details,omitempty"`
}

// Item is one output element: an assistant message or a function call.
type Item struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"` // "message", "function_call"
	Status    string          `json:"status,omitempty"`
	Role      string          `json:"role,omitempty"`
	Content   []ContentPart   `json:"content,omitempty"`
	CallID    string          `json:"call_id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Arguments string          `json:"arguments,omitempty"`
}

// Usage holds token accounting from the backend.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// ResponseError is the error shape embedded in failed responses.
type ResponseError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// IncompleteDetails explains why a response stopped early.
type IncompleteDetails struct {
	Reason string `json:"reason"` // "max_output_tokens", "content_filter"
}

// --- Streaming event types ---

// Event type strings carried in the "type" field of each SSE data payload.
const (
	EventResponseCreated       = "response.created"
	EventResponseInProgress    = "response.in_progress"
	EventResponseCompleted     = "response.completed"
	EventResponseIncomplete    = "response.incomplete"
	EventResponseFailed        = "response.failed"
	EventOutputItemAdded       = "response.output_item.added"
	EventOutputItemDone        = "response.output_item.done"
	EventContentPartAdded      = "response.content_part.added"
	EventContentPartDone       = "response.content_part.done"
	EventOutputTextDelta       = "response.output_text.delta"
	EventOutputTextDone        = "response.output_text.done"
	EventFunctionCallArgsDelta = "response.function_call_arguments.delta"
	EventFunctionCallArgsDone  = "response.function_call_arguments.done"
)

// ItemTypeMessage and ItemTypeFunctionCall are the item kinds the
// translation engine distinguishes. Other kinds pass through untracked.
const (
	ItemTypeMessage      = "message"
	ItemTypeFunctionCall = "function_call"
)

// Event is a native source event, decoded from one SSE data payload.
// It is a tagged union over the event kinds above: Type selects which of
// the optional fields are meaningful. Events are immutable once decoded;
// within one item ID the backend emits a strict delta*, done sequence.
type Event struct {
	Type        string    `json:"type"`
	ItemID      string    `json:"item_id,omitempty"`
	OutputIndex int       `json:"output_index,omitempty"`
	Delta       string    `json:"delta,omitempty"`
	Arguments   string    `json:"arguments,omitempty"`
	Item        *Item     `json:"item,omitempty"`
	Response    *Response `json:"response,omitempty"`
}
