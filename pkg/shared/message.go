package shared

// MessageType identifies the kind of a websocket frame sent to the frontend.
type MessageType int

// MessageType constants, matching the type switch in the frontend page.
const (
	MessageTypeText         MessageType = 0 // Text output
	MessageTypeClear        MessageType = 1 // Clear the screen
	MessageTypeMode         MessageType = 2 // Mode switch (e.g. "basic")
	MessageTypeSession      MessageType = 3 // Session id handover
	MessageTypeInputControl MessageType = 4 // Enable/disable the input line
	MessageTypePrompt       MessageType = 5 // Prompt symbol and input state
	MessageTypeError        MessageType = 6 // Interpreter error text
	MessageTypeAutoExecute  MessageType = 7 // Frontend should submit the content as input
)

// Message is a frame sent over the terminal websocket.
type Message struct {
	Type    MessageType `json:"type"`
	Content string      `json:"content"`

	// For TEXT: suppress the automatic newline in the frontend.
	NoNewline bool `json:"noNewline,omitempty"`

	// For SESSION.
	SessionID string `json:"sessionId,omitempty"`

	// For PROMPT and INPUT_CONTROL. Pointer so false and unset stay distinct.
	InputEnabled *bool  `json:"inputEnabled,omitempty"`
	PromptSymbol string `json:"promptSymbol,omitempty"`

	// For MODE.
	Mode string `json:"mode,omitempty"`
}
