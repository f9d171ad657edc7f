// Package server defines the wire message types exchanged with clients:
// the inbound tagged union decoded from client frames and the outbound JSON
// envelope.
package server

import (
	"bytes"
	"encoding/json"
)

// Outbound message type discriminators.
const (
	TypeLoginSuccess = "login_success"
	TypeUserJoined   = "user_joined"
	TypeUserLeft     = "user_left"
	TypeUsersList    = "users_list"
	TypeChat         = "chat"
	TypePrivate      = "private"
	TypePrivateSent  = "private_sent"
	TypeTyping       = "typing"
	TypeError        = "error"
)

// Inbound is one decoded client frame. Concrete variants are LoginRequest,
// ChatRequest, PrivateRequest, TypingRequest, UnknownRequest, and PlainText.
type Inbound interface {
	inbound()
}

// LoginRequest asks the server to associate a display name with the sender.
type LoginRequest struct {
	Username string
}

// ChatRequest carries a public chat message.
type ChatRequest struct {
	Message string
}

// PrivateRequest carries a direct message to a named recipient.
type PrivateRequest struct {
	To      string
	Message string
}

// TypingRequest signals that the sender started or stopped typing.
type TypingRequest struct {
	IsTyping bool
}

// UnknownRequest is a JSON object whose type field is missing or unrecognized.
type UnknownRequest struct {
	Type string
}

// PlainText is a frame that did not decode as a JSON object. It is treated as
// a literal chat message body for legacy plain-text clients.
type PlainText struct {
	Text string
}

func (LoginRequest) inbound()   {}
func (ChatRequest) inbound()    {}
func (PrivateRequest) inbound() {}
func (TypingRequest) inbound()  {}
func (UnknownRequest) inbound() {}
func (PlainText) inbound()      {}

// DecodeInbound decodes one raw client frame into its Inbound variant.
// Malformed JSON and non-object payloads become PlainText; a decode failure
// is a variant here, never an error.
func DecodeInbound(raw []byte) Inbound {
	// Anything that is not a JSON object is a literal chat body. The explicit
	// check matters for payloads like null that unmarshal into a struct
	// without error.
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return PlainText{Text: string(raw)}
	}

	var env struct {
		Type     string `json:"type"`
		Username string `json:"username"`
		Message  string `json:"message"`
		To       string `json:"to"`
		IsTyping *bool  `json:"is_typing"`
	}

	if err := json.Unmarshal(raw, &env); err != nil {
		return PlainText{Text: string(raw)}
	}

	switch env.Type {
	case "login":
		return LoginRequest{Username: env.Username}
	case "chat":
		return ChatRequest{Message: env.Message}
	case "private":
		return PrivateRequest{To: env.To, Message: env.Message}
	case "typing":
		isTyping := true
		if env.IsTyping != nil {
			isTyping = *env.IsTyping
		}
		return TypingRequest{IsTyping: isTyping}
	default:
		return UnknownRequest{Type: env.Type}
	}
}

// inboundLabel returns the metric label for a decoded inbound variant.
func inboundLabel(msg Inbound) string {
	switch msg.(type) {
	case LoginRequest:
		return "login"
	case ChatRequest:
		return "chat"
	case PrivateRequest:
		return "private"
	case TypingRequest:
		return "typing"
	case PlainText:
		return "plain_text"
	default:
		return "unknown"
	}
}

// Outbound is the JSON envelope sent to clients. Every message carries a type
// discriminator and a server-side RFC 3339 timestamp; the remaining fields
// are populated per type.
type Outbound struct {
	Type      string   `json:"type"`
	Timestamp string   `json:"timestamp"`
	Username  string   `json:"username,omitempty"`
	Message   string   `json:"message,omitempty"`
	From      string   `json:"from,omitempty"`
	To        string   `json:"to,omitempty"`
	Users     []string `json:"users,omitempty"`
	IsTyping  *bool    `json:"is_typing,omitempty"`
}
