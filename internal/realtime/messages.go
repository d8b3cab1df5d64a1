package realtime

import (
	"github.com/goccy/go-json"
)

// Envelope types
const (
	TypeStatus     = "STATUS"
	TypeNewMessage = "NEW_MESSAGE"
	TypeError      = "ERROR"
	TypeMatch      = "MATCH"
)

const (
	statusConnected    = "Connected and subscribed."
	errorFailedMessage = "Failed to process message."
)

// Envelope is every outbound frame.
type Envelope struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Inbound is a chat frame sent by a client. chatId is accepted as an alias
// of conversationId for older clients.
type Inbound struct {
	ConversationID string `json:"conversationId"`
	ChatID         string `json:"chatId,omitempty"`
	Content        string `json:"content"`
}

func (in Inbound) conversation() string {
	if in.ConversationID != "" {
		return in.ConversationID
	}
	return in.ChatID
}

func encode(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}
