package notifications

import "encoding/json"

// Realtime event types.
const (
	EventMessageCreated   = "message_created"
	EventConversationRead = "conversation_read"
	EventConversationNew  = "conversation_created"
	EventCommentCreated   = "comment_created"
	EventSolutionMarked   = "solution_marked"
)

// Event is the envelope written to websocket clients.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Encode marshals the event envelope.
func Encode(eventType string, payload any) (string, error) {
	b, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		return "", err
	}
	return string(b), nil
}
