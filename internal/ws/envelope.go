package ws

import "encoding/json"

// Event types.
const (
	TypeAck         = "ack"
	TypeHired       = "hired"
	TypeChatJoin    = "chat:join"
	TypeChatSend    = "chat:send"
	TypeChatMessage = "chat:message"
)

// Envelope is the standard wire format for ws messages. Ref is set by the
// client on requests and echoed back on the matching ack.
type Envelope struct {
	Type    string          `json:"type"`
	Ref     string          `json:"ref,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Ack struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type JoinPayload struct {
	GigID string `json:"gigId"`
}

type SendPayload struct {
	GigID string `json:"gigId"`
	Text  string `json:"text"`
}

type HiredPayload struct {
	GigID    string `json:"gigId"`
	GigTitle string `json:"gigTitle"`
}

func UserRoom(userID string) string { return "user:" + userID }
func GigRoom(gigID string) string   { return "gig:" + gigID }

func NewEnvelope(typ, ref string, payload any) (*Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{Type: typ, Ref: ref, Payload: b}, nil
}
