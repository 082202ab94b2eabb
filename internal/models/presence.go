package models

const (
	PresenceOnline  = "online"
	PresenceOffline = "offline"
)

type Presence struct {
	UserID      string `json:"userId"`
	Status      string `json:"status"`
	LastSeen    int64  `json:"lastSeen,omitempty"`
	Connections int64  `json:"connections"`
}
