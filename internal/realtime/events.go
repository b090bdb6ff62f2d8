package realtime

import (
	"fmt"

	"github.com/goccy/go-json"

	"pigmap/internal/model"
)

// Event types sent to clients.
const (
	TypeWelcome     = "welcome"
	TypeActiveUsers = "active_users"
	TypeMarkerAdded = "marker_added"
)

// Message types accepted from clients.
const (
	TypeUserLocation = "user_location"
)

// Event is anything the registry can broadcast.
type Event interface {
	EventType() string
}

// WelcomeEvent is sent once, to a newly joined session only.
type WelcomeEvent struct {
	Type        string `json:"type"`
	ActiveUsers int    `json:"activeUsers"`
}

func (WelcomeEvent) EventType() string { return TypeWelcome }

func NewWelcomeEvent(activeUsers int) WelcomeEvent {
	return WelcomeEvent{Type: TypeWelcome, ActiveUsers: activeUsers}
}

// ActiveUsersEvent is sent to every session on each membership change.
type ActiveUsersEvent struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

func (ActiveUsersEvent) EventType() string { return TypeActiveUsers }

func NewActiveUsersEvent(count int) ActiveUsersEvent {
	return ActiveUsersEvent{Type: TypeActiveUsers, Count: count}
}

// MarkerAddedEvent announces a newly created marker.
type MarkerAddedEvent struct {
	Type   string       `json:"type"`
	Marker model.Marker `json:"marker"`
}

func (MarkerAddedEvent) EventType() string { return TypeMarkerAdded }

// NewMarkerAddedEvent strips the capability token before the marker leaves the process.
func NewMarkerAddedEvent(m model.Marker) MarkerAddedEvent {
	return MarkerAddedEvent{Type: TypeMarkerAdded, Marker: m.Public()}
}

// Location is a coordinate hint sent by a client.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ClientMessage is the envelope for client-originated messages.
type ClientMessage struct {
	Type     string    `json:"type"`
	Location *Location `json:"location,omitempty"`
}

// Encode serializes an event once so it can be shared by every session.
func Encode(e Event) ([]byte, error) {
	return json.Marshal(e)
}

// ParseClientMessage decodes and validates a client message.
func ParseClientMessage(raw []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return ClientMessage{}, err
	}
	if msg.Type != TypeUserLocation {
		return ClientMessage{}, &UnknownMessageError{Type: msg.Type}
	}
	return msg, nil
}

// UnknownMessageError is returned for well-formed messages of an unsupported type.
type UnknownMessageError struct {
	Type string
}

func (e *UnknownMessageError) Error() string {
	return fmt.Sprintf("unknown message type %q", e.Type)
}
