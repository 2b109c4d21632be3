// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are immutable and validated by the domain.
package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a Message for routing and client-side rendering.
// It never changes after construction.
type Kind string

const (
	KindChat           Kind = "Chat"
	KindSystem         Kind = "System"
	KindUserJoin       Kind = "UserJoin"
	KindUserLeave      Kind = "UserLeave"
	KindPrivateMessage Kind = "PrivateMessage"
	KindRoomChange     Kind = "RoomChange"
	KindError          Kind = "Error"
)

// Reserved author names used for server-generated messages.
const (
	SystemAuthor = "System"
	ErrorAuthor  = "Error"
)

// Rooms used for messages that do not belong to a user-visible room.
const (
	PrivateRoom = "private"
	GlobalRoom  = "global"
)

// Message represents an immutable chat event. It is also the wire format:
// one JSON object per line on the client connection.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	Room      string    `json:"room"`
	Timestamp time.Time `json:"timestamp"`
	Kind      Kind      `json:"msg_type"`
	Recipient string    `json:"recipient,omitempty"`
}

// NewMessage builds a message of an arbitrary kind.
func NewMessage(kind Kind, username, content, room string) Message {
	return Message{
		ID:        uuid.New(),
		Username:  username,
		Content:   content,
		Room:      room,
		Timestamp: time.Now().UTC(),
		Kind:      kind,
	}
}

// NewChat builds a room-visible chat message authored by a user.
func NewChat(username, content, room string) Message {
	return NewMessage(KindChat, username, content, room)
}

// NewSystem builds a room-scoped informational message.
func NewSystem(content, room string) Message {
	return NewMessage(KindSystem, SystemAuthor, content, room)
}

// NewEvent builds a membership event (UserJoin, UserLeave, RoomChange)
// announced by the system for a given room.
func NewEvent(kind Kind, content, room string) Message {
	return NewMessage(kind, SystemAuthor, content, room)
}

// NewPrivate builds a message addressed to a single recipient.
// Private messages never travel on the broadcast bus.
func NewPrivate(username, recipient, content string) Message {
	m := NewMessage(KindPrivateMessage, username, content, PrivateRoom)
	m.Recipient = recipient
	return m
}

// NewError builds a private error notification for one client.
func NewError(content string) Message {
	return NewMessage(KindError, ErrorAuthor, content, GlobalRoom)
}

// Encode serializes the message to its single-line wire form.
func (m Message) Encode() ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding message %s: %w", m.ID, err)
	}
	return b, nil
}
