// Package domain contains core concepts of the chat system.
// This file defines Participant roles and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

// Role is the privilege level attached to a session at handshake time.
// Privilege is data on the session, not a comparison against a magic name.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// RoleFor resolves a username against the configured admin allow-list.
func RoleFor(username string, admins []string) Role {
	for _, name := range admins {
		if name == username {
			return RoleAdmin
		}
	}
	return RoleUser
}
