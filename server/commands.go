package server

import (
	"chat-relay/domain"
	"chat-relay/moderation"
	"chat-relay/runtime"
	"fmt"
	"log/slog"
	"strings"
)

// Interpreter parses '/'-prefixed input and mutates routing state. Invalid
// usage never tears a session down; it is answered with an Error-kind
// message on the invoker's private queue.
type Interpreter struct {
	log       *slog.Logger
	registry  *runtime.Registry
	history   *runtime.HistoryStore
	bus       *runtime.Bus
	moderator *moderation.Moderator
}

func NewInterpreter(log *slog.Logger, registry *runtime.Registry,
	history *runtime.HistoryStore, bus *runtime.Bus, moderator *moderation.Moderator) *Interpreter {
	return &Interpreter{
		log:       log,
		registry:  registry,
		history:   history,
		bus:       bus,
		moderator: moderator,
	}
}

// Execute dispatches a trimmed line already known to start with '/'.
// The first whitespace-delimited token selects the command.
func (i *Interpreter) Execute(sess *runtime.Session, input string) {
	parts := strings.Fields(input)

	switch parts[0] {
	case "/join":
		i.join(sess, parts)
	case "/msg", "/w":
		i.private(sess, parts)
	case "/users":
		i.users(sess)
	case "/kick":
		i.kick(sess, parts)
	default:
		i.enqueue(sess, domain.NewError("Unknown command"))
	}
}

// PostChat handles plain (non-command) input: the content is censored,
// appended to the current room's history, and published on the bus.
func (i *Interpreter) PostChat(sess *runtime.Session, text string) {
	room, err := i.registry.RoomOf(sess.Username)
	if err != nil {
		return
	}

	content := text
	if i.moderator != nil {
		content, _ = i.moderator.Censor(text)
	}

	msg := domain.NewChat(sess.Username, content, room)
	i.history.Append(room, msg)
	i.bus.Publish(msg)
}

// join moves the invoker to another room: UserLeave broadcast for the old
// room, atomic room update, history replay of the new room onto the
// private queue, then a RoomChange broadcast recorded in the new room's
// history. The RoomChange carries the new room, which is how the invoker's
// own session tells "my room changed" from an ambient join about someone
// else.
func (i *Interpreter) join(sess *runtime.Session, parts []string) {
	if len(parts) < 2 {
		i.enqueue(sess, domain.NewError("Usage: /join <room>"))
		return
	}
	newRoom := parts[1]

	oldRoom, err := i.registry.RoomOf(sess.Username)
	if err != nil {
		return
	}

	i.bus.Publish(domain.NewEvent(domain.KindUserLeave,
		fmt.Sprintf("%s left", sess.Username), oldRoom))

	if err := i.registry.SetRoom(sess.Username, newRoom); err != nil {
		return
	}

	for _, m := range i.history.Snapshot(newRoom) {
		i.enqueue(sess, m)
	}

	change := domain.NewEvent(domain.KindRoomChange,
		fmt.Sprintf("%s joined room '%s'", sess.Username, newRoom), newRoom)
	i.bus.Publish(change)
	i.history.Append(newRoom, change)
}

// private delivers a PrivateMessage to the target's queue and echoes it to
// the sender. Private messages never touch the bus or any room's history.
func (i *Interpreter) private(sess *runtime.Session, parts []string) {
	if len(parts) < 3 {
		i.enqueue(sess, domain.NewError("Usage: /msg <user> <text>"))
		return
	}
	target := parts[1]
	content := strings.Join(parts[2:], " ")

	targetSess, ok := i.registry.Lookup(target)
	if !ok {
		i.enqueue(sess, domain.NewError("User not found"))
		return
	}

	pm := domain.NewPrivate(sess.Username, target, content)
	i.enqueue(targetSess, pm)
	i.enqueue(sess, pm)
}

func (i *Interpreter) users(sess *runtime.Session) {
	room, err := i.registry.RoomOf(sess.Username)
	if err != nil {
		return
	}
	users := i.registry.UsersIn(room)
	i.enqueue(sess, domain.NewSystem(
		fmt.Sprintf("Users in %s: %s", room, strings.Join(users, ", ")), room))
}

// kick removes the target's registry entry and closes its queue, which the
// target's write loop observes promptly. The announcement is a System
// broadcast scoped to the invoker's room.
func (i *Interpreter) kick(sess *runtime.Session, parts []string) {
	if sess.Role != domain.RoleAdmin {
		i.enqueue(sess, domain.NewError("Permission denied"))
		return
	}
	if len(parts) < 2 {
		i.enqueue(sess, domain.NewError("Usage: /kick <user>"))
		return
	}
	target := parts[1]

	targetSess, _ := i.registry.Unregister(target)
	if targetSess == nil {
		i.enqueue(sess, domain.NewError("User not found"))
		return
	}

	i.enqueue(targetSess, domain.NewError("You have been kicked."))
	targetSess.Queue.Close()

	room, err := i.registry.RoomOf(sess.Username)
	if err != nil {
		return
	}
	i.bus.Publish(domain.NewSystem(
		fmt.Sprintf("%s kicked %s", sess.Username, target), room))

	i.log.Info("Session kicked", "by", sess.Username, "target", target)
}

// enqueue pushes onto a session's private queue. An overflow already
// closed the queue; the session is on its way out, nothing more to do
// here than note it.
func (i *Interpreter) enqueue(sess *runtime.Session, m domain.Message) {
	if err := sess.Queue.Push(m); err != nil {
		i.log.Debug("Private queue rejected message",
			"username", sess.Username, "error", err)
	}
}
