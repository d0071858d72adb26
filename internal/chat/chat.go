// Package chat is the boundary between the bot and a chat platform: the outbound
// Messenger collaborator and the inbound Event variant.
package chat

import (
	"context"
	"errors"
	"strings"

	"serenote/internal/panel"
)

// ErrNotFound is returned by a Messenger when the message (or its channel) no longer exists.
var ErrNotFound = errors.New("message not found")

type Message struct {
	ID         string
	ChannelID  string
	GuildID    string
	AuthorID   string
	AuthorName string
	Content    string
	Panel      *panel.Panel
}

// Messenger sends and manages messages on the chat platform.
type Messenger interface {
	SendText(ctx context.Context, channelID, content string) (Message, error)
	SendPanel(ctx context.Context, channelID string, p panel.Panel) (Message, error)
	EditPanel(ctx context.Context, channelID, messageID string, p panel.Panel) error
	FetchMessage(ctx context.Context, channelID, messageID string) (Message, error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	AddReaction(ctx context.Context, channelID, messageID, emoji string) error
}

type EventKind int

const (
	EventCreate EventKind = iota + 1
	EventReactionAdd
	EventReactionRemove
	EventMessageDelete
)

func (k EventKind) String() string {
	switch k {
	case EventCreate:
		return "create"
	case EventReactionAdd:
		return "reaction_add"
	case EventReactionRemove:
		return "reaction_remove"
	case EventMessageDelete:
		return "message_delete"
	default:
		return "unknown"
	}
}

// Reaction is a reaction change on a message.
type Reaction struct {
	MessageID string
	ChannelID string
	GuildID   string
	UserID    string
	// RoleIDs of the reacting member, when the platform provides them.
	RoleIDs []string
	Emoji   string
	Added   bool
}

// Event is an inbound platform event. Message is set for EventCreate, Reaction for
// the reaction kinds, and MessageID/ChannelID for EventMessageDelete.
type Event struct {
	Kind      EventKind
	Message   Message
	AuthorBot bool
	Reaction  Reaction
	MessageID string
	ChannelID string
}

func CreateEvent(m Message, fromBot bool) Event {
	return Event{Kind: EventCreate, Message: m, AuthorBot: fromBot, MessageID: m.ID, ChannelID: m.ChannelID}
}

func ReactionEvent(r Reaction) Event {
	kind := EventReactionRemove
	if r.Added {
		kind = EventReactionAdd
	}
	return Event{Kind: kind, Reaction: r, MessageID: r.MessageID, ChannelID: r.ChannelID}
}

func DeleteEvent(channelID, messageID string) Event {
	return Event{Kind: EventMessageDelete, MessageID: messageID, ChannelID: channelID}
}

// NormalizeEmoji drops variation selectors so "🗑" and "🗑️" compare equal.
func NormalizeEmoji(e string) string {
	return strings.ReplaceAll(strings.TrimSpace(e), "\uFE0F", "")
}

func SameEmoji(a, b string) bool {
	return a != "" && NormalizeEmoji(a) == NormalizeEmoji(b)
}
