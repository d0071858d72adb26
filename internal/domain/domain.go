package domain

import "fmt"

type Status string

const (
	StatusOpen      Status = "open"
	StatusCompleted Status = "completed"
)

// Task is keyed by the id of its backing chat message.
type Task struct {
	MessageID       string   `json:"message_id" bson:"_id"`
	ChannelID       string   `json:"channel_id" bson:"channel_id"`
	GuildID         string   `json:"guild_id,omitempty" bson:"guild_id,omitempty"`
	AuthorID        string   `json:"author_id" bson:"author_id"`
	Title           string   `json:"title" bson:"title"`
	Details         string   `json:"details,omitempty" bson:"details,omitempty"`
	AssigneeIDs     []string `json:"assignee_ids" bson:"assignee_ids"`
	AssigneeRoleIDs []string `json:"assignee_role_ids" bson:"assignee_role_ids"`
	Status          Status   `json:"status" bson:"status" enum:"open,completed"`
	CreatedAt       string   `json:"created_at" bson:"created_at" format:"date-time"`
	UpdatedAt       string   `json:"updated_at" bson:"updated_at" format:"date-time"`
	CompletedAt     *string  `json:"completed_at,omitempty" bson:"completed_at,omitempty" format:"date-time"`
}

// JumpURL links back to the backing message.
func (t Task) JumpURL() string {
	guild := t.GuildID
	if guild == "" {
		guild = "@me"
	}
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guild, t.ChannelID, t.MessageID)
}

func (t Task) Completed() bool {
	return t.Status == StatusCompleted
}

func (t Task) AssignedTo(userID string) bool {
	for _, id := range t.AssigneeIDs {
		if id == userID {
			return true
		}
	}
	return false
}

type TaskFilter struct {
	AssigneeID string
	Status     Status
	Limit      int
}

type Event struct {
	ID        int64  `json:"id" bson:"_id"`
	TS        string `json:"ts" bson:"ts" format:"date-time"`
	Type      string `json:"type" bson:"type"`
	MessageID string `json:"message_id,omitempty" bson:"message_id,omitempty"`
	ActorID   string `json:"actor_id,omitempty" bson:"actor_id,omitempty"`
	Payload   string `json:"payload_json" bson:"payload_json"`
}

type EventFilter struct {
	MessageID string
	Type      string
	Limit     int
	// Cursor returns events with ids below it when set.
	Cursor int64
}

const (
	EventTaskCreated   = "task.created"
	EventTaskCompleted = "task.completed"
	EventTaskReopened  = "task.reopened"
	EventTaskDeleted   = "task.deleted"
)
