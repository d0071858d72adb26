package server

import (
	"encoding/json"

	"serenote/internal/domain"
)

type TaskResponse struct {
	MessageID       string   `json:"message_id"`
	ChannelID       string   `json:"channel_id"`
	GuildID         string   `json:"guild_id,omitempty"`
	AuthorID        string   `json:"author_id"`
	Title           string   `json:"title"`
	Details         string   `json:"details,omitempty"`
	AssigneeIDs     []string `json:"assignee_ids"`
	AssigneeRoleIDs []string `json:"assignee_role_ids"`
	Status          string   `json:"status" enum:"open,completed"`
	URL             string   `json:"url" format:"uri"`
	CreatedAt       string   `json:"created_at" format:"date-time"`
	UpdatedAt       string   `json:"updated_at" format:"date-time"`
	CompletedAt     string   `json:"completed_at,omitempty" format:"date-time"`
}

type EventResponse struct {
	ID        int64          `json:"id"`
	TS        string         `json:"ts" format:"date-time"`
	Type      string         `json:"type"`
	MessageID string         `json:"message_id,omitempty"`
	ActorID   string         `json:"actor_id,omitempty"`
	Payload   map[string]any `json:"payload"`
}

type WhoAmIResponse struct {
	UserID      string   `json:"user_id"`
	Permissions []string `json:"permissions"`
}

type DevLoginRequest struct {
	UserID      string   `json:"user_id"`
	Permissions []string `json:"permissions,omitempty"`
}

type DevLoginResponse struct {
	Token string `json:"token"`
}

type paginatedTasks struct {
	Items []TaskResponse `json:"items"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func taskResponse(t domain.Task) TaskResponse {
	resp := TaskResponse{
		MessageID:       t.MessageID,
		ChannelID:       t.ChannelID,
		GuildID:         t.GuildID,
		AuthorID:        t.AuthorID,
		Title:           t.Title,
		Details:         t.Details,
		AssigneeIDs:     nonNilSlice(t.AssigneeIDs),
		AssigneeRoleIDs: nonNilSlice(t.AssigneeRoleIDs),
		Status:          string(t.Status),
		URL:             t.JumpURL(),
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
	if t.CompletedAt != nil {
		resp.CompletedAt = *t.CompletedAt
	}
	return resp
}

func mapTasks(items []domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(items))
	for _, t := range items {
		out = append(out, taskResponse(t))
	}
	return out
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:        e.ID,
		TS:        e.TS,
		Type:      e.Type,
		MessageID: e.MessageID,
		ActorID:   e.ActorID,
		Payload:   decodeJSONMap(e.Payload),
	}
}

func decodeJSONMap(raw string) map[string]any {
	out := map[string]any{}
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return map[string]any{"raw": raw}
	}
	return out
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
