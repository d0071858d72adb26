package engine

import (
	"context"
	"errors"
	"fmt"

	"serenote/internal/chat"
	"serenote/internal/domain"
	"serenote/internal/engine/auth"
	"serenote/internal/events"
	"serenote/internal/panel"
	"serenote/internal/repo"
)

// Transition is the outcome of a reaction.
type Transition string

const (
	TransitionNone      Transition = ""
	TransitionCompleted Transition = "completed"
	TransitionReopened  Transition = "reopened"
	TransitionDeleted   Transition = "deleted"
	// TransitionPruned means the backing message was gone and the record was dropped.
	TransitionPruned Transition = "pruned"
)

// HandleReaction applies a reaction add or remove to the task backed by the
// reacted message. Unknown emoji, unknown messages and repeated transitions are
// no-ops.
func (e Engine) HandleReaction(ctx context.Context, r chat.Reaction) (Transition, error) {
	if e.SelfID != "" && r.UserID == e.SelfID {
		return TransitionNone, nil
	}
	isComplete := chat.SameEmoji(r.Emoji, e.Config.Emoji.Complete)
	isDelete := chat.SameEmoji(r.Emoji, e.Config.Emoji.Delete)
	if !isComplete && !(isDelete && r.Added) {
		return TransitionNone, nil
	}
	t, err := e.Store.GetTask(ctx, r.MessageID)
	if errors.Is(err, repo.ErrNotFound) {
		return TransitionNone, nil
	}
	if err != nil {
		return TransitionNone, fmt.Errorf("load task %s: %w", r.MessageID, err)
	}

	if isDelete {
		if err := auth.AuthorizeDelete(t, r.UserID, r.RoleIDs); err != nil {
			e.log().WithField("message_id", t.MessageID).WithField("user_id", r.UserID).Debug(err.Error())
			return TransitionNone, nil
		}
		return e.deleteTask(ctx, t, r.UserID)
	}

	switch {
	case r.Added && !t.Completed():
		return e.setStatus(ctx, t, domain.StatusCompleted, r.UserID)
	case !r.Added && t.Completed():
		return e.setStatus(ctx, t, domain.StatusOpen, r.UserID)
	default:
		return TransitionNone, nil
	}
}

func (e Engine) setStatus(ctx context.Context, t domain.Task, status domain.Status, actorID string) (Transition, error) {
	now := e.timestamp()
	var completedAt *string
	if status == domain.StatusCompleted {
		completedAt = &now
	}
	err := e.Store.SetTaskStatus(ctx, t.MessageID, status, now, completedAt)
	if errors.Is(err, repo.ErrNotFound) {
		return TransitionNone, nil
	}
	if err != nil {
		return TransitionNone, fmt.Errorf("update task %s: %w", t.MessageID, err)
	}
	t.Status = status
	t.UpdatedAt = now
	t.CompletedAt = completedAt

	err = e.Messenger.EditPanel(ctx, t.ChannelID, t.MessageID, panel.ForTask(t, e.Style()))
	if errors.Is(err, chat.ErrNotFound) {
		e.prune(ctx, t, "message_missing")
		return TransitionPruned, nil
	}
	if err != nil {
		return TransitionNone, fmt.Errorf("render task %s: %w", t.MessageID, err)
	}

	transition, evtType := TransitionReopened, domain.EventTaskReopened
	if status == domain.StatusCompleted {
		transition, evtType = TransitionCompleted, domain.EventTaskCompleted
	}
	e.appendEvent(ctx, evtType, t.MessageID, actorID, events.EventPayload{"title": t.Title})
	return transition, nil
}

func (e Engine) deleteTask(ctx context.Context, t domain.Task, actorID string) (Transition, error) {
	if err := e.Messenger.DeleteMessage(ctx, t.ChannelID, t.MessageID); err != nil && !errors.Is(err, chat.ErrNotFound) {
		return TransitionNone, fmt.Errorf("delete task message %s: %w", t.MessageID, err)
	}
	err := e.Store.DeleteTask(ctx, t.MessageID)
	if errors.Is(err, repo.ErrNotFound) {
		return TransitionNone, nil
	}
	if err != nil {
		return TransitionNone, fmt.Errorf("delete task %s: %w", t.MessageID, err)
	}
	e.appendEvent(ctx, domain.EventTaskDeleted, t.MessageID, actorID, events.EventPayload{"reason": "reaction", "title": t.Title})
	return TransitionDeleted, nil
}
