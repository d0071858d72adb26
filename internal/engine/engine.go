package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"serenote/internal/chat"
	"serenote/internal/command"
	"serenote/internal/config"
	"serenote/internal/domain"
	"serenote/internal/events"
	"serenote/internal/panel"
	"serenote/internal/repo"
)

// Store persists tasks and their event journal.
type Store interface {
	InsertTask(ctx context.Context, t domain.Task) error
	GetTask(ctx context.Context, messageID string) (domain.Task, error)
	SetTaskStatus(ctx context.Context, messageID string, status domain.Status, updatedAt string, completedAt *string) error
	DeleteTask(ctx context.Context, messageID string) error
	ListTasks(ctx context.Context, f domain.TaskFilter) ([]domain.Task, error)
	AppendEvent(ctx context.Context, e domain.Event) (int64, error)
	ListEvents(ctx context.Context, f domain.EventFilter) ([]domain.Event, error)
	EventsAfter(ctx context.Context, cursor int64, limit int) ([]domain.Event, error)
	LatestEventID(ctx context.Context) (int64, error)
}

type Engine struct {
	Store     Store
	Messenger chat.Messenger
	Events    events.Writer
	Config    *config.Config
	// SelfID is the bot's own user id; its reactions are ignored.
	SelfID string
	Now    func() time.Time
	Log    logrus.FieldLogger
}

func New(store Store, messenger chat.Messenger, cfg *config.Config) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return Engine{
		Store:     store,
		Messenger: messenger,
		Events:    events.Writer{Sink: store},
		Config:    cfg,
		Now:       time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) log() logrus.FieldLogger {
	if e.Log != nil {
		return e.Log
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func (e Engine) Style() panel.Style {
	return e.Config.Style()
}

func (e Engine) appendEvent(ctx context.Context, evtType, messageID, actorID string, payload events.EventPayload) {
	w := e.Events
	if w.Sink == nil {
		w.Sink = e.Store
	}
	if w.Now == nil {
		w.Now = e.now
	}
	if _, err := w.Append(ctx, evtType, messageID, actorID, payload); err != nil {
		e.log().WithError(err).WithField("message_id", messageID).Warn("event journal append failed")
	}
}

// TaskCreateOptions are parameters for creating a task from a command.
type TaskCreateOptions struct {
	ChannelID string
	GuildID   string
	AuthorID  string
	// CommandMessageID is the invoking message, removed once the command parses.
	CommandMessageID string
	Input            string
}

// CreateTask parses the command input, posts the task panel and persists the task
// keyed by the panel's message id. Parse failures return command.ErrMissingArgument
// or command.ErrTitleTooLong before anything is sent. The command message is removed
// only after the task is stored.
func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	if opts.ChannelID == "" {
		return domain.Task{}, errors.New("channel is required")
	}
	if opts.AuthorID == "" {
		return domain.Task{}, errors.New("author is required")
	}
	args, err := command.ParseTask(opts.AuthorID, opts.Input)
	if err != nil {
		return domain.Task{}, err
	}
	now := e.timestamp()
	t := domain.Task{
		ChannelID:       opts.ChannelID,
		GuildID:         opts.GuildID,
		AuthorID:        opts.AuthorID,
		Title:           args.Title,
		Details:         args.Details,
		AssigneeIDs:     args.AssigneeIDs,
		AssigneeRoleIDs: args.AssigneeRoleIDs,
		Status:          domain.StatusOpen,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	msg, err := e.Messenger.SendPanel(ctx, opts.ChannelID, panel.ForTask(t, e.Style()))
	if err != nil {
		return domain.Task{}, fmt.Errorf("send task panel: %w", err)
	}
	t.MessageID = msg.ID
	if err := e.Store.InsertTask(ctx, t); err != nil {
		if delErr := e.Messenger.DeleteMessage(ctx, opts.ChannelID, msg.ID); delErr != nil && !errors.Is(delErr, chat.ErrNotFound) {
			e.log().WithError(delErr).WithField("message_id", msg.ID).Warn("could not remove orphaned task panel")
		}
		return domain.Task{}, fmt.Errorf("persist task: %w", err)
	}
	// The command message is removed only once its panel is stored.
	if opts.CommandMessageID != "" {
		if err := e.Messenger.DeleteMessage(ctx, opts.ChannelID, opts.CommandMessageID); err != nil && !errors.Is(err, chat.ErrNotFound) {
			e.log().WithError(err).WithField("message_id", opts.CommandMessageID).Warn("could not remove command message")
		}
	}
	for _, emoji := range []string{e.Config.Emoji.Complete, e.Config.Emoji.Delete} {
		if err := e.Messenger.AddReaction(ctx, opts.ChannelID, msg.ID, emoji); err != nil {
			e.log().WithError(err).WithField("message_id", msg.ID).Warn("could not seed reaction")
		}
	}
	e.appendEvent(ctx, domain.EventTaskCreated, t.MessageID, t.AuthorID, events.EventPayload{
		"title":             t.Title,
		"channel_id":        t.ChannelID,
		"assignee_ids":      t.AssigneeIDs,
		"assignee_role_ids": t.AssigneeRoleIDs,
	})
	return t, nil
}

func (e Engine) GetTask(ctx context.Context, messageID string) (domain.Task, error) {
	return e.Store.GetTask(ctx, messageID)
}

// ListTasks returns the tasks directly assigned to userID in creation order. Tasks
// whose backing message has disappeared are pruned and left out; tasks whose
// message cannot be checked are left out but kept.
func (e Engine) ListTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	tasks, err := e.Store.ListTasks(ctx, domain.TaskFilter{AssigneeID: userID})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	res := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		_, err := e.Messenger.FetchMessage(ctx, t.ChannelID, t.MessageID)
		if errors.Is(err, chat.ErrNotFound) {
			e.prune(ctx, t, "message_missing")
			continue
		}
		if err != nil {
			e.log().WithError(err).WithField("message_id", t.MessageID).Warn("could not check task message, leaving it out")
			continue
		}
		res = append(res, t)
	}
	return res, nil
}

// FindTasks queries stored tasks without consulting the chat platform.
func (e Engine) FindTasks(ctx context.Context, f domain.TaskFilter) ([]domain.Task, error) {
	return e.Store.ListTasks(ctx, f)
}

func (e Engine) ListEvents(ctx context.Context, f domain.EventFilter) ([]domain.Event, error) {
	return e.Store.ListEvents(ctx, f)
}

// HandleMessageDelete drops the task backed by messageID, if any.
func (e Engine) HandleMessageDelete(ctx context.Context, messageID string) (bool, error) {
	err := e.Store.DeleteTask(ctx, messageID)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete task %s: %w", messageID, err)
	}
	e.appendEvent(ctx, domain.EventTaskDeleted, messageID, "", events.EventPayload{"reason": "message_deleted"})
	return true, nil
}

// prune removes a record whose backing message no longer exists.
func (e Engine) prune(ctx context.Context, t domain.Task, reason string) {
	err := e.Store.DeleteTask(ctx, t.MessageID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		e.log().WithError(err).WithField("message_id", t.MessageID).Warn("could not prune stale task")
		return
	}
	if err == nil {
		e.appendEvent(ctx, domain.EventTaskDeleted, t.MessageID, "", events.EventPayload{"reason": reason, "title": t.Title})
	}
}
