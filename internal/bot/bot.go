// Package bot routes inbound chat events to commands and the task engine.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"serenote/internal/chat"
	"serenote/internal/command"
	"serenote/internal/engine"
	"serenote/internal/panel"
)

const (
	CommandTask  = "task"
	CommandTasks = "tasks"
	CommandHelp  = "help"

	// CreateFailedText answers a task command whose panel could not be posted or stored.
	CreateFailedText = "Error: the task could not be created, your message was kept so you can try again."
)

type Bot struct {
	Engine engine.Engine
	Log    logrus.FieldLogger
}

func New(e engine.Engine, log logrus.FieldLogger) *Bot {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Bot{Engine: e, Log: log}
}

func (b *Bot) prefix() string {
	if b.Engine.Config != nil && b.Engine.Config.Bot.Prefix != "" {
		return b.Engine.Config.Bot.Prefix
	}
	return "+"
}

// Run handles events one at a time until ctx is done or events is closed.
func (b *Bot) Run(ctx context.Context, events <-chan chat.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := b.Handle(ctx, ev); err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
		}
	}
}

// Handle processes a single event. Failures are logged and returned.
func (b *Bot) Handle(ctx context.Context, ev chat.Event) error {
	log := b.Log.WithFields(logrus.Fields{
		"event_id":   uuid.NewString(),
		"kind":       ev.Kind.String(),
		"message_id": ev.MessageID,
	})
	eng := b.Engine
	eng.Log = log
	var err error
	switch ev.Kind {
	case chat.EventCreate:
		err = b.onMessage(ctx, eng, log, ev)
	case chat.EventReactionAdd, chat.EventReactionRemove:
		err = b.onReaction(ctx, eng, log, ev.Reaction)
	case chat.EventMessageDelete:
		var removed bool
		removed, err = eng.HandleMessageDelete(ctx, ev.MessageID)
		if removed {
			log.Info("task removed with its message")
		}
	default:
		log.Debug("ignoring unknown event")
	}
	if err != nil {
		log.WithError(err).Error("event handling failed")
	}
	return err
}

func (b *Bot) onMessage(ctx context.Context, eng engine.Engine, log *logrus.Entry, ev chat.Event) error {
	if ev.AuthorBot {
		return nil
	}
	msg := ev.Message
	name, args, ok := command.Split(b.prefix(), msg.Content)
	if !ok {
		return nil
	}
	log = log.WithFields(logrus.Fields{"command": name, "user_id": msg.AuthorID})
	switch name {
	case CommandTask:
		task, err := eng.CreateTask(ctx, engine.TaskCreateOptions{
			ChannelID:        msg.ChannelID,
			GuildID:          msg.GuildID,
			AuthorID:         msg.AuthorID,
			CommandMessageID: msg.ID,
			Input:            args,
		})
		if errors.Is(err, command.ErrMissingArgument) || errors.Is(err, command.ErrTitleTooLong) {
			_, sendErr := eng.Messenger.SendText(ctx, msg.ChannelID, b.usage(err))
			return sendErr
		}
		if err != nil {
			if _, sendErr := eng.Messenger.SendText(ctx, msg.ChannelID, CreateFailedText); sendErr != nil {
				log.WithError(sendErr).Warn("could not report failed task creation")
			}
			return err
		}
		log.WithField("task_id", task.MessageID).Info("task created")
		return nil
	case CommandTasks:
		tasks, err := eng.ListTasks(ctx, msg.AuthorID)
		if err != nil {
			return err
		}
		userName := msg.AuthorName
		if userName == "" {
			userName = command.UserMention(msg.AuthorID)
		}
		_, err = eng.Messenger.SendPanel(ctx, msg.ChannelID, panel.ForTaskList(userName, tasks, eng.Style()))
		return err
	case CommandHelp:
		cfg := eng.Config
		_, err := eng.Messenger.SendPanel(ctx, msg.ChannelID, panel.Help(b.prefix(), cfg.Emoji.Complete, cfg.Emoji.Delete, eng.Style()))
		return err
	default:
		return nil
	}
}

func (b *Bot) usage(err error) string {
	usage := strings.Replace(command.TaskUsage, "+", b.prefix(), 1)
	return fmt.Sprintf("Error: %v.\nUsage:\n```\n%s\n```", err, usage)
}

func (b *Bot) onReaction(ctx context.Context, eng engine.Engine, log *logrus.Entry, r chat.Reaction) error {
	tr, err := eng.HandleReaction(ctx, r)
	if err != nil {
		return err
	}
	if tr != engine.TransitionNone {
		log.WithFields(logrus.Fields{"user_id": r.UserID, "transition": string(tr)}).Info("task updated")
	}
	return nil
}
