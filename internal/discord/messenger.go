package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"serenote/internal/chat"
	"serenote/internal/panel"
)

// Messenger implements chat.Messenger over the Discord REST API. Calls go through a
// circuit breaker; unknown message and channel errors map to chat.ErrNotFound and do
// not count as failures.
type Messenger struct {
	session *discordgo.Session
	breaker *gobreaker.CircuitBreaker
}

func NewMessenger(s *discordgo.Session, log logrus.FieldLogger) *Messenger {
	return &Messenger{
		session: s,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "DiscordREST",
			MaxRequests: 1,
			Timeout:     5 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 3
			},
			IsSuccessful: func(err error) bool {
				return err == nil || IsNotFound(err)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("circuit breaker state changed")
			},
		}),
	}
}

// IsNotFound reports whether err is Discord's answer for a deleted message or channel.
func IsNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel:
			return true
		}
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}

func (m *Messenger) call(op string, fn func() (any, error)) (any, error) {
	res, err := m.breaker.Execute(fn)
	if err == nil {
		return res, nil
	}
	if IsNotFound(err) {
		return nil, chat.ErrNotFound
	}
	return nil, fmt.Errorf("discord %s: %w", op, err)
}

func (m *Messenger) SendText(ctx context.Context, channelID, content string) (chat.Message, error) {
	res, err := m.call("send message", func() (any, error) {
		return m.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	})
	if err != nil {
		return chat.Message{}, err
	}
	return ConvertMessage(res.(*discordgo.Message)), nil
}

func (m *Messenger) SendPanel(ctx context.Context, channelID string, p panel.Panel) (chat.Message, error) {
	res, err := m.call("send embed", func() (any, error) {
		return m.session.ChannelMessageSendEmbed(channelID, ToEmbed(p), discordgo.WithContext(ctx))
	})
	if err != nil {
		return chat.Message{}, err
	}
	return ConvertMessage(res.(*discordgo.Message)), nil
}

func (m *Messenger) EditPanel(ctx context.Context, channelID, messageID string, p panel.Panel) error {
	_, err := m.call("edit embed", func() (any, error) {
		return m.session.ChannelMessageEditEmbed(channelID, messageID, ToEmbed(p), discordgo.WithContext(ctx))
	})
	return err
}

func (m *Messenger) FetchMessage(ctx context.Context, channelID, messageID string) (chat.Message, error) {
	res, err := m.call("fetch message", func() (any, error) {
		return m.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	})
	if err != nil {
		return chat.Message{}, err
	}
	return ConvertMessage(res.(*discordgo.Message)), nil
}

func (m *Messenger) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	_, err := m.call("delete message", func() (any, error) {
		return nil, m.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
	})
	return err
}

func (m *Messenger) AddReaction(ctx context.Context, channelID, messageID, emoji string) error {
	_, err := m.call("add reaction", func() (any, error) {
		return nil, m.session.MessageReactionAdd(channelID, messageID, emoji, discordgo.WithContext(ctx))
	})
	return err
}
