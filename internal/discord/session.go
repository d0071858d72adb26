// Package discord connects the bot to the Discord gateway and REST API.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"serenote/internal/chat"
)

const Intents = discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsDirectMessageReactions |
	discordgo.IntentsMessageContent

// Client owns a gateway session and funnels its events into one channel.
type Client struct {
	Session   *discordgo.Session
	Messenger *Messenger
	events    chan chat.Event
	log       logrus.FieldLogger
}

// Open connects to the gateway with a bot token.
func Open(ctx context.Context, token string, log logrus.FieldLogger) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("discord token is required")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	s.Identify.Intents = Intents
	// Handlers run in gateway order so the event channel preserves it.
	s.SyncEvents = true
	c := &Client{
		Session:   s,
		Messenger: NewMessenger(s, log),
		events:    make(chan chat.Event, 64),
		log:       log,
	}
	s.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		log.WithField("user_id", r.User.ID).Infof("connected as %s", r.User.Username)
	})
	s.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		c.push(ctx, DecodeMessageCreate(m))
	})
	s.AddHandler(func(_ *discordgo.Session, r *discordgo.MessageReactionAdd) {
		c.push(ctx, DecodeReactionAdd(r))
	})
	s.AddHandler(func(_ *discordgo.Session, r *discordgo.MessageReactionRemove) {
		c.push(ctx, DecodeReactionRemove(r))
	})
	s.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageDelete) {
		c.push(ctx, DecodeMessageDelete(m))
	})
	if err := s.Open(); err != nil {
		return nil, fmt.Errorf("discord gateway: %w", err)
	}
	return c, nil
}

func (c *Client) push(ctx context.Context, ev chat.Event) {
	select {
	case c.events <- ev:
	case <-ctx.Done():
	}
}

// Events yields decoded gateway events in arrival order.
func (c *Client) Events() <-chan chat.Event {
	return c.events
}

// SelfID is the bot user's id once the session is ready.
func (c *Client) SelfID() string {
	if c.Session.State != nil && c.Session.State.User != nil {
		return c.Session.State.User.ID
	}
	return ""
}

func (c *Client) Close() error {
	return c.Session.Close()
}
