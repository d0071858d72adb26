package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"serenote/internal/bot"
	"serenote/internal/chat"
	"serenote/internal/config"
	"serenote/internal/engine"
	"serenote/internal/panel"
)

const consoleBotID = "serenote-console"

// console feeds stdin lines to the bot as chat events over an in-memory messenger
// and prints whatever the bot posts, edits or deletes.
type console struct {
	bot       *bot.Bot
	mem       *chat.Memory
	channelID string
	guildID   string
	user      string
	roles     []string
	seen      map[string]string
}

func newConsole(store engine.Store, cfg *config.Config, log logrus.FieldLogger, user string) *console {
	mem := chat.NewMemory(consoleBotID)
	e := engine.New(store, mem, cfg)
	e.SelfID = consoleBotID
	e.Log = log
	return &console{
		bot:       bot.New(e, log),
		mem:       mem,
		channelID: "console-" + uuid.NewString()[:8],
		guildID:   "console",
		user:      user,
		seen:      make(map[string]string),
	}
}

func (c *console) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "serenote console in #%s as %s (type %shelp, or exit)\n", c.channelID, c.user, c.bot.Engine.Config.Bot.Prefix)
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		if err := c.exec(ctx, line, out); err != nil {
			fmt.Fprintln(out, "error:", err)
		}
		c.flush(out)
	}
	return sc.Err()
}

func (c *console) exec(ctx context.Context, line string, out io.Writer) error {
	fields := strings.Fields(line)
	switch fields[0] {
	case "react", "unreact":
		if len(fields) != 3 {
			return fmt.Errorf("usage: %s <message-id> <emoji>", fields[0])
		}
		return c.bot.Handle(ctx, chat.ReactionEvent(chat.Reaction{
			MessageID: fields[1],
			ChannelID: c.channelID,
			GuildID:   c.guildID,
			UserID:    c.user,
			RoleIDs:   c.roles,
			Emoji:     fields[2],
			Added:     fields[0] == "react",
		}))
	case "delete":
		if len(fields) != 2 {
			return fmt.Errorf("usage: delete <message-id>")
		}
		if err := c.mem.DeleteMessage(ctx, c.channelID, fields[1]); err != nil {
			return err
		}
		return c.bot.Handle(ctx, chat.DeleteEvent(c.channelID, fields[1]))
	case "as":
		if len(fields) < 2 {
			return fmt.Errorf("usage: as <user-id> [role-id...]")
		}
		c.user = fields[1]
		c.roles = append([]string(nil), fields[2:]...)
		fmt.Fprintf(out, "now posting as %s\n", c.user)
		return nil
	}
	msg := c.mem.Post(chat.Message{
		ChannelID:  c.channelID,
		GuildID:    c.guildID,
		AuthorID:   c.user,
		AuthorName: c.user,
		Content:    strings.ReplaceAll(line, `\n`, "\n"),
	})
	return c.bot.Handle(ctx, chat.CreateEvent(msg, false))
}

// flush prints bot messages that appeared, changed or vanished since the last call.
func (c *console) flush(out io.Writer) {
	live := make(map[string]bool)
	for _, msg := range c.mem.Messages() {
		if msg.AuthorID != consoleBotID {
			continue
		}
		live[msg.ID] = true
		text := renderMessage(msg, c.mem.Reactions(msg.ID))
		prev, ok := c.seen[msg.ID]
		switch {
		case !ok:
			fmt.Fprintf(out, "+ [%s]\n%s\n", msg.ID, text)
		case prev != text:
			fmt.Fprintf(out, "~ [%s]\n%s\n", msg.ID, text)
		}
		c.seen[msg.ID] = text
	}
	var gone []string
	for id := range c.seen {
		if !live[id] {
			gone = append(gone, id)
		}
	}
	sort.Strings(gone)
	for _, id := range gone {
		fmt.Fprintf(out, "- [%s] deleted\n", id)
		delete(c.seen, id)
	}
}

func renderMessage(msg chat.Message, reactions []string) string {
	var b strings.Builder
	if msg.Content != "" {
		b.WriteString(indent(msg.Content))
	}
	if msg.Panel != nil {
		writePanel(&b, *msg.Panel)
	}
	if len(reactions) > 0 {
		fmt.Fprintf(&b, "  reactions: %s\n", strings.Join(reactions, " "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func writePanel(b *strings.Builder, p panel.Panel) {
	if p.Type != "" {
		fmt.Fprintf(b, "  %s\n", p.Type)
	}
	fmt.Fprintf(b, "  %s\n", p.Title)
	if p.Description != "" {
		b.WriteString(indent(p.Description))
	}
	for _, f := range p.Fields {
		fmt.Fprintf(b, "  %s:\n", f.Name)
		b.WriteString(indent(f.Value))
	}
	if footer := p.Footer(); footer != "" {
		b.WriteString(indent(footer))
	}
}

func indent(s string) string {
	var b strings.Builder
	for _, line := range strings.Split(s, "\n") {
		b.WriteString("    ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}
