package discord

import (
	"github.com/bwmarrin/discordgo"

	"serenote/internal/chat"
)

// ConvertMessage maps a Discord message to the platform-neutral form.
func ConvertMessage(m *discordgo.Message) chat.Message {
	msg := chat.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Content:   m.Content,
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorName = m.Author.Username
		if m.Author.GlobalName != "" {
			msg.AuthorName = m.Author.GlobalName
		}
	}
	if m.Member != nil && m.Member.Nick != "" {
		msg.AuthorName = m.Member.Nick
	}
	if len(m.Embeds) > 0 && m.Embeds[0] != nil {
		p := FromEmbed(m.Embeds[0])
		msg.Panel = &p
	}
	return msg
}

func DecodeMessageCreate(m *discordgo.MessageCreate) chat.Event {
	fromBot := m.Author != nil && m.Author.Bot
	return chat.CreateEvent(ConvertMessage(m.Message), fromBot)
}

func DecodeReactionAdd(r *discordgo.MessageReactionAdd) chat.Event {
	reaction := convertReaction(r.MessageReaction, true)
	if r.Member != nil {
		reaction.RoleIDs = append([]string(nil), r.Member.Roles...)
	}
	return chat.ReactionEvent(reaction)
}

func DecodeReactionRemove(r *discordgo.MessageReactionRemove) chat.Event {
	return chat.ReactionEvent(convertReaction(r.MessageReaction, false))
}

func DecodeMessageDelete(m *discordgo.MessageDelete) chat.Event {
	return chat.DeleteEvent(m.ChannelID, m.ID)
}

func convertReaction(r *discordgo.MessageReaction, added bool) chat.Reaction {
	return chat.Reaction{
		MessageID: r.MessageID,
		ChannelID: r.ChannelID,
		GuildID:   r.GuildID,
		UserID:    r.UserID,
		Emoji:     emojiName(r.Emoji),
		Added:     added,
	}
}

// emojiName is the unicode emoji itself, or name:id for custom guild emoji.
func emojiName(e discordgo.Emoji) string {
	if e.ID != "" {
		return e.APIName()
	}
	return e.Name
}
