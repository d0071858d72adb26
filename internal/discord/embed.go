package discord

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"serenote/internal/panel"
)

// ToEmbed lays a panel out as a Discord embed: type in the author line, meta in the footer.
func ToEmbed(p panel.Panel) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       p.Title,
		Description: p.Description,
		Color:       p.Color,
	}
	if p.Type != "" {
		embed.Author = &discordgo.MessageEmbedAuthor{Name: p.Type, IconURL: p.TypeIconURL}
	}
	for _, f := range p.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if footer := p.Footer(); footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: footer}
	}
	return embed
}

// FromEmbed reverses ToEmbed.
func FromEmbed(e *discordgo.MessageEmbed) panel.Panel {
	p := panel.Panel{Title: e.Title, Description: e.Description, Color: e.Color}
	if e.Author != nil {
		p.Type = e.Author.Name
		p.TypeIconURL = e.Author.IconURL
	}
	for _, f := range e.Fields {
		if f == nil {
			continue
		}
		p.AddField(f.Name, f.Value, f.Inline)
	}
	if e.Footer != nil {
		for _, line := range strings.Split(e.Footer.Text, "\n") {
			key, value, ok := strings.Cut(line, ": ")
			if !ok {
				continue
			}
			p.SetMeta(key, value)
		}
	}
	return p
}
