package discord

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"testing"

	"github.com/bwmarrin/discordgo"

	"serenote/internal/chat"
	"serenote/internal/panel"
)

func TestDecodeMessageCreate(t *testing.T) {
	ev := DecodeMessageCreate(&discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "10",
		ChannelID: "20",
		GuildID:   "30",
		Content:   "+task hi",
		Author:    &discordgo.User{ID: "40", Username: "ada", Bot: true},
		Member:    &discordgo.Member{Nick: "Ada L."},
	}})
	if ev.Kind != chat.EventCreate || !ev.AuthorBot || ev.MessageID != "10" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.Message.AuthorID != "40" || ev.Message.AuthorName != "Ada L." || ev.Message.GuildID != "30" {
		t.Fatalf("unexpected message %+v", ev.Message)
	}
}

func TestDecodeReactions(t *testing.T) {
	add := DecodeReactionAdd(&discordgo.MessageReactionAdd{
		MessageReaction: &discordgo.MessageReaction{UserID: "1", MessageID: "2", ChannelID: "3", Emoji: discordgo.Emoji{Name: "✅"}},
		Member:          &discordgo.Member{Roles: []string{"7", "8"}},
	})
	if add.Kind != chat.EventReactionAdd || !add.Reaction.Added || add.Reaction.Emoji != "✅" {
		t.Fatalf("unexpected add %+v", add)
	}
	if !reflect.DeepEqual(add.Reaction.RoleIDs, []string{"7", "8"}) {
		t.Fatalf("roles %v", add.Reaction.RoleIDs)
	}
	remove := DecodeReactionRemove(&discordgo.MessageReactionRemove{
		MessageReaction: &discordgo.MessageReaction{UserID: "1", MessageID: "2", Emoji: discordgo.Emoji{ID: "99", Name: "done"}},
	})
	if remove.Kind != chat.EventReactionRemove || remove.Reaction.Added || remove.Reaction.Emoji != "done:99" {
		t.Fatalf("unexpected remove %+v", remove)
	}
	del := DecodeMessageDelete(&discordgo.MessageDelete{Message: &discordgo.Message{ID: "2", ChannelID: "3"}})
	if del.Kind != chat.EventMessageDelete || del.MessageID != "2" || del.ChannelID != "3" {
		t.Fatalf("unexpected delete %+v", del)
	}
}

func TestEmbedRoundTrip(t *testing.T) {
	p := panel.New("Task", "🔲 Ship", "details")
	p.TypeIconURL = "https://example.com/icon.png"
	p.AddField(panel.AssigneesFieldName, "<@1>", false)
	p.SetMeta("Status", "open")
	embed := ToEmbed(p)
	if embed.Author == nil || embed.Author.Name != "Task" || embed.Footer.Text != "Status: open" {
		t.Fatalf("unexpected embed %+v", embed)
	}
	if back := FromEmbed(embed); !reflect.DeepEqual(back, p) {
		t.Fatalf("round trip:\n got %+v\nwant %+v", back, p)
	}
}

func TestIsNotFound(t *testing.T) {
	unknown := &discordgo.RESTError{Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownMessage}}
	if !IsNotFound(fmt.Errorf("wrapped: %w", unknown)) {
		t.Fatalf("unknown message not detected")
	}
	status := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}
	if !IsNotFound(status) {
		t.Fatalf("404 not detected")
	}
	forbidden := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}}
	if IsNotFound(forbidden) || IsNotFound(errors.New("boom")) {
		t.Fatalf("false positive")
	}
}
