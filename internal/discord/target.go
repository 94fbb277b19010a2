// Package discord connects the reply service to a Discord gateway session.
package discord

import (
	"context"
	"fmt"
	"io"

	"github.com/bwmarrin/discordgo"
)

// embedColor is the pink used on media embeds.
const embedColor = 0xFF69B4

// Session is the part of *discordgo.Session the bot uses.
type Session interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelTyping(channelID string, options ...discordgo.RequestOption) error
	GuildMemberNickname(guildID, userID, nickname string, options ...discordgo.RequestOption) error
}

// Target delivers into the channel of one triggering message.
// It implements delivery.Target.
type Target struct {
	session Session
	message *discordgo.Message
}

func NewTarget(session Session, message *discordgo.Message) *Target {
	return &Target{session: session, message: message}
}

// Reply answers the triggering message and pings its author only.
func (t *Target) Reply(ctx context.Context, text string) error {
	_, err := t.session.ChannelMessageSendComplex(t.message.ChannelID, &discordgo.MessageSend{
		Content:   text,
		Reference: t.message.Reference(),
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse:       []discordgo.AllowedMentionType{},
			RepliedUser: true,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("reply to %s: %w", t.message.ID, err)
	}
	return nil
}

// Send posts text to the channel without pinging anyone.
func (t *Target) Send(ctx context.Context, text string) error {
	_, err := t.session.ChannelMessageSendComplex(t.message.ChannelID, &discordgo.MessageSend{
		Content:         text,
		AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send to %s: %w", t.message.ChannelID, err)
	}
	return nil
}

// SendMedia posts url as an image embed.
func (t *Target) SendMedia(ctx context.Context, url string) error {
	_, err := t.session.ChannelMessageSendComplex(t.message.ChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Color: embedColor,
			Image: &discordgo.MessageEmbedImage{URL: url},
		}},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send media to %s: %w", t.message.ChannelID, err)
	}
	return nil
}

// SendFile uploads r as a text attachment.
func (t *Target) SendFile(ctx context.Context, name string, r io.Reader) error {
	_, err := t.session.ChannelMessageSendComplex(t.message.ChannelID, &discordgo.MessageSend{
		Files: []*discordgo.File{{Name: name, ContentType: "text/plain", Reader: r}},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send file to %s: %w", t.message.ChannelID, err)
	}
	return nil
}
