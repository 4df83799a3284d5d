package handlers

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"

	"github.com/maxter9595/O2RusQuizBot/quizbot/logger"
	"github.com/maxter9595/O2RusQuizBot/quizbot/workflow"
)

// NewMessageListener adapts the router to the gateway: one MessageCreate in,
// a sequence of rest sends out. Discord has no reply keyboards, so menus are
// rendered as a bulleted line block under the message text. A non-empty
// guild list restricts the bot to those guilds; direct messages always pass.
func NewMessageListener(router *Router, guilds []snowflake.ID) bot.EventListener {
	return bot.NewListenerFunc(func(e *events.MessageCreate) {
		if e.Message.Author.Bot {
			return
		}
		if !guildAllowed(guilds, e.GuildID) {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		effects := router.HandleMessage(ctx,
			e.Message.Author.ID.String(),
			e.Message.Author.Username,
			e.Message.Content)

		for _, effect := range effects {
			if err := applyEffect(ctx, e.Client().Rest(), e.ChannelID, effect); err != nil {
				logger.LogError("Failed to send reply", err,
					slog.String("channel_id", e.ChannelID.String()))
				return
			}
		}
	})
}

func applyEffect(ctx context.Context, client rest.Rest, channelID snowflake.ID, effect workflow.Effect) error {
	content := effect.Text
	if len(effect.Menu) > 0 {
		content += "\n\n" + menuText(effect.Menu)
	}

	msg := discord.MessageCreate{Content: content}
	if effect.ImageURL != "" {
		msg.Embeds = []discord.Embed{{Image: &discord.EmbedResource{URL: effect.ImageURL}}}
	}
	if effect.File != nil {
		if msg.Content == "" {
			msg.Content = effect.File.Caption
		}
		msg.Files = []*discord.File{
			discord.NewFile(effect.File.Name, "", bytes.NewReader(effect.File.Data)),
		}
	}
	if msg.Content == "" && len(msg.Embeds) == 0 && len(msg.Files) == 0 {
		return nil
	}

	_, err := client.CreateMessage(channelID, msg, rest.WithCtx(ctx))
	return err
}

// guildAllowed applies the configured guild restriction. A nil guild id is
// a direct message and is never filtered.
func guildAllowed(guilds []snowflake.ID, guildID *snowflake.ID) bool {
	if len(guilds) == 0 || guildID == nil {
		return true
	}
	for _, id := range guilds {
		if id == *guildID {
			return true
		}
	}
	return false
}

func menuText(labels []string) string {
	lines := make([]string, 0, len(labels))
	for _, label := range labels {
		lines = append(lines, "• "+label)
	}
	return strings.Join(lines, "\n")
}
