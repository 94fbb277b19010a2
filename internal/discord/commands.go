package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"yuri/internal/config"
	"yuri/internal/domain/models"
	"yuri/internal/domain/services"
	"yuri/internal/service/admin"
)

const commandPrefix = "!"

// Override instructions for the party commands.
const (
	truthInstruction = "Give a funny, spicy teenage Truth question."
	dareInstruction  = "Give a funny, chaotic Dare for a discord user."
	askInstruction   = "Answer this yes/no question sassily:"
)

// parseCommand splits "!name args" into its parts.
func parseCommand(content string) (string, string, bool) {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, commandPrefix) {
		return "", "", false
	}
	name, args, _ := strings.Cut(strings.TrimPrefix(content, commandPrefix), " ")
	if name == "" {
		return "", "", false
	}
	return strings.ToLower(name), strings.TrimSpace(args), true
}

func (g *Gateway) runCommand(ctx context.Context, m *discordgo.Message, name, args string) {
	switch name {
	case "truth":
		g.override(ctx, m, &models.Override{Instruction: truthInstruction}, prefixed("**TRUTH:** "))
	case "dare":
		g.override(ctx, m, &models.Override{Instruction: dareInstruction}, prefixed("**DARE:** "))
	case "ask":
		if args == "" {
			g.notify(ctx, m, "Ask me something first. `!ask <question>`")
			return
		}
		g.override(ctx, m, &models.Override{Instruction: askInstruction, Input: args},
			func(r *models.GenerationResult) string {
				return fmt.Sprintf("**Q:** %s\n**A:** %s", args, r.DisplayText)
			})
	case "roast", "rate", "rename":
		g.social(ctx, m, name, args)
	case "grudge", "ungrudge", "wipe", "spy", "spysee":
		if g.ownerID == "" || m.Author.ID != g.ownerID {
			g.notify(ctx, m, "❌ Owner only.")
			return
		}
		g.adminCommand(ctx, m, name, args)
	default:
		g.logger.Debug("unknown command", "command", name, "user_id", m.Author.ID)
	}
}

func prefixed(prefix string) func(*models.GenerationResult) string {
	return func(r *models.GenerationResult) string { return prefix + r.DisplayText }
}

func (g *Gateway) override(ctx context.Context, m *discordgo.Message, o *models.Override, format func(*models.GenerationResult) string) {
	g.respond(ctx, m, &services.ReplyRequest{UserID: m.Author.ID, Override: o}, format)
}

func (g *Gateway) adminCommand(ctx context.Context, m *discordgo.Message, name, args string) {
	target := commandTarget(m, args, g.botUser())

	if name == "spy" {
		n, err := g.admin.CountUsers(ctx)
		if err != nil {
			g.fail(ctx, m, name, err)
			return
		}
		g.notify(ctx, m, fmt.Sprintf("🕵️ I have data on **%d** users.", n))
		return
	}

	if target == "" {
		g.notify(ctx, m, fmt.Sprintf("Who? `!%s @user`", name))
		return
	}

	switch name {
	case "grudge":
		if err := g.admin.AddGrudge(ctx, target); err != nil {
			g.fail(ctx, m, name, err)
			return
		}
		g.notify(ctx, m, fmt.Sprintf("💀 **Grudge added.** I now hate <@%s>.", target))
	case "ungrudge":
		if err := g.admin.RemoveGrudge(ctx, target); err != nil {
			g.fail(ctx, m, name, err)
			return
		}
		g.notify(ctx, m, "✨ **Forgiven.**")
	case "wipe":
		n, err := g.admin.WipeUser(ctx, target)
		if err != nil {
			g.fail(ctx, m, name, err)
			return
		}
		g.notify(ctx, m, fmt.Sprintf("✅ Wiped memory for <@%s> (%d turns).", target, n))
	case "spysee":
		turns, err := g.admin.Transcript(ctx, target, config.MaxHistoryLimit)
		if err != nil {
			g.fail(ctx, m, name, err)
			return
		}
		if len(turns) == 0 {
			g.notify(ctx, m, "No Data.")
			return
		}
		transcript := admin.FormatTranscript(turns)
		if err := NewTarget(g.session, m).SendFile(ctx, "log_"+target+".txt", strings.NewReader(transcript)); err != nil {
			g.logger.Warn("transcript upload failed", "user_id", target, "error", err)
		}
	}
}

// commandTarget picks the user an admin command acts on: the first non-bot
// mention, else a raw user ID argument.
func commandTarget(m *discordgo.Message, args, botID string) string {
	for _, u := range m.Mentions {
		if u != nil && u.ID != botID {
			return u.ID
		}
	}
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], "<@!>")
}

func (g *Gateway) notify(ctx context.Context, m *discordgo.Message, text string) {
	if err := NewTarget(g.session, m).Reply(ctx, text); err != nil {
		g.logger.Warn("command reply failed", "channel_id", m.ChannelID, "error", err)
	}
}

func (g *Gateway) fail(ctx context.Context, m *discordgo.Message, name string, err error) {
	g.logger.Error("admin command failed", "command", name, "error", err)
	g.notify(ctx, m, "Something broke. Check the logs.")
}
