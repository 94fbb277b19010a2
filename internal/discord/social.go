package discord

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"yuri/internal/config"
	"yuri/internal/domain/models"
	"yuri/internal/domain/services"
)

const (
	roastInstruction  = "Roast the user described below based on their chat history. Call them out on things they said. Be brutal."
	rateInstruction   = "Rate the vibe (0-100%) of the user described below. If they are funny/nice in chats, give a high score. If dry/rude, destroy them."
	renameInstruction = "Reply with ONLY a funny/mean nickname for the user named below. Max 2 words."

	// dossierTurns is how many of the target's own messages a roast or rate sees.
	dossierTurns = 15
	// dossierLineLimit skips long messages, which are rarely worth quoting.
	dossierLineLimit = 200
	// nicknameLimit is Discord's nickname length cap.
	nicknameLimit = 32
)

// social runs the commands aimed at another user: roast, rate and rename.
func (g *Gateway) social(ctx context.Context, m *discordgo.Message, name, args string) {
	target := commandTarget(m, args, g.botUser())
	if target == "" {
		g.notify(ctx, m, fmt.Sprintf("Who? `!%s @user`", name))
		return
	}
	display := displayName(m, target)

	if name == "rename" {
		g.rename(ctx, m, target, display)
		return
	}

	dossier, err := g.dossier(ctx, target, display)
	if err != nil {
		g.fail(ctx, m, name, err)
		return
	}

	instruction := roastInstruction
	if name == "rate" {
		instruction = rateInstruction
	}
	g.override(ctx, m, &models.Override{Instruction: instruction, Input: dossier}, func(r *models.GenerationResult) string {
		return fmt.Sprintf("<@%s> %s", target, r.DisplayText)
	})
}

// dossier renders the target's name and recent messages, oldest first.
// It is override input, so the assembler sanitizes it like any user text.
func (g *Gateway) dossier(ctx context.Context, userID, display string) (string, error) {
	turns, err := g.admin.Transcript(ctx, userID, 3*dossierTurns)
	if err != nil {
		return "", err
	}

	var lines []string
	for i := range turns {
		if turns[i].Role != models.RoleUser {
			continue
		}
		text := strings.TrimSpace(turns[i].Text())
		if text == "" || utf8.RuneCountInString(text) >= dossierLineLimit {
			continue
		}
		lines = append(lines, "- "+strings.ReplaceAll(text, "\n", " "))
	}
	if len(lines) > dossierTurns {
		lines = lines[len(lines)-dossierTurns:]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\nRecent chats:\n", display)
	if len(lines) == 0 {
		b.WriteString("No recent chat history found.")
	} else {
		b.WriteString(strings.Join(lines, "\n"))
	}
	return truncateRunes(b.String(), config.MaxMessageLength), nil
}

func (g *Gateway) rename(ctx context.Context, m *discordgo.Message, target, display string) {
	if m.GuildID == "" {
		g.notify(ctx, m, "Nicknames only work in a server.")
		return
	}

	result, ok := g.generate(ctx, m, &services.ReplyRequest{
		UserID:   m.Author.ID,
		Override: &models.Override{Instruction: renameInstruction, Input: display},
	})
	if !ok {
		return
	}
	if result.Degraded {
		g.notify(ctx, m, result.DisplayText)
		return
	}

	nick := truncateRunes(strings.TrimSpace(strings.ReplaceAll(result.DisplayText, `"`, "")), nicknameLimit)
	if nick == "" {
		g.notify(ctx, m, "I got nothing. Try again.")
		return
	}

	if err := g.session.GuildMemberNickname(m.GuildID, target, nick, discordgo.WithContext(ctx)); err != nil {
		g.logger.Info("nickname change refused", "user_id", target, "error", err)
		g.notify(ctx, m, fmt.Sprintf("I chose **%s**, but Discord blocked me.", nick))
		return
	}
	g.notify(ctx, m, fmt.Sprintf("You are now **%s** ✨", nick))
}

// displayName returns the mentioned user's global name, falling back to the
// username, then the raw ID.
func displayName(m *discordgo.Message, userID string) string {
	for _, u := range m.Mentions {
		if u == nil || u.ID != userID {
			continue
		}
		if u.GlobalName != "" {
			return u.GlobalName
		}
		if u.Username != "" {
			return u.Username
		}
	}
	return userID
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
