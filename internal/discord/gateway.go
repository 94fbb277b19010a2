package discord

import (
	"context"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"yuri/internal/delivery"
	"yuri/internal/domain/models"
	"yuri/internal/domain/services"
)

var (
	imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true}
	audioExts = map[string]bool{".ogg": true, ".mp3": true, ".wav": true, ".m4a": true}
)

// Admin is the subset of admin operations exposed as owner commands.
type Admin interface {
	AddGrudge(ctx context.Context, userID string) error
	RemoveGrudge(ctx context.Context, userID string) error
	WipeUser(ctx context.Context, userID string) (int64, error)
	CountUsers(ctx context.Context) (int, error)
	Transcript(ctx context.Context, userID string, limit int) ([]models.Turn, error)
}

// Gateway turns incoming messages into reply requests and delivers the results.
type Gateway struct {
	session   Session
	responder services.Responder
	admin     Admin
	chunker   *delivery.Chunker
	ownerID   string
	logger    *slog.Logger

	mu    sync.RWMutex
	botID string
}

func NewGateway(
	session Session,
	responder services.Responder,
	admin Admin,
	chunker *delivery.Chunker,
	ownerID string,
	logger *slog.Logger,
) *Gateway {
	return &Gateway{
		session:   session,
		responder: responder,
		admin:     admin,
		chunker:   chunker,
		ownerID:   ownerID,
		logger:    logger,
	}
}

// SetBotUser records the bot's own user ID once the gateway is ready.
func (g *Gateway) SetBotUser(id string) {
	g.mu.Lock()
	g.botID = id
	g.mu.Unlock()
}

func (g *Gateway) botUser() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.botID
}

// Register attaches the gateway's handlers to a live session.
// Handlers run on discordgo's goroutines under ctx.
func (g *Gateway) Register(ctx context.Context, s *discordgo.Session) {
	s.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		g.SetBotUser(r.User.ID)
		g.logger.Info("discord gateway ready", "bot_user", r.User.Username, "guilds", len(r.Guilds))
	})
	s.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		g.HandleMessage(ctx, m.Message)
	})
}

// HandleMessage processes one message. Bot authors are ignored; "!" commands
// run without a mention; everything else needs a mention, a reply to the bot
// or a direct message.
func (g *Gateway) HandleMessage(ctx context.Context, m *discordgo.Message) {
	if m == nil || m.Author == nil || m.Author.Bot {
		return
	}
	botID := g.botUser()
	if botID == "" || m.Author.ID == botID {
		return
	}

	if name, args, ok := parseCommand(m.Content); ok {
		g.runCommand(ctx, m, name, args)
		return
	}

	if !g.addressed(m, botID) {
		return
	}

	req := &services.ReplyRequest{
		UserID: m.Author.ID,
		Text:   stripMention(m.Content, botID),
	}
	for _, a := range m.Attachments {
		ext := strings.ToLower(path.Ext(a.Filename))
		switch {
		case imageExts[ext] && req.ImageURL == "":
			req.ImageURL = a.URL
		case audioExts[ext] && req.AudioURL == "":
			req.AudioURL = a.URL
			req.AudioFilename = a.Filename
		}
	}
	if req.Text == "" && req.ImageURL == "" && req.AudioURL == "" {
		return
	}

	g.respond(ctx, m, req, func(r *models.GenerationResult) string { return r.DisplayText })
}

// addressed reports whether m mentions the bot, replies to it, or is a DM.
func (g *Gateway) addressed(m *discordgo.Message, botID string) bool {
	if m.GuildID == "" {
		return true
	}
	for _, u := range m.Mentions {
		if u != nil && u.ID == botID {
			return true
		}
	}
	ref := m.ReferencedMessage
	return ref != nil && ref.Author != nil && ref.Author.ID == botID
}

// respond runs one reply and delivers the formatted text, then the media embed.
func (g *Gateway) respond(ctx context.Context, m *discordgo.Message, req *services.ReplyRequest, format func(*models.GenerationResult) string) {
	result, ok := g.generate(ctx, m, req)
	if !ok {
		return
	}

	target := NewTarget(g.session, m)
	delivered := g.chunker.Deliver(ctx, target, format(result))

	if result.MediaReference != "" {
		if err := target.SendMedia(ctx, result.MediaReference); err != nil {
			g.logger.Warn("media delivery failed", "user_id", req.UserID, "error", err)
		}
	}

	g.logger.Debug("reply delivered",
		"user_id", req.UserID,
		"channel_id", m.ChannelID,
		"segments", delivered,
		"has_media", result.HasMedia(),
	)
}

// generate shows the typing indicator and runs the reply pipeline.
func (g *Gateway) generate(ctx context.Context, m *discordgo.Message, req *services.ReplyRequest) (*models.GenerationResult, bool) {
	if err := g.session.ChannelTyping(m.ChannelID, discordgo.WithContext(ctx)); err != nil {
		g.logger.Debug("typing indicator failed", "channel_id", m.ChannelID, "error", err)
	}

	result, err := g.responder.Respond(ctx, req)
	if err != nil {
		g.logger.Warn("reply rejected", "user_id", req.UserID, "error", err)
		return nil, false
	}
	return result, true
}

// stripMention removes both mention forms of the bot from content.
func stripMention(content, botID string) string {
	content = strings.ReplaceAll(content, "<@"+botID+">", "")
	content = strings.ReplaceAll(content, "<@!"+botID+">", "")
	return strings.TrimSpace(content)
}
