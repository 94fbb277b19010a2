package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "time/tzdata"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"

	"yuri/internal/app"
	"yuri/internal/config"
	"yuri/internal/delivery"
	"yuri/internal/discord"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		log.Printf("bot: %v", err)
		os.Exit(1)
	}
}

// run returns instead of exiting so deferred cleanup (store pool, log file,
// gateway session) always runs.
func run(ctx context.Context) error {
	a, err := app.New(ctx, "bot")
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer a.Close()
	cfg, logger := a.Config, a.Logger

	if cfg.DiscordToken == "" {
		return errors.New("DISCORD_TOKEN environment variable not set")
	}
	if cfg.OwnerID == "" {
		logger.Warn("OWNER_ID not set - owner commands are disabled")
	}

	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("create Discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	gateway := discord.NewGateway(
		session,
		a.Replies,
		a.Admin,
		delivery.NewChunker(config.DeliveryChunkLimit, logger),
		cfg.OwnerID,
		logger,
	)
	gateway.Register(ctx, session)

	if err := session.Open(); err != nil {
		return fmt.Errorf("open Discord gateway: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Error("discord session close failed", "error", err)
		}
	}()

	a.StartRetention(ctx)

	logger.Info("bot running")
	<-ctx.Done()
	logger.Info("bot stopping")
	return nil
}
