package reply

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yuri/internal/catalog"
	"yuri/internal/config"
	"yuri/internal/domain/services"
	"yuri/internal/repository/memory"
)

func TestSetup_NoCredentialsDegrades(t *testing.T) {
	backends, err := catalog.Load("")
	require.NoError(t, err)

	cfg := &config.Config{
		CooldownShort:     time.Minute,
		CooldownLong:      24 * time.Hour,
		CooldownTransient: 10 * time.Second,
		GenerationTimeout: time.Second,
		MediaTimeout:      time.Second,
		SearchTimeout:     time.Second,
		StoreTimeout:      time.Second,
		HistoryLimit:      50,
		MaxImageBytes:     8 << 20,
	}
	store := memory.NewStore()

	svc := Setup(cfg, backends, "You are Yuri.", store, store, discardLogger())

	status := svc.Status()
	assert.Empty(t, status.Primary)
	assert.Zero(t, status.Secondary.Size)

	res, err := svc.Respond(context.Background(), &services.ReplyRequest{UserID: "u1", Text: "hi"})
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Equal(t, DegradedMessage, res.DisplayText)
}
