package reply

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"yuri/internal/config"
	"yuri/internal/domain"
	"yuri/internal/domain/models"
	"yuri/internal/domain/repositories"
	"yuri/internal/domain/services"
)

// imagePlaceholder is stored as the user turn's text when only an image was sent.
const imagePlaceholder = "[Image]"

// Service is the reply orchestrator: assemble, waterfall, secondary pool,
// post-process, persist.
type Service struct {
	assembler    *Assembler
	waterfall    *Waterfall
	secondary    *SecondaryPool
	post         *PostProcessor
	turns        repositories.TurnWriter
	storeTimeout time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

// NewService wires the orchestrator from its stages.
func NewService(
	assembler *Assembler,
	waterfall *Waterfall,
	secondary *SecondaryPool,
	post *PostProcessor,
	turns repositories.TurnWriter,
	storeTimeout time.Duration,
	logger *slog.Logger,
) *Service {
	return &Service{
		assembler:    assembler,
		waterfall:    waterfall,
		secondary:    secondary,
		post:         post,
		turns:        turns,
		storeTimeout: storeTimeout,
		now:          time.Now,
		logger:       logger,
	}
}

// Respond produces the reply for one turn.
//
// Provider work and persistence run on a context detached from the caller,
// so a caller that gives up still gets its turn completed and stored.
func (s *Service) Respond(ctx context.Context, req *services.ReplyRequest) (*models.GenerationResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	work := context.WithoutCancel(ctx)
	start := s.now()

	prompt := s.assembler.Assemble(work, req)

	raw, backend, attempts, err := s.waterfall.Generate(work, prompt)
	degraded := false
	if err != nil {
		s.logger.Warn("primary backends exhausted, using secondary pool",
			"user_id", req.UserID,
			"attempts", len(attempts),
		)
		var ok bool
		raw, backend, ok = s.secondary.Generate(work, prompt)
		degraded = !ok
	}

	result := s.post.Result(work, raw, backend, degraded)

	if req.Override == nil {
		s.persist(work, req, prompt.VoiceNote, result)
	}

	s.logger.Info("reply generated",
		"user_id", req.UserID,
		"backend", result.Backend,
		"degraded", result.Degraded,
		"override", req.Override != nil,
		"has_image", prompt.HasImage(),
		"has_media", result.HasMedia(),
		"duration", s.now().Sub(start),
	)

	return result, nil
}

// persist appends the user turn then the model turn. The user turn keeps the
// voice note transcript, since attachment URLs expire. The model turn is
// stamped one microsecond later so the pair sorts correctly even on stores
// without a sequence column. Failures are logged and swallowed.
func (s *Service) persist(ctx context.Context, req *services.ReplyRequest, voiceNote string, result *models.GenerationResult) {
	now := s.now().UTC()

	userTurn := &models.Turn{
		UserID:    req.UserID,
		Role:      models.RoleUser,
		Parts:     userParts(req, voiceNote),
		CreatedAt: now,
	}
	modelTurn := &models.Turn{
		UserID:    req.UserID,
		Role:      models.RoleModel,
		Parts:     modelParts(result),
		CreatedAt: now.Add(time.Microsecond),
	}

	for _, turn := range []*models.Turn{userTurn, modelTurn} {
		storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
		err := s.turns.AppendTurn(storeCtx, turn)
		cancel()
		if err != nil {
			s.logger.Error("failed to persist turn",
				"user_id", req.UserID,
				"role", turn.Role,
				"error", err,
			)
		}
	}
}

func userParts(req *services.ReplyRequest, voiceNote string) []models.Part {
	var parts []models.Part
	if text := req.Text + voiceNote; strings.TrimSpace(text) != "" {
		parts = append(parts, models.TextPart(strings.TrimLeft(text, "\n")))
	} else if req.ImageURL != "" || len(req.Image) > 0 {
		parts = append(parts, models.TextPart(imagePlaceholder))
	}
	if req.ImageURL != "" {
		parts = append(parts, models.MediaPart(req.ImageURL))
	}
	if req.AudioURL != "" {
		parts = append(parts, models.MediaPart(req.AudioURL))
	}
	return parts
}

func modelParts(result *models.GenerationResult) []models.Part {
	var parts []models.Part
	if result.DisplayText != "" {
		parts = append(parts, models.TextPart(result.DisplayText))
	}
	if result.MediaReference != "" {
		parts = append(parts, models.MediaPart(result.MediaReference))
	}
	return parts
}

// validateRequest enforces identity and the override/content exclusivity.
func validateRequest(req *services.ReplyRequest) error {
	if req == nil {
		return fmt.Errorf("%w: request is required", domain.ErrValidation)
	}

	hasContent := strings.TrimSpace(req.Text) != "" || req.ImageURL != "" || len(req.Image) > 0 || req.AudioURL != ""
	override := req.Override != nil

	err := validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Text,
			validation.RuneLength(0, config.MaxMessageLength),
			validation.When(override, validation.Empty.Error("must be empty with an override")),
		),
		validation.Field(&req.ImageURL, validation.When(override, validation.Empty.Error("must be empty with an override"))),
		validation.Field(&req.AudioURL, validation.When(override, validation.Empty.Error("must be empty with an override"))),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if !override && !hasContent {
		return fmt.Errorf("%w: text, image or audio is required", domain.ErrValidation)
	}

	if override {
		if len(req.Image) > 0 {
			return fmt.Errorf("%w: image must be empty with an override", domain.ErrValidation)
		}
		if err := validation.ValidateStruct(req.Override,
			validation.Field(&req.Override.Instruction, validation.Required),
			validation.Field(&req.Override.Input, validation.RuneLength(0, config.MaxMessageLength)),
		); err != nil {
			return fmt.Errorf("%w: override: %v", domain.ErrValidation, err)
		}
	}
	return nil
}

// Status reports breaker and pool state for the admin surfaces.
func (s *Service) Status() models.ProviderStatus {
	return models.ProviderStatus{
		Primary:   s.waterfall.Status(),
		Secondary: s.secondary.Status(),
	}
}

// ResetBackend closes a primary backend's breaker (all when name is empty).
func (s *Service) ResetBackend(name string) error {
	return s.waterfall.Reset(name)
}
