package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lectern-ai/lectern/internal/anthropic"
	"github.com/lectern-ai/lectern/internal/catalog"
	"github.com/lectern-ai/lectern/internal/config"
	"github.com/lectern-ai/lectern/internal/domain"
	"github.com/lectern-ai/lectern/internal/gemini"
	"github.com/lectern-ai/lectern/internal/ledger"
	"github.com/lectern-ai/lectern/internal/observability"
	"github.com/lectern-ai/lectern/internal/pdf"
	"github.com/lectern-ai/lectern/internal/planner"
	"github.com/lectern-ai/lectern/internal/render"
	"github.com/lectern-ai/lectern/internal/storage"
	"github.com/lectern-ai/lectern/internal/synthesis"
)

// ProviderFactory builds production pipeline stages: real PDF
// extractors, real provider clients and real renderers. API keys are
// resolved per task: request override first, then the stored settings,
// then the process configuration.
type ProviderFactory struct {
	cfg      *config.Config
	settings *storage.SettingsRepository
	recorder *ledger.Recorder
	logger   *observability.Logger
}

// NewProviderFactory creates a production stage factory.
func NewProviderFactory(cfg *config.Config, db storage.DB, recorder *ledger.Recorder, logger *observability.Logger) *ProviderFactory {
	return &ProviderFactory{
		cfg:      cfg,
		settings: storage.NewSettingsRepository(db),
		recorder: recorder,
		logger:   logger,
	}
}

// Stages assembles the pipeline for one task. A missing provider key
// is a config error and fails the task before any stage runs.
func (f *ProviderFactory) Stages(ctx context.Context, req domain.GenerateRequest, sessionID uuid.UUID) (*Stages, error) {
	anthropicKey, err := f.resolveKey(ctx, req.AnthropicKey, storage.SettingAnthropicAPIKey, f.cfg.Providers.Anthropic.APIKey)
	if err != nil {
		return nil, err
	}
	if anthropicKey == "" {
		return nil, domain.ConfigError("anthropic api key is not configured", nil)
	}

	googleKey, err := f.resolveKey(ctx, req.GoogleKey, storage.SettingGoogleAPIKey, f.cfg.Providers.Google.APIKey)
	if err != nil {
		return nil, err
	}
	if googleKey == "" {
		return nil, domain.ConfigError("google api key is not configured", nil)
	}

	anthropicCfg := f.cfg.Providers.Anthropic
	anthropicCfg.APIKey = anthropicKey
	completion := anthropic.NewClient(anthropicCfg, f.logger)

	googleCfg := f.cfg.Providers.Google
	googleCfg.APIKey = googleKey
	vision, err := gemini.NewClient(ctx, googleCfg, f.logger)
	if err != nil {
		return nil, err
	}

	pipeline := f.cfg.Pipeline
	return &Stages{
		Text:      pdf.NewTextExtractor(f.logger),
		Images:    pdf.NewImageExtractor(pipeline.MinImageWidth, pipeline.MinImageHeight, f.logger),
		Captioner: catalog.NewCaptioner(vision, f.recorder, sessionID, pipeline.CaptionRatePerSec, f.logger),
		Planner: planner.New(completion, f.recorder, sessionID, planner.StructuringPolicy(),
			pipeline.TargetSlides, pipeline.TargetDurationMinutes, f.logger),
		Resolver: synthesis.NewResolver(vision, f.recorder, sessionID,
			time.Duration(pipeline.SynthesisIntervalMS)*time.Millisecond, f.logger),
		Deck:  render.NewDeckBuilder(f.logger),
		Guide: render.NewGuideBuilder(f.logger),
		Close: vision.Close,
	}, nil
}

// resolveKey picks the first configured key: per-request override,
// stored setting, process config.
func (f *ProviderFactory) resolveKey(ctx context.Context, requestKey, settingKey, configKey string) (string, error) {
	if requestKey != "" {
		return requestKey, nil
	}

	stored, err := f.settings.Get(ctx, settingKey)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return "", err
	}
	if stored != "" {
		return stored, nil
	}

	return configKey, nil
}
