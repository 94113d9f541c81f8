package tasks

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/lectern-ai/lectern/internal/domain"
	"github.com/lectern-ai/lectern/internal/observability"
	"github.com/lectern-ai/lectern/internal/storage"
)

// Stages bundles the pipeline components for one generation run. A
// fresh set is built per task because provider clients carry the
// session's resolved API keys.
type Stages struct {
	Text      domain.TextExtractor
	Images    domain.ImageExtractor
	Captioner domain.Captioner
	Planner   domain.Planner
	Resolver  domain.ImageResolver
	Deck      domain.DeckRenderer
	Guide     domain.GuideRenderer
	Close     func() error
}

// StageFactory builds pipeline stages for one task.
type StageFactory interface {
	Stages(ctx context.Context, req domain.GenerateRequest, sessionID uuid.UUID) (*Stages, error)
}

// Orchestrator runs the generation pipeline: one worker goroutine per
// submitted task, bounded by a weighted semaphore.
type Orchestrator struct {
	store         Store
	factory       StageFactory
	users         *storage.UserRepository
	sessions      *storage.SessionRepository
	presentations *storage.PresentationRepository
	sem           *semaphore.Weighted
	workDir       string
	logger        *observability.Logger
	wg            sync.WaitGroup
}

// NewOrchestrator creates an orchestrator allowing maxConcurrent tasks
// to run at once.
func NewOrchestrator(store Store, factory StageFactory, db storage.DB, maxConcurrent int64, workDir string, logger *observability.Logger) *Orchestrator {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Orchestrator{
		store:         store,
		factory:       factory,
		users:         storage.NewUserRepository(db),
		sessions:      storage.NewSessionRepository(db),
		presentations: storage.NewPresentationRepository(db),
		sem:           semaphore.NewWeighted(maxConcurrent),
		workDir:       workDir,
		logger:        logger,
	}
}

// Submit validates the request, creates the session and task records
// and launches the worker. It returns the task id for polling.
func (o *Orchestrator) Submit(ctx context.Context, req domain.GenerateRequest) (string, error) {
	req.UserName = strings.TrimSpace(req.UserName)
	if req.UserName == "" {
		return "", domain.ValidationError("user name is required", nil)
	}
	req.ChapterName = domain.NormalizeChapterName(req.ChapterName)
	req.GroupName = domain.NormalizeGroupName(req.GroupName)

	if _, err := o.users.Register(ctx, req.UserName); err != nil {
		return "", fmt.Errorf("register user: %w", err)
	}

	session := &storage.Session{UserName: req.UserName}
	if err := o.sessions.Create(ctx, session); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	task := &domain.Task{
		ID:          uuid.NewString(),
		Status:      domain.TaskStatusQueued,
		Progress:    "Queued",
		ChapterName: req.ChapterName,
		GroupName:   req.GroupName,
		PDFFilename: req.PDFFilename,
		UserName:    req.UserName,
	}
	if err := o.store.Create(ctx, task); err != nil {
		return "", fmt.Errorf("create task: %w", err)
	}

	o.logger.Info().
		Str("task_id", task.ID).
		Str("user", req.UserName).
		Str("chapter", req.ChapterName).
		Bool("skip_images", req.SkipImages).
		Msg("Task submitted")

	o.wg.Add(1)
	go o.run(task.ID, session.ID, req)

	return task.ID, nil
}

// Wait blocks until all in-flight workers have finished. Used by the
// CLI and by graceful shutdown.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// run executes the pipeline for one task. Tasks are never cancelled
// once started; the worker context is detached from the request.
func (o *Orchestrator) run(taskID string, sessionID uuid.UUID, req domain.GenerateRequest) {
	defer o.wg.Done()
	ctx := context.Background()

	if err := o.sem.Acquire(ctx, 1); err != nil {
		o.fail(ctx, taskID, err)
		return
	}
	defer o.sem.Release(1)

	if err := o.pipeline(ctx, taskID, sessionID, req); err != nil {
		o.logger.Error().
			Str("task_id", taskID).
			Err(err).
			Msg("Task failed")
		o.fail(ctx, taskID, err)
	}
}

func (o *Orchestrator) pipeline(ctx context.Context, taskID string, sessionID uuid.UUID, req domain.GenerateRequest) error {
	o.progress(ctx, taskID, "Preparing pipeline")
	o.setStatus(ctx, taskID, domain.TaskStatusProcessing)

	stages, err := o.factory.Stages(ctx, req, sessionID)
	if err != nil {
		return err
	}
	if stages.Close != nil {
		defer stages.Close()
	}

	o.progress(ctx, taskID, "Extracting chapter text")
	chapterText, err := stages.Text.Text(ctx, req.PDFPath)
	if err != nil {
		return err
	}

	o.progress(ctx, taskID, "Extracting chapter images")
	images, err := stages.Images.Images(ctx, req.PDFPath, filepath.Join(o.workDir, "images", taskID))
	if err != nil {
		return err
	}

	var catalog []domain.CatalogEntry
	if len(images) > 0 {
		o.progress(ctx, taskID, fmt.Sprintf("Analyzing %d images", len(images)))
		catalog, err = stages.Captioner.BuildCatalog(ctx, images, req.ChapterName)
		if err != nil {
			return err
		}
	}

	o.progress(ctx, taskID, "Structuring presentation")
	plan, err := stages.Planner.Structure(ctx, chapterText, catalog, req.ChapterName, req.GroupName)
	if err != nil {
		return err
	}

	if req.SkipImages {
		o.progress(ctx, taskID, "Skipping image generation")
		clearUnresolvedImages(plan, catalog)
	} else {
		o.progress(ctx, taskID, "Resolving slide images")
		if err := stages.Resolver.ResolveImages(ctx, plan, catalog, filepath.Join(o.workDir, "generated", taskID)); err != nil {
			return err
		}
	}

	outputDir := filepath.Join(o.workDir, "output", taskID)

	o.progress(ctx, taskID, "Rendering presentation")
	deckPath, err := stages.Deck.RenderDeck(plan, outputDir)
	if err != nil {
		return err
	}

	o.progress(ctx, taskID, "Rendering study guide")
	guidePath, err := stages.Guide.RenderGuide(plan, outputDir)
	if err != nil {
		return err
	}

	o.progress(ctx, taskID, "Saving results")
	return o.finish(ctx, taskID, sessionID, req, plan, deckPath, guidePath)
}

// finish records the presentation, bumps the aggregates and marks the
// task completed.
func (o *Orchestrator) finish(ctx context.Context, taskID string, sessionID uuid.UUID, req domain.GenerateRequest, plan *domain.PresentationPlan, deckPath, guidePath string) error {
	// The session aggregate holds the run's full provider spend; the
	// recorder kept it in sync call by call.
	session, err := o.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session aggregate: %w", err)
	}
	cost := session.TotalCostUSD

	presentation := &storage.Presentation{
		TaskID:      taskID,
		SessionID:   sessionID,
		UserName:    req.UserName,
		ChapterName: req.ChapterName,
		GroupName:   req.GroupName,
		SlidesCount: len(plan.Slides),
		CostUSD:     cost,
		PPTXPath:    &deckPath,
		DOCXPath:    &guidePath,
	}
	if req.PDFFilename != "" {
		presentation.PDFFilename = &req.PDFFilename
	}
	if err := o.presentations.Insert(ctx, presentation); err != nil {
		return fmt.Errorf("record presentation: %w", err)
	}
	if err := o.sessions.IncrementPresentations(ctx, sessionID); err != nil {
		return fmt.Errorf("bump session presentations: %w", err)
	}
	if err := o.users.RecordPresentation(ctx, req.UserName, cost); err != nil {
		return fmt.Errorf("bump user totals: %w", err)
	}

	err = o.store.Update(ctx, taskID, func(task *domain.Task) {
		task.Status = domain.TaskStatusCompleted
		task.Progress = "Completed"
		task.SlidesCount = len(plan.Slides)
		task.CostUSD = cost
		task.PPTXPath = deckPath
		task.DOCXPath = guidePath
	})
	if err != nil {
		return err
	}

	o.logger.Info().
		Str("task_id", taskID).
		Int("slides", len(plan.Slides)).
		Float64("cost_usd", cost).
		Msg("Task completed")

	return nil
}

// fail marks the task as terminally failed, surfacing the error
// message verbatim to pollers.
func (o *Orchestrator) fail(ctx context.Context, taskID string, cause error) {
	err := o.store.Update(ctx, taskID, func(task *domain.Task) {
		task.Status = domain.TaskStatusError
		task.Progress = "Failed"
		task.Error = cause.Error()
	})
	if err != nil {
		o.logger.Error().
			Str("task_id", taskID).
			Err(err).
			Msg("Failed to record task failure")
	}
}

func (o *Orchestrator) setStatus(ctx context.Context, taskID string, status domain.TaskStatus) {
	if err := o.store.Update(ctx, taskID, func(task *domain.Task) {
		task.Status = status
	}); err != nil {
		o.logger.Warn().Str("task_id", taskID).Err(err).Msg("Failed to update task status")
	}
}

func (o *Orchestrator) progress(ctx context.Context, taskID, message string) {
	if err := o.store.Update(ctx, taskID, func(task *domain.Task) {
		task.Progress = message
	}); err != nil {
		o.logger.Warn().Str("task_id", taskID).Err(err).Msg("Failed to update task progress")
	}
}

// clearUnresolvedImages resolves catalog references that need no
// provider call and drops the rest when generation is skipped.
func clearUnresolvedImages(plan *domain.PresentationPlan, entries []domain.CatalogEntry) {
	byID := make(map[string]domain.CatalogEntry, len(entries))
	for _, entry := range entries {
		byID[entry.ID] = entry
	}

	for i := range plan.Slides {
		slide := &plan.Slides[i]
		if slide.Image == nil {
			continue
		}
		if slide.Image.Source == domain.ImageSourceCatalog {
			if entry, ok := byID[slide.Image.CatalogID]; ok {
				slide.Image.Path = entry.Path
				continue
			}
		}
		slide.Image = nil
	}
}
