package assessments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/phishguard/internal/application"
	domain "github.com/bryanwahyu/phishguard/internal/domain/assessment"
	"github.com/bryanwahyu/phishguard/internal/domain/urlcheck"
)

// Recorder receives evaluation outcomes (metrics).
type Recorder interface {
	RecordEvaluation(usedAI bool)
	RecordPersistFailure()
}

type nopRecorder struct{}

func (nopRecorder) RecordEvaluation(bool) {}
func (nopRecorder) RecordPersistFailure() {}

// Service implements the evaluation use-cases.
// Service is safe for concurrent use as long as its History repository is.
type Service struct {
	AI        domain.Assessor
	History   domain.HistoryRepository
	Clock     application.Clock
	Logger    *slog.Logger
	Heuristic func(url string) domain.Result
	Metrics   Recorder
}

// Status is the payload of the root route.
type Status struct {
	Status    string `json:"status"`
	Model     string `json:"model"`
	AIEnabled bool   `json:"ai_enabled"`
}

//
// ==== USE CASES ====
//

// Evaluate tries the AI assessor first and falls back to the heuristic scorer on
// any AI failure. The entry is persisted newest-first and returned. Only a
// cancelled context makes Evaluate fail; nothing is persisted in that case.
func (s *Service) Evaluate(ctx context.Context, rawURL string) (*domain.HistoryEntry, error) {
	url := strings.TrimSpace(rawURL)

	entry := &domain.HistoryEntry{URL: url}

	result, aiErr := s.assessWithAI(ctx, url)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if aiErr == nil {
		model := s.AI.Model()
		entry.UsedAI = true
		entry.Model = &model
		entry.Result = result
	} else {
		s.logger().Warn("AI failed, using manual logic", "url", url, "error", aiErr)
		entry.AIError = aiErr.Error()
		entry.Result = s.heuristic()(url)
	}

	entry.ID = uuid.NewString()
	entry.Timestamp = s.now()
	s.metrics().RecordEvaluation(entry.UsedAI)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.History.Prepend(ctx, entry); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// hasil tetap dikembalikan walau gagal simpan history
		s.metrics().RecordPersistFailure()
		s.logger().Error("failed to persist history entry", "id", entry.ID, "error", err)
	}

	return entry, nil
}

// ListHistory returns all entries newest first. Read failures degrade to an empty log.
func (s *Service) ListHistory(ctx context.Context) []*domain.HistoryEntry {
	list, err := s.History.List(ctx)
	if err != nil {
		s.logger().Warn("failed to read history, returning empty log", "error", err)
		return []*domain.HistoryEntry{}
	}
	if list == nil {
		return []*domain.HistoryEntry{}
	}
	return list
}

// ClearHistory empties the log. Clearing an empty log is not an error.
func (s *Service) ClearHistory(ctx context.Context) error {
	if err := s.History.Clear(ctx); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

// Models lists upstream models when the configured assessor supports it.
func (s *Service) Models(ctx context.Context) ([]domain.ModelInfo, error) {
	if s.AI == nil {
		return nil, domain.ErrConfigurationMissing
	}
	lister, ok := s.AI.(domain.ModelLister)
	if !ok {
		return nil, fmt.Errorf("model listing not supported by %T", s.AI)
	}
	return lister.ListModels(ctx)
}

// Status summarizes the runtime configuration.
func (s *Service) Status(aiEnabled bool) Status {
	model := ""
	if s.AI != nil {
		model = s.AI.Model()
	}
	return Status{
		Status:    "PhishGuard backend running",
		Model:     model,
		AIEnabled: aiEnabled,
	}
}

func (s *Service) assessWithAI(ctx context.Context, url string) (res domain.Result, err error) {
	if s.AI == nil {
		return domain.Result{}, domain.ErrConfigurationMissing
	}
	defer func() {
		// adapter panic tetap dianggap kegagalan AI
		if r := recover(); r != nil {
			res, err = domain.Result{}, fmt.Errorf("ai assessor panicked: %v", r)
		}
	}()
	res, err = s.AI.Assess(ctx, url)
	if err == nil && (res.Verdict == "" || len(res.Reasons) == 0) {
		return domain.Result{}, errors.New("ai assessor returned an incomplete result")
	}
	return res, err
}

func (s *Service) heuristic() func(string) domain.Result {
	if s.Heuristic != nil {
		return s.Heuristic
	}
	return urlcheck.Score
}

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Service) metrics() Recorder {
	if s.Metrics == nil {
		return nopRecorder{}
	}
	return s.Metrics
}
