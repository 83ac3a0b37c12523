package aireview

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openkb/review-core/internal/config"
	"github.com/openkb/review-core/internal/models"
	"github.com/openkb/review-core/internal/modules/modelpool"
	"github.com/openkb/review-core/internal/modules/review"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service runs the full AI review of one content item: collect its reviewable
// parts, pick a model, invoke per part, aggregate, persist the audit report
// and apply the auto decision to the state machine.
type Service struct {
	db       *gorm.DB
	selector *modelpool.Selector
	invoker  *Invoker
	engine   *DecisionEngine
	states   *review.Service
	log      *zap.Logger
}

func NewService(db *gorm.DB, selector *modelpool.Selector, states *review.Service, cfg config.ReviewConfig, log *zap.Logger) *Service {
	return &Service{
		db:       db,
		selector: selector,
		invoker:  NewInvoker(cfg.RequestTimeout, cfg.ViolationTypes),
		engine:   NewDecisionEngine(cfg),
		states:   states,
		log:      log,
	}
}

// ReviewContent reviews one item end to end. Exactly one report row is
// written per call, including failed runs. Re-reviewing an already decided
// item appends a fresh report without touching the audit history.
func (s *Service) ReviewContent(ctx context.Context, ct models.ContentType, id string) (*ReviewOutcome, error) {
	parts, source, uploadable, err := s.collectParts(ct, id)
	if err != nil {
		return nil, err
	}

	model, err := s.selector.Select(ctx)
	if errors.Is(err, modelpool.ErrNoModelAvailable) {
		report := s.writeErrorReport(ctx, source, id, "", "", err.Error())
		return &ReviewOutcome{Report: report, AutoDecision: AutoError}, err
	}
	if err != nil {
		return nil, err
	}

	results, telemetry := s.invokeParts(ctx, model, parts)

	report := &models.AIReviewReport{
		Source:           source,
		RefID:            id,
		Parts:            results,
		ModelName:        model.Name,
		ModelProvider:    model.Provider,
		PromptTokens:     telemetry.promptTokens,
		CompletionTokens: telemetry.completionTokens,
		LatencyMS:        telemetry.latency,
	}

	if telemetry.failed {
		report.Decision = models.DecisionError
		report.AutoDecision = string(AutoError)
		report.ErrorMessage = telemetry.errorMessage
		report.RawOutput = telemetry.rawOutput
		s.persistReport(ctx, report)
		return &ReviewOutcome{Report: report, AutoDecision: AutoError},
			fmt.Errorf("model invocation failed: %s", telemetry.errorMessage)
	}

	auto, confidence, violations := s.engine.Aggregate(results)
	report.Decision = overallDecision(results)
	report.AutoDecision = string(auto)
	report.Confidence = confidence
	report.ViolationTypes = models.StringSlice(violations)
	report.IsSuccess = true
	report.RawOutput = telemetry.rawOutput
	s.persistReport(ctx, report)

	if uploadable {
		s.applyAutoDecision(ctx, ct, id, auto, violations)
	}

	return &ReviewOutcome{Report: report, AutoDecision: auto}, nil
}

// invokeTelemetry accumulates per-run accounting across parts.
type invokeTelemetry struct {
	promptTokens     int
	completionTokens int
	latency          int64
	failed           bool
	errorMessage     string
	rawOutput        string
}

// invokeParts runs every part against the chosen model, charging token usage
// back to the limiter. A rate-limited verdict cools the model down and the
// part is retried once on a freshly selected model.
func (s *Service) invokeParts(ctx context.Context, model *models.AIModelConfig, parts []ReviewPart) ([]models.ReviewPartResult, invokeTelemetry) {
	results := make([]models.ReviewPartResult, 0, len(parts))
	var t invokeTelemetry

	for _, part := range parts {
		v := s.invoker.Invoke(ctx, model, part)

		if v.RateLimited {
			s.selector.Cooldown(ctx, model)
			if next, err := s.selector.Select(ctx); err == nil && next.ID != model.ID {
				s.log.Warn("model rate limited, retrying part on fallback",
					zap.String("model", model.Name), zap.String("fallback", next.Name), zap.String("part", part.Name))
				model = next
				v = s.invoker.Invoke(ctx, model, part)
			}
		}

		t.promptTokens += v.PromptTokens
		t.completionTokens += v.CompletionTokens
		t.latency += v.LatencyMS
		if v.PromptTokens+v.CompletionTokens > 0 {
			s.selector.AddTokens(ctx, model.ID, v.PromptTokens+v.CompletionTokens)
		}
		if v.RawOutput != "" {
			if t.rawOutput != "" {
				t.rawOutput += "\n"
			}
			t.rawOutput += v.RawOutput
		}

		if !v.IsSuccess {
			t.failed = true
			if t.errorMessage == "" {
				t.errorMessage = v.ErrorMessage
			}
		}

		results = append(results, models.ReviewPartResult{
			Name:           part.Name,
			Type:           part.Type,
			Decision:       v.Decision,
			Confidence:     v.Confidence,
			ViolationTypes: v.ViolationTypes,
			Segments:       v.Segments,
		})
	}

	return results, t
}

// applyAutoDecision pushes the aggregate verdict into the state machine.
// A losing race against a manual moderator is a logged no-op, never an error.
func (s *Service) applyAutoDecision(ctx context.Context, ct models.ContentType, id string, auto AutoDecision, violations []string) {
	var err error
	switch auto {
	case AutoApproved:
		if err = s.states.Approve(ctx, ct, id); err == nil {
			err = s.states.SetAIDecision(ctx, ct, id, string(AutoApproved))
		}
	case AutoRejected:
		err = s.states.RejectAuto(ctx, ct, id, violations)
	case PendingManual:
		err = s.states.SetAIDecision(ctx, ct, id, string(PendingManual))
	default:
		return
	}
	if errors.Is(err, review.ErrInvalidState) {
		s.log.Info("auto decision skipped, content already decided",
			zap.String("content_id", id), zap.String("decision", string(auto)))
		return
	}
	if err != nil {
		s.log.Error("failed to apply auto decision",
			zap.String("content_id", id), zap.String("decision", string(auto)), zap.Error(err))
	}
}

// collectParts loads the item and flattens it into reviewable text parts.
// The third return reports whether the item participates in the lifecycle
// state machine (comments do not).
func (s *Service) collectParts(ct models.ContentType, id string) ([]ReviewPart, models.ReviewSource, bool, error) {
	switch ct {
	case models.ContentTypeKnowledge:
		var kb models.KnowledgeBaseModel
		if err := s.db.First(&kb, "id = ?", id).Error; err != nil {
			return nil, "", false, contentLookupError(err, id)
		}
		parts := textFieldParts(map[string]string{
			"title":       kb.Title,
			"description": kb.Description,
			"text":        kb.Text,
		})
		for _, f := range kb.Files {
			if strings.TrimSpace(f.Text) == "" {
				continue
			}
			parts = append(parts, ReviewPart{Name: "file:" + f.Name, Type: models.PartTypeFile, Text: f.Text})
		}
		return parts, models.SourceKnowledge, true, nil

	case models.ContentTypePersona:
		var pc models.PersonaCardModel
		if err := s.db.First(&pc, "id = ?", id).Error; err != nil {
			return nil, "", false, contentLookupError(err, id)
		}
		parts := textFieldParts(map[string]string{
			"title":       pc.Title,
			"description": pc.Description,
			"greeting":    pc.Greeting,
			"persona":     pc.Persona,
		})
		return parts, models.SourcePersona, true, nil
	}
	return nil, "", false, fmt.Errorf("%w: %q", review.ErrUnknownContentType, ct)
}

// ReviewComment runs a standalone AI review of one comment. Comments have no
// lifecycle state, only the audit report.
func (s *Service) ReviewComment(ctx context.Context, commentID string) (*ReviewOutcome, error) {
	var c models.CommentModel
	if err := s.db.First(&c, "id = ?", commentID).Error; err != nil {
		return nil, contentLookupError(err, commentID)
	}
	if strings.TrimSpace(c.Text) == "" {
		return nil, fmt.Errorf("comment %s has no text to review", commentID)
	}

	model, err := s.selector.Select(ctx)
	if errors.Is(err, modelpool.ErrNoModelAvailable) {
		report := s.writeErrorReport(ctx, models.SourceComment, commentID, "", "", err.Error())
		return &ReviewOutcome{Report: report, AutoDecision: AutoError}, err
	}
	if err != nil {
		return nil, err
	}

	parts := []ReviewPart{{Name: "text", Type: models.PartTypeTextField, Text: c.Text}}
	results, telemetry := s.invokeParts(ctx, model, parts)

	report := &models.AIReviewReport{
		Source:           models.SourceComment,
		RefID:            commentID,
		Parts:            results,
		ModelName:        model.Name,
		ModelProvider:    model.Provider,
		PromptTokens:     telemetry.promptTokens,
		CompletionTokens: telemetry.completionTokens,
		LatencyMS:        telemetry.latency,
		RawOutput:        telemetry.rawOutput,
	}
	if telemetry.failed {
		report.Decision = models.DecisionError
		report.AutoDecision = string(AutoError)
		report.ErrorMessage = telemetry.errorMessage
		s.persistReport(ctx, report)
		return &ReviewOutcome{Report: report, AutoDecision: AutoError},
			fmt.Errorf("model invocation failed: %s", telemetry.errorMessage)
	}

	auto, confidence, violations := s.engine.Aggregate(results)
	report.Decision = overallDecision(results)
	report.AutoDecision = string(auto)
	report.Confidence = confidence
	report.ViolationTypes = models.StringSlice(violations)
	report.IsSuccess = true
	s.persistReport(ctx, report)

	return &ReviewOutcome{Report: report, AutoDecision: auto}, nil
}

// LatestReport returns the newest report for one content item.
func (s *Service) LatestReport(ct models.ContentType, id string) (*models.AIReviewReport, error) {
	source, err := sourceFor(ct)
	if err != nil {
		return nil, err
	}
	var report models.AIReviewReport
	err = s.db.Where("source = ? AND ref_id = ?", source, id).
		Order("created_at DESC").First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, review.ErrContentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *Service) persistReport(ctx context.Context, report *models.AIReviewReport) {
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		s.log.Error("failed to persist review report",
			zap.String("ref_id", report.RefID), zap.Error(err))
	}
}

func (s *Service) writeErrorReport(ctx context.Context, source models.ReviewSource, refID, modelName, provider, message string) *models.AIReviewReport {
	report := &models.AIReviewReport{
		Source:        source,
		RefID:         refID,
		Decision:      models.DecisionError,
		AutoDecision:  string(AutoError),
		ModelName:     modelName,
		ModelProvider: provider,
		ErrorMessage:  message,
	}
	s.persistReport(ctx, report)
	return report
}

func textFieldParts(fields map[string]string) []ReviewPart {
	// Fixed order keeps reports stable across runs.
	order := []string{"title", "description", "greeting", "persona", "text"}
	parts := make([]ReviewPart, 0, len(fields))
	for _, name := range order {
		text, ok := fields[name]
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}
		parts = append(parts, ReviewPart{Name: name, Type: models.PartTypeTextField, Text: text})
	}
	return parts
}

func sourceFor(ct models.ContentType) (models.ReviewSource, error) {
	switch ct {
	case models.ContentTypeKnowledge:
		return models.SourceKnowledge, nil
	case models.ContentTypePersona:
		return models.SourcePersona, nil
	}
	return "", fmt.Errorf("%w: %q", review.ErrUnknownContentType, ct)
}

// overallDecision is the content-level categorical verdict mirrored into the
// report next to the auto decision.
func overallDecision(parts []models.ReviewPartResult) models.ReviewDecision {
	if len(parts) == 0 {
		return models.DecisionUnknown
	}
	hasError, hasUnknown := false, false
	for _, p := range parts {
		switch p.Decision {
		case models.DecisionFalse:
			return models.DecisionFalse
		case models.DecisionError:
			hasError = true
		case models.DecisionUnknown:
			hasUnknown = true
		}
	}
	if hasError {
		return models.DecisionError
	}
	if hasUnknown {
		return models.DecisionUnknown
	}
	return models.DecisionTrue
}

func contentLookupError(err error, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", review.ErrContentNotFound, id)
	}
	return err
}
