package modelpool

import (
	"context"
	"errors"
	"time"

	"github.com/openkb/review-core/internal/models"
	"go.uber.org/zap"
)

// ErrNoModelAvailable means every configured model is disabled, cooling down
// or out of budget. Callers must record an error-decision report instead of
// silently skipping review.
var ErrNoModelAvailable = errors.New("no AI model available: all models disabled, cooling down or rate limited")

// ModelSource lists the models eligible for selection, priority first.
type ModelSource interface {
	ListEnabled() ([]models.AIModelConfig, error)
}

// Selector picks an eligible reviewer model under shared RPM/TPM budgets.
type Selector struct {
	registry ModelSource
	counters CounterStore
	log      *zap.Logger
	now      func() time.Time
}

func NewSelector(registry ModelSource, counters CounterStore, log *zap.Logger) *Selector {
	return &Selector{
		registry: registry,
		counters: counters,
		log:      log,
		now:      time.Now,
	}
}

// Select returns the highest-priority model with headroom in the current
// minute window. The request slot is reserved atomically at selection time:
// IncrBy-then-check means K concurrent selectors can never admit more than
// RPM requests to one model per window.
func (s *Selector) Select(ctx context.Context) (*models.AIModelConfig, error) {
	candidates, err := s.registry.ListEnabled()
	if err != nil {
		return nil, err
	}

	minute := s.now().Unix() / 60
	for i := range candidates {
		m := &candidates[i]

		cooling, err := s.counters.Exists(ctx, cooldownKey(m.ID))
		if err != nil {
			return nil, err
		}
		if cooling {
			continue
		}

		if m.TPMLimit > 0 {
			used, err := s.counters.Get(ctx, tpmKey(m.ID, minute))
			if err != nil {
				return nil, err
			}
			if used >= int64(m.TPMLimit) {
				continue
			}
		}

		if m.RPMLimit > 0 {
			count, err := s.counters.IncrBy(ctx, rpmKey(m.ID, minute), 1, counterTTL)
			if err != nil {
				return nil, err
			}
			if count > int64(m.RPMLimit) {
				continue
			}
		}

		return m, nil
	}

	return nil, ErrNoModelAvailable
}

// AddTokens charges consumed tokens against the model's TPM window.
func (s *Selector) AddTokens(ctx context.Context, modelID string, tokens int) {
	if tokens <= 0 {
		return
	}
	minute := s.now().Unix() / 60
	if _, err := s.counters.IncrBy(ctx, tpmKey(modelID, minute), int64(tokens), counterTTL); err != nil {
		s.log.Warn("token counter update failed", zap.String("model", modelID), zap.Error(err))
	}
}

// Cooldown excludes a model from selection after a provider-reported rate
// limit. The caller retries selection once to get a different model.
func (s *Selector) Cooldown(ctx context.Context, m *models.AIModelConfig) {
	d := time.Duration(m.CooldownSeconds) * time.Second
	if d <= 0 {
		d = time.Minute
	}
	if err := s.counters.SetCooldown(ctx, cooldownKey(m.ID), d); err != nil {
		s.log.Warn("cooldown set failed", zap.String("model", m.ID), zap.Error(err))
		return
	}
	s.log.Info("model cooling down",
		zap.String("model", m.Name),
		zap.Duration("duration", d))
}
