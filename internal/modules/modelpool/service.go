package modelpool

import (
	"errors"
	"strings"

	"github.com/openkb/review-core/internal/models"
	"gorm.io/gorm"
)

var (
	ErrModelNotFound = errors.New("model config not found")
)

// Service is the administrator-facing model registry. The review engine only
// reads from it, through Selector.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// ListEnabled returns enabled model configs ordered by priority, ties broken
// by lowest ID so selection stays deterministic.
func (s *Service) ListEnabled() ([]models.AIModelConfig, error) {
	var out []models.AIModelConfig
	err := s.db.Where("enabled = ?", true).
		Order("priority ASC, id ASC").
		Find(&out).Error
	return out, err
}

// List returns all model configs, enabled or not.
func (s *Service) List() ([]models.AIModelConfig, error) {
	var out []models.AIModelConfig
	err := s.db.Order("priority ASC, id ASC").Find(&out).Error
	return out, err
}

func (s *Service) GetByID(id string) (*models.AIModelConfig, error) {
	var m models.AIModelConfig
	if err := s.db.First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModelNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (s *Service) Create(m *models.AIModelConfig) error {
	m.Provider = normalizeProvider(m.Provider)
	return s.db.Create(m).Error
}

func (s *Service) Update(id string, patch map[string]interface{}) (*models.AIModelConfig, error) {
	if raw, ok := patch["provider"].(string); ok {
		patch["provider"] = normalizeProvider(raw)
	}
	res := s.db.Model(&models.AIModelConfig{}).Where("id = ?", id).Updates(patch)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrModelNotFound
	}
	return s.GetByID(id)
}

func (s *Service) Delete(id string) error {
	res := s.db.Delete(&models.AIModelConfig{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrModelNotFound
	}
	return nil
}

func (s *Service) SetEnabled(id string, enabled bool) error {
	res := s.db.Model(&models.AIModelConfig{}).Where("id = ?", id).Update("enabled", enabled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrModelNotFound
	}
	return nil
}

func normalizeProvider(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = strings.ReplaceAll(t, "_", "-")
	t = strings.ReplaceAll(t, " ", "")
	return t
}
