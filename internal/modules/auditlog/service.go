package auditlog

import (
	"github.com/openkb/review-core/internal/models"
	"github.com/openkb/review-core/internal/pkg/pagination"
	"github.com/openkb/review-core/internal/pkg/response"
	"gorm.io/gorm"
)

// Service reads the append-only review report log. It never writes: reports
// are produced by the review engine and are immutable once stored.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// Filter narrows the report listing.
type Filter struct {
	Source    string
	Decision  string
	ModelName string
	IsSuccess *bool
	RefID     string
}

func (s *Service) query(f Filter) *gorm.DB {
	tx := s.db.Model(&models.AIReviewReport{})
	if f.Source != "" {
		tx = tx.Where("source = ?", f.Source)
	}
	if f.Decision != "" {
		tx = tx.Where("decision = ?", f.Decision)
	}
	if f.ModelName != "" {
		tx = tx.Where("model_name = ?", f.ModelName)
	}
	if f.IsSuccess != nil {
		tx = tx.Where("is_success = ?", *f.IsSuccess)
	}
	if f.RefID != "" {
		tx = tx.Where("ref_id = ?", f.RefID)
	}
	return tx
}

// List pages through reports, newest first.
func (s *Service) List(f Filter, q pagination.Query) ([]models.AIReviewReport, response.Pagination, error) {
	var reports []models.AIReviewReport
	page, err := pagination.Paginate(s.query(f).Order("created_at DESC"), q, &reports)
	if err != nil {
		return nil, response.Pagination{}, err
	}
	return reports, page, nil
}

// Stats summarizes the report log.
type Stats struct {
	Total            int64            `json:"total"`
	SuccessCount     int64            `json:"success_count"`
	SuccessRate      float64          `json:"success_rate"`
	PromptTokens     int64            `json:"prompt_tokens"`
	CompletionTokens int64            `json:"completion_tokens"`
	AvgLatencyMS     float64          `json:"avg_latency_ms"`
	ByDecision       map[string]int64 `json:"by_decision"`
}

func (s *Service) GetStats(f Filter) (*Stats, error) {
	st := &Stats{ByDecision: make(map[string]int64)}

	if err := s.query(f).Count(&st.Total).Error; err != nil {
		return nil, err
	}
	if err := s.query(f).Where("is_success = ?", true).Count(&st.SuccessCount).Error; err != nil {
		return nil, err
	}
	if st.Total > 0 {
		st.SuccessRate = float64(st.SuccessCount) / float64(st.Total)
	}

	var agg struct {
		PromptTokens     int64
		CompletionTokens int64
		AvgLatency       float64
	}
	err := s.query(f).
		Select("COALESCE(SUM(prompt_tokens),0) AS prompt_tokens, COALESCE(SUM(completion_tokens),0) AS completion_tokens, COALESCE(AVG(latency_ms),0) AS avg_latency").
		Scan(&agg).Error
	if err != nil {
		return nil, err
	}
	st.PromptTokens = agg.PromptTokens
	st.CompletionTokens = agg.CompletionTokens
	st.AvgLatencyMS = agg.AvgLatency

	var rows []struct {
		Decision string
		Count    int64
	}
	err = s.query(f).
		Select("decision, COUNT(*) AS count").
		Group("decision").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		st.ByDecision[r.Decision] = r.Count
	}

	return st, nil
}
