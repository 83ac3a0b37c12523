package review

import (
	"sort"
	"strings"
	"time"

	"github.com/openkb/review-core/internal/models"
	"gorm.io/gorm"
)

// QueueItem is one pending entry in the moderation queue, merged across
// content tables.
type QueueItem struct {
	ID          string               `json:"id"`
	ContentType models.ContentType   `json:"content_type"`
	UploaderID  string               `json:"uploader_id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Tags        models.StringSlice   `json:"tags"`
	Public      bool                 `json:"public"`
	Status      models.ContentStatus `json:"status"`
	AIDecision  string               `json:"ai_decision"`
	Created     time.Time            `json:"created"`
}

// QueueFilter narrows the pending list.
type QueueFilter struct {
	ContentType string // empty = both
	Keyword     string // matches title/description
	Start       *time.Time
	End         *time.Time
}

// ListPending returns the moderation queue page, newest submissions first.
// With no content_type filter both tables are merged by creation time.
func (s *Service) ListPending(f QueueFilter, page, size int) ([]QueueItem, int64, error) {
	var items []QueueItem
	var total int64

	wantKnowledge := f.ContentType == "" || f.ContentType == string(models.ContentTypeKnowledge)
	wantPersona := f.ContentType == "" || f.ContentType == string(models.ContentTypePersona)

	// Each table contributes up to one full window; the merge below trims.
	window := page * size

	if wantKnowledge {
		var rows []models.KnowledgeBaseModel
		tx := s.applyQueueFilter(s.db.Model(&models.KnowledgeBaseModel{}), f)
		var n int64
		if err := tx.Count(&n).Error; err != nil {
			return nil, 0, err
		}
		total += n
		if err := tx.Order("created_at DESC").Limit(window).Find(&rows).Error; err != nil {
			return nil, 0, err
		}
		for _, r := range rows {
			items = append(items, QueueItem{
				ID:          r.ID,
				ContentType: models.ContentTypeKnowledge,
				UploaderID:  r.UploaderID,
				Title:       r.Title,
				Description: r.Description,
				Tags:        r.Tags,
				Public:      r.Public,
				Status:      r.Status,
				AIDecision:  r.AIDecision,
				Created:     r.CreatedAt,
			})
		}
	}

	if wantPersona {
		var rows []models.PersonaCardModel
		tx := s.applyQueueFilter(s.db.Model(&models.PersonaCardModel{}), f)
		var n int64
		if err := tx.Count(&n).Error; err != nil {
			return nil, 0, err
		}
		total += n
		if err := tx.Order("created_at DESC").Limit(window).Find(&rows).Error; err != nil {
			return nil, 0, err
		}
		for _, r := range rows {
			items = append(items, QueueItem{
				ID:          r.ID,
				ContentType: models.ContentTypePersona,
				UploaderID:  r.UploaderID,
				Title:       r.Title,
				Description: r.Description,
				Tags:        r.Tags,
				Public:      r.Public,
				Status:      r.Status,
				AIDecision:  r.AIDecision,
				Created:     r.CreatedAt,
			})
		}
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Created.After(items[j].Created)
	})

	start := (page - 1) * size
	if start >= len(items) {
		return []QueueItem{}, total, nil
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], total, nil
}

func (s *Service) applyQueueFilter(tx *gorm.DB, f QueueFilter) *gorm.DB {
	tx = tx.Where("status = ?", models.StatusPending)
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		like := "%" + kw + "%"
		tx = tx.Where("title LIKE ? OR description LIKE ?", like, like)
	}
	if f.Start != nil {
		tx = tx.Where("created_at >= ?", *f.Start)
	}
	if f.End != nil {
		tx = tx.Where("created_at <= ?", *f.End)
	}
	return tx
}

// Stats summarizes the moderation workload.
type Stats struct {
	PendingTotal     int64   `json:"pending_total"`
	PendingKnowledge int64   `json:"pending_knowledge"`
	PendingPersona   int64   `json:"pending_persona"`
	ApprovedToday    int64   `json:"approved_today"`
	RejectedToday    int64   `json:"rejected_today"`
	ApprovalRate     float64 `json:"approval_rate"`
}

// dayStart is midnight in t's own location, not UTC midnight.
func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// GetStats computes the queue counters. Approval rate is approved over all
// decided items, across both content types.
func (s *Service) GetStats() (*Stats, error) {
	var st Stats
	today := dayStart(time.Now())

	countBoth := func(cond string, args ...interface{}) (int64, error) {
		var k, p int64
		if err := s.db.Model(&models.KnowledgeBaseModel{}).Where(cond, args...).Count(&k).Error; err != nil {
			return 0, err
		}
		if err := s.db.Model(&models.PersonaCardModel{}).Where(cond, args...).Count(&p).Error; err != nil {
			return 0, err
		}
		return k + p, nil
	}

	var err error
	if err = s.db.Model(&models.KnowledgeBaseModel{}).
		Where("status = ?", models.StatusPending).Count(&st.PendingKnowledge).Error; err != nil {
		return nil, err
	}
	if err = s.db.Model(&models.PersonaCardModel{}).
		Where("status = ?", models.StatusPending).Count(&st.PendingPersona).Error; err != nil {
		return nil, err
	}
	st.PendingTotal = st.PendingKnowledge + st.PendingPersona

	if st.ApprovedToday, err = countBoth("status = ? AND updated_at >= ?", models.StatusApproved, today); err != nil {
		return nil, err
	}
	if st.RejectedToday, err = countBoth("status = ? AND updated_at >= ?", models.StatusRejected, today); err != nil {
		return nil, err
	}

	approved, err := countBoth("status = ?", models.StatusApproved)
	if err != nil {
		return nil, err
	}
	rejected, err := countBoth("status = ?", models.StatusRejected)
	if err != nil {
		return nil, err
	}
	if approved+rejected > 0 {
		st.ApprovalRate = float64(approved) / float64(approved+rejected)
	}

	return &st, nil
}
