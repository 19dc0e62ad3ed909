package repository

import (
	"context"

	"pulse/internal/idgen"
	"pulse/internal/models"
	"pulse/internal/observability"

	"gorm.io/gorm"
)

// WhyRepository stores Whys and their anonymous Pulse replies.
type WhyRepository interface {
	Create(ctx context.Context, why *models.Why) error
	GetByID(ctx context.Context, id int64) (*models.Why, error)
	// List returns up to limit Whys newest first. A positive beforeID
	// restricts the range to Whys with a smaller ID.
	List(ctx context.Context, beforeID int64, limit int) ([]*models.Why, error)
	AddPulse(ctx context.Context, pulse *models.Pulse) error
	// ListPulses returns every reply to the Why, newest first.
	ListPulses(ctx context.Context, whyID int64) ([]*models.Pulse, error)
	// CountPulses returns reply counts keyed by Why ID; Whys without replies are absent.
	CountPulses(ctx context.Context, whyIDs []int64) (map[int64]int, error)
}

type whyRepository struct {
	db *gorm.DB
}

// NewWhyRepository creates a new WhyRepository
func NewWhyRepository(db *gorm.DB) WhyRepository {
	return &whyRepository{db: db}
}

func (r *whyRepository) Create(ctx context.Context, why *models.Why) error {
	defer observability.TrackQuery("create", "whys")()

	if why.ID == 0 {
		why.ID = idgen.Next()
	}
	if err := r.db.WithContext(ctx).Create(why).Error; err != nil {
		return models.NewStoreUnavailableError(err)
	}
	return nil
}

func (r *whyRepository) GetByID(ctx context.Context, id int64) (*models.Why, error) {
	defer observability.TrackQuery("get_by_id", "whys")()

	var why models.Why
	if err := r.db.WithContext(ctx).First(&why, id).Error; err != nil {
		return nil, mapError(err, "Why", id)
	}
	return &why, nil
}

func (r *whyRepository) List(ctx context.Context, beforeID int64, limit int) ([]*models.Why, error) {
	defer observability.TrackQuery("list", "whys")()

	whys := make([]*models.Why, 0, max(limit, 0))
	if limit <= 0 {
		return whys, nil
	}

	q := readDB(r.db).WithContext(ctx)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&whys).Error; err != nil {
		return nil, mapError(err, "Why", nil)
	}
	return whys, nil
}

func (r *whyRepository) AddPulse(ctx context.Context, pulse *models.Pulse) error {
	defer observability.TrackQuery("create", "pulses")()

	if pulse.ID == 0 {
		pulse.ID = idgen.Next()
	}
	if err := r.db.WithContext(ctx).Create(pulse).Error; err != nil {
		return models.NewStoreUnavailableError(err)
	}
	return nil
}

func (r *whyRepository) ListPulses(ctx context.Context, whyID int64) ([]*models.Pulse, error) {
	defer observability.TrackQuery("list_by_why", "pulses")()

	pulses := make([]*models.Pulse, 0)
	err := readDB(r.db).WithContext(ctx).
		Where("why_id = ?", whyID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&pulses).Error
	if err != nil {
		return nil, mapError(err, "Pulse", nil)
	}
	return pulses, nil
}

func (r *whyRepository) CountPulses(ctx context.Context, whyIDs []int64) (map[int64]int, error) {
	defer observability.TrackQuery("count_by_why", "pulses")()

	counts := make(map[int64]int, len(whyIDs))
	if len(whyIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		WhyID int64
		Total int
	}
	err := readDB(r.db).WithContext(ctx).
		Model(&models.Pulse{}).
		Select("why_id, COUNT(*) AS total").
		Where("why_id IN ?", whyIDs).
		Group("why_id").
		Scan(&rows).Error
	if err != nil {
		return nil, mapError(err, "Pulse", nil)
	}
	for _, row := range rows {
		counts[row.WhyID] = row.Total
	}
	return counts, nil
}
