package runs

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/querylog/internal/entities"
	"github.com/mrlokans/querylog/internal/ingest"
)

var _ ingest.RunRecorder = (*Repository)(nil)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// StartRun inserts a run in the running state.
func (r *Repository) StartRun(run *entities.IngestRun) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	return r.db.Omit("Categories").Create(run).Error
}

// FinishRun stores the final counts of a run and replaces its categories.
// It also works for runs whose start was never recorded.
func (r *Repository) FinishRun(run *entities.IngestRun) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Categories").Save(run).Error; err != nil {
			return err
		}
		if err := tx.Where("run_id = ?", run.ID).Delete(&entities.RunCategory{}).Error; err != nil {
			return err
		}
		if len(run.Categories) == 0 {
			return nil
		}
		for i := range run.Categories {
			run.Categories[i].ID = 0
			run.Categories[i].RunID = run.ID
		}
		return tx.Create(&run.Categories).Error
	})
}

// List returns runs newest first, with their categories, and the total count.
func (r *Repository) List(limit, offset int) ([]entities.IngestRun, int64, error) {
	var runs []entities.IngestRun
	var total int64

	if err := r.db.Model(&entities.IngestRun{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	err := r.db.Preload("Categories", orderByCategory).
		Order("started_at DESC").Limit(limit).Offset(offset).
		Find(&runs).Error
	return runs, total, err
}

// GetByID returns one run with its categories, or gorm.ErrRecordNotFound.
func (r *Repository) GetByID(id string) (*entities.IngestRun, error) {
	var run entities.IngestRun
	err := r.db.Preload("Categories", orderByCategory).Where("id = ?", id).First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// DeleteOlderThan removes finished runs started before the given time.
// Returns the number of deleted runs.
func (r *Repository) DeleteOlderThan(olderThan time.Time) (int64, error) {
	var deleted int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		old := tx.Model(&entities.IngestRun{}).Select("id").
			Where("started_at < ? AND status <> ?", olderThan, entities.RunStatusRunning)

		if err := tx.Where("run_id IN (?)", old).Delete(&entities.RunCategory{}).Error; err != nil {
			return err
		}
		result := tx.Where("started_at < ? AND status <> ?", olderThan, entities.RunStatusRunning).
			Delete(&entities.IngestRun{})
		deleted = result.RowsAffected
		return result.Error
	})
	return deleted, err
}

func orderByCategory(db *gorm.DB) *gorm.DB {
	return db.Order("category ASC")
}
